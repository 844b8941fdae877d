package core

import (
	"context"

	"pkt.systems/coderun/schema"
)

// Backend is the remote execution service. Implementations must be safe for
// concurrent use; the session client calls Reset from background goroutines.
type Backend interface {
	Run(ctx context.Context, code string) (schema.PID, error)
	Output(ctx context.Context, pid schema.PID) (schema.OutputResponse, error)
	Input(ctx context.Context, pid schema.PID, line string) error
	Reset(ctx context.Context, pid schema.PID) error
}
