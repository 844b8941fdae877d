package logx

import (
	"context"

	"pkt.systems/coderun/schema"
	"pkt.systems/pslog"
)

type contextKey int

const pidKey contextKey = iota

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// CtxWithPID annotates the logger from ctx with the process id unless ctx
// already carries it.
func CtxWithPID(ctx context.Context, pid schema.PID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if current, ok := ctx.Value(pidKey).(schema.PID); ok && current == pid {
		return log
	}
	return WithPID(log, pid)
}

// WithPID annotates the logger with the process id if present.
func WithPID(log pslog.Logger, pid schema.PID) pslog.Logger {
	if pid.IsZero() {
		return log
	}
	return log.With("pid", pid.String())
}

// WithGeneration annotates the logger with a session generation.
func WithGeneration(log pslog.Logger, gen schema.Generation) pslog.Logger {
	if gen == 0 {
		return log
	}
	return log.With("gen", uint64(gen))
}

// ContextWithPID stores the pid marker on the context for log de-duplication.
func ContextWithPID(ctx context.Context, pid schema.PID) context.Context {
	if ctx == nil || pid.IsZero() {
		return ctx
	}
	return context.WithValue(ctx, pidKey, pid)
}

// ContextWithPIDLogger attaches the logger and pid marker to the context.
func ContextWithPIDLogger(ctx context.Context, log pslog.Logger, pid schema.PID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithPID(ctx, pid)
}
