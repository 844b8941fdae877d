package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidPID indicates a pid token that is not a JSON scalar.
	ErrInvalidPID = errors.New("invalid pid")
	// ErrMissingPID indicates the backend did not return a process id.
	ErrMissingPID = errors.New("backend returned no pid")
	// ErrNoActiveSession indicates an operation that needs a running session.
	ErrNoActiveSession = errors.New("no active session")
	// ErrReadOnly indicates the transcript is not accepting typed input.
	ErrReadOnly = errors.New("transcript is read-only")
	// ErrSessionSuperseded indicates a start was overtaken by another start or a reset.
	ErrSessionSuperseded = errors.New("session superseded")
	// ErrUnknownProcess indicates the backend does not know the pid.
	ErrUnknownProcess = errors.New("unknown process")
)

var (
	// ErrSessionClosed indicates the session client was closed.
	ErrSessionClosed = errors.New("session closed")
	// ErrNoEditor indicates Run was called without an editor.
	ErrNoEditor = errors.New("no editor configured")
)
