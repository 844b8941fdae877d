package core

import "fmt"

// BackendErrorKind classifies backend failures for user-facing messages.
type BackendErrorKind string

const (
	// BackendErrorUnknown is an uncategorized backend failure.
	BackendErrorUnknown BackendErrorKind = "unknown"
	// BackendErrorUnavailable indicates the backend is unreachable.
	BackendErrorUnavailable BackendErrorKind = "unavailable"
	// BackendErrorTimeout indicates the request timed out.
	BackendErrorTimeout BackendErrorKind = "timeout"
	// BackendErrorCanceled indicates the request was canceled.
	BackendErrorCanceled BackendErrorKind = "canceled"
	// BackendErrorNotFound indicates the backend does not know the process.
	BackendErrorNotFound BackendErrorKind = "not_found"
	// BackendErrorRejected indicates the backend refused the request.
	BackendErrorRejected BackendErrorKind = "rejected"
	// BackendErrorProtocol indicates a malformed backend reply.
	BackendErrorProtocol BackendErrorKind = "protocol"
)

// BackendError wraps backend failures with a stable classification.
type BackendError struct {
	Kind   BackendErrorKind
	Op     string
	Status int
	Err    error
}

// NewBackendError constructs a classified backend error.
func NewBackendError(kind BackendErrorKind, op string, err error) *BackendError {
	return &BackendError{Kind: kind, Op: op, Err: err}
}

func (e *BackendError) Error() string {
	if e == nil {
		return "backend error"
	}
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %v", e.Op, e.Err)
		}
		return e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("backend %s failed", e.Op)
	}
	return "backend error"
}

func (e *BackendError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
