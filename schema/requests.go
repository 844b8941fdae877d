package schema

// Wire payloads for the execution backend. Every endpoint is a JSON POST.

// RunRequest starts a new process from source text (POST /run).
type RunRequest struct {
	Code string `json:"code"`
}

// RunResponse carries the id of the started process.
type RunResponse struct {
	PID PID `json:"pid"`
}

// OutputRequest asks for the next output chunk (POST /output).
type OutputRequest struct {
	PID PID `json:"pid"`
}

// OutputResponse carries one output chunk, possibly empty.
type OutputResponse struct {
	Output   string `json:"output"`
	Finished bool   `json:"finished"`
}

// InputRequest delivers one line of standard input (POST /input).
type InputRequest struct {
	PID   PID    `json:"pid"`
	Input string `json:"input"`
}

// InputResponse is accepted for completeness; clients ignore its fields.
type InputResponse struct {
	Status string `json:"status,omitempty"`
}

// ResetRequest asks the backend to terminate a process (POST /reset).
type ResetRequest struct {
	PID PID `json:"pid"`
}

// ResetResponse reports the termination status.
type ResetResponse struct {
	Status string `json:"status,omitempty"`
}

// ErrorResponse is the body of a non-2xx backend reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ResetStatusTerminated is the status a backend reports after /reset.
const ResetStatusTerminated = "terminated"
