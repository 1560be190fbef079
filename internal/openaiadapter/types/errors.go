package types

// Error represents the OpenAI error detail shape.
type Error struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

// ErrorResponse wraps Error in the envelope OpenAI clients expect: {"error": {...}}.
// The same envelope is used for JSON error responses and terminal SSE error events.
type ErrorResponse struct {
	Err Error `json:"error"`
}

// Error implements the error interface for Error, returning the error message.
func (e *Error) Error() string {
	return e.Message
}

// Error implements the error interface for ErrorResponse, returning the underlying error message.
// This allows ErrorResponse to be used directly in error returns.
func (e *ErrorResponse) Error() string {
	return e.Err.Message
}
