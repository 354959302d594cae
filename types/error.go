package types

import "fmt"

// ErrorCode represents a unified error code across the service.
type ErrorCode string

// Request/pipeline error codes
const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrPipelineNotReady ErrorCode = "PIPELINE_NOT_READY"
	ErrRetrievalFailed  ErrorCode = "RETRIEVAL_FAILED"
	ErrRerankFailed     ErrorCode = "RERANK_FAILED"
	ErrGradingFailed    ErrorCode = "GRADING_FAILED"
	ErrGenerationFailed ErrorCode = "GENERATION_FAILED"
)

// Queue/job error codes
const (
	ErrQueueNotConfigured ErrorCode = "QUEUE_NOT_CONFIGURED"
	ErrEnqueueFailed      ErrorCode = "ENQUEUE_FAILED"
	ErrJobNotFound        ErrorCode = "JOB_NOT_FOUND"
)

// Upstream/infrastructure error codes
const (
	ErrRateLimited        ErrorCode = "RATE_LIMITED"
	ErrUpstreamTimeout    ErrorCode = "UPSTREAM_TIMEOUT"
	ErrUpstreamError      ErrorCode = "UPSTREAM_ERROR"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Stage      string    `json:"stage,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithStage records the pipeline stage that produced the error.
func (e *Error) WithStage(stage string) *Error {
	e.Stage = stage
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
