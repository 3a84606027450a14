package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates an external service rejected our credentials
	ErrUnauthorized = errors.New("unauthorized")

	// ErrServiceUnavailable indicates an external service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrMalformedResponse indicates an external service answered with a body we could not decode
	ErrMalformedResponse = errors.New("malformed response")

	// ErrMissingDocumentID indicates a document has no documentID and cannot be keyed in the graph
	ErrMissingDocumentID = errors.New("missing document id")

	// ErrQueueClosed indicates the task queue no longer accepts work
	ErrQueueClosed = errors.New("queue closed")
)

// TransientError represents a temporary failure that may succeed on retry
// (network error, timeout, rate limit, upstream 5xx).
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{err: err}
}

// FatalError represents a configuration-level failure that must abort the run
// (bad credentials, unreachable sink).
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as fatal (non-retryable, aborts the run).
func NewFatalError(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{err: err}
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal returns true if the error is fatal and should abort the run.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
