package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code and message,
// so wrapped copies of a sentinel still match it.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrap attaches detail to a sentinel while keeping its code and message.
func Wrap(sentinel *DomainError, detail string) *DomainError {
	return &DomainError{
		Code:    sentinel.Code,
		Message: sentinel.Message,
		Err:     errors.New(detail),
	}
}

// AsDomainError extracts a DomainError from an error chain.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeUnavailable      = "UNAVAILABLE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidChunkConfig = NewDomainError(ErrCodeValidation, "invalid chunk configuration")
	ErrInvalidDocument    = NewDomainError(ErrCodeValidation, "invalid document")
	ErrEmptyBatch         = NewDomainError(ErrCodeValidation, "at least one document is required")
	ErrInvalidQuestion    = NewDomainError(ErrCodeValidation, "question must be at least 3 characters")
	ErrInvalidTopK        = NewDomainError(ErrCodeValidation, "top_k out of range")
	ErrInvalidDateRange   = NewDomainError(ErrCodeValidation, "date_from must not be after date_to")
	ErrInvalidCursor      = NewDomainError(ErrCodeValidation, "invalid cursor")
	ErrUnknownScorer      = NewDomainError(ErrCodeValidation, "unknown scorer")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrChunkNotFound    = NewDomainError(ErrCodeNotFound, "chunk not found")
)

// Already exists errors
var (
	ErrChunkAlreadyExists    = NewDomainError(ErrCodeAlreadyExists, "chunk already exists")
	ErrDocumentAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "document with this origin already exists")
)

// Operation errors
var (
	ErrEmbeddingsUnsupported = NewDomainError(ErrCodeInvalidOperation, "embeddings require the postgres backend and an OpenAI key")
	ErrStoreUnavailable      = NewDomainError(ErrCodeUnavailable, "store unavailable")
)
