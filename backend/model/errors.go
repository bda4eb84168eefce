package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the engine can surface. Each kind
// has a defined recovery path; none may escape as an untyped error.
type ErrorKind string

const (
	// ErrInvalidFile: wrong extension/MIME type or oversize file.
	// Resolved locally before any extraction or network call.
	ErrInvalidFile ErrorKind = "invalid_file"
	// ErrEmptyDocument: extraction produced less text than the configured
	// floor. Also resolved before any network call.
	ErrEmptyDocument ErrorKind = "empty_document"
	// ErrSubmissionFailed: the parse endpoint rejected the document or
	// returned no contract id.
	ErrSubmissionFailed ErrorKind = "submission_failed"
	// ErrTimeout: the poll loop hit its attempt ceiling without the
	// document reaching a terminal status.
	ErrTimeout ErrorKind = "timeout"
	// ErrProcessingFailed: the remote parser reported a terminal failure.
	ErrProcessingFailed ErrorKind = "processing_failed"
	// ErrCreationFailed: session creation failed or returned no id; the
	// wizard rolls back to the summary step.
	ErrCreationFailed ErrorKind = "creation_failed"
	// ErrCatalogFetchFailed: template catalog unavailable. Non-fatal; the
	// wizard degrades to recovery options.
	ErrCatalogFetchFailed ErrorKind = "catalog_fetch_failed"
)

// EngineError is the single error type crossing component boundaries.
type EngineError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewError builds an EngineError with a user-facing message.
func NewError(kind ErrorKind, message string) *EngineError {
	return &EngineError{Kind: kind, Message: message}
}

// WrapError builds an EngineError around an underlying cause.
func WrapError(kind ErrorKind, message string, err error) *EngineError {
	return &EngineError{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the error kind, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}
