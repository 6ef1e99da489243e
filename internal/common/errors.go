package common

import (
	"errors"
	"fmt"
)

// Kind classifies a failure at one of the external boundaries. Every
// collaborator converts its raw errors into one of these kinds before the
// pipeline sees them.
type Kind string

const (
	// KindFileRead means the source document could not be opened or read.
	// Fatal to a pipeline run; no fallback exists because there is no
	// content to process.
	KindFileRead Kind = "file_read"

	// KindService means an external API (vision, reasoning service,
	// local OCR binary) was unreachable or rejected the call.
	KindService Kind = "service_error"

	// KindInvalidResponse means an external service replied but the
	// payload was not parseable as expected. The raw payload is retained
	// alongside the error wherever it is available.
	KindInvalidResponse Kind = "invalid_json"

	// KindDecryption means stored ciphertext could not be recovered
	// (wrong or rotated key, corrupted token).
	KindDecryption Kind = "decryption"

	// KindStore means the persistence layer rejected a write.
	KindStore Kind = "store"

	// KindConfig means the process environment is missing or malformed.
	KindConfig Kind = "config_error"
)

// Common sentinel errors.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
)

// AppError carries a failure kind across package boundaries.
type AppError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewAppError(kind Kind, message string, cause error) *AppError {
	return &AppError{Kind: kind, Message: message, Cause: cause}
}

// KindOf reports the Kind attached to err, or "" when err carries none.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
