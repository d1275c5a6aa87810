package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ingestion and retrieval paths. Ingestion-path
// failures propagate to the caller with the kind preserved; the retrieval
// path uses them internally for logging before degrading.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileNotFound        = errors.New("file not found")
	ErrDocumentParse       = errors.New("document parse failed")
	ErrEmbeddingService    = errors.New("embedding service failed")
	ErrStorageUnavailable  = errors.New("storage unavailable")

	// ErrInvalidProductID guards the pipeline entry points.
	ErrInvalidProductID = errors.New("invalid product id")
)

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// Transient reports whether an ingestion error is worth retrying.
// Malformed input (bad type, missing file, unparseable document) is not;
// embedding and storage outages are.
func Transient(err error) bool {
	return errors.Is(err, ErrEmbeddingService) || errors.Is(err, ErrStorageUnavailable)
}
