package models

import (
	"errors"
	"fmt"
)

// Failure values surfaced by the retrieval core. Callers inspect these with
// errors.Is; the HTTP layer maps them to status codes.
var (
	// ErrEmptyDocument means extraction and chunking produced no usable text.
	ErrEmptyDocument = errors.New("document produced no text chunks")

	// ErrNoIndexBuilt means a query ran against an empty or never-built corpus.
	ErrNoIndexBuilt = errors.New("no index has been built")

	// ErrDimensionMismatch means a vector's length disagrees with the
	// dimension the index was reset with, usually model or config drift.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingFailed wraps any failure of the embedding endpoint.
	ErrEmbeddingFailed = errors.New("embedding request failed")

	// ErrSessionNotFound means no chat session exists for the given id.
	ErrSessionNotFound = errors.New("chat session not found")
)

// ConfigurationError reports a rejected configuration value, such as a chunk
// overlap that is not smaller than the chunk size.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}
