package ingestion

import "errors"

var (
	// ErrRegistryRequired is returned when a task registry is not provided.
	ErrRegistryRequired = errors.New("task registry required")

	// ErrRepositoryRequired is returned when a document repository is not provided.
	ErrRepositoryRequired = errors.New("document repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidChunking is returned when chunk overlap is not smaller than chunk size.
	ErrInvalidChunking = errors.New("chunk overlap must be smaller than chunk size")

	// ErrInvalidMaxAttempts is returned for a non-positive retry attempt count.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")
)
