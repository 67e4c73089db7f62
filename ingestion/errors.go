package ingestion

import "errors"

var (
	// ErrEmbeddingServiceRequired is returned when an embedding service is not provided.
	ErrEmbeddingServiceRequired = errors.New("embedding service required")

	// ErrCheckpointRepositoryRequired is returned when resuming without a checkpoint repository.
	ErrCheckpointRepositoryRequired = errors.New("checkpoint repository required")

	// ErrPartialMismatch is returned when a partial result does not belong to the document.
	ErrPartialMismatch = errors.New("partial result does not match document")

	// ErrInvalidOptions is returned when processing options are inconsistent.
	ErrInvalidOptions = errors.New("invalid processing options")
)
