package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPassage indicates a passage failed validation: empty text
	// or missing provenance. Such passages are rejected at the ingestion
	// boundary and never reach the index.
	ErrInvalidPassage = errors.New("invalid passage")

	// ErrDimensionMismatch indicates an embedding's dimension differs from
	// the rest of the index. The build is aborted and nothing is persisted.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrIncompatibleIndex indicates a persisted index artifact disagrees
	// with the current configuration (schema version, model, metric, or
	// dimensions). Loading fails rather than silently falling back.
	ErrIncompatibleIndex = errors.New("incompatible index artifact")

	// ErrServiceTimeout indicates an embedding or generation call exceeded
	// its deadline after the automatic retry. Recoverable: callers surface
	// it as a degraded-service notice.
	ErrServiceTimeout = errors.New("external service timeout")

	// ErrMalformedResponse indicates generation output failed structural
	// validation. The composer retries once with a stricter reformat
	// instruction before falling back.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrEmbeddingUnavailable indicates the embedding service failed or is
	// not configured. Indexing and retrieval are disabled without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
