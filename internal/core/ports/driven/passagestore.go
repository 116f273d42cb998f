package driven

import (
	"context"

	"github.com/previsit-labs/previsit-cli/internal/core/domain"
)

// PassageStore holds the validated row-per-passage dataset produced by the
// external ingestion step. The chunker's only contract with ingestion is
// the Passage shape.
type PassageStore interface {
	// Put stores a passage. Invalid passages are rejected with
	// domain.ErrInvalidPassage.
	Put(ctx context.Context, p domain.Passage) error

	// List returns all passages in insertion order.
	List(ctx context.Context) ([]domain.Passage, error)

	// Count returns the number of stored passages.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
