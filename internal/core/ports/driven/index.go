package driven

import (
	"context"

	"github.com/previsit-labs/previsit-cli/internal/core/domain"
)

// ChunkHit is a similarity search result: the chunk with its score under
// the index's metric.
type ChunkHit struct {
	Chunk    domain.Chunk
	Score    float64
	Position int
}

// ChunkIndex is a read-only view over a built index: ordered vectors with
// parallel ordered chunk metadata. Search never mutates the index and is
// safe for unlimited concurrent sessions.
type ChunkIndex interface {
	// Manifest describes how the index was built.
	Manifest() domain.IndexManifest

	// Search returns the k highest-scoring chunks for the query vector,
	// sorted by non-increasing score with ties broken by ascending
	// position. k larger than the index returns everything.
	Search(ctx context.Context, query []float32, k int) ([]ChunkHit, error)

	// Len returns the number of indexed chunks.
	Len() int
}

// IndexStore persists and loads index artifacts. Save is atomic: a
// half-written artifact is never observable, and a failed build never
// corrupts an existing artifact.
type IndexStore interface {
	// Save writes vectors and metadata together as one versioned
	// artifact. len(vectors) must equal len(chunks), position-aligned.
	Save(ctx context.Context, manifest domain.IndexManifest, chunks []domain.Chunk, vectors [][]float32) error

	// Load reads the artifact and validates its manifest against spec,
	// returning domain.ErrIncompatibleIndex on any disagreement.
	Load(ctx context.Context, spec domain.IndexSpec) (ChunkIndex, error)
}
