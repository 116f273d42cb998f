// Package flat provides a brute-force vector index over an on-disk gob
// artifact. Vectors and chunk metadata are parallel ordered collections;
// position i in one always corresponds to position i in the other.
package flat

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/previsit-labs/previsit-cli/internal/core/domain"
	"github.com/previsit-labs/previsit-cli/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.ChunkIndex = (*Index)(nil)

// Index is an immutable in-memory flat index. Search is a pure read, safe
// for unlimited concurrent sessions.
type Index struct {
	manifest domain.IndexManifest
	chunks   []domain.Chunk
	vectors  [][]float32
}

// NewIndex assembles an index from position-aligned chunks and vectors.
// Every vector must match the manifest dimension; for the cosine metric
// vectors are L2-normalised here so search reduces to a dot product.
func NewIndex(manifest domain.IndexManifest, chunks []domain.Chunk, vectors [][]float32) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrIncompatibleIndex, len(chunks), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != manifest.Dimensions {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d",
				domain.ErrDimensionMismatch, i, len(v), manifest.Dimensions)
		}
	}

	if manifest.Metric == domain.MetricCosine {
		normalised := make([][]float32, len(vectors))
		for i, v := range vectors {
			normalised[i] = l2Normalise(v)
		}
		vectors = normalised
	}

	manifest.ChunkCount = len(chunks)
	return &Index{manifest: manifest, chunks: chunks, vectors: vectors}, nil
}

// Manifest describes how the index was built.
func (ix *Index) Manifest() domain.IndexManifest { return ix.manifest }

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.chunks) }

// Search scores every vector against the query and returns the k best,
// sorted by descending score, ties broken by ascending position so results
// are deterministic. k larger than the index returns everything.
func (ix *Index) Search(_ context.Context, query []float32, k int) ([]driven.ChunkHit, error) {
	if len(query) != ix.manifest.Dimensions {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d",
			domain.ErrDimensionMismatch, len(query), ix.manifest.Dimensions)
	}
	if k <= 0 || k > len(ix.vectors) {
		k = len(ix.vectors)
	}

	q := query
	if ix.manifest.Metric == domain.MetricCosine {
		q = l2Normalise(query)
	}

	hits := make([]driven.ChunkHit, len(ix.vectors))
	for i, v := range ix.vectors {
		hits[i] = driven.ChunkHit{
			Chunk:    ix.chunks[i],
			Score:    dot(q, v),
			Position: i,
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].Position < hits[b].Position
	})

	return hits[:k], nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// l2Normalise returns a unit-length copy of v. Zero vectors are returned
// unchanged.
func l2Normalise(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}
