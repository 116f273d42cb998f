package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/previsit-labs/previsit-cli/internal/core/domain"
	"github.com/previsit-labs/previsit-cli/internal/core/ports/driven"
	"github.com/previsit-labs/previsit-cli/internal/core/ports/driving"
	"github.com/previsit-labs/previsit-cli/internal/logger"
)

// Ensure RetrieverService implements the interface.
var _ driving.RetrieverService = (*RetrieverService)(nil)

// DefaultTopK is the number of chunks returned when the caller does not
// specify k.
const DefaultTopK = 5

// RetrieverService embeds queries and searches the loaded index. The index
// is loaded lazily and can be swapped with Reload while sessions are live;
// in-flight searches keep the snapshot they started with.
type RetrieverService struct {
	embedder   driven.EmbeddingService
	indexStore driven.IndexStore

	mu    sync.RWMutex
	index driven.ChunkIndex
}

// NewRetrieverService creates a new retriever service.
func NewRetrieverService(embedder driven.EmbeddingService, indexStore driven.IndexStore) *RetrieverService {
	return &RetrieverService{
		embedder:   embedder,
		indexStore: indexStore,
	}
}

// spec describes the index this retriever is compatible with, derived from
// the configured embedding service.
func (s *RetrieverService) spec() domain.IndexSpec {
	return domain.IndexSpec{
		ModelName:  s.embedder.ModelName(),
		Metric:     domain.MetricCosine,
		Dimensions: s.embedder.Dimensions(),
	}
}

// Reload loads the artifact from disk and swaps it in. Called at startup
// and whenever the artifact file is replaced by an offline rebuild.
func (s *RetrieverService) Reload(ctx context.Context) error {
	ix, err := s.indexStore.Load(ctx, s.spec())
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.index = ix
	s.mu.Unlock()

	logger.Info("Index loaded: %d chunks (model=%s)", ix.Len(), ix.Manifest().ModelName)
	return nil
}

// snapshot returns the current index, loading it on first use.
func (s *RetrieverService) snapshot(ctx context.Context) (driven.ChunkIndex, error) {
	s.mu.RLock()
	ix := s.index
	s.mu.RUnlock()
	if ix != nil {
		return ix, nil
	}

	if err := s.Reload(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index, nil
}

// Retrieve embeds the query and returns the k most similar chunks with at
// most one chunk per distinct source. When several chunks of one source
// match, the best-scoring one represents it and the freed slots are
// refilled from the next sources down, so k distinct sources come back
// whenever the corpus has them.
func (s *RetrieverService) Retrieve(ctx context.Context, query string, k int) (domain.RetrievalResult, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	ix, err := s.snapshot(ctx)
	if err != nil {
		return domain.RetrievalResult{}, err
	}

	vector, err := callWithTimeout(ctx, embedCallTimeout, func(ctx context.Context) ([]float32, error) {
		return s.embedder.Embed(ctx, query)
	})
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("%w: embed query: %v", domain.ErrEmbeddingUnavailable, err)
	}

	// The flat index scores every vector regardless of k, so fetching the
	// full ranking costs nothing extra and makes source refill exact.
	hits, err := ix.Search(ctx, vector, ix.Len())
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("search index: %w", err)
	}

	result := domain.RetrievalResult{Query: query, Chunks: dedupeBySource(hits, k)}
	logger.Debug("Retrieved %d chunks for query (best score %.3f)", len(result.Chunks), result.BestScore())
	return result, nil
}

// dedupeBySource keeps the first (highest-ranked) chunk per SourceID from
// an already sorted ranking and truncates to k. Rank order is preserved,
// so the result stays sorted by non-increasing score with the index's
// position tie-break intact.
func dedupeBySource(hits []driven.ChunkHit, k int) []domain.RetrievedChunk {
	seen := make(map[string]struct{}, k)
	out := make([]domain.RetrievedChunk, 0, k)

	for _, h := range hits {
		if _, dup := seen[h.Chunk.SourceID]; dup {
			continue
		}
		seen[h.Chunk.SourceID] = struct{}{}
		out = append(out, domain.RetrievedChunk{Chunk: h.Chunk, Score: h.Score})
		if len(out) == k {
			break
		}
	}

	return out
}
