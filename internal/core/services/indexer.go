package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/previsit-labs/previsit-cli/internal/chunker"
	"github.com/previsit-labs/previsit-cli/internal/core/domain"
	"github.com/previsit-labs/previsit-cli/internal/core/ports/driven"
	"github.com/previsit-labs/previsit-cli/internal/core/ports/driving"
	"github.com/previsit-labs/previsit-cli/internal/logger"
)

// Ensure IndexerService implements the interface.
var _ driving.IndexerService = (*IndexerService)(nil)

// DefaultEmbedBatchSize is the number of chunk texts sent per embedding
// request.
const DefaultEmbedBatchSize = 64

// defaultEmbedRate caps embedding requests per second so a large corpus
// rebuild stays under typical provider limits.
const defaultEmbedRate = 5

// IndexerService builds the persisted index artifact from the passage
// store: chunk, embed, save. An offline batch job with no online state.
type IndexerService struct {
	passageStore driven.PassageStore
	chunker      *chunker.Chunker
	embedder     driven.EmbeddingService
	indexStore   driven.IndexStore
	batchSize    int
	limiter      *rate.Limiter
}

// NewIndexerService creates a new indexer service.
func NewIndexerService(
	passageStore driven.PassageStore,
	ck *chunker.Chunker,
	embedder driven.EmbeddingService,
	indexStore driven.IndexStore,
) *IndexerService {
	return &IndexerService{
		passageStore: passageStore,
		chunker:      ck,
		embedder:     embedder,
		indexStore:   indexStore,
		batchSize:    DefaultEmbedBatchSize,
		limiter:      rate.NewLimiter(rate.Limit(defaultEmbedRate), 1),
	}
}

// SetBatchSize overrides the embedding batch size. Non-positive values are
// ignored.
func (s *IndexerService) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// SetRateLimit overrides the embedding requests-per-second cap.
func (s *IndexerService) SetRateLimit(perSecond float64) {
	if perSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// BuildIndex chunks every stored passage, embeds the chunks in order, and
// atomically replaces the index artifact. An empty passage store yields a
// valid empty index. Any embedding failure aborts the build; the previous
// artifact stays in place untouched.
func (s *IndexerService) BuildIndex(ctx context.Context) (domain.IndexManifest, error) {
	logger.Section("Index Build")

	passages, err := s.passageStore.List(ctx)
	if err != nil {
		return domain.IndexManifest{}, fmt.Errorf("list passages: %w", err)
	}
	logger.Info("Passages to index: %d", len(passages))

	chunks, err := s.chunker.ChunkAll(passages)
	if err != nil {
		return domain.IndexManifest{}, fmt.Errorf("chunk passages: %w", err)
	}
	logger.Info("Chunks produced: %d", len(chunks))

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return domain.IndexManifest{}, err
	}

	manifest := domain.IndexManifest{
		SchemaVersion: domain.IndexSchemaVersion,
		ModelName:     s.embedder.ModelName(),
		Metric:        domain.MetricCosine,
		Dimensions:    s.embedder.Dimensions(),
		ChunkCount:    len(chunks),
		BuiltAt:       time.Now().UTC(),
	}

	if err := s.indexStore.Save(ctx, manifest, chunks, vectors); err != nil {
		return domain.IndexManifest{}, fmt.Errorf("save index: %w", err)
	}

	return manifest, nil
}

// embedChunks embeds chunk texts batch by batch, preserving chunk order.
// A vector whose dimension disagrees with the embedding service fails the
// whole build immediately rather than poisoning the artifact.
func (s *IndexerService) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	want := s.embedder.Dimensions()
	vectors := make([][]float32, 0, len(chunks))

	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		batch, err := callWithTimeout(ctx, embedCallTimeout, func(ctx context.Context) ([][]float32, error) {
			return s.embedder.EmbedBatch(ctx, texts)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: embed batch at chunk %d: %v", domain.ErrEmbeddingUnavailable, start, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("embed batch at chunk %d: got %d vectors for %d texts", start, len(batch), len(texts))
		}

		for i, v := range batch {
			if len(v) != want {
				return nil, fmt.Errorf("%w: chunk %d has dimension %d, model reports %d",
					domain.ErrDimensionMismatch, start+i, len(v), want)
			}
		}

		vectors = append(vectors, batch...)
		logger.Debug("Embedded chunks %d-%d of %d", start, end-1, len(chunks))
	}

	return vectors, nil
}
