package flat

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/previsit-labs/previsit-cli/internal/core/domain"
)

func testManifest(dim int) domain.IndexManifest {
	return domain.IndexManifest{
		SchemaVersion: domain.IndexSchemaVersion,
		ModelName:     "test-embed-v1",
		Metric:        domain.MetricCosine,
		Dimensions:    dim,
		BuiltAt:       time.Now().UTC(),
	}
}

func testChunks(n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:         domain.ChunkID("src", i),
			Text:       "chunk",
			Position:   i,
			SourceID:   "src",
			SourceType: domain.SourceMedlinePlus,
			Title:      "Topic",
		}
	}
	return chunks
}

func TestNewIndexRejectsLengthMismatch(t *testing.T) {
	_, err := NewIndex(testManifest(2), testChunks(2), [][]float32{{1, 0}})
	assert.True(t, errors.Is(err, domain.ErrIncompatibleIndex))
}

func TestNewIndexRejectsDimensionMismatch(t *testing.T) {
	_, err := NewIndex(testManifest(2), testChunks(2), [][]float32{{1, 0}, {1, 0, 0}})
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
}

func TestSearchOrdersByScoreWithStableTies(t *testing.T) {
	vectors := [][]float32{
		{0, 1},  // orthogonal to query
		{1, 0},  // exact match
		{1, 1},  // partial
		{2, 0},  // same direction as position 1: cosine ties
		{-1, 0}, // opposite
	}
	ix, err := NewIndex(testManifest(2), testChunks(5), vectors)
	require.NoError(t, err)

	hits, err := ix.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 5)

	// Cosine ties between positions 1 and 3 break by ascending position.
	assert.Equal(t, 1, hits[0].Position)
	assert.Equal(t, 3, hits[1].Position)
	assert.Equal(t, 2, hits[2].Position)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i].Score, hits[i-1].Score)
	}
}

func TestSearchKLargerThanIndex(t *testing.T) {
	ix, err := NewIndex(testManifest(2), testChunks(2), [][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)

	hits, err := ix.Search(context.Background(), []float32{1, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSearchRejectsWrongQueryDimension(t *testing.T) {
	ix, err := NewIndex(testManifest(2), testChunks(1), [][]float32{{1, 0}})
	require.NoError(t, err)

	_, err = ix.Search(context.Background(), []float32{1, 0, 0}, 1)
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store", "index.gob")
	s := NewStore(path)
	ctx := context.Background()

	manifest := testManifest(2)
	manifest.ChunkCount = 3
	vectors := [][]float32{{1, 0}, {0, 1}, {1, 1}}

	require.NoError(t, s.Save(ctx, manifest, testChunks(3), vectors))

	ix, err := s.Load(ctx, domain.IndexSpec{
		ModelName:  "test-embed-v1",
		Metric:     domain.MetricCosine,
		Dimensions: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, ix.Len())
	assert.Equal(t, "test-embed-v1", ix.Manifest().ModelName)

	// Vector and metadata collections stay position-aligned after reload.
	hits, err := ix.Search(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, domain.ChunkID("src", 1), hits[0].Chunk.ID)
}

func TestLoadMissingArtifact(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "absent.gob"))
	_, err := s.Load(context.Background(), domain.IndexSpec{ModelName: "m", Metric: domain.MetricCosine, Dimensions: 2})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestLoadIncompatibleArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.gob")
	s := NewStore(path)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, testManifest(2), testChunks(1), [][]float32{{1, 0}}))

	tests := []struct {
		name string
		spec domain.IndexSpec
	}{
		{"wrong model", domain.IndexSpec{ModelName: "other-model", Metric: domain.MetricCosine, Dimensions: 2}},
		{"wrong metric", domain.IndexSpec{ModelName: "test-embed-v1", Metric: domain.MetricInnerProduct, Dimensions: 2}},
		{"wrong dimensions", domain.IndexSpec{ModelName: "test-embed-v1", Metric: domain.MetricCosine, Dimensions: 384}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Load(ctx, tt.spec)
			assert.True(t, errors.Is(err, domain.ErrIncompatibleIndex))
		})
	}
}

func TestSaveReplacesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.gob")
	s := NewStore(path)
	ctx := context.Background()
	spec := domain.IndexSpec{ModelName: "test-embed-v1", Metric: domain.MetricCosine, Dimensions: 2}

	require.NoError(t, s.Save(ctx, testManifest(2), testChunks(2), [][]float32{{1, 0}, {0, 1}}))
	require.NoError(t, s.Save(ctx, testManifest(2), testChunks(5), [][]float32{{1, 0}, {0, 1}, {1, 1}, {2, 0}, {0, 2}}))

	ix, err := s.Load(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, 5, ix.Len())
}
