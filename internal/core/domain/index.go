package domain

import (
	"fmt"
	"time"
)

// IndexSchemaVersion is the on-disk artifact schema version. Bump whenever
// the encoded layout changes; older artifacts then fail to load with
// ErrIncompatibleIndex instead of being misread.
const IndexSchemaVersion = 1

// Metric is the similarity metric an index was built with. Fixed at build
// time and validated on load.
type Metric string

const (
	// MetricCosine scores by cosine similarity. Vectors are L2-normalised
	// at build and query time.
	MetricCosine Metric = "cosine"

	// MetricInnerProduct scores by raw inner product.
	MetricInnerProduct Metric = "dot"
)

// Valid reports whether the metric is supported.
func (m Metric) Valid() bool {
	return m == MetricCosine || m == MetricInnerProduct
}

// IndexSpec is the configuration an index must match to be usable: the
// embedding model identity, the similarity metric, and the vector dimension.
type IndexSpec struct {
	ModelName  string
	Metric     Metric
	Dimensions int
}

// IndexManifest describes a persisted index artifact. All fields are
// validated against the current IndexSpec before the artifact is used.
type IndexManifest struct {
	SchemaVersion int
	ModelName     string
	Metric        Metric
	Dimensions    int
	ChunkCount    int
	BuiltAt       time.Time
}

// Compatible checks the manifest against the given spec.
// Returns ErrIncompatibleIndex naming the first disagreeing field.
func (m IndexManifest) Compatible(spec IndexSpec) error {
	switch {
	case m.SchemaVersion != IndexSchemaVersion:
		return fmt.Errorf("%w: schema version %d, want %d", ErrIncompatibleIndex, m.SchemaVersion, IndexSchemaVersion)
	case m.ModelName != spec.ModelName:
		return fmt.Errorf("%w: built with model %q, configured model %q", ErrIncompatibleIndex, m.ModelName, spec.ModelName)
	case m.Metric != spec.Metric:
		return fmt.Errorf("%w: built with metric %q, configured metric %q", ErrIncompatibleIndex, m.Metric, spec.Metric)
	case m.Dimensions != spec.Dimensions:
		return fmt.Errorf("%w: built with %d dimensions, configured %d", ErrIncompatibleIndex, m.Dimensions, spec.Dimensions)
	}
	return nil
}

// RetrievedChunk is a chunk with its similarity score.
type RetrievedChunk struct {
	Chunk Chunk
	Score float64
}

// RetrievalResult is an ordered sequence of scored chunks, deduplicated so
// at most one chunk per distinct SourceID appears, sorted by non-increasing
// score.
type RetrievalResult struct {
	Query  string
	Chunks []RetrievedChunk
}

// BestScore returns the top similarity score, or 0 when empty.
func (r RetrievalResult) BestScore() float64 {
	if len(r.Chunks) == 0 {
		return 0
	}
	return r.Chunks[0].Score
}
