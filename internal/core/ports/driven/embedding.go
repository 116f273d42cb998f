package driven

import "context"

// EmbeddingService generates vector embeddings from text. The pipeline
// treats vectors as opaque except for their dimension.
//
// The indexer and the retriever must use the same model identity; the model
// name is stored in the index artifact and checked on load.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. The returned
	// slice is positional: vector i belongs to texts[i].
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// ModelName returns the embedding model identity stored alongside the
	// index artifact.
	ModelName() string

	// Close releases resources.
	Close() error
}
