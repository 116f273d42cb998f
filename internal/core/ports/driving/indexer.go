package driving

import (
	"context"

	"github.com/previsit-labs/previsit-cli/internal/core/domain"
)

// IndexerService builds the persisted index artifact from the passage
// store. An offline, single-pass batch job.
type IndexerService interface {
	// BuildIndex chunks all passages, embeds them, and atomically
	// persists the artifact. Returns the manifest of the built index.
	BuildIndex(ctx context.Context) (domain.IndexManifest, error)
}
