package driving

import (
	"context"

	"github.com/previsit-labs/previsit-cli/internal/core/domain"
)

// RetrieverService performs semantic retrieval over the persisted index.
type RetrieverService interface {
	// Retrieve embeds the query and returns the k best chunks,
	// deduplicated by source, sorted by non-increasing score. k <= 0
	// uses the default of 5.
	Retrieve(ctx context.Context, query string, k int) (domain.RetrievalResult, error)
}
