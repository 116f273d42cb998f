package driven

import (
	"context"

	"github.com/previsit-labs/previsit-cli/internal/core/domain"
)

// Classifier decides a yes/no property of user text. The gate uses two
// instances: an emergency classifier over red-flag patterns and a scope
// classifier for medical relevance. Implementations may be pattern-based or
// model-based; the state machine contract is the same for both.
type Classifier interface {
	// Classify evaluates the text. Implementations must be safe for
	// concurrent use across sessions.
	Classify(ctx context.Context, text string) (domain.Classification, error)

	// Name identifies the classifier in logs.
	Name() string
}
