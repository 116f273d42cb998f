package driving

import (
	"context"

	"github.com/previsit-labs/previsit-cli/internal/core/domain"
)

// ScreeningService drives a pre-visit screening session: emergency check,
// scope gating, the bounded follow-up loop, and final note composition.
type ScreeningService interface {
	// NewSession creates fresh per-session state.
	NewSession() *domain.ConversationState

	// HandleTurn processes one user utterance and advances the session
	// state machine. Input to a terminal session returns a closed reply,
	// not an error.
	HandleTurn(ctx context.Context, state *domain.ConversationState, utterance string) (domain.TurnReply, error)
}
