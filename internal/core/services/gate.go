package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/previsit-labs/previsit-cli/internal/classifier"
	"github.com/previsit-labs/previsit-cli/internal/core/domain"
	"github.com/previsit-labs/previsit-cli/internal/core/ports/driven"
	"github.com/previsit-labs/previsit-cli/internal/core/ports/driving"
	"github.com/previsit-labs/previsit-cli/internal/logger"
)

// Ensure ScreeningService implements the interface.
var _ driving.ScreeningService = (*ScreeningService)(nil)

// Signal is a classification outcome that drives a phase transition.
type Signal string

const (
	// SignalEmergency moves any live phase to EMERGENCY_EXIT.
	SignalEmergency Signal = "EMERGENCY"

	// SignalOutOfScope moves START to OUT_OF_SCOPE_EXIT. Later phases
	// ignore it: once a session is medically in scope it stays there.
	SignalOutOfScope Signal = "OUT_OF_SCOPE"

	// SignalNeedMore keeps or puts the session in the follow-up loop.
	SignalNeedMore Signal = "NEED_MORE"

	// SignalReady completes the session with retrieval and a note.
	SignalReady Signal = "READY"
)

// Transition is the pure phase function. Terminal phases absorb every
// signal; all conversation state lives in ConversationState, never here.
func Transition(phase domain.Phase, sig Signal) domain.Phase {
	if phase.Terminal() {
		return phase
	}
	switch sig {
	case SignalEmergency:
		return domain.PhaseEmergencyExit
	case SignalOutOfScope:
		if phase == domain.PhaseStart {
			return domain.PhaseOutOfScopeExit
		}
		return phase
	case SignalNeedMore:
		return domain.PhaseFollowup
	case SignalReady:
		return domain.PhaseDone
	}
	return phase
}

// Fixed gate messages.
const (
	outOfScopeMessage = "I can only help with health-related questions before your visit. Please describe any symptoms or health concerns you'd like to discuss with your doctor."
	closedMessage     = "This session has ended. Start a new session to begin another screening."
	repromptMessage   = "I didn't catch that. Please describe your symptoms or health concern."
)

// fallbackFollowups are asked verbatim when question generation fails.
// One per follow-up slot, generic enough for any presenting complaint.
var fallbackFollowups = []domain.FollowupQuestion{
	{
		Question: "How long have you been experiencing these symptoms?",
		Options:  []string{"Less than a day", "A few days", "More than a week"},
	},
	{
		Question: "How severe would you rate the symptoms?",
		Options:  []string{"Mild", "Moderate", "Severe"},
	},
	{
		Question: "Have you noticed anything that makes the symptoms better or worse?",
		Options:  []string{"Yes", "No", "Not sure"},
	},
}

// ScreeningService runs the conversational gate: emergency check first on
// every turn, scope check on the opening turn, then a counter-bounded
// follow-up loop ending in one retrieval and one composed note.
type ScreeningService struct {
	emergency driven.Classifier
	scope     driven.Classifier
	retriever driving.RetrieverService
	composer  *ComposerService
	llm       driven.LLMService
	prompts   driven.PromptStore
}

// NewScreeningService creates a new screening service.
func NewScreeningService(
	emergency driven.Classifier,
	scope driven.Classifier,
	retriever driving.RetrieverService,
	composer *ComposerService,
	llm driven.LLMService,
	prompts driven.PromptStore,
) *ScreeningService {
	return &ScreeningService{
		emergency: emergency,
		scope:     scope,
		retriever: retriever,
		composer:  composer,
		llm:       llm,
		prompts:   prompts,
	}
}

// NewSession creates fresh per-session state in the START phase.
func (s *ScreeningService) NewSession() *domain.ConversationState {
	state := &domain.ConversationState{
		SessionID: uuid.NewString(),
		Phase:     domain.PhaseStart,
	}
	logger.Debug("Session started: %s", state.SessionID)
	return state
}

// HandleTurn processes one user utterance. Exactly one reply comes back
// per turn; terminal sessions answer with a closed notice instead of an
// error.
func (s *ScreeningService) HandleTurn(ctx context.Context, state *domain.ConversationState, utterance string) (domain.TurnReply, error) {
	if state.Phase.Terminal() {
		return domain.TurnReply{Kind: domain.ReplyClosed, Message: closedMessage}, nil
	}

	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		// A blank line advances nothing: no counters, no transcript.
		return domain.TurnReply{Kind: domain.ReplyFollowup, Message: repromptMessage}, nil
	}

	state.AddUser(utterance)
	state.TurnCount++

	// Emergency screening runs before anything else, every turn, over the
	// cumulative session text so a red flag split across turns still
	// matches. Pattern-based: no network between a red flag and the exit.
	emergency, err := s.emergency.Classify(ctx, state.SessionText())
	if err != nil {
		return domain.TurnReply{}, fmt.Errorf("emergency check: %w", err)
	}
	if emergency.Matched {
		state.EmergencyFlag = true
		state.Phase = Transition(state.Phase, SignalEmergency)
		msg := classifier.EmergencyMessage(emergency)
		state.AddAssistant(msg)
		logger.Warn("Emergency exit: categories=%v severity=%s", emergency.Categories, emergency.Severity)
		return domain.TurnReply{Kind: domain.ReplyEmergency, Message: msg}, nil
	}

	if state.Phase == domain.PhaseStart {
		return s.handleOpening(ctx, state, utterance)
	}
	return s.handleFollowupAnswer(ctx, state)
}

// handleOpening runs the scope check on the first substantive turn, then
// either exits or opens the follow-up loop.
func (s *ScreeningService) handleOpening(ctx context.Context, state *domain.ConversationState, utterance string) (domain.TurnReply, error) {
	scope, err := s.scope.Classify(ctx, utterance)
	if err != nil {
		// The scope classifier degrades to in-scope internally; an error
		// here means even the degraded path broke.
		return domain.TurnReply{}, fmt.Errorf("scope check: %w", err)
	}
	if !scope.Matched {
		state.Phase = Transition(state.Phase, SignalOutOfScope)
		state.AddAssistant(outOfScopeMessage)
		logger.Info("Out-of-scope exit for session %s", state.SessionID)
		return domain.TurnReply{Kind: domain.ReplyOutOfScope, Message: outOfScopeMessage}, nil
	}

	state.Phase = Transition(state.Phase, SignalNeedMore)
	return s.askFollowup(ctx, state)
}

// handleFollowupAnswer records a follow-up answer and either asks the next
// question or completes the session.
func (s *ScreeningService) handleFollowupAnswer(ctx context.Context, state *domain.ConversationState) (domain.TurnReply, error) {
	if len(state.PendingFollowups) < domain.MaxFollowups {
		return s.askFollowup(ctx, state)
	}

	state.Phase = Transition(state.Phase, SignalReady)
	return s.complete(ctx, state)
}

// askFollowup generates and records one clarifying question. The counter
// in state bounds the loop; generation failures fall back to canned
// questions rather than stalling the session.
func (s *ScreeningService) askFollowup(ctx context.Context, state *domain.ConversationState) (domain.TurnReply, error) {
	number := len(state.PendingFollowups) + 1

	q := s.generateFollowup(ctx, state, number)
	q.Number = number
	q.Total = domain.MaxFollowups

	msg := formatFollowup(q)
	state.PendingFollowups = append(state.PendingFollowups, q.Question)
	state.AddAssistant(msg)

	return domain.TurnReply{Kind: domain.ReplyFollowup, Message: msg, Followup: &q}, nil
}

// generateFollowup asks the model for the next question and validates its
// shape. Any failure returns the canned question for this slot.
func (s *ScreeningService) generateFollowup(ctx context.Context, state *domain.ConversationState, number int) domain.FollowupQuestion {
	fallback := fallbackFollowups[(number-1)%len(fallbackFollowups)]

	tpl, err := s.prompts.Load(driven.PromptFollowup)
	if err != nil {
		logger.Warn("Follow-up prompt unavailable, using canned question: %v", err)
		return fallback
	}

	prompt := fmt.Sprintf(tpl, state.SessionText(), lastExchange(state), number, domain.MaxFollowups)
	raw, err := callWithTimeout(ctx, generateCallTimeout, func(ctx context.Context) (string, error) {
		return s.llm.Generate(ctx, "", prompt, driven.GenerateOptions{MaxTokens: 256})
	})
	if err != nil {
		logger.Warn("Follow-up generation failed, using canned question: %v", err)
		return fallback
	}

	q, err := parseFollowup(raw)
	if err != nil {
		logger.Warn("Unparseable follow-up, using canned question: %v", err)
		return fallback
	}
	return q
}

// complete runs retrieval over the assembled query and composes the final
// note. Composition never fails the turn: the composer degrades to its
// fixed fallback note internally.
func (s *ScreeningService) complete(ctx context.Context, state *domain.ConversationState) (domain.TurnReply, error) {
	query := state.Query()
	logger.Debug("Session %s complete after %d turns, retrieving for query %q", state.SessionID, state.TurnCount, query)

	retrieved, err := s.retriever.Retrieve(ctx, query, 0)
	if err != nil {
		// Retrieval failure is not fatal to the patient-facing flow: the
		// composer produces an ungrounded note from the transcript.
		logger.Warn("Retrieval failed, composing without context: %v", err)
		retrieved = domain.RetrievalResult{Query: query}
	}

	note, err := s.composer.Compose(ctx, state, retrieved)
	if err != nil {
		return domain.TurnReply{}, fmt.Errorf("compose note: %w", err)
	}

	msg := FormatNote(note)
	state.AddAssistant(msg)

	return domain.TurnReply{Kind: domain.ReplyNote, Message: msg, Note: &note}, nil
}

// lastExchange returns the most recent question-and-answer pair for the
// follow-up prompt, or the empty string on the opening turn.
func lastExchange(state *domain.ConversationState) string {
	n := len(state.PendingFollowups)
	if n == 0 || len(state.CollectedSymptoms) == 0 {
		return ""
	}
	answer := state.CollectedSymptoms[len(state.CollectedSymptoms)-1]
	return fmt.Sprintf("Q: %s\nA: %s", state.PendingFollowups[n-1], answer)
}

// parseFollowup extracts a question plus 2-3 lettered options from model
// output in the form "Question: ...\nA) ...\nB) ...".
func parseFollowup(raw string) (domain.FollowupQuestion, error) {
	var q domain.FollowupQuestion

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(trimmed, "Question:"); ok {
			q.Question = strings.TrimSpace(after)
			continue
		}
		if len(trimmed) > 2 && trimmed[0] >= 'A' && trimmed[0] <= 'C' && trimmed[1] == ')' {
			q.Options = append(q.Options, strings.TrimSpace(trimmed[2:]))
		}
	}

	if q.Question == "" {
		return q, fmt.Errorf("%w: no question line", domain.ErrMalformedResponse)
	}
	if len(q.Options) < 2 || len(q.Options) > 3 {
		return q, fmt.Errorf("%w: %d options, want 2 or 3", domain.ErrMalformedResponse, len(q.Options))
	}
	return q, nil
}

// formatFollowup renders one question for the terminal.
func formatFollowup(q domain.FollowupQuestion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question %d of %d: %s\n", q.Number, q.Total, q.Question)
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "  %c) %s\n", 'A'+i, opt)
	}
	return strings.TrimRight(b.String(), "\n")
}
