package domain

import "strings"

// Phase is the conversation gate state. Transitions are driven purely by
// classification signals; there is no hidden state outside ConversationState.
type Phase string

const (
	PhaseStart          Phase = "START"
	PhaseFollowup       Phase = "FOLLOWUP_LOOP"
	PhaseDone           Phase = "DONE"
	PhaseEmergencyExit  Phase = "EMERGENCY_EXIT"
	PhaseOutOfScopeExit Phase = "OUT_OF_SCOPE_EXIT"
)

// Terminal reports whether the phase accepts no further input.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseEmergencyExit || p == PhaseOutOfScopeExit
}

// MaxFollowups bounds the follow-up loop. The counter in ConversationState
// enforces this, never the generative model's judgment.
const MaxFollowups = 3

// Role labels a transcript message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one transcript entry.
type Message struct {
	Role    string
	Content string
}

// ConversationState is the per-session mutable record. Owned exclusively by
// its session; created at session start, discarded at session end.
type ConversationState struct {
	// SessionID identifies the session (UUID).
	SessionID string

	// Phase is the current gate state.
	Phase Phase

	// TurnCount is the number of user turns processed.
	TurnCount int

	// CollectedSymptoms holds every user utterance in order. Joined to
	// form the retrieval query.
	CollectedSymptoms []string

	// PendingFollowups are the follow-up questions asked so far, in order.
	// Capped at MaxFollowups.
	PendingFollowups []string

	// EmergencyFlag is sticky: once set the session is terminally in
	// EMERGENCY_EXIT.
	EmergencyFlag bool

	// Transcript is the full ordered conversation.
	Transcript []Message
}

// AddUser appends a user utterance to transcript and collected symptoms.
func (s *ConversationState) AddUser(content string) {
	s.Transcript = append(s.Transcript, Message{Role: RoleUser, Content: content})
	s.CollectedSymptoms = append(s.CollectedSymptoms, content)
}

// AddAssistant appends an assistant message to the transcript.
func (s *ConversationState) AddAssistant(content string) {
	s.Transcript = append(s.Transcript, Message{Role: RoleAssistant, Content: content})
}

// SessionText is the cumulative user text, used by the emergency check so a
// red flag split across turns still matches.
func (s *ConversationState) SessionText() string {
	return strings.Join(s.CollectedSymptoms, " ")
}

// Query assembles the retrieval query from all collected utterances.
func (s *ConversationState) Query() string {
	return strings.Join(s.CollectedSymptoms, " | ")
}
