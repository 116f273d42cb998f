package domain

// Citation points a note section back at its source material.
type Citation struct {
	Title      string
	Reference  string
	SourceType SourceType
	Score      float64
}

// TriageNote is the structured, citation-backed output of a completed
// session. It never asserts a diagnosis: CandidateConditions are
// possibilities with caveats.
type TriageNote struct {
	// CandidateConditions describes what the patient might be
	// experiencing, explicitly not a diagnosis.
	CandidateConditions string

	// UrgencyLevel is the recommended care timeframe.
	UrgencyLevel string

	// RedFlags lists warning signs that require immediate attention.
	RedFlags string

	// SuggestedTests lists tests and discussion points for the visit.
	SuggestedTests string

	// Citations map cited passages back to their provenance, one per
	// distinct source.
	Citations []Citation

	// Grounded is false when retrieval found nothing relevant enough and
	// the note rests on general model knowledge only.
	Grounded bool

	// Fallback is true for the fixed "unable to complete assessment"
	// note emitted after a failed reformat retry.
	Fallback bool
}

// ReplyKind distinguishes what a gate turn produced.
type ReplyKind string

const (
	ReplyFollowup   ReplyKind = "followup_question"
	ReplyNote       ReplyKind = "triage_note"
	ReplyEmergency  ReplyKind = "emergency"
	ReplyOutOfScope ReplyKind = "out_of_scope"
	ReplyClosed     ReplyKind = "closed"
)

// FollowupQuestion is a single clarifying question with 2-3 discrete
// options. The gate asks exactly one per turn.
type FollowupQuestion struct {
	Question string
	Options  []string
	Number   int
	Total    int
}

// TurnReply is what the session surface receives after each user turn:
// exactly one of a follow-up question, a terminal note, or a terminal
// notice.
type TurnReply struct {
	Kind     ReplyKind
	Message  string
	Followup *FollowupQuestion
	Note     *TriageNote
}
