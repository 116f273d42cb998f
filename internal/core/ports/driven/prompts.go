package driven

// PromptStore provides access to LLM prompt templates. Implementations may
// load prompts from user-editable files with embedded defaults.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next
	// access.
	Reload()
}

// Well-known prompt names. These constants define the contract between
// prompt consumers and providers.
const (
	// PromptFollowup generates one multiple-choice clarifying question.
	// Placeholders: %s (symptoms so far), %s (last Q&A block), %d
	// (question number), %d (total questions).
	PromptFollowup = "followup_question"

	// PromptTriageSystem is the system instruction constraining note
	// output to the required sections. No placeholders.
	PromptTriageSystem = "triage_system"

	// PromptTriageReformat is appended on the single reformat retry after
	// a malformed response. No placeholders.
	PromptTriageReformat = "triage_reformat"

	// PromptScopeClassifier asks the model whether input is
	// health-related. Placeholder: %s (user input).
	PromptScopeClassifier = "scope_classifier"
)
