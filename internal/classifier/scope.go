package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/previsit-labs/previsit-cli/internal/core/domain"
	"github.com/previsit-labs/previsit-cli/internal/core/ports/driven"
	"github.com/previsit-labs/previsit-cli/internal/logger"
)

// Ensure both scope variants implement the interface.
var (
	_ driven.Classifier = (*PatternScope)(nil)
	_ driven.Classifier = (*ModelScope)(nil)
)

// medicalTerms is the vocabulary the pattern-based scope classifier
// matches against. Broad on purpose: unclear input should reach the
// follow-up loop, not be bounced as off-topic.
var medicalTerms = []string{
	"pain", "ache", "aching", "hurt", "hurts", "sore", "fever", "chills",
	"cough", "sneez", "congestion", "runny nose", "sore throat", "nausea",
	"vomit", "diarrhea", "constipat", "rash", "itch", "swelling", "swollen",
	"dizzy", "dizziness", "fatigue", "tired", "weak", "numb", "tingling",
	"bleed", "bruis", "cramp", "headache", "migraine", "breath", "wheez",
	"palpitation", "heart", "chest", "stomach", "abdomen", "back", "joint",
	"muscle", "skin", "throat", "ear", "eye", "sick", "ill", "symptom",
	"infection", "disease", "condition", "diagnos", "medication", "medicine",
	"doctor", "clinic", "hospital", "health", "blood pressure", "diabetes",
	"allergy", "allergic", "asthma", "pregnan", "injur", "burn", "bite",
}

// PatternScope decides medical relevance with a vocabulary match. Used as
// the fallback when no LLM is configured and as the safety net when the
// model-based variant errors.
type PatternScope struct{}

// NewPatternScope creates the pattern-based scope classifier.
func NewPatternScope() *PatternScope {
	return &PatternScope{}
}

// Name identifies the classifier in logs.
func (p *PatternScope) Name() string { return "scope-patterns" }

// Classify reports whether the text mentions anything medical.
func (p *PatternScope) Classify(_ context.Context, text string) (domain.Classification, error) {
	lower := strings.ToLower(text)
	for _, term := range medicalTerms {
		if strings.Contains(lower, term) {
			return domain.Classification{Matched: true, Keywords: []string{term}}, nil
		}
	}
	return domain.Classification{Matched: false}, nil
}

// ModelScope asks the generative model whether input is health-related,
// falling back to the pattern variant on any error so a flaky LLM never
// blocks a legitimate query.
type ModelScope struct {
	llm      driven.LLMService
	prompts  driven.PromptStore
	fallback driven.Classifier
}

// NewModelScope creates the model-based scope classifier.
func NewModelScope(llm driven.LLMService, prompts driven.PromptStore) *ModelScope {
	return &ModelScope{
		llm:      llm,
		prompts:  prompts,
		fallback: NewPatternScope(),
	}
}

// Name identifies the classifier in logs.
func (m *ModelScope) Name() string { return "scope-llm" }

// Classify asks the model for a YES/NO relevance verdict.
func (m *ModelScope) Classify(ctx context.Context, text string) (domain.Classification, error) {
	tmpl, err := m.prompts.Load(driven.PromptScopeClassifier)
	if err != nil {
		logger.Warn("Scope prompt load failed: %v (using pattern fallback)", err)
		return m.fallback.Classify(ctx, text)
	}

	answer, err := m.llm.Generate(ctx, "", fmt.Sprintf(tmpl, text), driven.GenerateOptions{
		MaxTokens:   10,
		Temperature: 0,
	})
	if err != nil {
		logger.Warn("Scope classification failed: %v (using pattern fallback)", err)
		return m.fallback.Classify(ctx, text)
	}

	verdict := strings.ToUpper(strings.TrimSpace(answer))
	if strings.Contains(verdict, "YES") {
		return domain.Classification{Matched: true}, nil
	}
	if strings.Contains(verdict, "NO") {
		return domain.Classification{Matched: false}, nil
	}

	// Unparseable verdict: default to in-scope rather than bouncing a
	// plausible medical query.
	logger.Warn("Scope verdict %q unparseable, defaulting to in-scope", verdict)
	return domain.Classification{Matched: true}, nil
}
