package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/previsit-labs/previsit-cli/internal/core/domain"
	"github.com/previsit-labs/previsit-cli/internal/core/ports/driven"
	"github.com/previsit-labs/previsit-cli/internal/logger"
)

// MinRelevance is the default similarity floor. When the best retrieved
// score falls below it the note is composed from general model knowledge
// and marked ungrounded.
const MinRelevance = 0.25

// Note section headers the model is required to emit. Order matters for
// rendering.
var noteSections = []string{
	"Candidate Conditions",
	"Urgency Level",
	"Red Flags",
	"Suggested Tests",
}

// disclaimer closes every note. Fixed text, never model-generated.
const disclaimer = "This is a pre-visit summary to discuss with your doctor, not a diagnosis."

// ungroundedCaveat is prepended when retrieval found nothing relevant
// enough to cite.
const ungroundedCaveat = "Note: no closely matching reference material was found; this summary is based on general knowledge only."

// ComposerService turns a completed session plus retrieved context into a
// structured triage note. The model's output is validated against the
// required sections; one reformat retry is allowed before falling back to
// a fixed note.
type ComposerService struct {
	llm          driven.LLMService
	prompts      driven.PromptStore
	minRelevance float64
}

// NewComposerService creates a new composer service.
func NewComposerService(llm driven.LLMService, prompts driven.PromptStore) *ComposerService {
	return &ComposerService{
		llm:          llm,
		prompts:      prompts,
		minRelevance: MinRelevance,
	}
}

// SetRelevanceFloor overrides the grounding similarity floor.
func (s *ComposerService) SetRelevanceFloor(f float64) {
	if f >= 0 {
		s.minRelevance = f
	}
}

// Compose generates the triage note for a finished session. Model failures
// never escalate to the caller: after the reformat retry is exhausted the
// fixed fallback note is returned, so the session always ends with output
// the patient can act on.
func (s *ComposerService) Compose(ctx context.Context, state *domain.ConversationState, retrieved domain.RetrievalResult) (domain.TriageNote, error) {
	if ctx.Err() != nil {
		return domain.TriageNote{}, ctx.Err()
	}

	grounded := len(retrieved.Chunks) > 0 && retrieved.BestScore() >= s.minRelevance
	if !grounded {
		logger.Warn("Retrieval below relevance floor (best %.3f < %.3f), composing ungrounded note",
			retrieved.BestScore(), s.minRelevance)
	}

	system, err := s.prompts.Load(driven.PromptTriageSystem)
	if err != nil {
		return domain.TriageNote{}, fmt.Errorf("load triage prompt: %w", err)
	}

	prompt := s.buildPrompt(state, retrieved, grounded)

	raw, err := callWithTimeout(ctx, generateCallTimeout, func(ctx context.Context) (string, error) {
		return s.llm.Generate(ctx, system, prompt, driven.GenerateOptions{})
	})
	if err != nil {
		logger.Warn("Note generation failed, emitting fallback: %v", err)
		return s.fallbackNote(), nil
	}

	note, perr := parseNote(raw)
	if perr != nil {
		logger.Warn("Malformed note, requesting reformat: %v", perr)
		raw, err = s.reformat(ctx, system, raw)
		if err != nil {
			logger.Warn("Reformat failed, emitting fallback: %v", err)
			return s.fallbackNote(), nil
		}
		note, perr = parseNote(raw)
		if perr != nil {
			logger.Warn("Reformat still malformed, emitting fallback: %v", perr)
			return s.fallbackNote(), nil
		}
	}

	note.Grounded = grounded
	if grounded {
		note.Citations = citationsFor(retrieved.Chunks)
	}
	return note, nil
}

// buildPrompt assembles retrieved context with provenance tags followed by
// the conversation transcript.
func (s *ComposerService) buildPrompt(state *domain.ConversationState, retrieved domain.RetrievalResult, grounded bool) string {
	var b strings.Builder

	if grounded {
		b.WriteString("Reference material:\n\n")
		for _, rc := range retrieved.Chunks {
			fmt.Fprintf(&b, "[Source: %s - %s]\n%s\n\n", rc.Chunk.SourceLabel(), rc.Chunk.Title, rc.Chunk.Text)
		}
	} else {
		b.WriteString("No reference material matched closely. Answer from general medical knowledge and keep the summary cautious.\n\n")
	}

	b.WriteString("Conversation:\n")
	for _, m := range state.Transcript {
		role := "Patient"
		if m.Role == domain.RoleAssistant {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
	}

	return b.String()
}

// reformat sends the malformed output back once, asking for the required
// section structure.
func (s *ComposerService) reformat(ctx context.Context, system, malformed string) (string, error) {
	reformatPrompt, err := s.prompts.Load(driven.PromptTriageReformat)
	if err != nil {
		return "", fmt.Errorf("load reformat prompt: %w", err)
	}

	prompt := reformatPrompt + "\n\n" + malformed
	return callWithTimeout(ctx, generateCallTimeout, func(ctx context.Context) (string, error) {
		return s.llm.Generate(ctx, system, prompt, driven.GenerateOptions{})
	})
}

// fallbackNote is the fixed note for an unrecoverable composition failure.
func (s *ComposerService) fallbackNote() domain.TriageNote {
	return domain.TriageNote{
		CandidateConditions: "Unable to complete the assessment. Please describe your symptoms directly to your doctor.",
		UrgencyLevel:        "Please consult a healthcare provider to determine urgency.",
		RedFlags:            "If symptoms worsen suddenly or severely, seek immediate medical attention.",
		SuggestedTests:      "Your doctor will determine appropriate next steps.",
		Grounded:            false,
		Fallback:            true,
	}
}

// parseNote extracts the required "## Section" blocks from model output.
// A missing section is a malformed response.
func parseNote(raw string) (domain.TriageNote, error) {
	found := make(map[string]string, len(noteSections))

	var current string
	var body strings.Builder

	flush := func() {
		if current != "" {
			found[current] = strings.TrimSpace(body.String())
		}
		body.Reset()
	}

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(trimmed, "## "); ok {
			flush()
			current = matchSection(after)
			continue
		}
		if current != "" {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	flush()

	for _, section := range noteSections {
		if found[section] == "" {
			return domain.TriageNote{}, fmt.Errorf("%w: missing section %q", domain.ErrMalformedResponse, section)
		}
	}

	return domain.TriageNote{
		CandidateConditions: found["Candidate Conditions"],
		UrgencyLevel:        found["Urgency Level"],
		RedFlags:            found["Red Flags"],
		SuggestedTests:      found["Suggested Tests"],
	}, nil
}

// matchSection normalises a header against the known sections, tolerating
// case drift.
func matchSection(header string) string {
	header = strings.TrimSpace(header)
	for _, section := range noteSections {
		if strings.EqualFold(header, section) {
			return section
		}
	}
	return ""
}

// citationsFor maps retrieved chunks to citations, one per distinct
// source. Chunks arrive already deduplicated and sorted, so order carries
// over.
func citationsFor(chunks []domain.RetrievedChunk) []domain.Citation {
	citations := make([]domain.Citation, 0, len(chunks))
	seen := make(map[string]struct{}, len(chunks))

	for _, rc := range chunks {
		if _, dup := seen[rc.Chunk.SourceID]; dup {
			continue
		}
		seen[rc.Chunk.SourceID] = struct{}{}
		citations = append(citations, domain.Citation{
			Title:      rc.Chunk.Title,
			Reference:  rc.Chunk.Reference,
			SourceType: rc.Chunk.SourceType,
			Score:      rc.Score,
		})
	}

	return citations
}

// FormatNote renders a note for the terminal: the four sections, the
// grounding caveat when applicable, numbered sources, and the disclaimer.
func FormatNote(note domain.TriageNote) string {
	var b strings.Builder

	if !note.Grounded && !note.Fallback {
		b.WriteString(ungroundedCaveat)
		b.WriteString("\n\n")
	}

	values := []string{note.CandidateConditions, note.UrgencyLevel, note.RedFlags, note.SuggestedTests}
	for i, section := range noteSections {
		fmt.Fprintf(&b, "## %s\n%s\n\n", section, values[i])
	}

	if len(note.Citations) > 0 {
		b.WriteString("Sources:\n")
		for i, c := range note.Citations {
			label := "MedlinePlus"
			if c.SourceType == domain.SourceTextbook {
				label = "Textbook"
			}
			fmt.Fprintf(&b, "  %d. %s - %s", i+1, label, c.Title)
			if c.Reference != "" {
				fmt.Fprintf(&b, " (%s)", c.Reference)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(disclaimer)
	return b.String()
}
