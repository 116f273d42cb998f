package domain

import "fmt"

// SourceType identifies which corpus a passage came from.
type SourceType string

const (
	// SourceTextbook is clinical-reasoning textbook content.
	SourceTextbook SourceType = "textbook"

	// SourceMedlinePlus is patient-facing MedlinePlus content.
	SourceMedlinePlus SourceType = "medlineplus"
)

// Valid reports whether the source type is one of the known corpora.
func (s SourceType) Valid() bool {
	return s == SourceTextbook || s == SourceMedlinePlus
}

// Passage is a validated unit of source text produced by the external
// ingestion step. Immutable once stored.
type Passage struct {
	// SourceID is the stable identifier used for deduplication. Chunks
	// from the same SourceID count as one source in retrieval results.
	SourceID string

	// SourceType is the corpus the passage belongs to.
	SourceType SourceType

	// Title is the human-readable topic title.
	Title string

	// Reference is the URL or citation for the passage. May be empty for
	// textbook material without a public link.
	Reference string

	// Text is the full passage text.
	Text string
}

// Validate checks the passage shape contract with the ingestion boundary.
// Returns ErrInvalidPassage describing the first missing field.
func (p Passage) Validate() error {
	switch {
	case p.Text == "":
		return fmt.Errorf("%w: empty text (source %q)", ErrInvalidPassage, p.SourceID)
	case p.SourceID == "":
		return fmt.Errorf("%w: missing source_id (title %q)", ErrInvalidPassage, p.Title)
	case p.Title == "":
		return fmt.Errorf("%w: missing title (source %q)", ErrInvalidPassage, p.SourceID)
	case !p.SourceType.Valid():
		return fmt.Errorf("%w: unknown source_type %q (source %q)", ErrInvalidPassage, p.SourceType, p.SourceID)
	}
	return nil
}
