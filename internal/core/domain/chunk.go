package domain

import "fmt"

// Chunk is a windowed slice of a passage's text: the unit that is embedded,
// indexed, and retrieved. Its text is always a contiguous substring of
// exactly one passage.
type Chunk struct {
	// ID is deterministic across rebuilds with unchanged chunking
	// parameters: "<source_id>:<position>".
	ID string

	// Text is the chunk content, verbatim from the passage.
	Text string

	// StartOffset and EndOffset are rune offsets into the parent passage,
	// half-open: passage text runes [StartOffset, EndOffset).
	StartOffset int
	EndOffset   int

	// Position is the window ordinal within the parent passage.
	Position int

	// Provenance copied from the parent passage.
	SourceID   string
	SourceType SourceType
	Title      string
	Reference  string
}

// ChunkID builds the deterministic chunk identifier.
func ChunkID(sourceID string, position int) string {
	return fmt.Sprintf("%s:%d", sourceID, position)
}

// SourceLabel is the provenance tag used when quoting the chunk to the
// generative model and in citations.
func (c Chunk) SourceLabel() string {
	if c.SourceType == SourceTextbook {
		return "Textbook"
	}
	return "MedlinePlus"
}
