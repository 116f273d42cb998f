// Package chunker splits validated passages into overlapping rune windows
// with provenance metadata attached to every chunk.
package chunker

import (
	"fmt"

	"github.com/previsit-labs/previsit-cli/internal/core/domain"
)

// Default window sizes in runes. MedlinePlus summaries are concise, so the
// default profile is smaller; textbook passages carry longer clinical
// reasoning and get larger windows.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200

	TextbookChunkSize    = 1500
	TextbookChunkOverlap = 300
)

// Profile holds the windowing parameters for one source type.
type Profile struct {
	ChunkSize int
	Overlap   int
}

// Chunker splits passages into overlapping windows, choosing the profile
// by source type.
type Chunker struct {
	defaultProfile  Profile
	textbookProfile Profile
}

// Option configures the chunker.
type Option func(*Chunker)

// WithProfile sets the windowing parameters for the given source type.
// Non-positive sizes are ignored.
func WithProfile(st domain.SourceType, p Profile) Option {
	return func(c *Chunker) {
		if p.ChunkSize <= 0 || p.Overlap < 0 {
			return
		}
		if st == domain.SourceTextbook {
			c.textbookProfile = p
		} else {
			c.defaultProfile = p
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		defaultProfile:  Profile{ChunkSize: DefaultChunkSize, Overlap: DefaultChunkOverlap},
		textbookProfile: Profile{ChunkSize: TextbookChunkSize, Overlap: TextbookChunkOverlap},
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must stay below chunk size or windows would not advance.
	c.defaultProfile = clampProfile(c.defaultProfile)
	c.textbookProfile = clampProfile(c.textbookProfile)

	return c
}

func clampProfile(p Profile) Profile {
	if p.Overlap >= p.ChunkSize {
		p.Overlap = p.ChunkSize / 4
	}
	return p
}

// profileFor returns the windowing parameters for a source type.
func (c *Chunker) profileFor(st domain.SourceType) Profile {
	if st == domain.SourceTextbook {
		return c.textbookProfile
	}
	return c.defaultProfile
}

// ChunkPassage splits one passage into overlapping windows. Every chunk's
// text is a contiguous substring of the passage; windows advance by
// chunkSize-overlap and the trailing remainder is never dropped. Invalid
// passages are rejected with domain.ErrInvalidPassage.
func (c *Chunker) ChunkPassage(p domain.Passage) ([]domain.Chunk, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	profile := c.profileFor(p.SourceType)
	runes := []rune(p.Text)
	total := len(runes)

	step := profile.ChunkSize - profile.Overlap
	chunks := make([]domain.Chunk, 0, total/step+1)

	position := 0
	for start := 0; start < total; start += step {
		end := start + profile.ChunkSize
		if end > total {
			end = total
		}

		chunks = append(chunks, domain.Chunk{
			ID:          domain.ChunkID(p.SourceID, position),
			Text:        string(runes[start:end]),
			StartOffset: start,
			EndOffset:   end,
			Position:    position,
			SourceID:    p.SourceID,
			SourceType:  p.SourceType,
			Title:       p.Title,
			Reference:   p.Reference,
		})
		position++

		if end == total {
			break
		}
	}

	return chunks, nil
}

// ChunkAll splits a sequence of passages, preserving passage order and
// window order within each passage. The first invalid passage aborts the
// run so bad input never reaches the index.
func (c *Chunker) ChunkAll(passages []domain.Passage) ([]domain.Chunk, error) {
	var all []domain.Chunk
	for i, p := range passages {
		chunks, err := c.ChunkPassage(p)
		if err != nil {
			return nil, fmt.Errorf("passage %d: %w", i, err)
		}
		all = append(all, chunks...)
	}
	return all, nil
}
