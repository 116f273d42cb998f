// Package memory provides in-memory adapter implementations used by tests
// and ephemeral sessions that never touch disk.
package memory

import (
	"context"
	"sync"

	"github.com/previsit-labs/previsit-cli/internal/core/domain"
	"github.com/previsit-labs/previsit-cli/internal/core/ports/driven"
)

// Ensure PassageStore implements the interface.
var _ driven.PassageStore = (*PassageStore)(nil)

// PassageStore is an in-memory passage store safe for concurrent use.
type PassageStore struct {
	mu       sync.RWMutex
	passages []domain.Passage
	byID     map[string]int
}

// NewPassageStore creates an empty in-memory passage store.
func NewPassageStore() *PassageStore {
	return &PassageStore{byID: make(map[string]int)}
}

// Put stores a passage, replacing any existing passage with the same
// source ID while keeping its original insertion position.
func (s *PassageStore) Put(_ context.Context, p domain.Passage) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.byID[p.SourceID]; ok {
		s.passages[i] = p
		return nil
	}
	s.byID[p.SourceID] = len(s.passages)
	s.passages = append(s.passages, p)
	return nil
}

// List returns all passages in insertion order.
func (s *PassageStore) List(_ context.Context) ([]domain.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Passage, len(s.passages))
	copy(out, s.passages)
	return out, nil
}

// Count returns the number of stored passages.
func (s *PassageStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.passages), nil
}

// Close releases resources.
func (s *PassageStore) Close() error {
	return nil
}
