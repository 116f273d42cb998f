package flat

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/previsit-labs/previsit-cli/internal/core/domain"
	"github.com/previsit-labs/previsit-cli/internal/core/ports/driven"
	"github.com/previsit-labs/previsit-cli/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.IndexStore = (*Store)(nil)

// artifact is the on-disk gob layout: one versioned bundle holding the
// manifest, the ordered vectors, and the ordered chunk metadata.
type artifact struct {
	Manifest domain.IndexManifest
	Chunks   []domain.Chunk
	Vectors  [][]float32
}

// Store persists flat index artifacts to a single file. Writes go to a
// temp file in the same directory and are renamed into place, so readers
// never observe a half-written artifact and a failed build never corrupts
// an existing one.
type Store struct {
	path string
}

// NewStore creates a store for the artifact at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the artifact location.
func (s *Store) Path() string { return s.path }

// Save atomically writes vectors and metadata as one artifact.
func (s *Store) Save(_ context.Context, manifest domain.IndexManifest, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrIncompatibleIndex, len(chunks), len(vectors))
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	enc := gob.NewEncoder(tmp)
	if err := enc.Encode(artifact{Manifest: manifest, Chunks: chunks, Vectors: vectors}); err != nil {
		tmp.Close()
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp artifact: %w", err)
	}

	// Atomic swap: the previous artifact stays intact until this succeeds.
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("swap artifact into place: %w", err)
	}

	logger.Info("Index artifact written: %s (%d chunks, model=%s, metric=%s)",
		s.path, len(chunks), manifest.ModelName, manifest.Metric)
	return nil
}

// Load reads the artifact and validates its manifest against spec before
// returning a searchable index.
func (s *Store) Load(_ context.Context, spec domain.IndexSpec) (driven.ChunkIndex, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no index artifact at %s (run the index command first)", domain.ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	var a artifact
	if err := gob.NewDecoder(f).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: undecodable artifact: %v", domain.ErrIncompatibleIndex, err)
	}

	if err := a.Manifest.Compatible(spec); err != nil {
		return nil, err
	}

	ix, err := NewIndex(a.Manifest, a.Chunks, a.Vectors)
	if err != nil {
		return nil, err
	}

	logger.Debug("Loaded index artifact: %d chunks, dim=%d, model=%s",
		ix.Len(), a.Manifest.Dimensions, a.Manifest.ModelName)
	return ix, nil
}
