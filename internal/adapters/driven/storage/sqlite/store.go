// Package sqlite provides the SQLite-backed passage store. The passage
// dataset survives between the import step and index builds, so it lives
// on disk rather than in memory.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/previsit-labs/previsit-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/previsit-labs/previsit-cli/internal/core/domain"
	"github.com/previsit-labs/previsit-cli/internal/core/ports/driven"
)

// Store is a SQLite-based passage store.
type Store struct {
	db   *sql.DB
	path string
}

// Ensure Store implements the interface.
var _ driven.PassageStore = (*Store)(nil)

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.previsit/data/passages.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".previsit", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "passages.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Put stores a passage, replacing any existing passage with the same
// source ID while keeping its original insertion position.
func (s *Store) Put(ctx context.Context, p domain.Passage) error {
	if err := p.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO passages (source_id, source_type, title, reference, body)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			source_type = excluded.source_type,
			title = excluded.title,
			reference = excluded.reference,
			body = excluded.body
	`, p.SourceID, string(p.SourceType), p.Title, p.Reference, p.Text)
	if err != nil {
		return fmt.Errorf("storing passage %s: %w", p.SourceID, err)
	}
	return nil
}

// List returns all passages in insertion order.
func (s *Store) List(ctx context.Context) ([]domain.Passage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, source_type, title, reference, body
		FROM passages
		ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("listing passages: %w", err)
	}
	defer rows.Close()

	var passages []domain.Passage
	for rows.Next() {
		var p domain.Passage
		var sourceType string
		if err := rows.Scan(&p.SourceID, &sourceType, &p.Title, &p.Reference, &p.Text); err != nil {
			return nil, fmt.Errorf("scanning passage: %w", err)
		}
		p.SourceType = domain.SourceType(sourceType)
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating passages: %w", err)
	}
	return passages, nil
}

// Count returns the number of stored passages.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM passages").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting passages: %w", err)
	}
	return count, nil
}

// Get retrieves one passage by source ID.
func (s *Store) Get(ctx context.Context, sourceID string) (domain.Passage, error) {
	var p domain.Passage
	var sourceType string
	err := s.db.QueryRowContext(ctx, `
		SELECT source_id, source_type, title, reference, body
		FROM passages WHERE source_id = ?
	`, sourceID).Scan(&p.SourceID, &sourceType, &p.Title, &p.Reference, &p.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Passage{}, fmt.Errorf("%w: passage %s", domain.ErrNotFound, sourceID)
	}
	if err != nil {
		return domain.Passage{}, fmt.Errorf("getting passage %s: %w", sourceID, err)
	}
	p.SourceType = domain.SourceType(sourceType)
	return p, nil
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_passages.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}
