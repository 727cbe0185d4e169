package profilestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
    entity_type TEXT NOT NULL,
    entity_id   TEXT NOT NULL,
    content     TEXT NOT NULL,
    updated_at  TEXT NOT NULL,
    PRIMARY KEY (entity_type, entity_id)
);

CREATE TABLE IF NOT EXISTS profile_revisions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_type TEXT NOT NULL,
    entity_id   TEXT NOT NULL,
    content     TEXT NOT NULL,
    created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_profile_revisions_entity
    ON profile_revisions (entity_type, entity_id, id);
`

// Store manages profile persistence backed by SQLite.
type Store struct {
	db           *sql.DB
	path         string
	revisionKeep int
}

// Revision is a historical snapshot of a profile.
type Revision struct {
	Content   string
	CreatedAt time.Time
}

// Open initializes or connects to the profile database.
func Open(dbPath string, revisionKeep int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure profile db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if revisionKeep < 0 {
		revisionKeep = 0
	}
	return &Store{db: db, path: dbPath, revisionKeep: revisionKeep}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Read returns the current profile content, or "" when no profile exists.
func (s *Store) Read(ctx context.Context, entityType, entityID string) (string, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT content FROM profiles WHERE entity_type = ? AND entity_id = ?`,
		entityType,
		entityID,
	)
	var content string
	if err := row.Scan(&content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("read profile: %w", err)
	}
	return content, nil
}

// Write upserts a profile, snapshotting any previous content into the
// revisions table and pruning snapshots beyond the keep count.
func (s *Store) Write(ctx context.Context, entityType, entityID, content string) error {
	if entityType == "" || entityID == "" {
		return errors.New("entity type and id must be set")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin profile write: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var previous string
	err = tx.QueryRowContext(
		ctx,
		`SELECT content FROM profiles WHERE entity_type = ? AND entity_id = ?`,
		entityType,
		entityID,
	).Scan(&previous)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("read existing profile: %w", err)
	default:
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO profile_revisions (entity_type, entity_id, content, created_at) VALUES (?, ?, ?, ?)`,
			entityType,
			entityID,
			previous,
			now,
		); err != nil {
			return fmt.Errorf("snapshot profile revision: %w", err)
		}
	}

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO profiles (entity_type, entity_id, content, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT (entity_type, entity_id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		entityType,
		entityID,
		content,
		now,
	); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`DELETE FROM profile_revisions
         WHERE entity_type = ? AND entity_id = ?
           AND id NOT IN (
               SELECT id FROM profile_revisions
               WHERE entity_type = ? AND entity_id = ?
               ORDER BY id DESC LIMIT ?
           )`,
		entityType,
		entityID,
		entityType,
		entityID,
		s.revisionKeep,
	); err != nil {
		return fmt.Errorf("prune profile revisions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit profile write: %w", err)
	}
	return nil
}

// ListRevisions returns historical snapshots for an entity, oldest first.
func (s *Store) ListRevisions(ctx context.Context, entityType, entityID string) ([]Revision, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT content, created_at FROM profile_revisions
         WHERE entity_type = ? AND entity_id = ? ORDER BY id`,
		entityType,
		entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("list profile revisions: %w", err)
	}
	defer rows.Close()

	var revisions []Revision
	for rows.Next() {
		var (
			content string
			rawTime string
		)
		if err := rows.Scan(&content, &rawTime); err != nil {
			return nil, fmt.Errorf("scan profile revision: %w", err)
		}
		revision := Revision{Content: content}
		if created, err := time.Parse(time.RFC3339Nano, rawTime); err == nil {
			revision.CreatedAt = created
		}
		revisions = append(revisions, revision)
	}
	return revisions, rows.Err()
}
