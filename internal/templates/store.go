// Package templates persists named command templates in SQLite.
package templates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"reencoder/internal/translate"
	"reencoder/internal/util"
)

// ErrNotFound is returned when no template has the requested name.
var ErrNotFound = errors.New("template not found")

// Entry is a stored template.
type Entry struct {
	Name        string
	Command     string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Template parses the stored command.
func (e Entry) Template() (translate.Template, error) {
	return translate.Parse(e.Command)
}

// Store is a SQLite-backed template store.
type Store struct {
	db   *sql.DB
	path string
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS templates (
	name        TEXT PRIMARY KEY,
	command     TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);`

// Open opens or creates the store at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("ensure template dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Validate checks that name is usable and command parses.
func Validate(name, command string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("template name is empty")
	}
	if strings.ContainsAny(name, "\n\r\t") {
		return fmt.Errorf("template name %q contains control characters", name)
	}
	if _, err := translate.Parse(command); err != nil {
		return fmt.Errorf("template %q: %w", name, err)
	}
	return nil
}

// Save creates the template or replaces its command and description.
func (s *Store) Save(ctx context.Context, name, command, description string) error {
	if err := Validate(name, command); err != nil {
		return err
	}
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO templates (name, command, description, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	command = excluded.command,
	description = excluded.description,
	updated_at = excluded.updated_at`,
		name, command, description, now, now)
	if err != nil {
		return fmt.Errorf("save template %q: %w", name, err)
	}
	return nil
}

// Load returns the template called name.
func (s *Store) Load(ctx context.Context, name string) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, command, description, created_at, updated_at FROM templates WHERE name = ?`, name)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("load template %q: %w", name, err)
	}
	return e, nil
}

// Delete removes the template called name.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete template %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}

// List returns every template ordered by name.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, command, description, created_at, updated_at FROM templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list templates: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(r scanner) (Entry, error) {
	var (
		e                Entry
		created, updated int64
	)
	if err := r.Scan(&e.Name, &e.Command, &e.Description, &created, &updated); err != nil {
		return Entry{}, err
	}
	e.CreatedAt = time.Unix(created, 0)
	e.UpdatedAt = time.Unix(updated, 0)
	return e, nil
}
