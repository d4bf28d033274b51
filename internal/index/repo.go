package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/syncembed/internal/apperr"
	"github.com/starford/syncembed/internal/models"
	"github.com/starford/syncembed/internal/section"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// basename is the lowercase link key of a vault path: "a/B.md" → "b".
func basename(p string) string {
	return strings.ToLower(strings.TrimSuffix(path.Base(p), ".md"))
}

// UpsertNote inserts or replaces a note and its headings within a transaction.
func (db *DB) UpsertNote(ctx context.Context, n NoteRow, headings []section.Heading) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = time.Now()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO notes (path, basename, title, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			basename   = excluded.basename,
			title      = excluded.title,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, n.Path, basename(n.Path), n.Title, n.Checksum, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM headings WHERE path = ?`, n.Path); err != nil {
		return fmt.Errorf("index: clear headings: %w", err)
	}
	if len(headings) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO headings (path, line, level, title) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare heading insert: %w", err)
		}
		defer stmt.Close()
		for _, h := range headings {
			if _, err := stmt.ExecContext(ctx, n.Path, h.Line, h.Level, h.Title); err != nil {
				return fmt.Errorf("index: insert heading: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note and its headings.
func (db *DB) DeleteNote(ctx context.Context, path string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.ExecContext(ctx, `DELETE FROM headings WHERE path = ?`, path)
	_, _ = tx.ExecContext(ctx, `DELETE FROM notes WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(ctx context.Context, path string) (string, error) {
	var cs string
	err := db.conn.QueryRowContext(ctx, `SELECT checksum FROM notes WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetNote returns a note with its heading outline.
func (db *DB) GetNote(ctx context.Context, path string) (*models.Note, error) {
	n := &models.Note{Path: path}
	err := db.conn.QueryRowContext(ctx,
		`SELECT title, checksum, updated_at FROM notes WHERE path = ?`, path,
	).Scan(&n.Title, &n.Checksum, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: get note %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT line, level, title FROM headings WHERE path = ? ORDER BY line`, path)
	if err != nil {
		return nil, fmt.Errorf("index: headings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var h section.Heading
		if err := rows.Scan(&h.Line, &h.Level, &h.Title); err != nil {
			return nil, err
		}
		n.Headings = append(n.Headings, h)
	}
	return n, rows.Err()
}

// ListNotes returns every indexed note ordered by path.
func (db *DB) ListNotes(ctx context.Context) ([]NoteRow, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT path, title, checksum, updated_at FROM notes ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()
	var out []NoteRow
	for rows.Next() {
		var r NoteRow
		if err := rows.Scan(&r.Path, &r.Title, &r.Checksum, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AllChecksums returns path → checksum for every indexed note.
func (db *DB) AllChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
