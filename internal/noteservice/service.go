// Package noteservice implements one-shot section reads and writes against
// the vault, shared by the HTTP API and the MCP tools.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/syncembed/internal/apperr"
	"github.com/starford/syncembed/internal/checksum"
	"github.com/starford/syncembed/internal/index"
	"github.com/starford/syncembed/internal/models"
	"github.com/starford/syncembed/internal/parser"
	"github.com/starford/syncembed/internal/section"
	"github.com/starford/syncembed/internal/storage"
)

// Section is a subsection read from a note. An empty Title means the whole
// note.
type Section struct {
	Path     string        `json:"path"`
	Title    string        `json:"title,omitempty"`
	Range    section.Range `json:"range"`
	Content  string        `json:"content"`
	Checksum string        `json:"checksum"`
}

// Service coordinates storage and index operations.
type Service struct {
	store storage.Provider
	db    index.NoteIndex
}

// NewService creates a new note service.
func NewService(store storage.Provider, db index.NoteIndex) *Service {
	return &Service{store: store, db: db}
}

// ListNotes returns every indexed note.
func (s *Service) ListNotes(ctx context.Context) ([]index.NoteRow, error) {
	rows, err := s.db.ListNotes(ctx)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []index.NoteRow{}
	}
	return rows, nil
}

// Outline returns a note with its headings. Notes not indexed yet are parsed
// from disk.
func (s *Service) Outline(ctx context.Context, path string) (*models.Note, error) {
	n, err := s.db.GetNote(ctx, path)
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	data, err := s.store.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	res, err := parser.Parse(path, data)
	if err != nil {
		return nil, err
	}
	return &models.Note{
		Path:     path,
		Title:    res.Title,
		Checksum: checksum.Sum(data),
		Headings: res.Headings,
	}, nil
}

// ReadSection returns the section named title, or the whole note when title
// is empty.
func (s *Service) ReadSection(ctx context.Context, path, title string) (*Section, error) {
	data, err := s.store.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	return locate(path, title, data)
}

// WriteSection replaces the body of the section named title, keeping its
// heading line. An empty title replaces the whole note. When ifMatch is set
// it must match the checksum of the note as it is on disk.
func (s *Service) WriteSection(ctx context.Context, path, title, body, ifMatch string) (*Section, error) {
	data, err := s.store.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && !checksum.Match(data, ifMatch) {
		return nil, fmt.Errorf("noteservice: write %s: %w", path, apperr.ErrConflict)
	}

	doc := string(data)
	next := body
	if title != "" {
		cur, err := locate(path, title, data)
		if err != nil {
			return nil, err
		}
		if err := checkBody(body, cur.Range.Level); err != nil {
			return nil, fmt.Errorf("noteservice: write %s#%s: %w", path, title, err)
		}
		heading := section.Lines(cur.Content)[0]
		replacement := heading
		if body != "" {
			replacement += "\n" + body
		}
		// Keep the final newline when the section runs to the end of the note.
		if cur.Range.End == len(section.Lines(doc)) && strings.HasSuffix(doc, "\n") && !strings.HasSuffix(replacement, "\n") {
			replacement += "\n"
		}
		next = section.Splice(doc, cur.Range, replacement)
	}

	out := []byte(next)
	if next != doc {
		if err := s.store.Write(ctx, path, out); err != nil {
			return nil, err
		}
		if err := index.IndexFile(ctx, s.db, path, out); err != nil {
			return nil, err
		}
	}
	return locate(path, title, out)
}

// checkBody rejects bodies that would end the section early.
func checkBody(body string, level int) error {
	for _, line := range strings.Split(body, "\n") {
		if l := section.HeadingLevel(line); l > 0 && l <= level {
			return fmt.Errorf("heading %q is at or above the section level H%d: %w", line, level, apperr.ErrInvalid)
		}
	}
	return nil
}

func locate(path, title string, data []byte) (*Section, error) {
	doc := string(data)
	sec := &Section{Path: path, Title: title, Checksum: checksum.Sum(data)}
	if title == "" {
		sec.Range = section.Range{End: len(section.Lines(doc))}
		sec.Content = doc
		return sec, nil
	}
	r, err := section.Locate(doc, title)
	if err != nil {
		return nil, fmt.Errorf("noteservice: %s: %w: %w", path, apperr.ErrNotFound, err)
	}
	sec.Range = r
	sec.Content = section.Extract(doc, r)
	return sec, nil
}
