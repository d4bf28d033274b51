package index

import (
	"context"

	"github.com/starford/syncembed/internal/models"
	"github.com/starford/syncembed/internal/section"
)

// NoteIndex defines the interface for note indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type NoteIndex interface {
	UpsertNote(ctx context.Context, n NoteRow, headings []section.Heading) error
	DeleteNote(ctx context.Context, path string) error
	GetChecksum(ctx context.Context, path string) (string, error)
	GetNote(ctx context.Context, path string) (*models.Note, error)
	ListNotes(ctx context.Context) ([]NoteRow, error)
	AllChecksums(ctx context.Context) (map[string]string, error)
	ResolveLink(ctx context.Context, link, source string) (string, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
