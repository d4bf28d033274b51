// Package storage implements the vault document store: whole-file reads and
// atomic writes under a root directory, plus change notifications.
package storage

import (
	"context"
	"log/slog"

	"github.com/starford/syncembed/internal/models"
)

// Provider is the document store contract the sync engine depends on.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to vault root).
	List(ctx context.Context, dir string) ([]models.NoteMetadata, error)
	// Read returns the full text of the file at path. A missing file yields
	// an error wrapping apperr.ErrNotFound.
	Read(ctx context.Context, path string) ([]byte, error)
	// Write atomically replaces the content of path.
	Write(ctx context.Context, path string, content []byte) error
	// Exists reports whether path names a regular file.
	Exists(ctx context.Context, path string) bool
}

// Notifier delivers change notifications for single documents.
type Notifier interface {
	// Subscribe calls fn after path changes on disk until cancel is called.
	Subscribe(path string, fn func()) (cancel func())
}

// Vault joins file access and change notifications for one vault root.
type Vault struct {
	*FS
	*Watcher
}

var (
	_ Provider = (*Vault)(nil)
	_ Notifier = (*Vault)(nil)
)

// OpenVault opens the vault at root. The returned watcher is idle until its
// Run method is started.
func OpenVault(root string, logger *slog.Logger) (*Vault, error) {
	fs, err := NewFS(root)
	if err != nil {
		return nil, err
	}
	return &Vault{FS: fs, Watcher: NewWatcher(fs.Root(), logger)}, nil
}
