package index

import (
	"context"
	"errors"
	"log/slog"

	"github.com/starford/syncembed/internal/apperr"
	"github.com/starford/syncembed/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
type EventCallback func(ev storage.Event)

// Updater keeps the index current from vault change events.
type Updater struct {
	db     NoteIndex
	store  storage.Provider
	logger *slog.Logger
	cb     EventCallback
}

// NewUpdater creates an updater. cb may be nil.
func NewUpdater(db NoteIndex, store storage.Provider, logger *slog.Logger, cb EventCallback) *Updater {
	return &Updater{db: db, store: store, logger: logger, cb: cb}
}

// Handle applies one vault event to the index. It is meant to be registered
// with storage.Watcher.OnEvent.
func (u *Updater) Handle(ev storage.Event) {
	ctx := context.Background()
	switch ev.Kind {
	case storage.EventCreated, storage.EventUpdated:
		data, err := u.store.Read(ctx, ev.Path)
		if errors.Is(err, apperr.ErrNotFound) {
			// Gone again before we got to it.
			u.remove(ctx, ev.Path)
			return
		}
		if err != nil {
			u.logger.Warn("watcher: read failed", slog.String("path", ev.Path), slog.String("error", err.Error()))
			return
		}
		if err := IndexFile(ctx, u.db, ev.Path, data); err != nil {
			u.logger.Warn("watcher: index failed", slog.String("path", ev.Path), slog.String("error", err.Error()))
			return
		}
		u.logger.Debug("watcher: indexed", slog.String("path", ev.Path), slog.String("op", ev.Kind))
		u.notify(ev)

	case storage.EventDeleted:
		u.remove(ctx, ev.Path)
	}
}

func (u *Updater) remove(ctx context.Context, path string) {
	if err := u.db.DeleteNote(ctx, path); err != nil {
		u.logger.Warn("watcher: delete failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	u.logger.Debug("watcher: deleted", slog.String("path", path))
	u.notify(storage.Event{Kind: storage.EventDeleted, Path: path})
}

func (u *Updater) notify(ev storage.Event) {
	if u.cb != nil {
		u.cb(ev)
	}
}
