package storage

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event kinds.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// DefaultCoalesce is how long the watcher waits for a burst of file system
// events on one path to settle before notifying.
const DefaultCoalesce = 100 * time.Millisecond

// Event describes a change to one vault document.
type Event struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

type pendingEvent struct {
	kind  string
	timer *time.Timer
}

// Watcher turns fsnotify events under the vault root into per-document
// notifications. Bursts on the same path are coalesced into one.
type Watcher struct {
	root   string
	logger *slog.Logger
	delay  time.Duration

	mu      sync.Mutex
	nextID  int
	subs    map[string]map[int]func()
	hooks   map[int]func(Event)
	pending map[string]*pendingEvent
	closed  bool
}

// NewWatcher creates a watcher for root. Call Run to start delivering events.
func NewWatcher(root string, logger *slog.Logger) *Watcher {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return &Watcher{
		root:    abs,
		logger:  logger,
		delay:   DefaultCoalesce,
		subs:    make(map[string]map[int]func()),
		hooks:   make(map[int]func(Event)),
		pending: make(map[string]*pendingEvent),
	}
}

// Subscribe calls fn after the document at path changes.
func (w *Watcher) Subscribe(path string, fn func()) (cancel func()) {
	key := normalize(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	if w.subs[key] == nil {
		w.subs[key] = make(map[int]func())
	}
	w.subs[key][id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.subs[key], id)
		if len(w.subs[key]) == 0 {
			delete(w.subs, key)
		}
	}
}

// OnEvent calls fn for every coalesced vault event.
func (w *Watcher) OnEvent(fn func(Event)) (cancel func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.hooks[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.hooks, id)
	}
}

// Run watches the vault until ctx is cancelled. New directories created at
// runtime are added to the watch list.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, w.root); err != nil {
		return err
	}
	w.logger.Info("watcher: started", slog.String("root", w.root))

	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(fw, ev)

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (w *Watcher) handle(fw *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := addDirsRecursive(fw, ev.Name); err != nil {
				w.logger.Warn("watcher: add new dir failed",
					slog.String("path", ev.Name),
					slog.String("error", err.Error()))
				return
			}
			w.logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
			w.emitDir(ev.Name)
			return
		}
	}

	if !strings.HasSuffix(ev.Name, ".md") {
		return
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}

	switch {
	case ev.Op&fsnotify.Create != 0:
		w.emit(EventCreated, rel)
	case ev.Op&fsnotify.Write != 0:
		w.emit(EventUpdated, rel)
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// fsnotify reports renames on the old path; the new path arrives as
		// a separate Create.
		w.emit(EventDeleted, rel)
	}
}

// emitDir reports the .md files already present in a new directory.
func (w *Watcher) emitDir(dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".md") {
			return nil
		}
		if rel, relErr := filepath.Rel(w.root, p); relErr == nil {
			w.emit(EventCreated, rel)
		}
		return nil
	})
}

// emit schedules delivery of an event for rel, merging it with any event
// already waiting for the same path.
func (w *Watcher) emit(kind, rel string) {
	key := normalize(rel)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if p, ok := w.pending[key]; ok {
		p.kind = mergeKind(p.kind, kind)
		p.timer.Reset(w.delay)
		return
	}
	p := &pendingEvent{kind: kind}
	p.timer = time.AfterFunc(w.delay, func() { w.dispatch(key) })
	w.pending[key] = p
}

func mergeKind(prev, next string) string {
	switch {
	case next == EventDeleted:
		return EventDeleted
	case prev == EventCreated:
		return EventCreated
	case prev == EventDeleted:
		return EventUpdated
	default:
		return next
	}
}

func (w *Watcher) dispatch(key string) {
	w.mu.Lock()
	p, ok := w.pending[key]
	if !ok {
		w.mu.Unlock()
		return
	}
	delete(w.pending, key)
	ev := Event{Kind: p.kind, Path: key}
	hooks := make([]func(Event), 0, len(w.hooks))
	for _, fn := range w.hooks {
		hooks = append(hooks, fn)
	}
	subs := make([]func(), 0, len(w.subs[key]))
	for _, fn := range w.subs[key] {
		subs = append(subs, fn)
	}
	w.mu.Unlock()

	w.logger.Debug("watcher: event", slog.String("path", ev.Path), slog.String("op", ev.Kind))
	for _, fn := range hooks {
		fn(ev)
	}
	for _, fn := range subs {
		fn()
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	for key, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, key)
	}
}

func normalize(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
