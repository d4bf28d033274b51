// Package embed implements live, editable windows onto sections of vault
// notes: loading a section into a surface, writing edits back into the
// owning note, and keeping the surface inside the section's boundaries.
package embed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/syncembed/internal/apperr"
	"github.com/starford/syncembed/internal/section"
	"github.com/starford/syncembed/internal/surface"
)

// Surface is the editable text surface a window drives.
type Surface interface {
	surface.Editor
	surface.Restrictor
}

// Store is the host document store.
type Store interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, content []byte) error
	// Subscribe calls fn after path changes until cancel is called.
	Subscribe(path string, fn func()) (cancel func())
}

// Event types published by windows.
const (
	EventLoaded   = "window.loaded"
	EventSynced   = "window.synced"
	EventError    = "window.error"
	EventClosed   = "window.closed"
	EventAdvisory = "advisory"
)

// Event is a window notification for the host.
type Event struct {
	Type    string `json:"type"`
	Window  string `json:"window"`
	Path    string `json:"path,omitempty"`
	Section string `json:"section,omitempty"`
	Message string `json:"message,omitempty"`
}

// Settings tune window behavior.
type Settings struct {
	Debounce            time.Duration
	AdvisoryInterval    time.Duration
	ShowHeaderHints     bool
	CommandInterception bool
	EmbedHeight         string
	MaxEmbedHeight      string
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		Debounce:            600 * time.Millisecond,
		AdvisoryInterval:    5 * time.Second,
		ShowHeaderHints:     true,
		CommandInterception: true,
		EmbedHeight:         "auto",
		MaxEmbedHeight:      "none",
	}
}

type windowDeps struct {
	store    Store
	settings Settings
	logger   *slog.Logger
	notify   func(Event)
	clock    func() time.Time
	onClose  func(*Window)
}

// Window is one embedded view bound to a whole note or to one of its
// sections.
type Window struct {
	id   string
	node string // element path in the host tree
	decl Declaration
	path string
	surf Surface
	windowDeps

	// programmatic is set while the window itself rewrites the surface, so
	// the change observer does not mistake it for a user edit.
	programmatic atomic.Bool

	mu           sync.Mutex
	state        State
	rng          section.Range // document coordinates
	level        int
	heading      string
	end          int // exclusive end of the section inside the surface
	snapshot     string
	placeholder  string
	lastWritten  []byte
	lastAdvisory time.Time
	timer        *time.Timer
	gen          int
	pending      bool
	unsubStore   func()
	unsubSurface func()
}

func newWindow(id string, decl Declaration, path string, surf Surface, deps windowDeps) *Window {
	if deps.clock == nil {
		deps.clock = time.Now
	}
	if deps.notify == nil {
		deps.notify = func(Event) {}
	}
	return &Window{id: id, decl: decl, path: path, surf: surf, windowDeps: deps}
}

// ID returns the window id.
func (w *Window) ID() string { return w.id }

// Path returns the vault path of the owning note.
func (w *Window) Path() string { return w.path }

// Declaration returns the parsed embed line.
func (w *Window) Declaration() Declaration { return w.decl }

// Section returns the section title, or "" for a whole-note window.
func (w *Window) Section() string { return w.decl.Section }

// State returns the lifecycle state.
func (w *Window) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Placeholder returns the inline message shown while the window is inert.
func (w *Window) Placeholder() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.placeholder
}

// Range returns the section range in the owning note as of the last load or
// write.
func (w *Window) Range() section.Range {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rng
}

// Text returns the window text.
func (w *Window) Text() string {
	return w.surf.Value()
}

// View is a point-in-time description of a window.
type View struct {
	ID          string            `json:"id"`
	Node        string            `json:"node"`
	Path        string            `json:"path"`
	Section     string            `json:"section,omitempty"`
	Label       string            `json:"label"`
	State       State             `json:"state"`
	Text        string            `json:"text"`
	Placeholder string            `json:"placeholder,omitempty"`
	Selection   surface.Selection `json:"selection"`
	ScrollTop   int               `json:"scroll_top"`
	HeaderLevel int               `json:"header_level"`
	Range       section.Range     `json:"range"`
	Height      string            `json:"height"`
	MaxHeight   string            `json:"max_height"`
	Options     Options           `json:"options"`
}

// View snapshots the window.
func (w *Window) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := View{
		ID:          w.id,
		Node:        w.node,
		Path:        w.path,
		Section:     w.decl.Section,
		Label:       w.decl.Label(),
		State:       w.state,
		Text:        w.surf.Value(),
		Placeholder: w.placeholder,
		Selection:   w.surf.Selection(),
		ScrollTop:   w.surf.ScrollTop(),
		HeaderLevel: w.level,
		Range:       w.rng,
		Height:      w.settings.EmbedHeight,
		MaxHeight:   w.settings.MaxEmbedHeight,
		Options:     w.decl.Options,
	}
	if h := w.decl.Options.Height; h != "" {
		v.Height = h
	}
	if h := w.decl.Options.MaxHeight; h != "" {
		v.MaxHeight = h
	}
	return v
}

func (w *Window) event(typ, msg string) Event {
	return Event{Type: typ, Window: w.id, Path: w.path, Section: w.decl.Section, Message: msg}
}

// Load reads the owning note and shows the section in the surface. The first
// call also subscribes to note and surface changes.
func (w *Window) Load(ctx context.Context) error {
	w.mu.Lock()
	switch w.state {
	case StateDetached:
		w.mu.Unlock()
		return ErrDetached
	case StateWriting:
		w.mu.Unlock()
		return nil
	}
	w.state = StateLoading
	if w.unsubStore == nil {
		w.unsubStore = w.store.Subscribe(w.path, w.onStoreChange)
		w.unsubSurface = w.surf.OnChange(w.onSurfaceChange)
	}
	w.mu.Unlock()

	data, err := w.store.Read(ctx, w.path)
	return w.apply(data, err)
}

// onStoreChange reloads after the owning note changed, unless the change is
// this window's own write.
func (w *Window) onStoreChange() {
	w.mu.Lock()
	st := w.state
	w.mu.Unlock()
	switch st {
	case StateWriting, StateDetached, StateUninitialized:
		return
	}

	data, err := w.store.Read(context.Background(), w.path)
	// lastWritten answers one notification at most. Any later change,
	// including a revert to the same bytes, reloads.
	w.mu.Lock()
	self := err == nil && w.lastWritten != nil && bytes.Equal(data, w.lastWritten)
	w.lastWritten = nil
	w.mu.Unlock()
	if self {
		return
	}
	if err := w.apply(data, err); err != nil && !errors.Is(err, ErrDetached) {
		w.logger.Warn("embed: reload failed",
			slog.String("window", w.id),
			slog.String("path", w.path),
			slog.String("error", err.Error()))
	}
}

// apply shows a freshly read note in the surface.
func (w *Window) apply(data []byte, readErr error) error {
	w.mu.Lock()
	switch w.state {
	case StateDetached:
		w.mu.Unlock()
		return ErrDetached
	case StateWriting:
		// A write started since the read; its own notification follows.
		w.mu.Unlock()
		return nil
	}

	if readErr != nil {
		err := readErr
		if errors.Is(readErr, apperr.ErrNotFound) {
			err = fmt.Errorf("%w: %w", ErrTargetNotFound, readErr)
		}
		ev := w.goInertLocked(Message(err, w.path))
		w.mu.Unlock()
		w.notify(ev)
		return fmt.Errorf("embed: load %s: %w", w.path, err)
	}

	text := string(data)
	rng := section.Range{End: len(section.Lines(text))}
	content := text
	if w.decl.Section != "" {
		r, err := section.Locate(text, w.decl.Section)
		if err != nil {
			ev := w.goInertLocked(Message(ErrSectionNotFound, w.decl.Section))
			w.mu.Unlock()
			w.notify(ev)
			return fmt.Errorf("embed: load %s: %w: %s", w.path, ErrSectionNotFound, w.decl.Section)
		}
		rng = r
		content = section.Extract(text, r)
	}

	lines := section.Lines(content)
	w.rng = rng
	w.level = rng.Level
	w.heading = ""
	if w.decl.Section != "" {
		w.heading = lines[0]
	}
	w.end = len(lines)

	if w.surf.Value() != content {
		prev := w.surf.Cursor()
		w.programmatic.Store(true)
		w.surf.SetValue(content)
		w.surf.SetCursor(w.homeCursor(prev, lines))
		w.programmatic.Store(false)
	}
	w.surf.SetViewport(surface.Viewport{Active: w.decl.Section != "", End: w.end})
	w.snapshot = content
	w.placeholder = ""
	w.state = StateSynced
	ev := w.event(EventLoaded, "")
	w.mu.Unlock()

	w.notify(ev)
	return nil
}

// homeCursor keeps prev when it still addresses an editable position and
// otherwise returns the first editable position.
func (w *Window) homeCursor(prev surface.Position, lines []string) surface.Position {
	first := 0
	if w.decl.Section != "" {
		first = 1
	}
	if prev.Line >= first && prev.Line < len(lines) && prev.Ch <= len(lines[prev.Line]) {
		return prev
	}
	if first >= len(lines) {
		return surface.Position{Line: 0, Ch: len(lines[0])}
	}
	return surface.Position{Line: first}
}

// goInertLocked replaces the window body with msg.
func (w *Window) goInertLocked(msg string) Event {
	w.stopTimerLocked()
	w.state = StateInert
	w.placeholder = msg
	w.programmatic.Store(true)
	w.surf.SetValue("")
	w.surf.SetViewport(surface.Viewport{})
	w.programmatic.Store(false)
	w.snapshot = ""
	return w.event(EventError, msg)
}

func (w *Window) scheduleLocked() {
	w.stopTimerLocked()
	g := w.gen
	w.timer = time.AfterFunc(w.settings.Debounce, func() { w.fire(g) })
}

func (w *Window) stopTimerLocked() {
	w.gen++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// fire is the trailing edge of the debounce.
func (w *Window) fire(gen int) {
	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	w.mu.Unlock()

	if err := w.sync(context.Background()); err != nil {
		w.logger.Error("embed: write-back failed",
			slog.String("window", w.id),
			slog.String("path", w.path),
			slog.String("error", err.Error()))
	}
}

// Flush cancels the debounce and writes the window back now.
func (w *Window) Flush(ctx context.Context) error {
	w.mu.Lock()
	if w.state == StateDetached {
		w.mu.Unlock()
		return ErrDetached
	}
	w.stopTimerLocked()
	w.mu.Unlock()
	return w.sync(ctx)
}

// sync runs one write-back. Write-backs never overlap: a call made while one
// is in flight marks it pending and the running one repeats when done.
func (w *Window) sync(ctx context.Context) error {
	w.mu.Lock()
	switch w.state {
	case StateWriting:
		w.pending = true
		w.mu.Unlock()
		return nil
	case StateLoading:
		w.scheduleLocked()
		w.mu.Unlock()
		return nil
	case StateSynced:
	default:
		w.mu.Unlock()
		return nil
	}
	w.state = StateWriting
	text := w.surf.Value()
	w.mu.Unlock()

	wrote, conflict, err := w.writeBack(ctx, text)

	w.mu.Lock()
	if w.state == StateDetached {
		w.mu.Unlock()
		return nil
	}
	w.state = StateSynced
	rerun := w.pending
	w.pending = false
	w.mu.Unlock()

	switch {
	case err != nil:
		w.notify(w.event(EventError, Message(err, w.path)))
	case conflict:
		w.notify(w.event(EventSynced, "Section heading was missing; content appended to the end of the note"))
	case wrote:
		w.notify(w.event(EventSynced, ""))
	}
	if rerun {
		if rerr := w.sync(ctx); rerr != nil && err == nil {
			err = rerr
		}
	}
	return err
}

// writeBack splices text into a fresh read of the owning note. It writes only
// when the result differs from what was read. When the section heading is
// gone, text is appended as a new block instead of being dropped.
func (w *Window) writeBack(ctx context.Context, text string) (wrote, conflict bool, err error) {
	data, err := w.store.Read(ctx, w.path)
	if err != nil {
		return false, false, fmt.Errorf("embed: write-back read %s: %w", w.path, err)
	}
	doc := string(data)

	next := text
	if w.decl.Section != "" {
		rng, lerr := section.Locate(doc, w.decl.Section)
		if lerr != nil {
			conflict = true
			w.logger.Warn("embed: section missing at write time, appending",
				slog.String("window", w.id),
				slog.String("path", w.path),
				slog.String("section", w.decl.Section),
				slog.String("error", fmt.Errorf("%w: %w", ErrWriteConflict, lerr).Error()))
			next = section.AppendBlock(doc, text)
		} else {
			next = section.Splice(doc, rng, text)
		}
	}
	if next == doc {
		return false, conflict, nil
	}

	out := []byte(next)
	w.mu.Lock()
	w.lastWritten = out
	w.mu.Unlock()

	if err := w.store.Write(ctx, w.path, out); err != nil {
		return false, conflict, fmt.Errorf("embed: write-back %s: %w", w.path, err)
	}

	w.mu.Lock()
	if w.decl.Section != "" {
		if rng, lerr := section.Locate(next, w.decl.Section); lerr == nil {
			w.rng = rng
		}
	} else {
		w.rng = section.Range{End: len(section.Lines(next))}
	}
	w.mu.Unlock()

	w.logger.Debug("embed: written back", slog.String("window", w.id), slog.String("path", w.path))
	return true, conflict, nil
}

// Close tears the window down. A write already in flight completes, but
// nothing touches the surface afterwards.
func (w *Window) Close() {
	w.mu.Lock()
	if w.state == StateDetached {
		w.mu.Unlock()
		return
	}
	w.state = StateDetached
	w.stopTimerLocked()
	unsubStore, unsubSurface := w.unsubStore, w.unsubSurface
	w.unsubStore, w.unsubSurface = nil, nil
	w.mu.Unlock()

	if unsubStore != nil {
		unsubStore()
	}
	if unsubSurface != nil {
		unsubSurface()
	}
	if w.onClose != nil {
		w.onClose(w)
	}
	w.notify(w.event(EventClosed, ""))
}
