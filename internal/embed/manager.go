package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/syncembed/internal/apperr"
	"github.com/starford/syncembed/internal/command"
	"github.com/starford/syncembed/internal/focus"
	"github.com/starford/syncembed/internal/surface"
)

// Host command ids registered by a session.
const (
	CmdInsertEmbed      = "syncembed:insert-synced-embed"
	CmdInsertMultiEmbed = "syncembed:insert-multi-synced-embed"
)

// SurfaceFactory creates the surface a new window is bound to.
type SurfaceFactory func(d Declaration) (Surface, error)

// Item is one rendered line of a sync block: a live window or an inline
// error message.
type Item struct {
	Declaration Declaration `json:"declaration"`
	WindowID    string      `json:"window_id,omitempty"`
	Error       string      `json:"error,omitempty"`

	window *Window
}

// Window returns the live window, or nil for an error item.
func (it Item) Window() *Window { return it.window }

// Block is a rendered sync block.
type Block struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Items   []Item `json:"items"`
	Message string `json:"message,omitempty"`
}

// Option configures a Session.
type Option func(*Session)

// WithSettings overrides DefaultSettings.
func WithSettings(s Settings) Option {
	return func(ss *Session) { ss.settings = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithNotify sets the sink for window events.
func WithNotify(fn func(Event)) Option {
	return func(s *Session) { s.notify = fn }
}

// WithResolver sets the link resolver.
func WithResolver(r Resolver) Option {
	return func(s *Session) { s.resolver = r }
}

// WithSurfaceFactory sets how window surfaces are created.
func WithSurfaceFactory(f SurfaceFactory) Option {
	return func(s *Session) { s.newSurface = f }
}

// WithClock replaces time.Now for advisory rate limiting.
func WithClock(fn func() time.Time) Option {
	return func(s *Session) { s.clock = fn }
}

// WithLazyLoad defers loading each window until Reveal.
func WithLazyLoad(lazy bool) Option {
	return func(s *Session) { s.lazy = lazy }
}

// Session is one activation of the engine: it owns the focus registry, the
// command router and every window it rendered. Close deactivates it.
type Session struct {
	store      Store
	pipeline   *command.Pipeline
	table      *command.Table
	registry   *focus.Registry
	router     *focus.Router
	resolver   Resolver
	newSurface SurfaceFactory
	settings   Settings
	logger     *slog.Logger
	notify     func(Event)
	clock      func() time.Time
	lazy       bool

	mu       sync.Mutex
	windows  map[string]*Window
	blocks   map[string]*Block
	commands []string
	closed   bool
}

// NewSession activates the engine on store and the host pipeline.
func NewSession(store Store, pipeline *command.Pipeline, opts ...Option) *Session {
	s := &Session{
		store:    store,
		pipeline: pipeline,
		table:    command.NewTable(),
		registry: focus.NewRegistry(),
		settings: DefaultSettings(),
		logger:   slog.Default(),
		notify:   func(Event) {},
		clock:    time.Now,
		windows:  make(map[string]*Window),
		blocks:   make(map[string]*Block),
	}
	for _, o := range opts {
		o(s)
	}
	if s.pipeline == nil {
		s.pipeline = command.NewPipeline()
	}
	if s.newSurface == nil {
		s.newSurface = func(Declaration) (Surface, error) { return surface.NewBuffer(""), nil }
	}
	if s.resolver == nil {
		r := LinkResolver{}
		if ex, ok := store.(Exister); ok {
			r.Store = ex
		}
		s.resolver = r
	}

	s.router = focus.NewRouter(s.registry, s.table, s.logger)
	if s.settings.CommandInterception {
		s.router.Install(s.pipeline)
	}
	s.registerCommands()
	return s
}

// registerCommands adds the host commands this engine contributes. Editing
// commands the host already defines are left alone.
func (s *Session) registerCommands() {
	add := func(c command.Command) {
		err := s.pipeline.Register(c)
		switch {
		case err == nil:
			s.commands = append(s.commands, c.ID)
		case errors.Is(err, apperr.ErrAlreadyExists):
		default:
			s.logger.Warn("embed: register command", slog.String("command", c.ID), slog.String("error", err.Error()))
		}
	}

	add(command.Command{ID: CmdInsertEmbed, Name: "Insert synced embed", EditorCallback: func(ed surface.Editor) bool {
		name := ed.SelectedText()
		if name == "" {
			name = "Note Name"
		}
		ed.ReplaceSelection("```sync\n![[" + name + "]]\n```")
		return true
	}})
	add(command.Command{ID: CmdInsertMultiEmbed, Name: "Insert sync block with multiple embeds", EditorCallback: func(ed surface.Editor) bool {
		ed.ReplaceSelection("```sync\n![[Note 1]]\n![[Note 2]]\n```")
		return true
	}})
	for level := 2; level <= 6; level++ {
		lvl := level
		add(command.Command{
			ID:     command.HeadingID(lvl),
			Name:   fmt.Sprintf("Toggle Heading %d", lvl),
			Hotkey: fmt.Sprintf("Alt+%d", lvl),
			EditorCallback: func(ed surface.Editor) bool {
				command.ToggleHeading(ed, ed.Cursor().Line, lvl)
				return true
			},
		})
	}
	for _, id := range s.table.IDs() {
		if strings.HasPrefix(id, command.HeadingPrefix) {
			continue
		}
		h, _ := s.table.Lookup(id)
		add(command.Command{ID: id, Name: id, EditorCallback: func(ed surface.Editor) bool {
			return h(command.Plain(ed))
		}})
	}
}

// Pipeline returns the host pipeline the session is installed on.
func (s *Session) Pipeline() *command.Pipeline { return s.pipeline }

// Registry returns the focus registry.
func (s *Session) Registry() *focus.Registry { return s.registry }

// Render processes the body of a sync block found in the note at source.
// Per-embed failures never fail the block; they become error items.
func (s *Session) Render(ctx context.Context, source, body string) (*Block, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrDetached
	}

	b := &Block{ID: uuid.NewString(), Source: source}
	decls := ParseBlock(body)
	if len(decls) == 0 {
		b.Message = msgEmptyBlock
	}
	for _, d := range decls {
		b.Items = append(b.Items, s.renderItem(ctx, b, d))
	}

	s.mu.Lock()
	s.blocks[b.ID] = b
	s.mu.Unlock()

	s.logger.Debug("embed: block rendered",
		slog.String("block", b.ID),
		slog.String("source", source),
		slog.Int("items", len(b.Items)))
	return b, nil
}

func (s *Session) renderItem(ctx context.Context, b *Block, d Declaration) (item Item) {
	item.Declaration = d
	var w *Window
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("embed: render panicked",
				slog.String("embed", d.Raw),
				slog.String("error", fmt.Sprint(p)))
			if w != nil {
				w.Close()
			}
			item = Item{Declaration: d, Error: fmt.Sprintf("Error loading: %v", p)}
		}
	}()

	target, err := s.resolver.Resolve(ctx, d.Path, b.Source)
	if err != nil {
		item.Error = Message(err, d.Path)
		return item
	}
	if target == b.Source {
		item.Error = Message(ErrRecursiveEmbed, d.Path)
		return item
	}

	surf, err := s.newSurface(d)
	if err != nil {
		s.logger.Error("embed: surface init", slog.String("embed", d.Raw), slog.String("error", err.Error()))
		item.Error = Message(fmt.Errorf("%w: %w", ErrSurfaceInit, err), d.Path)
		return item
	}

	w = newWindow(uuid.NewString(), d, target, surf, windowDeps{
		store:    s.store,
		settings: s.settings,
		logger:   s.logger,
		notify:   s.notify,
		clock:    s.clock,
		onClose:  s.forget,
	})
	w.node = b.ID + "/" + w.id

	s.mu.Lock()
	s.windows[w.id] = w
	s.mu.Unlock()
	s.registry.Bind(focus.Path(w.node), w)

	item.WindowID = w.id
	item.window = w
	if !s.lazy {
		if err := w.Load(ctx); err != nil {
			s.logger.Debug("embed: window shows placeholder",
				slog.String("window", w.id),
				slog.String("error", err.Error()))
		}
	}
	return item
}

// forget drops a closed window from the session.
func (s *Session) forget(w *Window) {
	s.registry.Unbind(focus.Path(w.node))
	s.mu.Lock()
	delete(s.windows, w.id)
	s.mu.Unlock()
}

// Window returns the live window with id.
func (s *Session) Window(id string) (*Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[id]
	if !ok {
		return nil, fmt.Errorf("embed: window %s: %w", id, apperr.ErrNotFound)
	}
	return w, nil
}

// Windows lists live windows ordered by owning note path, then id.
func (s *Session) Windows() []*Window {
	s.mu.Lock()
	out := make([]*Window, 0, len(s.windows))
	for _, w := range s.windows {
		out = append(out, w)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].path != out[j].path {
			return out[i].path < out[j].path
		}
		return out[i].id < out[j].id
	})
	return out
}

// Block returns a rendered block.
func (s *Session) Block(id string) (*Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[id]
	if !ok {
		return nil, fmt.Errorf("embed: block %s: %w", id, apperr.ErrNotFound)
	}
	return b, nil
}

// Reveal loads a lazily created window.
func (s *Session) Reveal(ctx context.Context, id string) error {
	w, err := s.Window(id)
	if err != nil {
		return err
	}
	return w.Reveal(ctx)
}

// CloseWindow tears down one window.
func (s *Session) CloseWindow(id string) error {
	w, err := s.Window(id)
	if err != nil {
		return err
	}
	w.Close()
	return nil
}

// CloseBlock tears down every window of a block, as when the block leaves
// the host view.
func (s *Session) CloseBlock(id string) error {
	s.mu.Lock()
	b, ok := s.blocks[id]
	delete(s.blocks, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("embed: block %s: %w", id, apperr.ErrNotFound)
	}
	for _, it := range b.Items {
		if it.window != nil {
			it.window.Close()
		}
	}
	return nil
}

// FocusIn reports that the host element at node gained focus.
func (s *Session) FocusIn(node string) {
	s.registry.FocusIn(focus.Path(node))
	if t, ok := s.registry.Focused(); ok {
		if w, ok := t.(*Window); ok {
			w.Focus()
		}
	}
}

// FocusOut reports that node lost focus to related, which may be "".
func (s *Session) FocusOut(node, related string) {
	var rel focus.Node
	if related != "" {
		rel = focus.Path(related)
	}
	s.registry.FocusOut(focus.Path(node), rel)
}

// Focused returns the id of the focused window, or "".
func (s *Session) Focused() string {
	t, ok := s.registry.Focused()
	if !ok {
		return ""
	}
	if w, ok := t.(*Window); ok {
		return w.id
	}
	return ""
}

// Execute runs a host command through the pipeline.
func (s *Session) Execute(id string) (bool, error) {
	return s.pipeline.Execute(id)
}

// Flush writes back every window with pending edits.
func (s *Session) Flush(ctx context.Context) error {
	var errs []error
	for _, w := range s.Windows() {
		if err := w.Flush(ctx); err != nil && !errors.Is(err, ErrDetached) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close deactivates the session: the router is removed, contributed
// commands are unregistered and every window is closed.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	commands := s.commands
	s.commands = nil
	s.blocks = make(map[string]*Block)
	s.mu.Unlock()

	s.router.Uninstall()
	for _, id := range commands {
		s.pipeline.Unregister(id)
	}
	for _, w := range s.Windows() {
		w.Close()
	}
	s.registry.Clear()
	s.logger.Info("embed: session closed")
}
