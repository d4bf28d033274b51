package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/starford/syncembed/internal/apperr"
	"github.com/starford/syncembed/internal/command"
	"github.com/starford/syncembed/internal/surface"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func at(line, ch int) surface.Position {
	return surface.Position{Line: line, Ch: ch}
}

// memStore is an in-memory Store that notifies subscribers synchronously.
type memStore struct {
	mu      sync.Mutex
	docs    map[string]string
	subs    map[string]map[int]func()
	nextID  int
	writes  int
	onWrite func(path string)
}

func newMemStore(docs map[string]string) *memStore {
	m := &memStore{docs: make(map[string]string), subs: make(map[string]map[int]func())}
	for k, v := range docs {
		m.docs[k] = v
	}
	return m
}

func (m *memStore) Read(ctx context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[path]
	if !ok {
		return nil, fmt.Errorf("mem: read %s: %w", path, apperr.ErrNotFound)
	}
	return []byte(doc), nil
}

func (m *memStore) Write(ctx context.Context, path string, content []byte) error {
	m.mu.Lock()
	hook := m.onWrite
	m.mu.Unlock()
	if hook != nil {
		hook(path)
	}
	m.mu.Lock()
	m.docs[path] = string(content)
	m.writes++
	m.mu.Unlock()
	m.notify(path)
	return nil
}

func (m *memStore) Exists(ctx context.Context, path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[path]
	return ok
}

func (m *memStore) Subscribe(path string, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	if m.subs[path] == nil {
		m.subs[path] = make(map[int]func())
	}
	m.subs[path][id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs[path], id)
	}
}

// set changes a document the way another program would.
func (m *memStore) set(path, text string) {
	m.setQuiet(path, text)
	m.notify(path)
}

// setQuiet changes a document without notifying, as if the notification
// were still in flight.
func (m *memStore) setQuiet(path, text string) {
	m.mu.Lock()
	m.docs[path] = text
	m.mu.Unlock()
}

func (m *memStore) notify(path string) {
	m.mu.Lock()
	fns := make([]func(), 0, len(m.subs[path]))
	for _, fn := range m.subs[path] {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (m *memStore) get(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[path]
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(typ string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// testSettings disables the debounce so tests drive write-back with Flush.
func testSettings() Settings {
	s := DefaultSettings()
	s.Debounce = time.Hour
	return s
}

func newTestSession(t *testing.T, store *memStore, opts ...Option) (*Session, *recorder) {
	t.Helper()
	rec := &recorder{}
	base := []Option{WithLogger(quietLogger()), WithSettings(testSettings()), WithNotify(rec.add)}
	s := NewSession(store, command.NewPipeline(), append(base, opts...)...)
	t.Cleanup(s.Close)
	return s, rec
}

func renderOne(t *testing.T, s *Session, source, body string) *Window {
	t.Helper()
	b, err := s.Render(context.Background(), source, body)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Items) != 1 || b.Items[0].Window() == nil {
		t.Fatalf("items = %+v", b.Items)
	}
	return b.Items[0].Window()
}

const twoSections = "# A\nfoo\n# B\nbar\n"

func TestWindow_BasicSync(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": twoSections})
	s, _ := newTestSession(t, store)
	w := renderOne(t, s, "host.md", "![[a#A]]")

	if w.Text() != "# A\nfoo" {
		t.Fatalf("window text = %q", w.Text())
	}
	if w.State() != StateSynced {
		t.Fatalf("state = %s", w.State())
	}

	if err := w.Edit(surface.Change{From: at(1, 3), To: at(1, 3), Text: "2"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := store.get("a.md"); got != "# A\nfoo2\n# B\nbar\n" {
		t.Errorf("document = %q", got)
	}
}

func TestWindow_SectionNotFound(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": twoSections})
	s, rec := newTestSession(t, store)
	w := renderOne(t, s, "host.md", "![[a#Missing]]")

	if w.State() != StateInert {
		t.Fatalf("state = %s", w.State())
	}
	if !strings.Contains(w.Placeholder(), "Section not found") {
		t.Errorf("placeholder = %q", w.Placeholder())
	}
	if err := w.Type("x"); !errors.Is(err, ErrNotReady) {
		t.Errorf("Type err = %v", err)
	}
	if err := w.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if store.writeCount() != 0 {
		t.Errorf("writes = %d, want none", store.writeCount())
	}
	if len(rec.ofType(EventError)) != 1 {
		t.Errorf("error events = %v", rec.ofType(EventError))
	}
}

func TestWindow_InertRecoversOnReload(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": twoSections})
	s, _ := newTestSession(t, store)
	w := renderOne(t, s, "host.md", "![[a#Missing]]")

	store.set("a.md", twoSections+"# Missing\nback\n")
	if w.State() != StateSynced || w.Text() != "# Missing\nback\n" {
		t.Errorf("state = %s text = %q", w.State(), w.Text())
	}
}

func TestWindow_RoundTripWritesNothing(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		link string
	}{
		{"first of two", twoSections, "a#A"},
		{"last with trailing newline", twoSections, "a#B"},
		{"nested", "intro\n## Sub\n### Deep\nx\n## Next\n", "a#Sub"},
		{"heading only", "# Only heading", "a#Only heading"},
		{"whole note", twoSections, "a"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore(map[string]string{"a.md": tc.doc})
			s, _ := newTestSession(t, store)
			w := renderOne(t, s, "host.md", "![["+tc.link+"]]")
			if err := w.Flush(context.Background()); err != nil {
				t.Fatal(err)
			}
			if store.writeCount() != 0 || store.get("a.md") != tc.doc {
				t.Errorf("writes = %d, doc = %q", store.writeCount(), store.get("a.md"))
			}
		})
	}
}

func TestWindow_LoadIsIdempotent(t *testing.T) {
	store := newMemStore(map[string]string{"b.md": "## Sub\n### Deep\nx\n## Next\n"})
	s, _ := newTestSession(t, store)
	w := renderOne(t, s, "host.md", "![[b#Sub]]")

	first := w.Text()
	if err := w.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if w.Text() != first || first != "## Sub\n### Deep\nx" {
		t.Errorf("first = %q second = %q", first, w.Text())
	}
}

func TestWindow_ExternalChangeReloads(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": twoSections})
	s, rec := newTestSession(t, store)
	w := renderOne(t, s, "host.md", "![[a#A]]")

	store.set("a.md", "# A\nchanged\n# B\nbar\n")
	if w.Text() != "# A\nchanged" {
		t.Errorf("text = %q", w.Text())
	}
	if n := len(rec.ofType(EventLoaded)); n != 2 {
		t.Errorf("loaded events = %d, want 2", n)
	}
}

func TestWindow_OwnWriteDoesNotReload(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": twoSections})
	s, rec := newTestSession(t, store)
	w := renderOne(t, s, "host.md", "![[a#A]]")

	_ = w.Type("!")
	if err := w.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	// A late duplicate notification for the same bytes.
	store.notify("a.md")

	if n := len(rec.ofType(EventLoaded)); n != 1 {
		t.Errorf("loaded events = %d, want 1", n)
	}
	if n := len(rec.ofType(EventSynced)); n != 1 {
		t.Errorf("synced events = %d, want 1", n)
	}
}

func TestWindow_ExternalRevertToOwnWriteReloads(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": twoSections})
	s, _ := newTestSession(t, store)
	w := renderOne(t, s, "host.md", "![[a#A]]")

	_ = w.Edit(surface.Change{From: at(1, 3), To: at(1, 3), Text: "2"})
	if err := w.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	written := store.get("a.md")

	store.set("a.md", "# A\nexternal\n# B\nbar\n")
	if w.Text() != "# A\nexternal" {
		t.Fatalf("text after external edit = %q", w.Text())
	}
	store.set("a.md", written)
	if w.Text() != "# A\nfoo2" {
		t.Fatalf("text after revert = %q", w.Text())
	}

	_ = w.Edit(surface.Change{From: at(1, 0), To: at(1, 0), Text: "!"})
	if err := w.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := store.get("a.md"); got != "# A\n!foo2\n# B\nbar\n" {
		t.Errorf("document = %q", got)
	}
}

func TestWindow_WriteBacksAreSerialized(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": twoSections})
	s, rec := newTestSession(t, store)
	w := renderOne(t, s, "host.md", "![[a#A]]")

	_ = w.Edit(surface.Change{From: at(1, 3), To: at(1, 3), Text: "2"})
	nested := false
	store.onWrite = func(string) {
		if nested {
			return
		}
		nested = true
		// Another write-back while the first is in flight.
		_ = w.Edit(surface.Change{From: at(1, 4), To: at(1, 4), Text: "3"})
		if err := w.Flush(context.Background()); err != nil {
			t.Errorf("nested flush: %v", err)
		}
		if got := store.get("a.md"); got != twoSections {
			t.Errorf("nested flush wrote during the first write: %q", got)
		}
	}

	if err := w.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := store.get("a.md"); got != "# A\nfoo23\n# B\nbar\n" {
		t.Errorf("document = %q", got)
	}
	if n := store.writeCount(); n != 2 {
		t.Errorf("writes = %d, want 2", n)
	}
	if n := len(rec.ofType(EventSynced)); n != 2 {
		t.Errorf("synced events = %d, want 2", n)
	}
	if w.State() != StateSynced {
		t.Errorf("state = %s", w.State())
	}
}

func TestWindow_BackspaceRemovesWholeRune(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": "# A\ncafé\n# B\n"})
	s, _ := newTestSession(t, store)
	w := renderOne(t, s, "host.md", "![[a#A]]")

	if err := w.Click(at(1, len("café"))); err != nil {
		t.Fatal(err)
	}
	if ok, err := w.Key(surface.KeyBackspace); err != nil || !ok {
		t.Fatalf("Backspace = %v, %v", ok, err)
	}
	if err := w.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := store.get("a.md"); got != "# A\ncaf\n# B\n" || !utf8.ValidString(got) {
		t.Errorf("document = %q", got)
	}
}

func TestWindow_WholeNote(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": twoSections})
	s, _ := newTestSession(t, store)
	w := renderOne(t, s, "host.md", "![[a]]")

	if w.Text() != twoSections {
		t.Fatalf("text = %q", w.Text())
	}
	if ok, err := w.Key(surface.KeyDelete); err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	if err := w.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := store.get("a.md"); got != " A\nfoo\n# B\nbar\n" {
		t.Errorf("document = %q", got)
	}
	if first, last := w.EditableLines(); first != 0 || last != 4 {
		t.Errorf("editable = %d..%d", first, last)
	}
}

func TestWindow_DebounceCoalesces(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": twoSections})
	settings := DefaultSettings()
	settings.Debounce = 50 * time.Millisecond
	s, _ := newTestSession(t, store, WithSettings(settings))
	w := renderOne(t, s, "host.md", "![[a#A]]")

	if err := w.Click(at(1, 3)); err != nil {
		t.Fatal(err)
	}
	for _, ch := range []string{"a", "b", "c"} {
		if err := w.Type(ch); err != nil {
			t.Fatal(err)
		}
	}
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return store.get("a.md") == "# A\nfooabc\n# B\nbar\n"
	}, "write-back never happened")
	if n := store.writeCount(); n != 1 {
		t.Errorf("writes = %d, want 1", n)
	}
}

func TestWindow_WriteConflictAppends(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": twoSections})
	s, rec := newTestSession(t, store)
	w := renderOne(t, s, "host.md", "![[a#A]]")

	_ = w.Edit(surface.Change{From: at(1, 3), To: at(1, 3), Text: "2"})
	store.setQuiet("a.md", "# Other\nzzz\n")
	if err := w.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := store.get("a.md"); got != "# Other\nzzz\n\n# A\nfoo2\n" {
		t.Errorf("document = %q", got)
	}
	synced := rec.ofType(EventSynced)
	if len(synced) != 1 || synced[0].Message == "" {
		t.Errorf("synced events = %+v", synced)
	}
}

func TestWindow_CloseDuringWrite(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": twoSections})
	s, rec := newTestSession(t, store)
	w := renderOne(t, s, "host.md", "![[a#A]]")

	_ = w.Edit(surface.Change{From: at(1, 3), To: at(1, 3), Text: "2"})
	store.onWrite = func(string) { w.Close() }

	if err := w.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if w.State() != StateDetached {
		t.Errorf("state = %s", w.State())
	}
	if got := store.get("a.md"); got != "# A\nfoo2\n# B\nbar\n" {
		t.Errorf("in-flight write lost: %q", got)
	}
	if len(rec.ofType(EventSynced)) != 0 || len(rec.ofType(EventClosed)) != 1 {
		t.Errorf("events = %+v", rec.events)
	}
	if _, err := s.Window(w.ID()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("closed window still registered: %v", err)
	}

	// Later edits to the document no longer reach the surface.
	store.onWrite = nil
	store.set("a.md", "# A\nnew\n")
	if w.Text() != "# A\nfoo2" {
		t.Errorf("detached surface changed: %q", w.Text())
	}
	if err := w.Load(context.Background()); !errors.Is(err, ErrDetached) {
		t.Errorf("Load after close = %v", err)
	}
}

func TestWindow_LazyReveal(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": twoSections})
	s, _ := newTestSession(t, store, WithLazyLoad(true))
	w := renderOne(t, s, "host.md", "![[a#B]]")

	if w.State() != StateUninitialized || w.Text() != "" {
		t.Fatalf("state = %s text = %q", w.State(), w.Text())
	}
	if err := s.Reveal(context.Background(), w.ID()); err != nil {
		t.Fatal(err)
	}
	if w.State() != StateSynced || w.Text() != "# B\nbar\n" {
		t.Errorf("state = %s text = %q", w.State(), w.Text())
	}
}
