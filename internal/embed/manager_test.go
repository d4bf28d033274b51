package embed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/starford/syncembed/internal/apperr"
	"github.com/starford/syncembed/internal/command"
	"github.com/starford/syncembed/internal/surface"
)

func TestRender_InlineErrors(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": twoSections})
	s, _ := newTestSession(t, store)

	cases := []struct {
		name   string
		source string
		body   string
		want   string
	}{
		{"recursive", "a.md", "![[a]]", msgRecursive},
		{"recursive section", "a.md", "![[#B]]", msgRecursive},
		{"missing note", "host.md", "![[ghost]]", "Note not found: ghost"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := s.Render(context.Background(), tc.source, tc.body)
			if err != nil {
				t.Fatal(err)
			}
			if len(b.Items) != 1 {
				t.Fatalf("items = %+v", b.Items)
			}
			if it := b.Items[0]; it.Error != tc.want || it.Window() != nil {
				t.Errorf("item = %+v", it)
			}
		})
	}
}

func TestRender_EmptyBlock(t *testing.T) {
	s, _ := newTestSession(t, newMemStore(nil))
	b, err := s.Render(context.Background(), "host.md", "just prose\n[[not an embed]]")
	if err != nil {
		t.Fatal(err)
	}
	if b.Message != "No embeds found in sync block" || len(b.Items) != 0 {
		t.Errorf("block = %+v", b)
	}
}

func TestRender_PanicIsContainedToOneEmbed(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": twoSections, "boom.md": "x"})
	factory := func(d Declaration) (Surface, error) {
		if d.Path == "boom" {
			panic("surface exploded")
		}
		return surface.NewBuffer(""), nil
	}
	s, _ := newTestSession(t, store, WithSurfaceFactory(factory))

	b, err := s.Render(context.Background(), "host.md", "![[boom]]\n![[a#A]]")
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Items) != 2 {
		t.Fatalf("items = %+v", b.Items)
	}
	if !strings.HasPrefix(b.Items[0].Error, "Error loading: ") {
		t.Errorf("first item = %+v", b.Items[0])
	}
	if w := b.Items[1].Window(); w == nil || w.Text() != "# A\nfoo" {
		t.Errorf("second item = %+v", b.Items[1])
	}
}

func TestRender_SurfaceInitFailure(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": twoSections})
	factory := func(Declaration) (Surface, error) { return nil, errors.New("no view") }
	s, _ := newTestSession(t, store, WithSurfaceFactory(factory))

	b, _ := s.Render(context.Background(), "host.md", "![[a#A]]")
	if b.Items[0].Error != "Failed to load a markdown view." {
		t.Errorf("item = %+v", b.Items[0])
	}
	if len(s.Windows()) != 0 {
		t.Error("failed embed left a window behind")
	}
}

func TestRender_ViewCarriesOptions(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": twoSections})
	s, _ := newTestSession(t, store)
	w := renderOne(t, s, "host.md", "![[a#A|Alias{height:300px}]]")

	v := w.View()
	if v.Label != "Alias" || v.Height != "300px" || v.MaxHeight != "none" {
		t.Errorf("view = %+v", v)
	}
	if v.State != StateSynced || v.HeaderLevel != 1 {
		t.Errorf("view = %+v", v)
	}
}

func TestSession_CommandRouting(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": twoSections})
	pipeline := command.NewPipeline()
	host := surface.NewBuffer("host text")
	pipeline.SetActiveEditor(host)

	rec := &recorder{}
	s := NewSession(store, pipeline, WithLogger(quietLogger()), WithSettings(testSettings()), WithNotify(rec.add))
	t.Cleanup(s.Close)
	w := renderOne(t, s, "host.md", "![[a#A]]")

	s.FocusIn(w.View().Node + "/editor")
	if s.Focused() != w.ID() {
		t.Fatalf("focused = %q", s.Focused())
	}
	_ = w.Select(at(1, 0), at(1, 3))

	ok, err := s.Execute(command.ToggleBold)
	if err != nil || !ok {
		t.Fatalf("Execute = %v, %v", ok, err)
	}
	if w.Text() != "# A\n**foo**" {
		t.Errorf("window = %q", w.Text())
	}
	if host.Value() != "host text" {
		t.Errorf("host changed: %q", host.Value())
	}

	s.FocusOut(w.View().Node+"/editor", "")
	if _, err := s.Execute(command.ToggleBold); err != nil {
		t.Fatal(err)
	}
	if host.Value() != "****host text" {
		t.Errorf("host = %q", host.Value())
	}
}

func TestSession_HeadingCommandInSection(t *testing.T) {
	store := newMemStore(map[string]string{"n.md": nested})
	s, rec := newTestSession(t, store)
	w := renderOne(t, s, "host.md", "![[n#Sub]]")
	s.FocusIn(w.View().Node)

	ok, err := s.Execute(command.HeadingID(2))
	if err != nil {
		t.Fatal(err)
	}
	if ok || w.Editor().Line(1) != "body" {
		t.Errorf("H2 in an H2 section: ok=%v line=%q", ok, w.Editor().Line(1))
	}
	if len(rec.ofType(EventAdvisory)) != 1 {
		t.Errorf("advisories = %+v", rec.ofType(EventAdvisory))
	}

	if ok, _ := s.Execute(command.HeadingID(3)); !ok || w.Editor().Line(1) != "### body" {
		t.Errorf("H3: ok=%v line=%q", ok, w.Editor().Line(1))
	}
}

func TestSession_InsertEmbedCommand(t *testing.T) {
	pipeline := command.NewPipeline()
	host := surface.NewBuffer("Daily")
	host.SetSelection(at(0, 0), at(0, 5))
	pipeline.SetActiveEditor(host)
	s := NewSession(newMemStore(nil), pipeline, WithLogger(quietLogger()))
	t.Cleanup(s.Close)

	if ok, err := s.Execute(CmdInsertEmbed); err != nil || !ok {
		t.Fatalf("Execute = %v, %v", ok, err)
	}
	if host.Value() != "```sync\n![[Daily]]\n```" {
		t.Errorf("host = %q", host.Value())
	}
}

func TestSession_InterceptionDisabled(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": twoSections})
	pipeline := command.NewPipeline()
	host := surface.NewBuffer("")
	pipeline.SetActiveEditor(host)
	settings := testSettings()
	settings.CommandInterception = false
	s := NewSession(store, pipeline, WithLogger(quietLogger()), WithSettings(settings))
	t.Cleanup(s.Close)

	w := renderOne(t, s, "host.md", "![[a#A]]")
	s.FocusIn(w.View().Node)
	_, _ = s.Execute(command.ToggleCode)
	if w.Text() != "# A\nfoo" || host.Value() != "``" {
		t.Errorf("window = %q host = %q", w.Text(), host.Value())
	}
}

func TestSession_CloseBlock(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": twoSections})
	s, _ := newTestSession(t, store)
	b, err := s.Render(context.Background(), "host.md", "![[a#A]]\n![[a#B]]")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.CloseBlock(b.ID); err != nil {
		t.Fatal(err)
	}
	for _, it := range b.Items {
		if it.Window().State() != StateDetached {
			t.Errorf("window %s state = %s", it.WindowID, it.Window().State())
		}
	}
	if _, err := s.Block(b.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Block err = %v", err)
	}
}

func TestSession_Close(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": twoSections})
	pipeline := command.NewPipeline()
	s := NewSession(store, pipeline, WithLogger(quietLogger()), WithSettings(testSettings()))
	w := renderOne(t, s, "host.md", "![[a#A]]")
	s.FocusIn(w.View().Node)

	s.Close()
	s.Close()
	if w.State() != StateDetached {
		t.Errorf("state = %s", w.State())
	}
	if s.Focused() != "" {
		t.Error("focus survived Close")
	}
	if n := len(pipeline.Commands()); n != 0 {
		t.Errorf("%d commands left registered", n)
	}
	if _, err := s.Render(context.Background(), "host.md", "![[a]]"); !errors.Is(err, ErrDetached) {
		t.Errorf("Render after Close = %v", err)
	}
}
