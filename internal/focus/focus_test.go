package focus

import (
	"log/slog"
	"os"
	"testing"

	"github.com/starford/syncembed/internal/command"
	"github.com/starford/syncembed/internal/surface"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPathParent(t *testing.T) {
	var n Node = Path("a/b/c")
	var got []string
	for ; n != nil; n = n.Parent() {
		got = append(got, string(n.(Path)))
	}
	if len(got) != 3 || got[1] != "a/b" || got[2] != "a" {
		t.Errorf("ancestors = %v", got)
	}
}

func TestRegistry_FocusInWalksAncestors(t *testing.T) {
	r := NewRegistry()
	w := command.Plain(surface.NewBuffer(""))
	r.Bind(Path("note/embed-1"), w)

	r.FocusIn(Path("note/embed-1/editor/line-3"))
	got, ok := r.Focused()
	if !ok || got != w {
		t.Fatalf("Focused = %v, %v", got, ok)
	}

	// Focus entering a non-window element leaves the slot alone.
	r.FocusIn(Path("note/sidebar"))
	if _, ok := r.Focused(); !ok {
		t.Error("focus-in outside a window cleared focus")
	}
}

func TestRegistry_FocusOut(t *testing.T) {
	r := NewRegistry()
	w1 := command.Plain(surface.NewBuffer("1"))
	w2 := command.Plain(surface.NewBuffer("2"))
	r.Bind(Path("n/e1"), w1)
	r.Bind(Path("n/e2"), w2)

	r.FocusIn(Path("n/e1/editor"))
	r.FocusOut(Path("n/e1/editor"), Path("n/e1/toolbar"))
	if got, _ := r.Focused(); got != w1 {
		t.Error("focus moving inside a window must not clear it")
	}

	r.FocusOut(Path("n/e1/editor"), Path("n/e2/editor"))
	if _, ok := r.Focused(); !ok {
		t.Error("focus moving to another window must not clear it")
	}

	r.FocusOut(Path("n/e1/editor"), Path("n/title"))
	if _, ok := r.Focused(); ok {
		t.Error("focus leaving to a non-window should clear")
	}

	r.FocusIn(Path("n/e2"))
	r.FocusOut(Path("n/e2"), nil)
	if _, ok := r.Focused(); ok {
		t.Error("focus leaving to nothing should clear")
	}
}

func TestRegistry_UnbindClearsFocus(t *testing.T) {
	r := NewRegistry()
	r.Bind(Path("n/e1"), command.Plain(surface.NewBuffer("")))
	r.Bind(Path("n/e2"), command.Plain(surface.NewBuffer("")))
	r.FocusIn(Path("n/e1"))

	r.Unbind(Path("n/e2"))
	if _, ok := r.Focused(); !ok {
		t.Error("unbinding another window cleared focus")
	}
	r.Unbind(Path("n/e1"))
	if _, ok := r.Focused(); ok {
		t.Error("torn down window still focused")
	}

	r.Bind(Path("n/e3"), command.Plain(surface.NewBuffer("")))
	r.FocusIn(Path("n/e3"))
	r.Clear()
	if _, _, ok := r.Resolve(Path("n/e3")); ok {
		t.Error("Clear kept bindings")
	}
}

// routed sets up a pipeline with a host editor and a focused window.
func routed(t *testing.T) (*command.Pipeline, *Router, *surface.Buffer, *surface.Buffer, *Registry) {
	t.Helper()
	p := command.NewPipeline()
	host := surface.NewBuffer("host text")
	host.SetSelection(surface.Position{Ch: 0}, surface.Position{Ch: 4})
	p.SetActiveEditor(host)

	win := surface.NewBuffer("window text")
	win.SetSelection(surface.Position{Ch: 7}, surface.Position{Ch: 11})

	reg := NewRegistry()
	reg.Bind(Path("note/embed-0"), command.Plain(win))
	r := NewRouter(reg, command.NewTable(), quietLogger())
	r.Install(p)
	t.Cleanup(r.Uninstall)
	return p, r, host, win, reg
}

func TestRouter_TableCommandGoesToFocusedWindow(t *testing.T) {
	p, _, host, win, reg := routed(t)
	hostRan := false
	_ = p.Register(command.Command{ID: command.ToggleBold, EditorCallback: func(surface.Editor) bool {
		hostRan = true
		return true
	}})
	reg.FocusIn(Path("note/embed-0/editor"))

	ok, err := p.Execute(command.ToggleBold)
	if err != nil || !ok {
		t.Fatalf("Execute = %v, %v", ok, err)
	}
	if win.Value() != "window **text**" {
		t.Errorf("window = %q", win.Value())
	}
	if host.Value() != "host text" || hostRan {
		t.Errorf("host touched: %q ran=%v", host.Value(), hostRan)
	}
}

func TestRouter_NoFocusRunsHostDefault(t *testing.T) {
	p, _, host, win, _ := routed(t)
	_ = p.Register(command.Command{ID: command.ToggleBold, EditorCallback: func(ed surface.Editor) bool {
		ed.ReplaceSelection("HOST")
		return true
	}})

	if _, err := p.Execute(command.ToggleBold); err != nil {
		t.Fatal(err)
	}
	if host.Value() != "HOST text" {
		t.Errorf("host = %q", host.Value())
	}
	if win.Value() != "window text" {
		t.Errorf("window touched: %q", win.Value())
	}
}

func TestRouter_EditorCallbackRunsOnWindow(t *testing.T) {
	p, _, host, win, reg := routed(t)
	_ = p.Register(command.Command{ID: "user:shout", EditorCallback: func(ed surface.Editor) bool {
		ed.ReplaceSelection("TEXT")
		return true
	}})
	reg.FocusIn(Path("note/embed-0"))

	if _, err := p.Execute("user:shout"); err != nil {
		t.Fatal(err)
	}
	if win.Value() != "window TEXT" || host.Value() != "host text" {
		t.Errorf("window = %q host = %q", win.Value(), host.Value())
	}
}

func TestRouter_PlainCallbackFallsThrough(t *testing.T) {
	p, _, _, _, reg := routed(t)
	ran := false
	_ = p.Register(command.Command{ID: "app:open-settings", Callback: func() bool {
		ran = true
		return true
	}})
	reg.FocusIn(Path("note/embed-0"))

	if ok, _ := p.Execute("app:open-settings"); !ok || !ran {
		t.Errorf("host default not run: ok=%v ran=%v", ok, ran)
	}
}

func TestRouter_PanicFallsBackToHost(t *testing.T) {
	p := command.NewPipeline()
	reg := NewRegistry()
	reg.Bind(Path("e"), command.Plain(surface.NewBuffer("")))
	reg.FocusIn(Path("e"))

	boom := func(*command.Command, command.Target) (bool, bool) { panic("boom") }
	r := NewRouter(reg, nil, quietLogger(), boom)
	r.Install(p)
	defer r.Uninstall()

	hostRan := false
	_ = p.Register(command.Command{ID: "x", Callback: func() bool { hostRan = true; return true }})
	ok, err := p.Execute("x")
	if err != nil || !ok || !hostRan {
		t.Errorf("ok=%v err=%v hostRan=%v, want host default to run", ok, err, hostRan)
	}
}

func TestRouter_Uninstall(t *testing.T) {
	p, r, host, win, reg := routed(t)
	_ = p.Register(command.Command{ID: command.ToggleBold, EditorCallback: func(ed surface.Editor) bool {
		ed.ReplaceSelection("HOST")
		return true
	}})
	reg.FocusIn(Path("note/embed-0"))

	r.Uninstall()
	if _, err := p.Execute(command.ToggleBold); err != nil {
		t.Fatal(err)
	}
	if host.Value() != "HOST text" || win.Value() != "window text" {
		t.Errorf("host = %q window = %q", host.Value(), win.Value())
	}
}
