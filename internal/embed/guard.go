package embed

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/starford/syncembed/internal/apperr"
	"github.com/starford/syncembed/internal/command"
	"github.com/starford/syncembed/internal/section"
	"github.com/starford/syncembed/internal/surface"
)

var (
	pastedHeadingRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	hashPrefixRe    = regexp.MustCompile(`^\s*#*$`)
)

// guarded reports whether the boundary guard applies. Whole-note windows
// have nothing to protect.
func (w *Window) guarded() bool {
	return w.decl.Section != ""
}

func (w *Window) readyLocked() error {
	switch w.state {
	case StateSynced, StateWriting:
		return nil
	case StateDetached:
		return ErrDetached
	}
	return fmt.Errorf("%w: %s", ErrNotReady, w.state)
}

// lastLocked is the last line of the section inside the surface.
func (w *Window) lastLocked() int {
	return max(w.end-1, 0)
}

// firstEditableLocked is the cursor home: the start of the first body line, or
// the end of the heading when the section has no body.
func (w *Window) firstEditableLocked() surface.Position {
	if !w.guarded() {
		return surface.Position{}
	}
	if w.end <= 1 {
		return surface.Position{Line: 0, Ch: len(w.surf.Line(0))}
	}
	return surface.Position{Line: 1}
}

// onSurfaceChange runs after every surface mutation. User edits that damage
// the heading line are reverted; others refresh the boundary and schedule a
// write-back.
func (w *Window) onSurfaceChange() {
	if w.programmatic.Load() {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateSynced && w.state != StateWriting {
		return
	}

	if w.guarded() {
		if w.surf.LineCount() == 0 || w.surf.Line(0) != w.heading {
			w.revertLocked()
			return
		}
		w.end = section.EndOf(section.Lines(w.surf.Value()), 0, w.level)
		w.surf.SetViewport(surface.Viewport{Active: true, End: w.end})
		w.clampLocked()
	}
	w.snapshot = w.surf.Value()
	w.scheduleLocked()
}

// revertLocked restores the last accepted text.
func (w *Window) revertLocked() {
	w.logger.Debug("embed: reverted edit to section heading", slog.String("window", w.id))
	w.programmatic.Store(true)
	w.surf.SetValue(w.snapshot)
	w.end = section.EndOf(section.Lines(w.snapshot), 0, w.level)
	w.surf.SetViewport(surface.Viewport{Active: true, End: w.end})
	w.surf.SetCursor(w.firstEditableLocked())
	w.programmatic.Store(false)
}

// clampLocked pulls the selection back inside the editable lines.
func (w *Window) clampLocked() {
	if !w.guarded() {
		return
	}
	sel := w.surf.Selection()
	anchor, head := w.clampPos(sel.Anchor), w.clampPos(sel.Head)
	if anchor == sel.Anchor && head == sel.Head {
		return
	}
	w.programmatic.Store(true)
	w.surf.SetSelection(anchor, head)
	w.programmatic.Store(false)
}

func (w *Window) clampPos(p surface.Position) surface.Position {
	last := w.lastLocked()
	switch {
	case p.Line < 1 && w.end > 1:
		return surface.Position{Line: 1}
	case p.Line < 1:
		// Heading-only section: the end of the heading is the only place to
		// start typing a body.
		return surface.Position{Line: 0, Ch: len(w.surf.Line(0))}
	case p.Line > last:
		return surface.Position{Line: last, Ch: len(w.surf.Line(last))}
	}
	return p
}

// blocksKeyLocked reports whether key would cross the section boundary.
func (w *Window) blocksKeyLocked(key string) bool {
	sel := w.surf.Selection()
	from, to := sel.Ordered()
	last := w.lastLocked()
	switch key {
	case surface.KeyBackspace:
		if !sel.Empty() {
			return from.Line < 1
		}
		return from.Line < 1 || (from.Line == 1 && from.Ch == 0)
	case surface.KeyDelete:
		if !sel.Empty() {
			return from.Line < 1 || to.Line > last
		}
		return from.Line < 1 || (from.Line == last && from.Ch >= len(w.surf.Line(last)))
	case surface.KeyEnter:
		// Splitting the heading line would rename the section.
		return from.Line < 1 && (to.Line > 0 || from.Ch < len(w.surf.Line(0)))
	}
	return false
}

// blocksHashLocked reports whether typing '#' at the selection would leave an
// interior line starting with a heading marker at or above the section level.
func (w *Window) blocksHashLocked() bool {
	from, to := w.surf.Selection().Ordered()
	if from.Line < 1 {
		return false
	}
	line := w.surf.Line(from.Line)
	before := line[:min(from.Ch, len(line))]
	if !hashPrefixRe.MatchString(before) {
		return false
	}
	after := ""
	if to.Line == from.Line {
		after = line[min(to.Ch, len(line)):]
	}
	result := strings.TrimLeft(before+"#"+after, " \t")
	n := len(result) - len(strings.TrimLeft(result, "#"))
	return n >= 1 && n <= w.level
}

// Key applies a key press. It reports false when the guard suppressed it.
func (w *Window) Key(key string) (bool, error) {
	w.mu.Lock()
	if err := w.readyLocked(); err != nil {
		w.mu.Unlock()
		return false, err
	}
	if w.guarded() && w.blocksKeyLocked(key) {
		w.mu.Unlock()
		return false, nil
	}
	w.mu.Unlock()

	if !surface.ApplyKey(w.surf, key) {
		return false, fmt.Errorf("embed: key %q: %w", key, apperr.ErrInvalid)
	}
	if surface.IsNavigation(key) {
		w.mu.Lock()
		w.clampLocked()
		w.mu.Unlock()
	}
	return true, nil
}

// Type inserts text rune by rune as if typed. Runes the guard refuses are
// dropped; a refused '#' raises a heading advisory.
func (w *Window) Type(text string) error {
	for _, r := range text {
		w.mu.Lock()
		if err := w.readyLocked(); err != nil {
			w.mu.Unlock()
			return err
		}
		var blocked, hash bool
		if w.guarded() {
			switch r {
			case '#':
				blocked, hash = w.blocksHashLocked(), true
			case '\n':
				blocked = w.blocksKeyLocked(surface.KeyEnter)
			}
		}
		level := w.level
		w.mu.Unlock()

		if blocked {
			if hash {
				w.Advise(command.HeadingAdvice(level, 0))
			}
			continue
		}
		surface.InsertText(w.surf, string(r))
	}
	return nil
}

// adjustHeadings pushes pasted headings at or above level one below it.
// Lines before index from are left alone.
func adjustHeadings(text string, level, from int) (string, bool) {
	lines := strings.Split(text, "\n")
	changed := false
	for i, line := range lines {
		if i < from {
			continue
		}
		m := pastedHeadingRe.FindStringSubmatch(line)
		if m == nil || len(m[1]) > level {
			continue
		}
		lines[i] = strings.Repeat("#", min(level+1, 6)) + " " + m[2]
		changed = true
	}
	return strings.Join(lines, "\n"), changed
}

// Paste replaces the selection with text. Headings that would land on a
// body line and escape the section are demoted first. A first pasted line
// that continues the heading line is left as typed.
func (w *Window) Paste(text string) error {
	w.mu.Lock()
	if err := w.readyLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	level := w.level
	from, _ := w.surf.Selection().Ordered()
	guarded := w.guarded()
	w.mu.Unlock()

	if guarded {
		first := 0
		if from.Line == 0 {
			first = 1
		}
		if fixed, changed := adjustHeadings(text, level, first); changed {
			text = fixed
			w.notify(w.event(EventAdvisory, msgPasteFixed))
		}
	}
	w.surf.ReplaceSelection(text)
	return nil
}

// Edit applies a raw change to the surface.
func (w *Window) Edit(ch surface.Change) error {
	w.mu.Lock()
	err := w.readyLocked()
	w.mu.Unlock()
	if err != nil {
		return err
	}
	w.surf.ReplaceRange(ch.Text, ch.From, ch.To)
	return nil
}

// Select moves the selection, keeping it inside the section.
func (w *Window) Select(anchor, head surface.Position) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.readyLocked(); err != nil {
		return err
	}
	w.programmatic.Store(true)
	w.surf.SetSelection(anchor, head)
	w.programmatic.Store(false)
	w.clampLocked()
	return nil
}

// Click places the cursor as a mouse click would.
func (w *Window) Click(p surface.Position) error {
	return w.Select(p, p)
}

// Focus runs the checks done when the window gains focus.
func (w *Window) Focus() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.readyLocked() == nil {
		w.clampLocked()
	}
}

// Scroll sets the first visible line, kept within the section.
func (w *Window) Scroll(line int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.readyLocked(); err != nil {
		return err
	}
	if w.guarded() {
		line = min(max(line, 0), w.lastLocked())
	}
	w.surf.SetScrollTop(line)
	return nil
}

// Reveal loads a window whose content was deferred until it became visible.
// Windows already loaded are left alone.
func (w *Window) Reveal(ctx context.Context) error {
	if w.State() != StateUninitialized {
		return nil
	}
	return w.Load(ctx)
}

// Editor implements command.Target.
func (w *Window) Editor() surface.Editor { return w.surf }

// HeaderLevel implements command.Target.
func (w *Window) HeaderLevel() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.level
}

// EditableLines implements command.Target.
func (w *Window) EditableLines() (first, last int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.guarded() {
		return 0, w.surf.LastLine()
	}
	return 1, w.end - 1
}

// Advise publishes msg, at most once per advisory interval.
func (w *Window) Advise(msg string) {
	if !w.settings.ShowHeaderHints {
		return
	}
	w.mu.Lock()
	now := w.clock()
	if !w.lastAdvisory.IsZero() && now.Sub(w.lastAdvisory) < w.settings.AdvisoryInterval {
		w.mu.Unlock()
		return
	}
	w.lastAdvisory = now
	w.mu.Unlock()
	w.notify(w.event(EventAdvisory, msg))
}
