package surface

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// Buffer is a goroutine-safe in-memory Editor.
type Buffer struct {
	mu        sync.Mutex
	lines     []string
	sel       Selection
	scrollTop int
	viewport  Viewport

	obsMu     sync.Mutex
	nextObs   int
	observers map[int]func()
}

var (
	_ Editor     = (*Buffer)(nil)
	_ Restrictor = (*Buffer)(nil)
)

// NewBuffer creates a buffer holding text with the cursor at the origin.
func NewBuffer(text string) *Buffer {
	return &Buffer{
		lines:     strings.Split(text, "\n"),
		observers: make(map[int]func()),
	}
}

// Value returns the full text.
func (b *Buffer) Value() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "\n")
}

// SetValue replaces the full text and clamps the selection into it.
func (b *Buffer) SetValue(text string) {
	b.mu.Lock()
	b.lines = strings.Split(text, "\n")
	b.sel = Selection{Anchor: b.clamp(b.sel.Anchor), Head: b.clamp(b.sel.Head)}
	b.mu.Unlock()
	b.notify()
}

// LineCount returns the number of lines (at least 1).
func (b *Buffer) LineCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

// LastLine returns the index of the last line.
func (b *Buffer) LastLine() int {
	return b.LineCount() - 1
}

// Line returns line n, or "" when n is out of range.
func (b *Buffer) Line(n int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 0 || n >= len(b.lines) {
		return ""
	}
	return b.lines[n]
}

// SetLine replaces the content of line n.
func (b *Buffer) SetLine(n int, text string) {
	b.mu.Lock()
	if n < 0 || n >= len(b.lines) {
		b.mu.Unlock()
		return
	}
	from := Position{Line: n}
	to := Position{Line: n, Ch: len(b.lines[n])}
	b.replace(from, to, text)
	b.mu.Unlock()
	b.notify()
}

// Cursor returns the selection head.
func (b *Buffer) Cursor() Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sel.Head
}

// SetCursor collapses the selection at p.
func (b *Buffer) SetCursor(p Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p = b.clamp(p)
	b.sel = Selection{Anchor: p, Head: p}
}

// Selection returns the current selection.
func (b *Buffer) Selection() Selection {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sel
}

// SetSelection sets anchor and head, clamped into the text.
func (b *Buffer) SetSelection(anchor, head Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sel = Selection{Anchor: b.clamp(anchor), Head: b.clamp(head)}
}

// SelectedText returns the selected text, or "".
func (b *Buffer) SelectedText() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	from, to := b.sel.Ordered()
	text := strings.Join(b.lines, "\n")
	return text[b.offset(from):b.offset(to)]
}

// ReplaceRange replaces [from, to) with text. Equal from and to inserts.
func (b *Buffer) ReplaceRange(text string, from, to Position) {
	b.mu.Lock()
	b.replace(b.clamp(from), b.clamp(to), text)
	b.mu.Unlock()
	b.notify()
}

// ReplaceSelection replaces the selection and leaves the cursor after text.
func (b *Buffer) ReplaceSelection(text string) {
	b.mu.Lock()
	from, to := b.sel.Ordered()
	end := b.replace(from, to, text)
	b.sel = Selection{Anchor: end, Head: end}
	b.mu.Unlock()
	b.notify()
}

// Transaction applies non-overlapping changes against the pre-change text.
func (b *Buffer) Transaction(changes []Change, sel *Selection) {
	if len(changes) == 0 && sel == nil {
		return
	}
	b.mu.Lock()
	type span struct {
		from, to int
		text     string
	}
	spans := make([]span, 0, len(changes))
	for _, c := range changes {
		from, to := b.offset(b.clamp(c.From)), b.offset(b.clamp(c.To))
		if to < from {
			from, to = to, from
		}
		spans = append(spans, span{from: from, to: to, text: c.Text})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].from > spans[j].from })

	text := strings.Join(b.lines, "\n")
	anchor, head := b.offset(b.sel.Anchor), b.offset(b.sel.Head)
	for _, s := range spans {
		text = text[:s.from] + s.text + text[s.to:]
		anchor = mapOffset(anchor, s.from, s.to, len(s.text))
		head = mapOffset(head, s.from, s.to, len(s.text))
	}
	b.lines = strings.Split(text, "\n")
	if sel != nil {
		b.sel = Selection{Anchor: b.clamp(sel.Anchor), Head: b.clamp(sel.Head)}
	} else {
		b.sel = Selection{Anchor: b.position(anchor), Head: b.position(head)}
	}
	b.mu.Unlock()
	if len(changes) > 0 {
		b.notify()
	}
}

// ScrollTop returns the first visible line.
func (b *Buffer) ScrollTop() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scrollTop
}

// SetScrollTop scrolls so that line is the first visible line.
func (b *Buffer) SetScrollTop(line int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if line < 0 {
		line = 0
	}
	if line >= len(b.lines) {
		line = len(b.lines) - 1
	}
	b.scrollTop = line
}

// SetViewport restricts the visible lines.
func (b *Buffer) SetViewport(v Viewport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.viewport = v
}

// Viewport returns the current visible line window.
func (b *Buffer) Viewport() Viewport {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewport
}

// VisibleText returns the lines a reader would see, heading line included.
func (b *Buffer) VisibleText() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.viewport.Active {
		return strings.Join(b.lines, "\n")
	}
	start := max(0, b.viewport.Start)
	end := min(len(b.lines), b.viewport.End)
	if start >= end {
		return ""
	}
	return strings.Join(b.lines[start:end], "\n")
}

// OnChange registers fn to be called after each mutation.
func (b *Buffer) OnChange(fn func()) (cancel func()) {
	b.obsMu.Lock()
	defer b.obsMu.Unlock()
	id := b.nextObs
	b.nextObs++
	b.observers[id] = fn
	return func() {
		b.obsMu.Lock()
		defer b.obsMu.Unlock()
		delete(b.observers, id)
	}
}

func (b *Buffer) notify() {
	b.obsMu.Lock()
	fns := make([]func(), 0, len(b.observers))
	for _, fn := range b.observers {
		fns = append(fns, fn)
	}
	b.obsMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// replace must be called with mu held. It returns the end of the inserted
// text and maps the selection through the edit.
func (b *Buffer) replace(from, to Position, text string) Position {
	if to.Before(from) {
		from, to = to, from
	}
	full := strings.Join(b.lines, "\n")
	start, end := b.offset(from), b.offset(to)
	anchor, head := b.offset(b.sel.Anchor), b.offset(b.sel.Head)

	full = full[:start] + text + full[end:]
	b.lines = strings.Split(full, "\n")

	anchor = mapOffset(anchor, start, end, len(text))
	head = mapOffset(head, start, end, len(text))
	b.sel = Selection{Anchor: b.position(anchor), Head: b.position(head)}
	return b.position(start + len(text))
}

// mapOffset moves off through a replacement of [from, to) by n bytes.
// Points inside the replaced span or at an insertion point land after the
// new text.
func mapOffset(off, from, to, n int) int {
	switch {
	case off < from:
		return off
	case off >= to && !(off == from && from == to):
		return off + n - (to - from)
	default:
		return from + n
	}
}

func (b *Buffer) clamp(p Position) Position {
	if p.Line < 0 {
		return Position{}
	}
	if p.Line >= len(b.lines) {
		last := len(b.lines) - 1
		return Position{Line: last, Ch: len(b.lines[last])}
	}
	if p.Ch < 0 {
		p.Ch = 0
	}
	line := b.lines[p.Line]
	if p.Ch > len(line) {
		p.Ch = len(line)
	}
	// Never inside a multibyte rune.
	for p.Ch > 0 && p.Ch < len(line) && !utf8.RuneStart(line[p.Ch]) {
		p.Ch--
	}
	return p
}

func (b *Buffer) offset(p Position) int {
	p = b.clamp(p)
	off := 0
	for i := 0; i < p.Line; i++ {
		off += len(b.lines[i]) + 1
	}
	return off + p.Ch
}

func (b *Buffer) position(off int) Position {
	for i, l := range b.lines {
		if off <= len(l) {
			return Position{Line: i, Ch: max(0, off)}
		}
		off -= len(l) + 1
	}
	last := len(b.lines) - 1
	return Position{Line: last, Ch: len(b.lines[last])}
}
