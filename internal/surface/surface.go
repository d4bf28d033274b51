// Package surface defines the editable text surface an embedded window is
// bound to, and an in-memory implementation used by the headless host.
package surface

import "fmt"

// Position addresses a point in the text. Ch is a byte offset within the line.
type Position struct {
	Line int `json:"line"`
	Ch   int `json:"ch"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Ch)
}

// Before reports whether p sorts strictly before q.
func (p Position) Before(q Position) bool {
	return p.Line < q.Line || (p.Line == q.Line && p.Ch < q.Ch)
}

// Change replaces the text between From and To with Text.
type Change struct {
	From Position `json:"from"`
	To   Position `json:"to"`
	Text string   `json:"text"`
}

// Selection is an anchor/head pair. A collapsed selection is a cursor.
type Selection struct {
	Anchor Position `json:"anchor"`
	Head   Position `json:"head"`
}

// Ordered returns the selection bounds in document order.
func (s Selection) Ordered() (from, to Position) {
	if s.Head.Before(s.Anchor) {
		return s.Head, s.Anchor
	}
	return s.Anchor, s.Head
}

// Empty reports whether the selection is collapsed.
func (s Selection) Empty() bool {
	return s.Anchor == s.Head
}

// Viewport is the visible line window of a surface. Lines outside
// [Start, End) are hidden; the Start line is shown but not editable.
type Viewport struct {
	Active bool `json:"active"`
	Start  int  `json:"start"`
	End    int  `json:"end"`
}

// Editor is the line-oriented text surface contract.
type Editor interface {
	Value() string
	SetValue(text string)

	LineCount() int
	LastLine() int
	Line(n int) string
	SetLine(n int, text string)

	Cursor() Position
	SetCursor(p Position)
	Selection() Selection
	SetSelection(anchor, head Position)
	SelectedText() string

	ReplaceRange(text string, from, to Position)
	ReplaceSelection(text string)
	// Transaction applies all changes atomically. Change positions refer to
	// the text before the transaction. A nil sel maps the current selection.
	Transaction(changes []Change, sel *Selection)

	ScrollTop() int
	SetScrollTop(line int)

	// OnChange registers fn to run after every text mutation.
	OnChange(fn func()) (cancel func())
}

// Restrictor is implemented by surfaces that can hide lines.
type Restrictor interface {
	SetViewport(v Viewport)
	Viewport() Viewport
}
