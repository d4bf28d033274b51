// Package command implements the editing commands that run against an
// embedded window's surface, and the host command pipeline they plug into.
package command

import (
	"fmt"
	"sort"
	"strings"

	"github.com/starford/syncembed/internal/surface"
)

// Command identifiers handled by the table.
const (
	ToggleChecklist    = "editor:toggle-checklist-status"
	ToggleBold         = "editor:toggle-bold"
	ToggleItalics      = "editor:toggle-italics"
	ToggleStrike       = "editor:toggle-strikethrough"
	ToggleCode         = "editor:toggle-code"
	ToggleHighlight    = "editor:toggle-highlight"
	InsertLink         = "editor:insert-link"
	ToggleBulletList   = "editor:toggle-bullet-list"
	ToggleNumberedList = "editor:toggle-numbered-list"
	IndentList         = "editor:indent-list"
	UnindentList       = "editor:unindent-list"
	InsertTag          = "editor:insert-tag"
	InsertCallout      = "editor:insert-callout"
	SwapLineUp         = "editor:swap-line-up"
	SwapLineDown       = "editor:swap-line-down"
	DuplicateLine      = "editor:duplicate-line"
	DeleteLine         = "editor:delete-line"

	// HeadingPrefix is followed by the level, 2 through 6.
	HeadingPrefix = "syncembed:insert-heading-"
)

// HeadingID returns the command id of the heading command for level.
func HeadingID(level int) string {
	return fmt.Sprintf("%s%d", HeadingPrefix, level)
}

// Target is what a command runs against.
type Target interface {
	Editor() surface.Editor
	// HeaderLevel is the level of the section heading the surface is
	// restricted to, or 0 for an unrestricted surface.
	HeaderLevel() int
	// EditableLines returns the first and last line commands may touch.
	EditableLines() (first, last int)
	// Advise surfaces a non-fatal hint to the user.
	Advise(msg string)
}

// Handler runs a command. It returns false when the command was rejected.
type Handler func(t Target) bool

// Table maps command ids to handlers.
type Table struct {
	handlers map[string]Handler
}

// NewTable returns a table with every built-in editing command.
func NewTable() *Table {
	t := &Table{handlers: map[string]Handler{
		ToggleChecklist:    toggleChecklist,
		ToggleBold:         wrapWith("**"),
		ToggleItalics:      wrapWith("*"),
		ToggleStrike:       wrapWith("~~"),
		ToggleCode:         wrapWith("`"),
		ToggleHighlight:    wrapWith("=="),
		InsertLink:         insertLink,
		ToggleBulletList:   toggleBullet,
		ToggleNumberedList: toggleNumbered,
		IndentList:         indent,
		UnindentList:       unindent,
		InsertTag:          insertTag,
		InsertCallout:      insertCallout,
		SwapLineUp:         swapUp,
		SwapLineDown:       swapDown,
		DuplicateLine:      duplicateLine,
		DeleteLine:         deleteLine,
	}}
	for level := 2; level <= 6; level++ {
		t.handlers[HeadingID(level)] = insertHeading(level)
	}
	return t
}

// Register adds or replaces the handler for id.
func (t *Table) Register(id string, h Handler) {
	t.handlers[id] = h
}

// Lookup returns the handler for id.
func (t *Table) Lookup(id string) (Handler, bool) {
	h, ok := t.handlers[id]
	return h, ok
}

// IDs returns all registered ids, sorted.
func (t *Table) IDs() []string {
	out := make([]string, 0, len(t.handlers))
	for id := range t.handlers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Plain adapts an unrestricted editor into a Target.
func Plain(ed surface.Editor) Target {
	return plainTarget{ed: ed}
}

type plainTarget struct {
	ed surface.Editor
}

func (p plainTarget) Editor() surface.Editor { return p.ed }
func (p plainTarget) HeaderLevel() int       { return 0 }
func (p plainTarget) Advise(string)          {}

func (p plainTarget) EditableLines() (int, int) {
	return 0, p.ed.LastLine()
}

// HeadingAdvice describes which heading levels may be used below a section
// heading of the given level.
func HeadingAdvice(sectionLevel, requested int) string {
	var allowed []string
	for i := sectionLevel + 1; i <= 6; i++ {
		allowed = append(allowed, fmt.Sprintf("H%d (Alt+%d)", i, i))
	}
	head := fmt.Sprintf("Cannot create H1-H%d headers in this section.", sectionLevel)
	if requested > 0 {
		head = fmt.Sprintf("H%d is not allowed in an H%d section.", requested, sectionLevel)
	}
	if len(allowed) == 0 {
		return head + " No heading levels are available."
	}
	return head + " Use: " + strings.Join(allowed, ", ")
}
