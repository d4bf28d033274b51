package command

import (
	"strings"

	"github.com/starford/syncembed/internal/surface"
)

// selectedLines returns the line span covered by the selection, clipped to the
// target's editable lines.
func selectedLines(t Target) (from, to int) {
	a, b := t.Editor().Selection().Ordered()
	first, last := t.EditableLines()
	return max(a.Line, first), min(b.Line, last)
}

func indent(t Target) bool {
	ed := t.Editor()
	from, to := selectedLines(t)
	var changes []surface.Change
	for n := from; n <= to; n++ {
		p := surface.Position{Line: n}
		changes = append(changes, surface.Change{From: p, To: p, Text: "\t"})
	}
	ed.Transaction(changes, nil)
	return true
}

func unindent(t Target) bool {
	ed := t.Editor()
	from, to := selectedLines(t)
	var changes []surface.Change
	for n := from; n <= to; n++ {
		line := ed.Line(n)
		width := 0
		switch {
		case strings.HasPrefix(line, "\t"):
			width = 1
		case strings.HasPrefix(line, "    "):
			width = 4
		default:
			continue
		}
		changes = append(changes, surface.Change{
			From: surface.Position{Line: n},
			To:   surface.Position{Line: n, Ch: width},
		})
	}
	ed.Transaction(changes, nil)
	return true
}

func swapUp(t Target) bool {
	ed := t.Editor()
	c := ed.Cursor()
	first, _ := t.EditableLines()
	if c.Line <= first {
		return true
	}
	swapLines(ed, c.Line-1, c.Line, surface.Position{Line: c.Line - 1, Ch: c.Ch})
	return true
}

func swapDown(t Target) bool {
	ed := t.Editor()
	c := ed.Cursor()
	_, last := t.EditableLines()
	if c.Line >= last {
		return true
	}
	swapLines(ed, c.Line, c.Line+1, surface.Position{Line: c.Line + 1, Ch: c.Ch})
	return true
}

// swapLines exchanges lines a and b in one transaction and leaves the cursor
// at cursor.
func swapLines(ed surface.Editor, a, b int, cursor surface.Position) {
	la, lb := ed.Line(a), ed.Line(b)
	sel := surface.Selection{Anchor: cursor, Head: cursor}
	ed.Transaction([]surface.Change{
		{From: surface.Position{Line: a}, To: surface.Position{Line: a, Ch: len(la)}, Text: lb},
		{From: surface.Position{Line: b}, To: surface.Position{Line: b, Ch: len(lb)}, Text: la},
	}, &sel)
}

func duplicateLine(t Target) bool {
	ed := t.Editor()
	c := ed.Cursor()
	line := ed.Line(c.Line)
	end := surface.Position{Line: c.Line, Ch: len(line)}
	ed.ReplaceRange("\n"+line, end, end)
	ed.SetCursor(surface.Position{Line: c.Line + 1, Ch: c.Ch})
	return true
}

func deleteLine(t Target) bool {
	ed := t.Editor()
	n := ed.Cursor().Line
	first, last := t.EditableLines()
	if n < first || n > last {
		return false
	}
	if n == ed.LastLine() {
		if n == 0 {
			setLine(ed, 0, "")
			return true
		}
		prev := surface.Position{Line: n - 1, Ch: len(ed.Line(n - 1))}
		ed.ReplaceRange("", prev, surface.Position{Line: n, Ch: len(ed.Line(n))})
		return true
	}
	ed.ReplaceRange("", surface.Position{Line: n}, surface.Position{Line: n + 1})
	return true
}
