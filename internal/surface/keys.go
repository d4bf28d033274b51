package surface

import "unicode/utf8"

// Key names accepted by the headless host.
const (
	KeyBackspace = "Backspace"
	KeyDelete    = "Delete"
	KeyEnter     = "Enter"
	KeyUp        = "ArrowUp"
	KeyDown      = "ArrowDown"
	KeyLeft      = "ArrowLeft"
	KeyRight     = "ArrowRight"
	KeyHome      = "Home"
	KeyEnd       = "End"
	KeyPageUp    = "PageUp"
	KeyPageDown  = "PageDown"
)

// IsNavigation reports whether key only moves the cursor.
func IsNavigation(key string) bool {
	switch key {
	case KeyUp, KeyDown, KeyLeft, KeyRight, KeyHome, KeyEnd, KeyPageUp, KeyPageDown:
		return true
	}
	return false
}

// ApplyKey performs the default behavior of key on ed. It reports false for
// keys it does not know.
func ApplyKey(ed Editor, key string) bool {
	switch key {
	case KeyBackspace:
		Backspace(ed)
	case KeyDelete:
		DeleteForward(ed)
	case KeyEnter:
		InsertText(ed, "\n")
	case KeyUp, KeyDown, KeyLeft, KeyRight, KeyHome, KeyEnd, KeyPageUp, KeyPageDown:
		move(ed, key)
	default:
		return false
	}
	return true
}

// InsertText types text at the selection.
func InsertText(ed Editor, text string) {
	ed.ReplaceSelection(text)
}

// Backspace deletes the selection, or the character before the cursor.
func Backspace(ed Editor) {
	sel := ed.Selection()
	if !sel.Empty() {
		ed.ReplaceSelection("")
		return
	}
	c := sel.Head
	switch {
	case c.Ch > 0:
		_, size := utf8.DecodeLastRuneInString(prefix(ed.Line(c.Line), c.Ch))
		ed.ReplaceRange("", Position{Line: c.Line, Ch: c.Ch - size}, c)
	case c.Line > 0:
		prev := Position{Line: c.Line - 1, Ch: len(ed.Line(c.Line - 1))}
		ed.ReplaceRange("", prev, c)
	}
}

// DeleteForward deletes the selection, or the character after the cursor.
func DeleteForward(ed Editor) {
	sel := ed.Selection()
	if !sel.Empty() {
		ed.ReplaceSelection("")
		return
	}
	c := sel.Head
	line := ed.Line(c.Line)
	switch {
	case c.Ch < len(line):
		_, size := utf8.DecodeRuneInString(line[c.Ch:])
		ed.ReplaceRange("", c, Position{Line: c.Line, Ch: c.Ch + size})
	case c.Line < ed.LastLine():
		ed.ReplaceRange("", c, Position{Line: c.Line + 1})
	}
}

func move(ed Editor, key string) {
	c := ed.Cursor()
	switch key {
	case KeyUp:
		c.Line--
	case KeyDown:
		c.Line++
	case KeyPageUp:
		c.Line -= 20
	case KeyPageDown:
		c.Line += 20
	case KeyLeft:
		if c.Ch > 0 {
			_, size := utf8.DecodeLastRuneInString(prefix(ed.Line(c.Line), c.Ch))
			c.Ch -= size
		} else if c.Line > 0 {
			c.Line--
			c.Ch = len(ed.Line(c.Line))
		}
	case KeyRight:
		if line := ed.Line(c.Line); c.Ch < len(line) {
			_, size := utf8.DecodeRuneInString(line[c.Ch:])
			c.Ch += size
		} else if c.Line < ed.LastLine() {
			c.Line++
			c.Ch = 0
		}
	case KeyHome:
		c.Ch = 0
	case KeyEnd:
		c.Ch = len(ed.Line(c.Line))
	}
	if c.Line < 0 {
		c = Position{}
	}
	if last := ed.LastLine(); c.Line > last {
		c = Position{Line: last, Ch: len(ed.Line(last))}
	}
	if n := len(ed.Line(c.Line)); c.Ch > n {
		c.Ch = n
	}
	ed.SetCursor(c)
}

func prefix(line string, ch int) string {
	return line[:min(ch, len(line))]
}
