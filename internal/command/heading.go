package command

import (
	"regexp"
	"strings"

	"github.com/starford/syncembed/internal/surface"
)

var headingLineRe = regexp.MustCompile(`^(\s*)(#{1,6})\s+(.*)$`)

// insertHeading toggles a level-N heading on the selected lines. Inside a
// restricted section, levels at or above the section's own are refused.
func insertHeading(level int) Handler {
	return func(t Target) bool {
		if sl := t.HeaderLevel(); sl > 0 && level <= sl {
			t.Advise(HeadingAdvice(sl, level))
			return false
		}
		from, to := selectedLines(t)
		ed := t.Editor()
		for n := from; n <= to; n++ {
			ToggleHeading(ed, n, level)
		}
		return true
	}
}

// ToggleHeading makes line n a level heading, or strips the heading marker if
// the line already is one at that level. Indentation and content are kept and
// a cursor on the line follows the change in hash count.
func ToggleHeading(ed surface.Editor, n, level int) {
	line := ed.Line(n)
	cursor := ed.Cursor()
	onLine := cursor.Line == n
	hashes := strings.Repeat("#", level)

	if m := headingLineRe.FindStringSubmatch(line); m != nil {
		ind, old, body := m[1], m[2], m[3]
		if len(old) == level {
			setLine(ed, n, ind+body)
			if onLine {
				ed.SetCursor(surface.Position{Line: n, Ch: len(ind)})
			}
			return
		}
		next := ind + hashes + " " + body
		setLine(ed, n, next)
		if onLine {
			ch := min(max(cursor.Ch+len(hashes)-len(old), 0), len(next))
			ed.SetCursor(surface.Position{Line: n, Ch: ch})
		}
		return
	}

	ind := indentRe.FindString(line)
	setLine(ed, n, ind+hashes+" "+line[len(ind):])
	if onLine {
		ed.SetCursor(surface.Position{Line: n, Ch: len(ind) + len(hashes) + 1})
	}
}
