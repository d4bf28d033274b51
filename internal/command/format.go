package command

import (
	"regexp"
	"strings"

	"github.com/starford/syncembed/internal/surface"
)

var (
	uncheckedRe = regexp.MustCompile(`^(\s*)- \[ \]`)
	checkedRe   = regexp.MustCompile(`^(\s*)- \[[xX]\] ?`)
	bulletRe    = regexp.MustCompile(`^(\s*)- `)
	numberedRe  = regexp.MustCompile(`^(\s*)\d+\. `)
	indentRe    = regexp.MustCompile(`^\s*`)
)

// toggleChecklist cycles unchecked → checked → plain → unchecked.
func toggleChecklist(t Target) bool {
	ed := t.Editor()
	n := ed.Cursor().Line
	line := ed.Line(n)

	var next string
	switch {
	case uncheckedRe.MatchString(line):
		next = uncheckedRe.ReplaceAllString(line, "${1}- [x]")
	case checkedRe.MatchString(line):
		next = checkedRe.ReplaceAllString(line, "${1}")
	default:
		ind := indentRe.FindString(line)
		body := strings.TrimPrefix(line[len(ind):], "- ")
		next = ind + "- [ ] " + body
	}
	setLine(ed, n, next)
	ed.SetCursor(surface.Position{Line: n, Ch: len(next)})
	return true
}

// wrapWith toggles delim around the selection.
func wrapWith(delim string) Handler {
	return func(t Target) bool {
		ed := t.Editor()
		sel := ed.Selection()
		from, to := sel.Ordered()
		k := len(delim)

		if sel.Empty() {
			ed.ReplaceRange(delim+delim, from, from)
			ed.SetCursor(surface.Position{Line: from.Line, Ch: from.Ch + k})
			return true
		}

		text := ed.SelectedText()
		if len(text) >= 2*k && strings.HasPrefix(text, delim) && strings.HasSuffix(text, delim) {
			inner := text[k : len(text)-k]
			ed.ReplaceSelection(inner)
			ed.SetSelection(from, advance(from, inner))
			return true
		}

		// Delimiters just outside a single-line selection: **|text|**.
		if from.Line == to.Line && from.Ch >= k {
			line := ed.Line(from.Line)
			if to.Ch+k <= len(line) && line[from.Ch-k:from.Ch] == delim && line[to.Ch:to.Ch+k] == delim {
				outer := surface.Position{Line: from.Line, Ch: from.Ch - k}
				end := surface.Position{Line: to.Line, Ch: to.Ch + k}
				ed.ReplaceRange(text, outer, end)
				ed.SetSelection(outer, advance(outer, text))
				return true
			}
		}

		ed.ReplaceSelection(delim + text + delim)
		start := advance(from, delim)
		ed.SetSelection(start, advance(start, text))
		return true
	}
}

func insertLink(t Target) bool {
	ed := t.Editor()
	if text := ed.SelectedText(); text != "" {
		ed.ReplaceSelection("[[" + text + "]]")
		return true
	}
	c := ed.Cursor()
	ed.ReplaceRange("[[]]", c, c)
	ed.SetCursor(surface.Position{Line: c.Line, Ch: c.Ch + 2})
	return true
}

func toggleBullet(t Target) bool {
	return toggleMarker(t, bulletRe, "- ")
}

func toggleNumbered(t Target) bool {
	return toggleMarker(t, numberedRe, "1. ")
}

// toggleMarker removes a list marker matched by re, or inserts marker after
// the indentation. Indentation is kept either way.
func toggleMarker(t Target, re *regexp.Regexp, marker string) bool {
	ed := t.Editor()
	n := ed.Cursor().Line
	line := ed.Line(n)
	if re.MatchString(line) {
		setLine(ed, n, re.ReplaceAllString(line, "${1}"))
		return true
	}
	ind := indentRe.FindString(line)
	setLine(ed, n, ind+marker+line[len(ind):])
	return true
}

func insertTag(t Target) bool {
	ed := t.Editor()
	if text := ed.SelectedText(); text != "" {
		ed.ReplaceSelection("#" + text)
		return true
	}
	c := ed.Cursor()
	ed.ReplaceRange("#", c, c)
	return true
}

func insertCallout(t Target) bool {
	ed := t.Editor()
	c := ed.Cursor()
	ed.ReplaceRange("> [!note]\n> ", c, c)
	ed.SetCursor(surface.Position{Line: c.Line + 1, Ch: 2})
	return true
}

func setLine(ed surface.Editor, n int, text string) {
	ed.ReplaceRange(text, surface.Position{Line: n}, surface.Position{Line: n, Ch: len(ed.Line(n))})
}

// advance returns the position reached after writing s starting at p.
func advance(p surface.Position, s string) surface.Position {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return surface.Position{Line: p.Line + strings.Count(s, "\n"), Ch: len(s) - i - 1}
	}
	return surface.Position{Line: p.Line, Ch: p.Ch + len(s)}
}
