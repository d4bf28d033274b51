package section

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Heading is one entry of a document outline.
type Heading struct {
	Title string `json:"title"`
	Level int    `json:"level"`
	Line  int    `json:"line"`
}

var md = goldmark.New()

// Outline returns the ATX headings of src in document order. Lines inside
// fenced code blocks are not reported, so every returned title can be passed
// to Locate.
func Outline(src string) []Heading {
	source := []byte(src)
	doc := md.Parser().Parse(text.NewReader(source))

	lineStarts := lineOffsets(source)
	all := Lines(src)

	var out []Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		lines := h.Lines()
		if lines.Len() == 0 {
			return ast.WalkSkipChildren, nil
		}
		line := lineAt(lineStarts, lines.At(0).Start)
		// Setext headings have no hash run and cannot be located by title.
		raw := all[line]
		if HeadingLevel(raw) == 0 {
			return ast.WalkSkipChildren, nil
		}
		out = append(out, Heading{
			Title: strings.TrimSpace(raw[HeadingLevel(raw):]),
			Level: h.Level,
			Line:  line,
		})
		return ast.WalkSkipChildren, nil
	})
	return out
}

func lineOffsets(src []byte) []int {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineAt returns the index of the line containing byte offset off.
func lineAt(starts []int, off int) int {
	lo, hi := 0, len(starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if starts[mid] <= off {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
