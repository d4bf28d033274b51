// Package section locates heading-delimited subsections inside Markdown text.
package section

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNotFound is returned by Locate when no heading matches the title.
var ErrNotFound = errors.New("section not found")

// Range is the line span of a subsection.
//
// Start is the index of the heading line. End is exclusive: the first line of
// the next heading at the same or a shallower level, or the line count.
type Range struct {
	Start int `json:"start_line"`
	End   int `json:"end_line"`
	Level int `json:"header_level"`
}

// Len returns the number of lines covered, heading included.
func (r Range) Len() int {
	return r.End - r.Start
}

// Contains reports whether line lies inside [Start, End).
func (r Range) Contains(line int) bool {
	return line >= r.Start && line < r.End
}

// FirstEditable is the first line below the heading.
func (r Range) FirstEditable() int {
	return r.Start + 1
}

// LastEditable is the last line inside the range. For a heading-only section it
// equals Start.
func (r Range) LastEditable() int {
	return r.End - 1
}

func (r Range) String() string {
	return fmt.Sprintf("H%d[%d,%d)", r.Level, r.Start, r.End)
}

var headingRe = regexp.MustCompile(`^(#{1,6})(?:[ \t]|$)`)

// Lines splits text on "\n". An empty text yields a single empty line.
func Lines(text string) []string {
	return strings.Split(text, "\n")
}

// HeadingLevel returns the ATX heading level of line, or 0 when line is not a
// heading. The hash run must start the line and be followed by a blank or the
// end of line, so "#tag" is not a heading.
func HeadingLevel(line string) int {
	m := headingRe.FindStringSubmatch(line)
	if m == nil {
		return 0
	}
	return len(m[1])
}

// headingPattern matches the literal title after 1–6 hashes with only
// trailing whitespace allowed.
func headingPattern(title string) *regexp.Regexp {
	return regexp.MustCompile(`^#{1,6}\s+` + regexp.QuoteMeta(title) + `\s*$`)
}

// Locate finds the first heading named title and returns its range.
func Locate(text, title string) (Range, error) {
	return LocateLines(Lines(text), title)
}

// LocateLines is Locate over pre-split lines.
func LocateLines(lines []string, title string) (Range, error) {
	re := headingPattern(title)
	for i, line := range lines {
		if !re.MatchString(line) {
			continue
		}
		level := HeadingLevel(line)
		return Range{Start: i, End: EndOf(lines, i, level), Level: level}, nil
	}
	return Range{}, fmt.Errorf("%w: %s", ErrNotFound, title)
}

// EndOf scans forward from start+1 and returns the index of the first heading
// whose level is <= level, or len(lines).
func EndOf(lines []string, start, level int) int {
	for i := start + 1; i < len(lines); i++ {
		if l := HeadingLevel(lines[i]); l > 0 && l <= level {
			return i
		}
	}
	return len(lines)
}

// Extract returns the lines in r joined with "\n".
func Extract(text string, r Range) string {
	lines := Lines(text)
	if r.Start < 0 || r.End > len(lines) || r.Start >= r.End {
		return ""
	}
	return strings.Join(lines[r.Start:r.End], "\n")
}

// Splice replaces the lines in r with replacement and returns the new text.
func Splice(text string, r Range, replacement string) string {
	lines := Lines(text)
	if r.Start < 0 || r.End > len(lines) || r.Start > r.End {
		return text
	}
	out := make([]string, 0, len(lines)-r.Len()+strings.Count(replacement, "\n")+1)
	out = append(out, lines[:r.Start]...)
	out = append(out, Lines(replacement)...)
	out = append(out, lines[r.End:]...)
	return strings.Join(out, "\n")
}

// AppendBlock adds block at the end of text as a separate paragraph.
func AppendBlock(text, block string) string {
	if text == "" {
		return block
	}
	trimmed := strings.TrimRight(text, "\n")
	return trimmed + "\n\n" + block + "\n"
}
