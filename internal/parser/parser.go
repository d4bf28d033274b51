// Package parser extracts frontmatter, title and the heading outline from
// Markdown notes.
package parser

import (
	"bytes"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/syncembed/internal/section"
)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Title       string
	// Headings carry line numbers of the full file so they can be handed
	// to section.Locate unchanged.
	Headings []section.Heading
}

// Parse extracts frontmatter, body, title and headings from raw Markdown
// bytes. name is the vault path, used as the title of last resort.
func Parse(name string, data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)
	headings := section.Outline(string(data))

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(name, fm, headings),
		Headings:    headings,
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: the whole file is body.
		return nil, string(data)
	}
	return fm, body
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise the file's base name without extension.
func deriveTitle(name string, fm map[string]any, headings []section.Heading) string {
	if t, ok := fm["title"].(string); ok && t != "" {
		return t
	}
	for _, h := range headings {
		if h.Level == 1 {
			return h.Title
		}
	}
	return strings.TrimSuffix(path.Base(name), ".md")
}
