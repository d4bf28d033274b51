package embed

import (
	"regexp"
	"strings"
)

// Options are the inline {key:value} settings of one declaration.
type Options struct {
	Height    string            `json:"height,omitempty"`
	MaxHeight string            `json:"max_height,omitempty"`
	Title     *bool             `json:"title,omitempty"`
	Collapse  *bool             `json:"collapse,omitempty"`
	Callout   *bool             `json:"callout,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// Declaration is one parsed ![[path#section|alias]] line.
type Declaration struct {
	Raw     string  `json:"raw"`
	Path    string  `json:"path"`
	Section string  `json:"section,omitempty"`
	Alias   string  `json:"alias,omitempty"`
	Options Options `json:"options"`
}

// Label is the text shown for the embed: the alias, or path#section.
func (d Declaration) Label() string {
	if d.Alias != "" {
		return d.Alias
	}
	if d.Section != "" {
		return d.Path + "#" + d.Section
	}
	return d.Path
}

var (
	// Options either sit inside the brackets, ![[a|b{k:v}]], or follow them,
	// ![[a|b]]{k:v}.
	innerOptionsRe = regexp.MustCompile(`\{([^}]+)\}\]\]$`)
	outerOptionsRe = regexp.MustCompile(`\]\]\s*\{([^}]+)\}$`)
	embedRe        = regexp.MustCompile(`^!\[\[([^\]|]*)(?:\|([^\]]+))?\]\]$`)
)

// ParseBlock returns the declarations of a sync block, one per line.
// Lines that are not embeds are skipped.
func ParseBlock(source string) []Declaration {
	var out []Declaration
	for _, line := range strings.Split(source, "\n") {
		if d, ok := ParseDeclaration(line); ok {
			out = append(out, d)
		}
	}
	return out
}

// ParseDeclaration parses a single embed line.
func ParseDeclaration(line string) (Declaration, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "![[") {
		return Declaration{}, false
	}

	raw := line
	var opts Options
	if m := innerOptionsRe.FindStringSubmatch(line); m != nil {
		opts = parseOptions(m[1])
		line = strings.TrimSuffix(line, m[0]) + "]]"
	} else if m := outerOptionsRe.FindStringSubmatch(line); m != nil {
		opts = parseOptions(m[1])
		line = strings.TrimSuffix(line, m[0]) + "]]"
	}

	m := embedRe.FindStringSubmatch(line)
	if m == nil {
		return Declaration{}, false
	}
	link := strings.TrimSpace(m[1])
	d := Declaration{
		Raw:     raw,
		Path:    link,
		Alias:   strings.TrimSpace(m[2]),
		Options: opts,
	}
	if i := strings.IndexByte(link, '#'); i >= 0 {
		d.Path = strings.TrimSpace(link[:i])
		d.Section = strings.TrimSpace(link[i+1:])
	}
	return d, true
}

func parseOptions(s string) Options {
	var o Options
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key == "" {
			continue
		}
		switch key {
		case "height":
			o.Height = value
		case "maxHeight":
			o.MaxHeight = value
		case "title":
			o.Title = parseBool(value)
		case "collapse":
			o.Collapse = parseBool(value)
		case "callout":
			o.Callout = parseBool(value)
		default:
			if o.Extra == nil {
				o.Extra = make(map[string]string)
			}
			o.Extra[key] = value
		}
	}
	return o
}

// parseBool accepts only the literals true and false.
func parseBool(s string) *bool {
	switch s {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	}
	return nil
}
