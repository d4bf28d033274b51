package embed

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func boolPtr(b bool) *bool { return &b }

func TestParseDeclaration(t *testing.T) {
	cases := []struct {
		line string
		want Declaration
		ok   bool
	}{
		{"![[Note]]", Declaration{Raw: "![[Note]]", Path: "Note"}, true},
		{
			"  ![[Folder/Note#Sec|Alias]]  ",
			Declaration{Raw: "![[Folder/Note#Sec|Alias]]", Path: "Folder/Note", Section: "Sec", Alias: "Alias"},
			true,
		},
		{
			"![[n|a{height:300px,title:false,foo:bar}]]",
			Declaration{
				Raw:   "![[n|a{height:300px,title:false,foo:bar}]]",
				Path:  "n",
				Alias: "a",
				Options: Options{
					Height: "300px",
					Title:  boolPtr(false),
					Extra:  map[string]string{"foo": "bar"},
				},
			},
			true,
		},
		{
			"![[n#S]]{collapse:true, maxHeight: 40em}",
			Declaration{
				Raw:     "![[n#S]]{collapse:true, maxHeight: 40em}",
				Path:    "n",
				Section: "S",
				Options: Options{Collapse: boolPtr(true), MaxHeight: "40em"},
			},
			true,
		},
		{"![[#Local]]", Declaration{Raw: "![[#Local]]", Section: "Local"}, true},
		{"[[n]]", Declaration{}, false},
		{"see ![[n]]", Declaration{}, false},
		{"![[unterminated", Declaration{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseDeclaration(tc.line)
		if ok != tc.ok {
			t.Errorf("%q: ok = %v", tc.line, ok)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("%q mismatch (-want +got):\n%s", tc.line, diff)
		}
	}
}

func TestParseBlock(t *testing.T) {
	got := ParseBlock("![[a]]\nplain text\n\n  ![[b#c|d]]\n")
	want := []string{"a", "b#c"}
	if len(got) != len(want) {
		t.Fatalf("got %d declarations", len(got))
	}
	for i, d := range got {
		key := d.Path
		if d.Section != "" {
			key += "#" + d.Section
		}
		if key != want[i] {
			t.Errorf("declaration %d = %s", i, key)
		}
	}
	if got[1].Label() != "d" || got[0].Label() != "a" {
		t.Errorf("labels = %q, %q", got[0].Label(), got[1].Label())
	}
}

func TestMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("load: %w", ErrSectionNotFound), "Section not found: X"},
		{ErrTargetNotFound, "Note not found: X"},
		{ErrRecursiveEmbed, msgRecursive},
		{ErrSurfaceInit, msgSurface},
		{errors.New("disk on fire"), "Error loading: disk on fire"},
	}
	for _, tc := range cases {
		if got := Message(tc.err, "X"); got != tc.want {
			t.Errorf("Message(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
