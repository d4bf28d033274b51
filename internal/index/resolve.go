package index

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/starford/syncembed/internal/apperr"
)

// ResolveLink maps the path part of a wiki link to an indexed note path.
// A path relative to the source note's folder wins, then an exact vault
// path; otherwise notes whose base name matches are considered and the one
// closest to source is returned.
func (db *DB) ResolveLink(ctx context.Context, link, source string) (string, error) {
	link = strings.TrimSpace(strings.TrimPrefix(link, "/"))
	if link == "" {
		return "", fmt.Errorf("index: resolve: empty link: %w", apperr.ErrInvalid)
	}
	want := link
	if !strings.HasSuffix(strings.ToLower(want), ".md") {
		want += ".md"
	}

	srcDir := path.Dir(source)
	for _, p := range []string{path.Join(srcDir, want), want} {
		var exact string
		err := db.conn.QueryRowContext(ctx, `SELECT path FROM notes WHERE path = ? COLLATE NOCASE`, p).Scan(&exact)
		if err == nil {
			return exact, nil
		}
	}

	rows, err := db.conn.QueryContext(ctx, `SELECT path FROM notes WHERE basename = ?`, basename(want))
	if err != nil {
		return "", fmt.Errorf("index: resolve: %w", err)
	}
	defer rows.Close()

	suffix := "/" + strings.ToLower(want)
	var candidates []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return "", err
		}
		// "dir/Note" must match ".../dir/Note.md", not any "Note.md".
		if strings.Contains(link, "/") && !strings.HasSuffix("/"+strings.ToLower(p), suffix) {
			continue
		}
		candidates = append(candidates, p)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("index: resolve %s: %w", link, apperr.ErrNotFound)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if sa, sb := path.Dir(a) == srcDir, path.Dir(b) == srcDir; sa != sb {
			return sa
		}
		if la, lb := strings.Count(a, "/"), strings.Count(b, "/"); la != lb {
			return la < lb
		}
		return a < b
	})
	return candidates[0], nil
}
