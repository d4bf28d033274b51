package embed

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/starford/syncembed/internal/apperr"
)

// Resolver maps an embed link written in source to a vault path.
type Resolver interface {
	Resolve(ctx context.Context, link, source string) (string, error)
}

// LinkIndex is the slice of the note index used for link resolution.
type LinkIndex interface {
	ResolveLink(ctx context.Context, link, source string) (string, error)
}

// Exister reports whether a vault path names a note.
type Exister interface {
	Exists(ctx context.Context, path string) bool
}

// LinkResolver consults the index first and falls back to treating the link
// as a vault path, with or without the .md extension.
type LinkResolver struct {
	Index LinkIndex
	Store Exister
}

// Resolve implements Resolver.
func (r LinkResolver) Resolve(ctx context.Context, link, source string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return source, nil
	}

	if r.Index != nil {
		p, err := r.Index.ResolveLink(ctx, link, source)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return "", fmt.Errorf("embed: resolve %s: %w", link, err)
		}
	}

	if r.Store != nil {
		candidate := path.Clean(strings.TrimPrefix(link, "/"))
		if !strings.HasSuffix(strings.ToLower(candidate), ".md") {
			candidate += ".md"
		}
		if r.Store.Exists(ctx, candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("embed: resolve %s: %w", link, ErrTargetNotFound)
}
