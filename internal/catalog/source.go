package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// ErrCatalogNotFound is returned when no catalog is published under a name.
var ErrCatalogNotFound = errors.New("catalog not found")

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Source resolves catalogs by name.
type Source interface {
	Get(ctx context.Context, name string) (*Catalog, error)
}

// Publisher stores raw catalog documents by name.
type Publisher interface {
	Put(ctx context.Context, name string, raw []byte) error
}

// ValidName reports whether name can address a catalog.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// DirSource reads <Dir>/<name>.json.
type DirSource struct {
	Dir string
}

// Get loads the named catalog file.
func (s DirSource) Get(ctx context.Context, name string) (*Catalog, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("catalog %q: %w", name, ErrCatalogNotFound)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.Dir, name+".json")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("catalog %q: %w", name, ErrCatalogNotFound)
		}
		return nil, err
	}
	return LoadFile(path)
}

// Chain asks each source in turn, skipping those that do not know the name.
type Chain []Source

// Get returns the first catalog found.
func (c Chain) Get(ctx context.Context, name string) (*Catalog, error) {
	for _, src := range c {
		if src == nil {
			continue
		}
		cat, err := src.Get(ctx, name)
		if errors.Is(err, ErrCatalogNotFound) {
			continue
		}
		return cat, err
	}
	return nil, fmt.Errorf("catalog %q: %w", name, ErrCatalogNotFound)
}
