//go:generate mockgen -package mocks -destination mocks/store.go -source=store.go
package blob

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("blob not found")
	ErrAlreadyExists   = errors.New("blob already exists")
	ErrVersionConflict = errors.New("blob version changed since it was read")
)

// Object is one entry returned by List.
type Object struct {
	Name         string
	LastModified time.Time
}

// Store is the key-value text storage used for raw snapshots and silver partitions.
// Names are slash separated paths.
type Store interface {
	List(ctx context.Context, prefix string) ([]Object, error)
	// ReadText returns ErrNotFound if name doesn't exist.
	ReadText(ctx context.Context, name string) (string, error)
	// WriteText returns ErrAlreadyExists if name exists and overwrite is false.
	WriteText(ctx context.Context, name string, text string, overwrite bool) error
	Exists(ctx context.Context, name string) (bool, error)
}

// VersionedStore supports optimistic read-modify-write cycles.
type VersionedStore interface {
	Store
	// ReadTextVersion returns the text with an opaque version, or ErrNotFound.
	ReadTextVersion(ctx context.Context, name string) (text string, version string, err error)
	// WriteTextIfVersion writes only when the stored version still equals version.
	// An empty version means name must not exist yet. Mismatches return ErrVersionConflict.
	WriteTextIfVersion(ctx context.Context, name string, text string, version string) error
}

// Latest returns the most recently modified object under prefix.
// Ties are broken by the greater name. It returns ErrNotFound when nothing matches.
func Latest(ctx context.Context, s Store, prefix string) (Object, error) {
	objs, err := s.List(ctx, prefix)
	if err != nil {
		return Object{}, err
	}
	if len(objs) == 0 {
		return Object{}, ErrNotFound
	}
	sort.Slice(objs, func(i, j int) bool {
		if objs[i].LastModified.Equal(objs[j].LastModified) {
			return objs[i].Name < objs[j].Name
		}
		return objs[i].LastModified.Before(objs[j].LastModified)
	})
	return objs[len(objs)-1], nil
}

// Join builds a blob name from path elements, ignoring empty ones and stray slashes.
func Join(elem ...string) string {
	parts := make([]string, 0, len(elem))
	for _, e := range elem {
		if e = strings.Trim(e, "/"); e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, "/")
}

// DirPrefix returns p with exactly one trailing slash so that listing "raw/ebay" does not match "raw/ebay2".
func DirPrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}
