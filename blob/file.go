package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// FileStore maps blob names onto files below Root.
// Version checks are atomic within one process only.
type FileStore struct {
	Root string
	mu   sync.Mutex
}

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrapf(err, "error creating file store root %v", root)
	}
	return &FileStore{Root: root}, nil
}

func (f *FileStore) path(name string) string {
	return filepath.Join(f.Root, filepath.FromSlash(strings.TrimLeft(name, "/")))
}

func (f *FileStore) List(_ context.Context, prefix string) ([]Object, error) {
	retval := make([]Object, 0)
	err := filepath.Walk(f.Root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasSuffix(p, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(f.Root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			retval = append(retval, Object{Name: name, LastModified: info.ModTime()})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error listing %v", f.Root)
	}
	sort.Slice(retval, func(i, j int) bool { return retval[i].Name < retval[j].Name })
	return retval, nil
}

func (f *FileStore) ReadText(ctx context.Context, name string) (string, error) {
	text, _, err := f.ReadTextVersion(ctx, name)
	return text, err
}

// ReadTextVersion uses the SHA-256 of the content as the version.
func (f *FileStore) ReadTextVersion(_ context.Context, name string) (string, string, error) {
	b, err := ioutil.ReadFile(f.path(name))
	if os.IsNotExist(err) {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", errors.Wrapf(err, "error reading %v", name)
	}
	return string(b), contentVersion(b), nil
}

func (f *FileStore) WriteText(_ context.Context, name string, text string, overwrite bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !overwrite {
		if _, err := os.Stat(f.path(name)); err == nil {
			return ErrAlreadyExists
		}
	}
	return f.write(name, text)
}

func (f *FileStore) WriteTextIfVersion(_ context.Context, name string, text string, version string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := ioutil.ReadFile(f.path(name))
	switch {
	case os.IsNotExist(err):
		if version != "" {
			return ErrVersionConflict
		}
	case err != nil:
		return errors.Wrapf(err, "error reading %v", name)
	case contentVersion(b) != version:
		return ErrVersionConflict
	}
	return f.write(name, text)
}

func (f *FileStore) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(f.path(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "error checking %v", name)
	}
	return true, nil
}

// write replaces the file via rename so readers never see a partial document.
func (f *FileStore) write(name string, text string) error {
	p := f.path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return errors.Wrapf(err, "error creating directory for %v", name)
	}
	tmp := p + ".tmp"
	if err := ioutil.WriteFile(tmp, []byte(text), 0644); err != nil {
		return errors.Wrapf(err, "error writing %v", name)
	}
	if err := os.Rename(tmp, p); err != nil {
		return errors.Wrapf(err, "error renaming %v", tmp)
	}
	return nil
}

func contentVersion(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
