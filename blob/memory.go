package blob

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	text     string
	modified time.Time
	version  int64
}

// MemoryStore keeps blobs in a map. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	// Now stamps LastModified on writes; tests can pin it.
	Now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), Now: time.Now}
}

func (m *MemoryStore) List(_ context.Context, prefix string) ([]Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	retval := make([]Object, 0)
	for k, e := range m.entries {
		if strings.HasPrefix(k, prefix) {
			retval = append(retval, Object{Name: k, LastModified: e.modified})
		}
	}
	sort.Slice(retval, func(i, j int) bool { return retval[i].Name < retval[j].Name })
	return retval, nil
}

func (m *MemoryStore) ReadText(ctx context.Context, name string) (string, error) {
	text, _, err := m.ReadTextVersion(ctx, name)
	return text, err
}

func (m *MemoryStore) ReadTextVersion(_ context.Context, name string) (string, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[name]
	if !ok {
		return "", "", ErrNotFound
	}
	return e.text, strconv.FormatInt(e.version, 10), nil
}

func (m *MemoryStore) WriteText(_ context.Context, name string, text string, overwrite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[name]
	if ok && !overwrite {
		return ErrAlreadyExists
	}
	m.entries[name] = memoryEntry{text: text, modified: m.Now(), version: e.version + 1}
	return nil
}

func (m *MemoryStore) WriteTextIfVersion(_ context.Context, name string, text string, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[name]
	switch {
	case !ok && version != "":
		return ErrVersionConflict
	case ok && strconv.FormatInt(e.version, 10) != version:
		return ErrVersionConflict
	}
	m.entries[name] = memoryEntry{text: text, modified: m.Now(), version: e.version + 1}
	return nil
}

func (m *MemoryStore) Exists(_ context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[name]
	return ok, nil
}
