package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/peterbourgon/diskv/v3"
)

// Store persists whole cache entries. Save replaces any entry under the
// same key; there are no partial writes.
type Store interface {
	Load(key string) (Entry, bool, error)
	Save(e Entry) error
}

// DiskStore keeps one JSON document per entry under a base directory.
type DiskStore struct {
	d *diskv.Diskv
}

// NewDiskStore opens (and lazily creates) a store rooted at dir.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{d: diskv.New(diskv.Options{
		BasePath: dir,
		// Writes go through a temp file and a rename so readers never see
		// a half-written entry.
		TempDir:      filepath.Join(dir, ".tmp"),
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 4 * 1024 * 1024,
	})}
}

func (s *DiskStore) Load(key string) (Entry, bool, error) {
	val, err := s.d.Read(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(val, &e); err != nil {
		return Entry{}, false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return e, true, nil
}

func (s *DiskStore) Save(e Entry) error {
	data, err := json.Marshal(&e)
	if err != nil {
		return err
	}
	return s.d.Write(e.Key(), data)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (m *MemoryStore) Load(key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *MemoryStore) Save(e Entry) error {
	m.mu.Lock()
	m.entries[e.Key()] = e
	m.mu.Unlock()
	return nil
}
