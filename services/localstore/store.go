package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

const storeFile = "store.json"

// Store is the durable key/value text store backing every cache tier and
// both collections. Values are opaque strings; each Set persists the whole
// map synchronously. A missing or corrupt file yields an empty store, never
// a fatal error.
type Store struct {
	mu   sync.RWMutex
	fs   afero.Fs
	path string
	data map[string]string
}

// Open loads (or initializes) the store inside dir on the given filesystem.
func Open(fsys afero.Fs, dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage directory not provided")
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	s := &Store{
		fs:   fsys,
		path: filepath.Join(dir, storeFile),
		data: make(map[string]string),
	}
	s.load()
	return s, nil
}

func (s *Store) load() {
	raw, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		log.Printf("[localstore] read failed, starting empty: %v", err)
		return
	}
	if len(raw) == 0 {
		return
	}
	var data map[string]string
	if err := json.Unmarshal(raw, &data); err != nil {
		log.Printf("[localstore] corrupt store discarded: %v", err)
		return
	}
	s.data = data
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores value under key and persists immediately. The in-memory map is
// updated even when the write fails, so memory may run ahead of disk until
// the next successful save.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.saveLocked()
}

// Delete removes key and persists.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.saveLocked()
}

// DeletePrefix removes every key starting with prefix and persists once.
func (s *Store) DeletePrefix(prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.saveLocked()
}

// Keys returns all keys with the given prefix, sorted.
func (s *Store) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0)
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) saveLocked() error {
	payload, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write store temp file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}
