package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store is an opaque key/value store for state blobs.
type Store interface {
	Load(key string) ([]byte, bool, error)
	Save(key string, blob []byte) error
}

// MemoryStore keeps blobs in memory.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Load(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.blobs[key]
	return blob, ok, nil
}

func (m *MemoryStore) Save(key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), blob...)
	return nil
}

// FileStore keeps blobs in one JSON object on disk, keyed like browser
// local storage. Writes replace the file atomically.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.path, err)
	}

	entries := map[string]json.RawMessage{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.path, err)
	}
	return entries, nil
}

func (f *FileStore) Load(key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return nil, false, err
	}
	blob, ok := entries[key]
	return blob, ok, nil
}

func (f *FileStore) Save(key string, blob []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		// A corrupt file is replaced rather than blocking every save.
		entries = map[string]json.RawMessage{}
	}
	if !json.Valid(blob) {
		return fmt.Errorf("state blob for %q is not JSON", key)
	}
	entries[key] = json.RawMessage(blob)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".state-*")
	if err != nil {
		return fmt.Errorf("saving state: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("saving state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("saving state: %w", err)
	}
	return os.Rename(tmp.Name(), f.path)
}
