package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// stateKey namespaces the persisted snapshot within the backing storage.
const stateKey = "session-share.state"

// Storage persists state snapshots keyed by name.
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// ErrNotFound is returned by Storage.Get when no snapshot exists yet.
var ErrNotFound = errors.New("state: snapshot not found")

// Store owns the application state. Dispatch is safe for concurrent use;
// reducers run under the store lock so each action is applied atomically.
type Store struct {
	mu      sync.Mutex
	state   State
	storage Storage
}

// NewStore creates a store and rehydrates the persisted snapshot, if
// any. A corrupt snapshot is discarded rather than failing startup.
func NewStore(storage Storage) *Store {
	s := &Store{storage: storage}
	if storage == nil {
		return s
	}

	raw, err := storage.Get(stateKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("[state] failed to load snapshot: %v", err)
		}
		return s
	}
	if err := json.Unmarshal(raw, &s.state); err != nil {
		log.Printf("[state] discarding corrupt snapshot: %v", err)
		s.state = State{}
	}
	return s
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies the action and persists the resulting state. It
// returns the state after the action.
func (s *Store) Dispatch(action Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Reduce(s.state, action)
	s.persistLocked()
	return s.state
}

// persistLocked writes the snapshot best-effort; a failed write keeps
// the in-memory state authoritative.
func (s *Store) persistLocked() {
	if s.storage == nil {
		return
	}
	raw, err := json.Marshal(s.state)
	if err != nil {
		log.Printf("[state] failed to encode snapshot: %v", err)
		return
	}
	if err := s.storage.Set(stateKey, raw); err != nil {
		log.Printf("[state] failed to persist snapshot: %v", err)
	}
}

// FileStorage stores snapshots as files in a directory.
type FileStorage struct {
	dir string
}

// NewFileStorage creates the directory if needed and returns the storage.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

// Get implements Storage.
func (f *FileStorage) Get(key string) ([]byte, error) {
	raw, err := os.ReadFile(filepath.Join(f.dir, key+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return raw, err
}

// Set implements Storage.
func (f *FileStorage) Set(key string, value []byte) error {
	path := filepath.Join(f.dir, key+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// MemoryStorage is an in-memory Storage used in tests.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

// Get implements Storage.
func (m *MemoryStorage) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return raw, nil
}

// Set implements Storage.
func (m *MemoryStorage) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}
