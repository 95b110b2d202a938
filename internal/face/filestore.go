package face

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/verivote/verivote/pkg/identity"
)

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// FileStore is a [Store] backed by a single JSON document on disk: an ordered
// array of [BiometricProfile] records.
//
// The file is reloaded in full before every operation and rewritten
// atomically (temp file + rename) on every mutation, so a concurrent process
// clearing or editing the backing file is observed on the next call. This is
// eventual consistency across processes, not linearizability; within one
// process the store mutex serializes all operations.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a [FileStore] persisting to the given path. The file
// does not need to exist yet; a missing file reads as an empty store.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Add implements [Store.Add].
func (s *FileStore) Add(ctx context.Context, p BiometricProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.load()
	if err != nil {
		return err
	}

	id := identity.NormalizeVoterID(p.VoterID)
	for _, existing := range profiles {
		if identity.NormalizeVoterID(existing.VoterID) == id {
			return fmt.Errorf("%w: %q", ErrDuplicateVoter, id)
		}
	}

	p.VoterID = id
	return s.persist(append(profiles, p))
}

// List implements [Store.List].
func (s *FileStore) List(ctx context.Context) ([]BiometricProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Reset implements [Store.Reset].
func (s *FileStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist([]BiometricProfile{})
}

// load reads the backing file. A missing file is an empty store.
func (s *FileStore) load() ([]BiometricProfile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("face: read %q: %w", s.path, err)
	}

	var profiles []BiometricProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("face: parse %q: %w", s.path, err)
	}
	return profiles, nil
}

// persist writes the full profile list to a temp file in the same directory
// and renames it over the target, so readers never observe a partial write.
func (s *FileStore) persist(profiles []BiometricProfile) error {
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("face: encode profiles: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".faces-*.json")
	if err != nil {
		return fmt.Errorf("face: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("face: write %q: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("face: close %q: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("face: replace %q: %w", s.path, err)
	}
	return nil
}
