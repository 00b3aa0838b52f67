package state

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store persists the full state document between blocks. Both backends store
// the same canonical JSON bytes, so switching backends preserves the AppHash.
type Store interface {
	// Load returns the stored state, or a fresh state when nothing is stored.
	Load() (*State, error)
	Save(*State) error
	Close() error
}

// FileStore keeps the state in a single JSON file under the app home.
// Good enough for devnet durability.
type FileStore struct {
	home string
}

func NewFileStore(home string) *FileStore {
	return &FileStore{home: home}
}

func (fs *FileStore) path() string {
	return filepath.Join(fs.home, "state.json")
}

func (fs *FileStore) Load() (*State, error) {
	b, err := os.ReadFile(fs.path())
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	return Decode(b)
}

func (fs *FileStore) Save(s *State) error {
	if err := os.MkdirAll(fs.home, 0o755); err != nil {
		return fmt.Errorf("mkdir home: %w", err)
	}
	b, err := s.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(fs.path(), b, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

func (fs *FileStore) Close() error { return nil }
