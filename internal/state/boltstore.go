package state

import (
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var (
	boltBucket   = []byte("app")
	boltStateKey = []byte("state")
)

// BoltStore keeps the state document in a bbolt bucket. Same bytes as the
// file store, but with transactional writes.
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(home string) (*BoltStore, error) {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir home: %w", err)
	}
	db, err := bolt.Open(filepath.Join(home, "state.db"), 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (bs *BoltStore) Load() (*State, error) {
	var raw []byte
	if err := bs.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(boltBucket).Get(boltStateKey); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	if raw == nil {
		return NewState(), nil
	}
	return Decode(raw)
}

func (bs *BoltStore) Save(s *State) error {
	b, err := s.Encode()
	if err != nil {
		return err
	}
	if err := bs.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put(boltStateKey, b)
	}); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

func (bs *BoltStore) Close() error {
	return bs.db.Close()
}
