package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketState = []byte("state")
	keySnapshot = []byte("snapshot")
)

// DB persists committed state snapshots in a bbolt file.
type DB struct {
	db *bolt.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir data dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketState)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init state bucket: %w", err)
	}
	return &DB{db: db}, nil
}

// Load returns the last saved snapshot, or a fresh state when none exists.
func (d *DB) Load() (*State, error) {
	var raw []byte
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketState).Get(keySnapshot)
		if v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	if raw == nil {
		return NewState(), nil
	}
	return decode(raw)
}

func (d *DB) Save(s *State) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	err = d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketState).Put(keySnapshot, b)
	})
	if err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
