// Package store persists what the terminal UI restores between runs.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"smithy/internal/types"
)

var bucketUIState = []byte("ui_state")

// UIStateStore keeps one UIState per workspace.
type UIStateStore interface {
	Load(ctx context.Context, workspace string) (*types.UIState, error)
	Save(ctx context.Context, state *types.UIState) error
	Close() error
}

type bboltUIStateStore struct {
	db *bolt.DB
}

// OpenBbolt opens the state database at path. It fails after a short wait
// when another process holds the database.
func OpenBbolt(path string) (UIStateStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("state db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketUIState)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltUIStateStore{db: db}, nil
}

func (s *bboltUIStateStore) Load(ctx context.Context, workspace string) (*types.UIState, error) {
	state := &types.UIState{Workspace: workspace}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUIState)
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(workspace))
		if len(raw) == 0 {
			return nil
		}
		return json.Unmarshal(raw, state)
	})
	if err != nil {
		return nil, err
	}
	state.Workspace = workspace
	return state, nil
}

func (s *bboltUIStateStore) Save(ctx context.Context, state *types.UIState) error {
	if state == nil {
		return errors.New("state is required")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketUIState)
		if err != nil {
			return err
		}
		return b.Put([]byte(state.Workspace), data)
	})
}

func (s *bboltUIStateStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Open returns the bbolt store at dbPath, or the JSON file store at
// fallbackPath when the database cannot be opened.
func Open(dbPath, fallbackPath string) (UIStateStore, error) {
	store, err := OpenBbolt(dbPath)
	if err == nil {
		return store, nil
	}
	if strings.TrimSpace(fallbackPath) == "" {
		return nil, err
	}
	return NewFileUIStateStore(fallbackPath), nil
}
