package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"smithy/internal/types"
)

// FileUIStateStore keeps every workspace's state in one JSON file. It is
// the fallback when the database is locked by another smithy process.
type FileUIStateStore struct {
	path string
	mu   sync.Mutex
}

func NewFileUIStateStore(path string) *FileUIStateStore {
	return &FileUIStateStore{path: path}
}

func (s *FileUIStateStore) Load(_ context.Context, workspace string) (*types.UIState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.read()
	if err != nil {
		return nil, err
	}
	state := all[workspace]
	if state == nil {
		state = &types.UIState{}
	}
	state.Workspace = workspace
	return state, nil
}

func (s *FileUIStateStore) Save(_ context.Context, state *types.UIState) error {
	if state == nil {
		return errors.New("state is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.read()
	if err != nil {
		return err
	}
	all[state.Workspace] = state
	return s.write(all)
}

func (s *FileUIStateStore) Close() error { return nil }

// read treats a missing or empty file as no saved state.
func (s *FileUIStateStore) read() (map[string]*types.UIState, error) {
	all := map[string]*types.UIState{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(data) == 0) {
		return all, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	return all, nil
}

// write replaces the file through a rename so a crash never leaves it
// half written.
func (s *FileUIStateStore) write(all map[string]*types.UIState) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".ui-state-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}
