package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"smithy/internal/types"
)

func TestFileUIStateStoreToleratesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui_state.json")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	store := NewFileUIStateStore(path)
	state, err := store.Load(context.Background(), "/ws")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if state.ActiveDialogID != "" || state.Workspace != "/ws" {
		t.Fatalf("unexpected state: %#v", state)
	}
}

func TestFileUIStateStoreKeepsOtherWorkspaces(t *testing.T) {
	ctx := context.Background()
	store := NewFileUIStateStore(filepath.Join(t.TempDir(), "nested", "ui_state.json"))
	if err := store.Save(ctx, &types.UIState{Workspace: "/a", ActiveDialogID: "d1"}); err != nil {
		t.Fatalf("Save a: %v", err)
	}
	if err := store.Save(ctx, &types.UIState{Workspace: "/b", ActiveDialogID: "d2"}); err != nil {
		t.Fatalf("Save b: %v", err)
	}
	state, err := store.Load(ctx, "/a")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if state.ActiveDialogID != "d1" {
		t.Fatalf("expected first workspace kept, got %#v", state)
	}
	entries, err := os.ReadDir(filepath.Dir(store.path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp files cleaned up, got %d entries", len(entries))
	}
}

func TestFileUIStateStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui_state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := NewFileUIStateStore(path).Load(context.Background(), "/ws"); err == nil {
		t.Fatalf("expected corrupt file error")
	}
}
