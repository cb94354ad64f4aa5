package editor

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
)

func TestCommandOpenerTemplate(t *testing.T) {
	workspace := t.TempDir()
	opener, err := NewCommandOpener("code -r --goto={path}", workspace, nil)
	if err != nil {
		t.Fatalf("NewCommandOpener: %v", err)
	}
	var gotName string
	var gotArgs []string
	opener.start = func(name string, args ...string) error {
		gotName = name
		gotArgs = args
		return nil
	}
	if err := opener.Open(context.Background(), "src/a.go"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := []string{"-r", "--goto=" + filepath.Join(workspace, "src", "a.go")}
	if gotName != "code" || !reflect.DeepEqual(gotArgs, want) {
		t.Fatalf("unexpected command: %s %#v", gotName, gotArgs)
	}
}

func TestCommandOpenerAppendsPath(t *testing.T) {
	opener, err := NewCommandOpener("subl", "", nil)
	if err != nil {
		t.Fatalf("NewCommandOpener: %v", err)
	}
	got := opener.Args("/tmp/x.txt")
	if !reflect.DeepEqual(got, []string{"subl", "/tmp/x.txt"}) {
		t.Fatalf("unexpected args: %#v", got)
	}
}

func TestCommandOpenerRejectsPathOutsideWorkspace(t *testing.T) {
	opener, err := NewCommandOpener("code", t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewCommandOpener: %v", err)
	}
	started := false
	opener.start = func(string, ...string) error {
		started = true
		return nil
	}
	if err := opener.Open(context.Background(), filepath.Join("..", "elsewhere.go")); err == nil {
		t.Fatalf("expected escape to be rejected")
	}
	if started {
		t.Fatalf("expected no command for rejected path")
	}
}

func TestCommandOpenerRejectsEmpty(t *testing.T) {
	if _, err := NewCommandOpener("   ", "", nil); err == nil {
		t.Fatalf("expected error for empty template")
	}
	opener, _ := NewCommandOpener("code", "", nil)
	opener.start = func(string, ...string) error { return nil }
	if err := opener.Open(context.Background(), " "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
