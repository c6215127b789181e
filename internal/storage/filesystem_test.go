package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteAndPath(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	key, err := store.Write(context.Background(), "renders/out.avi", []byte("payload"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if key != "renders/out.avi" {
		t.Fatalf("key = %s", key)
	}
	data, err := os.ReadFile(filepath.Join(store.BasePath(), "renders", "out.avi"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("content = %q", data)
	}

	path, err := store.Path("renders/next.avi")
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if !strings.HasPrefix(path, store.BasePath()) {
		t.Fatalf("path %s escapes base %s", path, store.BasePath())
	}
}

func TestSanitizeKeyRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	for _, key := range []string{"", "  ", "../escape", "../../etc/passwd"} {
		if _, err := store.Write(context.Background(), key, []byte("x")); err == nil {
			t.Fatalf("key %q accepted", key)
		}
	}
	// Leading slashes and backslashes are normalized, not rejected.
	key, err := store.Write(context.Background(), "/renders\\sub/out.avi", []byte("x"))
	if err != nil {
		t.Fatalf("normalized key rejected: %v", err)
	}
	if key != "renders/sub/out.avi" {
		t.Fatalf("key = %s", key)
	}
}

func TestWriteHonorsContext(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Write(ctx, "renders/out.avi", []byte("x")); err == nil {
		t.Fatalf("expected context error")
	}
}
