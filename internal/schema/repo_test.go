package schema

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestRepository_RoundTrip(t *testing.T) {
	repo, err := NewRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}

	want := orderTree()
	if err := repo.SaveTree("north", "press", want); err != nil {
		t.Fatalf("SaveTree returned error: %v", err)
	}
	got, err := repo.LoadTree("north", "press")
	if err != nil {
		t.Fatalf("LoadTree returned error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("loaded tree = %#v, want %#v", got, want)
	}
}

func TestRepository_MissingFileYieldsEmptyTree(t *testing.T) {
	repo, err := NewRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}
	tree, err := repo.LoadTree("north", "press")
	if err != nil {
		t.Fatalf("LoadTree returned error: %v", err)
	}
	if tree.Factory != "north" || tree.System != "press" || len(tree.MessageTypes) != 0 {
		t.Fatalf("empty tree = %#v, want fresh north/press tree", tree)
	}
}

func TestRepository_PathSanitizesNames(t *testing.T) {
	repo, err := NewRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}
	path := repo.Path("north/../etc", "press system")
	base := filepath.Base(path)
	if strings.ContainsAny(base, "/ ") {
		t.Fatalf("Path base = %q, want sanitized name", base)
	}
	if !strings.HasSuffix(base, ".json") {
		t.Fatalf("Path base = %q, want .json suffix", base)
	}
}

func TestRepository_SaveRejectsInvalidTree(t *testing.T) {
	repo, err := NewRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}
	bad := &Tree{MessageTypes: []MessageType{{Name: "A"}, {Name: "A"}}}
	if err := repo.SaveTree("north", "press", bad); !errors.Is(err, ErrExists) {
		t.Fatalf("SaveTree(bad) error = %v, want ErrExists", err)
	}
	if _, err := os.Stat(repo.Path("north", "press")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("rejected save left a file behind")
	}
}

func TestRepository_CorruptFileFailsLoad(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewRepository(dir)
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}
	if err := os.WriteFile(repo.Path("north", "press"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := repo.LoadTree("north", "press"); err == nil {
		t.Fatalf("LoadTree returned nil error, want parse error")
	}
}

func TestWatch_KeepsTreeOnFailedReload(t *testing.T) {
	repo, err := NewRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}
	store := NewStore(orderTree())
	rev := store.Revision()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	watchErr := make(chan error, 1)
	go func() { watchErr <- Watch(ctx, repo, store, "north", "press") }()

	time.Sleep(100 * time.Millisecond)

	// A non-atomic or partial write must not clobber the published tree.
	if err := os.WriteFile(repo.Path("north", "press"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := store.Revision(); got != rev {
		t.Fatalf("revision = %d, want unchanged %d after failed reload", got, rev)
	}

	// A later atomic save is still picked up.
	next := orderTree()
	next.MessageTypes[0].Name = "Renamed"
	if err := repo.SaveTree("north", "press", next); err != nil {
		t.Fatalf("SaveTree returned error: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		tree, _ := store.Snapshot()
		if _, ok := tree.Get("Renamed"); ok {
			cancel()
			<-watchErr
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("store never recovered after a valid save")
}

func TestWatch_ReloadsStoreOnFileChange(t *testing.T) {
	repo, err := NewRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}
	store := NewStore(nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	watchErr := make(chan error, 1)
	go func() { watchErr <- Watch(ctx, repo, store, "north", "press") }()

	// Give the watcher a moment to register before the first write.
	time.Sleep(100 * time.Millisecond)

	if err := repo.SaveTree("north", "press", orderTree()); err != nil {
		t.Fatalf("SaveTree returned error: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		tree, _ := store.Snapshot()
		if _, ok := tree.Get("Order"); ok {
			cancel()
			<-watchErr
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("store never picked up the saved schema")
}
