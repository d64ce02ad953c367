package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Makepad-fr/tada-sync/internal/model"
)

func TestLoadMissingIsEmpty(t *testing.T) {
	c := New(t.TempDir(), "")
	items, err := c.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", items)
	}
}

func TestSaveThenLoad(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, "")
	want := []model.Item{{ID: "1", Title: "buy milk"}, {ID: "2", Title: "walk dog", Completed: true}}
	if err := c.Save(want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if c.Path() != filepath.Join(dir, "snapshots", DefaultKey+".json") {
		t.Errorf("Path: %s", c.Path())
	}
	if _, err := os.Stat(c.Path()); err != nil {
		t.Fatalf("snapshot not at default key: %v", err)
	}

	got, err := c.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 2 || got[1].Title != "walk dog" || !got[1].Completed {
		t.Fatalf("Load: got %+v", got)
	}
}

func TestClearRemovesAllSnapshots(t *testing.T) {
	dir := t.TempDir()
	list := New(dir, "")
	other := New(dir, "other")
	if err := list.Save([]model.Item{{ID: "1", Title: "a"}}); err != nil {
		t.Fatal(err)
	}
	if err := other.Save(nil); err != nil {
		t.Fatal(err)
	}
	keep := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(keep, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := list.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	items, err := list.Load()
	if err != nil || len(items) != 0 {
		t.Fatalf("after Clear: items=%+v err=%v", items, err)
	}
	if _, err := os.Stat(other.Path()); !os.IsNotExist(err) {
		t.Errorf("other key survived Clear")
	}
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("non-snapshot file removed: %v", err)
	}
}

func TestClearKeepsSharedDirFiles(t *testing.T) {
	dir := t.TempDir()
	creds := filepath.Join(dir, "credentials.json")
	if err := os.WriteFile(creds, []byte(`{"token":"abc"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	c := New(dir, "")
	if err := c.Save([]model.Item{{ID: "1", Title: "a"}}); err != nil {
		t.Fatal(err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := os.Stat(creds); err != nil {
		t.Errorf("credentials removed by Clear: %v", err)
	}
	if _, err := os.Stat(c.Path()); !os.IsNotExist(err) {
		t.Errorf("snapshot survived Clear")
	}
}

func TestClearMissingDir(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "nope"), "")
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear on missing dir: %v", err)
	}
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *Cache
	if err := c.Save([]model.Item{{ID: "1"}}); err != nil {
		t.Errorf("Save: %v", err)
	}
	if err := c.Clear(); err != nil {
		t.Errorf("Clear: %v", err)
	}
	items, err := c.Load()
	if err != nil || len(items) != 0 {
		t.Errorf("Load: %+v %v", items, err)
	}
}

func TestLoadCorrupt(t *testing.T) {
	c := New(t.TempDir(), "")
	if err := os.MkdirAll(filepath.Dir(c.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Load(); err == nil {
		t.Fatal("expected error for corrupt snapshot")
	}
}
