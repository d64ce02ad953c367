package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Makepad-fr/tada-sync/internal/model"
)

// JSON-backed snapshot store. One file per key, always written whole,
// under Dir/snapshots so Dir can be shared with logs and credentials.
// It is a backstop only; the remote list is authoritative.

// DefaultKey is the key the list snapshot is stored under.
const DefaultKey = "todoData"

const (
	ext    = ".json"
	subdir = "snapshots"
)

// Cache keeps full-list snapshots under Dir. A nil *Cache ignores every call.
type Cache struct {
	Dir string
	Key string
}

// New returns a cache rooted at dir using key (DefaultKey if empty).
func New(dir, key string) *Cache {
	if strings.TrimSpace(key) == "" {
		key = DefaultKey
	}
	return &Cache{Dir: dir, Key: key}
}

// Path returns the snapshot file for the cache's key.
func (c *Cache) Path() string {
	key := c.Key
	if key == "" {
		key = DefaultKey
	}
	return filepath.Join(c.root(), key+ext)
}

func (c *Cache) root() string { return filepath.Join(c.Dir, subdir) }

// Load reads the snapshot. A missing snapshot is an empty list.
func (c *Cache) Load() ([]model.Item, error) {
	if c == nil {
		return []model.Item{}, nil
	}
	b, err := os.ReadFile(c.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Item{}, nil
		}
		return nil, fmt.Errorf("read cache: %w", err)
	}
	var items []model.Item
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

// Save replaces the snapshot with items.
func (c *Cache) Save(items []model.Item) error {
	if c == nil {
		return nil
	}
	if items == nil {
		items = []model.Item{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := os.MkdirAll(c.root(), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(c.root(), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.Path()); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Clear removes every snapshot the cache wrote, not just the list key.
// Other files in Dir are left alone.
func (c *Cache) Clear() error {
	if c == nil {
		return nil
	}
	entries, err := os.ReadDir(c.root())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		if err := os.Remove(filepath.Join(c.root(), e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", e.Name(), err)
		}
	}
	return nil
}
