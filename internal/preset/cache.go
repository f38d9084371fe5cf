package preset

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Cache memoizes parsed presets keyed by path and modification time, so a
// preset edited on disk is re-read on next use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	modTime time.Time
	size    int64
	preset  Preset
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Load returns the preset at path, parsing it only if it changed since the
// last call.
func (c *Cache) Load(path string) (Preset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return Preset{}, &ParseError{Path: path, Msg: "stat file", Err: err}
	}

	c.mu.Lock()
	if e, ok := c.entries[abs]; ok && e.modTime.Equal(fi.ModTime()) && e.size == fi.Size() {
		c.mu.Unlock()
		return e.preset, nil
	}
	c.mu.Unlock()

	p, err := Load(abs)
	if err != nil {
		return Preset{}, err
	}

	c.mu.Lock()
	if c.entries == nil {
		c.entries = make(map[string]cacheEntry)
	}
	c.entries[abs] = cacheEntry{modTime: fi.ModTime(), size: fi.Size(), preset: p}
	c.mu.Unlock()
	return p, nil
}

// Len reports the number of cached presets.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
