// Package cache keeps the loaded and derived telemetry table for the
// lifetime of the process, reloading only when the source file changes.
package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ev-telemetry-dashboard/internal/models"
	"ev-telemetry-dashboard/internal/pipeline"
)

// Identity distinguishes one version of a source file from another.
type Identity struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// Same reports whether two identities name the same file version.
func (i Identity) Same(o Identity) bool {
	return i.Path == o.Path && i.Size == o.Size && i.ModTime.Equal(o.ModTime)
}

// Loader produces a derived table from a file.
type Loader func(path string) (*pipeline.Loaded, error)

// Entry is one cached load. Table and Session are read-only once stored.
type Entry struct {
	Identity Identity
	Table    *models.Table
	Session  *models.Session
	Missing  bool
}

// TableCache holds at most one entry. loadMu serializes Get so a slow load
// of an older file version can never replace a newer entry; mu guards only
// the entry pointer so Current never waits on a load.
type TableCache struct {
	load   Loader
	loadMu sync.Mutex
	mu     sync.Mutex
	entry  *Entry
}

// New creates a cache around a loader.
func New(load Loader) *TableCache {
	return &TableCache{load: load}
}

// NewWithFormat creates a cache that loads files with pipeline.LoadFile.
func NewWithFormat(format string) *TableCache {
	return New(func(path string) (*pipeline.Loaded, error) {
		return pipeline.LoadFile(path, format, time.Time{})
	})
}

// Get returns the entry for path, reloading when its identity changed.
// A missing file yields an entry with Missing set instead of an error.
func (c *TableCache) Get(path string) (*Entry, error) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if errors.Is(err, os.ErrNotExist) {
		missing := &Entry{Identity: Identity{Path: abs}, Missing: true}
		c.swap(missing)
		return missing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}

	id := Identity{Path: abs, ModTime: info.ModTime(), Size: info.Size()}
	if cur := c.current(); cur != nil && !cur.Missing && cur.Identity.Same(id) {
		return cur, nil
	}

	loaded, err := c.load(abs)
	if err != nil {
		return nil, err
	}
	entry := &Entry{Identity: id, Table: loaded.Table, Session: loaded.Session}
	c.swap(entry)
	slog.Debug("telemetry cache refreshed", "path", abs, "size", id.Size, "mod_time", id.ModTime)
	return entry, nil
}

// Current returns the cached entry without touching the file system.
func (c *TableCache) Current() *Entry {
	return c.current()
}

// Invalidate drops the cached entry so the next Get reloads. It waits for
// an in-flight load to finish.
func (c *TableCache) Invalidate() {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	c.swap(nil)
}

func (c *TableCache) current() *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry
}

func (c *TableCache) swap(e *Entry) {
	c.mu.Lock()
	c.entry = e
	c.mu.Unlock()
}
