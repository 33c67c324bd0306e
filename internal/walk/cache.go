package walk

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
)

// TTL is the cache entry lifetime, per spec §3 FSCacheEntry ("5 minutes from
// first read").
const TTL = 5 * time.Minute

// Cache holds one FSCacheEntry per directory (spec §3/§4.2): sorted children
// plus a read timestamp. Entries are invalidated by TTL expiry, an explicit
// Clear/Invalidate call, or a content-hash mismatch produced by a mutation
// this process made to the directory (spec: "invalidated on explicit refresh
// or directory mutation through this process").
//
// The content hash uses the teacher's declared-but-never-wired zeebo/xxh3
// dependency (FileDescriptor.ContentHash names it in a comment) to fingerprint
// a directory's sorted entry names+sizes cheaply, so InvalidateIfChanged can
// detect a self-inflicted mutation without re-stat'ing every child against a
// separate bookkeeping structure.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry

	lastActivity time.Time
}

type cacheEntry struct {
	children []Entry
	readAt   time.Time
	hash     uint64
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*cacheEntry)}
}

// Get returns the cached children for dir if present and not expired.
func (c *Cache) Get(dir string) ([]Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[dir]
	if !ok {
		return nil, false
	}
	if time.Since(e.readAt) > TTL {
		return nil, false
	}
	return e.children, true
}

// Put stores children for dir and records the read timestamp and content
// hash, and marks cache activity for ActiveSince (spec §4.2).
func (c *Cache) Put(dir string, children []Entry) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[dir] = &cacheEntry{
		children: children,
		readAt:   now,
		hash:     hashEntries(children),
	}
	c.lastActivity = now
}

// InvalidateIfChanged re-hashes freshChildren against the cached hash for dir
// and evicts the entry if they differ, modelling "directory mutation through
// this process" (e.g. the TUI wrote a new file into a watched directory).
func (c *Cache) InvalidateIfChanged(dir string, freshChildren []Entry) {
	h := hashEntries(freshChildren)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[dir]
	if ok && e.hash != h {
		delete(c.entries, dir)
	}
}

// Invalidate drops the cached entry for a single directory.
func (c *Cache) Invalidate(dir string) {
	c.mu.Lock()
	delete(c.entries, dir)
	c.mu.Unlock()
}

// Clear drops every cached entry (explicit refresh).
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

// ActiveSince reports whether any Put occurred after t (spec §4.2/§4.5
// activity check). The TUI does not call it; its file-list re-render is
// driven by its own dirty flags.
func (c *Cache) ActiveSince(t time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastActivity.After(t)
}

func hashEntries(entries []Entry) uint64 {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Name)
		b.WriteByte('|')
		b.WriteString(strconv.FormatInt(e.Size, 10))
		b.WriteByte('|')
		if e.IsDir {
			b.WriteByte('d')
		} else {
			b.WriteByte('f')
		}
		b.WriteByte(';')
	}
	return xxh3.HashString(b.String())
}
