// Package assets indexes the model files of a directory.
package assets

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Faultbox/armorstand/internal/gltfload"
)

// Entry is one model file of the catalog.
type Entry struct {
	// Path is relative to the catalog directory, slash separated.
	Path    string
	Format  gltfload.Format
	Size    int64
	ModTime time.Time
}

// Catalog lists the model files under a directory. Probe results are cached
// per path and reused while the file size and modification time are unchanged.
type Catalog struct {
	dir   string
	skip  map[string]bool
	cache *Cache
}

// NewCatalog creates a catalog of dir. Directories whose base name is in
// skipDirs (the shared animation directory, typically) are not descended.
func NewCatalog(dir string, skipDirs ...string) *Catalog {
	skip := make(map[string]bool, len(skipDirs))
	for _, d := range skipDirs {
		skip[strings.ToLower(d)] = true
	}
	return &Catalog{dir: dir, skip: skip, cache: NewCache()}
}

// Dir returns the catalog directory.
func (c *Catalog) Dir() string { return c.dir }

var modelExts = map[string]bool{".gltf": true, ".glb": true, ".vrm": true}

// Scan walks the directory and returns every recognised model, sorted by path.
// Files with a model extension that fail probing are left out.
func (c *Catalog) Scan() ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != c.dir && (c.skip[strings.ToLower(d.Name())] || strings.HasSuffix(d.Name(), ".animations")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !modelExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(c.dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		entry, ok := c.cache.Get(rel)
		if !ok || entry.Size != info.Size() || !entry.ModTime.Equal(info.ModTime()) {
			format, err := gltfload.Probe(path)
			if err != nil {
				c.cache.Delete(rel)
				return nil
			}
			entry = Entry{Path: rel, Format: format, Size: info.Size(), ModTime: info.ModTime()}
			c.cache.Set(rel, entry)
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Lookup returns the entry of one model path relative to the directory.
func (c *Catalog) Lookup(rel string) (Entry, error) {
	rel = filepath.ToSlash(filepath.Clean(rel))
	path := filepath.Join(c.dir, filepath.FromSlash(rel))
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, err
	}
	if entry, ok := c.cache.Get(rel); ok && entry.Size == info.Size() && entry.ModTime.Equal(info.ModTime()) {
		return entry, nil
	}
	format, err := gltfload.Probe(path)
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{Path: rel, Format: format, Size: info.Size(), ModTime: info.ModTime()}
	c.cache.Set(rel, entry)
	return entry, nil
}

// Invalidate drops the cached probe of one path.
func (c *Catalog) Invalidate(rel string) {
	c.cache.Delete(filepath.ToSlash(rel))
}

// Stats returns probe cache statistics.
func (c *Catalog) Stats() (hits, misses int) {
	return c.cache.Stats()
}

// Cache is an in-memory map of probed entries.
type Cache struct {
	data map[string]Entry
	mu   sync.RWMutex

	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]Entry),
	}
}

// Get retrieves an entry.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return e, ok
}

// Set stores an entry.
func (c *Cache) Set(key string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = e
}

// Delete removes an entry.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Clear empties the cache and resets statistics.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]Entry)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
