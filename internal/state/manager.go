// Package state keeps loaded model scenes and the per-entity instances
// displaying them.
package state

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long an unqueried instance is kept.
const DefaultTTL = 30 * time.Second

// selfAccess is the last access time of a self item exempt from expiry.
const selfAccess = -1

// PathSource resolves which model file an entity displays. Paths are
// relative to the model directory.
type PathSource interface {
	Path(id EntityID) (string, bool)
	SelfPath() (string, bool)
}

// Loader loads the model at path.
type Loader interface {
	Load(ctx context.Context, path string) (*CacheLoaded, error)
}

// Policy holds the self related behaviour of the manager.
type Policy struct {
	// TTL is the age after which an unqueried instance is evicted.
	TTL time.Duration
	// KeepSelfWarm exempts the self item from expiry while its path is current.
	KeepSelfWarm bool
	// ShowSelf makes Get return an item for the self entity at all.
	ShowSelf bool
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{TTL: DefaultTTL, KeepSelfWarm: true, ShowSelf: true}
}

// Options configures a Manager.
type Options struct {
	Paths PathSource
	// SelfID returns the local viewer's entity, false when there is none.
	SelfID func() (EntityID, bool)
	Loader Loader
	Policy Policy
	Logger *zap.Logger
}

// cacheEntry is a published load result. Loaders fill cache and never touch
// the entry again; held and seen belong to the render goroutine.
type cacheEntry struct {
	cache ModelCache
	// held is set once the manager took its reference on a loaded scene.
	held bool
	// seen is set once a Get used the entry or a Cleanup passed over it.
	// Unseen entries survive one Cleanup.
	seen bool
}

// adopt takes the manager reference on a loaded scene. Render goroutine only.
func (e *cacheEntry) adopt() {
	if l, ok := e.cache.(*CacheLoaded); ok && !e.held {
		l.Scene.Increase()
		e.held = true
	}
}

// release drops the manager reference, closing scenes that were never adopted.
func (e *cacheEntry) release() {
	e.adopt()
	if l, ok := e.cache.(*CacheLoaded); ok {
		l.Scene.Decrease()
	}
}

// Manager is a two level cache: path to shared scene, entity to instance.
// Get, Cleanup and Invalidate belong to the render goroutine. Preload may be
// called from any goroutine.
type Manager struct {
	paths  PathSource
	selfID func() (EntityID, bool)
	loader Loader
	policy Policy
	log    *zap.Logger

	mu     sync.Mutex // guards caches
	caches map[string]*cacheEntry
	loads  singleflight.Group

	items map[EntityID]Item
}

// New creates a manager.
func New(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	selfID := opts.SelfID
	if selfID == nil {
		selfID = func() (EntityID, bool) { return "", false }
	}
	return &Manager{
		paths:  opts.Paths,
		selfID: selfID,
		loader: opts.Loader,
		policy: opts.Policy,
		log:    log,
		caches: make(map[string]*cacheEntry),
		items:  make(map[EntityID]Item),
	}
}

func (m *Manager) isSelf(id EntityID) bool {
	self, ok := m.selfID()
	return ok && self == id
}

// GetSelf returns the item of the local viewer.
func (m *Manager) GetSelf(load bool) Item {
	self, ok := m.selfID()
	if !ok {
		return nil
	}
	return m.Get(self, nil, load)
}

// Get returns the item of id. An item bound to the current path is touched
// with time and returned. Otherwise a new item is created, but only when load
// is set and a timestamp is given; the self entity needs no timestamp.
// time is in nanoseconds.
func (m *Manager) Get(id EntityID, time *int64, load bool) Item {
	self := m.isSelf(id)
	if self && !m.policy.ShowSelf {
		return nil
	}
	path, ok := m.paths.Path(id)
	if !ok {
		return nil
	}

	access := time
	if self && (time == nil || m.policy.KeepSelfWarm) {
		v := int64(selfAccess)
		access = &v
	}

	if item, ok := m.items[id]; ok {
		if item.Path() == path {
			if mi, ok := item.(*ModelItem); ok && access != nil {
				mi.LastAccess = *access
			}
			return item
		}
		if access != nil {
			delete(m.items, id)
			releaseItem(item)
		}
	}
	if access == nil || !load {
		return nil
	}

	entry := m.loadCache(context.Background(), path)
	m.mu.Lock()
	entry.adopt()
	entry.seen = true
	m.mu.Unlock()

	var item Item
	switch c := entry.cache.(type) {
	case *CacheLoaded:
		mi := newModelItem(path, c, *access)
		m.log.Info("Model instance created",
			zap.String("entity", string(id)),
			zap.String("path", path),
			zap.String("controller", mi.Controller.String()))
		item = mi
	default:
		item = &FailedItem{path: path}
	}
	if prev, ok := m.items[id]; ok {
		releaseItem(prev)
	}
	m.items[id] = item
	return item
}

// Preload loads path into the cache without creating an item. The scene is
// referenced by the manager once the render goroutine adopts it in Get or
// Cleanup.
func (m *Manager) Preload(ctx context.Context, path string) ModelCache {
	return m.loadCache(ctx, path).cache
}

// loadCache returns the cache entry of path, loading it once.
func (m *Manager) loadCache(ctx context.Context, path string) *cacheEntry {
	m.mu.Lock()
	e, ok := m.caches[path]
	m.mu.Unlock()
	if ok {
		return e
	}

	v, _, _ := m.loads.Do(path, func() (any, error) {
		m.mu.Lock()
		e, ok := m.caches[path]
		m.mu.Unlock()
		if ok {
			return e, nil
		}

		start := time.Now()
		var cache ModelCache
		loaded, err := m.loader.Load(ctx, path)
		if err != nil {
			m.log.Warn("Model load failed", zap.String("path", path), zap.Error(err))
			cache = CacheFailed{Err: err}
		} else {
			cache = loaded
			m.log.Info("Model cached", zap.String("path", path), zap.Duration("duration", time.Since(start)))
		}

		e = &cacheEntry{cache: cache}
		m.mu.Lock()
		m.caches[path] = e
		m.mu.Unlock()
		return e, nil
	})
	return v.(*cacheEntry)
}

// Cleanup evicts items whose path changed or that were not queried for
// longer than the TTL, then drops caches no live item uses. A cache loaded
// since the previous Cleanup and not yet used by Get is kept for one more
// round. now is in nanoseconds.
func (m *Manager) Cleanup(now int64) {
	selfPath, hasSelfPath := m.paths.SelfPath()
	used := make(map[string]bool)

	for id, item := range m.items {
		if m.isSelf(id) && m.policy.KeepSelfWarm {
			if hasSelfPath && item.Path() == selfPath {
				continue
			}
			m.evict(id, item, "self path changed")
			continue
		}
		if path, ok := m.paths.Path(id); !ok || path != item.Path() {
			m.evict(id, item, "path changed")
			continue
		}
		mi, ok := item.(*ModelItem)
		if !ok {
			continue
		}
		if now-mi.LastAccess > int64(m.policy.TTL) {
			m.evict(id, item, "expired")
			continue
		}
		used[mi.path] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for path, e := range m.caches {
		e.adopt()
		if !e.seen {
			e.seen = true
			continue
		}
		if hasSelfPath && path == selfPath {
			continue
		}
		if !used[path] {
			delete(m.caches, path)
			e.release()
			m.log.Debug("Model cache evicted", zap.String("path", path))
		}
	}
}

func (m *Manager) evict(id EntityID, item Item, reason string) {
	delete(m.items, id)
	releaseItem(item)
	m.log.Debug("Model instance evicted",
		zap.String("entity", string(id)), zap.String("path", item.Path()), zap.String("reason", reason))
}

// Invalidate drops the cache of every path matched by match together with
// the items displaying it, so the next Get reloads from disk.
func (m *Manager) Invalidate(match func(path string) bool) {
	for id, item := range m.items {
		if match(item.Path()) {
			m.evict(id, item, "invalidated")
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for path, e := range m.caches {
		if match(path) {
			delete(m.caches, path)
			e.release()
			m.log.Info("Model cache invalidated", zap.String("path", path))
		}
	}
}

// Item returns the current item of id without touching it.
func (m *Manager) Item(id EntityID) (Item, bool) {
	item, ok := m.items[id]
	return item, ok
}

// Cache returns the cache entry of path.
func (m *Manager) Cache(path string) (ModelCache, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.caches[path]
	if !ok {
		return nil, false
	}
	return e.cache, true
}

// Close releases every item and cache.
func (m *Manager) Close() {
	for id, item := range m.items {
		delete(m.items, id)
		releaseItem(item)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for path, e := range m.caches {
		delete(m.caches, path)
		e.release()
	}
}
