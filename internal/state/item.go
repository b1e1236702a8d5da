package state

import (
	"github.com/Faultbox/armorstand/internal/animation"
	"github.com/Faultbox/armorstand/internal/gltfload"
	"github.com/Faultbox/armorstand/internal/model"
)

// EntityID identifies an entity that may display a model.
type EntityID string

// ModelCache is either CacheFailed or *CacheLoaded.
type ModelCache interface {
	modelCache()
}

// CacheFailed records a load failure. The path is not retried until the
// cache entry is evicted or invalidated.
type CacheFailed struct {
	Err error
}

// CacheLoaded is a loaded model shared by every entity displaying its path.
// The cache holds one reference on Scene.
type CacheLoaded struct {
	Metadata     gltfload.Metadata
	Scene        *model.Scene
	Animations   []*animation.Animation
	AnimationSet animation.Set
}

func (CacheFailed) modelCache()  {}
func (*CacheLoaded) modelCache() {}

// Item is the per-entity state: *FailedItem or *ModelItem.
type Item interface {
	Path() string
}

// FailedItem is bound to a path whose model failed to load.
type FailedItem struct {
	path string
}

func (i *FailedItem) Path() string { return i.path }

// ModelItem is a live instance of a loaded model. The item holds one
// reference on Instance.
type ModelItem struct {
	path       string
	Metadata   gltfload.Metadata
	Animations []*animation.Animation
	// LastAccess is the last timestamp the item was queried with, in
	// nanoseconds. The self item keeps -1 while it is exempt from expiry.
	LastAccess int64
	Instance   *model.Instance
	Controller Controller
}

func (i *ModelItem) Path() string { return i.path }

func (i *ModelItem) release() { i.Instance.Decrease() }

func newModelItem(path string, cache *CacheLoaded, access int64) *ModelItem {
	inst := model.NewInstance(cache.Scene)
	inst.Increase()
	return &ModelItem{
		path:       path,
		Metadata:   cache.Metadata,
		Animations: cache.Animations,
		LastAccess: access,
		Instance:   inst,
		Controller: newController(cache),
	}
}

func releaseItem(item Item) {
	if m, ok := item.(*ModelItem); ok {
		m.release()
	}
}
