package main

import (
	"sync"

	"github.com/Faultbox/armorstand/internal/state"
)

const (
	selfEntity   state.EntityID = "viewer"
	mirrorEntity state.EntityID = "mirror"
)

// viewerPaths maps the viewer entities to the model currently shown.
// The mirror entity displays the same model as the viewer while enabled.
type viewerPaths struct {
	mu     sync.RWMutex
	path   string
	mirror bool
}

func (p *viewerPaths) Set(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.path = path
}

func (p *viewerPaths) Current() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.path
}

func (p *viewerPaths) ToggleMirror() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mirror = !p.mirror
	return p.mirror
}

func (p *viewerPaths) Path(id state.EntityID) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.path == "" {
		return "", false
	}
	switch id {
	case selfEntity:
		return p.path, true
	case mirrorEntity:
		return p.path, p.mirror
	default:
		return "", false
	}
}

func (p *viewerPaths) SelfPath() (string, bool) {
	return p.Path(selfEntity)
}
