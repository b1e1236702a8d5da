package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewerPaths(t *testing.T) {
	p := &viewerPaths{}
	_, ok := p.SelfPath()
	assert.False(t, ok, "no model selected")

	p.Set("alicia.vrm")
	path, ok := p.SelfPath()
	assert.True(t, ok)
	assert.Equal(t, "alicia.vrm", path)

	_, ok = p.Path(mirrorEntity)
	assert.False(t, ok, "mirror disabled by default")

	assert.True(t, p.ToggleMirror())
	path, ok = p.Path(mirrorEntity)
	assert.True(t, ok)
	assert.Equal(t, "alicia.vrm", path)

	_, ok = p.Path("someone")
	assert.False(t, ok)
}
