package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/armorstand/internal/gltfload"
)

const minimalGLTF = `{"asset":{"version":"2.0"}}`

func glbHeader() []byte {
	// magic, version 2, total length 12
	return []byte{'g', 'l', 'T', 'F', 2, 0, 0, 0, 12, 0, 0, 0}
}

func write(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "b.gltf"), []byte(minimalGLTF))
	write(t, filepath.Join(dir, "sub", "a.vrm"), glbHeader())
	write(t, filepath.Join(dir, "c.glb"), glbHeader())
	write(t, filepath.Join(dir, "broken.glb"), []byte("not a model"))
	write(t, filepath.Join(dir, "notes.txt"), []byte(minimalGLTF))
	write(t, filepath.Join(dir, "animations", "walk.gltf"), []byte(minimalGLTF))
	write(t, filepath.Join(dir, "b.gltf.animations", "idle.gltf"), []byte(minimalGLTF))

	c := NewCatalog(dir, "animations")
	entries, err := c.Scan()
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, "b.gltf", entries[0].Path)
	assert.Equal(t, gltfload.FormatGLTF, entries[0].Format)
	assert.Equal(t, "c.glb", entries[1].Path)
	assert.Equal(t, gltfload.FormatGLB, entries[1].Format)
	assert.Equal(t, "sub/a.vrm", entries[2].Path)
	assert.Equal(t, gltfload.FormatVRM, entries[2].Format)
}

func TestScanReusesProbes(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "m.gltf"), []byte(minimalGLTF))

	c := NewCatalog(dir)
	_, err := c.Scan()
	require.NoError(t, err)
	_, err = c.Scan()
	require.NoError(t, err)

	hits, misses := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	c.Invalidate("m.gltf")
	_, err = c.Scan()
	require.NoError(t, err)
	_, misses = c.Stats()
	assert.Equal(t, 2, misses)
}

func TestLookup(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "sub", "m.glb"), glbHeader())

	c := NewCatalog(dir)
	entry, err := c.Lookup(filepath.Join("sub", "m.glb"))
	require.NoError(t, err)
	assert.Equal(t, "sub/m.glb", entry.Path)
	assert.Equal(t, gltfload.FormatGLB, entry.Format)
	assert.Equal(t, int64(12), entry.Size)

	_, err = c.Lookup("missing.glb")
	assert.Error(t, err)
}

func TestCache(t *testing.T) {
	c := NewCache()
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", Entry{Path: "a"})
	e, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "a", e.Path)

	hits, misses := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	c.Clear()
	hits, misses = c.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
}
