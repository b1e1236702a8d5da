package gpu

import (
	"encoding/binary"
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/armorstand/internal/model"
	"github.com/Faultbox/armorstand/internal/model/data"
	"github.com/Faultbox/armorstand/pkg/cow"
	"github.com/Faultbox/armorstand/pkg/math"
)

type fakeDevice struct {
	next     uint32
	buffers  map[uint32][]byte
	kinds    map[uint32]BufferKind
	textures map[uint32]bool
	arrays   map[uint32]model.VertexFormat
	updates  int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		buffers:  make(map[uint32][]byte),
		kinds:    make(map[uint32]BufferKind),
		textures: make(map[uint32]bool),
		arrays:   make(map[uint32]model.VertexFormat),
	}
}

func (d *fakeDevice) id() uint32 {
	d.next++
	return d.next
}

func (d *fakeDevice) CreateBuffer(kind BufferKind, b []byte) uint32 {
	id := d.id()
	d.buffers[id] = b
	d.kinds[id] = kind
	return id
}

func (d *fakeDevice) UpdateBuffer(kind BufferKind, id uint32, b []byte) {
	d.buffers[id] = b
	d.updates++
}

func (d *fakeDevice) DeleteBuffer(id uint32) {
	delete(d.buffers, id)
	delete(d.kinds, id)
}

func (d *fakeDevice) CreateTexture(width, height int, pixels []byte) uint32 {
	id := d.id()
	d.textures[id] = true
	return id
}

func (d *fakeDevice) DeleteTexture(id uint32) { delete(d.textures, id) }

func (d *fakeDevice) CreateTextureBuffer(values []float32) (uint32, uint32) {
	tex := d.id()
	d.textures[tex] = true
	return tex, d.CreateBuffer(BufferVertex, make([]byte, len(values)*4))
}

func (d *fakeDevice) DeleteTextureBuffer(tex, buf uint32) {
	d.DeleteTexture(tex)
	d.DeleteBuffer(buf)
}

func (d *fakeDevice) CreateVertexArray(format model.VertexFormat, vbo, ibo uint32) uint32 {
	id := d.id()
	d.arrays[id] = format
	return id
}

func (d *fakeDevice) DeleteVertexArray(id uint32) { delete(d.arrays, id) }

func floatAt(b []byte, offset int) float32 {
	return gomath.Float32frombits(binary.NativeEndian.Uint32(b[offset:]))
}

func TestUploadSkipsUnchangedContent(t *testing.T) {
	dev := newFakeDevice()
	u := NewUploader(dev)
	buf := cow.New(data.NewModelMatricesBuffer(2))
	defer buf.Release()

	id, err := Upload(u, "e1", 0, buf)
	require.NoError(t, err)
	again, err := Upload(u, "e1", 0, buf)
	require.NoError(t, err)

	assert.Equal(t, id, again)
	assert.Equal(t, 1, u.Uploads())
	assert.Equal(t, BufferUniform, dev.kinds[id])
	assert.True(t, buf.Shared(), "uploader keeps a snapshot")
}

func TestUploadAfterEditForks(t *testing.T) {
	dev := newFakeDevice()
	u := NewUploader(dev)
	buf := cow.New(data.NewModelMatricesBuffer(1))
	defer buf.Release()

	id, err := Upload(u, "e1", 0, buf)
	require.NoError(t, err)
	uploaded := dev.buffers[id]

	buf.Edit().SetMatrix(0, math.Translate(1, 2, 3))
	assert.Equal(t, float32(0), floatAt(uploaded, 12*4), "uploaded bytes untouched by the edit")

	_, err = Upload(u, "e1", 0, buf)
	require.NoError(t, err)
	assert.Equal(t, 2, u.Uploads())
	assert.Equal(t, 1, dev.updates)
	assert.Equal(t, float32(1), floatAt(dev.buffers[id], 12*4))
	assert.Equal(t, float32(3), floatAt(dev.buffers[id], 14*4))
}

func TestUploadSlotsAreIndependent(t *testing.T) {
	dev := newFakeDevice()
	u := NewUploader(dev)
	a := cow.New(data.NewRenderSkinBuffer(2))
	b := a.Snapshot()
	defer a.Release()
	defer b.Release()

	idA, err := Upload(u, "e1", 0, a)
	require.NoError(t, err)
	idB, err := Upload(u, "e2", 0, b)
	require.NoError(t, err)

	assert.NotEqual(t, idA, idB)
	assert.Equal(t, 2, u.Uploads())
}

type blob struct{ b []byte }

func (b *blob) TypeID() string { return "test:blob" }
func (b *blob) Copy() *blob    { return &blob{b: append([]byte(nil), b.b...)} }

func TestUploadUnknownType(t *testing.T) {
	u := NewUploader(newFakeDevice())
	buf := cow.New(&blob{b: []byte{1}})
	defer buf.Release()

	_, err := Upload(u, "e1", 0, buf)
	assert.ErrorIs(t, err, ErrNoEncoder)

	u.Register("test:blob", func(content any) ([]byte, error) {
		return content.(*blob).b, nil
	})
	_, err = Upload(u, "e1", 0, buf)
	assert.NoError(t, err)
}

func TestEncodeMorphWeights(t *testing.T) {
	weights := data.NewMorphWeightsBuffer([]int{1, 2})
	weights.SetWeight(0, 0, 0.25)
	weights.SetWeight(1, 1, 0.5)

	out, err := encodeMorphWeights(weights)
	require.NoError(t, err)
	require.Len(t, out, 3*Std140FloatStride)

	assert.Equal(t, float32(0.25), floatAt(out, 0))
	assert.Equal(t, float32(0), floatAt(out, Std140FloatStride))
	assert.Equal(t, float32(0.5), floatAt(out, weights.Offset(1)*Std140FloatStride+Std140FloatStride))

	_, err = encodeMorphWeights(&blob{})
	assert.Error(t, err)
}

func TestForgetReleasesSnapshots(t *testing.T) {
	dev := newFakeDevice()
	u := NewUploader(dev)
	first := cow.New(data.NewMorphWeightsBuffer([]int{1}))
	second := cow.New(data.NewMorphWeightsBuffer([]int{1}))
	defer first.Release()
	defer second.Release()

	_, err := Upload(u, "keep", 0, first)
	require.NoError(t, err)
	_, err = Upload(u, "drop", 0, second)
	require.NoError(t, err)

	u.Retain(func(owner string) bool { return owner == "keep" })
	assert.True(t, first.Shared())
	assert.False(t, second.Shared())
	assert.Len(t, dev.buffers, 1)

	u.Forget("keep")
	assert.False(t, first.Shared())
	assert.Empty(t, dev.buffers)
}

func newPrimitive() *model.Primitive {
	vb := model.NewVertexBuffer(model.VertexPositionNormalUV, 3, make([]byte, 3*model.VertexPositionNormalUV.Stride()))
	ib := model.NewIndexBuffer(model.IndexUint16, 3, []byte{0, 0, 1, 0, 2, 0})
	return &model.Primitive{
		Vertices:     3,
		Mode:         model.ModeTriangles,
		VertexBuffer: vb,
		IndexBuffer:  ib,
		Material:     model.DefaultMaterial(),
	}
}

func TestResourcesMeshUploadedOnce(t *testing.T) {
	dev := newFakeDevice()
	r := NewResources(dev)
	p := newPrimitive()

	mesh := r.Mesh(p)
	require.NotNil(t, mesh)
	assert.Same(t, mesh, r.Mesh(p))
	assert.True(t, mesh.Indexed)
	assert.Equal(t, int32(3), mesh.Count)
	assert.Equal(t, model.IndexUint16, mesh.IndexType)
	assert.Equal(t, model.VertexPositionNormalUV, dev.arrays[mesh.VAO])
	assert.Len(t, dev.buffers, 2)

	meshes, _ := r.Len()
	assert.Equal(t, 1, meshes)
}

func TestResourcesMorphTargets(t *testing.T) {
	dev := newFakeDevice()
	r := NewResources(dev)
	p := newPrimitive()
	p.Targets = &model.MorphTargets{
		Position: model.TargetBuffer{Targets: 1, Data: make([]float32, 9)},
		Groups:   []model.MorphTargetGroup{{Name: "smile", Position: 0, Color: -1, TexCoord: -1}},
	}

	mesh := r.Mesh(p)
	assert.NotZero(t, mesh.Targets)
	assert.Equal(t, int32(3), mesh.Vertices)
	assert.True(t, dev.textures[mesh.Targets])

	r.Close()
	assert.Empty(t, dev.textures)
	assert.Empty(t, dev.buffers)
}

func TestResourcesTextureFallback(t *testing.T) {
	dev := newFakeDevice()
	r := NewResources(dev)

	white := r.Texture(nil)
	assert.Equal(t, white, r.Texture(model.WhiteTexture()))
	assert.Len(t, dev.textures, 1)
}

func TestResourcesSweep(t *testing.T) {
	dev := newFakeDevice()
	r := NewResources(dev)
	p := newPrimitive()
	tex := model.NewTexture("skin", 1, 1, []byte{1, 2, 3, 4})
	tex.Increase()

	r.Mesh(p)
	r.Texture(tex)
	r.Texture(nil)
	assert.Equal(t, 0, r.Sweep(), "nothing closed yet")

	p.VertexBuffer.Increase()
	p.VertexBuffer.Decrease()
	tex.Decrease()

	assert.Equal(t, 2, r.Sweep())
	assert.Empty(t, dev.arrays)
	assert.Empty(t, dev.buffers)
	assert.Len(t, dev.textures, 1, "white texture stays")

	r.Close()
	assert.Empty(t, dev.textures)
}
