package gpu

import "github.com/Faultbox/armorstand/internal/model"

// Mesh is the GPU side of one primitive.
type Mesh struct {
	VAO uint32
	// Targets is a buffer texture of position deltas, target after target.
	Targets   uint32
	Vertices  int32
	Count     int32
	Mode      model.PrimitiveMode
	Indexed   bool
	IndexType model.IndexType
}

type meshKey struct {
	vertices *model.VertexBuffer
	indices  *model.IndexBuffer
}

type meshEntry struct {
	mesh *Mesh
	vbo  uint32
	ibo  uint32
	// position morph targets, zero when the primitive has none
	targetTex uint32
	targetBuf uint32
}

// Resources uploads static scene data once and frees the GPU copy after the
// CPU resource is closed.
type Resources struct {
	dev      Device
	meshes   map[meshKey]*meshEntry
	textures map[*model.Texture]uint32
}

// NewResources creates an empty resource cache.
func NewResources(dev Device) *Resources {
	return &Resources{
		dev:      dev,
		meshes:   make(map[meshKey]*meshEntry),
		textures: make(map[*model.Texture]uint32),
	}
}

// Mesh returns the uploaded mesh of a primitive.
func (r *Resources) Mesh(p *model.Primitive) *Mesh {
	key := meshKey{vertices: p.VertexBuffer, indices: p.IndexBuffer}
	if e, ok := r.meshes[key]; ok {
		return e.mesh
	}

	p.VertexBuffer.CheckOpen()
	e := &meshEntry{vbo: r.dev.CreateBuffer(BufferVertex, p.VertexBuffer.Data)}
	mesh := &Mesh{Count: int32(p.Vertices), Vertices: int32(p.VertexBuffer.Vertices), Mode: p.Mode}
	if p.IndexBuffer != nil {
		p.IndexBuffer.CheckOpen()
		e.ibo = r.dev.CreateBuffer(BufferIndex, p.IndexBuffer.Data)
		mesh.Indexed = true
		mesh.IndexType = p.IndexBuffer.Type
		mesh.Count = int32(p.IndexBuffer.Indices)
	}
	mesh.VAO = r.dev.CreateVertexArray(p.VertexBuffer.Format, e.vbo, e.ibo)
	if p.Targets != nil && p.Targets.Position.Targets > 0 {
		e.targetTex, e.targetBuf = r.dev.CreateTextureBuffer(p.Targets.Position.Data)
		mesh.Targets = e.targetTex
	}
	e.mesh = mesh
	r.meshes[key] = e
	return mesh
}

// Texture returns the uploaded texture. A nil texture maps to the white one.
func (r *Resources) Texture(t *model.Texture) uint32 {
	if t == nil {
		t = model.WhiteTexture()
	}
	if id, ok := r.textures[t]; ok {
		return id
	}
	t.CheckOpen()
	id := r.dev.CreateTexture(t.Width, t.Height, t.Pixels)
	r.textures[t] = id
	return id
}

// Sweep deletes the GPU objects of closed resources and returns how many
// were deleted.
func (r *Resources) Sweep() int {
	n := 0
	for key, e := range r.meshes {
		if key.vertices.Closed() || (key.indices != nil && key.indices.Closed()) {
			r.deleteMesh(e)
			delete(r.meshes, key)
			n++
		}
	}
	for t, id := range r.textures {
		if t.Closed() {
			r.dev.DeleteTexture(id)
			delete(r.textures, t)
			n++
		}
	}
	return n
}

// Len returns the number of cached meshes and textures.
func (r *Resources) Len() (meshes, textures int) {
	return len(r.meshes), len(r.textures)
}

// Close deletes every GPU object.
func (r *Resources) Close() {
	for key, e := range r.meshes {
		r.deleteMesh(e)
		delete(r.meshes, key)
	}
	for t, id := range r.textures {
		r.dev.DeleteTexture(id)
		delete(r.textures, t)
	}
}

func (r *Resources) deleteMesh(e *meshEntry) {
	r.dev.DeleteVertexArray(e.mesh.VAO)
	r.dev.DeleteBuffer(e.vbo)
	if e.ibo != 0 {
		r.dev.DeleteBuffer(e.ibo)
	}
	if e.targetTex != 0 {
		r.dev.DeleteTextureBuffer(e.targetTex, e.targetBuf)
	}
}
