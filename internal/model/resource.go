package model

import "github.com/Faultbox/armorstand/pkg/refcount"

// Texture is decoded RGBA8 image data.
type Texture struct {
	refcount.Count
	Name   string
	Width  int
	Height int
	Pixels []byte
}

// NewTexture creates an unreferenced texture.
func NewTexture(name string, width, height int, pixels []byte) *Texture {
	t := &Texture{Name: name, Width: width, Height: height, Pixels: pixels}
	t.Init("texture "+name, func() { t.Pixels = nil })
	return t
}

var whiteTexture = func() *Texture {
	t := NewTexture("white", 1, 1, []byte{0xff, 0xff, 0xff, 0xff})
	t.Increase() // pinned for the lifetime of the process
	return t
}()

// WhiteTexture returns the shared 1x1 texture used for empty texture slots.
// It is pinned: scenes do not count their uses of it, so scenes can be built
// on any goroutine.
func WhiteTexture() *Texture { return whiteTexture }

// VertexFormat describes the interleaved attribute layout of a vertex buffer.
type VertexFormat int

const (
	// VertexPositionNormalUV: vec3 position, vec3 normal, vec2 uv.
	VertexPositionNormalUV VertexFormat = iota
	// VertexPositionNormalUVColor adds a vec4 color.
	VertexPositionNormalUVColor
	// VertexSkinned adds vec4 color, uvec4 joints (as floats) and vec4 weights.
	VertexSkinned
)

// Stride returns the byte size of one vertex.
func (f VertexFormat) Stride() int {
	switch f {
	case VertexPositionNormalUVColor:
		return (3 + 3 + 2 + 4) * 4
	case VertexSkinned:
		return (3 + 3 + 2 + 4 + 4 + 4) * 4
	default:
		return (3 + 3 + 2) * 4
	}
}

// VertexBuffer is interleaved vertex data.
type VertexBuffer struct {
	refcount.Count
	Format   VertexFormat
	Vertices int
	Data     []byte
}

// NewVertexBuffer creates an unreferenced vertex buffer.
func NewVertexBuffer(format VertexFormat, vertices int, data []byte) *VertexBuffer {
	b := &VertexBuffer{Format: format, Vertices: vertices, Data: data}
	b.Init("vertex buffer", func() { b.Data = nil })
	return b
}

// IndexType is the element type of an index buffer.
type IndexType int

const (
	IndexUint16 IndexType = iota
	IndexUint32
)

// IndexBuffer is triangle index data.
type IndexBuffer struct {
	refcount.Count
	Type    IndexType
	Indices int
	Data    []byte
}

// NewIndexBuffer creates an unreferenced index buffer.
func NewIndexBuffer(typ IndexType, count int, data []byte) *IndexBuffer {
	b := &IndexBuffer{Type: typ, Indices: count, Data: data}
	b.Init("index buffer", func() { b.Data = nil })
	return b
}

// TargetBuffer holds per-vertex deltas of every morph target for one attribute,
// target after target.
type TargetBuffer struct {
	Targets int
	Data    []float32
}

// MorphTargetGroup combines the attribute targets moved by one weight.
// An index of -1 means the group does not move that attribute.
type MorphTargetGroup struct {
	Name     string
	Position int
	Color    int
	TexCoord int
	Weight   float32 // default weight
}

// MorphTargets holds the blend shape data of one primitive.
type MorphTargets struct {
	Position TargetBuffer
	Color    TargetBuffer
	TexCoord TargetBuffer
	Groups   []MorphTargetGroup
}

// PrimitiveMode is the topology of a primitive (glTF enum values).
type PrimitiveMode int

const (
	ModePoints        PrimitiveMode = 0
	ModeLines         PrimitiveMode = 1
	ModeLineLoop      PrimitiveMode = 2
	ModeLineStrip     PrimitiveMode = 3
	ModeTriangles     PrimitiveMode = 4
	ModeTriangleStrip PrimitiveMode = 5
	ModeTriangleFan   PrimitiveMode = 6
)

// Primitive is one drawable mesh part.
type Primitive struct {
	Vertices     int
	Mode         PrimitiveMode
	VertexBuffer *VertexBuffer
	IndexBuffer  *IndexBuffer // nil for non-indexed draws
	Material     Material
	Targets      *MorphTargets
}

// TargetGroups returns the number of morph target groups.
func (p *Primitive) TargetGroups() int {
	if p.Targets == nil {
		return 0
	}
	return len(p.Targets.Groups)
}

// acquire takes a reference on every resource of the primitive.
func (p *Primitive) acquire() {
	p.VertexBuffer.Increase()
	if p.IndexBuffer != nil {
		p.IndexBuffer.Increase()
	}
	for _, t := range p.Material.Textures() {
		if t != nil && t != whiteTexture {
			t.Increase()
		}
	}
}

func (p *Primitive) release() {
	for _, t := range p.Material.Textures() {
		if t != nil && t != whiteTexture {
			t.Decrease()
		}
	}
	if p.IndexBuffer != nil {
		p.IndexBuffer.Decrease()
	}
	p.VertexBuffer.Decrease()
}
