// Package gpu moves model data into GPU objects.
//
// Per-instance buffers are uploaded through an Uploader that dispatches on the
// copy-on-write type tag; static scene resources (vertex, index and texture
// data) are uploaded once by Resources. Both talk to a Device, which GLDevice
// implements on an OpenGL 4.1 core context.
package gpu

import "github.com/Faultbox/armorstand/internal/model"

// BufferKind is the binding target of a buffer object.
type BufferKind int

const (
	BufferUniform BufferKind = iota
	BufferVertex
	BufferIndex
)

func (k BufferKind) String() string {
	switch k {
	case BufferUniform:
		return "uniform"
	case BufferVertex:
		return "vertex"
	case BufferIndex:
		return "index"
	default:
		return "unknown"
	}
}

// Device creates and updates GPU objects. Every method must be called on the
// goroutine that owns the graphics context.
type Device interface {
	CreateBuffer(kind BufferKind, data []byte) uint32
	UpdateBuffer(kind BufferKind, id uint32, data []byte)
	DeleteBuffer(id uint32)

	CreateTexture(width, height int, pixels []byte) uint32
	DeleteTexture(id uint32)

	// CreateTextureBuffer exposes vec3 float data to shaders as a buffer
	// texture and returns the texture and its backing buffer.
	CreateTextureBuffer(data []float32) (tex, buf uint32)
	DeleteTextureBuffer(tex, buf uint32)

	// CreateVertexArray binds the attribute layout of format over vbo, plus
	// ibo when it is non-zero.
	CreateVertexArray(format model.VertexFormat, vbo, ibo uint32) uint32
	DeleteVertexArray(id uint32)
}
