package gpu

import (
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/armorstand/internal/model"
)

// Attribute locations shared with the model shaders.
const (
	AttribPosition = 0
	AttribNormal   = 1
	AttribTexCoord = 2
	AttribColor    = 3
	AttribJoints   = 4
	AttribWeights  = 5
)

// GLDevice is a Device backed by the current OpenGL context.
type GLDevice struct{}

func glTarget(kind BufferKind) uint32 {
	switch kind {
	case BufferVertex:
		return gl.ARRAY_BUFFER
	case BufferIndex:
		return gl.ELEMENT_ARRAY_BUFFER
	default:
		return gl.UNIFORM_BUFFER
	}
}

func glUsage(kind BufferKind) uint32 {
	if kind == BufferUniform {
		return gl.DYNAMIC_DRAW
	}
	return gl.STATIC_DRAW
}

func dataPtr(data []byte) unsafe.Pointer {
	if len(data) == 0 {
		return nil
	}
	return gl.Ptr(data)
}

func (GLDevice) CreateBuffer(kind BufferKind, data []byte) uint32 {
	var id uint32
	gl.GenBuffers(1, &id)
	target := glTarget(kind)
	gl.BindBuffer(target, id)
	gl.BufferData(target, len(data), dataPtr(data), glUsage(kind))
	if kind != BufferIndex {
		gl.BindBuffer(target, 0)
	}
	return id
}

func (GLDevice) UpdateBuffer(kind BufferKind, id uint32, data []byte) {
	target := glTarget(kind)
	gl.BindBuffer(target, id)
	// Orphan the old storage so in-flight draws keep their copy.
	gl.BufferData(target, len(data), dataPtr(data), glUsage(kind))
	gl.BindBuffer(target, 0)
}

func (GLDevice) DeleteBuffer(id uint32) {
	gl.DeleteBuffers(1, &id)
}

func (GLDevice) CreateTexture(width, height int, pixels []byte) uint32 {
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, dataPtr(pixels))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return id
}

func (GLDevice) DeleteTexture(id uint32) {
	gl.DeleteTextures(1, &id)
}

func (GLDevice) CreateTextureBuffer(data []float32) (uint32, uint32) {
	var buf, tex uint32
	gl.GenBuffers(1, &buf)
	gl.BindBuffer(gl.TEXTURE_BUFFER, buf)
	var ptr unsafe.Pointer
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	gl.BufferData(gl.TEXTURE_BUFFER, len(data)*4, ptr, gl.STATIC_DRAW)
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_BUFFER, tex)
	gl.TexBuffer(gl.TEXTURE_BUFFER, gl.RGB32F, buf)
	gl.BindTexture(gl.TEXTURE_BUFFER, 0)
	gl.BindBuffer(gl.TEXTURE_BUFFER, 0)
	return tex, buf
}

func (GLDevice) DeleteTextureBuffer(tex, buf uint32) {
	gl.DeleteTextures(1, &tex)
	gl.DeleteBuffers(1, &buf)
}

func (GLDevice) CreateVertexArray(format model.VertexFormat, vbo, ibo uint32) uint32 {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)

	stride := int32(format.Stride())
	offset := 0
	attrib := func(loc uint32, size int32) {
		gl.VertexAttribPointerWithOffset(loc, size, gl.FLOAT, false, stride, uintptr(offset))
		gl.EnableVertexAttribArray(loc)
		offset += int(size) * 4
	}
	attrib(AttribPosition, 3)
	attrib(AttribNormal, 3)
	attrib(AttribTexCoord, 2)
	if format == model.VertexPositionNormalUVColor || format == model.VertexSkinned {
		attrib(AttribColor, 4)
	}
	if format == model.VertexSkinned {
		attrib(AttribJoints, 4)
		attrib(AttribWeights, 4)
	}

	if ibo != 0 {
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ibo)
	}
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return vao
}

func (GLDevice) DeleteVertexArray(id uint32) {
	gl.DeleteVertexArrays(1, &id)
}

// DrawMode returns the GL primitive topology of a mode.
func DrawMode(mode model.PrimitiveMode) uint32 {
	switch mode {
	case model.ModePoints:
		return gl.POINTS
	case model.ModeLines:
		return gl.LINES
	case model.ModeLineLoop:
		return gl.LINE_LOOP
	case model.ModeLineStrip:
		return gl.LINE_STRIP
	case model.ModeTriangleStrip:
		return gl.TRIANGLE_STRIP
	case model.ModeTriangleFan:
		return gl.TRIANGLE_FAN
	default:
		return gl.TRIANGLES
	}
}

// IndexType returns the GL element type of an index buffer.
func IndexType(t model.IndexType) uint32 {
	if t == model.IndexUint32 {
		return gl.UNSIGNED_INT
	}
	return gl.UNSIGNED_SHORT
}
