package keyframe

import (
	"encoding/binary"
	"fmt"
	gomath "math"

	"github.com/qmuntal/gltf"

	"github.com/Faultbox/armorstand/pkg/math"
)

// BufferView is a region of a binary buffer.
type BufferView struct {
	Data       []byte // whole underlying buffer
	ByteOffset int
	ByteLength int
	ByteStride int // 0 means tightly packed
}

// Accessor describes typed items inside a buffer view.
// A nil View yields zero-filled items.
type Accessor struct {
	View          *BufferView
	ByteOffset    int
	ComponentType gltf.ComponentType
	Type          gltf.AccessorType
	Normalized    bool
	Count         int
	// Stride overrides the view stride when non-zero. Used to read one
	// element out of interleaved groups (cubic spline values, morph weights).
	Stride int
}

// ItemLength returns the byte size of one item.
func (a Accessor) ItemLength() int {
	return int(a.ComponentType.ByteSize() * a.Type.Components())
}

// ItemStride returns the distance in bytes between consecutive items.
func (a Accessor) ItemStride() int {
	if a.Stride != 0 {
		return a.Stride
	}
	if a.View != nil && a.View.ByteStride != 0 {
		return a.View.ByteStride
	}
	return a.ItemLength()
}

// TotalByteLength returns the bytes spanned from the first to the end of the last item.
func (a Accessor) TotalByteLength() int {
	if a.Count == 0 {
		return 0
	}
	return (a.Count-1)*a.ItemStride() + a.ItemLength()
}

// Cursor decodes components of a single item. It is reused between reads;
// getters must not keep it after returning.
type Cursor struct {
	data          []byte
	pos           int
	componentType gltf.ComponentType
	normalized    bool
}

func (c *Cursor) reset(data []byte) {
	c.data = data
	c.pos = 0
}

// Float decodes the next component as a float, applying glTF normalization rules.
func (c *Cursor) Float() float32 {
	d := c.data[c.pos:]
	switch c.componentType {
	case gltf.ComponentFloat:
		c.pos += 4
		return gomath.Float32frombits(binary.LittleEndian.Uint32(d))
	case gltf.ComponentByte:
		c.pos++
		v := float32(int8(d[0]))
		if c.normalized {
			return max(v/127, -1)
		}
		return v
	case gltf.ComponentUbyte:
		c.pos++
		v := float32(d[0])
		if c.normalized {
			return v / 255
		}
		return v
	case gltf.ComponentShort:
		c.pos += 2
		v := float32(int16(binary.LittleEndian.Uint16(d)))
		if c.normalized {
			return max(v/32767, -1)
		}
		return v
	case gltf.ComponentUshort:
		c.pos += 2
		v := float32(binary.LittleEndian.Uint16(d))
		if c.normalized {
			return v / 65535
		}
		return v
	default:
		c.pos += 4
		return float32(binary.LittleEndian.Uint32(d))
	}
}

// Uint decodes the next component as an unsigned integer. Float components
// are truncated.
func (c *Cursor) Uint() uint32 {
	d := c.data[c.pos:]
	switch c.componentType {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		c.pos++
		return uint32(d[0])
	case gltf.ComponentShort, gltf.ComponentUshort:
		c.pos += 2
		return uint32(binary.LittleEndian.Uint16(d))
	case gltf.ComponentFloat:
		c.pos += 4
		return uint32(gomath.Float32frombits(binary.LittleEndian.Uint32(d)))
	default:
		c.pos += 4
		return binary.LittleEndian.Uint32(d)
	}
}

// AccessorData is Data backed by a strided binary accessor.
type AccessorData[T any] struct {
	elements   int
	frames     int
	zeroFilled bool
	itemLength int
	itemStride int
	region     []byte
	cursor     Cursor
	getter     func(c *Cursor, out *T)
}

// NewAccessor creates accessor backed keyframe data with elements items per frame.
func NewAccessor[T any](acc Accessor, elements int, getter func(c *Cursor, out *T)) (*AccessorData[T], error) {
	if elements <= 0 || acc.Count%elements != 0 {
		return nil, fmt.Errorf("%w: data size %d for elements %d", ErrInvalidLayout, acc.Count, elements)
	}
	d := &AccessorData[T]{
		elements:   elements,
		frames:     acc.Count / elements,
		zeroFilled: acc.View == nil,
		itemLength: acc.ItemLength(),
		itemStride: acc.ItemStride(),
		cursor:     Cursor{componentType: acc.ComponentType, normalized: acc.Normalized},
		getter:     getter,
	}
	if d.zeroFilled {
		d.region = make([]byte, d.itemLength)
		return d, nil
	}

	start := acc.View.ByteOffset + acc.ByteOffset
	end := start + acc.TotalByteLength()
	if start < 0 || end > len(acc.View.Data) {
		return nil, fmt.Errorf("%w: accessor range [%d, %d) outside buffer of %d bytes",
			ErrInvalidLayout, start, end, len(acc.View.Data))
	}
	d.region = acc.View.Data[start:end:end]
	return d, nil
}

// Frames returns the number of frames.
func (d *AccessorData[T]) Frames() int { return d.frames }

// Elements returns the number of values per frame.
func (d *AccessorData[T]) Elements() int { return d.elements }

// Get writes the values of frame index into out.
func (d *AccessorData[T]) Get(index int, out []T) {
	pos := index * d.itemStride * d.elements
	for i := 0; i < d.elements; i++ {
		if d.zeroFilled {
			d.cursor.reset(d.region)
		} else {
			d.cursor.reset(d.region[pos : pos+d.itemLength])
			pos += d.itemStride
		}
		d.getter(&d.cursor, &out[i])
	}
}

// AccessorVec3 decodes VEC3 items.
func AccessorVec3(acc Accessor, elements int) (*AccessorData[math.Vec3], error) {
	return NewAccessor(acc, elements, func(c *Cursor, out *math.Vec3) {
		out.X = c.Float()
		out.Y = c.Float()
		out.Z = c.Float()
	})
}

// AccessorQuat decodes VEC4 items as (x, y, z, w) rotations.
func AccessorQuat(acc Accessor, elements int) (*AccessorData[math.Quat], error) {
	return NewAccessor(acc, elements, func(c *Cursor, out *math.Quat) {
		out.X = c.Float()
		out.Y = c.Float()
		out.Z = c.Float()
		out.W = c.Float()
	})
}

// AccessorFloat decodes SCALAR items.
func AccessorFloat(acc Accessor, elements int) (*AccessorData[float32], error) {
	return NewAccessor(acc, elements, func(c *Cursor, out *float32) {
		*out = c.Float()
	})
}
