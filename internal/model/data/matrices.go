// Package data holds the per-instance buffers uploaded to the GPU each frame.
// Every buffer is cow.Content so instances can share them until one writes.
package data

import (
	"encoding/binary"
	gomath "math"

	"github.com/Faultbox/armorstand/pkg/math"
)

const (
	ModelMatricesTypeID = "armorstand:model_matrices_buffer"
	RenderSkinTypeID    = "armorstand:render_skin_buffer"
	MorphWeightsTypeID  = "armorstand:morph_weights_buffer"
)

var identityBytes = func() []byte {
	b := make([]byte, math.Mat4Size)
	putMatrix(b, math.Identity())
	return b
}()

// matrixSlots is a flat native-order array of 4x4 float matrices.
type matrixSlots struct {
	slots int
	buf   []byte
}

func newMatrixSlots(slots int) matrixSlots {
	m := matrixSlots{slots: slots, buf: make([]byte, slots*math.Mat4Size)}
	m.clear()
	return m
}

func (m *matrixSlots) clear() {
	for i := 0; i < m.slots; i++ {
		copy(m.buf[i*math.Mat4Size:], identityBytes)
	}
}

func (m *matrixSlots) set(index int, src math.Mat4) {
	putMatrix(m.buf[index*math.Mat4Size:(index+1)*math.Mat4Size], src)
}

func (m *matrixSlots) get(index int) math.Mat4 {
	var out math.Mat4
	b := m.buf[index*math.Mat4Size : (index+1)*math.Mat4Size]
	for i := range out {
		out[i] = gomath.Float32frombits(binary.NativeEndian.Uint32(b[i*4:]))
	}
	return out
}

func (m *matrixSlots) clone() matrixSlots {
	c := matrixSlots{slots: m.slots, buf: make([]byte, len(m.buf))}
	copy(c.buf, m.buf)
	return c
}

func putMatrix(b []byte, src math.Mat4) {
	for i, v := range src {
		binary.NativeEndian.PutUint32(b[i*4:], gomath.Float32bits(v))
	}
}

// ModelMatricesBuffer holds one world matrix per primitive-bearing node.
type ModelMatricesBuffer struct {
	matrixSlots
}

// NewModelMatricesBuffer creates a buffer of primitiveNodes identity matrices.
func NewModelMatricesBuffer(primitiveNodes int) *ModelMatricesBuffer {
	return &ModelMatricesBuffer{matrixSlots: newMatrixSlots(primitiveNodes)}
}

func (b *ModelMatricesBuffer) TypeID() string { return ModelMatricesTypeID }

// Len returns the number of matrix slots.
func (b *ModelMatricesBuffer) Len() int { return b.slots }

// SetMatrix writes the matrix at slot index.
func (b *ModelMatricesBuffer) SetMatrix(index int, m math.Mat4) { b.set(index, m) }

// GetMatrix reads the matrix at slot index.
func (b *ModelMatricesBuffer) GetMatrix(index int) math.Mat4 { return b.get(index) }

// Clear resets every slot to identity.
func (b *ModelMatricesBuffer) Clear() { b.clear() }

// Bytes returns the backing memory in native byte order, ready for upload.
func (b *ModelMatricesBuffer) Bytes() []byte { return b.buf }

// Copy returns an isolated deep copy.
func (b *ModelMatricesBuffer) Copy() *ModelMatricesBuffer {
	return &ModelMatricesBuffer{matrixSlots: b.clone()}
}
