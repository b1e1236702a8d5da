package data

import "github.com/Faultbox/armorstand/pkg/math"

// RenderSkinBuffer holds the joint matrices of one skin.
type RenderSkinBuffer struct {
	matrixSlots
}

// NewRenderSkinBuffer creates a buffer of jointSize identity matrices.
func NewRenderSkinBuffer(jointSize int) *RenderSkinBuffer {
	return &RenderSkinBuffer{matrixSlots: newMatrixSlots(jointSize)}
}

func (b *RenderSkinBuffer) TypeID() string { return RenderSkinTypeID }

// JointSize returns the number of joints.
func (b *RenderSkinBuffer) JointSize() int { return b.slots }

func (b *RenderSkinBuffer) SetMatrix(index int, m math.Mat4) { b.set(index, m) }

func (b *RenderSkinBuffer) GetMatrix(index int) math.Mat4 { return b.get(index) }

func (b *RenderSkinBuffer) Clear() { b.clear() }

func (b *RenderSkinBuffer) Bytes() []byte { return b.buf }

func (b *RenderSkinBuffer) Copy() *RenderSkinBuffer {
	return &RenderSkinBuffer{matrixSlots: b.clone()}
}
