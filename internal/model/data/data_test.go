package data

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/armorstand/pkg/cow"
	"github.com/Faultbox/armorstand/pkg/math"
)

func TestModelMatricesClear(t *testing.T) {
	b := NewModelMatricesBuffer(3)
	require.Len(t, b.Bytes(), 3*math.Mat4Size)
	b.SetMatrix(1, math.Translate(1, 2, 3))
	b.Clear()
	for i := 0; i < b.Len(); i++ {
		assert.Equal(t, math.Identity(), b.GetMatrix(i))
	}
}

func TestModelMatricesCopyIsolated(t *testing.T) {
	a := NewModelMatricesBuffer(4)
	for i := 0; i < a.Len(); i++ {
		a.SetMatrix(i, math.Translate(float32(i), 0, 0))
	}
	c := a.Copy()
	require.True(t, bytes.Equal(a.Bytes(), c.Bytes()))

	for i := 0; i < a.Len(); i++ {
		a.SetMatrix(i, math.Scale(9, 9, 9))
	}
	for i := 0; i < c.Len(); i++ {
		assert.Equal(t, math.Translate(float32(i), 0, 0), c.GetMatrix(i), "slot %d", i)
	}
}

func TestRenderSkinBufferRoundTrip(t *testing.T) {
	b := NewRenderSkinBuffer(2)
	m := math.FromTRS(math.Vec3{X: 1}, math.QuatFromAxisAngle(math.Vec3{Y: 1}, 0.5), math.Vec3One)
	b.SetMatrix(1, m)
	assert.Equal(t, m, b.GetMatrix(1))
	assert.Equal(t, math.Identity(), b.GetMatrix(0))
	assert.Equal(t, RenderSkinTypeID, b.TypeID())
}

func TestMorphWeights(t *testing.T) {
	b := NewMorphWeightsBuffer([]int{2, 3})
	b.SetWeight(1, 2, 0.5)
	b.SetWeight(0, 2, 1) // out of range
	b.SetWeight(5, 0, 1) // out of range

	assert.Equal(t, float32(0.5), b.Weight(1, 2))
	assert.Equal(t, []float32{0, 0}, b.Weights(0))

	c := b.Copy()
	b.Clear()
	assert.Equal(t, float32(0), b.Weight(1, 2))
	assert.Equal(t, float32(0.5), c.Weight(1, 2))
}

func TestCowSkinEditDoesNotLeak(t *testing.T) {
	owner := cow.New(NewRenderSkinBuffer(1))
	snapshot := owner.Snapshot()

	owner.Edit().SetMatrix(0, math.Translate(0, 5, 0))

	assert.Equal(t, math.Identity(), snapshot.Content().GetMatrix(0))
	assert.Equal(t, math.Translate(0, 5, 0), owner.Content().GetMatrix(0))
	snapshot.Release()
	owner.Release()
}
