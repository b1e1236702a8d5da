package renderer

import (
	"encoding/binary"
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/armorstand/internal/model"
	"github.com/Faultbox/armorstand/pkg/math"
)

func vertexData(positions ...math.Vec3) []byte {
	stride := model.VertexPositionNormalUV.Stride()
	out := make([]byte, len(positions)*stride)
	for i, p := range positions {
		b := out[i*stride:]
		binary.NativeEndian.PutUint32(b[0:], gomath.Float32bits(p.X))
		binary.NativeEndian.PutUint32(b[4:], gomath.Float32bits(p.Y))
		binary.NativeEndian.PutUint32(b[8:], gomath.Float32bits(p.Z))
	}
	return out
}

func TestBounds(t *testing.T) {
	vb := model.NewVertexBuffer(model.VertexPositionNormalUV, 2, vertexData(
		math.Vec3{X: -1, Y: 0, Z: 0},
		math.Vec3{X: 1, Y: 2, Z: 0.5},
	))
	rest := model.IdentityDecomposed()
	rest.Translation = math.Vec3{Y: 1}
	root := &model.Node{
		ID:        "root",
		Name:      "root",
		Transform: rest,
		Components: []model.Component{&model.PrimitiveComponent{
			Primitive:             &model.Primitive{Vertices: 2, Mode: model.ModePoints, VertexBuffer: vb, Material: model.DefaultMaterial()},
			SkinIndex:             -1,
			MorphedPrimitiveIndex: -1,
		}},
	}
	scene, err := model.NewScene(model.SceneParts{Root: root, Nodes: []*model.Node{root}})
	require.NoError(t, err)

	inst := model.NewInstance(scene)
	inst.Increase()
	defer inst.Decrease()
	inst.UpdateRenderData()

	lo, hi, ok := Bounds(inst)
	require.True(t, ok)
	assert.Equal(t, math.Vec3{X: -1, Y: 1, Z: 0}, lo)
	assert.Equal(t, math.Vec3{X: 1, Y: 3, Z: 0.5}, hi)
}

func TestBoundsEmpty(t *testing.T) {
	root := &model.Node{ID: "root", Name: "root", Transform: model.IdentityDecomposed()}
	scene, err := model.NewScene(model.SceneParts{Root: root, Nodes: []*model.Node{root}})
	require.NoError(t, err)

	inst := model.NewInstance(scene)
	inst.Increase()
	defer inst.Decrease()

	_, _, ok := Bounds(inst)
	assert.False(t, ok)
}
