package renderer

import (
	"encoding/binary"
	gomath "math"

	"github.com/Faultbox/armorstand/internal/model"
	"github.com/Faultbox/armorstand/pkg/math"
)

// Bounds returns the world space box of every vertex position of an instance,
// using the node world matrices of the last UpdateRenderData. Skinning is
// ignored. ok is false when the instance draws nothing.
func Bounds(inst *model.Instance) (lo, hi math.Vec3, ok bool) {
	inf := float32(gomath.Inf(1))
	lo = math.Vec3{X: inf, Y: inf, Z: inf}
	hi = lo.Scale(-1)

	for _, c := range inst.Scene().PrimitiveComponents {
		vb := c.Primitive.VertexBuffer
		world := inst.WorldMatrix(c.NodeIndex)
		stride := vb.Format.Stride()
		for v := 0; v < vb.Vertices; v++ {
			b := vb.Data[v*stride:]
			p := world.TransformPoint(math.Vec3{
				X: gomath.Float32frombits(binary.NativeEndian.Uint32(b[0:])),
				Y: gomath.Float32frombits(binary.NativeEndian.Uint32(b[4:])),
				Z: gomath.Float32frombits(binary.NativeEndian.Uint32(b[8:])),
			})
			lo = math.Vec3{X: min(lo.X, p.X), Y: min(lo.Y, p.Y), Z: min(lo.Z, p.Z)}
			hi = math.Vec3{X: max(hi.X, p.X), Y: max(hi.Y, p.Y), Z: max(hi.Z, p.Z)}
			ok = true
		}
	}
	return lo, hi, ok
}
