package model

import (
	"github.com/Faultbox/armorstand/internal/model/data"
	"github.com/Faultbox/armorstand/pkg/cow"
	"github.com/Faultbox/armorstand/pkg/math"
	"github.com/Faultbox/armorstand/pkg/refcount"
)

// Instance is the mutable pose of one entity displaying a scene.
//
// An instance belongs to the render goroutine. Its buffers are copy-on-write:
// a RenderData snapshot taken for drawing stays valid while the instance keeps
// animating.
type Instance struct {
	refcount.Count

	scene      *Scene
	transforms []NodeTransform
	world      []math.Mat4
	cameras    []CameraTransform

	matrices *cow.Buffer[*data.ModelMatricesBuffer]
	skins    []*cow.Buffer[*data.RenderSkinBuffer]
	morphs   *cow.Buffer[*data.MorphWeightsBuffer]
}

// NewInstance creates an instance in rest pose and takes a reference on the
// scene. The instance starts unreferenced; the first holder calls Increase.
func NewInstance(scene *Scene) *Instance {
	scene.Increase()
	inst := &Instance{
		scene:      scene,
		transforms: make([]NodeTransform, len(scene.Nodes)),
		world:      make([]math.Mat4, len(scene.Nodes)),
		cameras:    make([]CameraTransform, len(scene.Cameras)),
		matrices:   cow.New(data.NewModelMatricesBuffer(len(scene.PrimitiveComponents))),
		skins:      make([]*cow.Buffer[*data.RenderSkinBuffer], len(scene.Skins)),
	}
	for i, n := range scene.Nodes {
		inst.transforms[i] = newNodeTransform(n.Transform)
		inst.world[i] = math.Identity()
	}
	for i, c := range scene.Cameras {
		inst.cameras[i] = c.Transform.Clone()
	}
	for i, s := range scene.Skins {
		inst.skins[i] = cow.New(data.NewRenderSkinBuffer(s.JointSize()))
	}

	groups := make([]int, len(scene.MorphedPrimitives))
	for i, c := range scene.MorphedPrimitives {
		groups[i] = c.Primitive.TargetGroups()
	}
	weights := data.NewMorphWeightsBuffer(groups)
	for i, c := range scene.MorphedPrimitives {
		for g, group := range c.Primitive.Targets.Groups {
			weights.SetWeight(i, g, group.Weight)
		}
	}
	inst.morphs = cow.New(weights)

	inst.Init("model instance", inst.release)
	return inst
}

func (i *Instance) release() {
	i.matrices.Release()
	for _, s := range i.skins {
		s.Release()
	}
	i.morphs.Release()
	i.scene.Decrease()
}

// Scene returns the scene the instance displays.
func (i *Instance) Scene() *Scene { return i.scene }

// SetTransformDecomposed edits slot id of node index through fn.
// Out of range nodes are ignored.
func (i *Instance) SetTransformDecomposed(index int, id TransformID, fn func(*Decomposed)) {
	if index < 0 || index >= len(i.transforms) {
		return
	}
	i.transforms[index].Update(id, fn)
}

// Transform returns the slot stack of node index.
func (i *Instance) Transform(index int) *NodeTransform {
	return &i.transforms[index]
}

// ResetTransforms returns every node to its rest pose.
func (i *Instance) ResetTransforms() {
	for idx, n := range i.scene.Nodes {
		i.transforms[idx] = newNodeTransform(n.Transform)
	}
}

// SetGroupWeight sets the weight of morph target group of a morphed primitive.
func (i *Instance) SetGroupWeight(morphedPrimitive, group int, weight float32) {
	i.morphs.Edit().SetWeight(morphedPrimitive, group, weight)
}

// GroupWeight returns the current weight of a morph target group.
func (i *Instance) GroupWeight(morphedPrimitive, group int) float32 {
	return i.morphs.Content().Weight(morphedPrimitive, group)
}

// CameraTransforms returns the per-instance camera states, indexed like Scene.Cameras.
func (i *Instance) CameraTransforms() []CameraTransform { return i.cameras }

// WorldMatrix returns the world matrix of node index computed by the last
// UpdateRenderData.
func (i *Instance) WorldMatrix(index int) math.Mat4 { return i.world[index] }

// UpdateRenderData resolves influences, computes world matrices and writes
// the model matrices and skin buffers.
func (i *Instance) UpdateRenderData() {
	i.applyInfluences()

	for idx := range i.transforms {
		i.world[idx] = i.transforms[idx].Matrix()
	}
	i.updateWorld(i.scene.Root, math.Identity())

	if len(i.scene.PrimitiveComponents) > 0 {
		matrices := i.matrices.Edit()
		for _, c := range i.scene.PrimitiveComponents {
			matrices.SetMatrix(c.MatrixSlot, i.world[c.NodeIndex])
		}
	}

	if len(i.scene.Joints) > 0 {
		edited := make([]*data.RenderSkinBuffer, len(i.skins))
		for _, j := range i.scene.Joints {
			buf := edited[j.Joint.SkinIndex]
			if buf == nil {
				buf = i.skins[j.Joint.SkinIndex].Edit()
				edited[j.Joint.SkinIndex] = buf
			}
			skin := i.scene.Skins[j.Joint.SkinIndex]
			buf.SetMatrix(j.Joint.JointIndex, i.world[j.NodeIndex].Mul(skin.InverseBind(j.Joint.JointIndex)))
		}
	}
}

func (i *Instance) updateWorld(n *Node, parent math.Mat4) {
	world := parent.Mul(i.transforms[n.Index].Matrix())
	i.world[n.Index] = world
	for _, c := range n.Children {
		i.updateWorld(c, world)
	}
}

// poseDelta returns the local pose of node index relative to its rest
// transform: the absolute slot as written by animations, followed by the
// animation slot.
func (i *Instance) poseDelta(index int) Decomposed {
	rest := i.scene.Nodes[index].Transform
	abs, _ := i.transforms[index].Get(TransformAbsolute)
	anim, _ := i.transforms[index].Get(TransformAnimation)
	return Decomposed{
		Translation: abs.Translation.Sub(rest.Translation).Add(anim.Translation),
		Rotation:    rest.Rotation.Conjugate().Mul(abs.Rotation).Mul(anim.Rotation).Normalize(),
		Scale:       math.Vec3One,
	}
}

func (i *Instance) applyInfluences() {
	for _, n := range i.scene.Nodes {
		for _, c := range n.Components {
			inf, ok := c.(*InfluenceTargetComponent)
			if !ok {
				continue
			}
			src := i.poseDelta(inf.SourceNodeIndex)
			i.transforms[n.Index].Update(inf.Target, func(d *Decomposed) {
				*d = IdentityDecomposed()
				if inf.InfluenceTranslation {
					d.Translation = src.Translation.Scale(inf.Influence)
				}
				if inf.InfluenceRotation {
					d.Rotation = math.QuatIdentity().Slerp(src.Rotation, inf.Influence).Normalize()
				}
			})
		}
	}
}

// RenderData is a frame capture of the instance buffers.
type RenderData struct {
	Matrices *cow.Buffer[*data.ModelMatricesBuffer]
	Skins    []*cow.Buffer[*data.RenderSkinBuffer]
	Morphs   *cow.Buffer[*data.MorphWeightsBuffer]
	Cameras  []CameraTransform
}

// Snapshot captures the current buffers for drawing. The caller must Release it.
func (i *Instance) Snapshot() *RenderData {
	rd := &RenderData{
		Matrices: i.matrices.Snapshot(),
		Skins:    make([]*cow.Buffer[*data.RenderSkinBuffer], len(i.skins)),
		Morphs:   i.morphs.Snapshot(),
		Cameras:  make([]CameraTransform, len(i.cameras)),
	}
	for idx, s := range i.skins {
		rd.Skins[idx] = s.Snapshot()
	}
	for idx, c := range i.cameras {
		rd.Cameras[idx] = c.Clone()
	}
	return rd
}

// Release drops the buffer references held by the capture.
func (rd *RenderData) Release() {
	rd.Matrices.Release()
	for _, s := range rd.Skins {
		s.Release()
	}
	rd.Morphs.Release()
}
