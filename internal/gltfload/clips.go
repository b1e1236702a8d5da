package gltfload

import (
	"context"
	"fmt"
	"strconv"

	"github.com/qmuntal/gltf"

	"github.com/Faultbox/armorstand/internal/animation"
	"github.com/Faultbox/armorstand/internal/model"
	"github.com/Faultbox/armorstand/pkg/keyframe"
)

// LoadClips reads only the animations of a glTF or VRM file. The clips carry
// node names and humanoid tags so they can be bound to other models.
func LoadClips(ctx context.Context, path string) ([]*animation.Clip, error) {
	if _, err := Probe(path); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return buildClips(doc, humanoidTags(doc))
}

func buildClips(doc *gltf.Document, tags [][]model.HumanoidTag) ([]*animation.Clip, error) {
	clips := make([]*animation.Clip, 0, len(doc.Animations))
	for i, a := range doc.Animations {
		clip := &animation.Clip{Name: a.Name}
		if clip.Name == "" {
			clip.Name = "animation " + strconv.Itoa(i)
		}
		for c, ch := range a.Channels {
			if err := addChannel(doc, tags, a, ch, clip); err != nil {
				return nil, fmt.Errorf("animation %d channel %d: %w", i, c, err)
			}
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

func addChannel(doc *gltf.Document, tags [][]model.HumanoidTag, a *gltf.Animation, ch *gltf.Channel, clip *animation.Clip) error {
	node, ok := indexOf(ch.Target.Node)
	if !ok || node >= len(doc.Nodes) {
		return nil
	}
	s, ok := indexOf(ch.Sampler)
	if !ok || s >= len(a.Samplers) {
		return fmt.Errorf("sampler out of range")
	}
	sampler := a.Samplers[s]
	in, ok := indexOf(sampler.Input)
	if !ok {
		return fmt.Errorf("sampler has no input")
	}
	out, ok := indexOf(sampler.Output)
	if !ok {
		return fmt.Errorf("sampler has no output")
	}

	inAcc, err := accessorOf(doc, in)
	if err != nil {
		return err
	}
	times, err := keyframe.AccessorFloat(inAcc, 1)
	if err != nil {
		return err
	}
	frames := times.Frames()
	outAcc, err := accessorOf(doc, out)
	if err != nil {
		return err
	}

	interp := animation.InterpolationLinear
	switch sampler.Interpolation {
	case gltf.InterpolationStep:
		interp = animation.InterpolationStep
	case gltf.InterpolationCubicSpline:
		interp = animation.InterpolationCubicSpline
	}

	target := animation.TargetData{NodeName: doc.Nodes[node].Name, NodeIndex: node}
	if len(tags[node]) > 0 {
		target.HumanoidTag = string(tags[node][0])
	}

	switch ch.Target.Path {
	case gltf.TRSTranslation, gltf.TRSScale:
		typ := animation.ChannelTranslation
		if ch.Target.Path == gltf.TRSScale {
			typ = animation.ChannelScale
		}
		values, err := keyframe.AccessorVec3(splineValues(outAcc, interp, frames, 1, 0), 1)
		if err != nil {
			return err
		}
		c, err := animation.NewVec3Channel(typ, target, interp, times, values)
		if err != nil {
			return err
		}
		clip.Vec3 = append(clip.Vec3, c)
	case gltf.TRSRotation:
		values, err := keyframe.AccessorQuat(splineValues(outAcc, interp, frames, 1, 0), 1)
		if err != nil {
			return err
		}
		c, err := animation.NewQuatChannel(animation.ChannelRotation, target, interp, times, values)
		if err != nil {
			return err
		}
		clip.Quat = append(clip.Quat, c)
	case gltf.TRSWeights:
		groups := morphGroups(doc, doc.Nodes[node])
		if groups == 0 {
			return nil
		}
		for g := 0; g < groups; g++ {
			values, err := keyframe.AccessorFloat(splineValues(outAcc, interp, frames, groups, g), 1)
			if err != nil {
				return err
			}
			t := target
			t.MorphGroup = g
			c, err := animation.NewFloatChannel(animation.ChannelMorph, t, interp, times, values)
			if err != nil {
				return err
			}
			clip.Scalar = append(clip.Scalar, c)
		}
	}
	return nil
}

// splineValues narrows an output accessor holding groups values per key (and
// in/out tangents around them for cubic splines) to the key values of group g.
func splineValues(acc keyframe.Accessor, interp animation.Interpolation, frames, groups, g int) keyframe.Accessor {
	stride := acc.ItemStride()
	perKey := groups
	value := g
	if interp == animation.InterpolationCubicSpline {
		perKey = 3 * groups
		value = groups + g
	}
	if perKey == 1 {
		return acc
	}
	acc.ByteOffset += value * stride
	acc.Stride = perKey * stride
	acc.Count = frames
	return acc
}

func morphGroups(doc *gltf.Document, n *gltf.Node) int {
	mesh, ok := indexOf(n.Mesh)
	if !ok || mesh >= len(doc.Meshes) {
		return 0
	}
	m := doc.Meshes[mesh]
	groups := len(m.Weights)
	for _, p := range m.Primitives {
		groups = max(groups, len(p.Targets))
	}
	return groups
}

// bindClips binds clips loaded with scene by node index into the absolute slot.
func bindClips(clips []*animation.Clip, scene *model.Scene) ([]*animation.Animation, error) {
	out := make([]*animation.Animation, 0, len(clips))
	for _, c := range clips {
		a, err := animation.Bind(c, scene, animation.BindOptions{Transform: model.TransformAbsolute, ByIndex: true})
		if err != nil {
			return nil, fmt.Errorf("bind %s: %w", c.Name, err)
		}
		out = append(out, a)
	}
	return out, nil
}
