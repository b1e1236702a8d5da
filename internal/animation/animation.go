package animation

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/armorstand/internal/model"
	"github.com/Faultbox/armorstand/pkg/math"
)

// Animation is a set of items bound to one scene.
type Animation struct {
	Name     string
	Items    []*Item
	Duration float32
}

// NewAnimation creates an animation lasting as long as its longest item.
func NewAnimation(name string, items []*Item) *Animation {
	a := &Animation{Name: name, Items: items}
	for _, it := range items {
		a.Duration = max(a.Duration, it.Duration())
	}
	return a
}

// Apply applies every item at time.
func (a *Animation) Apply(instance *model.Instance, time float32) {
	for _, it := range a.Items {
		it.Apply(instance, time)
	}
}

// ApplyLooped applies the animation with time wrapped into [0, Duration).
func (a *Animation) ApplyLooped(instance *model.Instance, time float32) {
	if a.Duration > 0 {
		time = math32.Mod(time, a.Duration)
		if time < 0 {
			time += a.Duration
		}
	}
	a.Apply(instance, time)
}

// Clip is an animation whose channels are not bound to a scene yet.
type Clip struct {
	Name   string
	Vec3   []*Channel[math.Vec3]
	Quat   []*Channel[math.Quat]
	Scalar []*Channel[float32]
}

// Channels returns the number of channels in the clip.
func (c *Clip) Channels() int { return len(c.Vec3) + len(c.Quat) + len(c.Scalar) }

// BindOptions controls how a clip is bound.
type BindOptions struct {
	// Transform is the slot node transforms are written to.
	Transform model.TransformID
	// ByIndex falls back to TargetData.NodeIndex when neither humanoid tag nor
	// node name matches. Only valid when the clip was loaded with the scene.
	ByIndex bool
}

// Bind resolves the targets of clip in scene. Targets that do not exist in
// the scene are skipped; a channel bound to the wrong kind of target is an error.
func Bind(clip *Clip, scene *model.Scene, opts BindOptions) (*Animation, error) {
	var items []*Item
	add := func(it *Item, err error) error {
		if err != nil {
			return fmt.Errorf("bind %q: %w", clip.Name, err)
		}
		items = append(items, it)
		return nil
	}

	for _, ch := range clip.Vec3 {
		switch ch.Type.Kind() {
		case KindTransform:
			node, ok := resolveNode(scene, ch.Target, opts)
			if !ok {
				continue
			}
			var err error
			if ch.Type == ChannelScale {
				err = add(NewScaleItem(node, opts.Transform, ch))
			} else {
				err = add(NewTranslationItem(node, opts.Transform, ch))
			}
			if err != nil {
				return nil, err
			}
		case KindCamera:
			cam, ok := scene.CameraByName(ch.Target.Camera)
			if !ok {
				continue
			}
			var err error
			if ch.Type == ChannelCameraRotation {
				err = add(NewCameraRotationItem(cam.Index, ch))
			} else {
				err = add(NewCameraTargetItem(cam.Index, ch))
			}
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("bind %q: %w: %s channel carries vectors", clip.Name, ErrChannelMismatch, ch.Type)
		}
	}

	for _, ch := range clip.Quat {
		node, ok := resolveNode(scene, ch.Target, opts)
		if !ok {
			continue
		}
		if err := add(NewRotationItem(node, opts.Transform, ch)); err != nil {
			return nil, err
		}
	}

	for _, ch := range clip.Scalar {
		var err error
		switch ch.Type.Kind() {
		case KindMorph:
			node, ok := resolveNode(scene, ch.Target, opts)
			if !ok {
				continue
			}
			for _, c := range scene.Nodes[node].Components {
				if p, ok := c.(*model.PrimitiveComponent); ok && p.MorphedPrimitiveIndex >= 0 {
					if ch.Target.MorphGroup >= p.Primitive.TargetGroups() {
						continue
					}
					if err = add(NewMorphItem(p.MorphedPrimitiveIndex, ch.Target.MorphGroup, ch)); err != nil {
						return nil, err
					}
				}
			}
		case KindExpression:
			if idx, ok := scene.ExpressionByName(ch.Target.Expression); ok {
				err = add(NewExpressionItem(scene.Expressions[idx], ch))
			} else if group, ok := expressionGroup(scene, ch.Target.Expression); ok {
				err = add(NewExpressionGroupItem(group, ch))
			}
		case KindCamera:
			cam, ok := scene.CameraByName(ch.Target.Camera)
			if !ok {
				continue
			}
			if ch.Type == ChannelCameraDistance {
				err = add(NewCameraDistanceItem(cam.Index, ch))
			} else {
				err = add(NewCameraFovItem(cam.Index, ch))
			}
		default:
			err = fmt.Errorf("bind %q: %w: %s channel carries scalars", clip.Name, ErrChannelMismatch, ch.Type)
		}
		if err != nil {
			return nil, err
		}
	}

	return NewAnimation(clip.Name, items), nil
}

func resolveNode(scene *model.Scene, target TargetData, opts BindOptions) (int, bool) {
	if target.HumanoidTag != "" {
		if n, ok := scene.NodeByTag(model.HumanoidTag(target.HumanoidTag)); ok {
			return n.Index, true
		}
	}
	if target.NodeName != "" {
		if n, ok := scene.NodeByName(target.NodeName); ok {
			return n.Index, true
		}
	}
	if opts.ByIndex && target.NodeIndex >= 0 && target.NodeIndex < len(scene.Nodes) {
		return target.NodeIndex, true
	}
	return 0, false
}

func expressionGroup(scene *model.Scene, name string) (*model.ExpressionGroup, bool) {
	for _, g := range scene.ExpressionGroups {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}
