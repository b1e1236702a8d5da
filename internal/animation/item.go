package animation

import (
	"errors"
	"fmt"

	"github.com/Faultbox/armorstand/internal/model"
	"github.com/Faultbox/armorstand/pkg/math"
)

// ErrChannelMismatch is returned when a channel is bound to a target of another kind.
var ErrChannelMismatch = errors.New("unmatched animation channel")

// ItemKind is the target variant of an Item.
type ItemKind int

const (
	ItemTranslation ItemKind = iota
	ItemScale
	ItemRotation
	ItemMorph
	ItemExpression
	ItemExpressionGroup
	ItemCameraFov
	ItemCameraDistance
	ItemCameraTarget
	ItemCameraRotation
)

// Item binds one channel to one target of a scene.
type Item struct {
	kind ItemKind

	node      int
	transform model.TransformID

	primitive int
	group     int

	expression      *model.Expression
	expressionGroup *model.ExpressionGroup

	camera int

	vec3   *Channel[math.Vec3]
	quat   *Channel[math.Quat]
	scalar *Channel[float32]

	vec3Out   [1]math.Vec3
	quatOut   [1]math.Quat
	scalarOut [1]float32
}

func validate(want, got ChannelType, elements int) error {
	if want != got {
		return fmt.Errorf("%w: want %s, but got %s", ErrChannelMismatch, want, got)
	}
	if elements != 1 {
		return fmt.Errorf("%w: %s channel samples %d values per frame, want 1",
			ErrChannelMismatch, got, elements)
	}
	return nil
}

// NewTranslationItem writes the translation of slot transformID of node.
func NewTranslationItem(node int, transformID model.TransformID, ch *Channel[math.Vec3]) (*Item, error) {
	if err := validate(ChannelTranslation, ch.Type, ch.Elements()); err != nil {
		return nil, err
	}
	return &Item{kind: ItemTranslation, node: node, transform: transformID, vec3: ch}, nil
}

// NewScaleItem writes the scale of slot transformID of node.
func NewScaleItem(node int, transformID model.TransformID, ch *Channel[math.Vec3]) (*Item, error) {
	if err := validate(ChannelScale, ch.Type, ch.Elements()); err != nil {
		return nil, err
	}
	return &Item{kind: ItemScale, node: node, transform: transformID, vec3: ch}, nil
}

// NewRotationItem writes the normalized rotation of slot transformID of node.
func NewRotationItem(node int, transformID model.TransformID, ch *Channel[math.Quat]) (*Item, error) {
	if err := validate(ChannelRotation, ch.Type, ch.Elements()); err != nil {
		return nil, err
	}
	return &Item{kind: ItemRotation, node: node, transform: transformID, quat: ch}, nil
}

// NewMorphItem writes the weight of one target group of a morphed primitive.
func NewMorphItem(primitive, group int, ch *Channel[float32]) (*Item, error) {
	if err := validate(ChannelMorph, ch.Type, ch.Elements()); err != nil {
		return nil, err
	}
	return &Item{kind: ItemMorph, primitive: primitive, group: group, scalar: ch}, nil
}

// NewExpressionItem drives every binding of expr with the sampled weight.
func NewExpressionItem(expr *model.Expression, ch *Channel[float32]) (*Item, error) {
	if err := validate(ChannelExpression, ch.Type, ch.Elements()); err != nil {
		return nil, err
	}
	return &Item{kind: ItemExpression, expression: expr, scalar: ch}, nil
}

// NewExpressionGroupItem drives every member of group, scaled by the member influence.
func NewExpressionGroupItem(group *model.ExpressionGroup, ch *Channel[float32]) (*Item, error) {
	if err := validate(ChannelExpression, ch.Type, ch.Elements()); err != nil {
		return nil, err
	}
	return &Item{kind: ItemExpressionGroup, expressionGroup: group, scalar: ch}, nil
}

// NewCameraFovItem writes the field of view of a camera.
func NewCameraFovItem(camera int, ch *Channel[float32]) (*Item, error) {
	if err := validate(ChannelCameraFov, ch.Type, ch.Elements()); err != nil {
		return nil, err
	}
	return &Item{kind: ItemCameraFov, camera: camera, scalar: ch}, nil
}

// NewCameraDistanceItem writes the orbit distance of an MMD camera.
func NewCameraDistanceItem(camera int, ch *Channel[float32]) (*Item, error) {
	if err := validate(ChannelCameraDistance, ch.Type, ch.Elements()); err != nil {
		return nil, err
	}
	return &Item{kind: ItemCameraDistance, camera: camera, scalar: ch}, nil
}

// NewCameraTargetItem writes the target position of an MMD camera.
func NewCameraTargetItem(camera int, ch *Channel[math.Vec3]) (*Item, error) {
	if err := validate(ChannelCameraTarget, ch.Type, ch.Elements()); err != nil {
		return nil, err
	}
	return &Item{kind: ItemCameraTarget, camera: camera, vec3: ch}, nil
}

// NewCameraRotationItem writes the euler rotation of an MMD camera.
func NewCameraRotationItem(camera int, ch *Channel[math.Vec3]) (*Item, error) {
	if err := validate(ChannelCameraRotation, ch.Type, ch.Elements()); err != nil {
		return nil, err
	}
	return &Item{kind: ItemCameraRotation, camera: camera, vec3: ch}, nil
}

// Kind returns the target variant.
func (it *Item) Kind() ItemKind { return it.kind }

// ChannelType returns the type of the bound channel.
func (it *Item) ChannelType() ChannelType {
	switch {
	case it.vec3 != nil:
		return it.vec3.Type
	case it.quat != nil:
		return it.quat.Type
	default:
		return it.scalar.Type
	}
}

// Duration returns the duration of the bound channel.
func (it *Item) Duration() float32 {
	switch {
	case it.vec3 != nil:
		return it.vec3.Duration()
	case it.quat != nil:
		return it.quat.Duration()
	default:
		return it.scalar.Duration()
	}
}

// Apply samples the channel at time and writes the value onto instance.
func (it *Item) Apply(instance *model.Instance, time float32) {
	switch it.kind {
	case ItemTranslation:
		instance.SetTransformDecomposed(it.node, it.transform, func(d *model.Decomposed) {
			it.vec3Out[0] = d.Translation
			it.vec3.Sample(time, it.vec3Out[:])
			d.Translation = it.vec3Out[0]
		})
	case ItemScale:
		instance.SetTransformDecomposed(it.node, it.transform, func(d *model.Decomposed) {
			it.vec3Out[0] = d.Scale
			it.vec3.Sample(time, it.vec3Out[:])
			d.Scale = it.vec3Out[0]
		})
	case ItemRotation:
		instance.SetTransformDecomposed(it.node, it.transform, func(d *model.Decomposed) {
			it.quatOut[0] = d.Rotation
			it.quat.Sample(time, it.quatOut[:])
			d.Rotation = it.quatOut[0].Normalize()
		})
	case ItemMorph:
		it.scalar.Sample(time, it.scalarOut[:])
		instance.SetGroupWeight(it.primitive, it.group, it.scalarOut[0])
	case ItemExpression:
		it.scalar.Sample(time, it.scalarOut[:])
		it.expression.Apply(instance, it.scalarOut[0])
	case ItemExpressionGroup:
		it.scalar.Sample(time, it.scalarOut[:])
		expressions := instance.Scene().Expressions
		for _, member := range it.expressionGroup.Items {
			if member.ExpressionIndex < 0 || member.ExpressionIndex >= len(expressions) {
				continue
			}
			expressions[member.ExpressionIndex].Apply(instance, it.scalarOut[0]*member.Influence)
		}
	case ItemCameraFov:
		switch camera := it.cameraTransform(instance).(type) {
		case *model.MMDCamera:
			it.scalarOut[0] = camera.Fov
			it.scalar.Sample(time, it.scalarOut[:])
			camera.Fov = it.scalarOut[0]
		case *model.PerspectiveCamera:
			it.scalarOut[0] = camera.YFov
			it.scalar.Sample(time, it.scalarOut[:])
			camera.YFov = it.scalarOut[0]
		}
	case ItemCameraDistance:
		if camera, ok := it.cameraTransform(instance).(*model.MMDCamera); ok {
			it.scalarOut[0] = camera.Distance
			it.scalar.Sample(time, it.scalarOut[:])
			camera.Distance = it.scalarOut[0]
		}
	case ItemCameraTarget:
		if camera, ok := it.cameraTransform(instance).(*model.MMDCamera); ok {
			it.vec3Out[0] = camera.TargetPosition
			it.vec3.Sample(time, it.vec3Out[:])
			camera.TargetPosition = it.vec3Out[0]
		}
	case ItemCameraRotation:
		if camera, ok := it.cameraTransform(instance).(*model.MMDCamera); ok {
			it.vec3Out[0] = camera.RotationEuler
			it.vec3.Sample(time, it.vec3Out[:])
			camera.RotationEuler = it.vec3Out[0]
		}
	default:
		panic(fmt.Sprintf("animation: unknown item kind %d", it.kind))
	}
}

func (it *Item) cameraTransform(instance *model.Instance) model.CameraTransform {
	cameras := instance.CameraTransforms()
	if it.camera < 0 || it.camera >= len(cameras) {
		return nil
	}
	return cameras[it.camera]
}
