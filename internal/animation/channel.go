// Package animation samples keyframe channels and applies them to model instances.
package animation

import (
	"fmt"

	"github.com/Faultbox/armorstand/pkg/keyframe"
	"github.com/Faultbox/armorstand/pkg/math"
)

// ChannelType is the quantity a channel animates.
type ChannelType int

const (
	ChannelTranslation ChannelType = iota
	ChannelScale
	ChannelRotation
	ChannelMorph
	ChannelExpression
	ChannelCameraFov
	ChannelCameraDistance
	ChannelCameraTarget
	ChannelCameraRotation
)

var channelTypeNames = [...]string{
	"translation", "scale", "rotation", "morph", "expression",
	"camera_fov", "camera_distance", "camera_target", "camera_rotation",
}

func (t ChannelType) String() string {
	if t < 0 || int(t) >= len(channelTypeNames) {
		return fmt.Sprintf("channel(%d)", int(t))
	}
	return channelTypeNames[t]
}

// Kind groups channel types by the target data they carry.
type Kind int

const (
	KindTransform Kind = iota
	KindMorph
	KindExpression
	KindCamera
)

// Kind returns the target kind of the channel type.
func (t ChannelType) Kind() Kind {
	switch t {
	case ChannelMorph:
		return KindMorph
	case ChannelExpression:
		return KindExpression
	case ChannelCameraFov, ChannelCameraDistance, ChannelCameraTarget, ChannelCameraRotation:
		return KindCamera
	default:
		return KindTransform
	}
}

// Interpolation selects how values between keyframes are computed.
type Interpolation int

const (
	InterpolationLinear Interpolation = iota
	InterpolationStep
	// InterpolationCubicSpline channels carry only their key values (tangents
	// are skipped by the loader) and are sampled linearly.
	InterpolationCubicSpline
)

// TargetData locates the target of a channel independent of a scene.
// Which fields are meaningful depends on ChannelType.Kind.
type TargetData struct {
	// Transform targets.
	NodeName    string
	HumanoidTag string
	// NodeIndex is the node in the scene the channel was loaded with, -1 if unknown.
	NodeIndex int

	// Morph targets.
	MorphGroup int

	// Expression targets: expression or expression group name.
	Expression string

	// Camera targets.
	Camera string
}

// Channel samples one animated quantity.
type Channel[T any] struct {
	Type          ChannelType
	Target        TargetData
	Interpolation Interpolation
	Times         keyframe.Data[float32]
	Values        keyframe.Data[T]
	Lerp          func(a, b *T, t float32, out *T)

	time [1]float32
	prev []T
	next []T
}

// NewChannel validates that times and values describe the same frames.
func NewChannel[T any](
	typ ChannelType,
	target TargetData,
	interpolation Interpolation,
	times keyframe.Data[float32],
	values keyframe.Data[T],
	lerp func(a, b *T, t float32, out *T),
) (*Channel[T], error) {
	if times.Elements() != 1 {
		return nil, fmt.Errorf("%w: %s channel has %d time elements per frame",
			keyframe.ErrInvalidLayout, typ, times.Elements())
	}
	if times.Frames() != values.Frames() {
		return nil, fmt.Errorf("%w: %s channel has %d times but %d value frames",
			keyframe.ErrInvalidLayout, typ, times.Frames(), values.Frames())
	}
	return &Channel[T]{
		Type:          typ,
		Target:        target,
		Interpolation: interpolation,
		Times:         times,
		Values:        values,
		Lerp:          lerp,
		prev:          make([]T, values.Elements()),
		next:          make([]T, values.Elements()),
	}, nil
}

// NewVec3Channel creates a channel interpolating vectors linearly.
func NewVec3Channel(typ ChannelType, target TargetData, interpolation Interpolation,
	times keyframe.Data[float32], values keyframe.Data[math.Vec3]) (*Channel[math.Vec3], error) {
	return NewChannel(typ, target, interpolation, times, values, func(a, b *math.Vec3, t float32, out *math.Vec3) {
		*out = a.Lerp(*b, t)
	})
}

// NewQuatChannel creates a channel interpolating rotations on the shorter arc.
// Results are not renormalized.
func NewQuatChannel(typ ChannelType, target TargetData, interpolation Interpolation,
	times keyframe.Data[float32], values keyframe.Data[math.Quat]) (*Channel[math.Quat], error) {
	return NewChannel(typ, target, interpolation, times, values, func(a, b *math.Quat, t float32, out *math.Quat) {
		*out = a.Slerp(*b, t)
	})
}

// NewFloatChannel creates a channel interpolating scalars linearly.
func NewFloatChannel(typ ChannelType, target TargetData, interpolation Interpolation,
	times keyframe.Data[float32], values keyframe.Data[float32]) (*Channel[float32], error) {
	return NewChannel(typ, target, interpolation, times, values, func(a, b *float32, t float32, out *float32) {
		*out = *a + (*b-*a)*t
	})
}

// Elements returns the number of values produced per sample.
func (c *Channel[T]) Elements() int { return c.Values.Elements() }

// Duration returns the timestamp of the last keyframe.
func (c *Channel[T]) Duration() float32 {
	n := c.Times.Frames()
	if n == 0 {
		return 0
	}
	return c.timeAt(n - 1)
}

func (c *Channel[T]) timeAt(i int) float32 {
	c.Times.Get(i, c.time[:])
	return c.time[0]
}

// Sample writes the values at time into out. Times before the first or after
// the last keyframe are clamped. An empty channel leaves out untouched.
func (c *Channel[T]) Sample(time float32, out []T) {
	n := c.Times.Frames()
	if n == 0 {
		return
	}
	if n == 1 || time <= c.timeAt(0) {
		c.Values.Get(0, out)
		return
	}
	last := c.timeAt(n - 1)
	if time >= last {
		c.Values.Get(n-1, out)
		return
	}

	// Find the first frame with a timestamp greater than time.
	lo, hi := 1, n-1
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if c.timeAt(mid) > time {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	prev, next := lo-1, lo

	if c.Interpolation == InterpolationStep {
		c.Values.Get(prev, out)
		return
	}

	t0 := c.timeAt(prev)
	t1 := c.timeAt(next)
	factor := float32(0)
	if t1 > t0 {
		factor = (time - t0) / (t1 - t0)
	}
	c.Values.Get(prev, c.prev)
	c.Values.Get(next, c.next)
	for i := range c.prev {
		c.Lerp(&c.prev[i], &c.next[i], factor, &out[i])
	}
}
