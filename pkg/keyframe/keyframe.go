// Package keyframe reads animation samples straight out of packed float slices
// and binary buffer views without allocating per sample.
package keyframe

import (
	"errors"
	"fmt"

	"github.com/Faultbox/armorstand/pkg/math"
)

// ErrInvalidLayout is returned when sample storage does not divide into whole frames.
var ErrInvalidLayout = errors.New("invalid keyframe layout")

// Data is an immutable view over the samples of one animation curve.
type Data[T any] interface {
	// Frames returns the number of frames.
	Frames() int
	// Elements returns the number of values sampled together per frame.
	Elements() int
	// Get writes Elements() values of frame index into out.
	// out must hold at least Elements() values.
	Get(index int, out []T)
}

// Packed is Data backed by a flat float slice.
type Packed[T any] struct {
	values     []float32
	elements   int
	components int
	frames     int
	getter     func(values []float32, offset int, out *T)
}

// NewPacked creates packed keyframe data. Each frame occupies elements*components floats.
func NewPacked[T any](values []float32, elements, components int, getter func(values []float32, offset int, out *T)) (*Packed[T], error) {
	stride := elements * components
	if stride <= 0 {
		return nil, fmt.Errorf("%w: elements %d, components %d", ErrInvalidLayout, elements, components)
	}
	if len(values)%stride != 0 {
		return nil, fmt.Errorf("%w: data size %d for elements %d (requires multiple of %d)",
			ErrInvalidLayout, len(values), elements, stride)
	}
	return &Packed[T]{
		values:     values,
		elements:   elements,
		components: components,
		frames:     len(values) / stride,
		getter:     getter,
	}, nil
}

// Frames returns the number of frames.
func (p *Packed[T]) Frames() int { return p.frames }

// Elements returns the number of values per frame.
func (p *Packed[T]) Elements() int { return p.elements }

// Get writes the values of frame index into out.
func (p *Packed[T]) Get(index int, out []T) {
	base := index * p.elements * p.components
	for i := 0; i < p.elements; i++ {
		p.getter(p.values, base+i*p.components, &out[i])
	}
}

// PackedVec3 reads three floats per element.
func PackedVec3(values []float32, elements int) (*Packed[math.Vec3], error) {
	return NewPacked(values, elements, 3, func(v []float32, o int, out *math.Vec3) {
		*out = math.Vec3{X: v[o], Y: v[o+1], Z: v[o+2]}
	})
}

// PackedQuat reads four floats (x, y, z, w) per element.
func PackedQuat(values []float32, elements int) (*Packed[math.Quat], error) {
	return NewPacked(values, elements, 4, func(v []float32, o int, out *math.Quat) {
		*out = math.Quat{X: v[o], Y: v[o+1], Z: v[o+2], W: v[o+3]}
	})
}

// PackedFloat reads one float per element.
func PackedFloat(values []float32, elements int) (*Packed[float32], error) {
	return NewPacked(values, elements, 1, func(v []float32, o int, out *float32) {
		*out = v[o]
	})
}
