// Package camera provides the viewer orbit camera.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/armorstand/pkg/math"
)

// OrbitCamera orbits around a center point. Distances are in meters.
type OrbitCamera struct {
	Center math.Vec3

	Distance float32
	Pitch    float32 // radians, positive looks down
	Yaw      float32 // radians

	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	FovY float32 // radians
	Near float32
	Far  float32

	DragSensitivity float32
	ZoomSensitivity float32
}

// NewOrbitCamera creates a camera framing a standing humanoid.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Center:          math.Vec3{Y: 1},
		Distance:        3,
		Pitch:           0.15,
		MinDistance:     0.2,
		MaxDistance:     50,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		FovY:            math32.Pi / 4,
		Near:            0.05,
		Far:             200,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	return math.Vec3{
		X: c.Center.X + c.Distance*math32.Cos(c.Pitch)*math32.Sin(c.Yaw),
		Y: c.Center.Y + c.Distance*math32.Sin(c.Pitch),
		Z: c.Center.Z + c.Distance*math32.Cos(c.Pitch)*math32.Cos(c.Yaw),
	}
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.Vec3{Y: 1})
}

// Projection returns the perspective projection for an aspect ratio.
func (c *OrbitCamera) Projection(aspect float32) math.Mat4 {
	return math.Perspective(c.FovY, aspect, c.Near, c.Far)
}

// HandleDrag rotates the camera by a mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.Yaw -= deltaX * c.DragSensitivity
	c.Pitch = clamp(c.Pitch+deltaY*c.DragSensitivity, c.MinPitch, c.MaxPitch)
}

// HandlePan moves the center in the view plane by a mouse drag delta.
func (c *OrbitCamera) HandlePan(deltaX, deltaY float32) {
	speed := c.Distance * c.DragSensitivity * 0.2
	right := math.Vec3{X: math32.Cos(c.Yaw), Z: -math32.Sin(c.Yaw)}
	c.Center = c.Center.Add(right.Scale(-deltaX * speed))
	c.Center.Y += deltaY * speed
}

// HandleZoom updates distance by a scroll delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance = clamp(c.Distance-delta*c.Distance*c.ZoomSensitivity, c.MinDistance, c.MaxDistance)
}

// FitToBounds centers the camera on a bounding box and backs off until it fits.
func (c *OrbitCamera) FitToBounds(min, max math.Vec3) {
	c.Center = min.Add(max).Scale(0.5)
	radius := max.Sub(min).Length() / 2
	if radius <= 0 {
		return
	}
	c.Distance = clamp(radius/math32.Sin(c.FovY/2), c.MinDistance, c.MaxDistance)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
