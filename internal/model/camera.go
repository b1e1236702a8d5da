package model

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/armorstand/pkg/math"
)

const defaultZFar = 1000

// CameraTransform is one of *PerspectiveCamera, *OrthographicCamera or *MMDCamera.
type CameraTransform interface {
	Clone() CameraTransform
	// Projection returns the projection matrix for the viewport aspect ratio.
	Projection(aspect float32) math.Mat4
}

// PerspectiveCamera is a glTF perspective camera. YFov is in radians.
type PerspectiveCamera struct {
	YFov        float32
	AspectRatio float32 // 0 uses the viewport
	ZNear       float32
	ZFar        float32 // 0 means infinite
}

func (c *PerspectiveCamera) Clone() CameraTransform { v := *c; return &v }

func (c *PerspectiveCamera) Projection(aspect float32) math.Mat4 {
	if c.AspectRatio > 0 {
		aspect = c.AspectRatio
	}
	far := c.ZFar
	if far == 0 {
		far = defaultZFar
	}
	return math.Perspective(c.YFov, aspect, c.ZNear, far)
}

// OrthographicCamera is a glTF orthographic camera.
type OrthographicCamera struct {
	XMag  float32
	YMag  float32
	ZNear float32
	ZFar  float32
}

func (c *OrthographicCamera) Clone() CameraTransform { v := *c; return &v }

func (c *OrthographicCamera) Projection(float32) math.Mat4 {
	return math.Ortho(-c.XMag, c.XMag, -c.YMag, c.YMag, c.ZNear, c.ZFar)
}

// MMDCamera orbits TargetPosition at Distance. Fov is in degrees.
type MMDCamera struct {
	Fov            float32
	Distance       float32
	TargetPosition math.Vec3
	RotationEuler  math.Vec3
}

func (c *MMDCamera) Clone() CameraTransform { v := *c; return &v }

func (c *MMDCamera) Projection(aspect float32) math.Mat4 {
	return math.Perspective(c.Fov*math32.Pi/180, aspect, 0.1, defaultZFar)
}

// View returns the view matrix of the orbiting camera.
func (c *MMDCamera) View() math.Mat4 {
	rot := math.QuatFromEuler(c.RotationEuler).ToMat4()
	eye := c.TargetPosition.Add(rot.TransformPoint(math.Vec3{Z: c.Distance}))
	return math.LookAt(eye, c.TargetPosition, math.Vec3{Y: 1})
}

// Camera is a camera of the scene.
type Camera struct {
	Index     int
	Name      string
	Transform CameraTransform
}
