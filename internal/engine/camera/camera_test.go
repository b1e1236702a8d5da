package camera

import (
	"testing"

	"github.com/chewxy/math32"

	"github.com/Faultbox/armorstand/pkg/math"
)

func approx(a, b float32) bool {
	return math32.Abs(a-b) < 1e-4
}

func TestPositionFacesCenter(t *testing.T) {
	c := NewOrbitCamera()
	c.Pitch = 0
	c.Yaw = 0
	c.Distance = 2

	pos := c.Position()
	if !approx(pos.X, 0) || !approx(pos.Y, 1) || !approx(pos.Z, 2) {
		t.Errorf("expected (0, 1, 2), got %+v", pos)
	}

	// The center maps to the view space forward axis.
	center := c.ViewMatrix().TransformPoint(c.Center)
	if !approx(center.X, 0) || !approx(center.Y, 0) || !approx(center.Z, -2) {
		t.Errorf("expected center at (0, 0, -2) in view space, got %+v", center)
	}
}

func TestHandleDragClampsPitch(t *testing.T) {
	tests := []struct {
		name   string
		deltaY float32
		want   float32
	}{
		{"up", 1e6, 1.5},
		{"down", -1e6, -1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewOrbitCamera()
			c.HandleDrag(0, tt.deltaY)
			if c.Pitch != tt.want {
				t.Errorf("expected pitch %v, got %v", tt.want, c.Pitch)
			}
		})
	}
}

func TestHandleZoomClampsDistance(t *testing.T) {
	c := NewOrbitCamera()
	for i := 0; i < 100; i++ {
		c.HandleZoom(1)
	}
	if c.Distance != c.MinDistance {
		t.Errorf("expected min distance %v, got %v", c.MinDistance, c.Distance)
	}
	for i := 0; i < 200; i++ {
		c.HandleZoom(-1)
	}
	if c.Distance != c.MaxDistance {
		t.Errorf("expected max distance %v, got %v", c.MaxDistance, c.Distance)
	}
}

func TestFitToBounds(t *testing.T) {
	c := NewOrbitCamera()
	c.FitToBounds(math.Vec3{X: -1, Y: 0, Z: -1}, math.Vec3{X: 1, Y: 2, Z: 1})

	if !approx(c.Center.X, 0) || !approx(c.Center.Y, 1) || !approx(c.Center.Z, 0) {
		t.Errorf("expected center (0, 1, 0), got %+v", c.Center)
	}
	want := math32.Sqrt(3) / math32.Sin(c.FovY/2)
	if !approx(c.Distance, want) {
		t.Errorf("expected distance %v, got %v", want, c.Distance)
	}
}
