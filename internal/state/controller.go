package state

import (
	"github.com/Faultbox/armorstand/internal/animation"
	"github.com/Faultbox/armorstand/internal/model"
)

// Frame is the entity state a controller animates for.
type Frame struct {
	State animation.StateKey
	// Time is the entity clock in seconds.
	Time float32
}

// Controller drives the pose of an instance every frame.
type Controller interface {
	Apply(instance *model.Instance, frame Frame)
	String() string
}

// LiveSwitched plays the animation of a full set matching the entity state.
// The animation restarts whenever the state changes.
type LiveSwitched struct {
	Set *animation.FullSet

	current *animation.Animation
	started float32
}

func (c *LiveSwitched) Apply(instance *model.Instance, frame Frame) {
	a := c.Set.Get(frame.State)
	if a != c.current {
		c.current = a
		c.started = frame.Time
		instance.ResetTransforms()
	}
	if a != nil {
		a.ApplyLooped(instance, frame.Time-c.started)
	}
}

func (c *LiveSwitched) String() string { return "live-switched" }

// Predefined loops a single animation shipped with the model.
type Predefined struct {
	Animation *animation.Animation
}

func (c *Predefined) Apply(instance *model.Instance, frame Frame) {
	c.Animation.ApplyLooped(instance, frame.Time)
}

func (c *Predefined) String() string { return "predefined" }

// LiveUpdated leaves the instance to the host. It plays no animation.
type LiveUpdated struct{}

func (LiveUpdated) Apply(*model.Instance, Frame) {}

func (LiveUpdated) String() string { return "live-updated" }

// newController picks, in order: a full animation set, the first model
// animation, the host driven fallback.
func newController(cache *CacheLoaded) Controller {
	if set, ok := animation.NewFullSet(cache.AnimationSet); ok {
		return &LiveSwitched{Set: set}
	}
	if len(cache.Animations) > 0 {
		return &Predefined{Animation: cache.Animations[0]}
	}
	return LiveUpdated{}
}
