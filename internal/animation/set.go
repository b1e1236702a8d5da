package animation

// StateKey names the entity state an animation of a set plays in.
type StateKey string

const (
	StateIdle   StateKey = "idle"
	StateWalk   StateKey = "walk"
	StateRun    StateKey = "run"
	StateSneak  StateKey = "sneak"
	StateSwim   StateKey = "swim"
	StateFly    StateKey = "fly"
	StateRide   StateKey = "ride"
	StateSleep  StateKey = "sleep"
	StateJump   StateKey = "jump"
	StateAttack StateKey = "attack"
)

// RequiredStates must all be present for a set to drive an entity on its own.
var RequiredStates = []StateKey{
	StateIdle, StateWalk, StateRun, StateSneak,
	StateSwim, StateFly, StateRide, StateSleep,
}

// Set maps entity states to animations.
type Set map[StateKey]*Animation

// Merge returns a new set with the entries of other replacing those of s.
func (s Set) Merge(other Set) Set {
	merged := make(Set, len(s)+len(other))
	for k, v := range s {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// FullSet is a set holding every required state.
type FullSet struct {
	set Set
}

// NewFullSet returns the full set when s holds every required state.
func NewFullSet(s Set) (*FullSet, bool) {
	for _, k := range RequiredStates {
		if s[k] == nil {
			return nil, false
		}
	}
	return &FullSet{set: s}, true
}

// Get returns the animation of state, falling back to idle.
func (f *FullSet) Get(state StateKey) *Animation {
	if a, ok := f.set[state]; ok && a != nil {
		return a
	}
	return f.set[StateIdle]
}
