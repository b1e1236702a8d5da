// Package model provides the render scene graph shared by every instance of a
// loaded model and the per-entity ModelInstance pose state.
package model

import "github.com/Faultbox/armorstand/pkg/math"

// TransformID selects a transform slot of a node. Slots are composed in
// declaration order: Absolute, then Influence, then Animation, then External.
type TransformID int

const (
	// TransformAbsolute holds the local rest transform. Absolute animations
	// (glTF) overwrite it.
	TransformAbsolute TransformID = iota
	// TransformInfluence is written by influence targets from their source node.
	TransformInfluence
	// TransformAnimation holds relative animation on top of the rest pose.
	TransformAnimation
	// TransformExternal is reserved for host driven adjustments (head look, etc).
	TransformExternal

	transformSlots
)

var transformNames = [...]string{"absolute", "influence", "animation", "external"}

func (id TransformID) String() string {
	if id < 0 || id >= transformSlots {
		return "unknown"
	}
	return transformNames[id]
}

// Decomposed is a translation, rotation, scale triple.
type Decomposed struct {
	Translation math.Vec3
	Rotation    math.Quat
	Scale       math.Vec3
}

// IdentityDecomposed returns the identity transform.
func IdentityDecomposed() Decomposed {
	return Decomposed{Rotation: math.QuatIdentity(), Scale: math.Vec3One}
}

// Matrix returns T * R * S.
func (d Decomposed) Matrix() math.Mat4 {
	return math.FromTRS(d.Translation, d.Rotation, d.Scale)
}

// NodeTransform is the slot stack of one node inside an instance.
type NodeTransform struct {
	slots [transformSlots]Decomposed
	set   [transformSlots]bool
}

func newNodeTransform(rest Decomposed) NodeTransform {
	var t NodeTransform
	for i := range t.slots {
		t.slots[i] = IdentityDecomposed()
	}
	t.slots[TransformAbsolute] = rest
	t.set[TransformAbsolute] = true
	return t
}

// Get returns the slot value and whether the slot has been written.
func (t *NodeTransform) Get(id TransformID) (Decomposed, bool) {
	return t.slots[id], t.set[id]
}

// Update edits one slot in place.
func (t *NodeTransform) Update(id TransformID, fn func(*Decomposed)) {
	t.set[id] = true
	fn(&t.slots[id])
}

// Reset clears a slot back to identity. The absolute slot is reset to rest.
func (t *NodeTransform) Reset(id TransformID, rest Decomposed) {
	if id == TransformAbsolute {
		t.slots[id] = rest
		return
	}
	t.slots[id] = IdentityDecomposed()
	t.set[id] = false
}

// Matrix composes the written slots into the local matrix.
func (t *NodeTransform) Matrix() math.Mat4 {
	m := t.slots[TransformAbsolute].Matrix()
	for id := TransformAbsolute + 1; id < transformSlots; id++ {
		if t.set[id] {
			m = m.Mul(t.slots[id].Matrix())
		}
	}
	return m
}
