package model

import "fmt"

// NodeID identifies a node across reloads, independent of its index.
type NodeID string

// HumanoidTag names a humanoid bone (VRM naming, e.g. "hips", "leftUpperArm").
type HumanoidTag string

// ComponentKind discriminates node components.
type ComponentKind int

const (
	ComponentPrimitive ComponentKind = iota
	ComponentJoint
	ComponentCamera
	ComponentInfluenceTarget
)

func (k ComponentKind) String() string {
	switch k {
	case ComponentPrimitive:
		return "primitive"
	case ComponentJoint:
		return "joint"
	case ComponentCamera:
		return "camera"
	case ComponentInfluenceTarget:
		return "influence_target"
	default:
		return fmt.Sprintf("component(%d)", int(k))
	}
}

// Component is attached to a node. The set of implementations is closed.
type Component interface {
	Kind() ComponentKind
}

// PrimitiveComponent draws a primitive with the node's world matrix.
type PrimitiveComponent struct {
	PrimitiveIndex int
	Primitive      *Primitive
	SkinIndex      int // -1 when not skinned
	// MorphedPrimitiveIndex indexes Scene.MorphedPrimitives, -1 when not morphed.
	MorphedPrimitiveIndex int

	// NodeIndex and MatrixSlot are assigned by NewScene.
	NodeIndex  int
	MatrixSlot int
}

func (*PrimitiveComponent) Kind() ComponentKind { return ComponentPrimitive }

// JointComponent marks the node as joint JointIndex of skin SkinIndex.
type JointComponent struct {
	SkinIndex  int
	JointIndex int
}

func (*JointComponent) Kind() ComponentKind { return ComponentJoint }

// CameraComponent attaches Scene.Cameras[CameraIndex] to the node.
type CameraComponent struct {
	CameraIndex int
}

func (*CameraComponent) Kind() ComponentKind { return ComponentCamera }

// InfluenceTargetComponent derives slot Target of the node from the
// animation slot of SourceNodeIndex.
type InfluenceTargetComponent struct {
	SourceNodeIndex      int
	Influence            float32
	InfluenceRotation    bool
	InfluenceTranslation bool
	Target               TransformID
}

func (*InfluenceTargetComponent) Kind() ComponentKind { return ComponentInfluenceTarget }

// Node is one element of the scene tree.
type Node struct {
	ID           NodeID
	Name         string
	HumanoidTags []HumanoidTag
	Index        int
	// Transform is the local rest transform.
	Transform  Decomposed
	Components []Component

	Children []*Node
	Parent   *Node

	childrenSet bool
}

// InitializeChildren links children under n. It may be called once per node.
func (n *Node) InitializeChildren(children []*Node) {
	if n.childrenSet {
		panic(fmt.Sprintf("model: children of node %d initialized twice", n.Index))
	}
	n.childrenSet = true
	n.Children = children
	for _, c := range children {
		c.Parent = n
	}
}

// HasTag reports whether the node carries the humanoid tag.
func (n *Node) HasTag(tag HumanoidTag) bool {
	for _, t := range n.HumanoidTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Walk visits n and its descendants depth first.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
