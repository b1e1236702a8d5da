package model

import (
	"fmt"

	"github.com/Faultbox/armorstand/pkg/refcount"
)

// Scene is the immutable render graph of a loaded model. It is shared by every
// instance displaying the model and releases its resources when the last
// reference is dropped.
type Scene struct {
	refcount.Count

	Root             *Node
	Nodes            []*Node
	Skins            []*Skin
	Expressions      []*Expression
	ExpressionGroups []*ExpressionGroup
	Cameras          []*Camera

	// PrimitiveComponents lists primitive components in node order. The
	// position of a component is its slot in the model matrices buffer.
	PrimitiveComponents []*PrimitiveComponent
	// MorphedPrimitives is indexed by PrimitiveComponent.MorphedPrimitiveIndex.
	MorphedPrimitives []*PrimitiveComponent
	// Joints lists the (node index, joint) pairs of every skin.
	Joints []NodeJoint

	nodesByID map[NodeID]*Node
}

// NodeJoint is a joint component together with its node.
type NodeJoint struct {
	NodeIndex int
	Joint     *JointComponent
}

// SceneParts is the input of NewScene.
type SceneParts struct {
	Root             *Node
	Nodes            []*Node
	Skins            []*Skin
	Expressions      []*Expression
	ExpressionGroups []*ExpressionGroup
	Cameras          []*Camera
}

// NewScene indexes the parts into a scene and takes a reference on every
// primitive resource. The scene itself starts unreferenced; the first holder
// calls Increase.
func NewScene(parts SceneParts) (*Scene, error) {
	s := &Scene{
		Root:             parts.Root,
		Nodes:            parts.Nodes,
		Skins:            parts.Skins,
		Expressions:      parts.Expressions,
		ExpressionGroups: parts.ExpressionGroups,
		Cameras:          parts.Cameras,
		nodesByID:        make(map[NodeID]*Node, len(parts.Nodes)),
	}
	if s.Root == nil {
		return nil, fmt.Errorf("scene has no root node")
	}

	var morphed []*PrimitiveComponent
	for _, n := range s.Nodes {
		if n.ID != "" {
			s.nodesByID[n.ID] = n
		}
		for _, c := range n.Components {
			switch c := c.(type) {
			case *PrimitiveComponent:
				c.NodeIndex = n.Index
				c.MatrixSlot = len(s.PrimitiveComponents)
				s.PrimitiveComponents = append(s.PrimitiveComponents, c)
				if c.MorphedPrimitiveIndex >= 0 {
					morphed = append(morphed, c)
				}
			case *JointComponent:
				if c.SkinIndex >= len(s.Skins) {
					return nil, fmt.Errorf("node %d: skin %d out of range", n.Index, c.SkinIndex)
				}
				s.Joints = append(s.Joints, NodeJoint{NodeIndex: n.Index, Joint: c})
			case *CameraComponent:
				if c.CameraIndex >= len(s.Cameras) {
					return nil, fmt.Errorf("node %d: camera %d out of range", n.Index, c.CameraIndex)
				}
			case *InfluenceTargetComponent:
				if c.SourceNodeIndex >= len(s.Nodes) {
					return nil, fmt.Errorf("node %d: influence source %d out of range", n.Index, c.SourceNodeIndex)
				}
			}
		}
	}

	s.MorphedPrimitives = make([]*PrimitiveComponent, len(morphed))
	for _, c := range morphed {
		if c.MorphedPrimitiveIndex >= len(morphed) || s.MorphedPrimitives[c.MorphedPrimitiveIndex] != nil {
			return nil, fmt.Errorf("morphed primitive index %d is out of range or duplicated", c.MorphedPrimitiveIndex)
		}
		s.MorphedPrimitives[c.MorphedPrimitiveIndex] = c
	}

	for _, c := range s.PrimitiveComponents {
		c.Primitive.acquire()
	}
	s.Init("scene", s.release)
	return s, nil
}

func (s *Scene) release() {
	for _, c := range s.PrimitiveComponents {
		c.Primitive.release()
	}
}

// NodeByID returns the node with the given identifier.
func (s *Scene) NodeByID(id NodeID) (*Node, bool) {
	n, ok := s.nodesByID[id]
	return n, ok
}

// NodeByName returns the first node with the given name.
func (s *Scene) NodeByName(name string) (*Node, bool) {
	for _, n := range s.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// NodeByTag returns the first node carrying the humanoid tag.
func (s *Scene) NodeByTag(tag HumanoidTag) (*Node, bool) {
	for _, n := range s.Nodes {
		if n.HasTag(tag) {
			return n, true
		}
	}
	return nil, false
}

// ExpressionByName returns the index of the expression with the given name or tag.
func (s *Scene) ExpressionByName(name string) (int, bool) {
	for i, e := range s.Expressions {
		if e.Name == name || (e.Tag != "" && e.Tag == name) {
			return i, true
		}
	}
	return -1, false
}

// CameraByName returns the camera with the given name.
func (s *Scene) CameraByName(name string) (*Camera, bool) {
	for _, c := range s.Cameras {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}
