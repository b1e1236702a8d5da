package model

import "github.com/Faultbox/armorstand/pkg/math"

// Skin groups the joints deforming skinned primitives.
type Skin struct {
	Name string
	// Joints lists the node index of every joint.
	Joints              []int
	InverseBindMatrices []math.Mat4 // nil means identity
	JointTags           []HumanoidTag
}

// JointSize returns the number of joints.
func (s *Skin) JointSize() int { return len(s.Joints) }

// InverseBind returns the inverse bind matrix of joint i.
func (s *Skin) InverseBind(i int) math.Mat4 {
	if i >= len(s.InverseBindMatrices) {
		return math.Identity()
	}
	return s.InverseBindMatrices[i]
}

// ExpressionBinding sets a morph target group weight.
type ExpressionBinding struct {
	MorphedPrimitiveIndex int
	GroupIndex            int
	Weight                float32
}

// Expression is a named facial or pose preset.
type Expression struct {
	Name     string
	Tag      string // VRM preset name, empty when custom
	IsBinary bool
	Bindings []ExpressionBinding
}

// Apply sets every bound morph group of the instance to weight.
func (e *Expression) Apply(instance *Instance, weight float32) {
	for _, b := range e.Bindings {
		instance.SetGroupWeight(b.MorphedPrimitiveIndex, b.GroupIndex, weight)
	}
}

// ExpressionGroupItem references an expression by index with an influence factor.
type ExpressionGroupItem struct {
	ExpressionIndex int
	Influence       float32
}

// ExpressionGroup drives several expressions from one weight.
type ExpressionGroup struct {
	Name  string
	Items []ExpressionGroupItem
}
