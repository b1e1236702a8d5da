// Package load turns the flat load-info produced by a model file loader into a
// model.Scene.
package load

import "github.com/Faultbox/armorstand/internal/model"

// ModelLoadInfo is the flattened, index addressed description of a model.
// Heavy resources arrive through futures resolved concurrently by the loader.
type ModelLoadInfo struct {
	Nodes         []NodeLoadInfo
	RootNodeIndex int
	Primitives    []PrimitiveLoadInfo

	Textures      []*Future[*model.Texture]
	VertexBuffers []*Future[*model.VertexBuffer]
	IndexBuffers  []*Future[*model.IndexBuffer]
	MorphTargets  []*Future[*model.MorphTargets]

	Skins            []*model.Skin
	Expressions      []*model.Expression
	ExpressionGroups []*model.ExpressionGroup
}

// NodeLoadInfo describes one node.
type NodeLoadInfo struct {
	ID           model.NodeID
	Name         string
	HumanoidTags []model.HumanoidTag
	Transform    model.Decomposed
	Children     []int
	Components   []ComponentLoadInfo
}

// ComponentLoadInfo is one of PrimitiveInfo, JointInfo, CameraInfo or InfluenceTargetInfo.
type ComponentLoadInfo interface {
	componentLoadInfo()
}

// PrimitiveInfo references ModelLoadInfo.Primitives[InfoIndex].
type PrimitiveInfo struct {
	InfoIndex int
}

// JointInfo marks the node as a joint.
type JointInfo struct {
	SkinIndex  int
	JointIndex int
}

// CameraInfo attaches a camera.
type CameraInfo struct {
	Name   string
	Camera model.CameraTransform
}

// InfluenceTargetInfo derives the node's influence slot from the node with ID Source.
type InfluenceTargetInfo struct {
	Source               model.NodeID
	Influence            float32
	InfluenceRotation    bool
	InfluenceTranslation bool
}

func (PrimitiveInfo) componentLoadInfo()       {}
func (JointInfo) componentLoadInfo()           {}
func (CameraInfo) componentLoadInfo()          {}
func (InfluenceTargetInfo) componentLoadInfo() {}

// PrimitiveLoadInfo describes one drawable. Optional indices are -1 when absent.
type PrimitiveLoadInfo struct {
	Vertices              int
	Mode                  model.PrimitiveMode
	VertexBufferIndex     int
	IndexBufferIndex      int
	Material              MaterialLoadInfo // nil uses model.DefaultMaterial
	SkinIndex             int
	MorphedPrimitiveIndex int
}

// TextureInfo references ModelLoadInfo.Textures[TextureIndex].
type TextureInfo struct {
	TextureIndex int
}

// MaterialLoadInfo is either *PbrMaterialInfo or *UnlitMaterialInfo.
type MaterialLoadInfo interface {
	materialLoadInfo()
}

// MaterialInfoCommon holds the fields shared by material kinds.
type MaterialInfoCommon struct {
	Name             string
	BaseColor        [4]float32
	BaseColorTexture *TextureInfo
	AlphaMode        model.AlphaMode
	AlphaCutoff      float32
	DoubleSided      bool
	Skinned          bool
	Morphed          bool
}

type PbrMaterialInfo struct {
	MaterialInfoCommon
	MetallicFactor           float32
	RoughnessFactor          float32
	MetallicRoughnessTexture *TextureInfo
	NormalTexture            *TextureInfo
	OcclusionTexture         *TextureInfo
	EmissiveTexture          *TextureInfo
	EmissiveFactor           [3]float32
}

type UnlitMaterialInfo struct {
	MaterialInfoCommon
}

func (*PbrMaterialInfo) materialLoadInfo()   {}
func (*UnlitMaterialInfo) materialLoadInfo() {}
