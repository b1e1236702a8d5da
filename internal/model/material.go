package model

// AlphaMode controls how alpha is interpreted.
type AlphaMode int

const (
	AlphaOpaque AlphaMode = iota
	AlphaMask
	AlphaBlend
)

// Material is either *PbrMaterial or *UnlitMaterial.
type Material interface {
	MaterialName() string
	// Textures lists every texture slot, fallbacks included.
	Textures() []*Texture
}

// MaterialCommon holds the fields shared by all material kinds.
type MaterialCommon struct {
	Name             string
	BaseColor        [4]float32
	BaseColorTexture *Texture
	AlphaMode        AlphaMode
	AlphaCutoff      float32
	DoubleSided      bool
	Skinned          bool
	Morphed          bool
}

func (m *MaterialCommon) MaterialName() string { return m.Name }

// PbrMaterial is a metallic-roughness material.
type PbrMaterial struct {
	MaterialCommon
	MetallicFactor           float32
	RoughnessFactor          float32
	MetallicRoughnessTexture *Texture
	NormalTexture            *Texture
	OcclusionTexture         *Texture
	EmissiveTexture          *Texture
	EmissiveFactor           [3]float32
}

func (m *PbrMaterial) Textures() []*Texture {
	return []*Texture{
		m.BaseColorTexture,
		m.MetallicRoughnessTexture,
		m.NormalTexture,
		m.OcclusionTexture,
		m.EmissiveTexture,
	}
}

// UnlitMaterial is a flat shaded material.
type UnlitMaterial struct {
	MaterialCommon
}

func (m *UnlitMaterial) Textures() []*Texture {
	return []*Texture{m.BaseColorTexture}
}

// DefaultMaterial returns the material used by primitives without one.
func DefaultMaterial() Material {
	return &UnlitMaterial{MaterialCommon: MaterialCommon{
		Name:             "default",
		BaseColor:        [4]float32{1, 1, 1, 1},
		BaseColorTexture: WhiteTexture(),
		AlphaCutoff:      0.5,
	}}
}
