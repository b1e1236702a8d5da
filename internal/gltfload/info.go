package gltfload

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/armorstand/internal/model"
	"github.com/Faultbox/armorstand/internal/model/load"
	"github.com/Faultbox/armorstand/pkg/math"
)

type primKey struct{ mesh, prim int }

// builder flattens a glTF document into load.ModelLoadInfo. Buffers and
// textures are decoded on g; everything else is built synchronously.
type builder struct {
	ctx  context.Context
	g    *errgroup.Group
	doc  *gltf.Document
	dir  string
	file string
	log  *zap.Logger

	info *load.ModelLoadInfo
	tags [][]model.HumanoidTag

	vertexIndex map[primKey]int
	indexIndex  map[int]int
	morphFuture map[primKey]*load.Future[*model.MorphTargets]
	// meshMorphed and nodeMorphed list the morphed primitive indices created
	// for each mesh and node.
	meshMorphed map[int][]int
	nodeMorphed map[int][]int
}

func newBuilder(ctx context.Context, g *errgroup.Group, doc *gltf.Document, dir, file string, log *zap.Logger) *builder {
	return &builder{
		ctx:         ctx,
		g:           g,
		doc:         doc,
		dir:         dir,
		file:        file,
		log:         log,
		info:        &load.ModelLoadInfo{},
		tags:        humanoidTags(doc),
		vertexIndex: make(map[primKey]int),
		indexIndex:  make(map[int]int),
		morphFuture: make(map[primKey]*load.Future[*model.MorphTargets]),
		meshMorphed: make(map[int][]int),
		nodeMorphed: make(map[int][]int),
	}
}

func (b *builder) nodeID(i int) model.NodeID {
	return model.NodeID(b.file + "#" + strconv.Itoa(i))
}

func (b *builder) build() (*load.ModelLoadInfo, error) {
	b.buildTextures()
	b.buildSkins()

	joints := make(map[int][]load.ComponentLoadInfo)
	for s, skin := range b.doc.Skins {
		for j, node := range skin.Joints {
			joints[int(node)] = append(joints[int(node)], load.JointInfo{SkinIndex: s, JointIndex: j})
		}
	}

	b.info.Nodes = make([]load.NodeLoadInfo, len(b.doc.Nodes)+1)
	for i, n := range b.doc.Nodes {
		ni := load.NodeLoadInfo{
			ID:           b.nodeID(i),
			Name:         n.Name,
			HumanoidTags: b.tags[i],
			Transform:    nodeTransform(n),
		}
		for _, c := range n.Children {
			if int(c) >= len(b.doc.Nodes) {
				return nil, fmt.Errorf("node %d: child %d out of range", i, c)
			}
			ni.Children = append(ni.Children, int(c))
		}
		if mesh, ok := indexOf(n.Mesh); ok {
			skin := -1
			if s, ok := indexOf(n.Skin); ok {
				skin = s
			}
			comps, err := b.buildMesh(i, mesh, skin)
			if err != nil {
				return nil, fmt.Errorf("node %d: %w", i, err)
			}
			ni.Components = append(ni.Components, comps...)
		}
		ni.Components = append(ni.Components, joints[i]...)
		if cam, ok := indexOf(n.Camera); ok {
			c, err := b.buildCamera(cam)
			if err != nil {
				return nil, fmt.Errorf("node %d: %w", i, err)
			}
			ni.Components = append(ni.Components, c)
		}
		if c, ok := b.nodeConstraint(n); ok {
			ni.Components = append(ni.Components, c)
		}
		b.info.Nodes[i] = ni
	}

	root := len(b.doc.Nodes)
	b.info.Nodes[root] = load.NodeLoadInfo{
		ID:        model.NodeID(b.file + "#root"),
		Name:      "root",
		Transform: model.IdentityDecomposed(),
		Children:  b.rootChildren(),
	}
	b.info.RootNodeIndex = root

	b.buildExpressions()
	return b.info, nil
}

// rootChildren returns the nodes of the default scene, or every parentless
// node when the document declares no scene.
func (b *builder) rootChildren() []int {
	var out []int
	if len(b.doc.Scenes) > 0 {
		scene := 0
		if s, ok := indexOf(b.doc.Scene); ok && s < len(b.doc.Scenes) {
			scene = s
		}
		for _, n := range b.doc.Scenes[scene].Nodes {
			if int(n) < len(b.doc.Nodes) {
				out = append(out, int(n))
			}
		}
		return out
	}
	parented := make([]bool, len(b.doc.Nodes))
	for _, n := range b.doc.Nodes {
		for _, c := range n.Children {
			if int(c) < len(parented) {
				parented[c] = true
			}
		}
	}
	for i, p := range parented {
		if !p {
			out = append(out, i)
		}
	}
	return out
}

// nodeTransform reads the rest transform. Zero rotation and scale are the
// unset values of documents built in memory and mean identity.
func nodeTransform(n *gltf.Node) model.Decomposed {
	if n.Matrix != ([16]float32{}) && n.Matrix != [16]float32(math.Identity()) {
		t, r, s := math.Mat4(n.Matrix).Decompose()
		return model.Decomposed{Translation: t, Rotation: r, Scale: s}
	}
	d := model.Decomposed{
		Translation: math.Vec3FromArray(n.Translation),
		Rotation:    math.QuatFromArray(n.Rotation),
		Scale:       math.Vec3FromArray(n.Scale),
	}
	if n.Rotation == ([4]float32{}) {
		d.Rotation = math.QuatIdentity()
	}
	if n.Scale == ([3]float32{}) {
		d.Scale = math.Vec3One
	}
	return d
}

func (b *builder) buildTextures() {
	b.info.Textures = make([]*load.Future[*model.Texture], len(b.doc.Textures))
	for i := range b.doc.Textures {
		b.info.Textures[i] = load.Spawn(b.ctx, b.g, func(context.Context) (*model.Texture, error) {
			return loadTexture(b.doc, b.dir, i)
		})
	}
}

func (b *builder) buildSkins() {
	b.info.Skins = make([]*model.Skin, len(b.doc.Skins))
	for i, s := range b.doc.Skins {
		skin := &model.Skin{
			Name:      s.Name,
			Joints:    make([]int, len(s.Joints)),
			JointTags: make([]model.HumanoidTag, len(s.Joints)),
		}
		for j, node := range s.Joints {
			skin.Joints[j] = int(node)
			if int(node) < len(b.tags) && len(b.tags[node]) > 0 {
				skin.JointTags[j] = b.tags[node][0]
			}
		}
		if ibm, ok := indexOf(s.InverseBindMatrices); ok {
			m, err := readMat4(b.doc, ibm)
			if err != nil {
				b.log.Warn("Inverse bind matrices unreadable, using identity",
					zap.Int("skin", i), zap.Error(err))
			} else {
				skin.InverseBindMatrices = m
			}
		}
		b.info.Skins[i] = skin
	}
}

// buildMesh creates one primitive info per mesh primitive. Vertex, index and
// morph target futures are shared by every node instancing the mesh; morph
// weights are per node.
func (b *builder) buildMesh(node, mesh, skin int) ([]load.ComponentLoadInfo, error) {
	if mesh >= len(b.doc.Meshes) {
		return nil, fmt.Errorf("mesh %d out of range", mesh)
	}
	m := b.doc.Meshes[mesh]
	names := targetNames(m)
	var comps []load.ComponentLoadInfo

	for p, prim := range m.Primitives {
		key := primKey{mesh, p}
		pi := load.PrimitiveLoadInfo{
			Mode:                  primitiveMode(prim.Mode),
			IndexBufferIndex:      -1,
			SkinIndex:             skin,
			MorphedPrimitiveIndex: -1,
		}

		pos, ok := prim.Attributes["POSITION"]
		if !ok {
			return nil, fmt.Errorf("mesh %d primitive %d: no POSITION attribute", mesh, p)
		}
		if int(pos) >= len(b.doc.Accessors) {
			return nil, fmt.Errorf("mesh %d primitive %d: accessor %d out of range", mesh, p, pos)
		}
		pi.Vertices = int(b.doc.Accessors[pos].Count)

		vi, ok := b.vertexIndex[key]
		if !ok {
			vi = len(b.info.VertexBuffers)
			b.vertexIndex[key] = vi
			b.info.VertexBuffers = append(b.info.VertexBuffers, load.Spawn(b.ctx, b.g, func(context.Context) (*model.VertexBuffer, error) {
				vb, err := buildVertexBuffer(b.doc, prim)
				if err != nil {
					return nil, fmt.Errorf("mesh %d primitive %d: %w", mesh, p, err)
				}
				return vb, nil
			}))
		}
		pi.VertexBufferIndex = vi

		if acc, ok := indexOf(prim.Indices); ok {
			ii, ok := b.indexIndex[acc]
			if !ok {
				ii = len(b.info.IndexBuffers)
				b.indexIndex[acc] = ii
				b.info.IndexBuffers = append(b.info.IndexBuffers, load.Spawn(b.ctx, b.g, func(context.Context) (*model.IndexBuffer, error) {
					ib, err := buildIndexBuffer(b.doc, acc)
					if err != nil {
						return nil, fmt.Errorf("indices %d: %w", acc, err)
					}
					return ib, nil
				}))
			}
			pi.IndexBufferIndex = ii
			pi.Vertices = int(b.doc.Accessors[acc].Count)
		}

		if len(prim.Targets) > 0 {
			f, ok := b.morphFuture[key]
			if !ok {
				f = load.Spawn(b.ctx, b.g, func(context.Context) (*model.MorphTargets, error) {
					t, err := buildMorphTargets(b.doc, prim, m.Weights, names)
					if err != nil {
						return nil, fmt.Errorf("mesh %d primitive %d: %w", mesh, p, err)
					}
					return t, nil
				})
				b.morphFuture[key] = f
			}
			pi.MorphedPrimitiveIndex = len(b.info.MorphTargets)
			b.info.MorphTargets = append(b.info.MorphTargets, f)
			b.meshMorphed[mesh] = append(b.meshMorphed[mesh], pi.MorphedPrimitiveIndex)
			b.nodeMorphed[node] = append(b.nodeMorphed[node], pi.MorphedPrimitiveIndex)
		}

		if mat, ok := indexOf(prim.Material); ok && mat < len(b.doc.Materials) {
			pi.Material = b.buildMaterial(b.doc.Materials[mat], skin >= 0, len(prim.Targets) > 0)
		}

		comps = append(comps, load.PrimitiveInfo{InfoIndex: len(b.info.Primitives)})
		b.info.Primitives = append(b.info.Primitives, pi)
	}
	return comps, nil
}

func primitiveMode(m gltf.PrimitiveMode) model.PrimitiveMode {
	switch m {
	case gltf.PrimitivePoints:
		return model.ModePoints
	case gltf.PrimitiveLines:
		return model.ModeLines
	case gltf.PrimitiveLineLoop:
		return model.ModeLineLoop
	case gltf.PrimitiveLineStrip:
		return model.ModeLineStrip
	case gltf.PrimitiveTriangleStrip:
		return model.ModeTriangleStrip
	case gltf.PrimitiveTriangleFan:
		return model.ModeTriangleFan
	default:
		return model.ModeTriangles
	}
}

func targetNames(m *gltf.Mesh) []string {
	if m.Extras == nil {
		return nil
	}
	var extras struct {
		TargetNames []string `json:"targetNames"`
	}
	raw, err := json.Marshal(m.Extras)
	if err != nil || json.Unmarshal(raw, &extras) != nil {
		return nil
	}
	return extras.TargetNames
}

func (b *builder) textureInfo(v any) *load.TextureInfo {
	i, ok := indexOf(v)
	if !ok || i >= len(b.info.Textures) {
		return nil
	}
	return &load.TextureInfo{TextureIndex: i}
}

func (b *builder) buildMaterial(m *gltf.Material, skinned, morphed bool) load.MaterialLoadInfo {
	common := load.MaterialInfoCommon{
		Name:        m.Name,
		BaseColor:   [4]float32{1, 1, 1, 1},
		AlphaCutoff: optFloat(m.AlphaCutoff, 0.5),
		DoubleSided: m.DoubleSided,
		Skinned:     skinned,
		Morphed:     morphed,
	}
	switch m.AlphaMode {
	case gltf.AlphaMask:
		common.AlphaMode = model.AlphaMask
	case gltf.AlphaBlend:
		common.AlphaMode = model.AlphaBlend
	}

	pbr := m.PBRMetallicRoughness
	if pbr != nil {
		if pbr.BaseColorFactor != nil {
			common.BaseColor = *pbr.BaseColorFactor
		}
		if pbr.BaseColorTexture != nil {
			common.BaseColorTexture = b.textureInfo(pbr.BaseColorTexture.Index)
		}
	}

	if unlit(m) {
		return &load.UnlitMaterialInfo{MaterialInfoCommon: common}
	}

	info := &load.PbrMaterialInfo{
		MaterialInfoCommon: common,
		MetallicFactor:     1,
		RoughnessFactor:    1,
		EmissiveFactor:     m.EmissiveFactor,
	}
	if pbr != nil {
		info.MetallicFactor = optFloat(pbr.MetallicFactor, 1)
		info.RoughnessFactor = optFloat(pbr.RoughnessFactor, 1)
		if pbr.MetallicRoughnessTexture != nil {
			info.MetallicRoughnessTexture = b.textureInfo(pbr.MetallicRoughnessTexture.Index)
		}
	}
	if m.NormalTexture != nil {
		info.NormalTexture = b.textureInfo(m.NormalTexture.Index)
	}
	if m.OcclusionTexture != nil {
		info.OcclusionTexture = b.textureInfo(m.OcclusionTexture.Index)
	}
	if m.EmissiveTexture != nil {
		info.EmissiveTexture = b.textureInfo(m.EmissiveTexture.Index)
	}
	return info
}

func unlit(m *gltf.Material) bool {
	for _, ext := range []string{"KHR_materials_unlit", "VRMC_materials_mtoon"} {
		if _, ok := m.Extensions[ext]; ok {
			return true
		}
	}
	return false
}

func optFloat[T ~float32 | ~float64](p *T, def float32) float32 {
	if p == nil {
		return def
	}
	return float32(*p)
}

func (b *builder) buildCamera(i int) (load.CameraInfo, error) {
	if i >= len(b.doc.Cameras) {
		return load.CameraInfo{}, fmt.Errorf("camera %d out of range", i)
	}
	c := b.doc.Cameras[i]
	switch {
	case c.Perspective != nil:
		p := c.Perspective
		return load.CameraInfo{Name: c.Name, Camera: &model.PerspectiveCamera{
			YFov:        float32(p.Yfov),
			AspectRatio: optFloat(p.AspectRatio, 0),
			ZNear:       float32(p.Znear),
			ZFar:        optFloat(p.Zfar, 0),
		}}, nil
	case c.Orthographic != nil:
		o := c.Orthographic
		return load.CameraInfo{Name: c.Name, Camera: &model.OrthographicCamera{
			XMag:  float32(o.Xmag),
			YMag:  float32(o.Ymag),
			ZNear: float32(o.Znear),
			ZFar:  float32(o.Zfar),
		}}, nil
	}
	return load.CameraInfo{}, fmt.Errorf("camera %d has no projection", i)
}

type nodeConstraintExtension struct {
	Constraint struct {
		Rotation *struct {
			Source int      `json:"source"`
			Weight *float32 `json:"weight"`
		} `json:"rotation"`
		Roll *struct {
			Source int      `json:"source"`
			Weight *float32 `json:"weight"`
		} `json:"roll"`
	} `json:"constraint"`
}

// nodeConstraint maps VRMC_node_constraint rotation and roll constraints
// onto influence targets.
func (b *builder) nodeConstraint(n *gltf.Node) (load.InfluenceTargetInfo, bool) {
	raw, ok := n.Extensions["VRMC_node_constraint"]
	if !ok {
		return load.InfluenceTargetInfo{}, false
	}
	var ext nodeConstraintExtension
	data, err := json.Marshal(raw)
	if err != nil || json.Unmarshal(data, &ext) != nil {
		return load.InfluenceTargetInfo{}, false
	}
	source, weight := -1, (*float32)(nil)
	switch {
	case ext.Constraint.Rotation != nil:
		source, weight = ext.Constraint.Rotation.Source, ext.Constraint.Rotation.Weight
	case ext.Constraint.Roll != nil:
		source, weight = ext.Constraint.Roll.Source, ext.Constraint.Roll.Weight
	default:
		return load.InfluenceTargetInfo{}, false
	}
	return load.InfluenceTargetInfo{
		Source:            b.nodeID(source),
		Influence:         optFloat(weight, 1),
		InfluenceRotation: true,
	}, true
}
