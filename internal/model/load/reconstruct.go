package load

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/armorstand/internal/model"
)

// ErrResourceNotInUse is returned in verification mode when a loaded resource
// is not referenced by the reconstructed scene.
var ErrResourceNotInUse = errors.New("resource not in use")

// Options controls reconstruction.
type Options struct {
	// VerifyResources checks that every loaded texture, vertex buffer and
	// index buffer is referenced by the scene.
	VerifyResources bool
	Logger          *zap.Logger
}

type reconstructor struct {
	ctx     context.Context
	info    *ModelLoadInfo
	log     *zap.Logger
	idIndex map[model.NodeID]int
	cameras []*model.Camera
}

// Reconstruct assembles the scene described by info. Nodes are materialized
// in order, awaiting their resources; children are wired once every node is
// complete. The returned scene is unreferenced.
func Reconstruct(ctx context.Context, info *ModelLoadInfo, opts Options) (*model.Scene, error) {
	r := &reconstructor{
		ctx:     ctx,
		info:    info,
		log:     opts.Logger,
		idIndex: make(map[model.NodeID]int, len(info.Nodes)),
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if info.RootNodeIndex < 0 || info.RootNodeIndex >= len(info.Nodes) {
		return nil, fmt.Errorf("root node %d out of range (%d nodes)", info.RootNodeIndex, len(info.Nodes))
	}
	for i := range info.Nodes {
		if _, dup := r.idIndex[info.Nodes[i].ID]; !dup {
			r.idIndex[info.Nodes[i].ID] = i
		}
	}

	nodes := make([]*model.Node, len(info.Nodes))
	for i := range info.Nodes {
		n, err := r.loadNode(i, &info.Nodes[i])
		if err != nil {
			return nil, fmt.Errorf("node %d (%s): %w", i, info.Nodes[i].Name, err)
		}
		nodes[i] = n
	}

	for i, n := range nodes {
		children := make([]*model.Node, 0, len(info.Nodes[i].Children))
		for _, c := range info.Nodes[i].Children {
			if c < 0 || c >= len(nodes) {
				return nil, fmt.Errorf("node %d: child %d out of range", i, c)
			}
			children = append(children, nodes[c])
		}
		n.InitializeChildren(children)
	}

	scene, err := model.NewScene(model.SceneParts{
		Root:             nodes[info.RootNodeIndex],
		Nodes:            nodes,
		Skins:            info.Skins,
		Expressions:      info.Expressions,
		ExpressionGroups: info.ExpressionGroups,
		Cameras:          r.cameras,
	})
	if err != nil {
		return nil, err
	}

	if opts.VerifyResources {
		if err := r.verify(); err != nil {
			// Drop the resource references taken by NewScene.
			scene.Increase()
			scene.Decrease()
			return nil, err
		}
	}
	return scene, nil
}

func (r *reconstructor) loadNode(index int, info *NodeLoadInfo) (*model.Node, error) {
	n := &model.Node{
		ID:           info.ID,
		Name:         info.Name,
		HumanoidTags: info.HumanoidTags,
		Index:        index,
		Transform:    info.Transform,
		Components:   make([]model.Component, 0, len(info.Components)),
	}
	for _, c := range info.Components {
		switch c := c.(type) {
		case PrimitiveInfo:
			p, err := r.loadPrimitive(c.InfoIndex)
			if err != nil {
				return nil, fmt.Errorf("primitive %d: %w", c.InfoIndex, err)
			}
			n.Components = append(n.Components, p)
		case JointInfo:
			n.Components = append(n.Components, &model.JointComponent{
				SkinIndex:  c.SkinIndex,
				JointIndex: c.JointIndex,
			})
		case CameraInfo:
			idx := len(r.cameras)
			r.cameras = append(r.cameras, &model.Camera{Index: idx, Name: c.Name, Transform: c.Camera})
			n.Components = append(n.Components, &model.CameraComponent{CameraIndex: idx})
		case InfluenceTargetInfo:
			source, ok := r.idIndex[c.Source]
			if !ok {
				r.log.Debug("Influence source not found, component dropped",
					zap.Int("node", index), zap.String("source", string(c.Source)))
				continue
			}
			n.Components = append(n.Components, &model.InfluenceTargetComponent{
				SourceNodeIndex:      source,
				Influence:            c.Influence,
				InfluenceRotation:    c.InfluenceRotation,
				InfluenceTranslation: c.InfluenceTranslation,
				Target:               model.TransformInfluence,
			})
		}
	}
	return n, nil
}

func (r *reconstructor) loadPrimitive(infoIndex int) (*model.PrimitiveComponent, error) {
	if infoIndex < 0 || infoIndex >= len(r.info.Primitives) {
		return nil, fmt.Errorf("out of range")
	}
	pi := &r.info.Primitives[infoIndex]

	vertices, err := await(r.ctx, r.info.VertexBuffers, pi.VertexBufferIndex, "vertex buffer")
	if err != nil {
		return nil, err
	}
	var indices *model.IndexBuffer
	if pi.IndexBufferIndex >= 0 {
		if indices, err = await(r.ctx, r.info.IndexBuffers, pi.IndexBufferIndex, "index buffer"); err != nil {
			return nil, err
		}
	}
	var targets *model.MorphTargets
	if pi.MorphedPrimitiveIndex >= 0 {
		if targets, err = await(r.ctx, r.info.MorphTargets, pi.MorphedPrimitiveIndex, "morph targets"); err != nil {
			return nil, err
		}
	}
	material, err := r.loadMaterial(pi.Material)
	if err != nil {
		return nil, err
	}

	return &model.PrimitiveComponent{
		PrimitiveIndex: infoIndex,
		Primitive: &model.Primitive{
			Vertices:     pi.Vertices,
			Mode:         pi.Mode,
			VertexBuffer: vertices,
			IndexBuffer:  indices,
			Material:     material,
			Targets:      targets,
		},
		SkinIndex:             pi.SkinIndex,
		MorphedPrimitiveIndex: pi.MorphedPrimitiveIndex,
	}, nil
}

func (r *reconstructor) loadTexture(ti *TextureInfo) (*model.Texture, error) {
	if ti == nil {
		return model.WhiteTexture(), nil
	}
	t, err := await(r.ctx, r.info.Textures, ti.TextureIndex, "texture")
	if err != nil {
		return nil, err
	}
	if t == nil {
		return model.WhiteTexture(), nil
	}
	return t, nil
}

func (r *reconstructor) loadMaterial(info MaterialLoadInfo) (model.Material, error) {
	switch m := info.(type) {
	case nil:
		return model.DefaultMaterial(), nil
	case *PbrMaterialInfo:
		out := &model.PbrMaterial{
			MaterialCommon:  common(&m.MaterialInfoCommon),
			MetallicFactor:  m.MetallicFactor,
			RoughnessFactor: m.RoughnessFactor,
			EmissiveFactor:  m.EmissiveFactor,
		}
		slots := []struct {
			info *TextureInfo
			dst  **model.Texture
		}{
			{m.BaseColorTexture, &out.BaseColorTexture},
			{m.MetallicRoughnessTexture, &out.MetallicRoughnessTexture},
			{m.NormalTexture, &out.NormalTexture},
			{m.OcclusionTexture, &out.OcclusionTexture},
			{m.EmissiveTexture, &out.EmissiveTexture},
		}
		for _, s := range slots {
			t, err := r.loadTexture(s.info)
			if err != nil {
				return nil, err
			}
			*s.dst = t
		}
		return out, nil
	case *UnlitMaterialInfo:
		out := &model.UnlitMaterial{MaterialCommon: common(&m.MaterialInfoCommon)}
		t, err := r.loadTexture(m.BaseColorTexture)
		if err != nil {
			return nil, err
		}
		out.BaseColorTexture = t
		return out, nil
	default:
		return nil, fmt.Errorf("unknown material info %T", info)
	}
}

func common(m *MaterialInfoCommon) model.MaterialCommon {
	return model.MaterialCommon{
		Name:        m.Name,
		BaseColor:   m.BaseColor,
		AlphaMode:   m.AlphaMode,
		AlphaCutoff: m.AlphaCutoff,
		DoubleSided: m.DoubleSided,
		Skinned:     m.Skinned,
		Morphed:     m.Morphed,
	}
}

func (r *reconstructor) verify() error {
	if err := verifyAll(r.ctx, r.info.Textures, "texture", func(t *model.Texture) bool {
		return t == nil || t.InUse()
	}); err != nil {
		return err
	}
	if err := verifyAll(r.ctx, r.info.IndexBuffers, "index buffer", func(b *model.IndexBuffer) bool {
		return b == nil || b.InUse()
	}); err != nil {
		return err
	}
	return verifyAll(r.ctx, r.info.VertexBuffers, "vertex buffer", func(b *model.VertexBuffer) bool {
		return b == nil || b.InUse()
	})
}

func verifyAll[T any](ctx context.Context, futures []*Future[T], kind string, inUse func(T) bool) error {
	for i, f := range futures {
		v, err := f.Await(ctx)
		if err != nil {
			return fmt.Errorf("%s %d: %w", kind, i, err)
		}
		if !inUse(v) {
			return fmt.Errorf("%w: %s %d", ErrResourceNotInUse, kind, i)
		}
	}
	return nil
}

func await[T any](ctx context.Context, futures []*Future[T], index int, kind string) (T, error) {
	if index < 0 || index >= len(futures) {
		var zero T
		return zero, fmt.Errorf("%s %d out of range", kind, index)
	}
	v, err := futures[index].Await(ctx)
	if err != nil {
		return v, fmt.Errorf("%s %d: %w", kind, index, err)
	}
	return v, nil
}
