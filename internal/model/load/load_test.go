package load

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/armorstand/internal/model"
)

func baseInfo() *ModelLoadInfo {
	return &ModelLoadInfo{
		RootNodeIndex: 0,
		Primitives: []PrimitiveLoadInfo{{
			Vertices:              3,
			Mode:                  model.ModeTriangles,
			VertexBufferIndex:     0,
			IndexBufferIndex:      -1,
			SkinIndex:             -1,
			MorphedPrimitiveIndex: -1,
			Material: &PbrMaterialInfo{
				MaterialInfoCommon: MaterialInfoCommon{Name: "skin", BaseColorTexture: &TextureInfo{TextureIndex: 0}},
			},
		}},
		Textures:      []*Future[*model.Texture]{Resolved(model.NewTexture("t0", 1, 1, make([]byte, 4)))},
		VertexBuffers: []*Future[*model.VertexBuffer]{Resolved(model.NewVertexBuffer(model.VertexPositionNormalUV, 3, nil))},
	}
}

func TestReconstructWiresChildren(t *testing.T) {
	info := baseInfo()
	info.Nodes = []NodeLoadInfo{
		{ID: "a#0", Name: "root", Transform: model.IdentityDecomposed(), Children: []int{2, 1}},
		{ID: "a#1", Name: "left", Transform: model.IdentityDecomposed()},
		{ID: "a#2", Name: "right", Transform: model.IdentityDecomposed(), Components: []ComponentLoadInfo{PrimitiveInfo{InfoIndex: 0}}},
	}

	scene, err := Reconstruct(context.Background(), info, Options{VerifyResources: true})
	require.NoError(t, err)

	root := scene.Root
	require.Len(t, root.Children, 2)
	assert.Equal(t, "right", root.Children[0].Name)
	assert.Equal(t, "left", root.Children[1].Name)
	assert.Same(t, root, scene.Nodes[1].Parent)
	require.Len(t, scene.PrimitiveComponents, 1)

	mat := scene.PrimitiveComponents[0].Primitive.Material.(*model.PbrMaterial)
	assert.Equal(t, "t0", mat.BaseColorTexture.Name)
	assert.Same(t, model.WhiteTexture(), mat.NormalTexture)
}

func TestReconstructDropsUnresolvedInfluence(t *testing.T) {
	info := baseInfo()
	info.Nodes = []NodeLoadInfo{
		{ID: "a#0", Children: []int{1}, Transform: model.IdentityDecomposed(), Components: []ComponentLoadInfo{
			PrimitiveInfo{InfoIndex: 0},
		}},
		{ID: "a#1", Transform: model.IdentityDecomposed(), Components: []ComponentLoadInfo{
			InfluenceTargetInfo{Source: "a#404", Influence: 1, InfluenceRotation: true},
			JointInfo{SkinIndex: 0, JointIndex: 0},
			InfluenceTargetInfo{Source: "a#0", Influence: 0.3, InfluenceTranslation: true},
		}},
	}
	info.Skins = []*model.Skin{{Joints: []int{1}}}

	scene, err := Reconstruct(context.Background(), info, Options{})
	require.NoError(t, err)

	comps := scene.Nodes[1].Components
	require.Len(t, comps, 2)
	assert.Equal(t, model.ComponentJoint, comps[0].Kind())
	inf, ok := comps[1].(*model.InfluenceTargetComponent)
	require.True(t, ok)
	assert.Equal(t, 0, inf.SourceNodeIndex)
	assert.Equal(t, float32(0.3), inf.Influence)
	assert.Equal(t, model.TransformInfluence, inf.Target)
}

func TestReconstructCameraOrder(t *testing.T) {
	info := baseInfo()
	info.Nodes = []NodeLoadInfo{
		{ID: "c#0", Children: []int{1, 2}, Transform: model.IdentityDecomposed(), Components: []ComponentLoadInfo{PrimitiveInfo{}}},
		{ID: "c#1", Transform: model.IdentityDecomposed(), Components: []ComponentLoadInfo{
			CameraInfo{Name: "second", Camera: &model.PerspectiveCamera{YFov: 1}},
		}},
		{ID: "c#2", Transform: model.IdentityDecomposed(), Components: []ComponentLoadInfo{
			CameraInfo{Name: "third", Camera: &model.MMDCamera{Fov: 30}},
			CameraInfo{Name: "fourth", Camera: &model.OrthographicCamera{XMag: 1}},
		}},
	}

	scene, err := Reconstruct(context.Background(), info, Options{})
	require.NoError(t, err)
	require.Len(t, scene.Cameras, 3)
	for i, name := range []string{"second", "third", "fourth"} {
		assert.Equal(t, i, scene.Cameras[i].Index)
		assert.Equal(t, name, scene.Cameras[i].Name)
	}
	assert.Equal(t, 2, scene.Nodes[2].Components[1].(*model.CameraComponent).CameraIndex)
}

func TestReconstructDefaultMaterial(t *testing.T) {
	info := baseInfo()
	info.Primitives[0].Material = nil
	info.Textures = nil
	info.Nodes = []NodeLoadInfo{{ID: "d#0", Transform: model.IdentityDecomposed(),
		Components: []ComponentLoadInfo{PrimitiveInfo{}}}}

	scene, err := Reconstruct(context.Background(), info, Options{VerifyResources: true})
	require.NoError(t, err)
	assert.Equal(t, "default", scene.PrimitiveComponents[0].Primitive.Material.MaterialName())
}

func TestReconstructVerifyResources(t *testing.T) {
	info := baseInfo()
	// The texture is loaded but no material references it.
	info.Primitives[0].Material = &UnlitMaterialInfo{}
	info.Nodes = []NodeLoadInfo{{ID: "v#0", Transform: model.IdentityDecomposed(),
		Components: []ComponentLoadInfo{PrimitiveInfo{}}}}
	vb, err := info.VertexBuffers[0].Await(context.Background())
	require.NoError(t, err)

	_, err = Reconstruct(context.Background(), info, Options{VerifyResources: true})
	assert.ErrorIs(t, err, ErrResourceNotInUse)
	assert.True(t, vb.Closed())
}

func TestReconstructPropagatesLoadErrors(t *testing.T) {
	info := baseInfo()
	boom := errors.New("decode failed")
	info.Textures[0] = Failed[*model.Texture](boom)
	info.Nodes = []NodeLoadInfo{{ID: "e#0", Transform: model.IdentityDecomposed(),
		Components: []ComponentLoadInfo{PrimitiveInfo{}}}}

	_, err := Reconstruct(context.Background(), info, Options{})
	assert.ErrorIs(t, err, boom)
}

func TestReconstructBadIndices(t *testing.T) {
	info := baseInfo()
	info.Nodes = []NodeLoadInfo{{ID: "x#0", Children: []int{7}, Transform: model.IdentityDecomposed()}}
	_, err := Reconstruct(context.Background(), info, Options{})
	assert.Error(t, err)

	info.RootNodeIndex = 3
	_, err = Reconstruct(context.Background(), info, Options{})
	assert.Error(t, err)
}

func TestFutureAwait(t *testing.T) {
	release := make(chan struct{})
	f := Go(context.Background(), func(context.Context) (int, error) {
		<-release
		return 42, nil
	})
	assert.False(t, f.Done())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestSpawnCancelsGroup(t *testing.T) {
	g, ctx := errgroup.WithContext(context.Background())
	boom := errors.New("boom")
	failing := Spawn(ctx, g, func(context.Context) (int, error) { return 0, boom })
	waiting := Spawn(ctx, g, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	assert.ErrorIs(t, g.Wait(), boom)
	_, err := failing.Await(context.Background())
	assert.ErrorIs(t, err, boom)
	_, err = waiting.Await(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}
