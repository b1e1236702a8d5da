package animation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/armorstand/internal/model"
	"github.com/Faultbox/armorstand/pkg/keyframe"
	"github.com/Faultbox/armorstand/pkg/math"
)

func times(t *testing.T, values ...float32) keyframe.Data[float32] {
	t.Helper()
	d, err := keyframe.PackedFloat(values, 1)
	require.NoError(t, err)
	return d
}

func scalarChannel(t *testing.T, typ ChannelType, target TargetData, ts []float32, values ...float32) *Channel[float32] {
	t.Helper()
	v, err := keyframe.PackedFloat(values, 1)
	require.NoError(t, err)
	ch, err := NewFloatChannel(typ, target, InterpolationLinear, times(t, ts...), v)
	require.NoError(t, err)
	return ch
}

func vec3Channel(t *testing.T, typ ChannelType, target TargetData, ts []float32, values ...float32) *Channel[math.Vec3] {
	t.Helper()
	v, err := keyframe.PackedVec3(values, 1)
	require.NoError(t, err)
	ch, err := NewVec3Channel(typ, target, InterpolationLinear, times(t, ts...), v)
	require.NoError(t, err)
	return ch
}

// newScene builds a root node with one morphed primitive holding three target
// groups, expressions over groups 0 and 1, and a perspective plus an MMD camera.
func newScene(t *testing.T) *model.Scene {
	t.Helper()
	prim := &model.PrimitiveComponent{
		Primitive: &model.Primitive{
			VertexBuffer: model.NewVertexBuffer(model.VertexPositionNormalUV, 0, nil),
			Material:     model.DefaultMaterial(),
			Targets: &model.MorphTargets{Groups: []model.MorphTargetGroup{
				{Position: 0}, {Position: 1}, {Position: 2},
			}},
		},
		SkinIndex:             -1,
		MorphedPrimitiveIndex: 0,
	}
	root := &model.Node{ID: "m#0", Name: "root", Index: 0, Transform: model.IdentityDecomposed()}
	body := &model.Node{ID: "m#1", Name: "body", Index: 1, HumanoidTags: []model.HumanoidTag{"hips"},
		Transform: model.IdentityDecomposed(), Components: []model.Component{
			prim,
			&model.CameraComponent{CameraIndex: 0},
			&model.CameraComponent{CameraIndex: 1},
		}}
	root.InitializeChildren([]*model.Node{body})

	scene, err := model.NewScene(model.SceneParts{
		Root:  root,
		Nodes: []*model.Node{root, body},
		Expressions: []*model.Expression{
			{Name: "a", Bindings: []model.ExpressionBinding{{MorphedPrimitiveIndex: 0, GroupIndex: 0}}},
			{Name: "b", Bindings: []model.ExpressionBinding{{MorphedPrimitiveIndex: 0, GroupIndex: 1}}},
			{Name: "both", Bindings: []model.ExpressionBinding{
				{MorphedPrimitiveIndex: 0, GroupIndex: 0},
				{MorphedPrimitiveIndex: 0, GroupIndex: 2},
			}},
		},
		ExpressionGroups: []*model.ExpressionGroup{{
			Name: "mix",
			Items: []model.ExpressionGroupItem{
				{ExpressionIndex: 0, Influence: 0.5},
				{ExpressionIndex: 1, Influence: 0.25},
			},
		}},
		Cameras: []*model.Camera{
			{Index: 0, Name: "persp", Transform: &model.PerspectiveCamera{YFov: 0.8, ZNear: 0.1}},
			{Index: 1, Name: "mmd", Transform: &model.MMDCamera{Fov: 30, Distance: -45}},
		},
	})
	require.NoError(t, err)
	return scene
}

func TestChannelSample(t *testing.T) {
	ch := scalarChannel(t, ChannelMorph, TargetData{}, []float32{0, 1, 3}, 0, 10, 30)
	out := make([]float32, 1)

	tests := []struct {
		time float32
		want float32
	}{
		{-1, 0},
		{0, 0},
		{0.5, 5},
		{1, 10},
		{2, 20},
		{3, 30},
		{10, 30},
	}
	for _, tt := range tests {
		ch.Sample(tt.time, out)
		assert.InDelta(t, tt.want, out[0], 1e-5, "time %v", tt.time)
	}
	assert.Equal(t, float32(3), ch.Duration())

	ch.Interpolation = InterpolationStep
	ch.Sample(2.9, out)
	assert.Equal(t, float32(10), out[0])
}

func TestChannelFrameMismatch(t *testing.T) {
	v, err := keyframe.PackedFloat([]float32{1, 2}, 1)
	require.NoError(t, err)
	_, err = NewFloatChannel(ChannelMorph, TargetData{}, InterpolationLinear, times(t, 0, 1, 2), v)
	assert.ErrorIs(t, err, keyframe.ErrInvalidLayout)
}

func TestRotationItemNormalizes(t *testing.T) {
	scene := newScene(t)
	inst := model.NewInstance(scene)

	v, err := keyframe.PackedQuat([]float32{
		0, 0, 0, 1,
		0, 1, 0, 0,
	}, 1)
	require.NoError(t, err)
	ch, err := NewQuatChannel(ChannelRotation, TargetData{}, InterpolationLinear, times(t, 0, 1), v)
	require.NoError(t, err)
	ch.Lerp = func(a, b *math.Quat, f float32, out *math.Quat) { *out = a.Lerp(*b, f) }

	item, err := NewRotationItem(1, model.TransformAbsolute, ch)
	require.NoError(t, err)

	for _, tm := range []float32{0, 0.25, 0.5, 0.75, 1} {
		item.Apply(inst, tm)
		got, _ := inst.Transform(1).Get(model.TransformAbsolute)
		assert.InDelta(t, 1, got.Rotation.Length(), 1e-5, "time %v", tm)
	}
}

func TestTranslationItem(t *testing.T) {
	scene := newScene(t)
	inst := model.NewInstance(scene)
	ch := vec3Channel(t, ChannelTranslation, TargetData{}, []float32{0, 2}, 0, 0, 0, 2, 4, 6)

	item, err := NewTranslationItem(1, model.TransformAnimation, ch)
	require.NoError(t, err)
	item.Apply(inst, 1)

	got, set := inst.Transform(1).Get(model.TransformAnimation)
	require.True(t, set)
	assert.Equal(t, math.Vec3{X: 1, Y: 2, Z: 3}, got.Translation)
	assert.Equal(t, math.Vec3One, got.Scale)
}

func TestExpressionGroupFanOut(t *testing.T) {
	scene := newScene(t)
	inst := model.NewInstance(scene)
	ch := scalarChannel(t, ChannelExpression, TargetData{}, []float32{0}, 0.8)

	item, err := NewExpressionGroupItem(scene.ExpressionGroups[0], ch)
	require.NoError(t, err)
	item.Apply(inst, 0)

	assert.InDelta(t, 0.4, inst.GroupWeight(0, 0), 1e-6)
	assert.InDelta(t, 0.2, inst.GroupWeight(0, 1), 1e-6)
	assert.Equal(t, float32(0), inst.GroupWeight(0, 2))
}

func TestExpressionFanOut(t *testing.T) {
	scene := newScene(t)
	inst := model.NewInstance(scene)
	ch := scalarChannel(t, ChannelExpression, TargetData{}, []float32{0}, 0.6)

	item, err := NewExpressionItem(scene.Expressions[2], ch)
	require.NoError(t, err)
	item.Apply(inst, 0)

	assert.Equal(t, float32(0.6), inst.GroupWeight(0, 0))
	assert.Equal(t, float32(0), inst.GroupWeight(0, 1))
	assert.Equal(t, float32(0.6), inst.GroupWeight(0, 2))
}

func TestMorphItem(t *testing.T) {
	scene := newScene(t)
	inst := model.NewInstance(scene)
	ch := scalarChannel(t, ChannelMorph, TargetData{}, []float32{0, 1}, 0, 1)

	item, err := NewMorphItem(0, 2, ch)
	require.NoError(t, err)
	item.Apply(inst, 0.5)
	assert.InDelta(t, 0.5, inst.GroupWeight(0, 2), 1e-6)
}

func TestCameraFovRouting(t *testing.T) {
	scene := newScene(t)
	inst := model.NewInstance(scene)
	inst.CameraTransforms()[0] = &model.PerspectiveCamera{YFov: 0.8}
	ortho := &model.OrthographicCamera{XMag: 1, YMag: 1}

	ch := scalarChannel(t, ChannelCameraFov, TargetData{}, []float32{0}, 0.5)
	for i := 0; i < 2; i++ {
		item, err := NewCameraFovItem(i, ch)
		require.NoError(t, err)
		item.Apply(inst, 0)
	}
	assert.Equal(t, float32(0.5), inst.CameraTransforms()[0].(*model.PerspectiveCamera).YFov)
	assert.Equal(t, float32(0.5), inst.CameraTransforms()[1].(*model.MMDCamera).Fov)

	inst.CameraTransforms()[0] = ortho
	item, err := NewCameraFovItem(0, scalarChannel(t, ChannelCameraFov, TargetData{}, []float32{0}, 2))
	require.NoError(t, err)
	item.Apply(inst, 0)
	assert.Equal(t, &model.OrthographicCamera{XMag: 1, YMag: 1}, ortho)

	// Scene cameras are untouched.
	assert.Equal(t, float32(30), scene.Cameras[1].Transform.(*model.MMDCamera).Fov)
}

func TestMMDOnlyItemsNoOpOnPerspective(t *testing.T) {
	scene := newScene(t)
	inst := model.NewInstance(scene)

	dist, err := NewCameraDistanceItem(0, scalarChannel(t, ChannelCameraDistance, TargetData{}, []float32{0}, 5))
	require.NoError(t, err)
	target, err := NewCameraTargetItem(1, vec3Channel(t, ChannelCameraTarget, TargetData{}, []float32{0}, 1, 2, 3))
	require.NoError(t, err)

	dist.Apply(inst, 0)
	target.Apply(inst, 0)

	assert.Equal(t, &model.PerspectiveCamera{YFov: 0.8, ZNear: 0.1}, inst.CameraTransforms()[0])
	assert.Equal(t, math.Vec3{X: 1, Y: 2, Z: 3}, inst.CameraTransforms()[1].(*model.MMDCamera).TargetPosition)
}

func TestItemChannelMismatch(t *testing.T) {
	vec := vec3Channel(t, ChannelScale, TargetData{}, []float32{0}, 1, 1, 1)
	_, err := NewTranslationItem(0, model.TransformAbsolute, vec)
	assert.ErrorIs(t, err, ErrChannelMismatch)

	scalar := scalarChannel(t, ChannelMorph, TargetData{}, []float32{0}, 1)
	_, err = NewExpressionItem(&model.Expression{}, scalar)
	assert.ErrorIs(t, err, ErrChannelMismatch)
	_, err = NewCameraFovItem(0, scalar)
	assert.ErrorIs(t, err, ErrChannelMismatch)

	grouped, err := keyframe.PackedFloat([]float32{1, 2}, 2)
	require.NoError(t, err)
	multi, err := NewFloatChannel(ChannelMorph, TargetData{}, InterpolationLinear, times(t, 0), grouped)
	require.NoError(t, err)
	_, err = NewMorphItem(0, 0, multi)
	assert.ErrorIs(t, err, ErrChannelMismatch)
}

func TestBind(t *testing.T) {
	scene := newScene(t)
	clip := &Clip{
		Name: "wave",
		Vec3: []*Channel[math.Vec3]{
			vec3Channel(t, ChannelTranslation, TargetData{HumanoidTag: "hips", NodeIndex: -1}, []float32{0, 2}, 0, 0, 0, 0, 1, 0),
			vec3Channel(t, ChannelTranslation, TargetData{NodeName: "tail", NodeIndex: -1}, []float32{0}, 0, 0, 0),
		},
		Scalar: []*Channel[float32]{
			scalarChannel(t, ChannelMorph, TargetData{NodeName: "body", MorphGroup: 1, NodeIndex: -1}, []float32{0}, 1),
			scalarChannel(t, ChannelExpression, TargetData{Expression: "mix"}, []float32{0, 4}, 0, 1),
			scalarChannel(t, ChannelExpression, TargetData{Expression: "missing"}, []float32{0}, 1),
			scalarChannel(t, ChannelCameraFov, TargetData{Camera: "mmd"}, []float32{0}, 45),
		},
	}

	anim, err := Bind(clip, scene, BindOptions{Transform: model.TransformAnimation})
	require.NoError(t, err)
	require.Len(t, anim.Items, 4)
	assert.Equal(t, float32(4), anim.Duration)
	assert.Equal(t, ItemTranslation, anim.Items[0].Kind())
	assert.Equal(t, ItemMorph, anim.Items[1].Kind())
	assert.Equal(t, ItemExpressionGroup, anim.Items[2].Kind())
	assert.Equal(t, ItemCameraFov, anim.Items[3].Kind())

	inst := model.NewInstance(scene)
	anim.ApplyLooped(inst, 5) // wraps to 1
	got, _ := inst.Transform(1).Get(model.TransformAnimation)
	assert.InDelta(t, 0.5, got.Translation.Y, 1e-6)
	assert.Equal(t, float32(45), inst.CameraTransforms()[1].(*model.MMDCamera).Fov)
}

func TestBindRejectsWrongValueType(t *testing.T) {
	scene := newScene(t)
	clip := &Clip{Name: "bad", Vec3: []*Channel[math.Vec3]{
		vec3Channel(t, ChannelMorph, TargetData{}, []float32{0}, 0, 0, 0),
	}}
	_, err := Bind(clip, scene, BindOptions{})
	assert.ErrorIs(t, err, ErrChannelMismatch)
}

func TestFullSet(t *testing.T) {
	s := Set{}
	for _, k := range RequiredStates[1:] {
		s[k] = &Animation{Name: string(k)}
	}
	_, ok := NewFullSet(s)
	assert.False(t, ok)

	merged := s.Merge(Set{StateIdle: {Name: "idle"}, StateWalk: {Name: "walk2"}})
	full, ok := NewFullSet(merged)
	require.True(t, ok)
	assert.Equal(t, "walk2", full.Get(StateWalk).Name)
	assert.Equal(t, "idle", full.Get(StateAttack).Name)
	assert.Equal(t, "walk", s[StateWalk].Name)
}
