// Package renderer draws model instances with OpenGL.
package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/armorstand/internal/engine/gpu"
	"github.com/Faultbox/armorstand/internal/engine/shader"
	"github.com/Faultbox/armorstand/internal/model"
	"github.com/Faultbox/armorstand/pkg/math"
)

// Renderer draws model instances. It must be created and used on the
// goroutine owning the GL context.
type Renderer struct {
	log       *zap.Logger
	program   *shader.Program
	resources *gpu.Resources
	uploader  *gpu.Uploader

	lightDir math.Vec3
	warned   map[string]bool
}

// New initialises OpenGL and compiles the model program.
// It must be called after the GL context is created.
func New(log *zap.Logger) (*Renderer, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.ClearColor(0.12, 0.12, 0.16, 1.0)

	program, err := shader.NewProgram(modelVertexShader, modelFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("model shader: %w", err)
	}
	program.BindBlock("Skin", bindingSkin)
	program.BindBlock("MorphWeights", bindingMorph)

	dev := gpu.GLDevice{}
	return &Renderer{
		log:       log,
		program:   program,
		resources: gpu.NewResources(dev),
		uploader:  gpu.NewUploader(dev),
		lightDir:  math.Vec3{X: -0.4, Y: -1, Z: -0.6}.Normalize(),
		warned:    make(map[string]bool),
	}, nil
}

// Close frees every GPU object.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	r.uploader.Close()
	r.resources.Close()
	r.program.Delete()
}

// Resize updates the viewport.
func (r *Renderer) Resize(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized", zap.Int("width", width), zap.Int("height", height))
}

// Begin starts a new frame.
func (r *Renderer) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Retain frees the per-instance buffers of owners no longer drawn, then the
// scene resources whose last reference was dropped.
func (r *Renderer) Retain(keep func(owner string) bool) {
	r.uploader.Retain(keep)
	if n := r.resources.Sweep(); n > 0 {
		r.log.Debug("freed GPU resources", zap.Int("count", n))
	}
}

// Draw renders one instance. owner keys its uploaded buffers.
func (r *Renderer) Draw(owner string, inst *model.Instance, viewProj math.Mat4) error {
	scene := inst.Scene()
	rd := inst.Snapshot()
	defer rd.Release()

	skins := make([]uint32, len(rd.Skins))
	for i, s := range rd.Skins {
		if s.Content().JointSize() > MaxJoints {
			r.warnOnce(owner+"/skin", "skin exceeds joint capacity", zap.Int("joints", s.Content().JointSize()))
		}
		id, err := gpu.Upload(r.uploader, owner, i, s)
		if err != nil {
			return err
		}
		skins[i] = id
	}
	morphs, err := gpu.Upload(r.uploader, owner, 0, rd.Morphs)
	if err != nil {
		return err
	}
	weights := rd.Morphs.Content()
	if len(weights.All()) > MaxMorphWeights {
		r.warnOnce(owner+"/morph", "morph weights exceed capacity", zap.Int("weights", len(weights.All())))
	}

	r.program.Use()
	gl.UniformMatrix4fv(r.program.Uniform("uViewProj"), 1, false, &viewProj[0])
	gl.Uniform3f(r.program.Uniform("uLightDir"), r.lightDir.X, r.lightDir.Y, r.lightDir.Z)
	gl.Uniform1i(r.program.Uniform("uBaseColorTexture"), 0)
	gl.Uniform1i(r.program.Uniform("uTargets"), 1)
	gl.BindBufferBase(gl.UNIFORM_BUFFER, bindingMorph, morphs)

	matrices := rd.Matrices.Content()
	for _, c := range scene.PrimitiveComponents {
		mesh := r.resources.Mesh(c.Primitive)

		modelMatrix := matrices.GetMatrix(c.MatrixSlot)
		gl.UniformMatrix4fv(r.program.Uniform("uModel"), 1, false, &modelMatrix[0])

		skinned := c.SkinIndex >= 0 && c.SkinIndex < len(skins) && c.Primitive.VertexBuffer.Format == model.VertexSkinned
		setBool(r.program.Uniform("uSkinned"), skinned)
		if skinned {
			gl.BindBufferBase(gl.UNIFORM_BUFFER, bindingSkin, skins[c.SkinIndex])
		}
		setBool(r.program.Uniform("uHasColor"), c.Primitive.VertexBuffer.Format != model.VertexPositionNormalUV)

		r.bindMorph(c, mesh, weights.Offset)
		r.bindMaterial(c.Primitive.Material)

		gl.BindVertexArray(mesh.VAO)
		if mesh.Indexed {
			gl.DrawElements(gpu.DrawMode(mesh.Mode), mesh.Count, gpu.IndexType(mesh.IndexType), nil)
		} else {
			gl.DrawArrays(gpu.DrawMode(mesh.Mode), 0, mesh.Count)
		}
	}
	gl.BindVertexArray(0)
	return nil
}

func (r *Renderer) bindMorph(c *model.PrimitiveComponent, mesh *gpu.Mesh, offset func(int) int) {
	groups := 0
	if c.MorphedPrimitiveIndex >= 0 && mesh.Targets != 0 {
		groups = min(c.Primitive.TargetGroups(), MaxMorphGroups)
	}
	gl.Uniform1i(r.program.Uniform("uMorphGroups"), int32(groups))
	if groups == 0 {
		return
	}

	var targets [MaxMorphGroups]int32
	for g := 0; g < groups; g++ {
		targets[g] = int32(c.Primitive.Targets.Groups[g].Position)
	}
	gl.Uniform1iv(r.program.Uniform("uTargetIndex"), int32(groups), &targets[0])
	gl.Uniform1i(r.program.Uniform("uMorphOffset"), int32(offset(c.MorphedPrimitiveIndex)))
	gl.Uniform1i(r.program.Uniform("uVertexCount"), mesh.Vertices)
	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_BUFFER, mesh.Targets)
}

func (r *Renderer) bindMaterial(m model.Material) {
	var common *model.MaterialCommon
	var emissive [3]float32
	unlit := false
	switch m := m.(type) {
	case *model.PbrMaterial:
		common = &m.MaterialCommon
		emissive = m.EmissiveFactor
	case *model.UnlitMaterial:
		common = &m.MaterialCommon
		unlit = true
	default:
		common = &model.DefaultMaterial().(*model.UnlitMaterial).MaterialCommon
		unlit = true
	}

	gl.Uniform4f(r.program.Uniform("uBaseColor"), common.BaseColor[0], common.BaseColor[1], common.BaseColor[2], common.BaseColor[3])
	gl.Uniform3f(r.program.Uniform("uEmissive"), emissive[0], emissive[1], emissive[2])
	setBool(r.program.Uniform("uUnlit"), unlit)
	setBool(r.program.Uniform("uAlphaMask"), common.AlphaMode == model.AlphaMask)
	gl.Uniform1f(r.program.Uniform("uAlphaCutoff"), common.AlphaCutoff)

	if common.DoubleSided {
		gl.Disable(gl.CULL_FACE)
	} else {
		gl.Enable(gl.CULL_FACE)
	}

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.resources.Texture(common.BaseColorTexture))
}

func (r *Renderer) warnOnce(key, msg string, fields ...zap.Field) {
	if r.warned[key] {
		return
	}
	r.warned[key] = true
	r.log.Warn(msg, fields...)
}

func setBool(loc int32, v bool) {
	if v {
		gl.Uniform1i(loc, 1)
	} else {
		gl.Uniform1i(loc, 0)
	}
}
