package gltfload

import (
	"encoding/binary"
	"fmt"
	gomath "math"

	"github.com/qmuntal/gltf"

	"github.com/Faultbox/armorstand/internal/model"
	"github.com/Faultbox/armorstand/pkg/keyframe"
	"github.com/Faultbox/armorstand/pkg/math"
)

// indexOf reads an index field that is optional (*uint32) in some glTF
// objects and required (uint32) in others.
func indexOf(v any) (int, bool) {
	switch v := v.(type) {
	case uint32:
		return int(v), true
	case *uint32:
		if v == nil {
			return 0, false
		}
		return int(*v), true
	default:
		return 0, false
	}
}

// accessorOf maps a glTF accessor onto a keyframe accessor over the loaded buffers.
func accessorOf(doc *gltf.Document, index int) (keyframe.Accessor, error) {
	if index < 0 || index >= len(doc.Accessors) {
		return keyframe.Accessor{}, fmt.Errorf("accessor %d out of range", index)
	}
	a := doc.Accessors[index]
	acc := keyframe.Accessor{
		ByteOffset:    int(a.ByteOffset),
		ComponentType: a.ComponentType,
		Type:          a.Type,
		Normalized:    a.Normalized,
		Count:         int(a.Count),
	}
	if a.BufferView == nil {
		return acc, nil
	}
	if int(*a.BufferView) >= len(doc.BufferViews) {
		return acc, fmt.Errorf("accessor %d: buffer view %d out of range", index, *a.BufferView)
	}
	bv := doc.BufferViews[*a.BufferView]
	if int(bv.Buffer) >= len(doc.Buffers) {
		return acc, fmt.Errorf("accessor %d: buffer %d out of range", index, bv.Buffer)
	}
	acc.View = &keyframe.BufferView{
		Data:       doc.Buffers[bv.Buffer].Data,
		ByteOffset: int(bv.ByteOffset),
		ByteLength: int(bv.ByteLength),
		ByteStride: int(bv.ByteStride),
	}
	return acc, nil
}

func readAll[T any](d keyframe.Data[T]) []T {
	out := make([]T, d.Frames())
	for i := range out {
		d.Get(i, out[i:i+1])
	}
	return out
}

func readVec3(doc *gltf.Document, index int) ([]math.Vec3, error) {
	acc, err := accessorOf(doc, index)
	if err != nil {
		return nil, err
	}
	d, err := keyframe.AccessorVec3(acc, 1)
	if err != nil {
		return nil, err
	}
	return readAll[math.Vec3](d), nil
}

// readVec4 reads up to four components per item; missing ones are fill.
func readVec4(doc *gltf.Document, index int, fill float32) ([][4]float32, error) {
	acc, err := accessorOf(doc, index)
	if err != nil {
		return nil, err
	}
	n := int(acc.Type.Components())
	d, err := keyframe.NewAccessor(acc, 1, func(c *keyframe.Cursor, out *[4]float32) {
		for i := range out {
			if i < n {
				out[i] = c.Float()
			} else {
				out[i] = fill
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return readAll[[4]float32](d), nil
}

func readUint4(doc *gltf.Document, index int) ([][4]uint32, error) {
	acc, err := accessorOf(doc, index)
	if err != nil {
		return nil, err
	}
	n := int(acc.Type.Components())
	d, err := keyframe.NewAccessor(acc, 1, func(c *keyframe.Cursor, out *[4]uint32) {
		for i := 0; i < n && i < 4; i++ {
			out[i] = c.Uint()
		}
	})
	if err != nil {
		return nil, err
	}
	return readAll[[4]uint32](d), nil
}

func readMat4(doc *gltf.Document, index int) ([]math.Mat4, error) {
	acc, err := accessorOf(doc, index)
	if err != nil {
		return nil, err
	}
	d, err := keyframe.NewAccessor(acc, 1, func(c *keyframe.Cursor, out *math.Mat4) {
		for i := range out {
			out[i] = c.Float()
		}
	})
	if err != nil {
		return nil, err
	}
	return readAll[math.Mat4](d), nil
}

// buildVertexBuffer interleaves the attributes of a primitive in the layout
// selected by model.VertexFormat.
func buildVertexBuffer(doc *gltf.Document, prim *gltf.Primitive) (*model.VertexBuffer, error) {
	posIndex, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := readVec3(doc, int(posIndex))
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	count := len(positions)

	attr := func(name string, read func(int) (any, error)) (any, error) {
		idx, ok := prim.Attributes[name]
		if !ok {
			return nil, nil
		}
		v, err := read(int(idx))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}

	var normals []math.Vec3
	if v, err := attr("NORMAL", func(i int) (any, error) { return readVec3(doc, i) }); err != nil {
		return nil, err
	} else if v != nil {
		normals = v.([]math.Vec3)
	}
	var uvs, colors, weights [][4]float32
	if v, err := attr("TEXCOORD_0", func(i int) (any, error) { return readVec4(doc, i, 0) }); err != nil {
		return nil, err
	} else if v != nil {
		uvs = v.([][4]float32)
	}
	if v, err := attr("COLOR_0", func(i int) (any, error) { return readVec4(doc, i, 1) }); err != nil {
		return nil, err
	} else if v != nil {
		colors = v.([][4]float32)
	}
	if v, err := attr("WEIGHTS_0", func(i int) (any, error) { return readVec4(doc, i, 0) }); err != nil {
		return nil, err
	} else if v != nil {
		weights = v.([][4]float32)
	}
	var joints [][4]uint32
	if v, err := attr("JOINTS_0", func(i int) (any, error) { return readUint4(doc, i) }); err != nil {
		return nil, err
	} else if v != nil {
		joints = v.([][4]uint32)
	}

	format := model.VertexPositionNormalUV
	switch {
	case joints != nil && weights != nil:
		format = model.VertexSkinned
	case colors != nil:
		format = model.VertexPositionNormalUVColor
	}

	stride := format.Stride()
	data := make([]byte, count*stride)
	for i := 0; i < count; i++ {
		w := floatWriter{buf: data[i*stride : (i+1)*stride]}
		p := positions[i]
		w.put(p.X, p.Y, p.Z)
		if i < len(normals) {
			n := normals[i]
			w.put(n.X, n.Y, n.Z)
		} else {
			w.put(0, 1, 0)
		}
		if i < len(uvs) {
			w.put(uvs[i][0], uvs[i][1])
		} else {
			w.put(0, 0)
		}
		if format == model.VertexPositionNormalUV {
			continue
		}
		if i < len(colors) {
			w.put(colors[i][:]...)
		} else {
			w.put(1, 1, 1, 1)
		}
		if format == model.VertexSkinned {
			j := joints[min(i, len(joints)-1)]
			w.put(float32(j[0]), float32(j[1]), float32(j[2]), float32(j[3]))
			w.put(weights[min(i, len(weights)-1)][:]...)
		}
	}
	return model.NewVertexBuffer(format, count, data), nil
}

type floatWriter struct {
	buf []byte
	pos int
}

func (w *floatWriter) put(values ...float32) {
	for _, v := range values {
		binary.NativeEndian.PutUint32(w.buf[w.pos:], gomath.Float32bits(v))
		w.pos += 4
	}
}

func buildIndexBuffer(doc *gltf.Document, index int) (*model.IndexBuffer, error) {
	acc, err := accessorOf(doc, index)
	if err != nil {
		return nil, err
	}
	d, err := keyframe.NewAccessor(acc, 1, func(c *keyframe.Cursor, out *uint32) {
		*out = c.Uint()
	})
	if err != nil {
		return nil, err
	}
	indices := readAll[uint32](d)

	if acc.ComponentType == gltf.ComponentUint {
		data := make([]byte, 4*len(indices))
		for i, v := range indices {
			binary.NativeEndian.PutUint32(data[i*4:], v)
		}
		return model.NewIndexBuffer(model.IndexUint32, len(indices), data), nil
	}
	data := make([]byte, 2*len(indices))
	for i, v := range indices {
		binary.NativeEndian.PutUint16(data[i*2:], uint16(v))
	}
	return model.NewIndexBuffer(model.IndexUint16, len(indices), data), nil
}

// buildMorphTargets collects the attribute deltas of every target of prim.
// weights and names come from the mesh and may be shorter than the target list.
func buildMorphTargets(doc *gltf.Document, prim *gltf.Primitive, weights []float32, names []string) (*model.MorphTargets, error) {
	t := &model.MorphTargets{Groups: make([]model.MorphTargetGroup, len(prim.Targets))}
	appendTarget := func(buf *model.TargetBuffer, values []float32) int {
		buf.Data = append(buf.Data, values...)
		buf.Targets++
		return buf.Targets - 1
	}

	for i, target := range prim.Targets {
		g := model.MorphTargetGroup{Position: -1, Color: -1, TexCoord: -1}
		if i < len(weights) {
			g.Weight = weights[i]
		}
		if i < len(names) {
			g.Name = names[i]
		}
		if idx, ok := target["POSITION"]; ok {
			v, err := readVec3(doc, int(idx))
			if err != nil {
				return nil, fmt.Errorf("target %d position: %w", i, err)
			}
			flat := make([]float32, 0, 3*len(v))
			for _, p := range v {
				flat = append(flat, p.X, p.Y, p.Z)
			}
			g.Position = appendTarget(&t.Position, flat)
		}
		if idx, ok := target["COLOR_0"]; ok {
			v, err := readVec4(doc, int(idx), 0)
			if err != nil {
				return nil, fmt.Errorf("target %d color: %w", i, err)
			}
			flat := make([]float32, 0, 4*len(v))
			for _, c := range v {
				flat = append(flat, c[:]...)
			}
			g.Color = appendTarget(&t.Color, flat)
		}
		if idx, ok := target["TEXCOORD_0"]; ok {
			v, err := readVec4(doc, int(idx), 0)
			if err != nil {
				return nil, fmt.Errorf("target %d texcoord: %w", i, err)
			}
			flat := make([]float32, 0, 2*len(v))
			for _, c := range v {
				flat = append(flat, c[0], c[1])
			}
			g.TexCoord = appendTarget(&t.TexCoord, flat)
		}
		t.Groups[i] = g
	}
	return t, nil
}
