package gltfload

import (
	"sort"
	"strconv"

	"github.com/Faultbox/armorstand/internal/model"
)

type vrm1Expression struct {
	IsBinary         bool `json:"isBinary"`
	MorphTargetBinds []struct {
		Node   int     `json:"node"`
		Index  int     `json:"index"`
		Weight float32 `json:"weight"`
	} `json:"morphTargetBinds"`
}

type expressionSet struct {
	list   []*model.Expression
	byName map[string]*model.Expression
}

// get returns the expression called name, creating it on first use.
func (s *expressionSet) get(name string) *model.Expression {
	if e, ok := s.byName[name]; ok {
		return e
	}
	e := &model.Expression{Name: name}
	s.byName[name] = e
	s.list = append(s.list, e)
	return e
}

func (s *expressionSet) bind(e *model.Expression, morphed []int, group int, weight float32) {
	for _, m := range morphed {
		e.Bindings = append(e.Bindings, model.ExpressionBinding{
			MorphedPrimitiveIndex: m,
			GroupIndex:            group,
			Weight:                weight,
		})
	}
}

// buildExpressions collects VRM expressions and one expression per named
// morph target. Expressions with the same name are merged.
func (b *builder) buildExpressions() {
	set := &expressionSet{byName: make(map[string]*model.Expression)}

	var v1 struct {
		Expressions struct {
			Preset map[string]vrm1Expression `json:"preset"`
			Custom map[string]vrm1Expression `json:"custom"`
		} `json:"expressions"`
	}
	var v0 vrm0Extension
	switch {
	case extension(b.doc, "VRMC_vrm", &v1):
		add := func(exprs map[string]vrm1Expression, preset bool) {
			for _, name := range sortedKeys(exprs) {
				x := exprs[name]
				e := set.get(name)
				e.IsBinary = x.IsBinary
				if preset {
					e.Tag = name
				}
				for _, bind := range x.MorphTargetBinds {
					set.bind(e, b.nodeMorphed[bind.Node], bind.Index, bind.Weight)
				}
			}
		}
		add(v1.Expressions.Preset, true)
		add(v1.Expressions.Custom, false)
	case extension(b.doc, "VRM", &v0):
		for _, g := range v0.BlendShapeMaster.BlendShapeGroups {
			e := set.get(g.Name)
			e.IsBinary = g.IsBinary
			if g.PresetName != "" && g.PresetName != "unknown" {
				e.Tag = g.PresetName
			}
			for _, bind := range g.Binds {
				// VRM 0.x weights are percentages.
				set.bind(e, b.meshMorphed[bind.Mesh], bind.Index, bind.Weight/100)
			}
		}
	}

	for mesh, m := range b.doc.Meshes {
		morphed := b.meshMorphed[mesh]
		if len(morphed) == 0 {
			continue
		}
		names := targetNames(m)
		targets := 0
		for _, p := range m.Primitives {
			targets = max(targets, len(p.Targets))
		}
		for t := 0; t < targets; t++ {
			name := m.Name + "#" + strconv.Itoa(t)
			if t < len(names) && names[t] != "" {
				name = names[t]
			}
			set.bind(set.get(name), morphed, t, 1)
		}
	}

	b.info.Expressions = set.list
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
