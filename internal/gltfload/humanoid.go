package gltfload

import (
	"encoding/json"
	"strings"

	"github.com/qmuntal/gltf"

	"github.com/Faultbox/armorstand/internal/model"
)

// humanoidBones are the VRM humanoid bone names.
var humanoidBones = []string{
	"hips", "spine", "chest", "upperChest", "neck", "head",
	"leftEye", "rightEye", "jaw",
	"leftShoulder", "leftUpperArm", "leftLowerArm", "leftHand",
	"rightShoulder", "rightUpperArm", "rightLowerArm", "rightHand",
	"leftUpperLeg", "leftLowerLeg", "leftFoot", "leftToes",
	"rightUpperLeg", "rightLowerLeg", "rightFoot", "rightToes",
}

var bonesByKey = func() map[string]string {
	m := make(map[string]string, len(humanoidBones))
	for _, b := range humanoidBones {
		m[boneKey(b)] = b
	}
	return m
}()

// boneKey normalizes "J_Bip_L_UpperArm", "left_upper_arm" and
// "LeftUpperArm" to the same key.
func boneKey(name string) string {
	name = strings.ToLower(name)
	for _, prefix := range []string{"j_bip_", "mixamorig:", "bip01_", "bip_"} {
		name = strings.TrimPrefix(name, prefix)
	}
	name = strings.TrimPrefix(name, "c_")
	name = strings.NewReplacer("_", "", ".", "", " ", "", "-", "").Replace(name)
	if strings.HasPrefix(name, "l") && !strings.HasPrefix(name, "left") && !strings.HasPrefix(name, "lower") {
		name = "left" + name[1:]
	}
	if strings.HasPrefix(name, "r") && !strings.HasPrefix(name, "right") {
		name = "right" + name[1:]
	}
	return name
}

// tagFromName maps a node name to a humanoid bone when it matches one.
func tagFromName(name string) (model.HumanoidTag, bool) {
	bone, ok := bonesByKey[boneKey(name)]
	return model.HumanoidTag(bone), ok
}

type vrm0Extension struct {
	Meta struct {
		Title   string `json:"title"`
		Author  string `json:"author"`
		Version string `json:"version"`
	} `json:"meta"`
	Humanoid struct {
		HumanBones []struct {
			Bone string `json:"bone"`
			Node int    `json:"node"`
		} `json:"humanBones"`
	} `json:"humanoid"`
	BlendShapeMaster struct {
		BlendShapeGroups []struct {
			Name       string `json:"name"`
			PresetName string `json:"presetName"`
			IsBinary   bool   `json:"isBinary"`
			Binds      []struct {
				Mesh   int     `json:"mesh"`
				Index  int     `json:"index"`
				Weight float32 `json:"weight"`
			} `json:"binds"`
		} `json:"blendShapeGroups"`
	} `json:"blendShapeMaster"`
}

type vrm1Extension struct {
	Meta struct {
		Name    string   `json:"name"`
		Authors []string `json:"authors"`
		Version string   `json:"version"`
	} `json:"meta"`
	Humanoid struct {
		HumanBones map[string]struct {
			Node int `json:"node"`
		} `json:"humanBones"`
	} `json:"humanoid"`
}

// extension decodes a document extension into out. Unregistered extensions
// are kept by the gltf package as raw JSON; registered ones as values.
func extension(doc *gltf.Document, name string, out any) bool {
	raw, ok := doc.Extensions[name]
	if !ok {
		return false
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return false
	}
	return json.Unmarshal(b, out) == nil
}

// humanoidTags returns the humanoid tags of every node, taken from the VRM
// extension when present and from node names otherwise.
func humanoidTags(doc *gltf.Document) [][]model.HumanoidTag {
	tags := make([][]model.HumanoidTag, len(doc.Nodes))
	add := func(node int, bone string) {
		if node >= 0 && node < len(tags) {
			tags[node] = append(tags[node], model.HumanoidTag(bone))
		}
	}

	var v0 vrm0Extension
	var v1 vrm1Extension
	switch {
	case extension(doc, "VRMC_vrm", &v1) && len(v1.Humanoid.HumanBones) > 0:
		for bone, b := range v1.Humanoid.HumanBones {
			add(b.Node, bone)
		}
	case extension(doc, "VRM", &v0) && len(v0.Humanoid.HumanBones) > 0:
		for _, b := range v0.Humanoid.HumanBones {
			add(b.Node, b.Bone)
		}
	default:
		for i, n := range doc.Nodes {
			if tag, ok := tagFromName(n.Name); ok {
				tags[i] = append(tags[i], tag)
			}
		}
	}
	return tags
}
