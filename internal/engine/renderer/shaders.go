package renderer

// Uniform block bindings.
const (
	bindingSkin  = 0
	bindingMorph = 1
)

// MaxJoints is the joint capacity of the skin block.
const MaxJoints = 256

// MaxMorphWeights is the weight capacity of the morph block.
const MaxMorphWeights = 1024

// MaxMorphGroups is the number of target groups applied per primitive.
const MaxMorphGroups = 32

const modelVertexShader = `
#version 410 core

layout (location = 0) in vec3 aPosition;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec2 aTexCoord;
layout (location = 3) in vec4 aColor;
layout (location = 4) in vec4 aJoints;
layout (location = 5) in vec4 aWeights;

layout (std140) uniform Skin {
	mat4 joints[256];
};

layout (std140) uniform MorphWeights {
	float weights[1024];
};

uniform mat4 uViewProj;
uniform mat4 uModel;
uniform bool uSkinned;
uniform bool uHasColor;

uniform samplerBuffer uTargets;
uniform int uVertexCount;
uniform int uMorphOffset;
uniform int uMorphGroups;
uniform int uTargetIndex[32];

out vec3 vNormal;
out vec2 vTexCoord;
out vec4 vColor;

void main() {
	vec3 position = aPosition;
	for (int g = 0; g < uMorphGroups; g++) {
		int t = uTargetIndex[g];
		if (t >= 0) {
			position += weights[uMorphOffset + g] * texelFetch(uTargets, t * uVertexCount + gl_VertexID).xyz;
		}
	}

	mat4 model = uModel;
	if (uSkinned) {
		model = aWeights.x * joints[int(aJoints.x)]
			+ aWeights.y * joints[int(aJoints.y)]
			+ aWeights.z * joints[int(aJoints.z)]
			+ aWeights.w * joints[int(aJoints.w)];
	}

	vNormal = mat3(model) * aNormal;
	vTexCoord = aTexCoord;
	vColor = uHasColor ? aColor : vec4(1.0);
	gl_Position = uViewProj * model * vec4(position, 1.0);
}
`

const modelFragmentShader = `
#version 410 core

in vec3 vNormal;
in vec2 vTexCoord;
in vec4 vColor;

uniform sampler2D uBaseColorTexture;
uniform vec4 uBaseColor;
uniform vec3 uEmissive;
uniform bool uUnlit;
uniform bool uAlphaMask;
uniform float uAlphaCutoff;
uniform vec3 uLightDir;

out vec4 FragColor;

void main() {
	vec4 color = uBaseColor * vColor * texture(uBaseColorTexture, vTexCoord);
	if (uAlphaMask && color.a < uAlphaCutoff) {
		discard;
	}
	if (!uUnlit) {
		float diffuse = max(dot(normalize(vNormal), -uLightDir), 0.0);
		color.rgb = color.rgb * (0.35 + 0.65 * diffuse) + uEmissive;
	}
	FragColor = color;
}
`
