package shader

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gl/engine/buffer"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reflectVertex = `
struct Params {
    rotation: mat4x4<f32>,
    normal: mat3x3<f32>, // padded columns
    tint: vec4<f32>,
    frame: u32,
    offset: vec2i,
};

/* block /* nested */ comment @location(9) ghost: f32 */
@group(0) @binding(0) var<uniform> params: Params;

struct VertexIn {
    @location(0) position: vec2<f32>,
    @location(1) color: vec3<f32>,
};

struct VertexOut {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec3<f32>,
};

@vertex
fn vs_main(in: VertexIn, @location(2) @interpolate(flat, center) brightness: f32, @builtin(vertex_index) index: u32) -> VertexOut {
    var out: VertexOut;
    return out;
}
`

const reflectFragment = `
@group(0) @binding(0) var<uniform> params: Params;
@group(1) @binding(1) var checker_sampler: sampler;
@group(1) @binding(0) var checker: texture_2d<f32>;

@fragment
fn fs_main(@location(0) color: vec3<f32>) -> @location(0) vec4<f32> {
    return vec4<f32>(color, 1.0);
}
`

func TestReflectAttributes(t *testing.T) {
	info, err := Reflect(reflectVertex, reflectFragment)
	require.NoError(t, err)

	assert.Equal(t, []Attribute{
		{Name: "position", Location: 0, Type: "vec2<f32>", Components: 2},
		{Name: "color", Location: 1, Type: "vec3<f32>", Components: 3},
		{Name: "brightness", Location: 2, Type: "f32", Components: 1},
	}, info.Attributes)

	_, ok := info.Attribute("ghost")
	assert.False(t, ok, "commented out declarations are ignored")
}

func TestReflectUniformLayout(t *testing.T) {
	info, err := Reflect(reflectVertex, reflectFragment)
	require.NoError(t, err)

	r, ok := info.Resource("params")
	require.True(t, ok)
	assert.Equal(t, device.ResourceUniform, r.Kind)
	require.NotNil(t, r.Uniform)
	// 64 + 48 + 16 + 4, then vec2i aligned to 8, rounded to 16.
	assert.Equal(t, 144, r.Uniform.Size)

	byName := make(map[string]UniformField)
	for _, f := range r.Uniform.Fields {
		byName[f.Name] = f
	}
	require.Len(t, byName, 5)

	rot := byName["params.rotation"]
	assert.Equal(t, 0, rot.Offset)
	assert.Equal(t, 16, rot.Words())

	normal := byName["params.normal"]
	assert.Equal(t, 64, normal.Offset)
	assert.Equal(t, 16, normal.ColumnStride)
	assert.Equal(t, 11, normal.Words())

	assert.Equal(t, 112, byName["params.tint"].Offset)
	assert.Equal(t, UniformField{Name: "params.frame", Type: "u32", Offset: 128, Scalar: "u32", Columns: 1, Rows: 1, ColumnStride: 16}, byName["params.frame"])
	assert.Equal(t, 136, byName["params.offset"].Offset)
	assert.Equal(t, "i32", byName["params.offset"].Scalar)
}

func TestReflectResources(t *testing.T) {
	info, err := Reflect(reflectVertex, reflectFragment)
	require.NoError(t, err)

	require.Len(t, info.Resources, 3, "declarations shared by both stages appear once")
	assert.Equal(t, []device.BindingLayout{
		{ResourceSlot: device.ResourceSlot{Group: 0, Binding: 0}, Kind: device.ResourceUniform, MinSize: 144},
		{ResourceSlot: device.ResourceSlot{Group: 1, Binding: 0}, Kind: device.ResourceTexture},
		{ResourceSlot: device.ResourceSlot{Group: 1, Binding: 1}, Kind: device.ResourceSampler},
	}, info.Bindings())
}

func TestReflectScalarUniform(t *testing.T) {
	info, err := Reflect("@group(0) @binding(0) var<uniform> time: f32;", "")
	require.NoError(t, err)
	r, ok := info.Resource("time")
	require.True(t, ok)
	assert.Equal(t, 16, r.Uniform.Size)
	require.Len(t, r.Uniform.Fields, 1)
	assert.Equal(t, "time", r.Uniform.Fields[0].Name)
}

func TestReflectErrors(t *testing.T) {
	cases := map[string]struct{ vertex, fragment string }{
		"storage buffer":   {"@group(0) @binding(0) var<storage, read> data: array<f32>;", ""},
		"depth texture":    {"", "@group(0) @binding(0) var shadow: texture_depth_2d;"},
		"unknown struct":   {"@group(0) @binding(0) var<uniform> p: Missing;", ""},
		"conflicting slot": {"@group(0) @binding(0) var<uniform> a: f32;", "@group(0) @binding(0) var b: sampler;"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Reflect(tc.vertex, tc.fragment)
			assert.Error(t, err)
		})
	}
}

func TestReflectVertexBufferLayout(t *testing.T) {
	info, err := Reflect(reflectVertex, reflectFragment)
	require.NoError(t, err)

	layout, err := buffer.NewLayout(buffer.KindFloat32,
		buffer.Field{Name: "position", Components: 2},
		buffer.Field{Name: "unused", Components: 1},
		buffer.Field{Name: "color", Components: 3},
	)
	require.NoError(t, err)

	vbl, err := info.VertexBufferLayout(layout)
	require.NoError(t, err)
	assert.Equal(t, uint64(24), vbl.ArrayStride)
	assert.Equal(t, wgpu.VertexStepModeVertex, vbl.StepMode)
	assert.Equal(t, []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
	}, vbl.Attributes)

	wrong, err := buffer.NewLayout(buffer.KindFloat32, buffer.Field{Name: "color", Components: 4})
	require.NoError(t, err)
	_, err = info.VertexBufferLayout(wrong)
	assert.Error(t, err, "component count must match the input")

	none, err := buffer.NewLayout(buffer.KindFloat32, buffer.Field{Name: "normal", Components: 3})
	require.NoError(t, err)
	_, err = info.VertexBufferLayout(none)
	assert.Error(t, err)
}

func TestVertexFormatOfNarrowKinds(t *testing.T) {
	floatIn := Attribute{Name: "uv", Type: "vec2<f32>", Components: 2}
	f, err := vertexFormatOf(buffer.KindUint16, 2, floatIn)
	require.NoError(t, err)
	assert.Equal(t, wgpu.VertexFormatUnorm16x2, f)

	intIn := Attribute{Name: "joints", Type: "vec4<i32>", Components: 4}
	f, err = vertexFormatOf(buffer.KindInt8, 4, intIn)
	require.NoError(t, err)
	assert.Equal(t, wgpu.VertexFormatSint8x4, f)

	_, err = vertexFormatOf(buffer.KindUint8, 4, intIn)
	assert.Error(t, err, "unsigned data cannot feed signed inputs")

	_, err = vertexFormatOf(buffer.KindFloat32, 4, intIn)
	assert.Error(t, err)

	_, err = vertexFormatOf(buffer.KindUint8, 3, Attribute{Name: "rgb", Type: "vec3<f32>", Components: 3})
	assert.Error(t, err)
}

func TestConstantBufferLayout(t *testing.T) {
	info, err := Reflect(reflectVertex, reflectFragment)
	require.NoError(t, err)

	vbl, err := info.ConstantBufferLayout("brightness")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), vbl.ArrayStride)
	assert.Equal(t, wgpu.VertexStepModeInstance, vbl.StepMode)
	assert.Equal(t, []wgpu.VertexAttribute{{Format: wgpu.VertexFormatFloat32, ShaderLocation: 2}}, vbl.Attributes)

	_, err = info.ConstantBufferLayout("missing")
	assert.Error(t, err)
}

func TestTypeShape(t *testing.T) {
	for typ, want := range map[string][3]any{
		"f32":         {"f32", 1, 1},
		"vec3<u32>":   {"u32", 1, 3},
		"vec4f":       {"f32", 1, 4},
		"mat3x2<f32>": {"f32", 3, 2},
		"mat4x4f":     {"f32", 4, 4},
	} {
		scalar, cols, rows, ok := typeShape(typ)
		require.True(t, ok, typ)
		assert.Equal(t, want, [3]any{scalar, cols, rows}, typ)
	}
	for _, typ := range []string{"bool", "vec5f", "mat4x4<i32>", "vec3fi", "texture_2d<f32>"} {
		_, _, _, ok := typeShape(typ)
		assert.False(t, ok, typ)
	}
}
