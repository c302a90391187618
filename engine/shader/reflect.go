package shader

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-gl/engine/buffer"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
	"github.com/cogentcore/webgpu/wgpu"
)

// Attribute is a vertex input of the @vertex entry point.
type Attribute struct {
	Name       string
	Location   uint32
	Type       string
	Components int
}

// UniformField is one numeric member of a uniform, flattened to a dotted name such as
// "params.rotation".
type UniformField struct {
	Name string
	Type string
	// Offset is the byte offset of the member inside the uniform buffer.
	Offset int
	// Scalar is "f32", "i32" or "u32".
	Scalar  string
	Columns int
	Rows    int
	// ColumnStride is the byte distance between matrix columns.
	ColumnStride int
}

// Words returns the number of 4-byte words the member covers, including matrix column padding.
func (f UniformField) Words() int {
	return ((f.Columns-1)*f.ColumnStride + f.Rows*4) / 4
}

// UniformLayout is the host-side layout of a uniform buffer.
type UniformLayout struct {
	Size   int
	Fields []UniformField
}

// Resource is a @group/@binding declaration of either stage.
type Resource struct {
	Name    string
	Group   uint32
	Binding uint32
	Kind    device.ResourceKind
	Type    string
	// Uniform is set for uniform buffers.
	Uniform *UniformLayout
}

// Slot returns the resource's group and binding.
func (r Resource) Slot() device.ResourceSlot {
	return device.ResourceSlot{Group: r.Group, Binding: r.Binding}
}

// Info is what a program declares: the vertex inputs and the resources both stages bind.
type Info struct {
	Attributes []Attribute
	Resources  []Resource
}

// Reflect reads the vertex inputs and resource bindings out of WGSL stage sources. Sources
// without a @vertex entry point have no attributes.
//
// Parameters:
//   - vertex: the vertex stage source
//   - fragment: the fragment stage source
//
// Returns:
//   - Info: the declared attributes, ordered by location, and resources, ordered by slot
//   - error: an error if a resource is unsupported or two declarations share a slot
func Reflect(vertex, fragment string) (Info, error) {
	vs, fs := stripComments(vertex), stripComments(fragment)
	var info Info

	structs := append(parseStructs(vs), parseStructs(fs)...)
	byName := make(map[string]wgslStruct, len(structs))
	for _, s := range structs {
		byName[s.name] = s
	}

	for _, p := range parseFields(vertexParams(vs)) {
		if p.builtin {
			continue
		}
		if p.location >= 0 {
			info.Attributes = append(info.Attributes, newAttribute(p))
			continue
		}
		if s, ok := byName[p.typeName]; ok {
			for _, f := range s.fields {
				if !f.builtin && f.location >= 0 {
					info.Attributes = append(info.Attributes, newAttribute(f))
				}
			}
		}
	}
	slices.SortFunc(info.Attributes, func(a, b Attribute) int { return int(a.Location) - int(b.Location) })

	layouts := structLayouts(structs)
	for _, src := range []string{vs, fs} {
		for _, m := range bindGroupDeclRegex.FindAllStringSubmatch(src, -1) {
			r, err := newResource(m, byName, layouts)
			if err != nil {
				return Info{}, err
			}
			if err := info.addResource(r); err != nil {
				return Info{}, err
			}
		}
	}
	slices.SortFunc(info.Resources, func(a, b Resource) int {
		if a.Group != b.Group {
			return int(a.Group) - int(b.Group)
		}
		return int(a.Binding) - int(b.Binding)
	})
	return info, nil
}

func newAttribute(f wgslField) Attribute {
	_, cols, rows, _ := typeShape(f.typeName)
	return Attribute{Name: f.name, Location: uint32(f.location), Type: f.typeName, Components: cols * rows}
}

func newResource(m []string, structs map[string]wgslStruct, layouts map[string]wgslLayout) (Resource, error) {
	group, _ := strconv.ParseUint(m[1], 10, 32)
	binding, _ := strconv.ParseUint(m[2], 10, 32)
	r := Resource{
		Name:    m[4],
		Group:   uint32(group),
		Binding: uint32(binding),
		Type:    strings.TrimSpace(m[5]),
	}
	space := strings.TrimSpace(m[3])

	switch {
	case space == "uniform":
		l, ok := resolveLayout(r.Type, layouts)
		if !ok {
			return Resource{}, fmt.Errorf("uniform %q: cannot lay out type %s", r.Name, r.Type)
		}
		r.Kind = device.ResourceUniform
		r.Uniform = &UniformLayout{Size: int(roundUpAlign(16, l.size))}
		r.Uniform.Fields = flattenUniform(r.Name, r.Type, 0, structs, layouts, nil)
	case space != "":
		return Resource{}, fmt.Errorf("resource %q: address space %q is not supported", r.Name, space)
	case r.Type == "sampler":
		r.Kind = device.ResourceSampler
	case r.Type == "texture_2d<f32>":
		r.Kind = device.ResourceTexture
	default:
		return Resource{}, fmt.Errorf("resource %q: type %s is not supported", r.Name, r.Type)
	}
	return r, nil
}

// flattenUniform appends every numeric member of typeName, recursing into structs. Arrays
// contribute to the size but are not addressable by name.
func flattenUniform(name, typeName string, offset int, structs map[string]wgslStruct, layouts map[string]wgslLayout, out []UniformField) []UniformField {
	if scalar, cols, rows, ok := typeShape(typeName); ok {
		stride := 16
		if rows == 2 {
			stride = 8
		}
		return append(out, UniformField{
			Name:         name,
			Type:         typeName,
			Offset:       offset,
			Scalar:       scalar,
			Columns:      cols,
			Rows:         rows,
			ColumnStride: stride,
		})
	}

	s, ok := structs[typeName]
	if !ok {
		return out
	}
	fieldOffset := uint64(0)
	for _, f := range s.fields {
		l, ok := resolveLayout(f.typeName, layouts)
		if !ok {
			return out
		}
		fieldOffset = roundUpAlign(l.align, fieldOffset)
		out = flattenUniform(name+"."+f.name, f.typeName, offset+int(fieldOffset), structs, layouts, out)
		fieldOffset += l.size
	}
	return out
}

// addResource records r once. Both stages may declare the same resource.
func (i *Info) addResource(r Resource) error {
	for _, have := range i.Resources {
		if have.Group != r.Group || have.Binding != r.Binding {
			continue
		}
		if have.Name != r.Name || have.Type != r.Type {
			return fmt.Errorf("group %d binding %d declared as both %s and %s", r.Group, r.Binding, have.Name, r.Name)
		}
		return nil
	}
	i.Resources = append(i.Resources, r)
	return nil
}

// Attribute returns the vertex input named name.
func (i Info) Attribute(name string) (Attribute, bool) {
	for _, a := range i.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Resource returns the resource declared as name.
func (i Info) Resource(name string) (Resource, bool) {
	for _, r := range i.Resources {
		if r.Name == name {
			return r, true
		}
	}
	return Resource{}, false
}

// Bindings describes every resource for pipeline creation.
func (i Info) Bindings() []device.BindingLayout {
	out := make([]device.BindingLayout, 0, len(i.Resources))
	for _, r := range i.Resources {
		b := device.BindingLayout{ResourceSlot: r.Slot(), Kind: r.Kind}
		if r.Uniform != nil {
			b.MinSize = uint64(r.Uniform.Size)
		}
		out = append(out, b)
	}
	return out
}

// VertexBufferLayout maps the fields of an interleaved layout onto the vertex inputs they feed,
// matching by name. Fields the shader does not read are skipped.
//
// Parameters:
//   - l: the interleaved layout of the vertex buffer
//
// Returns:
//   - wgpu.VertexBufferLayout: the per-vertex buffer layout
//   - error: an error if a field cannot feed its input
func (i Info) VertexBufferLayout(l buffer.Layout) (wgpu.VertexBufferLayout, error) {
	out := wgpu.VertexBufferLayout{ArrayStride: uint64(l.Stride), StepMode: wgpu.VertexStepModeVertex}
	for _, field := range l.Attributes {
		a, ok := i.Attribute(field.Name)
		if !ok {
			continue
		}
		format, err := vertexFormatOf(field.Kind, field.Components, a)
		if err != nil {
			return wgpu.VertexBufferLayout{}, err
		}
		out.Attributes = append(out.Attributes, wgpu.VertexAttribute{
			Format:         format,
			Offset:         uint64(field.Offset),
			ShaderLocation: a.Location,
		})
	}
	if len(out.Attributes) == 0 {
		return wgpu.VertexBufferLayout{}, errors.New("layout feeds none of the vertex inputs")
	}
	return out, nil
}

// ConstantBufferLayout describes a buffer holding one value that every vertex and instance
// reads, for an input the vertex buffer does not provide.
//
// Parameters:
//   - name: the vertex input
//
// Returns:
//   - wgpu.VertexBufferLayout: a zero-stride per-instance layout
//   - error: an error if the input is unknown or not 32-bit
func (i Info) ConstantBufferLayout(name string) (wgpu.VertexBufferLayout, error) {
	a, ok := i.Attribute(name)
	if !ok {
		return wgpu.VertexBufferLayout{}, fmt.Errorf("no vertex input named %q", name)
	}
	vf, ok := wgslVertexFormats[a.Type]
	if !ok {
		return wgpu.VertexBufferLayout{}, fmt.Errorf("vertex input %q: type %s has no vertex format", name, a.Type)
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: 0,
		StepMode:    wgpu.VertexStepModeInstance,
		Attributes:  []wgpu.VertexAttribute{{Format: vf.format, ShaderLocation: a.Location}},
	}, nil
}

// vertexFormatOf picks the format that reads components of kind into the input a. Narrow
// integers feed float inputs normalized and integer inputs as is.
func vertexFormatOf(kind buffer.ElementKind, components int, a Attribute) (wgpu.VertexFormat, error) {
	scalar, _, _, ok := typeShape(a.Type)
	if !ok {
		return wgpu.VertexFormatUndefined, fmt.Errorf("vertex input %q: unsupported type %s", a.Name, a.Type)
	}
	if components != a.Components {
		return wgpu.VertexFormatUndefined, fmt.Errorf("vertex input %q: %s needs %d components, layout has %d", a.Name, a.Type, a.Components, components)
	}

	if kind == buffer.KindFloat32 {
		if scalar != "f32" {
			return wgpu.VertexFormatUndefined, fmt.Errorf("vertex input %q: float data cannot feed %s", a.Name, a.Type)
		}
		return wgslVertexFormats[a.Type].format, nil
	}

	if components != 2 && components != 4 {
		return wgpu.VertexFormatUndefined, fmt.Errorf("vertex input %q: %s data needs 2 or 4 components", a.Name, kind)
	}
	formats, ok := narrowFormats[narrowKey{kind, scalar}]
	if !ok {
		return wgpu.VertexFormatUndefined, fmt.Errorf("vertex input %q: %s data cannot feed %s", a.Name, kind, a.Type)
	}
	return formats[components/4], nil
}

type narrowKey struct {
	kind   buffer.ElementKind
	scalar string
}

// narrowFormats holds the x2 and x4 formats per element kind and input scalar.
var narrowFormats = map[narrowKey][2]wgpu.VertexFormat{
	{buffer.KindInt8, "f32"}:   {wgpu.VertexFormatSnorm8x2, wgpu.VertexFormatSnorm8x4},
	{buffer.KindUint8, "f32"}:  {wgpu.VertexFormatUnorm8x2, wgpu.VertexFormatUnorm8x4},
	{buffer.KindInt16, "f32"}:  {wgpu.VertexFormatSnorm16x2, wgpu.VertexFormatSnorm16x4},
	{buffer.KindUint16, "f32"}: {wgpu.VertexFormatUnorm16x2, wgpu.VertexFormatUnorm16x4},
	{buffer.KindInt8, "i32"}:   {wgpu.VertexFormatSint8x2, wgpu.VertexFormatSint8x4},
	{buffer.KindUint8, "u32"}:  {wgpu.VertexFormatUint8x2, wgpu.VertexFormatUint8x4},
	{buffer.KindInt16, "i32"}:  {wgpu.VertexFormatSint16x2, wgpu.VertexFormatSint16x4},
	{buffer.KindUint16, "u32"}: {wgpu.VertexFormatUint16x2, wgpu.VertexFormatUint16x4},
}
