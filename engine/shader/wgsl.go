package shader

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslLayout is the byte size and alignment of a host-shareable WGSL type.
type wgslLayout struct {
	size  uint64
	align uint64
}

type wgslField struct {
	name     string
	typeName string
	location int
	builtin  bool
}

type wgslStruct struct {
	name   string
	fields []wgslField
}

var (
	structBlockRegex   = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	locationRegex      = regexp.MustCompile(`@location\((\d+)\)`)
	builtinRegex       = regexp.MustCompile(`@builtin\(\w+\)`)
	fieldRegex         = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)
	vertexEntryRegex   = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)\s*\(`)
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslLayouts = map[string]wgslLayout{
	"f32": {4, 4},
	"i32": {4, 4},
	"u32": {4, 4},

	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},
	"vec2<i32>": {8, 8},
	"vec2i":     {8, 8},
	"vec3<i32>": {12, 16},
	"vec3i":     {12, 16},
	"vec4<i32>": {16, 16},
	"vec4i":     {16, 16},
	"vec2<u32>": {8, 8},
	"vec2u":     {8, 8},
	"vec3<u32>": {12, 16},
	"vec3u":     {12, 16},
	"vec4<u32>": {16, 16},
	"vec4u":     {16, 16},

	"mat2x2<f32>": {16, 8},
	"mat2x2f":     {16, 8},
	"mat2x3<f32>": {32, 16},
	"mat2x3f":     {32, 16},
	"mat2x4<f32>": {32, 16},
	"mat2x4f":     {32, 16},
	"mat3x2<f32>": {24, 8},
	"mat3x2f":     {24, 8},
	"mat3x3<f32>": {48, 16},
	"mat3x3f":     {48, 16},
	"mat3x4<f32>": {48, 16},
	"mat3x4f":     {48, 16},
	"mat4x2<f32>": {32, 8},
	"mat4x2f":     {32, 8},
	"mat4x3<f32>": {64, 16},
	"mat4x3f":     {64, 16},
	"mat4x4<f32>": {64, 16},
	"mat4x4f":     {64, 16},
}

type vertexFormat struct {
	format wgpu.VertexFormat
	size   uint64
}

var wgslVertexFormats = map[string]vertexFormat{
	"f32":       {wgpu.VertexFormatFloat32, 4},
	"vec2f":     {wgpu.VertexFormatFloat32x2, 8},
	"vec2<f32>": {wgpu.VertexFormatFloat32x2, 8},
	"vec3f":     {wgpu.VertexFormatFloat32x3, 12},
	"vec3<f32>": {wgpu.VertexFormatFloat32x3, 12},
	"vec4f":     {wgpu.VertexFormatFloat32x4, 16},
	"vec4<f32>": {wgpu.VertexFormatFloat32x4, 16},
	"i32":       {wgpu.VertexFormatSint32, 4},
	"vec2i":     {wgpu.VertexFormatSint32x2, 8},
	"vec2<i32>": {wgpu.VertexFormatSint32x2, 8},
	"vec3i":     {wgpu.VertexFormatSint32x3, 12},
	"vec3<i32>": {wgpu.VertexFormatSint32x3, 12},
	"vec4i":     {wgpu.VertexFormatSint32x4, 16},
	"vec4<i32>": {wgpu.VertexFormatSint32x4, 16},
	"u32":       {wgpu.VertexFormatUint32, 4},
	"vec2u":     {wgpu.VertexFormatUint32x2, 8},
	"vec2<u32>": {wgpu.VertexFormatUint32x2, 8},
	"vec3u":     {wgpu.VertexFormatUint32x3, 12},
	"vec3<u32>": {wgpu.VertexFormatUint32x3, 12},
	"vec4u":     {wgpu.VertexFormatUint32x4, 16},
	"vec4<u32>": {wgpu.VertexFormatUint32x4, 16},
}

// typeShape splits a numeric WGSL type into its scalar type and its column and row counts.
// Scalars are 1x1 and vectors are one column of N rows.
//
// Parameters:
//   - typeName: the WGSL type, e.g. "f32", "vec3<f32>", "vec2i" or "mat4x4<f32>"
//
// Returns:
//   - string: the scalar type, "f32", "i32" or "u32"
//   - int: the column count
//   - int: the row count
//   - bool: false if the type is not a numeric scalar, vector or matrix
func typeShape(typeName string) (string, int, int, bool) {
	switch typeName {
	case "f32", "i32", "u32":
		return typeName, 1, 1, true
	}

	base, param := typeName, ""
	if before, after, ok := strings.Cut(typeName, "<"); ok {
		base, param = before, strings.TrimSpace(strings.TrimSuffix(after, ">"))
	}

	switch {
	case strings.HasPrefix(base, "vec") && len(base) >= 4:
		rows := int(base[3] - '0')
		scalar := shortScalar(base[4:], param)
		if rows < 2 || rows > 4 || scalar == "" {
			return "", 0, 0, false
		}
		return scalar, 1, rows, true
	case strings.HasPrefix(base, "mat") && len(base) >= 6 && base[4] == 'x':
		cols, rows := int(base[3]-'0'), int(base[5]-'0')
		scalar := shortScalar(base[6:], param)
		if cols < 2 || cols > 4 || rows < 2 || rows > 4 || scalar != "f32" {
			return "", 0, 0, false
		}
		return scalar, cols, rows, true
	}
	return "", 0, 0, false
}

// shortScalar resolves the scalar of a vector or matrix from either its suffix ("f" in vec3f)
// or its type parameter ("f32" in vec3<f32>).
func shortScalar(suffix, param string) string {
	if param != "" {
		if suffix != "" {
			return ""
		}
		switch param {
		case "f32", "i32", "u32":
			return param
		}
		return ""
	}
	switch suffix {
	case "f":
		return "f32"
	case "i":
		return "i32"
	case "u":
		return "u32"
	}
	return ""
}

func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// resolveLayout resolves a primitive, a known struct or a fixed-size array of either, using the
// uniform address space rules.
func resolveLayout(typeName string, structs map[string]wgslLayout) (wgslLayout, bool) {
	if l, ok := wgslLayouts[typeName]; ok {
		return l, true
	}
	if l, ok := structs[typeName]; ok {
		// Uniform structs align to 16 and pad their tail to it.
		return wgslLayout{roundUpAlign(16, l.size), max(l.align, 16)}, true
	}
	if !strings.HasPrefix(typeName, "array<") || !strings.HasSuffix(typeName, ">") {
		return wgslLayout{}, false
	}

	parts := splitAtTopLevelCommas(typeName[6 : len(typeName)-1])
	if len(parts) != 2 {
		// Runtime-sized arrays only live in storage buffers.
		return wgslLayout{}, false
	}
	elem, ok := resolveLayout(strings.TrimSpace(parts[0]), structs)
	if !ok {
		return wgslLayout{}, false
	}
	count, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return wgslLayout{}, false
	}
	// Uniform arrays round each element up to 16 bytes.
	stride := roundUpAlign(max(elem.align, 16), elem.size)
	return wgslLayout{count * stride, max(elem.align, 16)}, true
}

// structLayout places each field at its next aligned offset and rounds the struct up to its
// largest field alignment.
func structLayout(s wgslStruct, structs map[string]wgslLayout) (wgslLayout, bool) {
	offset, maxAlign := uint64(0), uint64(1)
	for _, f := range s.fields {
		if f.builtin {
			continue
		}
		l, ok := resolveLayout(f.typeName, structs)
		if !ok {
			return wgslLayout{}, false
		}
		offset = roundUpAlign(l.align, offset) + l.size
		maxAlign = max(maxAlign, l.align)
	}
	return wgslLayout{roundUpAlign(maxAlign, offset), maxAlign}, true
}

// structLayouts resolves every struct, repeating until structs that embed other structs settle.
// Structs that never resolve are left out.
func structLayouts(structs []wgslStruct) map[string]wgslLayout {
	resolved := make(map[string]wgslLayout, len(structs))
	remaining := append([]wgslStruct(nil), structs...)
	for len(remaining) > 0 {
		next := remaining[:0]
		for _, s := range remaining {
			if l, ok := structLayout(s, resolved); ok {
				resolved[s.name] = l
			} else {
				next = append(next, s)
			}
		}
		if len(next) == len(remaining) {
			break
		}
		remaining = next
	}
	return resolved
}

func parseStructs(source string) []wgslStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	out := make([]wgslStruct, 0, len(matches))
	for _, m := range matches {
		out = append(out, wgslStruct{name: m[1], fields: parseFields(m[2])})
	}
	return out
}

// parseFields parses comma separated "@attrs name: type" declarations, as found in struct
// bodies and function parameter lists.
func parseFields(body string) []wgslField {
	parts := splitAtTopLevelCommas(body)
	fields := make([]wgslField, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fm := fieldRegex.FindStringSubmatch(part)
		if fm == nil {
			continue
		}

		f := wgslField{
			name:     fm[1],
			typeName: strings.TrimSpace(fm[2]),
			location: -1,
			builtin:  builtinRegex.MatchString(part),
		}
		if lm := locationRegex.FindStringSubmatch(part); lm != nil {
			if loc, err := strconv.Atoi(lm[1]); err == nil {
				f.location = loc
			}
		}
		fields = append(fields, f)
	}
	return fields
}

// splitAtTopLevelCommas splits at commas outside of <> and (), so "array<T, 4>" and
// "@interpolate(flat, center)" stay whole.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(':
			depth++
		case '>', ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// vertexParams returns the parameter list of the @vertex entry point, or "" if the source has none.
func vertexParams(source string) string {
	loc := vertexEntryRegex.FindStringIndex(source)
	if loc == nil {
		return ""
	}
	depth := 1
	for i := loc[1]; i < len(source); i++ {
		switch source[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return source[loc[1]:i]
			}
		}
	}
	return ""
}

// stripComments removes line comments and nested block comments.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			switch {
			case source[i] == '/' && source[i+1] == '*':
				depth++
				i++
				continue
			case source[i] == '*' && source[i+1] == '/' && depth > 0:
				depth--
				i++
				continue
			case source[i] == '/' && source[i+1] == '/' && depth == 0:
				for i < len(source) && source[i] != '\n' {
					i++
				}
				if i < len(source) {
					sb.WriteByte('\n')
				}
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
