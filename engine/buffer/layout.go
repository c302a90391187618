package buffer

import "fmt"

// Field names one interleaved vertex attribute and its component count.
type Field struct {
	Name       string
	Components int
}

// Attribute is the placement of one field inside an interleaved vertex.
type Attribute struct {
	Name       string
	Kind       ElementKind
	Components int
	// Offset is the byte offset of the attribute from the start of a vertex.
	Offset int
	// Stride is the byte size of a whole vertex, shared by every attribute of a layout.
	Stride int
}

// Layout describes interleaved vertex data where every field has the same element kind.
type Layout struct {
	Kind       ElementKind
	Stride     int
	Attributes []Attribute
}

// NewLayout packs fields back to back, in order, and computes their offsets and the shared stride.
//
// Parameters:
//   - kind: the element kind of every field
//   - fields: the fields, in vertex order
//
// Returns:
//   - Layout: the computed layout
//   - error: an error if a field has no components or a name repeats
func NewLayout(kind ElementKind, fields ...Field) (Layout, error) {
	l := Layout{Kind: kind}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Components <= 0 {
			return Layout{}, fmt.Errorf("layout field %q: component count %d must be positive", f.Name, f.Components)
		}
		if seen[f.Name] {
			return Layout{}, fmt.Errorf("layout field %q declared twice", f.Name)
		}
		seen[f.Name] = true
		l.Attributes = append(l.Attributes, Attribute{
			Name:       f.Name,
			Kind:       kind,
			Components: f.Components,
			Offset:     l.Stride,
		})
		l.Stride += kind.Size() * f.Components
	}
	for i := range l.Attributes {
		l.Attributes[i].Stride = l.Stride
	}
	return l, nil
}

// Attribute returns the attribute with the given name.
func (l Layout) Attribute(name string) (Attribute, bool) {
	for _, a := range l.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Vertices returns how many whole vertices of this layout fit in a buffer of n elements.
func (l Layout) Vertices(n int) int {
	if l.Stride == 0 {
		return 0
	}
	return n * l.Kind.Size() / l.Stride
}
