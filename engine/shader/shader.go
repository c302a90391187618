package shader

import (
	"context"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-gl/common"
	"github.com/Carmen-Shannon/oxy-gl/engine/loader"
)

// Sources lists the locations whose contents are concatenated, in order, into the vertex and
// fragment stages of a program.
type Sources struct {
	Vertex   []string
	Fragment []string
}

// Key returns the cache key of the sources: every vertex location followed by every fragment
// location, joined with "|".
func (s Sources) Key() string {
	return strings.Join(append(append([]string{}, s.Vertex...), s.Fragment...), "|")
}

// Compiler turns stage source code into a device shader module.
type Compiler interface {
	// CompileModule compiles code into a module.
	//
	// Parameters:
	//   - label: the debug label of the module
	//   - code: the stage source code
	//
	// Returns:
	//   - common.Releaser: the compiled module
	//   - error: the compilation error, if any
	CompileModule(label, code string) (common.Releaser, error)
}

// Program is a compiled vertex and fragment module pair.
type Program struct {
	Key      string
	Vertex   common.Releaser
	Fragment common.Releaser

	VertexSource   string
	FragmentSource string

	// Info is what the sources declare.
	Info Info
}

// Release releases both modules.
func (p *Program) Release() {
	if p.Vertex != nil {
		p.Vertex.Release()
		p.Vertex = nil
	}
	if p.Fragment != nil {
		p.Fragment.Release()
		p.Fragment = nil
	}
}

// Compile builds a Program from in-memory stage sources.
//
// Parameters:
//   - c: the compiler
//   - key: the program key, also used as the module label prefix
//   - vertex: the vertex stage source
//   - fragment: the fragment stage source
//
// Returns:
//   - *Program: the compiled program
//   - error: a reflection error or the first compilation error, naming the failing stage
func Compile(c Compiler, key, vertex, fragment string) (*Program, error) {
	info, err := Reflect(vertex, fragment)
	if err != nil {
		return nil, fmt.Errorf("reflect %s: %w", key, err)
	}
	vs, err := c.CompileModule(key+" vertex", vertex)
	if err != nil {
		return nil, fmt.Errorf("vertex error: %w", err)
	}
	fs, err := c.CompileModule(key+" fragment", fragment)
	if err != nil {
		vs.Release()
		return nil, fmt.Errorf("fragment error: %w", err)
	}
	return &Program{
		Key:            key,
		Vertex:         vs,
		Fragment:       fs,
		VertexSource:   vertex,
		FragmentSource: fragment,
		Info:           info,
	}, nil
}

// Load reads every location in src with one concurrent LoadAll and concatenates each stage's
// pieces in declared order.
//
// Parameters:
//   - ctx: cancels in-flight requests
//   - l: the resource loader
//   - src: the stage locations
//
// Returns:
//   - string: the vertex source
//   - string: the fragment source
//   - error: an error if either stage is empty or any location fails to load
func Load(ctx context.Context, l loader.Loader, src Sources) (string, string, error) {
	if len(src.Vertex) == 0 || len(src.Fragment) == 0 {
		return "", "", fmt.Errorf("shader %q needs at least one vertex and one fragment source", src.Key())
	}

	parts, err := l.LoadAll(ctx, append(append([]string{}, src.Vertex...), src.Fragment...)...)
	if err != nil {
		return "", "", err
	}

	var vertex, fragment strings.Builder
	for i, p := range parts {
		if i < len(src.Vertex) {
			vertex.Write(p)
		} else {
			fragment.Write(p)
		}
	}
	return vertex.String(), fragment.String(), nil
}
