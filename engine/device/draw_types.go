package device

import "fmt"

// Mode is the primitive assembly mode of a draw.
type Mode int

const (
	// ModeTriangles draws separate triangles. This is the default.
	ModeTriangles Mode = iota
	ModePoints
	ModeLines
	ModeLineStrip
	ModeLineLoop
	ModeTriangleStrip
	ModeTriangleFan
)

var modeNames = map[Mode]string{
	ModeTriangles:     "triangles",
	ModePoints:        "points",
	ModeLines:         "lines",
	ModeLineStrip:     "linestrip",
	ModeLineLoop:      "lineloop",
	ModeTriangleStrip: "trianglestrip",
	ModeTriangleFan:   "trianglefan",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode returns the Mode with the given lowercase name.
//
// Parameters:
//   - name: one of points, lines, linestrip, lineloop, triangles, trianglestrip, trianglefan
//
// Returns:
//   - Mode: the parsed mode
//   - error: an error if the name is not recognized
func ParseMode(name string) (Mode, error) {
	for m, n := range modeNames {
		if n == name {
			return m, nil
		}
	}
	return ModeTriangles, fmt.Errorf("unknown draw mode %q", name)
}

// IndexFormat is the element type of a bound index buffer.
type IndexFormat int

const (
	IndexUint16 IndexFormat = iota
	IndexUint8
)

// DrawCall records one draw issued to a MemoryDevice.
type DrawCall struct {
	Mode      Mode
	Indexed   bool
	Format    IndexFormat
	Count     int
	Instances int
	// Vertex maps bind points to the handles bound when the draw was issued.
	Vertex map[BindPoint]Handle
	// Index is the index buffer bound when the draw was issued, or 0.
	Index Handle
	// Uniforms maps resource slots to the uniform buffers bound when the draw was issued.
	Uniforms map[ResourceSlot]Handle
}
