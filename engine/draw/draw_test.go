package draw

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-gl/common"
	"github.com/Carmen-Shannon/oxy-gl/engine/buffer"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Drawer = &device.MemoryDevice{}
var _ Drawer = &device.WGPUDevice{}

// failingDevice rejects every range upload.
type failingDevice struct {
	*device.MemoryDevice
}

func (d failingDevice) UploadRange(h device.Handle, byteOffset int, data []byte) error {
	return &device.DeviceError{Op: "upload range", Handle: h, Err: errors.New("lost")}
}

func TestSubmitArraysFlushesBeforeDraw(t *testing.T) {
	dev := device.NewMemoryDevice()
	pos, err := buffer.New[float32](dev, 6)
	require.NoError(t, err)

	require.NoError(t, pos.Write(4, 1, 2))
	require.True(t, pos.IsDirty())

	err = Submit(dev, Options{
		Attributes: []AttributeBinding{{Slot: 0, Buffer: pos, Components: 2}},
	})
	require.NoError(t, err)
	assert.False(t, pos.IsDirty())

	draws := dev.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, device.ModeTriangles, draws[0].Mode)
	assert.Equal(t, 3, draws[0].Count)
	assert.Equal(t, 1, draws[0].Instances)
	assert.False(t, draws[0].Indexed)
	assert.Equal(t, pos.Handle(), draws[0].Vertex[0])
}

func TestSubmitIndexed(t *testing.T) {
	dev := device.NewMemoryDevice()
	pos, err := buffer.NewFromData(dev, []float32{0, 0, 1, 0, 1, 1, 0, 1})
	require.NoError(t, err)
	idx, err := buffer.NewIndices(dev, []uint16{0, 1, 2, 0, 2, 3})
	require.NoError(t, err)

	err = Submit(dev, Options{
		Mode:       device.ModeTriangleStrip,
		Instances:  4,
		Indices:    idx,
		Attributes: []AttributeBinding{{Slot: 0, Buffer: pos, Components: 2}},
	})
	require.NoError(t, err)

	draws := dev.Draws()
	require.Len(t, draws, 1)
	assert.True(t, draws[0].Indexed)
	assert.Equal(t, device.IndexUint16, draws[0].Format)
	assert.Equal(t, 6, draws[0].Count)
	assert.Equal(t, 4, draws[0].Instances)
	assert.Equal(t, idx.Handle(), draws[0].Index)
}

func TestSubmitNothingToDraw(t *testing.T) {
	dev := device.NewMemoryDevice()
	assert.ErrorIs(t, Submit(dev, Options{}), ErrNothingToDraw)
	assert.Empty(t, dev.Draws())
}

func TestSubmitFlushErrorSkipsDraw(t *testing.T) {
	dev := failingDevice{device.NewMemoryDevice()}
	pos, err := buffer.New[float32](dev, 3)
	require.NoError(t, err)
	require.NoError(t, pos.Write(0, 1))

	err = Submit(dev, Options{Attributes: []AttributeBinding{{Buffer: pos, Components: 3}}})
	var devErr *device.DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Empty(t, dev.Draws())
	assert.True(t, pos.IsDirty())
}

func TestSubmitRejectsNonIndexKind(t *testing.T) {
	dev := device.NewMemoryDevice()
	idx, err := buffer.NewFromData(dev, []float32{0, 1, 2}, buffer.WithTarget(device.TargetIndex))
	require.NoError(t, err)

	assert.Error(t, Submit(dev, Options{Indices: idx}))
	assert.Empty(t, dev.Draws())
}

func TestSubmitCountOverride(t *testing.T) {
	dev := device.NewMemoryDevice()
	pos, err := buffer.New[float32](dev, 12)
	require.NoError(t, err)

	require.NoError(t, Submit(dev, Options{
		Mode:       device.ModePoints,
		Count:      2,
		Attributes: []AttributeBinding{{Buffer: pos, Components: 3}},
	}))
	assert.Equal(t, 2, dev.Draws()[0].Count)
}

func TestVertexCount(t *testing.T) {
	dev := device.NewMemoryDevice()
	interleaved, err := buffer.New[float32](dev, 27)
	require.NoError(t, err)
	colors, err := buffer.New[uint8](dev, 8)
	require.NoError(t, err)
	offsets, err := buffer.New[float32](dev, 200)
	require.NoError(t, err)

	tests := []struct {
		name  string
		attrs []AttributeBinding
		want  int
		err   bool
	}{
		{name: "none", want: 0},
		{name: "stride", attrs: []AttributeBinding{{Buffer: interleaved, Stride: 36}}, want: 3},
		{name: "components", attrs: []AttributeBinding{{Buffer: colors, Components: 4}}, want: 2},
		{
			name: "minimum",
			attrs: []AttributeBinding{
				{Buffer: interleaved, Stride: 36},
				{Buffer: colors, Components: 4},
			},
			want: 2,
		},
		{
			name: "per instance ignored",
			attrs: []AttributeBinding{
				{Buffer: interleaved, Stride: 36},
				{Buffer: offsets, Components: 2, PerInstance: true},
			},
			want: 3,
		},
		{name: "no components", attrs: []AttributeBinding{{Buffer: colors}}, err: true},
		{name: "no buffer", attrs: []AttributeBinding{{Components: 1}}, err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VertexCount(tt.attrs)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIndexFormatOf(t *testing.T) {
	f, err := IndexFormatOf(buffer.KindUint8)
	require.NoError(t, err)
	assert.Equal(t, device.IndexUint8, f)

	f, err = IndexFormatOf(buffer.KindUint16)
	require.NoError(t, err)
	assert.Equal(t, device.IndexUint16, f)

	_, err = IndexFormatOf(buffer.KindInt16)
	assert.Error(t, err)
}

// uniformGroup binds one uniform buffer at group 0, binding 0.
type uniformGroup struct {
	h   device.Handle
	err error
}

func (g uniformGroup) BindForDraw(b device.Binder) error {
	if g.err != nil {
		return g.err
	}
	b.BindUniform(device.ResourceSlot{}, g.h)
	return nil
}

func TestSubmitBindsResources(t *testing.T) {
	dev := device.NewMemoryDevice()
	pos, err := buffer.New[float32](dev, 6)
	require.NoError(t, err)
	u, err := buffer.New[float32](dev, 4, buffer.WithTarget(device.TargetUniform))
	require.NoError(t, err)

	require.NoError(t, Submit(dev, Options{
		Attributes: []AttributeBinding{{Buffer: pos, Components: 2}},
		Resources:  []ResourceGroup{uniformGroup{h: u.Handle()}},
	}))
	draws := dev.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, u.Handle(), draws[0].Uniforms[device.ResourceSlot{}])
}

func TestSubmitResourceErrorSkipsDraw(t *testing.T) {
	dev := device.NewMemoryDevice()
	pos, err := buffer.New[float32](dev, 6)
	require.NoError(t, err)

	lost := errors.New("texture never set")
	err = Submit(dev, Options{
		Attributes: []AttributeBinding{{Buffer: pos, Components: 2}},
		Resources:  []ResourceGroup{uniformGroup{err: lost}},
	})
	assert.ErrorIs(t, err, lost)
	assert.Empty(t, dev.Draws())
}

func TestConstantAttribute(t *testing.T) {
	dev := device.NewMemoryDevice()
	pos, err := buffer.New[float32](dev, 8)
	require.NoError(t, err)
	brightness, err := NewConstant(dev, 2, 0.5)
	require.NoError(t, err)
	defer brightness.Release()

	b := brightness.Binding()
	assert.True(t, b.PerInstance)
	assert.Equal(t, device.BindPoint(2), b.Slot)
	assert.Equal(t, 1, b.Components)

	require.NoError(t, brightness.Set(0.75))
	assert.Error(t, brightness.Set(1, 1), "component count is fixed")

	require.NoError(t, Submit(dev, Options{
		Instances:  3,
		Attributes: []AttributeBinding{{Slot: 0, Buffer: pos, Components: 2}, b},
	}))
	draws := dev.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, 4, draws[0].Count, "the constant does not limit the vertex count")

	raw, ok := dev.Contents(draws[0].Vertex[2])
	require.True(t, ok)
	assert.Equal(t, common.SliceToBytes([]float32{0.75}), raw)

	_, err = NewConstant(dev, 3)
	assert.Error(t, err)
	_, err = NewConstant(dev, 3, 1, 2, 3, 4, 5)
	assert.Error(t, err)
}
