package draw

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gl/engine/buffer"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
)

// Constant is a vertex attribute that holds one value for every vertex and instance of a draw.
// It is stored as a single per-instance element read with a zero stride.
type Constant struct {
	slot device.BindPoint
	buf  buffer.DynamicBuffer[float32]
}

// NewConstant creates a constant attribute bound at slot.
//
// Parameters:
//   - dev: the device that owns the buffer
//   - slot: the bind point of the attribute
//   - values: the initial value, one float per component
//
// Returns:
//   - *Constant: the constant attribute
//   - error: an error if values is empty or the buffer cannot be allocated
func NewConstant(dev device.Device, slot device.BindPoint, values ...float32) (*Constant, error) {
	if len(values) == 0 || len(values) > 4 {
		return nil, fmt.Errorf("constant attribute needs 1 to 4 components, got %d", len(values))
	}
	buf, err := buffer.NewFromData(dev, values,
		buffer.WithUsage(device.UsageDynamic),
		buffer.WithLabel(fmt.Sprintf("Constant %d", slot)),
	)
	if err != nil {
		return nil, err
	}
	return &Constant{slot: slot, buf: buf}, nil
}

// Set replaces the value. The upload happens on the next draw.
//
// Parameters:
//   - values: one float per component
//
// Returns:
//   - error: an error if the component count changed or the buffer was released
func (c *Constant) Set(values ...float32) error {
	if len(values) != c.buf.Len() {
		return fmt.Errorf("constant attribute %d has %d components, got %d", c.slot, c.buf.Len(), len(values))
	}
	return c.buf.Write(0, values...)
}

// Binding returns the attribute binding to pass in Options.Attributes.
func (c *Constant) Binding() AttributeBinding {
	return AttributeBinding{
		Slot:        c.slot,
		Buffer:      c.buf,
		Components:  c.buf.Len(),
		PerInstance: true,
	}
}

// Release releases the buffer.
func (c *Constant) Release() {
	c.buf.Release()
}
