package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func mat() []float32 { return make([]float32, 16) }

func assertMatrixInDelta(t *testing.T, want, got []float32) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "element %d", i)
	}
}

func TestIdentityMul(t *testing.T) {
	a := mat()
	RotationY(a, 0.7)
	id := mat()
	Identity(id)

	out := mat()
	Mul4(out, a, id)
	assertMatrixInDelta(t, a, out)
	Mul4(out, id, a)
	assertMatrixInDelta(t, a, out)
}

func TestTranslationMovesPoint(t *testing.T) {
	m := mat()
	Translation(m, 1, 2, 3)
	x, y, z := TransformPoint(m, 4, 5, 6)
	assert.Equal(t, [3]float32{5, 7, 9}, [3]float32{x, y, z})
}

func TestRotationZQuarterTurn(t *testing.T) {
	m := mat()
	RotationZ(m, math.Pi/2)
	// x axis maps to y axis
	assert.InDelta(t, 0, m[0], 1e-6)
	assert.InDelta(t, 1, m[1], 1e-6)
	assert.InDelta(t, -1, m[4], 1e-6)
	assert.InDelta(t, 0, m[5], 1e-6)
}

func TestTranslateScaleRotateComposeInPlace(t *testing.T) {
	m := mat()
	Identity(m)
	Translate(m, m, 1, 0, 0)
	Scale(m, m, 2, 2, 2)
	RotateX(m, m, 0)
	RotateY(m, m, 0)
	RotateZ(m, m, 0)

	want := mat()
	Identity(want)
	want[0], want[5], want[10] = 2, 2, 2
	want[12] = 1
	assertMatrixInDelta(t, want, m)
}

func TestPerspective(t *testing.T) {
	m := mat()
	Perspective(m, math.Pi/2, 2, 1, 3, false)
	assert.InDelta(t, 0.5, m[0], 1e-6)
	assert.InDelta(t, 1, m[5], 1e-6)
	assert.InDelta(t, 2, m[10], 1e-6)
	assert.Equal(t, float32(1), m[11])
	assert.InDelta(t, -3, m[14], 1e-6)
	assert.Equal(t, float32(0), m[15])

	Perspective(m, math.Pi/2, 2, 1, 3, true)
	assert.InDelta(t, -2, m[10], 1e-6)
	assert.Equal(t, float32(-1), m[11])
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 3, Coalesce(0, 3, 4))
	assert.Equal(t, "", Coalesce[string]())
}

func TestSliceToBytes(t *testing.T) {
	assert.Nil(t, SliceToBytes([]uint16{}))
	assert.Len(t, SliceToBytes([]float32{1, 2, 3}), 12)
}
