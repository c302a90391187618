package common

import "math"

// All matrices in this file are 4x4, stored as flat 16-element slices in column-major order
// (element [col*4+row]), which is the layout GPU uniform uploads expect.

// Identity resets a 4x4 matrix to the identity matrix.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m[:16] {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// Translation writes a translation matrix.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - x, y, z: the translation
func Translation(out []float32, x, y, z float32) {
	Identity(out)
	out[12], out[13], out[14] = x, y, z
}

// Scaling writes a scale matrix.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - x, y, z: the scale factors
func Scaling(out []float32, x, y, z float32) {
	Identity(out)
	out[0], out[5], out[10] = x, y, z
}

// RotationX writes a rotation of a radians about the X axis.
func RotationX(out []float32, a float32) {
	s, c := sincos(a)
	Identity(out)
	out[5], out[6] = c, s
	out[9], out[10] = -s, c
}

// RotationY writes a rotation of a radians about the Y axis.
func RotationY(out []float32, a float32) {
	s, c := sincos(a)
	Identity(out)
	out[0], out[2] = c, s
	out[8], out[10] = -s, c
}

// RotationZ writes a rotation of a radians about the Z axis.
func RotationZ(out []float32, a float32) {
	s, c := sincos(a)
	Identity(out)
	out[0], out[1] = c, s
	out[4], out[5] = -s, c
}

// Perspective writes a perspective projection matrix.
// Depth maps to [-1, 1]. With rightHanded set the camera looks down -Z, otherwise down +Z.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//   - rightHanded: selects the handedness of the view space
func Perspective(out []float32, fovY, aspect, near, far float32, rightHanded bool) {
	fl := float32(1)
	if rightHanded {
		fl = -1
	}
	fy := 1 / float32(math.Tan(float64(fovY)/2))
	nf := 1 / (near - far)

	Identity(out)
	out[0] = fy / aspect
	out[5] = fy
	out[10] = -(near + far) * nf * fl
	out[11] = fl
	out[14] = 2 * far * near * nf
	out[15] = 0
}

// Mul4 multiplies two 4x4 matrices and stores the result in out.
// Result: out = a * b. out may alias a or b.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for i := 0; i < 4; i++ { // column of B
		for j := 0; j < 4; j++ { // row of A
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			buf[i*4+j] = sum
		}
	}
	copy(out, buf[:])
}

// Translate post-multiplies m by a translation: out = m * T(x, y, z).
func Translate(out, m []float32, x, y, z float32) {
	var t [16]float32
	Translation(t[:], x, y, z)
	Mul4(out, m, t[:])
}

// Scale post-multiplies m by a scale: out = m * S(x, y, z).
func Scale(out, m []float32, x, y, z float32) {
	var s [16]float32
	Scaling(s[:], x, y, z)
	Mul4(out, m, s[:])
}

// RotateX post-multiplies m by a rotation about X: out = m * Rx(a).
func RotateX(out, m []float32, a float32) {
	var r [16]float32
	RotationX(r[:], a)
	Mul4(out, m, r[:])
}

// RotateY post-multiplies m by a rotation about Y: out = m * Ry(a).
func RotateY(out, m []float32, a float32) {
	var r [16]float32
	RotationY(r[:], a)
	Mul4(out, m, r[:])
}

// RotateZ post-multiplies m by a rotation about Z: out = m * Rz(a).
func RotateZ(out, m []float32, a float32) {
	var r [16]float32
	RotationZ(r[:], a)
	Mul4(out, m, r[:])
}

// TransformPoint applies m to the point (x, y, z, 1) and returns the transformed x, y and z.
// The w component is dropped, so m must be affine.
func TransformPoint(m []float32, x, y, z float32) (float32, float32, float32) {
	return m[0]*x + m[4]*y + m[8]*z + m[12],
		m[1]*x + m[5]*y + m[9]*z + m[13],
		m[2]*x + m[6]*y + m[10]*z + m[14]
}

func sincos(a float32) (float32, float32) {
	s, c := math.Sincos(float64(a))
	return float32(s), float32(c)
}
