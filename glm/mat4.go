package glm

// Mat4 is a column major 4x4 matrix. Element (col, row) lives at index col*4+row.
type Mat4[T numeric] [16]T

// Mat4Of builds a matrix from its four columns.
func Mat4Of[T numeric](columns [4][4]T) Mat4[T] {
	var m Mat4[T]
	for col := range 4 {
		copy(m[col*4:col*4+4], columns[col][:])
	}

	return m
}

func Mat4FromQuaternion[T float](quat Quaternion[T]) Mat4[T] {
	x2 := quat.V[0] + quat.V[0]
	y2 := quat.V[1] + quat.V[1]
	z2 := quat.V[2] + quat.V[2]

	xx2 := x2 * quat.V[0]
	xy2 := x2 * quat.V[1]
	xz2 := x2 * quat.V[2]

	yy2 := y2 * quat.V[1]
	yz2 := y2 * quat.V[2]
	zz2 := z2 * quat.V[2]

	sy2 := y2 * quat.S
	sz2 := z2 * quat.S
	sx2 := x2 * quat.S

	return Mat4[T]{
		1 - yy2 - zz2, xy2 + sz2, xz2 - sy2, 0,
		xy2 - sz2, 1 - xx2 - zz2, yz2 + sx2, 0,
		xz2 + sy2, yz2 - sx2, 1 - xx2 - yy2, 0,
		0, 0, 0, 1,
	}
}

func IdentityMat4[T numeric]() Mat4[T] {
	return Mat4[T]{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func TranslationMat4[T numeric](x, y, z T) Mat4[T] {
	return Mat4[T]{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		x, y, z, 1,
	}
}

func RotationXMat4[T float](angle Rad) Mat4[T] {
	fs, fc := fastSincos(angle)
	s := T(fs)
	c := T(fc)

	return Mat4[T]{
		1, 0, 0, 0,
		0, c, s, 0,
		0, -s, c, 0,
		0, 0, 0, 1,
	}
}

func RotationYMat4[T float](angle Rad) Mat4[T] {
	fs, fc := fastSincos(angle)
	s := T(fs)
	c := T(fc)

	return Mat4[T]{
		c, 0, -s, 0,
		0, 1, 0, 0,
		s, 0, c, 0,
		0, 0, 0, 1,
	}
}

func RotationZMat4[T float](angle Rad) Mat4[T] {
	fs, fc := fastSincos(angle)
	s := T(fs)
	c := T(fc)

	return Mat4[T]{
		c, s, 0, 0,
		-s, c, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func ScaleMat4[T numeric](x, y, z T) Mat4[T] {
	return Mat4[T]{
		x, 0, 0, 0,
		0, y, 0, 0,
		0, 0, z, 0,
		0, 0, 0, 1,
	}
}

func (lhs Mat4[T]) Scale(x, y, z T) Mat4[T] {
	return lhs.Mul(ScaleMat4[T](x, y, z))
}

func (lhs Mat4[T]) Translate(x, y, z T) Mat4[T] {
	return lhs.Mul(TranslationMat4[T](x, y, z))
}

// At returns the element in the given column and row.
func (lhs Mat4[T]) At(col, row int) T {
	return lhs[col*4+row]
}

func (lhs Mat4[T]) IsZero() bool {
	return lhs == Mat4[T]{}
}

func (lhs Mat4[T]) Mul(rhs Mat4[T]) Mat4[T] {
	return Mat4[T]{
		lhs[0]*rhs[0] + lhs[4]*rhs[1] + lhs[8]*rhs[2] + lhs[12]*rhs[3],
		lhs[1]*rhs[0] + lhs[5]*rhs[1] + lhs[9]*rhs[2] + lhs[13]*rhs[3],
		lhs[2]*rhs[0] + lhs[6]*rhs[1] + lhs[10]*rhs[2] + lhs[14]*rhs[3],
		lhs[3]*rhs[0] + lhs[7]*rhs[1] + lhs[11]*rhs[2] + lhs[15]*rhs[3],
		lhs[0]*rhs[4] + lhs[4]*rhs[5] + lhs[8]*rhs[6] + lhs[12]*rhs[7],
		lhs[1]*rhs[4] + lhs[5]*rhs[5] + lhs[9]*rhs[6] + lhs[13]*rhs[7],
		lhs[2]*rhs[4] + lhs[6]*rhs[5] + lhs[10]*rhs[6] + lhs[14]*rhs[7],
		lhs[3]*rhs[4] + lhs[7]*rhs[5] + lhs[11]*rhs[6] + lhs[15]*rhs[7],
		lhs[0]*rhs[8] + lhs[4]*rhs[9] + lhs[8]*rhs[10] + lhs[12]*rhs[11],
		lhs[1]*rhs[8] + lhs[5]*rhs[9] + lhs[9]*rhs[10] + lhs[13]*rhs[11],
		lhs[2]*rhs[8] + lhs[6]*rhs[9] + lhs[10]*rhs[10] + lhs[14]*rhs[11],
		lhs[3]*rhs[8] + lhs[7]*rhs[9] + lhs[11]*rhs[10] + lhs[15]*rhs[11],
		lhs[0]*rhs[12] + lhs[4]*rhs[13] + lhs[8]*rhs[14] + lhs[12]*rhs[15],
		lhs[1]*rhs[12] + lhs[5]*rhs[13] + lhs[9]*rhs[14] + lhs[13]*rhs[15],
		lhs[2]*rhs[12] + lhs[6]*rhs[13] + lhs[10]*rhs[14] + lhs[14]*rhs[15],
		lhs[3]*rhs[12] + lhs[7]*rhs[13] + lhs[11]*rhs[14] + lhs[15]*rhs[15],
	}
}

func (lhs Mat4[T]) Transform(rhs Vec4[T]) Vec4[T] {
	return Vec4[T]{
		lhs[0]*rhs[0] + lhs[4]*rhs[1] + lhs[8]*rhs[2] + lhs[12]*rhs[3],
		lhs[1]*rhs[0] + lhs[5]*rhs[1] + lhs[9]*rhs[2] + lhs[13]*rhs[3],
		lhs[2]*rhs[0] + lhs[6]*rhs[1] + lhs[10]*rhs[2] + lhs[14]*rhs[3],
		lhs[3]*rhs[0] + lhs[7]*rhs[1] + lhs[11]*rhs[2] + lhs[15]*rhs[3],
	}
}

// TransformPoint transforms a position (w = 1) and applies the perspective divide.
func (lhs Mat4[T]) TransformPoint(p Vec3[T]) Vec3[T] {
	v := lhs.Transform(p.Extend(1))
	if v[3] == 0 || v[3] == 1 {
		return v.Truncate()
	}

	return v.Truncate().MulScalar(1 / v[3])
}

// Inverse computes the inverse using cofactor expansion. A singular matrix
// yields the zero matrix.
func (lhs Mat4[T]) Inverse() Mat4[T] {
	m := lhs
	var inv Mat4[T]

	inv[0] = m[5]*m[10]*m[15] - m[5]*m[11]*m[14] - m[9]*m[6]*m[15] + m[9]*m[7]*m[14] + m[13]*m[6]*m[11] - m[13]*m[7]*m[10]
	inv[4] = -m[4]*m[10]*m[15] + m[4]*m[11]*m[14] + m[8]*m[6]*m[15] - m[8]*m[7]*m[14] - m[12]*m[6]*m[11] + m[12]*m[7]*m[10]
	inv[8] = m[4]*m[9]*m[15] - m[4]*m[11]*m[13] - m[8]*m[5]*m[15] + m[8]*m[7]*m[13] + m[12]*m[5]*m[11] - m[12]*m[7]*m[9]
	inv[12] = -m[4]*m[9]*m[14] + m[4]*m[10]*m[13] + m[8]*m[5]*m[14] - m[8]*m[6]*m[13] - m[12]*m[5]*m[10] + m[12]*m[6]*m[9]
	inv[1] = -m[1]*m[10]*m[15] + m[1]*m[11]*m[14] + m[9]*m[2]*m[15] - m[9]*m[3]*m[14] - m[13]*m[2]*m[11] + m[13]*m[3]*m[10]
	inv[5] = m[0]*m[10]*m[15] - m[0]*m[11]*m[14] - m[8]*m[2]*m[15] + m[8]*m[3]*m[14] + m[12]*m[2]*m[11] - m[12]*m[3]*m[10]
	inv[9] = -m[0]*m[9]*m[15] + m[0]*m[11]*m[13] + m[8]*m[1]*m[15] - m[8]*m[3]*m[13] - m[12]*m[1]*m[11] + m[12]*m[3]*m[9]
	inv[13] = m[0]*m[9]*m[14] - m[0]*m[10]*m[13] - m[8]*m[1]*m[14] + m[8]*m[2]*m[13] + m[12]*m[1]*m[10] - m[12]*m[2]*m[9]
	inv[2] = m[1]*m[6]*m[15] - m[1]*m[7]*m[14] - m[5]*m[2]*m[15] + m[5]*m[3]*m[14] + m[13]*m[2]*m[7] - m[13]*m[3]*m[6]
	inv[6] = -m[0]*m[6]*m[15] + m[0]*m[7]*m[14] + m[4]*m[2]*m[15] - m[4]*m[3]*m[14] - m[12]*m[2]*m[7] + m[12]*m[3]*m[6]
	inv[10] = m[0]*m[5]*m[15] - m[0]*m[7]*m[13] - m[4]*m[1]*m[15] + m[4]*m[3]*m[13] + m[12]*m[1]*m[7] - m[12]*m[3]*m[5]
	inv[14] = -m[0]*m[5]*m[14] + m[0]*m[6]*m[13] + m[4]*m[1]*m[14] - m[4]*m[2]*m[13] - m[12]*m[1]*m[6] + m[12]*m[2]*m[5]
	inv[3] = -m[1]*m[6]*m[11] + m[1]*m[7]*m[10] + m[5]*m[2]*m[11] - m[5]*m[3]*m[10] - m[9]*m[2]*m[7] + m[9]*m[3]*m[6]
	inv[7] = m[0]*m[6]*m[11] - m[0]*m[7]*m[10] - m[4]*m[2]*m[11] + m[4]*m[3]*m[10] + m[8]*m[2]*m[7] - m[8]*m[3]*m[6]
	inv[11] = -m[0]*m[5]*m[11] + m[0]*m[7]*m[9] + m[4]*m[1]*m[11] - m[4]*m[3]*m[9] - m[8]*m[1]*m[7] + m[8]*m[3]*m[5]
	inv[15] = m[0]*m[5]*m[10] - m[0]*m[6]*m[9] - m[4]*m[1]*m[10] + m[4]*m[2]*m[9] + m[8]*m[1]*m[6] - m[8]*m[2]*m[5]

	det := m[0]*inv[0] + m[1]*inv[4] + m[2]*inv[8] + m[3]*inv[12]
	if det == 0 {
		return Mat4[T]{}
	}

	for idx := range inv {
		inv[idx] /= det
	}

	return inv
}
