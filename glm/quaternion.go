package glm

import "math"

// Quaternion is a rotation with vector part V and scalar part S.
type Quaternion[T float] struct {
	V Vec3[T]
	S T
}

func IdentityQuaternion[T float]() Quaternion[T] {
	return Quaternion[T]{S: 1}
}

// QuaternionFromAxisAngle builds a rotation of angle around the given axis.
func QuaternionFromAxisAngle[T float](axis Vec3[T], angle Rad) Quaternion[T] {
	s, c := fastSincos(angle * 0.5)
	return Quaternion[T]{V: axis.Normalize().MulScalar(T(s)), S: T(c)}
}

func (q Quaternion[T]) Normalize() Quaternion[T] {
	length := T(math.Sqrt(float64(q.V.Dot(q.V) + q.S*q.S)))
	if length == 0 {
		return IdentityQuaternion[T]()
	}

	return Quaternion[T]{V: q.V.MulScalar(1 / length), S: q.S / length}
}

func (q Quaternion[T]) Mat4() Mat4[T] {
	return Mat4FromQuaternion(q)
}
