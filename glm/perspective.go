package glm

import "math"

// Fov holds the four half angles of an asymmetric view frustum. Left and Down
// are usually negative.
type Fov struct {
	AngleLeft  Rad
	AngleRight Rad
	AngleUp    Rad
	AngleDown  Rad
}

// SymmetricFov returns the frustum angles of a symmetric perspective with the
// given vertical field of view and aspect ratio.
func SymmetricFov(fovY Rad, aspect float32) Fov {
	tanY := math.Tan(float64(fovY) * 0.5)
	angleX := Rad(math.Atan(tanY * float64(aspect)))
	angleY := fovY * 0.5

	return Fov{
		AngleLeft:  -angleX,
		AngleRight: angleX,
		AngleUp:    angleY,
		AngleDown:  -angleY,
	}
}

func Perspective[T float](fovY Rad, aspect, near, far T) Mat4[T] {
	f := T(1 / math.Tan(float64(fovY*0.5)))

	return Mat4Of([4][4]T{
		{f / aspect, 0, 0, 0},
		{0, f, 0, 0},
		{0, 0, (far + near) / (near - far), -1},
		{0, 0, (2 * far * near) / (near - far), 0},
	})
}

// OffAxisPerspective builds a right handed projection with OpenGL clip depth
// from the four independent frustum angles.
func OffAxisPerspective[T float](fov Fov, near, far T) Mat4[T] {
	tanLeft := T(math.Tan(float64(fov.AngleLeft)))
	tanRight := T(math.Tan(float64(fov.AngleRight)))
	tanUp := T(math.Tan(float64(fov.AngleUp)))
	tanDown := T(math.Tan(float64(fov.AngleDown)))

	width := tanRight - tanLeft
	height := tanUp - tanDown

	return Mat4Of([4][4]T{
		{2 / width, 0, 0, 0},
		{0, 2 / height, 0, 0},
		{(tanRight + tanLeft) / width, (tanUp + tanDown) / height, -(far + near) / (far - near), -1},
		{0, 0, -2 * far * near / (far - near), 0},
	})
}

func LookAt[T float](eye, center, up Vec3[T]) Mat4[T] {
	f := (center.Sub(eye)).Normalize()
	s := f.Cross(up).Normalize()
	u := s.Cross(f)

	return Mat4Of([4][4]T{
		{s[0], u[0], -f[0], 0},
		{s[1], u[1], -f[1], 0},
		{s[2], u[2], -f[2], 0},
		{-eye.Dot(s), -eye.Dot(u), eye.Dot(f), 1},
	})
}

// PoseView returns the view matrix of a camera placed at position with the
// given orientation, the inverse of translation * rotation.
func PoseView[T float](orientation Quaternion[T], position Vec3[T]) Mat4[T] {
	world := TranslationMat4(position[0], position[1], position[2]).
		Mul(Mat4FromQuaternion(orientation.Normalize()))

	return world.Inverse()
}

func DegToRad[T numeric](deg T) Rad {
	return Rad(float64(deg) * (math.Pi / 180))
}

func RadToDeg[T numeric](rad Rad) (deg T) {
	return T(float64(rad) * (180 / math.Pi))
}
