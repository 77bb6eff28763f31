package glm

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertMatEqual(t *testing.T, expected [16]float32, actual Mat4f, delta float64) {
	t.Helper()

	for idx := range expected {
		assert.InDeltaf(t, expected[idx], actual[idx], delta, "element (%d, %d)", idx/4, idx%4)
	}
}

func TestOffAxisPerspectiveMatchesSymmetric(t *testing.T) {
	cases := []struct {
		fovY      float32
		aspect    float32
		near, far float32
	}{
		{45, 4.0 / 3.0, 0.1, 100},
		{90, 1, 0.05, 1000},
		{60, 16.0 / 9.0, 1, 10},
		{30, 0.5, 0.5, 2},
	}

	for _, tc := range cases {
		fovY := DegToRad(tc.fovY)

		actual := OffAxisPerspective(SymmetricFov(fovY, tc.aspect), tc.near, tc.far)
		expected := mgl32.Perspective(float32(fovY), tc.aspect, tc.near, tc.far)
		assertMatEqual(t, expected, actual, 1e-4)

		assertMatEqual(t, Perspective(fovY, tc.aspect, tc.near, tc.far), actual, 1e-4)
	}
}

func TestOffAxisPerspectiveSymmetricAnglesHaveNoSkew(t *testing.T) {
	fov := Fov{AngleLeft: -0.5, AngleRight: 0.5, AngleUp: 0.5, AngleDown: -0.5}
	m := OffAxisPerspective[float32](fov, 0.1, 100)

	assert.Equal(t, float32(0), m.At(2, 0))
	assert.Equal(t, float32(0), m.At(2, 1))
	assert.Equal(t, float32(-1), m.At(2, 3))
	assert.Equal(t, float32(0), m.At(3, 3))
}

func TestOffAxisPerspectiveAsymmetric(t *testing.T) {
	fov := Fov{AngleLeft: -0.9, AngleRight: 0.6, AngleUp: 0.7, AngleDown: -0.8}
	m := OffAxisPerspective[float32](fov, 0.1, 100)

	// skew towards the wider side
	assert.Less(t, m.At(2, 0), float32(0))
	assert.Less(t, m.At(2, 1), float32(0))

	// the left frustum edge maps to clip x = -1
	near := float32(0.1)
	edge := Vec3f{near * float32(tan(fov.AngleLeft)), 0, -near}
	ndc := m.TransformPoint(edge)
	assert.InDelta(t, -1.0, ndc[0], 1e-4)
	assert.InDelta(t, -1.0, ndc[2], 1e-4)
}

func TestPoseViewMatchesInverseWorld(t *testing.T) {
	poses := []struct {
		axis     Vec3f
		angle    float32
		position Vec3f
	}{
		{Vec3f{0, 1, 0}, 0, Vec3f{0, 0, 0}},
		{Vec3f{0, 1, 0}, 90, Vec3f{1, 2, 3}},
		{Vec3f{1, 1, 0}, 33, Vec3f{-0.032, 1.6, 0.2}},
		{Vec3f{0.2, -1, 0.7}, 170, Vec3f{5, -4, 12}},
	}

	for _, pose := range poses {
		q := QuaternionFromAxisAngle(pose.axis, DegToRad(pose.angle))
		view := PoseView(q, pose.position)

		reference := mgl32.Translate3D(pose.position[0], pose.position[1], pose.position[2]).
			Mul4(mgl32.QuatRotate(float32(DegToRad(pose.angle)), mgl32.Vec3(pose.axis).Normalize()).Mat4()).
			Inv()

		assertMatEqual(t, reference, view, 1e-4)

		origin := view.TransformPoint(pose.position)
		assert.InDelta(t, 0, origin[0], 1e-4)
		assert.InDelta(t, 0, origin[1], 1e-4)
		assert.InDelta(t, 0, origin[2], 1e-4)
	}
}

func TestInverse(t *testing.T) {
	m := TranslationMat4[float32](1, -2, 3).
		Mul(RotationYMat4[float32](0.7)).
		Mul(RotationXMat4[float32](-0.3)).
		Scale(2, 2, 2)

	assertMatEqual(t, IdentityMat4[float32](), m.Mul(m.Inverse()), 1e-5)
	assertMatEqual(t, mgl32.Mat4(m).Inv(), m.Inverse(), 1e-5)

	require.True(t, ScaleMat4[float32](0, 1, 1).Inverse().IsZero())
}

func TestLookAtMatchesReference(t *testing.T) {
	eye := Vec3f{0.032, 0, 0}
	center := Vec3f{0, 0, -10}
	up := Vec3f{0, 1, 0}

	expected := mgl32.LookAtV(mgl32.Vec3(eye), mgl32.Vec3(center), mgl32.Vec3(up))
	assertMatEqual(t, expected, LookAt(eye, center, up), 1e-5)
}

func TestRotationMatchesReference(t *testing.T) {
	assertMatEqual(t, mgl32.HomogRotate3DX(0.4), RotationXMat4[float32](0.4), 1e-5)
	assertMatEqual(t, mgl32.HomogRotate3DY(0.4), RotationYMat4[float32](0.4), 1e-5)
	assertMatEqual(t, mgl32.HomogRotate3DZ(0.4), RotationZMat4[float32](0.4), 1e-5)
}
