package software

import (
	"testing"

	"github.com/oliverbestmann/stereorizer/glm"
	"github.com/oliverbestmann/stereorizer/pulse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flatSource = `
#version 410 core
uniform mat4 modelMatrix;
uniform mat4 viewMatrix;
uniform mat4 projectionMatrix;
uniform vec4 materialColor;
void main() {}
`

func newTarget(t *testing.T, dev *Device, width, height uint32) pulse.FramebufferHandle {
	color, err := dev.CreateTexture(pulse.FormatRGBA8, width, height)
	require.NoError(t, err)

	depth, err := dev.CreateTexture(pulse.FormatDepth32F, width, height)
	require.NoError(t, err)

	fb, err := dev.CreateFramebuffer()
	require.NoError(t, err)

	dev.BindFramebuffer(fb)
	dev.FramebufferTexture(pulse.AttachmentColor, color)
	dev.FramebufferTexture(pulse.AttachmentDepth, depth)
	require.NoError(t, dev.CheckFramebuffer())

	dev.Viewport(pulse.RectangleFromXYWH(0, 0, width, height))
	dev.Clear(pulse.ColorBlack, true)

	return fb
}

func pixel(dev *Device, x, y uint32) [4]uint8 {
	var rgba [4]uint8
	dev.ReadPixels(pulse.RectangleFromXYWH(x, y, 1, 1), rgba[:])
	return rgba
}

func TestDrawTrianglesDepthTest(t *testing.T) {
	dev := NewDevice(8, 8)
	newTarget(t, dev, 8, 8)
	dev.SetDepthTest(true)

	prog, err := dev.CompileProgram(flatSource, flatSource)
	require.NoError(t, err)
	dev.UseProgram(prog)

	// two overlapping fullscreen triangles, the nearer one drawn first
	near := []pulse.Vertex{
		{Position: glm.Vec3f{-3, -1, -0.5}},
		{Position: glm.Vec3f{1, 3, -0.5}},
		{Position: glm.Vec3f{1, -1, -0.5}},
	}
	far := []pulse.Vertex{
		{Position: glm.Vec3f{-3, -1, 0.5}},
		{Position: glm.Vec3f{1, 3, 0.5}},
		{Position: glm.Vec3f{1, -1, 0.5}},
	}

	vaoNear, err := dev.CreateVertexArray(near, nil)
	require.NoError(t, err)
	vaoFar, err := dev.CreateVertexArray(far, nil)
	require.NoError(t, err)

	dev.Uniform4f(dev.UniformLocation(prog, "materialColor"), glm.Vec4f{1, 0, 0, 1})
	dev.BindVertexArray(vaoNear)
	dev.DrawTriangles(3, false)

	dev.Uniform4f(dev.UniformLocation(prog, "materialColor"), glm.Vec4f{0, 1, 0, 1})
	dev.BindVertexArray(vaoFar)
	dev.DrawTriangles(3, false)

	assert.Equal(t, [4]uint8{255, 0, 0, 255}, pixel(dev, 4, 4))

	// without depth test the last one wins
	dev.SetDepthTest(false)
	dev.DrawTriangles(3, false)
	assert.Equal(t, [4]uint8{0, 255, 0, 255}, pixel(dev, 4, 4))

	assert.Equal(t, 3, dev.Stats().DrawCalls)
}

func TestBlitScalesIntoDestination(t *testing.T) {
	dev := NewDevice(4, 2)
	dev.Clear(pulse.ColorLinearRGBA(0, 0, 1, 1), false)

	fb := newTarget(t, dev, 2, 2)
	dev.BlitFramebuffer(0, fb, pulse.RectangleFromXYWH[uint32](0, 0, 2, 2), pulse.RectangleFromXYWH[uint32](0, 0, 2, 2))

	dev.BindFramebuffer(fb)
	assert.Equal(t, [4]uint8{0, 0, 255, 255}, pixel(dev, 1, 1))
	assert.Equal(t, 1, dev.Stats().Blits)
}

func TestCompileProgramReportsErrorDirective(t *testing.T) {
	dev := NewDevice(4, 4)

	_, err := dev.CompileProgram("void main() {}\n#error nope\n", flatSource)
	require.ErrorIs(t, err, pulse.ErrShaderCompile)
	assert.Contains(t, err.Error(), "0:2: '#error' : nope")

	_, err = dev.CompileProgram("void foo() {}", flatSource)
	require.ErrorIs(t, err, pulse.ErrShaderCompile)
}

func TestFences(t *testing.T) {
	dev := NewDevice(4, 4)

	require.NoError(t, pulse.WaitFence(dev, -1))
	assert.Equal(t, 1, dev.Stats().FenceWaits)

	fence := dev.FenceSync()
	dev.DeleteSync(fence)
	require.ErrorIs(t, dev.ClientWaitSync(fence, 0), ErrUnknownFence)
}

func TestLinearizeDepth(t *testing.T) {
	near, far := float32(0.1), float32(100)

	assert.InDelta(t, near, LinearizeDepth(0, near, far), 1e-5)
	assert.InDelta(t, far, LinearizeDepth(1, near, far), 1e-2)

	// round trip through a projection
	projection := glm.Perspective[float32](glm.DegToRad[float32](45), 1, near, far)
	clip := projection.Transform(glm.Vec4f{0, 0, -7, 1})
	depth := clip[2]/clip[3]*0.5 + 0.5
	assert.InDelta(t, 7, LinearizeDepth(depth, near, far), 1e-2)
}
