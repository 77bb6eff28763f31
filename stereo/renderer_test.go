package stereo

import (
	"testing"

	"github.com/oliverbestmann/stereorizer/glm"
	"github.com/oliverbestmann/stereorizer/pulse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderKnownTriangle(t *testing.T) {
	f := newFixture(t, 1920, 1080)

	left, err := NewEyeRenderer(f.dev, EyeLeft, f.program(t, VisualizeShader))
	require.NoError(t, err)

	right, err := NewEyeRenderer(f.dev, EyeRight, f.program(t, VisualizeShader))
	require.NoError(t, err)

	left.Target().Configure(960, 1080)
	right.Target().Configure(960, 1080)

	clearColor := pulse.ColorLinearRGBA(0.1, 0.1, 0.1, 1)
	left.Target().ClearColor = clearColor

	triangle := []pulse.Vertex{
		{Position: glm.Vec3f{-1, -1, -5}, Normal: glm.Vec3f{0, 0, 1}},
		{Position: glm.Vec3f{1, -1, -5}, Normal: glm.Vec3f{0, 0, 1}},
		{Position: glm.Vec3f{0, 1, -5}, Normal: glm.Vec3f{0, 0, 1}},
	}

	model := f.model(t, triangle, pulse.ColorLinearRGBA(1, 0, 0, 1))

	camera := NewCamera(glm.Vec3f{})
	camera.Aspect = 960.0 / 1080.0

	require.True(t, left.RenderToTarget([]*pulse.Model{model}, camera, DefaultLight()))

	img, err := left.Target().ReadColor()
	require.NoError(t, err)

	assert.Equal(t, clearColor.RGBA8(), rgbaAt(img, 0, 0))

	x, y := screenPosition(camera, glm.Vec3f{0, -1.0 / 3.0, -5}, 960, 1080)
	assert.Equal(t, [4]uint8{255, 0, 0, 255}, rgbaAt(img, x, y))

	// the right target is still untouched
	assert.False(t, right.Target().Ready())
}

func TestRenderToUnavailableTargetIsNoop(t *testing.T) {
	f := newFixture(t, 64, 64)
	f.dev.IncompleteFramebuffers = true

	eye, err := NewEyeRenderer(f.dev, EyeLeft, f.program(t, VisualizeShader))
	require.NoError(t, err)
	eye.Target().Configure(32, 32)

	model := f.model(t, wall(-5), pulse.ColorWhite)
	assert.False(t, eye.RenderToTarget([]*pulse.Model{model}, NewCamera(glm.Vec3f{}), DefaultLight()))
	assert.Equal(t, 0, f.dev.Stats().DrawCalls)
}

func TestVisualizationRestoresState(t *testing.T) {
	f := newFixture(t, 64, 32)

	eye, err := NewEyeRenderer(f.dev, EyeLeft, f.program(t, VisualizeShader))
	require.NoError(t, err)
	eye.Target().Configure(32, 32)

	model := f.model(t, wall(-5), pulse.ColorWhite)
	require.True(t, eye.RenderToTarget([]*pulse.Model{model}, NewCamera(glm.Vec3f{}), DefaultLight()))

	// some unrelated state of an ongoing frame
	f.scene.Bind()
	f.dev.BindVertexArray(model.Mesh.VertexArray())
	f.dev.ActiveTexture(3)
	f.dev.SetDepthTest(true)

	before := f.dev.State()
	draws := f.dev.Stats().DrawCalls

	eye.VisualizeColor(pulse.RectangleFromXYWH[uint32](0, 0, 32, 32))
	assert.Equal(t, before, f.dev.State())

	eye.VisualizeDepth(pulse.RectangleFromXYWH[uint32](32, 0, 32, 32), 0.1, 100)
	assert.Equal(t, before, f.dev.State())

	assert.Equal(t, draws+2, f.dev.Stats().DrawCalls)
}

func TestVisualizeDepthLinearizes(t *testing.T) {
	f := newFixture(t, 64, 32)

	eye, err := NewEyeRenderer(f.dev, EyeLeft, f.program(t, VisualizeShader))
	require.NoError(t, err)
	eye.Target().Configure(32, 32)

	camera := NewCamera(glm.Vec3f{})
	camera.Aspect = 1

	// a wall at half the distance between the planes
	distance := (camera.Near + camera.Far) / 2
	model := f.model(t, wall(-distance), pulse.ColorWhite)
	require.True(t, eye.RenderToTarget([]*pulse.Model{model}, camera, DefaultLight()))

	eye.VisualizeDepth(pulse.RectangleFromXYWH[uint32](0, 0, 32, 32), camera.Near, camera.Far)
	eye.VisualizeColor(pulse.RectangleFromXYWH[uint32](32, 0, 32, 32))

	var depthPixel, colorPixel [4]uint8
	f.dev.BindFramebuffer(0)
	f.dev.ReadPixels(pulse.RectangleFromXYWH[uint32](16, 16, 1, 1), depthPixel[:])
	f.dev.ReadPixels(pulse.RectangleFromXYWH[uint32](48, 16, 1, 1), colorPixel[:])

	// raw device depth would be close to white at this distance
	assert.InDelta(t, 128, int(depthPixel[0]), 2)
	assert.Equal(t, [4]uint8{255, 255, 255, 255}, colorPixel)
}

func TestRenderToTargetDrawsEveryModel(t *testing.T) {
	f := newFixture(t, 64, 64)
	logs := captureLogs(t)

	eye, err := NewEyeRenderer(f.dev, EyeLeft, f.program(t, VisualizeShader))
	require.NoError(t, err)
	eye.Target().Configure(16, 16)

	models := []*pulse.Model{
		f.model(t, wall(-5), pulse.ColorWhite),
		f.model(t, wall(-6), pulse.ColorWhite),
	}

	require.True(t, eye.RenderToTarget(models, NewCamera(glm.Vec3f{}), DefaultLight()))
	assert.Equal(t, 2, f.dev.Stats().DrawCalls)
	assert.NotContains(t, logs.String(), "Shader reload")
}
