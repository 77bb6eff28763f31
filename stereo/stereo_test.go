package stereo

import (
	"bytes"
	"image"
	"log/slog"
	"testing"

	"github.com/oliverbestmann/stereorizer/glm"
	"github.com/oliverbestmann/stereorizer/pulse"
	"github.com/oliverbestmann/stereorizer/pulse/software"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dev      *software.Device
	programs *pulse.ProgramCache
	scene    *pulse.Program
}

func newFixture(t *testing.T, width, height uint32) *fixture {
	t.Helper()

	dev := software.NewDevice(width, height)
	programs := pulse.NewProgramCache(dev, Shaders(), 8)
	t.Cleanup(programs.Purge)

	scene, err := programs.Get(SceneShader)
	require.NoError(t, err)

	return &fixture{dev: dev, programs: programs, scene: scene}
}

func (f *fixture) program(t *testing.T, path string) *pulse.Program {
	program, err := f.programs.Get(path)
	require.NoError(t, err)
	return program
}

func (f *fixture) model(t *testing.T, vertices []pulse.Vertex, color pulse.Color) *pulse.Model {
	mesh, err := pulse.NewMesh(f.dev, vertices, nil)
	require.NoError(t, err)

	model := pulse.NewModel(mesh, f.scene)
	model.Color = color
	return model
}

func captureLogs(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer

	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	return &buf
}

func rgbaAt(img *image.RGBA, x, y int) [4]uint8 {
	c := img.RGBAAt(x, y)
	return [4]uint8{c.R, c.G, c.B, c.A}
}

// screenPosition projects a world position into the top left based pixel
// coordinates of a target.
func screenPosition(camera *Camera, world glm.Vec3f, width, height int) (int, int) {
	ndc := camera.ProjectionMatrix().Mul(camera.ViewMatrix()).TransformPoint(world)
	x := (ndc[0] + 1) * 0.5 * float32(width)
	y := (1 - ndc[1]) * 0.5 * float32(height)
	return int(x), int(y)
}

func wall(z float32) []pulse.Vertex {
	n := glm.Vec3f{0, 0, 1}

	return []pulse.Vertex{
		{Position: glm.Vec3f{-50, -50, z}, Normal: n},
		{Position: glm.Vec3f{50, -50, z}, Normal: n},
		{Position: glm.Vec3f{50, 50, z}, Normal: n},
		{Position: glm.Vec3f{-50, -50, z}, Normal: n},
		{Position: glm.Vec3f{50, 50, z}, Normal: n},
		{Position: glm.Vec3f{-50, 50, z}, Normal: n},
	}
}
