package pulse_test

import (
	"bytes"
	"log/slog"
	"testing"
	"testing/fstest"
	"time"

	"github.com/oliverbestmann/stereorizer/pulse"
	"github.com/oliverbestmann/stereorizer/pulse/software"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flatShader = `
#shader vertex
#version 410 core
layout(location = 0) in vec3 position;
uniform mat4 modelMatrix;
uniform mat4 viewMatrix;
uniform mat4 projectionMatrix;
void main() {
	gl_Position = projectionMatrix * viewMatrix * modelMatrix * vec4(position, 1.0);
}

#shader fragment
#version 410 core
uniform vec4 materialColor;
out vec4 fragColor;
void main() {
	fragColor = materialColor;
}
`

func TestParseShaderSource(t *testing.T) {
	source, err := pulse.ParseShaderSource(flatShader)
	require.NoError(t, err)

	assert.Contains(t, source.Vertex, "gl_Position")
	assert.NotContains(t, source.Vertex, "fragColor")
	assert.Contains(t, source.Fragment, "fragColor")
	assert.NotContains(t, source.Fragment, "#shader")

	_, err = pulse.ParseShaderSource("#shader vertex\nvoid main() {}\n")
	require.ErrorIs(t, err, pulse.ErrShaderCompile)

	_, err = pulse.ParseShaderSource("#shader geometry\n")
	require.Error(t, err)
}

func TestShaderSourceWithDefines(t *testing.T) {
	source, err := pulse.ParseShaderSource(flatShader)
	require.NoError(t, err)

	defined := source.WithDefines(map[string]string{"USE_LIGHT": "1", "A_FIRST": "2"})

	assert.Contains(t, defined.Vertex, "#version 410 core\n#define A_FIRST 2\n#define USE_LIGHT 1\n")
	assert.Contains(t, defined.Fragment, "#version 410 core\n#define A_FIRST 2\n#define USE_LIGHT 1\n")

	plain := pulse.ShaderSource{Vertex: "void main() {}\n", Fragment: "void main() {}\n"}
	assert.Equal(t, "#define X 1\nvoid main() {}\n", plain.WithDefines(map[string]string{"X": "1"}).Vertex)
}

func captureLogs(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer

	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	return &buf
}

func TestProgramReloadIfChanged(t *testing.T) {
	logs := captureLogs(t)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fsys := fstest.MapFS{
		"flat.shader": &fstest.MapFile{Data: []byte(flatShader), ModTime: start},
	}

	dev := software.NewDevice(32, 32)
	program, err := pulse.LoadProgram(dev, fsys, "flat.shader")
	require.NoError(t, err)

	program.Bind()
	original := program.Handle()
	require.NotZero(t, original)

	// unchanged file
	assert.False(t, program.ReloadIfChanged())
	assert.Equal(t, original, program.Handle())

	// broken file keeps the old program bound
	fsys["flat.shader"] = &fstest.MapFile{
		Data:    []byte("#shader vertex\n#version 410 core\n#error missing semicolon\nvoid main() {}\n#shader fragment\nvoid main() {}\n"),
		ModTime: start.Add(time.Second),
	}

	assert.False(t, program.ReloadIfChanged())
	assert.Equal(t, original, program.Handle())
	assert.Equal(t, original, dev.State().Program)
	assert.Contains(t, logs.String(), "keeping previous program")
	assert.Contains(t, logs.String(), "missing semicolon")

	// a failed attempt is not retried until the file changes again
	assert.False(t, program.ReloadIfChanged())

	// fixed file is picked up and bound
	fsys["flat.shader"] = &fstest.MapFile{Data: []byte(flatShader), ModTime: start.Add(2 * time.Second)}

	assert.True(t, program.ReloadIfChanged())
	assert.NotEqual(t, original, program.Handle())
	assert.Equal(t, program.Handle(), dev.State().Program)
	assert.Equal(t, 1, dev.DeleteCount(uint32(original)))
}

func TestProgramUniforms(t *testing.T) {
	fsys := fstest.MapFS{"flat.shader": &fstest.MapFile{Data: []byte(flatShader)}}

	dev := software.NewDevice(32, 32)
	program, err := pulse.LoadProgram(dev, fsys, "flat.shader")
	require.NoError(t, err)

	program.Bind()
	program.SetUniformColor("materialColor", pulse.ColorLinearRGBA(1, 0, 0, 1))
	program.SetUniformFloat("doesNotExist", 1)

	value, ok := dev.UniformValue(program.Handle(), "materialColor")
	require.True(t, ok)
	assert.Equal(t, pulse.ColorLinearRGBA(1, 0, 0, 1).ToVec(), value)

	assert.True(t, program.HasUniform("viewMatrix"))
	assert.False(t, program.HasUniform("doesNotExist"))
}

func TestProgramSetDefines(t *testing.T) {
	fsys := fstest.MapFS{"flat.shader": &fstest.MapFile{Data: []byte(flatShader)}}

	dev := software.NewDevice(32, 32)
	program, err := pulse.LoadProgram(dev, fsys, "flat.shader")
	require.NoError(t, err)

	original := program.Handle()
	require.NoError(t, program.SetDefines(map[string]string{"USE_LIGHT": "1"}))
	assert.NotEqual(t, original, program.Handle())
	assert.Equal(t, 1, dev.LivePrograms())

	// the file breaks without a newer modification time
	fsys["flat.shader"] = &fstest.MapFile{Data: []byte("#shader vertex\nvoid main() {}\n#shader fragment\n#error broken\nvoid main() {}\n")}

	current := program.Handle()
	require.ErrorIs(t, program.SetDefines(nil), pulse.ErrShaderCompile)
	assert.Equal(t, current, program.Handle())
}

func TestProgramCacheSharesAndReleases(t *testing.T) {
	fsys := fstest.MapFS{
		"a.shader": &fstest.MapFile{Data: []byte(flatShader)},
		"b.shader": &fstest.MapFile{Data: []byte(flatShader)},
	}

	dev := software.NewDevice(32, 32)
	cache := pulse.NewProgramCache(dev, fsys, 1)

	a1, err := cache.Get("a.shader")
	require.NoError(t, err)

	a2, err := cache.Get("a.shader")
	require.NoError(t, err)
	assert.Same(t, a1, a2)
	assert.Equal(t, 1, dev.LivePrograms())

	logs := captureLogs(t)

	// evicts a.shader
	_, err = cache.Get("b.shader")
	require.NoError(t, err)
	assert.Equal(t, 1, dev.LivePrograms())
	assert.Zero(t, a1.Handle())
	assert.Contains(t, logs.String(), "Releasing evicted program")
	assert.Contains(t, logs.String(), "a.shader")

	// a borrower fetching again gets a freshly linked program
	a3, err := cache.Get("a.shader")
	require.NoError(t, err)
	assert.NotSame(t, a1, a3)
	assert.NotZero(t, a3.Handle())
	assert.Zero(t, a1.Handle())

	cache.Purge()
	assert.Equal(t, 0, dev.LivePrograms())

	_, err = cache.Get("missing.shader")
	require.Error(t, err)
}
