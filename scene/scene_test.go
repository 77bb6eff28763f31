package scene

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/oliverbestmann/stereorizer/pulse/software"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCube_NormalsPointOutwards(t *testing.T) {
	cube := Cube(2)

	assert.Equal(t, 12, cube.TriangleCount())
	assert.Len(t, cube.Vertices, 24)

	for _, vertex := range cube.Vertices {
		// the face normal points the same way as the corner
		assert.Greater(t, vertex.Normal.Dot(vertex.Position), float32(0))
	}

	lo, hi := cube.Bounds()
	assert.Equal(t, Vec{-1, -1, -1}, lo)
	assert.Equal(t, Vec{1, 1, 1}, hi)
}

func TestPlane_FacesUp(t *testing.T) {
	plane := Plane(10)

	assert.Equal(t, 2, plane.TriangleCount())
	for _, vertex := range plane.Vertices {
		assert.Equal(t, Vec{0, 1, 0}, vertex.Normal)
	}
}

func TestTriangle_FacesViewer(t *testing.T) {
	tri := Triangle()
	assert.Equal(t, Vec{0, 0, 1}, tri.Vertices[0].Normal)
}

func TestTerrain(t *testing.T) {
	opts := DefaultTerrainOptions()
	opts.Resolution = 8

	terrain := Terrain(opts)

	assert.Len(t, terrain.Vertices, 9*9)
	assert.Equal(t, 8*8*2, terrain.TriangleCount())

	lo, hi := terrain.Bounds()
	assert.InDelta(t, -opts.Size/2, lo[0], 1e-4)
	assert.InDelta(t, opts.Size/2, hi[2], 1e-4)
	assert.LessOrEqual(t, hi[1], opts.Height)

	for _, vertex := range terrain.Vertices {
		assert.Greater(t, vertex.Normal[1], float32(0))
		assert.InDelta(t, 1, vertex.Normal.Length(), 1e-4)
	}

	// same options produce the same landscape
	assert.Equal(t, terrain, Terrain(opts))
}

const quadOBJ = `
# a quad and a triangle
o quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vn 0 0 2
f 1//1 2//1 3//1 4//1

o tri
v 0 0 1
v 1 0 1
v 0 1 1
f -3 -2 -1
`

func TestLoadOBJ(t *testing.T) {
	geometries, err := LoadOBJ(strings.NewReader(quadOBJ))
	require.NoError(t, err)
	require.Len(t, geometries, 2)

	quad := geometries[0]
	assert.Equal(t, "quad", quad.Name)
	assert.Equal(t, 2, quad.TriangleCount())

	// normals are normalized on load
	assert.Equal(t, Vec{0, 0, 1}, quad.Vertices[0].Normal)

	tri := geometries[1]
	assert.Equal(t, "tri", tri.Name)
	assert.Equal(t, 1, tri.TriangleCount())
	assert.Equal(t, Vec{0, 0, 1}, tri.Vertices[0].Position)
	assert.Equal(t, Vec{0, 0, 1}, tri.Vertices[0].Normal)
}

func TestLoadOBJ_Errors(t *testing.T) {
	cases := map[string]string{
		"short vertex":    "v 1 2\n",
		"bad coordinate":  "v 1 x 3\n",
		"index too large": "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 4\n",
		"too few corners": "v 0 0 0\nv 1 0 0\nf 1 2\n",
		"missing normal":  "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1//1 2//1 3//1\n",
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadOBJ(strings.NewReader(doc))
			require.ErrorIs(t, err, ErrInvalidOBJ)
		})
	}
}

func TestLoadOBJFile_Upload(t *testing.T) {
	fsys := fstest.MapFS{"models/quad.obj": {Data: []byte(quadOBJ)}}

	geometries, err := LoadOBJFile(fsys, "models/quad.obj")
	require.NoError(t, err)

	dev := software.NewDevice(16, 16)

	mesh, err := geometries[0].Upload(dev)
	require.NoError(t, err)

	assert.NotZero(t, mesh.VertexArray())
	mesh.Release()
}

func TestDemo(t *testing.T) {
	dev := software.NewDevice(16, 16)

	models, err := Demo(dev, nil)
	require.NoError(t, err)

	// terrain, five cubes and the pyramid
	require.Len(t, models, 7)

	for _, model := range models {
		assert.NotZero(t, model.Mesh.VertexArray())
	}
}
