// Package scene builds the geometry the stereo renderer draws: procedural
// shapes, noise terrain and meshes loaded from Wavefront OBJ files.
package scene

import (
	"github.com/oliverbestmann/stereorizer/glm"
	"github.com/oliverbestmann/stereorizer/pulse"
)

type Vec = glm.Vec3[float32]

// Geometry is an indexed triangle list kept on the cpu.
type Geometry struct {
	Name     string
	Vertices []pulse.Vertex
	Indices  []uint32
}

// Upload copies the geometry into a vertex array on dev.
func (g Geometry) Upload(dev pulse.Device) (*pulse.Mesh, error) {
	return pulse.NewMesh(dev, g.Vertices, g.Indices)
}

func (g Geometry) TriangleCount() int {
	if len(g.Indices) > 0 {
		return len(g.Indices) / 3
	}

	return len(g.Vertices) / 3
}

// Bounds returns the axis aligned bounding box of all vertices.
func (g Geometry) Bounds() (lo, hi Vec) {
	if len(g.Vertices) == 0 {
		return
	}

	lo = g.Vertices[0].Position
	hi = g.Vertices[0].Position

	for _, vertex := range g.Vertices[1:] {
		for axis := range 3 {
			lo[axis] = min(lo[axis], vertex.Position[axis])
			hi[axis] = max(hi[axis], vertex.Position[axis])
		}
	}

	return
}

func calculateNormal(a, b, c Vec) Vec {
	u := b.Sub(a)
	v := c.Sub(a)
	return u.Cross(v).Normalize()
}

func (g *Geometry) addTriangle(a, b, c Vec) {
	normal := calculateNormal(a, b, c)

	base := uint32(len(g.Vertices))
	g.Vertices = append(g.Vertices,
		pulse.Vertex{Position: a, Normal: normal},
		pulse.Vertex{Position: b, Normal: normal},
		pulse.Vertex{Position: c, Normal: normal},
	)

	g.Indices = append(g.Indices, base, base+1, base+2)
}

// Triangle is a single upright triangle one unit wide, facing +Z.
func Triangle() Geometry {
	var g Geometry
	g.Name = "triangle"
	g.addTriangle(Vec{-0.5, -0.5, 0}, Vec{0.5, -0.5, 0}, Vec{0, 0.5, 0})
	return g
}

// Plane is a square of the given size in the XZ plane facing +Y.
func Plane(size float32) Geometry {
	h := size / 2

	var g Geometry
	g.Name = "plane"
	g.addQuad(Vec{-h, 0, h}, Vec{h, 0, h}, Vec{h, 0, -h}, Vec{-h, 0, -h})
	return g
}

// Cube is an axis aligned cube centered at the origin with flat shaded faces.
func Cube(size float32) Geometry {
	h := size / 2

	corners := [8]Vec{
		{-h, -h, -h}, {h, -h, -h}, {h, h, -h}, {-h, h, -h},
		{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h},
	}

	// counter clockwise seen from outside
	faces := [6][4]int{
		{4, 5, 6, 7}, // +z
		{1, 0, 3, 2}, // -z
		{5, 1, 2, 6}, // +x
		{0, 4, 7, 3}, // -x
		{7, 6, 2, 3}, // +y
		{0, 1, 5, 4}, // -y
	}

	var g Geometry
	g.Name = "cube"

	for _, face := range faces {
		g.addQuad(corners[face[0]], corners[face[1]], corners[face[2]], corners[face[3]])
	}

	return g
}

func (g *Geometry) addQuad(a, b, c, d Vec) {
	normal := calculateNormal(a, b, c)

	base := uint32(len(g.Vertices))
	g.Vertices = append(g.Vertices,
		pulse.Vertex{Position: a, Normal: normal},
		pulse.Vertex{Position: b, Normal: normal},
		pulse.Vertex{Position: c, Normal: normal},
		pulse.Vertex{Position: d, Normal: normal},
	)

	g.Indices = append(g.Indices, base, base+1, base+2, base, base+2, base+3)
}
