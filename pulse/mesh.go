package pulse

import (
	"fmt"
)

// Mesh is geometry uploaded into a vertex array. Meshes may be shared by any
// number of models and are released by whoever created them.
type Mesh struct {
	dev     Device
	vao     VertexArrayHandle
	count   int
	indexed bool
}

// NewMesh uploads the vertices. If indices is empty, the vertices are drawn
// as a plain triangle list.
func NewMesh(dev Device, vertices []Vertex, indices []uint32) (*Mesh, error) {
	if len(indices) == 0 && len(vertices)%3 != 0 {
		return nil, fmt.Errorf("vertex count %d is not a multiple of three", len(vertices))
	}

	vao, err := dev.CreateVertexArray(vertices, indices)
	if err != nil {
		return nil, fmt.Errorf("create vertex array: %w", err)
	}

	count := len(vertices)
	if len(indices) > 0 {
		count = len(indices)
	}

	return &Mesh{
		dev:     dev,
		vao:     vao,
		count:   count,
		indexed: len(indices) > 0,
	}, nil
}

// NewFullscreenQuad creates two triangles covering normalized device coordinates.
func NewFullscreenQuad(dev Device) (*Mesh, error) {
	normal := [3]float32{0, 0, 1}

	vertices := []Vertex{
		{Position: [3]float32{-1, -1, 0}, Normal: normal},
		{Position: [3]float32{1, -1, 0}, Normal: normal},
		{Position: [3]float32{1, 1, 0}, Normal: normal},
		{Position: [3]float32{-1, 1, 0}, Normal: normal},
	}

	return NewMesh(dev, vertices, []uint32{0, 1, 2, 0, 2, 3})
}

// Draw binds the vertex array of the mesh and draws it with whatever program is bound.
func (m *Mesh) Draw() {
	m.dev.BindVertexArray(m.vao)
	m.dev.DrawTriangles(m.count, m.indexed)
}

func (m *Mesh) VertexArray() VertexArrayHandle {
	return m.vao
}

func (m *Mesh) Release() {
	if m.vao != 0 {
		m.dev.DeleteVertexArray(m.vao)
		m.vao = 0
	}
}
