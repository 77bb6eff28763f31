package pulse

import (
	"github.com/oliverbestmann/stereorizer/glm"
)

// Model places a shared mesh into the scene and draws it with a shared program.
type Model struct {
	Mesh    *Mesh
	Program *Program

	Transform glm.Mat4f
	Color     Color
}

func NewModel(mesh *Mesh, program *Program) *Model {
	return &Model{
		Mesh:      mesh,
		Program:   program,
		Transform: glm.IdentityMat4[float32](),
		Color:     ColorWhite,
	}
}

func (m *Model) Translate(x, y, z float32) {
	m.Transform = m.Transform.Translate(x, y, z)
}

func (m *Model) Scale(x, y, z float32) {
	m.Transform = m.Transform.Scale(x, y, z)
}

func (m *Model) Rotate(axis glm.Vec3f, angle glm.Rad) {
	m.Transform = m.Transform.Mul(glm.QuaternionFromAxisAngle(axis, angle).Mat4())
}

// UploadUniforms sets the per model uniforms on the bound program p.
func (m *Model) UploadUniforms(p *Program) {
	p.SetUniformMat4("modelMatrix", m.Transform)
	p.SetUniformColor("materialColor", m.Color)
}
