package stereo

import (
	"math"

	"github.com/oliverbestmann/stereorizer/glm"
	"github.com/oliverbestmann/stereorizer/pulse"
)

var worldUp = glm.Vec3f{0, 1, 0}

// Camera is a free fly camera described by position, yaw and pitch. When
// driven by a head mounted display, view and projection are supplied
// externally through SetPose and replace the derived matrices.
type Camera struct {
	Position glm.Vec3f

	// Yaw and Pitch in degrees. A yaw of -90 looks down the negative z axis.
	Yaw   float32
	Pitch float32

	// vertical field of view in degrees
	Fov    float32
	Aspect float32
	Near   float32
	Far    float32

	override   bool
	view       glm.Mat4f
	projection glm.Mat4f
}

func NewCamera(position glm.Vec3f) *Camera {
	return &Camera{
		Position: position,
		Yaw:      -90,
		Fov:      45,
		Aspect:   4.0 / 3.0,
		Near:     0.1,
		Far:      100,
	}
}

func (c *Camera) Front() glm.Vec3f {
	sinYaw, cosYaw := glm.Sincos(glm.DegToRad(c.Yaw))
	sinPitch, cosPitch := glm.Sincos(glm.DegToRad(c.Pitch))

	return glm.Vec3f{
		cosYaw * cosPitch,
		sinPitch,
		sinYaw * cosPitch,
	}.Normalize()
}

func (c *Camera) Right() glm.Vec3f {
	return c.Front().Cross(worldUp).Normalize()
}

func (c *Camera) Up() glm.Vec3f {
	return c.Right().Cross(c.Front()).Normalize()
}

// SetPitch sets the pitch clamped to avoid flipping over the poles.
func (c *Camera) SetPitch(pitch float32) {
	c.Pitch = min(max(pitch, -89), 89)
}

// Rotate adds the given deltas in degrees to yaw and pitch.
func (c *Camera) Rotate(yaw, pitch float32) {
	c.Yaw += yaw
	c.SetPitch(c.Pitch + pitch)
}

// LookAt orients the camera towards target.
func (c *Camera) LookAt(target glm.Vec3f) {
	direction := target.Sub(c.Position).Normalize()
	if direction == (glm.Vec3f{}) {
		return
	}

	c.Yaw = glm.RadToDeg[float32](glm.Rad(math.Atan2(float64(direction[2]), float64(direction[0]))))
	c.SetPitch(glm.RadToDeg[float32](glm.Rad(math.Asin(float64(direction[1])))))
}

// SetPose replaces the derived matrices with externally supplied ones.
func (c *Camera) SetPose(view, projection glm.Mat4f) {
	c.override = true
	c.view = view
	c.projection = projection
}

// ClearPose returns to matrices derived from position and orientation.
func (c *Camera) ClearPose() {
	c.override = false
}

func (c *Camera) HasPose() bool {
	return c.override
}

// ViewMatrix is the inverse of the world transform of the camera.
func (c *Camera) ViewMatrix() glm.Mat4f {
	if c.override {
		return c.view
	}

	return glm.LookAt(c.Position, c.Position.Add(c.Front()), worldUp)
}

func (c *Camera) ProjectionMatrix() glm.Mat4f {
	if c.override {
		return c.projection
	}

	return glm.Perspective(glm.DegToRad(c.Fov), c.Aspect, c.Near, c.Far)
}

// Upload sets the camera matrices on the bound program.
func (c *Camera) Upload(p *pulse.Program) {
	p.SetUniformMat4("viewMatrix", c.ViewMatrix())
	p.SetUniformMat4("projectionMatrix", c.ProjectionMatrix())
	p.SetUniformVec3("cameraPosition", c.Position)
}

// UploadAsSource sets the matrices used to sample a captured eye.
func (c *Camera) UploadAsSource(p *pulse.Program) {
	p.SetUniformMat4("sourceView", c.ViewMatrix())
	p.SetUniformMat4("sourceProjection", c.ProjectionMatrix())
}
