package orion

import (
	"time"

	"github.com/oliverbestmann/stereorizer/glimpse"
	"github.com/oliverbestmann/stereorizer/stereo"
)

// FreeFly moves a camera from keyboard and mouse input. WASD moves in the
// view plane, Q and E move down and up, dragging with the right mouse
// button turns the camera.
type FreeFly struct {
	// units per second
	Speed float32

	// degrees per pixel of mouse movement
	Sensitivity float32
}

func DefaultFreeFly() FreeFly {
	return FreeFly{Speed: 2.5, Sensitivity: 0.1}
}

func (f FreeFly) Apply(camera *stereo.Camera, input glimpse.InputState, dt time.Duration) {
	step := f.Speed * float32(dt.Seconds())

	front := camera.Front()
	right := camera.Right()
	up := camera.Up()

	if input.Keys.IsPressed(glimpse.KeyW) {
		camera.Position = camera.Position.Add(front.MulScalar(step))
	}

	if input.Keys.IsPressed(glimpse.KeyS) {
		camera.Position = camera.Position.Sub(front.MulScalar(step))
	}

	if input.Keys.IsPressed(glimpse.KeyD) {
		camera.Position = camera.Position.Add(right.MulScalar(step))
	}

	if input.Keys.IsPressed(glimpse.KeyA) {
		camera.Position = camera.Position.Sub(right.MulScalar(step))
	}

	if input.Keys.IsPressed(glimpse.KeyE) {
		camera.Position = camera.Position.Add(up.MulScalar(step))
	}

	if input.Keys.IsPressed(glimpse.KeyQ) {
		camera.Position = camera.Position.Sub(up.MulScalar(step))
	}

	if input.Mouse.IsPressed(glimpse.MouseButtonRight) {
		// screen y grows downwards
		camera.Rotate(input.Mouse.DeltaX*f.Sensitivity, -input.Mouse.DeltaY*f.Sensitivity)
	}
}
