package orion

import (
	"testing"
	"time"

	"github.com/oliverbestmann/stereorizer/glimpse"
	"github.com/oliverbestmann/stereorizer/glm"
	"github.com/oliverbestmann/stereorizer/stereo"
	"github.com/stretchr/testify/assert"
)

func TestFreeFly(t *testing.T) {
	fly := DefaultFreeFly()
	camera := stereo.NewCamera(glm.Vec3f{})

	input := glimpse.InputState{
		Keys: glimpse.KeysState{Pressed: map[glimpse.Key]bool{glimpse.KeyD: true, glimpse.KeyE: true}},
	}

	fly.Apply(camera, input, time.Second)

	assert.InDelta(t, 2.5, camera.Position[0], 1e-4)
	assert.InDelta(t, 2.5, camera.Position[1], 1e-4)
	assert.InDelta(t, 0, camera.Position[2], 1e-4)
}

func TestFreeFlyTurnsOnlyWhileDragging(t *testing.T) {
	fly := DefaultFreeFly()
	camera := stereo.NewCamera(glm.Vec3f{})

	input := glimpse.InputState{
		Mouse: glimpse.MouseState{DeltaX: 100, DeltaY: 50},
	}

	fly.Apply(camera, input, frameTime)
	assert.Equal(t, float32(-90), camera.Yaw)

	input.Mouse.Pressed = map[glimpse.MouseButton]bool{glimpse.MouseButtonRight: true}
	fly.Apply(camera, input, frameTime)

	assert.InDelta(t, -80, camera.Yaw, 1e-4)
	assert.InDelta(t, -5, camera.Pitch, 1e-4)
}
