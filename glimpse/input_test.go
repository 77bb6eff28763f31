package glimpse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMouseState_Delta(t *testing.T) {
	var input InputState

	input.Mouse.position(100, 50)
	assert.Zero(t, input.Mouse.DeltaX)
	assert.Zero(t, input.Mouse.DeltaY)

	input.Mouse.position(110, 45)
	input.Mouse.position(115, 40)
	assert.Equal(t, float32(15), input.Mouse.DeltaX)
	assert.Equal(t, float32(-10), input.Mouse.DeltaY)

	input.nextTick()
	assert.Zero(t, input.Mouse.DeltaX)
	assert.Equal(t, float32(115), input.Mouse.CursorX)
}

func TestKeysState_PressRelease(t *testing.T) {
	var input InputState

	input.Keys.press(KeyW)
	assert.True(t, input.Keys.IsPressed(KeyW))
	assert.True(t, input.Keys.IsJustPressed(KeyW))

	input.nextTick()
	assert.True(t, input.Keys.IsPressed(KeyW))
	assert.False(t, input.Keys.IsJustPressed(KeyW))

	input.Keys.release(KeyW)
	assert.False(t, input.Keys.IsPressed(KeyW))
	assert.True(t, input.Keys.JustReleased[KeyW])
}

func TestInputState_SnapshotIsIndependent(t *testing.T) {
	var input InputState
	input.Keys.press(KeyA)

	frame := input.snapshot()

	input.Keys.release(KeyA)
	input.Keys.press(KeyD)

	assert.True(t, frame.Keys.IsPressed(KeyA))
	assert.False(t, frame.Keys.IsPressed(KeyD))
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "Space", KeySpace.String())
	assert.Equal(t, "Unknown", Key(999).String())
}
