package glimpse

import (
	"log/slog"
	"maps"
)

type MouseButton uint32

const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
)

type KeysState struct {
	// the keys that are currently marked as "pressed"
	Pressed map[Key]bool

	// keys that where just pressed after the last call to nextTick()
	JustPressed map[Key]bool

	// keys that were just released after the last call to nextTick()
	JustReleased map[Key]bool
}

func (k *KeysState) press(key Key) {
	slog.Debug("Key just pressed", slog.String("key", key.String()))

	setTrue(&k.Pressed, key)
	setTrue(&k.JustPressed, key)
}

func (k *KeysState) release(key Key) {
	setFalse(&k.Pressed, key)
	setTrue(&k.JustReleased, key)
}

func (k *KeysState) nextTick() {
	clear(k.JustPressed)
	clear(k.JustReleased)
}

func (k *KeysState) IsPressed(key Key) bool {
	return k.Pressed[key]
}

func (k *KeysState) IsJustPressed(key Key) bool {
	return k.JustPressed[key]
}

type MouseState struct {
	CursorX, CursorY float32

	// cursor movement since the last tick
	DeltaX, DeltaY float32

	Pressed map[MouseButton]bool

	// mouse buttons that were just clicked after the last call to nextTick()
	JustPressed map[MouseButton]bool

	// mouse buttons that were just released after the last call to nextTick()
	JustReleased map[MouseButton]bool

	// no delta is reported for the very first cursor event
	seen bool
}

func (m *MouseState) press(button MouseButton) {
	setTrue(&m.Pressed, button)
	setTrue(&m.JustPressed, button)
}

func (m *MouseState) release(button MouseButton) {
	setFalse(&m.Pressed, button)
	setTrue(&m.JustReleased, button)
}

func (m *MouseState) position(x, y float32) {
	if m.seen {
		m.DeltaX += x - m.CursorX
		m.DeltaY += y - m.CursorY
	}

	m.CursorX = x
	m.CursorY = y
	m.seen = true
}

func (m *MouseState) nextTick() {
	clear(m.JustPressed)
	clear(m.JustReleased)

	m.DeltaX = 0
	m.DeltaY = 0
}

func (m *MouseState) IsPressed(button MouseButton) bool {
	return m.Pressed[button]
}

// InputState is the keyboard and mouse input of one frame.
type InputState struct {
	Keys  KeysState
	Mouse MouseState
}

func (s *InputState) nextTick() {
	s.Keys.nextTick()
	s.Mouse.nextTick()
}

// snapshot copies the state so that later events do not leak into a frame
// that is still being processed.
func (s *InputState) snapshot() InputState {
	copied := *s

	copied.Keys.Pressed = maps.Clone(s.Keys.Pressed)
	copied.Keys.JustPressed = maps.Clone(s.Keys.JustPressed)
	copied.Keys.JustReleased = maps.Clone(s.Keys.JustReleased)

	copied.Mouse.Pressed = maps.Clone(s.Mouse.Pressed)
	copied.Mouse.JustPressed = maps.Clone(s.Mouse.JustPressed)
	copied.Mouse.JustReleased = maps.Clone(s.Mouse.JustReleased)

	return copied
}

func setTrue[K comparable](m *map[K]bool, key K) {
	if *m == nil {
		*m = map[K]bool{}
	}

	(*m)[key] = true
}

func setFalse[K comparable](m *map[K]bool, key K) {
	if *m == nil {
		*m = map[K]bool{}
	}

	(*m)[key] = false
}
