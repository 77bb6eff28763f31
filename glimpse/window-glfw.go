package glimpse

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	// glfw event handling must run on the main thread
	runtime.LockOSThread()
}

type glfwWindow struct {
	win   *glfw.Window
	input InputState
}

// NewWindow opens a window with an OpenGL 4.1 core context and makes the
// context current on the calling thread.
func NewWindow(opts Options) (Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("initialize glfw: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLAPI)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err := glfw.CreateWindow(int(opts.Width), int(opts.Height), opts.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}

	window.MakeContextCurrent()

	if opts.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	if opts.CaptureCursor {
		window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		if glfw.RawMouseMotionSupported() {
			window.SetInputMode(glfw.RawMouseMotion, glfw.True)
		}
	}

	w := &glfwWindow{win: window}

	configureInput(window, &w.input)

	fbWidth, fbHeight := window.GetFramebufferSize()
	slog.Info(
		"Window created",
		slog.Int("width", fbWidth),
		slog.Int("height", fbHeight),
	)

	return w, nil
}

func (g *glfwWindow) ShouldClose() bool {
	return g.win.ShouldClose()
}

func (g *glfwWindow) SetShouldClose() {
	g.win.SetShouldClose(true)
}

func (g *glfwWindow) FramebufferSize() (uint32, uint32) {
	width, height := g.win.GetFramebufferSize()
	return uint32(width), uint32(height)
}

func (g *glfwWindow) SetSize(width, height uint32) {
	g.win.SetSize(int(width), int(height))
}

func (g *glfwWindow) PollInput() InputState {
	g.input.nextTick()
	glfw.PollEvents()
	return g.input.snapshot()
}

func (g *glfwWindow) SwapBuffers() {
	g.win.SwapBuffers()
}

func (g *glfwWindow) Time() float64 {
	return glfw.GetTime()
}

func (g *glfwWindow) Terminate() {
	g.win.Destroy()
	glfw.Terminate()
}

func configureInput(window *glfw.Window, input *InputState) {
	window.SetKeyCallback(func(_win *glfw.Window, glfwKey glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Repeat {
			return
		}

		key, ok := keyOf(glfwKey)
		if !ok {
			return
		}

		switch action {
		case glfw.Press:
			input.Keys.press(key)

		case glfw.Release:
			input.Keys.release(key)
		}
	})

	window.SetMouseButtonCallback(func(_win *glfw.Window, btn glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		button := MouseButton(btn)

		switch action {
		case glfw.Press:
			input.Mouse.press(button)
		case glfw.Release:
			input.Mouse.release(button)
		}
	})

	window.SetCursorPosCallback(func(_win *glfw.Window, xpos float64, ypos float64) {
		input.Mouse.position(float32(xpos), float32(ypos))
	})
}

var glfwToKey = map[glfw.Key]Key{
	glfw.KeyW:            KeyW,
	glfw.KeyA:            KeyA,
	glfw.KeyS:            KeyS,
	glfw.KeyD:            KeyD,
	glfw.KeyQ:            KeyQ,
	glfw.KeyE:            KeyE,
	glfw.KeySpace:        KeySpace,
	glfw.KeyLeftShift:    KeyShift,
	glfw.KeyRightShift:   KeyShift,
	glfw.KeyEscape:       KeyEscape,
	glfw.KeyTab:          KeyTab,
	glfw.Key1:            Key1,
	glfw.Key2:            Key2,
	glfw.Key3:            Key3,
	glfw.KeyR:            KeyR,
	glfw.KeyKPAdd:        KeyPlus,
	glfw.KeyEqual:        KeyPlus,
	glfw.KeyKPSubtract:   KeyMinus,
	glfw.KeyMinus:        KeyMinus,
	glfw.KeyLeftControl:  KeyControl,
	glfw.KeyRightControl: KeyControl,
}

func keyOf(glfwKey glfw.Key) (key Key, ok bool) {
	key, ok = glfwToKey[glfwKey]
	if !ok {
		slog.Debug(
			"Unknown key code",
			slog.String("key", glfw.GetKeyName(glfwKey, 0)),
		)
	}

	return
}
