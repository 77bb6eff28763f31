package glimpse

// Window owns the native window and the OpenGL context the renderer draws
// into. All methods must be called from the main thread.
type Window interface {
	// FramebufferSize returns the size of the default framebuffer in pixels.
	FramebufferSize() (uint32, uint32)
	SetSize(width, height uint32)

	ShouldClose() bool
	SetShouldClose()

	// PollInput processes pending window events and returns the input
	// collected since the previous call.
	PollInput() InputState
	SwapBuffers()

	// Time returns the seconds since the window was created.
	Time() float64

	Terminate()
}

type Options struct {
	Width, Height uint32
	Title         string

	// VSync waits for the vertical blank on SwapBuffers.
	VSync bool

	// CaptureCursor hides the cursor and reports unbounded mouse movement.
	CaptureCursor bool
}
