package pulse

import (
	"errors"
	"time"

	"github.com/oliverbestmann/stereorizer/glm"
)

var ErrFramebufferIncomplete = errors.New("framebuffer incomplete")
var ErrWaitTimeout = errors.New("wait for sync timed out")

// Handles name graphics objects living inside a Device. The zero value never
// names a live object, except for FramebufferHandle where zero is the
// default framebuffer of the window.
type TextureHandle uint32
type FramebufferHandle uint32
type ProgramHandle uint32
type VertexArrayHandle uint32
type FenceHandle uintptr

// UniformLocation is -1 for uniforms the program does not declare.
type UniformLocation int32

type TextureFormat uint8

const (
	FormatRGBA8 TextureFormat = iota + 1
	FormatSRGB8Alpha8
	FormatDepth32F
)

func (f TextureFormat) IsDepth() bool {
	return f == FormatDepth32F
}

type Attachment uint8

const (
	AttachmentColor Attachment = iota
	AttachmentDepth
)

// Vertex is the vertex layout shared by every mesh: position at attribute
// location 0 and normal at location 1.
type Vertex struct {
	Position glm.Vec3f
	Normal   glm.Vec3f
}

// Device is the subset of a stateful OpenGL style graphics api the renderer
// is built on. All methods must be called from the thread owning the context.
// Bind style calls affect global state exactly like their OpenGL counterparts.
type Device interface {
	CreateTexture(format TextureFormat, width, height uint32) (TextureHandle, error)
	DeleteTexture(tex TextureHandle)
	IsTexture(tex TextureHandle) bool
	ActiveTexture(unit uint32)
	// BindTexture binds the texture to the active texture unit.
	BindTexture(tex TextureHandle)

	CreateFramebuffer() (FramebufferHandle, error)
	DeleteFramebuffer(fb FramebufferHandle)
	BindFramebuffer(fb FramebufferHandle)
	// FramebufferTexture attaches tex to the currently bound framebuffer.
	FramebufferTexture(attachment Attachment, tex TextureHandle)
	// CheckFramebuffer validates the currently bound framebuffer.
	CheckFramebuffer() error
	BlitFramebuffer(src, dst FramebufferHandle, srcRect, dstRect Rectangle2u)
	// ReadPixels reads RGBA8 pixels from the color attachment of the bound framebuffer.
	ReadPixels(rect Rectangle2u, pixels []byte)

	Viewport(rect Rectangle2u)
	Clear(color Color, depth bool)
	SetDepthTest(enabled bool)

	CompileProgram(vertexSource, fragmentSource string) (ProgramHandle, error)
	DeleteProgram(program ProgramHandle)
	UseProgram(program ProgramHandle)
	UniformLocation(program ProgramHandle, name string) UniformLocation

	// Uniform upload targets the program currently in use.
	Uniform1i(loc UniformLocation, value int32)
	Uniform1f(loc UniformLocation, value float32)
	Uniform3f(loc UniformLocation, value glm.Vec3f)
	Uniform4f(loc UniformLocation, value glm.Vec4f)
	UniformMatrix4f(loc UniformLocation, value glm.Mat4f)

	CreateVertexArray(vertices []Vertex, indices []uint32) (VertexArrayHandle, error)
	DeleteVertexArray(vao VertexArrayHandle)
	BindVertexArray(vao VertexArrayHandle)
	// DrawTriangles draws count vertices of the bound vertex array,
	// indexed when the vertex array was created with indices.
	DrawTriangles(count int, indexed bool)

	Flush()
	Finish()
	FenceSync() FenceHandle
	// ClientWaitSync blocks until the fence signals. A negative timeout waits forever.
	ClientWaitSync(fence FenceHandle, timeout time.Duration) error
	DeleteSync(fence FenceHandle)

	State() BindingState
}

// BindingState is a snapshot of the global bindings that render passes touch.
type BindingState struct {
	Program       ProgramHandle
	VertexArray   VertexArrayHandle
	ActiveTexture uint32
	Texture       TextureHandle
	Framebuffer   FramebufferHandle
	Viewport      Rectangle2u
	DepthTest     bool
}

// Restore rebinds everything captured in the snapshot.
func (s BindingState) Restore(dev Device) {
	dev.BindFramebuffer(s.Framebuffer)
	dev.Viewport(s.Viewport)
	dev.UseProgram(s.Program)
	dev.BindVertexArray(s.VertexArray)
	dev.ActiveTexture(s.ActiveTexture)
	dev.BindTexture(s.Texture)
	dev.SetDepthTest(s.DepthTest)
}

// WaitFence inserts a fence into the command stream and blocks until the gpu
// has passed it.
func WaitFence(dev Device, timeout time.Duration) error {
	fence := dev.FenceSync()
	defer dev.DeleteSync(fence)

	return dev.ClientWaitSync(fence, timeout)
}
