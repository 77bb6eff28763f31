// Package opengl implements pulse.Device on top of an OpenGL 4.1 core context.
package opengl

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/oliverbestmann/stereorizer/glm"
	"github.com/oliverbestmann/stereorizer/pulse"
)

type vertexArray struct {
	vao uint32
	vbo uint32
	ebo uint32
}

// Device issues OpenGL calls on the context current on the calling thread.
type Device struct {
	vertexArrays map[pulse.VertexArrayHandle]vertexArray
}

var _ pulse.Device = (*Device)(nil)

// New loads the OpenGL entry points. A context must be current.
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("load opengl entry points: %w", err)
	}

	slog.Info(
		"OpenGL initialized",
		slog.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		slog.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	return &Device{vertexArrays: map[pulse.VertexArrayHandle]vertexArray{}}, nil
}

func (d *Device) CreateTexture(format pulse.TextureFormat, width, height uint32) (pulse.TextureHandle, error) {
	var internalFormat int32
	var pixelFormat, pixelType uint32

	switch format {
	case pulse.FormatRGBA8:
		internalFormat, pixelFormat, pixelType = gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE
	case pulse.FormatSRGB8Alpha8:
		internalFormat, pixelFormat, pixelType = gl.SRGB8_ALPHA8, gl.RGBA, gl.UNSIGNED_BYTE
	case pulse.FormatDepth32F:
		internalFormat, pixelFormat, pixelType = gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT
	default:
		return 0, fmt.Errorf("unsupported texture format %d", format)
	}

	// drain stale errors so we only report our own
	for gl.GetError() != gl.NO_ERROR {
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internalFormat, int32(width), int32(height), 0, pixelFormat, pixelType, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteTextures(1, &tex)
		return 0, fmt.Errorf("allocate %dx%d texture: gl error 0x%x", width, height, code)
	}

	return pulse.TextureHandle(tex), nil
}

func (d *Device) DeleteTexture(tex pulse.TextureHandle) {
	handle := uint32(tex)
	gl.DeleteTextures(1, &handle)
}

func (d *Device) IsTexture(tex pulse.TextureHandle) bool {
	return tex != 0 && gl.IsTexture(uint32(tex))
}

func (d *Device) ActiveTexture(unit uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
}

func (d *Device) BindTexture(tex pulse.TextureHandle) {
	gl.BindTexture(gl.TEXTURE_2D, uint32(tex))
}

func (d *Device) CreateFramebuffer() (pulse.FramebufferHandle, error) {
	var fb uint32
	gl.GenFramebuffers(1, &fb)
	if fb == 0 {
		return 0, fmt.Errorf("glGenFramebuffers returned no name")
	}

	return pulse.FramebufferHandle(fb), nil
}

func (d *Device) DeleteFramebuffer(fb pulse.FramebufferHandle) {
	handle := uint32(fb)
	gl.DeleteFramebuffers(1, &handle)
}

func (d *Device) BindFramebuffer(fb pulse.FramebufferHandle) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
}

func (d *Device) FramebufferTexture(attachment pulse.Attachment, tex pulse.TextureHandle) {
	target := uint32(gl.COLOR_ATTACHMENT0)
	if attachment == pulse.AttachmentDepth {
		target = gl.DEPTH_ATTACHMENT
	}

	gl.FramebufferTexture2D(gl.FRAMEBUFFER, target, gl.TEXTURE_2D, uint32(tex), 0)
}

func (d *Device) CheckFramebuffer() error {
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	if status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("%w: status 0x%x", pulse.ErrFramebufferIncomplete, status)
	}

	return nil
}

func (d *Device) BlitFramebuffer(src, dst pulse.FramebufferHandle, srcRect, dstRect pulse.Rectangle2u) {
	var prevRead, prevDraw int32
	gl.GetIntegerv(gl.READ_FRAMEBUFFER_BINDING, &prevRead)
	gl.GetIntegerv(gl.DRAW_FRAMEBUFFER_BINDING, &prevDraw)

	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, uint32(src))
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, uint32(dst))

	gl.BlitFramebuffer(
		int32(srcRect.Min[0]), int32(srcRect.Min[1]), int32(srcRect.Max[0]), int32(srcRect.Max[1]),
		int32(dstRect.Min[0]), int32(dstRect.Min[1]), int32(dstRect.Max[0]), int32(dstRect.Max[1]),
		gl.COLOR_BUFFER_BIT, gl.LINEAR,
	)

	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, uint32(prevRead))
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, uint32(prevDraw))
}

func (d *Device) ReadPixels(rect pulse.Rectangle2u, pixels []byte) {
	x, y, w, h := rect.XYWH()
	if len(pixels) < int(w*h*4) {
		return
	}

	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(int32(x), int32(y), int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&pixels[0]))
}

func (d *Device) Viewport(rect pulse.Rectangle2u) {
	x, y, w, h := rect.XYWH()
	gl.Viewport(int32(x), int32(y), int32(w), int32(h))
}

func (d *Device) Clear(color pulse.Color, depth bool) {
	r, g, b, a := color.Components()
	gl.ClearColor(r, g, b, a)

	mask := uint32(gl.COLOR_BUFFER_BIT)
	if depth {
		gl.ClearDepth(1)
		mask |= gl.DEPTH_BUFFER_BIT
	}

	gl.Clear(mask)
}

func (d *Device) SetDepthTest(enabled bool) {
	if enabled {
		gl.Enable(gl.DEPTH_TEST)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
}

func (d *Device) CompileProgram(vertexSource, fragmentSource string) (pulse.ProgramHandle, error) {
	vertex, err := compileShader(gl.VERTEX_SHADER, vertexSource)
	if err != nil {
		return 0, fmt.Errorf("%w: vertex shader: %s", pulse.ErrShaderCompile, err)
	}

	defer gl.DeleteShader(vertex)

	fragment, err := compileShader(gl.FRAGMENT_SHADER, fragmentSource)
	if err != nil {
		return 0, fmt.Errorf("%w: fragment shader: %s", pulse.ErrShaderCompile, err)
	}

	defer gl.DeleteShader(fragment)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertex)
	gl.AttachShader(program, fragment)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var length int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &length)

		diagnostic := strings.Repeat("\x00", int(length+1))
		gl.GetProgramInfoLog(program, length, nil, gl.Str(diagnostic))
		gl.DeleteProgram(program)

		return 0, fmt.Errorf("%w: link: %s", pulse.ErrShaderCompile, strings.TrimRight(diagnostic, "\x00\n"))
	}

	return pulse.ProgramHandle(program), nil
}

func compileShader(shaderType uint32, source string) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	sources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, sources, nil)
	free()

	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var length int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &length)

		diagnostic := strings.Repeat("\x00", int(length+1))
		gl.GetShaderInfoLog(shader, length, nil, gl.Str(diagnostic))
		gl.DeleteShader(shader)

		return 0, fmt.Errorf("%s", strings.TrimRight(diagnostic, "\x00\n"))
	}

	return shader, nil
}

func (d *Device) DeleteProgram(program pulse.ProgramHandle) {
	gl.DeleteProgram(uint32(program))
}

func (d *Device) UseProgram(program pulse.ProgramHandle) {
	gl.UseProgram(uint32(program))
}

func (d *Device) UniformLocation(program pulse.ProgramHandle, name string) pulse.UniformLocation {
	return pulse.UniformLocation(gl.GetUniformLocation(uint32(program), gl.Str(name+"\x00")))
}

func (d *Device) Uniform1i(loc pulse.UniformLocation, value int32) {
	gl.Uniform1i(int32(loc), value)
}

func (d *Device) Uniform1f(loc pulse.UniformLocation, value float32) {
	gl.Uniform1f(int32(loc), value)
}

func (d *Device) Uniform3f(loc pulse.UniformLocation, value glm.Vec3f) {
	gl.Uniform3f(int32(loc), value[0], value[1], value[2])
}

func (d *Device) Uniform4f(loc pulse.UniformLocation, value glm.Vec4f) {
	gl.Uniform4f(int32(loc), value[0], value[1], value[2], value[3])
}

func (d *Device) UniformMatrix4f(loc pulse.UniformLocation, value glm.Mat4f) {
	gl.UniformMatrix4fv(int32(loc), 1, false, &value[0])
}

func (d *Device) CreateVertexArray(vertices []pulse.Vertex, indices []uint32) (pulse.VertexArrayHandle, error) {
	if len(vertices) == 0 {
		return 0, fmt.Errorf("no vertices")
	}

	var va vertexArray

	gl.GenVertexArrays(1, &va.vao)
	gl.BindVertexArray(va.vao)

	gl.GenBuffers(1, &va.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, va.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*int(unsafe.Sizeof(pulse.Vertex{})), unsafe.Pointer(&vertices[0]), gl.STATIC_DRAW)

	stride := int32(unsafe.Sizeof(pulse.Vertex{}))
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, unsafe.Offsetof(pulse.Vertex{}.Position))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, unsafe.Offsetof(pulse.Vertex{}.Normal))
	gl.EnableVertexAttribArray(1)

	if len(indices) > 0 {
		gl.GenBuffers(1, &va.ebo)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, va.ebo)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, unsafe.Pointer(&indices[0]), gl.STATIC_DRAW)
	}

	gl.BindVertexArray(0)

	handle := pulse.VertexArrayHandle(va.vao)
	d.vertexArrays[handle] = va

	return handle, nil
}

func (d *Device) DeleteVertexArray(vao pulse.VertexArrayHandle) {
	va, ok := d.vertexArrays[vao]
	if !ok {
		return
	}

	delete(d.vertexArrays, vao)

	gl.DeleteVertexArrays(1, &va.vao)
	gl.DeleteBuffers(1, &va.vbo)

	if va.ebo != 0 {
		gl.DeleteBuffers(1, &va.ebo)
	}
}

func (d *Device) BindVertexArray(vao pulse.VertexArrayHandle) {
	gl.BindVertexArray(uint32(vao))
}

func (d *Device) DrawTriangles(count int, indexed bool) {
	if indexed {
		gl.DrawElements(gl.TRIANGLES, int32(count), gl.UNSIGNED_INT, nil)
	} else {
		gl.DrawArrays(gl.TRIANGLES, 0, int32(count))
	}
}

func (d *Device) Flush() {
	gl.Flush()
}

func (d *Device) Finish() {
	gl.Finish()
}

func (d *Device) FenceSync() pulse.FenceHandle {
	return pulse.FenceHandle(gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0))
}

func (d *Device) ClientWaitSync(fence pulse.FenceHandle, timeout time.Duration) error {
	nanos := uint64(gl.TIMEOUT_IGNORED)
	if timeout >= 0 {
		nanos = uint64(timeout.Nanoseconds())
	}

	switch gl.ClientWaitSync(uintptr(fence), gl.SYNC_FLUSH_COMMANDS_BIT, nanos) {
	case gl.ALREADY_SIGNALED, gl.CONDITION_SATISFIED:
		return nil
	case gl.TIMEOUT_EXPIRED:
		return pulse.ErrWaitTimeout
	default:
		return fmt.Errorf("glClientWaitSync failed: 0x%x", gl.GetError())
	}
}

func (d *Device) DeleteSync(fence pulse.FenceHandle) {
	gl.DeleteSync(uintptr(fence))
}

func (d *Device) State() pulse.BindingState {
	var program, vao, activeTexture, texture, framebuffer int32
	gl.GetIntegerv(gl.CURRENT_PROGRAM, &program)
	gl.GetIntegerv(gl.VERTEX_ARRAY_BINDING, &vao)
	gl.GetIntegerv(gl.ACTIVE_TEXTURE, &activeTexture)
	gl.GetIntegerv(gl.TEXTURE_BINDING_2D, &texture)
	gl.GetIntegerv(gl.FRAMEBUFFER_BINDING, &framebuffer)

	var viewport [4]int32
	gl.GetIntegerv(gl.VIEWPORT, &viewport[0])

	return pulse.BindingState{
		Program:       pulse.ProgramHandle(program),
		VertexArray:   pulse.VertexArrayHandle(vao),
		ActiveTexture: uint32(activeTexture) - gl.TEXTURE0,
		Texture:       pulse.TextureHandle(texture),
		Framebuffer:   pulse.FramebufferHandle(framebuffer),
		Viewport: pulse.RectangleFromXYWH(
			uint32(viewport[0]), uint32(viewport[1]),
			uint32(viewport[2]), uint32(viewport[3]),
		),
		DepthTest: gl.IsEnabled(gl.DEPTH_TEST),
	}
}
