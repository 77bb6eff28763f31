// Package software implements pulse.Device on the cpu. It rasterizes
// triangles with a depth test and emulates the programs of the stereo
// renderer, selected by the uniforms a program declares. It keeps track of
// every resource it hands out which makes it the device of choice for tests
// and headless rendering.
package software

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oliverbestmann/stereorizer/glm"
	"github.com/oliverbestmann/stereorizer/pulse"
)

const MaxTextureSize = 16384

var ErrUnknownFence = errors.New("unknown fence")

type texture struct {
	format pulse.TextureFormat
	width  int
	height int

	// rows are stored bottom up
	color []uint8
	depth []float32
}

type framebuffer struct {
	color pulse.TextureHandle
	depth pulse.TextureHandle
}

type vertexArray struct {
	vertices []pulse.Vertex
	indices  []uint32
}

// Stats counts calls into the device since it was created.
type Stats struct {
	TexturesCreated     int
	TexturesDeleted     int
	FramebuffersCreated int
	FramebuffersDeleted int
	ProgramsCreated     int
	ProgramsDeleted     int
	DrawCalls           int
	Clears              int
	Blits               int
	Flushes             int
	Finishes            int
	FenceWaits          int
}

type Device struct {
	nextHandle uint32

	textures     map[pulse.TextureHandle]*texture
	framebuffers map[pulse.FramebufferHandle]*framebuffer
	programs     map[pulse.ProgramHandle]*program
	vertexArrays map[pulse.VertexArrayHandle]*vertexArray
	fences       map[pulse.FenceHandle]struct{}

	// number of delete calls per handle, shared by all object kinds
	deletes map[uint32]int

	screen      *texture
	screenDepth *texture

	state pulse.BindingState
	units map[uint32]pulse.TextureHandle

	stats Stats

	// IncompleteFramebuffers makes every framebuffer fail validation while set.
	IncompleteFramebuffers bool

	// FailTextureFormat makes the creation of textures with this format fail.
	FailTextureFormat pulse.TextureFormat
}

var _ pulse.Device = (*Device)(nil)

// NewDevice creates a device with a default framebuffer of the given size.
func NewDevice(width, height uint32) *Device {
	dev := &Device{
		textures:     map[pulse.TextureHandle]*texture{},
		framebuffers: map[pulse.FramebufferHandle]*framebuffer{},
		programs:     map[pulse.ProgramHandle]*program{},
		vertexArrays: map[pulse.VertexArrayHandle]*vertexArray{},
		fences:       map[pulse.FenceHandle]struct{}{},
		deletes:      map[uint32]int{},
		units:        map[uint32]pulse.TextureHandle{},
	}

	dev.ResizeScreen(width, height)

	return dev
}

// ResizeScreen reallocates the default framebuffer, like a window resize would.
func (d *Device) ResizeScreen(width, height uint32) {
	d.screen = newTexture(pulse.FormatRGBA8, int(width), int(height))
	d.screenDepth = newTexture(pulse.FormatDepth32F, int(width), int(height))
	d.state.Viewport = pulse.RectangleFromXYWH(0, 0, width, height)
}

func newTexture(format pulse.TextureFormat, width, height int) *texture {
	tex := &texture{format: format, width: width, height: height}

	if format.IsDepth() {
		tex.depth = make([]float32, width*height)
		for idx := range tex.depth {
			tex.depth[idx] = 1
		}
	} else {
		tex.color = make([]uint8, width*height*4)
	}

	return tex
}

func (d *Device) handle() uint32 {
	d.nextHandle++
	return d.nextHandle
}

func (d *Device) Stats() Stats {
	return d.stats
}

// DeleteCount returns how often the object with the given handle was deleted.
func (d *Device) DeleteCount(handle uint32) int {
	return d.deletes[handle]
}

func (d *Device) LiveTextures() int {
	return len(d.textures)
}

func (d *Device) LiveFramebuffers() int {
	return len(d.framebuffers)
}

func (d *Device) LivePrograms() int {
	return len(d.programs)
}

func (d *Device) TextureSize(tex pulse.TextureHandle) (width, height uint32, ok bool) {
	t, ok := d.textures[tex]
	if !ok {
		return 0, 0, false
	}

	return uint32(t.width), uint32(t.height), true
}

func (d *Device) CreateTexture(format pulse.TextureFormat, width, height uint32) (pulse.TextureHandle, error) {
	if format == d.FailTextureFormat {
		return 0, errors.New("out of memory")
	}

	if width == 0 || height == 0 || width > MaxTextureSize || height > MaxTextureSize {
		return 0, fmt.Errorf("invalid texture size %dx%d", width, height)
	}

	tex := pulse.TextureHandle(d.handle())
	d.textures[tex] = newTexture(format, int(width), int(height))
	d.stats.TexturesCreated++

	return tex, nil
}

func (d *Device) DeleteTexture(tex pulse.TextureHandle) {
	d.deletes[uint32(tex)]++

	if _, ok := d.textures[tex]; !ok {
		return
	}

	delete(d.textures, tex)
	d.stats.TexturesDeleted++

	for unit, bound := range d.units {
		if bound == tex {
			d.units[unit] = 0
		}
	}

	for _, fb := range d.framebuffers {
		if fb.color == tex {
			fb.color = 0
		}
		if fb.depth == tex {
			fb.depth = 0
		}
	}
}

func (d *Device) IsTexture(tex pulse.TextureHandle) bool {
	_, ok := d.textures[tex]
	return ok
}

func (d *Device) ActiveTexture(unit uint32) {
	d.state.ActiveTexture = unit
}

func (d *Device) BindTexture(tex pulse.TextureHandle) {
	d.units[d.state.ActiveTexture] = tex
}

func (d *Device) CreateFramebuffer() (pulse.FramebufferHandle, error) {
	fb := pulse.FramebufferHandle(d.handle())
	d.framebuffers[fb] = &framebuffer{}
	d.stats.FramebuffersCreated++

	return fb, nil
}

func (d *Device) DeleteFramebuffer(fb pulse.FramebufferHandle) {
	d.deletes[uint32(fb)]++

	if _, ok := d.framebuffers[fb]; !ok {
		return
	}

	delete(d.framebuffers, fb)
	d.stats.FramebuffersDeleted++

	if d.state.Framebuffer == fb {
		d.state.Framebuffer = 0
	}
}

func (d *Device) BindFramebuffer(fb pulse.FramebufferHandle) {
	d.state.Framebuffer = fb
}

func (d *Device) FramebufferTexture(attachment pulse.Attachment, tex pulse.TextureHandle) {
	fb, ok := d.framebuffers[d.state.Framebuffer]
	if !ok {
		return
	}

	switch attachment {
	case pulse.AttachmentColor:
		fb.color = tex
	case pulse.AttachmentDepth:
		fb.depth = tex
	}
}

func (d *Device) CheckFramebuffer() error {
	if d.state.Framebuffer == 0 {
		return nil
	}

	if d.IncompleteFramebuffers {
		return pulse.ErrFramebufferIncomplete
	}

	fb, ok := d.framebuffers[d.state.Framebuffer]
	if !ok {
		return fmt.Errorf("%w: unknown framebuffer", pulse.ErrFramebufferIncomplete)
	}

	color, ok := d.textures[fb.color]
	if !ok || color.format.IsDepth() {
		return fmt.Errorf("%w: missing color attachment", pulse.ErrFramebufferIncomplete)
	}

	if fb.depth != 0 {
		depth, ok := d.textures[fb.depth]
		if !ok || !depth.format.IsDepth() {
			return fmt.Errorf("%w: invalid depth attachment", pulse.ErrFramebufferIncomplete)
		}

		if depth.width != color.width || depth.height != color.height {
			return fmt.Errorf("%w: attachment sizes differ", pulse.ErrFramebufferIncomplete)
		}
	}

	return nil
}

// attachments resolves the color and depth buffers of a framebuffer.
func (d *Device) attachments(fb pulse.FramebufferHandle) (color, depth *texture) {
	if fb == 0 {
		return d.screen, d.screenDepth
	}

	target, ok := d.framebuffers[fb]
	if !ok {
		return nil, nil
	}

	return d.textures[target.color], d.textures[target.depth]
}

func (d *Device) BlitFramebuffer(src, dst pulse.FramebufferHandle, srcRect, dstRect pulse.Rectangle2u) {
	d.stats.Blits++

	from, _ := d.attachments(src)
	to, _ := d.attachments(dst)
	if from == nil || to == nil || dstRect.Empty() || srcRect.Empty() {
		return
	}

	for y := dstRect.Min[1]; y < dstRect.Max[1]; y++ {
		sy := srcRect.Min[1] + (y-dstRect.Min[1])*srcRect.Height()/dstRect.Height()

		for x := dstRect.Min[0]; x < dstRect.Max[0]; x++ {
			sx := srcRect.Min[0] + (x-dstRect.Min[0])*srcRect.Width()/dstRect.Width()

			rgba, ok := from.load(int(sx), int(sy))
			if ok {
				to.store(int(x), int(y), rgba)
			}
		}
	}
}

func (d *Device) ReadPixels(rect pulse.Rectangle2u, pixels []byte) {
	color, _ := d.attachments(d.state.Framebuffer)
	if color == nil {
		return
	}

	width := int(rect.Width())
	for y := range int(rect.Height()) {
		for x := range width {
			rgba, _ := color.load(int(rect.Min[0])+x, int(rect.Min[1])+y)

			offset := (y*width + x) * 4
			if offset+4 > len(pixels) {
				return
			}

			copy(pixels[offset:offset+4], rgba[:])
		}
	}
}

func (d *Device) Viewport(rect pulse.Rectangle2u) {
	d.state.Viewport = rect
}

func (d *Device) Clear(color pulse.Color, depth bool) {
	d.stats.Clears++

	target, depthTarget := d.attachments(d.state.Framebuffer)

	if target != nil {
		rgba := color.RGBA8()
		for idx := 0; idx < len(target.color); idx += 4 {
			copy(target.color[idx:idx+4], rgba[:])
		}
	}

	if depth && depthTarget != nil {
		for idx := range depthTarget.depth {
			depthTarget.depth[idx] = 1
		}
	}
}

func (d *Device) SetDepthTest(enabled bool) {
	d.state.DepthTest = enabled
}

var reUniform = regexp.MustCompile(`(?m)^[ \t]*uniform\s+\w+\s+(\w+)\s*(?:\[\s*\d+\s*\])?\s*;`)
var reError = regexp.MustCompile(`(?m)^[ \t]*#error[ \t]*(.*)$`)

func (d *Device) CompileProgram(vertexSource, fragmentSource string) (pulse.ProgramHandle, error) {
	for _, stage := range []struct {
		name   string
		source string
	}{{"vertex", vertexSource}, {"fragment", fragmentSource}} {
		if err := checkSource(stage.source); err != nil {
			return 0, fmt.Errorf("%w: %s shader: %s", pulse.ErrShaderCompile, stage.name, err)
		}
	}

	prog := &program{
		locations: map[string]pulse.UniformLocation{},
		values:    map[pulse.UniformLocation]any{},
	}

	for _, source := range []string{vertexSource, fragmentSource} {
		for _, match := range reUniform.FindAllStringSubmatch(source, -1) {
			name := match[1]
			if _, ok := prog.locations[name]; !ok {
				prog.locations[name] = pulse.UniformLocation(len(prog.locations))
			}
		}
	}

	prog.kernel = selectKernel(prog)

	handle := pulse.ProgramHandle(d.handle())
	d.programs[handle] = prog
	d.stats.ProgramsCreated++

	return handle, nil
}

// checkSource performs the few checks a glsl compiler would surely fail on.
func checkSource(source string) error {
	if match := reError.FindStringSubmatchIndex(source); match != nil {
		line := strings.Count(source[:match[0]], "\n") + 1
		return fmt.Errorf("0:%d: '#error' : %s", line, strings.TrimSpace(source[match[2]:match[3]]))
	}

	if !strings.Contains(source, "void main") {
		return errors.New("0:0: 'main' : function not defined")
	}

	if strings.Count(source, "{") != strings.Count(source, "}") {
		return errors.New("0:" + strconv.Itoa(strings.Count(source, "\n")) + ": '' : syntax error, unexpected end of file")
	}

	return nil
}

func (d *Device) DeleteProgram(prog pulse.ProgramHandle) {
	d.deletes[uint32(prog)]++

	if _, ok := d.programs[prog]; !ok {
		return
	}

	delete(d.programs, prog)
	d.stats.ProgramsDeleted++
}

func (d *Device) UseProgram(prog pulse.ProgramHandle) {
	d.state.Program = prog
}

func (d *Device) UniformLocation(prog pulse.ProgramHandle, name string) pulse.UniformLocation {
	p, ok := d.programs[prog]
	if !ok {
		return -1
	}

	loc, ok := p.locations[name]
	if !ok {
		return -1
	}

	return loc
}

// UniformValue returns the last value uploaded to the named uniform of a program.
func (d *Device) UniformValue(prog pulse.ProgramHandle, name string) (any, bool) {
	p, ok := d.programs[prog]
	if !ok {
		return nil, false
	}

	loc, ok := p.locations[name]
	if !ok {
		return nil, false
	}

	value, ok := p.values[loc]
	return value, ok
}

func (d *Device) uniform(loc pulse.UniformLocation, value any) {
	p, ok := d.programs[d.state.Program]
	if !ok || loc < 0 {
		return
	}

	p.values[loc] = value
}

func (d *Device) Uniform1i(loc pulse.UniformLocation, value int32) {
	d.uniform(loc, value)
}

func (d *Device) Uniform1f(loc pulse.UniformLocation, value float32) {
	d.uniform(loc, value)
}

func (d *Device) Uniform3f(loc pulse.UniformLocation, value glm.Vec3f) {
	d.uniform(loc, value)
}

func (d *Device) Uniform4f(loc pulse.UniformLocation, value glm.Vec4f) {
	d.uniform(loc, value)
}

func (d *Device) UniformMatrix4f(loc pulse.UniformLocation, value glm.Mat4f) {
	d.uniform(loc, value)
}

func (d *Device) CreateVertexArray(vertices []pulse.Vertex, indices []uint32) (pulse.VertexArrayHandle, error) {
	for _, index := range indices {
		if int(index) >= len(vertices) {
			return 0, fmt.Errorf("index %d out of range", index)
		}
	}

	vao := pulse.VertexArrayHandle(d.handle())
	d.vertexArrays[vao] = &vertexArray{
		vertices: append([]pulse.Vertex(nil), vertices...),
		indices:  append([]uint32(nil), indices...),
	}

	return vao, nil
}

func (d *Device) DeleteVertexArray(vao pulse.VertexArrayHandle) {
	d.deletes[uint32(vao)]++
	delete(d.vertexArrays, vao)

	if d.state.VertexArray == vao {
		d.state.VertexArray = 0
	}
}

func (d *Device) BindVertexArray(vao pulse.VertexArrayHandle) {
	d.state.VertexArray = vao
}

func (d *Device) Flush() {
	d.stats.Flushes++
}

func (d *Device) Finish() {
	d.stats.Finishes++
}

func (d *Device) FenceSync() pulse.FenceHandle {
	fence := pulse.FenceHandle(d.handle())
	d.fences[fence] = struct{}{}
	return fence
}

// ClientWaitSync returns immediately, all work of this device is complete
// once a call returns.
func (d *Device) ClientWaitSync(fence pulse.FenceHandle, _ time.Duration) error {
	if _, ok := d.fences[fence]; !ok {
		return ErrUnknownFence
	}

	d.stats.FenceWaits++

	return nil
}

func (d *Device) DeleteSync(fence pulse.FenceHandle) {
	delete(d.fences, fence)
}

func (d *Device) State() pulse.BindingState {
	state := d.state
	state.Texture = d.units[state.ActiveTexture]
	return state
}

func (t *texture) load(x, y int) ([4]uint8, bool) {
	if x < 0 || y < 0 || x >= t.width || y >= t.height || t.color == nil {
		return [4]uint8{}, false
	}

	offset := (y*t.width + x) * 4
	return [4]uint8(t.color[offset : offset+4]), true
}

func (t *texture) store(x, y int, rgba [4]uint8) {
	if x < 0 || y < 0 || x >= t.width || y >= t.height || t.color == nil {
		return
	}

	offset := (y*t.width + x) * 4
	copy(t.color[offset:offset+4], rgba[:])
}
