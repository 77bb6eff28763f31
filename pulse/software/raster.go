package software

import (
	"math"

	"github.com/oliverbestmann/stereorizer/glm"
	"github.com/oliverbestmann/stereorizer/pulse"
)

type kernel uint8

const (
	// flat color from the materialColor uniform
	kernelFlat kernel = iota

	// shows a texture, optionally as linearized depth
	kernelVisualize

	// samples the source eye through its camera matrices
	kernelReproject
)

type program struct {
	locations map[string]pulse.UniformLocation
	values    map[pulse.UniformLocation]any
	kernel    kernel
}

func selectKernel(p *program) kernel {
	_, sourceColor := p.locations["sourceColor"]
	_, sourceDepth := p.locations["sourceDepth"]
	if sourceColor && sourceDepth {
		return kernelReproject
	}

	if _, ok := p.locations["screenTexture"]; ok {
		return kernelVisualize
	}

	return kernelFlat
}

func (p *program) value(name string) (any, bool) {
	loc, ok := p.locations[name]
	if !ok {
		return nil, false
	}

	value, ok := p.values[loc]
	return value, ok
}

func (p *program) mat4(name string) glm.Mat4f {
	if value, ok := p.value(name); ok {
		if m, ok := value.(glm.Mat4f); ok {
			return m
		}
	}

	return glm.IdentityMat4[float32]()
}

func (p *program) vec4(name string, fallback glm.Vec4f) glm.Vec4f {
	if value, ok := p.value(name); ok {
		if v, ok := value.(glm.Vec4f); ok {
			return v
		}
	}

	return fallback
}

func (p *program) float(name string, fallback float32) float32 {
	if value, ok := p.value(name); ok {
		if v, ok := value.(float32); ok {
			return v
		}
	}

	return fallback
}

func (p *program) int(name string, fallback int32) int32 {
	if value, ok := p.value(name); ok {
		if v, ok := value.(int32); ok {
			return v
		}
	}

	return fallback
}

type clipVertex struct {
	// position in window coordinates, z in [0, 1]
	window glm.Vec3f
	invW   float32

	// attributes divided by w for perspective correct interpolation
	local glm.Vec3f
	world glm.Vec3f
}

// fragmentShader computes the color of a fragment from the interpolated
// local and world positions. Returns false to discard.
type fragmentShader func(local, world glm.Vec3f) ([4]uint8, bool)

func (d *Device) DrawTriangles(count int, indexed bool) {
	d.stats.DrawCalls++

	prog, ok := d.programs[d.state.Program]
	if !ok {
		return
	}

	vao, ok := d.vertexArrays[d.state.VertexArray]
	if !ok {
		return
	}

	color, depth := d.attachments(d.state.Framebuffer)
	if color == nil {
		return
	}

	model := prog.mat4("modelMatrix")
	mvp := prog.mat4("projectionMatrix").Mul(prog.mat4("viewMatrix")).Mul(model)

	shade := d.fragmentShader(prog)

	vertex := func(idx int) (pulse.Vertex, bool) {
		if indexed {
			if idx >= len(vao.indices) {
				return pulse.Vertex{}, false
			}

			idx = int(vao.indices[idx])
		}

		if idx >= len(vao.vertices) {
			return pulse.Vertex{}, false
		}

		return vao.vertices[idx], true
	}

	viewport := d.state.Viewport

	for first := 0; first+2 < count; first += 3 {
		var tri [3]clipVertex

		valid := true
		for corner := range 3 {
			v, ok := vertex(first + corner)
			if !ok {
				valid = false
				break
			}

			clip := mvp.Transform(v.Position.Extend(1))
			if clip[3] <= 1e-6 {
				valid = false
				break
			}

			invW := 1 / clip[3]
			ndc := clip.Truncate().MulScalar(invW)

			world := model.Transform(v.Position.Extend(1)).Truncate()

			tri[corner] = clipVertex{
				window: glm.Vec3f{
					float32(viewport.Min[0]) + (ndc[0]+1)*0.5*float32(viewport.Width()),
					float32(viewport.Min[1]) + (ndc[1]+1)*0.5*float32(viewport.Height()),
					ndc[2]*0.5 + 0.5,
				},
				invW:  invW,
				local: v.Position.MulScalar(invW),
				world: world.MulScalar(invW),
			}
		}

		if valid {
			d.rasterize(tri, viewport, color, depth, shade)
		}
	}
}

func edge(a, b glm.Vec3f, x, y float32) float32 {
	return (b[0]-a[0])*(y-a[1]) - (b[1]-a[1])*(x-a[0])
}

func (d *Device) rasterize(tri [3]clipVertex, viewport pulse.Rectangle2u, color, depth *texture, shade fragmentShader) {
	a, b, c := tri[0].window, tri[1].window, tri[2].window

	area := edge(a, b, c[0], c[1])
	if area == 0 {
		return
	}

	minX := max(int(math.Floor(float64(min(a[0], b[0], c[0])))), int(viewport.Min[0]), 0)
	minY := max(int(math.Floor(float64(min(a[1], b[1], c[1])))), int(viewport.Min[1]), 0)
	maxX := min(int(math.Ceil(float64(max(a[0], b[0], c[0])))), int(viewport.Max[0]), color.width)
	maxY := min(int(math.Ceil(float64(max(a[1], b[1], c[1])))), int(viewport.Max[1]), color.height)

	for y := minY; y < maxY; y++ {
		for x := minX; x < maxX; x++ {
			px, py := float32(x)+0.5, float32(y)+0.5

			w0 := edge(b, c, px, py) / area
			w1 := edge(c, a, px, py) / area
			w2 := edge(a, b, px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			z := w0*a[2] + w1*b[2] + w2*c[2]
			if z < 0 || z > 1 {
				continue
			}

			depthIdx := y*color.width + x
			if d.state.DepthTest && depth != nil {
				if z >= depth.depth[depthIdx] {
					continue
				}
			}

			invW := w0*tri[0].invW + w1*tri[1].invW + w2*tri[2].invW
			local := interpolate(tri, w0, w1, w2, func(v clipVertex) glm.Vec3f { return v.local }).MulScalar(1 / invW)
			world := interpolate(tri, w0, w1, w2, func(v clipVertex) glm.Vec3f { return v.world }).MulScalar(1 / invW)

			rgba, keep := shade(local, world)
			if !keep {
				continue
			}

			color.store(x, y, rgba)

			if d.state.DepthTest && depth != nil {
				depth.depth[depthIdx] = z
			}
		}
	}
}

func interpolate(tri [3]clipVertex, w0, w1, w2 float32, attr func(clipVertex) glm.Vec3f) glm.Vec3f {
	return attr(tri[0]).MulScalar(w0).
		Add(attr(tri[1]).MulScalar(w1)).
		Add(attr(tri[2]).MulScalar(w2))
}

func (d *Device) fragmentShader(prog *program) fragmentShader {
	switch prog.kernel {
	case kernelVisualize:
		return d.visualizeShader(prog)

	case kernelReproject:
		return d.reprojectShader(prog)

	default:
		rgba := pulse.ColorOf(prog.vec4("materialColor", glm.Vec4f{1, 1, 1, 1})).RGBA8()
		return func(_, _ glm.Vec3f) ([4]uint8, bool) {
			return rgba, true
		}
	}
}

// sampler returns the texture bound to the unit referenced by a sampler uniform.
func (d *Device) sampler(prog *program, name string) *texture {
	unit := uint32(prog.int(name, 0))
	return d.textures[d.units[unit]]
}

func (t *texture) sample(u, v float32) (rgba [4]uint8, depth float32) {
	x := min(max(int(u*float32(t.width)), 0), t.width-1)
	y := min(max(int(v*float32(t.height)), 0), t.height-1)

	if t.format.IsDepth() {
		return [4]uint8{}, t.depth[y*t.width+x]
	}

	rgba, _ = t.load(x, y)
	return rgba, 0
}

func (d *Device) visualizeShader(prog *program) fragmentShader {
	source := d.sampler(prog, "screenTexture")
	linearize := prog.int("linearizeDepth", 0) != 0
	near := prog.float("nearPlane", 0.1)
	far := prog.float("farPlane", 100)

	return func(local, _ glm.Vec3f) ([4]uint8, bool) {
		if source == nil {
			return [4]uint8{0, 0, 0, 255}, true
		}

		u, v := local[0]*0.5+0.5, local[1]*0.5+0.5
		rgba, depth := source.sample(u, v)
		if !source.format.IsDepth() {
			return rgba, true
		}

		value := depth
		if linearize {
			value = (LinearizeDepth(depth, near, far) - near) / (far - near)
		}

		gray := uint8(math.Round(float64(min(max(value, 0), 1)) * 255))
		return [4]uint8{gray, gray, gray, 255}, true
	}
}

func (d *Device) reprojectShader(prog *program) fragmentShader {
	sourceColor := d.sampler(prog, "sourceColor")
	sourceDepth := d.sampler(prog, "sourceDepth")
	sourceViewProjection := prog.mat4("sourceProjection").Mul(prog.mat4("sourceView"))
	tolerance := prog.float("depthTolerance", 0.005)
	disoccluded := pulse.ColorDisoccluded.RGBA8()

	return func(_, world glm.Vec3f) ([4]uint8, bool) {
		if sourceColor == nil || sourceDepth == nil {
			return disoccluded, true
		}

		clip := sourceViewProjection.Transform(world.Extend(1))
		if clip[3] <= 1e-6 {
			return disoccluded, true
		}

		ndc := clip.Truncate().MulScalar(1 / clip[3])
		u, v := ndc[0]*0.5+0.5, ndc[1]*0.5+0.5
		if u < 0 || u > 1 || v < 0 || v > 1 {
			return disoccluded, true
		}

		_, captured := sourceDepth.sample(u, v)
		expected := ndc[2]*0.5 + 0.5
		if float32(math.Abs(float64(expected-captured))) > tolerance {
			return disoccluded, true
		}

		rgba, _ := sourceColor.sample(u, v)
		return rgba, true
	}
}

// LinearizeDepth converts a window space depth value in [0, 1] back into
// eye space distance for a perspective projection with the given planes.
func LinearizeDepth(depth, near, far float32) float32 {
	z := depth*2 - 1
	return (2 * near * far) / (far + near - z*(far-near))
}
