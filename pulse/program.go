package pulse

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oliverbestmann/stereorizer/glm"
)

var ErrShaderCompile = errors.New("shader compilation failed")

// Program is a linked shader program loaded from a shader file. It watches
// the modification time of its file and relinks on change. A failed relink
// keeps the previous program active.
type Program struct {
	dev  Device
	fsys fs.FS
	path string

	defines map[string]string

	handle  ProgramHandle
	modTime time.Time

	uniforms *lru.Cache[string, UniformLocation]
}

// LoadProgram reads, compiles and links the shader file at path.
func LoadProgram(dev Device, fsys fs.FS, path string) (*Program, error) {
	uniforms, _ := lru.New[string, UniformLocation](64)

	p := &Program{
		dev:      dev,
		fsys:     fsys,
		path:     path,
		uniforms: uniforms,
	}

	if err := p.reload(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Program) reload() error {
	info, err := fs.Stat(p.fsys, p.path)
	if err != nil {
		return fmt.Errorf("stat shader %q: %w", p.path, err)
	}

	buf, err := fs.ReadFile(p.fsys, p.path)
	if err != nil {
		return fmt.Errorf("read shader %q: %w", p.path, err)
	}

	// remember the time even on failure so we do not retry every frame
	p.modTime = info.ModTime()

	source, err := ParseShaderSource(string(buf))
	if err != nil {
		return fmt.Errorf("parse shader %q: %w", p.path, err)
	}

	source = source.WithDefines(p.defines)

	handle, err := p.dev.CompileProgram(source.Vertex, source.Fragment)
	if err != nil {
		return fmt.Errorf("compile shader %q: %w", p.path, err)
	}

	if p.handle != 0 {
		p.dev.DeleteProgram(p.handle)
	}

	p.handle = handle
	p.uniforms.Purge()

	return nil
}

// ReloadIfChanged relinks the program if its file changed since the last
// attempt. It reports whether a new program is now active. On failure the
// compiler diagnostic is logged and the previous program stays in use.
func (p *Program) ReloadIfChanged() bool {
	info, err := fs.Stat(p.fsys, p.path)
	if err != nil {
		return false
	}

	if !info.ModTime().After(p.modTime) {
		return false
	}

	previous := p.handle

	if err := p.reload(); err != nil {
		slog.Error(
			"Shader reload failed, keeping previous program",
			slog.String("path", p.path),
			slog.String("err", err.Error()),
		)

		return false
	}

	slog.Info("Shader reloaded", slog.String("path", p.path))

	// keep the new program bound if the old one was active
	if state := p.dev.State(); state.Program == previous {
		p.dev.UseProgram(p.handle)
	}

	return true
}

// SetDefines recompiles the program with the given preprocessor defines.
func (p *Program) SetDefines(defines map[string]string) error {
	previous := p.defines
	p.defines = maps.Clone(defines)

	if err := p.reload(); err != nil {
		p.defines = previous
		return err
	}

	return nil
}

func (p *Program) Path() string {
	return p.path
}

func (p *Program) Handle() ProgramHandle {
	return p.handle
}

func (p *Program) Bind() {
	p.dev.UseProgram(p.handle)
}

func (p *Program) location(name string) UniformLocation {
	loc, ok := p.uniforms.Get(name)
	if ok {
		return loc
	}

	loc = p.dev.UniformLocation(p.handle, name)
	p.uniforms.Add(name, loc)

	return loc
}

// HasUniform reports whether the program declares an active uniform with the given name.
func (p *Program) HasUniform(name string) bool {
	return p.location(name) >= 0
}

// The SetUniform methods upload a value to the program. The program must be
// bound. Unknown uniform names are ignored.

func (p *Program) SetUniformInt(name string, value int32) {
	if loc := p.location(name); loc >= 0 {
		p.dev.Uniform1i(loc, value)
	}
}

func (p *Program) SetUniformFloat(name string, value float32) {
	if loc := p.location(name); loc >= 0 {
		p.dev.Uniform1f(loc, value)
	}
}

func (p *Program) SetUniformVec3(name string, value glm.Vec3f) {
	if loc := p.location(name); loc >= 0 {
		p.dev.Uniform3f(loc, value)
	}
}

func (p *Program) SetUniformVec4(name string, value glm.Vec4f) {
	if loc := p.location(name); loc >= 0 {
		p.dev.Uniform4f(loc, value)
	}
}

func (p *Program) SetUniformColor(name string, value Color) {
	p.SetUniformVec4(name, value.ToVec())
}

func (p *Program) SetUniformMat4(name string, value glm.Mat4f) {
	if loc := p.location(name); loc >= 0 {
		p.dev.UniformMatrix4f(loc, value)
	}
}

func (p *Program) Release() {
	if p.handle != 0 {
		p.dev.DeleteProgram(p.handle)
		p.handle = 0
	}

	p.uniforms.Purge()
}
