package pulse

import (
	"bufio"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ShaderSource holds the two stages of a program as found in a shader file.
// Stages are introduced by "#shader vertex" and "#shader fragment" lines.
type ShaderSource struct {
	Vertex   string
	Fragment string
}

func ParseShaderSource(source string) (ShaderSource, error) {
	var result ShaderSource
	var current *strings.Builder

	var vertex, fragment strings.Builder

	scanner := bufio.NewScanner(strings.NewReader(source))
	for scanner.Scan() {
		line := scanner.Text()

		if stage, ok := strings.CutPrefix(strings.TrimSpace(line), "#shader"); ok {
			switch strings.TrimSpace(stage) {
			case "vertex":
				current = &vertex
			case "fragment":
				current = &fragment
			default:
				return ShaderSource{}, fmt.Errorf("unknown shader stage %q", strings.TrimSpace(stage))
			}

			continue
		}

		if current == nil {
			continue
		}

		current.WriteString(line)
		current.WriteByte('\n')
	}

	if err := scanner.Err(); err != nil {
		return ShaderSource{}, fmt.Errorf("read shader source: %w", err)
	}

	result.Vertex = vertex.String()
	result.Fragment = fragment.String()

	if strings.TrimSpace(result.Vertex) == "" {
		return ShaderSource{}, fmt.Errorf("%w: missing vertex stage", ErrShaderCompile)
	}

	if strings.TrimSpace(result.Fragment) == "" {
		return ShaderSource{}, fmt.Errorf("%w: missing fragment stage", ErrShaderCompile)
	}

	return result, nil
}

// WithDefines returns a copy of the source with a #define line per entry
// inserted after the #version directive of each stage.
func (s ShaderSource) WithDefines(defines map[string]string) ShaderSource {
	if len(defines) == 0 {
		return s
	}

	var block strings.Builder
	for _, name := range slices.Sorted(maps.Keys(defines)) {
		fmt.Fprintf(&block, "#define %s %s\n", name, defines[name])
	}

	return ShaderSource{
		Vertex:   injectAfterVersion(s.Vertex, block.String()),
		Fragment: injectAfterVersion(s.Fragment, block.String()),
	}
}

func injectAfterVersion(source, block string) string {
	lines := strings.SplitAfter(source, "\n")
	for idx, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#version") {
			head := strings.Join(lines[:idx+1], "")
			if !strings.HasSuffix(head, "\n") {
				head += "\n"
			}

			return head + block + strings.Join(lines[idx+1:], "")
		}
	}

	return block + source
}
