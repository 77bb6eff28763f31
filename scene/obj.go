package scene

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/oliverbestmann/stereorizer/pulse"
)

var ErrInvalidOBJ = errors.New("invalid obj")

// LoadOBJFile reads all objects from a Wavefront OBJ file.
func LoadOBJFile(fsys fs.FS, path string) ([]Geometry, error) {
	fp, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}

	defer fp.Close()

	geometries, err := LoadOBJ(fp)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", path, err)
	}

	return geometries, nil
}

// LoadOBJ parses the positions, normals and polygonal faces of a Wavefront
// OBJ document. Every "o" statement starts a new geometry. Faces with more
// than three corners are triangulated as a fan. Faces without normals get a
// flat face normal.
func LoadOBJ(r io.Reader) ([]Geometry, error) {
	var positions []Vec
	var normals []Vec

	var current Geometry
	var geometries []Geometry

	finalize := func() {
		if len(current.Indices) == 0 {
			return
		}

		geometries = append(geometries, current)
	}

	scanner := bufio.NewScanner(r)

	var lineNo int
	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		keyword, rest, _ := strings.Cut(line, " ")

		switch keyword {
		case "o":
			finalize()
			current = Geometry{Name: strings.TrimSpace(rest)}

		case "v":
			vec, err := parseVec(rest)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: vertex: %w", ErrInvalidOBJ, lineNo, err)
			}

			positions = append(positions, vec)

		case "vn":
			vec, err := parseVec(rest)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: normal: %w", ErrInvalidOBJ, lineNo, err)
			}

			normals = append(normals, vec.Normalize())

		case "f":
			if err := current.addFace(rest, positions, normals); err != nil {
				return nil, fmt.Errorf("%w: line %d: face: %w", ErrInvalidOBJ, lineNo, err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read obj: %w", err)
	}

	finalize()

	return geometries, nil
}

func parseVec(input string) (Vec, error) {
	fields := strings.Fields(input)

	// an optional w component is ignored
	if len(fields) < 3 {
		return Vec{}, errors.New("expected three coordinates")
	}

	var vec Vec
	for idx := range 3 {
		value, err := strconv.ParseFloat(fields[idx], 32)
		if err != nil {
			return Vec{}, err
		}

		vec[idx] = float32(value)
	}

	return vec, nil
}

func (g *Geometry) addFace(input string, positions, normals []Vec) error {
	fields := strings.Fields(input)
	if len(fields) < 3 {
		return fmt.Errorf("expected at least three corners, got %d", len(fields))
	}

	corners := make([]vertexIndex, 0, len(fields))
	for _, field := range fields {
		corner, err := parseVertexIndex(field, len(positions), len(normals))
		if err != nil {
			return err
		}

		corners = append(corners, corner)
	}

	for idx := 1; idx+1 < len(corners); idx++ {
		g.addCorners(positions, normals, corners[0], corners[idx], corners[idx+1])
	}

	return nil
}

func (g *Geometry) addCorners(positions, normals []Vec, a, b, c vertexIndex) {
	pa, pb, pc := positions[a.Vertex], positions[b.Vertex], positions[c.Vertex]

	flat := calculateNormal(pa, pb, pc)

	normalOf := func(corner vertexIndex) Vec {
		if corner.Normal < 0 {
			return flat
		}

		return normals[corner.Normal]
	}

	base := uint32(len(g.Vertices))
	g.Vertices = append(g.Vertices,
		pulse.Vertex{Position: pa, Normal: normalOf(a)},
		pulse.Vertex{Position: pb, Normal: normalOf(b)},
		pulse.Vertex{Position: pc, Normal: normalOf(c)},
	)

	g.Indices = append(g.Indices, base, base+1, base+2)
}

// vertexIndex holds zero based indices, a normal of -1 means none.
type vertexIndex struct {
	Vertex int
	Normal int
}

func parseVertexIndex(input string, positionCount, normalCount int) (vertexIndex, error) {
	parts := strings.Split(input, "/")

	vertex, err := resolveIndex(parts[0], positionCount)
	if err != nil {
		return vertexIndex{}, fmt.Errorf("parse vertex index %q: %w", parts[0], err)
	}

	res := vertexIndex{Vertex: vertex, Normal: -1}

	if len(parts) >= 3 && parts[2] != "" {
		res.Normal, err = resolveIndex(parts[2], normalCount)
		if err != nil {
			return vertexIndex{}, fmt.Errorf("parse normal index %q: %w", parts[2], err)
		}
	}

	return res, nil
}

// resolveIndex converts a one based or negative relative index.
func resolveIndex(input string, count int) (int, error) {
	idx, err := strconv.Atoi(input)
	if err != nil {
		return 0, err
	}

	switch {
	case idx > 0 && idx <= count:
		return idx - 1, nil
	case idx < 0 && -idx <= count:
		return count + idx, nil
	default:
		return 0, fmt.Errorf("index %d out of range [1, %d]", idx, count)
	}
}
