// OFF (Object File Format) parser and writer (text, mesh-interchange
// family).
package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	m "github.com/tessera3d/meshconv/pkg/math"
	"github.com/tessera3d/meshconv/pkg/scene"
)

// OFF format errors.
var (
	ErrInvalidOFFMagic  = errors.New("invalid OFF magic: expected 'OFF'")
	ErrInvalidOFFCounts = errors.New("invalid OFF counts")
	ErrTruncatedOFFData = errors.New("truncated OFF data")
)

// OFF represents a parsed OFF file: shared vertices plus polygon faces.
type OFF struct {
	Positions [][3]float32
	Faces     [][]int
}

// ParseOFF parses OFF data. The "OFF" keyword may share its line with
// the counts, both layouts occur in the wild.
func ParseOFF(data []byte) (*OFF, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	nextLine := func() ([]string, error) {
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			return strings.Fields(line), nil
		}
		return nil, ErrTruncatedOFFData
	}

	fields, err := nextLine()
	if err != nil {
		return nil, err
	}
	if fields[0] != "OFF" {
		return nil, ErrInvalidOFFMagic
	}
	if len(fields) == 1 {
		if fields, err = nextLine(); err != nil {
			return nil, err
		}
	} else {
		fields = fields[1:]
	}

	if len(fields) < 3 {
		return nil, ErrInvalidOFFCounts
	}
	vertexCount, err1 := strconv.Atoi(fields[0])
	faceCount, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil ||
		vertexCount < 0 || vertexCount > maxVertexCount ||
		faceCount < 0 || faceCount > maxFaceCount {
		return nil, ErrInvalidOFFCounts
	}

	off := &OFF{
		Positions: make([][3]float32, 0, vertexCount),
		Faces:     make([][]int, 0, faceCount),
	}

	for i := 0; i < vertexCount; i++ {
		fields, err := nextLine()
		if err != nil {
			return nil, err
		}
		p, err := parseFloat3(fields)
		if err != nil {
			return nil, fmt.Errorf("vertex %d: %w", i, err)
		}
		off.Positions = append(off.Positions, p)
	}

	for i := 0; i < faceCount; i++ {
		fields, err := nextLine()
		if err != nil {
			return nil, err
		}
		face, err := readFaceASCII(fields)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", i, err)
		}
		off.Faces = append(off.Faces, face)
	}

	return off, nil
}

// FaceSet converts the parsed OFF into assembler input. OFF carries no
// normals, so the assembler flat-shades.
func (off *OFF) FaceSet() scene.FaceSet {
	return scene.FaceSet{
		Name:      "off",
		Positions: off.Positions,
		Faces:     off.Faces,
		Material:  scene.NoMaterial,
	}
}

// WriteOFF serializes a scene to OFF text with node transforms baked
// in. Normals and materials do not survive this format.
func WriteOFF(s *scene.Scene) []byte {
	var positions [][3]float32
	var faces [][3]int

	s.Walk(func(n *scene.Node, world m.Mat4) {
		if n.Mesh == nil {
			return
		}
		mesh := n.Mesh
		base := len(positions)
		for _, p := range mesh.Positions {
			positions = append(positions, world.TransformPoint(p))
		}
		for i := 0; i+2 < len(mesh.Indices); i += 3 {
			faces = append(faces, [3]int{
				base + int(mesh.Indices[i]),
				base + int(mesh.Indices[i+1]),
				base + int(mesh.Indices[i+2]),
			})
		}
	})

	var buf bytes.Buffer
	buf.WriteString("OFF\n")
	fmt.Fprintf(&buf, "%d %d 0\n", len(positions), len(faces))
	for _, p := range positions {
		fmt.Fprintf(&buf, "%s %s %s\n", ftoa(p[0]), ftoa(p[1]), ftoa(p[2]))
	}
	for _, f := range faces {
		fmt.Fprintf(&buf, "3 %d %d %d\n", f[0], f[1], f[2])
	}
	return buf.Bytes()
}
