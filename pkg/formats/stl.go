// STL parser and writer (binary and ASCII, mesh-interchange family).
package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	m "github.com/tessera3d/meshconv/pkg/math"
	"github.com/tessera3d/meshconv/pkg/scene"
)

// STL format errors.
var (
	ErrTruncatedSTLData = errors.New("truncated STL data")
	ErrInvalidSTLCount  = errors.New("invalid STL triangle count")
	ErrMalformedSTLText = errors.New("malformed ASCII STL")
)

// STLTriangle is one facet: a stored normal and three vertices.
type STLTriangle struct {
	Normal   [3]float32
	Vertices [3][3]float32
}

// STL represents a parsed STL file.
type STL struct {
	Name      string
	Binary    bool
	Triangles []STLTriangle
}

// ParseSTL parses STL data, autodetecting ASCII vs binary encoding.
// A file starting with "solid" is only treated as ASCII when a facet
// keyword follows; binary exporters routinely write "solid" into the
// 80-byte header.
func ParseSTL(data []byte) (*STL, error) {
	if len(data) < 15 {
		return nil, ErrTruncatedSTLData
	}

	if isASCIISTL(data) {
		return parseASCIISTL(data)
	}
	return parseBinarySTL(data)
}

func isASCIISTL(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(bytes.TrimSpace(head), []byte("solid")) &&
		bytes.Contains(head, []byte("facet"))
}

func parseBinarySTL(data []byte) (*STL, error) {
	if len(data) < 84 {
		return nil, ErrTruncatedSTLData
	}

	count := binary.LittleEndian.Uint32(data[80:84])
	if count > maxFaceCount {
		return nil, ErrInvalidSTLCount
	}
	if len(data) < 84+int(count)*50 {
		return nil, ErrTruncatedSTLData
	}

	stl := &STL{
		Name:      strings.TrimRight(string(bytes.TrimRight(data[:80], "\x00")), " "),
		Binary:    true,
		Triangles: make([]STLTriangle, count),
	}

	r := bytes.NewReader(data[84:])
	for i := uint32(0); i < count; i++ {
		tri := &stl.Triangles[i]
		binary.Read(r, binary.LittleEndian, &tri.Normal)
		binary.Read(r, binary.LittleEndian, &tri.Vertices)
		r.Seek(2, 1) // attribute byte count, unused
	}
	return stl, nil
}

func parseASCIISTL(data []byte) (*STL, error) {
	stl := &STL{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var tri *STLTriangle
	vertexNo := 0

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "solid":
			if len(fields) > 1 {
				stl.Name = fields[1]
			}
		case "facet":
			tri = &STLTriangle{}
			vertexNo = 0
			if len(fields) >= 5 && fields[1] == "normal" {
				n, err := parseFloat3(fields[2:5])
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrMalformedSTLText, err)
				}
				tri.Normal = n
			}
		case "vertex":
			if tri == nil || vertexNo >= 3 {
				return nil, ErrMalformedSTLText
			}
			v, err := parseFloat3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedSTLText, err)
			}
			tri.Vertices[vertexNo] = v
			vertexNo++
		case "endfacet":
			if tri == nil || vertexNo != 3 {
				return nil, ErrMalformedSTLText
			}
			stl.Triangles = append(stl.Triangles, *tri)
			tri = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading STL data: %w", err)
	}
	return stl, nil
}

// FaceSet converts the triangle soup into assembler input. Stored facet
// normals are replicated per corner; all-zero stored normals are left
// out so the assembler recomputes them.
func (stl *STL) FaceSet() scene.FaceSet {
	fs := scene.FaceSet{Name: stl.Name, Material: scene.NoMaterial}

	hasNormals := false
	for _, tri := range stl.Triangles {
		if tri.Normal != [3]float32{} {
			hasNormals = true
			break
		}
	}

	for i, tri := range stl.Triangles {
		base := i * 3
		fs.Positions = append(fs.Positions, tri.Vertices[0], tri.Vertices[1], tri.Vertices[2])
		if hasNormals {
			n := tri.Normal
			if n == [3]float32{} {
				n = scene.FaceNormal(tri.Vertices[0], tri.Vertices[1], tri.Vertices[2])
			}
			fs.Normals = append(fs.Normals, n, n, n)
		}
		fs.Faces = append(fs.Faces, []int{base, base + 1, base + 2})
	}
	return fs
}

// WriteSTL serializes a scene to binary STL with node transforms baked
// in. Hierarchy and materials do not survive this format.
func WriteSTL(s *scene.Scene) []byte {
	var body bytes.Buffer
	count := uint32(0)

	s.Walk(func(n *scene.Node, world m.Mat4) {
		if n.Mesh == nil {
			return
		}
		mesh := n.Mesh
		for i := 0; i+2 < len(mesh.Indices); i += 3 {
			v0 := world.TransformPoint(mesh.Positions[mesh.Indices[i]])
			v1 := world.TransformPoint(mesh.Positions[mesh.Indices[i+1]])
			v2 := world.TransformPoint(mesh.Positions[mesh.Indices[i+2]])

			binary.Write(&body, binary.LittleEndian, scene.FaceNormal(v0, v1, v2))
			binary.Write(&body, binary.LittleEndian, [3][3]float32{v0, v1, v2})
			binary.Write(&body, binary.LittleEndian, uint16(0))
			count++
		}
	})

	out := make([]byte, 0, 84+body.Len())
	header := make([]byte, 80)
	copy(header, "meshconv binary STL")
	out = append(out, header...)
	out = binary.LittleEndian.AppendUint32(out, count)
	return append(out, body.Bytes()...)
}

// WriteASCIISTL serializes a scene to ASCII STL.
func WriteASCIISTL(s *scene.Scene, name string) []byte {
	var buf bytes.Buffer
	if name == "" {
		name = "meshconv"
	}
	fmt.Fprintf(&buf, "solid %s\n", name)

	s.Walk(func(n *scene.Node, world m.Mat4) {
		if n.Mesh == nil {
			return
		}
		mesh := n.Mesh
		for i := 0; i+2 < len(mesh.Indices); i += 3 {
			v0 := world.TransformPoint(mesh.Positions[mesh.Indices[i]])
			v1 := world.TransformPoint(mesh.Positions[mesh.Indices[i+1]])
			v2 := world.TransformPoint(mesh.Positions[mesh.Indices[i+2]])
			fn := scene.FaceNormal(v0, v1, v2)

			fmt.Fprintf(&buf, "  facet normal %s %s %s\n", ftoa(fn[0]), ftoa(fn[1]), ftoa(fn[2]))
			buf.WriteString("    outer loop\n")
			for _, v := range [][3]float32{v0, v1, v2} {
				fmt.Fprintf(&buf, "      vertex %s %s %s\n", ftoa(v[0]), ftoa(v[1]), ftoa(v[2]))
			}
			buf.WriteString("    endloop\n")
			buf.WriteString("  endfacet\n")
		}
	})

	fmt.Fprintf(&buf, "endsolid %s\n", name)
	return buf.Bytes()
}

func ftoa(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}
