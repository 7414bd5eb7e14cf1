// PLY parser and writer (ASCII and binary little-endian,
// mesh-interchange family).
package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	gomath "math"
	"strconv"
	"strings"

	m "github.com/tessera3d/meshconv/pkg/math"
	"github.com/tessera3d/meshconv/pkg/scene"
)

// PLY format errors.
var (
	ErrInvalidPLYMagic       = errors.New("invalid PLY magic: expected 'ply'")
	ErrUnsupportedPLYFormat  = errors.New("unsupported PLY format")
	ErrTruncatedPLYData      = errors.New("truncated PLY data")
	ErrInvalidPLYElement     = errors.New("invalid PLY element count")
	ErrMalformedPLYHeader    = errors.New("malformed PLY header")
	ErrUnsupportedPLYElement = errors.New("unsupported PLY property type")
)

// PLY represents a parsed PLY file.
type PLY struct {
	Binary    bool
	Comments  []string
	Positions [][3]float32
	Normals   [][3]float32
	Faces     [][]int
}

type plyProperty struct {
	name      string
	typ       string
	list      bool
	countType string
}

type plyElement struct {
	name       string
	count      int
	properties []plyProperty
}

var plyTypeSizes = map[string]int{
	"char": 1, "int8": 1, "uchar": 1, "uint8": 1,
	"short": 2, "int16": 2, "ushort": 2, "uint16": 2,
	"int": 4, "int32": 4, "uint": 4, "uint32": 4,
	"float": 4, "float32": 4, "double": 8, "float64": 8,
}

// ParsePLY parses PLY data in ASCII or binary_little_endian form.
func ParsePLY(data []byte) (*PLY, error) {
	headerEnd := bytes.Index(data, []byte("end_header"))
	if headerEnd < 0 {
		if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("ply")) {
			return nil, ErrInvalidPLYMagic
		}
		return nil, ErrMalformedPLYHeader
	}

	ply, elements, err := parsePLYHeader(data[:headerEnd])
	if err != nil {
		return nil, err
	}

	// Body starts after the end_header line.
	body := data[headerEnd:]
	if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = nil
	}

	if ply.Binary {
		err = parsePLYBinary(ply, elements, body)
	} else {
		err = parsePLYASCII(ply, elements, body)
	}
	if err != nil {
		return nil, err
	}
	return ply, nil
}

func parsePLYHeader(header []byte) (*PLY, []plyElement, error) {
	scanner := bufio.NewScanner(bytes.NewReader(header))
	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "ply" {
		return nil, nil, ErrInvalidPLYMagic
	}

	ply := &PLY{}
	var elements []plyElement
	formatSeen := false

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "format":
			if len(fields) < 2 {
				return nil, nil, ErrMalformedPLYHeader
			}
			switch fields[1] {
			case "ascii":
				ply.Binary = false
			case "binary_little_endian":
				ply.Binary = true
			default:
				return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedPLYFormat, fields[1])
			}
			formatSeen = true

		case "comment":
			ply.Comments = append(ply.Comments, strings.Join(fields[1:], " "))

		case "element":
			if len(fields) < 3 {
				return nil, nil, ErrMalformedPLYHeader
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 || count > maxFaceCount {
				return nil, nil, ErrInvalidPLYElement
			}
			elements = append(elements, plyElement{name: fields[1], count: count})

		case "property":
			if len(elements) == 0 || len(fields) < 3 {
				return nil, nil, ErrMalformedPLYHeader
			}
			el := &elements[len(elements)-1]
			if fields[1] == "list" {
				if len(fields) < 5 {
					return nil, nil, ErrMalformedPLYHeader
				}
				el.properties = append(el.properties, plyProperty{
					name:      fields[4],
					typ:       fields[3],
					list:      true,
					countType: fields[2],
				})
			} else {
				el.properties = append(el.properties, plyProperty{
					name: fields[2],
					typ:  fields[1],
				})
			}
		}
	}

	if !formatSeen {
		return nil, nil, ErrMalformedPLYHeader
	}
	return ply, elements, nil
}

func parsePLYASCII(ply *PLY, elements []plyElement, body []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	nextLine := func() ([]string, error) {
		for scanner.Scan() {
			fields := strings.Fields(scanner.Text())
			if len(fields) > 0 {
				return fields, nil
			}
		}
		return nil, ErrTruncatedPLYData
	}

	for _, el := range elements {
		for i := 0; i < el.count; i++ {
			fields, err := nextLine()
			if err != nil {
				return err
			}

			switch el.name {
			case "vertex":
				if err := ply.readVertexASCII(el, fields); err != nil {
					return err
				}
			case "face":
				face, err := readFaceASCII(fields)
				if err != nil {
					return err
				}
				ply.Faces = append(ply.Faces, face)
			}
			// Other elements (edge, material, …) are consumed line by
			// line and dropped.
		}
	}
	return nil
}

func (ply *PLY) readVertexASCII(el plyElement, fields []string) error {
	if len(fields) < len(el.properties) {
		return ErrTruncatedPLYData
	}

	var pos, nrm [3]float32
	hasNormal := false
	for i, prop := range el.properties {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return fmt.Errorf("bad vertex value %q: %w", fields[i], err)
		}
		switch prop.name {
		case "x":
			pos[0] = float32(f)
		case "y":
			pos[1] = float32(f)
		case "z":
			pos[2] = float32(f)
		case "nx":
			nrm[0] = float32(f)
			hasNormal = true
		case "ny":
			nrm[1] = float32(f)
			hasNormal = true
		case "nz":
			nrm[2] = float32(f)
			hasNormal = true
		}
	}

	ply.Positions = append(ply.Positions, pos)
	if hasNormal {
		ply.Normals = append(ply.Normals, nrm)
	}
	return nil
}

func readFaceASCII(fields []string) ([]int, error) {
	count, err := strconv.Atoi(fields[0])
	if err != nil || count < 0 || count+1 > len(fields) {
		return nil, ErrTruncatedPLYData
	}
	face := make([]int, count)
	for i := 0; i < count; i++ {
		idx, err := strconv.Atoi(fields[i+1])
		if err != nil {
			return nil, fmt.Errorf("bad face index %q: %w", fields[i+1], err)
		}
		face[i] = idx
	}
	return face, nil
}

func parsePLYBinary(ply *PLY, elements []plyElement, body []byte) error {
	r := bytes.NewReader(body)

	for _, el := range elements {
		for i := 0; i < el.count; i++ {
			switch el.name {
			case "vertex":
				if err := ply.readVertexBinary(el, r); err != nil {
					return err
				}
			case "face":
				face, err := readFaceBinary(el, r)
				if err != nil {
					return err
				}
				ply.Faces = append(ply.Faces, face)
			default:
				if err := skipElementBinary(el, r); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (ply *PLY) readVertexBinary(el plyElement, r *bytes.Reader) error {
	var pos, nrm [3]float32
	hasNormal := false

	for _, prop := range el.properties {
		if prop.list {
			return fmt.Errorf("%w: list property on vertex", ErrUnsupportedPLYElement)
		}
		f, err := readScalar(r, prop.typ)
		if err != nil {
			return err
		}
		switch prop.name {
		case "x":
			pos[0] = float32(f)
		case "y":
			pos[1] = float32(f)
		case "z":
			pos[2] = float32(f)
		case "nx":
			nrm[0] = float32(f)
			hasNormal = true
		case "ny":
			nrm[1] = float32(f)
			hasNormal = true
		case "nz":
			nrm[2] = float32(f)
			hasNormal = true
		}
	}

	ply.Positions = append(ply.Positions, pos)
	if hasNormal {
		ply.Normals = append(ply.Normals, nrm)
	}
	return nil
}

func readFaceBinary(el plyElement, r *bytes.Reader) ([]int, error) {
	var face []int
	for _, prop := range el.properties {
		if !prop.list {
			if _, err := readScalar(r, prop.typ); err != nil {
				return nil, err
			}
			continue
		}
		countF, err := readScalar(r, prop.countType)
		if err != nil {
			return nil, err
		}
		count := int(countF)
		if count < 0 || count > 1024 {
			return nil, ErrInvalidPLYElement
		}
		if prop.name == "vertex_indices" || prop.name == "vertex_index" {
			face = make([]int, count)
			for i := 0; i < count; i++ {
				idx, err := readScalar(r, prop.typ)
				if err != nil {
					return nil, err
				}
				face[i] = int(idx)
			}
		} else {
			for i := 0; i < count; i++ {
				if _, err := readScalar(r, prop.typ); err != nil {
					return nil, err
				}
			}
		}
	}
	return face, nil
}

func skipElementBinary(el plyElement, r *bytes.Reader) error {
	for _, prop := range el.properties {
		if prop.list {
			countF, err := readScalar(r, prop.countType)
			if err != nil {
				return err
			}
			for i := 0; i < int(countF); i++ {
				if _, err := readScalar(r, prop.typ); err != nil {
					return err
				}
			}
			continue
		}
		if _, err := readScalar(r, prop.typ); err != nil {
			return err
		}
	}
	return nil
}

// readScalar reads one little-endian scalar of the named PLY type and
// widens it to float64.
func readScalar(r *bytes.Reader, typ string) (float64, error) {
	size, ok := plyTypeSizes[typ]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedPLYElement, typ)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, ErrTruncatedPLYData
	}

	switch typ {
	case "char", "int8":
		return float64(int8(buf[0])), nil
	case "uchar", "uint8":
		return float64(buf[0]), nil
	case "short", "int16":
		return float64(int16(binary.LittleEndian.Uint16(buf))), nil
	case "ushort", "uint16":
		return float64(binary.LittleEndian.Uint16(buf)), nil
	case "int", "int32":
		return float64(int32(binary.LittleEndian.Uint32(buf))), nil
	case "uint", "uint32":
		return float64(binary.LittleEndian.Uint32(buf)), nil
	case "float", "float32":
		return float64(gomath.Float32frombits(binary.LittleEndian.Uint32(buf))), nil
	default: // double, float64
		return gomath.Float64frombits(binary.LittleEndian.Uint64(buf)), nil
	}
}

// FaceSet converts the parsed PLY into assembler input. Normals are
// forwarded only when every vertex carried one.
func (ply *PLY) FaceSet() scene.FaceSet {
	fs := scene.FaceSet{
		Name:      "ply",
		Positions: ply.Positions,
		Faces:     ply.Faces,
		Material:  scene.NoMaterial,
	}
	if len(ply.Normals) == len(ply.Positions) {
		fs.Normals = ply.Normals
	}
	return fs
}

// WritePLY serializes a scene to ASCII PLY with node transforms baked
// in. All meshes merge into one vertex/face table; materials do not
// survive this format, normals do.
func WritePLY(s *scene.Scene) []byte {
	var positions, normals [][3]float32
	var faces [][3]int

	s.Walk(func(n *scene.Node, world m.Mat4) {
		if n.Mesh == nil {
			return
		}
		mesh := n.Mesh
		base := len(positions)
		hasNormals := len(mesh.Normals) == len(mesh.Positions)

		for i, p := range mesh.Positions {
			positions = append(positions, world.TransformPoint(p))
			if hasNormals {
				normals = append(normals, world.TransformDirection(mesh.Normals[i]))
			} else {
				normals = append(normals, [3]float32{})
			}
		}
		for i := 0; i+2 < len(mesh.Indices); i += 3 {
			faces = append(faces, [3]int{
				base + int(mesh.Indices[i]),
				base + int(mesh.Indices[i+1]),
				base + int(mesh.Indices[i+2]),
			})
		}
	})

	withNormals := false
	for _, n := range normals {
		if n != [3]float32{} {
			withNormals = true
			break
		}
	}

	var buf bytes.Buffer
	buf.WriteString("ply\nformat ascii 1.0\ncomment exported by meshconv\n")
	fmt.Fprintf(&buf, "element vertex %d\n", len(positions))
	buf.WriteString("property float x\nproperty float y\nproperty float z\n")
	if withNormals {
		buf.WriteString("property float nx\nproperty float ny\nproperty float nz\n")
	}
	fmt.Fprintf(&buf, "element face %d\n", len(faces))
	buf.WriteString("property list uchar int vertex_indices\nend_header\n")

	for i, p := range positions {
		if withNormals {
			n := normals[i]
			fmt.Fprintf(&buf, "%s %s %s %s %s %s\n",
				ftoa(p[0]), ftoa(p[1]), ftoa(p[2]), ftoa(n[0]), ftoa(n[1]), ftoa(n[2]))
		} else {
			fmt.Fprintf(&buf, "%s %s %s\n", ftoa(p[0]), ftoa(p[1]), ftoa(p[2]))
		}
	}
	for _, f := range faces {
		fmt.Fprintf(&buf, "3 %d %d %d\n", f[0], f[1], f[2])
	}
	return buf.Bytes()
}
