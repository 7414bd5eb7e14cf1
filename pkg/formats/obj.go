// Wavefront OBJ parser and writer (text, mesh-interchange family).
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

// OBJ format errors.
var (
	ErrEmptyOBJData = errors.New("empty OBJ data")
)

// OBJFace is one polygon face with per-corner indices. Indices are
// 0-based after parsing; TexCoords/Normals hold -1 for absent references.
type OBJFace struct {
	Vertices  []int
	TexCoords []int
	Normals   []int
	Material  int // index into OBJ.Materials, -1 when no usemtl is active
}

// OBJObject groups faces under an o/g name.
type OBJObject struct {
	Name  string
	Faces []OBJFace
}

// OBJ represents a parsed Wavefront OBJ file.
type OBJ struct {
	Positions [][3]float32
	Normals   [][3]float32
	TexCoords [][2]float32
	MTLLibs   []string // mtllib references, in order of appearance
	Materials []string // usemtl names, in order of first use
	Objects   []OBJObject
}

// ParseOBJ parses OBJ data from a byte slice.
func ParseOBJ(data []byte) (*OBJ, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyOBJData
	}

	obj := &OBJ{}
	matIndex := make(map[string]int)
	currentMat := -1
	current := &OBJObject{Name: "default"}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			p, err := parseFloat3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: vertex: %w", lineNo, err)
			}
			obj.Positions = append(obj.Positions, p)

		case "vn":
			n, err := parseFloat3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: normal: %w", lineNo, err)
			}
			obj.Normals = append(obj.Normals, n)

		case "vt":
			if len(fields) < 3 {
				return nil, fmt.Errorf("line %d: texcoord needs 2 components", lineNo)
			}
			u, err1 := strconv.ParseFloat(fields[1], 32)
			v, err2 := strconv.ParseFloat(fields[2], 32)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("line %d: bad texcoord", lineNo)
			}
			obj.TexCoords = append(obj.TexCoords, [2]float32{float32(u), float32(v)})

		case "f":
			face, err := parseOBJFace(fields[1:], obj, currentMat)
			if err != nil {
				return nil, fmt.Errorf("line %d: face: %w", lineNo, err)
			}
			current.Faces = append(current.Faces, face)

		case "o", "g":
			name := "default"
			if len(fields) > 1 {
				name = fields[1]
			}
			if len(current.Faces) > 0 {
				obj.Objects = append(obj.Objects, *current)
			}
			current = &OBJObject{Name: name}

		case "usemtl":
			if len(fields) > 1 {
				name := fields[1]
				idx, ok := matIndex[name]
				if !ok {
					idx = len(obj.Materials)
					matIndex[name] = idx
					obj.Materials = append(obj.Materials, name)
				}
				currentMat = idx
			}

		case "mtllib":
			if len(fields) > 1 {
				obj.MTLLibs = append(obj.MTLLibs, fields[1:]...)
			}

			// s (smoothing groups), l (lines), p (points) and anything
			// else carry no geometry we convert; skipped.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ data: %w", err)
	}

	if len(current.Faces) > 0 {
		obj.Objects = append(obj.Objects, *current)
	}
	return obj, nil
}

// parseOBJFace parses face corner tokens (v, v/vt, v//vn, v/vt/vn),
// resolving 1-based and negative indices to 0-based.
func parseOBJFace(tokens []string, obj *OBJ, material int) (OBJFace, error) {
	face := OBJFace{Material: material}
	for _, tok := range tokens {
		parts := strings.Split(tok, "/")

		v, err := resolveOBJIndex(parts[0], len(obj.Positions))
		if err != nil {
			return face, err
		}
		face.Vertices = append(face.Vertices, v)

		vt := -1
		if len(parts) > 1 && parts[1] != "" {
			if vt, err = resolveOBJIndex(parts[1], len(obj.TexCoords)); err != nil {
				return face, err
			}
		}
		face.TexCoords = append(face.TexCoords, vt)

		vn := -1
		if len(parts) > 2 && parts[2] != "" {
			if vn, err = resolveOBJIndex(parts[2], len(obj.Normals)); err != nil {
				return face, err
			}
		}
		face.Normals = append(face.Normals, vn)
	}
	return face, nil
}

// resolveOBJIndex converts a 1-based (or negative relative) OBJ index
// into a 0-based index.
func resolveOBJIndex(s string, count int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad index %q", s)
	}
	if n < 0 {
		return count + n, nil
	}
	return n - 1, nil
}

func parseFloat3(fields []string) ([3]float32, error) {
	var out [3]float32
	if len(fields) < 3 {
		return out, errors.New("needs 3 components")
	}
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return out, fmt.Errorf("bad float %q", fields[i])
		}
		out[i] = float32(f)
	}
	return out, nil
}

// FaceSets converts the parsed OBJ into assembler input, one set per
// (object, material) run. The set Material field indexes OBJ.Materials.
// When every corner of a set references a normal, positions and normals
// are re-paired into shared smoothed topology; otherwise positions pass
// through for flat shading.
func (o *OBJ) FaceSets() []scene.FaceSet {
	var sets []scene.FaceSet
	for _, object := range o.Objects {
		byMaterial := make(map[int][]OBJFace)
		var order []int
		for _, face := range object.Faces {
			if _, ok := byMaterial[face.Material]; !ok {
				order = append(order, face.Material)
			}
			byMaterial[face.Material] = append(byMaterial[face.Material], face)
		}

		for _, mat := range order {
			faces := byMaterial[mat]
			name := object.Name
			if len(order) > 1 && mat >= 0 && mat < len(o.Materials) {
				name = object.Name + "/" + o.Materials[mat]
			}
			sets = append(sets, o.buildFaceSet(name, faces, mat))
		}
	}
	return sets
}

func (o *OBJ) buildFaceSet(name string, faces []OBJFace, material int) scene.FaceSet {
	if material < 0 {
		material = scene.NoMaterial
	}
	fs := scene.FaceSet{Name: name, Material: material}

	smoothed := true
	for _, face := range faces {
		for _, vn := range face.Normals {
			if vn < 0 || vn >= len(o.Normals) {
				smoothed = false
			}
		}
	}

	if !smoothed {
		fs.Positions = o.Positions
		for _, face := range faces {
			fs.Faces = append(fs.Faces, face.Vertices)
		}
		return fs
	}

	// Pair up (position, normal) corners so the assembler can keep the
	// smoothed normals with shared topology.
	type corner struct{ v, vn int }
	index := make(map[corner]int)
	for _, face := range faces {
		mapped := make([]int, 0, len(face.Vertices))
		for i, v := range face.Vertices {
			c := corner{v: v, vn: face.Normals[i]}
			idx, ok := index[c]
			if !ok {
				if v < 0 || v >= len(o.Positions) {
					// Broken corner: a negative index is always out
					// of range, so the assembler skips the face.
					mapped = append(mapped, -1)
					continue
				}
				idx = len(fs.Positions)
				index[c] = idx
				fs.Positions = append(fs.Positions, o.Positions[v])
				fs.Normals = append(fs.Normals, o.Normals[c.vn])
			}
			mapped = append(mapped, idx)
		}
		fs.Faces = append(fs.Faces, mapped)
	}
	return fs
}

// WriteOBJ serializes a scene to OBJ text with node transforms baked
// into world space. When the scene carries materials the returned mtl
// payload is non-nil and the OBJ references it as mtlName.
func WriteOBJ(s *scene.Scene, mtlName string) (objData, mtlData []byte, err error) {
	var buf bytes.Buffer

	if len(s.Materials) > 0 && mtlName != "" {
		fmt.Fprintf(&buf, "mtllib %s\n", mtlName)
	}

	vertexBase := 1
	normalBase := 1
	meshNo := 0

	s.Walk(func(n *scene.Node, world m.Mat4) {
		writeOBJNode(&buf, s, n, world, &vertexBase, &normalBase, &meshNo)
	})

	if len(s.Materials) > 0 && mtlName != "" {
		mtlData = WriteMTL(s.Materials)
	}
	return buf.Bytes(), mtlData, nil
}

func writeOBJNode(buf *bytes.Buffer, s *scene.Scene, n *scene.Node, world m.Mat4, vertexBase, normalBase, meshNo *int) {
	if n.Mesh == nil {
		return
	}
	mesh := n.Mesh

	name := mesh.Name
	if name == "" {
		name = fmt.Sprintf("mesh%d", *meshNo)
	}
	*meshNo++
	fmt.Fprintf(buf, "o %s\n", name)

	for _, p := range mesh.Positions {
		tp := world.TransformPoint(p)
		fmt.Fprintf(buf, "v %g %g %g\n", tp[0], tp[1], tp[2])
	}
	hasNormals := len(mesh.Normals) == len(mesh.Positions)
	if hasNormals {
		for _, nrm := range mesh.Normals {
			tn := world.TransformDirection(nrm)
			fmt.Fprintf(buf, "vn %g %g %g\n", tn[0], tn[1], tn[2])
		}
	}

	if mesh.Material >= 0 && mesh.Material < len(s.Materials) {
		fmt.Fprintf(buf, "usemtl %s\n", s.Materials[mesh.Material].Name)
	}

	for i := 0; i+2 < len(mesh.Indices); i += 3 {
		a := int(mesh.Indices[i]) + *vertexBase
		b := int(mesh.Indices[i+1]) + *vertexBase
		c := int(mesh.Indices[i+2]) + *vertexBase
		if hasNormals {
			an := int(mesh.Indices[i]) + *normalBase
			bn := int(mesh.Indices[i+1]) + *normalBase
			cn := int(mesh.Indices[i+2]) + *normalBase
			fmt.Fprintf(buf, "f %d//%d %d//%d %d//%d\n", a, an, b, bn, c, cn)
		} else {
			fmt.Fprintf(buf, "f %d %d %d\n", a, b, c)
		}
	}

	*vertexBase += len(mesh.Positions)
	if hasNormals {
		*normalBase += len(mesh.Normals)
	}
}
