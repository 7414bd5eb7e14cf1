package scene

import (
	"errors"

	m "github.com/tessera3d/meshconv/pkg/math"
)

// Assembler errors.
var (
	// ErrNoGeometry means a face set carried neither positions nor faces.
	ErrNoGeometry = errors.New("face set has no geometry")
)

// FaceSet is the raw polygon soup a loader hands the assembler: source
// vertex positions, optional per-vertex smoothed normals (parallel to
// Positions), and polygon faces as corner index lists of any length.
type FaceSet struct {
	Name      string
	Positions [][3]float32
	Normals   [][3]float32
	Faces     [][]int
	Material  int // index into the scene material table, NoMaterial when unset
}

// AssembleOptions controls mesh assembly.
type AssembleOptions struct {
	// WeldTolerance merges source positions closer than this distance
	// before triangulation. Zero disables welding.
	WeldTolerance float32
}

// Assemble builds a valid triangle mesh from a face set.
//
// Polygons with more than three corners are fan-triangulated from their
// first corner: (v0,v1,v2), (v0,v2,v3), … — correct for convex faces,
// which covers quads and planar CAD n-gons; concave faces may yield
// degenerate triangles. Faces with fewer than three corners or with
// out-of-range corner indices are skipped.
//
// When the set carries per-vertex normals they pass through unmodified
// and the source topology is kept shared. Otherwise every triangle gets
// its face normal on all three corners, which requires unsharing the
// corners. A degenerate triangle yields a zero normal, not an error.
func Assemble(fs FaceSet, opts AssembleOptions) (*Mesh, error) {
	if len(fs.Positions) == 0 && len(fs.Faces) == 0 {
		return nil, ErrNoGeometry
	}

	material := fs.Material
	if material < 0 {
		material = NoMaterial
	}

	positions := fs.Positions
	normals := fs.Normals
	faces := fs.Faces

	if opts.WeldTolerance > 0 {
		positions, normals, faces = weld(positions, normals, faces, opts.WeldTolerance)
	}

	// Point clouds and other face-less sets pass through as-is.
	if len(faces) == 0 {
		return &Mesh{
			Name:      fs.Name,
			Positions: positions,
			Normals:   normals,
			Material:  material,
		}, nil
	}

	if len(normals) == len(positions) && len(normals) > 0 {
		return assembleShared(fs.Name, positions, normals, faces, material), nil
	}
	return assembleFlat(fs.Name, positions, faces, material), nil
}

// assembleShared keeps the source vertex topology and pass-through
// normals, emitting fan-triangulated indices into it.
func assembleShared(name string, positions, normals [][3]float32, faces [][]int, material int) *Mesh {
	mesh := &Mesh{
		Name:      name,
		Positions: positions,
		Normals:   normals,
		Material:  material,
	}

	for _, face := range faces {
		if len(face) < 3 || !faceInRange(face, len(positions)) {
			continue
		}
		for i := 1; i+1 < len(face); i++ {
			mesh.Indices = append(mesh.Indices,
				uint32(face[0]), uint32(face[i]), uint32(face[i+1]))
		}
	}
	return mesh
}

// assembleFlat unshares corners so each triangle can carry its face
// normal on all three vertices.
func assembleFlat(name string, positions [][3]float32, faces [][]int, material int) *Mesh {
	mesh := &Mesh{Name: name, Material: material}

	for _, face := range faces {
		if len(face) < 3 || !faceInRange(face, len(positions)) {
			continue
		}
		for i := 1; i+1 < len(face); i++ {
			v0 := positions[face[0]]
			v1 := positions[face[i]]
			v2 := positions[face[i+1]]

			normal := FaceNormal(v0, v1, v2)

			base := uint32(len(mesh.Positions))
			mesh.Positions = append(mesh.Positions, v0, v1, v2)
			mesh.Normals = append(mesh.Normals, normal, normal, normal)
			mesh.Indices = append(mesh.Indices, base, base+1, base+2)
		}
	}
	return mesh
}

// FaceNormal computes normalize(cross(v1-v0, v2-v0)). Degenerate
// triangles produce the zero normal.
func FaceNormal(v0, v1, v2 [3]float32) [3]float32 {
	e1 := m.FromArray(v1).Sub(m.FromArray(v0))
	e2 := m.FromArray(v2).Sub(m.FromArray(v0))
	return e1.Cross(e2).Normalize().Array()
}

func faceInRange(face []int, vertexCount int) bool {
	for _, idx := range face {
		if idx < 0 || idx >= vertexCount {
			return false
		}
	}
	return true
}

// weld merges positions closer than tol, remapping faces onto the
// deduplicated vertex array. Normals of merged vertices keep the first
// occurrence. Quantizing to a tol-sized grid keeps this O(n).
func weld(positions, normals [][3]float32, faces [][]int, tol float32) ([][3]float32, [][3]float32, [][]int) {
	type cell struct{ x, y, z int32 }

	remap := make([]int, len(positions))
	seen := make(map[cell]int, len(positions))
	var outPos [][3]float32
	var outNorm [][3]float32

	hasNormals := len(normals) == len(positions)

	for i, p := range positions {
		key := cell{
			x: int32(p[0] / tol),
			y: int32(p[1] / tol),
			z: int32(p[2] / tol),
		}
		if j, ok := seen[key]; ok && m.FromArray(p).Distance(m.FromArray(outPos[j])) <= tol {
			remap[i] = j
			continue
		}
		seen[key] = len(outPos)
		remap[i] = len(outPos)
		outPos = append(outPos, p)
		if hasNormals {
			outNorm = append(outNorm, normals[i])
		}
	}

	outFaces := make([][]int, len(faces))
	for i, face := range faces {
		mapped := make([]int, len(face))
		for j, idx := range face {
			if idx >= 0 && idx < len(remap) {
				mapped[j] = remap[idx]
			} else {
				mapped[j] = idx
			}
		}
		outFaces[i] = mapped
	}

	return outPos, outNorm, outFaces
}
