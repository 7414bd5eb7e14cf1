package scene

import (
	"errors"
	"testing"
)

// quadFaceSet is a unit quad in the XY plane with a single 4-corner face.
func quadFaceSet() FaceSet {
	return FaceSet{
		Name: "quad",
		Positions: [][3]float32{
			{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		},
		Faces:    [][]int{{0, 1, 2, 3}},
		Material: NoMaterial,
	}
}

func TestAssemble_FanTriangulation(t *testing.T) {
	mesh, err := Assemble(quadFaceSet(), AssembleOptions{})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	if got := mesh.TriangleCount(); got != 2 {
		t.Errorf("triangle count = %d, want 2", got)
	}
	if len(mesh.Indices)%3 != 0 {
		t.Errorf("index count %d not a multiple of 3", len(mesh.Indices))
	}

	// Flat shading unshares corners: 2 triangles * 3 corners.
	if len(mesh.Positions) != 6 {
		t.Errorf("vertex count = %d, want 6", len(mesh.Positions))
	}
	if len(mesh.Normals) != len(mesh.Positions) {
		t.Errorf("normal count %d != vertex count %d", len(mesh.Normals), len(mesh.Positions))
	}
	for _, idx := range mesh.Indices {
		if int(idx) >= len(mesh.Positions) {
			t.Errorf("index %d out of range (%d vertices)", idx, len(mesh.Positions))
		}
	}
}

func TestAssemble_NgonFan(t *testing.T) {
	// A convex pentagon fans into 3 triangles.
	fs := FaceSet{
		Positions: [][3]float32{
			{0, 0, 0}, {2, 0, 0}, {3, 2, 0}, {1, 3, 0}, {-1, 2, 0},
		},
		Faces:    [][]int{{0, 1, 2, 3, 4}},
		Material: NoMaterial,
	}

	mesh, err := Assemble(fs, AssembleOptions{})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if got := mesh.TriangleCount(); got != 3 {
		t.Errorf("triangle count = %d, want 3", got)
	}
}

func TestAssemble_FaceNormals(t *testing.T) {
	mesh, err := Assemble(quadFaceSet(), AssembleOptions{})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	// CCW quad in the XY plane faces +Z.
	for i, n := range mesh.Normals {
		if n != [3]float32{0, 0, 1} {
			t.Errorf("normal %d = %v, want {0 0 1}", i, n)
		}
	}
}

func TestAssemble_SmoothedNormalsPassThrough(t *testing.T) {
	fs := quadFaceSet()
	fs.Normals = [][3]float32{
		{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1},
	}

	mesh, err := Assemble(fs, AssembleOptions{})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	// Shared topology kept: 4 vertices, 6 indices.
	if len(mesh.Positions) != 4 {
		t.Errorf("vertex count = %d, want 4 (shared)", len(mesh.Positions))
	}
	if got := mesh.TriangleCount(); got != 2 {
		t.Errorf("triangle count = %d, want 2", got)
	}
	for i, n := range mesh.Normals {
		if n != fs.Normals[i] {
			t.Errorf("normal %d = %v, want pass-through %v", i, n, fs.Normals[i])
		}
	}
}

func TestAssemble_SkipsShortAndBrokenFaces(t *testing.T) {
	fs := FaceSet{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces: [][]int{
			{0, 1},       // too short: skipped
			{0, 1, 7},    // out of range: skipped
			{0, 1, 2},    // valid
			{0, -1, 2},   // negative index: skipped
		},
		Material: NoMaterial,
	}

	mesh, err := Assemble(fs, AssembleOptions{})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if got := mesh.TriangleCount(); got != 1 {
		t.Errorf("triangle count = %d, want 1", got)
	}
}

func TestAssemble_DegenerateTriangleZeroNormal(t *testing.T) {
	// All three corners collinear.
	fs := FaceSet{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}},
		Faces:     [][]int{{0, 1, 2}},
		Material:  NoMaterial,
	}

	mesh, err := Assemble(fs, AssembleOptions{})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if got := mesh.TriangleCount(); got != 1 {
		t.Fatalf("triangle count = %d, want 1 (degenerate kept)", got)
	}
	for _, n := range mesh.Normals {
		if n != [3]float32{0, 0, 0} {
			t.Errorf("degenerate normal = %v, want zero", n)
		}
	}
}

func TestAssemble_NoGeometry(t *testing.T) {
	_, err := Assemble(FaceSet{Material: NoMaterial}, AssembleOptions{})
	if !errors.Is(err, ErrNoGeometry) {
		t.Errorf("err = %v, want ErrNoGeometry", err)
	}
}

func TestAssemble_PointCloud(t *testing.T) {
	fs := FaceSet{
		Positions: [][3]float32{{0, 0, 0}, {1, 1, 1}},
		Material:  NoMaterial,
	}

	mesh, err := Assemble(fs, AssembleOptions{})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if len(mesh.Positions) != 2 {
		t.Errorf("vertex count = %d, want 2", len(mesh.Positions))
	}
	if len(mesh.Indices) != 0 {
		t.Errorf("index count = %d, want 0", len(mesh.Indices))
	}
}

func TestAssemble_Welding(t *testing.T) {
	// Two triangles sharing an edge, with the shared corners duplicated
	// at distances below the tolerance.
	fs := FaceSet{
		Positions: [][3]float32{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
			{1.000001, 0, 0}, {0, 1.000001, 0}, {1, 1, 0},
		},
		Normals: [][3]float32{
			{0, 0, 1}, {0, 0, 1}, {0, 0, 1},
			{0, 0, 1}, {0, 0, 1}, {0, 0, 1},
		},
		Faces:    [][]int{{0, 1, 2}, {3, 5, 4}},
		Material: NoMaterial,
	}

	mesh, err := Assemble(fs, AssembleOptions{WeldTolerance: 0.01})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if len(mesh.Positions) != 4 {
		t.Errorf("welded vertex count = %d, want 4", len(mesh.Positions))
	}
	if got := mesh.TriangleCount(); got != 2 {
		t.Errorf("triangle count = %d, want 2", got)
	}
}

func TestGeometryError_Message(t *testing.T) {
	cause := errors.New("no faces")
	err := &GeometryError{Index: 3, SourceType: "brep.Solid", Cause: cause}

	want := "geometry object 3 (brep.Solid): no faces"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Error("GeometryError does not unwrap to its cause")
	}
}
