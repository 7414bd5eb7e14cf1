package formats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tessera3d/meshconv/pkg/scene"
)

const cubeOBJ = `# unit-radius cube
mtllib cube.mtl
o cube
v -1 -1 -1
v 1 -1 -1
v 1 1 -1
v -1 1 -1
v -1 -1 1
v 1 -1 1
v 1 1 1
v -1 1 1
usemtl gray
f 1 2 3 4
f 5 8 7 6
f 1 5 6 2
f 2 6 7 3
f 3 7 8 4
f 4 8 5 1
`

func TestParseOBJ_Cube(t *testing.T) {
	obj, err := ParseOBJ([]byte(cubeOBJ))
	if err != nil {
		t.Fatalf("ParseOBJ failed: %v", err)
	}

	if len(obj.Positions) != 8 {
		t.Errorf("vertex count = %d, want 8", len(obj.Positions))
	}
	if len(obj.Objects) != 1 {
		t.Fatalf("object count = %d, want 1", len(obj.Objects))
	}
	if len(obj.Objects[0].Faces) != 6 {
		t.Errorf("face count = %d, want 6", len(obj.Objects[0].Faces))
	}
	if len(obj.MTLLibs) != 1 || obj.MTLLibs[0] != "cube.mtl" {
		t.Errorf("MTLLibs = %v, want [cube.mtl]", obj.MTLLibs)
	}
	if len(obj.Materials) != 1 || obj.Materials[0] != "gray" {
		t.Errorf("Materials = %v, want [gray]", obj.Materials)
	}
}

func TestParseOBJ_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"whitespace only", "   \n\t\n"},
		{"bad vertex", "v 1 2 x\n"},
		{"short vertex", "v 1 2\n"},
		{"bad face index", "v 0 0 0\nf 1 2 q\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseOBJ([]byte(tt.data)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestParseOBJ_NegativeIndices(t *testing.T) {
	data := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf -3 -2 -1\n"

	obj, err := ParseOBJ([]byte(data))
	if err != nil {
		t.Fatalf("ParseOBJ failed: %v", err)
	}

	face := obj.Objects[0].Faces[0]
	want := []int{0, 1, 2}
	for i, v := range face.Vertices {
		if v != want[i] {
			t.Errorf("corner %d = %d, want %d", i, v, want[i])
		}
	}
}

func TestParseOBJ_NormalIndices(t *testing.T) {
	data := "v 0 0 0\nv 1 0 0\nv 0 1 0\nvn 0 0 1\nf 1//1 2//1 3//1\n"

	obj, err := ParseOBJ([]byte(data))
	if err != nil {
		t.Fatalf("ParseOBJ failed: %v", err)
	}

	face := obj.Objects[0].Faces[0]
	for i, vn := range face.Normals {
		if vn != 0 {
			t.Errorf("corner %d normal index = %d, want 0", i, vn)
		}
	}
}

func TestOBJ_FaceSets_Flat(t *testing.T) {
	obj, err := ParseOBJ([]byte(cubeOBJ))
	if err != nil {
		t.Fatalf("ParseOBJ failed: %v", err)
	}

	sets := obj.FaceSets()
	if len(sets) != 1 {
		t.Fatalf("face set count = %d, want 1", len(sets))
	}

	fs := sets[0]
	if len(fs.Positions) != 8 {
		t.Errorf("positions = %d, want 8 (raw topology)", len(fs.Positions))
	}
	if fs.Normals != nil {
		t.Error("no source normals expected")
	}
	if fs.Material != 0 {
		t.Errorf("material = %d, want 0", fs.Material)
	}

	mesh, err := scene.Assemble(fs, scene.AssembleOptions{})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if got := mesh.TriangleCount(); got != 12 {
		t.Errorf("triangle count = %d, want 12", got)
	}
	// Flat shading unshares: 12 triangles * 3 corners.
	if len(mesh.Positions) != 36 {
		t.Errorf("assembled vertices = %d, want 36", len(mesh.Positions))
	}
}

func TestOBJ_FaceSets_Smoothed(t *testing.T) {
	data := `v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vn 0 0 1
f 1//1 2//1 3//1 4//1
`
	obj, err := ParseOBJ([]byte(data))
	if err != nil {
		t.Fatalf("ParseOBJ failed: %v", err)
	}

	sets := obj.FaceSets()
	if len(sets) != 1 {
		t.Fatalf("face set count = %d, want 1", len(sets))
	}

	fs := sets[0]
	if len(fs.Normals) != len(fs.Positions) {
		t.Fatalf("smoothed set: normals %d != positions %d", len(fs.Normals), len(fs.Positions))
	}
	// 4 unique (vertex, normal) corners.
	if len(fs.Positions) != 4 {
		t.Errorf("paired corners = %d, want 4", len(fs.Positions))
	}
}

func TestOBJ_FaceSets_SmoothedBrokenCornerSkipped(t *testing.T) {
	// Face 2 references vertex 9, which never appears. Faces 3 and 4
	// keep growing the paired corner table past the broken face, so
	// the marker must stay out of range no matter how large the set
	// gets.
	data := `v 0 0 0
v 1 0 0
v 0 1 0
vn 0 0 1
vn 0 1 0
vn 1 0 0
f 1//1 2//1 3//1
f 1//1 2//1 9//1
f 1//2 2//2 3//2
f 1//3 2//3 3//3
`
	obj, err := ParseOBJ([]byte(data))
	if err != nil {
		t.Fatalf("ParseOBJ failed: %v", err)
	}

	sets := obj.FaceSets()
	if len(sets) != 1 {
		t.Fatalf("face set count = %d, want 1", len(sets))
	}

	mesh, err := scene.Assemble(sets[0], scene.AssembleOptions{})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if mesh.TriangleCount() != 3 {
		t.Errorf("triangle count = %d, want 3 (broken face skipped)", mesh.TriangleCount())
	}
}

func TestWriteOBJ_RoundTrip(t *testing.T) {
	s := buildCubeScene()

	objData, mtlData, err := WriteOBJ(s, "out.mtl")
	if err != nil {
		t.Fatalf("WriteOBJ failed: %v", err)
	}
	if len(objData) == 0 {
		t.Fatal("empty OBJ output")
	}
	if mtlData != nil {
		t.Error("no materials in scene, mtl payload should be nil")
	}

	parsed, err := ParseOBJ(objData)
	if err != nil {
		t.Fatalf("re-parsing written OBJ failed: %v", err)
	}

	faceCount := 0
	for _, o := range parsed.Objects {
		faceCount += len(o.Faces)
	}
	if faceCount != 12 {
		t.Errorf("round-trip face count = %d, want 12", faceCount)
	}
}

func TestWriteOBJ_Materials(t *testing.T) {
	s := buildCubeScene()
	s.Materials = []scene.Material{
		{Name: "gray", Diffuse: [3]float32{0.5, 0.5, 0.5}, Alpha: 1},
	}
	s.Meshes()[0].Material = 0

	objData, mtlData, err := WriteOBJ(s, "out.mtl")
	if err != nil {
		t.Fatalf("WriteOBJ failed: %v", err)
	}
	if !bytes.Contains(objData, []byte("mtllib out.mtl")) {
		t.Error("OBJ output missing mtllib reference")
	}
	if !bytes.Contains(objData, []byte("usemtl gray")) {
		t.Error("OBJ output missing usemtl")
	}
	if !strings.Contains(string(mtlData), "newmtl gray") {
		t.Error("MTL output missing newmtl")
	}
}

func TestParseMTL(t *testing.T) {
	data := `# materials
newmtl gray
Ka 0.1 0.1 0.1
Kd 0.5 0.5 0.5
Ks 0.9 0.9 0.9
d 0.75
map_Kd gray.png

newmtl red
Kd 1 0 0
Tr 0.25
`
	materials := ParseMTL([]byte(data))
	if len(materials) != 2 {
		t.Fatalf("material count = %d, want 2", len(materials))
	}

	gray := materials[0]
	if gray.Name != "gray" {
		t.Errorf("name = %q, want gray", gray.Name)
	}
	if gray.Diffuse != [3]float32{0.5, 0.5, 0.5} {
		t.Errorf("diffuse = %v", gray.Diffuse)
	}
	if gray.Alpha != 0.75 {
		t.Errorf("alpha = %f, want 0.75", gray.Alpha)
	}
	if gray.Texture != "gray.png" {
		t.Errorf("texture = %q, want gray.png", gray.Texture)
	}

	red := materials[1]
	if red.Alpha != 0.75 {
		t.Errorf("Tr alpha = %f, want 0.75", red.Alpha)
	}
}

func TestMTL_RoundTrip(t *testing.T) {
	in := []scene.Material{
		{Name: "a", Diffuse: [3]float32{1, 0, 0}, Alpha: 1},
		{Name: "b", Diffuse: [3]float32{0, 1, 0}, Alpha: 0.5, Texture: "b.png"},
	}

	out := ParseMTL(WriteMTL(in))
	if len(out) != len(in) {
		t.Fatalf("round-trip count = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].Name != in[i].Name || out[i].Diffuse != in[i].Diffuse || out[i].Alpha != in[i].Alpha {
			t.Errorf("material %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

// buildCubeScene returns a single-mesh scene with a flat-shaded
// unit-radius cube (12 triangles, 36 unshared vertices).
func buildCubeScene() *scene.Scene {
	obj, err := ParseOBJ([]byte(cubeOBJ))
	if err != nil {
		panic(err)
	}
	s := scene.New()
	for _, fs := range obj.FaceSets() {
		fs.Material = scene.NoMaterial
		mesh, err := scene.Assemble(fs, scene.AssembleOptions{})
		if err != nil {
			panic(err)
		}
		s.AddMesh(mesh)
	}
	return s
}

func TestBuildCubeScene_Bounds(t *testing.T) {
	s := buildCubeScene()
	if size := s.Bounds().Size(); size != [3]float32{2, 2, 2} {
		t.Errorf("cube bounds size = %v, want {2 2 2}", size)
	}
}
