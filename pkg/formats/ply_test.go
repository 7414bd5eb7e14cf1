package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	gomath "math"
	"testing"
)

const quadPLY = `ply
format ascii 1.0
comment fixture
element vertex 4
property float x
property float y
property float z
element face 1
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
1 1 0
0 1 0
4 0 1 2 3
`

func TestParsePLY_ASCII(t *testing.T) {
	ply, err := ParsePLY([]byte(quadPLY))
	if err != nil {
		t.Fatalf("ParsePLY failed: %v", err)
	}

	if ply.Binary {
		t.Error("ascii PLY detected as binary")
	}
	if len(ply.Positions) != 4 {
		t.Errorf("vertex count = %d, want 4", len(ply.Positions))
	}
	if len(ply.Faces) != 1 || len(ply.Faces[0]) != 4 {
		t.Fatalf("faces = %v, want one quad", ply.Faces)
	}
	if len(ply.Comments) != 1 || ply.Comments[0] != "fixture" {
		t.Errorf("comments = %v", ply.Comments)
	}
}

func TestParsePLY_ASCIIWithNormals(t *testing.T) {
	data := `ply
format ascii 1.0
element vertex 3
property float x
property float y
property float z
property float nx
property float ny
property float nz
element face 1
property list uchar int vertex_indices
end_header
0 0 0 0 0 1
1 0 0 0 0 1
0 1 0 0 0 1
3 0 1 2
`
	ply, err := ParsePLY([]byte(data))
	if err != nil {
		t.Fatalf("ParsePLY failed: %v", err)
	}
	if len(ply.Normals) != 3 {
		t.Fatalf("normal count = %d, want 3", len(ply.Normals))
	}
	if ply.Normals[0] != [3]float32{0, 0, 1} {
		t.Errorf("normal 0 = %v, want {0 0 1}", ply.Normals[0])
	}

	fs := ply.FaceSet()
	if len(fs.Normals) != len(fs.Positions) {
		t.Error("FaceSet dropped the per-vertex normals")
	}
}

// makeBinaryPLY builds a binary_little_endian PLY with one triangle.
func makeBinaryPLY() []byte {
	var buf bytes.Buffer
	buf.WriteString("ply\nformat binary_little_endian 1.0\n")
	buf.WriteString("element vertex 3\nproperty float x\nproperty float y\nproperty float z\n")
	buf.WriteString("element face 1\nproperty list uchar int vertex_indices\nend_header\n")

	vertices := [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	for _, v := range vertices {
		for _, f := range v {
			binary.Write(&buf, binary.LittleEndian, gomath.Float32bits(f))
		}
	}
	buf.WriteByte(3)
	for _, idx := range []int32{0, 1, 2} {
		binary.Write(&buf, binary.LittleEndian, idx)
	}
	return buf.Bytes()
}

func TestParsePLY_Binary(t *testing.T) {
	ply, err := ParsePLY(makeBinaryPLY())
	if err != nil {
		t.Fatalf("ParsePLY failed: %v", err)
	}

	if !ply.Binary {
		t.Error("binary PLY not detected as binary")
	}
	if len(ply.Positions) != 3 {
		t.Errorf("vertex count = %d, want 3", len(ply.Positions))
	}
	if ply.Positions[1] != [3]float32{1, 0, 0} {
		t.Errorf("vertex 1 = %v, want {1 0 0}", ply.Positions[1])
	}
	if len(ply.Faces) != 1 || len(ply.Faces[0]) != 3 {
		t.Fatalf("faces = %v, want one triangle", ply.Faces)
	}
}

func TestParsePLY_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"bad magic", "plx\nformat ascii 1.0\nend_header\n", ErrInvalidPLYMagic},
		{"no end_header", "ply\nformat ascii 1.0\n", ErrMalformedPLYHeader},
		{"big endian", "ply\nformat binary_big_endian 1.0\nend_header\n", ErrUnsupportedPLYFormat},
		{"missing format", "ply\nelement vertex 0\nend_header\n", ErrMalformedPLYHeader},
		{"truncated body", "ply\nformat ascii 1.0\nelement vertex 2\nproperty float x\nproperty float y\nproperty float z\nend_header\n0 0 0\n", ErrTruncatedPLYData},
		{"negative count", "ply\nformat ascii 1.0\nelement vertex -1\nend_header\n", ErrInvalidPLYElement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePLY([]byte(tt.data)); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParsePLY_BinaryTruncatedMidScalar(t *testing.T) {
	// Cutting inside the final scalar must surface as truncation, not
	// parse as a zero-filled value.
	data := makeBinaryPLY()
	if _, err := ParsePLY(data[:len(data)-2]); !errors.Is(err, ErrTruncatedPLYData) {
		t.Errorf("err = %v, want ErrTruncatedPLYData", err)
	}
}

func TestWritePLY_RoundTrip(t *testing.T) {
	s := buildCubeScene()

	data := WritePLY(s)
	ply, err := ParsePLY(data)
	if err != nil {
		t.Fatalf("re-parsing written PLY failed: %v", err)
	}

	if len(ply.Faces) != 12 {
		t.Errorf("round-trip face count = %d, want 12", len(ply.Faces))
	}
	if len(ply.Positions) != 36 {
		t.Errorf("round-trip vertex count = %d, want 36", len(ply.Positions))
	}
	if len(ply.Normals) != 36 {
		t.Errorf("round-trip normal count = %d, want 36", len(ply.Normals))
	}
}
