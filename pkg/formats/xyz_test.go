package formats

import (
	"errors"
	"testing"
)

func TestParseXYZ(t *testing.T) {
	data := `# point cloud
0 0 0
1.5 2.5 3.5
// comment style two
-1, -2, -3
4 5 6 128 200 30
`
	fs, err := ParseXYZ([]byte(data))
	if err != nil {
		t.Fatalf("ParseXYZ failed: %v", err)
	}

	if len(fs.Positions) != 4 {
		t.Fatalf("point count = %d, want 4", len(fs.Positions))
	}
	if fs.Positions[1] != [3]float32{1.5, 2.5, 3.5} {
		t.Errorf("point 1 = %v", fs.Positions[1])
	}
	if fs.Positions[2] != [3]float32{-1, -2, -3} {
		t.Errorf("comma-separated point = %v", fs.Positions[2])
	}
	if len(fs.Faces) != 0 {
		t.Errorf("point cloud has %d faces, want 0", len(fs.Faces))
	}
}

func TestParseXYZ_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"comments only", "# nothing here\n"},
		{"bad coordinate", "1 2 x\n"},
		{"short line", "1 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseXYZ([]byte(tt.data)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestParseXYZ_EmptySentinel(t *testing.T) {
	if _, err := ParseXYZ([]byte("# only comments\n")); !errors.Is(err, ErrEmptyXYZData) {
		t.Errorf("err = %v, want ErrEmptyXYZData", err)
	}
}
