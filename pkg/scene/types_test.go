package scene

import (
	"testing"

	m "github.com/tessera3d/meshconv/pkg/math"
)

func cubeMesh() *Mesh {
	// Unit-radius cube corners, shared topology, 12 triangles.
	return &Mesh{
		Name: "cube",
		Positions: [][3]float32{
			{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
			{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
		},
		Indices: []uint32{
			0, 1, 2, 0, 2, 3,
			4, 6, 5, 4, 7, 6,
			0, 4, 5, 0, 5, 1,
			1, 5, 6, 1, 6, 2,
			2, 6, 7, 2, 7, 3,
			3, 7, 4, 3, 4, 0,
		},
		Material: NoMaterial,
	}
}

func TestScene_Counts(t *testing.T) {
	s := New()
	s.AddMesh(cubeMesh())

	if got := s.MeshCount(); got != 1 {
		t.Errorf("MeshCount = %d, want 1", got)
	}
	if got := s.FaceCount(); got != 12 {
		t.Errorf("FaceCount = %d, want 12", got)
	}
	if got := s.NodeCount(); got != 2 {
		t.Errorf("NodeCount = %d, want 2 (root + mesh node)", got)
	}
}

func TestScene_Bounds(t *testing.T) {
	s := New()
	s.AddMesh(cubeMesh())

	b := s.Bounds()
	if b.Size() != [3]float32{2, 2, 2} {
		t.Errorf("bounds size = %v, want {2 2 2}", b.Size())
	}
	if b.Center() != [3]float32{0, 0, 0} {
		t.Errorf("bounds center = %v, want origin", b.Center())
	}
}

func TestScene_BoundsHonorTransforms(t *testing.T) {
	s := New()
	node := s.AddMesh(cubeMesh())
	node.Transform = m.Translate(10, 0, 0)

	b := s.Bounds()
	if b.Center() != [3]float32{10, 0, 0} {
		t.Errorf("translated bounds center = %v, want {10 0 0}", b.Center())
	}
	if b.Size() != [3]float32{2, 2, 2} {
		t.Errorf("translated bounds size = %v, want {2 2 2}", b.Size())
	}
}

func TestScene_EmptyBounds(t *testing.T) {
	if b := New().Bounds(); b != (Bounds{}) {
		t.Errorf("empty scene bounds = %v, want zero", b)
	}
}

func TestScene_WalkOrder(t *testing.T) {
	s := New()
	a := &Node{Name: "a", Transform: m.Identity()}
	b := &Node{Name: "b", Transform: m.Identity()}
	a.Children = append(a.Children, b)
	s.Root.Children = append(s.Root.Children, a)

	var names []string
	s.Walk(func(n *Node, _ m.Mat4) { names = append(names, n.Name) })

	want := []string{"root", "a", "b"}
	if len(names) != len(want) {
		t.Fatalf("visited %d nodes, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("visit %d = %q, want %q", i, names[i], want[i])
		}
	}
}
