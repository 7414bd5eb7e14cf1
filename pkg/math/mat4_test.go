package math

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestMat4_Identity(t *testing.T) {
	m := Identity()
	p := [3]float32{1, 2, 3}

	if got := m.TransformPoint(p); got != p {
		t.Errorf("identity transform = %v, want %v", got, p)
	}
	if !m.IsIdentity() {
		t.Error("IsIdentity() = false for identity matrix")
	}
}

func TestMat4_Translate(t *testing.T) {
	m := Translate(10, 20, 30)

	got := m.TransformPoint([3]float32{1, 1, 1})
	want := [3]float32{11, 21, 31}
	if got != want {
		t.Errorf("TransformPoint = %v, want %v", got, want)
	}

	// Directions ignore translation.
	d := m.TransformDirection([3]float32{1, 0, 0})
	if d != [3]float32{1, 0, 0} {
		t.Errorf("TransformDirection = %v, want {1 0 0}", d)
	}
}

func TestMat4_Scale(t *testing.T) {
	m := Scale(2, 3, 4)

	got := m.TransformPoint([3]float32{1, 1, 1})
	want := [3]float32{2, 3, 4}
	if got != want {
		t.Errorf("TransformPoint = %v, want %v", got, want)
	}
}

func TestMat4_RotateAxis(t *testing.T) {
	// 90 degrees around Z maps X onto Y.
	m := RotateAxis([3]float32{0, 0, 1}, math32.Pi/2)

	got := m.TransformPoint([3]float32{1, 0, 0})
	if !approxEqual(got[0], 0) || !approxEqual(got[1], 1) || !approxEqual(got[2], 0) {
		t.Errorf("rotated point = %v, want ~{0 1 0}", got)
	}
}

func TestMat4_Mul(t *testing.T) {
	// Translate then scale: point should be scaled after translation.
	m := Scale(2, 2, 2).Mul(Translate(1, 0, 0))

	got := m.TransformPoint([3]float32{0, 0, 0})
	want := [3]float32{2, 0, 0}
	if got != want {
		t.Errorf("composed transform = %v, want %v", got, want)
	}
}

func TestMat4_Compose(t *testing.T) {
	m := Compose(Vec3{5, 0, 0}, QuatIdentity(), Vec3{2, 2, 2})

	got := m.TransformPoint([3]float32{1, 1, 1})
	want := [3]float32{7, 2, 2}
	if !approxEqual(got[0], want[0]) || !approxEqual(got[1], want[1]) || !approxEqual(got[2], want[2]) {
		t.Errorf("composed TRS point = %v, want %v", got, want)
	}
}

func TestMat4_ComposeRotation(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{0, 0, 1}, math32.Pi/2)
	m := Compose(Vec3{}, q, Vec3{1, 1, 1})

	got := m.TransformPoint([3]float32{1, 0, 0})
	if !approxEqual(got[0], 0) || !approxEqual(got[1], 1) {
		t.Errorf("rotated point = %v, want ~{0 1 0}", got)
	}
}
