package math

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("identity = %v, want {0 0 0 1}", q)
	}
	if !q.Mat4().IsIdentity() {
		t.Error("identity quaternion does not produce identity matrix")
	}
}

func TestQuat_Normalize(t *testing.T) {
	q := Quat{X: 2, Y: 0, Z: 0, W: 0}
	n := q.Normalize()
	if !approxEqual(n.X, 1) || !approxEqual(n.W, 0) {
		t.Errorf("Normalize = %v, want {1 0 0 0}", n)
	}

	// Near-zero quaternion falls back to identity.
	z := Quat{}.Normalize()
	if z != QuatIdentity() {
		t.Errorf("zero quaternion Normalize = %v, want identity", z)
	}
}

func TestQuat_Mat4Rotation(t *testing.T) {
	tests := []struct {
		name  string
		axis  Vec3
		angle float32
		in    [3]float32
		want  [3]float32
	}{
		{"90 deg Z: x to y", Vec3{0, 0, 1}, math32.Pi / 2, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}},
		{"90 deg X: y to z", Vec3{1, 0, 0}, math32.Pi / 2, [3]float32{0, 1, 0}, [3]float32{0, 0, 1}},
		{"180 deg Y: x to -x", Vec3{0, 1, 0}, math32.Pi, [3]float32{1, 0, 0}, [3]float32{-1, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := QuatFromAxisAngle(tt.axis, tt.angle).Mat4()
			got := m.TransformPoint(tt.in)
			for i := 0; i < 3; i++ {
				if !approxEqual(got[i], tt.want[i]) {
					t.Errorf("rotated point = %v, want ~%v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestQuat_Dot(t *testing.T) {
	a := QuatIdentity()
	if got := a.Dot(a); !approxEqual(got, 1) {
		t.Errorf("Dot = %f, want 1", got)
	}
}
