package rigid2d

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

const mathTol = 1e-12

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func vecEqual(a, b Vec2, tol float64) bool {
	return approx(a.X, b.X, tol) && approx(a.Y, b.Y, tol)
}

func matEqual(a, b []float64, tol float64) bool {
	for i := range a {
		if !approx(a[i], b[i], tol) {
			return false
		}
	}
	return true
}

func TestTransformRoundTrip(t *testing.T) {
	xf := NewTransform(Vec2{3.0, -2.0}, 0.7)
	p := Vec2{1.5, 4.25}

	got := xf.ApplyT(xf.Apply(p))
	if !vecEqual(got, p, mathTol) {
		t.Fatalf("ApplyT(Apply(p)) = %v, want %v", got, p)
	}

	inv := xf.MulT(xf)
	if !vecEqual(inv.P, Vec2{}, mathTol) || !approx(inv.Q.Angle(), 0.0, mathTol) {
		t.Fatalf("xf^-1 * xf = %+v, want identity", inv)
	}
}

func TestRotCompose(t *testing.T) {
	q := NewRot(0.3).Mul(NewRot(0.4))
	if !approx(q.Angle(), 0.7, mathTol) {
		t.Fatalf("angle = %v, want 0.7", q.Angle())
	}
	r := NewRot(0.3).MulT(NewRot(0.7))
	if !approx(r.Angle(), 0.4, mathTol) {
		t.Fatalf("angle = %v, want 0.4", r.Angle())
	}
}

func TestVec2Normalize(t *testing.T) {
	v := Vec2{3.0, 4.0}
	if length := v.Normalize(); length != 5.0 {
		t.Fatalf("length = %v, want 5", length)
	}
	if !vecEqual(v, Vec2{0.6, 0.8}, mathTol) {
		t.Fatalf("normalized = %v", v)
	}

	var zero Vec2
	if length := zero.Normalize(); length != 0.0 || zero != (Vec2{}) {
		t.Fatalf("zero vector normalized to %v (%v)", zero, length)
	}
}

func TestSweepAdvance(t *testing.T) {
	s := Sweep{C0: Vec2{0.0, 0.0}, C: Vec2{10.0, 0.0}, A0: 0.0, A: 1.0}
	s.Advance(0.5)

	if s.Alpha0 != 0.5 {
		t.Fatalf("alpha0 = %v, want 0.5", s.Alpha0)
	}
	if !vecEqual(s.C0, Vec2{5.0, 0.0}, mathTol) || !approx(s.A0, 0.5, mathTol) {
		t.Fatalf("advanced sweep = %+v", s)
	}

	// The end of the sweep is unchanged and the interpolation now covers
	// [alpha0, 1].
	xf := s.Transform(1.0)
	if !vecEqual(xf.P, Vec2{10.0, 0.0}, mathTol) {
		t.Fatalf("end transform = %v, want (10, 0)", xf.P)
	}
}

func TestSweepNormalize(t *testing.T) {
	s := Sweep{A0: 5.0 * math.Pi, A: 5.5 * math.Pi}
	s.Normalize()

	if !approx(s.A0, math.Pi, 1e-9) {
		t.Fatalf("a0 = %v, want pi", s.A0)
	}
	if !approx(s.A-s.A0, 0.5*math.Pi, 1e-9) {
		t.Fatalf("sweep span changed: %v", s.A-s.A0)
	}
}

func TestSolveHelpers(t *testing.T) {
	k := Mat33{
		4, 1, 0,
		1, 3, 1,
		0, 1, 2,
	}
	b := Vec3{1, 2, 3}

	x := solve33(k, b)
	if got := k.Mul3x1(x); !matEqual(got[:], b[:], 1e-12) {
		t.Fatalf("K*x = %v, want %v", got, b)
	}

	x2 := solve22(k, Vec2{1, 2})
	upper := Mat22{k[0], k[1], k[3], k[4]}
	if got := mulMat22(upper, x2); !vecEqual(got, Vec2{1, 2}, 1e-12) {
		t.Fatalf("K22*x = %v, want (1, 2)", got)
	}

	inv := symInverse33(k)
	if inv[3] != inv[1] || inv[6] != inv[2] || inv[7] != inv[5] {
		t.Fatalf("symInverse33 not symmetric: %v", inv)
	}
	prod, ident := k.Mul3(inv), mgl64.Ident3()
	if !matEqual(prod[:], ident[:], 1e-12) {
		t.Fatalf("K * K^-1 = %v", k.Mul3(inv))
	}

	if got := solve33(Mat33{}, b); got != (Vec3{}) {
		t.Fatalf("singular solve = %v, want zero", got)
	}
}
