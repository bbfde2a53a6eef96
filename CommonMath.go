package rigid2d

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// IsValid reports whether x is neither NaN nor infinite.
func IsValid(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Vec2 is a 2D column vector.
type Vec2 struct {
	X, Y float64
}

func NewVec2(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{v.X - o.X, v.Y - o.Y}
}

func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{s * v.X, s * v.Y}
}

func (v Vec2) Neg() Vec2 {
	return Vec2{-v.X, -v.Y}
}

func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Cross returns the z component of the 3D cross product of v and o.
func (v Vec2) Cross(o Vec2) float64 {
	return v.X*o.Y - v.Y*o.X
}

func (v Vec2) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

func (v Vec2) LengthSquared() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Normalize converts v into a unit vector in place and returns the original length.
// Vectors shorter than Epsilon are left untouched and 0 is returned.
func (v *Vec2) Normalize() float64 {
	length := v.Length()
	if length < Epsilon {
		return 0.0
	}
	inv := 1.0 / length
	v.X *= inv
	v.Y *= inv
	return length
}

// Normalized returns the unit vector along v (or v itself when too short).
func (v Vec2) Normalized() Vec2 {
	v.Normalize()
	return v
}

func (v Vec2) IsValid() bool {
	return IsValid(v.X) && IsValid(v.Y)
}

// Skew returns the vector rotated 90 degrees counter-clockwise, i.e. CrossSV(1, v).
func (v Vec2) Skew() Vec2 {
	return Vec2{-v.Y, v.X}
}

// CrossVS is the cross product of a vector and a scalar (the scalar being a z-axis vector).
func CrossVS(a Vec2, s float64) Vec2 {
	return Vec2{s * a.Y, -s * a.X}
}

// CrossSV is the cross product of a scalar (z-axis) and a vector.
func CrossSV(s float64, a Vec2) Vec2 {
	return Vec2{-s * a.Y, s * a.X}
}

func Distance(a, b Vec2) float64 {
	return a.Sub(b).Length()
}

func DistanceSquared(a, b Vec2) float64 {
	return a.Sub(b).LengthSquared()
}

func MinVec2(a, b Vec2) Vec2 {
	return Vec2{math.Min(a.X, b.X), math.Min(a.Y, b.Y)}
}

func MaxVec2(a, b Vec2) Vec2 {
	return Vec2{math.Max(a.X, b.X), math.Max(a.Y, b.Y)}
}

func AbsVec2(a Vec2) Vec2 {
	return Vec2{math.Abs(a.X), math.Abs(a.Y)}
}

func clamp(a, low, high float64) float64 {
	return math.Max(low, math.Min(a, high))
}

func nextPowerOfTwo(x uint32) uint32 {
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	return x + 1
}

///////////////////////////////////////////////////////////////////////////////
// Small dense matrices. Joints keep their effective masses in mgl64 matrices
// (column-major); the helpers below bridge them with Vec2.

type Vec3 = mgl64.Vec3
type Mat22 = mgl64.Mat2
type Mat33 = mgl64.Mat3

func vec3(v Vec2, z float64) Vec3 {
	return Vec3{v.X, v.Y, z}
}

func vec3XY(v Vec3) Vec2 {
	return Vec2{v[0], v[1]}
}

// newMat22 builds a matrix from its two columns.
func newMat22(c1, c2 Vec2) Mat22 {
	return Mat22{c1.X, c1.Y, c2.X, c2.Y}
}

func mulMat22(m Mat22, v Vec2) Vec2 {
	r := m.Mul2x1(mgl64.Vec2{v.X, v.Y})
	return Vec2{r[0], r[1]}
}

// inverse22 returns the inverse of m, or the zero matrix when m is singular.
func inverse22(m Mat22) Mat22 {
	det := m.Det()
	if det == 0.0 {
		return Mat22{}
	}
	return m.Inv()
}

// solve22 solves K*x = b using the upper-left 2x2 block of K.
func solve22(k Mat33, b Vec2) Vec2 {
	upper := Mat22{k[0], k[1], k[3], k[4]}
	return mulMat22(inverse22(upper), b)
}

// solve33 solves K*x = b. A singular K yields the zero vector.
func solve33(k Mat33, b Vec3) Vec3 {
	if k.Det() == 0.0 {
		return Vec3{}
	}
	return k.Inv().Mul3x1(b)
}

// inverse22Of33 inverts the upper-left 2x2 block of K and zeroes the rest.
func inverse22Of33(k Mat33) Mat33 {
	inv := inverse22(Mat22{k[0], k[1], k[3], k[4]})
	return Mat33{
		inv[0], inv[1], 0,
		inv[2], inv[3], 0,
		0, 0, 0,
	}
}

// symInverse33 inverts a symmetric K. Returns the zero matrix if singular.
func symInverse33(k Mat33) Mat33 {
	if k.Det() == 0.0 {
		return Mat33{}
	}
	inv := k.Inv()
	// Enforce exact symmetry; the solver relies on it.
	inv[3], inv[6], inv[7] = inv[1], inv[2], inv[5]
	return inv
}

///////////////////////////////////////////////////////////////////////////////

// Rot is a rotation stored as sine and cosine.
type Rot struct {
	S, C float64
}

// NewRot builds a rotation from an angle in radians.
func NewRot(angle float64) Rot {
	return Rot{S: math.Sin(angle), C: math.Cos(angle)}
}

func IdentityRot() Rot {
	return Rot{S: 0, C: 1}
}

func (q Rot) Angle() float64 {
	return math.Atan2(q.S, q.C)
}

func (q Rot) XAxis() Vec2 {
	return Vec2{q.C, q.S}
}

func (q Rot) YAxis() Vec2 {
	return Vec2{-q.S, q.C}
}

// Apply rotates v.
func (q Rot) Apply(v Vec2) Vec2 {
	return Vec2{q.C*v.X - q.S*v.Y, q.S*v.X + q.C*v.Y}
}

// ApplyT inverse-rotates v.
func (q Rot) ApplyT(v Vec2) Vec2 {
	return Vec2{q.C*v.X + q.S*v.Y, -q.S*v.X + q.C*v.Y}
}

// Mul returns q * r.
func (q Rot) Mul(r Rot) Rot {
	return Rot{
		S: q.S*r.C + q.C*r.S,
		C: q.C*r.C - q.S*r.S,
	}
}

// MulT returns transpose(q) * r.
func (q Rot) MulT(r Rot) Rot {
	return Rot{
		S: q.C*r.S - q.S*r.C,
		C: q.C*r.C + q.S*r.S,
	}
}

// Transform is a translation and a rotation: the position and orientation of a rigid frame.
type Transform struct {
	P Vec2
	Q Rot
}

func IdentityTransform() Transform {
	return Transform{Q: IdentityRot()}
}

func NewTransform(position Vec2, angle float64) Transform {
	return Transform{P: position, Q: NewRot(angle)}
}

// Apply maps a local point to the parent frame.
func (t Transform) Apply(v Vec2) Vec2 {
	return Vec2{
		t.Q.C*v.X - t.Q.S*v.Y + t.P.X,
		t.Q.S*v.X + t.Q.C*v.Y + t.P.Y,
	}
}

// ApplyT maps a parent-frame point to the local frame.
func (t Transform) ApplyT(v Vec2) Vec2 {
	px := v.X - t.P.X
	py := v.Y - t.P.Y
	return Vec2{
		t.Q.C*px + t.Q.S*py,
		-t.Q.S*px + t.Q.C*py,
	}
}

// Mul returns t * o.
func (t Transform) Mul(o Transform) Transform {
	return Transform{
		P: t.Q.Apply(o.P).Add(t.P),
		Q: t.Q.Mul(o.Q),
	}
}

// MulT returns inverse(t) * o.
func (t Transform) MulT(o Transform) Transform {
	return Transform{
		P: t.Q.ApplyT(o.P.Sub(t.P)),
		Q: t.Q.MulT(o.Q),
	}
}

// Sweep describes the motion of a body/shape for TOI computation. Shapes are
// defined with respect to the body origin, which may not coincide with the
// center of mass. However, to support dynamics we must interpolate the center
// of mass position.
type Sweep struct {
	LocalCenter Vec2    // local center of mass position
	C0, C       Vec2    // center world positions
	A0, A       float64 // world angles

	// Fraction of the current time step in the range [0,1].
	// C0 and A0 are the positions at Alpha0.
	Alpha0 float64
}

// Transform returns the interpolated transform at a specific time.
// beta is a factor in [0,1], where 0 indicates Alpha0.
func (s Sweep) Transform(beta float64) Transform {
	var xf Transform
	xf.P = s.C0.Scale(1.0 - beta).Add(s.C.Scale(beta))
	xf.Q = NewRot((1.0-beta)*s.A0 + beta*s.A)

	// Shift to origin.
	xf.P = xf.P.Sub(xf.Q.Apply(s.LocalCenter))
	return xf
}

// Advance moves the sweep forward, yielding a new initial state.
// alpha is the new initial time.
func (s *Sweep) Advance(alpha float64) {
	assert(s.Alpha0 < 1.0, "sweep already at the end of the step")
	beta := (alpha - s.Alpha0) / (1.0 - s.Alpha0)
	s.C0 = s.C0.Add(s.C.Sub(s.C0).Scale(beta))
	s.A0 += beta * (s.A - s.A0)
	s.Alpha0 = alpha
}

// Normalize wraps A0 into [0, 2π) and shifts A by the same amount.
func (s *Sweep) Normalize() {
	twoPi := 2.0 * math.Pi
	d := twoPi * math.Floor(s.A0/twoPi)
	s.A0 -= d
	s.A -= d
}
