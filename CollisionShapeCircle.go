package rigid2d

import (
	"math"
)

// CircleShape is a solid circle centered on P in the body frame.
type CircleShape struct {
	P Vec2
	R float64
}

func NewCircleShape(center Vec2, radius float64) *CircleShape {
	return &CircleShape{P: center, R: radius}
}

func (c *CircleShape) Type() ShapeType { return ShapeCircle }
func (c *CircleShape) Radius() float64 { return c.R }
func (c *CircleShape) ChildCount() int { return 1 }

func (c *CircleShape) Clone() Shape {
	clone := *c
	return &clone
}

func (c *CircleShape) TestPoint(xf Transform, p Vec2) bool {
	center := xf.Apply(c.P)
	return DistanceSquared(p, center) <= c.R*c.R
}

// RayCast follows Collision Detection in Interactive 3D Environments by
// Gino van den Bergen, section 3.1.2:
// x = s + a * r
// norm(x) = radius
func (c *CircleShape) RayCast(input RayCastInput, xf Transform, childIndex int) (RayCastOutput, bool) {
	position := xf.Apply(c.P)
	s := input.P1.Sub(position)
	b := s.Dot(s) - c.R*c.R

	// Solve quadratic equation.
	r := input.P2.Sub(input.P1)
	cc := s.Dot(r)
	rr := r.Dot(r)
	sigma := cc*cc - rr*b

	// Negative discriminant or short segment.
	if sigma < 0.0 || rr < Epsilon {
		return RayCastOutput{}, false
	}

	// Find the point of intersection of the line with the circle.
	a := -(cc + math.Sqrt(sigma))

	// Is the intersection point on the segment?
	if 0.0 <= a && a <= input.MaxFraction*rr {
		a /= rr
		return RayCastOutput{
			Fraction: a,
			Normal:   s.Add(r.Scale(a)).Normalized(),
		}, true
	}

	return RayCastOutput{}, false
}

func (c *CircleShape) ComputeAABB(xf Transform, childIndex int) AABB {
	p := xf.Apply(c.P)
	r := Vec2{c.R, c.R}
	return AABB{LowerBound: p.Sub(r), UpperBound: p.Add(r)}
}

func (c *CircleShape) ComputeMass(density float64) MassData {
	rr := c.R * c.R
	mass := density * math.Pi * rr
	return MassData{
		Mass:   mass,
		Center: c.P,
		// inertia about the local origin
		I: mass * (0.5*rr + c.P.Dot(c.P)),
	}
}
