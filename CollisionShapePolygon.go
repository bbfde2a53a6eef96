package rigid2d

// PolygonShape is a solid convex polygon. Its interior is to the left of each
// edge (counter-clockwise winding). The vertex count is limited by
// MaxPolygonVertices; most cases are covered by boxes and small hulls.
type PolygonShape struct {
	Centroid Vec2
	Vertices [MaxPolygonVertices]Vec2
	Normals  [MaxPolygonVertices]Vec2
	Count    int
}

// NewPolygonShape builds the convex hull of points. It panics when the hull
// is degenerate (fewer than 3 distinct, non collinear points).
func NewPolygonShape(points []Vec2) *PolygonShape {
	p := &PolygonShape{}
	p.Set(points)
	return p
}

// NewBoxShape builds an axis aligned box centered on the body origin.
func NewBoxShape(hx, hy float64) *PolygonShape {
	p := &PolygonShape{}
	p.SetAsBox(hx, hy)
	return p
}

func (p *PolygonShape) Type() ShapeType { return ShapePolygon }
func (p *PolygonShape) Radius() float64 { return PolygonRadius }
func (p *PolygonShape) ChildCount() int { return 1 }

func (p *PolygonShape) Clone() Shape {
	clone := *p
	return &clone
}

// SetAsBox makes the polygon an axis aligned box with half-widths hx and hy.
func (p *PolygonShape) SetAsBox(hx, hy float64) {
	p.Count = 4
	p.Vertices[0] = Vec2{-hx, -hy}
	p.Vertices[1] = Vec2{hx, -hy}
	p.Vertices[2] = Vec2{hx, hy}
	p.Vertices[3] = Vec2{-hx, hy}
	p.Normals[0] = Vec2{0.0, -1.0}
	p.Normals[1] = Vec2{1.0, 0.0}
	p.Normals[2] = Vec2{0.0, 1.0}
	p.Normals[3] = Vec2{-1.0, 0.0}
	p.Centroid = Vec2{}
}

// SetAsOrientedBox makes the polygon a box with half-widths hx and hy, placed
// at center in the body frame and rotated by angle.
func (p *PolygonShape) SetAsOrientedBox(hx, hy float64, center Vec2, angle float64) {
	p.SetAsBox(hx, hy)
	p.Centroid = center

	xf := NewTransform(center, angle)
	for i := 0; i < p.Count; i++ {
		p.Vertices[i] = xf.Apply(p.Vertices[i])
		p.Normals[i] = xf.Q.Apply(p.Normals[i])
	}
}

// Set replaces the polygon with the convex hull of points. Points closer than
// half a LinearSlop are welded together.
func (p *PolygonShape) Set(points []Vec2) {
	assert(3 <= len(points) && len(points) <= MaxPolygonVertices, "polygon needs 3 to MaxPolygonVertices points")

	var ps [MaxPolygonVertices]Vec2
	n := 0
	weld := (0.5 * LinearSlop) * (0.5 * LinearSlop)
	for _, v := range points {
		unique := true
		for j := 0; j < n; j++ {
			if DistanceSquared(v, ps[j]) < weld {
				unique = false
				break
			}
		}
		if unique {
			ps[n] = v
			n++
		}
	}
	assert(n >= 3, "polygon is degenerate")

	// Gift wrapping, starting from the right most point (lowest on ties).
	i0 := 0
	x0 := ps[0].X
	for i := 1; i < n; i++ {
		x := ps[i].X
		if x > x0 || (x == x0 && ps[i].Y < ps[i0].Y) {
			i0 = i
			x0 = x
		}
	}

	var hull [MaxPolygonVertices]int
	m := 0
	ih := i0
	for {
		assert(m < MaxPolygonVertices, "polygon hull overflow")
		hull[m] = ih

		ie := 0
		for j := 1; j < n; j++ {
			if ie == ih {
				ie = j
				continue
			}

			r := ps[ie].Sub(ps[hull[m]])
			v := ps[j].Sub(ps[hull[m]])
			c := r.Cross(v)
			if c < 0.0 {
				ie = j
			}

			// Collinear: keep the farthest point.
			if c == 0.0 && v.LengthSquared() > r.LengthSquared() {
				ie = j
			}
		}

		m++
		ih = ie
		if ie == i0 {
			break
		}
	}
	assert(m >= 3, "polygon is degenerate")

	p.Count = m
	for i := 0; i < m; i++ {
		p.Vertices[i] = ps[hull[i]]
	}

	for i := 0; i < m; i++ {
		edge := p.Vertices[(i+1)%m].Sub(p.Vertices[i])
		assert(edge.LengthSquared() > Epsilon*Epsilon, "polygon edge too short")
		p.Normals[i] = CrossVS(edge, 1.0).Normalized()
	}

	p.Centroid = polygonCentroid(p.Vertices[:m])
}

func polygonCentroid(vs []Vec2) Vec2 {
	assert(len(vs) >= 3, "centroid needs 3 vertices")

	var c Vec2
	area := 0.0

	// Reference point inside the polygon, for better rounding.
	var pRef Vec2
	for _, v := range vs {
		pRef = pRef.Add(v)
	}
	pRef = pRef.Scale(1.0 / float64(len(vs)))

	const inv3 = 1.0 / 3.0
	for i := range vs {
		p1 := pRef
		p2 := vs[i]
		p3 := vs[(i+1)%len(vs)]

		e1 := p2.Sub(p1)
		e2 := p3.Sub(p1)
		triangleArea := 0.5 * e1.Cross(e2)
		area += triangleArea

		c = c.Add(p1.Add(p2).Add(p3).Scale(triangleArea * inv3))
	}

	assert(area > Epsilon, "polygon area too small")
	return c.Scale(1.0 / area)
}

func (p *PolygonShape) TestPoint(xf Transform, point Vec2) bool {
	local := xf.ApplyT(point)
	for i := 0; i < p.Count; i++ {
		if p.Normals[i].Dot(local.Sub(p.Vertices[i])) > 0.0 {
			return false
		}
	}
	return true
}

func (p *PolygonShape) RayCast(input RayCastInput, xf Transform, childIndex int) (RayCastOutput, bool) {
	// Put the ray into the polygon's frame of reference.
	p1 := xf.ApplyT(input.P1)
	p2 := xf.ApplyT(input.P2)
	d := p2.Sub(p1)

	lower, upper := 0.0, input.MaxFraction
	index := -1

	for i := 0; i < p.Count; i++ {
		// p = p1 + a * d
		// dot(normal, p - v) = 0
		// dot(normal, p1 - v) + a * dot(normal, d) = 0
		numerator := p.Normals[i].Dot(p.Vertices[i].Sub(p1))
		denominator := p.Normals[i].Dot(d)

		if denominator == 0.0 {
			if numerator < 0.0 {
				return RayCastOutput{}, false
			}
		} else if denominator < 0.0 && numerator < lower*denominator {
			// The segment enters this half-space.
			lower = numerator / denominator
			index = i
		} else if denominator > 0.0 && numerator < upper*denominator {
			// The segment exits this half-space.
			upper = numerator / denominator
		}

		if upper < lower {
			return RayCastOutput{}, false
		}
	}

	if index >= 0 {
		return RayCastOutput{Fraction: lower, Normal: xf.Q.Apply(p.Normals[index])}, true
	}
	return RayCastOutput{}, false
}

func (p *PolygonShape) ComputeAABB(xf Transform, childIndex int) AABB {
	lower := xf.Apply(p.Vertices[0])
	upper := lower
	for i := 1; i < p.Count; i++ {
		v := xf.Apply(p.Vertices[i])
		lower = MinVec2(lower, v)
		upper = MaxVec2(upper, v)
	}

	r := Vec2{PolygonRadius, PolygonRadius}
	return AABB{LowerBound: lower.Sub(r), UpperBound: upper.Add(r)}
}

// ComputeMass integrates over the triangle fan around the vertex average s.
// For a triangle (s, s+e1, s+e2) with D = cross(e1, e2):
//
//	area = D/2
//	centroid = s + (e1 + e2)/3
//	I_s = D/12 * (e1x² + e1x*e2x + e2x² + e1y² + e1y*e2y + e2y²)
func (p *PolygonShape) ComputeMass(density float64) MassData {
	assert(p.Count >= 3, "polygon mass needs 3 vertices")

	var s Vec2
	for i := 0; i < p.Count; i++ {
		s = s.Add(p.Vertices[i])
	}
	s = s.Scale(1.0 / float64(p.Count))

	const inv3 = 1.0 / 3.0

	var center Vec2
	area := 0.0
	inertia := 0.0

	for i := 0; i < p.Count; i++ {
		e1 := p.Vertices[i].Sub(s)
		e2 := p.Vertices[(i+1)%p.Count].Sub(s)

		d := e1.Cross(e2)
		triangleArea := 0.5 * d
		area += triangleArea

		center = center.Add(e1.Add(e2).Scale(triangleArea * inv3))

		intx2 := e1.X*e1.X + e2.X*e1.X + e2.X*e2.X
		inty2 := e1.Y*e1.Y + e2.Y*e1.Y + e2.Y*e2.Y
		inertia += (0.25 * inv3 * d) * (intx2 + inty2)
	}

	assert(area > Epsilon, "polygon area too small")
	center = center.Scale(1.0 / area)

	md := MassData{
		Mass:   density * area,
		Center: center.Add(s),
	}

	// Inertia about s, shifted to the center of mass and then to the body origin.
	md.I = density*inertia + md.Mass*(md.Center.Dot(md.Center)-center.Dot(center))
	return md
}

// Validate checks convexity. It is O(n²).
func (p *PolygonShape) Validate() bool {
	for i := 0; i < p.Count; i++ {
		i2 := (i + 1) % p.Count
		v := p.Vertices[i]
		e := p.Vertices[i2].Sub(v)

		for j := 0; j < p.Count; j++ {
			if j == i || j == i2 {
				continue
			}
			if e.Cross(p.Vertices[j].Sub(v)) < 0.0 {
				return false
			}
		}
	}
	return true
}
