package rigid2d

// EdgeShape is a line segment from V1 to V2. Edges may carry the adjacent
// ghost vertices V0 and V3 of a chain, which smooth collisions across the
// joints between segments.
type EdgeShape struct {
	V1, V2 Vec2

	V0, V3       Vec2
	HasV0, HasV3 bool
}

// NewEdgeShape builds a lone segment without ghost vertices.
func NewEdgeShape(v1, v2 Vec2) *EdgeShape {
	return &EdgeShape{V1: v1, V2: v2}
}

func (e *EdgeShape) Type() ShapeType { return ShapeEdge }
func (e *EdgeShape) Radius() float64 { return PolygonRadius }
func (e *EdgeShape) ChildCount() int { return 1 }

func (e *EdgeShape) Clone() Shape {
	clone := *e
	return &clone
}

// TestPoint always fails: edges have no interior.
func (e *EdgeShape) TestPoint(xf Transform, p Vec2) bool {
	return false
}

// RayCast intersects the ray with the segment, from either side.
//
//	p = p1 + t * d
//	v = v1 + s * e
//	p1 + t * d = v1 + s * e
func (e *EdgeShape) RayCast(input RayCastInput, xf Transform, childIndex int) (RayCastOutput, bool) {
	return rayCastSegment(input, xf, e.V1, e.V2)
}

func rayCastSegment(input RayCastInput, xf Transform, v1, v2 Vec2) (RayCastOutput, bool) {
	// Put the ray into the edge's frame of reference.
	p1 := xf.ApplyT(input.P1)
	p2 := xf.ApplyT(input.P2)
	d := p2.Sub(p1)

	edge := v2.Sub(v1)
	normal := Vec2{edge.Y, -edge.X}.Normalized()

	// q = p1 + t * d
	// dot(normal, q - v1) = 0
	// dot(normal, p1 - v1) + t * dot(normal, d) = 0
	numerator := normal.Dot(v1.Sub(p1))
	denominator := normal.Dot(d)
	if denominator == 0.0 {
		return RayCastOutput{}, false
	}

	t := numerator / denominator
	if t < 0.0 || input.MaxFraction < t {
		return RayCastOutput{}, false
	}

	q := p1.Add(d.Scale(t))

	// q = v1 + s * r
	// s = dot(q - v1, r) / dot(r, r)
	rr := edge.Dot(edge)
	if rr == 0.0 {
		return RayCastOutput{}, false
	}

	s := q.Sub(v1).Dot(edge) / rr
	if s < 0.0 || 1.0 < s {
		return RayCastOutput{}, false
	}

	n := xf.Q.Apply(normal)
	if numerator > 0.0 {
		n = n.Neg()
	}
	return RayCastOutput{Fraction: t, Normal: n}, true
}

func (e *EdgeShape) ComputeAABB(xf Transform, childIndex int) AABB {
	v1 := xf.Apply(e.V1)
	v2 := xf.Apply(e.V2)

	r := Vec2{PolygonRadius, PolygonRadius}
	return AABB{
		LowerBound: MinVec2(v1, v2).Sub(r),
		UpperBound: MaxVec2(v1, v2).Add(r),
	}
}

// ComputeMass returns zero mass centered on the segment midpoint.
func (e *EdgeShape) ComputeMass(density float64) MassData {
	return MassData{Center: e.V1.Add(e.V2).Scale(0.5)}
}
