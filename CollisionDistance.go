package rigid2d

// DistanceProxy is a convex vertex cloud with a radius, used by the GJK
// algorithm. It holds a copy of the vertices so it never aliases a shape.
type DistanceProxy struct {
	Vertices [MaxPolygonVertices]Vec2
	Count    int
	Radius   float64
}

// NewDistanceProxy builds the proxy for one child of shape.
func NewDistanceProxy(shape Shape, index int) DistanceProxy {
	var p DistanceProxy
	p.Set(shape, index)
	return p
}

// Set initializes the proxy from one child of shape.
func (p *DistanceProxy) Set(shape Shape, index int) {
	switch s := shape.(type) {
	case *CircleShape:
		p.Vertices[0] = s.P
		p.Count = 1
		p.Radius = s.R

	case *PolygonShape:
		p.Vertices = s.Vertices
		p.Count = s.Count
		p.Radius = PolygonRadius

	case *ChainShape:
		assert(0 <= index && index < len(s.Vertices)-1, "chain edge index out of range")
		p.Vertices[0] = s.Vertices[index]
		p.Vertices[1] = s.Vertices[index+1]
		p.Count = 2
		p.Radius = PolygonRadius

	case *EdgeShape:
		p.Vertices[0] = s.V1
		p.Vertices[1] = s.V2
		p.Count = 2
		p.Radius = PolygonRadius

	default:
		panic("rigid2d: unsupported shape in distance proxy")
	}
}

// Support returns the index of the vertex furthest along d.
func (p *DistanceProxy) Support(d Vec2) int {
	bestIndex := 0
	bestValue := p.Vertices[0].Dot(d)
	for i := 1; i < p.Count; i++ {
		if value := p.Vertices[i].Dot(d); value > bestValue {
			bestIndex = i
			bestValue = value
		}
	}
	return bestIndex
}

func (p *DistanceProxy) Vertex(index int) Vec2 {
	assert(0 <= index && index < p.Count, "proxy vertex out of range")
	return p.Vertices[index]
}

// SimplexCache warm-starts ComputeDistance. Set Count to zero on first call.
type SimplexCache struct {
	Metric float64 // length or area
	Count  int
	IndexA [3]int // vertices on shape A
	IndexB [3]int // vertices on shape B
}

// DistanceInput for ComputeDistance. Radii are ignored unless UseRadii is set.
type DistanceInput struct {
	ProxyA     DistanceProxy
	ProxyB     DistanceProxy
	TransformA Transform
	TransformB Transform
	UseRadii   bool
}

// DistanceOutput of ComputeDistance.
type DistanceOutput struct {
	PointA     Vec2 // closest point on shape A
	PointB     Vec2 // closest point on shape B
	Distance   float64
	Iterations int // number of GJK iterations used
}

type simplexVertex struct {
	wA     Vec2    // support point in proxy A
	wB     Vec2    // support point in proxy B
	w      Vec2    // wB - wA
	a      float64 // barycentric coordinate for closest point
	indexA int
	indexB int
}

type simplex struct {
	v     [3]simplexVertex
	count int
}

func (s *simplex) readCache(cache *SimplexCache, proxyA *DistanceProxy, xfA Transform, proxyB *DistanceProxy, xfB Transform) {
	assert(cache.Count <= 3, "simplex cache overflow")

	// Copy data from cache.
	s.count = cache.Count
	for i := 0; i < s.count; i++ {
		v := &s.v[i]
		v.indexA = cache.IndexA[i]
		v.indexB = cache.IndexB[i]
		v.wA = xfA.Apply(proxyA.Vertex(v.indexA))
		v.wB = xfB.Apply(proxyB.Vertex(v.indexB))
		v.w = v.wB.Sub(v.wA)
		v.a = 0.0
	}

	// Flush the simplex if the metric changed a lot.
	if s.count > 1 {
		metric1 := cache.Metric
		metric2 := s.metric()
		if metric2 < 0.5*metric1 || 2.0*metric1 < metric2 || metric2 < Epsilon {
			s.count = 0
		}
	}

	// If the cache is empty or invalid ...
	if s.count == 0 {
		v := &s.v[0]
		v.indexA = 0
		v.indexB = 0
		v.wA = xfA.Apply(proxyA.Vertex(0))
		v.wB = xfB.Apply(proxyB.Vertex(0))
		v.w = v.wB.Sub(v.wA)
		v.a = 1.0
		s.count = 1
	}
}

func (s *simplex) writeCache(cache *SimplexCache) {
	cache.Metric = s.metric()
	cache.Count = s.count
	for i := 0; i < s.count; i++ {
		cache.IndexA[i] = s.v[i].indexA
		cache.IndexB[i] = s.v[i].indexB
	}
}

func (s *simplex) searchDirection() Vec2 {
	switch s.count {
	case 1:
		return s.v[0].w.Neg()

	case 2:
		e12 := s.v[1].w.Sub(s.v[0].w)
		if e12.Cross(s.v[0].w.Neg()) > 0.0 {
			// Origin is left of e12.
			return CrossSV(1.0, e12)
		}
		// Origin is right of e12.
		return CrossVS(e12, 1.0)
	}

	panic("rigid2d: invalid simplex")
}

func (s *simplex) witnessPoints() (Vec2, Vec2) {
	switch s.count {
	case 1:
		return s.v[0].wA, s.v[0].wB

	case 2:
		pA := s.v[0].wA.Scale(s.v[0].a).Add(s.v[1].wA.Scale(s.v[1].a))
		pB := s.v[0].wB.Scale(s.v[0].a).Add(s.v[1].wB.Scale(s.v[1].a))
		return pA, pB

	case 3:
		pA := s.v[0].wA.Scale(s.v[0].a).
			Add(s.v[1].wA.Scale(s.v[1].a)).
			Add(s.v[2].wA.Scale(s.v[2].a))
		return pA, pA
	}

	panic("rigid2d: invalid simplex")
}

func (s *simplex) metric() float64 {
	switch s.count {
	case 1:
		return 0.0
	case 2:
		return Distance(s.v[0].w, s.v[1].w)
	case 3:
		return s.v[1].w.Sub(s.v[0].w).Cross(s.v[2].w.Sub(s.v[0].w))
	}

	panic("rigid2d: invalid simplex")
}

// solve2 finds the closest point on the segment w1-w2 using barycentric
// coordinates:
//
//	p = a1 * w1 + a2 * w2
//	a1 + a2 = 1
//
// The vector from the origin to the closest point on the line is
// perpendicular to the line: e12 = w2 - w1, dot(p, e) = 0.
//
// Solving gives
//
//	a1 = dot(w2, e12) / dot(e12, e12)
//	a2 = -dot(w1, e12) / dot(e12, e12)
func (s *simplex) solve2() {
	w1 := s.v[0].w
	w2 := s.v[1].w
	e12 := w2.Sub(w1)

	// w1 region
	d12n2 := -w1.Dot(e12)
	if d12n2 <= 0.0 {
		// a2 <= 0, so we clamp it to 0
		s.v[0].a = 1.0
		s.count = 1
		return
	}

	// w2 region
	d12n1 := w2.Dot(e12)
	if d12n1 <= 0.0 {
		// a1 <= 0, so we clamp it to 0
		s.v[1].a = 1.0
		s.count = 1
		s.v[0] = s.v[1]
		return
	}

	// Must be in e12 region.
	inv := 1.0 / (d12n1 + d12n2)
	s.v[0].a = d12n1 * inv
	s.v[1].a = d12n2 * inv
	s.count = 2
}

// solve3 handles the triangle case. Possible regions:
//   - points[2]
//   - edge points[0]-points[2]
//   - edge points[1]-points[2]
//   - inside the triangle
func (s *simplex) solve3() {
	w1 := s.v[0].w
	w2 := s.v[1].w
	w3 := s.v[2].w

	// Edge12
	// [1      1     ][a1] = [1]
	// [w1.e12 w2.e12][a2] = [0]
	// a3 = 0
	e12 := w2.Sub(w1)
	d12n1 := w2.Dot(e12)
	d12n2 := -w1.Dot(e12)

	// Edge13
	e13 := w3.Sub(w1)
	d13n1 := w3.Dot(e13)
	d13n2 := -w1.Dot(e13)

	// Edge23
	e23 := w3.Sub(w2)
	d23n1 := w3.Dot(e23)
	d23n2 := -w2.Dot(e23)

	// Triangle123
	n123 := e12.Cross(e13)

	d123n1 := n123 * w2.Cross(w3)
	d123n2 := n123 * w3.Cross(w1)
	d123n3 := n123 * w1.Cross(w2)

	switch {
	case d12n2 <= 0.0 && d13n2 <= 0.0:
		// w1 region
		s.v[0].a = 1.0
		s.count = 1

	case d12n1 > 0.0 && d12n2 > 0.0 && d123n3 <= 0.0:
		// e12
		inv := 1.0 / (d12n1 + d12n2)
		s.v[0].a = d12n1 * inv
		s.v[1].a = d12n2 * inv
		s.count = 2

	case d13n1 > 0.0 && d13n2 > 0.0 && d123n2 <= 0.0:
		// e13
		inv := 1.0 / (d13n1 + d13n2)
		s.v[0].a = d13n1 * inv
		s.v[2].a = d13n2 * inv
		s.count = 2
		s.v[1] = s.v[2]

	case d12n1 <= 0.0 && d23n2 <= 0.0:
		// w2 region
		s.v[1].a = 1.0
		s.count = 1
		s.v[0] = s.v[1]

	case d13n1 <= 0.0 && d23n1 <= 0.0:
		// w3 region
		s.v[2].a = 1.0
		s.count = 1
		s.v[0] = s.v[2]

	case d23n1 > 0.0 && d23n2 > 0.0 && d123n1 <= 0.0:
		// e23
		inv := 1.0 / (d23n1 + d23n2)
		s.v[1].a = d23n1 * inv
		s.v[2].a = d23n2 * inv
		s.count = 2
		s.v[0] = s.v[2]

	default:
		// Must be in triangle123
		inv := 1.0 / (d123n1 + d123n2 + d123n3)
		s.v[0].a = d123n1 * inv
		s.v[1].a = d123n2 * inv
		s.v[2].a = d123n3 * inv
		s.count = 3
	}
}

const gjkMaxIterations = 20

// ComputeDistance computes the closest points between two convex proxies
// with the GJK algorithm. The simplex cache is read on entry and updated on
// exit, so consecutive calls on a slowly moving pair converge quickly.
func ComputeDistance(output *DistanceOutput, cache *SimplexCache, input *DistanceInput) {
	proxyA := &input.ProxyA
	proxyB := &input.ProxyB
	xfA := input.TransformA
	xfB := input.TransformB

	// Initialize the simplex.
	var s simplex
	s.readCache(cache, proxyA, xfA, proxyB, xfB)

	// These store the vertices of the last simplex so that we can check for duplicates and prevent cycling.
	var saveA, saveB [3]int

	iter := 0
	for iter < gjkMaxIterations {
		// Copy simplex so we can identify duplicates.
		saveCount := s.count
		for i := 0; i < saveCount; i++ {
			saveA[i] = s.v[i].indexA
			saveB[i] = s.v[i].indexB
		}

		switch s.count {
		case 2:
			s.solve2()
		case 3:
			s.solve3()
		}

		// If we have 3 points, then the origin is in the corresponding triangle.
		if s.count == 3 {
			break
		}

		d := s.searchDirection()

		// Ensure the search direction is numerically fit.
		if d.LengthSquared() < Epsilon*Epsilon {
			// The origin is probably contained by a line segment
			// or triangle. Thus the shapes are overlapped.

			// We can't return zero here even though there may be overlap.
			// In case the simplex is a point, segment, or triangle it is difficult
			// to determine if the origin is contained in the CSO or very close to it.
			break
		}

		// Compute a tentative new simplex vertex using support points.
		v := &s.v[s.count]
		v.indexA = proxyA.Support(xfA.Q.ApplyT(d.Neg()))
		v.wA = xfA.Apply(proxyA.Vertex(v.indexA))
		v.indexB = proxyB.Support(xfB.Q.ApplyT(d))
		v.wB = xfB.Apply(proxyB.Vertex(v.indexB))
		v.w = v.wB.Sub(v.wA)

		iter++

		// Main termination criterion: a repeated support point means no progress.
		duplicate := false
		for i := 0; i < saveCount; i++ {
			if v.indexA == saveA[i] && v.indexB == saveB[i] {
				duplicate = true
				break
			}
		}
		if duplicate {
			break
		}

		s.count++
	}

	output.PointA, output.PointB = s.witnessPoints()
	output.Distance = Distance(output.PointA, output.PointB)
	output.Iterations = iter

	s.writeCache(cache)

	if !input.UseRadii {
		return
	}

	rA := proxyA.Radius
	rB := proxyB.Radius

	if output.Distance > rA+rB && output.Distance > Epsilon {
		// Shapes are still not overlapped.
		// Move the witness points to the outer surface.
		output.Distance -= rA + rB
		normal := output.PointB.Sub(output.PointA).Normalized()
		output.PointA = output.PointA.Add(normal.Scale(rA))
		output.PointB = output.PointB.Sub(normal.Scale(rB))
		return
	}

	// Shapes are overlapped when radii are considered.
	// Move the witness points to the middle.
	p := output.PointA.Add(output.PointB).Scale(0.5)
	output.PointA = p
	output.PointB = p
	output.Distance = 0.0
}
