package rigid2d

// ChainShape is a free form sequence of line segments. Collision is two-sided,
// so any winding order works. Adjacency is used to build smooth collisions.
// The chain does not collide properly with itself if it self-intersects.
type ChainShape struct {
	Vertices []Vec2

	PrevVertex, NextVertex       Vec2
	HasPrevVertex, HasNextVertex bool
}

// NewChainLoop builds a closed loop; the last vertex is joined back to the first.
func NewChainLoop(vertices []Vec2) *ChainShape {
	assert(len(vertices) >= 3, "chain loop needs at least 3 vertices")
	checkChainVertices(vertices)

	n := len(vertices)
	c := &ChainShape{Vertices: make([]Vec2, n+1)}
	copy(c.Vertices, vertices)
	c.Vertices[n] = c.Vertices[0]
	c.PrevVertex = c.Vertices[n-1]
	c.NextVertex = c.Vertices[1]
	c.HasPrevVertex = true
	c.HasNextVertex = true
	return c
}

// NewChain builds an open chain. Use SetPrevVertex and SetNextVertex to join
// it smoothly with neighbouring geometry.
func NewChain(vertices []Vec2) *ChainShape {
	assert(len(vertices) >= 2, "chain needs at least 2 vertices")
	checkChainVertices(vertices)

	c := &ChainShape{Vertices: make([]Vec2, len(vertices))}
	copy(c.Vertices, vertices)
	return c
}

func checkChainVertices(vertices []Vec2) {
	for i := 1; i < len(vertices); i++ {
		// If the code crashes here, vertices are too close together.
		assert(DistanceSquared(vertices[i-1], vertices[i]) > LinearSlop*LinearSlop, "chain vertices too close")
	}
}

// SetPrevVertex sets the ghost vertex before the first one.
func (c *ChainShape) SetPrevVertex(v Vec2) {
	c.PrevVertex = v
	c.HasPrevVertex = true
}

// SetNextVertex sets the ghost vertex after the last one.
func (c *ChainShape) SetNextVertex(v Vec2) {
	c.NextVertex = v
	c.HasNextVertex = true
}

func (c *ChainShape) Type() ShapeType { return ShapeChain }
func (c *ChainShape) Radius() float64 { return PolygonRadius }

// ChildCount is the number of edges.
func (c *ChainShape) ChildCount() int {
	return len(c.Vertices) - 1
}

func (c *ChainShape) Clone() Shape {
	clone := *c
	clone.Vertices = append([]Vec2(nil), c.Vertices...)
	return &clone
}

// ChildEdge returns the edge at index with its ghost vertices filled in.
func (c *ChainShape) ChildEdge(index int) EdgeShape {
	count := len(c.Vertices)
	assert(0 <= index && index < count-1, "chain edge index out of range")

	e := EdgeShape{
		V1: c.Vertices[index],
		V2: c.Vertices[index+1],
	}

	if index > 0 {
		e.V0 = c.Vertices[index-1]
		e.HasV0 = true
	} else {
		e.V0 = c.PrevVertex
		e.HasV0 = c.HasPrevVertex
	}

	if index < count-2 {
		e.V3 = c.Vertices[index+2]
		e.HasV3 = true
	} else {
		e.V3 = c.NextVertex
		e.HasV3 = c.HasNextVertex
	}
	return e
}

// TestPoint always fails: chains have no interior.
func (c *ChainShape) TestPoint(xf Transform, p Vec2) bool {
	return false
}

func (c *ChainShape) RayCast(input RayCastInput, xf Transform, childIndex int) (RayCastOutput, bool) {
	assert(childIndex < len(c.Vertices)-1, "chain edge index out of range")
	return rayCastSegment(input, xf, c.Vertices[childIndex], c.Vertices[childIndex+1])
}

func (c *ChainShape) ComputeAABB(xf Transform, childIndex int) AABB {
	assert(childIndex < len(c.Vertices)-1, "chain edge index out of range")

	v1 := xf.Apply(c.Vertices[childIndex])
	v2 := xf.Apply(c.Vertices[childIndex+1])

	r := Vec2{PolygonRadius, PolygonRadius}
	return AABB{
		LowerBound: MinVec2(v1, v2).Sub(r),
		UpperBound: MaxVec2(v1, v2).Add(r),
	}
}

// ComputeMass returns zero mass: chains are meant for static geometry.
func (c *ChainShape) ComputeMass(density float64) MassData {
	return MassData{}
}
