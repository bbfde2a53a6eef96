package rigid2d

import (
	"math"
)

// CollideEdgeAndCircle computes contact points for an edge versus a circle,
// taking the edge's ghost vertices into account.
func CollideEdgeAndCircle(manifold *Manifold, edgeA *EdgeShape, xfA Transform, circleB *CircleShape, xfB Transform) {
	manifold.PointCount = 0

	// Circle in the frame of the edge.
	q := xfA.ApplyT(xfB.Apply(circleB.P))

	a, b := edgeA.V1, edgeA.V2
	e := b.Sub(a)

	// Barycentric coordinates
	u := e.Dot(b.Sub(q))
	v := e.Dot(q.Sub(a))

	radius := PolygonRadius + circleB.R

	vertexContact := func(p Vec2, index uint8) {
		manifold.PointCount = 1
		manifold.Type = ManifoldCircles
		manifold.LocalNormal = Vec2{}
		manifold.LocalPoint = p
		manifold.Points[0].ID = ContactID{IndexA: index, TypeA: FeatureVertex, TypeB: FeatureVertex}
		manifold.Points[0].LocalPoint = circleB.P
	}

	// Region A
	if v <= 0.0 {
		if DistanceSquared(q, a) > radius*radius {
			return
		}

		// The previous edge owns the circle when it lies in its AB region.
		if edgeA.HasV0 {
			e1 := a.Sub(edgeA.V0)
			if e1.Dot(a.Sub(q)) > 0.0 {
				return
			}
		}

		vertexContact(a, 0)
		return
	}

	// Region B
	if u <= 0.0 {
		if DistanceSquared(q, b) > radius*radius {
			return
		}

		// Same for the next edge.
		if edgeA.HasV3 {
			e2 := edgeA.V3.Sub(b)
			if e2.Dot(q.Sub(b)) > 0.0 {
				return
			}
		}

		vertexContact(b, 1)
		return
	}

	// Region AB
	den := e.Dot(e)
	assert(den > 0.0, "degenerate edge")
	p := a.Scale(u).Add(b.Scale(v)).Scale(1.0 / den)
	if DistanceSquared(q, p) > radius*radius {
		return
	}

	n := Vec2{-e.Y, e.X}
	if n.Dot(q.Sub(a)) < 0.0 {
		n = n.Neg()
	}

	manifold.PointCount = 1
	manifold.Type = ManifoldFaceA
	manifold.LocalNormal = n.Normalized()
	manifold.LocalPoint = a
	manifold.Points[0].ID = ContactID{TypeA: FeatureFace, TypeB: FeatureVertex}
	manifold.Points[0].LocalPoint = circleB.P
}

// CollideEdgeAndPolygon computes the manifold between an edge and a polygon,
// taking the edge's ghost vertices into account.
func CollideEdgeAndPolygon(manifold *Manifold, edgeA *EdgeShape, xfA Transform, polygonB *PolygonShape, xfB Transform) {
	var c edgePolygonCollider
	c.collide(manifold, edgeA, xfA, polygonB, xfB)
}

type epAxisType uint8

const (
	epAxisUnknown epAxisType = iota
	epAxisEdgeA
	epAxisEdgeB
)

// epAxis tracks the best separating axis.
type epAxis struct {
	kind       epAxisType
	index      int
	separation float64
}

// referenceFace is the face used for clipping.
type referenceFace struct {
	i1, i2 int
	v1, v2 Vec2
	normal Vec2

	sideNormal1 Vec2
	sideOffset1 float64

	sideNormal2 Vec2
	sideOffset2 float64
}

// edgePolygonCollider works in the frame of the edge. Polygon B is
// transformed into that frame once.
type edgePolygonCollider struct {
	vertices [MaxPolygonVertices]Vec2
	normals  [MaxPolygonVertices]Vec2
	count    int

	xf        Transform
	centroidB Vec2

	v0, v1, v2, v3            Vec2
	normal0, normal1, normal2 Vec2
	normal                    Vec2
	lowerLimit, upperLimit    Vec2
	radius                    float64
	front                     bool
}

// collide proceeds as follows:
//  1. Classify v1 and v2
//  2. Classify polygon centroid as front or back
//  3. Flip normal if necessary
//  4. Initialize normal range to [-pi, pi] about face normal
//  5. Adjust normal range according to adjacent edges
//  6. Visit each separating axes, only accept axes within the range
//  7. Return if _any_ axis indicates separation
//  8. Clip
func (c *edgePolygonCollider) collide(manifold *Manifold, edgeA *EdgeShape, xfA Transform, polygonB *PolygonShape, xfB Transform) {
	c.xf = xfA.MulT(xfB)
	c.centroidB = c.xf.Apply(polygonB.Centroid)

	c.v0, c.v1, c.v2, c.v3 = edgeA.V0, edgeA.V1, edgeA.V2, edgeA.V3

	edge1 := c.v2.Sub(c.v1).Normalized()
	c.normal1 = Vec2{edge1.Y, -edge1.X}
	offset1 := c.normal1.Dot(c.centroidB.Sub(c.v1))
	offset0, offset2 := 0.0, 0.0
	convex1, convex2 := false, false

	if edgeA.HasV0 {
		edge0 := c.v1.Sub(c.v0).Normalized()
		c.normal0 = Vec2{edge0.Y, -edge0.X}
		convex1 = edge0.Cross(edge1) >= 0.0
		offset0 = c.normal0.Dot(c.centroidB.Sub(c.v0))
	}

	if edgeA.HasV3 {
		edge2 := c.v3.Sub(c.v2).Normalized()
		c.normal2 = Vec2{edge2.Y, -edge2.X}
		convex2 = edge1.Cross(edge2) > 0.0
		offset2 = c.normal2.Dot(c.centroidB.Sub(c.v2))
	}

	c.classify(edgeA.HasV0, edgeA.HasV3, convex1, convex2, offset0, offset1, offset2)

	// Polygon B in frame A.
	c.count = polygonB.Count
	for i := 0; i < polygonB.Count; i++ {
		c.vertices[i] = c.xf.Apply(polygonB.Vertices[i])
		c.normals[i] = c.xf.Q.Apply(polygonB.Normals[i])
	}

	c.radius = 2.0 * PolygonRadius

	manifold.PointCount = 0

	edgeAxis := c.edgeSeparation()

	// No valid normal: this edge should not collide.
	if edgeAxis.kind == epAxisUnknown {
		return
	}
	if edgeAxis.separation > c.radius {
		return
	}

	polygonAxis := c.polygonSeparation()
	if polygonAxis.kind != epAxisUnknown && polygonAxis.separation > c.radius {
		return
	}

	// Hysteresis for jitter reduction.
	const relativeTol = 0.98
	const absoluteTol = 0.001

	primaryAxis := edgeAxis
	if polygonAxis.kind != epAxisUnknown && polygonAxis.separation > relativeTol*edgeAxis.separation+absoluteTol {
		primaryAxis = polygonAxis
	}

	var ie [2]clipVertex
	var rf referenceFace

	if primaryAxis.kind == epAxisEdgeA {
		manifold.Type = ManifoldFaceA

		// The polygon normal most anti-parallel to the edge normal.
		bestIndex := 0
		bestValue := c.normal.Dot(c.normals[0])
		for i := 1; i < c.count; i++ {
			if value := c.normal.Dot(c.normals[i]); value < bestValue {
				bestValue = value
				bestIndex = i
			}
		}

		i1 := bestIndex
		i2 := (i1 + 1) % c.count

		ie[0] = clipVertex{V: c.vertices[i1], ID: ContactID{IndexB: uint8(i1), TypeA: FeatureFace, TypeB: FeatureVertex}}
		ie[1] = clipVertex{V: c.vertices[i2], ID: ContactID{IndexB: uint8(i2), TypeA: FeatureFace, TypeB: FeatureVertex}}

		if c.front {
			rf.i1, rf.i2 = 0, 1
			rf.v1, rf.v2 = c.v1, c.v2
			rf.normal = c.normal1
		} else {
			rf.i1, rf.i2 = 1, 0
			rf.v1, rf.v2 = c.v2, c.v1
			rf.normal = c.normal1.Neg()
		}
	} else {
		manifold.Type = ManifoldFaceB

		ie[0] = clipVertex{V: c.v1, ID: ContactID{IndexB: uint8(primaryAxis.index), TypeA: FeatureVertex, TypeB: FeatureFace}}
		ie[1] = clipVertex{V: c.v2, ID: ContactID{IndexB: uint8(primaryAxis.index), TypeA: FeatureVertex, TypeB: FeatureFace}}

		rf.i1 = primaryAxis.index
		rf.i2 = (rf.i1 + 1) % c.count
		rf.v1 = c.vertices[rf.i1]
		rf.v2 = c.vertices[rf.i2]
		rf.normal = c.normals[rf.i1]
	}

	rf.sideNormal1 = Vec2{rf.normal.Y, -rf.normal.X}
	rf.sideNormal2 = rf.sideNormal1.Neg()
	rf.sideOffset1 = rf.sideNormal1.Dot(rf.v1)
	rf.sideOffset2 = rf.sideNormal2.Dot(rf.v2)

	// Clip incident edge against extruded edge1 side edges.
	var clipPoints1, clipPoints2 [2]clipVertex
	if clipSegmentToLine(&clipPoints1, ie, rf.sideNormal1, rf.sideOffset1, rf.i1) < MaxManifoldPoints {
		return
	}
	if clipSegmentToLine(&clipPoints2, clipPoints1, rf.sideNormal2, rf.sideOffset2, rf.i2) < MaxManifoldPoints {
		return
	}

	if primaryAxis.kind == epAxisEdgeA {
		manifold.LocalNormal = rf.normal
		manifold.LocalPoint = rf.v1
	} else {
		manifold.LocalNormal = polygonB.Normals[rf.i1]
		manifold.LocalPoint = polygonB.Vertices[rf.i1]
	}

	pointCount := 0
	for i := 0; i < MaxManifoldPoints; i++ {
		separation := rf.normal.Dot(clipPoints2[i].V.Sub(rf.v1))
		if separation > c.radius {
			continue
		}

		cp := &manifold.Points[pointCount]
		if primaryAxis.kind == epAxisEdgeA {
			cp.LocalPoint = c.xf.ApplyT(clipPoints2[i].V)
			cp.ID = clipPoints2[i].ID
		} else {
			cp.LocalPoint = clipPoints2[i].V
			cp.ID = clipPoints2[i].ID.swapped()
		}
		pointCount++
	}

	manifold.PointCount = pointCount
}

// classify decides front or back collision and the admissible normal range.
func (c *edgePolygonCollider) classify(hasV0, hasV3, convex1, convex2 bool, offset0, offset1, offset2 float64) {
	n0, n1, n2 := c.normal0, c.normal1, c.normal2

	set := func(front bool, lowerFront, upperFront, lowerBack, upperBack Vec2) {
		c.front = front
		if front {
			c.normal = n1
			c.lowerLimit, c.upperLimit = lowerFront, upperFront
		} else {
			c.normal = n1.Neg()
			c.lowerLimit, c.upperLimit = lowerBack, upperBack
		}
	}

	switch {
	case hasV0 && hasV3:
		switch {
		case convex1 && convex2:
			set(offset0 >= 0.0 || offset1 >= 0.0 || offset2 >= 0.0, n0, n2, n1.Neg(), n1.Neg())
		case convex1:
			set(offset0 >= 0.0 || (offset1 >= 0.0 && offset2 >= 0.0), n0, n1, n2.Neg(), n1.Neg())
		case convex2:
			set(offset2 >= 0.0 || (offset0 >= 0.0 && offset1 >= 0.0), n1, n2, n1.Neg(), n0.Neg())
		default:
			set(offset0 >= 0.0 && offset1 >= 0.0 && offset2 >= 0.0, n1, n1, n2.Neg(), n0.Neg())
		}

	case hasV0:
		if convex1 {
			set(offset0 >= 0.0 || offset1 >= 0.0, n0, n1.Neg(), n1, n1.Neg())
		} else {
			set(offset0 >= 0.0 && offset1 >= 0.0, n1, n1.Neg(), n1, n0.Neg())
		}

	case hasV3:
		if convex2 {
			set(offset1 >= 0.0 || offset2 >= 0.0, n1.Neg(), n2, n1.Neg(), n1)
		} else {
			set(offset1 >= 0.0 && offset2 >= 0.0, n1.Neg(), n1, n2.Neg(), n1)
		}

	default:
		set(offset1 >= 0.0, n1.Neg(), n1.Neg(), n1, n1)
	}
}

func (c *edgePolygonCollider) edgeSeparation() epAxis {
	axis := epAxis{kind: epAxisEdgeA, separation: MaxFloat}
	if !c.front {
		axis.index = 1
	}

	for i := 0; i < c.count; i++ {
		if s := c.normal.Dot(c.vertices[i].Sub(c.v1)); s < axis.separation {
			axis.separation = s
		}
	}
	return axis
}

func (c *edgePolygonCollider) polygonSeparation() epAxis {
	axis := epAxis{kind: epAxisUnknown, index: -1, separation: -MaxFloat}

	perp := Vec2{-c.normal.Y, c.normal.X}

	for i := 0; i < c.count; i++ {
		n := c.normals[i].Neg()

		s1 := n.Dot(c.vertices[i].Sub(c.v1))
		s2 := n.Dot(c.vertices[i].Sub(c.v2))
		s := math.Min(s1, s2)

		if s > c.radius {
			// No collision
			return epAxis{kind: epAxisEdgeB, index: i, separation: s}
		}

		// Adjacency
		if n.Dot(perp) >= 0.0 {
			if n.Sub(c.upperLimit).Dot(c.normal) < -AngularSlop {
				continue
			}
		} else if n.Sub(c.lowerLimit).Dot(c.normal) < -AngularSlop {
			continue
		}

		if s > axis.separation {
			axis = epAxis{kind: epAxisEdgeB, index: i, separation: s}
		}
	}
	return axis
}
