package rigid2d

import (
	"math"
)

// ContactFeatureType tells whether a contact feature is a vertex or a face.
type ContactFeatureType uint8

const (
	FeatureVertex ContactFeatureType = iota
	FeatureFace
)

// ContactID identifies the features that intersect to form a contact point.
// Ids are what carry accumulated impulses from one step to the next.
type ContactID struct {
	IndexA uint8 // feature index on shape A
	IndexB uint8 // feature index on shape B
	TypeA  ContactFeatureType
	TypeB  ContactFeatureType
}

// Key packs the id for quick comparison.
func (id ContactID) Key() uint32 {
	return uint32(id.IndexA) |
		uint32(id.IndexB)<<8 |
		uint32(id.TypeA)<<16 |
		uint32(id.TypeB)<<24
}

// swapped returns the id seen from the other shape.
func (id ContactID) swapped() ContactID {
	return ContactID{IndexA: id.IndexB, IndexB: id.IndexA, TypeA: id.TypeB, TypeB: id.TypeA}
}

// ManifoldPoint is a contact point belonging to a contact manifold. The local
// point usage depends on the manifold type:
//   - ManifoldCircles: the local center of circle B
//   - ManifoldFaceA: the local center of circle B or the clip point of polygon B
//   - ManifoldFaceB: the clip point of polygon A
//
// The impulses are solver caches used for warm starting. They may not be
// reliable contact forces, especially for high speed collisions.
type ManifoldPoint struct {
	LocalPoint     Vec2
	NormalImpulse  float64
	TangentImpulse float64
	ID             ContactID
}

type ManifoldType uint8

const (
	ManifoldCircles ManifoldType = iota
	ManifoldFaceA
	ManifoldFaceB
)

// Manifold describes two touching convex shapes in the local frame of one of
// them, so position correction can account for movement (which continuous
// physics depends on). LocalPoint is the center of circle A, face A or face B
// depending on Type; LocalNormal is unused for circles.
type Manifold struct {
	Points      [MaxManifoldPoints]ManifoldPoint
	LocalNormal Vec2
	LocalPoint  Vec2
	Type        ManifoldType
	PointCount  int
}

// WorldManifold is a manifold evaluated at the current transforms.
type WorldManifold struct {
	Normal      Vec2 // points from A to B
	Points      [MaxManifoldPoints]Vec2
	Separations [MaxManifoldPoints]float64 // negative values indicate overlap
}

// Initialize evaluates manifold with the given transforms and radii. The
// resulting points lie mid-way between the two surfaces.
func (wm *WorldManifold) Initialize(manifold *Manifold, xfA Transform, radiusA float64, xfB Transform, radiusB float64) {
	if manifold.PointCount == 0 {
		return
	}

	switch manifold.Type {
	case ManifoldCircles:
		wm.Normal = Vec2{1, 0}
		pointA := xfA.Apply(manifold.LocalPoint)
		pointB := xfB.Apply(manifold.Points[0].LocalPoint)
		if DistanceSquared(pointA, pointB) > Epsilon*Epsilon {
			wm.Normal = pointB.Sub(pointA).Normalized()
		}

		cA := pointA.Add(wm.Normal.Scale(radiusA))
		cB := pointB.Sub(wm.Normal.Scale(radiusB))
		wm.Points[0] = cA.Add(cB).Scale(0.5)
		wm.Separations[0] = cB.Sub(cA).Dot(wm.Normal)

	case ManifoldFaceA:
		wm.Normal = xfA.Q.Apply(manifold.LocalNormal)
		planePoint := xfA.Apply(manifold.LocalPoint)

		for i := 0; i < manifold.PointCount; i++ {
			clipPoint := xfB.Apply(manifold.Points[i].LocalPoint)
			cA := clipPoint.Add(wm.Normal.Scale(radiusA - clipPoint.Sub(planePoint).Dot(wm.Normal)))
			cB := clipPoint.Sub(wm.Normal.Scale(radiusB))
			wm.Points[i] = cA.Add(cB).Scale(0.5)
			wm.Separations[i] = cB.Sub(cA).Dot(wm.Normal)
		}

	case ManifoldFaceB:
		wm.Normal = xfB.Q.Apply(manifold.LocalNormal)
		planePoint := xfB.Apply(manifold.LocalPoint)

		for i := 0; i < manifold.PointCount; i++ {
			clipPoint := xfA.Apply(manifold.Points[i].LocalPoint)
			cB := clipPoint.Add(wm.Normal.Scale(radiusB - clipPoint.Sub(planePoint).Dot(wm.Normal)))
			cA := clipPoint.Sub(wm.Normal.Scale(radiusA))
			wm.Points[i] = cA.Add(cB).Scale(0.5)
			wm.Separations[i] = cA.Sub(cB).Dot(wm.Normal)
		}

		// Ensure normal points from A to B.
		wm.Normal = wm.Normal.Neg()
	}
}

// PointState describes how a manifold point changed across an update.
type PointState uint8

const (
	PointNull    PointState = iota // point does not exist
	PointAdd                       // point was added in the update
	PointPersist                   // point persisted across the update
	PointRemove                    // point was removed in the update
)

// GetPointStates compares two manifolds by contact id. state1 describes the
// points of manifold1, state2 the points of manifold2.
func GetPointStates(manifold1, manifold2 *Manifold) (state1, state2 [MaxManifoldPoints]PointState) {
	for i := 0; i < manifold1.PointCount; i++ {
		key := manifold1.Points[i].ID.Key()
		state1[i] = PointRemove
		for j := 0; j < manifold2.PointCount; j++ {
			if manifold2.Points[j].ID.Key() == key {
				state1[i] = PointPersist
				break
			}
		}
	}

	for i := 0; i < manifold2.PointCount; i++ {
		key := manifold2.Points[i].ID.Key()
		state2[i] = PointAdd
		for j := 0; j < manifold1.PointCount; j++ {
			if manifold1.Points[j].ID.Key() == key {
				state2[i] = PointPersist
				break
			}
		}
	}
	return state1, state2
}

// clipVertex is used for computing contact manifolds.
type clipVertex struct {
	V  Vec2
	ID ContactID
}

// RayCastInput describes a ray from P1 to P1 + MaxFraction * (P2 - P1).
type RayCastInput struct {
	P1, P2      Vec2
	MaxFraction float64
}

// RayCastOutput reports a hit at P1 + Fraction * (P2 - P1).
type RayCastOutput struct {
	Normal   Vec2
	Fraction float64
}

// AABB is an axis aligned bounding box.
type AABB struct {
	LowerBound Vec2
	UpperBound Vec2
}

func (bb AABB) Center() Vec2 {
	return bb.LowerBound.Add(bb.UpperBound).Scale(0.5)
}

// Extents returns the half-widths.
func (bb AABB) Extents() Vec2 {
	return bb.UpperBound.Sub(bb.LowerBound).Scale(0.5)
}

func (bb AABB) Perimeter() float64 {
	wx := bb.UpperBound.X - bb.LowerBound.X
	wy := bb.UpperBound.Y - bb.LowerBound.Y
	return 2.0 * (wx + wy)
}

// Combine returns the union of bb and o.
func (bb AABB) Combine(o AABB) AABB {
	return AABB{
		LowerBound: MinVec2(bb.LowerBound, o.LowerBound),
		UpperBound: MaxVec2(bb.UpperBound, o.UpperBound),
	}
}

// Contains reports whether o lies entirely inside bb.
func (bb AABB) Contains(o AABB) bool {
	return bb.LowerBound.X <= o.LowerBound.X &&
		bb.LowerBound.Y <= o.LowerBound.Y &&
		o.UpperBound.X <= bb.UpperBound.X &&
		o.UpperBound.Y <= bb.UpperBound.Y
}

func (bb AABB) IsValid() bool {
	d := bb.UpperBound.Sub(bb.LowerBound)
	return d.X >= 0.0 && d.Y >= 0.0 && bb.LowerBound.IsValid() && bb.UpperBound.IsValid()
}

// Overlaps reports whether the two boxes intersect (touching counts).
func (bb AABB) Overlaps(o AABB) bool {
	d1 := o.LowerBound.Sub(bb.UpperBound)
	d2 := bb.LowerBound.Sub(o.UpperBound)

	if d1.X > 0.0 || d1.Y > 0.0 {
		return false
	}
	if d2.X > 0.0 || d2.Y > 0.0 {
		return false
	}
	return true
}

// RayCast intersects the ray with the box (slab test). Rays starting inside
// the box report no hit.
func (bb AABB) RayCast(input RayCastInput) (RayCastOutput, bool) {
	tmin := -MaxFloat
	tmax := MaxFloat

	p := [2]float64{input.P1.X, input.P1.Y}
	d := [2]float64{input.P2.X - input.P1.X, input.P2.Y - input.P1.Y}
	lower := [2]float64{bb.LowerBound.X, bb.LowerBound.Y}
	upper := [2]float64{bb.UpperBound.X, bb.UpperBound.Y}

	var normal [2]float64

	for i := 0; i < 2; i++ {
		if math.Abs(d[i]) < Epsilon {
			// Parallel.
			if p[i] < lower[i] || upper[i] < p[i] {
				return RayCastOutput{}, false
			}
			continue
		}

		invD := 1.0 / d[i]
		t1 := (lower[i] - p[i]) * invD
		t2 := (upper[i] - p[i]) * invD

		// Sign of the normal vector.
		s := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			s = 1.0
		}

		// Push the min up.
		if t1 > tmin {
			normal = [2]float64{}
			normal[i] = s
			tmin = t1
		}

		// Pull the max down.
		tmax = math.Min(tmax, t2)

		if tmin > tmax {
			return RayCastOutput{}, false
		}
	}

	if tmin < 0.0 || input.MaxFraction < tmin {
		return RayCastOutput{}, false
	}

	return RayCastOutput{Fraction: tmin, Normal: Vec2{normal[0], normal[1]}}, true
}

// clipSegmentToLine is Sutherland-Hodgman clipping of a segment against a half plane.
func clipSegmentToLine(vOut *[2]clipVertex, vIn [2]clipVertex, normal Vec2, offset float64, vertexIndexA int) int {
	numOut := 0

	// Distance of end points to the line.
	distance0 := normal.Dot(vIn[0].V) - offset
	distance1 := normal.Dot(vIn[1].V) - offset

	// Points behind the plane are kept.
	if distance0 <= 0.0 {
		vOut[numOut] = vIn[0]
		numOut++
	}
	if distance1 <= 0.0 {
		vOut[numOut] = vIn[1]
		numOut++
	}

	// The points are on different sides of the plane.
	if distance0*distance1 < 0.0 {
		interp := distance0 / (distance0 - distance1)
		vOut[numOut].V = vIn[0].V.Add(vIn[1].V.Sub(vIn[0].V).Scale(interp))

		// VertexA is hitting edgeB.
		vOut[numOut].ID = ContactID{
			IndexA: uint8(vertexIndexA),
			IndexB: vIn[0].ID.IndexB,
			TypeA:  FeatureVertex,
			TypeB:  FeatureFace,
		}
		numOut++
	}

	return numOut
}

// TestOverlap determines if two generic shape children overlap.
func TestOverlap(shapeA Shape, indexA int, shapeB Shape, indexB int, xfA, xfB Transform) bool {
	input := DistanceInput{
		ProxyA:     NewDistanceProxy(shapeA, indexA),
		ProxyB:     NewDistanceProxy(shapeB, indexB),
		TransformA: xfA,
		TransformB: xfB,
		UseRadii:   true,
	}

	var cache SimplexCache
	var output DistanceOutput
	ComputeDistance(&output, &cache, &input)

	return output.Distance < 10.0*Epsilon
}
