package rigid2d

// CollideCircles computes the manifold between two circles.
func CollideCircles(manifold *Manifold, circleA *CircleShape, xfA Transform, circleB *CircleShape, xfB Transform) {
	manifold.PointCount = 0

	pA := xfA.Apply(circleA.P)
	pB := xfB.Apply(circleB.P)

	radius := circleA.R + circleB.R
	if DistanceSquared(pA, pB) > radius*radius {
		return
	}

	manifold.Type = ManifoldCircles
	manifold.LocalPoint = circleA.P
	manifold.LocalNormal = Vec2{}
	manifold.PointCount = 1
	manifold.Points[0].LocalPoint = circleB.P
	manifold.Points[0].ID = ContactID{}
}

// CollidePolygonAndCircle computes the manifold between a polygon and a circle.
func CollidePolygonAndCircle(manifold *Manifold, polygonA *PolygonShape, xfA Transform, circleB *CircleShape, xfB Transform) {
	manifold.PointCount = 0

	// Circle position in the frame of the polygon.
	cLocal := xfA.ApplyT(xfB.Apply(circleB.P))

	// Find the min separating edge.
	normalIndex := 0
	separation := -MaxFloat
	radius := PolygonRadius + circleB.R
	count := polygonA.Count
	vertices := &polygonA.Vertices
	normals := &polygonA.Normals

	for i := 0; i < count; i++ {
		s := normals[i].Dot(cLocal.Sub(vertices[i]))
		if s > radius {
			// Early out.
			return
		}
		if s > separation {
			separation = s
			normalIndex = i
		}
	}

	// Vertices that subtend the incident face.
	v1 := vertices[normalIndex]
	v2 := vertices[(normalIndex+1)%count]

	setFaceA := func(normal, point Vec2) {
		manifold.PointCount = 1
		manifold.Type = ManifoldFaceA
		manifold.LocalNormal = normal
		manifold.LocalPoint = point
		manifold.Points[0].LocalPoint = circleB.P
		manifold.Points[0].ID = ContactID{}
	}

	// Center inside the polygon.
	if separation < Epsilon {
		setFaceA(normals[normalIndex], v1.Add(v2).Scale(0.5))
		return
	}

	// Barycentric coordinates along the face.
	u1 := cLocal.Sub(v1).Dot(v2.Sub(v1))
	u2 := cLocal.Sub(v2).Dot(v1.Sub(v2))

	switch {
	case u1 <= 0.0:
		if DistanceSquared(cLocal, v1) > radius*radius {
			return
		}
		setFaceA(cLocal.Sub(v1).Normalized(), v1)

	case u2 <= 0.0:
		if DistanceSquared(cLocal, v2) > radius*radius {
			return
		}
		setFaceA(cLocal.Sub(v2).Normalized(), v2)

	default:
		faceCenter := v1.Add(v2).Scale(0.5)
		if cLocal.Sub(faceCenter).Dot(normals[normalIndex]) > radius {
			return
		}
		setFaceA(normals[normalIndex], faceCenter)
	}
}
