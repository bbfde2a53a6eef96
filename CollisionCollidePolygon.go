package rigid2d

// findMaxSeparation returns the edge of poly1 with the largest separation
// from poly2, and that separation.
func findMaxSeparation(poly1 *PolygonShape, xf1 Transform, poly2 *PolygonShape, xf2 Transform) (int, float64) {
	xf := xf2.MulT(xf1)

	bestIndex := 0
	maxSeparation := -MaxFloat
	for i := 0; i < poly1.Count; i++ {
		// poly1 normal and vertex in the frame of poly2.
		n := xf.Q.Apply(poly1.Normals[i])
		v1 := xf.Apply(poly1.Vertices[i])

		// Deepest point of poly2 along n.
		si := MaxFloat
		for j := 0; j < poly2.Count; j++ {
			if sij := n.Dot(poly2.Vertices[j].Sub(v1)); sij < si {
				si = sij
			}
		}

		if si > maxSeparation {
			maxSeparation = si
			bestIndex = i
		}
	}
	return bestIndex, maxSeparation
}

// findIncidentEdge picks the edge of poly2 most anti-parallel to the
// reference edge of poly1, in world coordinates.
func findIncidentEdge(poly1 *PolygonShape, xf1 Transform, edge1 int, poly2 *PolygonShape, xf2 Transform) [2]clipVertex {
	assert(0 <= edge1 && edge1 < poly1.Count, "reference edge out of range")

	// Reference edge normal in the frame of poly2.
	normal1 := xf2.Q.ApplyT(xf1.Q.Apply(poly1.Normals[edge1]))

	index := 0
	minDot := MaxFloat
	for i := 0; i < poly2.Count; i++ {
		if dot := normal1.Dot(poly2.Normals[i]); dot < minDot {
			minDot = dot
			index = i
		}
	}

	i1 := index
	i2 := (i1 + 1) % poly2.Count

	return [2]clipVertex{
		{
			V:  xf2.Apply(poly2.Vertices[i1]),
			ID: ContactID{IndexA: uint8(edge1), IndexB: uint8(i1), TypeA: FeatureFace, TypeB: FeatureVertex},
		},
		{
			V:  xf2.Apply(poly2.Vertices[i2]),
			ID: ContactID{IndexA: uint8(edge1), IndexB: uint8(i2), TypeA: FeatureFace, TypeB: FeatureVertex},
		},
	}
}

// CollidePolygons computes the manifold between two polygons:
//   - find the edge normal of max separation on A, return if separating axis is found
//   - find the edge normal of max separation on B, return if separation axis is found
//   - choose reference edge as min(minA, minB)
//   - find incident edge
//   - clip
//
// The normal points from 1 to 2.
func CollidePolygons(manifold *Manifold, polyA *PolygonShape, xfA Transform, polyB *PolygonShape, xfB Transform) {
	manifold.PointCount = 0
	const totalRadius = 2 * PolygonRadius

	edgeA, separationA := findMaxSeparation(polyA, xfA, polyB, xfB)
	if separationA > totalRadius {
		return
	}

	edgeB, separationB := findMaxSeparation(polyB, xfB, polyA, xfA)
	if separationB > totalRadius {
		return
	}

	poly1, poly2 := polyA, polyB // reference, incident
	xf1, xf2 := xfA, xfB
	edge1 := edgeA
	flip := false
	manifold.Type = ManifoldFaceA

	const tol = 0.1 * LinearSlop
	if separationB > separationA+tol {
		poly1, poly2 = polyB, polyA
		xf1, xf2 = xfB, xfA
		edge1 = edgeB
		flip = true
		manifold.Type = ManifoldFaceB
	}

	incidentEdge := findIncidentEdge(poly1, xf1, edge1, poly2, xf2)

	iv1 := edge1
	iv2 := (edge1 + 1) % poly1.Count

	v11 := poly1.Vertices[iv1]
	v12 := poly1.Vertices[iv2]

	localTangent := v12.Sub(v11).Normalized()
	localNormal := CrossVS(localTangent, 1.0)
	planePoint := v11.Add(v12).Scale(0.5)

	tangent := xf1.Q.Apply(localTangent)
	normal := CrossVS(tangent, 1.0)

	v11 = xf1.Apply(v11)
	v12 = xf1.Apply(v12)

	// Face offset.
	frontOffset := normal.Dot(v11)

	// Side offsets, extended by polytope skin thickness.
	sideOffset1 := -tangent.Dot(v11) + totalRadius
	sideOffset2 := tangent.Dot(v12) + totalRadius

	// Clip incident edge against extruded edge1 side edges.
	var clipPoints1, clipPoints2 [2]clipVertex
	if clipSegmentToLine(&clipPoints1, incidentEdge, tangent.Neg(), sideOffset1, iv1) < 2 {
		return
	}
	if clipSegmentToLine(&clipPoints2, clipPoints1, tangent, sideOffset2, iv2) < 2 {
		return
	}

	// Now clipPoints2 contains the clipped points.
	manifold.LocalNormal = localNormal
	manifold.LocalPoint = planePoint

	pointCount := 0
	for i := 0; i < MaxManifoldPoints; i++ {
		separation := normal.Dot(clipPoints2[i].V) - frontOffset
		if separation > totalRadius {
			continue
		}

		cp := &manifold.Points[pointCount]
		cp.LocalPoint = xf2.ApplyT(clipPoints2[i].V)
		cp.ID = clipPoints2[i].ID
		if flip {
			// Swap features
			cp.ID = cp.ID.swapped()
		}
		pointCount++
	}

	manifold.PointCount = pointCount
}
