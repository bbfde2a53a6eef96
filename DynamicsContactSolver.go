package rigid2d

import "math"

// maxConditionNumber guards the 2-point block solver against a poorly
// conditioned effective mass.
const maxConditionNumber = 1000.0

type velocityConstraintPoint struct {
	rA             Vec2
	rB             Vec2
	normalImpulse  float64
	tangentImpulse float64
	normalMass     float64
	tangentMass    float64
	velocityBias   float64
}

type contactVelocityConstraint struct {
	points       [MaxManifoldPoints]velocityConstraintPoint
	normal       Vec2
	normalMass   Mat22
	k            Mat22
	indexA       int
	indexB       int
	invMassA     float64
	invMassB     float64
	invIA        float64
	invIB        float64
	friction     float64
	restitution  float64
	tangentSpeed float64
	pointCount   int
	contactIndex int
}

type contactPositionConstraint struct {
	localPoints  [MaxManifoldPoints]Vec2
	localNormal  Vec2
	localPoint   Vec2
	indexA       int
	indexB       int
	invMassA     float64
	invMassB     float64
	localCenterA Vec2
	localCenterB Vec2
	invIA        float64
	invIB        float64
	kind         ManifoldType
	radiusA      float64
	radiusB      float64
	pointCount   int
}

// contactSolver runs sequential impulses over the contacts of one island.
// Its constraint slices are reused from one island to the next.
type contactSolver struct {
	step                timeStep
	tuning              *Tuning
	positions           []position
	velocities          []velocity
	positionConstraints []contactPositionConstraint
	velocityConstraints []contactVelocityConstraint
	contacts            []*Contact
}

// init captures the position independent parts of the constraints and
// scales the stored impulses for warm starting.
func (s *contactSolver) init(step timeStep, tuning *Tuning, contacts []*Contact, positions []position, velocities []velocity) {
	s.step = step
	s.tuning = tuning
	s.contacts = contacts
	s.positions = positions
	s.velocities = velocities

	count := len(contacts)
	s.positionConstraints = resize(s.positionConstraints, count)
	s.velocityConstraints = resize(s.velocityConstraints, count)

	for i, c := range contacts {
		fixtureA := c.fixtureA
		fixtureB := c.fixtureB
		radiusA := fixtureA.shape.Radius()
		radiusB := fixtureB.shape.Radius()
		bodyA := fixtureA.body
		bodyB := fixtureB.body
		manifold := &c.manifold

		pointCount := manifold.PointCount
		assert(pointCount > 0, "solver contact has no points")

		vc := &s.velocityConstraints[i]
		*vc = contactVelocityConstraint{
			friction:     c.friction,
			restitution:  c.restitution,
			tangentSpeed: c.tangentSpeed,
			indexA:       bodyA.islandIndex,
			indexB:       bodyB.islandIndex,
			invMassA:     bodyA.invMass,
			invMassB:     bodyB.invMass,
			invIA:        bodyA.invI,
			invIB:        bodyB.invI,
			contactIndex: i,
			pointCount:   pointCount,
		}

		pc := &s.positionConstraints[i]
		*pc = contactPositionConstraint{
			indexA:       bodyA.islandIndex,
			indexB:       bodyB.islandIndex,
			invMassA:     bodyA.invMass,
			invMassB:     bodyB.invMass,
			localCenterA: bodyA.sweep.LocalCenter,
			localCenterB: bodyB.sweep.LocalCenter,
			invIA:        bodyA.invI,
			invIB:        bodyB.invI,
			localNormal:  manifold.LocalNormal,
			localPoint:   manifold.LocalPoint,
			pointCount:   pointCount,
			radiusA:      radiusA,
			radiusB:      radiusB,
			kind:         manifold.Type,
		}

		for j := 0; j < pointCount; j++ {
			cp := &manifold.Points[j]
			vcp := &vc.points[j]

			if step.warmStarting {
				vcp.normalImpulse = step.dtRatio * cp.NormalImpulse
				vcp.tangentImpulse = step.dtRatio * cp.TangentImpulse
			}

			pc.localPoints[j] = cp.LocalPoint
		}
	}
}

// resize returns s with length n, reusing its storage when possible.
func resize[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	return s[:n]
}

func (s *contactSolver) initializeVelocityConstraints() {
	for i := range s.velocityConstraints {
		vc := &s.velocityConstraints[i]
		pc := &s.positionConstraints[i]

		radiusA := pc.radiusA
		radiusB := pc.radiusB
		manifold := &s.contacts[vc.contactIndex].manifold

		indexA := vc.indexA
		indexB := vc.indexB

		mA := vc.invMassA
		mB := vc.invMassB
		iA := vc.invIA
		iB := vc.invIB
		localCenterA := pc.localCenterA
		localCenterB := pc.localCenterB

		cA := s.positions[indexA].c
		aA := s.positions[indexA].a
		vA := s.velocities[indexA].v
		wA := s.velocities[indexA].w

		cB := s.positions[indexB].c
		aB := s.positions[indexB].a
		vB := s.velocities[indexB].v
		wB := s.velocities[indexB].w

		assert(manifold.PointCount > 0, "solver contact has no points")

		var xfA, xfB Transform
		xfA.Q = NewRot(aA)
		xfB.Q = NewRot(aB)
		xfA.P = cA.Sub(xfA.Q.Apply(localCenterA))
		xfB.P = cB.Sub(xfB.Q.Apply(localCenterB))

		var wm WorldManifold
		wm.Initialize(manifold, xfA, radiusA, xfB, radiusB)

		vc.normal = wm.Normal
		tangent := CrossVS(vc.normal, 1.0)

		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]

			vcp.rA = wm.Points[j].Sub(cA)
			vcp.rB = wm.Points[j].Sub(cB)

			rnA := vcp.rA.Cross(vc.normal)
			rnB := vcp.rB.Cross(vc.normal)
			kNormal := mA + mB + iA*rnA*rnA + iB*rnB*rnB
			vcp.normalMass = 0.0
			if kNormal > 0.0 {
				vcp.normalMass = 1.0 / kNormal
			}

			rtA := vcp.rA.Cross(tangent)
			rtB := vcp.rB.Cross(tangent)
			kTangent := mA + mB + iA*rtA*rtA + iB*rtB*rtB
			vcp.tangentMass = 0.0
			if kTangent > 0.0 {
				vcp.tangentMass = 1.0 / kTangent
			}

			// Setup a velocity bias for restitution.
			vcp.velocityBias = 0.0
			vRel := vc.normal.Dot(vB.Add(CrossSV(wB, vcp.rB)).Sub(vA).Sub(CrossSV(wA, vcp.rA)))
			if vRel < -s.tuning.VelocityThreshold {
				vcp.velocityBias = -vc.restitution * vRel
			}
		}

		// If we have two points, then prepare the block solver.
		if vc.pointCount == 2 {
			vcp1 := &vc.points[0]
			vcp2 := &vc.points[1]

			rn1A := vcp1.rA.Cross(vc.normal)
			rn1B := vcp1.rB.Cross(vc.normal)
			rn2A := vcp2.rA.Cross(vc.normal)
			rn2B := vcp2.rB.Cross(vc.normal)

			k11 := mA + mB + iA*rn1A*rn1A + iB*rn1B*rn1B
			k22 := mA + mB + iA*rn2A*rn2A + iB*rn2B*rn2B
			k12 := mA + mB + iA*rn1A*rn2A + iB*rn1B*rn2B

			if k11*k11 < maxConditionNumber*(k11*k22-k12*k12) {
				// K is safe to invert.
				vc.k = newMat22(Vec2{k11, k12}, Vec2{k12, k22})
				vc.normalMass = inverse22(vc.k)
			} else {
				// The constraints are redundant, just use one.
				vc.pointCount = 1
			}
		}
	}
}

func (s *contactSolver) warmStart() {
	for i := range s.velocityConstraints {
		vc := &s.velocityConstraints[i]

		indexA := vc.indexA
		indexB := vc.indexB
		mA := vc.invMassA
		iA := vc.invIA
		mB := vc.invMassB
		iB := vc.invIB

		vA := s.velocities[indexA].v
		wA := s.velocities[indexA].w
		vB := s.velocities[indexB].v
		wB := s.velocities[indexB].w

		normal := vc.normal
		tangent := CrossVS(normal, 1.0)

		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]
			p := normal.Scale(vcp.normalImpulse).Add(tangent.Scale(vcp.tangentImpulse))
			wA -= iA * vcp.rA.Cross(p)
			vA = vA.Sub(p.Scale(mA))
			wB += iB * vcp.rB.Cross(p)
			vB = vB.Add(p.Scale(mB))
		}

		s.velocities[indexA] = velocity{vA, wA}
		s.velocities[indexB] = velocity{vB, wB}
	}
}

func (s *contactSolver) solveVelocityConstraints() {
	for i := range s.velocityConstraints {
		vc := &s.velocityConstraints[i]

		indexA := vc.indexA
		indexB := vc.indexB
		mA := vc.invMassA
		iA := vc.invIA
		mB := vc.invMassB
		iB := vc.invIB
		pointCount := vc.pointCount

		vA := s.velocities[indexA].v
		wA := s.velocities[indexA].w
		vB := s.velocities[indexB].v
		wB := s.velocities[indexB].w

		normal := vc.normal
		tangent := CrossVS(normal, 1.0)
		friction := vc.friction

		assert(pointCount == 1 || pointCount == 2, "solver contact must have 1 or 2 points")

		// Solve tangent constraints first because non-penetration is more
		// important than friction.
		for j := 0; j < pointCount; j++ {
			vcp := &vc.points[j]

			// Relative velocity at contact
			dv := vB.Add(CrossSV(wB, vcp.rB)).Sub(vA).Sub(CrossSV(wA, vcp.rA))

			vt := dv.Dot(tangent) - vc.tangentSpeed
			lambda := vcp.tangentMass * -vt

			// Clamp the accumulated force
			maxFriction := friction * vcp.normalImpulse
			newImpulse := clamp(vcp.tangentImpulse+lambda, -maxFriction, maxFriction)
			lambda = newImpulse - vcp.tangentImpulse
			vcp.tangentImpulse = newImpulse

			p := tangent.Scale(lambda)
			vA = vA.Sub(p.Scale(mA))
			wA -= iA * vcp.rA.Cross(p)
			vB = vB.Add(p.Scale(mB))
			wB += iB * vcp.rB.Cross(p)
		}

		if pointCount == 1 {
			vcp := &vc.points[0]

			dv := vB.Add(CrossSV(wB, vcp.rB)).Sub(vA).Sub(CrossSV(wA, vcp.rA))
			vn := dv.Dot(normal)
			lambda := -vcp.normalMass * (vn - vcp.velocityBias)

			// Clamp the accumulated impulse
			newImpulse := math.Max(vcp.normalImpulse+lambda, 0.0)
			lambda = newImpulse - vcp.normalImpulse
			vcp.normalImpulse = newImpulse

			p := normal.Scale(lambda)
			vA = vA.Sub(p.Scale(mA))
			wA -= iA * vcp.rA.Cross(p)
			vB = vB.Add(p.Scale(mB))
			wB += iB * vcp.rB.Cross(p)
		} else {
			vA, wA, vB, wB = s.solveBlock(vc, vA, wA, vB, wB)
		}

		s.velocities[indexA] = velocity{vA, wA}
		s.velocities[indexB] = velocity{vB, wB}
	}
}

// solveBlock solves the two normal constraints of a 2-point manifold
// together as a linear complementarity problem:
//
//	vn = A * x + b, vn >= 0, x >= 0 and vn_i * x_i = 0
//
// x is the new accumulated impulse and b the relative velocity with the old
// impulse removed. The four cases are tried in turn; the first one that
// satisfies the constraints wins. If none does, which only happens through
// round off, the impulses are left unchanged.
func (s *contactSolver) solveBlock(vc *contactVelocityConstraint, vA Vec2, wA float64, vB Vec2, wB float64) (Vec2, float64, Vec2, float64) {
	mA := vc.invMassA
	iA := vc.invIA
	mB := vc.invMassB
	iB := vc.invIB
	normal := vc.normal

	cp1 := &vc.points[0]
	cp2 := &vc.points[1]

	a := Vec2{cp1.normalImpulse, cp2.normalImpulse}
	assert(a.X >= 0.0 && a.Y >= 0.0, "accumulated normal impulse is negative")

	// Relative velocity at contact
	dv1 := vB.Add(CrossSV(wB, cp1.rB)).Sub(vA).Sub(CrossSV(wA, cp1.rA))
	dv2 := vB.Add(CrossSV(wB, cp2.rB)).Sub(vA).Sub(CrossSV(wA, cp2.rA))

	vn1 := dv1.Dot(normal)
	vn2 := dv2.Dot(normal)

	b := Vec2{vn1 - cp1.velocityBias, vn2 - cp2.velocityBias}
	b = b.Sub(mulMat22(vc.k, a))

	apply := func(x Vec2) {
		d := x.Sub(a)

		p1 := normal.Scale(d.X)
		p2 := normal.Scale(d.Y)
		vA = vA.Sub(p1.Add(p2).Scale(mA))
		wA -= iA * (cp1.rA.Cross(p1) + cp2.rA.Cross(p2))

		vB = vB.Add(p1.Add(p2).Scale(mB))
		wB += iB * (cp1.rB.Cross(p1) + cp2.rB.Cross(p2))

		cp1.normalImpulse = x.X
		cp2.normalImpulse = x.Y
	}

	// Case 1: vn = 0, both constraints active.
	x := mulMat22(vc.normalMass, b).Neg()
	if x.X >= 0.0 && x.Y >= 0.0 {
		apply(x)
		return vA, wA, vB, wB
	}

	// Case 2: vn1 = 0 and x2 = 0.
	x = Vec2{-cp1.normalMass * b.X, 0.0}
	vn2 = vc.k[1]*x.X + b.Y
	if x.X >= 0.0 && vn2 >= 0.0 {
		apply(x)
		return vA, wA, vB, wB
	}

	// Case 3: vn2 = 0 and x1 = 0.
	x = Vec2{0.0, -cp2.normalMass * b.Y}
	vn1 = vc.k[2]*x.Y + b.X
	if x.Y >= 0.0 && vn1 >= 0.0 {
		apply(x)
		return vA, wA, vB, wB
	}

	// Case 4: x = 0.
	x = Vec2{}
	vn1 = b.X
	vn2 = b.Y
	if vn1 >= 0.0 && vn2 >= 0.0 {
		apply(x)
	}
	return vA, wA, vB, wB
}

// storeImpulses copies the accumulated impulses back to the manifolds for
// warm starting the next step.
func (s *contactSolver) storeImpulses() {
	for i := range s.velocityConstraints {
		vc := &s.velocityConstraints[i]
		manifold := &s.contacts[vc.contactIndex].manifold

		for j := 0; j < vc.pointCount; j++ {
			manifold.Points[j].NormalImpulse = vc.points[j].normalImpulse
			manifold.Points[j].TangentImpulse = vc.points[j].tangentImpulse
		}
	}
}

// positionSolverManifold returns the world normal, point and separation of
// contact point index at the given transforms.
func positionSolverManifold(pc *contactPositionConstraint, xfA, xfB Transform, index int) (normal, point Vec2, separation float64) {
	assert(pc.pointCount > 0, "solver contact has no points")

	switch pc.kind {
	case ManifoldCircles:
		pointA := xfA.Apply(pc.localPoint)
		pointB := xfB.Apply(pc.localPoints[0])
		normal = pointB.Sub(pointA)
		normal.Normalize()
		point = pointA.Add(pointB).Scale(0.5)
		separation = pointB.Sub(pointA).Dot(normal) - pc.radiusA - pc.radiusB

	case ManifoldFaceA:
		normal = xfA.Q.Apply(pc.localNormal)
		planePoint := xfA.Apply(pc.localPoint)

		clipPoint := xfB.Apply(pc.localPoints[index])
		separation = clipPoint.Sub(planePoint).Dot(normal) - pc.radiusA - pc.radiusB
		point = clipPoint

	case ManifoldFaceB:
		normal = xfB.Q.Apply(pc.localNormal)
		planePoint := xfB.Apply(pc.localPoint)

		clipPoint := xfA.Apply(pc.localPoints[index])
		separation = clipPoint.Sub(planePoint).Dot(normal) - pc.radiusA - pc.radiusB
		point = clipPoint

		// Ensure normal points from A to B
		normal = normal.Neg()
	}
	return normal, point, separation
}

// solvePositionConstraints pushes overlapping bodies apart with Baumgarte
// stabilization. It reports whether the largest penetration is within
// 3 * LinearSlop.
func (s *contactSolver) solvePositionConstraints() bool {
	minSeparation := s.solvePositions(s.tuning.Baumgarte, -1, -1)

	// We can't expect minSeparation >= -LinearSlop because we don't push the
	// separation above -LinearSlop.
	return minSeparation >= -3.0*LinearSlop
}

// solveTOIPositionConstraints is the sub-step variant: only the two bodies
// of the time of impact event move.
func (s *contactSolver) solveTOIPositionConstraints(toiIndexA, toiIndexB int) bool {
	minSeparation := s.solvePositions(s.tuning.TOIBaumgarte, toiIndexA, toiIndexB)

	// The TOI solve pushes a little further than the discrete one.
	return minSeparation >= -1.5*LinearSlop
}

// solvePositions runs one position pass and returns the minimum separation.
// With toi indices >= 0 every other body is treated as having infinite mass.
func (s *contactSolver) solvePositions(baumgarte float64, toiIndexA, toiIndexB int) float64 {
	minSeparation := 0.0
	toi := toiIndexA >= 0

	for i := range s.positionConstraints {
		pc := &s.positionConstraints[i]

		indexA := pc.indexA
		indexB := pc.indexB
		localCenterA := pc.localCenterA
		localCenterB := pc.localCenterB
		pointCount := pc.pointCount

		mA, iA := pc.invMassA, pc.invIA
		mB, iB := pc.invMassB, pc.invIB
		if toi {
			if indexA != toiIndexA && indexA != toiIndexB {
				mA, iA = 0.0, 0.0
			}
			if indexB != toiIndexA && indexB != toiIndexB {
				mB, iB = 0.0, 0.0
			}
		}

		cA := s.positions[indexA].c
		aA := s.positions[indexA].a
		cB := s.positions[indexB].c
		aB := s.positions[indexB].a

		// Solve normal constraints
		for j := 0; j < pointCount; j++ {
			var xfA, xfB Transform
			xfA.Q = NewRot(aA)
			xfB.Q = NewRot(aB)
			xfA.P = cA.Sub(xfA.Q.Apply(localCenterA))
			xfB.P = cB.Sub(xfB.Q.Apply(localCenterB))

			normal, point, separation := positionSolverManifold(pc, xfA, xfB, j)

			rA := point.Sub(cA)
			rB := point.Sub(cB)

			// Track max constraint error.
			minSeparation = math.Min(minSeparation, separation)

			// Prevent large corrections and allow slop.
			c := clamp(baumgarte*(separation+LinearSlop), -s.tuning.MaxLinearCorrection, 0.0)

			// Compute the effective mass.
			rnA := rA.Cross(normal)
			rnB := rB.Cross(normal)
			k := mA + mB + iA*rnA*rnA + iB*rnB*rnB

			// Compute normal impulse
			impulse := 0.0
			if k > 0.0 {
				impulse = -c / k
			}

			p := normal.Scale(impulse)

			cA = cA.Sub(p.Scale(mA))
			aA -= iA * rA.Cross(p)

			cB = cB.Add(p.Scale(mB))
			aB += iB * rB.Cross(p)
		}

		s.positions[indexA] = position{cA, aA}
		s.positions[indexB] = position{cB, aB}
	}

	return minSeparation
}
