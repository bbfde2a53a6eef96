package rigid2d

// GearJointDef couples two revolute or prismatic joints. The bodies are
// taken from the joints: bodyA is Joint1's bodyB and bodyB is Joint2's
// bodyB.
type GearJointDef struct {
	JointDefBase

	Joint1 Joint
	Joint2 Joint

	// Ratio binds the joint coordinates:
	// coordinate1 + Ratio*coordinate2 = constant.
	Ratio float64
}

// DefaultGearJointDef has a ratio of one.
func DefaultGearJointDef() GearJointDef {
	return GearJointDef{Ratio: 1.0}
}

// GearJoint connects two joints together. Either joint can be a revolute
// or prismatic joint; when the types differ the ratio has units of length
// or inverse length.
//
// Destroying Joint1 or Joint2 leaves the gear joint dangling; destroy the
// gear joint first.
type GearJoint struct {
	jointBase

	joint1 Joint
	joint2 Joint

	typeA JointType
	typeB JointType

	// bodyA is connected to bodyC and bodyB to bodyD.
	bodyC *Body
	bodyD *Body

	localAnchorA Vec2
	localAnchorB Vec2
	localAnchorC Vec2
	localAnchorD Vec2

	localAxisC Vec2
	localAxisD Vec2

	referenceAngleA float64
	referenceAngleB float64

	constant float64
	ratio    float64
	impulse  float64

	// Solver temp
	a, b, c, d         solverBody
	jvAC, jvBD         Vec2
	jwA, jwB, jwC, jwD float64
	mass               float64
}

// Gear Joint:
// C0 = (coordinate1 + ratio * coordinate2)_initial
// C = (coordinate1 + ratio * coordinate2) - C0 = 0
// J = [J1 ratio * J2]
// K = J * invM * JT
//   = J1 * invM1 * J1T + ratio * ratio * J2 * invM2 * J2T
//
// Revolute:
// coordinate = rotation
// Cdot = angularVelocity
// J = [0 0 1]
// K = J * invM * JT = invI
//
// Prismatic:
// coordinate = dot(p - pg, ug)
// Cdot = dot(v + cross(w, r), ug)
// J = [ug cross(r, ug)]
// K = J * invM * JT = invMass + invI * cross(r, ug)^2

// gearSide is the geometry one coupled joint contributes to the gear.
type gearSide struct {
	ground, body   *Body
	localAnchorG   Vec2
	localAnchorB   Vec2
	localAxisG     Vec2
	referenceAngle float64
	coordinate     float64
}

func newGearSide(j Joint) gearSide {
	var side gearSide
	side.ground = j.BodyA()
	side.body = j.BodyB()

	xfB := side.body.xf
	xfG := side.ground.xf

	switch joint := j.(type) {
	case *RevoluteJoint:
		side.localAnchorG = joint.localAnchorA
		side.localAnchorB = joint.localAnchorB
		side.referenceAngle = joint.referenceAngle
		side.coordinate = side.body.sweep.A - side.ground.sweep.A - side.referenceAngle
	case *PrismaticJoint:
		side.localAnchorG = joint.localAnchorA
		side.localAnchorB = joint.localAnchorB
		side.referenceAngle = joint.referenceAngle
		side.localAxisG = joint.localXAxisA

		pG := side.localAnchorG
		pB := xfG.Q.ApplyT(xfB.Q.Apply(side.localAnchorB).Add(xfB.P.Sub(xfG.P)))
		side.coordinate = pB.Sub(pG).Dot(side.localAxisG)
	default:
		panic("rigid2d: gear joint needs revolute or prismatic joints")
	}
	return side
}

func newGearJoint(def *GearJointDef) *GearJoint {
	assert(def.Joint1 != nil && def.Joint2 != nil, "gear joint needs two joints")

	sideA := newGearSide(def.Joint1)
	sideB := newGearSide(def.Joint2)

	base := def.JointDefBase
	base.BodyA = sideA.body
	base.BodyB = sideB.body

	return &GearJoint{
		jointBase:       newJointBase(GearJointType, &base),
		joint1:          def.Joint1,
		joint2:          def.Joint2,
		typeA:           def.Joint1.Type(),
		typeB:           def.Joint2.Type(),
		bodyC:           sideA.ground,
		bodyD:           sideB.ground,
		localAnchorA:    sideA.localAnchorB,
		localAnchorC:    sideA.localAnchorG,
		localAxisC:      sideA.localAxisG,
		referenceAngleA: sideA.referenceAngle,
		localAnchorB:    sideB.localAnchorB,
		localAnchorD:    sideB.localAnchorG,
		localAxisD:      sideB.localAxisG,
		referenceAngleB: sideB.referenceAngle,
		ratio:           def.Ratio,
		constant:        sideA.coordinate + def.Ratio*sideB.coordinate,
	}
}

func (j *GearJoint) Joint1() Joint { return j.joint1 }
func (j *GearJoint) Joint2() Joint { return j.joint2 }

func (j *GearJoint) AnchorA() Vec2 { return j.bodyA.WorldPoint(j.localAnchorA) }
func (j *GearJoint) AnchorB() Vec2 { return j.bodyB.WorldPoint(j.localAnchorB) }

func (j *GearJoint) ReactionForce(invDt float64) Vec2 {
	return j.jvAC.Scale(invDt * j.impulse)
}

func (j *GearJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.impulse * j.jwA
}

func (j *GearJoint) Ratio() float64 { return j.ratio }

func (j *GearJoint) SetRatio(ratio float64) {
	assert(IsValid(ratio), "gear ratio is not finite")
	j.ratio = ratio
}

// jacobian computes the gear Jacobian and effective mass for the given
// orientations and, for prismatic sides, centers. The coordinates are only
// meaningful when positions are supplied.
func (j *GearJoint) jacobian(pA, pB, pC, pD position) (jvAC, jvBD Vec2, jwA, jwB, jwC, jwD, mass, coordA, coordB float64) {
	qA, qB := NewRot(pA.a), NewRot(pB.a)
	qC, qD := NewRot(pC.a), NewRot(pD.a)

	if j.typeA == RevoluteJointType {
		jwA, jwC = 1.0, 1.0
		mass += j.a.invI + j.c.invI
		coordA = pA.a - pC.a - j.referenceAngleA
	} else {
		u := qC.Apply(j.localAxisC)
		rC := qC.Apply(j.localAnchorC.Sub(j.c.localCenter))
		rA := qA.Apply(j.localAnchorA.Sub(j.a.localCenter))
		jvAC = u
		jwC = rC.Cross(u)
		jwA = rA.Cross(u)
		mass += j.c.invMass + j.a.invMass + j.c.invI*jwC*jwC + j.a.invI*jwA*jwA

		gC := j.localAnchorC.Sub(j.c.localCenter)
		gA := qC.ApplyT(rA.Add(pA.c.Sub(pC.c)))
		coordA = gA.Sub(gC).Dot(j.localAxisC)
	}

	if j.typeB == RevoluteJointType {
		jwB, jwD = j.ratio, j.ratio
		mass += j.ratio * j.ratio * (j.b.invI + j.d.invI)
		coordB = pB.a - pD.a - j.referenceAngleB
	} else {
		u := qD.Apply(j.localAxisD)
		rD := qD.Apply(j.localAnchorD.Sub(j.d.localCenter))
		rB := qB.Apply(j.localAnchorB.Sub(j.b.localCenter))
		jvBD = u.Scale(j.ratio)
		jwD = j.ratio * rD.Cross(u)
		jwB = j.ratio * rB.Cross(u)
		mass += j.ratio*j.ratio*(j.d.invMass+j.b.invMass) + j.d.invI*jwD*jwD + j.b.invI*jwB*jwB

		gD := j.localAnchorD.Sub(j.d.localCenter)
		gB := qD.ApplyT(rB.Add(pB.c.Sub(pD.c)))
		coordB = gB.Sub(gD).Dot(j.localAxisD)
	}
	return
}

func (j *GearJoint) initVelocityConstraints(data *solverData) {
	j.a = newSolverBody(j.bodyA)
	j.b = newSolverBody(j.bodyB)
	j.c = newSolverBody(j.bodyC)
	j.d = newSolverBody(j.bodyD)

	vA, wA := data.velocities[j.a.index].v, data.velocities[j.a.index].w
	vB, wB := data.velocities[j.b.index].v, data.velocities[j.b.index].w
	vC, wC := data.velocities[j.c.index].v, data.velocities[j.c.index].w
	vD, wD := data.velocities[j.d.index].v, data.velocities[j.d.index].w

	var mass float64
	j.jvAC, j.jvBD, j.jwA, j.jwB, j.jwC, j.jwD, mass, _, _ = j.jacobian(
		data.positions[j.a.index], data.positions[j.b.index],
		data.positions[j.c.index], data.positions[j.d.index])

	// Compute effective mass.
	j.mass = 0.0
	if mass > 0.0 {
		j.mass = 1.0 / mass
	}

	if data.step.warmStarting {
		vA = vA.Add(j.jvAC.Scale(j.a.invMass * j.impulse))
		wA += j.a.invI * j.impulse * j.jwA
		vB = vB.Add(j.jvBD.Scale(j.b.invMass * j.impulse))
		wB += j.b.invI * j.impulse * j.jwB
		vC = vC.Sub(j.jvAC.Scale(j.c.invMass * j.impulse))
		wC -= j.c.invI * j.impulse * j.jwC
		vD = vD.Sub(j.jvBD.Scale(j.d.invMass * j.impulse))
		wD -= j.d.invI * j.impulse * j.jwD
	} else {
		j.impulse = 0.0
	}

	data.velocities[j.a.index] = velocity{vA, wA}
	data.velocities[j.b.index] = velocity{vB, wB}
	data.velocities[j.c.index] = velocity{vC, wC}
	data.velocities[j.d.index] = velocity{vD, wD}
}

func (j *GearJoint) solveVelocityConstraints(data *solverData) {
	vA, wA := data.velocities[j.a.index].v, data.velocities[j.a.index].w
	vB, wB := data.velocities[j.b.index].v, data.velocities[j.b.index].w
	vC, wC := data.velocities[j.c.index].v, data.velocities[j.c.index].w
	vD, wD := data.velocities[j.d.index].v, data.velocities[j.d.index].w

	cdot := j.jvAC.Dot(vA.Sub(vC)) + j.jvBD.Dot(vB.Sub(vD))
	cdot += (j.jwA*wA - j.jwC*wC) + (j.jwB*wB - j.jwD*wD)

	impulse := -j.mass * cdot
	j.impulse += impulse

	vA = vA.Add(j.jvAC.Scale(j.a.invMass * impulse))
	wA += j.a.invI * impulse * j.jwA
	vB = vB.Add(j.jvBD.Scale(j.b.invMass * impulse))
	wB += j.b.invI * impulse * j.jwB
	vC = vC.Sub(j.jvAC.Scale(j.c.invMass * impulse))
	wC -= j.c.invI * impulse * j.jwC
	vD = vD.Sub(j.jvBD.Scale(j.d.invMass * impulse))
	wD -= j.d.invI * impulse * j.jwD

	data.velocities[j.a.index] = velocity{vA, wA}
	data.velocities[j.b.index] = velocity{vB, wB}
	data.velocities[j.c.index] = velocity{vC, wC}
	data.velocities[j.d.index] = velocity{vD, wD}
}

func (j *GearJoint) solvePositionConstraints(data *solverData) bool {
	pA := data.positions[j.a.index]
	pB := data.positions[j.b.index]
	pC := data.positions[j.c.index]
	pD := data.positions[j.d.index]

	jvAC, jvBD, jwA, jwB, jwC, jwD, mass, coordA, coordB := j.jacobian(pA, pB, pC, pD)

	c := (coordA + j.ratio*coordB) - j.constant

	impulse := 0.0
	if mass > 0.0 {
		impulse = -c / mass
	}

	pA.c = pA.c.Add(jvAC.Scale(j.a.invMass * impulse))
	pA.a += j.a.invI * impulse * jwA
	pB.c = pB.c.Add(jvBD.Scale(j.b.invMass * impulse))
	pB.a += j.b.invI * impulse * jwB
	pC.c = pC.c.Sub(jvAC.Scale(j.c.invMass * impulse))
	pC.a -= j.c.invI * impulse * jwC
	pD.c = pD.c.Sub(jvBD.Scale(j.d.invMass * impulse))
	pD.a -= j.d.invI * impulse * jwD

	data.positions[j.a.index] = pA
	data.positions[j.b.index] = pB
	data.positions[j.c.index] = pC
	data.positions[j.d.index] = pD

	// The linear error is not measured; the gear never blocks convergence.
	return true
}
