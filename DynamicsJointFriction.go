package rigid2d

// FrictionJointDef describes top-down friction between two bodies.
type FrictionJointDef struct {
	JointDefBase

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	MaxForce  float64 // N
	MaxTorque float64 // N*m
}

// Initialize sets the bodies and anchors from a world anchor point.
func (d *FrictionJointDef) Initialize(bodyA, bodyB *Body, anchor Vec2) {
	d.BodyA = bodyA
	d.BodyB = bodyB
	d.LocalAnchorA = bodyA.LocalPoint(anchor)
	d.LocalAnchorB = bodyB.LocalPoint(anchor)
}

// FrictionJoint resists relative linear and angular motion up to a
// maximum force and torque.
type FrictionJoint struct {
	jointBase

	localAnchorA Vec2
	localAnchorB Vec2

	linearImpulse  Vec2
	angularImpulse float64
	maxForce       float64
	maxTorque      float64

	// Solver temp
	a, b        solverBody
	rA, rB      Vec2
	linearMass  Mat22
	angularMass float64
}

func newFrictionJoint(def *FrictionJointDef) *FrictionJoint {
	return &FrictionJoint{
		jointBase:    newJointBase(FrictionJointType, &def.JointDefBase),
		localAnchorA: def.LocalAnchorA,
		localAnchorB: def.LocalAnchorB,
		maxForce:     def.MaxForce,
		maxTorque:    def.MaxTorque,
	}
}

func (j *FrictionJoint) LocalAnchorA() Vec2 { return j.localAnchorA }
func (j *FrictionJoint) LocalAnchorB() Vec2 { return j.localAnchorB }

func (j *FrictionJoint) AnchorA() Vec2 { return j.bodyA.WorldPoint(j.localAnchorA) }
func (j *FrictionJoint) AnchorB() Vec2 { return j.bodyB.WorldPoint(j.localAnchorB) }

func (j *FrictionJoint) ReactionForce(invDt float64) Vec2 {
	return j.linearImpulse.Scale(invDt)
}

func (j *FrictionJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.angularImpulse
}

func (j *FrictionJoint) MaxForce() float64 { return j.maxForce }

func (j *FrictionJoint) SetMaxForce(force float64) {
	assert(IsValid(force) && force >= 0.0, "friction joint max force is invalid")
	j.maxForce = force
}

func (j *FrictionJoint) MaxTorque() float64 { return j.maxTorque }

func (j *FrictionJoint) SetMaxTorque(torque float64) {
	assert(IsValid(torque) && torque >= 0.0, "friction joint max torque is invalid")
	j.maxTorque = torque
}

// pointMass22 is the 2x2 effective mass of a point-to-point constraint.
func pointMass22(mA, mB, iA, iB float64, rA, rB Vec2) Mat22 {
	k11 := mA + mB + iA*rA.Y*rA.Y + iB*rB.Y*rB.Y
	k12 := -iA*rA.X*rA.Y - iB*rB.X*rB.Y
	k22 := mA + mB + iA*rA.X*rA.X + iB*rB.X*rB.X
	return inverse22(newMat22(Vec2{k11, k12}, Vec2{k12, k22}))
}

func (j *FrictionJoint) initVelocityConstraints(data *solverData) {
	j.a = newSolverBody(j.bodyA)
	j.b = newSolverBody(j.bodyB)

	aA := data.positions[j.a.index].a
	vA := data.velocities[j.a.index].v
	wA := data.velocities[j.a.index].w

	aB := data.positions[j.b.index].a
	vB := data.velocities[j.b.index].v
	wB := data.velocities[j.b.index].w

	qA, qB := NewRot(aA), NewRot(aB)

	// Compute the effective mass matrix.
	j.rA = qA.Apply(j.localAnchorA.Sub(j.a.localCenter))
	j.rB = qB.Apply(j.localAnchorB.Sub(j.b.localCenter))

	mA, mB := j.a.invMass, j.b.invMass
	iA, iB := j.a.invI, j.b.invI

	j.linearMass = pointMass22(mA, mB, iA, iB, j.rA, j.rB)

	j.angularMass = iA + iB
	if j.angularMass > 0.0 {
		j.angularMass = 1.0 / j.angularMass
	}

	if data.step.warmStarting {
		// Scale impulses to support a variable time step.
		j.linearImpulse = j.linearImpulse.Scale(data.step.dtRatio)
		j.angularImpulse *= data.step.dtRatio

		p := j.linearImpulse
		vA = vA.Sub(p.Scale(mA))
		wA -= iA * (j.rA.Cross(p) + j.angularImpulse)
		vB = vB.Add(p.Scale(mB))
		wB += iB * (j.rB.Cross(p) + j.angularImpulse)
	} else {
		j.linearImpulse = Vec2{}
		j.angularImpulse = 0.0
	}

	data.velocities[j.a.index] = velocity{vA, wA}
	data.velocities[j.b.index] = velocity{vB, wB}
}

func (j *FrictionJoint) solveVelocityConstraints(data *solverData) {
	vA := data.velocities[j.a.index].v
	wA := data.velocities[j.a.index].w
	vB := data.velocities[j.b.index].v
	wB := data.velocities[j.b.index].w

	mA, mB := j.a.invMass, j.b.invMass
	iA, iB := j.a.invI, j.b.invI

	h := data.step.dt

	// Solve angular friction
	{
		cdot := wB - wA
		impulse := -j.angularMass * cdot

		oldImpulse := j.angularImpulse
		maxImpulse := h * j.maxTorque
		j.angularImpulse = clamp(j.angularImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.angularImpulse - oldImpulse

		wA -= iA * impulse
		wB += iB * impulse
	}

	// Solve linear friction
	{
		cdot := vB.Add(CrossSV(wB, j.rB)).Sub(vA).Sub(CrossSV(wA, j.rA))

		impulse := mulMat22(j.linearMass, cdot).Neg()
		oldImpulse := j.linearImpulse
		j.linearImpulse = j.linearImpulse.Add(impulse)

		maxImpulse := h * j.maxForce
		if j.linearImpulse.LengthSquared() > maxImpulse*maxImpulse {
			j.linearImpulse = j.linearImpulse.Normalized().Scale(maxImpulse)
		}

		impulse = j.linearImpulse.Sub(oldImpulse)

		vA = vA.Sub(impulse.Scale(mA))
		wA -= iA * j.rA.Cross(impulse)
		vB = vB.Add(impulse.Scale(mB))
		wB += iB * j.rB.Cross(impulse)
	}

	data.velocities[j.a.index] = velocity{vA, wA}
	data.velocities[j.b.index] = velocity{vB, wB}
}

func (j *FrictionJoint) solvePositionConstraints(*solverData) bool {
	return true
}
