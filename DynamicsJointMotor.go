package rigid2d

// MotorJointDef drives bodyB towards an offset pose relative to bodyA.
type MotorJointDef struct {
	JointDefBase

	// LinearOffset is the target position of bodyB in bodyA's frame.
	LinearOffset Vec2

	// AngularOffset is bodyB angle minus bodyA angle, in radians.
	AngularOffset float64

	MaxForce  float64 // N
	MaxTorque float64 // N*m

	// CorrectionFactor is the position correction factor in [0,1].
	CorrectionFactor float64
}

// DefaultMotorJointDef has unit force and torque caps and a 0.3
// correction factor.
func DefaultMotorJointDef() MotorJointDef {
	return MotorJointDef{
		MaxForce:         1.0,
		MaxTorque:        1.0,
		CorrectionFactor: 0.3,
	}
}

// Initialize takes the offsets from the current poses.
func (d *MotorJointDef) Initialize(bodyA, bodyB *Body) {
	d.BodyA = bodyA
	d.BodyB = bodyB
	d.LinearOffset = bodyA.LocalPoint(bodyB.Position())
	d.AngularOffset = bodyB.Angle() - bodyA.Angle()
}

// MotorJoint controls the relative motion of two bodies. A typical use is
// driving a body relative to the ground with a capped force and torque.
type MotorJoint struct {
	jointBase

	linearOffset     Vec2
	angularOffset    float64
	linearImpulse    Vec2
	angularImpulse   float64
	maxForce         float64
	maxTorque        float64
	correctionFactor float64

	// Solver temp
	a, b         solverBody
	rA, rB       Vec2
	linearError  Vec2
	angularError float64
	linearMass   Mat22
	angularMass  float64
}

func newMotorJoint(def *MotorJointDef) *MotorJoint {
	assert(def.CorrectionFactor >= 0.0 && def.CorrectionFactor <= 1.0, "motor joint correction factor out of range")
	return &MotorJoint{
		jointBase:        newJointBase(MotorJointType, &def.JointDefBase),
		linearOffset:     def.LinearOffset,
		angularOffset:    def.AngularOffset,
		maxForce:         def.MaxForce,
		maxTorque:        def.MaxTorque,
		correctionFactor: def.CorrectionFactor,
	}
}

func (j *MotorJoint) AnchorA() Vec2 { return j.bodyA.Position() }
func (j *MotorJoint) AnchorB() Vec2 { return j.bodyB.Position() }

func (j *MotorJoint) ReactionForce(invDt float64) Vec2 {
	return j.linearImpulse.Scale(invDt)
}

func (j *MotorJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.angularImpulse
}

func (j *MotorJoint) MaxForce() float64 { return j.maxForce }

func (j *MotorJoint) SetMaxForce(force float64) {
	assert(IsValid(force) && force >= 0.0, "motor joint max force is invalid")
	j.maxForce = force
}

func (j *MotorJoint) MaxTorque() float64 { return j.maxTorque }

func (j *MotorJoint) SetMaxTorque(torque float64) {
	assert(IsValid(torque) && torque >= 0.0, "motor joint max torque is invalid")
	j.maxTorque = torque
}

func (j *MotorJoint) CorrectionFactor() float64 { return j.correctionFactor }

func (j *MotorJoint) SetCorrectionFactor(factor float64) {
	assert(IsValid(factor) && factor >= 0.0 && factor <= 1.0, "motor joint correction factor out of range")
	j.correctionFactor = factor
}

func (j *MotorJoint) LinearOffset() Vec2 { return j.linearOffset }

func (j *MotorJoint) SetLinearOffset(offset Vec2) {
	if offset != j.linearOffset {
		j.wake()
		j.linearOffset = offset
	}
}

func (j *MotorJoint) AngularOffset() float64 { return j.angularOffset }

func (j *MotorJoint) SetAngularOffset(offset float64) {
	if offset != j.angularOffset {
		j.wake()
		j.angularOffset = offset
	}
}

func (j *MotorJoint) initVelocityConstraints(data *solverData) {
	j.a = newSolverBody(j.bodyA)
	j.b = newSolverBody(j.bodyB)

	cA := data.positions[j.a.index].c
	aA := data.positions[j.a.index].a
	vA := data.velocities[j.a.index].v
	wA := data.velocities[j.a.index].w

	cB := data.positions[j.b.index].c
	aB := data.positions[j.b.index].a
	vB := data.velocities[j.b.index].v
	wB := data.velocities[j.b.index].w

	qA, qB := NewRot(aA), NewRot(aB)

	// Compute the effective mass matrix.
	j.rA = qA.Apply(j.a.localCenter.Neg())
	j.rB = qB.Apply(j.b.localCenter.Neg())

	mA, mB := j.a.invMass, j.b.invMass
	iA, iB := j.a.invI, j.b.invI

	j.linearMass = pointMass22(mA, mB, iA, iB, j.rA, j.rB)

	j.angularMass = iA + iB
	if j.angularMass > 0.0 {
		j.angularMass = 1.0 / j.angularMass
	}

	j.linearError = cB.Add(j.rB).Sub(cA).Sub(j.rA).Sub(qA.Apply(j.linearOffset))
	j.angularError = aB - aA - j.angularOffset

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

func (j *MotorJoint) solveVelocityConstraints(data *solverData) {
	vA := data.velocities[j.a.index].v
	wA := data.velocities[j.a.index].w
	vB := data.velocities[j.b.index].v
	wB := data.velocities[j.b.index].w

	mA, mB := j.a.invMass, j.b.invMass
	iA, iB := j.a.invI, j.b.invI

	h := data.step.dt
	invH := data.step.invDt

	// Solve angular friction
	{
		cdot := wB - wA + invH*j.correctionFactor*j.angularError
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
		cdot := vB.Add(CrossSV(wB, j.rB)).Sub(vA).Sub(CrossSV(wA, j.rA)).
			Add(j.linearError.Scale(invH * j.correctionFactor))

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

func (j *MotorJoint) solvePositionConstraints(*solverData) bool {
	return true
}
