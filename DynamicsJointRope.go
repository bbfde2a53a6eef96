package rigid2d

import "math"

// RopeJointDef caps the distance between two anchor points.
type RopeJointDef struct {
	JointDefBase

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	// MaxLength is the maximum rope length; it must exceed LinearSlop.
	MaxLength float64
}

// DefaultRopeJointDef anchors at the body origins with no length.
func DefaultRopeJointDef() RopeJointDef {
	return RopeJointDef{
		LocalAnchorA: Vec2{-1.0, 0.0},
		LocalAnchorB: Vec2{1.0, 0.0},
	}
}

// RopeJoint enforces a maximum distance between two points on two bodies.
// It has no other effect.
type RopeJoint struct {
	jointBase

	localAnchorA Vec2
	localAnchorB Vec2
	maxLength    float64
	length       float64
	impulse      float64

	// Solver temp
	a, b   solverBody
	u      Vec2
	rA, rB Vec2
	mass   float64
	state  limitState
}

func newRopeJoint(def *RopeJointDef) *RopeJoint {
	return &RopeJoint{
		jointBase:    newJointBase(RopeJointType, &def.JointDefBase),
		localAnchorA: def.LocalAnchorA,
		localAnchorB: def.LocalAnchorB,
		maxLength:    def.MaxLength,
	}
}

func (j *RopeJoint) LocalAnchorA() Vec2 { return j.localAnchorA }
func (j *RopeJoint) LocalAnchorB() Vec2 { return j.localAnchorB }

func (j *RopeJoint) AnchorA() Vec2 { return j.bodyA.WorldPoint(j.localAnchorA) }
func (j *RopeJoint) AnchorB() Vec2 { return j.bodyB.WorldPoint(j.localAnchorB) }

func (j *RopeJoint) ReactionForce(invDt float64) Vec2 {
	return j.u.Scale(invDt * j.impulse)
}

func (j *RopeJoint) ReactionTorque(float64) float64 { return 0.0 }

func (j *RopeJoint) MaxLength() float64          { return j.maxLength }
func (j *RopeJoint) SetMaxLength(length float64) { j.maxLength = length }

// IsTaut reports whether the rope was at its maximum length in the last
// step.
func (j *RopeJoint) IsTaut() bool { return j.state == atUpperLimit }

func (j *RopeJoint) initVelocityConstraints(data *solverData) {
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

	j.rA = qA.Apply(j.localAnchorA.Sub(j.a.localCenter))
	j.rB = qB.Apply(j.localAnchorB.Sub(j.b.localCenter))
	j.u = cB.Add(j.rB).Sub(cA).Sub(j.rA)

	j.length = j.u.Length()

	if j.length-j.maxLength > 0.0 {
		j.state = atUpperLimit
	} else {
		j.state = inactiveLimit
	}

	if j.length <= LinearSlop {
		j.u = Vec2{}
		j.mass = 0.0
		j.impulse = 0.0
		return
	}
	j.u = j.u.Scale(1.0 / j.length)

	// Compute effective mass.
	crA := j.rA.Cross(j.u)
	crB := j.rB.Cross(j.u)
	invMass := j.a.invMass + j.a.invI*crA*crA + j.b.invMass + j.b.invI*crB*crB

	j.mass = 0.0
	if invMass != 0.0 {
		j.mass = 1.0 / invMass
	}

	if data.step.warmStarting {
		// Scale the impulse to support a variable time step.
		j.impulse *= data.step.dtRatio

		p := j.u.Scale(j.impulse)
		vA = vA.Sub(p.Scale(j.a.invMass))
		wA -= j.a.invI * j.rA.Cross(p)
		vB = vB.Add(p.Scale(j.b.invMass))
		wB += j.b.invI * j.rB.Cross(p)
	} else {
		j.impulse = 0.0
	}

	data.velocities[j.a.index] = velocity{vA, wA}
	data.velocities[j.b.index] = velocity{vB, wB}
}

func (j *RopeJoint) solveVelocityConstraints(data *solverData) {
	vA := data.velocities[j.a.index].v
	wA := data.velocities[j.a.index].w
	vB := data.velocities[j.b.index].v
	wB := data.velocities[j.b.index].w

	// Cdot = dot(u, v + cross(w, r))
	vpA := vA.Add(CrossSV(wA, j.rA))
	vpB := vB.Add(CrossSV(wB, j.rB))
	c := j.length - j.maxLength
	cdot := j.u.Dot(vpB.Sub(vpA))

	// Predictive constraint.
	if c < 0.0 {
		cdot += data.step.invDt * c
	}

	impulse := -j.mass * cdot
	oldImpulse := j.impulse
	j.impulse = math.Min(0.0, j.impulse+impulse)
	impulse = j.impulse - oldImpulse

	p := j.u.Scale(impulse)
	vA = vA.Sub(p.Scale(j.a.invMass))
	wA -= j.a.invI * j.rA.Cross(p)
	vB = vB.Add(p.Scale(j.b.invMass))
	wB += j.b.invI * j.rB.Cross(p)

	data.velocities[j.a.index] = velocity{vA, wA}
	data.velocities[j.b.index] = velocity{vB, wB}
}

func (j *RopeJoint) solvePositionConstraints(data *solverData) bool {
	cA := data.positions[j.a.index].c
	aA := data.positions[j.a.index].a
	cB := data.positions[j.b.index].c
	aB := data.positions[j.b.index].a

	qA, qB := NewRot(aA), NewRot(aB)

	rA := qA.Apply(j.localAnchorA.Sub(j.a.localCenter))
	rB := qB.Apply(j.localAnchorB.Sub(j.b.localCenter))
	u := cB.Add(rB).Sub(cA).Sub(rA)

	length := u.Normalize()
	c := clamp(length-j.maxLength, 0.0, data.tuning.MaxLinearCorrection)

	impulse := -j.mass * c
	p := u.Scale(impulse)

	cA = cA.Sub(p.Scale(j.a.invMass))
	aA -= j.a.invI * rA.Cross(p)
	cB = cB.Add(p.Scale(j.b.invMass))
	aB += j.b.invI * rB.Cross(p)

	data.positions[j.a.index] = position{cA, aA}
	data.positions[j.b.index] = position{cB, aB}

	return length-j.maxLength < LinearSlop
}
