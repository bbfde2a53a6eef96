package rigid2d

import "math"

// PulleyJointDef describes two bodies hanging from two fixed ground points
// by one rope: lengthA + Ratio*lengthB stays constant.
type PulleyJointDef struct {
	JointDefBase

	// GroundAnchorA and GroundAnchorB are world points.
	GroundAnchorA Vec2
	GroundAnchorB Vec2

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	// LengthA and LengthB are the reference segment lengths.
	LengthA float64
	LengthB float64

	Ratio float64
}

// DefaultPulleyJointDef has ground anchors at (-1,1) and (1,1) and ratio 1.
func DefaultPulleyJointDef() PulleyJointDef {
	return PulleyJointDef{
		JointDefBase:  JointDefBase{CollideConnected: true},
		GroundAnchorA: Vec2{-1.0, 1.0},
		GroundAnchorB: Vec2{1.0, 1.0},
		LocalAnchorA:  Vec2{-1.0, 0.0},
		LocalAnchorB:  Vec2{1.0, 0.0},
		Ratio:         1.0,
	}
}

// Initialize sets the bodies, anchors, lengths and ratio from world points.
func (d *PulleyJointDef) Initialize(bodyA, bodyB *Body, groundA, groundB, anchorA, anchorB Vec2, ratio float64) {
	assert(ratio > Epsilon, "pulley ratio must be positive")
	d.BodyA = bodyA
	d.BodyB = bodyB
	d.GroundAnchorA = groundA
	d.GroundAnchorB = groundB
	d.LocalAnchorA = bodyA.LocalPoint(anchorA)
	d.LocalAnchorB = bodyB.LocalPoint(anchorB)
	d.LengthA = Distance(anchorA, groundA)
	d.LengthB = Distance(anchorB, groundB)
	d.Ratio = ratio
}

// PulleyJoint connects two bodies to the ground and to each other. The
// ratio makes a block and tackle.
type PulleyJoint struct {
	jointBase

	groundAnchorA Vec2
	groundAnchorB Vec2
	lengthA       float64
	lengthB       float64

	localAnchorA Vec2
	localAnchorB Vec2
	constant     float64
	ratio        float64
	impulse      float64

	// Solver temp
	a, b   solverBody
	uA, uB Vec2
	rA, rB Vec2
	mass   float64
}

func newPulleyJoint(def *PulleyJointDef) *PulleyJoint {
	assert(def.Ratio != 0.0, "pulley ratio must not be zero")
	return &PulleyJoint{
		jointBase:     newJointBase(PulleyJointType, &def.JointDefBase),
		groundAnchorA: def.GroundAnchorA,
		groundAnchorB: def.GroundAnchorB,
		localAnchorA:  def.LocalAnchorA,
		localAnchorB:  def.LocalAnchorB,
		lengthA:       def.LengthA,
		lengthB:       def.LengthB,
		ratio:         def.Ratio,
		constant:      def.LengthA + def.Ratio*def.LengthB,
	}
}

func (j *PulleyJoint) GroundAnchorA() Vec2 { return j.groundAnchorA }
func (j *PulleyJoint) GroundAnchorB() Vec2 { return j.groundAnchorB }
func (j *PulleyJoint) LengthA() float64    { return j.lengthA }
func (j *PulleyJoint) LengthB() float64    { return j.lengthB }
func (j *PulleyJoint) Ratio() float64      { return j.ratio }

func (j *PulleyJoint) AnchorA() Vec2 { return j.bodyA.WorldPoint(j.localAnchorA) }
func (j *PulleyJoint) AnchorB() Vec2 { return j.bodyB.WorldPoint(j.localAnchorB) }

func (j *PulleyJoint) ReactionForce(invDt float64) Vec2 {
	return j.uB.Scale(j.impulse * invDt)
}

func (j *PulleyJoint) ReactionTorque(float64) float64 { return 0.0 }

// CurrentLengthA is the current rope length on side A.
func (j *PulleyJoint) CurrentLengthA() float64 {
	return Distance(j.bodyA.WorldPoint(j.localAnchorA), j.groundAnchorA)
}

// CurrentLengthB is the current rope length on side B.
func (j *PulleyJoint) CurrentLengthB() float64 {
	return Distance(j.bodyB.WorldPoint(j.localAnchorB), j.groundAnchorB)
}

// ShiftOrigin moves the ground anchors, which are kept in world
// coordinates.
func (j *PulleyJoint) ShiftOrigin(newOrigin Vec2) {
	j.groundAnchorA = j.groundAnchorA.Sub(newOrigin)
	j.groundAnchorB = j.groundAnchorB.Sub(newOrigin)
}

// pulleyAxis returns the unit rope direction from ground to anchor and the
// segment length. Short segments yield a zero axis.
func pulleyAxis(anchor, ground Vec2) (Vec2, float64) {
	u := anchor.Sub(ground)
	length := u.Length()
	if length > 10.0*LinearSlop {
		return u.Scale(1.0 / length), length
	}
	return Vec2{}, length
}

// Pulley:
// length1 = norm(p1 - s1)
// length2 = norm(p2 - s2)
// C0 = (length1 + ratio * length2)_initial
// C = C0 - (length1 + ratio * length2)
// u1 = (p1 - s1) / norm(p1 - s1)
// u2 = (p2 - s2) / norm(p2 - s2)
// Cdot = -dot(u1, v1 + cross(w1, r1)) - ratio * dot(u2, v2 + cross(w2, r2))
// J = -[u1 cross(r1, u1) ratio * u2  ratio * cross(r2, u2)]
// K = J * invM * JT
//   = invMass1 + invI1 * cross(r1, u1)^2 + ratio^2 * (invMass2 + invI2 * cross(r2, u2)^2)

func (j *PulleyJoint) effectiveMass(rA, rB, uA, uB Vec2) float64 {
	ruA := rA.Cross(uA)
	ruB := rB.Cross(uB)

	mA := j.a.invMass + j.a.invI*ruA*ruA
	mB := j.b.invMass + j.b.invI*ruB*ruB

	mass := mA + j.ratio*j.ratio*mB
	if mass > 0.0 {
		mass = 1.0 / mass
	}
	return mass
}

func (j *PulleyJoint) initVelocityConstraints(data *solverData) {
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

	// Get the pulley axes.
	j.uA, _ = pulleyAxis(cA.Add(j.rA), j.groundAnchorA)
	j.uB, _ = pulleyAxis(cB.Add(j.rB), j.groundAnchorB)

	j.mass = j.effectiveMass(j.rA, j.rB, j.uA, j.uB)

	if data.step.warmStarting {
		// Scale impulses to support variable time steps.
		j.impulse *= data.step.dtRatio

		pA := j.uA.Scale(-j.impulse)
		pB := j.uB.Scale(-j.ratio * j.impulse)

		vA = vA.Add(pA.Scale(j.a.invMass))
		wA += j.a.invI * j.rA.Cross(pA)
		vB = vB.Add(pB.Scale(j.b.invMass))
		wB += j.b.invI * j.rB.Cross(pB)
	} else {
		j.impulse = 0.0
	}

	data.velocities[j.a.index] = velocity{vA, wA}
	data.velocities[j.b.index] = velocity{vB, wB}
}

func (j *PulleyJoint) solveVelocityConstraints(data *solverData) {
	vA := data.velocities[j.a.index].v
	wA := data.velocities[j.a.index].w
	vB := data.velocities[j.b.index].v
	wB := data.velocities[j.b.index].w

	vpA := vA.Add(CrossSV(wA, j.rA))
	vpB := vB.Add(CrossSV(wB, j.rB))

	cdot := -j.uA.Dot(vpA) - j.ratio*j.uB.Dot(vpB)
	impulse := -j.mass * cdot
	j.impulse += impulse

	pA := j.uA.Scale(-impulse)
	pB := j.uB.Scale(-j.ratio * impulse)
	vA = vA.Add(pA.Scale(j.a.invMass))
	wA += j.a.invI * j.rA.Cross(pA)
	vB = vB.Add(pB.Scale(j.b.invMass))
	wB += j.b.invI * j.rB.Cross(pB)

	data.velocities[j.a.index] = velocity{vA, wA}
	data.velocities[j.b.index] = velocity{vB, wB}
}

func (j *PulleyJoint) solvePositionConstraints(data *solverData) bool {
	cA := data.positions[j.a.index].c
	aA := data.positions[j.a.index].a
	cB := data.positions[j.b.index].c
	aB := data.positions[j.b.index].a

	qA, qB := NewRot(aA), NewRot(aB)

	rA := qA.Apply(j.localAnchorA.Sub(j.a.localCenter))
	rB := qB.Apply(j.localAnchorB.Sub(j.b.localCenter))

	uA, lengthA := pulleyAxis(cA.Add(rA), j.groundAnchorA)
	uB, lengthB := pulleyAxis(cB.Add(rB), j.groundAnchorB)

	mass := j.effectiveMass(rA, rB, uA, uB)

	c := j.constant - lengthA - j.ratio*lengthB
	linearError := math.Abs(c)

	impulse := -mass * c

	pA := uA.Scale(-impulse)
	pB := uB.Scale(-j.ratio * impulse)

	cA = cA.Add(pA.Scale(j.a.invMass))
	aA += j.a.invI * rA.Cross(pA)
	cB = cB.Add(pB.Scale(j.b.invMass))
	aB += j.b.invI * rB.Cross(pB)

	data.positions[j.a.index] = position{cA, aA}
	data.positions[j.b.index] = position{cB, aB}

	return linearError < LinearSlop
}
