package rigid2d

import "math"

// DistanceJointDef keeps two anchor points at a fixed distance. A non-zero
// FrequencyHz makes the rod a spring.
type DistanceJointDef struct {
	JointDefBase

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	// Length is the rest length.
	Length float64

	// FrequencyHz is the mass-spring-damper frequency. Zero disables
	// softness.
	FrequencyHz float64

	// DampingRatio is 0 for no damping and 1 for critical damping.
	DampingRatio float64
}

// DefaultDistanceJointDef has a rest length of one meter.
func DefaultDistanceJointDef() DistanceJointDef {
	return DistanceJointDef{Length: 1.0}
}

// Initialize sets the bodies and anchors from two world points; the rest
// length is their current distance.
func (d *DistanceJointDef) Initialize(bodyA, bodyB *Body, anchorA, anchorB Vec2) {
	d.BodyA = bodyA
	d.BodyB = bodyB
	d.LocalAnchorA = bodyA.LocalPoint(anchorA)
	d.LocalAnchorB = bodyB.LocalPoint(anchorB)
	d.Length = Distance(anchorA, anchorB)
}

// DistanceJoint holds one point on each body at a given distance, like a
// massless rigid rod. It may be made soft.
type DistanceJoint struct {
	jointBase

	frequencyHz  float64
	dampingRatio float64
	bias         float64

	localAnchorA Vec2
	localAnchorB Vec2
	gamma        float64
	impulse      float64
	length       float64

	// Solver temp
	a, b   solverBody
	u      Vec2
	rA, rB Vec2
	mass   float64
}

func newDistanceJoint(def *DistanceJointDef) *DistanceJoint {
	return &DistanceJoint{
		jointBase:    newJointBase(DistanceJointType, &def.JointDefBase),
		localAnchorA: def.LocalAnchorA,
		localAnchorB: def.LocalAnchorB,
		length:       def.Length,
		frequencyHz:  def.FrequencyHz,
		dampingRatio: def.DampingRatio,
	}
}

func (j *DistanceJoint) LocalAnchorA() Vec2 { return j.localAnchorA }
func (j *DistanceJoint) LocalAnchorB() Vec2 { return j.localAnchorB }

func (j *DistanceJoint) AnchorA() Vec2 { return j.bodyA.WorldPoint(j.localAnchorA) }
func (j *DistanceJoint) AnchorB() Vec2 { return j.bodyB.WorldPoint(j.localAnchorB) }

func (j *DistanceJoint) ReactionForce(invDt float64) Vec2 {
	return j.u.Scale(invDt * j.impulse)
}

func (j *DistanceJoint) ReactionTorque(float64) float64 { return 0.0 }

func (j *DistanceJoint) Length() float64          { return j.length }
func (j *DistanceJoint) SetLength(length float64) { j.length = length }

func (j *DistanceJoint) Frequency() float64      { return j.frequencyHz }
func (j *DistanceJoint) SetFrequency(hz float64) { j.frequencyHz = hz }

func (j *DistanceJoint) DampingRatio() float64         { return j.dampingRatio }
func (j *DistanceJoint) SetDampingRatio(ratio float64) { j.dampingRatio = ratio }

// 1-D constrained system
// m (v2 - v1) = lambda
// v2 + (beta/h) * x1 + gamma * lambda = 0, gamma has units of inverse mass.
// x2 = x1 + h * v2
//
// C = norm(p2 - p1) - L
// u = (p2 - p1) / norm(p2 - p1)
// Cdot = dot(u, v2 + cross(w2, r2) - v1 - cross(w1, r1))
// J = [-u -cross(r1, u) u cross(r2, u)]
// K = J * invM * JT
//   = invMass1 + invI1 * cross(r1, u)^2 + invMass2 + invI2 * cross(r2, u)^2

func (j *DistanceJoint) initVelocityConstraints(data *solverData) {
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

	// Handle singularity.
	length := j.u.Length()
	if length > LinearSlop {
		j.u = j.u.Scale(1.0 / length)
	} else {
		j.u = Vec2{}
	}

	crAu := j.rA.Cross(j.u)
	crBu := j.rB.Cross(j.u)
	invMass := j.a.invMass + j.a.invI*crAu*crAu + j.b.invMass + j.b.invI*crBu*crBu

	j.mass = 0.0
	if invMass != 0.0 {
		j.mass = 1.0 / invMass
	}

	if j.frequencyHz > 0.0 {
		j.gamma, j.bias = softness(j.frequencyHz, j.dampingRatio, j.mass, length-j.length, data.step.dt)
		invMass += j.gamma
		j.mass = 0.0
		if invMass != 0.0 {
			j.mass = 1.0 / invMass
		}
	} else {
		j.gamma = 0.0
		j.bias = 0.0
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

func (j *DistanceJoint) solveVelocityConstraints(data *solverData) {
	vA := data.velocities[j.a.index].v
	wA := data.velocities[j.a.index].w
	vB := data.velocities[j.b.index].v
	wB := data.velocities[j.b.index].w

	// Cdot = dot(u, v + cross(w, r))
	vpA := vA.Add(CrossSV(wA, j.rA))
	vpB := vB.Add(CrossSV(wB, j.rB))
	cdot := j.u.Dot(vpB.Sub(vpA))

	impulse := -j.mass * (cdot + j.bias + j.gamma*j.impulse)
	j.impulse += impulse

	p := j.u.Scale(impulse)
	vA = vA.Sub(p.Scale(j.a.invMass))
	wA -= j.a.invI * j.rA.Cross(p)
	vB = vB.Add(p.Scale(j.b.invMass))
	wB += j.b.invI * j.rB.Cross(p)

	data.velocities[j.a.index] = velocity{vA, wA}
	data.velocities[j.b.index] = velocity{vB, wB}
}

func (j *DistanceJoint) solvePositionConstraints(data *solverData) bool {
	if j.frequencyHz > 0.0 {
		// There is no position correction for soft distance constraints.
		return true
	}

	cA := data.positions[j.a.index].c
	aA := data.positions[j.a.index].a
	cB := data.positions[j.b.index].c
	aB := data.positions[j.b.index].a

	qA, qB := NewRot(aA), NewRot(aB)

	rA := qA.Apply(j.localAnchorA.Sub(j.a.localCenter))
	rB := qB.Apply(j.localAnchorB.Sub(j.b.localCenter))
	u := cB.Add(rB).Sub(cA).Sub(rA)

	length := u.Normalize()
	maxCorrection := data.tuning.MaxLinearCorrection
	c := clamp(length-j.length, -maxCorrection, maxCorrection)

	impulse := -j.mass * c
	p := u.Scale(impulse)

	cA = cA.Sub(p.Scale(j.a.invMass))
	aA -= j.a.invI * rA.Cross(p)
	cB = cB.Add(p.Scale(j.b.invMass))
	aB += j.b.invI * rB.Cross(p)

	data.positions[j.a.index] = position{cA, aA}
	data.positions[j.b.index] = position{cB, aB}

	return math.Abs(c) < LinearSlop
}
