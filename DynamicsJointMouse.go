package rigid2d

import "math"

// MouseJointDef drags a point of BodyB towards a world target. BodyA is
// only used to satisfy the two-body contract; usually it is a static
// ground body.
type MouseJointDef struct {
	JointDefBase

	// Target is the initial world target. The anchor on BodyB is taken at
	// this point.
	Target Vec2

	// MaxForce caps the constraint force, typically a multiple of the body
	// weight.
	MaxForce float64

	FrequencyHz  float64
	DampingRatio float64
}

// DefaultMouseJointDef has a 5 Hz response with 0.7 damping.
func DefaultMouseJointDef() MouseJointDef {
	return MouseJointDef{
		FrequencyHz:  5.0,
		DampingRatio: 0.7,
	}
}

// MouseJoint is a soft constraint with a maximum force that pulls a point
// on bodyB to a world target. It allows some softness so the body does not
// explode when dragged into other bodies.
type MouseJoint struct {
	jointBase

	localAnchorB Vec2
	targetA      Vec2
	frequencyHz  float64
	dampingRatio float64
	beta         float64

	impulse  Vec2
	maxForce float64
	gamma    float64

	// Solver temp
	b    solverBody
	rB   Vec2
	mass Mat22
	c    Vec2
}

func newMouseJoint(def *MouseJointDef) *MouseJoint {
	assert(def.Target.IsValid(), "mouse joint target is not finite")
	assert(IsValid(def.MaxForce) && def.MaxForce >= 0.0, "mouse joint max force is invalid")
	assert(IsValid(def.FrequencyHz) && def.FrequencyHz >= 0.0, "mouse joint frequency is invalid")
	assert(IsValid(def.DampingRatio) && def.DampingRatio >= 0.0, "mouse joint damping is invalid")

	return &MouseJoint{
		jointBase:    newJointBase(MouseJointType, &def.JointDefBase),
		targetA:      def.Target,
		localAnchorB: def.BodyB.LocalPoint(def.Target),
		maxForce:     def.MaxForce,
		frequencyHz:  def.FrequencyHz,
		dampingRatio: def.DampingRatio,
	}
}

// AnchorA is the target.
func (j *MouseJoint) AnchorA() Vec2 { return j.targetA }
func (j *MouseJoint) AnchorB() Vec2 { return j.bodyB.WorldPoint(j.localAnchorB) }

func (j *MouseJoint) ReactionForce(invDt float64) Vec2 {
	return j.impulse.Scale(invDt)
}

func (j *MouseJoint) ReactionTorque(float64) float64 { return 0.0 }

// SetTarget moves the world target and wakes bodyB.
func (j *MouseJoint) SetTarget(target Vec2) {
	if target != j.targetA {
		j.bodyB.SetAwake(true)
		j.targetA = target
	}
}

func (j *MouseJoint) Target() Vec2 { return j.targetA }

func (j *MouseJoint) MaxForce() float64         { return j.maxForce }
func (j *MouseJoint) SetMaxForce(force float64) { j.maxForce = force }

func (j *MouseJoint) Frequency() float64      { return j.frequencyHz }
func (j *MouseJoint) SetFrequency(hz float64) { j.frequencyHz = hz }

func (j *MouseJoint) DampingRatio() float64         { return j.dampingRatio }
func (j *MouseJoint) SetDampingRatio(ratio float64) { j.dampingRatio = ratio }

// ShiftOrigin moves the target, which is kept in world coordinates.
func (j *MouseJoint) ShiftOrigin(newOrigin Vec2) {
	j.targetA = j.targetA.Sub(newOrigin)
}

// p = attached point, m = mouse point
// C = p - m
// Cdot = v
//      = v + cross(w, r)
// J = [I r_skew]
// Identity used:
// w k % (rx i + ry j) = w * (-ry i + rx j)

func (j *MouseJoint) initVelocityConstraints(data *solverData) {
	j.b = newSolverBody(j.bodyB)

	cB := data.positions[j.b.index].c
	aB := data.positions[j.b.index].a
	vB := data.velocities[j.b.index].v
	wB := data.velocities[j.b.index].w

	qB := NewRot(aB)

	mass := j.bodyB.Mass()
	h := data.step.dt

	// gamma has units of inverse mass.
	// beta has units of inverse time.
	omega := 2.0 * math.Pi * j.frequencyHz
	d := 2.0 * mass * j.dampingRatio * omega
	k := mass * (omega * omega)
	assert(d+h*k > Epsilon, "mouse joint is too soft for the body mass")
	j.gamma, j.beta = softness(j.frequencyHz, j.dampingRatio, mass, 1.0, h)

	// Compute the effective mass matrix.
	j.rB = qB.Apply(j.localAnchorB.Sub(j.b.localCenter))

	// K    = [(1/m1 + 1/m2) * eye(2) - skew(r1) * invI1 * skew(r1) - skew(r2) * invI2 * skew(r2)]
	//      = [1/m1+1/m2     0    ] + invI1 * [r1.y*r1.y -r1.x*r1.y] + invI2 * [r1.y*r1.y -r1.x*r1.y]
	//        [    0     1/m1+1/m2]           [-r1.x*r1.y r1.x*r1.x]           [-r1.x*r1.y r1.x*r1.x]
	mB, iB := j.b.invMass, j.b.invI
	k11 := mB + iB*j.rB.Y*j.rB.Y + j.gamma
	k12 := -iB * j.rB.X * j.rB.Y
	k22 := mB + iB*j.rB.X*j.rB.X + j.gamma
	j.mass = inverse22(newMat22(Vec2{k11, k12}, Vec2{k12, k22}))

	j.c = cB.Add(j.rB).Sub(j.targetA).Scale(j.beta)

	// Cheat with some damping
	wB *= 0.98

	if data.step.warmStarting {
		j.impulse = j.impulse.Scale(data.step.dtRatio)
		vB = vB.Add(j.impulse.Scale(mB))
		wB += iB * j.rB.Cross(j.impulse)
	} else {
		j.impulse = Vec2{}
	}

	data.velocities[j.b.index] = velocity{vB, wB}
}

func (j *MouseJoint) solveVelocityConstraints(data *solverData) {
	vB := data.velocities[j.b.index].v
	wB := data.velocities[j.b.index].w

	// Cdot = v + cross(w, r)
	cdot := vB.Add(CrossSV(wB, j.rB))
	impulse := mulMat22(j.mass, cdot.Add(j.c).Add(j.impulse.Scale(j.gamma)).Neg())

	oldImpulse := j.impulse
	j.impulse = j.impulse.Add(impulse)
	maxImpulse := data.step.dt * j.maxForce
	if j.impulse.LengthSquared() > maxImpulse*maxImpulse {
		j.impulse = j.impulse.Scale(maxImpulse / j.impulse.Length())
	}
	impulse = j.impulse.Sub(oldImpulse)

	vB = vB.Add(impulse.Scale(j.b.invMass))
	wB += j.b.invI * j.rB.Cross(impulse)

	data.velocities[j.b.index] = velocity{vB, wB}
}

func (j *MouseJoint) solvePositionConstraints(*solverData) bool {
	return true
}
