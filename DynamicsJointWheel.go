package rigid2d

import "math"

// WheelJointDef describes a wheel on a suspension axis. The axis is fixed
// in bodyA; bodyB is the wheel.
type WheelJointDef struct {
	JointDefBase

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	// LocalAxisA is the suspension axis in bodyA.
	LocalAxisA Vec2

	EnableMotor    bool
	MaxMotorTorque float64 // N*m
	MotorSpeed     float64 // radians per second

	// FrequencyHz and DampingRatio set the suspension spring.
	FrequencyHz  float64
	DampingRatio float64
}

// DefaultWheelJointDef has a 2 Hz spring with 0.7 damping along x.
func DefaultWheelJointDef() WheelJointDef {
	return WheelJointDef{
		LocalAxisA:   Vec2{1, 0},
		FrequencyHz:  2.0,
		DampingRatio: 0.7,
	}
}

// Initialize sets the bodies, anchors and axis from world quantities.
func (d *WheelJointDef) Initialize(bodyA, bodyB *Body, anchor, axis Vec2) {
	d.BodyA = bodyA
	d.BodyB = bodyB
	d.LocalAnchorA = bodyA.LocalPoint(anchor)
	d.LocalAnchorB = bodyB.LocalPoint(anchor)
	d.LocalAxisA = bodyA.LocalVector(axis)
}

// WheelJoint keeps a point of bodyB on a line fixed in bodyA, with a spring
// along that line and a rotational motor. Rotation is otherwise free.
type WheelJoint struct {
	jointBase

	frequencyHz  float64
	dampingRatio float64

	localAnchorA Vec2
	localAnchorB Vec2
	localXAxisA  Vec2
	localYAxisA  Vec2

	impulse       float64
	motorImpulse  float64
	springImpulse float64

	maxMotorTorque float64
	motorSpeed     float64
	enableMotor    bool

	// Solver temp
	a, b       solverBody
	ax, ay     Vec2
	sAx, sBx   float64
	sAy, sBy   float64
	mass       float64
	motorMass  float64
	springMass float64
	bias       float64
	gamma      float64
}

func newWheelJoint(def *WheelJointDef) *WheelJoint {
	axis := def.LocalAxisA.Normalized()
	return &WheelJoint{
		jointBase:      newJointBase(WheelJointType, &def.JointDefBase),
		localAnchorA:   def.LocalAnchorA,
		localAnchorB:   def.LocalAnchorB,
		localXAxisA:    axis,
		localYAxisA:    CrossSV(1.0, axis),
		maxMotorTorque: def.MaxMotorTorque,
		motorSpeed:     def.MotorSpeed,
		enableMotor:    def.EnableMotor,
		frequencyHz:    def.FrequencyHz,
		dampingRatio:   def.DampingRatio,
	}
}

func (j *WheelJoint) LocalAnchorA() Vec2 { return j.localAnchorA }
func (j *WheelJoint) LocalAnchorB() Vec2 { return j.localAnchorB }
func (j *WheelJoint) LocalAxisA() Vec2   { return j.localXAxisA }

func (j *WheelJoint) AnchorA() Vec2 { return j.bodyA.WorldPoint(j.localAnchorA) }
func (j *WheelJoint) AnchorB() Vec2 { return j.bodyB.WorldPoint(j.localAnchorB) }

func (j *WheelJoint) ReactionForce(invDt float64) Vec2 {
	return j.ay.Scale(j.impulse).Add(j.ax.Scale(j.springImpulse)).Scale(invDt)
}

func (j *WheelJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.motorImpulse
}

// JointTranslation is the anchor separation along the axis.
func (j *WheelJoint) JointTranslation() float64 {
	pA := j.bodyA.WorldPoint(j.localAnchorA)
	pB := j.bodyB.WorldPoint(j.localAnchorB)
	axis := j.bodyA.WorldVector(j.localXAxisA)
	return pB.Sub(pA).Dot(axis)
}

// JointSpeed is the relative angular speed.
func (j *WheelJoint) JointSpeed() float64 {
	return j.bodyB.angularVelocity - j.bodyA.angularVelocity
}

func (j *WheelJoint) IsMotorEnabled() bool { return j.enableMotor }

func (j *WheelJoint) EnableMotor(flag bool) {
	j.wake()
	j.enableMotor = flag
}

func (j *WheelJoint) MotorSpeed() float64 { return j.motorSpeed }

func (j *WheelJoint) SetMotorSpeed(speed float64) {
	j.wake()
	j.motorSpeed = speed
}

func (j *WheelJoint) MaxMotorTorque() float64 { return j.maxMotorTorque }

func (j *WheelJoint) SetMaxMotorTorque(torque float64) {
	j.wake()
	j.maxMotorTorque = torque
}

func (j *WheelJoint) MotorTorque(invDt float64) float64 {
	return invDt * j.motorImpulse
}

func (j *WheelJoint) SpringFrequency() float64      { return j.frequencyHz }
func (j *WheelJoint) SetSpringFrequency(hz float64) { j.frequencyHz = hz }

func (j *WheelJoint) SpringDampingRatio() float64         { return j.dampingRatio }
func (j *WheelJoint) SetSpringDampingRatio(ratio float64) { j.dampingRatio = ratio }

// Linear constraint (point-to-line)
// d = pB - pA = xB + rB - xA - rA
// C = dot(ay, d)
// Cdot = dot(d, cross(wA, ay)) + dot(ay, vB + cross(wB, rB) - vA - cross(wA, rA))
// J = [-ay, -cross(d + rA, ay), ay, cross(rB, ay)]
//
// Spring linear constraint
// C = dot(ax, d)
// J = [-ax -cross(d+rA, ax) ax cross(rB, ax)]
//
// Motor rotational constraint
// Cdot = wB - wA
// J = [0 0 -1 0 0 1]

func (j *WheelJoint) initVelocityConstraints(data *solverData) {
	j.a = newSolverBody(j.bodyA)
	j.b = newSolverBody(j.bodyB)

	mA, mB := j.a.invMass, j.b.invMass
	iA, iB := j.a.invI, j.b.invI

	cA := data.positions[j.a.index].c
	aA := data.positions[j.a.index].a
	vA := data.velocities[j.a.index].v
	wA := data.velocities[j.a.index].w

	cB := data.positions[j.b.index].c
	aB := data.positions[j.b.index].a
	vB := data.velocities[j.b.index].v
	wB := data.velocities[j.b.index].w

	qA, qB := NewRot(aA), NewRot(aB)

	// Compute the effective masses.
	rA := qA.Apply(j.localAnchorA.Sub(j.a.localCenter))
	rB := qB.Apply(j.localAnchorB.Sub(j.b.localCenter))
	d := cB.Add(rB).Sub(cA).Sub(rA)

	// Point to line constraint
	j.ay = qA.Apply(j.localYAxisA)
	j.sAy = d.Add(rA).Cross(j.ay)
	j.sBy = rB.Cross(j.ay)
	j.mass = mA + mB + iA*j.sAy*j.sAy + iB*j.sBy*j.sBy
	if j.mass > 0.0 {
		j.mass = 1.0 / j.mass
	}

	// Spring constraint
	j.ax = qA.Apply(j.localXAxisA)
	j.sAx = d.Add(rA).Cross(j.ax)
	j.sBx = rB.Cross(j.ax)

	j.springMass = 0.0
	j.bias = 0.0
	j.gamma = 0.0
	if j.frequencyHz > 0.0 {
		invMass := mA + mB + iA*j.sAx*j.sAx + iB*j.sBx*j.sBx
		if invMass > 0.0 {
			c := d.Dot(j.ax)
			j.gamma, j.bias = softness(j.frequencyHz, j.dampingRatio, 1.0/invMass, c, data.step.dt)

			j.springMass = invMass + j.gamma
			if j.springMass > 0.0 {
				j.springMass = 1.0 / j.springMass
			}
		}
	} else {
		j.springImpulse = 0.0
	}

	// Rotational motor
	if j.enableMotor {
		j.motorMass = iA + iB
		if j.motorMass > 0.0 {
			j.motorMass = 1.0 / j.motorMass
		}
	} else {
		j.motorMass = 0.0
		j.motorImpulse = 0.0
	}

	if data.step.warmStarting {
		// Account for variable time step.
		j.impulse *= data.step.dtRatio
		j.springImpulse *= data.step.dtRatio
		j.motorImpulse *= data.step.dtRatio

		p := j.ay.Scale(j.impulse).Add(j.ax.Scale(j.springImpulse))
		lA := j.impulse*j.sAy + j.springImpulse*j.sAx + j.motorImpulse
		lB := j.impulse*j.sBy + j.springImpulse*j.sBx + j.motorImpulse

		vA = vA.Sub(p.Scale(mA))
		wA -= iA * lA
		vB = vB.Add(p.Scale(mB))
		wB += iB * lB
	} else {
		j.impulse = 0.0
		j.springImpulse = 0.0
		j.motorImpulse = 0.0
	}

	data.velocities[j.a.index] = velocity{vA, wA}
	data.velocities[j.b.index] = velocity{vB, wB}
}

func (j *WheelJoint) solveVelocityConstraints(data *solverData) {
	mA, mB := j.a.invMass, j.b.invMass
	iA, iB := j.a.invI, j.b.invI

	vA := data.velocities[j.a.index].v
	wA := data.velocities[j.a.index].w
	vB := data.velocities[j.b.index].v
	wB := data.velocities[j.b.index].w

	// Solve spring constraint
	{
		cdot := j.ax.Dot(vB.Sub(vA)) + j.sBx*wB - j.sAx*wA
		impulse := -j.springMass * (cdot + j.bias + j.gamma*j.springImpulse)
		j.springImpulse += impulse

		p := j.ax.Scale(impulse)
		vA = vA.Sub(p.Scale(mA))
		wA -= iA * impulse * j.sAx
		vB = vB.Add(p.Scale(mB))
		wB += iB * impulse * j.sBx
	}

	// Solve rotational motor constraint
	{
		cdot := wB - wA - j.motorSpeed
		impulse := -j.motorMass * cdot

		oldImpulse := j.motorImpulse
		maxImpulse := data.step.dt * j.maxMotorTorque
		j.motorImpulse = clamp(j.motorImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.motorImpulse - oldImpulse

		wA -= iA * impulse
		wB += iB * impulse
	}

	// Solve point to line constraint
	{
		cdot := j.ay.Dot(vB.Sub(vA)) + j.sBy*wB - j.sAy*wA
		impulse := -j.mass * cdot
		j.impulse += impulse

		p := j.ay.Scale(impulse)
		vA = vA.Sub(p.Scale(mA))
		wA -= iA * impulse * j.sAy
		vB = vB.Add(p.Scale(mB))
		wB += iB * impulse * j.sBy
	}

	data.velocities[j.a.index] = velocity{vA, wA}
	data.velocities[j.b.index] = velocity{vB, wB}
}

func (j *WheelJoint) solvePositionConstraints(data *solverData) bool {
	cA := data.positions[j.a.index].c
	aA := data.positions[j.a.index].a
	cB := data.positions[j.b.index].c
	aB := data.positions[j.b.index].a

	qA, qB := NewRot(aA), NewRot(aB)

	rA := qA.Apply(j.localAnchorA.Sub(j.a.localCenter))
	rB := qB.Apply(j.localAnchorB.Sub(j.b.localCenter))
	d := cB.Sub(cA).Add(rB).Sub(rA)

	ay := qA.Apply(j.localYAxisA)

	sAy := d.Add(rA).Cross(ay)
	sBy := rB.Cross(ay)

	c := d.Dot(ay)

	k := j.a.invMass + j.b.invMass + j.a.invI*sAy*sAy + j.b.invI*sBy*sBy

	impulse := 0.0
	if k != 0.0 {
		impulse = -c / k
	}

	p := ay.Scale(impulse)

	cA = cA.Sub(p.Scale(j.a.invMass))
	aA -= j.a.invI * impulse * sAy
	cB = cB.Add(p.Scale(j.b.invMass))
	aB += j.b.invI * impulse * sBy

	data.positions[j.a.index] = position{cA, aA}
	data.positions[j.b.index] = position{cB, aB}

	return math.Abs(c) <= LinearSlop
}
