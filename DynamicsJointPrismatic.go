package rigid2d

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// PrismaticJointDef describes a slider between two bodies. Relative rotation
// is locked and relative translation happens along an axis fixed in bodyA.
type PrismaticJointDef struct {
	JointDefBase

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	// LocalAxisA is the translation unit axis in bodyA.
	LocalAxisA Vec2

	ReferenceAngle float64

	EnableLimit      bool
	LowerTranslation float64 // meters
	UpperTranslation float64 // meters

	EnableMotor   bool
	MaxMotorForce float64 // N
	MotorSpeed    float64 // meters per second
}

// DefaultPrismaticJointDef slides along the x axis of bodyA.
func DefaultPrismaticJointDef() PrismaticJointDef {
	return PrismaticJointDef{LocalAxisA: Vec2{1, 0}}
}

// Initialize sets the bodies, anchors, axis and reference angle from a world
// anchor and a world axis.
func (d *PrismaticJointDef) Initialize(bodyA, bodyB *Body, anchor, axis Vec2) {
	d.BodyA = bodyA
	d.BodyB = bodyB
	d.LocalAnchorA = bodyA.LocalPoint(anchor)
	d.LocalAnchorB = bodyB.LocalPoint(anchor)
	d.LocalAxisA = bodyA.LocalVector(axis)
	d.ReferenceAngle = bodyB.Angle() - bodyA.Angle()
}

// PrismaticJoint allows one degree of freedom: translation along an axis
// fixed in bodyA. The translation can be limited and driven by a motor.
type PrismaticJoint struct {
	jointBase

	localAnchorA   Vec2
	localAnchorB   Vec2
	localXAxisA    Vec2
	localYAxisA    Vec2
	referenceAngle float64

	impulse          Vec3
	motorImpulse     float64
	lowerTranslation float64
	upperTranslation float64
	maxMotorForce    float64
	motorSpeed       float64
	enableLimit      bool
	enableMotor      bool
	limitState       limitState

	// Solver temp
	a, b       solverBody
	axis, perp Vec2
	s1, s2     float64
	a1, a2     float64
	k          Mat33
	motorMass  float64
}

func newPrismaticJoint(def *PrismaticJointDef) *PrismaticJoint {
	axis := def.LocalAxisA.Normalized()
	return &PrismaticJoint{
		jointBase:        newJointBase(PrismaticJointType, &def.JointDefBase),
		localAnchorA:     def.LocalAnchorA,
		localAnchorB:     def.LocalAnchorB,
		localXAxisA:      axis,
		localYAxisA:      CrossSV(1.0, axis),
		referenceAngle:   def.ReferenceAngle,
		lowerTranslation: def.LowerTranslation,
		upperTranslation: def.UpperTranslation,
		maxMotorForce:    def.MaxMotorForce,
		motorSpeed:       def.MotorSpeed,
		enableLimit:      def.EnableLimit,
		enableMotor:      def.EnableMotor,
	}
}

func (j *PrismaticJoint) LocalAnchorA() Vec2      { return j.localAnchorA }
func (j *PrismaticJoint) LocalAnchorB() Vec2      { return j.localAnchorB }
func (j *PrismaticJoint) LocalAxisA() Vec2        { return j.localXAxisA }
func (j *PrismaticJoint) ReferenceAngle() float64 { return j.referenceAngle }

func (j *PrismaticJoint) AnchorA() Vec2 { return j.bodyA.WorldPoint(j.localAnchorA) }
func (j *PrismaticJoint) AnchorB() Vec2 { return j.bodyB.WorldPoint(j.localAnchorB) }

func (j *PrismaticJoint) ReactionForce(invDt float64) Vec2 {
	return j.perp.Scale(j.impulse[0]).Add(j.axis.Scale(j.motorImpulse + j.impulse[2])).Scale(invDt)
}

func (j *PrismaticJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.impulse[1]
}

// JointTranslation is the anchor separation along the axis.
func (j *PrismaticJoint) JointTranslation() float64 {
	pA := j.bodyA.WorldPoint(j.localAnchorA)
	pB := j.bodyB.WorldPoint(j.localAnchorB)
	axis := j.bodyA.WorldVector(j.localXAxisA)
	return pB.Sub(pA).Dot(axis)
}

func (j *PrismaticJoint) JointSpeed() float64 {
	bA, bB := j.bodyA, j.bodyB

	rA := bA.xf.Q.Apply(j.localAnchorA.Sub(bA.sweep.LocalCenter))
	rB := bB.xf.Q.Apply(j.localAnchorB.Sub(bB.sweep.LocalCenter))
	p1 := bA.sweep.C.Add(rA)
	p2 := bB.sweep.C.Add(rB)
	d := p2.Sub(p1)
	axis := bA.xf.Q.Apply(j.localXAxisA)

	vA, vB := bA.linearVelocity, bB.linearVelocity
	wA, wB := bA.angularVelocity, bB.angularVelocity

	return d.Dot(CrossSV(wA, axis)) + axis.Dot(vB.Add(CrossSV(wB, rB)).Sub(vA).Sub(CrossSV(wA, rA)))
}

func (j *PrismaticJoint) IsLimitEnabled() bool { return j.enableLimit }

func (j *PrismaticJoint) EnableLimit(flag bool) {
	if flag != j.enableLimit {
		j.wake()
		j.enableLimit = flag
		j.impulse[2] = 0.0
	}
}

func (j *PrismaticJoint) LowerLimit() float64 { return j.lowerTranslation }
func (j *PrismaticJoint) UpperLimit() float64 { return j.upperTranslation }

func (j *PrismaticJoint) SetLimits(lower, upper float64) {
	assert(lower <= upper, "prismatic joint lower limit above upper limit")
	if lower != j.lowerTranslation || upper != j.upperTranslation {
		j.wake()
		j.lowerTranslation = lower
		j.upperTranslation = upper
		j.impulse[2] = 0.0
	}
}

func (j *PrismaticJoint) IsMotorEnabled() bool { return j.enableMotor }

func (j *PrismaticJoint) EnableMotor(flag bool) {
	j.wake()
	j.enableMotor = flag
}

func (j *PrismaticJoint) MotorSpeed() float64 { return j.motorSpeed }

func (j *PrismaticJoint) SetMotorSpeed(speed float64) {
	j.wake()
	j.motorSpeed = speed
}

func (j *PrismaticJoint) MaxMotorForce() float64 { return j.maxMotorForce }

func (j *PrismaticJoint) SetMaxMotorForce(force float64) {
	j.wake()
	j.maxMotorForce = force
}

func (j *PrismaticJoint) MotorForce(invDt float64) float64 {
	return invDt * j.motorImpulse
}

// Linear constraint (point-to-line)
// d = p2 - p1 = x2 + r2 - x1 - r1
// C = dot(perp, d)
// Cdot = dot(d, cross(w1, perp)) + dot(perp, v2 + cross(w2, r2) - v1 - cross(w1, r1))
// J = [-perp, -cross(d + r1, perp), perp, cross(r2,perp)]
//
// Angular constraint
// C = a2 - a1 + a_initial
// Cdot = w2 - w1
// J = [0 0 -1 0 0 1]
//
// The limit and motor act along axis with
// J = [-axis -cross(d+r1,axis) axis cross(r2,axis)]

// prismaticK assembles the 3x3 effective mass of the perpendicular, angular
// and axial rows.
func prismaticK(mA, mB, iA, iB, s1, s2, a1, a2 float64) Mat33 {
	k11 := mA + mB + iA*s1*s1 + iB*s2*s2
	k12 := iA*s1 + iB*s2
	k13 := iA*s1*a1 + iB*s2*a2
	k22 := iA + iB
	if k22 == 0.0 {
		// For bodies with fixed rotation.
		k22 = 1.0
	}
	k23 := iA*a1 + iB*a2
	k33 := mA + mB + iA*a1*a1 + iB*a2*a2
	return mgl64.Mat3FromCols(
		Vec3{k11, k12, k13},
		Vec3{k12, k22, k23},
		Vec3{k13, k23, k33},
	)
}

func (j *PrismaticJoint) initVelocityConstraints(data *solverData) {
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

	qA := NewRot(aA)
	qB := NewRot(aB)

	rA := qA.Apply(j.localAnchorA.Sub(j.a.localCenter))
	rB := qB.Apply(j.localAnchorB.Sub(j.b.localCenter))
	d := cB.Sub(cA).Add(rB).Sub(rA)

	mA, mB := j.a.invMass, j.b.invMass
	iA, iB := j.a.invI, j.b.invI

	// Motor Jacobian and effective mass.
	j.axis = qA.Apply(j.localXAxisA)
	j.a1 = d.Add(rA).Cross(j.axis)
	j.a2 = rB.Cross(j.axis)
	j.motorMass = mA + mB + iA*j.a1*j.a1 + iB*j.a2*j.a2
	if j.motorMass > 0.0 {
		j.motorMass = 1.0 / j.motorMass
	}

	j.perp = qA.Apply(j.localYAxisA)
	j.s1 = d.Add(rA).Cross(j.perp)
	j.s2 = rB.Cross(j.perp)
	j.k = prismaticK(mA, mB, iA, iB, j.s1, j.s2, j.a1, j.a2)

	if j.enableLimit {
		translation := j.axis.Dot(d)
		switch {
		case math.Abs(j.upperTranslation-j.lowerTranslation) < 2.0*LinearSlop:
			j.limitState = equalLimits
		case translation <= j.lowerTranslation:
			if j.limitState != atLowerLimit {
				j.limitState = atLowerLimit
				j.impulse[2] = 0.0
			}
		case translation >= j.upperTranslation:
			if j.limitState != atUpperLimit {
				j.limitState = atUpperLimit
				j.impulse[2] = 0.0
			}
		default:
			j.limitState = inactiveLimit
			j.impulse[2] = 0.0
		}
	} else {
		j.limitState = inactiveLimit
		j.impulse[2] = 0.0
	}

	if !j.enableMotor {
		j.motorImpulse = 0.0
	}

	if data.step.warmStarting {
		j.impulse = j.impulse.Mul(data.step.dtRatio)
		j.motorImpulse *= data.step.dtRatio

		axial := j.motorImpulse + j.impulse[2]
		p := j.perp.Scale(j.impulse[0]).Add(j.axis.Scale(axial))
		lA := j.impulse[0]*j.s1 + j.impulse[1] + axial*j.a1
		lB := j.impulse[0]*j.s2 + j.impulse[1] + axial*j.a2

		vA = vA.Sub(p.Scale(mA))
		wA -= iA * lA
		vB = vB.Add(p.Scale(mB))
		wB += iB * lB
	} else {
		j.impulse = Vec3{}
		j.motorImpulse = 0.0
	}

	data.velocities[j.a.index] = velocity{vA, wA}
	data.velocities[j.b.index] = velocity{vB, wB}
}

func (j *PrismaticJoint) solveVelocityConstraints(data *solverData) {
	vA := data.velocities[j.a.index].v
	wA := data.velocities[j.a.index].w
	vB := data.velocities[j.b.index].v
	wB := data.velocities[j.b.index].w

	mA, mB := j.a.invMass, j.b.invMass
	iA, iB := j.a.invI, j.b.invI

	// Solve linear motor constraint.
	if j.enableMotor && j.limitState != equalLimits {
		cdot := j.axis.Dot(vB.Sub(vA)) + j.a2*wB - j.a1*wA
		impulse := j.motorMass * (j.motorSpeed - cdot)
		oldImpulse := j.motorImpulse
		maxImpulse := data.step.dt * j.maxMotorForce
		j.motorImpulse = clamp(j.motorImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.motorImpulse - oldImpulse

		p := j.axis.Scale(impulse)
		vA = vA.Sub(p.Scale(mA))
		wA -= iA * impulse * j.a1
		vB = vB.Add(p.Scale(mB))
		wB += iB * impulse * j.a2
	}

	cdot1 := Vec2{
		X: j.perp.Dot(vB.Sub(vA)) + j.s2*wB - j.s1*wA,
		Y: wB - wA,
	}

	if j.enableLimit && j.limitState != inactiveLimit {
		// Solve prismatic and limit constraint in block form.
		cdot2 := j.axis.Dot(vB.Sub(vA)) + j.a2*wB - j.a1*wA
		cdot := vec3(cdot1, cdot2)

		f1 := j.impulse
		df := solve33(j.k, cdot).Mul(-1.0)
		j.impulse = j.impulse.Add(df)

		switch j.limitState {
		case atLowerLimit:
			j.impulse[2] = math.Max(j.impulse[2], 0.0)
		case atUpperLimit:
			j.impulse[2] = math.Min(j.impulse[2], 0.0)
		}

		// f2(1:2) = invK(1:2,1:2) * (-Cdot(1:2) - K(1:2,3) * (f2(3) - f1(3))) + f1(1:2)
		ez := Vec2{j.k[6], j.k[7]}
		rhs := cdot1.Neg().Sub(ez.Scale(j.impulse[2] - f1[2]))
		f2r := solve22(j.k, rhs).Add(vec3XY(f1))
		j.impulse[0] = f2r.X
		j.impulse[1] = f2r.Y

		df = j.impulse.Sub(f1)

		p := j.perp.Scale(df[0]).Add(j.axis.Scale(df[2]))
		lA := df[0]*j.s1 + df[1] + df[2]*j.a1
		lB := df[0]*j.s2 + df[1] + df[2]*j.a2

		vA = vA.Sub(p.Scale(mA))
		wA -= iA * lA
		vB = vB.Add(p.Scale(mB))
		wB += iB * lB
	} else {
		// Limit is inactive, just solve the prismatic constraint in block form.
		df := solve22(j.k, cdot1.Neg())
		j.impulse[0] += df.X
		j.impulse[1] += df.Y

		p := j.perp.Scale(df.X)
		lA := df.X*j.s1 + df.Y
		lB := df.X*j.s2 + df.Y

		vA = vA.Sub(p.Scale(mA))
		wA -= iA * lA
		vB = vB.Add(p.Scale(mB))
		wB += iB * lB
	}

	data.velocities[j.a.index] = velocity{vA, wA}
	data.velocities[j.b.index] = velocity{vB, wB}
}

// The position solver only copes with integration drift, so it recomputes
// the limit state from the current translation.
func (j *PrismaticJoint) solvePositionConstraints(data *solverData) bool {
	cA := data.positions[j.a.index].c
	aA := data.positions[j.a.index].a
	cB := data.positions[j.b.index].c
	aB := data.positions[j.b.index].a

	qA := NewRot(aA)
	qB := NewRot(aB)

	mA, mB := j.a.invMass, j.b.invMass
	iA, iB := j.a.invI, j.b.invI
	maxCorrection := data.tuning.MaxLinearCorrection

	// Compute fresh Jacobians
	rA := qA.Apply(j.localAnchorA.Sub(j.a.localCenter))
	rB := qB.Apply(j.localAnchorB.Sub(j.b.localCenter))
	d := cB.Add(rB).Sub(cA).Sub(rA)

	axis := qA.Apply(j.localXAxisA)
	a1 := d.Add(rA).Cross(axis)
	a2 := rB.Cross(axis)
	perp := qA.Apply(j.localYAxisA)

	s1 := d.Add(rA).Cross(perp)
	s2 := rB.Cross(perp)

	c1 := Vec2{perp.Dot(d), aB - aA - j.referenceAngle}

	linearError := math.Abs(c1.X)
	angularError := math.Abs(c1.Y)

	active := false
	c2 := 0.0
	if j.enableLimit {
		translation := axis.Dot(d)
		switch {
		case math.Abs(j.upperTranslation-j.lowerTranslation) < 2.0*LinearSlop:
			// Prevent large angular corrections
			c2 = clamp(translation, -maxCorrection, maxCorrection)
			linearError = math.Max(linearError, math.Abs(translation))
			active = true
		case translation <= j.lowerTranslation:
			// Prevent large linear corrections and allow some slop.
			c2 = clamp(translation-j.lowerTranslation+LinearSlop, -maxCorrection, 0.0)
			linearError = math.Max(linearError, j.lowerTranslation-translation)
			active = true
		case translation >= j.upperTranslation:
			c2 = clamp(translation-j.upperTranslation-LinearSlop, 0.0, maxCorrection)
			linearError = math.Max(linearError, translation-j.upperTranslation)
			active = true
		}
	}

	var impulse Vec3
	k := prismaticK(mA, mB, iA, iB, s1, s2, a1, a2)
	if active {
		impulse = solve33(k, vec3(c1, c2)).Mul(-1.0)
	} else {
		impulse = vec3(solve22(k, c1.Neg()), 0.0)
	}

	p := perp.Scale(impulse[0]).Add(axis.Scale(impulse[2]))
	lA := impulse[0]*s1 + impulse[1] + impulse[2]*a1
	lB := impulse[0]*s2 + impulse[1] + impulse[2]*a2

	cA = cA.Sub(p.Scale(mA))
	aA -= iA * lA
	cB = cB.Add(p.Scale(mB))
	aB += iB * lB

	data.positions[j.a.index] = position{cA, aA}
	data.positions[j.b.index] = position{cB, aB}

	return linearError <= LinearSlop && angularError <= AngularSlop
}
