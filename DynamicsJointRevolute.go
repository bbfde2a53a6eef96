package rigid2d

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// RevoluteJointDef describes a pin between two bodies. The joint is defined
// by an anchor point in each body's local frame, so it tolerates bodies
// created in a violated state. A reference angle, taken at creation, gives
// the zero of the joint angle for limits.
type RevoluteJointDef struct {
	JointDefBase

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	// ReferenceAngle is bodyB angle minus bodyA angle in the reference state
	// (radians).
	ReferenceAngle float64

	EnableLimit bool
	LowerAngle  float64 // radians
	UpperAngle  float64 // radians

	EnableMotor    bool
	MotorSpeed     float64 // radians per second
	MaxMotorTorque float64 // N*m
}

// Initialize sets the bodies, anchors and reference angle from a world
// anchor point and the current body poses.
func (d *RevoluteJointDef) Initialize(bodyA, bodyB *Body, anchor Vec2) {
	d.BodyA = bodyA
	d.BodyB = bodyB
	d.LocalAnchorA = bodyA.LocalPoint(anchor)
	d.LocalAnchorB = bodyB.LocalPoint(anchor)
	d.ReferenceAngle = bodyB.Angle() - bodyA.Angle()
}

// RevoluteJoint forces two bodies to share an anchor point while leaving
// relative rotation free. The relative rotation can be limited to a range
// and driven by a motor with a torque cap.
type RevoluteJoint struct {
	jointBase

	localAnchorA   Vec2
	localAnchorB   Vec2
	referenceAngle float64

	impulse        Vec3
	motorImpulse   float64
	enableMotor    bool
	maxMotorTorque float64
	motorSpeed     float64

	enableLimit bool
	lowerAngle  float64
	upperAngle  float64

	// Solver temp
	a, b       solverBody
	rA, rB     Vec2
	mass       Mat33 // effective mass for point-to-point constraint.
	motorMass  float64
	limitState limitState
}

func newRevoluteJoint(def *RevoluteJointDef) *RevoluteJoint {
	return &RevoluteJoint{
		jointBase:      newJointBase(RevoluteJointType, &def.JointDefBase),
		localAnchorA:   def.LocalAnchorA,
		localAnchorB:   def.LocalAnchorB,
		referenceAngle: def.ReferenceAngle,
		lowerAngle:     def.LowerAngle,
		upperAngle:     def.UpperAngle,
		maxMotorTorque: def.MaxMotorTorque,
		motorSpeed:     def.MotorSpeed,
		enableLimit:    def.EnableLimit,
		enableMotor:    def.EnableMotor,
		limitState:     inactiveLimit,
	}
}

func (j *RevoluteJoint) LocalAnchorA() Vec2      { return j.localAnchorA }
func (j *RevoluteJoint) LocalAnchorB() Vec2      { return j.localAnchorB }
func (j *RevoluteJoint) ReferenceAngle() float64 { return j.referenceAngle }

func (j *RevoluteJoint) AnchorA() Vec2 { return j.bodyA.WorldPoint(j.localAnchorA) }
func (j *RevoluteJoint) AnchorB() Vec2 { return j.bodyB.WorldPoint(j.localAnchorB) }

func (j *RevoluteJoint) ReactionForce(invDt float64) Vec2 {
	return Vec2{j.impulse[0], j.impulse[1]}.Scale(invDt)
}

func (j *RevoluteJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.impulse[2]
}

// JointAngle is the current relative angle minus the reference angle.
func (j *RevoluteJoint) JointAngle() float64 {
	return j.bodyB.sweep.A - j.bodyA.sweep.A - j.referenceAngle
}

// JointSpeed is the relative angular velocity in radians per second.
func (j *RevoluteJoint) JointSpeed() float64 {
	return j.bodyB.angularVelocity - j.bodyA.angularVelocity
}

func (j *RevoluteJoint) IsMotorEnabled() bool { return j.enableMotor }

func (j *RevoluteJoint) EnableMotor(flag bool) {
	j.wake()
	j.enableMotor = flag
}

func (j *RevoluteJoint) MotorSpeed() float64 { return j.motorSpeed }

func (j *RevoluteJoint) SetMotorSpeed(speed float64) {
	j.wake()
	j.motorSpeed = speed
}

func (j *RevoluteJoint) MaxMotorTorque() float64 { return j.maxMotorTorque }

func (j *RevoluteJoint) SetMaxMotorTorque(torque float64) {
	j.wake()
	j.maxMotorTorque = torque
}

// MotorTorque is the motor torque of the last step, in N*m.
func (j *RevoluteJoint) MotorTorque(invDt float64) float64 {
	return invDt * j.motorImpulse
}

func (j *RevoluteJoint) IsLimitEnabled() bool { return j.enableLimit }

func (j *RevoluteJoint) EnableLimit(flag bool) {
	if flag != j.enableLimit {
		j.wake()
		j.enableLimit = flag
		j.impulse[2] = 0.0
	}
}

func (j *RevoluteJoint) LowerLimit() float64 { return j.lowerAngle }
func (j *RevoluteJoint) UpperLimit() float64 { return j.upperAngle }

// SetLimits sets the joint angle range in radians.
func (j *RevoluteJoint) SetLimits(lower, upper float64) {
	assert(lower <= upper, "revolute joint lower limit above upper limit")
	if lower != j.lowerAngle || upper != j.upperAngle {
		j.wake()
		j.impulse[2] = 0.0
		j.lowerAngle = lower
		j.upperAngle = upper
	}
}

// Point-to-point constraint
// C = p2 - p1
// Cdot = v2 - v1
//      = v2 + cross(w2, r2) - v1 - cross(w1, r1)
// J = [-I -r1_skew I r2_skew ]
// Identity used:
// w k % (rx i + ry j) = w * (-ry i + rx j)
//
// Motor constraint
// Cdot = w2 - w1
// J = [0 0 -1 0 0 1]
// K = invI1 + invI2

func (j *RevoluteJoint) initVelocityConstraints(data *solverData) {
	j.a = newSolverBody(j.bodyA)
	j.b = newSolverBody(j.bodyB)

	aA := data.positions[j.a.index].a
	vA := data.velocities[j.a.index].v
	wA := data.velocities[j.a.index].w

	aB := data.positions[j.b.index].a
	vB := data.velocities[j.b.index].v
	wB := data.velocities[j.b.index].w

	qA := NewRot(aA)
	qB := NewRot(aB)

	j.rA = qA.Apply(j.localAnchorA.Sub(j.a.localCenter))
	j.rB = qB.Apply(j.localAnchorB.Sub(j.b.localCenter))

	// J = [-I -r1_skew I r2_skew]
	//     [ 0       -1 0       1]
	// r_skew = [-ry; rx]
	//
	// K = [ mA+r1y^2*iA+mB+r2y^2*iB,  -r1y*iA*r1x-r2y*iB*r2x,          -r1y*iA-r2y*iB]
	//     [  -r1y*iA*r1x-r2y*iB*r2x, mA+r1x^2*iA+mB+r2x^2*iB,           r1x*iA+r2x*iB]
	//     [          -r1y*iA-r2y*iB,           r1x*iA+r2x*iB,                   iA+iB]

	mA, mB := j.a.invMass, j.b.invMass
	iA, iB := j.a.invI, j.b.invI
	rA, rB := j.rA, j.rB

	fixedRotation := iA+iB == 0.0

	exX := mA + mB + rA.Y*rA.Y*iA + rB.Y*rB.Y*iB
	eyX := -rA.Y*rA.X*iA - rB.Y*rB.X*iB
	ezX := -rA.Y*iA - rB.Y*iB
	eyY := mA + mB + rA.X*rA.X*iA + rB.X*rB.X*iB
	ezY := rA.X*iA + rB.X*iB
	j.mass = mgl64.Mat3FromCols(
		Vec3{exX, eyX, ezX},
		Vec3{eyX, eyY, ezY},
		Vec3{ezX, ezY, iA + iB},
	)

	j.motorMass = iA + iB
	if j.motorMass > 0.0 {
		j.motorMass = 1.0 / j.motorMass
	}

	if !j.enableMotor || fixedRotation {
		j.motorImpulse = 0.0
	}

	if j.enableLimit && !fixedRotation {
		jointAngle := aB - aA - j.referenceAngle
		switch {
		case math.Abs(j.upperAngle-j.lowerAngle) < 2.0*AngularSlop:
			j.limitState = equalLimits
		case jointAngle <= j.lowerAngle:
			if j.limitState != atLowerLimit {
				j.impulse[2] = 0.0
			}
			j.limitState = atLowerLimit
		case jointAngle >= j.upperAngle:
			if j.limitState != atUpperLimit {
				j.impulse[2] = 0.0
			}
			j.limitState = atUpperLimit
		default:
			j.limitState = inactiveLimit
			j.impulse[2] = 0.0
		}
	} else {
		j.limitState = inactiveLimit
	}

	if data.step.warmStarting {
		// Scale impulses to support a variable time step.
		j.impulse = j.impulse.Mul(data.step.dtRatio)
		j.motorImpulse *= data.step.dtRatio

		p := vec3XY(j.impulse)

		vA = vA.Sub(p.Scale(mA))
		wA -= iA * (rA.Cross(p) + j.motorImpulse + j.impulse[2])

		vB = vB.Add(p.Scale(mB))
		wB += iB * (rB.Cross(p) + j.motorImpulse + j.impulse[2])
	} else {
		j.impulse = Vec3{}
		j.motorImpulse = 0.0
	}

	data.velocities[j.a.index] = velocity{vA, wA}
	data.velocities[j.b.index] = velocity{vB, wB}
}

func (j *RevoluteJoint) solveVelocityConstraints(data *solverData) {
	vA := data.velocities[j.a.index].v
	wA := data.velocities[j.a.index].w
	vB := data.velocities[j.b.index].v
	wB := data.velocities[j.b.index].w

	mA, mB := j.a.invMass, j.b.invMass
	iA, iB := j.a.invI, j.b.invI
	rA, rB := j.rA, j.rB

	fixedRotation := iA+iB == 0.0

	// Solve motor constraint.
	if j.enableMotor && j.limitState != equalLimits && !fixedRotation {
		cdot := wB - wA - j.motorSpeed
		impulse := -j.motorMass * cdot
		oldImpulse := j.motorImpulse
		maxImpulse := data.step.dt * j.maxMotorTorque
		j.motorImpulse = clamp(j.motorImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.motorImpulse - oldImpulse

		wA -= iA * impulse
		wB += iB * impulse
	}

	if j.enableLimit && j.limitState != inactiveLimit && !fixedRotation {
		// Solve limit constraint.
		cdot1 := vB.Add(CrossSV(wB, rB)).Sub(vA).Sub(CrossSV(wA, rA))
		cdot2 := wB - wA
		cdot := vec3(cdot1, cdot2)

		impulse := solve33(j.mass, cdot).Mul(-1.0)

		switch j.limitState {
		case equalLimits:
			j.impulse = j.impulse.Add(impulse)

		case atLowerLimit:
			newImpulse := j.impulse[2] + impulse[2]
			if newImpulse < 0.0 {
				impulse = j.dropLimitImpulse(cdot1)
			} else {
				j.impulse = j.impulse.Add(impulse)
			}

		case atUpperLimit:
			newImpulse := j.impulse[2] + impulse[2]
			if newImpulse > 0.0 {
				impulse = j.dropLimitImpulse(cdot1)
			} else {
				j.impulse = j.impulse.Add(impulse)
			}
		}

		p := vec3XY(impulse)

		vA = vA.Sub(p.Scale(mA))
		wA -= iA * (rA.Cross(p) + impulse[2])

		vB = vB.Add(p.Scale(mB))
		wB += iB * (rB.Cross(p) + impulse[2])
	} else {
		// Solve point-to-point constraint
		cdot := vB.Add(CrossSV(wB, rB)).Sub(vA).Sub(CrossSV(wA, rA))
		impulse := solve22(j.mass, cdot.Neg())

		j.impulse[0] += impulse.X
		j.impulse[1] += impulse.Y

		vA = vA.Sub(impulse.Scale(mA))
		wA -= iA * rA.Cross(impulse)

		vB = vB.Add(impulse.Scale(mB))
		wB += iB * rB.Cross(impulse)
	}

	data.velocities[j.a.index] = velocity{vA, wA}
	data.velocities[j.b.index] = velocity{vB, wB}
}

// dropLimitImpulse releases the accumulated limit impulse and solves the
// point constraint alone. It returns the impulse to apply.
func (j *RevoluteJoint) dropLimitImpulse(cdot1 Vec2) Vec3 {
	ez := Vec2{j.mass[6], j.mass[7]}
	rhs := cdot1.Neg().Add(ez.Scale(j.impulse[2]))
	reduced := solve22(j.mass, rhs)

	impulse := Vec3{reduced.X, reduced.Y, -j.impulse[2]}
	j.impulse[0] += reduced.X
	j.impulse[1] += reduced.Y
	j.impulse[2] = 0.0
	return impulse
}

func (j *RevoluteJoint) solvePositionConstraints(data *solverData) bool {
	cA := data.positions[j.a.index].c
	aA := data.positions[j.a.index].a
	cB := data.positions[j.b.index].c
	aB := data.positions[j.b.index].a

	angularError := 0.0
	positionError := 0.0

	fixedRotation := j.a.invI+j.b.invI == 0.0
	maxCorrection := data.tuning.MaxAngularCorrection

	// Solve angular limit constraint.
	if j.enableLimit && j.limitState != inactiveLimit && !fixedRotation {
		angle := aB - aA - j.referenceAngle
		limitImpulse := 0.0

		switch j.limitState {
		case equalLimits:
			// Prevent large angular corrections
			c := clamp(angle-j.lowerAngle, -maxCorrection, maxCorrection)
			limitImpulse = -j.motorMass * c
			angularError = math.Abs(c)

		case atLowerLimit:
			c := angle - j.lowerAngle
			angularError = -c

			// Prevent large angular corrections and allow some slop.
			c = clamp(c+AngularSlop, -maxCorrection, 0.0)
			limitImpulse = -j.motorMass * c

		case atUpperLimit:
			c := angle - j.upperAngle
			angularError = c

			// Prevent large angular corrections and allow some slop.
			c = clamp(c-AngularSlop, 0.0, maxCorrection)
			limitImpulse = -j.motorMass * c
		}

		aA -= j.a.invI * limitImpulse
		aB += j.b.invI * limitImpulse
	}

	// Solve point-to-point constraint.
	{
		qA := NewRot(aA)
		qB := NewRot(aB)
		rA := qA.Apply(j.localAnchorA.Sub(j.a.localCenter))
		rB := qB.Apply(j.localAnchorB.Sub(j.b.localCenter))

		c := cB.Add(rB).Sub(cA).Sub(rA)
		positionError = c.Length()

		mA, mB := j.a.invMass, j.b.invMass
		iA, iB := j.a.invI, j.b.invI

		k11 := mA + mB + iA*rA.Y*rA.Y + iB*rB.Y*rB.Y
		k12 := -iA*rA.X*rA.Y - iB*rB.X*rB.Y
		k22 := mA + mB + iA*rA.X*rA.X + iB*rB.X*rB.X
		k := newMat22(Vec2{k11, k12}, Vec2{k12, k22})

		impulse := mulMat22(inverse22(k), c).Neg()

		cA = cA.Sub(impulse.Scale(mA))
		aA -= iA * rA.Cross(impulse)

		cB = cB.Add(impulse.Scale(mB))
		aB += iB * rB.Cross(impulse)
	}

	data.positions[j.a.index] = position{cA, aA}
	data.positions[j.b.index] = position{cB, aB}

	return positionError <= LinearSlop && angularError <= AngularSlop
}
