package rigid2d

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// WeldJointDef glues two bodies at an anchor. A non-zero FrequencyHz softens
// the angular part.
type WeldJointDef struct {
	JointDefBase

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	// ReferenceAngle is bodyB angle minus bodyA angle in the reference state.
	ReferenceAngle float64

	// FrequencyHz is the angular spring frequency. Zero makes the weld rigid.
	FrequencyHz float64

	DampingRatio float64
}

// Initialize sets the bodies, anchors and reference angle from a world
// anchor point.
func (d *WeldJointDef) Initialize(bodyA, bodyB *Body, anchor Vec2) {
	d.BodyA = bodyA
	d.BodyB = bodyB
	d.LocalAnchorA = bodyA.LocalPoint(anchor)
	d.LocalAnchorB = bodyB.LocalPoint(anchor)
	d.ReferenceAngle = bodyB.Angle() - bodyA.Angle()
}

// WeldJoint removes all relative motion between two bodies.
type WeldJoint struct {
	jointBase

	frequencyHz  float64
	dampingRatio float64
	bias         float64

	localAnchorA   Vec2
	localAnchorB   Vec2
	referenceAngle float64
	gamma          float64
	impulse        Vec3

	// Solver temp
	a, b   solverBody
	rA, rB Vec2
	mass   Mat33
}

func newWeldJoint(def *WeldJointDef) *WeldJoint {
	return &WeldJoint{
		jointBase:      newJointBase(WeldJointType, &def.JointDefBase),
		localAnchorA:   def.LocalAnchorA,
		localAnchorB:   def.LocalAnchorB,
		referenceAngle: def.ReferenceAngle,
		frequencyHz:    def.FrequencyHz,
		dampingRatio:   def.DampingRatio,
	}
}

func (j *WeldJoint) LocalAnchorA() Vec2      { return j.localAnchorA }
func (j *WeldJoint) LocalAnchorB() Vec2      { return j.localAnchorB }
func (j *WeldJoint) ReferenceAngle() float64 { return j.referenceAngle }

func (j *WeldJoint) AnchorA() Vec2 { return j.bodyA.WorldPoint(j.localAnchorA) }
func (j *WeldJoint) AnchorB() Vec2 { return j.bodyB.WorldPoint(j.localAnchorB) }

func (j *WeldJoint) ReactionForce(invDt float64) Vec2 {
	return vec3XY(j.impulse).Scale(invDt)
}

func (j *WeldJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.impulse[2]
}

func (j *WeldJoint) Frequency() float64      { return j.frequencyHz }
func (j *WeldJoint) SetFrequency(hz float64) { j.frequencyHz = hz }

func (j *WeldJoint) DampingRatio() float64         { return j.dampingRatio }
func (j *WeldJoint) SetDampingRatio(ratio float64) { j.dampingRatio = ratio }

// anchorK is the effective mass of a point-to-point constraint combined
// with an angular constraint.
//
// J = [-I -r1_skew I r2_skew]
//     [ 0       -1 0       1]
// r_skew = [-ry; rx]
func anchorK(mA, mB, iA, iB float64, rA, rB Vec2) Mat33 {
	exX := mA + mB + rA.Y*rA.Y*iA + rB.Y*rB.Y*iB
	eyX := -rA.Y*rA.X*iA - rB.Y*rB.X*iB
	ezX := -rA.Y*iA - rB.Y*iB
	eyY := mA + mB + rA.X*rA.X*iA + rB.X*rB.X*iB
	ezY := rA.X*iA + rB.X*iB
	return mgl64.Mat3FromCols(
		Vec3{exX, eyX, ezX},
		Vec3{eyX, eyY, ezY},
		Vec3{ezX, ezY, iA + iB},
	)
}

// mul22Of33 multiplies v by the upper-left 2x2 block of m.
func mul22Of33(m Mat33, v Vec2) Vec2 {
	return Vec2{m[0]*v.X + m[3]*v.Y, m[1]*v.X + m[4]*v.Y}
}

func (j *WeldJoint) initVelocityConstraints(data *solverData) {
	j.a = newSolverBody(j.bodyA)
	j.b = newSolverBody(j.bodyB)

	aA := data.positions[j.a.index].a
	vA := data.velocities[j.a.index].v
	wA := data.velocities[j.a.index].w

	aB := data.positions[j.b.index].a
	vB := data.velocities[j.b.index].v
	wB := data.velocities[j.b.index].w

	qA, qB := NewRot(aA), NewRot(aB)

	j.rA = qA.Apply(j.localAnchorA.Sub(j.a.localCenter))
	j.rB = qB.Apply(j.localAnchorB.Sub(j.b.localCenter))

	mA, mB := j.a.invMass, j.b.invMass
	iA, iB := j.a.invI, j.b.invI

	k := anchorK(mA, mB, iA, iB, j.rA, j.rB)

	switch {
	case j.frequencyHz > 0.0:
		j.mass = inverse22Of33(k)

		invM := iA + iB
		m := 0.0
		if invM > 0.0 {
			m = 1.0 / invM
		}

		c := aB - aA - j.referenceAngle
		j.gamma, j.bias = softness(j.frequencyHz, j.dampingRatio, m, c, data.step.dt)

		invM += j.gamma
		j.mass[8] = 0.0
		if invM != 0.0 {
			j.mass[8] = 1.0 / invM
		}
	case k[8] == 0.0:
		j.mass = inverse22Of33(k)
		j.gamma = 0.0
		j.bias = 0.0
	default:
		j.mass = symInverse33(k)
		j.gamma = 0.0
		j.bias = 0.0
	}

	if data.step.warmStarting {
		// Scale impulses to support a variable time step.
		j.impulse = j.impulse.Mul(data.step.dtRatio)

		p := vec3XY(j.impulse)
		vA = vA.Sub(p.Scale(mA))
		wA -= iA * (j.rA.Cross(p) + j.impulse[2])
		vB = vB.Add(p.Scale(mB))
		wB += iB * (j.rB.Cross(p) + j.impulse[2])
	} else {
		j.impulse = Vec3{}
	}

	data.velocities[j.a.index] = velocity{vA, wA}
	data.velocities[j.b.index] = velocity{vB, wB}
}

func (j *WeldJoint) solveVelocityConstraints(data *solverData) {
	vA := data.velocities[j.a.index].v
	wA := data.velocities[j.a.index].w
	vB := data.velocities[j.b.index].v
	wB := data.velocities[j.b.index].w

	mA, mB := j.a.invMass, j.b.invMass
	iA, iB := j.a.invI, j.b.invI

	if j.frequencyHz > 0.0 {
		cdot2 := wB - wA

		impulse2 := -j.mass[8] * (cdot2 + j.bias + j.gamma*j.impulse[2])
		j.impulse[2] += impulse2

		wA -= iA * impulse2
		wB += iB * impulse2

		cdot1 := vB.Add(CrossSV(wB, j.rB)).Sub(vA).Sub(CrossSV(wA, j.rA))

		impulse1 := mul22Of33(j.mass, cdot1).Neg()
		j.impulse[0] += impulse1.X
		j.impulse[1] += impulse1.Y

		vA = vA.Sub(impulse1.Scale(mA))
		wA -= iA * j.rA.Cross(impulse1)
		vB = vB.Add(impulse1.Scale(mB))
		wB += iB * j.rB.Cross(impulse1)
	} else {
		cdot1 := vB.Add(CrossSV(wB, j.rB)).Sub(vA).Sub(CrossSV(wA, j.rA))
		cdot2 := wB - wA

		impulse := j.mass.Mul3x1(vec3(cdot1, cdot2)).Mul(-1.0)
		j.impulse = j.impulse.Add(impulse)

		p := vec3XY(impulse)
		vA = vA.Sub(p.Scale(mA))
		wA -= iA * (j.rA.Cross(p) + impulse[2])
		vB = vB.Add(p.Scale(mB))
		wB += iB * (j.rB.Cross(p) + impulse[2])
	}

	data.velocities[j.a.index] = velocity{vA, wA}
	data.velocities[j.b.index] = velocity{vB, wB}
}

func (j *WeldJoint) solvePositionConstraints(data *solverData) bool {
	cA := data.positions[j.a.index].c
	aA := data.positions[j.a.index].a
	cB := data.positions[j.b.index].c
	aB := data.positions[j.b.index].a

	qA, qB := NewRot(aA), NewRot(aB)

	mA, mB := j.a.invMass, j.b.invMass
	iA, iB := j.a.invI, j.b.invI

	rA := qA.Apply(j.localAnchorA.Sub(j.a.localCenter))
	rB := qB.Apply(j.localAnchorB.Sub(j.b.localCenter))

	k := anchorK(mA, mB, iA, iB, rA, rB)

	var positionError, angularError float64

	c1 := cB.Add(rB).Sub(cA).Sub(rA)
	positionError = c1.Length()

	var impulse Vec3
	if j.frequencyHz > 0.0 {
		impulse = vec3(solve22(k, c1).Neg(), 0.0)
	} else {
		c2 := aB - aA - j.referenceAngle
		angularError = math.Abs(c2)

		if k[8] > 0.0 {
			impulse = solve33(k, vec3(c1, c2)).Mul(-1.0)
		} else {
			impulse = vec3(solve22(k, c1).Neg(), 0.0)
		}
	}

	p := vec3XY(impulse)
	cA = cA.Sub(p.Scale(mA))
	aA -= iA * (rA.Cross(p) + impulse[2])
	cB = cB.Add(p.Scale(mB))
	aB += iB * (rB.Cross(p) + impulse[2])

	data.positions[j.a.index] = position{cA, aA}
	data.positions[j.b.index] = position{cB, aB}

	return positionError <= LinearSlop && angularError <= AngularSlop
}
