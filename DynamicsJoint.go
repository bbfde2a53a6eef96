package rigid2d

import (
	"fmt"
	"math"
)

type JointType uint8

const (
	UnknownJoint JointType = iota
	RevoluteJointType
	PrismaticJointType
	DistanceJointType
	PulleyJointType
	MouseJointType
	GearJointType
	WheelJointType
	WeldJointType
	FrictionJointType
	RopeJointType
	MotorJointType
)

func (t JointType) String() string {
	switch t {
	case RevoluteJointType:
		return "revolute"
	case PrismaticJointType:
		return "prismatic"
	case DistanceJointType:
		return "distance"
	case PulleyJointType:
		return "pulley"
	case MouseJointType:
		return "mouse"
	case GearJointType:
		return "gear"
	case WheelJointType:
		return "wheel"
	case WeldJointType:
		return "weld"
	case FrictionJointType:
		return "friction"
	case RopeJointType:
		return "rope"
	case MotorJointType:
		return "motor"
	}
	return fmt.Sprintf("JointType(%d)", uint8(t))
}

type limitState uint8

const (
	inactiveLimit limitState = iota
	atLowerLimit
	atUpperLimit
	equalLimits
)

// JointDefBase holds the fields shared by every joint definition.
type JointDefBase struct {
	BodyA *Body
	BodyB *Body

	// CollideConnected lets the two bodies collide with each other.
	CollideConnected bool

	UserData any
}

// JointDef is implemented by the definition of every joint type.
type JointDef interface {
	defBase() *JointDefBase
}

func (d *JointDefBase) defBase() *JointDefBase { return d }

// Joint constrains two bodies together. The solver drives every joint
// through the same per-step lifecycle: initVelocityConstraints once, then
// solveVelocityConstraints once per velocity iteration, then
// solvePositionConstraints until the island reports convergence.
type Joint interface {
	Type() JointType
	BodyA() *Body
	BodyB() *Body

	// AnchorA and AnchorB are in world coordinates.
	AnchorA() Vec2
	AnchorB() Vec2

	// ReactionForce on body B at the joint anchor, in Newtons.
	ReactionForce(invDt float64) Vec2

	// ReactionTorque on body B, in N*m.
	ReactionTorque(invDt float64) float64

	CollideConnected() bool

	// IsEnabled is false when either body is disabled.
	IsEnabled() bool

	UserData() any
	SetUserData(data any)

	// ShiftOrigin is called by World.ShiftOrigin for joints that keep world
	// coordinates.
	ShiftOrigin(newOrigin Vec2)

	base() *jointBase
	initVelocityConstraints(data *solverData)
	solveVelocityConstraints(data *solverData)

	// solvePositionConstraints reports whether the position error is within
	// tolerance.
	solvePositionConstraints(data *solverData) bool
}

// jointBase carries the graph bookkeeping every joint needs.
type jointBase struct {
	jointType JointType

	bodyA *Body
	bodyB *Body

	edgeA, edgeB int // positions in bodyA.jointEdges and bodyB.jointEdges
	index        int // position in world.joints

	islandFlag       bool
	collideConnected bool

	userData any
}

func newJointBase(t JointType, def *JointDefBase) jointBase {
	assert(def.BodyA != nil && def.BodyB != nil, "joint def needs two bodies")
	assert(def.BodyA != def.BodyB, "joint cannot connect a body to itself")
	return jointBase{
		jointType:        t,
		bodyA:            def.BodyA,
		bodyB:            def.BodyB,
		collideConnected: def.CollideConnected,
		userData:         def.UserData,
	}
}

func (j *jointBase) Type() JointType        { return j.jointType }
func (j *jointBase) BodyA() *Body           { return j.bodyA }
func (j *jointBase) BodyB() *Body           { return j.bodyB }
func (j *jointBase) CollideConnected() bool { return j.collideConnected }
func (j *jointBase) UserData() any          { return j.userData }
func (j *jointBase) SetUserData(data any)   { j.userData = data }
func (j *jointBase) ShiftOrigin(Vec2)       {}
func (j *jointBase) base() *jointBase       { return j }

func (j *jointBase) wake() {
	j.bodyA.SetAwake(true)
	j.bodyB.SetAwake(true)
}

func (j *jointBase) IsEnabled() bool {
	return j.bodyA.IsEnabled() && j.bodyB.IsEnabled()
}

// newJoint builds the joint described by def.
func newJoint(def JointDef) Joint {
	switch d := def.(type) {
	case *RevoluteJointDef:
		return newRevoluteJoint(d)
	case *PrismaticJointDef:
		return newPrismaticJoint(d)
	case *DistanceJointDef:
		return newDistanceJoint(d)
	case *PulleyJointDef:
		return newPulleyJoint(d)
	case *MouseJointDef:
		return newMouseJoint(d)
	case *GearJointDef:
		return newGearJoint(d)
	case *WheelJointDef:
		return newWheelJoint(d)
	case *WeldJointDef:
		return newWeldJoint(d)
	case *FrictionJointDef:
		return newFrictionJoint(d)
	case *RopeJointDef:
		return newRopeJoint(d)
	case *MotorJointDef:
		return newMotorJoint(d)
	}
	panic(fmt.Sprintf("rigid2d: unsupported joint def %T", def))
}

// solverBody is the island view of one joint body, captured in
// initVelocityConstraints.
type solverBody struct {
	index       int
	localCenter Vec2
	invMass     float64
	invI        float64
}

func newSolverBody(b *Body) solverBody {
	return solverBody{
		index:       b.islandIndex,
		localCenter: b.sweep.LocalCenter,
		invMass:     b.invMass,
		invI:        b.invI,
	}
}

// LinearStiffness converts a frequency in Hertz and a damping ratio into a
// spring stiffness and damping for a linear joint between two bodies.
func LinearStiffness(frequencyHz, dampingRatio float64, bodyA, bodyB *Body) (stiffness, damping float64) {
	massA := bodyA.Mass()
	massB := bodyB.Mass()
	var mass float64
	switch {
	case massA > 0.0 && massB > 0.0:
		mass = massA * massB / (massA + massB)
	case massA > 0.0:
		mass = massA
	default:
		mass = massB
	}

	omega := 2.0 * math.Pi * frequencyHz
	stiffness = mass * omega * omega
	damping = 2.0 * mass * dampingRatio * omega
	return stiffness, damping
}

// AngularStiffness is LinearStiffness for angular joints.
func AngularStiffness(frequencyHz, dampingRatio float64, bodyA, bodyB *Body) (stiffness, damping float64) {
	inertiaA := bodyA.Inertia()
	inertiaB := bodyB.Inertia()
	var inertia float64
	switch {
	case inertiaA > 0.0 && inertiaB > 0.0:
		inertia = inertiaA * inertiaB / (inertiaA + inertiaB)
	case inertiaA > 0.0:
		inertia = inertiaA
	default:
		inertia = inertiaB
	}

	omega := 2.0 * math.Pi * frequencyHz
	stiffness = inertia * omega * omega
	damping = 2.0 * inertia * dampingRatio * omega
	return stiffness, damping
}

// softness converts a frequency and damping ratio into the gamma and bias
// factor of a soft constraint with effective mass m and position error c.
// A zero frequency yields a rigid constraint.
func softness(frequencyHz, dampingRatio, m, c, dt float64) (gamma, bias float64) {
	if frequencyHz <= 0.0 {
		return 0.0, 0.0
	}
	omega := 2.0 * math.Pi * frequencyHz
	d := 2.0 * m * dampingRatio * omega
	k := m * omega * omega

	gamma = dt * (d + dt*k)
	if gamma != 0.0 {
		gamma = 1.0 / gamma
	}
	bias = c * dt * k * gamma
	return gamma, bias
}
