package rigid2d

import "fmt"

// BodyType selects how a body moves.
// Static: zero mass, zero velocity, may be manually moved.
// Kinematic: zero mass, velocity set by the user, moved by the solver.
// Dynamic: positive mass, velocity determined by forces, moved by the solver.
type BodyType uint8

const (
	StaticBody BodyType = iota
	KinematicBody
	DynamicBody
)

func (t BodyType) String() string {
	switch t {
	case StaticBody:
		return "static"
	case KinematicBody:
		return "kinematic"
	case DynamicBody:
		return "dynamic"
	}
	return fmt.Sprintf("BodyType(%d)", uint8(t))
}

// BodyDef holds the data needed to construct a rigid body. It can be reused.
// Start from DefaultBodyDef: the zero value describes a disabled, sleeping
// body without gravity.
type BodyDef struct {
	// Note: if a dynamic body would have zero mass, the mass is set to one.
	Type BodyType

	// The world position of the body origin. Avoid creating bodies at the
	// origin since this can lead to many overlapping shapes.
	Position Vec2
	Angle    float64

	// The linear velocity of the body origin in world coordinates.
	LinearVelocity  Vec2
	AngularVelocity float64

	// Damping reduces velocity. Units are 1/time. Values larger than 1 make
	// the effect sensitive to the time step.
	LinearDamping  float64
	AngularDamping float64

	// AllowSleep set to false keeps the body awake forever.
	AllowSleep bool
	Awake      bool

	// FixedRotation prevents the body from rotating. Useful for characters.
	FixedRotation bool

	// Bullet marks a fast dynamic body that must not tunnel through other
	// dynamic bodies. All bodies are prevented from tunneling through static
	// and kinematic bodies. Use sparingly: it costs time of impact work.
	Bullet bool

	Enabled bool

	GravityScale float64

	UserData any
}

// DefaultBodyDef returns an awake, enabled static body at the origin.
func DefaultBodyDef() BodyDef {
	return BodyDef{
		Type:         StaticBody,
		AllowSleep:   true,
		Awake:        true,
		Enabled:      true,
		GravityScale: 1.0,
	}
}

type bodyFlags uint16

const (
	bodyIsland bodyFlags = 1 << iota
	bodyAwake
	bodyAutoSleep
	bodyBullet
	bodyFixedRotation
	bodyEnabled
	bodyTOI
)

// ContactEdge connects a body to a contact. Each contact has one edge on
// each of its two bodies.
type ContactEdge struct {
	Other   *Body
	Contact *Contact
}

// JointEdge connects a body to a joint. Each joint has one edge on each of
// its two bodies.
type JointEdge struct {
	Other *Body
	Joint Joint
}

// Body is a rigid body created by World.CreateBody.
type Body struct {
	bodyType BodyType
	flags    bodyFlags

	islandIndex int

	xf    Transform // body origin transform
	sweep Sweep     // swept motion for continuous collision

	linearVelocity  Vec2
	angularVelocity float64

	force  Vec2
	torque float64

	world *World
	index int // position in world.bodies, -1 once destroyed

	fixtures     []*Fixture
	jointEdges   []JointEdge
	contactEdges []ContactEdge

	mass, invMass float64

	// Rotational inertia about the center of mass.
	inertia, invI float64

	linearDamping  float64
	angularDamping float64
	gravityScale   float64

	sleepTime float64

	userData any
}

func newBody(def *BodyDef, world *World) *Body {
	assert(def.Position.IsValid(), "body position is not finite")
	assert(def.LinearVelocity.IsValid(), "body linear velocity is not finite")
	assert(IsValid(def.Angle), "body angle is not finite")
	assert(IsValid(def.AngularVelocity), "body angular velocity is not finite")
	assert(IsValid(def.AngularDamping) && def.AngularDamping >= 0.0, "body angular damping must be non-negative")
	assert(IsValid(def.LinearDamping) && def.LinearDamping >= 0.0, "body linear damping must be non-negative")

	b := &Body{
		bodyType:        def.Type,
		world:           world,
		xf:              NewTransform(def.Position, def.Angle),
		linearVelocity:  def.LinearVelocity,
		angularVelocity: def.AngularVelocity,
		linearDamping:   def.LinearDamping,
		angularDamping:  def.AngularDamping,
		gravityScale:    def.GravityScale,
		userData:        def.UserData,
	}

	if def.Bullet {
		b.flags |= bodyBullet
	}
	if def.FixedRotation {
		b.flags |= bodyFixedRotation
	}
	if def.AllowSleep {
		b.flags |= bodyAutoSleep
	}
	if def.Awake && def.Type != StaticBody {
		b.flags |= bodyAwake
	}
	if def.Enabled {
		b.flags |= bodyEnabled
	}

	b.sweep.C0 = b.xf.P
	b.sweep.C = b.xf.P
	b.sweep.A0 = def.Angle
	b.sweep.A = def.Angle

	if b.bodyType == DynamicBody {
		b.mass = 1.0
		b.invMass = 1.0
	}
	return b
}

func (b *Body) Type() BodyType { return b.bodyType }

// Transform returns the transform of the body origin.
func (b *Body) Transform() Transform { return b.xf }

// Position returns the world position of the body origin.
func (b *Body) Position() Vec2 { return b.xf.P }

func (b *Body) Angle() float64 { return b.sweep.A }

// WorldCenter returns the world position of the center of mass.
func (b *Body) WorldCenter() Vec2 { return b.sweep.C }

// LocalCenter returns the center of mass in body coordinates.
func (b *Body) LocalCenter() Vec2 { return b.sweep.LocalCenter }

// Sweep returns a copy of the swept motion of the current step.
func (b *Body) Sweep() Sweep { return b.sweep }

// SetLinearVelocity sets the velocity of the center of mass. Static bodies
// ignore it.
func (b *Body) SetLinearVelocity(v Vec2) {
	if b.bodyType == StaticBody {
		return
	}
	if v.Dot(v) > 0.0 {
		b.SetAwake(true)
	}
	b.linearVelocity = v
}

func (b *Body) LinearVelocity() Vec2 { return b.linearVelocity }

// SetAngularVelocity sets the angular velocity in radians/second.
func (b *Body) SetAngularVelocity(w float64) {
	if b.bodyType == StaticBody {
		return
	}
	if w*w > 0.0 {
		b.SetAwake(true)
	}
	b.angularVelocity = w
}

func (b *Body) AngularVelocity() float64 { return b.angularVelocity }

func (b *Body) Mass() float64 { return b.mass }

// Inertia returns the rotational inertia about the body origin.
func (b *Body) Inertia() float64 {
	return b.inertia + b.mass*b.sweep.LocalCenter.Dot(b.sweep.LocalCenter)
}

// MassData returns the mass, local center and inertia about the body origin.
func (b *Body) MassData() MassData {
	return MassData{
		Mass:   b.mass,
		Center: b.sweep.LocalCenter,
		I:      b.Inertia(),
	}
}

func (b *Body) WorldPoint(localPoint Vec2) Vec2 { return b.xf.Apply(localPoint) }

func (b *Body) WorldVector(localVector Vec2) Vec2 { return b.xf.Q.Apply(localVector) }

func (b *Body) LocalPoint(worldPoint Vec2) Vec2 { return b.xf.ApplyT(worldPoint) }

func (b *Body) LocalVector(worldVector Vec2) Vec2 { return b.xf.Q.ApplyT(worldVector) }

// LinearVelocityFromWorldPoint returns the velocity of a world point
// attached to this body.
func (b *Body) LinearVelocityFromWorldPoint(worldPoint Vec2) Vec2 {
	return b.linearVelocity.Add(CrossSV(b.angularVelocity, worldPoint.Sub(b.sweep.C)))
}

func (b *Body) LinearVelocityFromLocalPoint(localPoint Vec2) Vec2 {
	return b.LinearVelocityFromWorldPoint(b.WorldPoint(localPoint))
}

func (b *Body) LinearDamping() float64            { return b.linearDamping }
func (b *Body) SetLinearDamping(damping float64)  { b.linearDamping = damping }
func (b *Body) AngularDamping() float64           { return b.angularDamping }
func (b *Body) SetAngularDamping(damping float64) { b.angularDamping = damping }
func (b *Body) GravityScale() float64             { return b.gravityScale }
func (b *Body) SetGravityScale(scale float64)     { b.gravityScale = scale }

func (b *Body) SetBullet(flag bool) {
	if flag {
		b.flags |= bodyBullet
	} else {
		b.flags &^= bodyBullet
	}
}

func (b *Body) IsBullet() bool { return b.flags&bodyBullet != 0 }

// SetAwake wakes the body or puts it to sleep. Sleeping zeroes velocities
// and accumulated forces. Either way the sleep timer restarts.
func (b *Body) SetAwake(flag bool) {
	if b.bodyType == StaticBody {
		return
	}
	if flag {
		b.flags |= bodyAwake
		b.sleepTime = 0.0
		return
	}
	b.flags &^= bodyAwake
	b.sleepTime = 0.0
	b.linearVelocity = Vec2{}
	b.angularVelocity = 0.0
	b.force = Vec2{}
	b.torque = 0.0
}

func (b *Body) IsAwake() bool { return b.flags&bodyAwake != 0 }

func (b *Body) IsEnabled() bool { return b.flags&bodyEnabled != 0 }

func (b *Body) IsFixedRotation() bool { return b.flags&bodyFixedRotation != 0 }

// SetSleepingAllowed set to false wakes the body and keeps it awake.
func (b *Body) SetSleepingAllowed(flag bool) {
	if flag {
		b.flags |= bodyAutoSleep
		return
	}
	b.flags &^= bodyAutoSleep
	b.SetAwake(true)
}

func (b *Body) IsSleepingAllowed() bool { return b.flags&bodyAutoSleep != 0 }

// Fixtures returns the fixtures attached to the body. The slice is owned by
// the body and must not be modified.
func (b *Body) Fixtures() []*Fixture { return b.fixtures }

// JointEdges returns the joints attached to the body. The slice is owned by
// the body and must not be modified.
func (b *Body) JointEdges() []JointEdge { return b.jointEdges }

// ContactEdges returns the contacts of the body, touching or not. The slice
// is owned by the body and must not be modified.
func (b *Body) ContactEdges() []ContactEdge { return b.contactEdges }

func (b *Body) World() *World { return b.world }

func (b *Body) UserData() any        { return b.userData }
func (b *Body) SetUserData(data any) { b.userData = data }

// ApplyForce applies a force at a world point. A force off the center of
// mass also generates a torque. A sleeping body only accumulates the force
// when wake is set.
func (b *Body) ApplyForce(force, point Vec2, wake bool) {
	if !b.prepareForLoad(wake) {
		return
	}
	b.force = b.force.Add(force)
	b.torque += point.Sub(b.sweep.C).Cross(force)
}

func (b *Body) ApplyForceToCenter(force Vec2, wake bool) {
	if !b.prepareForLoad(wake) {
		return
	}
	b.force = b.force.Add(force)
}

func (b *Body) ApplyTorque(torque float64, wake bool) {
	if !b.prepareForLoad(wake) {
		return
	}
	b.torque += torque
}

// ApplyLinearImpulse changes the velocity immediately. Units are N*s.
func (b *Body) ApplyLinearImpulse(impulse, point Vec2, wake bool) {
	if !b.prepareForLoad(wake) {
		return
	}
	b.linearVelocity = b.linearVelocity.Add(impulse.Scale(b.invMass))
	b.angularVelocity += b.invI * point.Sub(b.sweep.C).Cross(impulse)
}

func (b *Body) ApplyLinearImpulseToCenter(impulse Vec2, wake bool) {
	if !b.prepareForLoad(wake) {
		return
	}
	b.linearVelocity = b.linearVelocity.Add(impulse.Scale(b.invMass))
}

// ApplyAngularImpulse changes the angular velocity immediately. Units are
// kg*m*m/s.
func (b *Body) ApplyAngularImpulse(impulse float64, wake bool) {
	if !b.prepareForLoad(wake) {
		return
	}
	b.angularVelocity += b.invI * impulse
}

// prepareForLoad reports whether a force or impulse should be accumulated.
func (b *Body) prepareForLoad(wake bool) bool {
	if b.bodyType != DynamicBody {
		return false
	}
	if wake && b.flags&bodyAwake == 0 {
		b.SetAwake(true)
	}
	return b.flags&bodyAwake != 0
}

func (b *Body) synchronizeTransform() {
	b.xf.Q = NewRot(b.sweep.A)
	b.xf.P = b.sweep.C.Sub(b.xf.Q.Apply(b.sweep.LocalCenter))
}

// advance moves the body to a safe time. The broad-phase is not updated.
func (b *Body) advance(alpha float64) {
	b.sweep.Advance(alpha)
	b.sweep.C = b.sweep.C0
	b.sweep.A = b.sweep.A0
	b.synchronizeTransform()
}

// SetType changes the body type. Attached contacts are destroyed and the
// proxies touched so that contacts are rebuilt on the next step.
func (b *Body) SetType(t BodyType) {
	b.world.assertUnlocked("Body.SetType")
	if b.bodyType == t {
		return
	}

	b.bodyType = t
	b.ResetMassData()

	if b.bodyType == StaticBody {
		b.linearVelocity = Vec2{}
		b.angularVelocity = 0.0
		b.sweep.A0 = b.sweep.A
		b.sweep.C0 = b.sweep.C
		b.flags &^= bodyAwake
		b.synchronizeFixtures()
	} else {
		b.SetAwake(true)
	}

	b.force = Vec2{}
	b.torque = 0.0

	b.destroyContacts()

	bp := b.world.contactManager.broadPhase
	for _, f := range b.fixtures {
		for i := range f.proxies {
			bp.TouchProxy(f.proxies[i].ProxyID)
		}
	}
}

func (b *Body) destroyContacts() {
	for n := len(b.contactEdges); n > 0; n = len(b.contactEdges) {
		b.world.contactManager.destroy(b.contactEdges[n-1].Contact)
	}
}

// CreateFixtureFromDef attaches a shape to the body. The shape is cloned.
// The mass is recomputed when the fixture has a positive density.
func (b *Body) CreateFixtureFromDef(def *FixtureDef) *Fixture {
	b.world.assertUnlocked("Body.CreateFixture")

	f := newFixture(b, def)
	if b.flags&bodyEnabled != 0 {
		f.createProxies(b.world.contactManager.broadPhase, b.xf)
	}
	b.fixtures = append(b.fixtures, f)

	if f.density > 0.0 {
		b.ResetMassData()
	}

	// New contacts are created at the beginning of the next step.
	b.world.flags |= worldNewFixture
	return f
}

// CreateFixture is a shortcut for a fixture with default friction and
// filtering.
func (b *Body) CreateFixture(shape Shape, density float64) *Fixture {
	def := DefaultFixtureDef()
	def.Shape = shape
	def.Density = density
	return b.CreateFixtureFromDef(&def)
}

// DestroyFixture removes a fixture and its contacts and recomputes the mass.
// Destroying the last fixture leaves a dynamic body with unit mass.
func (b *Body) DestroyFixture(f *Fixture) {
	if f == nil {
		return
	}
	b.world.assertUnlocked("Body.DestroyFixture")
	assert(f.body == b, "fixture is not attached to this body")

	i := b.fixtureIndex(f)
	assert(i >= 0, "fixture is not attached to this body")

	// Walking backwards keeps the swap-removal of edges from skipping any.
	for j := len(b.contactEdges) - 1; j >= 0; j-- {
		c := b.contactEdges[j].Contact
		if c.fixtureA == f || c.fixtureB == f {
			b.world.contactManager.destroy(c)
		}
	}

	if b.flags&bodyEnabled != 0 {
		f.destroyProxies(b.world.contactManager.broadPhase)
	}

	copy(b.fixtures[i:], b.fixtures[i+1:])
	b.fixtures[len(b.fixtures)-1] = nil
	b.fixtures = b.fixtures[:len(b.fixtures)-1]
	f.body = nil

	b.ResetMassData()
}

func (b *Body) fixtureIndex(f *Fixture) int {
	for i, g := range b.fixtures {
		if g == f {
			return i
		}
	}
	return -1
}

// ResetMassData recomputes mass, center and inertia from the fixtures.
// Static and kinematic bodies get zero mass.
func (b *Body) ResetMassData() {
	b.mass = 0.0
	b.invMass = 0.0
	b.inertia = 0.0
	b.invI = 0.0
	b.sweep.LocalCenter = Vec2{}

	if b.bodyType != DynamicBody {
		b.sweep.C0 = b.xf.P
		b.sweep.C = b.xf.P
		b.sweep.A0 = b.sweep.A
		return
	}

	var localCenter Vec2
	for _, f := range b.fixtures {
		if f.density == 0.0 {
			continue
		}
		md := f.MassData()
		b.mass += md.Mass
		localCenter = localCenter.Add(md.Center.Scale(md.Mass))
		b.inertia += md.I
	}

	if b.mass > 0.0 {
		b.invMass = 1.0 / b.mass
		localCenter = localCenter.Scale(b.invMass)
	} else {
		// Dynamic bodies always have positive mass.
		b.mass = 1.0
		b.invMass = 1.0
	}

	if b.inertia > 0.0 && b.flags&bodyFixedRotation == 0 {
		// Center the inertia about the center of mass.
		b.inertia -= b.mass * localCenter.Dot(localCenter)
		assert(b.inertia > 0.0, "body inertia must be positive")
		b.invI = 1.0 / b.inertia
	} else {
		b.inertia = 0.0
		b.invI = 0.0
	}

	b.moveCenter(localCenter)
}

// moveCenter relocates the center of mass and keeps the velocity of the
// body origin unchanged.
func (b *Body) moveCenter(localCenter Vec2) {
	oldCenter := b.sweep.C
	b.sweep.LocalCenter = localCenter
	b.sweep.C = b.xf.Apply(localCenter)
	b.sweep.C0 = b.sweep.C

	b.linearVelocity = b.linearVelocity.Add(CrossSV(b.angularVelocity, b.sweep.C.Sub(oldCenter)))
}

// SetMassData overrides the mass computed from the fixtures. Only dynamic
// bodies are affected. data.I is about the body origin.
func (b *Body) SetMassData(data MassData) {
	b.world.assertUnlocked("Body.SetMassData")
	if b.bodyType != DynamicBody {
		return
	}

	b.invMass = 0.0
	b.inertia = 0.0
	b.invI = 0.0

	b.mass = data.Mass
	if b.mass <= 0.0 {
		b.mass = 1.0
	}
	b.invMass = 1.0 / b.mass

	if data.I > 0.0 && b.flags&bodyFixedRotation == 0 {
		b.inertia = data.I - b.mass*data.Center.Dot(data.Center)
		assert(b.inertia > 0.0, "mass data inertia must exceed the parallel axis term")
		b.invI = 1.0 / b.inertia
	}

	b.moveCenter(data.Center)
}

// shouldCollide is false when neither body is dynamic or when a joint
// between them disables collision.
func (b *Body) shouldCollide(other *Body) bool {
	if b.bodyType != DynamicBody && other.bodyType != DynamicBody {
		return false
	}
	for _, je := range b.jointEdges {
		if je.Other == other && !je.Joint.CollideConnected() {
			return false
		}
	}
	return true
}

// SetTransform teleports the body origin. Contacts are updated on the next
// step.
func (b *Body) SetTransform(position Vec2, angle float64) {
	b.world.assertUnlocked("Body.SetTransform")

	b.xf = NewTransform(position, angle)
	b.sweep.C = b.xf.Apply(b.sweep.LocalCenter)
	b.sweep.A = angle
	b.sweep.C0 = b.sweep.C
	b.sweep.A0 = angle

	bp := b.world.contactManager.broadPhase
	for _, f := range b.fixtures {
		f.synchronize(bp, b.xf, b.xf)
	}
}

// synchronizeFixtures moves the proxies to cover the sweep from its start to
// the current transform.
func (b *Body) synchronizeFixtures() {
	xf1 := b.sweep.Transform(0.0)
	bp := b.world.contactManager.broadPhase
	for _, f := range b.fixtures {
		f.synchronize(bp, xf1, b.xf)
	}
}

// SetEnabled adds or removes the body from the simulation. A disabled body
// keeps its fixtures and joints but has no proxies and no contacts.
func (b *Body) SetEnabled(flag bool) {
	b.world.assertUnlocked("Body.SetEnabled")
	if flag == b.IsEnabled() {
		return
	}

	bp := b.world.contactManager.broadPhase
	if flag {
		b.flags |= bodyEnabled
		for _, f := range b.fixtures {
			f.createProxies(bp, b.xf)
		}
		// Contacts are created on the next step.
		b.world.flags |= worldNewFixture
		return
	}

	b.flags &^= bodyEnabled
	for _, f := range b.fixtures {
		f.destroyProxies(bp)
	}
	b.destroyContacts()
}

// SetFixedRotation locks or unlocks rotation. The angular velocity is reset.
func (b *Body) SetFixedRotation(flag bool) {
	if flag == b.IsFixedRotation() {
		return
	}
	if flag {
		b.flags |= bodyFixedRotation
	} else {
		b.flags &^= bodyFixedRotation
	}
	b.angularVelocity = 0.0
	b.ResetMassData()
}

// addContactEdge links c into the body's contact edges and returns the slot.
func (b *Body) addContactEdge(other *Body, c *Contact) int {
	b.contactEdges = append(b.contactEdges, ContactEdge{Other: other, Contact: c})
	return len(b.contactEdges) - 1
}

// removeContactEdge swap-removes slot i and repairs the handle of the edge
// that moved into it.
func (b *Body) removeContactEdge(i int) {
	last := len(b.contactEdges) - 1
	if i != last {
		moved := b.contactEdges[last]
		b.contactEdges[i] = moved
		if moved.Contact.fixtureA.body == b {
			moved.Contact.edgeA = i
		} else {
			moved.Contact.edgeB = i
		}
	}
	b.contactEdges[last] = ContactEdge{}
	b.contactEdges = b.contactEdges[:last]
}

func (b *Body) addJointEdge(other *Body, j Joint) int {
	b.jointEdges = append(b.jointEdges, JointEdge{Other: other, Joint: j})
	return len(b.jointEdges) - 1
}

func (b *Body) removeJointEdge(i int) {
	last := len(b.jointEdges) - 1
	if i != last {
		moved := b.jointEdges[last]
		b.jointEdges[i] = moved
		base := moved.Joint.base()
		if base.bodyA == b {
			base.edgeA = i
		} else {
			base.edgeB = i
		}
	}
	b.jointEdges[last] = JointEdge{}
	b.jointEdges = b.jointEdges[:last]
}
