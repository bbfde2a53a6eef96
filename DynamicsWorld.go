package rigid2d

import (
	"fmt"
	"io"
	"log/slog"
)

type worldFlags uint8

const (
	worldNewFixture worldFlags = 1 << iota
	worldLocked
	worldClearForces
)

// WorldDef configures a new World.
type WorldDef struct {
	Gravity Vec2

	// Tuning holds the solver knobs. The zero value selects DefaultTuning.
	Tuning *Tuning

	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger
}

// World manages all physics entities, dynamic simulation and asynchronous
// queries. It owns its bodies, fixtures, contacts and joints; none of them
// are valid once destroyed.
type World struct {
	flags worldFlags

	contactManager contactManager

	bodies []*Body
	joints []Joint

	gravity    Vec2
	allowSleep bool

	destructionListener DestructionListener

	tuning Tuning
	logger *slog.Logger

	// This is used to compute the time step ratio to support a variable
	// time step.
	invDt0 float64

	// These are for debugging the solver.
	warmStarting      bool
	continuousPhysics bool
	subStepping       bool

	stepComplete bool

	profile  Profile
	toiStats TOIStats

	// Scratch reused across steps.
	island    island
	toiIsland island
	stack     []*Body
}

// NewWorld constructs a world. It panics when def.Tuning does not validate.
func NewWorld(def WorldDef) *World {
	tuning := DefaultTuning()
	if def.Tuning != nil {
		tuning = *def.Tuning
	}
	if err := tuning.Validate(); err != nil {
		panic(err)
	}

	logger := def.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	w := &World{
		flags:             worldClearForces,
		contactManager:    newContactManager(),
		gravity:           def.Gravity,
		allowSleep:        true,
		tuning:            tuning,
		logger:            logger,
		warmStarting:      true,
		continuousPhysics: true,
		stepComplete:      true,
	}

	logger.Debug("world created",
		slog.Float64("gravity_x", def.Gravity.X),
		slog.Float64("gravity_y", def.Gravity.Y),
		slog.String("toi_neighbors", tuning.TOINeighbors.String()),
	)
	return w
}

// assertUnlocked panics with ErrWorldLocked when called during a step.
func (w *World) assertUnlocked(op string) {
	if w.flags&worldLocked == 0 {
		return
	}
	w.logger.Error("structural change during step", slog.String("op", op))
	panic(fmt.Errorf("%w: %s", ErrWorldLocked, op))
}

// SetDestructionListener registers the listener for implicitly destroyed
// joints and fixtures. The listener is owned by the caller.
func (w *World) SetDestructionListener(listener DestructionListener) {
	w.destructionListener = listener
}

// SetContactFilter replaces the default group/category/mask filter. Nil
// accepts every pair.
func (w *World) SetContactFilter(filter ContactFilter) {
	w.contactManager.filter = filter
}

// SetContactListener registers the contact event listener.
func (w *World) SetContactListener(listener ContactListener) {
	w.contactManager.listener = listener
}

// CreateBody creates a rigid body. It panics if called during a step.
func (w *World) CreateBody(def *BodyDef) *Body {
	w.assertUnlocked("World.CreateBody")

	b := newBody(def, w)
	b.index = len(w.bodies)
	w.bodies = append(w.bodies, b)
	return b
}

// DestroyBody destroys a rigid body, its joints, contacts and fixtures.
// The destruction listener hears about the joints and fixtures. It panics
// if called during a step.
func (w *World) DestroyBody(b *Body) {
	w.assertUnlocked("World.DestroyBody")
	assert(b.world == w && b.index >= 0, "body is not alive in this world")

	// Delete the attached joints.
	for n := len(b.jointEdges); n > 0; n = len(b.jointEdges) {
		j := b.jointEdges[n-1].Joint
		if w.destructionListener != nil {
			w.destructionListener.SayGoodbyeJoint(j)
		}
		w.DestroyJoint(j)
	}

	// Delete the attached contacts.
	b.destroyContacts()

	// Delete the attached fixtures. This destroys broad-phase proxies.
	for _, f := range b.fixtures {
		if w.destructionListener != nil {
			w.destructionListener.SayGoodbyeFixture(f)
		}
		f.destroyProxies(w.contactManager.broadPhase)
		f.body = nil
	}
	b.fixtures = nil

	// Remove world body list.
	last := len(w.bodies) - 1
	if b.index != last {
		moved := w.bodies[last]
		w.bodies[b.index] = moved
		moved.index = b.index
	}
	w.bodies[last] = nil
	w.bodies = w.bodies[:last]
	b.index = -1
}

// CreateJoint creates a joint to constrain bodies together. Joints may
// stop the connected bodies from colliding. It panics if called during a
// step.
func (w *World) CreateJoint(def JointDef) Joint {
	w.assertUnlocked("World.CreateJoint")

	j := newJoint(def)
	jb := j.base()

	jb.index = len(w.joints)
	w.joints = append(w.joints, j)

	// Connect to the bodies' joint edges.
	jb.edgeA = jb.bodyA.addJointEdge(jb.bodyB, j)
	jb.edgeB = jb.bodyB.addJointEdge(jb.bodyA, j)

	// If the joint prevents collisions, then flag any contacts for
	// filtering.
	if !jb.collideConnected {
		flagContactsBetween(jb.bodyA, jb.bodyB)
	}

	// Note: creating a joint doesn't wake the bodies.
	return j
}

// DestroyJoint destroys a joint and wakes its bodies. This may cause the
// connected bodies to begin colliding. It panics if called during a step.
func (w *World) DestroyJoint(j Joint) {
	w.assertUnlocked("World.DestroyJoint")

	jb := j.base()
	assert(jb.index >= 0 && jb.index < len(w.joints) && w.joints[jb.index] == j, "joint is not alive in this world")

	// Remove from the world joint list.
	last := len(w.joints) - 1
	if jb.index != last {
		moved := w.joints[last]
		w.joints[jb.index] = moved
		moved.base().index = jb.index
	}
	w.joints[last] = nil
	w.joints = w.joints[:last]
	jb.index = -1

	bodyA := jb.bodyA
	bodyB := jb.bodyB

	// Wake up connected bodies.
	bodyA.SetAwake(true)
	bodyB.SetAwake(true)

	bodyA.removeJointEdge(jb.edgeA)
	bodyB.removeJointEdge(jb.edgeB)

	// If the joint prevents collisions, then flag any contacts for
	// filtering.
	if !jb.collideConnected {
		flagContactsBetween(bodyA, bodyB)
	}
}

func flagContactsBetween(bodyA, bodyB *Body) {
	for _, edge := range bodyB.contactEdges {
		if edge.Other == bodyA {
			edge.Contact.flagForFiltering()
		}
	}
}

// ClearForces zeroes the accumulated forces and torques of every body.
// Step calls it automatically unless SetAutoClearForces(false) was set.
func (w *World) ClearForces() {
	for _, b := range w.bodies {
		b.force = Vec2{}
		b.torque = 0.0
	}
}

// QueryAABB calls callback for every fixture whose broad-phase box
// overlaps aabb.
func (w *World) QueryAABB(callback QueryCallback, aabb AABB) {
	bp := w.contactManager.broadPhase
	bp.Query(func(proxyID int) bool {
		return callback(bp.UserData(proxyID).Fixture)
	}, aabb)
}

// QueryPoint calls callback for every fixture that contains point.
func (w *World) QueryPoint(callback QueryCallback, point Vec2) {
	d := Vec2{Epsilon, Epsilon}
	aabb := AABB{LowerBound: point.Sub(d), UpperBound: point.Add(d)}

	bp := w.contactManager.broadPhase
	bp.Query(func(proxyID int) bool {
		f := bp.UserData(proxyID).Fixture
		if !f.TestPoint(point) {
			return true
		}
		return callback(f)
	}, aabb)
}

// QueryShape calls callback for every fixture child that overlaps child
// childIndex of shape placed at xf. A fixture with several overlapping
// children is reported once per child.
func (w *World) QueryShape(callback QueryCallback, shape Shape, childIndex int, xf Transform) {
	aabb := shape.ComputeAABB(xf, childIndex)

	bp := w.contactManager.broadPhase
	bp.Query(func(proxyID int) bool {
		proxy := bp.UserData(proxyID)
		f := proxy.Fixture
		if !TestOverlap(shape, childIndex, f.shape, proxy.ChildIndex, xf, f.body.xf) {
			return true
		}
		return callback(f)
	}, aabb)
}

// RayCast casts a ray from point1 to point2 and reports every fixture it
// hits, in no particular order. The callback controls the clipping of the
// ray.
func (w *World) RayCast(callback RayCastCallback, point1, point2 Vec2) {
	bp := w.contactManager.broadPhase
	input := RayCastInput{P1: point1, P2: point2, MaxFraction: 1.0}

	bp.RayCast(func(input RayCastInput, proxyID int) float64 {
		proxy := bp.UserData(proxyID)
		fixture := proxy.Fixture

		output, hit := fixture.RayCast(input, proxy.ChildIndex)
		if !hit {
			return input.MaxFraction
		}

		fraction := output.Fraction
		point := input.P1.Scale(1.0 - fraction).Add(input.P2.Scale(fraction))
		return callback(fixture, point, output.Normal, fraction)
	}, input)
}

// RayCastHit is one fixture hit by a ray.
type RayCastHit struct {
	Fixture  *Fixture
	Point    Vec2
	Normal   Vec2
	Fraction float64
}

// RayCastClosest returns the hit nearest to point1, if any.
func (w *World) RayCastClosest(point1, point2 Vec2) (RayCastHit, bool) {
	var closest RayCastHit
	found := false
	w.RayCast(func(fixture *Fixture, point, normal Vec2, fraction float64) float64 {
		closest = RayCastHit{Fixture: fixture, Point: point, Normal: normal, Fraction: fraction}
		found = true
		return fraction
	}, point1, point2)
	return closest, found
}

// RayCastAll returns every hit along the ray, in no particular order.
func (w *World) RayCastAll(point1, point2 Vec2) []RayCastHit {
	var hits []RayCastHit
	w.RayCast(func(fixture *Fixture, point, normal Vec2, fraction float64) float64 {
		hits = append(hits, RayCastHit{Fixture: fixture, Point: point, Normal: normal, Fraction: fraction})
		return 1.0
	}, point1, point2)
	return hits
}

// Bodies returns the live bodies. The slice is owned by the world and is
// reordered when a body is destroyed.
func (w *World) Bodies() []*Body { return w.bodies }

// Joints returns the live joints. The slice is owned by the world.
func (w *World) Joints() []Joint { return w.joints }

// Contacts returns every contact, touching or not. The slice is owned by
// the world and changes during Step.
func (w *World) Contacts() []*Contact { return w.contactManager.contacts }

func (w *World) BodyCount() int    { return len(w.bodies) }
func (w *World) JointCount() int   { return len(w.joints) }
func (w *World) ContactCount() int { return len(w.contactManager.contacts) }

func (w *World) ProxyCount() int { return w.contactManager.broadPhase.ProxyCount() }

// TreeHeight is the height of the broad-phase dynamic tree.
func (w *World) TreeHeight() int { return w.contactManager.broadPhase.TreeHeight() }

// TreeBalance is the largest height difference between sibling subtrees.
func (w *World) TreeBalance() int { return w.contactManager.broadPhase.TreeBalance() }

// TreeQuality is the ratio of the sum of node perimeters to the root
// perimeter.
func (w *World) TreeQuality() float64 { return w.contactManager.broadPhase.TreeQuality() }

func (w *World) Gravity() Vec2 { return w.gravity }

// SetGravity changes the global gravity vector. With wake set every body is
// woken so that sleeping stacks react.
func (w *World) SetGravity(gravity Vec2, wake bool) {
	w.gravity = gravity
	if !wake {
		return
	}
	for _, b := range w.bodies {
		b.SetAwake(true)
	}
}

// SetAllowSleeping enables or disables sleep. Disabling it wakes every
// body.
func (w *World) SetAllowSleeping(flag bool) {
	if flag == w.allowSleep {
		return
	}
	w.allowSleep = flag
	if !w.allowSleep {
		for _, b := range w.bodies {
			b.SetAwake(true)
		}
	}
}

func (w *World) AllowSleeping() bool { return w.allowSleep }

func (w *World) SetWarmStarting(flag bool) { w.warmStarting = flag }
func (w *World) WarmStarting() bool        { return w.warmStarting }

func (w *World) SetContinuousPhysics(flag bool) { w.continuousPhysics = flag }
func (w *World) ContinuousPhysics() bool        { return w.continuousPhysics }

// SetSubStepping makes each Step resolve at most one TOI event.
func (w *World) SetSubStepping(flag bool) { w.subStepping = flag }
func (w *World) SubStepping() bool        { return w.subStepping }

// SetAutoClearForces controls whether Step zeroes forces when it returns.
// Turn it off to apply the same forces over several sub-steps.
func (w *World) SetAutoClearForces(flag bool) {
	if flag {
		w.flags |= worldClearForces
	} else {
		w.flags &^= worldClearForces
	}
}

func (w *World) AutoClearForces() bool { return w.flags&worldClearForces != 0 }

// IsLocked is true while Step runs, including inside callbacks.
func (w *World) IsLocked() bool { return w.flags&worldLocked != 0 }

// Tuning returns the solver knobs the world was created with.
func (w *World) Tuning() Tuning { return w.tuning }

// Profile reports the time spent in the phases of the last Step.
func (w *World) Profile() Profile { return w.profile }

// TOIStats reports the time of impact work accumulated since the world was
// created.
func (w *World) TOIStats() TOIStats { return w.toiStats }

// ShiftOrigin translates the world so that newOrigin becomes the origin.
// Useful for large worlds. It panics if called during a step.
func (w *World) ShiftOrigin(newOrigin Vec2) {
	w.assertUnlocked("World.ShiftOrigin")

	for _, b := range w.bodies {
		b.xf.P = b.xf.P.Sub(newOrigin)
		b.sweep.C0 = b.sweep.C0.Sub(newOrigin)
		b.sweep.C = b.sweep.C.Sub(newOrigin)
	}

	for _, j := range w.joints {
		j.ShiftOrigin(newOrigin)
	}

	w.contactManager.broadPhase.ShiftOrigin(newOrigin)
}
