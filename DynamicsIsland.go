package rigid2d

import (
	"math"
	"time"
)

/*
Position Correction Notes
=========================
Joints and contacts use full nonlinear Gauss-Seidel (NGS) position
correction: after the velocity solve and position integration, each
constraint recomputes its position error, Jacobian and effective mass and
moves the bodies directly. The position iterations stop early once every
constraint reports an error below LinearSlop / AngularSlop.

Baumgarte stabilization (feeding a fraction of the position error into the
velocity solve) is cheaper but adds momentum and false bounce, so it is
only used for the contact restitution bias.

Cache Performance
=================
The solvers never touch bodies while iterating. Positions and velocities
are copied into compact island arrays indexed by body.islandIndex; the
constraints hold the read-only mass data they need.
*/

// island is the scratch workspace the world fills with one connected
// component of the constraint graph at a time. It never owns what it
// holds; clear drops the references and keeps the storage.
type island struct {
	listener ContactListener
	tuning   *Tuning

	bodies   []*Body
	contacts []*Contact
	joints   []Joint

	positions  []position
	velocities []velocity

	contactSolver contactSolver
	impulse       ContactImpulse
}

// init sizes the island for the given worst case counts.
func (is *island) init(bodyCapacity, contactCapacity, jointCapacity int, listener ContactListener, tuning *Tuning) {
	if cap(is.bodies) < bodyCapacity {
		is.bodies = make([]*Body, 0, bodyCapacity)
		is.positions = make([]position, bodyCapacity)
		is.velocities = make([]velocity, bodyCapacity)
	}
	if cap(is.contacts) < contactCapacity {
		is.contacts = make([]*Contact, 0, contactCapacity)
	}
	if cap(is.joints) < jointCapacity {
		is.joints = make([]Joint, 0, jointCapacity)
	}
	is.listener = listener
	is.tuning = tuning
	is.clear()
}

func (is *island) clear() {
	clear(is.bodies)
	clear(is.contacts)
	clear(is.joints)
	is.bodies = is.bodies[:0]
	is.contacts = is.contacts[:0]
	is.joints = is.joints[:0]
}

func (is *island) addBody(b *Body) {
	assert(len(is.bodies) < cap(is.bodies), "island body capacity exceeded")
	b.islandIndex = len(is.bodies)
	is.bodies = append(is.bodies, b)
}

func (is *island) addContact(c *Contact) {
	assert(len(is.contacts) < cap(is.contacts), "island contact capacity exceeded")
	is.contacts = append(is.contacts, c)
}

func (is *island) addJoint(j Joint) {
	assert(len(is.joints) < cap(is.joints), "island joint capacity exceeded")
	is.joints = append(is.joints, j)
}

// integratePositions advances the island positions by h, limiting the
// translation of each body to MaxTranslation per step.
func (is *island) integratePositions(h float64) {
	maxTranslation := is.tuning.MaxTranslation
	for i := range is.bodies {
		c := is.positions[i].c
		a := is.positions[i].a
		v := is.velocities[i].v
		w := is.velocities[i].w

		// Check for large velocities
		translation := v.Scale(h)
		if translation.LengthSquared() > maxTranslation*maxTranslation {
			v = v.Scale(maxTranslation / translation.Length())
		}

		// Integrate
		c = c.Add(v.Scale(h))
		a += h * w

		is.positions[i] = position{c, a}
		is.velocities[i] = velocity{v, w}
	}
}

// solve runs the sequential impulse solver over the island and decides
// whether it goes to sleep. It reports whether the island fell asleep.
func (is *island) solve(profile *Profile, step timeStep, gravity Vec2, allowSleep bool) bool {
	h := step.dt

	// Integrate velocities and apply damping. Initialize the body state.
	for i, b := range is.bodies {
		c := b.sweep.C
		a := b.sweep.A
		v := b.linearVelocity
		w := b.angularVelocity

		// Store positions for continuous collision.
		b.sweep.C0 = b.sweep.C
		b.sweep.A0 = b.sweep.A

		if b.bodyType == DynamicBody {
			// Integrate velocities.
			v = v.Add(gravity.Scale(b.gravityScale).Add(b.force.Scale(b.invMass)).Scale(h))
			w += h * b.invI * b.torque

			// Apply damping.
			// ODE: dv/dt + c * v = 0
			// Pade approximation:
			// v2 = v1 * 1 / (1 + c * dt)
			v = v.Scale(1.0 / (1.0 + h*b.linearDamping))
			w *= 1.0 / (1.0 + h*b.angularDamping)
		}

		is.positions[i] = position{c, a}
		is.velocities[i] = velocity{v, w}
	}

	start := time.Now()

	data := solverData{
		step:       step,
		positions:  is.positions[:len(is.bodies)],
		velocities: is.velocities[:len(is.bodies)],
		tuning:     is.tuning,
	}

	cs := &is.contactSolver
	cs.init(step, is.tuning, is.contacts, data.positions, data.velocities)
	cs.initializeVelocityConstraints()

	if step.warmStarting {
		cs.warmStart()
	}

	for _, j := range is.joints {
		j.initVelocityConstraints(&data)
	}

	profile.SolveInit += time.Since(start)

	// Solve velocity constraints
	start = time.Now()
	for i := 0; i < step.velocityIterations; i++ {
		for _, j := range is.joints {
			j.solveVelocityConstraints(&data)
		}
		cs.solveVelocityConstraints()
	}

	// Store impulses for warm starting
	cs.storeImpulses()
	profile.SolveVelocity += time.Since(start)

	is.integratePositions(h)

	// Solve position constraints
	start = time.Now()
	positionSolved := false
	for i := 0; i < step.positionIterations; i++ {
		jointsOkay := true
		for _, j := range is.joints {
			jointOkay := j.solvePositionConstraints(&data)
			jointsOkay = jointsOkay && jointOkay
		}

		contactsOkay := cs.solvePositionConstraints()

		if contactsOkay && jointsOkay {
			// Exit early if the position errors are small.
			positionSolved = true
			break
		}
	}

	// Copy state buffers back to the bodies
	for i, b := range is.bodies {
		b.sweep.C = is.positions[i].c
		b.sweep.A = is.positions[i].a
		b.linearVelocity = is.velocities[i].v
		b.angularVelocity = is.velocities[i].w
		b.synchronizeTransform()
	}

	profile.SolvePosition += time.Since(start)

	is.report()

	if !allowSleep {
		return false
	}

	minSleepTime := MaxFloat

	linTolSqr := is.tuning.LinearSleepTolerance * is.tuning.LinearSleepTolerance
	angTolSqr := is.tuning.AngularSleepTolerance * is.tuning.AngularSleepTolerance

	for _, b := range is.bodies {
		if b.bodyType == StaticBody {
			continue
		}

		if b.flags&bodyAutoSleep == 0 ||
			b.angularVelocity*b.angularVelocity > angTolSqr ||
			b.linearVelocity.LengthSquared() > linTolSqr {
			b.sleepTime = 0.0
			minSleepTime = 0.0
		} else {
			b.sleepTime += h
			minSleepTime = math.Min(minSleepTime, b.sleepTime)
		}
	}

	if minSleepTime >= is.tuning.TimeToSleep && positionSolved {
		for _, b := range is.bodies {
			b.SetAwake(false)
		}
		return true
	}
	return false
}

// solveTOI resolves the time of impact of the bodies at toiIndexA and
// toiIndexB over the remaining sub-step. Only those two bodies are moved by
// the position correction; the others act as if they had infinite mass.
func (is *island) solveTOI(subStep timeStep, toiIndexA, toiIndexB int) {
	assert(toiIndexA < len(is.bodies), "TOI body A is not in the island")
	assert(toiIndexB < len(is.bodies), "TOI body B is not in the island")

	// Initialize the body state.
	for i, b := range is.bodies {
		is.positions[i] = position{b.sweep.C, b.sweep.A}
		is.velocities[i] = velocity{b.linearVelocity, b.angularVelocity}
	}

	positions := is.positions[:len(is.bodies)]
	velocities := is.velocities[:len(is.bodies)]

	cs := &is.contactSolver
	cs.init(subStep, is.tuning, is.contacts, positions, velocities)

	// Solve position constraints.
	for i := 0; i < subStep.positionIterations; i++ {
		if cs.solveTOIPositionConstraints(toiIndexA, toiIndexB) {
			break
		}
	}

	// Leap of faith to new safe state.
	bodyA := is.bodies[toiIndexA]
	bodyB := is.bodies[toiIndexB]
	bodyA.sweep.C0 = positions[toiIndexA].c
	bodyA.sweep.A0 = positions[toiIndexA].a
	bodyB.sweep.C0 = positions[toiIndexB].c
	bodyB.sweep.A0 = positions[toiIndexB].a

	// No warm starting is needed for TOI events because warm
	// starting impulses were applied in the discrete solver.
	cs.initializeVelocityConstraints()

	// Solve velocity constraints.
	for i := 0; i < subStep.velocityIterations; i++ {
		cs.solveVelocityConstraints()
	}

	// Don't store the TOI contact forces for warm starting
	// because they can be quite large.

	is.integratePositions(subStep.dt)

	// Sync bodies
	for i, b := range is.bodies {
		b.sweep.C = positions[i].c
		b.sweep.A = positions[i].a
		b.linearVelocity = velocities[i].v
		b.angularVelocity = velocities[i].w
		b.synchronizeTransform()
	}

	is.report()
}

// report hands the solved impulses of every island contact to PostSolve.
func (is *island) report() {
	if is.listener == nil {
		return
	}

	for i, c := range is.contacts {
		vc := &is.contactSolver.velocityConstraints[i]

		is.impulse.Count = vc.pointCount
		for j := 0; j < vc.pointCount; j++ {
			is.impulse.NormalImpulses[j] = vc.points[j].normalImpulse
			is.impulse.TangentImpulses[j] = vc.points[j].tangentImpulse
		}

		is.listener.PostSolve(c, &is.impulse)
	}
}
