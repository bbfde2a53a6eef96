package rigid2d

import (
	"log/slog"
	"math"
	"time"
)

// Step advances the world by dt. It runs collision detection, integration
// and constraint solution. Typical values are dt = 1/60 with 8 velocity
// and 3 position iterations. A dt of zero only refreshes contacts.
//
// Step panics with ErrWorldLocked if a callback creates or destroys bodies,
// fixtures or joints.
func (w *World) Step(dt float64, velocityIterations, positionIterations int) {
	stepStart := time.Now()

	// If new fixtures were added, we need to find the new contacts.
	if w.flags&worldNewFixture != 0 {
		w.contactManager.findNewContacts()
		w.flags &^= worldNewFixture
	}

	w.flags |= worldLocked
	defer func() { w.flags &^= worldLocked }()

	step := timeStep{
		dt:                 dt,
		velocityIterations: velocityIterations,
		positionIterations: positionIterations,
		dtRatio:            w.invDt0 * dt,
		warmStarting:       w.warmStarting,
	}
	if dt > 0.0 {
		step.invDt = 1.0 / dt
	}

	w.profile = Profile{}

	// Update contacts. This is where some contacts are destroyed.
	start := time.Now()
	w.contactManager.collide()
	w.profile.Collide = time.Since(start)

	// Integrate velocities, solve velocity constraints, and integrate positions.
	if w.stepComplete && step.dt > 0.0 {
		start = time.Now()
		w.solve(step)
		w.profile.Solve = time.Since(start)
	}

	// Handle TOI events.
	if w.continuousPhysics && step.dt > 0.0 {
		start = time.Now()
		w.solveTOI(step)
		w.profile.SolveTOI = time.Since(start)
	}

	if step.dt > 0.0 {
		w.invDt0 = step.invDt
	}

	if w.flags&worldClearForces != 0 {
		w.ClearForces()
	}

	w.profile.Step = time.Since(stepStart)
}

// solve finds the islands of awake bodies, solves them and moves the
// broad-phase proxies.
func (w *World) solve(step timeStep) {
	cm := &w.contactManager

	// Size the island for the worst case.
	w.island.init(len(w.bodies), len(cm.contacts), len(w.joints), cm.listener, &w.tuning)

	// Clear all the island flags.
	for _, b := range w.bodies {
		b.flags &^= bodyIsland
	}
	for _, c := range cm.contacts {
		c.flags &^= contactIsland
	}
	for _, j := range w.joints {
		j.base().islandFlag = false
	}

	// Build and simulate all awake islands.
	stack := w.stack[:0]
	for _, seed := range w.bodies {
		if seed.flags&bodyIsland != 0 {
			continue
		}
		if !seed.IsAwake() || !seed.IsEnabled() {
			continue
		}

		// The seed can be dynamic or kinematic.
		if seed.bodyType == StaticBody {
			continue
		}

		// Reset island and stack.
		w.island.clear()
		stack = append(stack[:0], seed)
		seed.flags |= bodyIsland

		// Perform a depth first search (DFS) on the constraint graph.
		for len(stack) > 0 {
			// Grab the next body off the stack and add it to the island.
			b := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			assert(b.IsEnabled(), "disabled body reached the island search")
			w.island.addBody(b)

			// To keep islands as small as possible, we don't
			// propagate islands across static bodies.
			if b.bodyType == StaticBody {
				continue
			}

			// Make sure the body is awake, without resetting the sleep timer.
			b.flags |= bodyAwake

			// Search all contacts connected to this body.
			for _, ce := range b.contactEdges {
				c := ce.Contact

				// Has this contact already been added to an island?
				if c.flags&contactIsland != 0 {
					continue
				}

				// Is this contact solid and touching?
				if !c.IsEnabled() || !c.IsTouching() {
					continue
				}

				// Skip sensors.
				if c.isSensor() {
					continue
				}

				w.island.addContact(c)
				c.flags |= contactIsland

				other := ce.Other

				// Was the other body already added to this island?
				if other.flags&bodyIsland != 0 || !other.IsEnabled() {
					continue
				}

				stack = append(stack, other)
				other.flags |= bodyIsland
			}

			// Search all joints connected to this body.
			for _, je := range b.jointEdges {
				jb := je.Joint.base()
				if jb.islandFlag {
					continue
				}

				other := je.Other

				// Don't simulate joints connected to disabled bodies.
				if !other.IsEnabled() {
					continue
				}

				w.island.addJoint(je.Joint)
				jb.islandFlag = true

				if other.flags&bodyIsland != 0 {
					continue
				}

				stack = append(stack, other)
				other.flags |= bodyIsland
			}
		}

		if w.island.solve(&w.profile, step, w.gravity, w.allowSleep) {
			w.logger.Debug("island asleep", slog.Int("bodies", len(w.island.bodies)))
		}

		// Post solve cleanup.
		for _, b := range w.island.bodies {
			// Allow static bodies to participate in other islands.
			if b.bodyType == StaticBody {
				b.flags &^= bodyIsland
			}
		}
	}
	w.stack = stack[:0]
	w.island.clear()

	start := time.Now()

	// Synchronize fixtures, check for out of range bodies.
	for _, b := range w.bodies {
		// If a body was not in an island then it did not move.
		if b.flags&bodyIsland == 0 {
			continue
		}
		if b.bodyType == StaticBody {
			continue
		}

		// Update fixtures (for broad-phase).
		b.synchronizeFixtures()
	}

	// Look for new contacts.
	cm.findNewContacts()
	w.profile.Broadphase = time.Since(start)
}

// toiCandidate reports whether the contact may produce a TOI event this
// step.
func (w *World) toiCandidate(c *Contact) bool {
	if c.isSensor() {
		return false
	}

	bA := c.fixtureA.body
	bB := c.fixtureB.body
	typeA := bA.bodyType
	typeB := bB.bodyType
	assert(typeA == DynamicBody || typeB == DynamicBody, "contact without a dynamic body")

	activeA := bA.IsAwake() && typeA != StaticBody
	activeB := bB.IsAwake() && typeB != StaticBody

	// Is at least one body active (awake and dynamic or kinematic)?
	if !activeA && !activeB {
		return false
	}

	collideA := bA.IsBullet() || typeA != DynamicBody
	collideB := bB.IsBullet() || typeB != DynamicBody

	// Are these two non-bullet dynamic bodies?
	return collideA || collideB
}

// contactTOI computes and caches the fraction of the step at which the
// contact's bodies first touch. 1 means no impact.
func (w *World) contactTOI(c *Contact) float64 {
	bA := c.fixtureA.body
	bB := c.fixtureB.body

	// Put the sweeps onto the same time interval.
	alpha0 := bA.sweep.Alpha0
	if bA.sweep.Alpha0 < bB.sweep.Alpha0 {
		alpha0 = bB.sweep.Alpha0
		bA.sweep.Advance(alpha0)
	} else if bB.sweep.Alpha0 < bA.sweep.Alpha0 {
		alpha0 = bA.sweep.Alpha0
		bB.sweep.Advance(alpha0)
	}
	assert(alpha0 < 1.0, "TOI sweep already at the end of the step")

	// Compute the time of impact in interval [0, minTOI]
	input := TOIInput{
		ProxyA: NewDistanceProxy(c.fixtureA.shape, c.indexA),
		ProxyB: NewDistanceProxy(c.fixtureB.shape, c.indexB),
		SweepA: bA.sweep,
		SweepB: bB.sweep,
		TMax:   1.0,
	}
	output := TimeOfImpact(&input)
	w.toiStats.record(output)

	switch output.State {
	case TOIFailed, TOIOverlapped:
		w.logger.Debug("time of impact degenerate",
			slog.String("state", output.State.String()),
			slog.Int("body_a", bA.index),
			slog.Int("body_b", bB.index),
			slog.Float64("t", output.T),
		)
	}

	// Beta is the fraction of the remaining portion of the step.
	alpha := 1.0
	if output.State == TOITouching {
		alpha = math.Min(alpha0+(1.0-alpha0)*output.T, 1.0)
	}

	c.toi = alpha
	c.flags |= contactTOI
	return alpha
}

// acceptsTOINeighbor applies the TOI neighbor policy to a contact between
// body and other.
func (w *World) acceptsTOINeighbor(body, other *Body) bool {
	if other.bodyType != DynamicBody || body.IsBullet() || other.IsBullet() {
		return true
	}
	return w.tuning.TOINeighbors == TOINeighborsAll
}

// solveTOI finds the earliest time of impact, advances to it and resolves
// it with a small island. With sub-stepping only one event is handled.
func (w *World) solveTOI(step timeStep) {
	cm := &w.contactManager
	is := &w.toiIsland
	maxContacts := w.tuning.MaxTOIContacts
	is.init(2*maxContacts, maxContacts, 0, cm.listener, &w.tuning)

	if w.stepComplete {
		for _, b := range w.bodies {
			b.flags &^= bodyIsland
			b.sweep.Alpha0 = 0.0
		}

		for _, c := range cm.contacts {
			// Invalidate TOI
			c.flags &^= contactTOI | contactIsland
			c.toiCount = 0
			c.toi = 1.0
		}
	}

	// Find TOI events and solve them.
	for {
		// Find the first TOI.
		var minContact *Contact
		minAlpha := 1.0

		for _, c := range cm.contacts {
			// Is this contact disabled?
			if !c.IsEnabled() {
				continue
			}

			// Prevent excessive sub-stepping.
			if c.toiCount > w.tuning.MaxSubSteps {
				continue
			}

			var alpha float64
			if c.flags&contactTOI != 0 {
				// This contact has a valid cached TOI.
				alpha = c.toi
			} else {
				if !w.toiCandidate(c) {
					continue
				}
				alpha = w.contactTOI(c)
			}

			if alpha < minAlpha {
				// This is the minimum TOI found so far.
				minContact = c
				minAlpha = alpha
			}
		}

		if minContact == nil || 1.0-10.0*Epsilon < minAlpha {
			// No more TOI events. Done!
			w.stepComplete = true
			break
		}

		// Advance the bodies to the TOI.
		bA := minContact.fixtureA.body
		bB := minContact.fixtureB.body

		backup1 := bA.sweep
		backup2 := bB.sweep

		bA.advance(minAlpha)
		bB.advance(minAlpha)

		// The TOI contact likely has some new contact points.
		minContact.update(cm.listener)
		minContact.flags &^= contactTOI
		minContact.toiCount++
		if minContact.toiCount > w.tuning.MaxSubSteps {
			w.logger.Debug("contact reached sub-step cap",
				slog.Int("body_a", bA.index),
				slog.Int("body_b", bB.index),
				slog.Int("sub_steps", minContact.toiCount),
			)
		}

		// Is the contact solid?
		if !minContact.IsEnabled() || !minContact.IsTouching() {
			// Restore the sweeps.
			minContact.SetEnabled(false)
			bA.sweep = backup1
			bB.sweep = backup2
			bA.synchronizeTransform()
			bB.synchronizeTransform()
			continue
		}

		bA.SetAwake(true)
		bB.SetAwake(true)

		// Build the island
		is.clear()
		is.addBody(bA)
		is.addBody(bB)
		is.addContact(minContact)

		bA.flags |= bodyIsland
		bB.flags |= bodyIsland
		minContact.flags |= contactIsland

		// Get contacts on bodyA and bodyB.
		for _, body := range [2]*Body{bA, bB} {
			if body.bodyType != DynamicBody {
				continue
			}
			w.addTOINeighbors(is, body, minAlpha)
		}

		subStep := timeStep{
			dt:                 (1.0 - minAlpha) * step.dt,
			dtRatio:            1.0,
			positionIterations: w.tuning.TOIPositionIterations,
			velocityIterations: step.velocityIterations,
			warmStarting:       false,
		}
		subStep.invDt = 1.0 / subStep.dt
		is.solveTOI(subStep, bA.islandIndex, bB.islandIndex)

		// Reset island flags and synchronize broad-phase proxies.
		for _, body := range is.bodies {
			body.flags &^= bodyIsland

			if body.bodyType != DynamicBody {
				continue
			}

			body.synchronizeFixtures()

			// Invalidate all contact TOIs on this displaced body.
			for _, ce := range body.contactEdges {
				ce.Contact.flags &^= contactTOI | contactIsland
			}
		}

		// Commit fixture proxy movements to the broad-phase so that new
		// contacts are created. Also, some contacts can be destroyed.
		cm.findNewContacts()

		if w.subStepping {
			w.stepComplete = false
			break
		}
	}
	is.clear()
}

// addTOINeighbors pulls the contacts of body that the neighbor policy
// accepts into the TOI island, advancing the neighbors to alpha.
func (w *World) addTOINeighbors(is *island, body *Body, alpha float64) {
	listener := w.contactManager.listener

	for _, ce := range body.contactEdges {
		if len(is.bodies) == cap(is.bodies) || len(is.contacts) == cap(is.contacts) {
			break
		}

		contact := ce.Contact

		// Has this contact already been added to the island?
		if contact.flags&contactIsland != 0 {
			continue
		}

		other := ce.Other
		if !w.acceptsTOINeighbor(body, other) {
			continue
		}

		// Skip sensors.
		if contact.isSensor() {
			continue
		}

		// Tentatively advance the body to the TOI.
		backup := other.sweep
		if other.flags&bodyIsland == 0 {
			other.advance(alpha)
		}

		// Update the contact points
		contact.update(listener)

		// Was the contact disabled by the user? Are there contact points?
		if !contact.IsEnabled() || !contact.IsTouching() {
			other.sweep = backup
			other.synchronizeTransform()
			continue
		}

		// Add the contact to the island
		contact.flags |= contactIsland
		is.addContact(contact)

		// Has the other body already been added to the island?
		if other.flags&bodyIsland != 0 {
			continue
		}

		// Add the other body to the island.
		other.flags |= bodyIsland

		if other.bodyType != StaticBody {
			other.SetAwake(true)
		}

		is.addBody(other)
	}
}
