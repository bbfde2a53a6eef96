package rigid2d

type contactFlags uint8

const (
	// Used when crawling the contact graph to form islands.
	contactIsland contactFlags = 1 << iota

	// Set when the shapes are touching.
	contactTouching

	// The user can disable a contact for one step with SetEnabled.
	contactEnabled

	// Filtering must run again for this contact.
	contactFilter

	// A bullet hit this contact.
	contactBulletHit

	// The cached toi is valid.
	contactTOI
)

// Contact manages the contact between two fixture children. A contact exists
// for every pair whose broad-phase AABBs overlap, so it may have no contact
// points.
type Contact struct {
	flags contactFlags

	index        int // position in the contact manager
	edgeA, edgeB int // positions in bodyA.contactEdges and bodyB.contactEdges

	fixtureA *Fixture
	fixtureB *Fixture
	indexA   int
	indexB   int

	manifold Manifold
	evaluate manifoldEvaluator

	toiCount     int
	toi          float64
	friction     float64
	restitution  float64
	tangentSpeed float64
}

// newContact returns nil when no manifold routine handles the pair.
// Fixtures are swapped if the routine expects them in the other order.
func newContact(fixtureA *Fixture, indexA int, fixtureB *Fixture, indexB int) *Contact {
	reg := contactRegistry[fixtureA.Type()][fixtureB.Type()]
	if reg.evaluate == nil {
		return nil
	}
	if !reg.primary {
		fixtureA, fixtureB = fixtureB, fixtureA
		indexA, indexB = indexB, indexA
	}

	return &Contact{
		flags:       contactEnabled,
		fixtureA:    fixtureA,
		fixtureB:    fixtureB,
		indexA:      indexA,
		indexB:      indexB,
		evaluate:    reg.evaluate,
		friction:    mixFriction(fixtureA.friction, fixtureB.friction),
		restitution: mixRestitution(fixtureA.restitution, fixtureB.restitution),
	}
}

// Manifold returns the contact manifold in local coordinates. Do not modify
// it unless you understand the solver.
func (c *Contact) Manifold() *Manifold { return &c.manifold }

// WorldManifold returns the manifold in world coordinates.
func (c *Contact) WorldManifold() WorldManifold {
	var wm WorldManifold
	wm.Initialize(&c.manifold,
		c.fixtureA.body.xf, c.fixtureA.shape.Radius(),
		c.fixtureB.body.xf, c.fixtureB.shape.Radius())
	return wm
}

func (c *Contact) IsTouching() bool { return c.flags&contactTouching != 0 }

// SetEnabled disables the contact for the current step, for example from
// PreSolve. It is re-enabled before the next update.
func (c *Contact) SetEnabled(flag bool) {
	if flag {
		c.flags |= contactEnabled
	} else {
		c.flags &^= contactEnabled
	}
}

func (c *Contact) IsEnabled() bool { return c.flags&contactEnabled != 0 }

func (c *Contact) FixtureA() *Fixture { return c.fixtureA }
func (c *Contact) FixtureB() *Fixture { return c.fixtureB }
func (c *Contact) ChildIndexA() int   { return c.indexA }
func (c *Contact) ChildIndexB() int   { return c.indexB }

// SetFriction overrides the mixed friction. It persists for the life of the
// contact.
func (c *Contact) SetFriction(friction float64) { c.friction = friction }
func (c *Contact) Friction() float64           { return c.friction }

// ResetFriction restores the mixed friction of the two fixtures.
func (c *Contact) ResetFriction() {
	c.friction = mixFriction(c.fixtureA.friction, c.fixtureB.friction)
}

func (c *Contact) SetRestitution(restitution float64) { c.restitution = restitution }
func (c *Contact) Restitution() float64              { return c.restitution }

func (c *Contact) ResetRestitution() {
	c.restitution = mixRestitution(c.fixtureA.restitution, c.fixtureB.restitution)
}

// SetTangentSpeed sets the desired surface speed for a conveyor belt
// behaviour, in meters per second.
func (c *Contact) SetTangentSpeed(speed float64) { c.tangentSpeed = speed }
func (c *Contact) TangentSpeed() float64         { return c.tangentSpeed }

// TOICount is the number of continuous sub-steps this contact consumed in
// the current step.
func (c *Contact) TOICount() int { return c.toiCount }

func (c *Contact) flagForFiltering() { c.flags |= contactFilter }

func (c *Contact) isSensor() bool {
	return c.fixtureA.isSensor || c.fixtureB.isSensor
}

// update recomputes the manifold against the current body transforms and
// fires the listener. Impulses of persisting points are carried over by
// contact id so the solver can warm start.
func (c *Contact) update(listener ContactListener) {
	oldManifold := c.manifold

	// Re-enable this contact.
	c.flags |= contactEnabled

	wasTouching := c.flags&contactTouching != 0
	touching := false

	bodyA := c.fixtureA.body
	bodyB := c.fixtureB.body
	xfA := bodyA.xf
	xfB := bodyB.xf

	if c.isSensor() {
		touching = TestOverlap(c.fixtureA.shape, c.indexA, c.fixtureB.shape, c.indexB, xfA, xfB)

		// Sensors don't generate manifolds.
		c.manifold.PointCount = 0
	} else {
		c.evaluate(&c.manifold, c.fixtureA, c.indexA, xfA, c.fixtureB, c.indexB, xfB)
		touching = c.manifold.PointCount > 0

		// Match old contact ids to new contact ids and copy the stored
		// impulses to warm start the solver.
		for i := 0; i < c.manifold.PointCount; i++ {
			mp2 := &c.manifold.Points[i]
			mp2.NormalImpulse = 0.0
			mp2.TangentImpulse = 0.0
			key := mp2.ID.Key()

			for j := 0; j < oldManifold.PointCount; j++ {
				mp1 := &oldManifold.Points[j]
				if mp1.ID.Key() == key {
					mp2.NormalImpulse = mp1.NormalImpulse
					mp2.TangentImpulse = mp1.TangentImpulse
					break
				}
			}
		}

		if touching != wasTouching {
			bodyA.SetAwake(true)
			bodyB.SetAwake(true)
		}
	}

	if touching {
		c.flags |= contactTouching
	} else {
		c.flags &^= contactTouching
	}

	if listener == nil {
		return
	}
	if !wasTouching && touching {
		listener.BeginContact(c)
	}
	if wasTouching && !touching {
		listener.EndContact(c)
	}
	if !c.isSensor() && touching {
		listener.PreSolve(c, &oldManifold)
	}
}
