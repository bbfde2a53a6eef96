package rigid2d

// contactManager owns the broad-phase and the contacts of a world.
type contactManager struct {
	broadPhase *BroadPhase[*FixtureProxy]
	contacts   []*Contact

	filter   ContactFilter
	listener ContactListener
}

func newContactManager() contactManager {
	return contactManager{
		broadPhase: NewBroadPhase[*FixtureProxy](),
		filter:     DefaultContactFilter{},
	}
}

// destroy unlinks c from the manager and both bodies. Bodies are woken when
// the contact had points.
func (cm *contactManager) destroy(c *Contact) {
	fixtureA := c.fixtureA
	fixtureB := c.fixtureB
	bodyA := fixtureA.body
	bodyB := fixtureB.body

	if cm.listener != nil && c.IsTouching() {
		cm.listener.EndContact(c)
	}

	last := len(cm.contacts) - 1
	if c.index != last {
		moved := cm.contacts[last]
		cm.contacts[c.index] = moved
		moved.index = c.index
	}
	cm.contacts[last] = nil
	cm.contacts = cm.contacts[:last]

	bodyA.removeContactEdge(c.edgeA)
	bodyB.removeContactEdge(c.edgeB)
	c.index = -1

	if c.manifold.PointCount > 0 && !c.isSensor() {
		bodyA.SetAwake(true)
		bodyB.SetAwake(true)
	}
}

// collide is the narrow-phase: it re-filters flagged contacts, drops
// contacts whose proxies stopped overlapping and updates the others.
func (cm *contactManager) collide() {
	for i := 0; i < len(cm.contacts); {
		c := cm.contacts[i]

		fixtureA := c.fixtureA
		fixtureB := c.fixtureB
		bodyA := fixtureA.body
		bodyB := fixtureB.body

		// Is this contact flagged for filtering?
		if c.flags&contactFilter != 0 {
			if !bodyB.shouldCollide(bodyA) || (cm.filter != nil && !cm.filter.ShouldCollide(fixtureA, fixtureB)) {
				// The last contact now sits at i.
				cm.destroy(c)
				continue
			}
			c.flags &^= contactFilter
		}

		activeA := bodyA.IsAwake() && bodyA.bodyType != StaticBody
		activeB := bodyB.IsAwake() && bodyB.bodyType != StaticBody

		// At least one body must be awake and it must be dynamic or kinematic.
		if !activeA && !activeB {
			i++
			continue
		}

		proxyIDA := fixtureA.proxies[c.indexA].ProxyID
		proxyIDB := fixtureB.proxies[c.indexB].ProxyID

		// Here we destroy contacts that cease to overlap in the broad-phase.
		if !cm.broadPhase.TestOverlap(proxyIDA, proxyIDB) {
			cm.destroy(c)
			continue
		}

		c.update(cm.listener)
		i++
	}
}

func (cm *contactManager) findNewContacts() {
	cm.broadPhase.UpdatePairs(cm.addPair)
}

// addPair is the broad-phase callback. It creates a contact unless the pair
// is already tracked or filtered out.
func (cm *contactManager) addPair(proxyA, proxyB *FixtureProxy) {
	fixtureA := proxyA.Fixture
	fixtureB := proxyB.Fixture
	indexA := proxyA.ChildIndex
	indexB := proxyB.ChildIndex

	bodyA := fixtureA.body
	bodyB := fixtureB.body

	// Fixtures on the same body never collide.
	if bodyA == bodyB {
		return
	}

	// Does a contact already exist?
	for _, edge := range bodyB.contactEdges {
		if edge.Other != bodyA {
			continue
		}
		c := edge.Contact
		if c.fixtureA == fixtureA && c.fixtureB == fixtureB && c.indexA == indexA && c.indexB == indexB {
			return
		}
		if c.fixtureA == fixtureB && c.fixtureB == fixtureA && c.indexA == indexB && c.indexB == indexA {
			return
		}
	}

	if !bodyB.shouldCollide(bodyA) {
		return
	}
	if cm.filter != nil && !cm.filter.ShouldCollide(fixtureA, fixtureB) {
		return
	}

	c := newContact(fixtureA, indexA, fixtureB, indexB)
	if c == nil {
		return
	}

	// The fixtures may have been swapped.
	bodyA = c.fixtureA.body
	bodyB = c.fixtureB.body

	c.index = len(cm.contacts)
	cm.contacts = append(cm.contacts, c)

	c.edgeA = bodyA.addContactEdge(bodyB, c)
	c.edgeB = bodyB.addContactEdge(bodyA, c)
}
