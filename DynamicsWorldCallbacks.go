package rigid2d

// DestructionListener is told when joints and fixtures are destroyed
// implicitly because their body was destroyed. Use it to drop references
// to them.
type DestructionListener interface {
	SayGoodbyeJoint(joint Joint)
	SayGoodbyeFixture(fixture *Fixture)
}

// ContactFilter decides whether two fixtures should get a contact.
type ContactFilter interface {
	ShouldCollide(fixtureA, fixtureB *Fixture) bool
}

// DefaultContactFilter applies the Filter group, category and mask rules.
type DefaultContactFilter struct{}

// ShouldCollide returns true when the fixtures' filters accept each other.
// A shared non-zero group overrides the category and mask bits: positive
// groups always collide and negative groups never do.
func (DefaultContactFilter) ShouldCollide(fixtureA, fixtureB *Fixture) bool {
	filterA := fixtureA.filter
	filterB := fixtureB.filter

	if filterA.GroupIndex == filterB.GroupIndex && filterA.GroupIndex != 0 {
		return filterA.GroupIndex > 0
	}

	return filterA.MaskBits&filterB.CategoryBits != 0 && filterA.CategoryBits&filterB.MaskBits != 0
}

// ContactImpulse carries the impulses the solver applied to one contact.
// Count matches the manifold point count.
type ContactImpulse struct {
	NormalImpulses  [MaxManifoldPoints]float64
	TangentImpulses [MaxManifoldPoints]float64
	Count           int
}

// ContactListener receives contact events. All calls happen during Step
// while the world is locked; creating or destroying bodies, fixtures or
// joints from them panics. Copy any contact data you need to keep, the
// contact may be destroyed later in the same step.
type ContactListener interface {
	// BeginContact is called when two fixtures begin to touch.
	BeginContact(contact *Contact)

	// EndContact is called when two fixtures cease to touch. It is also
	// called when a touching contact is destroyed.
	EndContact(contact *Contact)

	// PreSolve is called after the manifold is updated and before the
	// contact is solved. Disabling the contact here skips it for this
	// step only. It runs for touching, non-sensor contacts.
	PreSolve(contact *Contact, oldManifold *Manifold)

	// PostSolve reports the impulses applied to a touching contact, once
	// per island solve and once per TOI sub-step.
	PostSolve(contact *Contact, impulse *ContactImpulse)
}

// QueryCallback is called for each fixture overlapping the query. Return
// false to stop the query.
type QueryCallback func(fixture *Fixture) bool

// RayCastCallback is called for each fixture hit by a ray, with the hit
// point, normal and fraction along the ray. The return value controls the
// rest of the cast:
//   - -1 ignores this fixture and continues
//   - 0 terminates the cast
//   - fraction clips the ray to this point
//   - 1 continues as if there was no hit
type RayCastCallback func(fixture *Fixture, point, normal Vec2, fraction float64) float64
