package rigid2d

// Filter holds contact filtering data.
type Filter struct {
	// CategoryBits are the categories of this fixture. Normally one bit.
	CategoryBits uint16

	// MaskBits are the categories this fixture accepts for collision.
	MaskBits uint16

	// Fixtures sharing a negative group never collide, a positive group
	// always collides. Zero means no group. A non-zero group wins over the
	// mask bits.
	GroupIndex int16
}

// DefaultFilter collides with everything.
func DefaultFilter() Filter {
	return Filter{
		CategoryBits: 0x0001,
		MaskBits:     0xFFFF,
	}
}

// FixtureDef is used to create a fixture. It can be reused.
type FixtureDef struct {
	// Shape must be set. It is cloned by CreateFixtureFromDef.
	Shape Shape

	Friction    float64 // usually in [0,1]
	Restitution float64 // usually in [0,1]
	Density     float64 // usually in kg/m^2

	// IsSensor fixtures report contacts but never produce a collision
	// response.
	IsSensor bool

	Filter Filter

	UserData any
}

// DefaultFixtureDef returns a fixture def with the usual friction and a
// filter that collides with everything.
func DefaultFixtureDef() FixtureDef {
	return FixtureDef{
		Friction: 0.2,
		Filter:   DefaultFilter(),
	}
}

// FixtureProxy connects one child of a fixture shape to the broad-phase.
type FixtureProxy struct {
	AABB       AABB
	Fixture    *Fixture
	ChildIndex int
	ProxyID    int
}

// Fixture attaches a shape to a body for collision detection. It inherits
// the transform of its body and carries friction, restitution, density and
// filtering. Fixtures are created with Body.CreateFixture and cannot be
// reused.
type Fixture struct {
	body  *Body
	shape Shape

	density     float64
	friction    float64
	restitution float64

	proxies []FixtureProxy

	filter   Filter
	isSensor bool

	userData any
}

func newFixture(body *Body, def *FixtureDef) *Fixture {
	assert(def.Shape != nil, "fixture def has no shape")
	assert(IsValid(def.Density) && def.Density >= 0.0, "fixture density must be non-negative")

	f := &Fixture{
		body:        body,
		shape:       def.Shape.Clone(),
		density:     def.Density,
		friction:    def.Friction,
		restitution: def.Restitution,
		filter:      def.Filter,
		isSensor:    def.IsSensor,
		userData:    def.UserData,
	}
	return f
}

// Type is the type of the child shape.
func (f *Fixture) Type() ShapeType { return f.shape.Type() }

// Shape returns the fixture's own copy of the shape. Changing it does not
// update mass or broad-phase data.
func (f *Fixture) Shape() Shape { return f.shape }

func (f *Fixture) Body() *Body { return f.body }

func (f *Fixture) IsSensor() bool { return f.isSensor }

// SetSensor wakes the body when the flag changes.
func (f *Fixture) SetSensor(sensor bool) {
	if sensor != f.isSensor {
		f.body.SetAwake(true)
		f.isSensor = sensor
	}
}

func (f *Fixture) FilterData() Filter { return f.filter }

// SetFilterData replaces the filter. Existing contacts are re-filtered on the
// next step; new pairs are looked up as well.
func (f *Fixture) SetFilterData(filter Filter) {
	f.filter = filter
	f.Refilter()
}

// Refilter flags the contacts of this fixture for filtering and touches its
// proxies so that pairs the old filter rejected get another chance.
func (f *Fixture) Refilter() {
	if f.body == nil {
		return
	}

	for _, ce := range f.body.contactEdges {
		c := ce.Contact
		if c.fixtureA == f || c.fixtureB == f {
			c.flagForFiltering()
		}
	}

	bp := f.body.world.contactManager.broadPhase
	for i := range f.proxies {
		bp.TouchProxy(f.proxies[i].ProxyID)
	}
}

func (f *Fixture) Density() float64 { return f.density }

// SetDensity does not recompute the body mass: call Body.ResetMassData.
func (f *Fixture) SetDensity(density float64) {
	assert(IsValid(density) && density >= 0.0, "fixture density must be non-negative")
	f.density = density
}

// SetFriction does not change existing contacts.
func (f *Fixture) SetFriction(friction float64) { f.friction = friction }
func (f *Fixture) Friction() float64           { return f.friction }

// SetRestitution does not change existing contacts.
func (f *Fixture) SetRestitution(restitution float64) { f.restitution = restitution }
func (f *Fixture) Restitution() float64              { return f.restitution }

func (f *Fixture) UserData() any        { return f.userData }
func (f *Fixture) SetUserData(data any) { f.userData = data }

// TestPoint reports whether a world point is inside the shape.
func (f *Fixture) TestPoint(p Vec2) bool {
	return f.shape.TestPoint(f.body.xf, p)
}

// RayCast casts a ray against one child of the shape.
func (f *Fixture) RayCast(input RayCastInput, childIndex int) (RayCastOutput, bool) {
	return f.shape.RayCast(input, f.body.xf, childIndex)
}

// MassData is computed from the shape and density.
func (f *Fixture) MassData() MassData {
	return f.shape.ComputeMass(f.density)
}

// AABB returns the broad-phase box of a child, which covers the sweep of
// the last step.
func (f *Fixture) AABB(childIndex int) AABB {
	assert(0 <= childIndex && childIndex < len(f.proxies), "fixture child index out of range")
	return f.proxies[childIndex].AABB
}

// ProxyCount is the number of broad-phase proxies, zero when the body is
// disabled.
func (f *Fixture) ProxyCount() int { return len(f.proxies) }

func (f *Fixture) createProxies(bp *BroadPhase[*FixtureProxy], xf Transform) {
	assert(len(f.proxies) == 0, "fixture proxies already exist")

	// The slice is never resized while the proxies live: the tree holds
	// pointers into it.
	count := f.shape.ChildCount()
	f.proxies = make([]FixtureProxy, count)
	for i := range f.proxies {
		proxy := &f.proxies[i]
		proxy.AABB = f.shape.ComputeAABB(xf, i)
		proxy.Fixture = f
		proxy.ChildIndex = i
		proxy.ProxyID = bp.CreateProxy(proxy.AABB, proxy)
	}
}

func (f *Fixture) destroyProxies(bp *BroadPhase[*FixtureProxy]) {
	for i := range f.proxies {
		bp.DestroyProxy(f.proxies[i].ProxyID)
	}
	f.proxies = nil
}

// synchronize covers the motion from xf1 to xf2 in the broad-phase. Some
// rotation in between may be missed.
func (f *Fixture) synchronize(bp *BroadPhase[*FixtureProxy], xf1, xf2 Transform) {
	for i := range f.proxies {
		proxy := &f.proxies[i]

		aabb1 := f.shape.ComputeAABB(xf1, proxy.ChildIndex)
		aabb2 := f.shape.ComputeAABB(xf2, proxy.ChildIndex)
		proxy.AABB = aabb1.Combine(aabb2)

		displacement := xf2.P.Sub(xf1.P)
		bp.MoveProxy(proxy.ProxyID, proxy.AABB, displacement)
	}
}
