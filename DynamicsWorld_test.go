package rigid2d_test

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/ByteArena/rigid2d"
)

const (
	testDt    = 1.0 / 60.0
	velIters  = 8
	posIters  = 3
	restDepth = 2.0*rigid2d.PolygonRadius - rigid2d.LinearSlop
)

func stepN(w *rigid2d.World, n int) {
	for i := 0; i < n; i++ {
		w.Step(testDt, velIters, posIters)
	}
}

func addGround(w *rigid2d.World) *rigid2d.Body {
	def := rigid2d.DefaultBodyDef()
	ground := w.CreateBody(&def)
	ground.CreateFixture(rigid2d.NewEdgeShape(rigid2d.Vec2{X: -40}, rigid2d.Vec2{X: 40}), 0)
	return ground
}

func addBox(w *rigid2d.World, x, y, half float64) *rigid2d.Body {
	def := rigid2d.DefaultBodyDef()
	def.Type = rigid2d.DynamicBody
	def.Position = rigid2d.Vec2{X: x, Y: y}
	b := w.CreateBody(&def)
	b.CreateFixture(rigid2d.NewBoxShape(half, half), 1.0)
	return b
}

func addBall(w *rigid2d.World, x, y, radius float64, v rigid2d.Vec2) *rigid2d.Body {
	def := rigid2d.DefaultBodyDef()
	def.Type = rigid2d.DynamicBody
	def.Position = rigid2d.Vec2{X: x, Y: y}
	def.LinearVelocity = v
	b := w.CreateBody(&def)
	b.CreateFixture(rigid2d.NewCircleShape(rigid2d.Vec2{}, radius), 1.0)
	return b
}

// recorder logs listener calls in order.
type recorder struct {
	events []string

	begin    func(c *rigid2d.Contact)
	preSolve func(c *rigid2d.Contact)
}

func (r *recorder) BeginContact(c *rigid2d.Contact) {
	r.events = append(r.events, "begin")
	if r.begin != nil {
		r.begin(c)
	}
}

func (r *recorder) EndContact(c *rigid2d.Contact) {
	r.events = append(r.events, "end")
}

func (r *recorder) PreSolve(c *rigid2d.Contact, oldManifold *rigid2d.Manifold) {
	if r.preSolve != nil {
		r.preSolve(c)
	}
}

func (r *recorder) PostSolve(c *rigid2d.Contact, impulse *rigid2d.ContactImpulse) {}

func (r *recorder) SayGoodbyeJoint(j rigid2d.Joint) {
	r.events = append(r.events, "joint")
}

func (r *recorder) SayGoodbyeFixture(f *rigid2d.Fixture) {
	r.events = append(r.events, "fixture")
}

func (r *recorder) count(event string) int {
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

func TestStepFreeFall(t *testing.T) {
	const g = -10.0
	w := rigid2d.NewWorld(rigid2d.WorldDef{Gravity: rigid2d.Vec2{Y: g}})
	ball := addBall(w, 0, 100, 0.5, rigid2d.Vec2{})

	// Semi-implicit Euler: v_n = n*g*h and y_n = y_0 + h^2*g*n*(n+1)/2.
	for n := 1; n <= 60; n++ {
		w.Step(testDt, velIters, posIters)

		wantV := float64(n) * g * testDt
		wantY := 100.0 + testDt*testDt*g*float64(n*(n+1))/2.0
		if math.Abs(ball.LinearVelocity().Y-wantV) > 1e-9 {
			t.Fatalf("step %d: vy = %v, want %v", n, ball.LinearVelocity().Y, wantV)
		}
		if math.Abs(ball.Position().Y-wantY) > 1e-9 {
			t.Fatalf("step %d: y = %v, want %v", n, ball.Position().Y, wantY)
		}
	}
}

func TestStepAtRestWithoutGravity(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{})
	box := addBox(w, 1, 2, 0.5)

	stepN(w, 60)

	if box.Position() != (rigid2d.Vec2{X: 1, Y: 2}) || box.Angle() != 0 {
		t.Fatalf("resting body moved to %v, %v", box.Position(), box.Angle())
	}
	if box.LinearVelocity() != (rigid2d.Vec2{}) || box.AngularVelocity() != 0 {
		t.Fatalf("resting body gained velocity %v, %v", box.LinearVelocity(), box.AngularVelocity())
	}
}

func TestStepConstantVelocityWithoutGravity(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{})
	ball := addBall(w, 0, 0, 0.5, rigid2d.Vec2{X: 2, Y: -1})

	stepN(w, 30)

	want := rigid2d.Vec2{X: 2 * 30 * testDt, Y: -1 * 30 * testDt}
	if !near(ball.Position(), want, 1e-9) {
		t.Fatalf("position = %v, want %v", ball.Position(), want)
	}
	if !near(ball.LinearVelocity(), rigid2d.Vec2{X: 2, Y: -1}, 1e-12) {
		t.Fatalf("velocity changed to %v", ball.LinearVelocity())
	}
}

func TestStepZeroDtDoesNotMove(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{Gravity: rigid2d.Vec2{Y: -10}})
	ball := addBall(w, 1, 2, 0.5, rigid2d.Vec2{X: 3})

	w.Step(0, velIters, posIters)

	if ball.Position() != (rigid2d.Vec2{X: 1, Y: 2}) {
		t.Fatalf("position = %v after a zero step", ball.Position())
	}
	if ball.LinearVelocity() != (rigid2d.Vec2{X: 3}) {
		t.Fatalf("velocity = %v after a zero step", ball.LinearVelocity())
	}
}

func TestHeadOnCollisionConservesMomentum(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{})
	a := addBall(w, -2, 0, 0.5, rigid2d.Vec2{X: 5})
	b := addBall(w, 2, 0, 0.5, rigid2d.Vec2{X: -5})

	momentum := func() rigid2d.Vec2 {
		return a.LinearVelocity().Scale(a.Mass()).Add(b.LinearVelocity().Scale(b.Mass()))
	}

	for i := 0; i < 120; i++ {
		w.Step(testDt, velIters, posIters)
		if p := momentum(); !near(p, rigid2d.Vec2{}, 1e-9) {
			t.Fatalf("step %d: momentum = %v, want zero", i, p)
		}
	}

	// Inelastic by default: the balls stop against each other.
	if a.LinearVelocity().X > 1e-6 || b.LinearVelocity().X < -1e-6 {
		t.Fatalf("velocities after impact = %v %v", a.LinearVelocity(), b.LinearVelocity())
	}
	if gap := b.Position().X - a.Position().X; gap < 1.0-2.0*rigid2d.LinearSlop {
		t.Fatalf("balls interpenetrate: centers %v apart", gap)
	}
}

func TestBoxSettlesAndSleeps(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{Gravity: rigid2d.Vec2{Y: -10}})
	addGround(w)
	box := addBox(w, 0, 2, 0.5)

	stepN(w, 300)

	want := 0.5 + restDepth
	if y := box.Position().Y; math.Abs(y-want) > 0.01 {
		t.Fatalf("resting height = %v, want %v", y, want)
	}
	if box.IsAwake() {
		t.Fatalf("box still awake after 5s at rest, v = %v", box.LinearVelocity())
	}
	if w.ContactCount() != 1 {
		t.Fatalf("contact count = %d, want 1", w.ContactCount())
	}
}

func TestStackStaysStable(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{Gravity: rigid2d.Vec2{Y: -10}})
	addGround(w)

	var boxes []*rigid2d.Body
	for i := 0; i < 5; i++ {
		boxes = append(boxes, addBox(w, 0, 0.5+1.05*float64(i), 0.5))
	}

	stepN(w, 600)

	for i, b := range boxes {
		if dx := math.Abs(b.Position().X); dx > 0.05 {
			t.Fatalf("box %d drifted sideways by %v", i, dx)
		}
		if math.Abs(b.Angle()) > 0.05 {
			t.Fatalf("box %d tilted to %v", i, b.Angle())
		}
		if i > 0 && b.Position().Y <= boxes[i-1].Position().Y+0.9 {
			t.Fatalf("box %d sank into box %d", i, i-1)
		}
	}
}

func TestWarmStartingOnlyChangesConvergence(t *testing.T) {
	settle := func(warm bool) []float64 {
		w := rigid2d.NewWorld(rigid2d.WorldDef{Gravity: rigid2d.Vec2{Y: -10}})
		w.SetWarmStarting(warm)
		addGround(w)

		var boxes []*rigid2d.Body
		for i := 0; i < 3; i++ {
			boxes = append(boxes, addBox(w, 0, 0.5+1.05*float64(i), 0.5))
		}
		stepN(w, 600)

		heights := make([]float64, len(boxes))
		for i, b := range boxes {
			heights[i] = b.Position().Y
		}
		return heights
	}

	warm := settle(true)
	cold := settle(false)
	for i := range warm {
		if math.Abs(warm[i]-cold[i]) > 0.02 {
			t.Fatalf("box %d rests at %v warm and %v cold", i, warm[i], cold[i])
		}
	}
}

func TestIslandsSleepIndependently(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{Gravity: rigid2d.Vec2{Y: -10}})
	addGround(w)
	left := addBox(w, -10, 0.6, 0.5)
	right := addBox(w, 10, 0.6, 0.5)

	stepN(w, 300)
	if left.IsAwake() || right.IsAwake() {
		t.Fatal("boxes did not fall asleep")
	}

	// The static ground does not join the two boxes into one island.
	left.SetAwake(true)
	w.Step(testDt, velIters, posIters)
	if !left.IsAwake() {
		t.Fatal("woken box went back to sleep immediately")
	}
	if right.IsAwake() {
		t.Fatal("waking one box woke the other through the static ground")
	}
}

func TestContinuousPhysicsPreventsTunneling(t *testing.T) {
	run := func(continuous bool) (*rigid2d.World, *rigid2d.Body) {
		w := rigid2d.NewWorld(rigid2d.WorldDef{})
		w.SetContinuousPhysics(continuous)

		def := rigid2d.DefaultBodyDef()
		def.Position = rigid2d.Vec2{X: 5}
		wall := w.CreateBody(&def)
		wall.CreateFixture(rigid2d.NewBoxShape(0.02, 2.0), 0)

		ball := addBall(w, 0, 0, 0.1, rigid2d.Vec2{X: 90})
		stepN(w, 10)
		return w, ball
	}

	w, ball := run(true)
	if gap := (5.0 - 0.02) - (ball.Position().X + 0.1); gap < -rigid2d.LinearSlop {
		t.Fatalf("ball sank %v into the wall with continuous physics", -gap)
	}
	if w.TOIStats().Calls == 0 {
		t.Fatal("no time of impact computed")
	}

	w, ball = run(false)
	if x := ball.Position().X; x <= 5.0 {
		t.Fatalf("ball stopped without continuous physics: x = %v", x)
	}
	if w.TOIStats().Calls != 0 {
		t.Fatalf("time of impact computed with continuous physics off: %+v", w.TOIStats())
	}
}

func TestSubSteppingDefersTheRestOfTheStep(t *testing.T) {
	run := func(subStepping bool) (ball, drifter *rigid2d.Body) {
		w := rigid2d.NewWorld(rigid2d.WorldDef{})
		w.SetSubStepping(subStepping)

		def := rigid2d.DefaultBodyDef()
		def.Position = rigid2d.Vec2{X: 5}
		wall := w.CreateBody(&def)
		wall.CreateFixture(rigid2d.NewBoxShape(0.02, 2.0), 0)

		ball = addBall(w, 0, 0, 0.1, rigid2d.Vec2{X: 90})
		drifter = addBall(w, -20, 0, 0.1, rigid2d.Vec2{Y: 1})
		stepN(w, 10)
		return ball, drifter
	}

	ball, drifter := run(false)
	if y := drifter.Position().Y; math.Abs(y-10*testDt) > 1e-9 {
		t.Fatalf("drifter y = %v, want %v", y, 10*testDt)
	}
	if gap := (5.0 - 0.02) - (ball.Position().X + 0.1); gap < -rigid2d.LinearSlop {
		t.Fatalf("ball sank %v into the wall", -gap)
	}

	// The step that handles the impact stops there, so the next Step call
	// finishes it without a discrete solve.
	ball, drifter = run(true)
	if y := drifter.Position().Y; y <= 0.0 || y > 9.5*testDt {
		t.Fatalf("drifter y = %v with sub-stepping, want at most %v", y, 9*testDt)
	}
	if gap := (5.0 - 0.02) - (ball.Position().X + 0.1); gap < -rigid2d.LinearSlop {
		t.Fatalf("ball sank %v into the wall with sub-stepping", -gap)
	}
	if x := ball.Position().X; x < 4.0 {
		t.Fatalf("ball stopped short of the wall at x = %v", x)
	}
}

func TestKinematicBodyIgnoresContacts(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{Gravity: rigid2d.Vec2{Y: -10}})
	addGround(w)

	def := rigid2d.DefaultBodyDef()
	def.Type = rigid2d.KinematicBody
	def.Position = rigid2d.Vec2{X: -3, Y: 0.5}
	def.LinearVelocity = rigid2d.Vec2{X: 1}
	pusher := w.CreateBody(&def)
	pusher.CreateFixture(rigid2d.NewBoxShape(0.5, 0.5), 1.0)

	box := addBox(w, 0, 0.5, 0.5)
	stepN(w, 180)

	if pusher.Mass() != 0.0 {
		t.Fatalf("kinematic mass = %v, want 0", pusher.Mass())
	}
	if v := pusher.LinearVelocity(); v != (rigid2d.Vec2{X: 1}) || pusher.AngularVelocity() != 0.0 {
		t.Fatalf("kinematic velocity changed to %v, %v", v, pusher.AngularVelocity())
	}
	if !near(pusher.Position(), rigid2d.Vec2{Y: 0.5}, 1e-9) {
		t.Fatalf("kinematic position = %v, want (0, 0.5)", pusher.Position())
	}
	if x := box.Position().X; x < 0.9 {
		t.Fatalf("box was not pushed: x = %v", x)
	}
}

func TestDestroyBodyNotifiesInOrder(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{Gravity: rigid2d.Vec2{Y: -10}})
	rec := &recorder{}
	w.SetContactListener(rec)
	w.SetDestructionListener(rec)

	ground := addGround(w)
	box := addBox(w, 0, 0.5, 0.5)

	// The joint and the touching contact link the same two bodies.
	jd := rigid2d.DefaultDistanceJointDef()
	jd.Initialize(ground, box, rigid2d.Vec2{Y: 3}, box.Position())
	jd.CollideConnected = true
	w.CreateJoint(&jd)

	stepN(w, 2)
	if rec.count("begin") != 1 {
		t.Fatalf("events = %v, want one begin", rec.events)
	}

	rec.events = nil
	w.DestroyBody(box)

	if want := []string{"joint", "end", "fixture"}; !slices.Equal(rec.events, want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
	if w.JointCount() != 0 || w.ContactCount() != 0 || w.BodyCount() != 1 {
		t.Fatalf("counts after destroy: joints %d contacts %d bodies %d", w.JointCount(), w.ContactCount(), w.BodyCount())
	}
	if len(ground.JointEdges()) != 0 || len(ground.ContactEdges()) != 0 {
		t.Fatal("ground still holds edges to the destroyed body")
	}
}

func TestDestroyBodySwapsLastIntoPlace(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{})
	a := addBox(w, 0, 0, 0.5)
	b := addBox(w, 5, 0, 0.5)
	c := addBox(w, 10, 0, 0.5)

	w.DestroyBody(a)

	bodies := w.Bodies()
	if len(bodies) != 2 || bodies[0] != c || bodies[1] != b {
		t.Fatalf("bodies after destroy = %v", bodies)
	}
	if w.ProxyCount() != 2 {
		t.Fatalf("proxy count = %d, want 2", w.ProxyCount())
	}

	// The survivors still simulate.
	c.SetLinearVelocity(rigid2d.Vec2{X: 1})
	w.Step(testDt, velIters, posIters)
	if c.Position().X <= 10 {
		t.Fatal("moved body did not advance after the swap")
	}
}

func TestCreateBodyDuringStepPanics(t *testing.T) {
	var logs bytes.Buffer
	w := rigid2d.NewWorld(rigid2d.WorldDef{
		Gravity: rigid2d.Vec2{Y: -10},
		Logger:  slog.New(slog.NewTextHandler(&logs, nil)),
	})

	rec := &recorder{}
	rec.begin = func(c *rigid2d.Contact) {
		def := rigid2d.DefaultBodyDef()
		w.CreateBody(&def)
	}
	w.SetContactListener(rec)

	addGround(w)
	addBox(w, 0, 0.5, 0.5)

	func() {
		defer func() {
			err, ok := recover().(error)
			if !ok || !errors.Is(err, rigid2d.ErrWorldLocked) {
				t.Fatalf("recovered %v, want ErrWorldLocked", err)
			}
		}()
		w.Step(testDt, velIters, posIters)
		t.Fatal("Step returned without panicking")
	}()

	if w.IsLocked() {
		t.Fatal("world still locked after the panic")
	}
	if !strings.Contains(logs.String(), "structural change during step") {
		t.Fatalf("log = %q, want the locked error", logs.String())
	}
	if w.BodyCount() != 2 {
		t.Fatalf("body count = %d, want 2", w.BodyCount())
	}
}

func TestPreSolveCanDisableContact(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{Gravity: rigid2d.Vec2{Y: -10}})
	rec := &recorder{}
	rec.preSolve = func(c *rigid2d.Contact) { c.SetEnabled(false) }
	w.SetContactListener(rec)

	addGround(w)
	box := addBox(w, 0, 1, 0.5)

	stepN(w, 120)

	if y := box.Position().Y; y > -1 {
		t.Fatalf("box held at y = %v by a disabled contact", y)
	}
}

func TestSensorReportsWithoutResponse(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{Gravity: rigid2d.Vec2{Y: -10}})
	rec := &recorder{}
	w.SetContactListener(rec)

	def := rigid2d.DefaultBodyDef()
	zone := w.CreateBody(&def)
	fd := rigid2d.DefaultFixtureDef()
	fd.Shape = rigid2d.NewBoxShape(2, 0.5)
	fd.IsSensor = true
	zone.CreateFixtureFromDef(&fd)

	ball := addBall(w, 0, 2, 0.25, rigid2d.Vec2{})
	stepN(w, 120)

	if rec.count("begin") != 1 || rec.count("end") != 1 {
		t.Fatalf("events = %v, want one begin and one end", rec.events)
	}
	if y := ball.Position().Y; y > -1 {
		t.Fatalf("sensor stopped the ball at y = %v", y)
	}
}

func TestNegativeGroupNeverCollides(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{})

	for _, x := range []float64{0, 0.5} {
		def := rigid2d.DefaultBodyDef()
		def.Type = rigid2d.DynamicBody
		def.Position = rigid2d.Vec2{X: x}
		b := w.CreateBody(&def)

		fd := rigid2d.DefaultFixtureDef()
		fd.Shape = rigid2d.NewBoxShape(0.5, 0.5)
		fd.Density = 1
		fd.Filter.GroupIndex = -1
		b.CreateFixtureFromDef(&fd)
	}

	w.Step(testDt, velIters, posIters)
	if w.ContactCount() != 0 {
		t.Fatalf("contact count = %d, want 0", w.ContactCount())
	}
}

func TestJointDisablesCollisionBetweenBodies(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{})
	a := addBox(w, 0, 0, 0.5)
	b := addBox(w, 0.8, 0, 0.5)

	w.Step(testDt, velIters, posIters)
	if w.ContactCount() != 1 {
		t.Fatalf("contact count = %d, want 1", w.ContactCount())
	}

	var jd rigid2d.RevoluteJointDef
	jd.Initialize(a, b, rigid2d.Vec2{X: 0.4})
	j := w.CreateJoint(&jd)

	w.Step(testDt, velIters, posIters)
	if w.ContactCount() != 0 {
		t.Fatalf("contact survived joint creation: %d", w.ContactCount())
	}

	w.DestroyJoint(j)
	if !a.IsAwake() || !b.IsAwake() {
		t.Fatal("DestroyJoint did not wake the bodies")
	}
	if len(a.JointEdges()) != 0 || len(b.JointEdges()) != 0 {
		t.Fatal("joint edges left after DestroyJoint")
	}
}

func TestQueriesAndRayCasts(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{})
	near1 := addBox(w, 3, 0, 0.5)
	far1 := addBox(w, 8, 0, 0.5)
	addBox(w, 3, 10, 0.5)
	w.Step(testDt, velIters, posIters)

	hit, ok := w.RayCastClosest(rigid2d.Vec2{}, rigid2d.Vec2{X: 10})
	if !ok || hit.Fixture.Body() != near1 {
		t.Fatalf("closest hit = %+v, %v", hit, ok)
	}
	if !near(hit.Point, rigid2d.Vec2{X: 2.5}, 1e-9) || !near(hit.Normal, rigid2d.Vec2{X: -1}, 1e-9) {
		t.Fatalf("hit point %v normal %v", hit.Point, hit.Normal)
	}

	if hits := w.RayCastAll(rigid2d.Vec2{}, rigid2d.Vec2{X: 10}); len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}

	var found []*rigid2d.Body
	w.QueryPoint(func(f *rigid2d.Fixture) bool {
		found = append(found, f.Body())
		return true
	}, rigid2d.Vec2{X: 8.2, Y: 0.1})
	if len(found) != 1 || found[0] != far1 {
		t.Fatalf("point query found %v", found)
	}

	found = found[:0]
	w.QueryAABB(func(f *rigid2d.Fixture) bool {
		found = append(found, f.Body())
		return true
	}, rigid2d.AABB{LowerBound: rigid2d.Vec2{X: -1, Y: -1}, UpperBound: rigid2d.Vec2{X: 20, Y: 1}})
	if len(found) != 2 {
		t.Fatalf("aabb query found %d bodies, want 2", len(found))
	}

	queryShape := func(center rigid2d.Vec2, radius float64) []*rigid2d.Body {
		var bodies []*rigid2d.Body
		w.QueryShape(func(f *rigid2d.Fixture) bool {
			bodies = append(bodies, f.Body())
			return true
		}, rigid2d.NewCircleShape(rigid2d.Vec2{}, radius), 0, rigid2d.NewTransform(center, 0))
		return bodies
	}
	if found := queryShape(rigid2d.Vec2{X: 3.5}, 0.3); len(found) != 1 || found[0] != near1 {
		t.Fatalf("shape query found %v", found)
	}
	// The bounding boxes overlap near the corner but the shapes do not.
	if found := queryShape(rigid2d.Vec2{X: 4, Y: 1}, 0.6); len(found) != 0 {
		t.Fatalf("shape query past the corner found %v", found)
	}
}

func TestShiftOrigin(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{})
	b := addBox(w, 10, 5, 0.5)

	w.ShiftOrigin(rigid2d.Vec2{X: 10})

	if !near(b.Position(), rigid2d.Vec2{Y: 5}, 1e-12) || !near(b.WorldCenter(), rigid2d.Vec2{Y: 5}, 1e-12) {
		t.Fatalf("position after shift = %v", b.Position())
	}
	hit, ok := w.RayCastClosest(rigid2d.Vec2{X: -5, Y: 5}, rigid2d.Vec2{X: 5, Y: 5})
	if !ok || hit.Fixture.Body() != b {
		t.Fatal("broad-phase was not shifted with the body")
	}
}
