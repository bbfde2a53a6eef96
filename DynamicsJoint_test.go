package rigid2d_test

import (
	"math"
	"testing"

	"github.com/ByteArena/rigid2d"
)

func addStatic(w *rigid2d.World, x, y float64) *rigid2d.Body {
	def := rigid2d.DefaultBodyDef()
	def.Position = rigid2d.Vec2{X: x, Y: y}
	return w.CreateBody(&def)
}

func pendulum(t *testing.T, configure func(*rigid2d.RevoluteJointDef)) (*rigid2d.World, *rigid2d.Body, *rigid2d.RevoluteJoint) {
	t.Helper()
	w := rigid2d.NewWorld(rigid2d.WorldDef{Gravity: rigid2d.Vec2{Y: -10}})
	ground := addStatic(w, 0, 0)
	bob := addBox(w, 2, 10, 0.25)

	var jd rigid2d.RevoluteJointDef
	jd.Initialize(ground, bob, rigid2d.Vec2{Y: 10})
	if configure != nil {
		configure(&jd)
	}
	j, ok := w.CreateJoint(&jd).(*rigid2d.RevoluteJoint)
	if !ok {
		t.Fatal("CreateJoint did not return a revolute joint")
	}
	return w, bob, j
}

func TestRevoluteKeepsAnchorsTogether(t *testing.T) {
	w, bob, j := pendulum(t, nil)

	for i := 0; i < 180; i++ {
		w.Step(testDt, velIters, posIters)
		if d := rigid2d.Distance(j.AnchorA(), j.AnchorB()); d > 0.02 {
			t.Fatalf("step %d: anchors %v apart", i, d)
		}
	}

	// The bob swings through the bottom of its arc.
	if r := rigid2d.Distance(bob.WorldCenter(), rigid2d.Vec2{Y: 10}); math.Abs(r-2.0) > 0.02 {
		t.Fatalf("arm length = %v, want 2", r)
	}
	if !bob.IsAwake() {
		t.Fatal("swinging pendulum fell asleep")
	}
}

func TestRevoluteLimit(t *testing.T) {
	lower := -0.25 * math.Pi
	w, _, j := pendulum(t, func(jd *rigid2d.RevoluteJointDef) {
		jd.EnableLimit = true
		jd.LowerAngle = lower
		jd.UpperAngle = 0.25 * math.Pi
	})

	for i := 0; i < 180; i++ {
		w.Step(testDt, velIters, posIters)
		if a := j.JointAngle(); a < lower-0.1 {
			t.Fatalf("step %d: angle %v passed the lower limit %v", i, a, lower)
		}
	}

	// Gravity keeps the bob pressed on the lower stop.
	if a := j.JointAngle(); math.Abs(a-lower) > 2.0*rigid2d.AngularSlop {
		t.Fatalf("resting angle = %v, want %v", a, lower)
	}
}

func TestRevoluteMotorReachesSpeed(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{})
	ground := addStatic(w, 0, 0)
	wheel := addBall(w, 0, 0, 0.5, rigid2d.Vec2{})

	var jd rigid2d.RevoluteJointDef
	jd.Initialize(ground, wheel, wheel.WorldCenter())
	jd.EnableMotor = true
	jd.MotorSpeed = 2.0
	jd.MaxMotorTorque = 1000.0
	j := w.CreateJoint(&jd).(*rigid2d.RevoluteJoint)

	stepN(w, 30)

	if s := j.JointSpeed(); math.Abs(s-2.0) > 1e-6 {
		t.Fatalf("joint speed = %v, want 2", s)
	}
	if !near(wheel.WorldCenter(), rigid2d.Vec2{}, 1e-6) {
		t.Fatalf("wheel drifted to %v", wheel.WorldCenter())
	}

	// A weak motor cannot stop a spinning wheel at once.
	j.SetMaxMotorTorque(0.01)
	j.SetMotorSpeed(0.0)
	w.Step(testDt, velIters, posIters)
	if s := j.JointSpeed(); s < 1.9 {
		t.Fatalf("joint speed = %v after one weak braking step", s)
	}
	if torque := j.MotorTorque(1.0 / testDt); math.Abs(torque) > 0.01+1e-9 {
		t.Fatalf("motor torque %v exceeds its cap", torque)
	}
}

func TestRevoluteReactionForceHoldsWeight(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{Gravity: rigid2d.Vec2{Y: -10}})
	ground := addStatic(w, 0, 0)
	bob := addBox(w, 0, 8, 0.25)

	var jd rigid2d.RevoluteJointDef
	jd.Initialize(ground, bob, rigid2d.Vec2{Y: 10})
	j := w.CreateJoint(&jd)

	stepN(w, 30)

	f := j.ReactionForce(1.0 / testDt)
	weight := bob.Mass() * 10.0
	if math.Abs(f.Y-weight) > 0.01*weight || math.Abs(f.X) > 0.01*weight {
		t.Fatalf("reaction force = %v, want (0, %v)", f, weight)
	}
}

func TestDistanceJointHoldsLength(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{Gravity: rigid2d.Vec2{Y: -10}})
	ground := addStatic(w, 0, 0)
	bob := addBox(w, 2, 10, 0.25)

	jd := rigid2d.DefaultDistanceJointDef()
	jd.Initialize(ground, bob, rigid2d.Vec2{Y: 10}, bob.WorldCenter())
	j := w.CreateJoint(&jd).(*rigid2d.DistanceJoint)
	if j.Length() != 2.0 {
		t.Fatalf("length = %v, want 2", j.Length())
	}

	for i := 0; i < 120; i++ {
		w.Step(testDt, velIters, posIters)
		if d := rigid2d.Distance(j.AnchorA(), j.AnchorB()); math.Abs(d-2.0) > 0.02 {
			t.Fatalf("step %d: anchors %v apart, want 2", i, d)
		}
	}
}

func TestPrismaticLimitsTranslation(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{})
	ground := addStatic(w, 0, 0)
	slider := addBox(w, 0, 0, 0.25)
	slider.SetLinearVelocity(rigid2d.Vec2{X: 5, Y: 3})

	jd := rigid2d.DefaultPrismaticJointDef()
	jd.Initialize(ground, slider, slider.WorldCenter(), rigid2d.Vec2{X: 1})
	jd.EnableLimit = true
	jd.LowerTranslation = -1.0
	jd.UpperTranslation = 1.0
	j := w.CreateJoint(&jd).(*rigid2d.PrismaticJoint)

	stepN(w, 60)

	if y := slider.Position().Y; math.Abs(y) > 0.01 {
		t.Fatalf("slider left its axis: y = %v", y)
	}
	if tr := j.JointTranslation(); tr > 1.0+rigid2d.LinearSlop || tr < 0.9 {
		t.Fatalf("translation = %v, want at the upper limit 1", tr)
	}
	if math.Abs(slider.Angle()) > 1e-3 {
		t.Fatalf("slider rotated to %v", slider.Angle())
	}
}

func TestRopeCapsDistance(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{Gravity: rigid2d.Vec2{Y: -10}})
	ground := addStatic(w, 0, 10)
	ball := addBall(w, 0.5, 9, 0.2, rigid2d.Vec2{})

	jd := rigid2d.RopeJointDef{MaxLength: 3.0}
	jd.BodyA = ground
	jd.BodyB = ball
	j := w.CreateJoint(&jd).(*rigid2d.RopeJoint)

	for i := 0; i < 180; i++ {
		w.Step(testDt, velIters, posIters)
		if d := rigid2d.Distance(j.AnchorA(), j.AnchorB()); d > 3.0+0.02 {
			t.Fatalf("step %d: rope stretched to %v", i, d)
		}
	}
	if d := rigid2d.Distance(j.AnchorA(), j.AnchorB()); d < 3.0-0.05 {
		t.Fatalf("hanging rope is slack: %v", d)
	}
}

func TestWeldHoldsCantilever(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{Gravity: rigid2d.Vec2{Y: -10}})
	wall := addStatic(w, 0, 5)
	arm := addBox(w, 1, 5, 0.5)

	var jd rigid2d.WeldJointDef
	jd.Initialize(wall, arm, rigid2d.Vec2{X: 0.5, Y: 5})
	w.CreateJoint(&jd)

	stepN(w, 120)

	if d := rigid2d.Distance(arm.Position(), rigid2d.Vec2{X: 1, Y: 5}); d > 0.05 {
		t.Fatalf("welded arm sagged by %v", d)
	}
	if math.Abs(arm.Angle()) > 0.05 {
		t.Fatalf("welded arm rotated to %v", arm.Angle())
	}
}

func TestPulleyKeepsRopeLength(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{Gravity: rigid2d.Vec2{Y: -10}})
	light := addBox(w, -2, 5, 0.5)
	heavy := addBox(w, 2, 5, 0.7)

	jd := rigid2d.DefaultPulleyJointDef()
	jd.Initialize(light, heavy,
		rigid2d.Vec2{X: -2, Y: 10}, rigid2d.Vec2{X: 2, Y: 10},
		light.WorldCenter(), heavy.WorldCenter(), 1.0)
	j := w.CreateJoint(&jd).(*rigid2d.PulleyJoint)

	stepN(w, 60)

	if total := j.CurrentLengthA() + j.CurrentLengthB(); math.Abs(total-10.0) > 0.02 {
		t.Fatalf("rope length = %v, want 10", total)
	}
	if heavy.Position().Y >= 5.0 || light.Position().Y <= 5.0 {
		t.Fatalf("heavy at %v, light at %v: the heavy side should descend", heavy.Position(), light.Position())
	}
}

func TestGearCouplesRevolutes(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{})
	ground := addStatic(w, 0, 0)
	small := addBall(w, 0, 0, 0.5, rigid2d.Vec2{})
	large := addBall(w, 3, 0, 1.0, rigid2d.Vec2{})

	var rd1 rigid2d.RevoluteJointDef
	rd1.Initialize(ground, small, small.WorldCenter())
	rd1.EnableMotor = true
	rd1.MotorSpeed = 1.0
	rd1.MaxMotorTorque = 1000.0
	j1 := w.CreateJoint(&rd1).(*rigid2d.RevoluteJoint)

	var rd2 rigid2d.RevoluteJointDef
	rd2.Initialize(ground, large, large.WorldCenter())
	j2 := w.CreateJoint(&rd2).(*rigid2d.RevoluteJoint)

	gd := rigid2d.DefaultGearJointDef()
	gd.Joint1 = j1
	gd.Joint2 = j2
	gd.Ratio = 2.0
	gear := w.CreateJoint(&gd)
	if gear.BodyA() != small || gear.BodyB() != large {
		t.Fatal("gear bodies are not taken from the coupled joints")
	}

	stepN(w, 60)

	if j1.JointAngle() < 0.5 {
		t.Fatalf("driven wheel turned only %v", j1.JointAngle())
	}
	if c := j1.JointAngle() + 2.0*j2.JointAngle(); math.Abs(c) > 0.01 {
		t.Fatalf("angle1 + 2*angle2 = %v, want 0", c)
	}
}

func TestMouseDragsBodyToTarget(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{})
	ground := addStatic(w, 0, 0)
	box := addBox(w, 0, 0, 0.5)

	jd := rigid2d.DefaultMouseJointDef()
	jd.BodyA = ground
	jd.BodyB = box
	jd.Target = box.WorldCenter()
	jd.MaxForce = 1000.0 * box.Mass()
	j := w.CreateJoint(&jd).(*rigid2d.MouseJoint)

	target := rigid2d.Vec2{X: 3, Y: 1}
	j.SetTarget(target)
	stepN(w, 180)

	if d := rigid2d.Distance(box.WorldCenter(), target); d > 0.05 {
		t.Fatalf("box is %v from the target", d)
	}

	w.ShiftOrigin(rigid2d.Vec2{X: 3})
	if !near(j.Target(), rigid2d.Vec2{Y: 1}, 1e-12) {
		t.Fatalf("target after shift = %v", j.Target())
	}
}

func TestDestroyJointSwapsLastIntoPlace(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{})
	ground := addStatic(w, 0, 0)

	var joints []rigid2d.Joint
	for i := 0; i < 3; i++ {
		b := addBox(w, float64(3*i), 0, 0.5)
		var jd rigid2d.RevoluteJointDef
		jd.Initialize(ground, b, b.WorldCenter())
		joints = append(joints, w.CreateJoint(&jd))
	}

	w.DestroyJoint(joints[0])

	got := w.Joints()
	if len(got) != 2 || got[0] != joints[2] || got[1] != joints[1] {
		t.Fatalf("joints after destroy = %v", got)
	}
	if len(ground.JointEdges()) != 2 {
		t.Fatalf("ground keeps %d joint edges, want 2", len(ground.JointEdges()))
	}

	// The remaining joints still solve.
	w.Step(testDt, velIters, posIters)
	w.DestroyJoint(joints[2])
	w.DestroyJoint(joints[1])
	if w.JointCount() != 0 || len(ground.JointEdges()) != 0 {
		t.Fatal("joints left after destroying all of them")
	}
}

func TestLinearStiffness(t *testing.T) {
	w := rigid2d.NewWorld(rigid2d.WorldDef{})
	ground := addStatic(w, 0, 0)
	a := addBox(w, 0, 0, 0.5)
	b := addBox(w, 3, 0, 0.5)

	// Two unit masses share a reduced mass of one half.
	omega := 2.0 * math.Pi * 2.0
	k, d := rigid2d.LinearStiffness(2.0, 0.5, a, b)
	if math.Abs(k-0.5*omega*omega) > 1e-9 || math.Abs(d-0.5*omega) > 1e-9 {
		t.Fatalf("stiffness = %v, damping = %v", k, d)
	}

	// Against a static body the full mass is used.
	k, _ = rigid2d.LinearStiffness(2.0, 0.5, ground, a)
	if math.Abs(k-omega*omega) > 1e-9 {
		t.Fatalf("stiffness against ground = %v", k)
	}
}
