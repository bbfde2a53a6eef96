package rigid2d_test

import (
	"math"
	"testing"

	"github.com/ByteArena/rigid2d"
)

func boxSweep(from, to rigid2d.Vec2, angleFrom, angleTo float64) rigid2d.Sweep {
	return rigid2d.Sweep{C0: from, C: to, A0: angleFrom, A: angleTo}
}

func TestTimeOfImpactOverlapped(t *testing.T) {
	box := rigid2d.NewBoxShape(0.5, 0.5)
	input := rigid2d.TOIInput{
		ProxyA: rigid2d.NewDistanceProxy(box, 0),
		ProxyB: rigid2d.NewDistanceProxy(box, 0),
		SweepA: boxSweep(rigid2d.Vec2{}, rigid2d.Vec2{}, 0, 0),
		SweepB: boxSweep(rigid2d.Vec2{X: 0.25}, rigid2d.Vec2{X: 2.0}, 0, 0),
		TMax:   1.0,
	}

	out := rigid2d.TimeOfImpact(&input)
	if out.State != rigid2d.TOIOverlapped || out.T != 0.0 {
		t.Fatalf("got %v at t=%v, want overlapped at 0", out.State, out.T)
	}
}

func TestTimeOfImpactSeparated(t *testing.T) {
	box := rigid2d.NewBoxShape(0.5, 0.5)
	input := rigid2d.TOIInput{
		ProxyA: rigid2d.NewDistanceProxy(box, 0),
		ProxyB: rigid2d.NewDistanceProxy(box, 0),
		SweepA: boxSweep(rigid2d.Vec2{}, rigid2d.Vec2{}, 0, 0),
		SweepB: boxSweep(rigid2d.Vec2{X: 3.0}, rigid2d.Vec2{X: 5.0}, 0, 0),
		TMax:   0.75,
	}

	out := rigid2d.TimeOfImpact(&input)
	if out.State != rigid2d.TOISeparated || out.T != 0.75 {
		t.Fatalf("got %v at t=%v, want separated at tMax", out.State, out.T)
	}
}

func TestTimeOfImpactTouching(t *testing.T) {
	box := rigid2d.NewBoxShape(0.5, 0.5)
	input := rigid2d.TOIInput{
		ProxyA: rigid2d.NewDistanceProxy(box, 0),
		ProxyB: rigid2d.NewDistanceProxy(box, 0),
		SweepA: boxSweep(rigid2d.Vec2{}, rigid2d.Vec2{}, 0, 0),
		SweepB: boxSweep(rigid2d.Vec2{X: 3.0}, rigid2d.Vec2{X: -3.0}, 0, 0),
		TMax:   1.0,
	}

	out := rigid2d.TimeOfImpact(&input)
	if out.State != rigid2d.TOITouching {
		t.Fatalf("state = %v, want touching", out.State)
	}

	// The cores touch when B's center reaches x = 1 + target.
	target := math.Max(rigid2d.LinearSlop, 2.0*rigid2d.PolygonRadius-3.0*rigid2d.LinearSlop)
	want := (3.0 - (1.0 + target)) / 6.0
	if math.Abs(out.T-want) > 0.25*rigid2d.LinearSlop/6.0+1e-9 {
		t.Fatalf("t = %v, want %v", out.T, want)
	}

	// The shapes must still be apart at the reported time.
	var cache rigid2d.SimplexCache
	var dist rigid2d.DistanceOutput
	rigid2d.ComputeDistance(&dist, &cache, &rigid2d.DistanceInput{
		ProxyA:     input.ProxyA,
		ProxyB:     input.ProxyB,
		TransformA: input.SweepA.Transform(out.T),
		TransformB: input.SweepB.Transform(out.T),
	})
	if dist.Distance <= 0.0 {
		t.Fatalf("cores overlap at the time of impact: %v", dist.Distance)
	}
	if out.Iterations < 1 {
		t.Fatalf("iterations = %d, want at least one", out.Iterations)
	}
	if out.MaxRootIterations > out.RootIterations || out.MaxRootIterations > rigid2d.TOIMaxRootIterations {
		t.Fatalf("max root iterations = %d, total %d", out.MaxRootIterations, out.RootIterations)
	}
}

func TestTimeOfImpactRotatingBar(t *testing.T) {
	bar := rigid2d.NewBoxShape(2.0, 0.05)
	ball := rigid2d.NewCircleShape(rigid2d.Vec2{}, 0.1)

	// The bar sweeps a quarter turn and hits the ball resting above its tip.
	input := rigid2d.TOIInput{
		ProxyA: rigid2d.NewDistanceProxy(bar, 0),
		ProxyB: rigid2d.NewDistanceProxy(ball, 0),
		SweepA: boxSweep(rigid2d.Vec2{}, rigid2d.Vec2{}, 0, 0.5*math.Pi),
		SweepB: boxSweep(rigid2d.Vec2{X: 1.0, Y: 1.0}, rigid2d.Vec2{X: 1.0, Y: 1.0}, 0, 0),
		TMax:   1.0,
	}

	out := rigid2d.TimeOfImpact(&input)
	if out.State != rigid2d.TOITouching {
		t.Fatalf("state = %v, want touching", out.State)
	}
	if out.T <= 0.0 || out.T >= 1.0 {
		t.Fatalf("t = %v, want inside (0, 1)", out.T)
	}
}

func TestTimeOfImpactCircles(t *testing.T) {
	ball := rigid2d.NewCircleShape(rigid2d.Vec2{}, 0.5)
	proxy := rigid2d.NewDistanceProxy(ball, 0)

	tests := []struct {
		name   string
		sweepB rigid2d.Sweep
		tMax   float64
		state  rigid2d.TOIState
		t      float64
	}{
		{"coincident centers", boxSweep(rigid2d.Vec2{}, rigid2d.Vec2{X: 4}, 0, 0), 1.0, rigid2d.TOIOverlapped, 0.0},
		// Distance ignores the radii, so rounded cores that overlap are only touching.
		{"cores within reach at start", boxSweep(rigid2d.Vec2{X: 0.5}, rigid2d.Vec2{X: 4}, 0, 0), 1.0, rigid2d.TOITouching, 0.0},
		{"passing far above", boxSweep(rigid2d.Vec2{X: -4, Y: 3}, rigid2d.Vec2{X: 4, Y: 3}, 0, 0), 1.0, rigid2d.TOISeparated, 1.0},
		{"moving away", boxSweep(rigid2d.Vec2{X: 2}, rigid2d.Vec2{X: 6}, 0, 0), 0.5, rigid2d.TOISeparated, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := rigid2d.TimeOfImpact(&rigid2d.TOIInput{
				ProxyA: proxy,
				ProxyB: proxy,
				SweepA: boxSweep(rigid2d.Vec2{}, rigid2d.Vec2{}, 0, 0),
				SweepB: tt.sweepB,
				TMax:   tt.tMax,
			})
			if out.State != tt.state || out.T != tt.t {
				t.Fatalf("got %v at t=%v, want %v at %v", out.State, out.T, tt.state, tt.t)
			}
		})
	}
}
