package rigid2d_test

import (
	"math"
	"testing"

	"github.com/ByteArena/rigid2d"
)

const geomTol = 1e-9

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func near(a, b rigid2d.Vec2, tol float64) bool {
	return approx(a.X, b.X, tol) && approx(a.Y, b.Y, tol)
}

func TestCollideCircles(t *testing.T) {
	a := rigid2d.NewCircleShape(rigid2d.Vec2{}, 1.0)
	b := rigid2d.NewCircleShape(rigid2d.Vec2{}, 0.5)
	xfA := rigid2d.IdentityTransform()
	xfB := rigid2d.NewTransform(rigid2d.Vec2{X: 1.2}, 0.3)

	var m rigid2d.Manifold
	rigid2d.CollideCircles(&m, a, xfA, b, xfB)
	if m.PointCount != 1 || m.Type != rigid2d.ManifoldCircles {
		t.Fatalf("manifold = %+v, want one circle point", m)
	}

	var wm rigid2d.WorldManifold
	wm.Initialize(&m, xfA, a.R, xfB, b.R)
	if !near(wm.Normal, rigid2d.Vec2{X: 1}, geomTol) {
		t.Fatalf("normal = %v, want (1, 0)", wm.Normal)
	}
	if !approx(wm.Separations[0], -0.3, geomTol) {
		t.Fatalf("separation = %v, want -0.3", wm.Separations[0])
	}
	if !near(wm.Points[0], rigid2d.Vec2{X: 0.85}, geomTol) {
		t.Fatalf("point = %v, want (0.85, 0)", wm.Points[0])
	}

	// Move B out of reach.
	rigid2d.CollideCircles(&m, a, xfA, b, rigid2d.NewTransform(rigid2d.Vec2{X: 1.6}, 0))
	if m.PointCount != 0 {
		t.Fatalf("separated circles produced %d points", m.PointCount)
	}
}

func TestCollidePolygonsStackedBoxes(t *testing.T) {
	ground := rigid2d.NewBoxShape(1.0, 1.0)
	box := rigid2d.NewBoxShape(0.5, 0.5)
	xfA := rigid2d.IdentityTransform()
	xfB := rigid2d.NewTransform(rigid2d.Vec2{Y: 1.45}, 0)

	var m rigid2d.Manifold
	rigid2d.CollidePolygons(&m, ground, xfA, box, xfB)
	if m.PointCount != 2 {
		t.Fatalf("point count = %d, want 2", m.PointCount)
	}

	var wm rigid2d.WorldManifold
	wm.Initialize(&m, xfA, ground.Radius(), xfB, box.Radius())
	if !near(wm.Normal, rigid2d.Vec2{Y: 1}, geomTol) {
		t.Fatalf("normal = %v, want (0, 1)", wm.Normal)
	}

	want := -0.05 - 2.0*rigid2d.PolygonRadius
	for i := 0; i < m.PointCount; i++ {
		if !approx(wm.Separations[i], want, geomTol) {
			t.Fatalf("separation[%d] = %v, want %v", i, wm.Separations[i], want)
		}
		if math.Abs(math.Abs(wm.Points[i].X)-0.5) > geomTol {
			t.Fatalf("point[%d] = %v, want a corner of the small box", i, wm.Points[i])
		}
	}

	// Contact ids are stable so warm starting can match points.
	if m.Points[0].ID.Key() == m.Points[1].ID.Key() {
		t.Fatalf("both points share id %v", m.Points[0].ID)
	}
}

func TestCollidePolygonAndCircle(t *testing.T) {
	box := rigid2d.NewBoxShape(1.0, 1.0)
	ball := rigid2d.NewCircleShape(rigid2d.Vec2{}, 0.25)

	var m rigid2d.Manifold
	rigid2d.CollidePolygonAndCircle(&m, box, rigid2d.IdentityTransform(), ball, rigid2d.NewTransform(rigid2d.Vec2{X: 1.2}, 0))
	if m.PointCount != 1 || m.Type != rigid2d.ManifoldFaceA {
		t.Fatalf("manifold = %+v, want one face point", m)
	}
	if !near(m.LocalNormal, rigid2d.Vec2{X: 1}, geomTol) {
		t.Fatalf("local normal = %v, want (1, 0)", m.LocalNormal)
	}

	rigid2d.CollidePolygonAndCircle(&m, box, rigid2d.IdentityTransform(), ball, rigid2d.NewTransform(rigid2d.Vec2{X: 2.0}, 0))
	if m.PointCount != 0 {
		t.Fatalf("separated shapes produced %d points", m.PointCount)
	}
}

func TestComputeDistance(t *testing.T) {
	box := rigid2d.NewBoxShape(0.5, 0.5)
	input := rigid2d.DistanceInput{
		ProxyA:     rigid2d.NewDistanceProxy(box, 0),
		ProxyB:     rigid2d.NewDistanceProxy(box, 0),
		TransformA: rigid2d.IdentityTransform(),
		TransformB: rigid2d.NewTransform(rigid2d.Vec2{X: 3.0}, 0),
	}

	var cache rigid2d.SimplexCache
	var out rigid2d.DistanceOutput
	rigid2d.ComputeDistance(&out, &cache, &input)
	if !approx(out.Distance, 2.0, geomTol) {
		t.Fatalf("distance = %v, want 2", out.Distance)
	}
	if !approx(out.PointA.X, 0.5, geomTol) || !approx(out.PointB.X, 2.5, geomTol) {
		t.Fatalf("witness points = %v %v", out.PointA, out.PointB)
	}

	// Radii shrink the gap.
	input.UseRadii = true
	rigid2d.ComputeDistance(&out, &cache, &input)
	if !approx(out.Distance, 2.0-2.0*rigid2d.PolygonRadius, geomTol) {
		t.Fatalf("distance with radii = %v", out.Distance)
	}
}

func TestOverlapShapes(t *testing.T) {
	box := rigid2d.NewBoxShape(0.5, 0.5)
	edge := rigid2d.NewEdgeShape(rigid2d.Vec2{X: -5}, rigid2d.Vec2{X: 5})

	if !rigid2d.TestOverlap(box, 0, edge, 0, rigid2d.NewTransform(rigid2d.Vec2{Y: 0.4}, 0), rigid2d.IdentityTransform()) {
		t.Fatal("box crossing the edge does not overlap")
	}
	if rigid2d.TestOverlap(box, 0, edge, 0, rigid2d.NewTransform(rigid2d.Vec2{Y: 0.6}, 0), rigid2d.IdentityTransform()) {
		t.Fatal("box above the edge overlaps")
	}
}

func TestPolygonRayCastAndMass(t *testing.T) {
	box := rigid2d.NewBoxShape(1.0, 0.5)

	md := box.ComputeMass(2.0)
	if !approx(md.Mass, 4.0, geomTol) {
		t.Fatalf("mass = %v, want 4", md.Mass)
	}
	// I = m * (w^2 + h^2) / 12 about the centroid.
	if !approx(md.I, 4.0*(4.0+1.0)/12.0, geomTol) {
		t.Fatalf("inertia = %v", md.I)
	}

	out, hit := box.RayCast(rigid2d.RayCastInput{
		P1:          rigid2d.Vec2{X: -3},
		P2:          rigid2d.Vec2{X: 3},
		MaxFraction: 1,
	}, rigid2d.IdentityTransform(), 0)
	if !hit {
		t.Fatal("ray missed the box")
	}
	if !approx(out.Fraction, 2.0/6.0, geomTol) || !near(out.Normal, rigid2d.Vec2{X: -1}, geomTol) {
		t.Fatalf("hit = %+v", out)
	}
}
