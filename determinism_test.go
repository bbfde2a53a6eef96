package rigid2d_test

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/ByteArena/rigid2d"
	"github.com/pmezard/go-difflib/difflib"
)

// charactersScene builds ground shapes of every kind and a few characters
// falling on them, plus a pendulum and a bullet to drive joints and TOI.
func charactersScene() (*rigid2d.World, map[string]*rigid2d.Body) {
	world := rigid2d.NewWorld(rigid2d.WorldDef{Gravity: rigid2d.Vec2{Y: -10}})
	characters := make(map[string]*rigid2d.Body)

	static := func(position rigid2d.Vec2, angle float64) *rigid2d.Body {
		bd := rigid2d.DefaultBodyDef()
		bd.Position = position
		bd.Angle = angle
		return world.CreateBody(&bd)
	}

	// Ground body
	{
		ground := static(rigid2d.Vec2{}, 0)
		ground.CreateFixture(rigid2d.NewEdgeShape(rigid2d.Vec2{X: -20}, rigid2d.Vec2{X: 20}), 0)
		characters["00_ground"] = ground
	}

	// Collinear edges with no adjacency information. A box can catch on the
	// internal vertices.
	{
		ground := static(rigid2d.Vec2{}, 0)
		for x := -8.0; x < -2.0; x += 2.0 {
			ground.CreateFixture(rigid2d.NewEdgeShape(rigid2d.Vec2{X: x, Y: 1}, rigid2d.Vec2{X: x + 2, Y: 1}), 0)
		}
		characters["01_colinearground"] = ground
	}

	// Chain shape
	{
		ground := static(rigid2d.Vec2{}, 0.25*math.Pi)
		ground.CreateFixture(rigid2d.NewChain([]rigid2d.Vec2{
			{X: 5, Y: 7}, {X: 6, Y: 8}, {X: 7, Y: 8}, {X: 8, Y: 7},
		}), 0)
		characters["02_chainshape"] = ground
	}

	// Square tiles
	{
		ground := static(rigid2d.Vec2{}, 0)
		for _, x := range []float64{4, 6, 8} {
			tile := rigid2d.NewBoxShape(1, 1)
			tile.SetAsOrientedBox(1, 1, rigid2d.Vec2{X: x, Y: 3}, 0)
			ground.CreateFixture(tile, 0)
		}
		characters["03_squaretiles"] = ground
	}

	// Square made from an edge loop.
	{
		ground := static(rigid2d.Vec2{}, 0)
		ground.CreateFixture(rigid2d.NewChainLoop([]rigid2d.Vec2{
			{X: -1, Y: 3}, {X: 1, Y: 3}, {X: 1, Y: 5}, {X: -1, Y: 5},
		}), 0)
		characters["04_edgeloopsquare"] = ground
	}

	// Edge loop
	{
		ground := static(rigid2d.Vec2{X: -10, Y: 4}, 0)
		ground.CreateFixture(rigid2d.NewChainLoop([]rigid2d.Vec2{
			{X: 0, Y: 0}, {X: 6, Y: 0}, {X: 6, Y: 2}, {X: 4, Y: 1}, {X: 2, Y: 2},
			{X: 0, Y: 2}, {X: -2, Y: 2}, {X: -4, Y: 3}, {X: -6, Y: 2}, {X: -6, Y: 0},
		}), 0)
		characters["05_edgelooppoly"] = ground
	}

	character := func(name string, position rigid2d.Vec2, fixedRotation bool, shape rigid2d.Shape, friction float64) {
		bd := rigid2d.DefaultBodyDef()
		bd.Type = rigid2d.DynamicBody
		bd.Position = position
		bd.FixedRotation = fixedRotation
		bd.AllowSleep = false
		body := world.CreateBody(&bd)

		fd := rigid2d.DefaultFixtureDef()
		fd.Shape = shape
		fd.Density = 20.0
		fd.Friction = friction
		body.CreateFixtureFromDef(&fd)
		characters[name] = body
	}

	character("06_squarecharacter1", rigid2d.Vec2{X: -3, Y: 8}, true, rigid2d.NewBoxShape(0.5, 0.5), 0.2)
	character("07_squarecharacter2", rigid2d.Vec2{X: -5, Y: 5}, true, rigid2d.NewBoxShape(0.25, 0.25), 0.2)

	hexagon := make([]rigid2d.Vec2, 6)
	for i := range hexagon {
		angle := float64(i) * math.Pi / 3.0
		hexagon[i] = rigid2d.Vec2{X: 0.5 * math.Cos(angle), Y: 0.5 * math.Sin(angle)}
	}
	character("08_hexagoncharacter", rigid2d.Vec2{X: -5, Y: 8}, true, rigid2d.NewPolygonShape(hexagon), 0.2)
	character("09_circlecharacter1", rigid2d.Vec2{X: 3, Y: 5}, true, rigid2d.NewCircleShape(rigid2d.Vec2{}, 0.5), 0.2)
	character("10_circlecharacter2", rigid2d.Vec2{X: -7, Y: 6}, false, rigid2d.NewCircleShape(rigid2d.Vec2{}, 0.25), 1.0)

	// Pendulum hanging from the ground.
	{
		character("11_pendulum", rigid2d.Vec2{X: 14, Y: 6}, false, rigid2d.NewBoxShape(0.25, 0.25), 0.2)
		var jd rigid2d.RevoluteJointDef
		jd.Initialize(characters["00_ground"], characters["11_pendulum"], rigid2d.Vec2{X: 12, Y: 6})
		world.CreateJoint(&jd)
	}

	// Bullet fired at the tiles.
	{
		character("12_bullet", rigid2d.Vec2{X: 16, Y: 3}, false, rigid2d.NewCircleShape(rigid2d.Vec2{}, 0.1), 0.2)
		bullet := characters["12_bullet"]
		bullet.SetBullet(true)
		bullet.SetLinearVelocity(rigid2d.Vec2{X: -120})
	}

	return world, characters
}

func traceScene(steps int) string {
	world, characters := charactersScene()

	names := make([]string, 0, len(characters))
	for name := range characters {
		names = append(names, name)
	}
	slices.Sort(names)

	var out strings.Builder
	for i := 0; i < steps; i++ {
		world.Step(1.0/60.0, 8, 3)

		for _, name := range names {
			body := characters[name]
			p := body.Position()
			fmt.Fprintf(&out, "%v(%s): %.17g %.17g %.17g\n", i, name, p.X, p.Y, body.Angle())
		}
	}
	return out.String()
}

func TestDeterministicReplay(t *testing.T) {
	expected := traceScene(120)
	current := traceScene(120)

	if current != expected {
		diff := difflib.UnifiedDiff{
			A:        difflib.SplitLines(expected),
			B:        difflib.SplitLines(current),
			FromFile: "First run",
			ToFile:   "Second run",
			Context:  0,
		}
		text, _ := difflib.GetUnifiedDiffString(diff)
		t.Fatalf("replay diverged:\n%s", text)
	}
}

func TestCharactersSceneStaysFinite(t *testing.T) {
	world, characters := charactersScene()
	for i := 0; i < 240; i++ {
		world.Step(1.0/60.0, 8, 3)
	}

	for name, body := range characters {
		p := body.Position()
		if !p.IsValid() || math.IsNaN(body.Angle()) {
			t.Fatalf("%s left the finite range: %v", name, p)
		}
		if p.Y < -1.0 {
			t.Fatalf("%s fell through the ground to %v", name, p)
		}
	}
	if world.ContactCount() == 0 {
		t.Fatal("no contacts in a settled scene")
	}
}
