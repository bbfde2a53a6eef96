package rigid2d

import (
	"bytes"
	"log/slog"
	"slices"
	"strings"
	"testing"
)

func newTestBody(w *World, bodyType BodyType, position Vec2, shape Shape) *Body {
	def := DefaultBodyDef()
	def.Type = bodyType
	def.Position = position
	b := w.CreateBody(&def)
	b.CreateFixture(shape, 1.0)
	return b
}

func TestTOINeighborPolicy(t *testing.T) {
	tests := []struct {
		policy TOINeighborPolicy
		bodies int
	}{
		{TOINeighborsStaticKinematicBullet, 2},
		{TOINeighborsAll, 3},
	}

	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			tuning := DefaultTuning()
			tuning.TOINeighbors = tt.policy
			w := NewWorld(WorldDef{Tuning: &tuning})

			ground := newTestBody(w, StaticBody, Vec2{}, NewEdgeShape(Vec2{X: -10}, Vec2{X: 10}))
			mover := newTestBody(w, DynamicBody, Vec2{Y: 0.5}, NewBoxShape(0.5, 0.5))
			neighbor := newTestBody(w, DynamicBody, Vec2{X: 1.0, Y: 0.5}, NewBoxShape(0.5, 0.5))

			// A zero step finds the contacts and computes their manifolds.
			w.Step(0, 8, 3)
			if w.ContactCount() != 3 {
				t.Fatalf("contacts = %d, want 3", w.ContactCount())
			}

			var is island
			is.init(2*tuning.MaxTOIContacts, tuning.MaxTOIContacts, 0, nil, &w.tuning)
			is.addBody(mover)
			mover.flags |= bodyIsland
			w.addTOINeighbors(&is, mover, 0)

			if len(is.bodies) != tt.bodies {
				t.Fatalf("island bodies = %d, want %d", len(is.bodies), tt.bodies)
			}
			if is.bodies[0] != mover || !slices.Contains(is.bodies, ground) {
				t.Fatalf("island is missing the ground: %v", is.bodies)
			}
			if got := slices.Contains(is.bodies, neighbor); got != (tt.policy == TOINeighborsAll) {
				t.Fatalf("dynamic neighbor in island = %v", got)
			}
			if len(is.contacts) != tt.bodies-1 {
				t.Fatalf("island contacts = %d, want %d", len(is.contacts), tt.bodies-1)
			}
		})
	}
}

func TestTOISubStepCap(t *testing.T) {
	var logs bytes.Buffer
	tuning := DefaultTuning()
	tuning.MaxSubSteps = 1
	w := NewWorld(WorldDef{
		Tuning: &tuning,
		Logger: slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})

	// A fast elastic ball between two close walls bounces several times
	// within one step.
	walls := newTestBody(w, StaticBody, Vec2{}, NewEdgeShape(Vec2{X: -0.25, Y: -1}, Vec2{X: -0.25, Y: 1}))
	walls.CreateFixture(NewEdgeShape(Vec2{X: 0.25, Y: -1}, Vec2{X: 0.25, Y: 1}), 0)
	for _, f := range walls.Fixtures() {
		f.SetRestitution(1.0)
	}

	ball := newTestBody(w, DynamicBody, Vec2{}, NewCircleShape(Vec2{}, 0.1))
	ball.Fixtures()[0].SetRestitution(1.0)
	ball.SetLinearVelocity(Vec2{X: 90})

	w.Step(1.0/60.0, 8, 3)

	reached := false
	for _, c := range w.contactManager.contacts {
		if c.toiCount > tuning.MaxSubSteps+1 {
			t.Fatalf("contact took %d sub-steps, cap is %d", c.toiCount, tuning.MaxSubSteps)
		}
		if c.toiCount == tuning.MaxSubSteps+1 {
			reached = true
		}
	}
	if !reached {
		t.Fatal("no contact reached the sub-step cap")
	}
	if !strings.Contains(logs.String(), "contact reached sub-step cap") {
		t.Fatalf("log = %q", logs.String())
	}
}
