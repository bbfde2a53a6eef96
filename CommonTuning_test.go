package rigid2d_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ByteArena/rigid2d"
)

func TestLoadTuningDefaults(t *testing.T) {
	got, err := rigid2d.LoadTuning(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadTuning(empty): %v", err)
	}
	if got != rigid2d.DefaultTuning() {
		t.Fatalf("LoadTuning(empty) = %+v, want defaults", got)
	}
}

func TestLoadTuningOverrides(t *testing.T) {
	doc := `
time_to_sleep: 1.5
max_sub_steps: 4
toi_neighbors: all
`
	got, err := rigid2d.LoadTuning(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadTuning: %v", err)
	}

	want := rigid2d.DefaultTuning()
	want.TimeToSleep = 1.5
	want.MaxSubSteps = 4
	want.TOINeighbors = rigid2d.TOINeighborsAll
	if got != want {
		t.Fatalf("LoadTuning = %+v, want %+v", got, want)
	}
}

func TestLoadTuningErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "max_polygon_vertices: 12\n"},
		{"unknown policy", "toi_neighbors: some\n"},
		{"baumgarte out of range", "baumgarte: 1.5\n"},
		{"no sub steps", "max_sub_steps: 0\n"},
		{"negative tolerance", "linear_sleep_tolerance: -1\n"},
		{"not yaml", "max_translation: [1, 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rigid2d.LoadTuning(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, rigid2d.ErrInvalidTuning) {
				t.Fatalf("error %v does not wrap ErrInvalidTuning", err)
			}
		})
	}
}

func TestNewWorldRejectsInvalidTuning(t *testing.T) {
	tuning := rigid2d.DefaultTuning()
	tuning.MaxTranslation = 0

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, rigid2d.ErrInvalidTuning) {
			t.Fatalf("recovered %v, want ErrInvalidTuning", r)
		}
	}()
	rigid2d.NewWorld(rigid2d.WorldDef{Tuning: &tuning})
}
