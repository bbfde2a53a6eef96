package rigid2d

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ErrInvalidTuning is wrapped by every error returned from Tuning.Validate and LoadTuning.
var ErrInvalidTuning = errors.New("rigid2d: invalid tuning")

// TOINeighborPolicy selects which neighbours of a TOI body join the mini island
// built for a time-of-impact event.
type TOINeighborPolicy uint8

const (
	// TOINeighborsStaticKinematicBullet only adds contacts against static,
	// kinematic or bullet bodies (or any body when the TOI body is a bullet).
	TOINeighborsStaticKinematicBullet TOINeighborPolicy = iota
	// TOINeighborsAll also adds ordinary dynamic neighbours.
	TOINeighborsAll
)

func (p TOINeighborPolicy) String() string {
	switch p {
	case TOINeighborsStaticKinematicBullet:
		return "static-kinematic-bullet"
	case TOINeighborsAll:
		return "all"
	}
	return fmt.Sprintf("TOINeighborPolicy(%d)", uint8(p))
}

func (p TOINeighborPolicy) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

func (p *TOINeighborPolicy) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "static-kinematic-bullet", "":
		*p = TOINeighborsStaticKinematicBullet
	case "all":
		*p = TOINeighborsAll
	default:
		return fmt.Errorf("%w: unknown toi_neighbors policy %q", ErrInvalidTuning, s)
	}
	return nil
}

// Tuning holds the solver, sleep and continuous-collision knobs of a world.
type Tuning struct {
	VelocityThreshold    float64 `yaml:"velocity_threshold"`
	MaxLinearCorrection  float64 `yaml:"max_linear_correction"`
	MaxAngularCorrection float64 `yaml:"max_angular_correction"`
	MaxTranslation       float64 `yaml:"max_translation"`
	Baumgarte            float64 `yaml:"baumgarte"`
	TOIBaumgarte         float64 `yaml:"toi_baumgarte"`

	TimeToSleep           float64 `yaml:"time_to_sleep"`
	LinearSleepTolerance  float64 `yaml:"linear_sleep_tolerance"`
	AngularSleepTolerance float64 `yaml:"angular_sleep_tolerance"`

	MaxSubSteps           int               `yaml:"max_sub_steps"`
	MaxTOIContacts        int               `yaml:"max_toi_contacts"`
	TOIPositionIterations int               `yaml:"toi_position_iterations"`
	TOINeighbors          TOINeighborPolicy `yaml:"toi_neighbors"`
}

// DefaultTuning returns the reference values.
func DefaultTuning() Tuning {
	return Tuning{
		VelocityThreshold:     DefaultVelocityThreshold,
		MaxLinearCorrection:   DefaultMaxLinearCorrection,
		MaxAngularCorrection:  DefaultMaxAngularCorrection,
		MaxTranslation:        DefaultMaxTranslation,
		Baumgarte:             DefaultBaumgarte,
		TOIBaumgarte:          DefaultTOIBaumgarte,
		TimeToSleep:           DefaultTimeToSleep,
		LinearSleepTolerance:  DefaultLinearSleepTolerance,
		AngularSleepTolerance: DefaultAngularSleepTolerance,
		MaxSubSteps:           DefaultMaxSubSteps,
		MaxTOIContacts:        DefaultMaxTOIContacts,
		TOIPositionIterations: DefaultTOIPositionIterations,
		TOINeighbors:          TOINeighborsStaticKinematicBullet,
	}
}

// Validate checks ranges. The returned error wraps ErrInvalidTuning.
func (t Tuning) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if !(v > 0) || !IsValid(v) {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, v))
		}
	}
	nonNegative := func(name string, v float64) {
		if !(v >= 0) || !IsValid(v) {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %v", name, v))
		}
	}

	nonNegative("velocity_threshold", t.VelocityThreshold)
	positive("max_linear_correction", t.MaxLinearCorrection)
	positive("max_angular_correction", t.MaxAngularCorrection)
	positive("max_translation", t.MaxTranslation)
	nonNegative("time_to_sleep", t.TimeToSleep)
	nonNegative("linear_sleep_tolerance", t.LinearSleepTolerance)
	nonNegative("angular_sleep_tolerance", t.AngularSleepTolerance)

	if t.Baumgarte <= 0 || t.Baumgarte > 1 {
		errs = append(errs, fmt.Errorf("baumgarte must be in (0, 1], got %v", t.Baumgarte))
	}
	if t.TOIBaumgarte <= 0 || t.TOIBaumgarte > 1 {
		errs = append(errs, fmt.Errorf("toi_baumgarte must be in (0, 1], got %v", t.TOIBaumgarte))
	}
	if t.MaxSubSteps < 1 {
		errs = append(errs, fmt.Errorf("max_sub_steps must be at least 1, got %d", t.MaxSubSteps))
	}
	if t.MaxTOIContacts < 1 {
		errs = append(errs, fmt.Errorf("max_toi_contacts must be at least 1, got %d", t.MaxTOIContacts))
	}
	if t.TOIPositionIterations < 1 {
		errs = append(errs, fmt.Errorf("toi_position_iterations must be at least 1, got %d", t.TOIPositionIterations))
	}
	if t.TOINeighbors > TOINeighborsAll {
		errs = append(errs, fmt.Errorf("toi_neighbors: unknown policy %d", t.TOINeighbors))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidTuning, errors.Join(errs...))
}

// LoadTuning decodes a YAML document over DefaultTuning. Keys that are absent
// keep their default; unknown keys are rejected.
func LoadTuning(r io.Reader) (Tuning, error) {
	t := DefaultTuning()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		if errors.Is(err, ErrInvalidTuning) {
			return Tuning{}, err
		}
		return Tuning{}, fmt.Errorf("%w: decode: %w", ErrInvalidTuning, err)
	}

	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}
