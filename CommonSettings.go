package rigid2d

import (
	"errors"
	"fmt"
	"math"
)

// Global tuning constants based on meters-kilograms-seconds (MKS) units.
// The solver, sleep and continuous-collision knobs among them are only
// defaults: a world reads the live values from its Tuning.

const MaxFloat = math.MaxFloat64

// Epsilon is the single precision machine epsilon. Distances and fractions
// below it are treated as zero.
const Epsilon = 1.1920929e-7

// Collision

// MaxManifoldPoints is the maximum number of contact points between two convex shapes.
const MaxManifoldPoints = 2

// MaxPolygonVertices is the maximum number of vertices on a convex polygon.
const MaxPolygonVertices = 8

// AABBExtension fattens AABBs in the dynamic tree. This allows proxies to move
// by a small amount without triggering a tree adjustment. In meters.
const AABBExtension = 0.1

// AABBMultiplier fattens AABBs in the dynamic tree along the predicted displacement.
const AABBMultiplier = 2.0

// LinearSlop is a small length used as a collision and constraint tolerance.
// It is chosen to be numerically significant, but visually insignificant.
const LinearSlop = 0.005

// AngularSlop is a small angle used as a collision and constraint tolerance.
const AngularSlop = 2.0 / 180.0 * math.Pi

// PolygonRadius is the skin of polygon and edge shapes. Making it smaller
// leaves polygons an insufficient buffer for continuous collision.
const PolygonRadius = 2.0 * LinearSlop

// TOIMaxIterations bounds the conservative advancement loop of TimeOfImpact.
const TOIMaxIterations = 20

// TOIMaxRootIterations bounds the bisection/secant root finder of TimeOfImpact.
const TOIMaxRootIterations = 50

// Dynamics

// DefaultMaxSubSteps is the maximum number of sub-steps per contact in continuous physics.
const DefaultMaxSubSteps = 8

// DefaultMaxTOIContacts is the maximum number of contacts handled to solve a TOI impact.
const DefaultMaxTOIContacts = 32

// DefaultTOIPositionIterations is the position iteration budget of a TOI sub-step.
const DefaultTOIPositionIterations = 20

// DefaultVelocityThreshold: collisions with a relative linear velocity below
// this are treated as inelastic.
const DefaultVelocityThreshold = 1.0

// DefaultMaxLinearCorrection is the maximum linear position correction used
// when solving constraints. This helps to prevent overshoot.
const DefaultMaxLinearCorrection = 0.2

// DefaultMaxAngularCorrection is the maximum angular position correction used
// when solving constraints.
const DefaultMaxAngularCorrection = 8.0 / 180.0 * math.Pi

// DefaultMaxTranslation is the maximum distance a body may travel in one step.
// This limit is very large and only prevents numerical problems.
const DefaultMaxTranslation = 2.0

// DefaultBaumgarte controls how fast overlap is resolved.
const DefaultBaumgarte = 0.2

// DefaultTOIBaumgarte is the Baumgarte factor used during TOI sub-steps.
const DefaultTOIBaumgarte = 0.75

// Sleep

// DefaultTimeToSleep is the time a body must be still before it will go to sleep.
const DefaultTimeToSleep = 0.5

// DefaultLinearSleepTolerance: a body cannot sleep if its linear velocity is above this.
const DefaultLinearSleepTolerance = 0.01

// DefaultAngularSleepTolerance: a body cannot sleep if its angular velocity is above this.
const DefaultAngularSleepTolerance = 2.0 / 180.0 * math.Pi

// ErrWorldLocked is the panic value raised when the world structure is
// mutated from inside a time step (typically from a callback).
var ErrWorldLocked = errors.New("rigid2d: world is locked")

func assert(cond bool, msg string) {
	if !cond {
		panic(fmt.Sprintf("rigid2d: %s", msg))
	}
}

// mixFriction uses the geometric mean, so either fixture can drive friction to zero.
func mixFriction(friction1, friction2 float64) float64 {
	return math.Sqrt(friction1 * friction2)
}

// mixRestitution lets anything bounce off an inelastic surface.
func mixRestitution(restitution1, restitution2 float64) float64 {
	return math.Max(restitution1, restitution2)
}
