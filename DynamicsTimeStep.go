package rigid2d

import "time"

// Profile holds the wall time spent in each phase of the last Step.
type Profile struct {
	Step          time.Duration
	Collide       time.Duration
	Solve         time.Duration
	SolveInit     time.Duration
	SolveVelocity time.Duration
	SolvePosition time.Duration
	Broadphase    time.Duration
	SolveTOI      time.Duration
}

// TOIStats accumulates time of impact work over the life of a world.
type TOIStats struct {
	Calls             int
	Iterations        int
	MaxIterations     int
	RootIterations    int
	MaxRootIterations int
	Failed            int
	Overlapped        int
}

func (s *TOIStats) record(out TOIOutput) {
	s.Calls++
	s.Iterations += out.Iterations
	s.MaxIterations = max(s.MaxIterations, out.Iterations)
	s.RootIterations += out.RootIterations
	s.MaxRootIterations = max(s.MaxRootIterations, out.MaxRootIterations)
	switch out.State {
	case TOIFailed:
		s.Failed++
	case TOIOverlapped:
		s.Overlapped++
	}
}

type timeStep struct {
	dt      float64 // time step
	invDt   float64 // inverse time step (0 if dt == 0)
	dtRatio float64 // dt * invDt0

	velocityIterations int
	positionIterations int
	warmStarting       bool
}

type position struct {
	c Vec2
	a float64
}

type velocity struct {
	v Vec2
	w float64
}

// solverData is handed to joints during the island solve.
type solverData struct {
	step       timeStep
	positions  []position
	velocities []velocity
	tuning     *Tuning
}
