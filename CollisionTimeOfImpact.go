package rigid2d

import (
	"fmt"
	"math"
)

// TOIInput describes two swept proxies. The sweep interval is [0, TMax].
type TOIInput struct {
	ProxyA DistanceProxy
	ProxyB DistanceProxy
	SweepA Sweep
	SweepB Sweep
	TMax   float64
}

type TOIState uint8

const (
	TOIUnknown TOIState = iota
	// TOIFailed: the root finder could not converge. Callers treat it as
	// touching at T.
	TOIFailed
	// TOIOverlapped: the shapes already overlap at the start of the sweep. T is 0.
	TOIOverlapped
	TOITouching
	// TOISeparated: the shapes never get within target distance. T is TMax.
	TOISeparated
)

func (s TOIState) String() string {
	switch s {
	case TOIUnknown:
		return "unknown"
	case TOIFailed:
		return "failed"
	case TOIOverlapped:
		return "overlapped"
	case TOITouching:
		return "touching"
	case TOISeparated:
		return "separated"
	}
	return fmt.Sprintf("TOIState(%d)", uint8(s))
}

// TOIOutput reports the outcome of TimeOfImpact, plus the work it took.
type TOIOutput struct {
	State          TOIState
	T              float64
	Iterations     int // outer conservative advancement iterations
	RootIterations int // total root finder iterations

	// MaxRootIterations is the longest single root solve.
	MaxRootIterations int
}

type separationKind uint8

const (
	separationPoints separationKind = iota
	separationFaceA
	separationFaceB
)

// separationFunction measures the distance between the shapes along one
// axis as a function of time.
type separationFunction struct {
	proxyA, proxyB *DistanceProxy
	sweepA, sweepB Sweep
	kind           separationKind
	localPoint     Vec2
	axis           Vec2
}

// initialize builds the axis from the simplex of the last distance query.
// It returns the separation at t1.
func (f *separationFunction) initialize(cache *SimplexCache, proxyA *DistanceProxy, sweepA Sweep, proxyB *DistanceProxy, sweepB Sweep, t1 float64) float64 {
	f.proxyA = proxyA
	f.proxyB = proxyB
	count := cache.Count
	assert(0 < count && count < 3, "separation function needs a 1 or 2 point simplex")

	f.sweepA = sweepA
	f.sweepB = sweepB

	xfA := f.sweepA.Transform(t1)
	xfB := f.sweepB.Transform(t1)

	if count == 1 {
		f.kind = separationPoints
		pointA := xfA.Apply(proxyA.Vertex(cache.IndexA[0]))
		pointB := xfB.Apply(proxyB.Vertex(cache.IndexB[0]))
		f.axis = pointB.Sub(pointA)
		return f.axis.Normalize()
	}

	if cache.IndexA[0] == cache.IndexA[1] {
		// Two points on B and one on A.
		f.kind = separationFaceB
		localPointB1 := proxyB.Vertex(cache.IndexB[0])
		localPointB2 := proxyB.Vertex(cache.IndexB[1])

		f.axis = CrossVS(localPointB2.Sub(localPointB1), 1.0).Normalized()
		normal := xfB.Q.Apply(f.axis)

		f.localPoint = localPointB1.Add(localPointB2).Scale(0.5)
		pointB := xfB.Apply(f.localPoint)
		pointA := xfA.Apply(proxyA.Vertex(cache.IndexA[0]))

		s := pointA.Sub(pointB).Dot(normal)
		if s < 0.0 {
			f.axis = f.axis.Neg()
			s = -s
		}
		return s
	}

	// Two points on A and one or two points on B.
	f.kind = separationFaceA
	localPointA1 := proxyA.Vertex(cache.IndexA[0])
	localPointA2 := proxyA.Vertex(cache.IndexA[1])

	f.axis = CrossVS(localPointA2.Sub(localPointA1), 1.0).Normalized()
	normal := xfA.Q.Apply(f.axis)

	f.localPoint = localPointA1.Add(localPointA2).Scale(0.5)
	pointA := xfA.Apply(f.localPoint)
	pointB := xfB.Apply(proxyB.Vertex(cache.IndexB[0]))

	s := pointB.Sub(pointA).Dot(normal)
	if s < 0.0 {
		f.axis = f.axis.Neg()
		s = -s
	}
	return s
}

// findMinSeparation returns the deepest points along the axis at time t and
// their separation.
func (f *separationFunction) findMinSeparation(t float64) (indexA, indexB int, separation float64) {
	xfA := f.sweepA.Transform(t)
	xfB := f.sweepB.Transform(t)

	switch f.kind {
	case separationPoints:
		axisA := xfA.Q.ApplyT(f.axis)
		axisB := xfB.Q.ApplyT(f.axis.Neg())

		indexA = f.proxyA.Support(axisA)
		indexB = f.proxyB.Support(axisB)

		pointA := xfA.Apply(f.proxyA.Vertex(indexA))
		pointB := xfB.Apply(f.proxyB.Vertex(indexB))
		return indexA, indexB, pointB.Sub(pointA).Dot(f.axis)

	case separationFaceA:
		normal := xfA.Q.Apply(f.axis)
		pointA := xfA.Apply(f.localPoint)

		indexB = f.proxyB.Support(xfB.Q.ApplyT(normal.Neg()))
		pointB := xfB.Apply(f.proxyB.Vertex(indexB))
		return -1, indexB, pointB.Sub(pointA).Dot(normal)

	case separationFaceB:
		normal := xfB.Q.Apply(f.axis)
		pointB := xfB.Apply(f.localPoint)

		indexA = f.proxyA.Support(xfA.Q.ApplyT(normal.Neg()))
		pointA := xfA.Apply(f.proxyA.Vertex(indexA))
		return indexA, -1, pointA.Sub(pointB).Dot(normal)
	}

	panic("rigid2d: invalid separation function")
}

// evaluate returns the separation of the given witness points at time t.
func (f *separationFunction) evaluate(indexA, indexB int, t float64) float64 {
	xfA := f.sweepA.Transform(t)
	xfB := f.sweepB.Transform(t)

	switch f.kind {
	case separationPoints:
		pointA := xfA.Apply(f.proxyA.Vertex(indexA))
		pointB := xfB.Apply(f.proxyB.Vertex(indexB))
		return pointB.Sub(pointA).Dot(f.axis)

	case separationFaceA:
		normal := xfA.Q.Apply(f.axis)
		pointA := xfA.Apply(f.localPoint)
		pointB := xfB.Apply(f.proxyB.Vertex(indexB))
		return pointB.Sub(pointA).Dot(normal)

	case separationFaceB:
		normal := xfB.Q.Apply(f.axis)
		pointB := xfB.Apply(f.localPoint)
		pointA := xfA.Apply(f.proxyA.Vertex(indexA))
		return pointA.Sub(pointB).Dot(normal)
	}

	panic("rigid2d: invalid separation function")
}

// TimeOfImpact computes an upper bound on the time before two shapes
// penetrate, as a fraction in [0, TMax]. It uses conservative advancement
// along local separating axes and may miss some intermediate, non-tunneling
// collisions. Use ComputeDistance at the returned time to find the contact
// point and normal.
func TimeOfImpact(input *TOIInput) TOIOutput {
	output := TOIOutput{State: TOIUnknown, T: input.TMax}

	proxyA := &input.ProxyA
	proxyB := &input.ProxyB

	// Large rotations can make the root finder fail.
	sweepA := input.SweepA
	sweepB := input.SweepB
	sweepA.Normalize()
	sweepB.Normalize()

	tMax := input.TMax

	totalRadius := proxyA.Radius + proxyB.Radius
	target := math.Max(LinearSlop, totalRadius-3.0*LinearSlop)
	tolerance := 0.25 * LinearSlop
	assert(target > tolerance, "toi target below tolerance")

	pushBackLimit := MaxPolygonVertices
	if proxyA.Count > pushBackLimit {
		pushBackLimit = proxyA.Count
	}
	if proxyB.Count > pushBackLimit {
		pushBackLimit = proxyB.Count
	}

	t1 := 0.0

	var cache SimplexCache
	distanceInput := DistanceInput{
		ProxyA: input.ProxyA,
		ProxyB: input.ProxyB,
	}

	// The outer loop progressively attempts to compute new separating axes.
	// It terminates when an axis is repeated (no progress is made).
	for {
		distanceInput.TransformA = sweepA.Transform(t1)
		distanceInput.TransformB = sweepB.Transform(t1)

		var distanceOutput DistanceOutput
		ComputeDistance(&distanceOutput, &cache, &distanceInput)

		// Overlapped: give up on continuous collision.
		if distanceOutput.Distance <= 0.0 {
			output.State = TOIOverlapped
			output.T = 0.0
			break
		}

		if distanceOutput.Distance < target+tolerance {
			output.State = TOITouching
			output.T = t1
			break
		}

		var fcn separationFunction
		fcn.initialize(&cache, proxyA, sweepA, proxyB, sweepB, t1)

		// Resolve the deepest point on the axis until the sweep end is
		// separated or the axis stops making progress.
		done := false
		t2 := tMax
		for pushBackIter := 0; pushBackIter < pushBackLimit; pushBackIter++ {
			indexA, indexB, s2 := fcn.findMinSeparation(t2)

			// Is the final configuration separated?
			if s2 > target+tolerance {
				output.State = TOISeparated
				output.T = tMax
				done = true
				break
			}

			// Has the separation reached tolerance?
			if s2 > target-tolerance {
				// Advance the sweeps
				t1 = t2
				break
			}

			s1 := fcn.evaluate(indexA, indexB, t1)

			// Initial overlap. This might happen if the root finder runs out
			// of iterations.
			if s1 < target-tolerance {
				output.State = TOIFailed
				output.T = t1
				done = true
				break
			}

			// t1 holds the TOI (could be 0.0).
			if s1 <= target+tolerance {
				output.State = TOITouching
				output.T = t1
				done = true
				break
			}

			// Compute 1D root of: f(x) - target = 0
			a1, a2 := t1, t2
			for rootIter := 0; rootIter < TOIMaxRootIterations; rootIter++ {
				var t float64
				if rootIter&1 != 0 {
					// Secant rule to improve convergence.
					t = a1 + (target-s1)*(a2-a1)/(s2-s1)
				} else {
					// Bisection to guarantee progress.
					t = 0.5 * (a1 + a2)
				}
				output.RootIterations++
				output.MaxRootIterations = max(output.MaxRootIterations, rootIter+1)

				s := fcn.evaluate(indexA, indexB, t)

				if math.Abs(s-target) < tolerance {
					// t2 holds a tentative value for t1
					t2 = t
					break
				}

				// Keep bracketing the root.
				if s > target {
					a1 = t
					s1 = s
				} else {
					a2 = t
					s2 = s
				}
			}
		}

		output.Iterations++

		if done {
			break
		}

		if output.Iterations == TOIMaxIterations {
			// Root finder got stuck. Semi-victory.
			output.State = TOIFailed
			output.T = t1
			break
		}
	}

	return output
}
