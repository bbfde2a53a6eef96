package rigid2d_test

import (
	"cmp"
	"math/rand"
	"slices"
	"strings"
	"testing"

	"github.com/ByteArena/rigid2d"
)

func aabbAt(x, y, half float64) rigid2d.AABB {
	return rigid2d.AABB{
		LowerBound: rigid2d.Vec2{X: x - half, Y: y - half},
		UpperBound: rigid2d.Vec2{X: x + half, Y: y + half},
	}
}

func collectPairs(bp *rigid2d.BroadPhase[string]) [][2]string {
	var pairs [][2]string
	bp.UpdatePairs(func(a, b string) {
		if b < a {
			a, b = b, a
		}
		pairs = append(pairs, [2]string{a, b})
	})
	slices.SortFunc(pairs, func(p, q [2]string) int {
		return cmp.Or(strings.Compare(p[0], q[0]), strings.Compare(p[1], q[1]))
	})
	return pairs
}

func TestBroadPhasePairs(t *testing.T) {
	bp := rigid2d.NewBroadPhase[string]()
	bp.CreateProxy(aabbAt(0, 0, 0.5), "a")
	bp.CreateProxy(aabbAt(0.8, 0, 0.5), "b")
	c := bp.CreateProxy(aabbAt(10, 0, 0.5), "c")

	got := collectPairs(bp)
	want := [][2]string{{"a", "b"}}
	if !slices.Equal(got, want) {
		t.Fatalf("pairs = %v, want %v", got, want)
	}

	// Nothing moved: no new pairs.
	if got := collectPairs(bp); len(got) != 0 {
		t.Fatalf("pairs after no movement = %v, want none", got)
	}

	// Move c onto b. Only pairs involving the moved proxy are reported.
	bp.MoveProxy(c, aabbAt(1.5, 0, 0.5), rigid2d.Vec2{})
	got = collectPairs(bp)
	want = [][2]string{{"b", "c"}}
	if !slices.Equal(got, want) {
		t.Fatalf("pairs after move = %v, want %v", got, want)
	}

	if bp.ProxyCount() != 3 {
		t.Fatalf("proxy count = %d, want 3", bp.ProxyCount())
	}
	bp.DestroyProxy(c)
	if bp.ProxyCount() != 2 {
		t.Fatalf("proxy count = %d, want 2", bp.ProxyCount())
	}
}

func TestBroadPhaseTouchProxy(t *testing.T) {
	bp := rigid2d.NewBroadPhase[string]()
	a := bp.CreateProxy(aabbAt(0, 0, 0.5), "a")
	bp.CreateProxy(aabbAt(0.5, 0, 0.5), "b")
	collectPairs(bp)

	bp.TouchProxy(a)
	got := collectPairs(bp)
	if want := [][2]string{{"a", "b"}}; !slices.Equal(got, want) {
		t.Fatalf("pairs after touch = %v, want %v", got, want)
	}
}

func TestDynamicTreeQueryMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tree := rigid2d.NewDynamicTree[int]()

	const n = 200
	boxes := make([]rigid2d.AABB, n)
	ids := make([]int, n)
	for i := range boxes {
		boxes[i] = aabbAt(rng.Float64()*50, rng.Float64()*50, 0.2+rng.Float64())
		ids[i] = tree.CreateProxy(boxes[i], i)
	}

	// Move half of them and destroy a few.
	for i := 0; i < n; i += 2 {
		old := boxes[i].Center()
		boxes[i] = aabbAt(rng.Float64()*50, rng.Float64()*50, 0.2+rng.Float64())
		tree.MoveProxy(ids[i], boxes[i], boxes[i].Center().Sub(old))
	}
	alive := make([]bool, n)
	for i := range alive {
		alive[i] = true
	}
	for i := 1; i < n; i += 7 {
		tree.DestroyProxy(ids[i])
		alive[i] = false
	}
	tree.Validate()

	query := aabbAt(25, 25, 8)
	var got []int
	tree.Query(func(proxyID int) bool {
		got = append(got, tree.UserData(proxyID))
		return true
	}, query)

	// The tree reports fat AABB overlaps: every exact overlap is reported
	// and every report overlaps a fat box.
	for i := range boxes {
		if !alive[i] {
			if slices.Contains(got, i) {
				t.Fatalf("destroyed proxy %d reported", i)
			}
			continue
		}
		if boxes[i].Overlaps(query) && !slices.Contains(got, i) {
			t.Fatalf("proxy %d overlaps the query but was not reported", i)
		}
	}
	for _, i := range got {
		if !tree.FatAABB(ids[i]).Overlaps(query) {
			t.Fatalf("proxy %d reported without overlapping the query", i)
		}
	}

	if h := tree.Height(); h > 3*bitsFor(n) {
		t.Fatalf("tree height %d is unbalanced for %d proxies", h, n)
	}
}

func bitsFor(n int) int {
	bits := 0
	for n > 0 {
		bits++
		n >>= 1
	}
	return bits
}

func TestDynamicTreeRayCast(t *testing.T) {
	tree := rigid2d.NewDynamicTree[string]()
	tree.CreateProxy(aabbAt(5, 0, 0.5), "near")
	tree.CreateProxy(aabbAt(9, 0, 0.5), "far")
	tree.CreateProxy(aabbAt(5, 5, 0.5), "off")

	var hits []string
	tree.RayCast(func(input rigid2d.RayCastInput, proxyID int) float64 {
		hits = append(hits, tree.UserData(proxyID))
		return input.MaxFraction
	}, rigid2d.RayCastInput{P1: rigid2d.Vec2{}, P2: rigid2d.Vec2{X: 10}, MaxFraction: 1})

	slices.Sort(hits)
	if want := []string{"far", "near"}; !slices.Equal(hits, want) {
		t.Fatalf("hits = %v, want %v", hits, want)
	}

	// Clipping the ray at the first hit hides the far box.
	hits = hits[:0]
	tree.RayCast(func(input rigid2d.RayCastInput, proxyID int) float64 {
		hits = append(hits, tree.UserData(proxyID))
		if tree.UserData(proxyID) == "near" {
			return 0.5
		}
		return input.MaxFraction
	}, rigid2d.RayCastInput{P1: rigid2d.Vec2{}, P2: rigid2d.Vec2{X: 10}, MaxFraction: 1})
	if slices.Contains(hits, "far") && hits[0] == "near" {
		t.Fatalf("far box reported after the ray was clipped: %v", hits)
	}
}
