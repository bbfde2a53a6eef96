package rigid2d

import (
	"cmp"
	"slices"
)

const nullProxy = -1

// proxyPair is a potentially overlapping pair, with ProxyIDA < ProxyIDB.
type proxyPair struct {
	proxyIDA int
	proxyIDB int
}

// BroadPhase keeps proxies in a dynamic tree and reports pairs of proxies
// whose fat AABBs started overlapping. Only proxies that moved since the last
// UpdatePairs are queried.
type BroadPhase[T any] struct {
	tree       *DynamicTree[T]
	proxyCount int

	moveBuffer []int
	pairBuffer []proxyPair

	queryProxyID int
}

func NewBroadPhase[T any]() *BroadPhase[T] {
	return &BroadPhase[T]{
		tree:       NewDynamicTree[T](),
		moveBuffer: make([]int, 0, 16),
		pairBuffer: make([]proxyPair, 0, 16),
	}
}

// CreateProxy adds a proxy with an initial AABB. Pairs are not reported
// until UpdatePairs is called.
func (bp *BroadPhase[T]) CreateProxy(aabb AABB, userData T) int {
	proxyID := bp.tree.CreateProxy(aabb, userData)
	bp.proxyCount++
	bp.bufferMove(proxyID)
	return proxyID
}

// DestroyProxy removes a proxy. The client must remove its pairs.
func (bp *BroadPhase[T]) DestroyProxy(proxyID int) {
	bp.unbufferMove(proxyID)
	bp.proxyCount--
	bp.tree.DestroyProxy(proxyID)
}

// MoveProxy updates the proxy AABB. Call it as many times as you like, then
// UpdatePairs to finalize the proxy pairs for the time step.
func (bp *BroadPhase[T]) MoveProxy(proxyID int, aabb AABB, displacement Vec2) {
	if bp.tree.MoveProxy(proxyID, aabb, displacement) {
		bp.bufferMove(proxyID)
	}
}

// TouchProxy forces the proxy to be queried on the next UpdatePairs.
func (bp *BroadPhase[T]) TouchProxy(proxyID int) {
	bp.bufferMove(proxyID)
}

func (bp *BroadPhase[T]) bufferMove(proxyID int) {
	bp.moveBuffer = append(bp.moveBuffer, proxyID)
}

func (bp *BroadPhase[T]) unbufferMove(proxyID int) {
	for i, id := range bp.moveBuffer {
		if id == proxyID {
			bp.moveBuffer[i] = nullProxy
		}
	}
}

func (bp *BroadPhase[T]) FatAABB(proxyID int) AABB {
	return bp.tree.FatAABB(proxyID)
}

func (bp *BroadPhase[T]) UserData(proxyID int) T {
	return bp.tree.UserData(proxyID)
}

// TestOverlap tests the fat AABBs of two proxies for overlap.
func (bp *BroadPhase[T]) TestOverlap(proxyIDA, proxyIDB int) bool {
	return bp.tree.FatAABB(proxyIDA).Overlaps(bp.tree.FatAABB(proxyIDB))
}

func (bp *BroadPhase[T]) ProxyCount() int { return bp.proxyCount }

func (bp *BroadPhase[T]) TreeHeight() int { return bp.tree.Height() }

func (bp *BroadPhase[T]) TreeBalance() int { return bp.tree.MaxBalance() }

func (bp *BroadPhase[T]) TreeQuality() float64 { return bp.tree.AreaRatio() }

// UpdatePairs queries the tree for every moved proxy and reports each new
// overlapping pair once, in ascending proxy id order.
func (bp *BroadPhase[T]) UpdatePairs(addPair func(userDataA, userDataB T)) {
	bp.pairBuffer = bp.pairBuffer[:0]

	for _, proxyID := range bp.moveBuffer {
		if proxyID == nullProxy {
			continue
		}
		bp.queryProxyID = proxyID

		// Query with the fat AABB so we don't miss a pair that may touch later.
		bp.tree.Query(bp.queryCallback, bp.tree.FatAABB(proxyID))
	}

	bp.moveBuffer = bp.moveBuffer[:0]

	// Sort the pair buffer to expose duplicates.
	slices.SortFunc(bp.pairBuffer, func(a, b proxyPair) int {
		if c := cmp.Compare(a.proxyIDA, b.proxyIDA); c != 0 {
			return c
		}
		return cmp.Compare(a.proxyIDB, b.proxyIDB)
	})

	for i := 0; i < len(bp.pairBuffer); {
		primary := bp.pairBuffer[i]
		addPair(bp.tree.UserData(primary.proxyIDA), bp.tree.UserData(primary.proxyIDB))
		i++

		// Skip any duplicate pairs.
		for i < len(bp.pairBuffer) && bp.pairBuffer[i] == primary {
			i++
		}
	}
}

// queryCallback gathers pairs for the proxy being queried.
func (bp *BroadPhase[T]) queryCallback(proxyID int) bool {
	// A proxy cannot form a pair with itself.
	if proxyID == bp.queryProxyID {
		return true
	}

	bp.pairBuffer = append(bp.pairBuffer, proxyPair{
		proxyIDA: min(proxyID, bp.queryProxyID),
		proxyIDB: max(proxyID, bp.queryProxyID),
	})
	return true
}

// Query calls callback for each proxy whose fat AABB overlaps aabb.
func (bp *BroadPhase[T]) Query(callback TreeQueryCallback, aabb AABB) {
	bp.tree.Query(callback, aabb)
}

// RayCast calls callback for each proxy whose fat AABB the ray crosses.
func (bp *BroadPhase[T]) RayCast(callback TreeRayCastCallback, input RayCastInput) {
	bp.tree.RayCast(callback, input)
}

// ShiftOrigin moves every proxy by -newOrigin.
func (bp *BroadPhase[T]) ShiftOrigin(newOrigin Vec2) {
	bp.tree.ShiftOrigin(newOrigin)
}
