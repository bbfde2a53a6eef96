package rigid2d

import (
	"math"
)

const nullNode = -1

// TreeQueryCallback is called for each proxy overlapping the query box.
// Returning false stops the query.
type TreeQueryCallback func(proxyID int) bool

// TreeRayCastCallback is called for each proxy whose box the ray crosses.
// It returns the new max fraction: 0 terminates the cast, a negative value
// ignores the proxy, and a value in (0, 1] clips the ray.
type TreeRayCastCallback func(input RayCastInput, proxyID int) float64

// treeNode lives in the tree's node pool. Leaves are proxies.
type treeNode[T any] struct {
	aabb     AABB
	userData T

	parent int
	next   int // free list link
	child1 int
	child2 int

	// leaf = 0, free node = -1
	height int
}

func (n *treeNode[T]) isLeaf() bool {
	return n.child1 == nullNode
}

// DynamicTree is a dynamic AABB tree broad-phase, inspired by Nathanael
// Presson's btDbvt. Internal nodes hold the union of their children. Leaves
// hold fat AABBs so proxies can move a little without tree updates.
// Nodes are pooled and relocatable, so they are referred to by index.
type DynamicTree[T any] struct {
	root int

	nodes     []treeNode[T]
	freeList  int
	nodeCount int

	insertionCount int

	// Scratch stack for traversals. A nested traversal started from a
	// callback gets a fresh one.
	stack      *growableStack[int]
	stackInUse bool
}

// NewDynamicTree allocates a tree with a small node pool.
func NewDynamicTree[T any]() *DynamicTree[T] {
	t := &DynamicTree[T]{
		root:  nullNode,
		stack: newGrowableStack[int](256),
	}
	t.growPool(16)
	return t
}

// growPool extends the node pool and threads the new nodes onto the free list.
func (t *DynamicTree[T]) growPool(capacity int) {
	start := len(t.nodes)
	for i := start; i < capacity; i++ {
		t.nodes = append(t.nodes, treeNode[T]{next: i + 1, height: -1, parent: nullNode, child1: nullNode, child2: nullNode})
	}
	t.nodes[capacity-1].next = nullNode
	t.freeList = start
}

func (t *DynamicTree[T]) allocateNode() int {
	if t.freeList == nullNode {
		assert(t.nodeCount == len(t.nodes), "tree free list corrupted")
		t.growPool(2 * len(t.nodes))
	}

	id := t.freeList
	node := &t.nodes[id]
	t.freeList = node.next
	node.parent = nullNode
	node.child1 = nullNode
	node.child2 = nullNode
	node.height = 0
	var zero T
	node.userData = zero
	t.nodeCount++
	return id
}

func (t *DynamicTree[T]) freeNode(id int) {
	assert(0 <= id && id < len(t.nodes), "tree node out of range")
	assert(t.nodeCount > 0, "tree is empty")
	t.nodes[id].next = t.freeList
	t.nodes[id].height = -1
	var zero T
	t.nodes[id].userData = zero
	t.freeList = id
	t.nodeCount--
}

// CreateProxy inserts a leaf for aabb, fattened by AABBExtension.
func (t *DynamicTree[T]) CreateProxy(aabb AABB, userData T) int {
	id := t.allocateNode()

	r := Vec2{AABBExtension, AABBExtension}
	t.nodes[id].aabb = AABB{LowerBound: aabb.LowerBound.Sub(r), UpperBound: aabb.UpperBound.Add(r)}
	t.nodes[id].userData = userData
	t.nodes[id].height = 0

	t.insertLeaf(id)
	return id
}

func (t *DynamicTree[T]) DestroyProxy(proxyID int) {
	assert(0 <= proxyID && proxyID < len(t.nodes), "proxy out of range")
	assert(t.nodes[proxyID].isLeaf(), "proxy is not a leaf")

	t.removeLeaf(proxyID)
	t.freeNode(proxyID)
}

// MoveProxy reinserts the proxy if aabb escaped its fat AABB. The new fat
// AABB is extended along the predicted displacement. It reports whether the
// proxy was reinserted.
func (t *DynamicTree[T]) MoveProxy(proxyID int, aabb AABB, displacement Vec2) bool {
	assert(0 <= proxyID && proxyID < len(t.nodes), "proxy out of range")
	assert(t.nodes[proxyID].isLeaf(), "proxy is not a leaf")

	if t.nodes[proxyID].aabb.Contains(aabb) {
		return false
	}

	t.removeLeaf(proxyID)

	// Extend AABB.
	r := Vec2{AABBExtension, AABBExtension}
	b := AABB{LowerBound: aabb.LowerBound.Sub(r), UpperBound: aabb.UpperBound.Add(r)}

	// Predict AABB displacement.
	d := displacement.Scale(AABBMultiplier)
	if d.X < 0.0 {
		b.LowerBound.X += d.X
	} else {
		b.UpperBound.X += d.X
	}
	if d.Y < 0.0 {
		b.LowerBound.Y += d.Y
	} else {
		b.UpperBound.Y += d.Y
	}

	t.nodes[proxyID].aabb = b
	t.insertLeaf(proxyID)
	return true
}

func (t *DynamicTree[T]) UserData(proxyID int) T {
	assert(0 <= proxyID && proxyID < len(t.nodes), "proxy out of range")
	return t.nodes[proxyID].userData
}

func (t *DynamicTree[T]) FatAABB(proxyID int) AABB {
	assert(0 <= proxyID && proxyID < len(t.nodes), "proxy out of range")
	return t.nodes[proxyID].aabb
}

// Query calls callback for every proxy whose fat AABB overlaps aabb.
func (t *DynamicTree[T]) Query(callback TreeQueryCallback, aabb AABB) {
	stack := t.acquireStack()
	defer t.releaseStack(stack)
	stack.Push(t.root)

	for stack.Count() > 0 {
		id := stack.Pop()
		if id == nullNode {
			continue
		}

		node := &t.nodes[id]
		if !node.aabb.Overlaps(aabb) {
			continue
		}

		if node.isLeaf() {
			if !callback(id) {
				return
			}
		} else {
			stack.Push(node.child1)
			stack.Push(node.child2)
		}
	}
}

// RayCast calls callback for every proxy whose fat AABB the ray crosses.
// Cost is roughly k * log(n) for k proxies hit among n.
func (t *DynamicTree[T]) RayCast(callback TreeRayCastCallback, input RayCastInput) {
	p1 := input.P1
	p2 := input.P2
	r := p2.Sub(p1)
	assert(r.LengthSquared() > 0.0, "degenerate ray")
	r.Normalize()

	// v is perpendicular to the segment.
	v := CrossSV(1.0, r)
	absV := AbsVec2(v)

	// Separating axis for segment (Gino, p80).
	// |dot(v, p1 - c)| > dot(|v|, h)

	maxFraction := input.MaxFraction

	segmentAABB := func() AABB {
		end := p1.Add(p2.Sub(p1).Scale(maxFraction))
		return AABB{LowerBound: MinVec2(p1, end), UpperBound: MaxVec2(p1, end)}
	}
	segment := segmentAABB()

	stack := t.acquireStack()
	defer t.releaseStack(stack)
	stack.Push(t.root)

	for stack.Count() > 0 {
		id := stack.Pop()
		if id == nullNode {
			continue
		}

		node := &t.nodes[id]
		if !node.aabb.Overlaps(segment) {
			continue
		}

		c := node.aabb.Center()
		h := node.aabb.Extents()
		if math.Abs(v.Dot(p1.Sub(c)))-absV.Dot(h) > 0.0 {
			continue
		}

		if !node.isLeaf() {
			stack.Push(node.child1)
			stack.Push(node.child2)
			continue
		}

		value := callback(RayCastInput{P1: p1, P2: p2, MaxFraction: maxFraction}, id)

		if value == 0.0 {
			// The client has terminated the ray cast.
			return
		}

		if value > 0.0 {
			maxFraction = value
			segment = segmentAABB()
		}
	}
}

func (t *DynamicTree[T]) acquireStack() *growableStack[int] {
	if t.stackInUse {
		return newGrowableStack[int](64)
	}
	t.stackInUse = true
	t.stack.Reset()
	return t.stack
}

func (t *DynamicTree[T]) releaseStack(s *growableStack[int]) {
	if s == t.stack {
		t.stackInUse = false
	}
}

func (t *DynamicTree[T]) insertLeaf(leaf int) {
	t.insertionCount++

	if t.root == nullNode {
		t.root = leaf
		t.nodes[leaf].parent = nullNode
		return
	}

	// Find the best sibling for this node.
	leafAABB := t.nodes[leaf].aabb
	index := t.root
	for !t.nodes[index].isLeaf() {
		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2

		area := t.nodes[index].aabb.Perimeter()
		combinedArea := t.nodes[index].aabb.Combine(leafAABB).Perimeter()

		// Cost of creating a new parent for this node and the new leaf.
		cost := 2.0 * combinedArea

		// Minimum cost of pushing the leaf further down the tree.
		inheritanceCost := 2.0 * (combinedArea - area)

		cost1 := t.descendCost(child1, leafAABB) + inheritanceCost
		cost2 := t.descendCost(child2, leafAABB) + inheritanceCost

		if cost < cost1 && cost < cost2 {
			break
		}

		if cost1 < cost2 {
			index = child1
		} else {
			index = child2
		}
	}

	sibling := index

	// Create a new parent.
	oldParent := t.nodes[sibling].parent
	newParent := t.allocateNode()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].aabb = leafAABB.Combine(t.nodes[sibling].aabb)
	t.nodes[newParent].height = t.nodes[sibling].height + 1
	t.nodes[newParent].child1 = sibling
	t.nodes[newParent].child2 = leaf
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	if oldParent != nullNode {
		if t.nodes[oldParent].child1 == sibling {
			t.nodes[oldParent].child1 = newParent
		} else {
			t.nodes[oldParent].child2 = newParent
		}
	} else {
		t.root = newParent
	}

	// Walk back up the tree fixing heights and AABBs.
	t.refit(t.nodes[leaf].parent)
}

// descendCost is the cost of inserting leafAABB below child.
func (t *DynamicTree[T]) descendCost(child int, leafAABB AABB) float64 {
	combined := leafAABB.Combine(t.nodes[child].aabb).Perimeter()
	if t.nodes[child].isLeaf() {
		return combined
	}
	return combined - t.nodes[child].aabb.Perimeter()
}

// refit balances and recomputes every node from index up to the root.
func (t *DynamicTree[T]) refit(index int) {
	for index != nullNode {
		index = t.balance(index)

		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2
		assert(child1 != nullNode && child2 != nullNode, "internal node without children")

		t.nodes[index].height = 1 + max(t.nodes[child1].height, t.nodes[child2].height)
		t.nodes[index].aabb = t.nodes[child1].aabb.Combine(t.nodes[child2].aabb)

		index = t.nodes[index].parent
	}
}

func (t *DynamicTree[T]) removeLeaf(leaf int) {
	if leaf == t.root {
		t.root = nullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	sibling := t.nodes[parent].child1
	if sibling == leaf {
		sibling = t.nodes[parent].child2
	}

	if grandParent == nullNode {
		t.root = sibling
		t.nodes[sibling].parent = nullNode
		t.freeNode(parent)
		return
	}

	// Destroy parent and connect sibling to grandParent.
	if t.nodes[grandParent].child1 == parent {
		t.nodes[grandParent].child1 = sibling
	} else {
		t.nodes[grandParent].child2 = sibling
	}
	t.nodes[sibling].parent = grandParent
	t.freeNode(parent)

	t.refit(grandParent)
}

// balance performs a left or right rotation if node A is imbalanced and
// returns the new root index of the subtree.
func (t *DynamicTree[T]) balance(iA int) int {
	assert(iA != nullNode, "balance on null node")

	A := &t.nodes[iA]
	if A.isLeaf() || A.height < 2 {
		return iA
	}

	iB := A.child1
	iC := A.child2
	B := &t.nodes[iB]
	C := &t.nodes[iC]

	switch balance := C.height - B.height; {
	case balance > 1:
		// Rotate C up
		return t.rotate(iA, iC, iB, false)
	case balance < -1:
		// Rotate B up
		return t.rotate(iA, iB, iC, true)
	}
	return iA
}

// rotate lifts child iUp of iA over its sibling iOther. upIsChild1 tells
// which slot of A iUp occupies.
func (t *DynamicTree[T]) rotate(iA, iUp, iOther int, upIsChild1 bool) int {
	A := &t.nodes[iA]
	U := &t.nodes[iUp]
	O := &t.nodes[iOther]

	iF := U.child1
	iG := U.child2
	F := &t.nodes[iF]
	G := &t.nodes[iG]

	// Swap A and U.
	U.child1 = iA
	U.parent = A.parent
	A.parent = iUp

	// A's old parent should point to U.
	if U.parent != nullNode {
		if t.nodes[U.parent].child1 == iA {
			t.nodes[U.parent].child1 = iUp
		} else {
			assert(t.nodes[U.parent].child2 == iA, "tree parent link broken")
			t.nodes[U.parent].child2 = iUp
		}
	} else {
		t.root = iUp
	}

	// The taller grandchild stays under U, the other moves under A.
	keep, move := iF, iG
	keepNode, moveNode := F, G
	if F.height <= G.height {
		keep, move = iG, iF
		keepNode, moveNode = G, F
	}

	U.child2 = keep
	if upIsChild1 {
		A.child1 = move
	} else {
		A.child2 = move
	}
	moveNode.parent = iA

	A.aabb = O.aabb.Combine(moveNode.aabb)
	U.aabb = A.aabb.Combine(keepNode.aabb)

	A.height = 1 + max(O.height, moveNode.height)
	U.height = 1 + max(A.height, keepNode.height)

	return iUp
}

// Height is the height of the binary tree in O(1).
func (t *DynamicTree[T]) Height() int {
	if t.root == nullNode {
		return 0
	}
	return t.nodes[t.root].height
}

// AreaRatio is the ratio of the sum of the node areas to the root area.
func (t *DynamicTree[T]) AreaRatio() float64 {
	if t.root == nullNode {
		return 0.0
	}

	rootArea := t.nodes[t.root].aabb.Perimeter()

	totalArea := 0.0
	for i := range t.nodes {
		if t.nodes[i].height < 0 {
			// Free node in pool
			continue
		}
		totalArea += t.nodes[i].aabb.Perimeter()
	}

	return totalArea / rootArea
}

// MaxBalance is the maximum height difference between the two children of any node.
func (t *DynamicTree[T]) MaxBalance() int {
	maxBalance := 0
	for i := range t.nodes {
		node := &t.nodes[i]
		if node.height <= 1 {
			continue
		}

		assert(!node.isLeaf(), "leaf with positive height")
		balance := abs(t.nodes[node.child2].height - t.nodes[node.child1].height)
		maxBalance = max(maxBalance, balance)
	}
	return maxBalance
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func (t *DynamicTree[T]) computeHeight(id int) int {
	node := &t.nodes[id]
	if node.isLeaf() {
		return 0
	}
	return 1 + max(t.computeHeight(node.child1), t.computeHeight(node.child2))
}

// Validate checks the structure and metrics of the tree. It panics on the
// first broken invariant.
func (t *DynamicTree[T]) Validate() {
	t.validateStructure(t.root)
	t.validateMetrics(t.root)

	freeCount := 0
	for id := t.freeList; id != nullNode; id = t.nodes[id].next {
		assert(0 <= id && id < len(t.nodes), "free list out of range")
		freeCount++
	}

	assert(t.Height() == t.computeTotalHeight(), "tree height mismatch")
	assert(t.nodeCount+freeCount == len(t.nodes), "tree node count mismatch")
}

func (t *DynamicTree[T]) computeTotalHeight() int {
	if t.root == nullNode {
		return 0
	}
	return t.computeHeight(t.root)
}

func (t *DynamicTree[T]) validateStructure(id int) {
	if id == nullNode {
		return
	}
	if id == t.root {
		assert(t.nodes[id].parent == nullNode, "root has a parent")
	}

	node := &t.nodes[id]
	if node.isLeaf() {
		assert(node.child2 == nullNode, "leaf with one child")
		assert(node.height == 0, "leaf with height")
		return
	}

	assert(t.nodes[node.child1].parent == id, "child1 parent link broken")
	assert(t.nodes[node.child2].parent == id, "child2 parent link broken")

	t.validateStructure(node.child1)
	t.validateStructure(node.child2)
}

func (t *DynamicTree[T]) validateMetrics(id int) {
	if id == nullNode {
		return
	}

	node := &t.nodes[id]
	if node.isLeaf() {
		return
	}

	h1 := t.nodes[node.child1].height
	h2 := t.nodes[node.child2].height
	assert(node.height == 1+max(h1, h2), "node height mismatch")

	union := t.nodes[node.child1].aabb.Combine(t.nodes[node.child2].aabb)
	assert(union.LowerBound == node.aabb.LowerBound, "node aabb lower bound mismatch")
	assert(union.UpperBound == node.aabb.UpperBound, "node aabb upper bound mismatch")

	t.validateMetrics(node.child1)
	t.validateMetrics(node.child2)
}

// RebuildBottomUp builds an optimal tree. Very expensive. For testing.
func (t *DynamicTree[T]) RebuildBottomUp() {
	leaves := make([]int, 0, t.nodeCount)

	// Build array of leaves. Free the rest.
	for i := range t.nodes {
		if t.nodes[i].height < 0 {
			continue
		}
		if t.nodes[i].isLeaf() {
			t.nodes[i].parent = nullNode
			leaves = append(leaves, i)
		} else {
			t.freeNode(i)
		}
	}

	count := len(leaves)
	for count > 1 {
		minCost := MaxFloat
		iMin, jMin := -1, -1
		for i := 0; i < count; i++ {
			aabbi := t.nodes[leaves[i]].aabb
			for j := i + 1; j < count; j++ {
				cost := aabbi.Combine(t.nodes[leaves[j]].aabb).Perimeter()
				if cost < minCost {
					iMin, jMin = i, j
					minCost = cost
				}
			}
		}

		index1 := leaves[iMin]
		index2 := leaves[jMin]

		parent := t.allocateNode()
		t.nodes[parent].child1 = index1
		t.nodes[parent].child2 = index2
		t.nodes[parent].height = 1 + max(t.nodes[index1].height, t.nodes[index2].height)
		t.nodes[parent].aabb = t.nodes[index1].aabb.Combine(t.nodes[index2].aabb)
		t.nodes[parent].parent = nullNode

		t.nodes[index1].parent = parent
		t.nodes[index2].parent = parent

		leaves[jMin] = leaves[count-1]
		leaves[iMin] = parent
		count--
	}

	if count == 1 {
		t.root = leaves[0]
	} else {
		t.root = nullNode
	}

	t.Validate()
}

// ShiftOrigin moves every node by -newOrigin.
func (t *DynamicTree[T]) ShiftOrigin(newOrigin Vec2) {
	for i := range t.nodes {
		t.nodes[i].aabb.LowerBound = t.nodes[i].aabb.LowerBound.Sub(newOrigin)
		t.nodes[i].aabb.UpperBound = t.nodes[i].aabb.UpperBound.Sub(newOrigin)
	}
}
