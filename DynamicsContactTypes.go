package rigid2d

// manifoldEvaluator computes the manifold of a fixture pair whose shape
// types it was registered for, in registration order.
type manifoldEvaluator func(manifold *Manifold, fixtureA *Fixture, indexA int, xfA Transform, fixtureB *Fixture, indexB int, xfB Transform)

type contactRegistration struct {
	evaluate manifoldEvaluator
	primary  bool // false when the fixtures must be swapped
}

var contactRegistry [shapeTypeCount][shapeTypeCount]contactRegistration

func init() {
	registerContact(ShapeCircle, ShapeCircle, evaluateCircles)
	registerContact(ShapePolygon, ShapeCircle, evaluatePolygonAndCircle)
	registerContact(ShapePolygon, ShapePolygon, evaluatePolygons)
	registerContact(ShapeEdge, ShapeCircle, evaluateEdgeAndCircle)
	registerContact(ShapeEdge, ShapePolygon, evaluateEdgeAndPolygon)
	registerContact(ShapeChain, ShapeCircle, evaluateChainAndCircle)
	registerContact(ShapeChain, ShapePolygon, evaluateChainAndPolygon)
}

func registerContact(typeA, typeB ShapeType, fn manifoldEvaluator) {
	contactRegistry[typeA][typeB] = contactRegistration{evaluate: fn, primary: true}
	if typeA != typeB {
		contactRegistry[typeB][typeA] = contactRegistration{evaluate: fn, primary: false}
	}
}

func evaluateCircles(m *Manifold, fA *Fixture, _ int, xfA Transform, fB *Fixture, _ int, xfB Transform) {
	CollideCircles(m, fA.shape.(*CircleShape), xfA, fB.shape.(*CircleShape), xfB)
}

func evaluatePolygonAndCircle(m *Manifold, fA *Fixture, _ int, xfA Transform, fB *Fixture, _ int, xfB Transform) {
	CollidePolygonAndCircle(m, fA.shape.(*PolygonShape), xfA, fB.shape.(*CircleShape), xfB)
}

func evaluatePolygons(m *Manifold, fA *Fixture, _ int, xfA Transform, fB *Fixture, _ int, xfB Transform) {
	CollidePolygons(m, fA.shape.(*PolygonShape), xfA, fB.shape.(*PolygonShape), xfB)
}

func evaluateEdgeAndCircle(m *Manifold, fA *Fixture, _ int, xfA Transform, fB *Fixture, _ int, xfB Transform) {
	CollideEdgeAndCircle(m, fA.shape.(*EdgeShape), xfA, fB.shape.(*CircleShape), xfB)
}

func evaluateEdgeAndPolygon(m *Manifold, fA *Fixture, _ int, xfA Transform, fB *Fixture, _ int, xfB Transform) {
	CollideEdgeAndPolygon(m, fA.shape.(*EdgeShape), xfA, fB.shape.(*PolygonShape), xfB)
}

// Chains collide one child edge at a time, with its neighbours as ghost
// vertices.

func evaluateChainAndCircle(m *Manifold, fA *Fixture, indexA int, xfA Transform, fB *Fixture, _ int, xfB Transform) {
	edge := fA.shape.(*ChainShape).ChildEdge(indexA)
	CollideEdgeAndCircle(m, &edge, xfA, fB.shape.(*CircleShape), xfB)
}

func evaluateChainAndPolygon(m *Manifold, fA *Fixture, indexA int, xfA Transform, fB *Fixture, _ int, xfB Transform) {
	edge := fA.shape.(*ChainShape).ChildEdge(indexA)
	CollideEdgeAndPolygon(m, &edge, xfA, fB.shape.(*PolygonShape), xfB)
}
