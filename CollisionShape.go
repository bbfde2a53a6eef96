package rigid2d

// MassData holds the mass properties computed for a shape.
type MassData struct {
	// Mass of the shape, usually in kilograms.
	Mass float64

	// Center is the position of the shape's centroid relative to the shape's origin.
	Center Vec2

	// I is the rotational inertia of the shape about the local origin.
	I float64
}

type ShapeType uint8

const (
	ShapeCircle ShapeType = iota
	ShapeEdge
	ShapePolygon
	ShapeChain
	shapeTypeCount
)

func (t ShapeType) String() string {
	switch t {
	case ShapeCircle:
		return "circle"
	case ShapeEdge:
		return "edge"
	case ShapePolygon:
		return "polygon"
	case ShapeChain:
		return "chain"
	}
	return "unknown"
}

// Shape is used for collision detection. Shapes attached to bodies are cloned
// into their fixture, so the caller keeps ownership of the value it passes in.
// A shape may be made of several children (the edges of a chain).
type Shape interface {
	Type() ShapeType

	// Radius is the skin around the shape core. Polygons and edges use PolygonRadius.
	Radius() float64

	// ChildCount is the number of child primitives.
	ChildCount() int

	// TestPoint reports whether the world point p lies in the shape. Only
	// solid convex shapes can contain a point.
	TestPoint(xf Transform, p Vec2) bool

	// RayCast casts a ray against one child shape.
	RayCast(input RayCastInput, xf Transform, childIndex int) (RayCastOutput, bool)

	// ComputeAABB bounds one child shape placed at xf.
	ComputeAABB(xf Transform, childIndex int) AABB

	// ComputeMass computes the mass properties about the local origin using
	// density in kilograms per square meter.
	ComputeMass(density float64) MassData

	Clone() Shape
}
