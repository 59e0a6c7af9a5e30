package physics

import (
	"github.com/jakecoffman/cp"

	"arena-server/internal/vector"
)

// Shape is the collision geometry of a fixture in body coordinates
type Shape interface {
	attach(body *cp.Body) *cp.Shape
}

// CircleShape is a circle centered on the body origin
type CircleShape struct {
	Radius float64
}

func (c *CircleShape) attach(body *cp.Body) *cp.Shape {
	return cp.NewCircle(body, c.Radius, cp.Vector{})
}

// PolygonShape is a convex polygon with anticlockwise vertices
type PolygonShape struct {
	Vertices []vector.Vec2
}

// NewPolygonShape builds a convex polygon shape from vertices in either winding
func NewPolygonShape(vertices []vector.Vec2) *PolygonShape {
	poly := vector.NewPolygon(vertices)
	return &PolygonShape{Vertices: poly.Points}
}

func (p *PolygonShape) attach(body *cp.Body) *cp.Shape {
	verts := make([]cp.Vector, len(p.Vertices))
	for i, v := range p.Vertices {
		verts[i] = toCP(v)
	}
	return cp.NewPolyShape(body, len(verts), verts, cp.NewTransformIdentity(), 0)
}

func toCP(v vector.Vec2) cp.Vector {
	return cp.Vector{X: v.X, Y: v.Y}
}

func fromCP(v cp.Vector) vector.Vec2 {
	return vector.New(v.X, v.Y)
}
