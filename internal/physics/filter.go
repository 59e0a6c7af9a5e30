package physics

import "github.com/jakecoffman/cp"

// Filter holds the collision bits of a fixture
type Filter struct {
	Category uint16
	Mask     uint16
	// Group overrides the bits: fixtures sharing a nonzero group never collide
	Group int
}

// ShouldCollide reports whether fixtures with these filters generate contacts
func (f Filter) ShouldCollide(o Filter) bool {
	return !f.shapeFilter().Reject(o.shapeFilter())
}

func (f Filter) shapeFilter() cp.ShapeFilter {
	return cp.ShapeFilter{
		Group:      uint(f.Group),
		Categories: uint(f.Category),
		Mask:       uint(f.Mask),
	}
}
