package vector

import "math"

// arcSegmentAngle is the largest angle covered by one convex piece of an arc
const arcSegmentAngle = math.Pi / 8

// Shape is obstacle or map geometry in local coordinates, centered on the body origin
type Shape interface {
	// Pieces returns convex polygons covering the shape, or nil for a circle
	Pieces() [][]Vec2
	// Convex reports whether the shape is a single convex region
	Convex() bool
	// Inside reports whether a circle at local with radius hitRadius overlaps the shape
	Inside(local Vec2, hitRadius float64) bool
	// MinExtent returns the distance from the origin to the nearest edge
	MinExtent() float64
}

// Circle is a disc around the origin
type Circle struct {
	Radius float64
}

// Pieces returns nil since a circle is not a polygon
func (c Circle) Pieces() [][]Vec2 { return nil }

// Convex is always true for a circle
func (c Circle) Convex() bool { return true }

// Inside reports whether the circle at local overlaps the disc
func (c Circle) Inside(local Vec2, hitRadius float64) bool {
	return local.Len() <= c.Radius+hitRadius
}

// MinExtent returns the radius
func (c Circle) MinExtent() float64 { return c.Radius }

// Polygon is a simple polygon with anticlockwise vertices
type Polygon struct {
	Points []Vec2
}

// NewPolygon returns a polygon with its vertices ordered anticlockwise
func NewPolygon(points []Vec2) Polygon {
	pts := make([]Vec2, len(points))
	copy(pts, points)
	if signedArea(pts) < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	return Polygon{Points: pts}
}

// Pieces returns the polygon itself
func (p Polygon) Pieces() [][]Vec2 { return [][]Vec2{p.Points} }

// Convex reports whether every turn along the outline goes the same way
func (p Polygon) Convex() bool {
	n := len(p.Points)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		a, b, c := p.Points[i], p.Points[(i+1)%n], p.Points[(i+2)%n]
		if b.Sub(a).Cross(c.Sub(b)) < 0 {
			return false
		}
	}
	return true
}

// Inside reports whether the circle at local is within hitRadius of every edge.
// For non-convex polygons this falls back to a point-in-polygon test.
func (p Polygon) Inside(local Vec2, hitRadius float64) bool {
	if !p.Convex() {
		return pointInPolygon(local, p.Points) || nearOutline(local, hitRadius, p.Points)
	}
	n := len(p.Points)
	for i := 0; i < n; i++ {
		if !InsideLine(local, hitRadius, p.Points[i], p.Points[(i+1)%n], true) {
			return false
		}
	}
	return true
}

// MinExtent returns the distance from the origin to the closest edge
func (p Polygon) MinExtent() float64 {
	n := len(p.Points)
	if n == 0 {
		return 0
	}
	best := math.Inf(1)
	for i := 0; i < n; i++ {
		d := distanceToSegment(Vec2{}, p.Points[i], p.Points[(i+1)%n])
		if d < best {
			best = d
		}
	}
	return best
}

// Arc is a band of an annulus. The origin sits midway across the band and the
// center of curvature is at (-Radius, 0).
type Arc struct {
	Radius    float64
	Extent    float64
	HalfWidth float64
}

// Pieces splits the arc into convex quads
func (a Arc) Pieces() [][]Vec2 {
	segments := int(math.Ceil(2 * a.HalfWidth / arcSegmentAngle))
	if segments < 1 {
		segments = 1
	}
	center := Vec2{X: -a.Radius}
	inner := a.Radius - a.Extent
	outer := a.Radius + a.Extent
	pieces := make([][]Vec2, 0, segments)
	for i := 0; i < segments; i++ {
		from := -a.HalfWidth + 2*a.HalfWidth*float64(i)/float64(segments)
		to := -a.HalfWidth + 2*a.HalfWidth*float64(i+1)/float64(segments)
		quad := NewPolygon([]Vec2{
			FromAngle(from, inner).Add(center),
			FromAngle(from, outer).Add(center),
			FromAngle(to, outer).Add(center),
			FromAngle(to, inner).Add(center),
		})
		pieces = append(pieces, quad.Points)
	}
	return pieces
}

// Convex is false because the inner edge of an arc is concave
func (a Arc) Convex() bool { return false }

// Inside reports whether the circle at local overlaps the band
func (a Arc) Inside(local Vec2, hitRadius float64) bool {
	q := local.Add(Vec2{X: a.Radius})
	d := q.Len()
	if d < a.Radius-a.Extent-hitRadius || d > a.Radius+a.Extent+hitRadius {
		return false
	}
	allowance := 0.0
	if d > 0 {
		allowance = hitRadius / d
	}
	return math.Abs(AngleDelta(0, q.Angle())) <= a.HalfWidth+allowance
}

// MinExtent returns half the thickness of the band
func (a Arc) MinExtent() float64 { return a.Extent }

// NewRadial returns a regular polygon with numPoints vertices at distance extent
func NewRadial(numPoints int, extent float64) Polygon {
	points := make([]Vec2, numPoints)
	for i := 0; i < numPoints; i++ {
		points[i] = FromAngle(Tau*float64(i)/float64(numPoints), extent)
	}
	return NewPolygon(points)
}

// NewTrapezoid returns the trapezoid spanning angularWidthInRevs of a ring at
// layoutRadius, thickness 2*extent, centered on the origin
func NewTrapezoid(layoutRadius, extent, angularWidthInRevs float64) Polygon {
	adjacent := math.Pi * angularWidthInRevs
	hyp := 1 / math.Cos(adjacent)
	center := FromAngle(0, layoutRadius)
	return NewPolygon([]Vec2{
		FromAngle(-adjacent, hyp*(layoutRadius+extent)).Sub(center),
		FromAngle(adjacent, hyp*(layoutRadius+extent)).Sub(center),
		FromAngle(adjacent, hyp*(layoutRadius-extent)).Sub(center),
		FromAngle(-adjacent, hyp*(layoutRadius-extent)).Sub(center),
	})
}

// NewRect returns a width x length rectangle centered on the origin, long side along x
func NewRect(length, width float64) Polygon {
	hl, hw := length/2, width/2
	return NewPolygon([]Vec2{{-hl, -hw}, {hl, -hw}, {hl, hw}, {-hl, hw}})
}

// MaxExtentMultiplier is the ratio of circumradius to inradius of a regular polygon.
// Fewer than three points is treated as a circle.
func MaxExtentMultiplier(numPoints int) float64 {
	if numPoints < 3 {
		return 1
	}
	return 1 / math.Cos(math.Pi/float64(numPoints))
}

func signedArea(points []Vec2) float64 {
	area := 0.0
	n := len(points)
	for i := 0; i < n; i++ {
		area += points[i].Cross(points[(i+1)%n])
	}
	return area / 2
}

func pointInPolygon(p Vec2, points []Vec2) bool {
	inside := false
	n := len(points)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := points[i], points[j]
		if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

func nearOutline(p Vec2, radius float64, points []Vec2) bool {
	n := len(points)
	for i := 0; i < n; i++ {
		if distanceToSegment(p, points[i], points[(i+1)%n]) <= radius {
			return true
		}
	}
	return false
}

func distanceToSegment(p, a, b Vec2) float64 {
	ab := b.Sub(a)
	lenSq := ab.LenSq()
	if lenSq == 0 {
		return Distance(p, a)
	}
	t := Clamp(p.Sub(a).Dot(ab)/lenSq, 0, 1)
	return Distance(p, a.Add(ab.Scale(t)))
}
