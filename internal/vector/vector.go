package vector

import "math"

// Tau is one full revolution in radians
const Tau = 2 * math.Pi

// Vec2 is a 2D vector in world units
type Vec2 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// New returns the vector (x, y)
func New(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

// Zero returns the zero vector
func Zero() Vec2 {
	return Vec2{}
}

// IsZero reports whether both components are exactly zero
func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Add returns v + o
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

// Sub returns v - o
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{v.X - o.X, v.Y - o.Y}
}

// Scale returns v multiplied by s
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

// Neg returns -v
func (v Vec2) Neg() Vec2 {
	return Vec2{-v.X, -v.Y}
}

// Dot returns the dot product of v and o
func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Cross returns the z component of the 3D cross product of v and o
func (v Vec2) Cross(o Vec2) float64 {
	return v.X*o.Y - v.Y*o.X
}

// Len returns the length of v
func (v Vec2) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// LenSq returns the squared length of v
func (v Vec2) LenSq() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Unit returns v scaled to length 1. The zero vector stays zero.
func (v Vec2) Unit() Vec2 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return Vec2{v.X / l, v.Y / l}
}

// Angle returns the heading of v in radians
func (v Vec2) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// Truncate shortens v to at most maxLen
func (v Vec2) Truncate(maxLen float64) Vec2 {
	l := v.Len()
	if l > maxLen {
		return v.Scale(maxLen / l)
	}
	return v
}

// Relengthen keeps the direction of v but gives it a new length
func (v Vec2) Relengthen(length float64) Vec2 {
	return v.Unit().Scale(length)
}

// Redirect keeps the length of v but points it along direction
func (v Vec2) Redirect(direction Vec2) Vec2 {
	return direction.Relengthen(v.Len())
}

// RotateLeft returns v rotated a quarter turn clockwise in screen space
func (v Vec2) RotateLeft() Vec2 {
	return Vec2{v.Y, -v.X}
}

// RotateRight returns v rotated a quarter turn anticlockwise in screen space
func (v Vec2) RotateRight() Vec2 {
	return Vec2{-v.Y, v.X}
}

// Rotate returns v rotated by angle radians
func (v Vec2) Rotate(angle float64) Vec2 {
	c, s := math.Cos(angle), math.Sin(angle)
	return Vec2{v.X*c - v.Y*s, v.X*s + v.Y*c}
}

// Distance returns the distance between a and b
func Distance(a, b Vec2) float64 {
	return b.Sub(a).Len()
}

// FromAngle returns a vector with the given heading and length
func FromAngle(angle, radius float64) Vec2 {
	return Vec2{radius * math.Cos(angle), radius * math.Sin(angle)}
}

// Towards moves from towards to by at most distance
func Towards(from, to Vec2, distance float64) Vec2 {
	return from.Add(to.Sub(from).Truncate(distance))
}

// ScaleAround scales pos away from center by multiplier
func ScaleAround(pos, center Vec2, multiplier float64) Vec2 {
	switch multiplier {
	case 1:
		return pos
	case 0:
		return center
	}
	return pos.Sub(center).Scale(multiplier).Add(center)
}

// Average returns the centroid of points, or zero when there are none
func Average(points []Vec2) Vec2 {
	if len(points) == 0 {
		return Vec2{}
	}
	var total Vec2
	for _, p := range points {
		total = total.Add(p)
	}
	return total.Scale(1 / float64(len(points)))
}

// InsideLine reports whether a circle at obj with radius size is on the inner side of
// the directed line from start to end. Inner is the left side when antiClockwise.
func InsideLine(obj Vec2, size float64, start, end Vec2, antiClockwise bool) bool {
	outside := end.Sub(start).RotateLeft()
	if !antiClockwise {
		outside = outside.Neg()
	}
	outside = outside.Unit()
	return obj.Sub(start).Dot(outside) <= size
}

// Clamp restricts v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
