package vector

import "math"

// anglePrecision breaks ties at a half turn so every machine picks the same direction
const anglePrecision = 0.001

// NormalizeAngle wraps angle to [-Pi, Pi]
func NormalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= Tau
	}
	for a < -math.Pi {
		a += Tau
	}
	return a
}

// AngleDelta returns the signed shortest rotation from current to target
func AngleDelta(current, target float64) float64 {
	delta := NormalizeAngle(target - current)
	if math.Abs(math.Abs(delta)-math.Pi) < anglePrecision {
		delta = math.Pi
	}
	return delta
}

// TurnTowards rotates current towards target by at most turnRate radians
func TurnTowards(current, target, turnRate float64) float64 {
	delta := AngleDelta(current, target)
	step := math.Min(math.Abs(delta), turnRate)
	if delta < 0 {
		step = -step
	} else if delta == 0 {
		step = 0
	}
	return current + step
}

// RedirectTowards turns the heading of v towards target by at most turnRate, keeping its length
func RedirectTowards(v, target Vec2, turnRate float64) Vec2 {
	angle := TurnTowards(v.Angle(), target.Angle(), turnRate)
	return v.Redirect(FromAngle(angle, 1))
}

// TurnVectorBy rotates the heading of v by delta, keeping its length
func TurnVectorBy(v Vec2, delta float64) Vec2 {
	return FromAngle(v.Angle()+delta, v.Len())
}

// LerpAngle interpolates between two angles taking the short path
func LerpAngle(from, to, t float64) float64 {
	return from + NormalizeAngle(to-from)*t
}
