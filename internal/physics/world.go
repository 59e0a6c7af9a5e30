package physics

import (
	"math"
	"sort"

	"github.com/jakecoffman/cp"

	"arena-server/internal/vector"
)

const (
	solverIterations = 10
	collisionSlop    = 0.0001 // allowed penetration before positional correction kicks in
)

// Contact is a touching pair of fixtures found during the last step
type Contact struct {
	FixtureA *Fixture
	FixtureB *Fixture
	// Normal points from FixtureA to FixtureB
	Normal vector.Vec2
	Points []vector.Vec2
	Depth  float64
}

// World owns all bodies and advances them in fixed steps
type World struct {
	space    *cp.Space
	bodies   []*Body
	nextSeq  int
	contacts []Contact
}

// NewWorld creates an empty world without gravity
func NewWorld() *World {
	w := &World{space: cp.NewSpace()}
	w.space.Iterations = solverIterations
	w.space.SetCollisionSlop(collisionSlop)

	handler := w.space.NewCollisionHandler(0, 0)
	handler.PreSolveFunc = w.preSolve
	return w
}

// CreateBody adds a body to the world
func (w *World) CreateBody(def BodyDef) *Body {
	var body *cp.Body
	if def.Type == DynamicBody && !def.Immovable {
		body = cp.NewBody(0, 0)
	} else {
		body = cp.NewKinematicBody()
	}
	body.SetAngle(def.Angle)
	body.SetPosition(toCP(def.Position))

	b := &Body{
		world:          w,
		seq:            w.nextSeq,
		typ:            def.Type,
		userData:       def.UserData,
		linearDamping:  def.LinearDamping,
		angularDamping: def.AngularDamping,
		cp:             body,
	}
	body.UserData = b
	body.SetVelocityUpdateFunc(b.updateVelocity)
	if def.Type == DynamicBody {
		body.SetVelocityVector(toCP(def.LinearVelocity))
	}

	w.space.AddBody(body)
	w.nextSeq++
	w.bodies = append(w.bodies, b)
	return b
}

// DestroyBody removes a body and its fixtures. Contacts involving it are dropped.
func (w *World) DestroyBody(b *Body) {
	if b == nil || b.destroyed {
		return
	}
	b.destroyed = true
	for _, f := range b.fixtures {
		w.space.RemoveShape(f.cp)
	}
	w.space.RemoveBody(b.cp)
	for i, other := range w.bodies {
		if other == b {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			break
		}
	}
	kept := w.contacts[:0]
	for _, c := range w.contacts {
		if c.FixtureA.body != b && c.FixtureB.body != b {
			kept = append(kept, c)
		}
	}
	w.contacts = kept
}

// Bodies returns the live bodies in creation order
func (w *World) Bodies() []*Body {
	return w.bodies
}

// Contacts returns the touching pairs found by the last step, sensors included
func (w *World) Contacts() []Contact {
	return w.contacts
}

// Step integrates positions, finds contacts and resolves them over dt seconds
func (w *World) Step(dt float64) {
	w.contacts = w.contacts[:0]
	w.space.Step(dt)

	// creation order keeps contact handling deterministic
	sort.Slice(w.contacts, func(i, j int) bool {
		a, b := w.contacts[i], w.contacts[j]
		if a.FixtureA.body.seq != b.FixtureA.body.seq {
			return a.FixtureA.body.seq < b.FixtureA.body.seq
		}
		if a.FixtureB.body.seq != b.FixtureB.body.seq {
			return a.FixtureB.body.seq < b.FixtureB.body.seq
		}
		return fixtureIndex(a.FixtureA) < fixtureIndex(b.FixtureA)
	})
}

// preSolve records every touching pair, sensors and immovable pairs included
func (w *World) preSolve(arb *cp.Arbiter, _ *cp.Space, _ interface{}) bool {
	shapeA, shapeB := arb.Shapes()
	fa, okA := shapeA.UserData.(*Fixture)
	fb, okB := shapeB.UserData.(*Fixture)
	if !okA || !okB {
		return true
	}
	if fa.body.typ == StaticBody && fb.body.typ == StaticBody {
		return false
	}

	set := arb.ContactPointSet()
	contact := Contact{
		FixtureA: fa,
		FixtureB: fb,
		Normal:   fromCP(set.Normal),
	}
	for i := 0; i < set.Count; i++ {
		p := set.Points[i]
		contact.Points = append(contact.Points, fromCP(p.PointA.Lerp(p.PointB, 0.5)))
		contact.Depth = math.Max(contact.Depth, -p.Distance)
	}
	if fb.body.seq < fa.body.seq {
		contact.FixtureA, contact.FixtureB = fb, fa
		contact.Normal = contact.Normal.Scale(-1)
	}
	w.contacts = append(w.contacts, contact)
	return true
}

func fixtureIndex(f *Fixture) int {
	for i, g := range f.body.fixtures {
		if g == f {
			return i
		}
	}
	return -1
}

// RayCastFunc receives each fixture hit by a ray. It returns the new maximum fraction:
// -1 to ignore the hit, 0 to stop, the hit fraction to clip, or 1 to continue unchanged.
type RayCastFunc func(f *Fixture, point, normal vector.Vec2, fraction float64) float64

type rayHit struct {
	fixture  *Fixture
	point    vector.Vec2
	normal   vector.Vec2
	fraction float64
}

// RayCast reports fixtures crossed by the segment from p1 to p2, nearest first
func (w *World) RayCast(p1, p2 vector.Vec2, fn RayCastFunc) {
	var hits []rayHit
	w.space.SegmentQuery(toCP(p1), toCP(p2), 0, cp.SHAPE_FILTER_ALL, func(shape *cp.Shape, point, normal cp.Vector, alpha float64, _ interface{}) {
		if f, ok := shape.UserData.(*Fixture); ok {
			hits = append(hits, rayHit{fixture: f, point: fromCP(point), normal: fromCP(normal), fraction: alpha})
		}
	}, nil)
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].fraction < hits[j].fraction
	})

	maxFraction := 1.0
	for _, hit := range hits {
		if hit.fraction > maxFraction {
			return
		}
		result := fn(hit.fixture, hit.point, hit.normal, hit.fraction)
		if result == 0 {
			return
		}
		if result > 0 && result < maxFraction {
			maxFraction = result
		}
	}
}
