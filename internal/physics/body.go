package physics

import (
	"math"

	"github.com/jakecoffman/cp"

	"arena-server/internal/vector"
)

// BodyType distinguishes movable bodies from fixed ones
type BodyType int

const (
	StaticBody BodyType = iota
	DynamicBody
)

// BodyDef describes a body to create
type BodyDef struct {
	Type           BodyType
	UserData       string
	Position       vector.Vec2
	Angle          float64
	LinearVelocity vector.Vec2
	LinearDamping  float64
	AngularDamping float64
	// Bullet marks fast bodies. The space has no swept collision, so it is informational.
	Bullet bool
	// Immovable bodies ignore impulses and contacts until ResetMassData is called
	Immovable bool
}

// FixtureDef describes a fixture to attach to a body.
// The restitution of a touching pair is the product of both fixtures'.
type FixtureDef struct {
	Shape       Shape
	Density     float64
	Restitution float64
	Filter      Filter
	Sensor      bool
}

// Fixture attaches a shape with material and filter data to a body
type Fixture struct {
	body   *Body
	shape  Shape
	filter Filter
	cp     *cp.Shape
}

// Body returns the owning body
func (f *Fixture) Body() *Body { return f.body }

// Shape returns the collision shape
func (f *Fixture) Shape() Shape { return f.shape }

// Filter returns the collision filter
func (f *Fixture) Filter() Filter { return f.filter }

// SetFilter replaces the collision filter; takes effect on the next step
func (f *Fixture) SetFilter(filter Filter) {
	f.filter = filter
	f.cp.SetFilter(filter.shapeFilter())
}

// IsSensor reports whether the fixture detects overlaps without a collision response
func (f *Fixture) IsSensor() bool { return f.cp.Sensor() }

// Body is a rigid body made of one or more fixtures.
// Static and immovable bodies are kinematic in the underlying space so that
// they can still be moved by hand and report contacts.
type Body struct {
	world    *World
	seq      int
	typ      BodyType
	userData string

	linearDamping  float64
	angularDamping float64

	fixtures  []*Fixture
	cp        *cp.Body
	destroyed bool
}

// UserData returns the id the body was created with
func (b *Body) UserData() string { return b.userData }

// IsStatic reports whether the body never moves under simulation
func (b *Body) IsStatic() bool { return b.typ == StaticBody }

// Position returns the world position of the body origin
func (b *Body) Position() vector.Vec2 { return fromCP(b.cp.Position()) }

// SetPosition teleports the body
func (b *Body) SetPosition(p vector.Vec2) { b.cp.SetPosition(toCP(p)) }

// Angle returns the body rotation in radians
func (b *Body) Angle() float64 { return b.cp.Angle() }

// SetAngle sets the body rotation
func (b *Body) SetAngle(a float64) { b.cp.SetAngle(a) }

// SetTransform sets position and rotation together
func (b *Body) SetTransform(p vector.Vec2, angle float64) {
	b.cp.SetAngle(angle)
	b.cp.SetPosition(toCP(p))
}

// LinearVelocity returns the velocity in units per second
func (b *Body) LinearVelocity() vector.Vec2 { return fromCP(b.cp.Velocity()) }

// SetLinearVelocity sets the velocity of a dynamic body
func (b *Body) SetLinearVelocity(v vector.Vec2) {
	if b.typ == DynamicBody {
		b.cp.SetVelocityVector(toCP(v))
	}
}

// AngularVelocity returns the spin in radians per second
func (b *Body) AngularVelocity() float64 { return b.cp.AngularVelocity() }

// SetAngularVelocity sets the spin of a dynamic body
func (b *Body) SetAngularVelocity(w float64) {
	if b.typ == DynamicBody {
		b.cp.SetAngularVelocity(w)
	}
}

// LinearDamping returns the velocity decay rate
func (b *Body) LinearDamping() float64 { return b.linearDamping }

// SetLinearDamping sets the velocity decay rate
func (b *Body) SetLinearDamping(d float64) { b.linearDamping = d }

// Mass returns the mass computed from the fixtures, or zero while the body cannot move
func (b *Body) Mass() float64 {
	if b.IsImmovable() {
		return 0
	}
	return b.cp.Mass()
}

// IsImmovable reports whether impulses are currently ignored
func (b *Body) IsImmovable() bool { return b.cp.GetType() != cp.BODY_DYNAMIC }

// ApplyLinearImpulse changes the velocity by impulse / mass
func (b *Body) ApplyLinearImpulse(impulse vector.Vec2) {
	if b.IsImmovable() {
		return
	}
	center := b.cp.LocalToWorld(b.cp.CenterOfGravity())
	b.cp.ApplyImpulseAtWorldPoint(toCP(impulse), center)
}

// Fixtures returns the attached fixtures
func (b *Body) Fixtures() []*Fixture { return b.fixtures }

// CreateFixture attaches a new fixture and recomputes the mass
func (b *Body) CreateFixture(def FixtureDef) *Fixture {
	shape := def.Shape.attach(b.cp)
	shape.SetSensor(def.Sensor)
	shape.SetElasticity(def.Restitution)
	shape.SetFilter(def.Filter.shapeFilter())
	shape.SetDensity(def.Density)

	f := &Fixture{body: b, shape: def.Shape, filter: def.Filter, cp: shape}
	shape.UserData = f
	b.world.space.AddShape(shape)
	b.fixtures = append(b.fixtures, f)
	b.ensureMass()
	return f
}

// DestroyFixture detaches a fixture and recomputes the mass
func (b *Body) DestroyFixture(f *Fixture) {
	for i, g := range b.fixtures {
		if g == f {
			b.fixtures = append(b.fixtures[:i], b.fixtures[i+1:]...)
			b.world.space.RemoveShape(f.cp)
			break
		}
	}
	b.ensureMass()
}

// ResetMassData recomputes the mass from the fixtures and makes the body movable
func (b *Body) ResetMassData() {
	if b.typ == DynamicBody && b.IsImmovable() {
		v := b.cp.Velocity()
		b.cp.SetType(cp.BODY_DYNAMIC)
		b.cp.SetVelocityVector(v)
	}
	b.ensureMass()
}

// ensureMass gives massless dynamic bodies a unit mass so impulses stay finite
func (b *Body) ensureMass() {
	if b.IsImmovable() {
		return
	}
	if m := b.cp.Mass(); m <= 0 || math.IsInf(m, 0) {
		b.cp.SetMass(1)
	}
	if i := b.cp.Moment(); i <= 0 || math.IsInf(i, 0) {
		b.cp.SetMoment(1)
	}
}

// updateVelocity applies damping in place of the space-wide default
func (b *Body) updateVelocity(body *cp.Body, _ cp.Vector, _, dt float64) {
	if b.typ != DynamicBody {
		return
	}
	v := body.Velocity().Mult(1 / (1 + dt*b.linearDamping))
	body.SetVelocityVector(v)
	body.SetAngularVelocity(body.AngularVelocity() / (1 + dt*b.angularDamping))
}
