package physics

import (
	"math"
	"testing"

	"arena-server/internal/vector"
)

const dt = 1.0 / 60

func addCircle(w *World, id string, pos vector.Vec2, radius float64, filter Filter) *Body {
	b := w.CreateBody(BodyDef{Type: DynamicBody, UserData: id, Position: pos})
	b.CreateFixture(FixtureDef{Shape: &CircleShape{Radius: radius}, Density: 1, Restitution: 1, Filter: filter})
	return b
}

var allFilter = Filter{Category: 1, Mask: 0xFFFF}

func TestFilterGroups(t *testing.T) {
	a := Filter{Category: 1, Mask: 0xFFFF, Group: -1}
	b := Filter{Category: 2, Mask: 0xFFFF, Group: -1}
	if a.ShouldCollide(b) {
		t.Error("expected same negative group to never collide")
	}
	b.Group = 0
	if !a.ShouldCollide(b) {
		t.Error("expected different groups to fall back to bits")
	}
	b.Mask = 0xFFFF ^ 1
	if a.ShouldCollide(b) {
		t.Error("expected mask to exclude category")
	}
	b = Filter{Category: 2, Mask: 0xFFFF, Group: 3}
	a.Group = 3
	if a.ShouldCollide(b) {
		t.Error("expected same positive group to never collide")
	}
}

func TestStepIntegratesVelocity(t *testing.T) {
	w := NewWorld()
	b := addCircle(w, "a", vector.New(0.5, 0.5), 0.01, allFilter)
	b.SetLinearVelocity(vector.New(0.6, 0))
	w.Step(dt)
	if math.Abs(b.Position().X-0.51) > 1e-9 {
		t.Errorf("expected x 0.51, got %f", b.Position().X)
	}
}

func TestDampingSlowsBody(t *testing.T) {
	w := NewWorld()
	b := w.CreateBody(BodyDef{Type: DynamicBody, LinearDamping: 3})
	b.CreateFixture(FixtureDef{Shape: &CircleShape{Radius: 0.01}, Density: 1})
	b.SetLinearVelocity(vector.New(1, 0))
	w.Step(dt)
	if b.LinearVelocity().X >= 1 {
		t.Errorf("expected damping to slow the body, got %f", b.LinearVelocity().X)
	}
}

func TestCirclesCollideAndBounce(t *testing.T) {
	w := NewWorld()
	a := addCircle(w, "a", vector.New(0.5, 0.5), 0.02, allFilter)
	b := addCircle(w, "b", vector.New(0.535, 0.5), 0.02, allFilter)
	a.SetLinearVelocity(vector.New(0.1, 0))
	w.Step(dt)

	if len(w.Contacts()) != 1 {
		t.Fatalf("expected 1 contact, got %d", len(w.Contacts()))
	}
	c := w.Contacts()[0]
	if c.FixtureA.Body().UserData() != "a" || c.FixtureB.Body().UserData() != "b" {
		t.Errorf("expected contact a-b, got %s-%s", c.FixtureA.Body().UserData(), c.FixtureB.Body().UserData())
	}
	if c.Normal.X <= 0 {
		t.Errorf("expected normal pointing from a to b, got %v", c.Normal)
	}
	if b.LinearVelocity().X <= 0 {
		t.Errorf("expected b pushed away, got %v", b.LinearVelocity())
	}
}

func TestSensorReportsWithoutResponse(t *testing.T) {
	w := NewWorld()
	a := addCircle(w, "a", vector.New(0.5, 0.5), 0.02, allFilter)
	s := w.CreateBody(BodyDef{Type: DynamicBody, UserData: "s", Position: vector.New(0.51, 0.5)})
	s.CreateFixture(FixtureDef{Shape: &CircleShape{Radius: 0.02}, Density: 1, Filter: allFilter, Sensor: true})
	w.Step(dt)

	if len(w.Contacts()) != 1 {
		t.Fatalf("expected sensor contact, got %d", len(w.Contacts()))
	}
	if !a.LinearVelocity().IsZero() || !s.LinearVelocity().IsZero() {
		t.Error("expected sensor contact to leave velocities alone")
	}
}

func TestStaticPairsIgnored(t *testing.T) {
	w := NewWorld()
	for _, id := range []string{"a", "b"} {
		b := w.CreateBody(BodyDef{Type: StaticBody, UserData: id, Position: vector.New(0.5, 0.5)})
		b.CreateFixture(FixtureDef{Shape: &CircleShape{Radius: 0.1}, Filter: allFilter})
	}
	w.Step(dt)
	if len(w.Contacts()) != 0 {
		t.Errorf("expected no static-static contacts, got %d", len(w.Contacts()))
	}
}

func TestCirclePolygonContact(t *testing.T) {
	w := NewWorld()
	wall := w.CreateBody(BodyDef{Type: StaticBody, UserData: "wall", Position: vector.New(0.5, 0.5)})
	wall.CreateFixture(FixtureDef{Shape: NewPolygonShape(vector.NewRect(0.1, 0.02).Points), Restitution: 1, Filter: allFilter})
	ball := addCircle(w, "ball", vector.New(0.5, 0.525), 0.02, allFilter)
	ball.SetLinearVelocity(vector.New(0, -0.5))
	w.Step(dt)

	if len(w.Contacts()) != 1 {
		t.Fatalf("expected 1 contact, got %d", len(w.Contacts()))
	}
	if ball.LinearVelocity().Y <= 0 {
		t.Errorf("expected ball to bounce off the wall, got %v", ball.LinearVelocity())
	}
}

func TestPolygonsOverlap(t *testing.T) {
	w := NewWorld()
	a := w.CreateBody(BodyDef{Type: DynamicBody, UserData: "a", Position: vector.New(0.5, 0.5)})
	a.CreateFixture(FixtureDef{Shape: NewPolygonShape(vector.NewRadial(4, 0.05).Points), Density: 1, Filter: allFilter})
	b := w.CreateBody(BodyDef{Type: DynamicBody, UserData: "b", Position: vector.New(0.58, 0.5)})
	b.CreateFixture(FixtureDef{Shape: NewPolygonShape(vector.NewRadial(4, 0.05).Points), Density: 1, Filter: allFilter})
	w.Step(dt)
	if len(w.Contacts()) != 1 {
		t.Fatalf("expected overlapping diamonds to touch, got %d contacts", len(w.Contacts()))
	}
	if len(w.Contacts()[0].Points) == 0 {
		t.Error("expected manifold points")
	}
}

func TestImmovableUntilReset(t *testing.T) {
	w := NewWorld()
	b := w.CreateBody(BodyDef{Type: DynamicBody, Immovable: true})
	b.CreateFixture(FixtureDef{Shape: &CircleShape{Radius: 0.01}, Density: 1})
	b.ApplyLinearImpulse(vector.New(1, 0))
	if !b.LinearVelocity().IsZero() {
		t.Errorf("expected immovable body to ignore impulse, got %v", b.LinearVelocity())
	}
	b.ResetMassData()
	b.ApplyLinearImpulse(vector.New(1, 0))
	if b.LinearVelocity().X <= 0 {
		t.Error("expected impulse to apply after reset")
	}
}

func TestRayCastStopsAtFirstHit(t *testing.T) {
	w := NewWorld()
	near := w.CreateBody(BodyDef{Type: StaticBody, UserData: "near", Position: vector.New(0.3, 0)})
	near.CreateFixture(FixtureDef{Shape: &CircleShape{Radius: 0.05}, Filter: allFilter})
	far := w.CreateBody(BodyDef{Type: StaticBody, UserData: "far", Position: vector.New(0.7, 0)})
	far.CreateFixture(FixtureDef{Shape: NewPolygonShape(vector.NewRadial(4, 0.05).Points), Filter: allFilter})

	best := 1.0
	var hit string
	w.RayCast(vector.New(0, 0), vector.New(1, 0), func(f *Fixture, point, normal vector.Vec2, fraction float64) float64 {
		if fraction < best {
			best = fraction
			hit = f.Body().UserData()
		}
		return fraction
	})
	if hit != "near" {
		t.Errorf("expected near hit, got %q", hit)
	}
	if math.Abs(best-0.25) > 1e-9 {
		t.Errorf("expected fraction 0.25, got %f", best)
	}
}

func TestSharedGroupPassesThrough(t *testing.T) {
	w := NewWorld()
	grouped := Filter{Category: 1, Mask: 0xFFFF, Group: -2}
	a := addCircle(w, "a", vector.New(0.5, 0.5), 0.02, grouped)
	b := addCircle(w, "b", vector.New(0.52, 0.5), 0.02, grouped)
	a.SetLinearVelocity(vector.New(0.1, 0))
	w.Step(dt)
	if len(w.Contacts()) != 0 {
		t.Errorf("expected no contacts within a group, got %d", len(w.Contacts()))
	}

	b.Fixtures()[0].SetFilter(allFilter)
	w.Step(dt)
	if len(w.Contacts()) != 1 {
		t.Errorf("expected a contact once the group is cleared, got %d", len(w.Contacts()))
	}
}

func TestImmovableStillReportsContacts(t *testing.T) {
	w := NewWorld()
	hero := w.CreateBody(BodyDef{Type: DynamicBody, UserData: "hero", Position: vector.New(0.5, 0.5), Immovable: true})
	hero.CreateFixture(FixtureDef{Shape: &CircleShape{Radius: 0.02}, Density: 1, Restitution: 1, Filter: allFilter})
	wall := w.CreateBody(BodyDef{Type: StaticBody, UserData: "wall", Position: vector.New(0.53, 0.5)})
	wall.CreateFixture(FixtureDef{Shape: &CircleShape{Radius: 0.02}, Filter: allFilter})
	w.Step(dt)

	if len(w.Contacts()) != 1 {
		t.Fatalf("expected 1 contact, got %d", len(w.Contacts()))
	}
	if hero.Position() != vector.New(0.5, 0.5) {
		t.Errorf("expected immovable hero to stay put, got %v", hero.Position())
	}
	if hero.Mass() != 0 {
		t.Errorf("expected no mass while immovable, got %f", hero.Mass())
	}
}

func TestStaticBodyFollowsTeleport(t *testing.T) {
	w := NewWorld()
	shield := w.CreateBody(BodyDef{Type: StaticBody, UserData: "shield", Position: vector.New(0.1, 0.1)})
	shield.CreateFixture(FixtureDef{Shape: &CircleShape{Radius: 0.03}, Filter: allFilter})
	ball := addCircle(w, "ball", vector.New(0.5, 0.5), 0.01, allFilter)
	w.Step(dt)
	if len(w.Contacts()) != 0 {
		t.Fatalf("expected no contacts before the move, got %d", len(w.Contacts()))
	}

	shield.SetPosition(ball.Position())
	w.Step(dt)
	if len(w.Contacts()) != 1 {
		t.Errorf("expected the moved shield to touch the ball, got %d contacts", len(w.Contacts()))
	}
}

func TestContactsFollowCreationOrder(t *testing.T) {
	w := NewWorld()
	first := addCircle(w, "first", vector.New(0.5, 0.5), 0.02, allFilter)
	addCircle(w, "second", vector.New(0.53, 0.5), 0.02, allFilter)
	first.SetLinearVelocity(vector.New(0.1, 0))
	w.Step(dt)
	if len(w.Contacts()) != 1 {
		t.Fatalf("expected 1 contact, got %d", len(w.Contacts()))
	}
	c := w.Contacts()[0]
	if c.FixtureA.Body() != first {
		t.Errorf("expected the older body first, got %s", c.FixtureA.Body().UserData())
	}
	if c.Depth <= 0 {
		t.Errorf("expected positive depth, got %f", c.Depth)
	}
}

func TestDestroyBodyDropsContacts(t *testing.T) {
	w := NewWorld()
	a := addCircle(w, "a", vector.New(0.5, 0.5), 0.02, allFilter)
	addCircle(w, "b", vector.New(0.51, 0.5), 0.02, allFilter)
	w.Step(dt)
	w.DestroyBody(a)
	if len(w.Contacts()) != 0 {
		t.Errorf("expected contacts of destroyed body to be dropped, got %d", len(w.Contacts()))
	}
	if len(w.Bodies()) != 1 {
		t.Errorf("expected 1 body, got %d", len(w.Bodies()))
	}
}
