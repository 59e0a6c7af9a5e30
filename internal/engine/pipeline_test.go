package engine

import (
	"math"
	"testing"

	"arena-server/internal/settings"
	"arena-server/internal/vector"
)

// duelWorld starts a match with a and b facing each other across the center
func duelWorld(t *testing.T) (*World, *Hero, *Hero) {
	t.Helper()
	w := newTestWorld(t, testSettings(), "a", "b")
	startMatch(w)
	a := mustHero(t, w, "a")
	b := mustHero(t, w, "b")
	a.body.SetPosition(vector.New(0.4, 0.5))
	b.body.SetPosition(vector.New(0.6, 0.5))
	return w, a, b
}

// healthDrops ticks the world and records every tick on which the hero lost health
func healthDrops(w *World, hero *Hero, ticks int) []float64 {
	var drops []float64
	last := hero.Health
	for i := 0; i < ticks; i++ {
		w.Tick()
		if hero.Health < last {
			drops = append(drops, last-hero.Health)
		}
		last = hero.Health
	}
	return drops
}

func TestFireballHitsThroughTick(t *testing.T) {
	w, a, b := duelWorld(t)
	damage := w.Settings().Spells["fireball"].Projectile.Damage

	w.QueueAction("a", Action{Type: "fireball", Target: b.Position()})
	drops := healthDrops(w, b, 60)

	if len(drops) != 1 {
		t.Fatalf("expected b to be hit once, got %v", drops)
	}
	if math.Abs(drops[0]-damage) > 1e-9 {
		t.Errorf("expected %f damage, got %f", damage, drops[0])
	}
	if a.Health != a.MaxHealth {
		t.Errorf("expected a untouched, got health %f", a.Health)
	}
}

func TestReflectShieldReturnsFireball(t *testing.T) {
	w, a, b := duelWorld(t)
	spells := w.Settings().Spells
	w.addShield(b, spells["shield"])

	w.QueueAction("a", Action{Type: "fireball", Target: b.Position()})
	drops := healthDrops(w, a, 80)

	want := spells["fireball"].Projectile.Damage * spells["shield"].DamageMultiplier
	if len(drops) != 1 {
		t.Fatalf("expected a to be hit once by its own fireball, got %v", drops)
	}
	if math.Abs(drops[0]-want) > 1e-9 {
		t.Errorf("expected %f reflected damage, got %f", want, drops[0])
	}
	if b.Health != b.MaxHealth {
		t.Errorf("expected shielded b untouched, got health %f", b.Health)
	}
}

func TestDetonationKeepsOwnerWhenReflectedOnSameTick(t *testing.T) {
	w, a, b := duelWorld(t)
	a.body.SetPosition(vector.New(0.45, 0.5))
	b.body.SetPosition(vector.New(0.55, 0.5))
	spells := w.Settings().Spells
	w.addShield(b, spells["shield"])

	template := *spells["fireball"].Projectile
	template.Detonate = &settings.DetonateTemplate{
		DamagePacketTemplate: settings.DamagePacketTemplate{Damage: 10},
		Radius:               0.1,
	}
	// inside b's shield but clear of b itself
	projectile := w.addProjectileAt(vector.New(0.53, 0.5), 0, b.Position(), "fireball", &template, "a", a.FilterGroup)
	projectile.body.SetLinearVelocity(vector.Zero())
	projectile.ExpireTick = w.CurrentTick() + 1

	w.Tick()

	if projectile.Owner != "b" {
		t.Errorf("expected the shield to take ownership on contact, got owner %q", projectile.Owner)
	}
	if b.Health >= b.MaxHealth {
		t.Error("expected the detonation to damage b as a's enemy")
	}
	if a.Health != a.MaxHealth {
		t.Errorf("expected a untouched by its own detonation, got health %f", a.Health)
	}

	var detonations int
	for _, ev := range w.TakeEvents() {
		if d, ok := ev.(*DetonateEvent); ok && d.SourceID == projectile.id {
			detonations++
		}
	}
	if detonations != 1 {
		t.Errorf("expected 1 detonation, got %d", detonations)
	}
}
