package settings

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestDefaultIsValid(t *testing.T) {
	s := Default()
	if err := s.Validate(); err != nil {
		t.Fatalf("expected default settings to validate, got %v", err)
	}
	for id, spell := range s.Spells {
		if spell.ID != id {
			t.Errorf("expected spell id %q, got %q", id, spell.ID)
		}
	}
}

func TestDefaultReturnsFreshCopy(t *testing.T) {
	a := Default()
	a.Spells["fireball"].Projectile.Damage = 1000
	b := Default()
	if b.Spells["fireball"].Projectile.Damage == 1000 {
		t.Error("modifying one copy should not affect another")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	src := `{
		"Hero": {"MaxHealth": 150},
		"Spells": {
			"fireball": {
				"name": "Big Fireball",
				"action": "projectile",
				"cooldown": 30,
				"projectile": {"damage": 40, "density": 25, "radius": 0.005, "speed": 0.5, "maxTicks": 60}
			}
		}
	}`
	s, err := Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Hero.MaxHealth != 150 {
		t.Errorf("expected MaxHealth 150, got %f", s.Hero.MaxHealth)
	}
	if s.Hero.Radius != Default().Hero.Radius {
		t.Errorf("expected untouched Radius to keep its default, got %f", s.Hero.Radius)
	}
	fireball := s.Spells["fireball"]
	if fireball.ID != "fireball" {
		t.Errorf("expected id fireball, got %q", fireball.ID)
	}
	if fireball.Projectile.Damage != 40 {
		t.Errorf("expected damage 40, got %f", fireball.Projectile.Damage)
	}
	if _, ok := s.Spells["teleport"]; !ok {
		t.Error("expected other default spells to survive")
	}
}

func TestLoadRejectsUnknownTrigger(t *testing.T) {
	src := `{
		"Spells": {
			"fireball": {
				"action": "projectile",
				"projectile": {
					"damage": 10, "radius": 0.003, "speed": 0.5, "maxTicks": 60,
					"behaviours": [{"type": "homing", "trigger": {}}]
				}
			}
		}
	}`
	_, err := Load(strings.NewReader(src))
	if !errors.Is(err, ErrUnknownTrigger) {
		t.Errorf("expected ErrUnknownTrigger, got %v", err)
	}
}

func TestLoadRejectsUnknownBehaviour(t *testing.T) {
	src := `{"Spells": {"fireball": {"action": "projectile", "projectile": {"radius": 0.003, "speed": 0.5, "behaviours": [{"type": "teleportEverywhere"}]}}}}`
	_, err := Load(strings.NewReader(src))
	if !errors.Is(err, ErrUnknownBehaviour) {
		t.Errorf("expected ErrUnknownBehaviour, got %v", err)
	}
}

func TestLoadRejectsUnknownAction(t *testing.T) {
	src := `{"Spells": {"dance": {"action": "dance"}}}`
	_, err := Load(strings.NewReader(src))
	if !errors.Is(err, ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
}

func TestValidateRejectsUnknownSpellChoice(t *testing.T) {
	s := Default()
	s.Choices.Options["a"] = [][]string{{"doesNotExist"}}
	if err := s.Validate(); !errors.Is(err, ErrUnknownSpell) {
		t.Errorf("expected ErrUnknownSpell, got %v", err)
	}
}

func TestValidateRejectsUnknownObstacleTemplate(t *testing.T) {
	s := Default()
	s.Layouts["broken"] = &Layout{Obstacles: []ObstacleLayout{{Type: "lava-monster", NumObstacles: 1, Extent: 0.01}}}
	if err := s.Validate(); !errors.Is(err, ErrUnknownObstacle) {
		t.Errorf("expected ErrUnknownObstacle, got %v", err)
	}
}

func TestResolveKeyBindings(t *testing.T) {
	s := Default()
	resolved := s.ResolveKeyBindings(KeyBindings{"q": "thrust", "w": "fireball"})
	if got := resolved.KeysToSpells["q"]; got != "thrust" {
		t.Errorf("expected q bound to thrust, got %q", got)
	}
	if got := resolved.KeysToSpells["w"]; got != "shield" {
		t.Errorf("expected invalid option to fall back to shield, got %q", got)
	}
	if got := resolved.SpellsToKeys["thrust"]; got != "q" {
		t.Errorf("expected thrust on q, got %q", got)
	}
	if len(resolved.KeysToSpells) != len(s.Choices.Options) {
		t.Errorf("expected every key bound, got %d of %d", len(resolved.KeysToSpells), len(s.Choices.Options))
	}
}

func TestPartialScaling(t *testing.T) {
	p := &PartialScaling{InitialMultiplier: 0.25, Ticks: 30}
	if got := p.Multiplier(15); math.Abs(got-0.625) > 1e-9 {
		t.Errorf("expected 0.625, got %f", got)
	}
	if got := p.Multiplier(30); got != 1 {
		t.Errorf("expected 1 after full duration, got %f", got)
	}

	step := &PartialScaling{InitialMultiplier: 0.5, Ticks: 10, Step: true}
	if got := step.Multiplier(9); got != 0.5 {
		t.Errorf("expected 0.5 before the step, got %f", got)
	}

	var none *PartialScaling
	if got := none.Multiplier(0); got != 1 {
		t.Errorf("expected nil scaling to be 1, got %f", got)
	}
}

func TestRandomKeyBindingsResolveToThemselves(t *testing.T) {
	s := Default()
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Int64().Draw(t, "seed")
		bindings := s.RandomKeyBindings(rand.New(rand.NewSource(seed)))
		resolved := s.ResolveKeyBindings(bindings)
		for key, spellID := range bindings {
			if resolved.KeysToSpells[key] != spellID {
				t.Fatalf("key %s: expected %s, got %s", key, spellID, resolved.KeysToSpells[key])
			}
		}
	})
}
