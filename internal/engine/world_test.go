package engine

import (
	"math"
	"testing"

	"arena-server/internal/settings"
	"arena-server/internal/vector"
)

type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

func testSettings() *settings.Settings {
	s := settings.Default()
	s.Layouts = map[string]*settings.Layout{"empty": {}}
	return s
}

// newTestWorld seeds an empty arena and joins heroIDs on the first tick
func newTestWorld(t fataler, s *settings.Settings, heroIDs ...string) *World {
	t.Helper()
	w, err := NewWorld(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w.QueueOccurrence(&Environment{Seed: 1, LayoutID: "empty"})
	for _, id := range heroIDs {
		w.QueueOccurrence(&Join{HeroID: id, PlayerName: id})
	}
	w.Tick()
	return w
}

func mustHero(t fataler, w *World, id string) *Hero {
	t.Helper()
	hero, ok := w.Hero(id)
	if !ok {
		t.Fatalf("expected hero %s to exist", id)
	}
	return hero
}

func TestNewWorldRejectsNilSettings(t *testing.T) {
	if _, err := NewWorld(nil); err == nil {
		t.Error("expected error for nil settings")
	}
}

func TestJoinCreatesHero(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a")

	hero := mustHero(t, w, "a")
	if hero.Health != w.Settings().Hero.MaxHealth {
		t.Errorf("expected full health %f, got %f", w.Settings().Hero.MaxHealth, hero.Health)
	}
	if !w.IsActive("a") {
		t.Error("expected joined player to be active")
	}
	if len(hero.KeysToSpells) != len(w.Settings().Choices.Options) {
		t.Errorf("expected %d bound keys, got %d", len(w.Settings().Choices.Options), len(hero.KeysToSpells))
	}

	var joins int
	for _, n := range w.TakeNotifications() {
		if _, ok := n.(*JoinNotification); ok {
			joins++
		}
	}
	if joins != 1 {
		t.Errorf("expected 1 join notification, got %d", joins)
	}
}

func TestJoinTwiceKeepsOneHero(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a")
	w.QueueOccurrence(&Join{HeroID: "a", PlayerName: "again"})
	w.Tick()

	if n := len(w.Heroes()); n != 1 {
		t.Errorf("expected 1 hero, got %d", n)
	}
	if p, _ := w.Player("a"); p.Name != "again" {
		t.Errorf("expected player name to be updated, got %q", p.Name)
	}
}

func TestChargeDelaysChannelling(t *testing.T) {
	s := testSettings()
	s.Spells["charged"] = &settings.Spell{
		ID:                      "charged",
		Action:                  settings.ActionBuff,
		Untargeted:              true,
		ChargeTicks:             30,
		InterruptibleAfterTicks: settings.Ptr(0),
		Buffs: []settings.BuffTemplate{
			{Type: settings.BuffMovement, MovementProportion: 1, MaxTicks: 100},
		},
	}
	s.Choices.Options["t"] = [][]string{{"charged"}}

	w := newTestWorld(t, s, "a")
	hero := mustHero(t, w, "a")

	w.QueueAction("a", Action{Type: "charged", Target: vector.New(0.5, 0.5)})
	for w.CurrentTick() < 40 {
		w.Tick()
	}

	buff := hero.Buff("charged/" + settings.BuffMovement)
	if buff == nil {
		t.Fatal("expected movement buff after the charge")
	}
	// queued at tick 2, so channelling starts 30 ticks later
	if buff.InitialTick != 32 {
		t.Errorf("expected buff to start at tick 32, got %d", buff.InitialTick)
	}
	if hero.Casting != nil {
		t.Errorf("expected cast to be complete, got stage %d", hero.Casting.Stage)
	}
}

func TestRebindDuringChargeClearsCasting(t *testing.T) {
	s := testSettings()
	s.Spells["charged"] = &settings.Spell{
		ID:                      "charged",
		Action:                  settings.ActionBuff,
		Untargeted:              true,
		ChargeTicks:             1000,
		InterruptibleAfterTicks: settings.Ptr(0),
		Buffs: []settings.BuffTemplate{
			{Type: settings.BuffMovement, MovementProportion: 1, MaxTicks: 100},
		},
	}
	s.Choices.Options["t"] = [][]string{{"charged"}, {"fireball"}}

	w := newTestWorld(t, s, "a")
	hero := mustHero(t, w, "a")

	w.QueueAction("a", Action{Type: "charged", Target: vector.New(0.5, 0.5)})
	for i := 0; i < 5; i++ {
		w.Tick()
	}
	if hero.Casting == nil || hero.Casting.Stage != CastCharging {
		t.Fatalf("expected hero to be charging, got %+v", hero.Casting)
	}

	w.QueueOccurrence(&Spells{HeroID: "a", KeyBindings: settings.KeyBindings{"t": "fireball"}})
	w.Tick()
	if hero.KeysToSpells["t"] != "fireball" {
		t.Fatalf("expected t rebound to fireball, got %s", hero.KeysToSpells["t"])
	}
	w.Tick()
	if hero.Casting != nil {
		t.Fatalf("expected casting of the unbound spell to clear, got stage %d", hero.Casting.Stage)
	}

	start := hero.Position()
	w.QueueAction("a", Action{Type: settings.ActionMove, Target: start.Add(vector.New(0.05, 0))})
	for i := 0; i < 30; i++ {
		w.Tick()
	}
	if moved := vector.Distance(hero.Position(), start); moved < Pixel {
		t.Errorf("expected hero to move after the rebind, moved %f", moved)
	}
}

func TestUnboundSpellIsIgnored(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a")
	hero := mustHero(t, w, "a")

	unbound := ""
	for id, spell := range w.Settings().Spells {
		if _, ok := hero.SpellsToKeys[id]; !ok && spell.Action == settings.ActionProjectile {
			unbound = id
			break
		}
	}
	if unbound == "" {
		t.Skip("every projectile spell is bound")
	}

	w.QueueAction("a", Action{Type: unbound, Target: vector.New(0.9, 0.5)})
	w.Tick()
	if hero.Casting != nil {
		t.Errorf("expected no casting for unbound spell %s", unbound)
	}
}

func TestMoveReachesTarget(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a")
	hero := mustHero(t, w, "a")

	target := hero.Position().Add(vector.New(0.01, 0))
	w.QueueAction("a", Action{Type: settings.ActionMove, Target: target})
	for i := 0; i < 60; i++ {
		w.Tick()
	}

	if d := vector.Distance(hero.Position(), target); d > 2*Pixel {
		t.Errorf("expected hero at target, got distance %f", d)
	}
	if hero.MoveTo != nil {
		t.Error("expected MoveTo to clear on arrival")
	}
}

func TestMitigationDiminishesRepeatedHits(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a", "b")
	w.startTick = 0
	b := mustHero(t, w, "b")

	before := b.Health
	w.applyDamage(b, DamagePacket{FromHeroID: "a", Damage: 10})
	w.applyDamage(b, DamagePacket{FromHeroID: "a", Damage: 10})

	taken := before - b.Health
	if taken >= 20 {
		t.Errorf("expected repeated hits to diminish, took %f", taken)
	}
	if taken <= 10 {
		t.Errorf("expected second hit to do some damage, took %f", taken)
	}
	if b.KillerHeroID != "a" {
		t.Errorf("expected killer a, got %q", b.KillerHeroID)
	}
}

func TestMitigationSubtractsOtherAttackers(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a", "b", "c")
	w.startTick = 0
	c := mustHero(t, w, "c")

	before := c.Health
	w.applyDamage(c, DamagePacket{FromHeroID: "a", Damage: 10})
	w.applyDamage(c, DamagePacket{FromHeroID: "b", Damage: 10})

	if taken := before - c.Health; math.Abs(taken-10) > 1e-9 {
		t.Errorf("expected 10 damage in total, took %f", taken)
	}
}

func TestMitigationWindowExpires(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a", "b")
	w.startTick = 0
	b := mustHero(t, w, "b")

	w.applyDamage(b, DamagePacket{FromHeroID: "a", Damage: 10})
	for i := 0; i <= w.Settings().Hero.DamageMitigationTicks; i++ {
		w.decayMitigation()
		w.tick++
	}
	if len(b.DamageSources) != 0 || len(b.DamageSourceHistory) != 0 {
		t.Errorf("expected mitigation to be forgotten, got %v", b.DamageSources)
	}
}

func TestNoDamageBeforeStart(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a", "b")
	b := mustHero(t, w, "b")

	w.applyDamage(b, DamagePacket{FromHeroID: "a", Damage: 10})
	if b.Health != b.MaxHealth {
		t.Errorf("expected no damage before the match starts, got health %f", b.Health)
	}
	if b.HitTick != w.CurrentTick() {
		t.Errorf("expected hit to be recorded at tick %d, got %d", w.CurrentTick(), b.HitTick)
	}
}

func TestReflectShieldTakesOwnership(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a", "b")
	a := mustHero(t, w, "a")
	b := mustHero(t, w, "b")
	spells := w.Settings().Spells

	shield := w.addShield(b, spells["shield"])
	projectile := w.addProjectile(a, b.Position(), spells["fireball"], spells["fireball"].Projectile, projectileConfig{})
	damage := projectile.DamageTemplate.Damage

	w.handleProjectileHitShield(projectile, shield)

	if projectile.Owner != "b" {
		t.Errorf("expected projectile owner b, got %q", projectile.Owner)
	}
	if projectile.TargetID != "a" {
		t.Errorf("expected projectile to target its old owner, got %q", projectile.TargetID)
	}
	want := damage * spells["shield"].DamageMultiplier
	if math.Abs(projectile.DamageTemplate.Damage-want) > 1e-9 {
		t.Errorf("expected damage %f, got %f", want, projectile.DamageTemplate.Damage)
	}
}

func TestOwnShieldDoesNotReflect(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a")
	a := mustHero(t, w, "a")
	spells := w.Settings().Spells

	shield := w.addShield(a, spells["shield"])
	projectile := w.addProjectile(a, vector.New(0.9, 0.5), spells["fireball"], spells["fireball"].Projectile, projectileConfig{})

	w.handleProjectileHitShield(projectile, shield)
	if projectile.Owner != "a" {
		t.Errorf("expected owner to stay a, got %q", projectile.Owner)
	}
}

func TestProjectileHitsTargetOnce(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a", "b")
	w.startTick = 0
	a := mustHero(t, w, "a")
	b := mustHero(t, w, "b")
	spell := w.Settings().Spells["fireball"]

	projectile := w.addProjectile(a, b.Position(), spell, spell.Projectile, projectileConfig{})
	projectile.DamageTemplate.Damage = 20
	projectile.HitInterval = 0

	before := b.Health
	for i := 0; i < 3; i++ {
		w.handleProjectileHitHero(projectile, b)
		w.tick++
	}
	if taken := before - b.Health; math.Abs(taken-20) > 1e-9 {
		t.Errorf("expected 20 damage from a single hit, took %f", taken)
	}
}

func TestCalculateAlliance(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a", "b", "c")
	w.teamAssignments["a"] = "team0"
	w.teamAssignments["b"] = "team0"
	w.teamAssignments["c"] = "team1"

	cases := []struct {
		from, to string
		want     uint16
	}{
		{"a", "a", settings.AllianceSelf},
		{"a", "b", settings.AllianceAlly},
		{"a", "c", settings.AllianceEnemy},
		{"a", "", settings.AllianceNeutral},
		{"a", "unassigned", settings.AllianceEnemy},
	}
	for _, c := range cases {
		if got := w.calculateAlliance(c.from, c.to); got != c.want {
			t.Errorf("%s -> %s: expected %d, got %d", c.from, c.to, c.want, got)
		}
	}
}
