package engine

import (
	"testing"

	"arena-server/internal/settings"
)

func burnTemplate(maxStacks int) settings.BuffTemplate {
	return settings.BuffTemplate{
		Type:        settings.BuffBurn,
		Stack:       "ignite",
		MaxStacks:   maxStacks,
		MaxTicks:    60,
		HitInterval: 15,
		Packet:      &settings.DamagePacketTemplate{Damage: 2, NoHit: true},
	}
}

func TestBurnStacksUpToLimit(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a", "b")
	b := mustHero(t, w, "b")

	for i := 0; i < 5; i++ {
		w.instantiateBuff("ignite/burn", burnTemplate(3), b, buffContext{otherID: "a"})
		w.Tick()
	}

	burn := b.Buff("ignite/burn")
	if burn == nil {
		t.Fatal("expected a burn buff")
	}
	if burn.NumStacks != 3 {
		t.Errorf("expected 3 stacks, got %d", burn.NumStacks)
	}
	if burn.Packet.Damage != 6 {
		t.Errorf("expected stacked damage 6, got %f", burn.Packet.Damage)
	}
	// the last application still refreshes the duration
	if burn.ExpireTick != w.CurrentTick()-1+60 {
		t.Errorf("expected expiry refreshed to %d, got %d", w.CurrentTick()-1+60, burn.ExpireTick)
	}
}

func TestBurnDefaultsToOneStack(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a", "b")
	b := mustHero(t, w, "b")

	for i := 0; i < 3; i++ {
		w.instantiateBuff("ignite/burn", burnTemplate(0), b, buffContext{otherID: "a"})
	}

	burn := b.Buff("ignite/burn")
	if burn == nil {
		t.Fatal("expected a burn buff")
	}
	if burn.NumStacks != 1 || burn.Packet.Damage != 2 {
		t.Errorf("expected a single stack of 2 damage, got %d stacks of %f", burn.NumStacks, burn.Packet.Damage)
	}
}
