package engine

import (
	"math"

	"arena-server/internal/settings"
)

// DamagePacket is damage ready to be applied, with buffs of the attacker already folded in
type DamagePacket struct {
	FromHeroID  string
	Damage      float64
	LifeSteal   float64
	MinHealth   float64 // never reduce the target below this
	IsLava      bool
	NoHit       bool
	NoKnockback bool
	NoMitigate  bool
	NoRedirect  bool
}

// instantiateDamage scales a template by multiplier and the lifesteal buffs of the attacker
func (w *World) instantiateDamage(template settings.DamagePacketTemplate, fromHeroID string, multiplier float64) DamagePacket {
	packet := DamagePacket{
		FromHeroID:  fromHeroID,
		Damage:      template.Damage * multiplier,
		LifeSteal:   template.LifeSteal,
		MinHealth:   template.MinHealth,
		IsLava:      template.IsLava,
		NoHit:       template.NoHit,
		NoKnockback: template.NoKnockback,
	}

	fromHero, ok := w.Hero(fromHeroID)
	if !ok {
		return packet
	}
	for _, buff := range fromHero.Buffs {
		if buff.Type != settings.BuffLifeSteal {
			continue
		}
		packet.LifeSteal = math.Max(packet.LifeSteal, buff.LifeSteal)
		if buff.DamageMultiplier != 0 {
			packet.Damage *= buff.DamageMultiplier
		}
		packet.MinHealth = math.Max(packet.MinHealth, buff.MinHealth)
	}
	return packet
}

// applyDamage runs a packet through armor, mitigation and redirection, then
// subtracts it from the hero. fromHeroID may name a hero that has already died.
func (w *World) applyDamage(toHero *Hero, packet DamagePacket) {
	if !packet.NoHit {
		toHero.HitTick = w.tick
		if !packet.IsLava {
			toHero.StrikeTick = w.tick
		}
	}

	if w.tick < w.startTick {
		return
	}

	fromHeroID := packet.FromHeroID
	amount := math.Max(0, packet.Damage)
	amount = applyArmor(toHero, fromHeroID, amount)
	if !packet.NoMitigate {
		amount = w.mitigateDamage(toHero, amount, fromHeroID)
	}
	if !packet.NoRedirect {
		amount = w.redirectDamage(toHero, amount, packet.IsLava)
	}
	if packet.MinHealth > 0 {
		amount = math.Min(amount, math.Max(0, toHero.Health-packet.MinHealth))
	}
	toHero.Health -= amount

	if fromHero, ok := w.Hero(fromHeroID); ok && packet.LifeSteal > 0 {
		fromHero.Health = math.Min(fromHero.MaxHealth, fromHero.Health+amount*packet.LifeSteal)
		w.emit(&LifeStealEvent{Tick: w.tick, Owner: fromHeroID})
	}

	if fromHeroID == "" || fromHeroID == toHero.id {
		return
	}
	if w.winner == "" {
		if score, ok := w.scores[fromHeroID]; ok {
			score.Damage += amount
		}
	}
	toHero.KillerHeroID = fromHeroID
	if !packet.NoKnockback {
		toHero.KnockbackHeroID = fromHeroID
	}
}

func applyArmor(hero *Hero, fromHeroID string, damage float64) float64 {
	modifier := 0.0
	for _, buff := range hero.Buffs {
		if buff.Type == settings.BuffArmor && (buff.FromHeroID == "" || buff.FromHeroID == fromHeroID) {
			modifier += damage * buff.Proportion
		}
	}
	return damage + modifier
}

// mitigateDamage stops damage from several attackers stacking: recent damage
// from other heroes is subtracted, and repeated hits from the same hero
// diminish.
func (w *World) mitigateDamage(toHero *Hero, damage float64, fromHeroID string) float64 {
	if fromHeroID == "" || fromHeroID == toHero.id {
		return damage
	}

	for heroID, amount := range toHero.DamageSources {
		if heroID != fromHeroID {
			damage -= amount
		}
	}
	damage = math.Max(0, damage)

	repeats := 0
	for _, source := range toHero.DamageSourceHistory {
		if source.HeroID == fromHeroID {
			repeats++
		}
	}
	damage *= math.Pow(1-w.settings.Hero.DamageDiminishingProportion, float64(repeats))

	if damage > 0 {
		toHero.DamageSources[fromHeroID] += damage
		toHero.DamageSourceHistory = append(toHero.DamageSourceHistory, DamageSource{
			HeroID:     fromHeroID,
			Amount:     damage,
			ExpireTick: w.tick + w.settings.Hero.DamageMitigationTicks,
		})
	}
	return damage
}

// redirectDamage sends part of the damage down the hero's link and returns the part the hero keeps
func (w *World) redirectDamage(toHero *Hero, amount float64, isLava bool) float64 {
	if amount == 0 || toHero.Link == nil || toHero.Link.RedirectDamage == nil {
		return amount
	}
	redirect := toHero.Link.RedirectDamage

	target, ok := w.Hero(toHero.Link.TargetID)
	if !ok {
		return amount
	}

	if w.tick >= toHero.Link.InitialTick+redirect.RedirectAfterTicks {
		w.applyDamage(target, DamagePacket{
			FromHeroID: toHero.id,
			Damage:     amount * redirect.RedirectProportion,
			IsLava:     isLava,
			NoRedirect: true,
		})
		toHero.Link.RedirectDamageTick = w.tick
	}
	return amount * redirect.SelfProportion
}

func (w *World) applyDamageToObstacle(obstacle *Obstacle, packet DamagePacket) {
	if packet.Damage > 0 {
		if packet.IsLava {
			obstacle.LavaTick = w.tick
		} else {
			obstacle.ActiveTick = w.tick
		}
	}

	if w.tick < w.startTick {
		return
	}
	obstacle.Health = math.Max(0, obstacle.Health-packet.Damage)
}

// decayMitigation forgets damage sources older than the mitigation window
func (w *World) decayMitigation() {
	for _, hero := range w.Heroes() {
		kept := hero.DamageSourceHistory[:0]
		for _, source := range hero.DamageSourceHistory {
			if w.tick < source.ExpireTick {
				kept = append(kept, source)
				continue
			}
			remaining := hero.DamageSources[source.HeroID] - source.Amount
			if remaining <= 0 {
				delete(hero.DamageSources, source.HeroID)
			} else {
				hero.DamageSources[source.HeroID] = remaining
			}
		}
		hero.DamageSourceHistory = kept
	}
}
