package engine

import (
	"math"
	"sort"

	"arena-server/internal/settings"
	"arena-server/internal/vector"
)

// Buff is a timed modifier on a hero. Type selects which value fields apply.
type Buff struct {
	ID          string
	Type        string
	InitialTick int
	ExpireTick  int
	MaxTicks    int
	NumStacks   int

	CancelOnHit        bool
	HitTick            int // hero hit tick when the buff was applied
	ChannellingSpellID string

	// the buff ends when LinkOwner no longer holds a link cast with LinkSpellID
	LinkOwner   string
	LinkSpellID string

	MovementProportion      float64
	LinearDampingMultiplier float64
	DamageProportion        float64 // lava immunity
	LifeSteal               float64
	DamageMultiplier        float64
	MinHealth               float64
	Proportion              float64 // armor
	InitialPos              vector.Vec2

	// burn
	FromHeroID  string
	HitInterval int
	Packet      settings.DamagePacketTemplate
	Stack       string
}

// buffContext says where a buff came from
type buffContext struct {
	otherID            string // the hero on the other side of the interaction
	spellID            string
	durationMultiplier float64
}

func (w *World) instantiateBuff(id string, template settings.BuffTemplate, hero *Hero, config buffContext) {
	if config.durationMultiplier == 0 {
		config.durationMultiplier = 1
	}
	maxTicks := int(math.Ceil(float64(max(template.MaxTicks, 1)) * config.durationMultiplier))
	buff := &Buff{
		ID:          id,
		Type:        template.Type,
		InitialTick: w.tick,
		ExpireTick:  w.tick + maxTicks,
		MaxTicks:    maxTicks,
		NumStacks:   1,
		CancelOnHit: template.CancelOnHit,
		HitTick:     hero.HitTick,
	}
	if template.Channelling {
		buff.ChannellingSpellID = config.spellID
	}
	if template.LinkOwner {
		buff.LinkOwner, buff.LinkSpellID = hero.id, config.spellID
	} else if template.LinkVictim {
		buff.LinkOwner, buff.LinkSpellID = config.otherID, config.spellID
	}

	switch template.Type {
	case settings.BuffDebuff:
		hero.CleanseTick = w.tick
	case settings.BuffMovement:
		buff.MovementProportion = template.MovementProportion
		hero.setBuff(buff)
	case settings.BuffGlide:
		buff.LinearDampingMultiplier = template.LinearDampingMultiplier
		if !hero.hasBuff(settings.BuffGlide) {
			w.pushBehaviour(&GlideBehaviour{HeroID: hero.id})
		}
		hero.setBuff(buff)
	case settings.BuffLavaImmunity:
		buff.DamageProportion = template.DamageProportion
		hero.setBuff(buff)
	case settings.BuffVanish:
		buff.InitialPos = hero.Position()
		hero.Invisible = buff
		hero.setBuff(buff)
		w.emit(&VanishEvent{Tick: w.tick, HeroID: hero.id, Pos: hero.Position(), Appear: false})
	case settings.BuffLifeSteal:
		buff.LifeSteal = template.LifeSteal
		buff.DamageMultiplier = settings.Or(template.DamageMultiplier, 0)
		buff.MinHealth = template.MinHealth
		hero.setBuff(buff)
	case settings.BuffBurn:
		if template.Stack != "" {
			stacked := false
			for _, existing := range hero.Buffs {
				if existing.Type == settings.BuffBurn && existing.FromHeroID == config.otherID && existing.Stack == template.Stack {
					existing.ExpireTick = buff.ExpireTick
					if existing.NumStacks < template.StackLimit() {
						existing.Packet.Damage += packetDamage(template.Packet)
						existing.NumStacks++
					}
					stacked = true
				}
			}
			if stacked {
				return
			}
		}
		buff.FromHeroID = config.otherID
		buff.HitInterval = max(template.HitInterval, 1)
		if template.Packet != nil {
			buff.Packet = *template.Packet
		}
		buff.Stack = template.Stack
		hero.setBuff(buff)
	case settings.BuffCooldown:
		w.adjustCooldowns(hero, template)
		w.emit(&CooldownEvent{Tick: w.tick, HeroID: hero.id})
	case settings.BuffArmor:
		buff.Proportion = template.Proportion
		if template.TargetOnly {
			buff.FromHeroID = config.otherID
		}
		hero.setBuff(buff)
	}
}

func packetDamage(p *settings.DamagePacketTemplate) float64 {
	if p == nil {
		return 0
	}
	return p.Damage
}

func (w *World) adjustCooldowns(hero *Hero, template settings.BuffTemplate) {
	keys := make([]string, 0, len(hero.KeysToSpells))
	for key := range hero.KeysToSpells {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		spellID := hero.KeysToSpells[key]
		if template.SpellID != "" && spellID != template.SpellID {
			continue
		}
		initial := w.cooldownRemaining(hero, spellID)
		cooldown := initial
		if template.MaxCooldown != nil {
			cooldown = min(*template.MaxCooldown, cooldown)
		}
		if template.MinCooldown != nil {
			cooldown = max(*template.MinCooldown, cooldown)
		}
		if cooldown != initial {
			w.setCooldown(hero, spellID, cooldown)
		}
	}
}

func (w *World) cooldownRemaining(hero *Hero, spellID string) int {
	return max(0, hero.Cooldowns[spellID]-w.tick)
}

func (w *World) setCooldown(hero *Hero, spellID string, waitTicks int) {
	hero.Cooldowns[spellID] = w.tick + waitTicks
}

func (h *Hero) hasBuff(buffType string) bool {
	for _, b := range h.Buffs {
		if b.Type == buffType {
			return true
		}
	}
	return false
}

func (w *World) isBuffExpired(buff *Buff, hero *Hero) bool {
	switch {
	case w.tick >= buff.ExpireTick:
		return true
	case hero.CleanseTick > 0 && buff.InitialTick < hero.CleanseTick:
		return true
	case buff.CancelOnHit && hero.HitTick > buff.HitTick:
		return true
	case buff.ChannellingSpellID != "" && !hero.isCasting(buff.ChannellingSpellID):
		return true
	}

	if buff.LinkOwner != "" {
		owner, ok := w.Hero(buff.LinkOwner)
		if !ok || owner.Link == nil || owner.Link.SpellID != buff.LinkSpellID {
			return true
		}
	}
	return false
}

func (w *World) expireBuffs(b *ExpireBuffsBehaviour) bool {
	hero, ok := w.Hero(b.HeroID)
	if !ok {
		return false
	}

	kept := hero.Buffs[:0]
	for _, buff := range hero.Buffs {
		if !w.isBuffExpired(buff, hero) {
			kept = append(kept, buff)
			continue
		}
		if buff.Type == settings.BuffVanish {
			if hero.Invisible == buff {
				hero.Invisible = nil
			}
			w.emit(&VanishEvent{Tick: w.tick, HeroID: hero.id, Pos: hero.Position(), Appear: true})
		}
	}
	for i := len(kept); i < len(hero.Buffs); i++ {
		hero.Buffs[i] = nil
	}
	hero.Buffs = kept
	return true
}

func (w *World) burn(b *BurnBehaviour) bool {
	hero, ok := w.Hero(b.HeroID)
	if !ok {
		return false
	}

	for _, buff := range hero.Buffs {
		if buff.Type == settings.BuffBurn && w.tick%buff.HitInterval == 0 {
			w.applyDamage(hero, w.instantiateDamage(buff.Packet, buff.FromHeroID, 1))
		}
	}
	return true
}

func (w *World) glide(b *GlideBehaviour) bool {
	hero, ok := w.Hero(b.HeroID)
	if !ok {
		return false
	}

	gliding := false
	damping := hero.LinearDamping
	for _, buff := range hero.Buffs {
		if buff.Type == settings.BuffGlide {
			gliding = true
			damping *= buff.LinearDampingMultiplier
		}
	}
	hero.body.SetLinearDamping(damping)
	return gliding
}

// movementProportion is the product of every movement buff on the hero
func (h *Hero) movementProportion() float64 {
	proportion := 1.0
	for _, buff := range h.Buffs {
		if buff.Type == settings.BuffMovement {
			proportion *= buff.MovementProportion
		}
	}
	return proportion
}

// lavaProportion is the share of lava damage the hero still takes
func (h *Hero) lavaProportion() float64 {
	proportion := 1.0
	for _, buff := range h.Buffs {
		if buff.Type == settings.BuffLavaImmunity {
			proportion *= buff.DamageProportion
		}
	}
	return proportion
}

// applyBuffsFrom applies buff templates carried by from (a hero, projectile or
// obstacle owned by fromHeroID) to target
func (w *World) applyBuffsFrom(buffs []settings.BuffTemplate, fromHeroID string, target Object, tag, spellID string, durationMultiplier float64) {
	if fromHeroID == "" || target == nil {
		return
	}
	if tag == "" {
		tag = "buff"
	}

	for _, template := range buffs {
		collideWith := settings.Or(template.CollideWith, settings.CategoryHero)
		if target.Categories()&collideWith == 0 {
			continue
		}

		receiver := target
		otherID := fromHeroID
		if template.Owner {
			fromHero, ok := w.Hero(fromHeroID)
			if !ok {
				continue
			}
			receiver, otherID = fromHero, target.ID()
		}

		switch r := receiver.(type) {
		case *Hero:
			against := settings.Or(template.Against, settings.AllianceAll)
			if against != settings.AllianceAll && w.calculateAlliance(fromHeroID, target.ID())&against == 0 {
				continue
			}
			id := tag + "-" + template.Type
			w.instantiateBuff(id, template, r, buffContext{otherID: otherID, spellID: spellID, durationMultiplier: durationMultiplier})
		case *Obstacle:
			if template.Type == settings.BuffBurn && template.Packet != nil && !r.Undamageable {
				numHits := float64(max(template.MaxTicks, 1)) / float64(max(template.HitInterval, 1))
				packet := w.instantiateDamage(*template.Packet, otherID, 1)
				packet.Damage *= numHits
				w.applyDamageToObstacle(r, packet)
			}
		}
	}
}
