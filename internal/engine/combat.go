package engine

import (
	"arena-server/internal/settings"
	"arena-server/internal/vector"
)

// calculateAlliance returns how toHeroID relates to fromHeroID. Heroes without
// a team are on a team of their own.
func (w *World) calculateAlliance(fromHeroID, toHeroID string) uint16 {
	switch {
	case fromHeroID == "" || toHeroID == "":
		return settings.AllianceNeutral
	case fromHeroID == toHeroID:
		return settings.AllianceSelf
	case w.teamOf(fromHeroID) == w.teamOf(toHeroID):
		return settings.AllianceAlly
	default:
		return settings.AllianceEnemy
	}
}

func (w *World) teamOf(heroID string) string {
	if team, ok := w.teamAssignments[heroID]; ok {
		return team
	}
	return heroID
}

// knockbackFromID credits environmental damage to the enemy who last pushed the hero
func (w *World) knockbackFromID(hero *Hero) string {
	if hero.KnockbackHeroID != "" && w.calculateAlliance(hero.id, hero.KnockbackHeroID)&settings.AllianceEnemy != 0 {
		return hero.KnockbackHeroID
	}
	return ""
}

func (w *World) destructibleBy(projectile *Projectile, detonatorHeroID string) bool {
	return projectile.Destructible && w.calculateAlliance(projectile.Owner, detonatorHeroID)&projectile.DestructibleAgainst != 0
}

func (w *World) instantiateDetonate(template settings.DetonateTemplate, fromHeroID string) DetonateParams {
	return DetonateParams{
		Packet:     w.instantiateDamage(template.DamagePacketTemplate, fromHeroID, 1),
		Against:    settings.Or(template.Against, settings.AllianceNotFriendly),
		Radius:     template.Radius,
		MinImpulse: template.MinImpulse,
		MaxImpulse: template.MaxImpulse,
		Buffs:      template.Buffs,
	}
}

// detonateProjectile explodes a projectile once, scaled by how long it has been alive
func (w *World) detonateProjectile(projectile *Projectile) {
	if projectile.Detonate == nil {
		return
	}
	lifetime := w.tick - projectile.createTick

	detonate := *projectile.Detonate
	detonate.Packet.Damage *= projectile.PartialDamage.Multiplier(lifetime)
	detonate.Radius *= projectile.PartialDetonateRadius.Multiplier(lifetime)
	impulseMultiplier := projectile.PartialDetonateImpulse.Multiplier(lifetime)
	detonate.MinImpulse *= impulseMultiplier
	detonate.MaxImpulse *= impulseMultiplier
	buffDuration := projectile.PartialBuffDuration.Multiplier(lifetime)

	w.detonateAt(projectile.Position(), projectile.Owner, detonate, projectile.id, buffDuration)
	projectile.Detonate = nil
}

func (w *World) detonateObstacle(obstacle *Obstacle) {
	if obstacle.Detonate == nil {
		return
	}
	detonate := w.instantiateDetonate(*obstacle.Detonate, "")
	w.detonateAt(obstacle.Position(), "", detonate, obstacle.id, 1)
	obstacle.Detonate = nil
}

func (w *World) detonateAt(epicenter vector.Vec2, owner string, detonate DetonateParams, sourceID string, buffDuration float64) {
	for _, other := range w.Objects() {
		var extent float64
		switch o := other.(type) {
		case *Hero:
			extent = o.Radius
		case *Projectile:
			extent = o.Radius
		case *Obstacle:
			if o.Undamageable {
				continue
			}
			extent = o.Shape.MinExtent()
		default:
			continue
		}

		body := other.Body()
		diff := body.Position().Sub(epicenter)
		explosionRadius := detonate.Radius + extent // touching the edge is enough
		distance := diff.Len()
		if distance > explosionRadius {
			continue
		}
		proportion := 1.0
		if explosionRadius > 0 {
			proportion = 1 - distance/explosionRadius
		}

		switch o := other.(type) {
		case *Hero:
			if w.calculateAlliance(owner, o.id)&detonate.Against == 0 {
				continue
			}
			w.applyDamage(o, detonate.Packet)
			w.applyBuffsFrom(detonate.Buffs, owner, o, "", "", buffDuration)

			if detonate.MaxImpulse != 0 && distance > 0 {
				magnitude := detonate.MinImpulse + proportion*(detonate.MaxImpulse-detonate.MinImpulse)
				direction := diff.Relengthen(magnitude)
				body.ApplyLinearImpulse(direction)
				w.emit(&PushEvent{Tick: w.tick, Owner: owner, ObjectID: o.id, Direction: direction})
			}
		case *Projectile:
			if w.destructibleBy(o, owner) {
				o.ExpireTick = w.tick
			}
		case *Obstacle:
			w.applyDamageToObstacle(o, detonate.Packet)
		}
	}

	w.emit(&DetonateEvent{Tick: w.tick, SourceID: sourceID, Pos: epicenter, Radius: detonate.Radius})
}

func (w *World) swapOwnership(projectile *Projectile, newOwner string) {
	projectile.TargetID = projectile.Owner
	projectile.Owner = newOwner

	group := 0
	if hero, ok := w.Hero(newOwner); ok {
		group = hero.FilterGroup
	}
	for _, fixture := range projectile.body.Fixtures() {
		filter := fixture.Filter()
		if filter.Group < 0 {
			filter.Group = group
			fixture.SetFilter(filter)
		}
	}
}

func reduceDamage(projectile *Projectile, multiplier float64) {
	projectile.DamageTemplate.Damage *= multiplier
	if projectile.Detonate != nil {
		projectile.Detonate.Packet.Damage *= multiplier
	}
}

// applySwap teleports the owner to the projectile, or swaps places with target
// when it matches the swap categories. A projectile only swaps once.
func (w *World) applySwap(projectile *Projectile, target Object) {
	if projectile.SwapWith == 0 {
		return
	}
	owner, ok := w.Hero(projectile.Owner)
	if !ok {
		return
	}

	ownerPos := owner.Position()
	if target != nil && target.Categories()&projectile.SwapWith != 0 && w.tick >= w.startTick {
		targetPos := target.Body().Position()
		owner.body.SetPosition(targetPos)
		target.Body().SetPosition(ownerPos)

		w.emit(&TeleportEvent{Tick: w.tick, HeroID: owner.id, FromPos: ownerPos, ToPos: targetPos})
		if hero, isHero := target.(*Hero); isHero {
			w.emit(&TeleportEvent{Tick: w.tick, HeroID: hero.id, FromPos: targetPos, ToPos: ownerPos})
		}
	} else {
		owner.body.SetPosition(projectile.Position())
		w.emit(&TeleportEvent{Tick: w.tick, HeroID: owner.id, FromPos: ownerPos, ToPos: owner.Position()})
	}
	projectile.SwapWith = 0
}

func (w *World) swapOnExpiry(projectile *Projectile) {
	w.applyBuffsFromProjectile(projectile, nil)
	w.applySwap(projectile, nil)
}

func (w *World) applyBuffsFromProjectile(projectile *Projectile, target Object) {
	if target == nil {
		return
	}
	durationMultiplier := projectile.PartialBuffDuration.Multiplier(w.tick - projectile.createTick)
	w.applyBuffsFrom(projectile.Buffs, projectile.Owner, target, projectile.Type, projectile.Type, durationMultiplier)
}

func (w *World) linkTo(projectile *Projectile, target Object) {
	template := projectile.Link
	if template == nil || target == nil || target.Categories()&template.LinkWith == 0 {
		return
	}
	owner, ok := w.Hero(projectile.Owner)
	if !ok {
		return
	}
	if p, isProjectile := target.(*Projectile); isProjectile && !p.Linkable {
		return
	}

	owner.Link = &Link{
		ID:                     w.nextID("link"),
		SpellID:                projectile.Type,
		TargetID:               target.ID(),
		RedirectDamage:         template.RedirectDamage,
		Channelling:            template.Channelling,
		MinDistance:            template.MinDistance,
		MaxDistance:            template.MaxDistance,
		SelfFactor:             settings.Or(template.SelfFactor, 1),
		TargetFactor:           settings.Or(template.TargetFactor, 1),
		ImpulsePerTick:         template.ImpulsePerTick,
		SidewaysImpulsePerTick: template.SidewaysImpulsePerTick,
		InitialTick:            w.tick,
		ExpireTick:             w.tick + template.LinkTicks,
	}
	w.pushBehaviour(&LinkForceBehaviour{HeroID: owner.id})
}

// bounceToNext redirects a bouncing projectile between its owner and its target
func (w *World) bounceToNext(projectile *Projectile, hitID string) {
	nextTargetID := projectile.TargetID
	if hitID == projectile.TargetID {
		nextTargetID = projectile.Owner
	}
	next, ok := w.Hero(nextTargetID)
	if !ok {
		return
	}
	if projectile.Bounce.Cleanseable && next.CleanseTick > 0 && next.CleanseTick >= projectile.createTick {
		return
	}
	if next.Invisible != nil && w.calculateAlliance(projectile.Owner, next.id)&settings.AllianceNotFriendly != 0 {
		return
	}

	speed := projectile.body.LinearVelocity().Len()
	towards := next.Position().Sub(projectile.Position())
	if towards.Len() > 0 {
		projectile.body.SetLinearVelocity(towards.Relengthen(speed))
	}
}

func (w *World) applyGravity(projectile *Projectile, hero *Hero) {
	template := projectile.Gravity
	projectile.ExpireTick = w.tick

	hero.Gravity = &Gravity{
		SpellID:     projectile.Type,
		InitialTick: w.tick,
		ExpireTick:  w.tick + template.Ticks,
		Location:    projectile.Position(),
		Strength:    template.ImpulsePerTick,
		Radius:      template.Radius,
		Power:       template.Power,
	}
	w.pushBehaviour(&GravityForceBehaviour{HeroID: hero.id})
}
