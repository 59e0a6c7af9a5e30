package engine

import (
	"math"

	"arena-server/internal/physics"
	"arena-server/internal/settings"
	"arena-server/internal/vector"
)

func (w *World) handleContact(contact physics.Contact) {
	objA, okA := w.objects[contact.FixtureA.Body().UserData()]
	objB, okB := w.objects[contact.FixtureB.Body().UserData()]
	if !okA || !okB {
		return
	}
	w.handleCollision(objA, objB)
	w.handleCollision(objB, objA)
}

func (w *World) handleCollision(obj, hit Object) {
	switch o := obj.(type) {
	case *Projectile:
		switch h := hit.(type) {
		case *Hero:
			w.handleProjectileHitHero(o, h)
		case *Projectile:
			w.handleProjectileHitProjectile(o, h)
		case *Obstacle:
			if recheckObstacleHit(h, o.Position(), o.Radius) {
				w.handleProjectileHitObstacle(o, h)
			}
		case *Shield:
			w.handleProjectileHitShield(o, h)
		}
	case *Hero:
		switch h := hit.(type) {
		case *Hero:
			w.handleHeroHitHero(o, h)
		case *Projectile:
			handleHeroHitProjectile(o, h)
		case *Obstacle:
			if recheckObstacleHit(h, o.Position(), o.Radius) {
				w.handleHeroHitObstacle(o, h)
			}
		case *Shield:
			w.handleHeroHitShield(o, h)
		}
	case *Obstacle:
		if w.tick > w.startTick && o.ExpireOn&hit.Categories() != 0 {
			o.Health = 0
		}
	}
}

// recheckObstacleHit filters contacts with the bounding pieces of a concave obstacle
func recheckObstacleHit(obstacle *Obstacle, target vector.Vec2, targetRadius float64) bool {
	if obstacle.Shape.Convex() {
		return true
	}
	local := target.Sub(obstacle.Position()).Rotate(-obstacle.body.Angle())
	return obstacle.Shape.Inside(local, targetRadius)
}

func (w *World) handleHeroHitShield(hero *Hero, shield *Shield) {
	if hero.Thrust != nil {
		hero.Thrust.Nullified = true
		shield.HitTick = w.tick
	}
}

func (w *World) handleHeroHitHero(hero, other *Hero) {
	impulse := hero.Position().Sub(other.Position())
	if distance := impulse.Len(); distance > 0 {
		magnitude := math.Max(0, w.settings.Hero.Radius*2-distance) * w.settings.Hero.SeparationImpulsePerTick
		hero.body.ApplyLinearImpulse(impulse.Scale(magnitude / distance))
	}

	if hero.Thrust == nil || hero.Thrust.AlreadyHit[other.id] {
		return
	}
	hero.Thrust.AlreadyHit[other.id] = true
	if w.calculateAlliance(hero.id, other.id)&settings.AllianceNotFriendly != 0 && hero.Thrust.DamageTemplate != nil {
		w.applyDamage(other, w.instantiateDamage(*hero.Thrust.DamageTemplate, hero.id, 1))
	}
}

func handleHeroHitProjectile(hero *Hero, projectile *Projectile) {
	if hero.Thrust != nil && projectile.categories&settings.CategoryMassive != 0 {
		hero.Thrust.Nullified = true
	}
}

func (w *World) handleHeroHitObstacle(hero *Hero, obstacle *Obstacle) {
	if hero.Thrust != nil && !obstacle.Sensor {
		if hero.Thrust.DamageTemplate != nil {
			w.applyDamageToObstacle(obstacle, w.instantiateDamage(*hero.Thrust.DamageTemplate, hero.id, 1))
		}
		obstacle.ActiveTick = w.tick
		hero.Thrust.Nullified = true
	}

	if obstacle.Impulse > 0 {
		impulse := hero.Position().Sub(obstacle.Position())
		if impulse.Len() > 0 {
			hero.body.ApplyLinearImpulse(impulse.Relengthen(obstacle.Impulse))
		}
		obstacle.ActiveTick = w.tick
	}

	if w.takeHit(obstacle.HitTicks, obstacle.HitInterval, &obstacle.HitTick, hero.id) {
		if obstacle.Damage > 0 {
			w.applyDamage(hero, DamagePacket{
				FromHeroID:  w.knockbackFromID(hero),
				Damage:      obstacle.Damage,
				IsLava:      true,
				NoKnockback: true,
			})
			obstacle.ActiveTick = w.tick
		}

		if len(obstacle.Buffs) > 0 {
			for _, buff := range obstacle.Buffs {
				// one id per obstacle type so standing on two swatches does not stack
				id := "swatch-" + obstacle.Type + "-" + buff.Type
				w.instantiateBuff(id, buff, hero, buffContext{})
			}
			obstacle.ActiveTick = w.tick
		}
	}

	if obstacle.Conveyor != nil {
		outward := hero.Position().Sub(center).Unit()
		shift := outward.RotateRight().Scale(obstacle.Conveyor.LateralSpeed / TicksPerSecond).
			Add(outward.Scale(obstacle.Conveyor.RadialSpeed / TicksPerSecond))
		hero.ConveyorShift = &shift
	}

	obstacle.TouchTick = w.tick
}

func (w *World) handleProjectileHitObstacle(projectile *Projectile, obstacle *Obstacle) {
	if w.takeHit(projectile.HitTicks, projectile.HitInterval, &projectile.HitTick, obstacle.id) {
		if !obstacle.Undamageable {
			w.applyDamageToObstacle(obstacle, w.projectileDamage(projectile))
		} else {
			obstacle.ActiveTick = w.tick
		}
	}

	if w.expireOn(projectile, obstacle) {
		w.detonateProjectile(projectile)
		w.linkTo(projectile, obstacle)
		w.applySwap(projectile, obstacle)
		w.applyBuffsFromProjectile(projectile, obstacle)
		projectile.ExpireTick = w.tick
	}
}

func (w *World) handleProjectileHitProjectile(projectile, other *Projectile) {
	w.takeHit(projectile.HitTicks, projectile.HitInterval, &projectile.HitTick, other.id)

	if w.expireOn(projectile, other) {
		w.detonateProjectile(projectile)
		w.linkTo(projectile, other)
		w.applySwap(projectile, other)
		projectile.ExpireTick = w.tick
	}
}

func (w *World) handleProjectileHitShield(projectile *Projectile, shield *Shield) {
	mine := shield.Owner == projectile.Owner
	if mine {
		// every projectile passes through its owner's shield on the way out
		return
	}

	if w.takeHit(projectile.HitTicks, projectile.HitInterval, &projectile.HitTick, shield.id) {
		shield.HitTick = w.tick
	}

	if projectile.ShieldTakesOwnership && shield.TakesOwnership && w.calculateAlliance(shield.Owner, projectile.Owner)&settings.AllianceEnemy != 0 {
		w.swapOwnership(projectile, shield.Owner)
		reduceDamage(projectile, shield.DamageMultiplier)
	}

	if w.expireOn(projectile, shield) || (shield.Destroying && w.destructibleBy(projectile, shield.Owner)) {
		w.detonateProjectile(projectile)
		w.applySwap(projectile, shield)
		projectile.ExpireTick = w.tick
	}
}

func (w *World) handleProjectileHitHero(projectile *Projectile, hero *Hero) {
	if projectile.CollideWith&settings.CategoryShield != 0 && w.isHeroShielded(hero) {
		return
	}

	if w.takeHit(projectile.HitTicks, projectile.HitInterval, &projectile.HitTick, hero.id) && hero.id != projectile.Owner {
		w.applyBuffsFromProjectile(projectile, hero)
		w.linkTo(projectile, hero)
		w.applySwap(projectile, hero)

		if w.calculateAlliance(projectile.Owner, hero.id)&settings.AllianceNotFriendly != 0 {
			w.applyDamage(hero, w.projectileDamage(projectile))
			w.emitPush(projectile, hero)
		}
		projectile.Hit = w.tick
	}

	if projectile.Gravity != nil {
		w.applyGravity(projectile, hero)
	}
	if projectile.Bounce != nil {
		w.bounceToNext(projectile, hero.id)
	}
	if w.expireOn(projectile, hero) {
		w.detonateProjectile(projectile)
		projectile.ExpireTick = w.tick
	}
}

func (w *World) projectileDamage(projectile *Projectile) DamagePacket {
	lifetime := w.tick - projectile.createTick
	multiplier := math.Min(1, projectile.PartialDamage.Multiplier(lifetime))
	return w.instantiateDamage(projectile.DamageTemplate, projectile.Owner, multiplier)
}

func (w *World) emitPush(projectile *Projectile, hero *Hero) {
	direction := projectile.body.LinearVelocity()
	if owner, ok := w.Hero(projectile.Owner); ok {
		// the projectile has usually ricocheted by now
		direction = projectile.Position().Sub(owner.Position())
	}
	w.emit(&PushEvent{Tick: w.tick, Owner: projectile.Owner, ObjectID: hero.id, Direction: direction})
}

// takeHit records a hit against hitID and reports whether it counts. With a
// zero interval each target is hit at most once.
func (w *World) takeHit(lookup map[string]int, interval int, hitTick *int, hitID string) bool {
	if last, ok := lookup[hitID]; ok {
		if interval == 0 || w.tick-last < interval {
			return false
		}
	}
	lookup[hitID] = w.tick
	*hitTick = w.tick
	return true
}

func (w *World) isHeroShielded(hero *Hero) bool {
	shielded := false
	for shieldID := range hero.ShieldIDs {
		if _, ok := w.objects[shieldID]; ok {
			shielded = true
		} else {
			delete(hero.ShieldIDs, shieldID)
		}
	}
	return shielded
}

// expireOn reports whether touching other ends the projectile
func (w *World) expireOn(projectile *Projectile, other Object) bool {
	if projectile.ExpireOn&other.Categories() == 0 || w.tick < projectile.createTick+projectile.MinTicks {
		return false
	}

	switch o := other.(type) {
	case *Obstacle:
		if o.Sensor || (o.Mirror && !projectile.ExpireOnMirror) {
			return false
		}
	case *Hero:
		return projectile.ExpireAgainstHeroes&w.calculateAlliance(projectile.Owner, o.id) != 0
	case *Projectile, *Shield:
		return projectile.ExpireAgainstObjects&w.calculateAlliance(projectile.Owner, ownerOf(o)) != 0
	}
	return true
}
