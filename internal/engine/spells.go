package engine

import (
	"math"

	"arena-server/internal/physics"
	"arena-server/internal/settings"
	"arena-server/internal/vector"
)

// applyAction runs one channelling tick of a spell and reports whether the spell is done
func (w *World) applyAction(hero *Hero, action *Action, spell *settings.Spell) bool {
	w.spellPreactions(hero, spell)

	switch spell.Action {
	case settings.ActionBuff:
		return buffAction(hero, spell)
	case settings.ActionProjectile:
		w.addProjectile(hero, action.Target, spell, spell.Projectile, projectileConfig{})
		return true
	case settings.ActionCharge:
		return w.chargeProjectileAction(hero, action, spell)
	case settings.ActionSpray:
		return w.sprayProjectileAction(hero, action, spell)
	case settings.ActionFocus:
		return w.focusAction(hero, action, spell)
	case settings.ActionSaber:
		return w.saberAction(hero, spell)
	case settings.ActionScourge:
		return w.scourgeAction(hero, spell)
	case settings.ActionTeleport:
		return w.teleportAction(hero, action, spell)
	case settings.ActionThrust:
		return w.thrustAction(hero, action, spell)
	case settings.ActionWall:
		return w.wallAction(hero, action, spell)
	case settings.ActionShield:
		w.addShield(hero, spell)
		return true
	}
	// stop cancels the current cast but not the movement
	return true
}

// buffAction channels until every buff tied to the channel has expired
func buffAction(hero *Hero, spell *settings.Spell) bool {
	for _, buff := range hero.Buffs {
		if buff.ChannellingSpellID == spell.ID {
			return false
		}
	}
	return true
}

func (w *World) chargeProjectileAction(hero *Hero, action *Action, spell *settings.Spell) bool {
	if hero.Casting.ChargeStartTick == 0 {
		return true
	}

	target := action.Target
	if spell.Retarget && hero.Target != nil {
		target = *hero.Target
	}

	chargeTicks := min(spell.ChargeTicks, w.tick-hero.Casting.ChargeStartTick)
	template := *spell.Projectile
	if template.Detonate != nil {
		detonate := *template.Detonate
		template.Detonate = &detonate
	}

	if spell.ChargeDamage != nil {
		multiplier := spell.ChargeDamage.Multiplier(chargeTicks)
		template.Damage *= multiplier
		if template.Detonate != nil {
			template.Detonate.Damage *= multiplier
		}
	}
	if spell.ChargeRadius != nil {
		template.Radius *= spell.ChargeRadius.Multiplier(chargeTicks)
	}
	if spell.ChargeImpulse != nil {
		multiplier := spell.ChargeImpulse.Multiplier(chargeTicks)
		template.Density *= multiplier
		if template.Detonate != nil {
			template.Detonate.MinImpulse *= multiplier
			template.Detonate.MaxImpulse *= multiplier
		}
	}

	w.addProjectile(hero, target, spell, &template, projectileConfig{})
	return true
}

// sprayProjectileAction fires one projectile every IntervalTicks, fanned out by the jitter ratio
func (w *World) sprayProjectileAction(hero *Hero, action *Action, spell *settings.Spell) bool {
	currentLength := w.tick - hero.Casting.ChannellingStartTick
	if currentLength < spell.LengthTicks && currentLength%spell.IntervalTicks == 0 {
		currentAngle := hero.Casting.InitialAngle
		if spell.RevsPerTickWhileChannelling > 0 {
			currentAngle = hero.body.Angle()
		}

		projectileIndex := currentLength / spell.IntervalTicks
		numProjectiles := spell.LengthTicks / spell.IntervalTicks
		angleOffset := 0.0
		if numProjectiles%2 == 0 {
			// even counts straddle the middle
			angleOffset = math.Pi / float64(numProjectiles)
		}
		newAngle := currentAngle + vector.Tau*float64(projectileIndex)/float64(numProjectiles) + angleOffset

		direction := vector.FromAngle(currentAngle, 1)
		jitter := direction.Add(vector.FromAngle(newAngle, spell.JitterRatio))
		w.addProjectile(hero, action.Target, spell, spell.Projectile, projectileConfig{direction: &jitter})
	}

	cutoff := spell.LengthTicks
	if spell.MaxChannellingTicks > 0 {
		cutoff = spell.MaxChannellingTicks
	}
	return currentLength >= cutoff
}

// focusAction holds a projectile under the caster's control until release
func (w *World) focusAction(hero *Hero, action *Action, spell *settings.Spell) bool {
	if w.tick == hero.Casting.ChannellingStartTick {
		focus := w.addProjectile(hero, action.Target, spell, spell.Projectile, projectileConfig{})
		hero.FocusIDs[spell.ID] = focus.id
	}

	focus, alive := w.objects[hero.FocusIDs[spell.ID]].(*Projectile)

	var done bool
	switch {
	case spell.Release != nil && hero.Casting.ReleaseTick > 0:
		done = true
		if alive && len(spell.ReleaseBehaviours) > 0 {
			if hero.Target != nil {
				focus.Target = *hero.Target
			}
			w.instantiateProjectileBehaviours(spell.ReleaseBehaviours, focus)
		}
	case alive:
		done = false
	default:
		// projectile gone before release: wait out the channel
		done = w.tick-hero.Casting.ChannellingStartTick >= spell.MaxChannellingTicks
	}

	if done {
		delete(hero.FocusIDs, spell.ID)
	} else if spell.FocusDelaysCooldown {
		w.setCooldown(hero, spell.ID, spell.Cooldown)
	}
	return done
}

func (w *World) teleportAction(hero *Hero, action *Action, spell *settings.Spell) bool {
	rangeLimit := math.Min(spell.Range, w.shieldCollisionLimit(hero, action.Target))

	from := hero.Position()
	to := vector.Towards(from, action.Target, rangeLimit)
	hero.body.SetPosition(to)
	target := action.Target
	hero.MoveTo = &target

	w.emit(&TeleportEvent{Tick: w.tick, HeroID: hero.id, FromPos: from, ToPos: to})
	return true
}

// shieldCollisionLimit is how far the hero can teleport towards to before
// meeting something that blocks teleporters
func (w *World) shieldCollisionLimit(hero *Hero, to vector.Vec2) float64 {
	from := hero.Position()

	var hit *vector.Vec2
	w.physics.RayCast(from, to, func(f *physics.Fixture, point, normal vector.Vec2, fraction float64) float64 {
		obj, ok := w.objects[f.Body().UserData()]
		if ok && blocksTeleporters(obj) && shouldCollide(hero, obj) {
			hit = &point
			return 0
		}
		return fraction
	})

	if hit != nil {
		// stop just on this side of the shield
		return math.Max(0, vector.Distance(*hit, from)-Pixel)
	}
	return vector.Distance(to, from)
}

// thrustAction dashes the hero towards the target, damaging whatever it runs into
func (w *World) thrustAction(hero *Hero, action *Action, spell *settings.Spell) bool {
	if w.tick == hero.Casting.ChannellingStartTick {
		maxTicks := TicksPerSecond * spell.Range / spell.Speed

		diff := action.Target.Sub(hero.Position())
		distancePerTick := spell.Speed / TicksPerSecond
		ticksToTarget := math.Floor(diff.Len() / distancePerTick)
		velocity := diff.Unit().Scale(spell.Speed)

		thrustRadius := hero.Radius * spell.RadiusMultiplier
		fixture := hero.body.CreateFixture(physics.FixtureDef{
			Shape:       &physics.CircleShape{Radius: thrustRadius},
			Density:     spell.Density,
			Restitution: 1,
			Filter: physics.Filter{
				Category: settings.CategoryHero,
				Mask:     settings.CategoryAll,
				Group:    hero.FilterGroup,
			},
		})

		hero.Thrust = &Thrust{
			DamageTemplate: spell.DamageTemplate,
			Velocity:       velocity,
			Ticks:          int(math.Ceil(math.Min(maxTicks, ticksToTarget))),
			AlreadyHit:     make(map[string]bool),
			InitialRadius:  hero.Radius,
			Fixture:        fixture,
		}
		hero.Radius = thrustRadius
		target := action.Target
		hero.MoveTo = &target

		w.pushBehaviour(&ThrustBounceBehaviour{HeroID: hero.id, BounceTicks: spell.BounceTicks})
		w.pushBehaviour(&ThrustDecayBehaviour{HeroID: hero.id})
	}

	if hero.Thrust != nil {
		if hero.Thrust.Nullified && spell.Nullifiable {
			hero.Thrust.Ticks = min(spell.BounceTicks, hero.Thrust.Ticks)
		} else {
			hero.body.SetLinearVelocity(hero.Thrust.Velocity)
		}
	}
	return hero.Thrust == nil
}

func (w *World) saberAction(hero *Hero, spell *settings.Spell) bool {
	saberTick := w.tick - hero.Casting.ChannellingStartTick
	if saberTick == 0 {
		for _, revs := range spell.AngleOffsetsInRevs {
			saber := w.addSaber(hero, spell, revs*vector.Tau)
			w.pushBehaviour(&SaberSwingBehaviour{ShieldID: saber.id})
		}
	}
	return saberTick >= spell.MaxTicks
}

// scourgeAction hurts the caster, never below MinSelfHealth, then explodes around them
func (w *World) scourgeAction(hero *Hero, spell *settings.Spell) bool {
	w.applyDamage(hero, DamagePacket{
		FromHeroID: hero.id,
		Damage:     spell.SelfDamage,
		MinHealth:  spell.MinSelfHealth,
		NoRedirect: true,
	})

	detonate := w.instantiateDetonate(*spell.Detonate, hero.id)
	w.detonateAt(hero.Position(), hero.id, detonate, hero.id, 1)
	return true
}

func (w *World) wallAction(hero *Hero, action *Action, spell *settings.Spell) bool {
	halfWidth := spell.Width / 2
	halfLength := spell.Length / 2
	points := []vector.Vec2{
		vector.New(-halfWidth, -halfLength),
		vector.New(halfWidth, -halfLength),
		vector.New(halfWidth, halfLength),
		vector.New(-halfWidth, halfLength),
	}

	diff := action.Target.Sub(hero.Position()).Truncate(spell.MaxRange)
	angle := 0.5*math.Pi + diff.Angle()
	w.addWall(hero, spell, hero.Position().Add(diff), angle, points, math.Max(halfWidth, halfLength))
	return true
}
