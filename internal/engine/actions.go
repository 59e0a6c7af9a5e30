package engine

import (
	"math"

	"arena-server/internal/settings"
	"arena-server/internal/vector"
)

// handleActions resolves the queued action of every hero. A hero busy with an
// uninterruptible cast keeps its new action queued until the cast finishes.
func (w *World) handleActions() {
	next := make(map[string]*Action)
	for _, hero := range w.Heroes() {
		action := w.actions[hero.id]
		if action != nil {
			target := action.Target
			hero.Target = &target
		}

		if action != nil && action.Release {
			if hero.Casting != nil && hero.Casting.Action.Type == action.Type {
				hero.Casting.ReleaseTick = w.tick
			}
			action = nil
		}

		if action != nil {
			if spell, ok := w.settings.Spells[action.Type]; ok && w.applyPreAction(hero, action, spell) {
				action = nil
			}
		}

		if hero.Casting != nil && (action == nil || hero.Casting.Uninterruptible) {
			if action != nil {
				next[hero.id] = action
			}
			action = hero.Casting.Action
		}

		w.performHeroActions(hero, action)
		w.moveTowards(hero, hero.MoveTo, hero.castingMovementProportion())
	}
	w.actions = next
}

func isValidAction(action *Action, hero *Hero) bool {
	switch action.Type {
	case settings.ActionMove, settings.ActionStop, settings.ActionRetarget:
		return true
	}
	_, bound := hero.SpellsToKeys[action.Type]
	return bound
}

// applyPreAction handles the actions that never enter the casting state machine
func (w *World) applyPreAction(hero *Hero, action *Action, spell *settings.Spell) bool {
	switch spell.Action {
	case settings.ActionMove:
		target := action.Target
		hero.MoveTo = &target
		if spell.CancelChanneling && hero.Casting != nil && !hero.Casting.Uninterruptible {
			if channelling, ok := w.settings.Spells[hero.Casting.Action.Type]; ok && channelling.MovementCancel {
				hero.Casting = nil
			}
		}
		return true
	case settings.ActionRetarget:
		return true
	}
	return false
}

func (w *World) performHeroActions(hero *Hero, action *Action) {
	if action == nil {
		return
	}
	spell, ok := w.settings.Spells[action.Type]
	if !ok || !isValidAction(action, hero) {
		// the spell was unbound mid-cast
		if hero.Casting != nil && hero.Casting.Action == action {
			hero.Casting = nil
		}
		return
	}
	uninterruptible := spell.IsUninterruptibleAtStart()

	if hero.Casting == nil || action != hero.Casting.Action {
		hero.Casting = &Casting{
			Action:       action,
			Stage:        CastCooldown,
			InitialAngle: action.Target.Sub(hero.Position()).Angle(),
		}
	}
	casting := hero.Casting

	if casting.Stage == CastCooldown {
		casting.MovementProportion = 1
		if spell.Cooldown > 0 {
			if cooldown := w.cooldownRemaining(hero, spell.ID); cooldown > 0 {
				if cooldown > MaxCooldownWaitTicks {
					hero.Casting = nil
				}
				return
			}
		}
		casting.MovementProportion = 0
		casting.Stage++
	}

	if casting.Stage == CastThrottle {
		casting.MovementProportion = 1
		if spell.Throttle {
			if w.tick < hero.ThrottleUntilTick {
				return
			}
			hero.ThrottleUntilTick = w.tick + w.settings.Hero.ThrottleTicks
		}
		casting.MovementProportion = 0
		casting.Stage++
	}

	if casting.Stage == CastOrientating {
		casting.Uninterruptible = uninterruptible

		angleDiff := 0.0
		if !spell.Untargeted {
			angleDiff = turnTowards(hero, action.Target, hero.RevolutionsPerTick)
		}
		if spell.MaxAngleDiffInRevs != nil && angleDiff > *spell.MaxAngleDiffInRevs*vector.Tau {
			return
		}

		// a buff may have put the spell back on cooldown while orientating
		if spell.Cooldown > 0 && w.cooldownRemaining(hero, spell.ID) > 0 {
			hero.Casting = nil
			return
		}

		casting.Uninterruptible = false
		casting.Stage++
	}

	if spell.StrikeCancel != nil && hero.StrikeTick > 0 && casting.ChargeStartTick > 0 && hero.StrikeTick >= casting.ChargeStartTick {
		channellingTicks := 0
		if casting.ChannellingStartTick > 0 {
			channellingTicks = w.tick - casting.ChannellingStartTick
		}
		maxChannellingTicks := math.MaxInt
		if spell.StrikeCancel.MaxChannelingTicks > 0 {
			maxChannellingTicks = spell.StrikeCancel.MaxChannelingTicks
		}
		if spell.StrikeCancel.CooldownTicks != nil && channellingTicks <= maxChannellingTicks {
			w.setCooldown(hero, spell.ID, *spell.StrikeCancel.CooldownTicks)
		}
		casting.Stage = CastComplete
	}

	if spell.Release != nil && spell.Release.Interrupt && casting.ReleaseTick > 0 {
		casting.Stage = CastComplete
	}

	if casting.Stage == CastCharging {
		if casting.ChargeStartTick == 0 {
			casting.ChargeStartTick = w.tick
			casting.Uninterruptible = uninterruptible
			casting.MovementProportion = spell.MovementProportionWhileCharging
		}
		if spell.RevsPerTickWhileCharging > 0 && hero.Target != nil {
			turnTowards(hero, *hero.Target, spell.RevsPerTickWhileCharging)
		}

		ticksCharging := w.tick - casting.ChargeStartTick
		casting.Proportion = 1
		if spell.ChargeTicks > 0 {
			casting.Proportion = math.Min(1, float64(ticksCharging)/float64(spell.ChargeTicks))
		}

		if spell.Release != nil && spell.Release.MaxChargeTicks > 0 {
			if casting.ReleaseTick == 0 && ticksCharging < spell.Release.MaxChargeTicks {
				return
			}
		} else if ticksCharging < spell.ChargeTicks {
			return
		}

		casting.Proportion = 0
		casting.Uninterruptible = false
		casting.MovementProportion = 0
		casting.Stage++
	}

	if casting.Stage == CastChannelling {
		if casting.ChannellingStartTick == 0 {
			casting.ChannellingStartTick = w.tick
			casting.Uninterruptible = uninterruptible
			casting.MovementProportion = spell.MovementProportionWhileChannelling
			if spell.Cooldown > 0 {
				w.setCooldown(hero, spell.ID, spell.Cooldown)
			}
		}

		casting.Uninterruptible = spell.InterruptibleAfterTicks == nil ||
			w.tick-casting.ChannellingStartTick < *spell.InterruptibleAfterTicks

		// stop a hit from spinning the hero mid-spray
		hero.body.SetAngularVelocity(0)
		if spell.RevsPerTickWhileChannelling > 0 && hero.Target != nil {
			turnTowards(hero, *hero.Target, spell.RevsPerTickWhileChannelling)
		}

		if w.applyAction(hero, action, spell) {
			casting.Uninterruptible = false
			casting.MovementProportion = 0
			casting.Stage++
		}
	}

	if casting.Stage == CastComplete {
		hero.Casting = nil
	}
}

// turnTowards rotates the hero towards target by at most revsPerTick and
// returns the angle still left to turn
func turnTowards(hero *Hero, target vector.Vec2, revsPerTick float64) float64 {
	targetAngle := target.Sub(hero.Position()).Angle()
	newAngle := vector.TurnTowards(hero.body.Angle(), targetAngle, revsPerTick*vector.Tau)
	hero.body.SetAngle(newAngle)
	return math.Abs(vector.AngleDelta(newAngle, targetAngle))
}

// castingMovementProportion is how fast the hero may walk given its cast and buffs
func (h *Hero) castingMovementProportion() float64 {
	multiplier := 1.0
	if h.Casting != nil {
		multiplier = h.Casting.MovementProportion
	}
	return multiplier * h.movementProportion()
}

func (w *World) moveTowards(hero *Hero, target *vector.Vec2, movementProportion float64) {
	if target == nil {
		return
	}
	if movementProportion > 0 {
		turnTowards(hero, *target, hero.RevolutionsPerTick)
	}

	current := hero.Position()
	step := target.Sub(current).Truncate(movementProportion * hero.MoveSpeedPerSecond / TicksPerSecond)
	if hero.ConveyorShift != nil {
		step = step.Add(*hero.ConveyorShift)
		hero.ConveyorShift = nil
	}
	hero.body.SetPosition(current.Add(step))

	for id := range hero.StrafeIDs {
		projectile, ok := w.objects[id].(*Projectile)
		if !ok {
			delete(hero.StrafeIDs, id)
			continue
		}
		if projectile.Strafe && projectile.Owner == hero.id {
			projectile.body.SetPosition(projectile.Position().Add(step))
		}
	}

	if vector.Distance(current, *target) < Pixel {
		hero.MoveTo = nil
	} else {
		hero.MoveTo = target
	}
}

// spellPreactions runs the effects every spell shares on its first channelling tick
func (w *World) spellPreactions(hero *Hero, spell *settings.Spell) {
	if w.tick != hero.Casting.ChannellingStartTick {
		return
	}

	if spell.Unlink {
		hero.Link = nil
	}
	if spell.Delink {
		for _, other := range w.Heroes() {
			if other.Link != nil && other.Link.TargetID == hero.id {
				other.Link.ExpireTick = w.tick
			}
		}
	}
	if spell.Debuff {
		hero.CleanseTick = w.tick
	}
	for _, template := range spell.Buffs {
		id := spell.ID + "/" + template.Type
		w.instantiateBuff(id, template, hero, buffContext{spellID: spell.ID})
	}
}
