package engine

import (
	"math"

	"arena-server/internal/physics"
	"arena-server/internal/settings"
	"arena-server/internal/vector"
)

func (w *World) findHomingTarget(targetType string, projectile *Projectile) (vector.Vec2, bool) {
	switch targetType {
	case settings.HomingSelf:
		if owner, ok := w.objects[projectile.Owner]; ok {
			return owner.Body().Position(), true
		}
	case settings.HomingEnemy:
		target, ok := w.objects[projectile.TargetID]
		if !ok {
			return vector.Vec2{}, false
		}
		if hero, isHero := target.(*Hero); isHero && hero.Invisible != nil {
			return hero.Invisible.InitialPos, true
		}
		return target.Body().Position(), true
	case settings.HomingCursor:
		return projectile.Target, true
	case settings.HomingFollow:
		if owner, ok := w.Hero(projectile.Owner); ok && owner.Target != nil {
			return *owner.Target, true
		}
		return projectile.Target, true
	}
	return vector.Vec2{}, false
}

func (w *World) homing(b *HomingBehaviour) bool {
	projectile, ok := w.objects[b.ProjectileID].(*Projectile)
	if !ok {
		return false
	}

	target, ok := w.findHomingTarget(b.TargetType, projectile)
	if !ok {
		return false
	}

	diff := target.Sub(projectile.Position())
	if b.MinDistanceToTarget > 0 && diff.Len() < b.MinDistanceToTarget {
		return w.tick < b.ExpireTick
	}

	velocity := projectile.body.LinearVelocity()
	currentAngle := velocity.Angle()
	idealAngle := diff.Angle()

	angleDelta := vector.AngleDelta(currentAngle, idealAngle)
	turnRate := math.Min(b.TurnRate, b.MaxTurnProportion*math.Abs(angleDelta))
	newAngle := vector.TurnTowards(currentAngle, idealAngle, turnRate)

	newSpeed := velocity.Len()
	if b.NewSpeed != nil {
		newSpeed = *b.NewSpeed
		projectile.Speed = newSpeed
		b.NewSpeed = nil
	}
	projectile.body.SetLinearVelocity(vector.FromAngle(newAngle, newSpeed))

	if b.ExpireWithinAngle != nil && math.Abs(angleDelta) <= *b.ExpireWithinAngle {
		return false
	}
	return w.tick < b.ExpireTick
}

func (w *World) accelerate(b *AccelerateBehaviour) bool {
	projectile, ok := w.objects[b.ProjectileID].(*Projectile)
	if !ok {
		return false
	}

	if projectile.Speed < b.MaxSpeed {
		projectile.Speed = math.Min(b.MaxSpeed, projectile.Speed+b.AccelerationPerTick)
	}

	velocity := projectile.body.LinearVelocity()
	currentSpeed := velocity.Len()
	if currentSpeed < projectile.Speed {
		newSpeed := math.Max(projectile.Speed, currentSpeed+b.AccelerationPerTick)
		projectile.body.SetLinearVelocity(velocity.Relengthen(newSpeed))
	}
	return true
}

func (w *World) attract(b *AttractBehaviour) bool {
	orb, ok := w.objects[b.ObjectID]
	if !ok {
		return false
	}
	epicenter := orb.Body().Position()

	for _, obj := range w.Objects() {
		categories := obj.Categories()
		if categories&b.Categories == 0 || categories&b.NotCategories != 0 {
			continue
		}

		switch o := obj.(type) {
		case *Hero:
			if w.calculateAlliance(b.Owner, o.id)&b.Against == 0 {
				continue
			}
		case *Projectile:
			if !o.Attractable || o.CollideWith&b.CollideLike == 0 || w.calculateAlliance(b.Owner, o.Owner)&b.Against == 0 {
				continue
			}
		}

		body := obj.Body()
		towards := epicenter.Sub(body.Position())
		distance := towards.Len()
		if distance >= b.Radius || distance == 0 {
			continue
		}

		velocity := body.LinearVelocity().Add(towards.Scale(b.AccelerationPerTick / distance))
		if b.MaxSpeed > 0 {
			velocity = velocity.Truncate(b.MaxSpeed)
		}
		body.SetLinearVelocity(velocity)
	}
	return true
}

func (w *World) aura(b *AuraBehaviour) bool {
	orb, ok := w.objects[b.ObjectID].(*Projectile)
	if !ok {
		return false
	}
	if b.TickInterval > 1 && w.tick%b.TickInterval != 0 {
		return true
	}

	epicenter := orb.Position()
	for _, hero := range w.Heroes() {
		if vector.Distance(epicenter, hero.Position()) <= b.Radius+hero.Radius {
			w.applyBuffsFrom(b.Buffs, orb.Owner, hero, kindAura, orb.Type, 1)
		}
	}
	return true
}

func (w *World) gravityForce(b *GravityForceBehaviour) bool {
	hero, ok := w.Hero(b.HeroID)
	if !ok || hero.Gravity == nil {
		return false
	}
	gravity := hero.Gravity
	if w.tick >= gravity.ExpireTick || (hero.CleanseTick > 0 && gravity.InitialTick < hero.CleanseTick) {
		hero.Gravity = nil
		return false
	}

	impulse := gravity.Location.Sub(hero.Position())
	distance := impulse.Len()
	if distance >= gravity.Radius {
		hero.Gravity = nil
		return false
	}
	if distance == 0 {
		return true
	}

	proportion := math.Pow(1-distance/gravity.Radius, gravity.Power)
	hero.body.ApplyLinearImpulse(impulse.Scale(gravity.Strength * proportion / distance))
	return true
}

func (w *World) linkForce(b *LinkForceBehaviour) bool {
	owner, ok := w.Hero(b.HeroID)
	if !ok || owner.Link == nil {
		return false
	}
	link := owner.Link

	if w.tick >= link.ExpireTick {
		owner.Link = nil
		return false
	}
	target, ok := w.objects[link.TargetID]
	if !ok {
		owner.Link = nil
		return false
	}
	if targetHero, isHero := target.(*Hero); isHero && targetHero.CleanseTick > 0 && link.InitialTick < targetHero.CleanseTick {
		owner.Link = nil
		return false
	}
	if link.Channelling && !owner.isCasting(link.SpellID) {
		owner.Link = nil
		return false
	}

	targetBody := target.Body()
	outward := targetBody.Position().Sub(owner.Position())
	distance := outward.Len()
	impulsePerTick := 0.0
	if link.MaxDistance > link.MinDistance {
		impulsePerTick = link.ImpulsePerTick * math.Max(0, distance-link.MinDistance) / (link.MaxDistance - link.MinDistance)
	}
	if impulsePerTick > 0 && distance > 0 {
		owner.body.ApplyLinearImpulse(outward.Relengthen(link.SelfFactor * impulsePerTick))
		targetBody.ApplyLinearImpulse(outward.Relengthen(link.TargetFactor * impulsePerTick).Neg())
	}

	if link.SidewaysImpulsePerTick > 0 && owner.Target != nil {
		toCursor := owner.Target.Sub(targetBody.Position())
		toRight := outward.RotateRight()
		if toRight.Len() > 0 && toCursor.Len() > 0 {
			magnitude := toRight.Dot(toCursor) / toRight.Len() / toCursor.Len()
			targetBody.ApplyLinearImpulse(toRight.Relengthen(magnitude * link.SidewaysImpulsePerTick))
		}
	}
	return true
}

func (w *World) reflectFollow(b *ReflectFollowBehaviour) bool {
	shield, ok := w.objects[b.ShieldID].(*Shield)
	if !ok || shield.Kind != ShieldReflect || w.tick >= shield.ExpireTick {
		return false
	}

	hero, ok := w.objects[shield.Owner]
	if !ok {
		shield.ExpireTick = w.tick
		return false
	}
	shield.body.SetPosition(hero.Body().Position())
	return true
}

func setMask(fixture *physics.Fixture, mask uint16) {
	filter := fixture.Filter()
	if filter.Mask != mask {
		filter.Mask = mask
		fixture.SetFilter(filter)
	}
}

// thrustBounce lets a dashing hero strike shields and stops the dash when it is nullified
func (w *World) thrustBounce(b *ThrustBounceBehaviour) bool {
	hero, ok := w.Hero(b.HeroID)
	if !ok {
		return false
	}
	primary := hero.body.Fixtures()[0]

	if hero.Thrust == nil {
		setMask(primary, settings.CategoryAll^settings.CategoryShield)
		return false
	}

	setMask(primary, settings.CategoryAll)
	if hero.Thrust.Nullified {
		hero.Thrust.Ticks = min(b.BounceTicks, hero.Thrust.Ticks)
	} else {
		hero.body.SetLinearVelocity(hero.Thrust.Velocity)
	}
	return true
}

func (w *World) thrustDecay(b *ThrustDecayBehaviour) bool {
	hero, ok := w.Hero(b.HeroID)
	if !ok || hero.Thrust == nil {
		return false
	}

	hero.Thrust.Ticks--
	if hero.Thrust.Ticks > 0 {
		return true
	}
	hero.body.SetLinearVelocity(vector.Zero())
	hero.Radius = hero.Thrust.InitialRadius
	hero.body.DestroyFixture(hero.Thrust.Fixture)
	hero.Thrust = nil
	return false
}

func shouldCollide(a, b Object) bool {
	fa, fb := a.Body().Fixtures(), b.Body().Fixtures()
	if len(fa) == 0 || len(fb) == 0 {
		return false
	}
	return fa[0].Filter().ShouldCollide(fb[0].Filter())
}

// saberSwing turns a saber towards the owner's cursor and sweeps aside anything it passes through
func (w *World) saberSwing(b *SaberSwingBehaviour) bool {
	saber, ok := w.objects[b.ShieldID].(*Shield)
	if !ok || saber.Kind != ShieldSaber {
		return false
	}

	hero, ok := w.Hero(saber.Owner)
	if !ok || (saber.Channelling && !hero.isCasting(saber.SpellID)) || hero.CleanseTick > saber.createTick {
		saber.ExpireTick = w.tick
		return false
	}

	heroPos := hero.Position()
	previousAngle := saber.body.Angle()
	targetAngle := previousAngle
	if hero.Target != nil {
		targetAngle = hero.Target.Sub(heroPos).Angle() + saber.AngleOffset
	}
	newAngle := vector.TurnTowards(previousAngle, targetAngle, saber.TurnRate)
	if newAngle == previousAngle {
		saber.body.SetPosition(heroPos)
		return true
	}

	antiClockwise := vector.AngleDelta(previousAngle, newAngle) >= 0
	previousTip := vector.FromAngle(previousAngle, saber.Length)
	newTip := vector.FromAngle(newAngle, saber.Length)

	swing := newTip.Sub(previousTip)
	swingVelocity := swing.Scale(TicksPerSecond * saber.SpeedMultiplier).Truncate(saber.MaxSpeed)
	swingSpeed := swingVelocity.Len()
	shift := swing.Scale(math.Max(0, saber.ShiftMultiplier))

	hit := false
	for _, obj := range w.Objects() {
		if obj.ID() == hero.id {
			continue
		}
		projectile, isProjectile := obj.(*Projectile)
		_, isHero := obj.(*Hero)
		if !isHero && !(isProjectile && projectile.Owner != saber.Owner && (shouldCollide(saber, projectile) || w.destructibleBy(projectile, hero.id))) {
			continue
		}

		body := obj.Body()
		objPos := body.Position()
		diff := objPos.Sub(heroPos)
		extent := extentOf(obj)
		if diff.Len() > saber.Length+extent {
			continue
		}
		insidePrevious := vector.InsideLine(diff, extent, vector.Zero(), previousTip, antiClockwise)
		insideNew := vector.InsideLine(diff, extent, newTip, vector.Zero(), antiClockwise)
		if !insidePrevious || !insideNew {
			continue
		}

		body.SetPosition(objPos.Add(shift))
		if body.LinearVelocity().Len() < swingSpeed {
			body.SetLinearVelocity(swingVelocity)
			w.emit(&PushEvent{Tick: w.tick, Owner: hero.id, ObjectID: obj.ID(), Direction: swingVelocity})
		}

		if isProjectile {
			if saber.TakesOwnership && projectile.ShieldTakesOwnership && w.calculateAlliance(saber.Owner, projectile.Owner)&settings.AllianceEnemy != 0 {
				w.swapOwnership(projectile, saber.Owner)
			}
			if w.destructibleBy(projectile, hero.id) {
				projectile.ExpireTick = w.tick
			}
		} else if target, ok := obj.(*Hero); ok {
			w.applyDamage(target, DamagePacket{FromHeroID: saber.Owner})
		}
		hit = true
	}
	if hit {
		saber.HitTick = w.tick
	}

	saber.body.SetTransform(heroPos, newAngle)
	return true
}
