package engine

import (
	"math"

	"arena-server/internal/physics"
	"arena-server/internal/settings"
	"arena-server/internal/vector"
)

func (w *World) addHero(heroID string) *Hero {
	heroSettings := w.settings.Hero

	heroIndex := w.nextPositionID
	w.nextPositionID++
	filterGroup := -(heroIndex + 1) // zero would mean no group

	posAngle := vector.Tau * float64(heroIndex) / float64(w.settings.Matchmaking.MaxPlayers)
	position := vector.FromAngle(posAngle, w.settings.World.HeroLayoutRadius()).Add(center)
	angle := posAngle + math.Pi // face inward

	body := w.physics.CreateBody(physics.BodyDef{
		Type:           physics.DynamicBody,
		UserData:       heroID,
		Position:       position,
		Angle:          angle,
		LinearDamping:  heroSettings.Damping,
		AngularDamping: heroSettings.AngularDamping,
		Immovable:      true,
	})
	body.CreateFixture(physics.FixtureDef{
		Shape:       &physics.CircleShape{Radius: heroSettings.Radius},
		Density:     heroSettings.Density,
		Restitution: 1,
		Filter: physics.Filter{
			Category: settings.CategoryHero,
			Mask:     settings.CategoryAll ^ settings.CategoryShield,
			Group:    filterGroup,
		},
	})

	hero := &Hero{
		object:             object{id: heroID, body: body, categories: settings.CategoryHero, createTick: w.tick},
		FilterGroup:        filterGroup,
		Health:             heroSettings.MaxHealth,
		MaxHealth:          heroSettings.MaxHealth,
		Radius:             heroSettings.Radius,
		LinearDamping:      heroSettings.Damping,
		MoveSpeedPerSecond: heroSettings.MoveSpeedPerSecond,
		MaxSpeed:           heroSettings.MaxSpeed,
		RevolutionsPerTick: heroSettings.RevolutionsPerTick,
		Cooldowns:          make(map[string]int),
		KeysToSpells:       make(map[string]string),
		SpellsToKeys:       make(map[string]string),
		SpellChangedTick:   make(map[string]int),
		ShieldIDs:          make(map[string]bool),
		StrafeIDs:          make(map[string]bool),
		HorcruxIDs:         make(map[string]bool),
		FocusIDs:           make(map[string]string),
		DamageSources:      make(map[string]float64),
	}
	w.addObject(hero)
	if _, ok := w.scores[heroID]; !ok {
		w.scoreOrder = append(w.scoreOrder, heroID)
	}
	w.scores[heroID] = &Score{HeroID: heroID}

	w.pushBehaviour(&ExpireBuffsBehaviour{HeroID: heroID})
	w.pushBehaviour(&BurnBehaviour{HeroID: heroID})
	w.pushBehaviour(&ResetMassBehaviour{
		ObjID: heroID,
		Tick:  w.tick + int(heroSettings.InitialStaticSeconds*TicksPerSecond),
	})
	return hero
}

// projectileConfig overrides parts of a projectile at launch
type projectileConfig struct {
	direction *vector.Vec2
}

func (w *World) addProjectile(hero *Hero, target vector.Vec2, spell *settings.Spell, template *settings.ProjectileTemplate, config projectileConfig) *Projectile {
	from := hero.Position()

	var direction vector.Vec2
	if config.direction != nil {
		direction = config.direction.Unit()
	} else {
		direction = target.Sub(from).Unit()
	}
	if direction.IsZero() {
		direction = vector.FromAngle(hero.body.Angle(), 1)
	}

	projectile := w.addProjectileAt(from, direction.Angle(), target, spell.ID, template, hero.id, hero.FilterGroup)
	if projectile.Strafe {
		hero.StrafeIDs[projectile.id] = true
	}
	if template.Horcrux {
		hero.HorcruxIDs[projectile.id] = true
	}
	return projectile
}

func (w *World) addProjectileAt(position vector.Vec2, angle float64, target vector.Vec2, spellID string, template *settings.ProjectileTemplate, owner string, filterGroup int) *Projectile {
	id := w.nextID(spellID)
	velocity := vector.FromAngle(angle, template.Speed)

	categories := settings.Or(template.Categories, settings.CategoryProjectile|settings.CategoryBlocker)
	collideWith := settings.Or(template.CollideWith, settings.CategoryAll)

	body := w.physics.CreateBody(physics.BodyDef{
		Type:           physics.DynamicBody,
		UserData:       id,
		Position:       position,
		Angle:          angle,
		LinearVelocity: velocity,
		Bullet:         true,
	})
	body.CreateFixture(physics.FixtureDef{
		Shape:       &physics.CircleShape{Radius: template.Radius},
		Density:     template.Density,
		Restitution: settings.Or(template.Restitution, 1),
		Filter:      physics.Filter{Category: categories, Mask: collideWith, Group: filterGroup},
		Sensor:      template.Sensor,
	})
	if template.Sense != 0 {
		body.CreateFixture(physics.FixtureDef{
			Shape:   &physics.CircleShape{Radius: template.Radius},
			Density: 1e-6,
			Filter:  physics.Filter{Category: categories, Mask: template.Sense, Group: filterGroup},
			Sensor:  true,
		})
	}

	expireTicks := template.MaxTicks
	if template.ExpireAfterCursorTicks != nil {
		ticksToCursor := ticksTo(vector.Distance(position, target), velocity.Len())
		expireTicks = min(expireTicks, ticksToCursor+*template.ExpireAfterCursorTicks)
	}

	projectile := &Projectile{
		object:      object{id: id, body: body, categories: categories, createTick: w.tick},
		Owner:       owner,
		Type:        spellID,
		Radius:      template.Radius,
		Speed:       template.Speed,
		FixedSpeed:  settings.Or(template.FixedSpeed, true),
		Strafe:      template.Strafe,
		Attractable: settings.Or(template.Attractable, true),
		Linkable:    template.Linkable,

		Target:   target,
		TargetID: w.nearestEnemyHero(owner, target),

		HitTicks:    make(map[string]int),
		HitInterval: template.HitInterval,

		DamageTemplate:         template.DamagePacketTemplate,
		PartialDamage:          template.PartialDamage,
		PartialDetonateRadius:  template.PartialDetonateRadius,
		PartialDetonateImpulse: template.PartialDetonateImpulse,
		PartialBuffDuration:    template.PartialBuffDuration,

		Bounce:               template.Bounce,
		Gravity:              template.Gravity,
		Link:                 template.Link,
		Buffs:                template.Buffs,
		SwapWith:             template.SwapWith,
		ShieldTakesOwnership: settings.Or(template.ShieldTakesOwnership, true),

		ExpireTick:           w.tick + expireTicks,
		MinTicks:             template.MinTicks,
		MaxTicks:             template.MaxTicks,
		CollideWith:          collideWith,
		Sensor:               template.Sensor,
		ExpireOn:             settings.Or(template.ExpireOn, settings.CategoryAll^settings.CategoryShield),
		ExpireAgainstHeroes:  settings.Or(template.ExpireAgainstHeroes, settings.AllianceAll),
		ExpireAgainstObjects: settings.Or(template.ExpireAgainstObjects, settings.AllianceAll),
		ExpireOnMirror:       template.ExpireOnMirror,
	}
	if template.Destructible != nil {
		projectile.Destructible = true
		projectile.DestructibleAgainst = settings.Or(template.Destructible.Against, settings.AllianceAll)
	}
	if template.Detonate != nil {
		detonate := w.instantiateDetonate(*template.Detonate, owner)
		projectile.Detonate = &detonate
	}

	w.addObject(projectile)
	if projectile.Detonate != nil {
		w.pushBehaviour(&DetonateBehaviour{ProjectileID: id})
	}
	if !template.SelfPassthrough {
		w.pushBehaviour(&RemovePassthroughBehaviour{ProjectileID: id})
	}
	w.instantiateProjectileBehaviours(template.Behaviours, projectile)
	return projectile
}

func (w *World) nearestEnemyHero(owner string, target vector.Vec2) string {
	nearestID := ""
	nearestDistance := math.Inf(1)
	for _, hero := range w.Heroes() {
		if w.calculateAlliance(owner, hero.id)&settings.AllianceEnemy == 0 {
			continue
		}
		if d := vector.Distance(target, hero.Position()); d < nearestDistance {
			nearestDistance, nearestID = d, hero.id
		}
	}
	return nearestID
}

func (w *World) addShield(hero *Hero, spell *settings.Spell) *Shield {
	id := w.nextID("shield")

	body := w.physics.CreateBody(physics.BodyDef{
		Type:     physics.StaticBody,
		UserData: id,
		Position: hero.Position(),
	})
	body.CreateFixture(physics.FixtureDef{
		Shape:       &physics.CircleShape{Radius: spell.Radius},
		Restitution: 1,
		Filter: physics.Filter{
			Category: settings.CategoryShield,
			Mask:     settings.CategoryHero | settings.CategoryProjectile,
			Group:    hero.FilterGroup,
		},
	})

	shield := &Shield{
		object:            object{id: id, body: body, categories: settings.CategoryShield, createTick: w.tick},
		Kind:              ShieldReflect,
		Owner:             hero.id,
		ExpireTick:        w.tick + spell.MaxTicks,
		DamageMultiplier:  spell.DamageMultiplier,
		TakesOwnership:    spell.TakesOwnership,
		BlocksTeleporters: spell.BlocksTeleporters,
		Radius:            spell.Radius,
		Extent:            spell.Radius,
	}
	w.addObject(shield)
	hero.ShieldIDs[id] = true
	w.pushBehaviour(&ReflectFollowBehaviour{ShieldID: id})
	return shield
}

func (w *World) addWall(hero *Hero, spell *settings.Spell, position vector.Vec2, angle float64, points []vector.Vec2, extent float64) *Shield {
	id := w.nextID("shield")

	bodyType := physics.StaticBody
	if spell.Density > 0 {
		bodyType = physics.DynamicBody
	}
	body := w.physics.CreateBody(physics.BodyDef{
		Type:           bodyType,
		UserData:       id,
		Position:       position,
		Angle:          angle,
		LinearDamping:  spell.LinearDamping,
		AngularDamping: spell.AngularDamping,
	})
	group := 0
	if spell.SelfPassthrough {
		group = hero.FilterGroup
	}
	body.CreateFixture(physics.FixtureDef{
		Shape:       physics.NewPolygonShape(points),
		Density:     spell.Density,
		Restitution: 1,
		Filter: physics.Filter{
			Category: settings.Or(spell.Categories, settings.CategoryShield),
			Mask:     settings.CategoryHero | settings.CategoryProjectile,
			Group:    group,
		},
	})

	shield := &Shield{
		object:            object{id: id, body: body, categories: settings.CategoryShield, createTick: w.tick},
		Kind:              ShieldWall,
		Owner:             hero.id,
		ExpireTick:        w.tick + spell.MaxTicks,
		GrowthTicks:       spell.GrowthTicks,
		DamageMultiplier:  spell.DamageMultiplier,
		TakesOwnership:    spell.TakesOwnership,
		BlocksTeleporters: spell.BlocksTeleporters,
		Points:            points,
		Extent:            extent,
	}
	w.addObject(shield)
	return shield
}

func (w *World) addSaber(hero *Hero, spell *settings.Spell, angleOffset float64) *Shield {
	id := w.nextID("shield")

	body := w.physics.CreateBody(physics.BodyDef{
		Type:     physics.StaticBody,
		UserData: id,
		Position: hero.Position(),
		Angle:    hero.body.Angle() + angleOffset,
	})

	halfWidth := spell.Width / 2
	points := []vector.Vec2{
		vector.New(0, -halfWidth),
		vector.New(0, halfWidth),
		vector.New(spell.Length, halfWidth),
		vector.New(spell.Length, -halfWidth),
	}
	categories := settings.Or(spell.Categories, settings.CategoryShield)
	body.CreateFixture(physics.FixtureDef{
		Shape:       physics.NewPolygonShape(points),
		Restitution: 1,
		Filter: physics.Filter{
			Category: categories,
			Mask:     settings.Or(spell.CollideWith, settings.CategoryHero|settings.CategoryProjectile),
			Group:    hero.FilterGroup,
		},
	})

	shield := &Shield{
		object:            object{id: id, body: body, categories: categories, createTick: w.tick},
		Kind:              ShieldSaber,
		Owner:             hero.id,
		ExpireTick:        w.tick + spell.MaxTicks,
		GrowthTicks:       5,
		Channelling:       spell.Channelling,
		DamageMultiplier:  spell.DamageMultiplier,
		TakesOwnership:    spell.TakesOwnership,
		Destroying:        true,
		BlocksTeleporters: spell.BlocksTeleporters,
		Points:            points,
		Extent:            spell.Length,
		SpellID:           spell.ID,
		AngleOffset:       angleOffset,
		Length:            spell.Length,
		Width:             spell.Width,
		ShiftMultiplier:   spell.ShiftMultiplier,
		SpeedMultiplier:   spell.SpeedMultiplier,
		MaxSpeed:          spell.MaxSpeed,
		TurnRate:          spell.MaxTurnRatePerTickInRevs * vector.Tau,
	}
	w.addObject(shield)
	return shield
}

func (w *World) addObstacle(position vector.Vec2, angle float64, shape vector.Shape, layout settings.ObstacleLayout) *Obstacle {
	obstacleSettings := w.settings.Obstacle
	template := w.settings.ObstacleTemplates[layout.TemplateID()]

	id := w.nextID("obstacle")
	bodyType := physics.DynamicBody
	if template.Static {
		bodyType = physics.StaticBody
	}
	body := w.physics.CreateBody(physics.BodyDef{
		Type:           bodyType,
		UserData:       id,
		Position:       position,
		Angle:          angle,
		LinearDamping:  orDefault(template.LinearDamping, obstacleSettings.LinearDamping),
		AngularDamping: orDefault(template.AngularDamping, obstacleSettings.AngularDamping),
		Immovable:      true, // until the match starts
	})

	collideWith := settings.Or(template.CollideWith, settings.CategoryAll)
	fixture := physics.FixtureDef{
		Density:     orDefault(template.Density, obstacleSettings.Density),
		Restitution: 1,
		Filter:      physics.Filter{Category: settings.CategoryObstacle, Mask: collideWith},
		Sensor:      template.Sensor,
	}
	switch {
	case template.CircularHitbox:
		fixture.Shape = &physics.CircleShape{Radius: layout.Extent / vector.MaxExtentMultiplier(layout.NumPoints)}
		body.CreateFixture(fixture)
	case shape.Pieces() == nil:
		fixture.Shape = &physics.CircleShape{Radius: shape.MinExtent()}
		body.CreateFixture(fixture)
	default:
		for _, piece := range shape.Pieces() {
			fixture.Shape = physics.NewPolygonShape(piece)
			body.CreateFixture(fixture)
		}
	}

	health := orDefault(layout.Health, template.Health)
	obstacle := &Obstacle{
		object:       object{id: id, body: body, categories: settings.CategoryObstacle, createTick: w.tick},
		Type:         layout.Type,
		Static:       template.Static,
		Sensor:       template.Sensor,
		CollideWith:  collideWith,
		ExpireOn:     template.ExpireOn,
		Undamageable: template.Undamageable,
		Shape:        shape,
		Health:       health,
		MaxHealth:    health,
		Damage:       template.Damage,
		Buffs:        template.Buffs,
		Detonate:     template.Detonate,
		Mirror:       template.Mirror,
		Impulse:      template.Impulse,
		Conveyor:     template.Conveyor,
		HitInterval:  max(template.HitInterval, 1),
		HitTicks:     make(map[string]int),
	}

	w.pushBehaviour(&FixateBehaviour{
		ObjID:            id,
		UntilGameStarted: true,
		Pos:              position,
		Angle:            angle,
		Proportion:       obstacleSettings.ReturnProportion,
		Speed:            obstacleSettings.ReturnMinSpeed,
		TurnRate:         obstacleSettings.ReturnTurnRate * vector.Tau,
	})
	w.addObject(obstacle)
	return obstacle
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// seedEnvironment picks the map layout and creates its obstacles. Only the first seed counts.
func (w *World) seedEnvironment(seed int64, layoutID string) {
	if w.seeded {
		return
	}
	w.seeded = true
	w.seed = seed

	layout, ok := w.settings.Layouts[layoutID]
	if !ok {
		ids := w.settings.SortedLayoutIDs()
		layoutID = ids[int(uint64(seed)%uint64(len(ids)))]
		layout = w.settings.Layouts[layoutID]
	}
	w.layoutID = layoutID

	w.mapRadiusMultiplier = layout.RadiusMultiplier
	if w.mapRadiusMultiplier == 0 {
		w.mapRadiusMultiplier = vector.MaxExtentMultiplier(layout.NumPoints)
	}

	if layout.NumPoints > 0 {
		w.mapPoints = make([]vector.Vec2, layout.NumPoints)
		for i := range w.mapPoints {
			angle := (layout.AngleOffsetInRevs + float64(i)/float64(layout.NumPoints)) * vector.Tau
			w.mapPoints[i] = vector.FromAngle(angle, 1)
		}
	}

	for _, obstacleLayout := range layout.Obstacles {
		w.instantiateObstacles(obstacleLayout)
	}
}

func (w *World) instantiateObstacles(layout settings.ObstacleLayout) {
	shape := instantiateShape(layout)

	for i := 0; i < layout.NumObstacles; i++ {
		if len(layout.Pattern) > 0 && layout.Pattern[i%len(layout.Pattern)] == 0 {
			continue
		}

		baseAngle := vector.Tau * float64(i) / float64(layout.NumObstacles)
		layoutAngleOffset := layout.LayoutAngleOffsetInRevs * vector.Tau
		orientationAngleOffset := layout.OrientationAngleOffsetInRevs * vector.Tau
		position := vector.FromAngle(baseAngle+layoutAngleOffset, layout.LayoutRadius).Add(center)
		angle := baseAngle + layoutAngleOffset + orientationAngleOffset
		w.addObstacle(position, angle, shape, layout)
	}
}

func instantiateShape(layout settings.ObstacleLayout) vector.Shape {
	switch {
	case layout.NumPoints == 0 && layout.AngularWidthInRevs != 0:
		return vector.Arc{Radius: layout.LayoutRadius, Extent: layout.Extent, HalfWidth: math.Pi * layout.AngularWidthInRevs}
	case layout.NumPoints == 0:
		return vector.Circle{Radius: layout.Extent}
	case layout.AngularWidthInRevs != 0:
		return vector.NewTrapezoid(layout.LayoutRadius, layout.Extent, layout.AngularWidthInRevs)
	default:
		return vector.NewRadial(layout.NumPoints, layout.Extent)
	}
}
