package settings

// ticks converts seconds to ticks
func ticks(seconds float64) int {
	return int(seconds * TicksPerSecond)
}

// Default returns a fresh copy of the built-in settings
func Default() *Settings {
	return &Settings{
		Hero: HeroSettings{
			MoveSpeedPerSecond:          0.1,
			MaxSpeed:                    1.0,
			Radius:                      0.0125,
			Density:                     0.5,
			AngularDamping:              0.1,
			Damping:                     0.25,
			DamageMitigationTicks:       ticks(1.5),
			DamageDiminishingProportion: 0.25,
			ThrottleTicks:               6,
			MaxHealth:                   100,
			SeparationImpulsePerTick:    0.001,
			RevolutionsPerTick:          0.04,
			InitialStaticSeconds:        1,
		},
		World: WorldSettings{
			InitialRadius:                     0.4,
			HeroLayoutProportion:              0.5,
			LavaLifestealProportion:           0.5,
			LavaDamagePerSecond:               20,
			LavaDamageInterval:                10,
			SecondsToShrink:                   120,
			ShrinkPowerMinPlayers:             1.25,
			ShrinkPowerMaxPlayers:             2,
			ProjectileSpeedDecayFactorPerTick: 0.05,
			ProjectileSpeedMaxError:           0.001,
		},
		Obstacle: ObstacleSettings{
			AngularDamping:   1,
			LinearDamping:    3,
			Density:          100,
			ReturnProportion: 0.02,
			ReturnMinSpeed:   0.05,
			ReturnTurnRate:   0.002,
		},
		Matchmaking: MatchmakingSettings{
			MaxPlayers:         8,
			BotName:            "Bot",
			JoinPeriodTicks:    ticks(3),
			MaxIdleTicks:       ticks(30),
			MaxHistoryLength:   ticks(15 * 60),
			TeamGameChance:     0.5,
			TeamGameMinPlayers: 4,
		},
		Layouts:           defaultLayouts(),
		ObstacleTemplates: defaultObstacleTemplates(),
		Spells:            defaultSpells(),
		Choices: ChoiceSettings{
			Keys: []KeyConfig{{Btn: "a"}, {Btn: "q"}, {Btn: "w"}, {Btn: "e"}, {Btn: "r"}},
			Options: map[string][][]string{
				"a": {{"fireball"}, {"ignite"}},
				"q": {{"teleport", "thrust"}, {"slipstream"}},
				"w": {{"shield", "wall", "saber"}},
				"e": {{"homing", "drain", "link", "gravity"}, {"spray", "bolt"}},
				"r": {{"meteor", "scourge", "horcrux", "orb"}, {"vanish", "armor", "bloodlust"}},
			},
			Special: map[string]string{
				"move":     "move",
				"retarget": "retarget",
				"s":        "stop",
			},
		},
	}
}

func defaultLayouts() map[string]*Layout {
	return map[string]*Layout{
		"open": {
			Obstacles: []ObstacleLayout{
				{NumObstacles: 5, LayoutRadius: 0.15, NumPoints: 5, Extent: 0.015},
			},
		},
		"square": {
			NumPoints:         4,
			AngleOffsetInRevs: 0.125,
			Obstacles: []ObstacleLayout{
				{NumObstacles: 4, LayoutRadius: 0.2, Extent: 0.01, LayoutAngleOffsetInRevs: 0.125},
			},
		},
		"arcs": {
			Obstacles: []ObstacleLayout{
				{Type: "mirror", NumObstacles: 3, LayoutRadius: 0.2, AngularWidthInRevs: 0.1, Extent: 0.004},
			},
		},
		"hexagon": {
			NumPoints: 6,
			Obstacles: []ObstacleLayout{
				{Type: "explosive", NumObstacles: 6, LayoutRadius: 0.25, NumPoints: 4, AngularWidthInRevs: 0.05, Extent: 0.01},
			},
		},
		"swatches": {
			Obstacles: []ObstacleLayout{
				{Type: "fire", NumObstacles: 4, LayoutRadius: 0.2, Extent: 0.03},
				{Type: "conveyor", NumObstacles: 2, LayoutRadius: 0.08, LayoutAngleOffsetInRevs: 0.25, Extent: 0.025},
				{Type: "slow", NumObstacles: 6, LayoutRadius: 0.3, Extent: 0.02, Pattern: []int{1, 0}},
				{Type: "bumper", NumObstacles: 3, LayoutRadius: 0.12, NumPoints: 3, Extent: 0.01, LayoutAngleOffsetInRevs: 0.5},
			},
		},
	}
}

func defaultObstacleTemplates() map[string]*ObstacleTemplate {
	return map[string]*ObstacleTemplate{
		"default": {
			Health: 50,
		},
		"mirror": {
			Static:       true,
			Mirror:       true,
			Undamageable: true,
			Health:       50,
		},
		"explosive": {
			Health: 20,
			Detonate: &DetonateTemplate{
				DamagePacketTemplate: DamagePacketTemplate{Damage: 10},
				Radius:               0.04,
				MinImpulse:           0.0002,
				MaxImpulse:           0.0005,
			},
		},
		"fire": {
			Static:       true,
			Sensor:       true,
			Undamageable: true,
			CollideWith:  Ptr(CategoryHero),
			Health:       50,
			Damage:       2,
			HitInterval:  15,
		},
		"slow": {
			Static:       true,
			Sensor:       true,
			Undamageable: true,
			CollideWith:  Ptr(CategoryHero),
			Health:       50,
			HitInterval:  15,
			Buffs: []BuffTemplate{
				{Type: BuffMovement, MovementProportion: 0.5, MaxTicks: 15},
			},
		},
		"conveyor": {
			Static:       true,
			Sensor:       true,
			Undamageable: true,
			CollideWith:  Ptr(CategoryHero),
			Health:       50,
			Conveyor:     &Conveyor{LateralSpeed: 0.05},
		},
		"bumper": {
			Static:         true,
			Undamageable:   true,
			CircularHitbox: true,
			Health:         50,
			Impulse:        0.0002,
		},
	}
}

func defaultSpells() map[string]*Spell {
	spells := map[string]*Spell{
		"move": {
			Name:                    "Move",
			Action:                  ActionMove,
			InterruptibleAfterTicks: Ptr(0),
		},
		"go": {
			Name:                    "Move and Cancel",
			Action:                  ActionMove,
			CancelChanneling:        true,
			InterruptibleAfterTicks: Ptr(0),
		},
		"retarget": {
			Name:                    "Retarget",
			Action:                  ActionRetarget,
			Untargeted:              true,
			InterruptibleAfterTicks: Ptr(0),
		},
		"stop": {
			Name:                    "Stop",
			Action:                  ActionStop,
			Untargeted:              true,
			InterruptibleAfterTicks: Ptr(0),
		},
		"fireball": {
			Name:               "Fireball",
			Action:             ActionProjectile,
			Cooldown:           ticks(1.5),
			Throttle:           true,
			MaxAngleDiffInRevs: Ptr(0.01),
			Projectile: &ProjectileTemplate{
				DamagePacketTemplate: DamagePacketTemplate{Damage: 16},
				Density:              25,
				Radius:               0.003,
				Speed:                0.6,
				MaxTicks:             ticks(1.5),
			},
		},
		"ignite": {
			Name:               "Ignite",
			Action:             ActionProjectile,
			Cooldown:           ticks(1.5),
			Throttle:           true,
			MaxAngleDiffInRevs: Ptr(0.01),
			Projectile: &ProjectileTemplate{
				DamagePacketTemplate: DamagePacketTemplate{Damage: 4},
				Density:              10,
				Radius:               0.003,
				Speed:                0.5,
				MaxTicks:             ticks(1.5),
				Buffs: []BuffTemplate{
					{
						Type:        BuffBurn,
						Stack:       "ignite",
						MaxStacks:   3,
						MaxTicks:    ticks(2),
						HitInterval: 15,
						Packet:      &DamagePacketTemplate{Damage: 2, NoHit: true},
					},
				},
			},
		},
		"homing": {
			Name:               "Homing Missile",
			Action:             ActionProjectile,
			Cooldown:           ticks(7.5),
			MaxAngleDiffInRevs: Ptr(0.01),
			Projectile: &ProjectileTemplate{
				DamagePacketTemplate: DamagePacketTemplate{Damage: 12},
				Density:              25,
				Radius:               0.003,
				Speed:                0.15,
				MaxTicks:             ticks(6),
				Behaviours: []BehaviourTemplate{
					{
						Type:                 BehaviourHoming,
						TargetType:           HomingEnemy,
						RevolutionsPerSecond: Ptr(1.0),
						Trigger:              &Trigger{AfterTicks: 30},
					},
					{
						Type:                  BehaviourAccelerate,
						MaxSpeed:              0.4,
						AccelerationPerSecond: 0.2,
					},
				},
				Detonate: &DetonateTemplate{
					Radius:     0.03,
					MinImpulse: 0.0002,
					MaxImpulse: 0.0005,
				},
			},
		},
		"drain": {
			Name:               "Drain",
			Action:             ActionProjectile,
			Cooldown:           ticks(5),
			MaxAngleDiffInRevs: Ptr(0.01),
			Projectile: &ProjectileTemplate{
				DamagePacketTemplate: DamagePacketTemplate{Damage: 8, LifeSteal: 1},
				Density:              1,
				Radius:               0.002,
				Speed:                0.2,
				MaxTicks:             ticks(2),
				Behaviours: []BehaviourTemplate{
					{Type: BehaviourHoming, TargetType: HomingEnemy, RevolutionsPerSecond: Ptr(0.4)},
				},
			},
		},
		"link": {
			Name:               "Link",
			Action:             ActionProjectile,
			Cooldown:           ticks(12),
			MaxAngleDiffInRevs: Ptr(0.01),
			Projectile: &ProjectileTemplate{
				DamagePacketTemplate: DamagePacketTemplate{Damage: 5},
				Density:              1,
				Radius:               0.005,
				Speed:                0.4,
				MaxTicks:             ticks(1),
				Link: &LinkTemplate{
					LinkWith:       CategoryHero | CategoryObstacle,
					TargetFactor:   Ptr(0.5),
					ImpulsePerTick: 0.0001,
					LinkTicks:      ticks(2.5),
					MinDistance:    0.05,
					MaxDistance:    0.25,
					RedirectDamage: &RedirectDamageTemplate{
						SelfProportion:     0.5,
						RedirectProportion: 0.5,
						RedirectAfterTicks: 15,
					},
				},
			},
		},
		"gravity": {
			Name:               "Ensnare",
			Action:             ActionProjectile,
			Cooldown:           ticks(10),
			MaxAngleDiffInRevs: Ptr(0.01),
			Projectile: &ProjectileTemplate{
				Density:  0.0001,
				Radius:   0.0125,
				Speed:    0.3,
				MaxTicks: ticks(3),
				ExpireOn: Ptr(CategoryHero | CategoryMassive | CategoryObstacle),
				Gravity: &GravityTemplate{
					Ticks:          ticks(2),
					ImpulsePerTick: 0.001,
					Radius:         0.05,
					Power:          1,
				},
			},
		},
		"spray": {
			Name:                               "Splatter",
			Action:                             ActionSpray,
			Cooldown:                           ticks(10),
			InterruptibleAfterTicks:            Ptr(0),
			MovementProportionWhileChannelling: 0.5,
			IntervalTicks:                      3,
			LengthTicks:                        24,
			JitterRatio:                        0.4,
			Projectile: &ProjectileTemplate{
				DamagePacketTemplate: DamagePacketTemplate{Damage: 3},
				Density:              1,
				Radius:               0.002,
				Speed:                0.5,
				MaxTicks:             ticks(1),
			},
		},
		"bolt": {
			Name:                            "Charged Bolt",
			Action:                          ActionCharge,
			Cooldown:                        ticks(7.5),
			ChargeTicks:                     30,
			MovementProportionWhileCharging: 0.5,
			RevsPerTickWhileCharging:        0.02,
			StrikeCancel:                    &StrikeCancelParams{CooldownTicks: Ptr(ticks(1))},
			ChargeDamage:                    &PartialScaling{InitialMultiplier: 0.25, Ticks: 30},
			ChargeImpulse:                   &PartialScaling{InitialMultiplier: 0.5, Ticks: 30},
			Projectile: &ProjectileTemplate{
				DamagePacketTemplate: DamagePacketTemplate{Damage: 20},
				Density:              50,
				Radius:               0.003,
				Speed:                1.0,
				MaxTicks:             ticks(1),
			},
		},
		"orb": {
			Name:                               "Orb",
			Action:                             ActionFocus,
			Cooldown:                           ticks(10),
			InterruptibleAfterTicks:            Ptr(0),
			MovementProportionWhileChannelling: 0.5,
			Release:                            &ReleaseParams{},
			MaxChannellingTicks:                ticks(4),
			FocusDelaysCooldown:                true,
			Projectile: &ProjectileTemplate{
				DamagePacketTemplate: DamagePacketTemplate{Damage: 10},
				Density:              5,
				Radius:               0.01,
				Speed:                0.1,
				MaxTicks:             ticks(4),
				Behaviours: []BehaviourTemplate{
					{Type: BehaviourHoming, TargetType: HomingFollow, RevolutionsPerSecond: Ptr(0.5)},
					{Type: BehaviourExpireOnOwnerDeath},
				},
			},
			ReleaseBehaviours: []BehaviourTemplate{
				{Type: BehaviourHoming, TargetType: HomingCursor, NewSpeed: Ptr(0.4), Redirect: true},
			},
		},
		"meteor": {
			Name:               "Meteor",
			Action:             ActionProjectile,
			Cooldown:           ticks(12),
			MaxAngleDiffInRevs: Ptr(0.01),
			Projectile: &ProjectileTemplate{
				Density:     100,
				Radius:      0.03,
				Speed:       0.2,
				MaxTicks:    ticks(12),
				Categories:  Ptr(CategoryProjectile | CategoryMassive),
				ExpireOn:    Ptr(CategoryObstacle),
				Attractable: Ptr(false),
			},
		},
		"horcrux": {
			Name:               "Horcrux",
			Action:             ActionProjectile,
			Cooldown:           ticks(20),
			MaxAngleDiffInRevs: Ptr(0.01),
			Projectile: &ProjectileTemplate{
				Density:      0.1,
				Radius:       0.006,
				Speed:        0.1,
				MaxTicks:     ticks(4),
				Horcrux:      true,
				Strafe:       true,
				Destructible: &DestructibleTemplate{},
				Behaviours: []BehaviourTemplate{
					{Type: BehaviourExpireOnOwnerRetreat, MaxDistance: 0.2},
				},
			},
		},
		"shield": {
			Name:             "Reflect",
			Action:           ActionShield,
			Untargeted:       true,
			Cooldown:         ticks(10),
			MaxTicks:         ticks(1.5),
			Radius:           0.025,
			TakesOwnership:   true,
			DamageMultiplier: 0.9,
		},
		"wall": {
			Name:              "Wall",
			Action:            ActionWall,
			Cooldown:          ticks(10),
			MaxTicks:          ticks(5),
			MaxRange:          0.25,
			Length:            0.1,
			Width:             0.005,
			GrowthTicks:       5,
			BlocksTeleporters: true,
			DamageMultiplier:  1,
		},
		"saber": {
			Name:                               "Lightsaber",
			Action:                             ActionSaber,
			Cooldown:                           ticks(10),
			InterruptibleAfterTicks:            Ptr(0),
			MovementProportionWhileChannelling: 0.5,
			MaxTicks:                           ticks(1.5),
			Length:                             0.1,
			Width:                              0.004,
			AngleOffsetsInRevs:                 []float64{0},
			ShiftMultiplier:                    0.25,
			SpeedMultiplier:                    0.25,
			MaxSpeed:                           0.75,
			MaxTurnRatePerTickInRevs:           0.1,
			Channelling:                        true,
			TakesOwnership:                     true,
			DamageMultiplier:                   1,
			Categories:                         Ptr(CategoryShield),
			CollideWith:                        Ptr(CategoryHero | CategoryProjectile),
		},
		"teleport": {
			Name:       "Teleport",
			Action:     ActionTeleport,
			Untargeted: true,
			Cooldown:   ticks(10),
			Range:      0.35,
		},
		"thrust": {
			Name:             "Thrust",
			Action:           ActionThrust,
			Cooldown:         ticks(10),
			Range:            0.4,
			Speed:            0.8,
			RadiusMultiplier: 1,
			BounceTicks:      10,
			Nullifiable:      true,
			DamageTemplate:   &DamagePacketTemplate{Damage: 10},
		},
		"slipstream": {
			Name:       "Slipstream",
			Action:     ActionBuff,
			Untargeted: true,
			Cooldown:   ticks(10),
			Buffs: []BuffTemplate{
				{Type: BuffGlide, LinearDampingMultiplier: 0.2, MaxTicks: ticks(3)},
				{Type: BuffMovement, MovementProportion: 1.25, MaxTicks: ticks(3)},
			},
		},
		"scourge": {
			Name:                            "Scourge",
			Action:                          ActionScourge,
			Untargeted:                      true,
			Cooldown:                        ticks(10),
			ChargeTicks:                     30,
			MovementProportionWhileCharging: 0.5,
			SelfDamage:                      10,
			MinSelfHealth:                   1,
			Detonate: &DetonateTemplate{
				DamagePacketTemplate: DamagePacketTemplate{Damage: 20},
				Radius:               0.05,
				MinImpulse:           0.0005,
				MaxImpulse:           0.001,
			},
		},
		"vanish": {
			Name:       "Vanish",
			Action:     ActionBuff,
			Untargeted: true,
			Cooldown:   ticks(15),
			Buffs: []BuffTemplate{
				{Type: BuffVanish, MaxTicks: ticks(2)},
				{Type: BuffMovement, MovementProportion: 1.5, MaxTicks: ticks(2)},
			},
		},
		"armor": {
			Name:       "Fortify",
			Action:     ActionBuff,
			Untargeted: true,
			Cooldown:   ticks(15),
			Buffs: []BuffTemplate{
				{Type: BuffArmor, Proportion: -0.5, MaxTicks: ticks(3)},
				{Type: BuffLavaImmunity, DamageProportion: 0, MaxTicks: ticks(3)},
				{Type: BuffCooldown, SpellID: "teleport", MaxCooldown: Ptr(ticks(5)), MaxTicks: 1},
			},
		},
		"bloodlust": {
			Name:       "Bloodlust",
			Action:     ActionBuff,
			Untargeted: true,
			Cooldown:   ticks(15),
			Buffs: []BuffTemplate{
				{Type: BuffLifeSteal, LifeSteal: 0.5, DamageMultiplier: Ptr(1.2), MaxTicks: ticks(4)},
			},
		},
	}
	for id, spell := range spells {
		spell.ID = id
	}
	return spells
}
