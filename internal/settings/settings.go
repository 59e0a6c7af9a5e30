// Package settings holds the declarative configuration of a match: hero and
// world constants, map layouts, obstacle templates and the spell book.
package settings

// TicksPerSecond is the fixed simulation rate
const TicksPerSecond = 60

// Settings is the full configuration of one match. It is treated as immutable
// once a match has been created from it.
type Settings struct {
	Hero              HeroSettings                 `json:"Hero"`
	World             WorldSettings                `json:"World"`
	Obstacle          ObstacleSettings             `json:"Obstacle"`
	Matchmaking       MatchmakingSettings          `json:"Matchmaking"`
	Layouts           map[string]*Layout           `json:"Layouts"`
	ObstacleTemplates map[string]*ObstacleTemplate `json:"ObstacleTemplates"`
	Spells            map[string]*Spell            `json:"Spells"`
	Choices           ChoiceSettings               `json:"Choices"`
}

// HeroSettings are the constants shared by every hero
type HeroSettings struct {
	MoveSpeedPerSecond          float64 `json:"MoveSpeedPerSecond"`
	MaxSpeed                    float64 `json:"MaxSpeed"`
	Radius                      float64 `json:"Radius"`
	Density                     float64 `json:"Density"`
	AngularDamping              float64 `json:"AngularDamping"`
	Damping                     float64 `json:"Damping"`
	DamageMitigationTicks       int     `json:"DamageMitigationTicks"`       // ticks a damage source is remembered for
	DamageDiminishingProportion float64 `json:"DamageDiminishingProportion"` // reduction per remembered hit from the same source
	ThrottleTicks               int     `json:"ThrottleTicks"`
	MaxHealth                   float64 `json:"MaxHealth"`
	SeparationImpulsePerTick    float64 `json:"SeparationImpulsePerTick"`
	RevolutionsPerTick          float64 `json:"RevolutionsPerTick"`
	InitialStaticSeconds        float64 `json:"InitialStaticSeconds"` // heroes cannot be knocked back for this long after joining
}

// WorldSettings are the constants of the arena
type WorldSettings struct {
	InitialRadius                     float64 `json:"InitialRadius"`
	HeroLayoutProportion              float64 `json:"HeroLayoutProportion"`
	LavaLifestealProportion           float64 `json:"LavaLifestealProportion"`
	LavaDamagePerSecond               float64 `json:"LavaDamagePerSecond"`
	LavaDamageInterval                int     `json:"LavaDamageInterval"`
	SecondsToShrink                   float64 `json:"SecondsToShrink"`
	ShrinkPowerMinPlayers             float64 `json:"ShrinkPowerMinPlayers"`
	ShrinkPowerMaxPlayers             float64 `json:"ShrinkPowerMaxPlayers"`
	ProjectileSpeedDecayFactorPerTick float64 `json:"ProjectileSpeedDecayFactorPerTick"`
	ProjectileSpeedMaxError           float64 `json:"ProjectileSpeedMaxError"`
}

// HeroLayoutRadius is the distance from the center at which heroes spawn
func (w WorldSettings) HeroLayoutRadius() float64 {
	return w.InitialRadius * w.HeroLayoutProportion
}

// ObstacleSettings are the defaults for every obstacle
type ObstacleSettings struct {
	AngularDamping   float64 `json:"AngularDamping"`
	LinearDamping    float64 `json:"LinearDamping"`
	Density          float64 `json:"Density"`
	ReturnProportion float64 `json:"ReturnProportion"` // proportion of the distance to spawn pose closed per tick before the match starts
	ReturnMinSpeed   float64 `json:"ReturnMinSpeed"`
	ReturnTurnRate   float64 `json:"ReturnTurnRate"` // revolutions per tick
}

// MatchmakingSettings control how the host fills and closes matches
type MatchmakingSettings struct {
	MaxPlayers         int     `json:"MaxPlayers"`
	BotName            string  `json:"BotName"`
	JoinPeriodTicks    int     `json:"JoinPeriodTicks"`  // ticks after the first spell before the match closes
	MaxIdleTicks       int     `json:"MaxIdleTicks"`     // a game with no input for this long stops ticking
	MaxHistoryLength   int     `json:"MaxHistoryLength"` // a game closes once its history reaches this length
	TeamGameChance     float64 `json:"TeamGameChance"`   // probability a closable match is played in teams
	TeamGameMinPlayers int     `json:"TeamGameMinPlayers"`
}

// Layout describes a map
type Layout struct {
	Obstacles         []ObstacleLayout `json:"obstacles"`
	NumPoints         int              `json:"numPoints,omitempty"` // zero means a circular map
	AngleOffsetInRevs float64          `json:"angleOffsetInRevs,omitempty"`
	RadiusMultiplier  float64          `json:"radiusMultiplier,omitempty"` // zero means derived from numPoints
}

// ObstacleLayout places a ring of identical obstacles
type ObstacleLayout struct {
	Type                         string  `json:"type,omitempty"`
	Health                       float64 `json:"health,omitempty"`
	NumObstacles                 int     `json:"numObstacles"`
	LayoutRadius                 float64 `json:"layoutRadius"`
	LayoutAngleOffsetInRevs      float64 `json:"layoutAngleOffsetInRevs,omitempty"`
	Pattern                      []int   `json:"pattern,omitempty"` // zero entries are skipped, repeating
	NumPoints                    int     `json:"numPoints,omitempty"`
	Extent                       float64 `json:"extent"`
	OrientationAngleOffsetInRevs float64 `json:"orientationAngleOffsetInRevs,omitempty"`
	AngularWidthInRevs           float64 `json:"angularWidthInRevs,omitempty"`
}

// ObstacleTemplate describes how one type of obstacle behaves
type ObstacleTemplate struct {
	Static         bool              `json:"static,omitempty"`
	AngularDamping float64           `json:"angularDamping,omitempty"`
	LinearDamping  float64           `json:"linearDamping,omitempty"`
	Density        float64           `json:"density,omitempty"`
	Sensor         bool              `json:"sensor,omitempty"`
	CollideWith    *uint16           `json:"collideWith,omitempty"`
	ExpireOn       uint16            `json:"expireOn,omitempty"` // categories that destroy this obstacle on touch once the match started
	Undamageable   bool              `json:"undamageable,omitempty"`
	CircularHitbox bool              `json:"circularHitbox,omitempty"`
	Health         float64           `json:"health"`
	HitInterval    int               `json:"hitInterval,omitempty"`
	Damage         float64           `json:"damage,omitempty"`
	Buffs          []BuffTemplate    `json:"buffs,omitempty"`
	Detonate       *DetonateTemplate `json:"detonate,omitempty"`
	Mirror         bool              `json:"mirror,omitempty"`
	Impulse        float64           `json:"impulse,omitempty"`
	Conveyor       *Conveyor         `json:"conveyor,omitempty"`
}

// Conveyor shifts heroes touching an obstacle
type Conveyor struct {
	RadialSpeed  float64 `json:"radialSpeed,omitempty"`
	LateralSpeed float64 `json:"lateralSpeed,omitempty"`
}

// ChoiceSettings define which spells may be bound to which key
type ChoiceSettings struct {
	Keys    []KeyConfig           `json:"Keys"`
	Options map[string][][]string `json:"Options"`
	Special map[string]string     `json:"Special"`
}

// KeyConfig is one bindable button
type KeyConfig struct {
	Btn string `json:"btn"`
}

// KeyBindings maps a button to a spell id
type KeyBindings map[string]string

// DamagePacketTemplate is the damage part of a projectile, detonation or burn
type DamagePacketTemplate struct {
	Damage      float64 `json:"damage"`
	LifeSteal   float64 `json:"lifeSteal,omitempty"`
	IsLava      bool    `json:"isLava,omitempty"`
	NoKnockback bool    `json:"noKnockback,omitempty"`
	NoHit       bool    `json:"noHit,omitempty"`
	MinHealth   float64 `json:"minHealth,omitempty"`
}

// PartialScaling interpolates a multiplier from InitialMultiplier to 1 over Ticks
type PartialScaling struct {
	InitialMultiplier float64 `json:"initialMultiplier"`
	Ticks             int     `json:"ticks"`
	Step              bool    `json:"step,omitempty"` // jump straight to 1 once Ticks have elapsed
}

// Multiplier returns the scaling after lifetime ticks. A nil scaling is always 1.
func (p *PartialScaling) Multiplier(lifetime int) float64 {
	if p == nil {
		return 1
	}
	proportion := 1.0
	if lifetime < p.Ticks {
		if p.Step {
			proportion = 0
		} else {
			proportion = float64(lifetime) / float64(p.Ticks)
		}
	}
	return p.InitialMultiplier + (1-p.InitialMultiplier)*proportion
}

// DetonateTemplate is an explosion
type DetonateTemplate struct {
	DamagePacketTemplate
	Against    *uint16        `json:"against,omitempty"` // alliances, default not friendly
	Radius     float64        `json:"radius"`
	MinImpulse float64        `json:"minImpulse,omitempty"`
	MaxImpulse float64        `json:"maxImpulse,omitempty"`
	Buffs      []BuffTemplate `json:"buffs,omitempty"`
}

// GravityTemplate pulls a struck hero towards the point of impact
type GravityTemplate struct {
	Ticks          int     `json:"ticks"`
	ImpulsePerTick float64 `json:"impulsePerTick"`
	Radius         float64 `json:"radius"`
	Power          float64 `json:"power"`
}

// BounceTemplate makes a projectile bounce between its owner and its target
type BounceTemplate struct {
	Cleanseable bool `json:"cleanseable,omitempty"`
}

// LinkTemplate tethers the owner to whatever the projectile hits
type LinkTemplate struct {
	LinkWith               uint16                  `json:"linkWith"`
	SelfFactor             *float64                `json:"selfFactor,omitempty"`
	TargetFactor           *float64                `json:"targetFactor,omitempty"`
	ImpulsePerTick         float64                 `json:"impulsePerTick"`
	SidewaysImpulsePerTick float64                 `json:"sidewaysImpulsePerTick,omitempty"`
	LinkTicks              int                     `json:"linkTicks"`
	MinDistance            float64                 `json:"minDistance"`
	MaxDistance            float64                 `json:"maxDistance"`
	RedirectDamage         *RedirectDamageTemplate `json:"redirectDamage,omitempty"`
	Channelling            bool                    `json:"channelling,omitempty"`
}

// RedirectDamageTemplate sends part of the damage taken by the link owner down the link
type RedirectDamageTemplate struct {
	SelfProportion     float64 `json:"selfProportion"`
	RedirectProportion float64 `json:"redirectProportion"`
	RedirectAfterTicks int     `json:"redirectAfterTicks,omitempty"`
}

// DestructibleTemplate lets detonations and sabers destroy a projectile
type DestructibleTemplate struct {
	Against *uint16 `json:"against,omitempty"`
}

// ProjectileTemplate describes a projectile
type ProjectileTemplate struct {
	DamagePacketTemplate

	PartialDamage          *PartialScaling `json:"partialDamage,omitempty"`
	PartialDetonateRadius  *PartialScaling `json:"partialDetonateRadius,omitempty"`
	PartialDetonateImpulse *PartialScaling `json:"partialDetonateImpulse,omitempty"`
	PartialBuffDuration    *PartialScaling `json:"partialBuffDuration,omitempty"`

	Density     float64  `json:"density"`
	Radius      float64  `json:"radius"`
	Speed       float64  `json:"speed"`
	FixedSpeed  *bool    `json:"fixedSpeed,omitempty"`
	Restitution *float64 `json:"restitution,omitempty"`
	Attractable *bool    `json:"attractable,omitempty"`
	Linkable    bool     `json:"linkable,omitempty"`
	HitInterval int      `json:"hitInterval,omitempty"` // zero means a target is hit at most once

	Bounce       *BounceTemplate       `json:"bounce,omitempty"`
	Link         *LinkTemplate         `json:"link,omitempty"`
	Horcrux      bool                  `json:"horcrux,omitempty"`
	Detonate     *DetonateTemplate     `json:"detonate,omitempty"`
	Gravity      *GravityTemplate      `json:"gravity,omitempty"`
	SwapWith     uint16                `json:"swapWith,omitempty"`
	Buffs        []BuffTemplate        `json:"buffs,omitempty"`
	Behaviours   []BehaviourTemplate   `json:"behaviours,omitempty"`
	Destructible *DestructibleTemplate `json:"destructible,omitempty"`

	MinTicks               int     `json:"minTicks,omitempty"`
	MaxTicks               int     `json:"maxTicks"`
	ExpireAfterCursorTicks *int    `json:"expireAfterCursorTicks,omitempty"`
	Categories             *uint16 `json:"categories,omitempty"`
	CollideWith            *uint16 `json:"collideWith,omitempty"`
	ExpireOn               *uint16 `json:"expireOn,omitempty"`
	ExpireAgainstHeroes    *uint16 `json:"expireAgainstHeroes,omitempty"`
	ExpireAgainstObjects   *uint16 `json:"expireAgainstObjects,omitempty"`
	ExpireOnMirror         bool    `json:"expireOnMirror,omitempty"`
	Sensor                 bool    `json:"sensor,omitempty"`
	Sense                  uint16  `json:"sense,omitempty"` // extra sensor fixture colliding with these categories
	SelfPassthrough        bool    `json:"selfPassthrough,omitempty"`
	ShieldTakesOwnership   *bool   `json:"shieldTakesOwnership,omitempty"`
	Strafe                 bool    `json:"strafe,omitempty"` // moves along with its owner
}

// Trigger delays a behaviour
type Trigger struct {
	AfterTicks int  `json:"afterTicks,omitempty"`
	AtCursor   bool `json:"atCursor,omitempty"`
	MinTicks   int  `json:"minTicks,omitempty"`
}

// BehaviourTemplate describes a behaviour attached to a projectile. Type
// selects which of the remaining fields apply.
type BehaviourTemplate struct {
	Type    string   `json:"type"`
	Trigger *Trigger `json:"trigger,omitempty"`

	// homing
	TargetType           string   `json:"targetType,omitempty"`
	RevolutionsPerSecond *float64 `json:"revolutionsPerSecond,omitempty"`
	MaxTurnProportion    *float64 `json:"maxTurnProportion,omitempty"`
	ExpireWithinRevs     *float64 `json:"expireWithinRevs,omitempty"`
	MinDistanceToTarget  float64  `json:"minDistanceToTarget,omitempty"`
	NewSpeed             *float64 `json:"newSpeed,omitempty"`
	MaxTicks             int      `json:"maxTicks,omitempty"`
	Redirect             bool     `json:"redirect,omitempty"`

	// accelerate, attract
	MaxSpeed              float64 `json:"maxSpeed,omitempty"`
	AccelerationPerSecond float64 `json:"accelerationPerSecond,omitempty"`

	// attract, aura
	Against             *uint16        `json:"against,omitempty"`
	CollideLike         uint16         `json:"collideLike,omitempty"`
	Categories          *uint16        `json:"categories,omitempty"`
	NotCategories       uint16         `json:"notCategories,omitempty"`
	Radius              float64        `json:"radius,omitempty"`
	AccelerationPerTick float64        `json:"accelerationPerTick,omitempty"`
	TickInterval        int            `json:"tickInterval,omitempty"`
	Buffs               []BuffTemplate `json:"buffs,omitempty"`

	// updateCollideWith
	CollideWith uint16 `json:"collideWith,omitempty"`

	// expireOnOwnerRetreat
	MaxDistance float64 `json:"maxDistance,omitempty"`
}

// BuffTemplate describes a buff. Type selects which of the remaining fields apply.
type BuffTemplate struct {
	Type        string  `json:"type"`
	Stack       string  `json:"stack,omitempty"` // burns with the same stack id from the same hero merge
	MaxStacks   int     `json:"maxStacks,omitempty"`
	Owner       bool    `json:"owner,omitempty"` // applied to the caster instead of the target
	CollideWith *uint16 `json:"collideWith,omitempty"`
	Against     *uint16 `json:"against,omitempty"`
	MaxTicks    int     `json:"maxTicks"`
	Channelling bool    `json:"channelling,omitempty"`
	LinkOwner   bool    `json:"linkOwner,omitempty"`
	LinkVictim  bool    `json:"linkVictim,omitempty"`
	CancelOnHit bool    `json:"cancelOnHit,omitempty"`

	MovementProportion      float64               `json:"movementProportion,omitempty"`
	LinearDampingMultiplier float64               `json:"linearDampingMultiplier,omitempty"`
	DamageProportion        float64               `json:"damageProportion,omitempty"`
	DamageMultiplier        *float64              `json:"damageMultiplier,omitempty"`
	LifeSteal               float64               `json:"lifeSteal,omitempty"`
	MinHealth               float64               `json:"minHealth,omitempty"`
	SpellID                 string                `json:"spellId,omitempty"`
	MinCooldown             *int                  `json:"minCooldown,omitempty"`
	MaxCooldown             *int                  `json:"maxCooldown,omitempty"`
	HitInterval             int                   `json:"hitInterval,omitempty"`
	Packet                  *DamagePacketTemplate `json:"packet,omitempty"`
	Proportion              float64               `json:"proportion,omitempty"`
	TargetOnly              bool                  `json:"targetOnly,omitempty"`
}

// ReleaseParams let a spell react to the button being released
type ReleaseParams struct {
	MaxChargeTicks int  `json:"maxChargeTicks,omitempty"`
	Interrupt      bool `json:"interrupt,omitempty"`
}

// StackLimit is how many times a stacking burn may add its damage. Defaults to 1.
func (b *BuffTemplate) StackLimit() int {
	if b.MaxStacks > 0 {
		return b.MaxStacks
	}
	return 1
}

// StrikeCancelParams cancel a charging spell when the caster is struck
type StrikeCancelParams struct {
	CooldownTicks      *int `json:"cooldownTicks,omitempty"`
	MaxChannelingTicks int  `json:"maxChannelingTicks,omitempty"`
}

// Spell describes one castable action. Action selects which of the
// action-specific fields apply.
type Spell struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Action      string `json:"action"`

	Untargeted                         bool                `json:"untargeted,omitempty"`
	MaxAngleDiffInRevs                 *float64            `json:"maxAngleDiffInRevs,omitempty"`
	Unlink                             bool                `json:"unlink,omitempty"`
	Delink                             bool                `json:"delink,omitempty"`
	Debuff                             bool                `json:"debuff,omitempty"`
	Throttle                           bool                `json:"throttle,omitempty"`
	ChargeTicks                        int                 `json:"chargeTicks,omitempty"`
	Release                            *ReleaseParams      `json:"release,omitempty"`
	MovementProportionWhileCharging    float64             `json:"movementProportionWhileCharging,omitempty"`
	MovementProportionWhileChannelling float64             `json:"movementProportionWhileChannelling,omitempty"`
	RevsPerTickWhileCharging           float64             `json:"revsPerTickWhileCharging,omitempty"`
	RevsPerTickWhileChannelling        float64             `json:"revsPerTickWhileChannelling,omitempty"`
	Cooldown                           int                 `json:"cooldown"`
	InterruptibleAfterTicks            *int                `json:"interruptibleAfterTicks,omitempty"` // nil means never interruptible
	MovementCancel                     bool                `json:"movementCancel,omitempty"`
	StrikeCancel                       *StrikeCancelParams `json:"strikeCancel,omitempty"`
	Buffs                              []BuffTemplate      `json:"buffs,omitempty"`

	// move
	CancelChanneling bool `json:"cancelChanneling,omitempty"`

	// projectile, spray, charge, focus
	Projectile *ProjectileTemplate `json:"projectile,omitempty"`

	// spray, focus, buff
	MaxChannellingTicks int     `json:"maxChannellingTicks,omitempty"`
	IntervalTicks       int     `json:"intervalTicks,omitempty"`
	LengthTicks         int     `json:"lengthTicks,omitempty"`
	JitterRatio         float64 `json:"jitterRatio,omitempty"`

	// charge
	Retarget      bool            `json:"retarget,omitempty"`
	ChargeDamage  *PartialScaling `json:"chargeDamage,omitempty"`
	ChargeRadius  *PartialScaling `json:"chargeRadius,omitempty"`
	ChargeImpulse *PartialScaling `json:"chargeImpulse,omitempty"`

	// focus
	FocusDelaysCooldown bool                `json:"focusDelaysCooldown,omitempty"`
	ReleaseBehaviours   []BehaviourTemplate `json:"releaseBehaviours,omitempty"`

	// scourge
	SelfDamage    float64           `json:"selfDamage,omitempty"`
	MinSelfHealth float64           `json:"minSelfHealth,omitempty"`
	Detonate      *DetonateTemplate `json:"detonate,omitempty"`

	// shield, wall, saber
	MaxTicks                 int       `json:"maxTicks,omitempty"`
	TakesOwnership           bool      `json:"takesOwnership,omitempty"`
	DamageMultiplier         float64   `json:"damageMultiplier,omitempty"`
	BlocksTeleporters        bool      `json:"blocksTeleporters,omitempty"`
	Radius                   float64   `json:"radius,omitempty"`
	MaxRange                 float64   `json:"maxRange,omitempty"`
	Length                   float64   `json:"length,omitempty"`
	Width                    float64   `json:"width,omitempty"`
	GrowthTicks              int       `json:"growthTicks,omitempty"`
	Density                  float64   `json:"density,omitempty"`
	LinearDamping            float64   `json:"linearDamping,omitempty"`
	AngularDamping           float64   `json:"angularDamping,omitempty"`
	Categories               *uint16   `json:"categories,omitempty"`
	CollideWith              *uint16   `json:"collideWith,omitempty"`
	SelfPassthrough          bool      `json:"selfPassthrough,omitempty"`
	ShiftMultiplier          float64   `json:"shiftMultiplier,omitempty"`
	SpeedMultiplier          float64   `json:"speedMultiplier,omitempty"`
	MaxSpeed                 float64   `json:"maxSpeed,omitempty"`
	MaxTurnRatePerTickInRevs float64   `json:"maxTurnRatePerTickInRevs,omitempty"`
	AngleOffsetsInRevs       []float64 `json:"angleOffsetsInRevs,omitempty"`
	Channelling              bool      `json:"channelling,omitempty"`

	// teleport, thrust
	Range            float64               `json:"range,omitempty"`
	Speed            float64               `json:"speed,omitempty"`
	RadiusMultiplier float64               `json:"radiusMultiplier,omitempty"`
	BounceTicks      int                   `json:"bounceTicks,omitempty"`
	Nullifiable      bool                  `json:"nullifiable,omitempty"`
	DamageTemplate   *DamagePacketTemplate `json:"damageTemplate,omitempty"`
}

// IsUninterruptibleAtStart reports whether the spell cannot be interrupted while
// orientating, charging or at the start of channelling.
func (s *Spell) IsUninterruptibleAtStart() bool {
	return s.InterruptibleAfterTicks == nil || *s.InterruptibleAfterTicks > 0
}

// Or returns the value p points to, or def when p is nil
func Or[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// Ptr returns a pointer to v, for filling optional template fields
func Ptr[T any](v T) *T {
	return &v
}
