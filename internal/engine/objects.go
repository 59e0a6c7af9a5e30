package engine

import (
	"arena-server/internal/physics"
	"arena-server/internal/settings"
	"arena-server/internal/vector"
)

// Object is anything in the entity table: a Hero, Projectile, Obstacle or Shield
type Object interface {
	ID() string
	Body() *physics.Body
	Categories() uint16
	CreateTick() int
}

type object struct {
	id         string
	body       *physics.Body
	categories uint16
	createTick int
}

func (o *object) ID() string          { return o.id }
func (o *object) Body() *physics.Body { return o.body }
func (o *object) Categories() uint16  { return o.categories }
func (o *object) CreateTick() int     { return o.createTick }

// Position returns the current position of the object's body
func (o *object) Position() vector.Vec2 { return o.body.Position() }

// CastStage is the progress of a Casting
type CastStage int

const (
	CastCooldown CastStage = iota
	CastThrottle
	CastOrientating
	CastCharging
	CastChannelling
	CastComplete
)

// Action is one queued input for a hero
type Action struct {
	Type    string // move, stop, retarget or a spell id
	Target  vector.Vec2
	Release bool
}

// Casting tracks a hero's progress through one action
type Casting struct {
	Action               *Action
	Stage                CastStage
	InitialAngle         float64
	ChargeStartTick      int
	ChannellingStartTick int
	ReleaseTick          int
	Proportion           float64 // charge progress from 0 to 1 while charging
	Uninterruptible      bool
	MovementProportion   float64
}

// DamageSource is one remembered hit used for mitigation
type DamageSource struct {
	HeroID     string
	Amount     float64
	ExpireTick int
}

// Link tethers a hero to another object
type Link struct {
	ID                     string
	SpellID                string
	TargetID               string
	RedirectDamage         *settings.RedirectDamageTemplate
	RedirectDamageTick     int
	Channelling            bool
	MinDistance            float64
	MaxDistance            float64
	SelfFactor             float64
	TargetFactor           float64
	ImpulsePerTick         float64
	SidewaysImpulsePerTick float64
	InitialTick            int
	ExpireTick             int
}

// Gravity pulls a hero towards a fixed location
type Gravity struct {
	SpellID     string
	InitialTick int
	ExpireTick  int
	Location    vector.Vec2
	Strength    float64
	Radius      float64
	Power       float64
}

// Thrust is a hero's dash in progress
type Thrust struct {
	DamageTemplate *settings.DamagePacketTemplate
	Velocity       vector.Vec2
	Ticks          int
	Nullified      bool
	AlreadyHit     map[string]bool
	InitialRadius  float64
	Fixture        *physics.Fixture
}

// Hero is a player-controlled combatant
type Hero struct {
	object

	FilterGroup        int
	Health             float64
	MaxHealth          float64
	Radius             float64
	LinearDamping      float64
	MoveSpeedPerSecond float64
	MaxSpeed           float64
	RevolutionsPerTick float64

	Casting           *Casting
	Cooldowns         map[string]int // spell id -> tick the spell is ready again
	ThrottleUntilTick int
	KeysToSpells      map[string]string
	SpellsToKeys      map[string]string
	SpellChangedTick  map[string]int

	ShieldIDs  map[string]bool
	StrafeIDs  map[string]bool
	HorcruxIDs map[string]bool
	FocusIDs   map[string]string

	Buffs     []*Buff
	Invisible *Buff

	DamageSources       map[string]float64
	DamageSourceHistory []DamageSource

	Target        *vector.Vec2
	MoveTo        *vector.Vec2
	ConveyorShift *vector.Vec2

	HitTick     int
	StrikeTick  int
	CleanseTick int
	ExitTick    int

	KillerHeroID    string
	KnockbackHeroID string

	Link    *Link
	Gravity *Gravity
	Thrust  *Thrust
}

// Buff returns the buff with the given id
func (h *Hero) Buff(id string) *Buff {
	for _, b := range h.Buffs {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// setBuff replaces the buff with the same id in place, or appends it
func (h *Hero) setBuff(buff *Buff) {
	for i, b := range h.Buffs {
		if b.ID == buff.ID {
			h.Buffs[i] = buff
			return
		}
	}
	h.Buffs = append(h.Buffs, buff)
}

// DetonateParams is an explosion with its damage already instantiated
type DetonateParams struct {
	Packet     DamagePacket
	Against    uint16
	Radius     float64
	MinImpulse float64
	MaxImpulse float64
	Buffs      []settings.BuffTemplate
}

// Projectile is a spell effect in flight
type Projectile struct {
	object

	Owner       string
	Type        string // spell id
	Radius      float64
	Speed       float64
	FixedSpeed  bool
	Strafe      bool
	Attractable bool
	Linkable    bool

	Target   vector.Vec2
	TargetID string

	HitTicks    map[string]int
	HitInterval int
	HitTick     int
	Hit         int

	DamageTemplate         settings.DamagePacketTemplate
	PartialDamage          *settings.PartialScaling
	PartialDetonateRadius  *settings.PartialScaling
	PartialDetonateImpulse *settings.PartialScaling
	PartialBuffDuration    *settings.PartialScaling

	Bounce               *settings.BounceTemplate
	Gravity              *settings.GravityTemplate
	Link                 *settings.LinkTemplate
	Detonate             *DetonateParams
	Buffs                []settings.BuffTemplate
	SwapWith             uint16
	ShieldTakesOwnership bool
	Destructible         bool
	DestructibleAgainst  uint16

	ExpireTick           int
	MinTicks             int
	MaxTicks             int
	CollideWith          uint16
	Sensor               bool
	ExpireOn             uint16
	ExpireAgainstHeroes  uint16
	ExpireAgainstObjects uint16
	ExpireOnMirror       bool
}

// Obstacle is a piece of map geometry
type Obstacle struct {
	object

	Type         string
	Static       bool
	Sensor       bool
	CollideWith  uint16
	ExpireOn     uint16
	Undamageable bool
	Shape        vector.Shape

	Health    float64
	MaxHealth float64

	Damage      float64
	Buffs       []settings.BuffTemplate
	Detonate    *settings.DetonateTemplate
	Mirror      bool
	Impulse     float64
	Conveyor    *settings.Conveyor
	HitInterval int
	HitTicks    map[string]int
	HitTick     int

	ActiveTick int
	LavaTick   int
	TouchTick  int
}

// ShieldKind distinguishes the shield variants
type ShieldKind string

const (
	ShieldReflect ShieldKind = "reflect"
	ShieldWall    ShieldKind = "wall"
	ShieldSaber   ShieldKind = "saber"
)

// Shield is a transient collider owned by a hero
type Shield struct {
	object

	Kind              ShieldKind
	Owner             string
	ExpireTick        int
	GrowthTicks       int
	DamageMultiplier  float64
	TakesOwnership    bool
	BlocksTeleporters bool
	Destroying        bool
	Channelling       bool
	HitTick           int

	Radius float64 // reflect
	Points []vector.Vec2
	Extent float64

	// saber
	SpellID         string
	AngleOffset     float64
	Length          float64
	Width           float64
	ShiftMultiplier float64
	SpeedMultiplier float64
	MaxSpeed        float64
	TurnRate        float64
}

// Player is the participant controlling a hero
type Player struct {
	HeroID      string
	UserID      string
	UserHash    string
	PartyHash   string
	Name        string
	IsBot       bool
	IsSharedBot bool
	IsMobile    bool
	Dead        bool
}

// Score is the running result of one hero
type Score struct {
	HeroID    string
	Kills     int
	Outlasts  int
	Damage    float64
	DeathTick int // zero while alive
	Rank      int
}

// Team is a group of allied heroes
type Team struct {
	ID      string
	HeroIDs []string
}

func extentOf(obj Object) float64 {
	switch o := obj.(type) {
	case *Hero:
		return o.Radius
	case *Projectile:
		return o.Radius
	case *Obstacle:
		return o.Shape.MinExtent()
	case *Shield:
		return o.Extent
	}
	return 0
}

func ownerOf(obj Object) string {
	switch o := obj.(type) {
	case *Projectile:
		return o.Owner
	case *Shield:
		return o.Owner
	}
	return ""
}

func blocksTeleporters(obj Object) bool {
	s, ok := obj.(*Shield)
	return ok && s.BlocksTeleporters
}
