package engine

import (
	"fmt"
	"math"

	"arena-server/internal/settings"
	"arena-server/internal/vector"
)

// Behaviour is a removable per-tick rule. Behaviours refer to objects by id
// only; a behaviour whose object has been reaped is pruned.
type Behaviour interface {
	Kind() string
	// Refs returns the ids of the objects the behaviour cannot outlive
	Refs() []string
}

type behaviourHandler func(w *World, b Behaviour) bool

const (
	passForces = iota
	passDetonate
	passExpiry
	numPasses
)

func handle[B Behaviour](fn func(*World, B) bool) behaviourHandler {
	return func(w *World, b Behaviour) bool {
		return fn(w, b.(B))
	}
}

// behaviourPasses is the dispatch table of each pass of a tick
func behaviourPasses() [numPasses]map[string]behaviourHandler {
	return [numPasses]map[string]behaviourHandler{
		passForces: {
			kindDelay:             handle((*World).delayBehaviour),
			kindHoming:            handle((*World).homing),
			kindAccelerate:        handle((*World).accelerate),
			kindLinkForce:         handle((*World).linkForce),
			kindGravityForce:      handle((*World).gravityForce),
			kindAttract:           handle((*World).attract),
			kindAura:              handle((*World).aura),
			kindGlide:             handle((*World).glide),
			kindReflectFollow:     handle((*World).reflectFollow),
			kindSaberSwing:        handle((*World).saberSwing),
			kindThrustBounce:      handle((*World).thrustBounce),
			kindUpdateCollideWith: handle((*World).updateCollideWith),
			kindClearHits:         handle((*World).clearHits),
			kindResetMass:         handle((*World).resetMass),
		},
		passDetonate: {
			kindDetonate: handle((*World).detonate),
		},
		passExpiry: {
			kindFixate:                 handle((*World).fixate),
			kindBurn:                   handle((*World).burn),
			kindRemovePassthrough:      handle((*World).removePassthrough),
			kindThrustDecay:            handle((*World).thrustDecay),
			kindExpireBuffs:            handle((*World).expireBuffs),
			kindExpireOnOwnerDeath:     handle((*World).expireOnOwnerDeath),
			kindExpireOnOwnerRetreat:   handle((*World).expireOnOwnerRetreat),
			kindExpireOnChannellingEnd: handle((*World).expireOnChannellingEnd),
		},
	}
}

const (
	kindDelay                  = "delayBehaviour"
	kindHoming                 = "homing"
	kindAccelerate             = "accelerate"
	kindAttract                = "attract"
	kindAura                   = "aura"
	kindUpdateCollideWith      = "updateCollideWith"
	kindClearHits              = "clearHits"
	kindExpireOnOwnerDeath     = "expireOnOwnerDeath"
	kindExpireOnOwnerRetreat   = "expireOnOwnerRetreat"
	kindExpireOnChannellingEnd = "expireOnChannellingEnd"
	kindDetonate               = "detonate"
	kindRemovePassthrough      = "removePassthrough"
	kindFixate                 = "fixate"
	kindResetMass              = "resetMass"
	kindExpireBuffs            = "expireBuffs"
	kindBurn                   = "burn"
	kindGlide                  = "glide"
	kindLinkForce              = "linkForce"
	kindGravityForce           = "gravityForce"
	kindReflectFollow          = "reflectFollow"
	kindSaberSwing             = "saberSwing"
	kindThrustBounce           = "thrustBounce"
	kindThrustDecay            = "thrustDecay"
)

// DelayBehaviour starts Delayed once AfterTick is reached
type DelayBehaviour struct {
	AfterTick int
	Delayed   Behaviour
}

type HomingBehaviour struct {
	ProjectileID        string
	TargetType          string
	TurnRate            float64 // radians per tick
	MaxTurnProportion   float64
	MinDistanceToTarget float64
	NewSpeed            *float64 // applied once, then cleared
	ExpireWithinAngle   *float64
	ExpireTick          int
}

type AccelerateBehaviour struct {
	ProjectileID        string
	AccelerationPerTick float64
	MaxSpeed            float64
}

type AttractBehaviour struct {
	ObjectID            string
	Owner               string
	Against             uint16
	CollideLike         uint16
	Categories          uint16
	NotCategories       uint16
	Radius              float64
	AccelerationPerTick float64
	MaxSpeed            float64
}

type AuraBehaviour struct {
	ObjectID     string
	Owner        string
	Radius       float64
	TickInterval int
	Buffs        []settings.BuffTemplate
}

type UpdateCollideWithBehaviour struct {
	ProjectileID string
	CollideWith  uint16
}

type ClearHitsBehaviour struct{ ProjectileID string }

type ExpireOnOwnerDeathBehaviour struct{ ProjectileID string }

type ExpireOnOwnerRetreatBehaviour struct {
	ProjectileID string
	MaxDistance  float64
	AnchorPoint  vector.Vec2
}

type ExpireOnChannellingEndBehaviour struct{ ProjectileID string }

// DetonateBehaviour explodes a projectile on the tick it expires
type DetonateBehaviour struct{ ProjectileID string }

// RemovePassthroughBehaviour lets a projectile hit its owner once it has cleared the owner's body
type RemovePassthroughBehaviour struct{ ProjectileID string }

// FixateBehaviour pulls an object back to its spawn pose
type FixateBehaviour struct {
	ObjID            string
	UntilGameStarted bool
	Pos              vector.Vec2
	Angle            float64
	Proportion       float64
	Speed            float64
	TurnRate         float64
}

// ResetMassBehaviour makes an object movable at Tick
type ResetMassBehaviour struct {
	ObjID string
	Tick  int
}

type ExpireBuffsBehaviour struct{ HeroID string }
type BurnBehaviour struct{ HeroID string }
type GlideBehaviour struct{ HeroID string }
type LinkForceBehaviour struct{ HeroID string }
type GravityForceBehaviour struct{ HeroID string }
type ReflectFollowBehaviour struct{ ShieldID string }
type SaberSwingBehaviour struct{ ShieldID string }

type ThrustBounceBehaviour struct {
	HeroID      string
	BounceTicks int
}

type ThrustDecayBehaviour struct{ HeroID string }

func (b *DelayBehaviour) Kind() string                  { return kindDelay }
func (b *HomingBehaviour) Kind() string                 { return kindHoming }
func (b *AccelerateBehaviour) Kind() string             { return kindAccelerate }
func (b *AttractBehaviour) Kind() string                { return kindAttract }
func (b *AuraBehaviour) Kind() string                   { return kindAura }
func (b *UpdateCollideWithBehaviour) Kind() string      { return kindUpdateCollideWith }
func (b *ClearHitsBehaviour) Kind() string              { return kindClearHits }
func (b *ExpireOnOwnerDeathBehaviour) Kind() string     { return kindExpireOnOwnerDeath }
func (b *ExpireOnOwnerRetreatBehaviour) Kind() string   { return kindExpireOnOwnerRetreat }
func (b *ExpireOnChannellingEndBehaviour) Kind() string { return kindExpireOnChannellingEnd }
func (b *DetonateBehaviour) Kind() string               { return kindDetonate }
func (b *RemovePassthroughBehaviour) Kind() string      { return kindRemovePassthrough }
func (b *FixateBehaviour) Kind() string                 { return kindFixate }
func (b *ResetMassBehaviour) Kind() string              { return kindResetMass }
func (b *ExpireBuffsBehaviour) Kind() string            { return kindExpireBuffs }
func (b *BurnBehaviour) Kind() string                   { return kindBurn }
func (b *GlideBehaviour) Kind() string                  { return kindGlide }
func (b *LinkForceBehaviour) Kind() string              { return kindLinkForce }
func (b *GravityForceBehaviour) Kind() string           { return kindGravityForce }
func (b *ReflectFollowBehaviour) Kind() string          { return kindReflectFollow }
func (b *SaberSwingBehaviour) Kind() string             { return kindSaberSwing }
func (b *ThrustBounceBehaviour) Kind() string           { return kindThrustBounce }
func (b *ThrustDecayBehaviour) Kind() string            { return kindThrustDecay }

func (b *DelayBehaviour) Refs() []string                  { return b.Delayed.Refs() }
func (b *HomingBehaviour) Refs() []string                 { return []string{b.ProjectileID} }
func (b *AccelerateBehaviour) Refs() []string             { return []string{b.ProjectileID} }
func (b *AttractBehaviour) Refs() []string                { return []string{b.ObjectID} }
func (b *AuraBehaviour) Refs() []string                   { return []string{b.ObjectID} }
func (b *UpdateCollideWithBehaviour) Refs() []string      { return []string{b.ProjectileID} }
func (b *ClearHitsBehaviour) Refs() []string              { return []string{b.ProjectileID} }
func (b *ExpireOnOwnerDeathBehaviour) Refs() []string     { return []string{b.ProjectileID} }
func (b *ExpireOnOwnerRetreatBehaviour) Refs() []string   { return []string{b.ProjectileID} }
func (b *ExpireOnChannellingEndBehaviour) Refs() []string { return []string{b.ProjectileID} }
func (b *DetonateBehaviour) Refs() []string               { return []string{b.ProjectileID} }
func (b *RemovePassthroughBehaviour) Refs() []string      { return []string{b.ProjectileID} }
func (b *FixateBehaviour) Refs() []string                 { return []string{b.ObjID} }
func (b *ResetMassBehaviour) Refs() []string              { return []string{b.ObjID} }
func (b *ExpireBuffsBehaviour) Refs() []string            { return []string{b.HeroID} }
func (b *BurnBehaviour) Refs() []string                   { return []string{b.HeroID} }
func (b *GlideBehaviour) Refs() []string                  { return []string{b.HeroID} }
func (b *LinkForceBehaviour) Refs() []string              { return []string{b.HeroID} }
func (b *GravityForceBehaviour) Refs() []string           { return []string{b.HeroID} }
func (b *ReflectFollowBehaviour) Refs() []string          { return []string{b.ShieldID} }
func (b *SaberSwingBehaviour) Refs() []string             { return []string{b.ShieldID} }
func (b *ThrustBounceBehaviour) Refs() []string           { return []string{b.HeroID} }
func (b *ThrustDecayBehaviour) Refs() []string            { return []string{b.HeroID} }

// pruneBehaviours drops behaviours whose objects no longer exist
func (w *World) pruneBehaviours() {
	kept := w.behaviours[:0]
	for _, b := range w.behaviours {
		if w.allExist(b.Refs()) {
			kept = append(kept, b)
		}
	}
	for i := len(kept); i < len(w.behaviours); i++ {
		w.behaviours[i] = nil
	}
	w.behaviours = kept
}

func (w *World) allExist(ids []string) bool {
	for _, id := range ids {
		if _, ok := w.objects[id]; !ok {
			return false
		}
	}
	return true
}

func ticksTo(distance, speed float64) int {
	if speed <= 0 {
		return NeverTicks
	}
	return int(math.Floor(TicksPerSecond * distance / speed))
}

// instantiateProjectileBehaviours attaches behaviour templates to a projectile,
// wrapping triggered ones in a DelayBehaviour
func (w *World) instantiateProjectileBehaviours(templates []settings.BehaviourTemplate, projectile *Projectile) {
	for _, template := range templates {
		behaviour := w.instantiateBehaviour(template, projectile)
		if behaviour == nil {
			continue
		}

		trigger := template.Trigger
		switch {
		case trigger == nil:
			w.pushBehaviour(behaviour)
		case trigger.AtCursor:
			distanceToCursor := vector.Distance(projectile.Target, projectile.Position())
			speed := projectile.body.LinearVelocity().Len()
			waitTicks := ticksTo(distanceToCursor, speed)
			if trigger.MinTicks > 0 {
				waitTicks = max(waitTicks, trigger.MinTicks)
			}
			if trigger.AfterTicks > 0 {
				waitTicks = min(waitTicks, trigger.AfterTicks)
			}
			w.pushBehaviour(&DelayBehaviour{AfterTick: w.tick + waitTicks, Delayed: behaviour})
		case trigger.AfterTicks > 0:
			w.pushBehaviour(&DelayBehaviour{AfterTick: w.tick + trigger.AfterTicks, Delayed: behaviour})
		default:
			// settings validation rejects these before a world exists
			panic(fmt.Sprintf("%v: %s", settings.ErrUnknownTrigger, template.Type))
		}
	}
}

func (w *World) instantiateBehaviour(template settings.BehaviourTemplate, projectile *Projectile) Behaviour {
	switch template.Type {
	case settings.BehaviourHoming:
		maxTicks := NeverTicks
		if template.Redirect {
			maxTicks = 0
		} else if template.MaxTicks > 0 {
			maxTicks = template.MaxTicks
		}
		turnRate := math.Inf(1)
		if template.RevolutionsPerSecond != nil {
			turnRate = *template.RevolutionsPerSecond * vector.Tau
		}
		targetType := template.TargetType
		if targetType == "" {
			targetType = settings.HomingEnemy
		}
		var expireWithinAngle *float64
		if template.ExpireWithinRevs != nil {
			expireWithinAngle = settings.Ptr(*template.ExpireWithinRevs * vector.Tau)
		}
		var newSpeed *float64
		if template.NewSpeed != nil {
			newSpeed = settings.Ptr(*template.NewSpeed)
		}
		return &HomingBehaviour{
			ProjectileID:        projectile.id,
			TargetType:          targetType,
			TurnRate:            turnRate,
			MaxTurnProportion:   settings.Or(template.MaxTurnProportion, 1),
			MinDistanceToTarget: template.MinDistanceToTarget,
			NewSpeed:            newSpeed,
			ExpireWithinAngle:   expireWithinAngle,
			ExpireTick:          w.tick + maxTicks,
		}
	case settings.BehaviourAccelerate:
		return &AccelerateBehaviour{
			ProjectileID:        projectile.id,
			AccelerationPerTick: template.AccelerationPerSecond / TicksPerSecond,
			MaxSpeed:            template.MaxSpeed,
		}
	case settings.BehaviourAttract:
		return &AttractBehaviour{
			ObjectID:            projectile.id,
			Owner:               projectile.Owner,
			Against:             settings.Or(template.Against, settings.AllianceAll),
			CollideLike:         template.CollideLike,
			Categories:          settings.Or(template.Categories, settings.CategoryAll),
			NotCategories:       template.NotCategories,
			Radius:              template.Radius,
			AccelerationPerTick: template.AccelerationPerTick,
			MaxSpeed:            template.MaxSpeed,
		}
	case settings.BehaviourAura:
		return &AuraBehaviour{
			ObjectID:     projectile.id,
			Owner:        projectile.Owner,
			Radius:       template.Radius,
			TickInterval: template.TickInterval,
			Buffs:        template.Buffs,
		}
	case settings.BehaviourUpdateCollideWith:
		return &UpdateCollideWithBehaviour{ProjectileID: projectile.id, CollideWith: template.CollideWith}
	case settings.BehaviourClearHits:
		return &ClearHitsBehaviour{ProjectileID: projectile.id}
	case settings.BehaviourExpireOnOwnerDeath:
		return &ExpireOnOwnerDeathBehaviour{ProjectileID: projectile.id}
	case settings.BehaviourExpireOnOwnerRetreat:
		anchor := center
		if owner, ok := w.Hero(projectile.Owner); ok {
			anchor = owner.Position()
		}
		return &ExpireOnOwnerRetreatBehaviour{ProjectileID: projectile.id, MaxDistance: template.MaxDistance, AnchorPoint: anchor}
	case settings.BehaviourExpireOnChannellingEnd:
		return &ExpireOnChannellingEndBehaviour{ProjectileID: projectile.id}
	}
	return nil
}

func (w *World) delayBehaviour(b *DelayBehaviour) bool {
	if w.tick >= b.AfterTick {
		w.pushBehaviour(b.Delayed)
		return false
	}
	return true
}

func (w *World) resetMass(b *ResetMassBehaviour) bool {
	if w.tick < b.Tick {
		return true
	}
	if obj, ok := w.objects[b.ObjID]; ok {
		obj.Body().ResetMassData()
	}
	return false
}

func (w *World) fixate(b *FixateBehaviour) bool {
	if b.UntilGameStarted && w.tick >= w.startTick {
		return false
	}
	obj, ok := w.objects[b.ObjID]
	if !ok {
		return false
	}
	body := obj.Body()

	pos := body.Position()
	diff := b.Pos.Sub(pos)
	step := diff.Truncate(math.Max(b.Speed/TicksPerSecond, b.Proportion*diff.Len()))
	body.SetPosition(pos.Add(step))

	angle := body.Angle()
	angleDiff := vector.AngleDelta(angle, b.Angle)
	maxStep := math.Max(b.Proportion*math.Abs(angleDiff), b.TurnRate)
	body.SetAngle(vector.TurnTowards(angle, b.Angle, maxStep))
	return true
}

func (w *World) removePassthrough(b *RemovePassthroughBehaviour) bool {
	projectile, ok := w.objects[b.ProjectileID].(*Projectile)
	if !ok {
		return false
	}

	hero, ok := w.Hero(projectile.Owner)
	if ok && !projectileClearedHero(projectile, hero) {
		return true
	}
	for _, fixture := range projectile.body.Fixtures() {
		filter := fixture.Filter()
		filter.Group = 0
		fixture.SetFilter(filter)
	}
	return false
}

func projectileClearedHero(projectile *Projectile, hero *Hero) bool {
	distance := vector.Distance(hero.Position(), projectile.Position())
	return distance > hero.Radius+projectile.Radius+numTicksCleared*hero.MoveSpeedPerSecond/TicksPerSecond+Pixel
}

func (w *World) updateCollideWith(b *UpdateCollideWithBehaviour) bool {
	projectile, ok := w.objects[b.ProjectileID].(*Projectile)
	if !ok {
		return false
	}
	projectile.CollideWith = b.CollideWith
	if fixtures := projectile.body.Fixtures(); len(fixtures) > 0 {
		filter := fixtures[0].Filter()
		filter.Mask = b.CollideWith
		fixtures[0].SetFilter(filter)
	}
	return false
}

func (w *World) clearHits(b *ClearHitsBehaviour) bool {
	if projectile, ok := w.objects[b.ProjectileID].(*Projectile); ok {
		clear(projectile.HitTicks)
	}
	return false
}

func (w *World) expireOnOwnerDeath(b *ExpireOnOwnerDeathBehaviour) bool {
	projectile, ok := w.objects[b.ProjectileID].(*Projectile)
	if !ok {
		return false
	}
	if _, ok := w.Hero(projectile.Owner); !ok {
		projectile.ExpireTick = w.tick
		return false
	}
	return true
}

func (w *World) expireOnOwnerRetreat(b *ExpireOnOwnerRetreatBehaviour) bool {
	projectile, ok := w.objects[b.ProjectileID].(*Projectile)
	if !ok {
		return false
	}
	hero, ok := w.Hero(projectile.Owner)
	if !ok || vector.Distance(hero.Position(), projectile.Position()) > b.MaxDistance {
		projectile.ExpireTick = w.tick
		return false
	}
	return true
}

func (w *World) expireOnChannellingEnd(b *ExpireOnChannellingEndBehaviour) bool {
	projectile, ok := w.objects[b.ProjectileID].(*Projectile)
	if !ok {
		return false
	}
	hero, ok := w.Hero(projectile.Owner)
	if !ok || !hero.isCasting(projectile.Type) {
		projectile.ExpireTick = w.tick
		return false
	}
	return true
}

func (w *World) detonate(b *DetonateBehaviour) bool {
	projectile, ok := w.objects[b.ProjectileID].(*Projectile)
	if !ok || projectile.Detonate == nil {
		return false
	}
	if w.tick == projectile.ExpireTick {
		w.detonateProjectile(projectile)
		return false
	}
	return true
}

// isCasting reports whether the hero is part way through the given spell
func (h *Hero) isCasting(spellID string) bool {
	return h.Casting != nil && h.Casting.Action.Type == spellID
}
