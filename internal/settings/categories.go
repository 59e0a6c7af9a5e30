package settings

// Collision categories. A fixture collides with another when each one's mask
// contains the other's category.
const (
	CategoryNone       uint16 = 0
	CategoryHero       uint16 = 0x1
	CategoryProjectile uint16 = 0x2
	CategoryMassive    uint16 = 0x4
	CategoryObstacle   uint16 = 0x8
	CategoryShield     uint16 = 0x10
	CategoryBlocker    uint16 = 0x20
	CategoryAll        uint16 = 0xFFFF
)

// Alliances between the owners of two objects
const (
	AllianceSelf    uint16 = 0x1
	AllianceAlly    uint16 = 0x2
	AllianceEnemy   uint16 = 0x4
	AllianceNeutral uint16 = 0x8

	AllianceFriendly    = AllianceSelf | AllianceAlly
	AllianceNotFriendly = AllianceEnemy | AllianceNeutral
	AllianceNotEnemy    = AllianceSelf | AllianceAlly | AllianceNeutral
	AllianceAll         = AllianceSelf | AllianceAlly | AllianceEnemy | AllianceNeutral
)

// Spell actions
const (
	ActionMove       = "move"
	ActionStop       = "stop"
	ActionRetarget   = "retarget"
	ActionProjectile = "projectile"
	ActionSpray      = "spray"
	ActionCharge     = "charge"
	ActionFocus      = "focus"
	ActionBuff       = "buff"
	ActionScourge    = "scourge"
	ActionShield     = "shield"
	ActionWall       = "wall"
	ActionSaber      = "saber"
	ActionTeleport   = "teleport"
	ActionThrust     = "thrust"
)

// Behaviour template types
const (
	BehaviourHoming                 = "homing"
	BehaviourAccelerate             = "accelerate"
	BehaviourAttract                = "attract"
	BehaviourAura                   = "aura"
	BehaviourUpdateCollideWith      = "updateCollideWith"
	BehaviourClearHits              = "clearHits"
	BehaviourExpireOnOwnerDeath     = "expireOnOwnerDeath"
	BehaviourExpireOnOwnerRetreat   = "expireOnOwnerRetreat"
	BehaviourExpireOnChannellingEnd = "expireOnChannellingEnd"
)

// Homing targets
const (
	HomingSelf   = "self"
	HomingEnemy  = "enemy"
	HomingCursor = "cursor"
	HomingFollow = "follow"
)

// Buff types
const (
	BuffDebuff       = "debuff"
	BuffMovement     = "movement"
	BuffGlide        = "glide"
	BuffLavaImmunity = "lavaImmunity"
	BuffVanish       = "vanish"
	BuffLifeSteal    = "lifeSteal"
	BuffBurn         = "burn"
	BuffCooldown     = "cooldown"
	BuffArmor        = "armor"
)
