package engine

import "arena-server/internal/vector"

// Event is a transient visual cue raised during a tick. Events carry no
// simulation state and are only forwarded to renderers.
type Event interface {
	EventTick() int
}

type PushEvent struct {
	Tick      int
	Owner     string
	ObjectID  string
	Direction vector.Vec2
}

type TeleportEvent struct {
	Tick    int
	HeroID  string
	FromPos vector.Vec2
	ToPos   vector.Vec2
}

type DetonateEvent struct {
	Tick     int
	SourceID string
	Pos      vector.Vec2
	Radius   float64
}

type VanishEvent struct {
	Tick   int
	HeroID string
	Pos    vector.Vec2
	Appear bool
}

type CooldownEvent struct {
	Tick   int
	HeroID string
}

type LifeStealEvent struct {
	Tick  int
	Owner string
}

// DestroyEvent is raised when an object leaves the world
type DestroyEvent struct {
	Tick     int
	ObjectID string
}

func (e *PushEvent) EventTick() int      { return e.Tick }
func (e *TeleportEvent) EventTick() int  { return e.Tick }
func (e *DetonateEvent) EventTick() int  { return e.Tick }
func (e *VanishEvent) EventTick() int    { return e.Tick }
func (e *CooldownEvent) EventTick() int  { return e.Tick }
func (e *LifeStealEvent) EventTick() int { return e.Tick }
func (e *DestroyEvent) EventTick() int   { return e.Tick }

// Notification is a match-level announcement for players: joins, kills, wins
type Notification interface {
	notification()
}

type JoinNotification struct{ Player Player }
type LeaveNotification struct{ Player Player }
type BotNotification struct{ Player Player }

// KillNotification reports a death. Killer is nil when the hero died to the environment.
type KillNotification struct {
	Killed Player
	Killer *Player
}

type WinNotification struct {
	Winners          []Player
	MostDamage       Player
	MostDamageAmount float64
	MostKills        Player
	MostKillsCount   int
}

type ClosingNotification struct {
	TicksUntilClose int
	TeamSizes       []int
}

type TeamsNotification struct {
	TeamSizes []int
}

// TextNotification is a chat line from a player
type TextNotification struct {
	HeroID string
	Text   string
}

func (*JoinNotification) notification()    {}
func (*LeaveNotification) notification()   {}
func (*BotNotification) notification()     {}
func (*KillNotification) notification()    {}
func (*WinNotification) notification()     {}
func (*ClosingNotification) notification() {}
func (*TeamsNotification) notification()   {}
func (*TextNotification) notification()    {}
