// Package engine is the authoritative simulation of one match: heroes,
// projectiles, obstacles and shields advanced in fixed ticks.
package engine

import (
	"errors"
	"fmt"

	"arena-server/internal/physics"
	"arena-server/internal/settings"
	"arena-server/internal/vector"
)

var (
	ErrGameFull    = errors.New("game is full")
	ErrUnknownGame = errors.New("unknown game")
)

// World is the state of one match. It is not safe for concurrent use; the
// host must serialise calls to Tick and the Queue methods.
type World struct {
	settings *settings.Settings

	tick      int
	startTick int // match start; MaxHistoryLength until the match closes
	seeded    bool
	seed      int64
	layoutID  string

	objects     map[string]Object
	objectOrder []string
	behaviours  []Behaviour
	physics     *physics.World

	occurrences []Occurrence
	actions     map[string]*Action
	snapshots   []Snapshot

	players         map[string]*Player
	playerOrder     []string
	activePlayers   map[string]bool
	teams           map[string]*Team
	teamOrder       []string
	teamAssignments map[string]string // hero id -> team id
	scores          map[string]*Score
	scoreOrder      []string
	winner          string
	winners         []string

	radius              float64
	mapRadiusMultiplier float64
	mapPoints           []vector.Vec2 // nil for a circular map

	nextPositionID int
	nextObjectID   int

	notifications []Notification
	events        []Event

	passes [numPasses]map[string]behaviourHandler
}

// NewWorld validates the settings and returns an empty match waiting for an
// environment seed and players.
func NewWorld(s *settings.Settings) (*World, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil settings", settings.ErrInvalid)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("new world: %w", err)
	}

	w := &World{
		settings:            s,
		startTick:           s.Matchmaking.MaxHistoryLength,
		objects:             make(map[string]Object),
		physics:             physics.NewWorld(),
		actions:             make(map[string]*Action),
		players:             make(map[string]*Player),
		activePlayers:       make(map[string]bool),
		teams:               make(map[string]*Team),
		teamAssignments:     make(map[string]string),
		scores:              make(map[string]*Score),
		radius:              s.World.InitialRadius,
		mapRadiusMultiplier: 1,
	}
	w.passes = behaviourPasses()
	return w, nil
}

// Settings returns the configuration the match was created with
func (w *World) Settings() *settings.Settings { return w.settings }

// CurrentTick returns the number of ticks simulated so far
func (w *World) CurrentTick() int { return w.tick }

// StartTick returns the tick the match starts at
func (w *World) StartTick() int { return w.startTick }

// IsGameStarting reports whether the match has been closed to new players
func (w *World) IsGameStarting() bool {
	return w.startTick < w.settings.Matchmaking.MaxHistoryLength
}

// Radius returns the current arena radius
func (w *World) Radius() float64 { return w.radius }

// Winner returns the hero credited with the win, or "" while the match is running
func (w *World) Winner() string { return w.winner }

// Winners returns every hero on the winning team
func (w *World) Winners() []string { return w.winners }

// Seeded reports whether the environment has been created
func (w *World) Seeded() bool { return w.seeded }

// Object returns the live object with the given id
func (w *World) Object(id string) (Object, bool) {
	obj, ok := w.objects[id]
	return obj, ok
}

// Hero returns the live hero with the given id
func (w *World) Hero(id string) (*Hero, bool) {
	hero, ok := w.objects[id].(*Hero)
	return hero, ok
}

// Objects returns the live objects in creation order
func (w *World) Objects() []Object {
	result := make([]Object, 0, len(w.objects))
	for _, id := range w.objectOrder {
		if obj, ok := w.objects[id]; ok {
			result = append(result, obj)
		}
	}
	return result
}

// Heroes returns the live heroes in creation order
func (w *World) Heroes() []*Hero {
	var result []*Hero
	for _, id := range w.objectOrder {
		if hero, ok := w.objects[id].(*Hero); ok {
			result = append(result, hero)
		}
	}
	return result
}

// Behaviours returns the active behaviours
func (w *World) Behaviours() []Behaviour { return w.behaviours }

// Player returns the player controlling a hero
func (w *World) Player(heroID string) (*Player, bool) {
	p, ok := w.players[heroID]
	return p, ok
}

// Players returns every player that has joined, in join order
func (w *World) Players() []*Player {
	result := make([]*Player, 0, len(w.playerOrder))
	for _, id := range w.playerOrder {
		result = append(result, w.players[id])
	}
	return result
}

// IsActive reports whether a human is currently controlling the hero
func (w *World) IsActive(heroID string) bool { return w.activePlayers[heroID] }

// NumActivePlayers returns the number of connected humans
func (w *World) NumActivePlayers() int { return len(w.activePlayers) }

// Score returns the score of a hero
func (w *World) Score(heroID string) (*Score, bool) {
	s, ok := w.scores[heroID]
	return s, ok
}

// Scores returns every score in join order
func (w *World) Scores() []*Score {
	result := make([]*Score, 0, len(w.scoreOrder))
	for _, id := range w.scoreOrder {
		result = append(result, w.scores[id])
	}
	return result
}

// TeamOf returns the team id of a hero, or "" when teams are not assigned
func (w *World) TeamOf(heroID string) string { return w.teamAssignments[heroID] }

// Teams returns the assigned teams in order
func (w *World) Teams() []*Team {
	result := make([]*Team, 0, len(w.teamOrder))
	for _, id := range w.teamOrder {
		result = append(result, w.teams[id])
	}
	return result
}

// QueueOccurrence schedules an occurrence for the next tick
func (w *World) QueueOccurrence(o Occurrence) {
	w.occurrences = append(w.occurrences, o)
}

// QueueAction replaces the queued action of a hero
func (w *World) QueueAction(heroID string, action Action) {
	w.actions[heroID] = &action
}

// TakeNotifications returns and clears the notifications raised since the last call
func (w *World) TakeNotifications() []Notification {
	n := w.notifications
	w.notifications = nil
	return n
}

// TakeEvents returns and clears the events raised since the last call
func (w *World) TakeEvents() []Event {
	e := w.events
	w.events = nil
	return e
}

// Tick advances the match by one fixed step. The pass order is fixed:
// occurrences, actions, forces, physics, detonations, contacts, speed and
// mitigation corrections, expiries, lava, shrink, reaping and snapshots.
func (w *World) Tick() {
	w.tick++

	w.handleOccurrences()
	w.handleActions()

	w.handleBehaviours(passForces)

	w.physics.Step(stepSeconds)

	// detonations resolve before contacts can swap ownership
	w.handleBehaviours(passDetonate)

	for _, contact := range w.physics.Contacts() {
		w.handleContact(contact)
	}

	w.applySpeedLimit()
	w.decayMitigation()

	w.handleBehaviours(passExpiry)

	w.applyLavaDamage()
	w.shrink()

	w.reap()
	w.captureSnapshot()
}

func (w *World) handleBehaviours(pass int) {
	handlers := w.passes[pass]

	// behaviours pushed during the pass wait for the next one
	current := w.behaviours
	n := len(current)
	done := make(map[int]bool)
	for i := 0; i < n; i++ {
		b := current[i]
		handler, ok := handlers[b.Kind()]
		if !ok {
			continue
		}
		if !handler(w, b) {
			done[i] = true
		}
	}
	if len(done) == 0 {
		return
	}

	kept := make([]Behaviour, 0, len(w.behaviours)-len(done))
	for i, b := range w.behaviours {
		if !done[i] {
			kept = append(kept, b)
		}
	}
	w.behaviours = kept
}

func (w *World) applySpeedLimit() {
	for _, obj := range w.Objects() {
		switch o := obj.(type) {
		case *Projectile:
			if !o.FixedSpeed {
				continue
			}
			velocity := o.body.LinearVelocity()
			currentSpeed := velocity.Len()
			diff := o.Speed - currentSpeed
			if diff > w.settings.World.ProjectileSpeedMaxError || -diff > w.settings.World.ProjectileSpeedMaxError {
				newSpeed := currentSpeed + diff*w.settings.World.ProjectileSpeedDecayFactorPerTick
				if currentSpeed > 0 {
					velocity = velocity.Scale(newSpeed / currentSpeed)
				} else {
					velocity = vector.FromAngle(o.body.Angle(), newSpeed)
				}
				o.body.SetLinearVelocity(velocity)
			}
		case *Hero:
			if o.MaxSpeed > 0 {
				o.body.SetLinearVelocity(o.body.LinearVelocity().Truncate(o.MaxSpeed))
			}
		}
	}
}

func (w *World) addObject(obj Object) {
	w.objects[obj.ID()] = obj
	w.objectOrder = append(w.objectOrder, obj.ID())
}

func (w *World) nextID(prefix string) string {
	id := fmt.Sprintf("%s%d", prefix, w.nextObjectID)
	w.nextObjectID++
	return id
}

func (w *World) pushBehaviour(b Behaviour) {
	w.behaviours = append(w.behaviours, b)
}

func (w *World) notify(n Notification) {
	w.notifications = append(w.notifications, n)
}

func (w *World) emit(e Event) {
	w.events = append(w.events, e)
}
