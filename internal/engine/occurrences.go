package engine

import (
	"arena-server/internal/settings"
)

// Occurrence is an out-of-band input applied at the start of a tick
type Occurrence interface {
	occurrence()
}

// Closing stops new players joining and schedules the match start
type Closing struct {
	StartTick       int `json:"startTick" msgpack:"startTick"`
	TicksUntilClose int `json:"ticksUntilClose" msgpack:"ticksUntilClose"`
	NumTeams        int `json:"numTeams,omitempty" msgpack:"numTeams,omitempty"`
}

// Botting adds a hero controlled by whichever client volunteers to run the bot
type Botting struct {
	HeroID      string               `json:"heroId" msgpack:"heroId"`
	KeyBindings settings.KeyBindings `json:"keyBindings" msgpack:"keyBindings"`
}

type Join struct {
	HeroID      string               `json:"heroId" msgpack:"heroId"`
	PlayerName  string               `json:"playerName" msgpack:"playerName"`
	KeyBindings settings.KeyBindings `json:"keyBindings" msgpack:"keyBindings"`
	IsMobile    bool                 `json:"isMobile,omitempty" msgpack:"isMobile,omitempty"`
	UserID      string               `json:"userId,omitempty" msgpack:"userId,omitempty"`
	UserHash    string               `json:"userHash,omitempty" msgpack:"userHash,omitempty"`
	PartyHash   string               `json:"partyHash,omitempty" msgpack:"partyHash,omitempty"`
}

type Leave struct {
	HeroID string `json:"heroId" msgpack:"heroId"`
}

// Environment seeds the map. Only the first one in a match has any effect.
type Environment struct {
	Seed     int64  `json:"seed" msgpack:"seed"`
	LayoutID string `json:"layoutId,omitempty" msgpack:"layoutId,omitempty"`
}

// Spells rebinds a hero's spells
type Spells struct {
	HeroID      string               `json:"heroId" msgpack:"heroId"`
	KeyBindings settings.KeyBindings `json:"keyBindings" msgpack:"keyBindings"`
}

// Sync carries another observer's snapshot of an earlier tick
type Sync struct {
	Tick    int                        `json:"tick" msgpack:"tick"`
	Objects map[string]*ObjectSnapshot `json:"objects" msgpack:"objects"`
}

func (*Closing) occurrence()     {}
func (*Botting) occurrence()     {}
func (*Join) occurrence()        {}
func (*Leave) occurrence()       {}
func (*Environment) occurrence() {}
func (*Spells) occurrence()      {}
func (*Sync) occurrence()        {}

// handleOccurrences applies the queued occurrences in order. Any that cannot be
// applied yet stay queued for the next tick.
func (w *World) handleOccurrences() {
	var retry []Occurrence
	for _, o := range w.occurrences {
		done := true
		switch ev := o.(type) {
		case *Closing:
			done = w.handleClosing(ev)
		case *Botting:
			done = w.handleBotting(ev)
		case *Join:
			done = w.handleJoin(ev)
		case *Leave:
			done = w.handleLeave(ev)
		case *Environment:
			w.seedEnvironment(ev.Seed, ev.LayoutID)
		case *Spells:
			done = w.handleSpells(ev)
		case *Sync:
			done = w.handleSync(ev)
		}
		if !done {
			retry = append(retry, o)
		}
	}
	w.occurrences = retry
}

func (w *World) handleClosing(ev *Closing) bool {
	// the host sends closing twice, once when the match closes and once when it starts
	isNew := ev.StartTick < w.startTick
	w.startTick = ev.StartTick

	if isNew {
		for _, obj := range w.Objects() {
			switch o := obj.(type) {
			case *Obstacle:
				o.body.ResetMassData()
			case *Projectile:
				if o.Owner != "" {
					o.ExpireTick = min(o.ExpireTick, ev.StartTick)
				}
			case *Hero:
				for _, buff := range o.Buffs {
					if buff.Type == settings.BuffBurn && buff.NumStacks > 1 {
						buff.Packet.Damage /= float64(buff.NumStacks)
						buff.NumStacks = 1
					}
				}
			}
		}
	}

	var teamSizes []int
	if w.tick >= w.startTick {
		if teams := w.assignTeams(ev.NumTeams); teams != nil {
			for _, team := range teams {
				teamSizes = append(teamSizes, len(team))
			}
			w.notify(&TeamsNotification{TeamSizes: teamSizes})
		}
	}

	w.notify(&ClosingNotification{TicksUntilClose: ev.TicksUntilClose, TeamSizes: teamSizes})
	return true
}

// spawnHero returns the hero for a joining player, creating it if needed.
// It returns false when the id is taken by a dead player or by another object.
func (w *World) spawnHero(heroID string) (*Hero, bool) {
	obj, ok := w.objects[heroID]
	if !ok {
		if player, ok := w.players[heroID]; ok && player.Dead {
			return nil, false
		}
		return w.addHero(heroID), true
	}
	hero, ok := obj.(*Hero)
	return hero, ok
}

func (w *World) setPlayer(player *Player) {
	if _, ok := w.players[player.HeroID]; !ok {
		w.playerOrder = append(w.playerOrder, player.HeroID)
	}
	w.players[player.HeroID] = player
}

func (w *World) handleBotting(ev *Botting) bool {
	hero, ok := w.spawnHero(ev.HeroID)
	if !ok {
		return true
	}
	w.assignKeyBindings(hero, ev.KeyBindings)

	player := &Player{
		HeroID:      hero.id,
		Name:        w.settings.Matchmaking.BotName,
		IsBot:       true,
		IsSharedBot: true,
	}
	w.setPlayer(player)
	delete(w.activePlayers, hero.id)

	w.notify(&BotNotification{Player: *player})
	return true
}

func (w *World) handleJoin(ev *Join) bool {
	hero, ok := w.spawnHero(ev.HeroID)
	if !ok {
		return true
	}
	w.assignKeyBindings(hero, ev.KeyBindings)

	player := &Player{
		HeroID:    hero.id,
		UserID:    ev.UserID,
		UserHash:  ev.UserHash,
		PartyHash: ev.PartyHash,
		Name:      ev.PlayerName,
		IsMobile:  ev.IsMobile,
	}
	w.setPlayer(player)
	w.activePlayers[hero.id] = true

	w.notify(&JoinNotification{Player: *player})
	return true
}

// handleLeave hands a leaving player's hero to a bot, or removes it if the match is decided
func (w *World) handleLeave(ev *Leave) bool {
	player, ok := w.players[ev.HeroID]
	if !ok {
		return true
	}
	delete(w.activePlayers, ev.HeroID)
	w.notify(&LeaveNotification{Player: *player})

	hero, ok := w.Hero(ev.HeroID)
	if !ok {
		return true
	}
	if w.winner != "" {
		hero.ExitTick = w.tick
		player.Dead = true
	} else {
		player.IsBot = true
		player.IsSharedBot = true
		player.IsMobile = false
	}
	return true
}

// AllowSpellChoosing reports whether heroID may rebind its spells: before the
// match starts, after it is decided, or once the hero is dead.
func (w *World) AllowSpellChoosing(heroID string) bool {
	if heroID == "" {
		return false
	}
	_, alive := w.objects[heroID]
	return w.tick < w.startTick || w.winner != "" || !alive
}

func (w *World) handleSpells(ev *Spells) bool {
	if !w.AllowSpellChoosing(ev.HeroID) {
		return true
	}

	hero, ok := w.Hero(ev.HeroID)
	if !ok {
		return true
	}
	if hero.Casting != nil && hero.Casting.Uninterruptible {
		return false
	}

	w.assignKeyBindings(hero, ev.KeyBindings)
	w.removeUnknownProjectiles(hero)
	return true
}

func (w *World) assignKeyBindings(hero *Hero, bindings settings.KeyBindings) {
	resolved := w.settings.ResolveKeyBindings(bindings)

	previous := hero.SpellsToKeys
	hero.KeysToSpells = resolved.KeysToSpells
	hero.SpellsToKeys = resolved.SpellsToKeys
	for spellID := range hero.SpellsToKeys {
		if _, ok := previous[spellID]; !ok {
			hero.SpellChangedTick[spellID] = w.tick
		}
	}
}

// removeUnknownProjectiles expires projectiles from spells the hero no longer has bound
func (w *World) removeUnknownProjectiles(hero *Hero) {
	for _, obj := range w.Objects() {
		if p, ok := obj.(*Projectile); ok && p.Owner == hero.id {
			if _, bound := hero.SpellsToKeys[p.Type]; !bound {
				p.ExpireTick = w.tick
			}
		}
	}
}
