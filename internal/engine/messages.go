package engine

import (
	"sort"

	"arena-server/internal/settings"
	"arena-server/internal/vector"
)

// Action message types
const (
	MsgEnvironment = "environment"
	MsgJoin        = "join"
	MsgBot         = "bot"
	MsgLeave       = "leave"
	MsgGame        = "game"
	MsgClose       = "close"
	MsgText        = "text"
	MsgSpells      = "spells"
	MsgSync        = "sync"
)

// ActionMoveAndCancel is the move variant that also cancels a channelled spell
const ActionMoveAndCancel = "go"

// ActionMsg is one input of a tick as relayed by the host. Type selects which
// fields apply.
type ActionMsg struct {
	Type   string `json:"type" msgpack:"type"`
	GameID string `json:"gid" msgpack:"gid"`
	HeroID string `json:"hid" msgpack:"hid"`

	Seed     int64  `json:"seed,omitempty" msgpack:"seed,omitempty"`
	LayoutID string `json:"layoutId,omitempty" msgpack:"layoutId,omitempty"`

	UserID      string               `json:"userId,omitempty" msgpack:"userId,omitempty"`
	UserHash    string               `json:"userHash,omitempty" msgpack:"userHash,omitempty"`
	PartyHash   string               `json:"partyHash,omitempty" msgpack:"partyHash,omitempty"`
	PlayerName  string               `json:"playerName,omitempty" msgpack:"playerName,omitempty"`
	KeyBindings settings.KeyBindings `json:"keyBindings,omitempty" msgpack:"keyBindings,omitempty"`
	IsMobile    bool                 `json:"isMobile,omitempty" msgpack:"isMobile,omitempty"`

	CloseTick  int `json:"closeTick,omitempty" msgpack:"closeTick,omitempty"`
	WaitPeriod int `json:"waitPeriod,omitempty" msgpack:"waitPeriod,omitempty"`
	NumTeams   int `json:"numTeams,omitempty" msgpack:"numTeams,omitempty"`

	SpellID string  `json:"sid,omitempty" msgpack:"sid,omitempty"`
	X       float64 `json:"x,omitempty" msgpack:"x,omitempty"`
	Y       float64 `json:"y,omitempty" msgpack:"y,omitempty"`
	Release bool    `json:"r,omitempty" msgpack:"r,omitempty"`

	Text string `json:"text,omitempty" msgpack:"text,omitempty"`

	Tick    int             `json:"tick,omitempty" msgpack:"tick,omitempty"`
	Objects []ObjectSyncMsg `json:"objects,omitempty" msgpack:"objects,omitempty"`
}

// ObjectSyncMsg is one entry of a sync message
type ObjectSyncMsg struct {
	ID     string   `json:"id" msgpack:"id"`
	X      float64  `json:"x" msgpack:"x"`
	Y      float64  `json:"y" msgpack:"y"`
	Health float64  `json:"hp" msgpack:"hp"`
	Angle  *float64 `json:"a,omitempty" msgpack:"a,omitempty"`
}

// TickMsg is every input applied at one tick of a game
type TickMsg struct {
	GameID  string      `json:"gameId" msgpack:"gameId"`
	Tick    int         `json:"tick" msgpack:"tick"`
	Actions []ActionMsg `json:"actions" msgpack:"actions"`
}

// ActionPrecedence ranks inputs for the same hero within one tick; a new input
// replaces the queued one when its precedence is at least as high
func ActionPrecedence(msg *ActionMsg) int {
	switch {
	case msg == nil:
		return 0
	case msg.Type == MsgJoin || msg.Type == MsgLeave || msg.Type == MsgBot:
		return 1000
	case msg.Type == MsgSpells:
		return 101
	case msg.Type != MsgGame:
		return 100
	case msg.SpellID == settings.ActionStop:
		return 12
	case msg.SpellID == ActionMoveAndCancel:
		return 11
	case msg.SpellID == settings.ActionMove:
		return 10
	case msg.SpellID == settings.ActionRetarget:
		return 1
	case msg.Release:
		return 99
	default:
		return 100
	}
}

// ApplyTick queues the inputs of a tick message onto the world
func (w *World) ApplyTick(msg *TickMsg) {
	for i := range msg.Actions {
		action := &msg.Actions[i]
		switch action.Type {
		case MsgGame:
			w.QueueAction(action.HeroID, Action{
				Type:    action.SpellID,
				Target:  vector.New(action.X, action.Y),
				Release: action.Release,
			})
		case MsgSpells:
			w.QueueOccurrence(&Spells{HeroID: action.HeroID, KeyBindings: action.KeyBindings})
		case MsgSync:
			w.QueueOccurrence(SyncFromMsg(action.Tick, action.Objects))
		case MsgClose:
			w.QueueOccurrence(&Closing{StartTick: action.CloseTick, TicksUntilClose: action.WaitPeriod, NumTeams: action.NumTeams})
		case MsgJoin:
			w.QueueOccurrence(&Join{
				HeroID:      action.HeroID,
				PlayerName:  action.PlayerName,
				KeyBindings: action.KeyBindings,
				IsMobile:    action.IsMobile,
				UserID:      action.UserID,
				UserHash:    action.UserHash,
				PartyHash:   action.PartyHash,
			})
		case MsgBot:
			w.QueueOccurrence(&Botting{HeroID: action.HeroID, KeyBindings: action.KeyBindings})
		case MsgLeave:
			w.QueueOccurrence(&Leave{HeroID: action.HeroID})
		case MsgEnvironment:
			w.QueueOccurrence(&Environment{Seed: action.Seed, LayoutID: action.LayoutID})
		case MsgText:
			w.notify(&TextNotification{HeroID: action.HeroID, Text: action.Text})
		}
	}
}

// SyncFromMsg converts a sync message into a Sync occurrence
func SyncFromMsg(tick int, objects []ObjectSyncMsg) *Sync {
	sync := &Sync{Tick: tick, Objects: make(map[string]*ObjectSnapshot, len(objects))}
	for _, obj := range objects {
		sync.Objects[obj.ID] = &ObjectSnapshot{
			Pos:    vector.New(obj.X, obj.Y),
			Health: obj.Health,
			Angle:  obj.Angle,
		}
	}
	return sync
}

// SyncMsg builds a sync message from a snapshot, ordered by object id
func SyncMsg(snapshot Snapshot) ActionMsg {
	ids := make([]string, 0, len(snapshot.Objects))
	for id, obj := range snapshot.Objects {
		if obj != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	msg := ActionMsg{Type: MsgSync, Tick: snapshot.Tick}
	for _, id := range ids {
		obj := snapshot.Objects[id]
		msg.Objects = append(msg.Objects, ObjectSyncMsg{
			ID:     id,
			X:      obj.Pos.X,
			Y:      obj.Pos.Y,
			Health: obj.Health,
			Angle:  obj.Angle,
		})
	}
	return msg
}
