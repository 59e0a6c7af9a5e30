package main

import (
	"encoding/json"

	"arena-server/internal/engine"
	"arena-server/internal/settings"
)

// Client -> Server message types
const (
	MsgList        = "list"
	MsgJoin        = "join"
	MsgLeave       = "leave"
	MsgAction      = "action" // game, spells or sync action for a hero
	MsgText        = "text"
	MsgAddBot      = "bot"
	MsgRegister    = "register"
	MsgLogin       = "login"
	MsgAuth        = "auth"
	MsgProfile     = "profile"
	MsgLeaderboard = "leaderboard"
)

// Server -> Client message types. Ticks are sent as binary msgpack frames
// of engine.TickMsg, not as envelopes.
const (
	MsgGames       = "games"
	MsgJoined      = "joined"
	MsgLeft        = "left"
	MsgError       = "error"
	MsgAuthOK      = "auth_ok"
	MsgProfileData = "profile_data"
	MsgBoard       = "board"
	MsgBotAdded    = "bot_added"
)

// Envelope wraps all outgoing JSON messages with a type field
type Envelope struct {
	T    string `json:"t"`
	Data any    `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// JoinMsg asks to join a game. An empty GameID lets the server pick one.
type JoinMsg struct {
	Name         string               `json:"name"`
	GameID       string               `json:"gid,omitempty"`
	Private      bool                 `json:"private,omitempty"`
	ReconnectKey string               `json:"reconnectKey,omitempty"`
	PartyID      string               `json:"party,omitempty"`
	KeyBindings  settings.KeyBindings `json:"keyBindings,omitempty"`
	IsMobile     bool                 `json:"isMobile,omitempty"`
}

// JoinedMsg confirms a join and carries every tick so far so the client can
// replay the match up to now
type JoinedMsg struct {
	GameID       string           `json:"gid"`
	HeroID       string           `json:"hid"`
	ReconnectKey string           `json:"reconnectKey"`
	TicksPerTurn int              `json:"ticksPerTurn"`
	History      []engine.TickMsg `json:"history"`
}

// TextMsg is a chat line
type TextMsg struct {
	Text string `json:"text"`
}

// BotAddedMsg reports the hero id of a new bot
type BotAddedMsg struct {
	HeroID string `json:"hid"`
}

// GameInfo is used in the game list
type GameInfo struct {
	ID       string `json:"id"`
	Players  int    `json:"players"`
	Bots     int    `json:"bots"`
	Tick     int    `json:"tick"`
	Joinable bool   `json:"joinable"`
	Winner   string `json:"winner,omitempty"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// RegisterMsg creates an account
type RegisterMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginMsg logs in with username and password
type LoginMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthMsg restores a session from a token
type AuthMsg struct {
	Token string `json:"token"`
}

// AuthOKMsg is sent after any successful authentication
type AuthOKMsg struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	PlayerID int64  `json:"pid"`
}

// ProfileDataMsg carries the lifetime stats of the logged in player
type ProfileDataMsg struct {
	Username string  `json:"username"`
	Games    int     `json:"games"`
	Wins     int     `json:"wins"`
	Kills    int     `json:"kills"`
	Outlasts int     `json:"outlasts"`
	Damage   float64 `json:"damage"`

	Achievements []string `json:"achievements"`
}

// LeaderboardMsg requests the top players
type LeaderboardMsg struct {
	OrderBy string `json:"orderBy"`
	Limit   int    `json:"limit"`
}
