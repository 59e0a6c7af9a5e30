package main

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	"arena-server/internal/engine"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 8192
	sendBufSize       = 256
	maxMessagesPerSec = 50
	maxNameLen        = 16
	maxTextLen        = 200
)

type outbound struct {
	binary bool
	data   []byte
}

// Client represents a WebSocket connection
type Client struct {
	id         string
	hub        *Hub
	conn       *websocket.Conn
	send       chan outbound
	remoteAddr string
	msgCount   int
	msgResetAt time.Time

	sendMu sync.Mutex
	closed bool

	// game state, only touched by ReadPump
	gameID string
	heroID string

	// Auth state
	authPlayerID int64  // 0 = unauthenticated/guest
	authUsername string // "" = unauthenticated
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		id:         uuid.NewString(),
		hub:        hub,
		conn:       conn,
		send:       make(chan outbound, sendBufSize),
		remoteAddr: remoteAddr,
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		// Binary frames are msgpack encoded actions
		if msgType == websocket.BinaryMessage {
			c.handleBinaryAction(message)
		} else {
			c.handleMessage(message)
		}
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			frameType := websocket.TextMessage
			if message.binary {
				frameType = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(frameType, message.data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.enqueue(outbound{data: data})
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message
func (c *Client) SendBinary(data []byte) {
	c.enqueue(outbound{binary: true, data: data})
}

func (c *Client) enqueue(msg outbound) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		// Client too slow, drop message
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("unmarshal error: %v", err)
		return
	}

	switch env.T {
	case MsgList:
		c.handleList()
	case MsgJoin:
		c.handleJoin(env.D)
	case MsgLeave:
		c.handleLeave()
	case MsgAction:
		c.handleAction(env.D)
	case MsgText:
		c.handleText(env.D)
	case MsgAddBot:
		c.handleAddBot()
	case MsgRegister:
		c.handleRegister(env.D)
	case MsgLogin:
		c.handleLogin(env.D)
	case MsgAuth:
		c.handleAuth(env.D)
	case MsgProfile:
		c.handleProfile()
	case MsgLeaderboard:
		c.handleLeaderboard(env.D)
	}
}

func (c *Client) currentGame() *Game {
	if c.gameID == "" {
		return nil
	}
	return c.hub.games.Game(c.gameID)
}

func (c *Client) handleList() {
	c.SendJSON(Envelope{T: MsgGames, Data: c.hub.games.List()})
}

func (c *Client) handleJoin(data json.RawMessage) {
	var msg JoinMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}

	name := msg.Name
	if name == "" {
		name = c.authUsername
	}
	params := JoinParams{
		SocketID:     c.id,
		Name:         sanitizeName(name),
		PartyHash:    hashID(msg.PartyID),
		KeyBindings:  msg.KeyBindings,
		IsMobile:     msg.IsMobile,
		ReconnectKey: msg.ReconnectKey,
	}
	if c.authPlayerID != 0 {
		params.UserID = strconv.FormatInt(c.authPlayerID, 10)
		params.UserHash = hashID(params.UserID)
	}

	if msg.GameID != c.gameID {
		c.hub.games.Leave(c.id)
	}
	g, heroID, err := c.hub.games.JoinGame(msg.GameID, msg.Private, params, c)
	switch {
	case errors.Is(err, engine.ErrUnknownGame):
		c.sendError("game not found")
		return
	case errors.Is(err, engine.ErrGameFull):
		c.sendError("game full")
		return
	case errors.Is(err, ErrTooManyGames):
		c.sendError("too many active games")
		return
	case err != nil:
		log.Printf("join error: %v", err)
		c.sendError("could not join")
		return
	}
	c.gameID = g.ID
	c.heroID = heroID
}

func (c *Client) handleLeave() {
	g := c.currentGame()
	if g == nil {
		return
	}
	g.Leave(c.id)
	c.SendJSON(Envelope{T: MsgLeft, Data: map[string]string{"gid": c.gameID}})
	c.gameID = ""
	c.heroID = ""
}

func (c *Client) handleAction(data json.RawMessage) {
	var msg engine.ActionMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	c.receiveAction(msg)
}

func (c *Client) handleBinaryAction(raw []byte) {
	var msg engine.ActionMsg
	if err := msgpack.Unmarshal(raw, &msg); err != nil {
		return
	}
	c.receiveAction(msg)
}

func (c *Client) receiveAction(msg engine.ActionMsg) {
	g := c.currentGame()
	if g == nil {
		return
	}
	if msg.HeroID == "" {
		msg.HeroID = c.heroID
	}
	g.ReceiveAction(c.id, msg)
}

func (c *Client) handleText(data json.RawMessage) {
	var msg TextMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if g := c.currentGame(); g != nil {
		g.ReceiveText(c.id, truncateText(msg.Text, maxTextLen))
	}
}

func (c *Client) handleAddBot() {
	g := c.currentGame()
	if g == nil {
		c.sendError("not in a game")
		return
	}
	heroID, ok := g.AddBot()
	if !ok {
		c.sendError("cannot add bot")
		return
	}
	c.SendJSON(Envelope{T: MsgBotAdded, Data: BotAddedMsg{HeroID: heroID}})
}

func (c *Client) handleRegister(data json.RawMessage) {
	if c.hub.auth == nil {
		return
	}
	var msg RegisterMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Register(msg.Username, msg.Password)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.authenticated(id, msg.Username, token)
}

func (c *Client) handleLogin(data json.RawMessage) {
	if c.hub.auth == nil {
		return
	}
	var msg LoginMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Login(msg.Username, msg.Password, c.remoteAddr)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.authenticated(id, msg.Username, token)
}

func (c *Client) handleAuth(data json.RawMessage) {
	if c.hub.auth == nil {
		return
	}
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, username, err := c.hub.auth.ValidateToken(msg.Token)
	if err != nil {
		c.sendError("invalid token")
		return
	}
	c.authenticated(id, username, msg.Token)
}

func (c *Client) authenticated(id int64, username, token string) {
	c.authPlayerID = id
	c.authUsername = username
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{
		Token:    token,
		Username: username,
		PlayerID: id,
	}})
}

func (c *Client) handleProfile() {
	if c.hub.db == nil || c.authPlayerID == 0 {
		c.sendError("not authenticated")
		return
	}
	stats, err := c.hub.db.GetStats(c.authPlayerID)
	if err != nil || stats == nil {
		c.sendError("profile not found")
		return
	}
	achievements, err := c.hub.db.GetAchievements(c.authPlayerID)
	if err != nil {
		log.Printf("achievements error: %v", err)
	}
	c.SendJSON(Envelope{T: MsgProfileData, Data: ProfileDataMsg{
		Username:     c.authUsername,
		Games:        stats.Games,
		Wins:         stats.Wins,
		Kills:        stats.Kills,
		Outlasts:     stats.Outlasts,
		Damage:       stats.Damage,
		Achievements: achievements,
	}})
}

func (c *Client) handleLeaderboard(data json.RawMessage) {
	if c.hub.db == nil {
		c.sendError("leaderboard unavailable")
		return
	}
	var msg LeaderboardMsg
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
	}
	entries, err := c.hub.db.GetLeaderboard(msg.OrderBy, msg.Limit)
	if err != nil {
		log.Printf("leaderboard error: %v", err)
		c.sendError("leaderboard unavailable")
		return
	}
	c.SendJSON(Envelope{T: MsgBoard, Data: entries})
}
