package main

import (
	"fmt"
	"log"
	"math/rand"
	"slices"
	"sync"
	"time"

	"arena-server/internal/engine"
	"arena-server/internal/settings"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Broadcaster is anything that can receive messages for one socket
type Broadcaster interface {
	SendJSON(msg any)
	SendBinary(data []byte)
}

// GamePlayer is a connected socket controlling a hero
type GamePlayer struct {
	SocketID string
	HeroID   string
	Name     string
	UserID   string
	UserHash string
}

// JoinParams describes a socket asking to join
type JoinParams struct {
	SocketID     string
	Name         string
	UserID       string
	UserHash     string
	PartyHash    string
	KeyBindings  settings.KeyBindings
	IsMobile     bool
	ReconnectKey string
}

// Game holds the host side of one match: queued inputs, the tick history
// replayed to late joiners, and the server's own copy of the world.
type Game struct {
	mu sync.Mutex

	ID       string
	Private  bool
	Created  time.Time
	settings *settings.Settings
	world    *engine.World
	rng      *rand.Rand

	tick       int
	activeTick int
	closeTick  int
	syncTick   int
	joinable   bool
	numPlayers int

	active        map[string]*GamePlayer // socket id -> player
	clients       map[string]Broadcaster // socket id -> client
	bots          map[string]string      // hero id -> controlling socket id, "" when unclaimed
	reconnectKeys map[string]string      // key -> hero id

	actions     map[string]*engine.ActionMsg
	actionOrder []string
	messages    []engine.ActionMsg
	history     []engine.TickMsg

	ticksPerTurn int
	winTick      int
	result       *GameResult
}

// NewGame creates a joinable game and queues its environment seed
func NewGame(s *settings.Settings, seed int64, private bool, ticksPerTurn int) (*Game, error) {
	world, err := engine.NewWorld(s)
	if err != nil {
		return nil, fmt.Errorf("new game: %w", err)
	}
	g := &Game{
		ID:            uuid.NewString(),
		Private:       private,
		Created:       time.Now(),
		settings:      s,
		world:         world,
		rng:           rand.New(rand.NewSource(seed)),
		closeTick:     s.Matchmaking.MaxHistoryLength,
		joinable:      true,
		active:        make(map[string]*GamePlayer),
		clients:       make(map[string]Broadcaster),
		bots:          make(map[string]string),
		reconnectKeys: make(map[string]string),
		actions:       make(map[string]*engine.ActionMsg),
		ticksPerTurn:  ticksPerTurn,
	}
	g.queueAction(&engine.ActionMsg{
		Type:   engine.MsgEnvironment,
		GameID: g.ID,
		HeroID: systemHeroID(engine.MsgEnvironment),
		Seed:   seed,
	})
	return g, nil
}

func systemHeroID(actionType string) string {
	return "_" + actionType
}

func formatHeroID(index int) string {
	return fmt.Sprintf("hero%d", index)
}

// Join seats a socket in the game, reusing a free or reconnected hero slot
// where possible. The joined message is sent before any later tick frame.
func (g *Game) Join(params JoinParams, client Broadcaster) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.leave(params.SocketID)

	var heroID string
	if params.ReconnectKey != "" {
		heroID = g.reconnectKeys[params.ReconnectKey]
	} else {
		heroID = g.findExistingSlot(true)
	}
	if heroID == "" && g.joinable && len(g.active) < g.settings.Matchmaking.MaxPlayers {
		heroID = formatHeroID(g.numPlayers)
		g.numPlayers++
	}
	if heroID == "" {
		return "", engine.ErrGameFull
	}

	g.active[params.SocketID] = &GamePlayer{
		SocketID: params.SocketID,
		HeroID:   heroID,
		Name:     params.Name,
		UserID:   params.UserID,
		UserHash: params.UserHash,
	}
	g.clients[params.SocketID] = client
	delete(g.bots, heroID)

	for key, otherHeroID := range g.reconnectKeys {
		if otherHeroID == heroID {
			delete(g.reconnectKeys, key)
		}
	}
	reconnectKey := uuid.NewString()
	g.reconnectKeys[reconnectKey] = heroID

	g.queueAction(&engine.ActionMsg{
		Type:        engine.MsgJoin,
		GameID:      g.ID,
		HeroID:      heroID,
		UserID:      params.UserID,
		UserHash:    params.UserHash,
		PartyHash:   params.PartyHash,
		PlayerName:  params.Name,
		KeyBindings: params.KeyBindings,
		IsMobile:    params.IsMobile,
	})

	client.SendJSON(Envelope{T: MsgJoined, Data: JoinedMsg{
		GameID:       g.ID,
		HeroID:       heroID,
		ReconnectKey: reconnectKey,
		TicksPerTurn: g.ticksPerTurn,
		History:      slices.Clone(g.history),
	}})
	log.Printf("Game [%s]: player %s [%s] joined as %s", g.ID, params.Name, params.SocketID, heroID)
	return heroID, nil
}

// Leave removes a socket from the game. Its hero stays behind as a bot.
func (g *Game) Leave(socketID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.leave(socketID)
}

func (g *Game) leave(socketID string) {
	player, ok := g.active[socketID]
	if !ok {
		return
	}
	delete(g.active, socketID)
	delete(g.clients, socketID)
	g.reassignBots(player.HeroID, socketID)

	g.queueAction(&engine.ActionMsg{Type: engine.MsgLeave, GameID: g.ID, HeroID: player.HeroID})
	log.Printf("Game [%s]: player %s [%s] left after %d ticks", g.ID, player.Name, socketID, g.tick)
}

// reassignBots frees the bots the leaving socket controlled so another socket can claim them
func (g *Game) reassignBots(leavingHeroID, socketID string) {
	if len(g.active) == 0 {
		clear(g.bots)
		return
	}
	g.bots[leavingHeroID] = ""
	for heroID, controller := range g.bots {
		if controller == socketID {
			g.bots[heroID] = ""
		}
	}
}

func (g *Game) findExistingSlot(replaceBots bool) string {
	taken := make(map[string]bool)
	for _, player := range g.active {
		taken[player.HeroID] = true
	}
	if !replaceBots {
		for heroID := range g.bots {
			taken[heroID] = true
		}
	}
	for i := 0; i < g.numPlayers; i++ {
		if candidate := formatHeroID(i); !taken[candidate] {
			return candidate
		}
	}
	return ""
}

// AddBot adds a bot hero while the game is still joinable
func (g *Game) AddBot() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.numPlayers >= g.settings.Matchmaking.MaxPlayers || len(g.active) == 0 || !g.joinable {
		return "", false
	}

	heroID := g.findExistingSlot(false)
	if heroID == "" {
		heroID = formatHeroID(g.numPlayers)
		g.numPlayers++
	}
	g.bots[heroID] = ""

	g.queueAction(&engine.ActionMsg{
		Type:        engine.MsgBot,
		GameID:      g.ID,
		HeroID:      heroID,
		KeyBindings: g.settings.RandomKeyBindings(g.rng),
	})
	return heroID, true
}

// ReceiveAction queues an input from a socket for its own hero or a bot it controls.
// Syncs only come from the server's own world.
func (g *Game) ReceiveAction(socketID string, msg engine.ActionMsg) {
	if !isValidActionMsg(&msg) {
		log.Printf("Game [%s]: action message received from socket %s with wrong action type: %s", g.ID, socketID, msg.Type)
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	player, ok := g.active[socketID]
	if !ok {
		return
	}
	if msg.HeroID == player.HeroID || g.takeBotControl(msg.HeroID, socketID) {
		msg.GameID = g.ID
		g.queueAction(&msg)
	}
}

// ReceiveText queues a chat line from a socket
func (g *Game) ReceiveText(socketID, text string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	player, ok := g.active[socketID]
	if !ok || text == "" {
		return
	}
	g.messages = append(g.messages, engine.ActionMsg{
		Type:   engine.MsgText,
		GameID: g.ID,
		HeroID: player.HeroID,
		Text:   text,
	})
}

func isValidActionMsg(msg *engine.ActionMsg) bool {
	switch msg.Type {
	case engine.MsgGame:
		return msg.HeroID != "" && msg.SpellID != ""
	case engine.MsgSpells:
		return msg.HeroID != "" && msg.KeyBindings != nil
	}
	return false
}

// takeBotControl lets the first socket to act for an unclaimed bot control it
func (g *Game) takeBotControl(heroID, socketID string) bool {
	controller, isBot := g.bots[heroID]
	if !isBot {
		return false
	}
	if controller != "" {
		return controller == socketID
	}
	g.bots[heroID] = socketID
	return true
}

// queueAction keeps the highest precedence input per hero until the next tick.
// Syncs are keyed on the system id and only a newer tick replaces a queued one.
func (g *Game) queueAction(msg *engine.ActionMsg) {
	key := msg.HeroID
	if msg.Type == engine.MsgSync {
		if msg.Tick <= g.syncTick {
			return
		}
		g.syncTick = msg.Tick
		key = systemHeroID(engine.MsgSync)
	} else if engine.ActionPrecedence(msg) < engine.ActionPrecedence(g.actions[key]) {
		return
	}

	if _, ok := g.actions[key]; !ok {
		g.actionOrder = append(g.actionOrder, key)
	}
	g.actions[key] = msg
}

// Turn advances the game ticks times if it is still running and reports whether it ran
func (g *Game) Turn(ticks int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	running := g.isRunning() || len(g.actions) > 0 || len(g.messages) > 0
	if !running {
		return false
	}
	for i := 0; i < ticks; i++ {
		g.turn()
	}
	return true
}

// IsRunning reports whether the game has had input recently
func (g *Game) IsRunning() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isRunning()
}

func (g *Game) isRunning() bool {
	return g.tick-g.activeTick < g.settings.Matchmaking.MaxIdleTicks
}

func (g *Game) turn() {
	data := engine.TickMsg{GameID: g.ID, Tick: g.tick}
	for _, key := range g.actionOrder {
		data.Actions = append(data.Actions, *g.actions[key])
	}
	data.Actions = append(data.Actions, g.messages...)
	g.tick++

	if len(data.Actions) > 0 {
		g.activeTick = g.tick
	}
	clear(g.actions)
	g.actionOrder = g.actionOrder[:0]
	g.messages = nil

	if len(g.history) < g.settings.Matchmaking.MaxHistoryLength {
		g.history = append(g.history, data)
	} else {
		// late joiners could not replay the match
		g.closeTick = min(g.closeTick, g.tick)
	}

	g.closeIfNecessary(&data)
	g.simulate(&data)
	g.broadcast(&data)
}

// simulate runs the tick on the server's own world, reports what happened
// and feeds the world's snapshots back to clients as syncs
func (g *Game) simulate(data *engine.TickMsg) {
	g.world.ApplyTick(data)
	g.world.Tick()
	g.world.TakeEvents()

	for _, n := range g.world.TakeNotifications() {
		g.logNotification(n)
	}

	if g.world.Winner() != "" && g.winTick == 0 {
		g.winTick = g.tick
		g.result = buildResult(g.ID, g.world)
	}

	if g.world.CurrentTick()%engine.SnapshotTicks == 0 {
		if snapshots := g.world.Snapshots(); len(snapshots) > 0 {
			msg := engine.SyncMsg(snapshots[len(snapshots)-1])
			msg.GameID = g.ID
			msg.HeroID = systemHeroID(engine.MsgSync)
			g.queueAction(&msg)
		}
	}
}

func (g *Game) logNotification(n engine.Notification) {
	switch n := n.(type) {
	case *engine.KillNotification:
		if n.Killer != nil {
			log.Printf("Game [%s]: %s killed %s", g.ID, n.Killer.Name, n.Killed.Name)
		} else {
			log.Printf("Game [%s]: %s died", g.ID, n.Killed.Name)
		}
	case *engine.WinNotification:
		names := make([]string, 0, len(n.Winners))
		for _, p := range n.Winners {
			names = append(names, p.Name)
		}
		log.Printf("Game [%s]: won by %v after %d ticks", g.ID, names, g.tick)
	case *engine.TeamsNotification:
		log.Printf("Game [%s]: teams of %v", g.ID, n.TeamSizes)
	}
}

func (g *Game) broadcast(data *engine.TickMsg) {
	frame, err := msgpack.Marshal(data)
	if err != nil {
		log.Printf("Game [%s]: marshal tick %d: %v", g.ID, data.Tick, err)
		return
	}
	for _, client := range g.clients {
		client.SendBinary(frame)
	}
}

// closeIfNecessary starts the join period once somebody casts a spell with
// company, and closes the game to new players when it runs out
func (g *Game) closeIfNecessary(data *engine.TickMsg) {
	if !g.joinable {
		return
	}

	waitPeriod := -1
	numTeams := 0

	numPlayers := len(g.active) + len(g.bots)
	if numPlayers > 1 && slices.ContainsFunc(data.Actions, isSpell) {
		newCloseTick := g.tick + g.settings.Matchmaking.JoinPeriodTicks
		if newCloseTick < g.closeTick {
			g.closeTick = newCloseTick
			waitPeriod = g.settings.Matchmaking.JoinPeriodTicks
		}
	}

	if g.tick >= g.closeTick {
		numTeams = g.chooseNumTeams(numPlayers)
		g.joinable = false
		waitPeriod = 0
		log.Printf("Game [%s]: now unjoinable with %d players (%d teams) after %d ticks", g.ID, len(g.active), max(numTeams, 1), g.tick)
	}

	if waitPeriod >= 0 {
		g.queueAction(&engine.ActionMsg{
			Type:       engine.MsgClose,
			GameID:     g.ID,
			HeroID:     systemHeroID(engine.MsgClose),
			CloseTick:  g.closeTick,
			WaitPeriod: waitPeriod,
			NumTeams:   numTeams,
		})
	}
}

// chooseNumTeams returns zero for a free-for-all. Team games need every
// player logged in and no bots.
func (g *Game) chooseNumTeams(numPlayers int) int {
	if len(g.bots) > 0 || numPlayers < g.settings.Matchmaking.TeamGameMinPlayers {
		return 0
	}
	for _, player := range g.active {
		if player.UserID == "" {
			return 0
		}
	}
	if g.rng.Float64() >= g.settings.Matchmaking.TeamGameChance {
		return 0
	}

	var candidates []int
	for numTeams := 2; numTeams <= numPlayers/2; numTeams++ {
		if numPlayers%numTeams == 0 {
			candidates = append(candidates, numTeams)
		}
	}
	if len(candidates) == 0 {
		return 0
	}
	return candidates[g.rng.Intn(len(candidates))]
}

func isSpell(msg engine.ActionMsg) bool {
	if msg.Type != engine.MsgGame {
		return false
	}
	switch msg.SpellID {
	case settings.ActionMove, engine.ActionMoveAndCancel, settings.ActionStop, settings.ActionRetarget:
		return false
	}
	return true
}

// Close tells every connected socket the game is over
func (g *Game) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for socketID, client := range g.clients {
		client.SendJSON(Envelope{T: MsgLeft, Data: map[string]string{"gid": g.ID}})
		delete(g.clients, socketID)
		delete(g.active, socketID)
	}
}

// TakeResult returns the result of a decided game once
func (g *Game) TakeResult() *GameResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	result := g.result
	g.result = nil
	return result
}

// HasSocket reports whether a socket is playing in this game
func (g *Game) HasSocket(socketID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.active[socketID]
	return ok
}

// IsJoinable reports whether new players may still join
func (g *Game) IsJoinable() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.joinable
}

// PlayerCount returns the number of connected players
func (g *Game) PlayerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}

// Finished reports whether everyone has left
func (g *Game) Finished() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active) == 0
}

// Info summarises the game for listings
func (g *Game) Info() GameInfo {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GameInfo{
		ID:       g.ID,
		Players:  len(g.active),
		Bots:     len(g.bots),
		Tick:     g.tick,
		Joinable: g.joinable,
		Winner:   g.world.Winner(),
	}
}
