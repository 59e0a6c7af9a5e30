package main

import (
	"errors"
	"sync"
	"testing"

	"arena-server/internal/engine"
	"arena-server/internal/settings"

	"github.com/vmihailenco/msgpack/v5"
)

// mockBroadcaster captures sent messages for testing
type mockBroadcaster struct {
	mu       sync.Mutex
	messages []any
	frames   [][]byte
}

func (m *mockBroadcaster) SendJSON(msg any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *mockBroadcaster) SendBinary(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, data)
}

func (m *mockBroadcaster) joined(t *testing.T) JoinedMsg {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if env, ok := msg.(Envelope); ok && env.T == MsgJoined {
			return env.Data.(JoinedMsg)
		}
	}
	t.Fatal("expected a joined message")
	return JoinedMsg{}
}

func (m *mockBroadcaster) lastTick(t *testing.T) engine.TickMsg {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		t.Fatal("expected a tick frame")
	}
	var tick engine.TickMsg
	if err := msgpack.Unmarshal(m.frames[len(m.frames)-1], &tick); err != nil {
		t.Fatalf("msgpack unmarshal: %v", err)
	}
	return tick
}

func newTestGame(t *testing.T, s *settings.Settings) *Game {
	t.Helper()
	if s == nil {
		s = settings.Default()
	}
	g, err := NewGame(s, 1, false, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return g
}

func joinGame(t *testing.T, g *Game, socketID string) (*mockBroadcaster, string) {
	t.Helper()
	b := &mockBroadcaster{}
	heroID, err := g.Join(JoinParams{SocketID: socketID, Name: socketID}, b)
	if err != nil {
		t.Fatalf("join %s: %v", socketID, err)
	}
	return b, heroID
}

func spell(heroID, spellID string) engine.ActionMsg {
	return engine.ActionMsg{Type: engine.MsgGame, HeroID: heroID, SpellID: spellID, X: 0.5, Y: 0.5}
}

func hasAction(tick engine.TickMsg, actionType string) (engine.ActionMsg, bool) {
	for _, a := range tick.Actions {
		if a.Type == actionType {
			return a, true
		}
	}
	return engine.ActionMsg{}, false
}

func TestGameJoinBroadcastsFirstTick(t *testing.T) {
	g := newTestGame(t, nil)
	b, heroID := joinGame(t, g, "s1")

	if heroID != "hero0" {
		t.Errorf("expected hero0, got %s", heroID)
	}
	joined := b.joined(t)
	if joined.HeroID != heroID || joined.GameID != g.ID {
		t.Errorf("expected joined %s in %s, got %+v", heroID, g.ID, joined)
	}
	if len(joined.History) != 0 {
		t.Errorf("expected empty history, got %d ticks", len(joined.History))
	}

	if !g.Turn(1) {
		t.Fatal("expected game to run")
	}
	tick := b.lastTick(t)
	if tick.Tick != 0 {
		t.Errorf("expected tick 0, got %d", tick.Tick)
	}
	if len(tick.Actions) != 2 || tick.Actions[0].Type != engine.MsgEnvironment || tick.Actions[1].Type != engine.MsgJoin {
		t.Fatalf("expected environment then join, got %+v", tick.Actions)
	}
	if _, ok := g.world.Hero(heroID); !ok {
		t.Error("expected hero in the server world")
	}
}

func TestGameLateJoinerGetsHistory(t *testing.T) {
	g := newTestGame(t, nil)
	joinGame(t, g, "s1")
	g.Turn(3)

	b, _ := joinGame(t, g, "s2")
	if n := len(b.joined(t).History); n != 3 {
		t.Errorf("expected 3 ticks of history, got %d", n)
	}
}

func TestGameFull(t *testing.T) {
	s := settings.Default()
	s.Matchmaking.MaxPlayers = 2
	g := newTestGame(t, s)
	joinGame(t, g, "s1")
	joinGame(t, g, "s2")

	_, err := g.Join(JoinParams{SocketID: "s3"}, &mockBroadcaster{})
	if !errors.Is(err, engine.ErrGameFull) {
		t.Errorf("expected ErrGameFull, got %v", err)
	}
}

func TestGameReconnectKeepsHero(t *testing.T) {
	g := newTestGame(t, nil)
	b, heroID := joinGame(t, g, "s1")
	key := b.joined(t).ReconnectKey
	g.Leave("s1")

	again, err := g.Join(JoinParams{SocketID: "s2", ReconnectKey: key}, &mockBroadcaster{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != heroID {
		t.Errorf("expected to reconnect as %s, got %s", heroID, again)
	}
}

func TestGameRejoinReusesFreeSlot(t *testing.T) {
	g := newTestGame(t, nil)
	joinGame(t, g, "s1")
	joinGame(t, g, "s2")
	g.Leave("s1")

	_, heroID := joinGame(t, g, "s3")
	if heroID != "hero0" {
		t.Errorf("expected the freed slot hero0, got %s", heroID)
	}
}

func TestGameActionPrecedence(t *testing.T) {
	g := newTestGame(t, nil)
	_, heroID := joinGame(t, g, "s1")
	g.Turn(1)

	g.ReceiveAction("s1", spell(heroID, settings.ActionMove))
	g.ReceiveAction("s1", spell(heroID, "fireball"))
	g.ReceiveAction("s1", spell(heroID, settings.ActionMove))

	if got := g.actions[heroID].SpellID; got != "fireball" {
		t.Errorf("expected fireball to outrank move, got %s", got)
	}

	g.ReceiveAction("s1", spell(heroID, "meteor"))
	if got := g.actions[heroID].SpellID; got != "meteor" {
		t.Errorf("expected equal precedence to replace, got %s", got)
	}
}

func TestGameMoveBeforeJoinTickIsDropped(t *testing.T) {
	g := newTestGame(t, nil)
	b, heroID := joinGame(t, g, "s1")

	g.ReceiveAction("s1", spell(heroID, settings.ActionMove))
	if got := g.actions[heroID].Type; got != engine.MsgJoin {
		t.Fatalf("expected the join to stay queued, got %s", got)
	}

	g.Turn(1)
	if _, ok := hasAction(b.lastTick(t), engine.MsgGame); ok {
		t.Error("expected the move to be dropped in the join tick")
	}

	g.ReceiveAction("s1", spell(heroID, settings.ActionMove))
	g.Turn(1)
	if _, ok := hasAction(b.lastTick(t), engine.MsgGame); !ok {
		t.Error("expected the move to arrive once the join tick has passed")
	}
}

func TestGameIgnoresOtherHeroesAndBadActions(t *testing.T) {
	g := newTestGame(t, nil)
	joinGame(t, g, "s1")
	_, other := joinGame(t, g, "s2")
	g.Turn(1)

	g.ReceiveAction("s1", spell(other, "fireball"))
	g.ReceiveAction("s1", engine.ActionMsg{Type: engine.MsgJoin, HeroID: "hero0"})
	g.ReceiveAction("s1", engine.ActionMsg{Type: engine.MsgSync, Tick: 99, Objects: []engine.ObjectSyncMsg{{ID: "hero0"}}})
	g.ReceiveAction("nobody", spell("hero0", "fireball"))

	if len(g.actions) != 0 {
		t.Errorf("expected no queued actions, got %v", g.actionOrder)
	}
}

func TestGameSyncKeepsNewest(t *testing.T) {
	g := newTestGame(t, nil)
	g.Turn(1)

	g.queueAction(&engine.ActionMsg{Type: engine.MsgSync, Tick: 30})
	g.queueAction(&engine.ActionMsg{Type: engine.MsgSync, Tick: 15})
	key := systemHeroID(engine.MsgSync)
	if got := g.actions[key].Tick; got != 30 {
		t.Errorf("expected sync for tick 30, got %d", got)
	}

	g.queueAction(&engine.ActionMsg{Type: engine.MsgSync, Tick: 45})
	if got := g.actions[key].Tick; got != 45 {
		t.Errorf("expected sync for tick 45, got %d", got)
	}
}

func TestGameInjectsSyncFromServerWorld(t *testing.T) {
	g := newTestGame(t, nil)
	b, _ := joinGame(t, g, "s1")

	var found bool
	for i := 0; i < 2*engine.SnapshotTicks && !found; i++ {
		g.Turn(1)
		_, found = hasAction(b.lastTick(t), engine.MsgSync)
	}
	if !found {
		t.Error("expected a sync action in the broadcast ticks")
	}
}

func TestGameBotControl(t *testing.T) {
	g := newTestGame(t, nil)
	joinGame(t, g, "s1")
	joinGame(t, g, "s2")

	botID, ok := g.AddBot()
	if !ok {
		t.Fatal("expected bot to be added")
	}
	g.Turn(1)

	g.ReceiveAction("s1", spell(botID, "fireball"))
	if _, ok := g.actions[botID]; !ok {
		t.Fatal("expected first socket to take control of the bot")
	}
	g.Turn(1)

	g.ReceiveAction("s2", spell(botID, "fireball"))
	if _, ok := g.actions[botID]; ok {
		t.Error("expected second socket to be refused control")
	}

	g.Leave("s1")
	if g.bots[botID] != "" {
		t.Errorf("expected bot released on leave, got controller %q", g.bots[botID])
	}
	if _, ok := g.bots["hero0"]; !ok {
		t.Error("expected leaving hero to become a bot")
	}

	g.Leave("s2")
	if len(g.bots) != 0 {
		t.Errorf("expected bots cleared once nobody is left, got %v", g.bots)
	}
}

func TestGameAddBotNeedsPlayers(t *testing.T) {
	g := newTestGame(t, nil)
	if _, ok := g.AddBot(); ok {
		t.Error("expected no bot in an empty game")
	}
}

func TestGameClosesAfterSpellWithCompany(t *testing.T) {
	s := settings.Default()
	s.Matchmaking.TeamGameChance = 0
	g := newTestGame(t, s)
	b, heroID := joinGame(t, g, "s1")
	joinGame(t, g, "s2")
	g.Turn(1)

	g.ReceiveAction("s1", spell(heroID, "fireball"))
	g.Turn(1)
	wantClose := g.tick + s.Matchmaking.JoinPeriodTicks
	if g.closeTick != wantClose {
		t.Errorf("expected close tick %d, got %d", wantClose, g.closeTick)
	}

	g.Turn(1)
	closing, ok := hasAction(b.lastTick(t), engine.MsgClose)
	if !ok {
		t.Fatal("expected close action to be broadcast")
	}
	if closing.WaitPeriod != s.Matchmaking.JoinPeriodTicks || closing.CloseTick != wantClose {
		t.Errorf("expected close at %d after %d, got %+v", wantClose, s.Matchmaking.JoinPeriodTicks, closing)
	}

	for g.tick < wantClose {
		g.Turn(1)
	}
	if g.IsJoinable() {
		t.Error("expected game to be unjoinable after the join period")
	}
	if _, err := g.Join(JoinParams{SocketID: "s3"}, &mockBroadcaster{}); !errors.Is(err, engine.ErrGameFull) {
		t.Errorf("expected late join to fail, got %v", err)
	}
}

func TestGameAloneDoesNotClose(t *testing.T) {
	g := newTestGame(t, nil)
	_, heroID := joinGame(t, g, "s1")
	g.Turn(1)

	g.ReceiveAction("s1", spell(heroID, "fireball"))
	g.Turn(1)
	if g.closeTick != g.settings.Matchmaking.MaxHistoryLength {
		t.Errorf("expected close tick untouched, got %d", g.closeTick)
	}
}

func TestGameClosesWhenHistoryFull(t *testing.T) {
	s := settings.Default()
	s.Matchmaking.MaxHistoryLength = 5
	g := newTestGame(t, s)
	joinGame(t, g, "s1")

	for i := 0; i < 8; i++ {
		g.Turn(1)
	}
	if g.IsJoinable() {
		t.Error("expected full history to close the game")
	}
	if len(g.history) != 5 {
		t.Errorf("expected history capped at 5, got %d", len(g.history))
	}
}

func TestGameChooseNumTeams(t *testing.T) {
	s := settings.Default()
	s.Matchmaking.TeamGameChance = 1
	g := newTestGame(t, s)
	for _, id := range []string{"s1", "s2", "s3", "s4"} {
		if _, err := g.Join(JoinParams{SocketID: id, UserID: id}, &mockBroadcaster{}); err != nil {
			t.Fatalf("join: %v", err)
		}
	}

	if n := g.chooseNumTeams(4); n != 2 {
		t.Errorf("expected 2 teams of 2, got %d", n)
	}
	if n := g.chooseNumTeams(3); n != 0 {
		t.Errorf("expected free for all under the minimum, got %d", n)
	}

	g.active["s4"].UserID = ""
	if n := g.chooseNumTeams(4); n != 0 {
		t.Errorf("expected free for all with a guest, got %d", n)
	}
}

func TestGameStopsWhenIdle(t *testing.T) {
	s := settings.Default()
	s.Matchmaking.MaxIdleTicks = 3
	g := newTestGame(t, s)
	joinGame(t, g, "s1")

	var turns int
	for g.Turn(1) {
		turns++
		if turns > 10 {
			t.Fatal("expected idle game to stop")
		}
	}
	if g.IsRunning() {
		t.Error("expected game to report idle")
	}

	g.ReceiveText("s1", "hello")
	if !g.Turn(1) {
		t.Error("expected input to wake the game")
	}
}

func TestGameRecordsResultOnce(t *testing.T) {
	g := newTestGame(t, nil)
	joinGame(t, g, "s1")
	joinGame(t, g, "s2")
	g.Turn(1)

	g.queueAction(&engine.ActionMsg{Type: engine.MsgClose, HeroID: systemHeroID(engine.MsgClose), CloseTick: g.world.CurrentTick() + 1})
	g.Turn(1)

	loser, ok := g.world.Hero("hero1")
	if !ok {
		t.Fatal("expected hero1")
	}
	loser.KillerHeroID = "hero0"
	loser.Health = 0
	g.Turn(10)

	result := g.TakeResult()
	if result == nil {
		t.Fatal("expected a result")
	}
	if result.Winner != "hero0" {
		t.Errorf("expected winner hero0, got %q", result.Winner)
	}
	if len(result.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(result.Players))
	}
	first := result.Players[0]
	if first.HeroID != "hero0" || first.Rank != 1 || !first.Won || first.Kills != 1 {
		t.Errorf("expected hero0 ranked first with a kill, got %+v", first)
	}
	if result.Players[1].Won {
		t.Error("expected hero1 to lose")
	}

	g.Turn(1)
	if g.TakeResult() != nil {
		t.Error("expected the result only once")
	}
}

func TestGameCloseNotifiesSockets(t *testing.T) {
	g := newTestGame(t, nil)
	b, _ := joinGame(t, g, "s1")
	g.Close()

	if !g.Finished() {
		t.Error("expected no sockets left")
	}
	last := b.messages[len(b.messages)-1].(Envelope)
	if last.T != MsgLeft {
		t.Errorf("expected left message, got %s", last.T)
	}
}

func TestIsSpell(t *testing.T) {
	cases := []struct {
		msg  engine.ActionMsg
		want bool
	}{
		{spell("a", "fireball"), true},
		{spell("a", settings.ActionMove), false},
		{spell("a", engine.ActionMoveAndCancel), false},
		{spell("a", settings.ActionStop), false},
		{spell("a", settings.ActionRetarget), false},
		{engine.ActionMsg{Type: engine.MsgJoin}, false},
	}
	for _, c := range cases {
		if got := isSpell(c.msg); got != c.want {
			t.Errorf("%s/%s: expected %v, got %v", c.msg.Type, c.msg.SpellID, c.want, got)
		}
	}
}
