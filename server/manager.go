package main

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"arena-server/internal/engine"
	"arena-server/internal/settings"
)

const defaultMaxGames = 100

var ErrTooManyGames = errors.New("too many active games")

// GameManager creates, finds and advances games
type GameManager struct {
	mu           sync.RWMutex
	games        map[string]*Game
	settings     *settings.Settings
	recorder     ResultRecorder
	maxGames     int
	ticksPerTurn int
	nextSeed     int64
}

// NewGameManager creates a GameManager. recorder may be nil.
func NewGameManager(s *settings.Settings, recorder ResultRecorder, maxGames, ticksPerTurn int) *GameManager {
	if maxGames <= 0 {
		maxGames = defaultMaxGames
	}
	if ticksPerTurn <= 0 {
		ticksPerTurn = 1
	}
	return &GameManager{
		games:        make(map[string]*Game),
		settings:     s,
		recorder:     recorder,
		maxGames:     maxGames,
		ticksPerTurn: ticksPerTurn,
		nextSeed:     time.Now().UnixNano(),
	}
}

// CreateGame starts a new empty game
func (m *GameManager) CreateGame(private bool) (*Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createGame(private)
}

func (m *GameManager) createGame(private bool) (*Game, error) {
	if len(m.games) >= m.maxGames {
		return nil, ErrTooManyGames
	}
	m.nextSeed++
	g, err := NewGame(m.settings, m.nextSeed, private, m.ticksPerTurn)
	if err != nil {
		return nil, err
	}
	m.games[g.ID] = g
	log.Printf("Game [%s]: created (private=%v)", g.ID, private)
	return g, nil
}

// JoinGame joins the given game, or the emptiest public game with a free
// slot when gameID is empty. A new game is created when none fits.
// The manager lock is held throughout so the reaper never sees the new
// game before its first player.
func (m *GameManager) JoinGame(gameID string, private bool, params JoinParams, client Broadcaster) (*Game, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var g *Game
	if gameID != "" {
		g = m.games[gameID]
		if g == nil {
			return nil, "", engine.ErrUnknownGame
		}
	} else if !private {
		g = m.findJoinable()
	}

	if g == nil {
		var err error
		if g, err = m.createGame(private); err != nil {
			return nil, "", err
		}
	}

	heroID, err := g.Join(params, client)
	if err != nil {
		return nil, "", err
	}
	return g, heroID, nil
}

// findJoinable picks the public joinable game with the fewest players
func (m *GameManager) findJoinable() *Game {
	var best *Game
	bestPlayers := 0
	for _, g := range m.games {
		if g.Private || !g.IsJoinable() {
			continue
		}
		n := g.PlayerCount()
		if n >= m.settings.Matchmaking.MaxPlayers {
			continue
		}
		if best == nil || n < bestPlayers {
			best, bestPlayers = g, n
		}
	}
	return best
}

// Game returns a game by id
func (m *GameManager) Game(id string) *Game {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.games[id]
}

// Leave removes a socket from whichever games it plays in
func (m *GameManager) Leave(socketID string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, g := range m.games {
		if g.HasSocket(socketID) {
			g.Leave(socketID)
		}
	}
}

// List returns the public games, oldest first
func (m *GameManager) List() []GameInfo {
	m.mu.RLock()
	games := make([]*Game, 0, len(m.games))
	for _, g := range m.games {
		if !g.Private {
			games = append(games, g)
		}
	}
	m.mu.RUnlock()

	sort.Slice(games, func(i, j int) bool { return games[i].Created.Before(games[j].Created) })
	list := make([]GameInfo, 0, len(games))
	for _, g := range games {
		list = append(list, g.Info())
	}
	return list
}

// Count returns the number of games
func (m *GameManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}

// Turn advances every game once, records decided matches and reaps games
// that everyone has left or that stopped ticking
func (m *GameManager) Turn(ctx context.Context) {
	m.mu.RLock()
	games := make([]*Game, 0, len(m.games))
	for _, g := range m.games {
		games = append(games, g)
	}
	m.mu.RUnlock()

	var reap []*Game
	for _, g := range games {
		running := g.Turn(m.ticksPerTurn)
		if result := g.TakeResult(); result != nil && m.recorder != nil {
			if err := m.recorder.RecordGame(ctx, result); err != nil {
				log.Printf("Game [%s]: record result: %v", g.ID, err)
			}
		}
		if !running || g.Finished() {
			reap = append(reap, g)
		}
	}

	if len(reap) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range reap {
		// a join may have landed since the turn
		if g.Finished() {
			delete(m.games, g.ID)
			log.Printf("Game [%s]: finished", g.ID)
		} else if !g.IsRunning() {
			g.Close()
			delete(m.games, g.ID)
			log.Printf("Game [%s]: reaped idle", g.ID)
		}
	}
}

// Run advances all games on one shared ticker until ctx is cancelled
func (m *GameManager) Run(ctx context.Context) error {
	interval := time.Duration(m.ticksPerTurn) * time.Second / time.Duration(engine.TicksPerSecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Turn(ctx)
		}
	}
}
