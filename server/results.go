package main

//go:generate mockgen -source=results.go -destination=mock_recorder_test.go -package=main

import (
	"context"
	"slices"
	"sort"

	"arena-server/internal/engine"
)

// ResultRecorder persists the outcome of a decided match
type ResultRecorder interface {
	RecordGame(ctx context.Context, result *GameResult) error
}

// GameResult is the outcome of one match
type GameResult struct {
	GameID  string
	Ticks   int
	Winner  string
	Players []PlayerResult
}

// PlayerResult is one hero's line of a GameResult
type PlayerResult struct {
	HeroID   string
	Name     string
	UserID   string // empty for guests and bots
	Team     string
	Rank     int
	Kills    int
	Outlasts int
	Damage   float64
	Won      bool
	IsBot    bool
}

// buildResult reads the final scores out of a world with a winner
func buildResult(gameID string, world *engine.World) *GameResult {
	result := &GameResult{
		GameID: gameID,
		Ticks:  world.CurrentTick(),
		Winner: world.Winner(),
	}
	winners := world.Winners()
	for _, player := range world.Players() {
		line := PlayerResult{
			HeroID: player.HeroID,
			Name:   player.Name,
			UserID: player.UserID,
			Team:   world.TeamOf(player.HeroID),
			Won:    slices.Contains(winners, player.HeroID),
			IsBot:  player.IsBot,
		}
		if score, ok := world.Score(player.HeroID); ok {
			line.Rank = score.Rank
			line.Kills = score.Kills
			line.Outlasts = score.Outlasts
			line.Damage = score.Damage
		}
		result.Players = append(result.Players, line)
	}
	sort.Slice(result.Players, func(i, j int) bool {
		a, b := result.Players[i], result.Players[j]
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.HeroID < b.HeroID
	})
	return result
}
