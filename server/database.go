package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// PlayerRow represents a player record in the database
type PlayerRow struct {
	ID        int64
	Username  string
	PassHash  string
	CreatedAt time.Time
}

// StatsRow represents lifetime player stats
type StatsRow struct {
	PlayerID int64
	Games    int
	Wins     int
	Kills    int
	Outlasts int
	Damage   float64
}

// LeaderboardEntry represents one row in the leaderboard
type LeaderboardEntry struct {
	Rank     int     `json:"rank"`
	Username string  `json:"username"`
	Games    int     `json:"games"`
	Wins     int     `json:"wins"`
	Kills    int     `json:"kills"`
	Outlasts int     `json:"outlasts"`
	Damage   float64 `json:"damage"`
}

// GamePlayerRow is one player's line of a recorded game
type GamePlayerRow struct {
	GameID   string
	HeroID   string
	PlayerID sql.NullInt64
	Name     string
	Team     string
	Rank     int
	Kills    int
	Outlasts int
	Damage   float64
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer avoids SQLITE_BUSY between result recording and auth
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS stats (
		player_id INTEGER PRIMARY KEY REFERENCES players(id),
		games INTEGER NOT NULL DEFAULT 0,
		wins INTEGER NOT NULL DEFAULT 0,
		kills INTEGER NOT NULL DEFAULT 0,
		outlasts INTEGER NOT NULL DEFAULT 0,
		damage REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		ticks INTEGER NOT NULL DEFAULT 0,
		winner TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS game_players (
		game_id TEXT NOT NULL REFERENCES games(id),
		hero_id TEXT NOT NULL,
		player_id INTEGER REFERENCES players(id),
		name TEXT NOT NULL DEFAULT '',
		team TEXT NOT NULL DEFAULT '',
		rank INTEGER NOT NULL DEFAULT 0,
		kills INTEGER NOT NULL DEFAULT 0,
		outlasts INTEGER NOT NULL DEFAULT 0,
		damage REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (game_id, hero_id)
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS achievements (
		player_id INTEGER NOT NULL REFERENCES players(id),
		achievement_id TEXT NOT NULL,
		unlocked_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (player_id, achievement_id)
	);

	CREATE INDEX IF NOT EXISTS idx_game_players_player ON game_players(player_id);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// GetSetting returns a server setting, or "" when unset
func (db *DB) GetSetting(key string) (string, error) {
	var value string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetSetting stores a server setting
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// CreatePlayer creates a new player account (returns player ID)
func (db *DB) CreatePlayer(username, passHash string) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec("INSERT INTO players (username, pass_hash) VALUES (?, ?)", username, passHash)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec("INSERT INTO stats (player_id) VALUES (?)", id); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// GetPlayerByUsername returns a player by username, or nil when there is none
func (db *DB) GetPlayerByUsername(username string) (*PlayerRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM players WHERE username = ?",
		username,
	)
	p := &PlayerRow{}
	err := row.Scan(&p.ID, &p.Username, &p.PassHash, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// UsernameExists checks if a username is taken
func (db *DB) UsernameExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM players WHERE username = ?", username).Scan(&count)
	return count > 0, err
}

// GetStats returns player stats, or nil when the player is unknown
func (db *DB) GetStats(playerID int64) (*StatsRow, error) {
	row := db.conn.QueryRow(
		"SELECT player_id, games, wins, kills, outlasts, damage FROM stats WHERE player_id = ?",
		playerID,
	)
	s := &StatsRow{}
	err := row.Scan(&s.PlayerID, &s.Games, &s.Wins, &s.Kills, &s.Outlasts, &s.Damage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// RecordGame stores a decided match and adds it to the stats and
// achievements of every logged in player who took part
func (db *DB) RecordGame(ctx context.Context, result *GameResult) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO games (id, ticks, winner) VALUES (?, ?, ?)",
		result.GameID, result.Ticks, result.Winner,
	); err != nil {
		return fmt.Errorf("insert game: %w", err)
	}

	for _, p := range result.Players {
		var playerID sql.NullInt64
		if p.UserID != "" {
			id, err := strconv.ParseInt(p.UserID, 10, 64)
			if err == nil {
				playerID = sql.NullInt64{Int64: id, Valid: true}
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO game_players (game_id, hero_id, player_id, name, team, rank, kills, outlasts, damage)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.GameID, p.HeroID, playerID, p.Name, p.Team, p.Rank, p.Kills, p.Outlasts, p.Damage,
		); err != nil {
			return fmt.Errorf("insert game player %s: %w", p.HeroID, err)
		}

		if !playerID.Valid {
			continue
		}
		wins := 0
		if p.Won {
			wins = 1
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE stats SET
				games = games + 1,
				wins = wins + ?,
				kills = kills + ?,
				outlasts = outlasts + ?,
				damage = damage + ?
			WHERE player_id = ?`,
			wins, p.Kills, p.Outlasts, p.Damage, playerID.Int64,
		); err != nil {
			return fmt.Errorf("update stats %d: %w", playerID.Int64, err)
		}
		unlocked, err := unlockAchievements(ctx, tx, playerID.Int64, p)
		if err != nil {
			return fmt.Errorf("achievements %d: %w", playerID.Int64, err)
		}
		for _, id := range unlocked {
			log.Printf("Game [%s]: player %d unlocked %s", result.GameID, playerID.Int64, id)
		}
	}
	return tx.Commit()
}

// GetGamePlayers returns the recorded lines of a game, best rank first
func (db *DB) GetGamePlayers(gameID string) ([]GamePlayerRow, error) {
	rows, err := db.conn.Query(`
		SELECT game_id, hero_id, player_id, name, team, rank, kills, outlasts, damage
		FROM game_players WHERE game_id = ? ORDER BY rank`,
		gameID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GamePlayerRow
	for rows.Next() {
		var r GamePlayerRow
		if err := rows.Scan(&r.GameID, &r.HeroID, &r.PlayerID, &r.Name, &r.Team, &r.Rank, &r.Kills, &r.Outlasts, &r.Damage); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// GetLeaderboard returns top players sorted by the given field
func (db *DB) GetLeaderboard(orderBy string, limit int) ([]LeaderboardEntry, error) {
	// Whitelist valid order columns
	validCols := map[string]string{
		"wins": "s.wins", "kills": "s.kills", "outlasts": "s.outlasts",
		"damage": "s.damage", "games": "s.games",
		"winrate": "CASE WHEN s.games > 0 THEN CAST(s.wins AS REAL)/s.games ELSE 0 END",
	}
	col, ok := validCols[orderBy]
	if !ok {
		col = "s.wins"
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	query := `SELECT p.username, s.games, s.wins, s.kills, s.outlasts, s.damage
		FROM stats s JOIN players p ON p.id = s.player_id
		ORDER BY ` + col + ` DESC, p.username LIMIT ?`

	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LeaderboardEntry
	rank := 1
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Games, &e.Wins, &e.Kills, &e.Outlasts, &e.Damage); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		result = append(result, e)
	}
	return result, rows.Err()
}
