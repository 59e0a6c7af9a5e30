package main

import (
	"context"
	"database/sql"
)

// Achievement definitions
type AchievementDef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var Achievements = []AchievementDef{
	{"first_blood", "First Blood", "Get your first kill"},
	{"first_win", "Last Acolyte Standing", "Win a match"},
	{"victor", "Victor", "Win 10 matches"},
	{"champion", "Champion", "Win 100 matches"},
	{"slayer", "Slayer", "Reach 100 total kills"},
	{"rampage", "Rampage", "Get 5 kills in a single match"},
	{"pacifist", "Pacifist", "Win a match without a kill"},
	{"survivor", "Survivor", "Outlast 100 acolytes in total"},
	{"veteran", "Veteran", "Play 50 matches"},
}

// achievementEarned reports whether a player's lifetime stats after a match,
// and their line of that match, earn the achievement
func achievementEarned(id string, stats *StatsRow, match PlayerResult) bool {
	switch id {
	case "first_blood":
		return stats.Kills >= 1
	case "first_win":
		return stats.Wins >= 1
	case "victor":
		return stats.Wins >= 10
	case "champion":
		return stats.Wins >= 100
	case "slayer":
		return stats.Kills >= 100
	case "rampage":
		return match.Kills >= 5
	case "pacifist":
		return match.Won && match.Kills == 0
	case "survivor":
		return stats.Outlasts >= 100
	case "veteran":
		return stats.Games >= 50
	}
	return false
}

// unlockAchievements grants every achievement newly earned by a match.
// Runs inside the transaction that updated the stats.
func unlockAchievements(ctx context.Context, tx *sql.Tx, playerID int64, match PlayerResult) ([]string, error) {
	stats := &StatsRow{PlayerID: playerID}
	err := tx.QueryRowContext(ctx,
		"SELECT games, wins, kills, outlasts, damage FROM stats WHERE player_id = ?",
		playerID,
	).Scan(&stats.Games, &stats.Wins, &stats.Kills, &stats.Outlasts, &stats.Damage)
	if err != nil {
		return nil, err
	}

	var unlocked []string
	for _, def := range Achievements {
		if !achievementEarned(def.ID, stats, match) {
			continue
		}
		res, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO achievements (player_id, achievement_id) VALUES (?, ?)",
			playerID, def.ID,
		)
		if err != nil {
			return nil, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			unlocked = append(unlocked, def.ID)
		}
	}
	return unlocked, nil
}

// GetAchievements returns the ids of the achievements a player has unlocked
func (db *DB) GetAchievements(playerID int64) ([]string, error) {
	rows, err := db.conn.Query(
		"SELECT achievement_id FROM achievements WHERE player_id = ? ORDER BY unlocked_at, achievement_id",
		playerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
