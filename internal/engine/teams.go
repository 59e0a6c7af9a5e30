package engine

import (
	"fmt"
	"math"
	"slices"
	"sort"
)

// assignTeams splits the players into numTeams teams, keeping parties together
// where team sizes allow. It returns nil for a free-for-all.
func (w *World) assignTeams(numTeams int) [][]string {
	if numTeams <= 1 || len(w.playerOrder) == 0 {
		return nil
	}
	perTeam := int(math.Ceil(float64(len(w.playerOrder)) / float64(numTeams)))

	// every observer must produce the same teams, so order by party then reverse join order
	players := slices.Clone(w.playerOrder)
	slices.Reverse(players)
	sort.SliceStable(players, func(i, j int) bool {
		return w.players[players[i]].PartyHash > w.players[players[j]].PartyHash
	})

	var teams [][]string
	for _, heroID := range players {
		partyHash := w.players[heroID].PartyHash

		index := -1
		for i, team := range teams {
			if len(team) < perTeam && w.players[team[0]].PartyHash == partyHash {
				index = i
				break
			}
		}
		if index < 0 && len(teams) < numTeams {
			teams = append(teams, nil)
			index = len(teams) - 1
		}
		if index < 0 {
			index = 0
			for i, team := range teams {
				if len(team) < len(teams[index]) {
					index = i
				}
			}
		}
		teams[index] = append(teams[index], heroID)
	}

	for i, team := range teams {
		teamID := fmt.Sprintf("team%d", i)
		for _, heroID := range team {
			w.teamAssignments[heroID] = teamID
		}
		if _, ok := w.teams[teamID]; !ok {
			w.teamOrder = append(w.teamOrder, teamID)
		}
		w.teams[teamID] = &Team{ID: teamID, HeroIDs: team}
	}
	return teams
}
