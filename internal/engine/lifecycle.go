package engine

import (
	"math"
	"sort"

	"arena-server/internal/vector"
)

func (w *World) applyLavaDamage() {
	worldSettings := w.settings.World
	if w.tick%worldSettings.LavaDamageInterval != 0 {
		return
	}

	packet := DamagePacket{
		Damage:     float64(worldSettings.LavaDamageInterval) / TicksPerSecond * worldSettings.LavaDamagePerSecond,
		LifeSteal:  worldSettings.LavaLifestealProportion,
		IsLava:     true,
		NoMitigate: true,
	}
	for _, obj := range w.Objects() {
		switch o := obj.(type) {
		case *Hero:
			if w.IsInsideMap(o.Position(), o.Radius) {
				continue
			}
			multiplier := o.lavaProportion()
			if multiplier >= 0 {
				heroPacket := packet
				heroPacket.Damage *= multiplier
				heroPacket.FromHeroID = w.knockbackFromID(o)
				w.applyDamage(o, heroPacket)
			}
		case *Obstacle:
			if !w.IsInsideMap(o.Position(), o.Shape.MinExtent()) {
				w.applyDamageToObstacle(o, packet)
			}
		}
	}
}

// IsInsideMap reports whether a circle at pos with radius extent lies
// entirely within the current arena
func (w *World) IsInsideMap(pos vector.Vec2, extent float64) bool {
	if w.radius <= 0 {
		return false
	}

	polygonRadius := w.mapRadiusMultiplier * w.radius
	if w.mapPoints == nil {
		return vector.Distance(pos, center) < polygonRadius-extent
	}

	scaledDiff := pos.Sub(center).Scale(1 / polygonRadius)
	scaledExtent := -extent / polygonRadius
	for i, a := range w.mapPoints {
		b := w.mapPoints[(i+1)%len(w.mapPoints)]
		if !vector.InsideLine(scaledDiff, scaledExtent, a, b, true) {
			return false
		}
	}
	return true
}

// shrink contracts the arena after the match starts, faster with more players
func (w *World) shrink() {
	if w.tick < w.startTick || w.winner != "" {
		return
	}
	worldSettings := w.settings.World

	seconds := float64(w.tick-w.startTick) / TicksPerSecond
	proportion := math.Max(0, 1-seconds/worldSettings.SecondsToShrink)

	alpha := math.Min(1, float64(len(w.players))/float64(w.settings.Matchmaking.MaxPlayers))
	power := alpha*worldSettings.ShrinkPowerMaxPlayers + (1-alpha)*worldSettings.ShrinkPowerMinPlayers
	w.radius = worldSettings.InitialRadius * math.Pow(proportion, power)
}

func (w *World) reap() {
	heroKilled := false
	for _, obj := range w.Objects() {
		switch o := obj.(type) {
		case *Hero:
			exited := o.ExitTick > 0 && w.tick >= o.ExitTick+ExitTicks
			if exited || (o.Health <= 0 && !w.hasHorcrux(o)) {
				w.destroyObject(o)
				if o.ExitTick == 0 {
					w.notifyKill(o)
				}
				heroKilled = true
			}
		case *Projectile:
			if w.tick >= o.ExpireTick {
				w.detonateProjectile(o)
				w.swapOnExpiry(o)
				w.destroyObject(o)
			}
		case *Obstacle:
			if o.Health <= 0 {
				w.detonateObstacle(o)
				w.destroyObject(o)
			}
		case *Shield:
			if w.tick >= o.ExpireTick {
				w.destroyObject(o)
			}
		}
	}

	w.compactObjectOrder()
	w.pruneBehaviours()

	if heroKilled {
		w.notifyWin()
	}
}

func (w *World) compactObjectOrder() {
	if len(w.objectOrder) == len(w.objects) {
		return
	}
	kept := w.objectOrder[:0]
	for _, id := range w.objectOrder {
		if _, ok := w.objects[id]; ok {
			kept = append(kept, id)
		}
	}
	w.objectOrder = kept
}

func (w *World) hasHorcrux(hero *Hero) bool {
	found := false
	for id := range hero.HorcruxIDs {
		if _, ok := w.objects[id]; ok {
			found = true
		} else {
			delete(hero.HorcruxIDs, id)
		}
	}
	return found
}

func (w *World) destroyObject(obj Object) {
	delete(w.objects, obj.ID())
	w.physics.DestroyBody(obj.Body())
	w.emit(&DestroyEvent{Tick: w.tick, ObjectID: obj.ID()})
}

func (w *World) notifyKill(hero *Hero) {
	killed, ok := w.players[hero.id]
	if !ok {
		return
	}
	killed.Dead = true

	var killer *Player
	if p, ok := w.players[hero.KillerHeroID]; ok {
		copied := *p
		killer = &copied
	}
	w.notify(&KillNotification{Killed: *killed, Killer: killer})

	if w.winner != "" {
		return
	}
	if score, ok := w.scores[hero.id]; ok {
		score.DeathTick = w.tick
	}
	if score, ok := w.scores[hero.KillerHeroID]; ok {
		score.Kills++
	}
	for _, id := range w.playerOrder {
		if player := w.players[id]; !player.Dead {
			if score, ok := w.scores[player.HeroID]; ok {
				score.Outlasts++
			}
		}
	}
}

// isGameFinished reports whether at most one team still has heroes alive
func (w *World) isGameFinished() bool {
	heroes := w.Heroes()
	if len(heroes) == 0 {
		return true
	}
	firstTeam := w.teamOf(heroes[0].id)
	for _, hero := range heroes[1:] {
		if w.teamOf(hero.id) != firstTeam {
			return false
		}
	}
	return true
}

// notifyWin ranks the scores and declares the winning team once the match is decided
func (w *World) notifyWin() {
	if w.winner != "" || !w.isGameFinished() {
		return
	}

	scores := w.Scores()
	if len(scores) == 0 {
		return
	}
	survival := func(s *Score) float64 {
		if s.DeathTick == 0 {
			return math.Inf(1)
		}
		return float64(s.DeathTick)
	}
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if survival(a) != survival(b) {
			return survival(a) > survival(b)
		}
		if a.Kills != b.Kills {
			return a.Kills > b.Kills
		}
		return a.Damage > b.Damage
	})
	for i, score := range scores {
		score.Rank = i + 1
	}

	var mostDamage, mostKills *Score
	for _, score := range w.Scores() {
		if mostDamage == nil || score.Damage > mostDamage.Damage {
			mostDamage = score
		}
		if mostKills == nil || score.Kills > mostKills.Kills {
			mostKills = score
		}
	}

	best := scores[0]
	winningTeam := w.teamOf(best.HeroID)
	w.winner = best.HeroID
	w.winners = nil
	notification := &WinNotification{
		MostDamageAmount: mostDamage.Damage,
		MostKillsCount:   mostKills.Kills,
	}
	for _, score := range scores {
		if w.teamOf(score.HeroID) != winningTeam {
			continue
		}
		w.winners = append(w.winners, score.HeroID)
		if player, ok := w.players[score.HeroID]; ok {
			notification.Winners = append(notification.Winners, *player)
		}
	}
	if player, ok := w.players[mostDamage.HeroID]; ok {
		notification.MostDamage = *player
	}
	if player, ok := w.players[mostKills.HeroID]; ok {
		notification.MostKills = *player
	}
	w.notify(notification)

	w.removeBots()
}

// removeBots sends bots home once the match is decided
func (w *World) removeBots() {
	for _, id := range w.playerOrder {
		player := w.players[id]
		if !player.IsBot {
			continue
		}
		if hero, ok := w.Hero(player.HeroID); ok {
			hero.ExitTick = w.tick + BotsExitAfterTicks
		}
		player.Dead = true
	}
}
