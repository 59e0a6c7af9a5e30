package engine

import (
	"sort"
	"testing"

	"arena-server/internal/settings"
	"arena-server/internal/vector"
	"pgregory.net/rapid"
)

func startMatch(w *World) {
	w.QueueOccurrence(&Closing{StartTick: w.CurrentTick() + 1})
	w.Tick()
}

func countWins(notifications []Notification) int {
	n := 0
	for _, notification := range notifications {
		if _, ok := notification.(*WinNotification); ok {
			n++
		}
	}
	return n
}

func TestLastHeroStandingWinsOnce(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a", "b")
	startMatch(w)
	w.TakeNotifications()

	b := mustHero(t, w, "b")
	b.KillerHeroID = "a"
	b.Health = 0

	var notifications []Notification
	for i := 0; i < 10; i++ {
		w.Tick()
		notifications = append(notifications, w.TakeNotifications()...)
	}

	if wins := countWins(notifications); wins != 1 {
		t.Errorf("expected 1 win notification, got %d", wins)
	}
	if w.Winner() != "a" {
		t.Errorf("expected winner a, got %q", w.Winner())
	}
	if _, ok := w.Hero("b"); ok {
		t.Error("expected dead hero to be removed")
	}

	score, _ := w.Score("a")
	if score.Kills != 1 {
		t.Errorf("expected 1 kill, got %d", score.Kills)
	}
	if score.Rank != 1 {
		t.Errorf("expected winner to rank 1, got %d", score.Rank)
	}
	if loser, _ := w.Score("b"); loser.Rank != 2 {
		t.Errorf("expected loser to rank 2, got %d", loser.Rank)
	}
}

func TestKillNotificationNamesKiller(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a", "b", "c")
	startMatch(w)
	w.TakeNotifications()

	b := mustHero(t, w, "b")
	b.KillerHeroID = "a"
	b.Health = 0
	w.Tick()

	var kill *KillNotification
	for _, n := range w.TakeNotifications() {
		if k, ok := n.(*KillNotification); ok {
			kill = k
		}
	}
	if kill == nil {
		t.Fatal("expected a kill notification")
	}
	if kill.Killed.HeroID != "b" {
		t.Errorf("expected b killed, got %q", kill.Killed.HeroID)
	}
	if kill.Killer == nil || kill.Killer.HeroID != "a" {
		t.Errorf("expected killer a, got %v", kill.Killer)
	}
	if w.Winner() != "" {
		t.Errorf("expected no winner with two heroes left, got %q", w.Winner())
	}
}

func TestLeaveAfterWinRemovesHero(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a", "b")
	startMatch(w)
	mustHero(t, w, "b").Health = 0
	w.Tick()

	w.QueueOccurrence(&Leave{HeroID: "a"})
	for i := 0; i <= ExitTicks+1; i++ {
		w.Tick()
	}
	if _, ok := w.Hero("a"); ok {
		t.Error("expected leaving hero to exit after the win")
	}
}

func TestLeaveBeforeWinHandsHeroToBot(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a", "b")
	w.QueueOccurrence(&Leave{HeroID: "a"})
	w.Tick()

	player, _ := w.Player("a")
	if !player.IsBot {
		t.Error("expected player to become a bot")
	}
	if w.IsActive("a") {
		t.Error("expected player to be inactive")
	}
	if _, ok := w.Hero("a"); !ok {
		t.Error("expected hero to stay in the match")
	}
}

func TestLavaDamagesHeroOutsideArena(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a", "b")
	startMatch(w)

	a := mustHero(t, w, "a")
	a.body.SetPosition(vector.New(0.5+w.Radius()+0.1, 0.5))
	for i := 0; i < w.Settings().World.LavaDamageInterval; i++ {
		w.Tick()
	}
	if a.Health >= a.MaxHealth {
		t.Errorf("expected lava damage, got health %f", a.Health)
	}
}

func TestShrinkIsMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numHeroes := rapid.IntRange(1, 4).Draw(t, "numHeroes")
		numTicks := rapid.IntRange(1, 120).Draw(t, "numTicks")

		ids := make([]string, numHeroes)
		for i := range ids {
			ids[i] = string(rune('a' + i))
		}
		w := newTestWorld(t, testSettings(), ids...)
		w.QueueOccurrence(&Closing{StartTick: 2})

		previous := w.Radius()
		for i := 0; i < numTicks; i++ {
			w.Tick()
			if w.Radius() > previous {
				t.Fatalf("radius grew from %f to %f at tick %d", previous, w.Radius(), w.CurrentTick())
			}
			if w.Radius() < 0 {
				t.Fatalf("radius went negative at tick %d", w.CurrentTick())
			}
			previous = w.Radius()
		}
	})
}

func TestBehavioursNeverOutliveTheirObjects(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := testSettings()
		w := newTestWorld(t, s, "a", "b", "c")
		startMatch(w)

		numTicks := rapid.IntRange(1, 150).Draw(t, "numTicks")
		for i := 0; i < numTicks; i++ {
			for _, hero := range w.Heroes() {
				if !rapid.Bool().Draw(t, "cast") {
					continue
				}
				keys := make([]string, 0, len(hero.KeysToSpells))
				for key := range hero.KeysToSpells {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				key := rapid.SampledFrom(keys).Draw(t, "key")
				target := vector.New(
					rapid.Float64Range(0, 1).Draw(t, "x"),
					rapid.Float64Range(0, 1).Draw(t, "y"),
				)
				w.QueueAction(hero.id, Action{Type: hero.KeysToSpells[key], Target: target})
			}

			w.Tick()

			for _, b := range w.Behaviours() {
				for _, ref := range b.Refs() {
					if _, ok := w.Object(ref); !ok {
						t.Fatalf("%s behaviour refers to missing object %s at tick %d", b.Kind(), ref, w.CurrentTick())
					}
				}
			}
			if wins := countWins(w.TakeNotifications()); wins > 1 {
				t.Fatalf("expected at most one win per tick, got %d", wins)
			}
		}
	})
}

func TestAssignTeamsKeepsPartiesTogether(t *testing.T) {
	w := newTestWorld(t, testSettings())
	joins := []Join{
		{HeroID: "a", PartyHash: "p1"},
		{HeroID: "b"},
		{HeroID: "c", PartyHash: "p1"},
		{HeroID: "d"},
	}
	for i := range joins {
		w.QueueOccurrence(&joins[i])
	}
	w.Tick()

	teams := w.assignTeams(2)
	if len(teams) != 2 {
		t.Fatalf("expected 2 teams, got %d", len(teams))
	}
	for _, team := range teams {
		if len(team) != 2 {
			t.Errorf("expected teams of 2, got %v", team)
		}
	}
	if w.TeamOf("a") != w.TeamOf("c") {
		t.Errorf("expected party members on one team, got %q and %q", w.TeamOf("a"), w.TeamOf("c"))
	}
	if w.TeamOf("b") == w.TeamOf("a") {
		t.Error("expected b on the other team")
	}
}

func TestAssignTeamsFreeForAll(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a", "b")
	if teams := w.assignTeams(1); teams != nil {
		t.Errorf("expected no teams, got %v", teams)
	}
	if w.TeamOf("a") != "" {
		t.Errorf("expected no team assignment, got %q", w.TeamOf("a"))
	}
}

func TestTeamMatchEndsWhenOneTeamRemains(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a", "b", "c", "d")
	w.QueueOccurrence(&Closing{StartTick: w.CurrentTick() + 1, NumTeams: 2})
	w.Tick()

	teams := w.Teams()
	if len(teams) != 2 {
		t.Fatalf("expected 2 teams, got %d", len(teams))
	}
	for _, heroID := range teams[1].HeroIDs {
		mustHero(t, w, heroID).Health = 0
	}
	w.Tick()

	winners := append([]string(nil), w.Winners()...)
	sort.Strings(winners)
	expected := append([]string(nil), teams[0].HeroIDs...)
	sort.Strings(expected)
	if len(winners) != len(expected) {
		t.Fatalf("expected winners %v, got %v", expected, winners)
	}
	for i := range expected {
		if winners[i] != expected[i] {
			t.Errorf("expected winners %v, got %v", expected, winners)
		}
	}
}

func TestSpellChoosingOnlyBeforeStart(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a", "b")
	if !w.AllowSpellChoosing("a") {
		t.Error("expected spell choosing before the match starts")
	}

	startMatch(w)
	if w.AllowSpellChoosing("a") {
		t.Error("expected spell choosing to be locked during the match")
	}

	hero := mustHero(t, w, "a")
	before := hero.KeysToSpells["q"]
	options := w.Settings().Choices.Options["q"]
	other := options[len(options)-1][len(options[len(options)-1])-1]
	w.QueueOccurrence(&Spells{HeroID: "a", KeyBindings: settings.KeyBindings{"q": other}})
	w.Tick()
	if hero.KeysToSpells["q"] != before {
		t.Errorf("expected binding to stay %s, got %s", before, hero.KeysToSpells["q"])
	}
}
