package engine

import (
	"math"
	"testing"

	"arena-server/internal/settings"
	"arena-server/internal/vector"
)

// tickUntilSnapshot advances the world to the next snapshot tick and returns that snapshot
func tickUntilSnapshot(t *testing.T, w *World) Snapshot {
	t.Helper()
	w.Tick()
	for w.CurrentTick()%SnapshotTicks != 0 {
		w.Tick()
	}
	snapshots := w.Snapshots()
	if len(snapshots) == 0 {
		t.Fatal("expected a snapshot")
	}
	snapshot := snapshots[len(snapshots)-1]
	if snapshot.Tick != w.CurrentTick() {
		t.Fatalf("expected snapshot at tick %d, got %d", w.CurrentTick(), snapshot.Tick)
	}
	return snapshot
}

func copySnapshot(s Snapshot) map[string]*ObjectSnapshot {
	objects := make(map[string]*ObjectSnapshot, len(s.Objects))
	for id, obj := range s.Objects {
		if obj == nil {
			objects[id] = nil
			continue
		}
		copied := *obj
		objects[id] = &copied
	}
	return objects
}

func TestSyncWithIdenticalSnapshotChangesNothing(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a", "b")
	snapshot := tickUntilSnapshot(t, w)

	a := mustHero(t, w, "a")
	pos, health := a.Position(), a.Health

	w.QueueOccurrence(&Sync{Tick: snapshot.Tick, Objects: copySnapshot(snapshot)})
	w.Tick()

	if a.Health != health {
		t.Errorf("expected health %f, got %f", health, a.Health)
	}
	if d := vector.Distance(a.Position(), pos); d > Precision {
		t.Errorf("expected hero to stay put, moved %f", d)
	}
}

func TestSyncAppliesHealthAndPositionDiff(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a", "b")
	snapshot := tickUntilSnapshot(t, w)

	b := mustHero(t, w, "b")
	pos, health := b.Position(), b.Health

	theirs := copySnapshot(snapshot)
	theirs["b"].Health -= 10
	theirs["b"].Pos = theirs["b"].Pos.Add(vector.New(0.01, 0))

	w.QueueOccurrence(&Sync{Tick: snapshot.Tick, Objects: theirs})
	w.Tick()

	if math.Abs(b.Health-(health-10)) > 1e-9 {
		t.Errorf("expected health %f, got %f", health-10, b.Health)
	}
	if d := vector.Distance(b.Position(), pos.Add(vector.New(0.01, 0))); d > Precision {
		t.Errorf("expected hero shifted by the diff, off by %f", d)
	}
}

func TestSyncNeverHealsAboveMax(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a")
	snapshot := tickUntilSnapshot(t, w)

	theirs := copySnapshot(snapshot)
	theirs["a"].Health += 50

	w.QueueOccurrence(&Sync{Tick: snapshot.Tick, Objects: theirs})
	w.Tick()

	if a := mustHero(t, w, "a"); a.Health != a.MaxHealth {
		t.Errorf("expected health capped at %f, got %f", a.MaxHealth, a.Health)
	}
}

func TestSyncWithDeadEntryKillsHero(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a", "b", "c")
	startMatch(w)
	snapshot := tickUntilSnapshot(t, w)

	theirs := copySnapshot(snapshot)
	theirs["c"] = nil

	w.QueueOccurrence(&Sync{Tick: snapshot.Tick, Objects: theirs})
	w.Tick()

	if _, ok := w.Hero("c"); ok {
		t.Error("expected hero dead in the other world to die here")
	}
}

func TestSyncWithoutLocalSnapshotIsIgnored(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a")
	a := mustHero(t, w, "a")

	w.QueueOccurrence(&Sync{Tick: 7, Objects: map[string]*ObjectSnapshot{
		"a": {Pos: vector.New(0, 0), Health: 1},
	}})
	w.Tick()

	if a.Health != a.MaxHealth {
		t.Errorf("expected health untouched, got %f", a.Health)
	}
}

func TestSnapshotsAreBounded(t *testing.T) {
	w := newTestWorld(t, testSettings(), "a")
	for i := 0; i < (maxSnapshots+10)*SnapshotTicks; i++ {
		w.Tick()
	}
	if n := len(w.Snapshots()); n != maxSnapshots {
		t.Errorf("expected %d snapshots, got %d", maxSnapshots, n)
	}
}

func TestActionPrecedence(t *testing.T) {
	cases := []struct {
		name string
		msg  *ActionMsg
		want int
	}{
		{"nil", nil, 0},
		{"join", &ActionMsg{Type: MsgJoin}, 1000},
		{"spells", &ActionMsg{Type: MsgSpells}, 101},
		{"sync", &ActionMsg{Type: MsgSync}, 100},
		{"stop", &ActionMsg{Type: MsgGame, SpellID: settings.ActionStop}, 12},
		{"go", &ActionMsg{Type: MsgGame, SpellID: ActionMoveAndCancel}, 11},
		{"move", &ActionMsg{Type: MsgGame, SpellID: settings.ActionMove}, 10},
		{"retarget", &ActionMsg{Type: MsgGame, SpellID: settings.ActionRetarget}, 1},
		{"release", &ActionMsg{Type: MsgGame, SpellID: "fireball", Release: true}, 99},
		{"spell", &ActionMsg{Type: MsgGame, SpellID: "fireball"}, 100},
	}
	for _, c := range cases {
		if got := ActionPrecedence(c.msg); got != c.want {
			t.Errorf("%s: expected %d, got %d", c.name, c.want, got)
		}
	}
	if ActionPrecedence(&ActionMsg{Type: MsgGame, SpellID: "fireball"}) < ActionPrecedence(&ActionMsg{Type: MsgGame, SpellID: settings.ActionMove}) {
		t.Error("expected a spell to override a move")
	}
}

func TestApplyTickQueuesInputs(t *testing.T) {
	w, err := NewWorld(testSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w.ApplyTick(&TickMsg{Tick: 1, Actions: []ActionMsg{
		{Type: MsgEnvironment, Seed: 3, LayoutID: "empty"},
		{Type: MsgJoin, HeroID: "a", PlayerName: "alice"},
		{Type: MsgText, HeroID: "a", Text: "hi"},
	}})
	w.Tick()

	if !w.Seeded() {
		t.Error("expected environment to be seeded")
	}
	if _, ok := w.Hero("a"); !ok {
		t.Fatal("expected hero a to join")
	}

	var text *TextNotification
	for _, n := range w.TakeNotifications() {
		if tn, ok := n.(*TextNotification); ok {
			text = tn
		}
	}
	if text == nil || text.Text != "hi" {
		t.Errorf("expected text notification, got %v", text)
	}

	w.ApplyTick(&TickMsg{Tick: 2, Actions: []ActionMsg{
		{Type: MsgGame, HeroID: "a", SpellID: settings.ActionMove, X: 0.6, Y: 0.5},
	}})
	w.Tick()
	a := mustHero(t, w, "a")
	if a.MoveTo == nil || a.MoveTo.X != 0.6 {
		t.Errorf("expected hero to move towards 0.6, got %v", a.MoveTo)
	}
}

func TestSyncMsgRoundTripsThroughOccurrence(t *testing.T) {
	angle := 1.5
	snapshot := Snapshot{Tick: 30, Objects: map[string]*ObjectSnapshot{
		"b":    {Pos: vector.New(0.2, 0.3), Health: 50},
		"a":    {Pos: vector.New(0.4, 0.5), Health: 80},
		"o1":   {Pos: vector.New(0.1, 0.1), Health: 10, Angle: &angle},
		"dead": nil,
	}}

	msg := SyncMsg(snapshot)
	if len(msg.Objects) != 3 {
		t.Fatalf("expected 3 objects, got %d", len(msg.Objects))
	}
	if msg.Objects[0].ID != "a" || msg.Objects[1].ID != "b" {
		t.Errorf("expected objects ordered by id, got %s, %s", msg.Objects[0].ID, msg.Objects[1].ID)
	}

	sync := SyncFromMsg(msg.Tick, msg.Objects)
	if sync.Tick != 30 {
		t.Errorf("expected tick 30, got %d", sync.Tick)
	}
	if got := sync.Objects["o1"]; got == nil || got.Angle == nil || *got.Angle != angle {
		t.Errorf("expected obstacle angle %f, got %v", angle, got)
	}
	if got := sync.Objects["b"]; got.Health != 50 || got.Pos != vector.New(0.2, 0.3) {
		t.Errorf("expected b at (0.2, 0.3) with 50 health, got %v", got)
	}
}
