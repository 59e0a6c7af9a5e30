package engine

import (
	"arena-server/internal/vector"
)

// maxSnapshots bounds the snapshot ring when nobody syncs against it
const maxSnapshots = 64

// ObjectSnapshot is the reconcilable state of one object
type ObjectSnapshot struct {
	Pos    vector.Vec2 `json:"pos" msgpack:"p"`
	Health float64     `json:"health" msgpack:"h"`
	Angle  *float64    `json:"angle,omitempty" msgpack:"a,omitempty"` // obstacles only
}

// Snapshot is the state of every hero, and sometimes every moving obstacle, at one tick.
// A nil entry records an object that is dead in that observer's world.
type Snapshot struct {
	Tick    int                        `json:"tick" msgpack:"t"`
	Objects map[string]*ObjectSnapshot `json:"objects" msgpack:"o"`
}

// Snapshots returns the captured snapshots not yet consumed by a sync, oldest first
func (w *World) Snapshots() []Snapshot { return w.snapshots }

func (w *World) captureSnapshot() {
	if w.tick <= 0 || w.tick%SnapshotTicks != 0 {
		return
	}
	withObstacles := w.tick%ObstacleSnapshotTicks == 0

	snapshot := Snapshot{Tick: w.tick, Objects: make(map[string]*ObjectSnapshot)}
	for _, obj := range w.Objects() {
		switch o := obj.(type) {
		case *Hero:
			snapshot.Objects[o.id] = &ObjectSnapshot{Pos: o.Position(), Health: o.Health}
		case *Obstacle:
			if withObstacles && !o.Static {
				angle := o.body.Angle()
				snapshot.Objects[o.id] = &ObjectSnapshot{Pos: o.Position(), Health: o.Health, Angle: &angle}
			}
		}
	}

	w.snapshots = append(w.snapshots, snapshot)
	if len(w.snapshots) > maxSnapshots {
		w.snapshots = w.snapshots[len(w.snapshots)-maxSnapshots:]
	}
}

// dequeueSnapshot discards snapshots up to and including tick and returns the one for tick
func (w *World) dequeueSnapshot(tick int) (Snapshot, bool) {
	for len(w.snapshots) > 0 {
		snapshot := w.snapshots[0]
		w.snapshots = w.snapshots[1:]
		if snapshot.Tick == tick {
			return snapshot, true
		}
		if snapshot.Tick > tick {
			// too old to sync; keep the rest for later syncs
			w.snapshots = append([]Snapshot{snapshot}, w.snapshots...)
			return Snapshot{}, false
		}
	}
	return Snapshot{}, false
}

// handleSync nudges local objects by the difference between the two observers'
// snapshots of the same tick, so local prediction since then is preserved
func (w *World) handleSync(sync *Sync) bool {
	mine, ok := w.dequeueSnapshot(sync.Tick)
	if !ok {
		return true
	}

	for id, theirs := range sync.Objects {
		obj, ok := w.objects[id]
		if !ok {
			continue
		}
		my, ok := mine.Objects[id]
		if !ok || my == nil {
			// dead here but not there
			continue
		}
		if theirs == nil {
			setHealth(obj, 0)
			continue
		}

		if health, ok := healthOf(obj); ok {
			maxHealth := maxHealthOf(obj)
			setHealth(obj, min(maxHealth, health+theirs.Health-my.Health))
		}
		if my.Angle != nil && theirs.Angle != nil {
			body := obj.Body()
			body.SetAngle(body.Angle() + *theirs.Angle - *my.Angle)
		}

		posDiff := theirs.Pos.Sub(my.Pos)
		if posDiff.Len() > Precision {
			body := obj.Body()
			body.SetPosition(body.Position().Add(posDiff))
		}
	}
	return true
}

func healthOf(obj Object) (float64, bool) {
	switch o := obj.(type) {
	case *Hero:
		return o.Health, true
	case *Obstacle:
		return o.Health, true
	}
	return 0, false
}

func maxHealthOf(obj Object) float64 {
	switch o := obj.(type) {
	case *Hero:
		return o.MaxHealth
	case *Obstacle:
		return o.MaxHealth
	}
	return 0
}

func setHealth(obj Object, health float64) {
	switch o := obj.(type) {
	case *Hero:
		o.Health = health
	case *Obstacle:
		o.Health = health
	}
}
