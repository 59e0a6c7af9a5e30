package engine

import (
	"math"

	"arena-server/internal/settings"
	"arena-server/internal/vector"
)

const (
	TicksPerSecond = settings.TicksPerSecond

	Pixel     = 0.001
	Precision = 0.0001

	NeverTicks            = 1000000
	SnapshotTicks         = 15
	ObstacleSnapshotTicks = 60
	MaxCooldownWaitTicks  = 60
	BotsExitAfterTicks    = 2 * TicksPerSecond
	ExitTicks             = TicksPerSecond / 2 // ticks an exiting hero lingers before removal

	numTicksCleared = 3 // ticks a fresh projectile passes through its owner
)

// stepSeconds is the physics step, truncated to whole milliseconds so every observer steps identically
var stepSeconds = math.Floor(1000/float64(TicksPerSecond)) / 1000

var center = vector.New(0.5, 0.5)
