package simulator

import (
	"math"
	"sync"
	"time"
)

// Battery drains linearly with time, faster while flying.
type Battery struct {
	Percent     float64 // remaining charge [0,100]
	IdleDrain   float64 // percent per minute on the ground
	FlyingDrain float64 // percent per minute in the air
	mu          sync.Mutex
}

// Drain applies dt of consumption and returns the remaining charge.
func (b *Battery) Drain(dt time.Duration, flying bool) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	minutes := dt.Minutes()
	if minutes <= 0 {
		return b.Percent
	}
	rate := b.IdleDrain
	if flying {
		rate = b.FlyingDrain
	}
	b.Percent -= rate * minutes
	if b.Percent < 0 {
		b.Percent = 0
	}
	return b.Percent
}

// Level is the charge the drone reports, rounded down like the firmware.
func (b *Battery) Level() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int(math.Floor(b.Percent))
}
