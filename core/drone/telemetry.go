package drone

import (
	"sync/atomic"
	"time"
)

// Telemetry is the latest measurement published by the poller.
type Telemetry struct {
	BatteryPercent float64
	UpdatedAt      time.Time
}

// Valid reports whether at least one poll succeeded.
func (t Telemetry) Valid() bool { return !t.UpdatedAt.IsZero() }

// snapshot is a last-write-wins slot readable without blocking writers.
type snapshot struct {
	p atomic.Pointer[Telemetry]
}

func (s *snapshot) Load() Telemetry {
	if t := s.p.Load(); t != nil {
		return *t
	}
	return Telemetry{}
}

func (s *snapshot) Store(t Telemetry) { s.p.Store(&t) }
