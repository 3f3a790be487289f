// Package telemetry estimates battery drain from polled snapshots.
package telemetry

import (
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/tellocmd/core/drone"
)

const (
	// DefaultWindow is the number of samples kept for the fit.
	DefaultWindow = 12
	minSamples    = 3
)

// Estimate is the result of a drain fit.
type Estimate struct {
	// RatePerMinute is the drain in percentage points per minute, positive when discharging.
	RatePerMinute float64
	Remaining     time.Duration
	Samples       int
}

// Trend keeps the most recent battery samples. It is safe for concurrent use
// and can be registered directly as a drone.TelemetryObserver.
type Trend struct {
	mu      sync.Mutex
	window  int
	samples []drone.Telemetry
}

// NewTrend creates a Trend holding up to window samples.
func NewTrend(window int) *Trend {
	if window < minSamples {
		window = DefaultWindow
	}
	return &Trend{window: window}
}

// ObserveTelemetry records one sample. Samples out of time order or
// with a recharge (level going up) restart the window.
func (t *Trend) ObserveTelemetry(s drone.Telemetry) {
	if !s.Valid() || math.IsNaN(s.BatteryPercent) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if n := len(t.samples); n > 0 {
		last := t.samples[n-1]
		if !s.UpdatedAt.After(last.UpdatedAt) || s.BatteryPercent > last.BatteryPercent {
			t.samples = t.samples[:0]
		}
	}
	t.samples = append(t.samples, s)
	if len(t.samples) > t.window {
		t.samples = t.samples[len(t.samples)-t.window:]
	}
}

// Reset drops every sample.
func (t *Trend) Reset() {
	t.mu.Lock()
	t.samples = nil
	t.mu.Unlock()
}

// Estimate fits level against time. It reports false until enough samples
// show an actual drain.
func (t *Trend) Estimate() (Estimate, bool) {
	t.mu.Lock()
	samples := make([]drone.Telemetry, len(t.samples))
	copy(samples, t.samples)
	t.mu.Unlock()

	if len(samples) < minSamples {
		return Estimate{}, false
	}
	origin := samples[0].UpdatedAt
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = s.UpdatedAt.Sub(origin).Minutes()
		ys[i] = s.BatteryPercent
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(beta) || beta >= 0 {
		return Estimate{}, false
	}
	rate := -beta
	last := xs[len(xs)-1]
	level := alpha + beta*last
	if level < 0 {
		level = 0
	}
	minutes := level / rate
	return Estimate{
		RatePerMinute: rate,
		Remaining:     time.Duration(minutes * float64(time.Minute)),
		Samples:       len(samples),
	}, true
}

var _ drone.TelemetryObserver = (*Trend)(nil)
