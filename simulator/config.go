package simulator

import (
	"errors"
	"fmt"
	"time"
)

// Config holds parameters for the simulated drone.
type Config struct {
	Addr           string        `json:"addr"`
	BatteryPercent float64       `json:"battery_percent"`
	IdleDrain      float64       `json:"idle_drain_per_minute"`
	FlyingDrain    float64       `json:"flying_drain_per_minute"`
	Speed          float64       `json:"speed"`
	ReplyLatency   time.Duration `json:"reply_latency"`
	DropRate       float64       `json:"drop_rate"`
}

// SetDefaults fills unset fields with values close to a fresh drone.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8889"
	}
	if c.BatteryPercent == 0 {
		c.BatteryPercent = 100
	}
	if c.IdleDrain == 0 {
		c.IdleDrain = 0.2
	}
	if c.FlyingDrain == 0 {
		c.FlyingDrain = 7
	}
	if c.Speed == 0 {
		c.Speed = 10
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.BatteryPercent < 0 || c.BatteryPercent > 100 {
		return fmt.Errorf("battery_percent %.1f out of range", c.BatteryPercent)
	}
	if c.IdleDrain < 0 || c.FlyingDrain < 0 {
		return errors.New("drain rates must be positive")
	}
	if c.DropRate < 0 || c.DropRate > 1 {
		return fmt.Errorf("drop_rate %.2f out of range", c.DropRate)
	}
	if c.ReplyLatency < 0 {
		return errors.New("reply_latency must be positive")
	}
	return nil
}
