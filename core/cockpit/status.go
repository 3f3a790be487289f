package cockpit

import "time"

// Status is one published view of the session. Values are never mutated
// after publication.
type Status struct {
	Online          bool      `json:"online"`
	MotorsOn        bool      `json:"motors_on"`
	ControlsEnabled bool      `json:"controls_enabled"`
	Intents         Intents   `json:"intents"`
	BatteryPercent  float64   `json:"battery_percent"`
	Line            string    `json:"line"`
	Error           string    `json:"error,omitempty"`
	At              time.Time `json:"at"`
}

const (
	lineOffline = "Drone: offline"
	linePrefix  = "Drone: "
)
