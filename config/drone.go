package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/tellocmd/core/drone"
)

// DroneConfig locates the drone and tunes the control loop.
type DroneConfig struct {
	Host        string `json:"host"`
	ControlPort int    `json:"control_port"`
	VideoPort   int    `json:"video_port"`
	// LocalPort binds the client socket; 0 picks an ephemeral port.
	LocalPort int `json:"local_port"`
	// PollingIntervalMS is the battery poll period. Unset means 10s,
	// zero or negative disables polling.
	PollingIntervalMS *int `json:"polling_interval_ms"`
	MoveStepCM        int  `json:"move_step_cm"`
	CommandTimeoutMS  int  `json:"command_timeout_ms"`
	// AutoConnect opens the drone link when the service starts.
	AutoConnect bool `json:"auto_connect"`
}

const (
	defaultMoveStepCM       = 20
	defaultCommandTimeoutMS = 10000
)

// SetDefaults fills the factory endpoint and step sizes.
func (c *DroneConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = drone.DefaultHost
	}
	if c.ControlPort == 0 {
		c.ControlPort = drone.DefaultControlPort
	}
	if c.VideoPort == 0 {
		c.VideoPort = drone.DefaultVideoPort
	}
	if c.MoveStepCM == 0 {
		c.MoveStepCM = defaultMoveStepCM
	}
	if c.CommandTimeoutMS == 0 {
		c.CommandTimeoutMS = defaultCommandTimeoutMS
	}
}

// Validate checks the endpoint and step bounds.
func (c DroneConfig) Validate() error {
	if _, err := c.Endpoint(); err != nil {
		return err
	}
	if c.LocalPort < 0 || c.LocalPort > math.MaxUint16 {
		return fmt.Errorf("local_port %d out of range", c.LocalPort)
	}
	if c.MoveStepCM < 20 || c.MoveStepCM > math.MaxUint8 {
		return fmt.Errorf("move_step_cm %d must be within [20, %d]", c.MoveStepCM, math.MaxUint8)
	}
	if c.CommandTimeoutMS <= 0 {
		return errors.New("command_timeout_ms must be positive")
	}
	return nil
}

// Endpoint builds the validated drone endpoint.
func (c DroneConfig) Endpoint() (drone.Endpoint, error) {
	return drone.NewEndpoint(c.Host, c.ControlPort, c.VideoPort)
}

// PollingInterval resolves PollingIntervalMS. Zero disables polling.
func (c DroneConfig) PollingInterval() time.Duration {
	if c.PollingIntervalMS == nil {
		return drone.DefaultPollingInterval
	}
	if *c.PollingIntervalMS <= 0 {
		return 0
	}
	return time.Duration(*c.PollingIntervalMS) * time.Millisecond
}

// CommandTimeout bounds one command round trip.
func (c DroneConfig) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutMS) * time.Millisecond
}
