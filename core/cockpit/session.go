package cockpit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/kilianp07/tellocmd/core/drone"
	"github.com/kilianp07/tellocmd/core/logger"
	"github.com/kilianp07/tellocmd/core/telemetry"
	"github.com/kilianp07/tellocmd/internal/eventbus"
)

// Pilot is the subset of drone.Client the session drives.
type Pilot interface {
	Start(ctx context.Context, interval time.Duration) (bool, error)
	TakeOff(ctx context.Context) (bool, error)
	Land(ctx context.Context) (bool, error)
	Left(ctx context.Context, cm uint8) (bool, error)
	Right(ctx context.Context, cm uint8) (bool, error)
	Forward(ctx context.Context, cm uint8) (bool, error)
	Back(ctx context.Context, cm uint8) (bool, error)
	Close() error
}

// ConnectFunc opens a connection. The returned pilot must report every
// successful battery poll to obs.
type ConnectFunc func(ctx context.Context, obs drone.TelemetryObserver) (Pilot, error)

// Config tunes a Session.
type Config struct {
	PollingInterval time.Duration
	StepCM          uint8
}

// DefaultStepCM is the distance of one move. The drone rejects moves under 20 cm.
const DefaultStepCM = 20

// Session owns at most one drone connection at a time.
type Session struct {
	cfg     Config
	connect ConnectFunc
	log     logger.Logger
	bus     *eventbus.TypedBus[Status]
	trend   *telemetry.Trend

	// op serializes the controls; mu guards the fields below and is never
	// held across network I/O.
	op       sync.Mutex
	mu       sync.Mutex
	pilot    Pilot
	motorsOn bool
	intents  Intents
	status   Status
}

// Option customises a Session.
type Option func(*Session)

// WithTrend appends a remaining-flight-time estimate to battery lines.
func WithTrend(t *telemetry.Trend) Option {
	return func(s *Session) { s.trend = t }
}

// WithBus publishes statuses on bus instead of a private one.
func WithBus(bus *eventbus.TypedBus[Status]) Option {
	return func(s *Session) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// NewSession creates an offline session.
func NewSession(cfg Config, connect ConnectFunc, log logger.Logger, opts ...Option) *Session {
	if cfg.StepCM == 0 {
		cfg.StepCM = DefaultStepCM
	}
	if log == nil {
		log = logger.Nop{}
	}
	s := &Session{
		cfg:     cfg,
		connect: connect,
		log:     log,
		status:  Status{Line: lineOffline, At: time.Now()},
	}
	for _, o := range opts {
		o(s)
	}
	if s.bus == nil {
		s.bus = eventbus.NewTyped[Status]()
	}
	return s
}

// Subscribe returns a channel of status snapshots. Slow readers only miss
// intermediate states.
func (s *Session) Subscribe() <-chan Status { return s.bus.Subscribe() }

// Unsubscribe releases a channel returned by Subscribe.
func (s *Session) Unsubscribe(ch <-chan Status) { s.bus.Unsubscribe(ch) }

// Status returns the latest snapshot.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ToggleComm connects when offline and disconnects when online.
func (s *Session) ToggleComm(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	p := s.pilot
	s.mu.Unlock()
	if p != nil {
		return s.disconnect(p)
	}
	return s.fail(s.connectPilot(ctx))
}

func (s *Session) connectPilot(ctx context.Context) error {
	if s.trend != nil {
		s.trend.Reset()
	}
	p, err := s.connect(ctx, s)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	ok, err := p.Start(ctx, s.cfg.PollingInterval)
	if err == nil && !ok {
		err = fmt.Errorf("enter command mode: %w", ErrNotAcknowledged)
	}
	if err != nil {
		_ = p.Close()
		return err
	}
	s.log.Infof("drone online")
	s.update(func(st *Status) {
		s.pilot = p
		st.Online = true
		st.Line = linePrefix + "online"
		st.Error = ""
	})
	return nil
}

func (s *Session) disconnect(p Pilot) error {
	err := p.Close()
	s.update(func(st *Status) {
		s.pilot = nil
		s.motorsOn = false
		s.intents = Intents{}
		*st = Status{Line: lineOffline}
	})
	s.log.Infof("drone offline")
	if err != nil {
		return s.fail(fmt.Errorf("close: %w", err))
	}
	return nil
}

// ToggleMotors takes off when grounded and lands when flying. The motors
// state follows the drone's acknowledgement.
func (s *Session) ToggleMotors(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	p, on := s.pilot, s.motorsOn
	s.mu.Unlock()
	if p == nil {
		return ErrOffline
	}

	var ok bool
	var err error
	if !on {
		ok, err = p.TakeOff(ctx)
	} else {
		ok, err = p.Land(ctx)
	}
	if err != nil {
		return s.fail(err)
	}
	next := ok
	if on {
		next = !ok
	}
	s.update(func(st *Status) {
		s.motorsOn = next
		if !next {
			s.intents = Intents{}
		}
		st.MotorsOn = next
		st.ControlsEnabled = next
		st.Intents = s.intents
		st.Error = ""
	})
	if ok {
		return nil
	}
	s.log.Warnf("motors toggle not acknowledged, motors on: %t", next)
	return ErrNotAcknowledged
}

// UpdateButtons applies the pressed state of the directional controls.
// Presses are ignored while the motors are off. Each intent that becomes
// active issues one step move.
func (s *Session) UpdateButtons(ctx context.Context, b Buttons) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	p, enabled, prev := s.pilot, s.motorsOn, s.intents
	s.mu.Unlock()
	if p == nil {
		return ErrOffline
	}
	if !enabled {
		b = Buttons{}
	}
	next := Derive(b)
	if next == prev {
		return nil
	}
	s.update(func(st *Status) {
		s.intents = next
		st.Intents = next
		st.Line = linePrefix + next.Label()
	})

	var errs []error
	for _, mv := range []struct {
		now, before bool
		move        func(context.Context, uint8) (bool, error)
	}{
		{next.Left, prev.Left, p.Left},
		{next.Right, prev.Right, p.Right},
		{next.Forward, prev.Forward, p.Forward},
		{next.Backward, prev.Backward, p.Back},
	} {
		if !mv.now || mv.before {
			continue
		}
		if _, err := mv.move(ctx, s.cfg.StepCM); err != nil {
			errs = append(errs, err)
		}
	}
	return s.fail(errors.Join(errs...))
}

// ObserveTelemetry publishes the battery line. It runs on the poller
// goroutine once per successful tick.
func (s *Session) ObserveTelemetry(t drone.Telemetry) {
	s.mu.Lock()
	online := s.status.Online
	s.mu.Unlock()
	if !online {
		return
	}
	line := fmt.Sprintf("Drone: online (%.0f%% battery)", t.BatteryPercent)
	if s.trend != nil {
		s.trend.ObserveTelemetry(t)
		if est, ok := s.trend.Estimate(); ok {
			line += fmt.Sprintf(" ~%.0f min left", math.Floor(est.Remaining.Minutes()))
		}
	}
	s.update(func(st *Status) {
		st.BatteryPercent = t.BatteryPercent
		st.Line = line
	})
}

// Close disconnects and closes the status bus.
func (s *Session) Close() error {
	s.op.Lock()
	defer s.op.Unlock()
	s.mu.Lock()
	p := s.pilot
	s.mu.Unlock()
	var err error
	if p != nil {
		err = s.disconnect(p)
	}
	s.bus.Close()
	return err
}

// fail publishes err on the status line and returns it.
func (s *Session) fail(err error) error {
	if err == nil {
		return nil
	}
	s.log.Errorf("cockpit: %v", err)
	s.update(func(st *Status) {
		st.Line = linePrefix + err.Error()
		st.Error = err.Error()
	})
	return err
}

// update mutates the status under the lock and publishes a copy.
func (s *Session) update(fn func(st *Status)) {
	s.mu.Lock()
	next := s.status
	fn(&next)
	next.At = time.Now()
	s.status = next
	s.bus.Publish(next)
	s.mu.Unlock()
}

var _ drone.TelemetryObserver = (*Session)(nil)
