// Package simulator provides a UDP peer that speaks the drone's text
// command protocol. It answers "ok"/"error" to control commands, reports
// battery and speed, refuses commands until "command" enters SDK mode and
// drains its battery over time.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kilianp07/tellocmd/core/drone"
	"github.com/kilianp07/tellocmd/infra/logger"
)

const (
	replyOK    = "ok"
	replyError = "error"

	minMove, maxMove   = 20, 500
	minTurn, maxTurn   = 1, 360
	minSpeed, maxSpeed = 10, 100
	minTakeoffBattery  = 10
	maxDatagram        = 1500
)

// Option customises a Drone.
type Option func(*Drone)

// WithStrategy overrides the reply strategy derived from Config.
func WithStrategy(s ReplyStrategy) Option {
	return func(d *Drone) { d.strategy = s }
}

// WithLogger sets the drone logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Drone) { d.log = l }
}

// WithClock replaces time.Now for battery accounting.
func WithClock(now func() time.Time) Option {
	return func(d *Drone) { d.now = now }
}

// Drone is a simulated drone bound to a UDP socket.
type Drone struct {
	conn     net.PacketConn
	battery  *Battery
	strategy ReplyStrategy
	log      logger.Logger
	now      func() time.Time

	mu          sync.Mutex
	commandMode bool
	flying      bool
	speed       float64
	last        time.Time
	received    []string
}

// Listen validates cfg and binds the simulator to cfg.Addr.
func Listen(cfg Config, opts ...Option) (*Drone, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	conn, err := net.ListenPacket("udp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	d := newDrone(cfg, opts...)
	d.conn = conn
	return d, nil
}

func newDrone(cfg Config, opts ...Option) *Drone {
	d := &Drone{
		battery: &Battery{
			Percent:     cfg.BatteryPercent,
			IdleDrain:   cfg.IdleDrain,
			FlyingDrain: cfg.FlyingDrain,
		},
		speed: cfg.Speed,
		log:   logger.New("simulator"),
		now:   time.Now,
	}
	if cfg.DropRate > 0 {
		d.strategy = NewRandomReply(cfg.ReplyLatency, cfg.DropRate, time.Now().UnixNano())
	} else {
		d.strategy = AutoReply{Delay: cfg.ReplyLatency}
	}
	for _, o := range opts {
		o(d)
	}
	d.last = d.now()
	return d
}

// Addr is the bound control address.
func (d *Drone) Addr() net.Addr { return d.conn.LocalAddr() }

// Endpoint returns a client endpoint pointing at the simulator.
func (d *Drone) Endpoint() (drone.Endpoint, error) {
	host, port, err := net.SplitHostPort(d.Addr().String())
	if err != nil {
		return drone.Endpoint{}, err
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return drone.Endpoint{}, err
	}
	return drone.NewEndpoint(host, p, drone.DefaultVideoPort)
}

// Run serves datagrams one at a time until ctx is done or the drone is
// closed.
func (d *Drone) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = d.conn.Close() })
	defer stop()

	d.log.Infof("simulated drone listening on %s", d.Addr())
	buf := make([]byte, maxDatagram)
	for {
		n, from, err := d.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		cmd := string(buf[:n])
		reply := d.Handle(cmd)
		d.strategy.Reply(ctx, func() {
			if _, err := d.conn.WriteTo([]byte(reply), from); err != nil {
				d.log.Warnf("reply to %s: %v", from, err)
			}
		})
	}
}

// Close releases the socket.
func (d *Drone) Close() error {
	err := d.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Received lists the commands handled so far.
func (d *Drone) Received() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.received...)
}

// Flying reports whether the drone is airborne.
func (d *Drone) Flying() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flying
}

// Handle applies one command and returns the reply text.
func (d *Drone) Handle(cmd string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.battery.Drain(now.Sub(d.last), d.flying)
	d.last = now
	d.received = append(d.received, cmd)

	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return replyError
	}
	verb := fields[0]
	if verb == drone.CmdCommand {
		d.commandMode = true
		return replyOK
	}
	if !d.commandMode {
		d.log.Debugf("ignoring %q outside SDK mode", cmd)
		return replyError
	}

	switch verb {
	case drone.QueryBattery:
		return fmt.Sprintf("%d\r\n", d.battery.Level())
	case drone.QuerySpeed:
		return fmt.Sprintf("%.1f\r\n", d.speed)
	case drone.CmdTakeOff:
		if d.battery.Level() < minTakeoffBattery {
			return replyError
		}
		d.flying = true
	case drone.CmdLand, drone.CmdEmergency:
		d.flying = false
	case drone.CmdStreamOn, drone.CmdStreamOff:
	case drone.CmdUp, drone.CmdDown, drone.CmdLeft, drone.CmdRight, drone.CmdForward, drone.CmdBack:
		if !d.flying || !argInRange(fields, minMove, maxMove) {
			return replyError
		}
	case drone.CmdClockwise, drone.CmdCounterClockwise:
		if !d.flying || !argInRange(fields, minTurn, maxTurn) {
			return replyError
		}
	case drone.CmdSpeed:
		if !argInRange(fields, minSpeed, maxSpeed) {
			return replyError
		}
		d.speed, _ = strconv.ParseFloat(fields[1], 64)
	default:
		return replyError
	}
	return replyOK
}

func argInRange(fields []string, lo, hi int) bool {
	if len(fields) != 2 {
		return false
	}
	n, err := strconv.Atoi(fields[1])
	return err == nil && n >= lo && n <= hi
}
