package drone

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/tellocmd/core/logger"
	"github.com/kilianp07/tellocmd/core/monitoring"
)

// Option customises a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithSessionID overrides the generated session identifier.
func WithSessionID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.session = id
		}
	}
}

// WithExchangeObserver registers observers notified after every exchange.
func WithExchangeObserver(obs ...ExchangeObserver) Option {
	return func(c *Client) { c.exchangeObs = append(c.exchangeObs, obs...) }
}

// WithTelemetryObserver registers observers notified after every successful poll.
func WithTelemetryObserver(obs ...TelemetryObserver) Option {
	return func(c *Client) { c.telemetryObs = append(c.telemetryObs, obs...) }
}

// WithStaleReplyGrace bounds the wait for a reply owed to a command that
// timed out. Zero or negative only discards replies already queued.
func WithStaleReplyGrace(d time.Duration) Option {
	return func(c *Client) { c.serializer.grace = d }
}

// Client is the connection controller. It owns its Transport exclusively.
type Client struct {
	endpoint   Endpoint
	transport  Transport
	serializer *Serializer
	telemetry  snapshot

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
	once   sync.Once

	mu     sync.Mutex
	poller *Poller

	session      string
	log          logger.Logger
	exchangeObs  []ExchangeObserver
	telemetryObs []TelemetryObserver
}

// New builds a Client over an already opened transport.
func New(ep Endpoint, t Transport, opts ...Option) (*Client, error) {
	if err := ep.Validate(); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.New("drone: nil transport")
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		endpoint:   ep,
		transport:  t,
		serializer: NewSerializer(t),
		ctx:        ctx,
		cancel:     cancel,
		session:    uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Nop{}
	}
	c.log = logger.With(c.log, map[string]any{"session": c.session, "drone": ep.ControlAddr()})
	return c, nil
}

// Endpoint returns the drone address.
func (c *Client) Endpoint() Endpoint { return c.endpoint }

// SessionID identifies this connection in logs, metrics and the journal.
func (c *Client) SessionID() string { return c.session }

// Closed reports whether Close was called.
func (c *Client) Closed() bool { return c.closed.Load() }

// BatteryPercent returns the last polled battery level, zero before the first poll.
func (c *Client) BatteryPercent() float64 { return c.telemetry.Load().BatteryPercent }

// Telemetry returns the last polled snapshot.
func (c *Client) Telemetry() Telemetry { return c.telemetry.Load() }

// Start enters command mode and, once acknowledged, polls the battery every
// interval. A non positive interval disables polling.
func (c *Client) Start(ctx context.Context, interval time.Duration) (bool, error) {
	ok, err := c.sendBool(ctx, CmdCommand)
	if err != nil || !ok {
		return ok, err
	}
	if interval > 0 {
		c.startPolling(interval)
	}
	return true, nil
}

// Polling reports whether the telemetry poller is running.
func (c *Client) Polling() bool {
	c.mu.Lock()
	p := c.poller
	c.mu.Unlock()
	return p != nil && p.Running()
}

// StopPolling stops the telemetry poller if it runs.
func (c *Client) StopPolling() {
	c.mu.Lock()
	p := c.poller
	c.poller = nil
	c.mu.Unlock()
	if p != nil {
		p.Stop()
	}
}

func (c *Client) startPolling(interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return
	}
	if c.poller != nil {
		if c.poller.Running() && c.poller.Interval() == interval {
			return
		}
		c.poller.Stop()
	}
	c.poller = NewPoller(interval, c.pollBattery, c.log)
	c.poller.Start(c.ctx)
	c.log.Infof("battery polling every %s", interval)
}

// TakeOff starts an automatic takeoff.
func (c *Client) TakeOff(ctx context.Context) (bool, error) { return c.sendBool(ctx, CmdTakeOff) }

// Land starts an automatic landing.
func (c *Client) Land(ctx context.Context) (bool, error) { return c.sendBool(ctx, CmdLand) }

// StreamOn enables the video stream on the video port.
func (c *Client) StreamOn(ctx context.Context) (bool, error) { return c.sendBool(ctx, CmdStreamOn) }

// StreamOff disables the video stream.
func (c *Client) StreamOff(ctx context.Context) (bool, error) { return c.sendBool(ctx, CmdStreamOff) }

// Emergency stops all motors immediately.
func (c *Client) Emergency(ctx context.Context) (bool, error) { return c.sendBool(ctx, CmdEmergency) }

// Up climbs cm centimetres.
func (c *Client) Up(ctx context.Context, cm uint8) (bool, error) {
	return c.sendBool(ctx, withArg(CmdUp, uint64(cm)))
}

// Down descends cm centimetres.
func (c *Client) Down(ctx context.Context, cm uint8) (bool, error) {
	return c.sendBool(ctx, withArg(CmdDown, uint64(cm)))
}

// Left moves cm centimetres to the left.
func (c *Client) Left(ctx context.Context, cm uint8) (bool, error) {
	return c.sendBool(ctx, withArg(CmdLeft, uint64(cm)))
}

// Right moves cm centimetres to the right.
func (c *Client) Right(ctx context.Context, cm uint8) (bool, error) {
	return c.sendBool(ctx, withArg(CmdRight, uint64(cm)))
}

// Forward moves cm centimetres ahead.
func (c *Client) Forward(ctx context.Context, cm uint8) (bool, error) {
	return c.sendBool(ctx, withArg(CmdForward, uint64(cm)))
}

// Back moves cm centimetres backwards.
func (c *Client) Back(ctx context.Context, cm uint8) (bool, error) {
	return c.sendBool(ctx, withArg(CmdBack, uint64(cm)))
}

// Clockwise rotates by deg degrees.
func (c *Client) Clockwise(ctx context.Context, deg uint16) (bool, error) {
	return c.sendBool(ctx, withArg(CmdClockwise, uint64(deg)))
}

// CounterClockwise rotates by deg degrees the other way.
func (c *Client) CounterClockwise(ctx context.Context, deg uint16) (bool, error) {
	return c.sendBool(ctx, withArg(CmdCounterClockwise, uint64(deg)))
}

// SetSpeed sets the flight speed in cm/s.
func (c *Client) SetSpeed(ctx context.Context, cmps uint16) (bool, error) {
	return c.sendBool(ctx, withArg(CmdSpeed, uint64(cmps)))
}

// Speed queries the current speed setting. A malformed reply yields NaN.
func (c *Client) Speed(ctx context.Context) (float64, error) {
	return c.sendFloat(ctx, QuerySpeed, SourceCaller)
}

// Battery queries the battery percentage. A malformed reply yields NaN.
func (c *Client) Battery(ctx context.Context) (float64, error) {
	return c.sendFloat(ctx, QueryBattery, SourceCaller)
}

// Close cancels every pending operation, stops polling and releases the
// transport. Only the first call does any work; later calls return nil.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		c.closed.Store(true)
		c.cancel()
		c.StopPolling()
		if cerr := c.transport.Close(); cerr != nil {
			err = fmt.Errorf("close transport: %w", cerr)
		}
		c.log.Infof("connection closed")
	})
	return err
}

func (c *Client) sendBool(ctx context.Context, command string) (bool, error) {
	out, err := c.roundTrip(ctx, command, SourceCaller, ParseAck)
	if err != nil {
		return false, err
	}
	return out.Ack, nil
}

func (c *Client) sendFloat(ctx context.Context, command, source string) (float64, error) {
	out, err := c.roundTrip(ctx, command, source, ParseMeasurement)
	if err != nil {
		return 0, err
	}
	return out.Value, nil
}

func (c *Client) pollBattery(ctx context.Context) error {
	out, err := c.roundTrip(ctx, QueryBattery, SourcePoller, ParseMeasurement)
	if err != nil {
		return err
	}
	if out.Malformed() {
		// keep the previous reading
		return nil
	}
	t := Telemetry{BatteryPercent: out.Value, UpdatedAt: time.Now()}
	c.telemetry.Store(t)
	for _, obs := range c.telemetryObs {
		obs.ObserveTelemetry(t)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, command, source string, parse func(string) Outcome) (Outcome, error) {
	ex := Exchange{ID: uuid.NewString(), SessionID: c.session, Source: source, Command: command, Started: time.Now()}
	reply, latency, err := c.exchange(ctx, command)
	ex.Latency = latency
	if err != nil {
		ex.Err = err
		c.reportFailure(ex)
		c.notify(ex)
		return Outcome{}, err
	}
	out := parse(reply)
	ex.Reply, ex.Outcome = reply, out
	if out.Malformed() {
		c.log.Warnf("unexpected response to %q: %q", command, reply)
	}
	c.notify(ex)
	return out, nil
}

// exchange runs one serialized round trip bound to both the caller context
// and the connection lifetime.
func (c *Client) exchange(ctx context.Context, command string) (string, time.Duration, error) {
	if c.closed.Load() {
		return "", 0, fmt.Errorf("%s: %w", command, ErrClosed)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	reply, latency, err := c.serializer.ExecuteTimed(ctx, command)
	if err != nil && c.ctx.Err() != nil && !errors.Is(err, context.Canceled) {
		err = fmt.Errorf("%w: %w", context.Canceled, err)
	}
	return reply, latency, err
}

func (c *Client) reportFailure(ex Exchange) {
	if IsShutdown(ex.Err) {
		c.log.Debugf("exchange %s interrupted: %v", ex.Command, ex.Err)
		return
	}
	c.log.Warnf("exchange %s failed: %v", ex.Command, ex.Err)
	if errors.Is(ex.Err, context.DeadlineExceeded) {
		return
	}
	monitoring.CaptureException(ex.Err, map[string]string{
		"module":  "drone",
		"command": ex.Command,
		"source":  ex.Source,
		"session": ex.SessionID,
	})
}

func (c *Client) notify(ex Exchange) {
	for _, obs := range c.exchangeObs {
		obs.ObserveExchange(ex)
	}
}
