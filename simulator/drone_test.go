package simulator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/tellocmd/core/logger"
	"github.com/kilianp07/tellocmd/infra/udp"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestDrone(t *testing.T, cfg Config) (*Drone, *fakeClock) {
	t.Helper()
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	return newDrone(cfg, WithClock(clk.Now), WithLogger(logger.Nop{})), clk
}

func TestHandleRequiresCommandMode(t *testing.T) {
	d, _ := newTestDrone(t, Config{})
	assert.Equal(t, "error", d.Handle("takeoff"))
	assert.Equal(t, "ok", d.Handle("command"))
	assert.Equal(t, "ok", d.Handle("takeoff"))
	assert.True(t, d.Flying())
	assert.Equal(t, []string{"takeoff", "command", "takeoff"}, d.Received())
}

func TestHandleCommands(t *testing.T) {
	d, _ := newTestDrone(t, Config{BatteryPercent: 87.6, Speed: 15})
	d.Handle("command")

	steps := []struct {
		cmd  string
		want string
	}{
		{"battery?", "87\r\n"},
		{"speed?", "15.0\r\n"},
		{"left 20", "error"},
		{"takeoff", "ok"},
		{"left 20", "ok"},
		{"forward 19", "error"},
		{"back 500", "ok"},
		{"up", "error"},
		{"cw 90", "ok"},
		{"ccw 361", "error"},
		{"speed 50", "ok"},
		{"speed?", "50.0\r\n"},
		{"speed 5", "error"},
		{"streamon", "ok"},
		{"flip l", "error"},
		{"", "error"},
		{"land", "ok"},
		{"right 20", "error"},
	}
	for _, s := range steps {
		assert.Equal(t, s.want, d.Handle(s.cmd), s.cmd)
	}
}

func TestBatteryDrain(t *testing.T) {
	d, clk := newTestDrone(t, Config{BatteryPercent: 50, IdleDrain: 1, FlyingDrain: 10})
	d.Handle("command")

	clk.Advance(2 * time.Minute)
	assert.Equal(t, "48\r\n", d.Handle("battery?"))

	d.Handle("takeoff")
	clk.Advance(time.Minute)
	assert.Equal(t, "38\r\n", d.Handle("battery?"))

	clk.Advance(10 * time.Minute)
	assert.Equal(t, "0\r\n", d.Handle("battery?"))
	d.Handle("land")
	assert.Equal(t, "error", d.Handle("takeoff"))
}

func TestConfigValidate(t *testing.T) {
	cases := []Config{
		{BatteryPercent: 101},
		{DropRate: 1.5},
		{ReplyLatency: -time.Second},
		{IdleDrain: -1},
	}
	for _, c := range cases {
		c.SetDefaults()
		assert.Error(t, c.Validate(), "%+v", c)
	}
}

func TestRandomReplyDropsEverything(t *testing.T) {
	r := NewRandomReply(0, 1, 1)
	sent := false
	r.Reply(context.Background(), func() { sent = true })
	assert.False(t, sent)

	r = NewRandomReply(0, 0, 1)
	r.Reply(context.Background(), func() { sent = true })
	assert.True(t, sent)
}

func TestAutoReplyHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sent := false
	AutoReply{Delay: time.Hour}.Reply(ctx, func() { sent = true })
	assert.False(t, sent)
}

func startSimulator(t *testing.T, cfg Config, opts ...Option) *Drone {
	t.Helper()
	cfg.Addr = "127.0.0.1:0"
	d, err := Listen(cfg, append([]Option{WithLogger(logger.Nop{})}, opts...)...)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return d
}

func TestClientAgainstSimulator(t *testing.T) {
	sim := startSimulator(t, Config{BatteryPercent: 76.5})
	ep, err := sim.Endpoint()
	require.NoError(t, err)
	c, err := udp.Connect(ep)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ok, err := c.Start(ctx, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.TakeOff(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Left(ctx, 10)
	require.NoError(t, err)
	assert.False(t, ok, "moves below 20cm are refused")

	ok, err = c.SetSpeed(ctx, 40)
	require.NoError(t, err)
	assert.True(t, ok)

	speed, err := c.Speed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40.0, speed)

	battery, err := c.Battery(ctx)
	require.NoError(t, err)
	assert.Equal(t, 76.0, battery)

	assert.Equal(t, []string{"command", "takeoff", "left 10", "speed 40", "speed?", "battery?"}, sim.Received())
}

func TestClientTimesOutOnDroppedReply(t *testing.T) {
	sim := startSimulator(t, Config{}, WithStrategy(NewRandomReply(0, 1, 7)))
	ep, err := sim.Endpoint()
	require.NoError(t, err)
	c, err := udp.Connect(ep)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = c.Start(ctx, 0)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.False(t, c.Closed())
}
