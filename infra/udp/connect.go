package udp

import (
	"github.com/kilianp07/tellocmd/core/drone"
)

type connectConfig struct {
	localPort int
	opts      []drone.Option
}

// ConnectOption tunes Connect.
type ConnectOption func(*connectConfig)

// WithLocalPort binds the socket to a fixed local port.
func WithLocalPort(port int) ConnectOption {
	return func(c *connectConfig) { c.localPort = port }
}

// WithClientOptions forwards options to drone.New.
func WithClientOptions(opts ...drone.Option) ConnectOption {
	return func(c *connectConfig) { c.opts = append(c.opts, opts...) }
}

// Connect validates ep, dials its control port and returns a Client owning
// the socket. No datagram is sent until the caller issues a command.
func Connect(ep drone.Endpoint, opts ...ConnectOption) (*drone.Client, error) {
	if err := ep.Validate(); err != nil {
		return nil, err
	}
	var cfg connectConfig
	for _, o := range opts {
		o(&cfg)
	}
	t, err := Dial(ep.ControlAddr(), cfg.localPort)
	if err != nil {
		return nil, err
	}
	c, err := drone.New(ep, t, cfg.opts...)
	if err != nil {
		_ = t.Close()
		return nil, err
	}
	return c, nil
}
