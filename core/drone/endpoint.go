package drone

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

const (
	DefaultHost        = "192.168.10.1"
	DefaultControlPort = 8889
	// DefaultVideoPort is reserved for the video stream, which this client does not decode.
	DefaultVideoPort = 6037
	// DefaultPollingInterval is the battery poll period used by callers that do not configure one.
	DefaultPollingInterval = 10 * time.Second

	maxPort = 65535
)

// Endpoint locates the drone. It is immutable once built.
type Endpoint struct {
	host        string
	controlPort int
	videoPort   int
}

// NewEndpoint validates and builds an Endpoint.
func NewEndpoint(host string, controlPort, videoPort int) (Endpoint, error) {
	ep := Endpoint{host: host, controlPort: controlPort, videoPort: videoPort}
	if err := ep.Validate(); err != nil {
		return Endpoint{}, err
	}
	return ep, nil
}

// DefaultEndpoint returns the address a Tello uses on its own access point.
func DefaultEndpoint() Endpoint {
	return Endpoint{host: DefaultHost, controlPort: DefaultControlPort, videoPort: DefaultVideoPort}
}

// Validate checks the host and port ranges.
func (e Endpoint) Validate() error {
	if e.host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidEndpoint)
	}
	if e.controlPort <= 0 || e.controlPort > maxPort {
		return fmt.Errorf("%w: control port %d out of range", ErrInvalidEndpoint, e.controlPort)
	}
	if e.videoPort <= 0 || e.videoPort > maxPort {
		return fmt.Errorf("%w: video port %d out of range", ErrInvalidEndpoint, e.videoPort)
	}
	return nil
}

// Host is the drone address without port.
func (e Endpoint) Host() string { return e.host }

// ControlPort is the UDP port receiving text commands.
func (e Endpoint) ControlPort() int { return e.controlPort }

// VideoPort is the UDP port the video stream is sent to.
func (e Endpoint) VideoPort() int { return e.videoPort }

// ControlAddr returns host:port of the command channel.
func (e Endpoint) ControlAddr() string {
	return net.JoinHostPort(e.host, strconv.Itoa(e.controlPort))
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s (video %d)", e.ControlAddr(), e.videoPort)
}
