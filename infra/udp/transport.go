// Package udp carries drone commands over a connected UDP socket.
package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/kilianp07/tellocmd/core/drone"
)

// maxDatagram bounds a single reply. Text SDK replies are a few bytes.
const maxDatagram = 1500

// Transport is a drone.Transport bound to one peer at dial time.
type Transport struct {
	conn *net.UDPConn

	once sync.Once
}

// Dial opens a socket to addr. localPort 0 picks an ephemeral port.
func Dial(addr string, localPort int) (*Transport, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	var laddr *net.UDPAddr
	if localPort > 0 {
		laddr, err = net.ResolveUDPAddr("udp", ":"+strconv.Itoa(localPort))
		if err != nil {
			return nil, fmt.Errorf("resolve local port %d: %w", localPort, err)
		}
	}
	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Transport{conn: conn}, nil
}

// LocalAddr is the bound local address.
func (t *Transport) LocalAddr() net.Addr { return t.conn.LocalAddr() }

// Send writes payload as a single datagram.
func (t *Transport) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.conn.Write(payload); err != nil {
		return mapErr(err)
	}
	return nil
}

// Receive blocks for the next datagram. Cancelling ctx forces the read
// deadline so the pending read returns the context error.
func (t *Transport) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.conn.SetReadDeadline(time.Time{}); err != nil {
		return nil, mapErr(err)
	}
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		_ = t.conn.SetReadDeadline(time.Now())
	})

	buf := make([]byte, maxDatagram)
	n, err := t.conn.Read(buf)
	if !stop() {
		<-fired
	}
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, ctx.Err()
		}
		return nil, mapErr(err)
	}
	return buf[:n], nil
}

// drainWindow is how long Drain waits on an empty socket.
const drainWindow = time.Millisecond

// Drain discards the datagrams already queued on the socket and reports how
// many it dropped. It must not run concurrently with Receive.
func (t *Transport) Drain() (int, error) {
	// A deadline already in the past fails the read before the queue is checked.
	if err := t.conn.SetReadDeadline(time.Now().Add(drainWindow)); err != nil {
		return 0, mapErr(err)
	}
	defer func() { _ = t.conn.SetReadDeadline(time.Time{}) }()
	buf := make([]byte, maxDatagram)
	n := 0
	for {
		if _, err := t.conn.Read(buf); err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return n, nil
			}
			return n, mapErr(err)
		}
		n++
	}
}

// Close releases the socket. Later calls return nil.
func (t *Transport) Close() error {
	var err error
	t.once.Do(func() { err = t.conn.Close() })
	return err
}

func mapErr(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: %w", drone.ErrClosed, err)
	}
	return err
}

var (
	_ drone.Transport = (*Transport)(nil)
	_ drone.Drainer   = (*Transport)(nil)
)
