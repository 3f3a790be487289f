package drone

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultStaleReplyGrace bounds how long the next exchange waits for the
// reply of an abandoned one before sending.
const DefaultStaleReplyGrace = time.Second

// Serializer guarantees a single outstanding exchange on its Transport.
// Waiters are served in arrival order.
//
// An exchange that gives up after its command went out leaves a reply in
// flight. The next exchange discards it before sending so it is never
// credited to the wrong command.
type Serializer struct {
	transport Transport
	gate      *semaphore.Weighted

	// guarded by gate
	stale      int
	graceSpent bool
	grace      time.Duration
}

// NewSerializer wraps t with a single-slot gate.
func NewSerializer(t Transport) *Serializer {
	return &Serializer{transport: t, gate: semaphore.NewWeighted(1), grace: DefaultStaleReplyGrace}
}

// Execute sends command and returns the next datagram decoded as ASCII.
func (s *Serializer) Execute(ctx context.Context, command string) (string, error) {
	reply, _, err := s.ExecuteTimed(ctx, command)
	return reply, err
}

// ExecuteTimed is Execute that also reports the send-to-reply latency.
func (s *Serializer) ExecuteTimed(ctx context.Context, command string) (string, time.Duration, error) {
	if err := s.gate.Acquire(ctx, 1); err != nil {
		return "", 0, fmt.Errorf("%s: wait for gate: %w", command, err)
	}
	defer s.gate.Release(1)

	// Acquire may hand out a free slot even when ctx is already done.
	if err := ctx.Err(); err != nil {
		return "", 0, fmt.Errorf("%s: %w", command, err)
	}
	if err := s.settle(ctx); err != nil {
		return "", 0, fmt.Errorf("%s: discard stale reply: %w", command, err)
	}

	start := time.Now()
	if err := s.transport.Send(ctx, []byte(command)); err != nil {
		return "", time.Since(start), fmt.Errorf("%s: send: %w", command, err)
	}
	payload, err := s.transport.Receive(ctx)
	if err != nil {
		if !errors.Is(err, ErrClosed) {
			s.stale++
			s.graceSpent = false
		}
		return "", time.Since(start), fmt.Errorf("%s: receive: %w", command, err)
	}
	return decodeASCII(payload), time.Since(start), nil
}

// settle consumes replies owed to abandoned exchanges. Queued datagrams are
// drained first. A reply still missing is awaited once for the grace period;
// after that only already queued datagrams are discarded.
func (s *Serializer) settle(ctx context.Context) error {
	if s.stale == 0 {
		return nil
	}
	if d, ok := s.transport.(Drainer); ok {
		n, err := d.Drain()
		if err != nil {
			return err
		}
		s.stale = max(s.stale-n, 0)
	}
	if s.stale == 0 || s.graceSpent || s.grace <= 0 {
		return nil
	}
	s.graceSpent = true
	for s.stale > 0 {
		wait, cancel := context.WithTimeout(ctx, s.grace)
		_, err := s.transport.Receive(wait)
		cancel()
		switch {
		case err == nil:
			s.stale--
		case ctx.Err() != nil:
			s.graceSpent = false
			return ctx.Err()
		case errors.Is(err, ErrClosed):
			return err
		default:
			return nil
		}
	}
	return nil
}
