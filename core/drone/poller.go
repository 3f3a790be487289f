package drone

import (
	"context"
	"sync"
	"time"

	"github.com/kilianp07/tellocmd/core/logger"
	"github.com/kilianp07/tellocmd/core/monitoring"
)

// PollFunc performs one poll tick.
type PollFunc func(ctx context.Context) error

// Poller runs a PollFunc periodically. The timer is re-armed only after a
// tick completes, so ticks never overlap and a slow tick delays the next one.
type Poller struct {
	interval time.Duration
	poll     PollFunc
	log      logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a stopped poller.
func NewPoller(interval time.Duration, poll PollFunc, log logger.Logger) *Poller {
	return &Poller{interval: interval, poll: poll, log: log}
}

// Interval returns the configured period.
func (p *Poller) Interval() time.Duration { return p.interval }

// Start launches the poll loop bound to ctx. It returns false when the
// interval disables polling or the loop is already running.
func (p *Poller) Start(ctx context.Context) bool {
	if p.interval <= 0 {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.runningLocked() {
		return false
	}
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel, p.done = cancel, done
	go p.run(ctx, done)
	return true
}

// Stop cancels the loop and waits for an in-flight tick to unwind.
// It must not be called from within the PollFunc.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runningLocked()
}

func (p *Poller) runningLocked() bool {
	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer monitoring.Recover()

	timer := time.NewTimer(p.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		p.tick(ctx)
		timer.Reset(p.interval)
	}
}

func (p *Poller) tick(ctx context.Context) {
	err := p.poll(ctx)
	switch {
	case err == nil:
	case IsShutdown(err) || ctx.Err() != nil:
		p.log.Debugf("poll interrupted: %v", err)
	default:
		p.log.Errorf("poll failed: %v", err)
	}
}
