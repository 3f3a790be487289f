package simulator

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// ReplyStrategy decides whether and when a reply leaves the drone.
type ReplyStrategy interface {
	Reply(ctx context.Context, send func())
}

// AutoReply answers every command after an optional fixed delay.
type AutoReply struct {
	Delay time.Duration
}

// Reply implements ReplyStrategy.
func (a AutoReply) Reply(ctx context.Context, send func()) {
	if !wait(ctx, a.Delay) {
		return
	}
	send()
}

// RandomReply drops replies with the configured probability and waits for
// the specified delay before sending the rest.
type RandomReply struct {
	Delay    time.Duration
	DropRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomReply seeds its own source so runs are reproducible.
func NewRandomReply(delay time.Duration, dropRate float64, seed int64) *RandomReply {
	return &RandomReply{Delay: delay, DropRate: dropRate, rng: rand.New(rand.NewSource(seed))}
}

// Reply implements ReplyStrategy.
func (r *RandomReply) Reply(ctx context.Context, send func()) {
	if r.drop() {
		return
	}
	if !wait(ctx, r.Delay) {
		return
	}
	send()
}

func (r *RandomReply) drop() bool {
	if r.DropRate <= 0 {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return r.rng.Float64() < r.DropRate
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
