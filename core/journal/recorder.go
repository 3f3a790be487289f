package journal

import (
	"context"
	"sync"
	"time"

	"github.com/kilianp07/tellocmd/core/drone"
	"github.com/kilianp07/tellocmd/core/logger"
)

// DefaultBuffer is the queue length of a Recorder.
const DefaultBuffer = 256

// Recorder journals exchanges off the caller's goroutine. When the queue is
// full new records are dropped and counted.
type Recorder struct {
	store Store
	log   logger.Logger
	queue chan Record

	mu      sync.Mutex
	closed  bool
	dropped int
	done    chan struct{}
}

// NewRecorder starts the writer goroutine.
func NewRecorder(store Store, buffer int, log logger.Logger) *Recorder {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if log == nil {
		log = logger.Nop{}
	}
	r := &Recorder{store: store, log: log, queue: make(chan Record, buffer), done: make(chan struct{})}
	go r.run()
	return r
}

// ObserveExchange enqueues ex.
func (r *Recorder) ObserveExchange(ex drone.Exchange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- FromExchange(ex):
	default:
		r.dropped++
	}
}

// Dropped returns how many records were discarded.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

func (r *Recorder) run() {
	defer close(r.done)
	for rec := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.store.Append(ctx, rec); err != nil {
			r.log.Errorf("journal append %s: %v", rec.Command, err)
		}
		cancel()
	}
}

// Close flushes queued records and closes the store.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	dropped := r.dropped
	r.mu.Unlock()

	<-r.done
	if dropped > 0 {
		r.log.Warnf("journal dropped %d records", dropped)
	}
	return r.store.Close()
}

var _ drone.ExchangeObserver = (*Recorder)(nil)
