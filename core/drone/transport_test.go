package drone

import (
	"context"
	"sync"
	"testing"
)

type datagram struct {
	command string
	reply   string
}

// fakeTransport answers each sent command through respond. When respond
// returns ok=false the command never gets a reply.
type fakeTransport struct {
	mu      sync.Mutex
	respond func(cmd string) (reply string, ok bool)
	sendErr func(cmd string) error
	log     []string
	sends   int
	pending chan datagram
	closeCh chan struct{}
	once    sync.Once
	closes  int
}

func newFakeTransport(respond func(cmd string) (string, bool)) *fakeTransport {
	if respond == nil {
		respond = func(string) (string, bool) { return AckToken, true }
	}
	return &fakeTransport{
		respond: respond,
		pending: make(chan datagram, 64),
		closeCh: make(chan struct{}),
	}
}

func replyAll(reply string) func(string) (string, bool) {
	return func(string) (string, bool) { return reply, true }
}

func (f *fakeTransport) Send(ctx context.Context, payload []byte) error {
	cmd := string(payload)
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.closeCh:
		return ErrClosed
	default:
	}
	f.sends++
	f.log = append(f.log, "send:"+cmd)
	if f.sendErr != nil {
		if err := f.sendErr(cmd); err != nil {
			return err
		}
	}
	if reply, ok := f.respond(cmd); ok {
		f.pending <- datagram{command: cmd, reply: reply}
	}
	return nil
}

func (f *fakeTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case d := <-f.pending:
		f.mu.Lock()
		f.log = append(f.log, "recv:"+d.command)
		f.mu.Unlock()
		return []byte(d.reply), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.closeCh:
		return nil, ErrClosed
	}
}

// Drain drops the queued replies without waiting.
func (f *fakeTransport) Drain() (int, error) {
	n := 0
	for {
		select {
		case d := <-f.pending:
			f.mu.Lock()
			f.log = append(f.log, "drain:"+d.command)
			f.mu.Unlock()
			n++
		default:
			return n, nil
		}
	}
}

// deliver queues a reply for cmd as if it arrived late.
func (f *fakeTransport) deliver(cmd, reply string) {
	f.pending <- datagram{command: cmd, reply: reply}
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
	f.once.Do(func() { close(f.closeCh) })
	return nil
}

func (f *fakeTransport) Sends() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends
}

func (f *fakeTransport) Log() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.log))
	copy(out, f.log)
	return out
}

func (f *fakeTransport) SentCount(cmd string) int {
	n := 0
	for _, e := range f.Log() {
		if e == "send:"+cmd {
			n++
		}
	}
	return n
}

func newTestClient(t testing.TB, tr Transport, opts ...Option) *Client {
	t.Helper()
	c, err := New(DefaultEndpoint(), tr, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}
