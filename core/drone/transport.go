package drone

import "context"

// Transport is a connectionless channel bound to a single peer.
//
// Receive returns whatever datagram arrives next. Close is idempotent and
// makes pending and later calls fail with ErrClosed.
type Transport interface {
	Send(ctx context.Context, payload []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Drainer is implemented by transports that can discard datagrams already
// queued without waiting for new ones.
type Drainer interface {
	Drain() (int, error)
}
