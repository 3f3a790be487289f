package drone

import "time"

// Exchange sources.
const (
	SourceCaller = "caller"
	SourcePoller = "poller"
)

// Exchange describes one finished command round trip.
type Exchange struct {
	ID        string
	SessionID string
	Source    string
	Command   string
	Reply     string
	Outcome   Outcome
	Err       error
	Started   time.Time
	// Latency covers send and receive, not the wait for the gate.
	Latency time.Duration
}

// ExchangeObserver is notified after every exchange, successful or not.
// Implementations must not block and must not call back into the Client.
type ExchangeObserver interface {
	ObserveExchange(ex Exchange)
}

// TelemetryObserver is notified after every successful poll.
type TelemetryObserver interface {
	ObserveTelemetry(t Telemetry)
}

// ExchangeObserverFunc adapts a function to ExchangeObserver.
type ExchangeObserverFunc func(Exchange)

func (f ExchangeObserverFunc) ObserveExchange(ex Exchange) { f(ex) }

// TelemetryObserverFunc adapts a function to TelemetryObserver.
type TelemetryObserverFunc func(Telemetry)

func (f TelemetryObserverFunc) ObserveTelemetry(t Telemetry) { f(t) }
