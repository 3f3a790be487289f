package metrics

import (
	"errors"
	"time"
)

// Outcome labels for ExchangeEvent.
const (
	OutcomeAcknowledged = "acknowledged"
	OutcomeMeasurement  = "measurement"
	OutcomeMalformed    = "malformed"
	OutcomeError        = "error"
	OutcomeCancelled    = "cancelled"
)

// ExchangeEvent is one finished command round trip.
type ExchangeEvent struct {
	SessionID string
	Source    string
	// Verb is the command without arguments, keeping label cardinality low.
	Verb    string
	Outcome string
	Latency time.Duration
	Error   string
	Time    time.Time
}

// ExchangeRecorder records command round trips.
type ExchangeRecorder interface {
	RecordExchange(ev ExchangeEvent) error
}

// TelemetryEvent is one successful battery poll.
type TelemetryEvent struct {
	SessionID      string
	BatteryPercent float64
	Time           time.Time
}

// TelemetryRecorder records battery polls.
type TelemetryRecorder interface {
	RecordTelemetry(ev TelemetryEvent) error
}

// Sink records every event kind.
type Sink interface {
	ExchangeRecorder
	TelemetryRecorder
}

// NopSink implements Sink with no-op methods.
type NopSink struct{}

func (NopSink) RecordExchange(ExchangeEvent) error   { return nil }
func (NopSink) RecordTelemetry(TelemetryEvent) error { return nil }

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordExchange forwards ev to every sink. A failing sink does not stop the others.
func (m *MultiSink) RecordExchange(ev ExchangeEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordExchange(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordTelemetry forwards ev to every sink.
func (m *MultiSink) RecordTelemetry(ev TelemetryEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordTelemetry(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CloseSink releases s and, for a MultiSink, every member that holds
// resources.
func CloseSink(s Sink) {
	switch v := s.(type) {
	case *MultiSink:
		for _, inner := range v.Sinks {
			CloseSink(inner)
		}
	case interface{ Close() }:
		v.Close()
	}
}
