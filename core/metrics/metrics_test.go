package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kilianp07/tellocmd/core/drone"
	"github.com/kilianp07/tellocmd/core/factory"
)

type recordSink struct {
	exchanges []ExchangeEvent
	telemetry []TelemetryEvent
	err       error
}

func (r *recordSink) RecordExchange(ev ExchangeEvent) error {
	r.exchanges = append(r.exchanges, ev)
	return r.err
}

func (r *recordSink) RecordTelemetry(ev TelemetryEvent) error {
	r.telemetry = append(r.telemetry, ev)
	return r.err
}

func TestMultiSink(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordExchange(ExchangeEvent{Verb: "takeoff"}); !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if err := m.RecordTelemetry(TelemetryEvent{BatteryPercent: 50}); !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(s2.exchanges) != 1 || len(s2.telemetry) != 1 {
		t.Fatalf("second sink skipped after first failed")
	}
}

func TestNewSink(t *testing.T) {
	s, err := NewSink(nil)
	if err != nil {
		t.Fatalf("create nop default: %v", err)
	}
	if _, ok := s.(NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}

	name := fmt.Sprintf("record-%d", time.Now().UnixNano())
	if err := RegisterSink(name, func(map[string]any) (Sink, error) { return &recordSink{}, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	s, err = NewSink([]factory.ModuleConfig{{Type: name}, {Type: name}})
	if err != nil {
		t.Fatalf("create multi: %v", err)
	}
	m, ok := s.(*MultiSink)
	if !ok || len(m.Sinks) != 2 {
		t.Fatalf("expected MultiSink with 2 sinks, got %T", s)
	}
	if _, err := NewSink([]factory.ModuleConfig{{Type: "missing"}, {Type: name}}); !errors.Is(err, factory.ErrUnknownModule) {
		t.Fatalf("expected unknown module error, got %v", err)
	}
}

func TestObserver(t *testing.T) {
	sink := &recordSink{}
	obs := NewObserver(sink, "s1", nil)
	now := time.Now()

	obs.ObserveExchange(drone.Exchange{SessionID: "s1", Source: drone.SourceCaller, Command: "up 20", Outcome: drone.ParseAck("ok"), Started: now, Latency: time.Millisecond})
	obs.ObserveExchange(drone.Exchange{Command: "land", Err: fmt.Errorf("land: %w", context.Canceled)})
	obs.ObserveExchange(drone.Exchange{Command: "battery?", Err: errors.New("receive: i/o timeout")})
	obs.ObserveTelemetry(drone.Telemetry{BatteryPercent: 64, UpdatedAt: now})

	if len(sink.exchanges) != 3 {
		t.Fatalf("expected 3 exchanges, got %d", len(sink.exchanges))
	}
	first := sink.exchanges[0]
	if first.Verb != "up" || first.Outcome != OutcomeAcknowledged || first.Latency != time.Millisecond {
		t.Fatalf("unexpected event %+v", first)
	}
	if sink.exchanges[1].Outcome != OutcomeCancelled || sink.exchanges[2].Outcome != OutcomeError {
		t.Fatalf("unexpected failure labels %+v", sink.exchanges[1:])
	}
	if len(sink.telemetry) != 1 || sink.telemetry[0].SessionID != "s1" || sink.telemetry[0].BatteryPercent != 64 {
		t.Fatalf("unexpected telemetry %+v", sink.telemetry)
	}
}

type closingSink struct {
	NopSink
	closed int
}

func (c *closingSink) Close() { c.closed++ }

func TestCloseSink(t *testing.T) {
	a, b := &closingSink{}, &closingSink{}
	CloseSink(NewMultiSink(a, NopSink{}, NewMultiSink(b)))
	if a.closed != 1 || b.closed != 1 {
		t.Fatalf("closed a=%d b=%d", a.closed, b.closed)
	}
	CloseSink(NopSink{})
}
