package metrics

import (
	"context"
	"errors"
	"strings"

	"github.com/kilianp07/tellocmd/core/drone"
	"github.com/kilianp07/tellocmd/core/logger"
)

// Observer feeds drone client notifications into a Sink. Sink errors are
// logged, never returned to the client.
type Observer struct {
	sink    Sink
	session string
	log     logger.Logger
}

// NewObserver binds sink to one connection.
func NewObserver(sink Sink, session string, log logger.Logger) *Observer {
	if log == nil {
		log = logger.Nop{}
	}
	return &Observer{sink: sink, session: session, log: log}
}

func (o *Observer) ObserveExchange(ex drone.Exchange) {
	ev := ExchangeEvent{
		SessionID: ex.SessionID,
		Source:    ex.Source,
		Verb:      Verb(ex.Command),
		Outcome:   outcomeLabel(ex),
		Latency:   ex.Latency,
		Time:      ex.Started,
	}
	if ex.Err != nil {
		ev.Error = ex.Err.Error()
	}
	if err := o.sink.RecordExchange(ev); err != nil {
		o.log.Errorf("record exchange: %v", err)
	}
}

func (o *Observer) ObserveTelemetry(t drone.Telemetry) {
	ev := TelemetryEvent{SessionID: o.session, BatteryPercent: t.BatteryPercent, Time: t.UpdatedAt}
	if err := o.sink.RecordTelemetry(ev); err != nil {
		o.log.Errorf("record telemetry: %v", err)
	}
}

// Verb strips the arguments from a command.
func Verb(cmd string) string {
	verb, _, _ := strings.Cut(cmd, " ")
	return verb
}

func outcomeLabel(ex drone.Exchange) string {
	switch {
	case ex.Err == nil:
		return ex.Outcome.Kind.String()
	case errors.Is(ex.Err, context.Canceled), errors.Is(ex.Err, drone.ErrClosed):
		return OutcomeCancelled
	default:
		return OutcomeError
	}
}

var (
	_ drone.ExchangeObserver  = (*Observer)(nil)
	_ drone.TelemetryObserver = (*Observer)(nil)
)
