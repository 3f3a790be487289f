// Package metrics provides the Prometheus and InfluxDB sinks and the
// /metrics HTTP endpoint.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/tellocmd/core/metrics"
)

// PromSink records exchanges and battery polls in Prometheus collectors.
type PromSink struct {
	exchanges *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	battery   prometheus.Gauge
	lastPoll  prometheus.Gauge
}

// latencyBuckets spans a LAN round trip up to a takeoff, which only
// acknowledges once airborne.
var latencyBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// NewPromSink registers collectors on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers collectors on reg, reusing collectors a
// previous sink already registered. A nil reg defaults to the global registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	exchanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drone_exchanges_total",
		Help: "Command round trips by verb, source and outcome",
	}, []string{"verb", "source", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "drone_exchange_latency_seconds",
		Help:    "Time between sending a command and receiving its reply",
		Buckets: latencyBuckets,
	}, []string{"verb"})
	battery := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "drone_battery_percent",
		Help: "Last polled battery level",
	})
	lastPoll := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "drone_battery_last_poll_timestamp_seconds",
		Help: "Unix timestamp of the last successful battery poll",
	})

	var err error
	if exchanges, err = register(reg, exchanges); err != nil {
		return nil, err
	}
	if latency, err = register(reg, latency); err != nil {
		return nil, err
	}
	if battery, err = register(reg, battery); err != nil {
		return nil, err
	}
	if lastPoll, err = register(reg, lastPoll); err != nil {
		return nil, err
	}
	return &PromSink{exchanges: exchanges, latency: latency, battery: battery, lastPoll: lastPoll}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordExchange counts the exchange and observes its latency when a reply arrived.
func (s *PromSink) RecordExchange(ev coremetrics.ExchangeEvent) error {
	s.exchanges.WithLabelValues(ev.Verb, ev.Source, ev.Outcome).Inc()
	if ev.Error == "" {
		s.latency.WithLabelValues(ev.Verb).Observe(ev.Latency.Seconds())
	}
	return nil
}

// RecordTelemetry sets the battery gauges.
func (s *PromSink) RecordTelemetry(ev coremetrics.TelemetryEvent) error {
	s.battery.Set(ev.BatteryPercent)
	s.lastPoll.Set(float64(ev.Time.UnixNano()) / 1e9)
	return nil
}
