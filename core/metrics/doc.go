// Package metrics defines the recorders fed by drone exchanges and battery
// polls. Sinks like PromSink and InfluxSink live in infra/metrics and
// register themselves by name; NewSink returns a MultiSink when several
// are configured. Observer adapts a Sink to the drone client observers.
package metrics
