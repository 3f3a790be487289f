package metrics

import "github.com/kilianp07/tellocmd/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr enables the /metrics endpoint when set, e.g. ":9100".
	PrometheusAddr string `json:"prometheus_addr"`
}
