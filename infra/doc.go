// Package infra holds the adapters behind the core interfaces: the UDP
// transport, the MQTT cockpit bridge, metrics sinks, Sentry and zerolog.
// Core packages never import infra.
package infra
