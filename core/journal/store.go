// Package journal persists every drone exchange for later inspection.
package journal

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kilianp07/tellocmd/core/drone"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown journal backend")

// Record is one journaled exchange.
type Record struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Command   string    `json:"command"`
	Reply     string    `json:"reply,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	LatencyMS float64   `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
}

// FromExchange converts a finished exchange.
func FromExchange(ex drone.Exchange) Record {
	r := Record{
		ID:        ex.ID,
		SessionID: ex.SessionID,
		Timestamp: ex.Started,
		Source:    ex.Source,
		Command:   ex.Command,
		Reply:     ex.Reply,
		LatencyMS: float64(ex.Latency) / float64(time.Millisecond),
	}
	if ex.Err != nil {
		r.Error = ex.Err.Error()
	} else {
		r.Outcome = ex.Outcome.Kind.String()
	}
	return r
}

// Query filters records. Zero fields match everything.
type Query struct {
	Start     time.Time
	End       time.Time
	Command   string
	SessionID string
}

// Match reports whether r satisfies q. Command matches on the verb, so
// "up" matches "up 20".
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.SessionID != "" && r.SessionID != q.SessionID {
		return false
	}
	if q.Command != "" && verb(r.Command) != verb(q.Command) {
		return false
	}
	return true
}

// Store persists records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

func verb(cmd string) string {
	v, _, _ := strings.Cut(cmd, " ")
	return v
}
