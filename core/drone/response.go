package drone

import (
	"math"
	"strconv"
	"strings"
)

// OutcomeKind tags a parsed reply.
type OutcomeKind int

const (
	Acknowledged OutcomeKind = iota
	Measurement
	Malformed
)

func (k OutcomeKind) String() string {
	switch k {
	case Acknowledged:
		return "acknowledged"
	case Measurement:
		return "measurement"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Outcome is the typed result of one exchange.
type Outcome struct {
	Kind  OutcomeKind
	Ack   bool
	Value float64
	Raw   string
}

// Malformed reports whether the reply did not have the expected shape.
func (o Outcome) Malformed() bool { return o.Kind == Malformed }

// ParseAck interprets the reply of a boolean command. Only the exact
// acknowledgement token counts as success.
func ParseAck(raw string) Outcome {
	if raw == AckToken {
		return Outcome{Kind: Acknowledged, Ack: true, Raw: raw}
	}
	return Outcome{Kind: Malformed, Ack: false, Raw: raw}
}

// ParseMeasurement interprets the reply of a numeric query. Surrounding
// whitespace is tolerated; anything that is not a decimal number yields NaN.
func ParseMeasurement(raw string) Outcome {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return Outcome{Kind: Malformed, Value: math.NaN(), Raw: raw}
	}
	return Outcome{Kind: Measurement, Value: v, Raw: raw}
}
