package drone

import (
	"math"
	"testing"
)

func TestParseAck(t *testing.T) {
	cases := map[string]bool{
		"ok":     true,
		"error":  false,
		"OK":     false,
		"ok\r\n": false,
		"":       false,
	}
	for raw, want := range cases {
		out := ParseAck(raw)
		if out.Ack != want {
			t.Errorf("ParseAck(%q) = %v, want %v", raw, out.Ack, want)
		}
		if out.Malformed() == want {
			t.Errorf("ParseAck(%q) malformed flag mismatch", raw)
		}
		if out.Raw != raw {
			t.Errorf("raw not kept for %q", raw)
		}
	}
}

func TestParseMeasurement(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"15.0", 15},
		{"87", 87},
		{" 42\r\n", 42},
		{"-3.5", -3.5},
	}
	for _, tc := range cases {
		out := ParseMeasurement(tc.raw)
		if out.Kind != Measurement {
			t.Fatalf("ParseMeasurement(%q) kind %s", tc.raw, out.Kind)
		}
		if math.Abs(out.Value-tc.want) > 1e-9 {
			t.Fatalf("ParseMeasurement(%q) = %v, want %v", tc.raw, out.Value, tc.want)
		}
	}
}

func TestParseMeasurementMalformed(t *testing.T) {
	for _, raw := range []string{"n/a", "", "ok", "12 cm"} {
		out := ParseMeasurement(raw)
		if !out.Malformed() {
			t.Fatalf("expected %q to be malformed", raw)
		}
		if !math.IsNaN(out.Value) {
			t.Fatalf("expected NaN for %q, got %v", raw, out.Value)
		}
	}
}

func TestOutcomeKindString(t *testing.T) {
	if Acknowledged.String() != "acknowledged" || Measurement.String() != "measurement" || Malformed.String() != "malformed" {
		t.Fatalf("unexpected kind names")
	}
	if OutcomeKind(42).String() != "unknown" {
		t.Fatalf("unexpected name for unknown kind")
	}
}

func TestDecodeASCII(t *testing.T) {
	if got := decodeASCII([]byte{'o', 'k', 0xff}); got != "ok?" {
		t.Fatalf("unexpected decode %q", got)
	}
}
