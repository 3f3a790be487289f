package drone

import (
	"errors"
	"testing"
)

func TestNewEndpoint(t *testing.T) {
	ep, err := NewEndpoint("192.168.10.1", 8889, 6037)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ep.ControlAddr() != "192.168.10.1:8889" {
		t.Fatalf("unexpected addr %s", ep.ControlAddr())
	}
	if ep != DefaultEndpoint() {
		t.Fatalf("expected default endpoint, got %v", ep)
	}
}

func TestNewEndpointInvalid(t *testing.T) {
	cases := []struct {
		name  string
		host  string
		ctrl  int
		video int
	}{
		{"empty host", "", 8889, 6037},
		{"zero control port", "h", 0, 6037},
		{"control port too high", "h", 65536, 6037},
		{"negative video port", "h", 8889, -1},
		{"video port too high", "h", 8889, 70000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewEndpoint(tc.host, tc.ctrl, tc.video); !errors.Is(err, ErrInvalidEndpoint) {
				t.Fatalf("expected ErrInvalidEndpoint, got %v", err)
			}
		})
	}
}

func TestEndpointBoundaries(t *testing.T) {
	if _, err := NewEndpoint("::1", 1, 65535); err != nil {
		t.Fatalf("boundary ports rejected: %v", err)
	}
	ep, _ := NewEndpoint("::1", 1, 65535)
	if ep.ControlAddr() != "[::1]:1" {
		t.Fatalf("unexpected ipv6 addr %s", ep.ControlAddr())
	}
}

func TestNewClientRejectsZeroEndpoint(t *testing.T) {
	if _, err := New(Endpoint{}, newFakeTransport(nil)); !errors.Is(err, ErrInvalidEndpoint) {
		t.Fatalf("expected ErrInvalidEndpoint, got %v", err)
	}
	if _, err := New(DefaultEndpoint(), nil); err == nil {
		t.Fatalf("expected error for nil transport")
	}
}
