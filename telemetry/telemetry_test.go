package telemetry

import (
	"context"
	"testing"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), "mediashelf", "  ", 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown returned %v", err)
	}
}

func TestClampSampleRate(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{0.25, 0.25},
		{1, 1},
		{-1, 0.1},
		{1.5, 0.1},
	}
	for _, tt := range tests {
		if got := ClampSampleRate(tt.in); got != tt.want {
			t.Errorf("ClampSampleRate(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
