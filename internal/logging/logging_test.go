package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCorrelationID(t *testing.T) {
	ctx := context.Background()
	if got := CorrelationID(ctx); got != "" {
		t.Errorf("CorrelationID(empty) = %q", got)
	}

	id := GenerateCorrelationID()
	if len(id) != 16 {
		t.Errorf("GenerateCorrelationID length = %d, want 16", len(id))
	}
	if id == GenerateCorrelationID() {
		t.Error("GenerateCorrelationID returned the same id twice")
	}

	ctx = WithCorrelationID(ctx, id)
	if got := CorrelationID(ctx); got != id {
		t.Errorf("CorrelationID = %q, want %q", got, id)
	}
}
