package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"garbage", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWriter(&buf, "info", "json")

	logger.Info("import finished", "group", "linchpin-suite", "inserted", 12)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["group"] != "linchpin-suite" {
		t.Errorf("group = %v", entry["group"])
	}
}

func TestSetupWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWriter(&buf, "error", "text")

	logger.Info("should be dropped")
	logger.Error("should appear")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Error("info entry leaked through error level")
	}
	if !strings.Contains(out, "should appear") {
		t.Error("error entry missing")
	}
}
