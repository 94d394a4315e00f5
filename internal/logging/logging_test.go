package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"streamcorpus/internal/config"
)

func TestNewJSONAtLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, lvl, err := New(config.LogConfig{Level: "warn", Format: config.LogFormatJSON}, &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("dropped")
	Component(logger, "chunk").Warn("undeclared entity type", "code", 40)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record above warn, got %d: %s", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["component"] != "chunk" || rec["code"] != float64(40) || rec["level"] != "WARN" {
		t.Fatalf("unexpected record %v", rec)
	}

	lvl.Set(slog.LevelDebug)
	buf.Reset()
	logger.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Fatalf("expected level change to take effect")
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(config.LogConfig{Level: "info"}, &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("archived", "key", "a.sc")
	if !strings.Contains(buf.String(), "msg=archived key=a.sc") {
		t.Fatalf("unexpected text output %q", buf.String())
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, _, err := New(config.LogConfig{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected level error")
	}
	if _, _, err := New(config.LogConfig{Level: "info", Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected format error")
	}
}

func TestOrDefault(t *testing.T) {
	if OrDefault(nil) != slog.Default() {
		t.Fatalf("nil must fall back to slog.Default")
	}
	l := slog.New(slog.DiscardHandler)
	if OrDefault(l) != l {
		t.Fatalf("non-nil logger must be returned as is")
	}
}
