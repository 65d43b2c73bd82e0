package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/ssargent/folio/pkg/config"
)

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, config.Logging{Level: "info", Format: "text"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Debug("hidden")
	logger.Info("store opened", "keys", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message logged at info level: %s", out)
	}
	if !strings.Contains(out, "msg=\"store opened\"") || !strings.Contains(out, "keys=3") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, config.Logging{Level: "debug", Format: "JSON"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Debug("paragraph saved", "key", "paragraph:n1:p1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}
	if entry["msg"] != "paragraph saved" || entry["key"] != "paragraph:n1:p1" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, config.Logging{Level: "chatty"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, config.Logging{Level: "warn"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	child := logger.With("component", "store")

	child.Info("before")
	if err := logger.SetLevel("info"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	child.Info("after")

	out := buf.String()
	if strings.Contains(out, "before") || !strings.Contains(out, "after") {
		t.Errorf("level change not applied to derived logger: %s", out)
	}
	if logger.Level() != slog.LevelInfo {
		t.Errorf("Level() = %v", logger.Level())
	}
	if err := logger.SetLevel("nope"); err == nil {
		t.Error("expected error for unknown level")
	}
}
