package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestJSONOutputCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "debug", Format: "json", Out: &buf})

	log.Error("execution failed", errors.New("boom"), map[string]interface{}{"user": "alice"})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if entry["user"] != "alice" || entry["error"] != "boom" || entry["level"] != "error" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "warn", Format: "json", Out: &buf})

	log.Debug("hidden", nil)
	log.Info("hidden", nil)
	log.Warn("shown", nil)

	if strings.Count(buf.String(), "\n") != 1 || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected only the warning, got %q", buf.String())
	}
}

func TestVerboseForcesDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "error", Format: "json", Verbose: true, Out: &buf})

	log.Debug("visible", nil)
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("verbose logger dropped debug line: %q", buf.String())
	}
}
