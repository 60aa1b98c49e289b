package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type captureSink struct {
	messages []string
}

func (c *captureSink) Log(message string) {
	c.messages = append(c.messages, message)
}

func TestNewWritesJSONFileAndConsole(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, err := New(dir, &console, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("hello world", "key", "value")

	if !strings.Contains(console.String(), "hello world") {
		t.Errorf("console output missing message: %q", console.String())
	}

	raw, err := os.ReadFile(filepath.Join(dir, "app.json"))
	if err != nil {
		t.Fatalf("reading app.json: %v", err)
	}
	var rec map[string]any
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &rec); err != nil {
		t.Fatalf("app.json is not valid JSON: %v", err)
	}
	if rec["msg"] != "hello world" {
		t.Errorf("json record msg = %v, want hello world", rec["msg"])
	}
}

func TestNewFansOutToSink(t *testing.T) {
	dir := t.TempDir()
	sink := &captureSink{}

	logger, err := New(dir, &bytes.Buffer{}, sink)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Warn("disk is getting full")

	if len(sink.messages) != 1 {
		t.Fatalf("sink received %d messages, want 1", len(sink.messages))
	}
	if !strings.Contains(sink.messages[0], "disk is getting full") {
		t.Errorf("sink message = %q, missing expected text", sink.messages[0])
	}
}

func TestNewWithNilSinkIsNoop(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(dir, &bytes.Buffer{}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	// Must not panic with a nil sink.
	logger.Error("should not crash")
}
