package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestZerologLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLoggerWithWriter("test-component", &buf)

	log.Infof("hello %s", "world")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["component"] != "test-component" {
		t.Fatalf("expected component field, got %v", entry)
	}
	if entry["message"] != "hello world" {
		t.Fatalf("expected formatted message, got %v", entry)
	}
	if entry["level"] != "info" {
		t.Fatalf("expected info level, got %v", entry)
	}
}

func TestZerologLoggerStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLoggerWithWriter("test-component", &buf)

	log.Debugw("optimization complete", map[string]any{"run_id": "r1", "tasks": 2})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["run_id"] != "r1" {
		t.Fatalf("expected run_id field, got %v", entry)
	}
	if entry["tasks"] != float64(2) {
		t.Fatalf("expected tasks field, got %v", entry)
	}
}

func TestNopLogger(t *testing.T) {
	// Must not panic.
	var log NopLogger
	log.Debugf("a")
	log.Debugw("b", map[string]any{"k": 1})
	log.Infof("c")
	log.Warnf("d")
	log.Errorf("e")
}
