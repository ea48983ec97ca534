package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerDefaultConfig(t *testing.T) {
	logger := NewLogger(nil)
	if logger == nil {
		t.Fatal("NewLogger(nil) returned nil")
	}
	if logger.level != LevelInfo {
		t.Errorf("default level = %v, want LevelInfo", logger.level)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelWarn, Output: &buf})

	logger.Debug("should not appear")
	logger.Info("should not appear either")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below configured level, got: %s", buf.String())
	}

	logger.Warn("degraded submission rate", "accepted", 0)
	if !strings.Contains(buf.String(), "degraded submission rate") {
		t.Errorf("expected warn message in output, got: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "accepted=0") {
		t.Errorf("expected key=value pair in output, got: %s", buf.String())
	}
}

func TestLoggerErrorf(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	logger.Errorf("io_submit failed: %v", 11)
	if !strings.Contains(buf.String(), "io_submit failed: 11") {
		t.Errorf("expected formatted message, got: %s", buf.String())
	}
}

func TestGlobalLoggerFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Output: &buf}))

	Debug("registering operation", "id", 7)
	if !strings.Contains(buf.String(), "id=7") {
		t.Errorf("expected id=7 in output, got: %s", buf.String())
	}

	buf.Reset()
	Info("worker quiesced")
	if !strings.Contains(buf.String(), "worker quiesced") {
		t.Errorf("expected message in output, got: %s", buf.String())
	}
}

func TestDefaultSingleton(t *testing.T) {
	SetDefault(nil)
	first := Default()
	second := Default()
	if first != second {
		t.Error("Default() should return the same instance across calls")
	}
}
