package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/compsig/internal/constants"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"uppercase INFO", "INFO", slog.LevelInfo},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"uppercase TRACE", "TRACE", LevelTrace},
		{"mixed case Debug", "Debug", slog.LevelDebug},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name  string
		level string
	}{
		{"info level", "info"},
		{"debug level", "debug"},
		{"trace level", "trace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)
			if logger == nil {
				t.Fatal("NewLogger returned nil")
			}
		})
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		logAtDebug bool
		logAtInfo  bool
	}{
		{"info filters debug", "info", false, true},
		{"debug passes debug", "debug", true, true},
		{"trace passes debug", "trace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			logger.Debug("debug message")
			hasDebug := strings.Contains(buf.String(), "debug message")
			if hasDebug != tt.logAtDebug {
				t.Errorf("debug message visible = %v, want %v (buf: %q)", hasDebug, tt.logAtDebug, buf.String())
			}

			buf.Reset()
			logger.Info("info message")
			hasInfo := strings.Contains(buf.String(), "info message")
			if hasInfo != tt.logAtInfo {
				t.Errorf("info message visible = %v, want %v (buf: %q)", hasInfo, tt.logAtInfo, buf.String())
			}
		})
	}
}

func TestLevelTrace(t *testing.T) {
	// Trace should be below debug (more verbose)
	if LevelTrace >= slog.LevelDebug {
		t.Errorf("LevelTrace (%d) should be less than LevelDebug (%d)", LevelTrace, slog.LevelDebug)
	}
}

func TestNewTraceLogger_InfoLevel(t *testing.T) {
	root := t.TempDir()
	tl := NewTraceLogger(root, "info")

	if tl != nil {
		t.Error("expected nil TraceLogger at info level")
	}

	// Nil logger should still be safe to use
	tl.Log("trial_start", map[string]any{"trial": 0})

	path := filepath.Join(root, constants.StateDirName, constants.TraceFileName)
	if _, err := os.Stat(path); err == nil {
		t.Error("trace.jsonl should not exist at info level")
	}
}

func TestNewTraceLogger_DebugLevel(t *testing.T) {
	root := t.TempDir()
	tl := NewTraceLogger(root, "debug")
	if tl == nil {
		t.Fatal("expected non-nil TraceLogger at debug level")
	}
	defer tl.Close()

	tl.Log("training_window", map[string]any{"trial": 2, "correct": 612.0})

	path := filepath.Join(root, constants.StateDirName, constants.TraceFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read trace.jsonl: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("failed to parse JSONL entry: %v", err)
	}
	if entry["event"] != "training_window" {
		t.Errorf("event = %v, want training_window", entry["event"])
	}
	if entry["correct"] != 612.0 {
		t.Errorf("correct = %v, want 612", entry["correct"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected 'time' field in trace entry")
	}
}

func TestTraceLogger_MultipleWrites(t *testing.T) {
	root := t.TempDir()
	tl := NewTraceLogger(root, "trace")
	defer tl.Close()

	tl.Log("trial_start", nil)
	tl.Log("trial_end", nil)

	data, err := os.ReadFile(filepath.Join(root, constants.StateDirName, constants.TraceFileName))
	if err != nil {
		t.Fatalf("failed to read trace.jsonl: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), string(data))
	}
	var second map[string]any
	json.Unmarshal([]byte(lines[1]), &second)
	if second["event"] != "trial_end" {
		t.Errorf("second event = %v, want trial_end", second["event"])
	}
}

func TestTraceLogger_NilSafety(t *testing.T) {
	var tl *TraceLogger
	tl.Log("should_not_panic", nil)
	tl.Close()
}

func TestTraceLogger_DoesNotMutateCallerMap(t *testing.T) {
	tl := NewTraceLogger(t.TempDir(), "debug")
	defer tl.Close()

	fields := map[string]any{"trial": 1}
	tl.Log("trial_start", fields)

	if _, ok := fields["time"]; ok {
		t.Error("Log() should not mutate caller's map, but 'time' was injected")
	}
	if _, ok := fields["event"]; ok {
		t.Error("Log() should not mutate caller's map, but 'event' was injected")
	}
}

func TestTraceLogger_LogAfterClose(t *testing.T) {
	tl := NewTraceLogger(t.TempDir(), "debug")
	tl.Log("before_close", nil)
	tl.Close()
	tl.Log("after_close", nil)
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("dropped")
}
