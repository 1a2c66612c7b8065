package common

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		level LogLevel
		name  string
		slog  slog.Level
	}{
		{LogLevelError, "error", slog.LevelError},
		{LogLevelWarn, "warn", slog.LevelWarn},
		{LogLevelInfo, "info", slog.LevelInfo},
		{LogLevelDebug, "debug", slog.LevelDebug},
		{LogLevel(42), "info", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.name {
			t.Errorf("LogLevel(%d).String() = %s, want %s", tt.level, got, tt.name)
		}
		if got := tt.level.ToSlogLevel(); got != tt.slog {
			t.Errorf("LogLevel(%d).ToSlogLevel() = %v, want %v", tt.level, got, tt.slog)
		}
	}
}

func TestNewLoggerWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, LogLevelWarn)
	if logger.Level() != LogLevelWarn {
		t.Errorf("Level() = %v, want warn", logger.Level())
	}

	logger.Info("hidden")
	logger.Warn("shown", "n", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "n=3") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestLoggerContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, LogLevelDebug)

	logger.WithComponent("runner").WithMigration("001_init.sql").Debug("applying")
	logger.WithStore("sqlite").Info("ready")

	out := buf.String()
	for _, want := range []string{"component=runner", "migration=001_init.sql", "store=sqlite"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
	if got := logger.WithComponent("x").Level(); got != LogLevelDebug {
		t.Errorf("derived logger level = %v, want debug", got)
	}
}

func TestDefaultLogger(t *testing.T) {
	orig := GetLogger()
	defer SetDefaultLogger(orig)

	var buf bytes.Buffer
	SetDefaultLogger(NewLoggerWithWriter(&buf, LogLevelDebug))

	LogInfo("info message", "k", "v")
	LogDebug("debug message")
	LogWarn("warn message")
	LogError("error message", errTest("boom"))

	out := buf.String()
	for _, want := range []string{"info message", "debug message", "warn message", "error message", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
