package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/user/framepump/pkg/ports"
)

func TestConsoleLogger_Levels(t *testing.T) {
	tests := []struct {
		level ports.LogLevel
		want  []string
	}{
		{ports.LevelDebug, []string{"d 1", "i 2", "w 3", "e 4"}},
		{ports.LevelInfo, []string{"i 2", "w 3", "e 4"}},
		{ports.LevelWarn, []string{"w 3", "e 4"}},
		{ports.LevelError, []string{"e 4"}},
		{ports.LevelQuiet, nil},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			l := NewConsoleWriter(tt.level, &buf)
			l.Debug("d %d", 1)
			l.Info("i %d", 2)
			l.Warn("w %d", 3)
			l.Error("e %d", 4)

			lines := []string{}
			for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
				if line != "" {
					lines = append(lines, line)
				}
			}
			if len(lines) != len(tt.want) {
				t.Fatalf("expected %d lines, got %d: %q", len(tt.want), len(lines), buf.String())
			}
			for i, want := range tt.want {
				if lines[i] != want {
					t.Errorf("line %d: expected %q, got %q", i, want, lines[i])
				}
			}
		})
	}
}

func TestConsoleLogger_Component(t *testing.T) {
	var buf bytes.Buffer
	root := NewConsoleWriter(ports.LevelInfo, &buf)
	root.WithComponent("pump").Info("opened %s", "a.mov")
	root.Info("plain")

	want := "[pump] opened a.mov\nplain\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestConsoleLogger_WarnToErrorWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	l := &ConsoleLogger{level: ports.LevelDebug, out: &out, errOut: &errOut}
	l.Info("info")
	l.Warn("warn")
	l.Error("error")

	if out.String() != "info\n" {
		t.Errorf("unexpected stdout: %q", out.String())
	}
	if errOut.String() != "warn\nerror\n" {
		t.Errorf("unexpected stderr: %q", errOut.String())
	}
}

func TestZapLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewZap(ports.LevelInfo, "json", &buf)
	l.Debug("hidden")
	l.WithComponent("duration").Warn("estimated %s from %s", "a.mov", "bit rate")
	if err := l.Sync(); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 entry, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("entry is not JSON: %v", err)
	}
	if entry["level"] != "warn" {
		t.Errorf("expected level warn, got %v", entry["level"])
	}
	if entry["msg"] != "estimated a.mov from bit rate" {
		t.Errorf("unexpected msg: %v", entry["msg"])
	}
	if entry["component"] != "duration" {
		t.Errorf("expected component field, got %v", entry["component"])
	}
}

func TestZapLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	l := NewZap(ports.LevelDebug, "console", &buf)
	l.WithComponent("pump").Debug("session %s", "abc")
	l.Error("failed")

	out := buf.String()
	if !strings.Contains(out, "DEBUG") || !strings.Contains(out, "session abc") {
		t.Errorf("missing debug entry: %q", out)
	}
	if !strings.Contains(out, `{"component": "pump"}`) {
		t.Errorf("missing component field: %q", out)
	}
	if !strings.Contains(out, "ERROR") {
		t.Errorf("missing error entry: %q", out)
	}
}

func TestZapLogger_Quiet(t *testing.T) {
	var buf bytes.Buffer
	l := NewZap(ports.LevelQuiet, "json", &buf)
	l.Error("nothing")
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestNoopLogger(t *testing.T) {
	l := NewNoop()
	if l.WithComponent("x") != l {
		t.Error("expected WithComponent to return the same logger")
	}
	l.Error("ignored %d", 1)
}
