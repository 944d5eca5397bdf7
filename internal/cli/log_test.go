package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("test") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("test") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("test") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if gotLog := buf.Len() > 0; gotLog != tt.wantLog {
				t.Errorf("got log output = %v, want %v", gotLog, tt.wantLog)
			}
		})
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	newProgress(newLogger(&buf, log.InfoLevel)).done("Generated 3 artifacts")

	if !strings.Contains(buf.String(), "Generated 3 artifacts (") {
		t.Errorf("progress output = %q", buf.String())
	}
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel)

	if got := loggerFromContext(withLogger(context.Background(), custom)); got != custom {
		t.Error("loggerFromContext should return the attached logger")
	}
	if loggerFromContext(context.Background()) == nil {
		t.Error("loggerFromContext should fall back to the default logger")
	}
}

func TestProgressHooks(t *testing.T) {
	var buf bytes.Buffer
	h := newProgressHooks(newLogger(&buf, log.InfoLevel))
	ctx := context.Background()

	h.OnRunStart(ctx, "run", 6, 3)
	h.OnArtifactComplete(ctx, 2, 3, 0, nil)
	h.OnArtifactComplete(ctx, 0, 3, 0, nil)
	h.OnArtifactComplete(ctx, 1, 3, 0, errors.New("boom"))

	out := buf.String()
	for _, want := range []string{"Progress: 1/3", "Progress: 2/3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Progress: 3/3") {
		t.Error("failed artifacts should not count as progress")
	}

	buf.Reset()
	h.OnRunStart(ctx, "run2", 6, 1)
	h.OnArtifactComplete(ctx, 0, 1, 0, nil)
	if !strings.Contains(buf.String(), "Progress: 1/1") {
		t.Errorf("counter should reset per run: %q", buf.String())
	}
}
