package logger

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	fn()
	return buf.String()
}

func TestSimpleLoggerLevels(t *testing.T) {
	l := NewSimpleLogger() // INFO

	out := captureOutput(t, func() {
		l.Debug("hidden", nil)
		l.Info("visible", nil)
	})

	if strings.Contains(out, "hidden") {
		t.Error("debug output should be suppressed at INFO level")
	}
	if !strings.Contains(out, "[INFO] visible") {
		t.Errorf("expected info line, got %q", out)
	}
}

func TestSimpleLoggerFieldOrdering(t *testing.T) {
	l := NewWithLevel("DEBUG")

	out := captureOutput(t, func() {
		l.Info("msg", map[string]interface{}{"zebra": 1, "alpha": 2})
	})

	alpha := strings.Index(out, "alpha=2")
	zebra := strings.Index(out, "zebra=1")
	if alpha < 0 || zebra < 0 || alpha > zebra {
		t.Errorf("fields should be sorted by key, got %q", out)
	}
}

func TestSimpleLoggerWithField(t *testing.T) {
	base := NewWithLevel("DEBUG")
	scoped := base.WithField("request_id", "abc")

	out := captureOutput(t, func() {
		scoped.Info("msg", map[string]interface{}{"extra": 1})
	})

	if !strings.Contains(out, "request_id=abc") || !strings.Contains(out, "extra=1") {
		t.Errorf("persistent and call fields should merge, got %q", out)
	}

	out = captureOutput(t, func() {
		base.Info("msg", nil)
	})
	if strings.Contains(out, "request_id") {
		t.Error("WithField must not mutate the parent logger")
	}
}

func TestSetLevelUnknownKeepsCurrent(t *testing.T) {
	l := NewWithLevel("ERROR")
	l.SetLevel("bogus")

	out := captureOutput(t, func() {
		l.Warn("nope", nil)
		l.Error("yes", nil)
	})

	if strings.Contains(out, "nope") {
		t.Error("unknown level must not reset filtering")
	}
	if !strings.Contains(out, "[ERROR] yes") {
		t.Errorf("expected error line, got %q", out)
	}
}
