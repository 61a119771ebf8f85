package logging

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewAcceptsAllFormats(t *testing.T) {
	for _, format := range []string{"text", "json", "kv", ""} {
		if _, err := New("INFO", format); err != nil {
			t.Errorf("New(INFO, %q): %v", format, err)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New("INFO", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNewAcceptsAllLevels(t *testing.T) {
	for _, level := range []string{"DEBUG", "INFO", "WARNING", "ERROR", ""} {
		if _, err := New(level, "json"); err != nil {
			t.Errorf("New(%q, json): %v", level, err)
		}
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("CRITICAL", "json"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestKVEncoderHandlesCommonFieldKinds(t *testing.T) {
	logger, err := New("DEBUG", "kv")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Smoke test: logging must not panic across field kinds the
	// correlator and orchestrator actually emit.
	logger.Info("test message",
		zap.String("mac", "aa:bb:cc:dd:ee:ff"),
		zap.Int("count", 3),
		zap.Bool("stable", true),
	)
}
