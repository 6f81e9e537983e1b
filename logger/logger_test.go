package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARN":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestHelpersWriteToGlobalLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := ReplaceForTest(zap.New(core))
	defer restore()

	Debug("dropped")
	Info("listed", String("path", "/media"), Int("items", 3))
	Warn("slow", Duration("elapsed", 0))

	if logs.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", logs.Len())
	}
	entry := logs.All()[0]
	if entry.Message != "listed" || entry.ContextMap()["path"] != "/media" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if !Enabled(zapcore.WarnLevel) || Enabled(zapcore.DebugLevel) {
		t.Fatal("Enabled should follow the core level")
	}
}

func TestNoopBeforeInit(t *testing.T) {
	restore := ReplaceForTest(nil)
	defer restore()

	Info("nothing happens")
	Sync()
	if Enabled(zapcore.ErrorLevel) {
		t.Fatal("nil logger reports enabled")
	}
}
