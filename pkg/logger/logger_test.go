package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	log, err := New("debug", "console")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Errorf("Expected debug level enabled")
	}

	log, err = New("", "")
	if err != nil {
		t.Fatalf("New with defaults: %v", err)
	}
	if log.Core().Enabled(zapcore.DebugLevel) || !log.Core().Enabled(zapcore.InfoLevel) {
		t.Errorf("Expected info level by default")
	}

	if _, err := New("loud", ""); err == nil {
		t.Errorf("Expected error for unknown level")
	}
	if _, err := NewSugared("", "xml"); err == nil {
		t.Errorf("Expected error for unknown encoding")
	}
}
