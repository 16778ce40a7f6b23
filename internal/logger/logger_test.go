package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewLevels(t *testing.T) {
	for level, want := range map[string]bool{"debug": true, "info": false, "bogus": false} {
		l, err := New(level)
		if err != nil {
			t.Fatalf("%s: %v", level, err)
		}
		if got := l.Core().Enabled(zap.DebugLevel); got != want {
			t.Errorf("%s: debug enabled = %v, want %v", level, got, want)
		}
	}
}
