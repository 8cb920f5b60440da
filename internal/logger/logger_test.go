package logger

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name  string
		opts  Options
		debug bool
	}{
		{name: "console info", opts: Options{}, debug: false},
		{name: "json debug", opts: Options{JSON: true, Debug: true}, debug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.OutputPaths = []string{filepath.Join(dir, tt.name+".log")}

			log, err := New(tt.opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer func() { _ = log.Sync() }()

			if got := log.Core().Enabled(zapcore.DebugLevel); got != tt.debug {
				t.Fatalf("expected debug enabled=%v, got %v", tt.debug, got)
			}
			if !log.Core().Enabled(zapcore.InfoLevel) {
				t.Fatalf("expected info level to be enabled")
			}
		})
	}
}
