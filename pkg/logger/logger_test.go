package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{
			name: "development config",
			cfg:  Config{Level: "debug", Environment: "development", ServiceName: "extractor"},
		},
		{
			name: "production config",
			cfg:  Config{Level: "info", Environment: "production", ServiceName: "reconciler"},
		},
		{
			name: "invalid level falls back to info",
			cfg:  Config{Level: "nonsense", Environment: "development", ServiceName: "extractor"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestLoggerMethods(t *testing.T) {
	l, err := New(Config{Level: "debug", Environment: "development", ServiceName: "test"})
	require.NoError(t, err)

	// Must not panic
	l.Debug("debug message", zap.String("key", "value"))
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message", errors.New("boom"))

	child := l.With(zap.String("run_id", "abc"))
	assert.NotNil(t, child)
	child.Info("child message")
}
