package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			l, err := New(level)
			require.NoError(t, err)
			want, _ := zapcore.ParseLevel(level)
			assert.True(t, l.Core().Enabled(want))
		})
	}

	l, err := New("warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))

	_, err = New("loud")
	assert.Error(t, err)
}

func TestInitialize(t *testing.T) {
	require.NoError(t, Initialize("error"))
	assert.False(t, Logger.Core().Enabled(zapcore.WarnLevel))
	Cleanup()

	assert.Error(t, Initialize("nope"))
}
