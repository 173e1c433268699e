package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("quiet by default", func(t *testing.T) {
		log, err := New(false)
		require.NoError(t, err)
		defer func() { _ = log.Sync() }()
		assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("verbose enables debug", func(t *testing.T) {
		log, err := New(true)
		require.NoError(t, err)
		defer func() { _ = log.Sync() }()
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	})
}
