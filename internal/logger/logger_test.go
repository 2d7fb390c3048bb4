package logger

import (
	"testing"

	"github.com/storedir/store-directory/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_LevelFallback(t *testing.T) {
	log, err := NewLogger(
		&config.LoggingConfig{Level: "not-a-level", Format: "console"},
		&config.AppConfig{Name: "Store Directory", Environment: "development"},
	)
	require.NoError(t, err)

	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNewLogger_ProductionUsesJSON(t *testing.T) {
	log, err := NewLogger(
		&config.LoggingConfig{Level: "debug"},
		&config.AppConfig{Name: "Store Directory", Environment: "production"},
	)
	require.NoError(t, err)

	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.NotNil(t, WithStore(log, 7, "Target"))
}

func TestBaseConfig_Encoding(t *testing.T) {
	assert.Equal(t, "json", baseConfig("", "production").Encoding)
	assert.Equal(t, "console", baseConfig("", "development").Encoding)
	assert.Equal(t, "json", baseConfig("JSON", "development").Encoding)
	assert.Equal(t, "console", baseConfig("console", "production").Encoding)
}
