package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoggerConfigTagsServiceAndEnv(t *testing.T) {
	prod := loggerConfig("tourpack-service", "production")
	assert.Equal(t, "json", prod.Encoding)
	assert.Equal(t, map[string]interface{}{"service": "tourpack-service", "env": "production"}, prod.InitialFields)

	dev := loggerConfig("tourpack-worker", "development")
	assert.Equal(t, "console", dev.Encoding)
	assert.True(t, dev.Development)
	assert.Equal(t, "tourpack-worker", dev.InitialFields["service"])
	assert.Equal(t, "development", dev.InitialFields["env"])
}

func TestInitLoggerInstallsGlobal(t *testing.T) {
	require.NoError(t, InitLogger("tourpack-service", "development"))
	t.Cleanup(func() { logger = nil })

	assert.Same(t, GetLogger(), zap.L())
}
