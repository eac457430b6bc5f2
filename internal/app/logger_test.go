package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerJSONCarriesServiceAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{LogFormat: "json", LogLevel: "info", AppEnv: "staging"})
	logger.Info("roles: invalidate governance cache")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, applicationName, record["service"])
	assert.Equal(t, "staging", record["env"])
	assert.Equal(t, "INFO", record["level"])
}

func TestLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{LogLevel: "warn"})
	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestLoggerFallsBackOnUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, &Config{LogLevel: "chatty"}).Info("visible")
	assert.Contains(t, buf.String(), "visible")
}
