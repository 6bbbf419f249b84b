package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	orig := output
	origLogger := log.Logger
	origLevel := zerolog.GlobalLevel()
	output = buf
	t.Cleanup(func() {
		output = orig
		log.Logger = origLogger
		zerolog.SetGlobalLevel(origLevel)
	})
	return buf
}

func TestSetupJSON(t *testing.T) {
	buf := captureOutput(t)
	Setup("debug", "json")

	log.Debug().Str("address", "A1").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "A1", entry["address"])
	assert.Equal(t, serviceName, entry["service"])
	assert.Equal(t, "debug", entry["level"])
}

func TestSetupUnknownLevelDefaultsToInfo(t *testing.T) {
	buf := captureOutput(t)
	Setup("verbose", "json")

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	log.Debug().Msg("hidden")
	assert.Empty(t, buf.String())
}

func TestSetupConsole(t *testing.T) {
	buf := captureOutput(t)
	Setup("info", "console")

	log.Info().Msg("pipeline job starting")
	assert.Contains(t, buf.String(), "pipeline job starting")
	assert.NotContains(t, buf.String(), `"message"`)
}
