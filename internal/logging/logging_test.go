package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/edufund/internal/logging"
)

func TestNewWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWithOutput(&buf, "debug", "json")
	require.NoError(t, err)

	logging.Component(logger, "balance").WithField("strategy", "decimal").Debug("attempt")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "balance", entry["component"])
	assert.Equal(t, "decimal", entry["strategy"])
	assert.Equal(t, "attempt", entry["msg"])
}

func TestNewWithOutput_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWithOutput(&buf, "warn", "text")
	require.NoError(t, err)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewWithOutput_Invalid(t *testing.T) {
	_, err := logging.NewWithOutput(&bytes.Buffer{}, "loud", "json")
	require.Error(t, err)

	_, err = logging.NewWithOutput(&bytes.Buffer{}, "info", "xml")
	require.Error(t, err)
}

func TestComponent_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		logging.Component(nil, "x").Info("dropped")
	})
}
