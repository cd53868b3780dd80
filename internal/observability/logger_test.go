package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("fetched", "city", "MOSCOW")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "fetched", entry["msg"])
	assert.Equal(t, "MOSCOW", entry["city"])
	assert.Equal(t, "city-weather-rating", entry["service"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "text")

	logger.Debug("visible")

	assert.Contains(t, buf.String(), "msg=visible")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestNewMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()
	m.FetchRequests.WithLabelValues("success").Inc()
	m.StageDuration.WithLabelValues("fetch").Observe(0.5)
	assert.NotNil(t, m.CitiesRated)
}
