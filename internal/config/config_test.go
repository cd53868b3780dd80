package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/city-weather-rating/internal/domain"
)

const testBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Len(t, cfg.Cities, 15)
	assert.Equal(t, "MOSCOW", cfg.Cities[0].Name)
	assert.Equal(t, ".", cfg.DataDir)
	assert.Equal(t, "aggregated_weather_data.csv", cfg.ReportPath)
	assert.Equal(t, 9, cfg.DaytimeStart)
	assert.Equal(t, 19, cfg.DaytimeEnd)
	assert.Equal(t, []string{"clear", "partly-cloudy", "cloudy", "overcast"}, cfg.SuitableConditions)
	assert.Equal(t, 5, cfg.RequiredDates)
	assert.Equal(t, 15, cfg.FetchConcurrency)
	assert.Equal(t, 60*time.Second, cfg.FetchDeadline)
	assert.Equal(t, 10*time.Second, cfg.ForecastTimeout)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, 3, cfg.TopN)
	assert.Equal(t, domain.MissingAverageZero, cfg.MissingAverage)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "city-ratings", cfg.KafkaRatingsTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	citiesPath := filepath.Join(t.TempDir(), "cities.yaml")
	require.NoError(t, os.WriteFile(citiesPath, []byte(`
cities:
  - name: ROMA
    url: http://localhost/roma.json
  - name: CAIRO
    url: http://localhost/cairo.json
`), 0o600))

	t.Setenv("CITIES_FILE", citiesPath)
	t.Setenv("DATA_DIR", "/tmp/weather")
	t.Setenv("REPORT_PATH", "/tmp/weather/report.csv")
	t.Setenv("DAYTIME_START", "8")
	t.Setenv("DAYTIME_END", "20")
	t.Setenv("SUITABLE_CONDITIONS", "clear, cloudy")
	t.Setenv("REQUIRED_DATES", "3")
	t.Setenv("FETCH_CONCURRENCY", "4")
	t.Setenv("FETCH_DEADLINE", "5s")
	t.Setenv("FORECAST_TIMEOUT", "2s")
	t.Setenv("WORKERS", "2")
	t.Setenv("TOP_N", "5")
	t.Setenv("RATING_MISSING_AVERAGE", "reject")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_RATINGS_TOPIC", "custom-ratings")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []domain.City{
		{Name: "ROMA", URL: "http://localhost/roma.json"},
		{Name: "CAIRO", URL: "http://localhost/cairo.json"},
	}, cfg.Cities)
	assert.Equal(t, "/tmp/weather", cfg.DataDir)
	assert.Equal(t, "/tmp/weather/report.csv", cfg.ReportPath)
	assert.Equal(t, domain.DaytimeWindow{Start: 8, End: 20}, cfg.Window())
	assert.Equal(t, []string{"clear", "cloudy"}, cfg.SuitableConditions)
	assert.Equal(t, 3, cfg.RequiredDates)
	assert.Equal(t, 4, cfg.FetchConcurrency)
	assert.Equal(t, 5*time.Second, cfg.FetchDeadline)
	assert.Equal(t, 2*time.Second, cfg.ForecastTimeout)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 5, cfg.TopN)
	assert.Equal(t, domain.MissingAverageReject, cfg.MissingAverage)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-ratings", cfg.KafkaRatingsTopic)

	rules := cfg.SummaryRules()
	assert.True(t, rules.Suitable.Contains(domain.ConditionCloudy))
	assert.False(t, rules.Suitable.Contains(domain.ConditionOvercast))
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidIntegers(t *testing.T) {
	for _, key := range []string{"REQUIRED_DATES", "FETCH_CONCURRENCY", "WORKERS", "TOP_N", "DAYTIME_START"} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, "-3")
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_InvalidDurations(t *testing.T) {
	for _, key := range []string{"FETCH_DEADLINE", "FORECAST_TIMEOUT"} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, "0s")
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_InvalidWindow(t *testing.T) {
	t.Setenv("DAYTIME_START", "19")
	t.Setenv("DAYTIME_END", "9")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DAYTIME_START")
}

func TestLoad_InvalidPolicy(t *testing.T) {
	t.Setenv("RATING_MISSING_AVERAGE", "ignore")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATING_MISSING_AVERAGE")
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", testBroker)
	t.Setenv("KAFKA_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_MissingCitiesFile(t *testing.T) {
	t.Setenv("CITIES_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CITIES_FILE")
}

func TestParseCities_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":     `cities: []`,
		"no url":    "cities:\n  - name: ROMA\n",
		"duplicate": "cities:\n  - {name: ROMA, url: a}\n  - {name: ROMA, url: b}\n",
		"path":      "cities:\n  - {name: ../ROMA, url: a}\n",
		"yaml":      "cities: [",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseCities([]byte(data))
			require.Error(t, err)
		})
	}
}

func TestDefaultCities(t *testing.T) {
	cities, err := DefaultCities()
	require.NoError(t, err)
	require.Len(t, cities, 15)
	assert.Equal(t, "CAIRO", cities[len(cities)-1].Name)
	for _, c := range cities {
		assert.Contains(t, c.URL, "-response.json", c.Name)
	}
}
