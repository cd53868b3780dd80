package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/city-weather-rating/internal/domain"
)

//go:embed cities.yaml
var defaultCities []byte

// Config holds all run settings, populated from environment variables.
type Config struct {
	Cities     []domain.City
	CitiesFile string
	DataDir    string
	ReportPath string

	// Daily summary rules.
	DaytimeStart       int
	DaytimeEnd         int
	SuitableConditions []string

	// Stage settings.
	RequiredDates    int
	FetchConcurrency int
	FetchDeadline    time.Duration
	ForecastTimeout  time.Duration
	Workers          int
	TopN             int
	MissingAverage   domain.MissingAveragePolicy

	LogLevel        string
	LogFormat       string
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// Optional ratings sink.
	KafkaBrokers      []string
	KafkaRatingsTopic string
	KafkaEnabled      bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		CitiesFile:        os.Getenv("CITIES_FILE"),
		DataDir:           sharedcfg.EnvOrDefault("DATA_DIR", "."),
		ReportPath:        sharedcfg.EnvOrDefault("REPORT_PATH", "aggregated_weather_data.csv"),
		LogLevel:          sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		HTTPAddr:          os.Getenv("HTTP_ADDR"),
		ShutdownTimeout:   shutdownTimeout,
		KafkaRatingsTopic: sharedcfg.EnvOrDefault("KAFKA_RATINGS_TOPIC", "city-ratings"),
		SuitableConditions: splitList(sharedcfg.EnvOrDefault("SUITABLE_CONDITIONS",
			"clear,partly-cloudy,cloudy,overcast")),
	}

	if cfg.DaytimeStart, err = parseInt("DAYTIME_START", 9, 0); err != nil {
		return nil, err
	}
	if cfg.DaytimeEnd, err = parseInt("DAYTIME_END", 19, 1); err != nil {
		return nil, err
	}
	if cfg.RequiredDates, err = parseInt("REQUIRED_DATES", 5, 1); err != nil {
		return nil, err
	}
	if cfg.FetchConcurrency, err = parseInt("FETCH_CONCURRENCY", 15, 1); err != nil {
		return nil, err
	}
	if cfg.Workers, err = parseInt("WORKERS", runtime.NumCPU(), 1); err != nil {
		return nil, err
	}
	if cfg.TopN, err = parseInt("TOP_N", 3, 1); err != nil {
		return nil, err
	}
	if cfg.FetchDeadline, err = parseDuration("FETCH_DEADLINE", "60s"); err != nil {
		return nil, err
	}
	if cfg.ForecastTimeout, err = parseDuration("FORECAST_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	policy, err := domain.ParseMissingAveragePolicy(sharedcfg.EnvOrDefault("RATING_MISSING_AVERAGE", "zero"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATING_MISSING_AVERAGE: %w", err)
	}
	cfg.MissingAverage = policy

	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(raw)
	}
	cfg.KafkaEnabled = len(cfg.KafkaBrokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		cfg.KafkaEnabled = v == "true"
	}

	if cfg.Cities, err = loadCities(cfg.CitiesFile); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if err := c.Window().Validate(); err != nil {
		return fmt.Errorf("invalid DAYTIME_START/DAYTIME_END: %w", err)
	}
	if len(c.SuitableConditions) == 0 {
		return errors.New("SUITABLE_CONDITIONS must not be empty")
	}
	if c.ReportPath == "" {
		return errors.New("REPORT_PATH is required")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if c.KafkaEnabled && c.KafkaRatingsTopic == "" {
		return errors.New("KAFKA_RATINGS_TOPIC is required")
	}
	return nil
}

// Window returns the configured daytime window.
func (c *Config) Window() domain.DaytimeWindow {
	return domain.DaytimeWindow{Start: c.DaytimeStart, End: c.DaytimeEnd}
}

// SummaryRules returns the window and suitable-condition set used by the transform stage.
func (c *Config) SummaryRules() domain.SummaryRules {
	return domain.SummaryRules{
		Window:   c.Window(),
		Suitable: domain.NewConditionSet(c.SuitableConditions...),
	}
}

type citiesFile struct {
	Cities []domain.City `yaml:"cities"`
}

// loadCities reads the city list from path, or the embedded default when path is empty.
func loadCities(path string) ([]domain.City, error) {
	data := defaultCities
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read CITIES_FILE: %w", err)
		}
	}
	return parseCities(data)
}

// DefaultCities returns the embedded city list.
func DefaultCities() ([]domain.City, error) {
	return parseCities(defaultCities)
}

func parseCities(data []byte) ([]domain.City, error) {
	var f citiesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse cities: %w", err)
	}
	if len(f.Cities) == 0 {
		return nil, errors.New("parse cities: no cities configured")
	}

	seen := make(map[string]bool, len(f.Cities))
	for i, c := range f.Cities {
		if c.Name == "" || c.URL == "" {
			return nil, fmt.Errorf("parse cities: entry %d needs name and url", i)
		}
		if strings.ContainsAny(c.Name, `/\`) {
			return nil, fmt.Errorf("parse cities: invalid name %q", c.Name)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("parse cities: duplicate city %q", c.Name)
		}
		seen[c.Name] = true
	}
	return f.Cities, nil
}

func parseInt(key string, def, minValue int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < minValue {
		return 0, fmt.Errorf("invalid %s: must be an integer >= %d", key, minValue)
	}
	return n, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
