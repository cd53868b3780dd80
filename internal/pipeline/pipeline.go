package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/city-weather-rating/internal/config"
	"github.com/couchcryptid/city-weather-rating/internal/domain"
	"github.com/couchcryptid/city-weather-rating/internal/observability"
)

// ForecastSource downloads the raw forecast document of a city.
type ForecastSource interface {
	GetForecast(ctx context.Context, city domain.City) ([]byte, error)
}

// Store persists per-city intermediate records between stages.
type Store interface {
	Reset() error
	SaveRaw(city string, data []byte) error
	LoadRaw(city string) ([]byte, error)
	ListRaw() ([]string, error)
	SaveSummary(summary domain.CitySummary) error
	LoadSummary(city string) (domain.CitySummary, error)
	ListSummaries() ([]string, error)
}

// Report is the shared tabular output. AppendPair must write both rows as one
// unit with respect to concurrent callers.
type Report interface {
	Create(schema domain.ReportSchema) error
	AppendPair(temp, hours domain.ReportRow) error
	Read() (domain.ReportSchema, []domain.ReportRow, error)
	Rewrite(schema domain.ReportSchema, rows []domain.ReportRow) error
}

// RatingPublisher receives the final ranking of a run.
type RatingPublisher interface {
	PublishRatings(ctx context.Context, ratings []domain.CityRating) error
}

// Settings holds the run parameters.
type Settings struct {
	Cities           []domain.City
	Rules            domain.SummaryRules
	RequiredDates    int
	FetchConcurrency int
	FetchDeadline    time.Duration
	Workers          int
	TopN             int
	MissingAverage   domain.MissingAveragePolicy

	// Clock arms the fetch deadline. Nil means the real clock.
	Clock clockwork.Clock
}

// SettingsFromConfig maps the process configuration onto run settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Cities:           cfg.Cities,
		Rules:            cfg.SummaryRules(),
		RequiredDates:    cfg.RequiredDates,
		FetchConcurrency: cfg.FetchConcurrency,
		FetchDeadline:    cfg.FetchDeadline,
		Workers:          cfg.Workers,
		TopN:             cfg.TopN,
		MissingAverage:   cfg.MissingAverage,
	}
}

// Pipeline runs fetch, transform, schema discovery, aggregation and rating,
// with a full barrier between stages.
type Pipeline struct {
	settings  Settings
	clock     clockwork.Clock
	source    ForecastSource
	store     Store
	report    Report
	publisher RatingPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics

	ready   atomic.Bool
	ratings atomic.Pointer[[]domain.CityRating]
}

// New creates a Pipeline. publisher may be nil.
func New(settings Settings, source ForecastSource, store Store, report Report, publisher RatingPublisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if settings.FetchConcurrency < 1 {
		settings.FetchConcurrency = 1
	}
	if settings.Workers < 1 {
		settings.Workers = 1
	}
	if settings.MissingAverage == "" {
		settings.MissingAverage = domain.MissingAverageZero
	}
	clock := settings.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		settings:  settings,
		clock:     clock,
		source:    source,
		store:     store,
		report:    report,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a run has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// LastRatings returns the full ranking of the last completed run.
func (p *Pipeline) LastRatings() []domain.CityRating {
	if r := p.ratings.Load(); r != nil {
		return *r
	}
	return nil
}

// Run executes one full pass and returns the top-N cities.
func (p *Pipeline) Run(ctx context.Context) ([]domain.CityRating, error) {
	start := time.Now()
	p.logger.Info("pipeline started", "cities", len(p.settings.Cities))
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	if err := p.store.Reset(); err != nil {
		return nil, fmt.Errorf("reset store: %w", err)
	}

	fetched, err := p.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	transformed, err := p.Transform(ctx, fetched)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	schema, err := p.DiscoverSchema(ctx, transformed)
	if err != nil {
		return nil, err
	}

	if err := p.Aggregate(ctx, transformed, schema); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ranked, err := p.Rate(ctx)
	if err != nil {
		return nil, err
	}

	top := domain.TopN(ranked, p.settings.TopN)
	p.logger.Info("pipeline finished",
		"fetched", len(fetched),
		"transformed", len(transformed),
		"rated", len(ranked),
		"duration", time.Since(start),
	)
	return top, nil
}

// availableCities keeps the configured cities whose record is listed, in
// configured order.
func (p *Pipeline) availableCities(list func() ([]string, error)) ([]domain.City, error) {
	names, err := list()
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}
	out := make([]domain.City, 0, len(names))
	for _, c := range p.settings.Cities {
		if present[c.Name] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
