package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/city-weather-rating/internal/domain"
)

// Transform summarizes the raw forecast of each city on the worker pool and
// stores the result. Cities whose forecast cannot be read or parsed are logged
// and dropped. The returned cities are those with a stored summary.
func (p *Pipeline) Transform(ctx context.Context, cities []domain.City) ([]domain.City, error) {
	start := time.Now()
	defer p.observeStage("transform", start)
	logger := p.logger.With("stage", "transform")

	runPool(ctx, p.settings.Workers, cities, func(_ context.Context, city domain.City) {
		if err := p.transformCity(city, logger); err != nil {
			p.metrics.TransformErrors.Inc()
			logger.Warn("transform failed, dropping city", "city", city.Name, "error", err)
		}
	})

	available, err := p.availableCities(p.store.ListSummaries)
	if err != nil {
		return nil, fmt.Errorf("list transformed cities: %w", err)
	}
	logger.Info("transform finished", "input", len(cities), "available", len(available))
	return available, nil
}

func (p *Pipeline) transformCity(city domain.City, logger *slog.Logger) error {
	raw, err := p.store.LoadRaw(city.Name)
	if err != nil {
		return err
	}
	days, err := domain.ParseForecast(raw)
	if err != nil {
		return err
	}
	summary := domain.Summarize(city.Name, days, p.settings.Rules)
	if err := p.store.SaveSummary(summary); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	logger.Debug("city summarized", "city", city.Name, "days", len(summary.Days))
	return nil
}
