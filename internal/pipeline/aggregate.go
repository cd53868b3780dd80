package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/city-weather-rating/internal/domain"
)

// DiscoverSchema picks the report dates from the first summary, in city order,
// that has exactly RequiredDates days, and writes the report header. It fails
// with domain.ErrSchema when no summary qualifies.
func (p *Pipeline) DiscoverSchema(_ context.Context, cities []domain.City) (domain.ReportSchema, error) {
	start := time.Now()
	defer p.observeStage("schema", start)
	logger := p.logger.With("stage", "schema")

	summaries := make([]domain.CitySummary, 0, len(cities))
	for _, city := range cities {
		s, err := p.store.LoadSummary(city.Name)
		if err != nil {
			logger.Warn("load summary failed", "city", city.Name, "error", err)
			continue
		}
		summaries = append(summaries, s)
	}

	schema, err := domain.SelectSchema(summaries, p.settings.RequiredDates)
	if err != nil {
		logger.Error("schema discovery failed", "candidates", len(summaries), "required_dates", p.settings.RequiredDates)
		return domain.ReportSchema{}, err
	}
	if err := p.report.Create(schema); err != nil {
		return domain.ReportSchema{}, fmt.Errorf("create report: %w", err)
	}
	logger.Info("report schema selected", "dates", schema.Dates)
	return schema, nil
}

// Aggregate builds each city's two report rows on the worker pool and appends
// them as one pair. A city without days contributes nothing; a failing city is
// logged and skipped.
func (p *Pipeline) Aggregate(ctx context.Context, cities []domain.City, schema domain.ReportSchema) error {
	start := time.Now()
	defer p.observeStage("aggregate", start)
	logger := p.logger.With("stage", "aggregate")

	runPool(ctx, p.settings.Workers, cities, func(_ context.Context, city domain.City) {
		p.aggregateCity(city, schema, logger)
	})

	logger.Info("aggregation finished", "cities", len(cities))
	return nil
}

func (p *Pipeline) aggregateCity(city domain.City, schema domain.ReportSchema, logger *slog.Logger) {
	summary, err := p.store.LoadSummary(city.Name)
	if err != nil {
		p.metrics.AggregateErrors.Inc()
		logger.Warn("load summary failed, skipping city", "city", city.Name, "error", err)
		return
	}

	temp, hours, err := domain.BuildRows(summary, schema)
	if errors.Is(err, domain.ErrNoDays) {
		logger.Info("city has no days, skipping", "city", city.Name)
		return
	}
	if err != nil {
		p.metrics.AggregateErrors.Inc()
		logger.Warn("build rows failed, skipping city", "city", city.Name, "error", err)
		return
	}

	if err := p.report.AppendPair(temp, hours); err != nil {
		p.metrics.AggregateErrors.Inc()
		logger.Error("append rows failed, skipping city", "city", city.Name, "error", err)
		return
	}
	p.metrics.ReportRows.Add(2)
}
