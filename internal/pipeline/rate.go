package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/city-weather-rating/internal/domain"
)

// Rate scores the completed report pair by pair, ranks the cities, writes the
// ranks back into the report and returns the full ranking. A configured
// publisher receives the ranking; publish failures are logged only.
func (p *Pipeline) Rate(ctx context.Context) ([]domain.CityRating, error) {
	start := time.Now()
	defer p.observeStage("rate", start)
	logger := p.logger.With("stage", "rate")

	schema, rows, err := p.report.Read()
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	scored, err := domain.ScorePairs(rows, p.settings.MissingAverage)
	if err != nil {
		return nil, err
	}
	for _, r := range scored {
		if r.Defaulted {
			p.metrics.RatingDefaults.Inc()
			logger.Warn("missing average scored as zero", "city", r.City)
		}
	}

	ranked := domain.RankCities(scored)
	domain.ApplyRanks(rows, ranked)
	if err := p.report.Rewrite(schema, rows); err != nil {
		return nil, fmt.Errorf("rewrite report: %w", err)
	}

	p.metrics.CitiesRated.Set(float64(len(ranked)))
	p.ratings.Store(&ranked)
	p.ready.Store(true)
	logger.Info("cities rated", "count", len(ranked))

	if p.publisher != nil {
		if err := p.publisher.PublishRatings(ctx, ranked); err != nil {
			logger.Error("publish ratings failed", "error", err)
		}
	}
	return ranked, nil
}
