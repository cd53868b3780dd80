package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/city-weather-rating/internal/domain"
)

// Fetch downloads every configured city with at most FetchConcurrency requests
// in flight. One deadline covers the whole batch; requests still running when
// it fires are cancelled and count as failures. A failed city is logged and
// dropped. The returned cities are those with a stored raw record.
func (p *Pipeline) Fetch(ctx context.Context) ([]domain.City, error) {
	start := time.Now()
	defer p.observeStage("fetch", start)
	logger := p.logger.With("stage", "fetch")

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var expired atomic.Bool
	if p.settings.FetchDeadline > 0 {
		timer := p.clock.AfterFunc(p.settings.FetchDeadline, func() {
			expired.Store(true)
			cancel()
		})
		defer timer.Stop()
	}

	var g errgroup.Group
	g.SetLimit(p.settings.FetchConcurrency)
	for _, city := range p.settings.Cities {
		g.Go(func() error {
			p.fetchCity(batchCtx, city, &expired, logger)
			return nil
		})
	}
	_ = g.Wait()

	if expired.Load() {
		logger.Warn("fetch deadline elapsed", "deadline", p.settings.FetchDeadline)
	}

	available, err := p.availableCities(p.store.ListRaw)
	if err != nil {
		return nil, fmt.Errorf("list fetched cities: %w", err)
	}
	logger.Info("fetch finished", "requested", len(p.settings.Cities), "available", len(available))
	return available, nil
}

func (p *Pipeline) fetchCity(ctx context.Context, city domain.City, expired *atomic.Bool, logger *slog.Logger) {
	if err := ctx.Err(); err != nil {
		p.fetchFailed(city, err, expired, logger)
		return
	}

	data, err := p.source.GetForecast(ctx, city)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		p.fetchFailed(city, err, expired, logger)
		return
	}

	if err := p.store.SaveRaw(city.Name, data); err != nil {
		p.metrics.FetchRequests.WithLabelValues("error").Inc()
		logger.Error("save raw forecast failed", "city", city.Name, "error", err)
		return
	}
	p.metrics.FetchRequests.WithLabelValues("success").Inc()
	logger.Debug("forecast stored", "city", city.Name, "bytes", len(data))
}

func (p *Pipeline) fetchFailed(city domain.City, err error, expired *atomic.Bool, logger *slog.Logger) {
	if expired.Load() && errors.Is(err, context.Canceled) {
		p.metrics.FetchRequests.WithLabelValues("deadline").Inc()
		logger.Warn("fetch cancelled by deadline", "city", city.Name)
		return
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		p.metrics.FetchRequests.WithLabelValues("circuit_open").Inc()
		logger.Warn("forecast circuit open, dropping city", "city", city.Name)
		return
	}
	p.metrics.FetchRequests.WithLabelValues("error").Inc()
	logger.Warn("fetch failed, dropping city", "city", city.Name, "error", err)
}
