package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the rating pipeline.
type Metrics struct {
	PipelineRunning prometheus.Gauge
	StageDuration   *prometheus.HistogramVec // labels: stage={fetch,transform,schema,aggregate,rate}

	// Per-city outcomes.
	FetchRequests   *prometheus.CounterVec // labels: outcome={success,error,deadline}
	FetchDuration   prometheus.Histogram
	TransformErrors prometheus.Counter
	AggregateErrors prometheus.Counter
	ReportRows      prometheus.Counter

	// Rating results.
	CitiesRated        prometheus.Gauge
	RatingDefaults     prometheus.Counter
	RatingsPublished   prometheus.Counter
	RatingPublishError prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.PipelineRunning,
		m.StageDuration,
		m.FetchRequests,
		m.FetchDuration,
		m.TransformErrors,
		m.AggregateErrors,
		m.ReportRows,
		m.CitiesRated,
		m.RatingDefaults,
		m.RatingsPublished,
		m.RatingPublishError,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_rating",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress, 0 otherwise.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weather_rating",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_rating",
			Name:      "fetch_requests_total",
			Help:      "Forecast fetches by outcome (success, error, deadline, circuit_open).",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_rating",
			Name:      "fetch_duration_seconds",
			Help:      "Forecast request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_rating",
			Name:      "transform_errors_total",
			Help:      "Cities dropped because their forecast could not be summarized.",
		}),
		AggregateErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_rating",
			Name:      "aggregate_errors_total",
			Help:      "Cities skipped during report aggregation.",
		}),
		ReportRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_rating",
			Name:      "report_rows_total",
			Help:      "Data rows appended to the report.",
		}),
		CitiesRated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_rating",
			Name:      "cities_rated",
			Help:      "Number of cities ranked by the last run.",
		}),
		RatingDefaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_rating",
			Name:      "rating_defaulted_averages_total",
			Help:      "Cities rated with a missing average scored as zero.",
		}),
		RatingsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_rating",
			Name:      "ratings_published_total",
			Help:      "City ratings written to the ratings topic.",
		}),
		RatingPublishError: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_rating",
			Name:      "rating_publish_errors_total",
			Help:      "Failed attempts to publish ratings.",
		}),
	}
}
