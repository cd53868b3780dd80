package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/city-weather-rating/internal/config"
	"github.com/couchcryptid/city-weather-rating/internal/domain"
	"github.com/couchcryptid/city-weather-rating/internal/observability"
)

const (
	publishAttempts = 3
	initialBackoff  = 200 * time.Millisecond
	maxBackoff      = 5 * time.Second
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes city ratings to a Kafka topic.
// It implements pipeline.RatingPublisher.
type Writer struct {
	writer  messageWriter
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewWriter creates a Kafka producer for the configured ratings topic.
func NewWriter(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaRatingsTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, metrics: metrics, logger: logger}
}

// PublishRatings writes one message per rating in a single WriteMessages call.
// Failed writes are retried with exponential backoff until the attempts run out
// or ctx is cancelled.
func (w *Writer) PublishRatings(ctx context.Context, ratings []domain.CityRating) error {
	if len(ratings) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(ratings))
	for i := range ratings {
		msg, err := serializeToMessage(ratings[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		if err = w.writer.WriteMessages(ctx, msgs...); err == nil {
			w.metrics.RatingsPublished.Add(float64(len(msgs)))
			w.logger.Info("ratings published", "count", len(msgs))
			return nil
		}
		w.metrics.RatingPublishError.Inc()
		w.logger.Warn("publish ratings failed", "error", err, "attempt", attempt)

		if attempt == publishAttempts || !retry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return fmt.Errorf("publish ratings: %w", err)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a CityRating into a Kafka message keyed by city.
func serializeToMessage(rating domain.CityRating) (kafkago.Message, error) {
	data, err := json.Marshal(rating)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize rating %s: %w", rating.City, err)
	}
	return kafkago.Message{
		Key:   []byte(rating.City),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "rank", Value: []byte(strconv.Itoa(rating.Rank))},
			{Key: "rated_at", Value: []byte(rating.RatedAt.Format(time.RFC3339))},
		},
	}, nil
}
