package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pharmacart/pkg/logger"
	"pharmacart/pkg/metrics"
	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/rating"
	"pharmacart/storefront-service/internal/app/storefront/repository"

	"github.com/segmentio/kafka-go"
)

const serviceName = "storefront-service"

// RatingRecomputer - пересчет рейтинга одного товара
type RatingRecomputer interface {
	Recompute(ctx context.Context, productID, trigger string) (rating.Summary, error)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ReviewConsumer читает review_events и пересчитывает рейтинг товара.
// Повторная доставка безопасна: пересчет идемпотентен.
type ReviewConsumer struct {
	reader   messageReader
	ratings  RatingRecomputer
	topic    string
	groupID  string
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewReviewConsumer(brokers []string, topic, groupID string, ratings RatingRecomputer) *ReviewConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
		ReadBackoffMin: 100 * time.Millisecond,
		ReadBackoffMax: time.Second,
	})

	return newReviewConsumer(reader, topic, groupID, ratings)
}

func newReviewConsumer(reader messageReader, topic, groupID string, ratings RatingRecomputer) *ReviewConsumer {
	return &ReviewConsumer{
		reader:   reader,
		ratings:  ratings,
		topic:    topic,
		groupID:  groupID,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

func (c *ReviewConsumer) Start(ctx context.Context) {
	logger.Info().Str("topic", c.topic).Str("group", c.groupID).Msg("Starting review events consumer")
	go c.consume(ctx)
}

func (c *ReviewConsumer) Stop() {
	close(c.stopChan)
	<-c.doneChan
	if err := c.reader.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close review events reader")
	}
	logger.Info().Msg("Review events consumer stopped")
}

func (c *ReviewConsumer) consume(ctx context.Context) {
	defer close(c.doneChan)

	for {
		select {
		case <-c.stopChan:
			return
		default:
		}

		readCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		message, err := c.reader.FetchMessage(readCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if readCtx.Err() == context.DeadlineExceeded {
				continue
			}
			metrics.RecordKafkaError(serviceName, c.topic, "fetch")
			logger.Error().Err(err).Str("topic", c.topic).Msg("Error fetching message")
			select {
			case <-c.stopChan:
				return
			case <-time.After(time.Second):
			}
			continue
		}

		timer := metrics.NewTimer()
		if err := c.processMessage(ctx, message); err != nil {
			// offset не коммитим, сообщение придет повторно
			metrics.RecordKafkaError(serviceName, c.topic, "process")
			logger.Error().Err(err).Int64("offset", message.Offset).Int("partition", message.Partition).Msg("Error processing review event")
			continue
		}
		metrics.RecordKafkaMessageConsumed(serviceName, c.topic, c.groupID, timer.Duration())

		if err := c.reader.CommitMessages(ctx, message); err != nil {
			metrics.RecordKafkaError(serviceName, c.topic, "commit")
			logger.Error().Err(err).Msg("Error committing message")
		}
	}
}

func (c *ReviewConsumer) processMessage(ctx context.Context, message kafka.Message) error {
	var event entity.ReviewEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		// битое сообщение не чинится повтором
		logger.Warn().Err(err).Int64("offset", message.Offset).Msg("Skipping malformed review event")
		return nil
	}
	if event.ProductID == "" {
		logger.Warn().Str("review_id", event.ReviewID).Msg("Skipping review event without product_id")
		return nil
	}

	logger.Debug().
		Str("event_type", event.EventType).
		Str("product_id", event.ProductID).
		Int64("offset", message.Offset).
		Msg("Received review event")

	if _, err := c.ratings.Recompute(ctx, event.ProductID, rating.TriggerEvent); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			logger.Warn().Str("product_id", event.ProductID).Msg("Review event for deleted product")
			return nil
		}
		return fmt.Errorf("failed to recompute rating for %s: %w", event.ProductID, err)
	}
	return nil
}
