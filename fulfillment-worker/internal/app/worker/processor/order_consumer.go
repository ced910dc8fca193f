package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pharmacart/fulfillment-worker/internal/app/worker/entity"
	"pharmacart/fulfillment-worker/internal/app/worker/service"
	"pharmacart/pkg/logger"
	"pharmacart/pkg/metrics"

	"github.com/segmentio/kafka-go"
)

const serviceName = "fulfillment-worker"

// OrderEventProcessor обрабатывает одно событие заказа
type OrderEventProcessor interface {
	ProcessOrderEvent(ctx context.Context, event *entity.OrderEvent) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Stats() kafka.ReaderStats
	Close() error
}

// OrderConsumer читает топик order_events
type OrderConsumer struct {
	reader    messageReader
	processor OrderEventProcessor
	topic     string
	groupID   string
	stopChan  chan struct{}
	doneChan  chan struct{}
}

func NewOrderConsumer(
	brokers []string,
	topic string,
	groupID string,
	minBytes int,
	maxBytes int,
	processor OrderEventProcessor,
) *OrderConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    minBytes,
		MaxBytes:    maxBytes,
		StartOffset: kafka.FirstOffset,
		// синхронный коммит после записи в журнал
		CommitInterval: 0,
		ReadBackoffMin: 100 * time.Millisecond,
		ReadBackoffMax: 1 * time.Second,
	})

	return newOrderConsumer(reader, topic, groupID, processor)
}

func newOrderConsumer(reader messageReader, topic, groupID string, processor OrderEventProcessor) *OrderConsumer {
	return &OrderConsumer{
		reader:    reader,
		processor: processor,
		topic:     topic,
		groupID:   groupID,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start запускает чтение в отдельной горутине
func (c *OrderConsumer) Start(ctx context.Context) {
	logger.Info().Str("topic", c.topic).Str("group", c.groupID).Msg("Starting order events consumer")
	go c.consume(ctx)
}

// Stop дожидается текущего сообщения и закрывает reader
func (c *OrderConsumer) Stop() {
	logger.Info().Msg("Stopping order events consumer...")
	close(c.stopChan)
	<-c.doneChan
	if err := c.reader.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close order events reader")
	}
	logger.Info().Msg("Order events consumer stopped")
}

func (c *OrderConsumer) consume(ctx context.Context) {
	defer close(c.doneChan)

	for {
		select {
		case <-c.stopChan:
			return
		default:
		}

		// Читаем сообщение с таймаутом, чтобы проверять stopChan
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
			// Не коммитим offset при ошибке - сообщение будет повторно обработано
			metrics.RecordKafkaError(serviceName, c.topic, "process")
			logger.Error().
				Err(err).
				Int64("offset", message.Offset).
				Int("partition", message.Partition).
				Msg("Error processing order event")
			continue
		}
		metrics.RecordKafkaMessageConsumed(serviceName, c.topic, c.groupID, timer.Duration())

		if err := c.reader.CommitMessages(ctx, message); err != nil {
			metrics.RecordKafkaError(serviceName, c.topic, "commit")
			logger.Error().Err(err).Msg("Error committing message")
		}
	}
}

func (c *OrderConsumer) processMessage(ctx context.Context, message kafka.Message) error {
	var event entity.OrderEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		logger.Warn().Err(err).Int64("offset", message.Offset).Msg("Skipping malformed order event")
		return nil
	}

	logger.Debug().
		Str("event_type", event.EventType).
		Str("order_id", event.OrderID).
		Int64("offset", message.Offset).
		Int("partition", message.Partition).
		Msg("Received order event")

	if err := c.processor.ProcessOrderEvent(ctx, &event); err != nil {
		if errors.Is(err, service.ErrInvalidEvent) {
			logger.Warn().Int64("offset", message.Offset).Msg("Skipping order event without order_id")
			return nil
		}
		return fmt.Errorf("failed to process order event: %w", err)
	}
	return nil
}

// Lag - отставание группы, используется в health
func (c *OrderConsumer) Lag() int64 {
	return c.reader.Stats().Lag
}
