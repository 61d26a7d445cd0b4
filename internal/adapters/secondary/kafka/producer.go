package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"log/slog"

	"github.com/IBM/sarama"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	kafkaPorts "github.com/Sskutushev/Bookly-sub000/internal/ports/kafka"
)

const (
	HeaderEventType            = "event_type"
	EventTypePurchaseCompleted = "purchase.completed"
)

// Producer реализация Kafka producer
type Producer struct {
	producer sarama.SyncProducer
	cfg      *Config
	log      *slog.Logger
}

// NewProducer создаёт новый Kafka producer
func NewProducer(cfg *Config, log *slog.Logger) (*Producer, error) {
	config := cfg.SaramaConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(cfg.GetBrokers(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.Info("kafka producer created",
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
	)

	return newProducer(producer, cfg, log), nil
}

func newProducer(producer sarama.SyncProducer, cfg *Config, log *slog.Logger) *Producer {
	return &Producer{
		producer: producer,
		cfg:      cfg,
		log:      log,
	}
}

var _ kafkaPorts.IEventPublisher = (*Producer)(nil)

// PublishPurchaseCompleted публикует событие о покупке, ключ - id пользователя (порядок событий одного пользователя)
func (p *Producer) PublishPurchaseCompleted(ctx context.Context, event domain.PurchaseCompletedEvent) error {
	valueBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal purchase event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.cfg.Topic,
		Key:   sarama.StringEncoder(event.UserID),
		Value: sarama.ByteEncoder(valueBytes),
		Headers: []sarama.RecordHeader{
			{Key: []byte(HeaderEventType), Value: []byte(EventTypePurchaseCompleted)},
			{Key: []byte("purchase_id"), Value: []byte(event.PurchaseID)},
			{Key: []byte("payment_method"), Value: []byte(event.PaymentMethod)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.Debug("kafka send failed",
			"error", err,
			"topic", p.cfg.Topic,
			"purchase_id", event.PurchaseID,
		)
		return fmt.Errorf("kafka send failed [topic=%s, purchase_id=%s]: %w",
			p.cfg.Topic, event.PurchaseID, err)
	}

	p.log.Debug("purchase event sent to kafka",
		"topic", p.cfg.Topic,
		"partition", partition,
		"offset", offset,
		"purchase_id", event.PurchaseID,
	)
	return nil
}

// Close закрывает producer
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	p.log.Info("kafka producer closed")
	return nil
}
