package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
)

func testEvent() domain.PurchaseCompletedEvent {
	return domain.PurchaseCompletedEvent{
		PurchaseID:    "p1",
		UserID:        "u1",
		BookID:        "b1",
		Amount:        decimal.NewFromInt(149),
		PaymentMethod: domain.PaymentMethodTelegramStars,
		TransactionID: "ch_1",
		CompletedAt:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestPublishPurchaseCompleted(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var event domain.PurchaseCompletedEvent
		if err := json.Unmarshal(val, &event); err != nil {
			return err
		}
		if event.PurchaseID != "p1" || event.TransactionID != "ch_1" {
			return errors.New("unexpected event payload")
		}
		return nil
	})

	p := newProducer(mock, &Config{Topic: "bookly.purchases"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, p.PublishPurchaseCompleted(context.Background(), testEvent()))
	require.NoError(t, p.Close())
}

func TestPublishPurchaseCompletedFailure(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := newProducer(mock, &Config{Topic: "bookly.purchases"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := p.PublishPurchaseCompleted(context.Background(), testEvent())
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestConfig(t *testing.T) {
	assert.Equal(t, []string{"localhost:9092"}, (&Config{}).GetBrokers())
	assert.Equal(t, []string{"a:9092", "b:9092"}, (&Config{Brokers: "a:9092,b:9092"}).GetBrokers())

	plain := (&Config{}).SaramaConfig()
	assert.False(t, plain.Net.SASL.Enable)

	scram := (&Config{SecurityProtocol: "SASL_SSL", SASLMechanism: "SCRAM-SHA-256", SASLUsername: "u"}).SaramaConfig()
	assert.True(t, scram.Net.SASL.Enable)
	assert.True(t, scram.Net.TLS.Enable)
	assert.Equal(t, sarama.SASLMechanism(sarama.SASLTypeSCRAMSHA256), scram.Net.SASL.Mechanism)
}
