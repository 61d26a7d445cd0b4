package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"log/slog"

	kafkaAdapter "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/kafka"
	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	kafkaPorts "github.com/Sskutushev/Bookly-sub000/internal/ports/kafka"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/service"
)

// PurchaseCompletedHandler доставляет пользователю сообщение о покупке
type PurchaseCompletedHandler struct {
	Notifier service.IPurchaseNotifier
	Log      *slog.Logger
}

// NewPurchaseCompletedHandler создаёт handler событий purchase.completed
func NewPurchaseCompletedHandler(notifier service.IPurchaseNotifier, log *slog.Logger) kafkaPorts.MessageHandler {
	return &PurchaseCompletedHandler{
		Notifier: notifier,
		Log:      log,
	}
}

// HandleMessage обрабатывает событие о покупке
func (h *PurchaseCompletedHandler) HandleMessage(ctx context.Context, key string, value []byte, headers map[string]string) error {
	if eventType, ok := headers[kafkaAdapter.HeaderEventType]; ok && eventType != kafkaAdapter.EventTypePurchaseCompleted {
		h.Log.Debug("skipping foreign event", "event_type", eventType, "key", key)
		return nil
	}

	var event domain.PurchaseCompletedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal purchase event: %w", err)
	}

	if event.UserID == "" || event.BookID == "" {
		return fmt.Errorf("purchase event without user_id or book_id [key=%s]", key)
	}

	h.Log.Debug("processing purchase event",
		"purchase_id", event.PurchaseID,
		"user_id", event.UserID,
		"book_id", event.BookID,
	)

	if err := h.Notifier.NotifyPurchaseCompleted(ctx, event); err != nil {
		return fmt.Errorf("failed to notify about purchase: %w", err)
	}
	return nil
}
