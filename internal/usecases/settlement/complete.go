package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/persistence"
	"github.com/Sskutushev/Bookly-sub000/internal/pkg/metrics"
)

// CompletePurchase записывает подтверждённую оплату и гасит намерение в одной транзакции.
// Побочные эффекты (Kafka, сообщение пользователю, алерт) уходят в фон после коммита и не задерживают ответ провайдеру
func (s *Service) CompletePurchase(ctx context.Context, outcome domain.PaymentOutcome) (*domain.CompleteResult, error) {
	now := time.Now().UTC()
	purchase := &domain.Purchase{
		ID:            uuid.New(),
		UserID:        outcome.UserID,
		BookID:        outcome.BookID,
		Amount:        outcome.PaidAmount,
		PaymentMethod: outcome.Method,
		Status:        domain.PurchaseStatusCompleted,
		TransactionID: outcome.TransactionID,
		CreatedAt:     now,
	}

	var result *domain.CompleteResult
	err := s.DB.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		res, err := s.PurchaseRepo.CompletePurchase(ctx, tx, purchase)
		if err != nil {
			return err
		}
		result = res

		if res.Duplicate || outcome.IntentHandle == "" {
			return nil
		}
		if err := s.IntentRepo.Consume(ctx, tx, outcome.Method, outcome.IntentHandle, now); err != nil {
			return fmt.Errorf("failed to consume intent: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("complete purchase [transaction_id=%s]: %w", outcome.TransactionID, err)
	}

	if result.Duplicate {
		return result, nil
	}
	if !result.AlreadyOwned {
		metrics.PurchasesCompleted.WithLabelValues(string(outcome.Method)).Inc()
	}

	// отмена входящего запроса не должна обрывать уведомление
	sideCtx := context.WithoutCancel(ctx)
	s.sideEffects.Add(1)
	go func() {
		defer s.sideEffects.Done()
		s.afterCommit(sideCtx, outcome, result)
	}()

	return result, nil
}

func (s *Service) afterCommit(ctx context.Context, outcome domain.PaymentOutcome, result *domain.CompleteResult) {
	if result.AlreadyOwned {
		s.alertDoublePayment(ctx, outcome, result.Purchase)
		return
	}

	sideCtx, cancel := context.WithTimeout(ctx, s.Cfg.SideEffectTimeout)
	defer cancel()

	event := domain.PurchaseCompletedEvent{
		PurchaseID:    result.Purchase.ID.String(),
		UserID:        result.Purchase.UserID,
		BookID:        result.Purchase.BookID,
		Amount:        result.Purchase.Amount,
		PaymentMethod: result.Purchase.PaymentMethod,
		TransactionID: result.Purchase.TransactionID,
		ChatID:        outcome.ChatID,
		CompletedAt:   result.Purchase.CreatedAt,
	}
	if s.BookRepo != nil {
		if book, err := s.BookRepo.GetByID(sideCtx, event.BookID); err == nil {
			event.BookTitle = book.Title
		}
	}

	if s.Publisher != nil {
		err := s.Publisher.PublishPurchaseCompleted(sideCtx, event)
		if err == nil {
			return
		}
		s.Log.Warn("failed to publish purchase event, notifying directly",
			"purchase_id", event.PurchaseID,
			"error", err,
		)
	}

	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.NotifyPurchaseCompleted(sideCtx, event); err != nil && !domain.IsBusinessError(err) {
		s.Log.Warn("failed to notify user about purchase",
			"purchase_id", event.PurchaseID,
			"user_id", event.UserID,
			"error", err,
		)
	}
}

// alertDoublePayment деньги списаны повторно, нужен ручной возврат
func (s *Service) alertDoublePayment(ctx context.Context, outcome domain.PaymentOutcome, owned *domain.Purchase) {
	if s.AlertService == nil {
		return
	}

	alertCtx, cancel := context.WithTimeout(ctx, s.Cfg.SideEffectTimeout)
	defer cancel()

	message := fmt.Sprintf("💸 Повторная оплата уже купленной книги, нужен возврат\n\n"+
		"Пользователь: %s\nКнига: %s\nСпособ: %s\nТранзакция: %s\nСумма: %s\nВладеет по покупке: %s",
		outcome.UserID,
		outcome.BookID,
		outcome.Method,
		outcome.TransactionID,
		outcome.PaidAmount.String(),
		owned.ID,
	)
	if err := s.AlertService.SendAlert(alertCtx, message); err != nil {
		s.Log.Warn("failed to send double payment alert",
			"transaction_id", outcome.TransactionID,
			"error", err,
		)
	}
}
