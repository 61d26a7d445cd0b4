package settlement

import (
	"context"
	"net/http"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	paymentPort "github.com/Sskutushev/Bookly-sub000/internal/ports/payment"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/usecase"
	"github.com/Sskutushev/Bookly-sub000/internal/pkg/metrics"
)

const ignoredUnknownProvider = "unknown_provider"

// classify сначала заголовки всех провайдеров, затем форма тела
func (s *Service) classify(n domain.Notification) paymentPort.IProvider {
	for _, p := range s.Providers {
		if hd, ok := p.(paymentPort.IHeaderDiscriminator); ok && hd.MatchesHeader(n) {
			return p
		}
	}
	for _, p := range s.Providers {
		if p.CanHandle(n) {
			return p
		}
	}
	return nil
}

// HandleNotification единая точка входа для уведомлений всех провайдеров.
// Никогда не возвращает ошибку: всё сводится к статусу, который ждёт провайдер
func (s *Service) HandleNotification(ctx context.Context, n domain.Notification) *usecase.SettlementResult {
	p := s.classify(n)
	if p == nil {
		s.Log.Info("notification from unknown provider ignored", "body_size", len(n.Body))
		metrics.Notifications.WithLabelValues("unknown", "ignored").Inc()
		return &usecase.SettlementResult{
			Verification: domain.Ignore(ignoredUnknownProvider),
			AckStatus:    http.StatusOK,
		}
	}

	method := p.Method()
	result := &usecase.SettlementResult{Method: method}

	verifyCtx, cancel := context.WithTimeout(ctx, s.Cfg.VerifyTimeout)
	v := p.VerifyNotification(verifyCtx, n)
	cancel()

	result.Verification = v
	metrics.Notifications.WithLabelValues(string(method), v.Result()).Inc()

	switch {
	case v.PreCheckout != nil:
		s.answerPreCheckout(ctx, p, v.PreCheckout)
		result.AckStatus = http.StatusOK

	case v.Err != nil:
		s.Log.Warn("notification verification failed, provider will retry",
			"method", method,
			"error", v.Err,
		)
		result.AckStatus = http.StatusInternalServerError

	case v.Rejection != nil:
		s.Log.Warn("notification rejected",
			"method", method,
			"reason", v.Rejection.Reason,
			"detail", v.Rejection.Detail,
		)
		result.AckStatus = p.RejectAck()

	case v.Outcome != nil:
		complete, err := s.CompletePurchase(ctx, *v.Outcome)
		if err != nil {
			s.Log.Error("failed to record purchase, provider will retry",
				"method", method,
				"transaction_id", v.Outcome.TransactionID,
				"error", err,
			)
			result.AckStatus = http.StatusInternalServerError
			return result
		}
		result.Complete = complete
		result.AckStatus = http.StatusOK

	default:
		s.Log.Debug("notification ignored", "method", method, "reason", v.Ignored)
		result.AckStatus = http.StatusOK
	}

	return result
}

// answerPreCheckout Telegram ждёт ответ не дольше 10 секунд, отвечаем всегда ok
func (s *Service) answerPreCheckout(ctx context.Context, p paymentPort.IProvider, q *domain.PreCheckout) {
	confirmer, ok := p.(paymentPort.IPreCheckoutConfirmer)
	if !ok {
		s.Log.Warn("pre-checkout for provider without confirmer", "method", p.Method())
		return
	}

	answerCtx, cancel := context.WithTimeout(ctx, s.Cfg.PreCheckoutTimeout)
	defer cancel()

	if err := confirmer.ConfirmPreCheckout(answerCtx, q.QueryID, true, nil); err != nil {
		s.Log.Error("failed to answer pre_checkout_query",
			"query_id", q.QueryID,
			"user_id", q.UserID,
			"book_id", q.BookID,
			"error", err,
		)
		return
	}

	s.Log.Info("pre_checkout_query confirmed",
		"query_id", q.QueryID,
		"user_id", q.UserID,
		"book_id", q.BookID,
	)
}
