package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	paymentPort "github.com/Sskutushev/Bookly-sub000/internal/ports/payment"
	"github.com/Sskutushev/Bookly-sub000/internal/pkg/metrics"
)

func (s *Service) chainVerifier(network domain.Network) (paymentPort.IChainVerifier, error) {
	p := s.provider(network.Method())
	if p == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotConfigured, network)
	}
	verifier, ok := p.(paymentPort.IChainVerifier)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no chain verifier", domain.ErrProviderNotConfigured, network)
	}
	return verifier, nil
}

// VerifyUSDT проверка оплаты по запросу клиента.
// Адрес должен быть выдан этому пользователю под эту книгу
func (s *Service) VerifyUSDT(ctx context.Context, userID, bookID, address string, network domain.Network) (bool, error) {
	if userID == "" || bookID == "" || address == "" {
		return false, fmt.Errorf("%w: userId, bookId and address are required", domain.ErrValidation)
	}

	verifier, err := s.chainVerifier(network)
	if err != nil {
		return false, err
	}

	intent, err := s.IntentRepo.GetByHandle(ctx, network.Method(), address)
	if err != nil {
		if errors.Is(err, domain.ErrIntentNotFound) {
			return false, nil
		}
		return false, err
	}
	if intent.UserID != userID || intent.BookID != bookID {
		return false, fmt.Errorf("%w: address was issued for another order", domain.ErrAccessDenied)
	}

	if intent.Status == domain.IntentStatusConsumed {
		return s.PurchaseRepo.HasAccess(ctx, userID, bookID)
	}

	verified, err := s.settleIntent(ctx, verifier, intent)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}
	return verified, nil
}

// SettleLiveIntents проверяет все живые намерения сети, возвращает число записанных покупок
func (s *Service) SettleLiveIntents(ctx context.Context, network domain.Network) (int, error) {
	verifier, err := s.chainVerifier(network)
	if err != nil {
		return 0, err
	}

	intents, err := s.IntentRepo.ListLive(ctx, network.Method(), time.Now().UTC(), s.Cfg.WatchBatch)
	if err != nil {
		return 0, fmt.Errorf("list live %s intents: %w", network, err)
	}

	settled := 0
	var errs []error
	for i := range intents {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}
		ok, err := s.settleIntent(ctx, verifier, &intents[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			settled++
		}
	}

	// единичные сбои эксплорера не считаем падением джобы
	if len(errs) > 0 && len(errs) == len(intents) {
		return settled, errors.Join(errs...)
	}
	return settled, nil
}

// settleIntent true если оплата найдена и записана (или уже была записана)
func (s *Service) settleIntent(ctx context.Context, verifier paymentPort.IChainVerifier, intent *domain.PendingIntent) (bool, error) {
	verifyCtx, cancel := context.WithTimeout(ctx, s.Cfg.VerifyTimeout)
	v := verifier.VerifyAddress(verifyCtx, intent)
	cancel()

	metrics.Notifications.WithLabelValues(string(intent.Method), v.Result()).Inc()

	switch {
	case v.Err != nil:
		return false, v.Err
	case v.Outcome != nil:
		if _, err := s.CompletePurchase(ctx, *v.Outcome); err != nil {
			return false, err
		}
		return true, nil
	case v.Rejection != nil:
		s.Log.Debug("usdt payment not found yet",
			"address", intent.Handle,
			"reason", v.Rejection.Reason,
			"detail", v.Rejection.Detail,
		)
	}
	return false, nil
}
