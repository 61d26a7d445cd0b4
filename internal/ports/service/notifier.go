package service

import (
	"context"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
)

// IPurchaseNotifier уведомление пользователя о покупке (best effort)
type IPurchaseNotifier interface {
	NotifyPurchaseCompleted(ctx context.Context, event domain.PurchaseCompletedEvent) error
}
