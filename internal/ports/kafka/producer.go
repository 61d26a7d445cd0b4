package kafka

import (
	"context"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
)

// IEventPublisher публикация событий о покупках
type IEventPublisher interface {
	PublishPurchaseCompleted(ctx context.Context, event domain.PurchaseCompletedEvent) error
	Close() error
}
