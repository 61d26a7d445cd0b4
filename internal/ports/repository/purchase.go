package repository

import (
	"context"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/persistence"
)

// IPurchaseRepo журнал покупок
type IPurchaseRepo interface {
	// CompletePurchase идемпотентно записывает completed покупку в рамках переданной транзакции.
	// Повтор того же transaction_id возвращает Duplicate, повторная покупка книги - AlreadyOwned.
	CompletePurchase(ctx context.Context, tx persistence.Persistence, purchase *domain.Purchase) (*domain.CompleteResult, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Purchase, error)
	GetCompleted(ctx context.Context, userID, bookID string) (*domain.Purchase, error)
	// HasAccess true если книга бесплатная или есть completed покупка
	HasAccess(ctx context.Context, userID, bookID string) (bool, error)
	ListCompletedByUser(ctx context.Context, userID string) ([]domain.Purchase, error)
}
