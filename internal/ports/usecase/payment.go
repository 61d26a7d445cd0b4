package usecase

import (
	"context"
	"time"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
)

// StartResult результат создания платёжного намерения
type StartResult struct {
	BookID       string
	AlreadyOwned bool
	Handle       *domain.ProviderHandle
}

// ICheckoutUseCase оркестратор создания платежей
type ICheckoutUseCase interface {
	StartPurchase(ctx context.Context, userID, bookID string, method domain.PaymentMethod) (*StartResult, error)
}

// SettlementResult чем закончилась обработка уведомления
type SettlementResult struct {
	Method       domain.PaymentMethod
	Verification domain.Verification
	Complete     *domain.CompleteResult
	// AckStatus HTTP статус, который надо вернуть провайдеру
	AckStatus int
}

// ISettlementUseCase диспетчер входящих уведомлений
type ISettlementUseCase interface {
	HandleNotification(ctx context.Context, n domain.Notification) *SettlementResult
	VerifyUSDT(ctx context.Context, userID, bookID, address string, network domain.Network) (bool, error)
}

// ReadGrant доступ к файлу книги
type ReadGrant struct {
	BookID    string
	URL       string
	ExpiresAt time.Time
}

// IAccessUseCase проверка прав на чтение
type IAccessUseCase interface {
	HasAccess(ctx context.Context, userID, bookID string) (bool, error)
	ResolveRead(ctx context.Context, userID, bookID string) (*ReadGrant, error)
}
