package repository

import (
	"context"
	"time"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/persistence"
)

// IIntentRepo платёжные намерения и пул адресов для USDT
type IIntentRepo interface {
	Create(ctx context.Context, intent *domain.PendingIntent) error
	// AllocateAddress атомарно привязывает свободный адрес сети к намерению, возвращает адрес
	AllocateAddress(ctx context.Context, network domain.Network, intent *domain.PendingIntent) (string, error)
	GetByHandle(ctx context.Context, method domain.PaymentMethod, handle string) (*domain.PendingIntent, error)
	FindLive(ctx context.Context, method domain.PaymentMethod, userID, bookID string, now time.Time) (*domain.PendingIntent, error)
	ListLive(ctx context.Context, method domain.PaymentMethod, now time.Time, limit int) ([]domain.PendingIntent, error)
	Consume(ctx context.Context, tx persistence.Persistence, method domain.PaymentMethod, handle string, at time.Time) error
	ExpireBefore(ctx context.Context, now time.Time) (int64, error)
	SeedAddresses(ctx context.Context, network domain.Network, addresses []string) error
}
