package payment

import (
	"context"
	"time"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

// IProvider платёжный адаптер (Telegram Stars, YooKassa, USDT)
// Оркестратор и диспетчер зависят только от этого интерфейса
type IProvider interface {
	Method() domain.PaymentMethod

	// Ready возвращает ErrProviderNotConfigured, если не хватает настроек
	Ready() error

	// CreateIntent создаёт у провайдера то, куда пользователь платит (ссылка, адрес, confirmation_url)
	CreateIntent(ctx context.Context, req IntentRequest) (*domain.ProviderHandle, error)

	// CanHandle дешёвая проверка, что уведомление от этого провайдера (заголовок, затем форма тела)
	CanHandle(n domain.Notification) bool

	// VerifyNotification проверяет подлинность уведомления и достаёт из него оплату
	VerifyNotification(ctx context.Context, n domain.Notification) domain.Verification

	// RejectAck HTTP статус для провайдера, если уведомление отклонено
	RejectAck() int
}

// IHeaderDiscriminator провайдер, который узнаётся по заголовку без разбора тела
type IHeaderDiscriminator interface {
	MatchesHeader(n domain.Notification) bool
}

// IPreCheckoutConfirmer подтверждение pre_checkout_query (Telegram Stars)
type IPreCheckoutConfirmer interface {
	ConfirmPreCheckout(ctx context.Context, queryID string, ok bool, errorMessage *string) error
}

// IChainVerifier проверка оплаты по конкретному адресу (USDT)
type IChainVerifier interface {
	VerifyAddress(ctx context.Context, intent *domain.PendingIntent) domain.Verification
}

// IntentRequest запрос на создание платёжного намерения
type IntentRequest struct {
	UserID      string
	BookID      string
	Title       string
	Description string
	Amount      decimal.Decimal // цена книги в рублях на момент запроса
	TTL         time.Duration
	// IdempotenceKey один и тот же для (способ, пользователь, книга) в пределах окна IntentTTL
	IdempotenceKey string
}
