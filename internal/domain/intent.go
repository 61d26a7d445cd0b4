package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IntentStatus статус платёжного намерения
type IntentStatus string

const (
	IntentStatusPending  IntentStatus = "pending"
	IntentStatusConsumed IntentStatus = "consumed"
	IntentStatusExpired  IntentStatus = "expired"
)

// Network сеть для USDT
type Network string

const (
	NetworkTON   Network = "TON"
	NetworkTRC20 Network = "TRC20"
)

// ParseNetwork принимает "TON"/"ton"/"usdt_ton" и т.п.
func ParseNetwork(s string) (Network, error) {
	switch s {
	case "TON", "ton", "usdt_ton":
		return NetworkTON, nil
	case "TRC20", "trc20", "usdt_trc20":
		return NetworkTRC20, nil
	default:
		return "", ErrUnknownNetwork
	}
}

// Method способ оплаты, соответствующий сети
func (n Network) Method() PaymentMethod {
	if n == NetworkTON {
		return PaymentMethodUSDTTON
	}
	return PaymentMethodUSDTTRC20
}

// PendingIntent связывает хэндл провайдера (nonce, id платежа, адрес) с пользователем и книгой
type PendingIntent struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	Method         PaymentMethod   `json:"method" db:"method"`
	Handle         string          `json:"handle" db:"handle"`
	UserID         string          `json:"user_id" db:"user_id"`
	BookID         string          `json:"book_id" db:"book_id"`
	ExpectedAmount decimal.Decimal `json:"expected_amount" db:"expected_amount"`
	Currency       string          `json:"currency" db:"currency"`
	Network        *string         `json:"network,omitempty" db:"network"`
	Status         IntentStatus    `json:"status" db:"status"`
	ExpiresAt      time.Time       `json:"expires_at" db:"expires_at"`
	ConsumedAt     *time.Time      `json:"consumed_at,omitempty" db:"consumed_at"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// IsLive намерение ещё может быть сопоставлено с оплатой
func (i *PendingIntent) IsLive(now time.Time) bool {
	return i.Status == IntentStatusPending && now.Before(i.ExpiresAt)
}

// ProviderHandle то, что клиент получает для оплаты у провайдера
type ProviderHandle struct {
	Method          PaymentMethod   `json:"method"`
	Handle          string          `json:"handle"`
	InvoiceLink     string          `json:"invoice_link,omitempty"`
	PaymentID       string          `json:"payment_id,omitempty"`
	ConfirmationURL string          `json:"confirmation_url,omitempty"`
	Status          string          `json:"status,omitempty"`
	Address         string          `json:"address,omitempty"`
	Network         Network         `json:"network,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	ExpiresAt       time.Time       `json:"expires_at"`
}
