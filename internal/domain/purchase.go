package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod способ оплаты
type PaymentMethod string

const (
	PaymentMethodTelegramStars PaymentMethod = "telegram_stars"
	PaymentMethodYooKassa      PaymentMethod = "yookassa"
	PaymentMethodUSDTTON       PaymentMethod = "usdt_ton"
	PaymentMethodUSDTTRC20     PaymentMethod = "usdt_trc20"
)

func (m PaymentMethod) String() string {
	return string(m)
}

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodTelegramStars, PaymentMethodYooKassa, PaymentMethodUSDTTON, PaymentMethodUSDTTRC20:
		return true
	default:
		return false
	}
}

// PurchaseStatus статус покупки
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusFailed    PurchaseStatus = "failed" // оплата прошла, но доступ уже был выдан другой покупкой
)

// Purchase запись в журнале покупок
type Purchase struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	UserID        string          `json:"user_id" db:"user_id"`
	BookID        string          `json:"book_id" db:"book_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"` // подтверждённая провайдером сумма
	PaymentMethod PaymentMethod   `json:"payment_method" db:"payment_method"`
	Status        PurchaseStatus  `json:"status" db:"status"`
	TransactionID string          `json:"transaction_id" db:"transaction_id"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// CompleteResult результат записи покупки в журнал
type CompleteResult struct {
	Purchase *Purchase
	// Duplicate - такой transaction_id уже был записан, повторная доставка
	Duplicate bool
	// AlreadyOwned - у пользователя уже есть completed покупка этой книги по другой транзакции
	AlreadyOwned bool
}
