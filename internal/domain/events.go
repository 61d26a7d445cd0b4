package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseCompletedEvent событие о завершённой покупке (Kafka, topic purchases)
type PurchaseCompletedEvent struct {
	PurchaseID    string          `json:"purchase_id"`
	UserID        string          `json:"user_id"`
	BookID        string          `json:"book_id"`
	BookTitle     string          `json:"book_title,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	TransactionID string          `json:"transaction_id"`
	ChatID        int64           `json:"chat_id,omitempty"`
	CompletedAt   time.Time       `json:"completed_at"`
}
