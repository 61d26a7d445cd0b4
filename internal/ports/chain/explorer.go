package chain

import (
	"context"
	"time"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

// Transfer входящий перевод USDT, найденный в блокчейне
type Transfer struct {
	Network   domain.Network
	TxHash    string
	From      string
	To        string
	Amount    decimal.Decimal
	Timestamp time.Time
}

// IExplorer поиск подтверждённых входящих переводов USDT на адрес
type IExplorer interface {
	Network() domain.Network
	// FindIncoming возвращает подтверждённые входящие USDT переводы на адрес начиная с since
	FindIncoming(ctx context.Context, address string, since time.Time) ([]Transfer, error)
}
