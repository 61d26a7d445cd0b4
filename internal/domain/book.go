package domain

import "github.com/shopspring/decimal"

// Book книга каталога, в этом сервисе только читается
type Book struct {
	ID          string          `json:"id" db:"id"`
	Title       string          `json:"title" db:"title"`
	Author      string          `json:"author" db:"author"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"` // в рублях
	IsFree      bool            `json:"is_free" db:"is_free"`
	ContentKey  string          `json:"-" db:"content_key"` // ключ файла книги в S3
}
