package repository

import (
	"context"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
)

// IBookRepo чтение каталога книг
type IBookRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Book, error)
}
