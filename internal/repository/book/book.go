package bookRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/persistence"
	ports "github.com/Sskutushev/Bookly-sub000/internal/ports/repository"
)

type bookColumns struct {
	TableName   string
	ID          string
	Title       string
	Author      string
	Description string
	Price       string
	IsFree      string
	ContentKey  string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns bookColumns
}

// New создаёт репозиторий каталога (только чтение)
func New(db persistence.Persistence, log *slog.Logger) ports.IBookRepo {
	return &Repository{
		db:  db,
		Log: log,
		columns: bookColumns{
			TableName:   "books",
			ID:          "id",
			Title:       "title",
			Author:      "author",
			Description: "description",
			Price:       "price",
			IsFree:      "is_free",
			ContentKey:  "content_key",
		},
	}
}

// GetByID получает книгу по ID
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	var book domain.Book

	query := fmt.Sprintf(`SELECT %s, %s, %s, %s, %s, %s, %s FROM %s WHERE %s = $1`,
		r.columns.ID,
		r.columns.Title,
		r.columns.Author,
		r.columns.Description,
		r.columns.Price,
		r.columns.IsFree,
		r.columns.ContentKey,
		r.columns.TableName,
		r.columns.ID,
	)

	if err := r.db.Get(ctx, &book, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Warn("book not found", "book_id", id)
			return nil, domain.ErrBookNotFound
		}
		r.Log.Error("failed to get book", "error", err, "book_id", id)
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	return &book, nil
}
