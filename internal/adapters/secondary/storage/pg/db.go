package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Sskutushev/Bookly-sub000/internal/ports/persistence"
)

// DB пул соединений, реализует persistence.Transactor
type DB struct {
	conn
	db *sqlx.DB
}

func NewDB(db *sqlx.DB) *DB {
	return &DB{conn: conn{q: db}, db: db}
}

var _ persistence.Transactor = (*DB)(nil)

func (d *DB) BeginTx(ctx context.Context) (persistence.Transaction, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{conn: conn{q: tx}, tx: tx}, nil
}

// WithTransaction commit если fn вернула nil, иначе rollback (в том числе при панике)
func (d *DB) WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error {
	tx, err := d.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Ping для /ready
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.db.Close()
}
