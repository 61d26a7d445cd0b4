package pg

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/Sskutushev/Bookly-sub000/internal/ports/persistence"
)

// queryer общее у *sqlx.DB и *sqlx.Tx
type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// conn реализует persistence.Persistence поверх пула или транзакции
type conn struct {
	q queryer
}

func (c conn) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return c.q.GetContext(ctx, dest, query, args...)
}

func (c conn) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return c.q.SelectContext(ctx, dest, query, args...)
}

func (c conn) Exec(ctx context.Context, query string, args ...interface{}) error {
	_, err := c.q.ExecContext(ctx, query, args...)
	return err
}

// ExecWithResult число затронутых строк (для ON CONFLICT DO NOTHING это 0 или 1)
func (c conn) ExecWithResult(ctx context.Context, query string, args ...interface{}) (int64, error) {
	return rowsAffected(c.q.ExecContext(ctx, query, args...))
}

func (c conn) NamedExec(ctx context.Context, query string, arg interface{}) error {
	_, err := c.q.NamedExecContext(ctx, query, arg)
	return err
}

func (c conn) NamedExecWithResult(ctx context.Context, query string, arg interface{}) (int64, error) {
	return rowsAffected(c.q.NamedExecContext(ctx, query, arg))
}

func (c conn) QueryRow(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	return c.q.QueryRowxContext(ctx, query, args...)
}

func (c conn) NamedQuery(ctx context.Context, query string, arg interface{}) (*sqlx.Rows, error) {
	bound, args, err := c.q.BindNamed(query, arg)
	if err != nil {
		return nil, err
	}
	return c.q.QueryxContext(ctx, bound, args...)
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Tx транзакция, открытая через DB.BeginTx
type Tx struct {
	conn
	tx *sqlx.Tx
}

var _ persistence.Transaction = (*Tx)(nil)

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}
