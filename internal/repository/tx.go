package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrNotFound                  = errors.New("record not found")
	ErrDuplicatePaymentReference = errors.New("order already exists for payment reference")
	ErrStatusConflict            = errors.New("order status changed concurrently")
)

// Tx is a unit of work shared by the catalog, order and promo repositories.
type Tx interface {
	Commit() error
	Rollback() error
}

// MySQLTx implements Tx on top of database/sql.
type MySQLTx struct {
	tx *sql.Tx
}

func (t *MySQLTx) Commit() error {
	return t.tx.Commit()
}

func (t *MySQLTx) Rollback() error {
	return t.tx.Rollback()
}

func beginTx(ctx context.Context, db *sql.DB) (Tx, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &MySQLTx{tx: tx}, nil
}

func sqlTx(tx Tx) *sql.Tx {
	return tx.(*MySQLTx).tx
}

const mysqlErrDuplicateEntry = 1062

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry
}
