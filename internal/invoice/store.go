package invoice

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/toko-pos/internal/db"
)

// Queries lists the statements the invoice service runs.
type Queries interface {
	NextInvoiceID(ctx context.Context) (int64, error)
	CreateInvoice(ctx context.Context, arg db.CreateInvoiceParams) (db.Invoice, error)
	CreateInvoiceItem(ctx context.Context, arg db.CreateInvoiceItemParams) error
	GetInvoiceByNo(ctx context.Context, invoiceNo string) (db.Invoice, error)
	ListInvoiceItems(ctx context.Context, invoiceID int64) ([]db.InvoiceItem, error)
}

// Store runs queries, optionally inside a transaction.
type Store interface {
	Queries() Queries
	InTx(ctx context.Context, fn func(q Queries) error) error
}

// PGStore is the Postgres-backed Store.
type PGStore struct {
	Pool *pgxpool.Pool
	Q    *db.Queries
}

// Queries implements Store.
func (s PGStore) Queries() Queries { return s.Q }

// InTx runs fn in a transaction that is committed only when fn succeeds.
func (s PGStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	if s.Pool == nil || s.Q == nil {
		return errors.New("invoice: store not configured")
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(s.Q.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
