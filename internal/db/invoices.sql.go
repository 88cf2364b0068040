package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const nextInvoiceID = `-- name: NextInvoiceID :one
SELECT nextval(pg_get_serial_sequence('invoices', 'id'))::bigint
`

func (q *Queries) NextInvoiceID(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, nextInvoiceID)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const createInvoice = `-- name: CreateInvoice :one
INSERT INTO invoices (id, invoice_no, customer_name, payment_mode, flat_discount, total_amount, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, invoice_no, customer_name, payment_mode, flat_discount, total_amount, created_at
`

type CreateInvoiceParams struct {
	ID           int64
	InvoiceNo    string
	CustomerName string
	PaymentMode  string
	FlatDiscount pgtype.Numeric
	TotalAmount  pgtype.Numeric
	CreatedAt    pgtype.Timestamptz
}

func (q *Queries) CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error) {
	row := q.db.QueryRow(ctx, createInvoice,
		arg.ID,
		arg.InvoiceNo,
		arg.CustomerName,
		arg.PaymentMode,
		arg.FlatDiscount,
		arg.TotalAmount,
		arg.CreatedAt,
	)
	var i Invoice
	err := row.Scan(
		&i.ID,
		&i.InvoiceNo,
		&i.CustomerName,
		&i.PaymentMode,
		&i.FlatDiscount,
		&i.TotalAmount,
		&i.CreatedAt,
	)
	return i, err
}

const createInvoiceItem = `-- name: CreateInvoiceItem :exec
INSERT INTO invoice_items (invoice_id, barcode, item_name, quantity, price, discount, tax_rate, total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

type CreateInvoiceItemParams struct {
	InvoiceID int64
	Barcode   string
	ItemName  string
	Quantity  pgtype.Numeric
	Price     pgtype.Numeric
	Discount  pgtype.Numeric
	TaxRate   pgtype.Numeric
	Total     pgtype.Numeric
}

func (q *Queries) CreateInvoiceItem(ctx context.Context, arg CreateInvoiceItemParams) error {
	_, err := q.db.Exec(ctx, createInvoiceItem,
		arg.InvoiceID,
		arg.Barcode,
		arg.ItemName,
		arg.Quantity,
		arg.Price,
		arg.Discount,
		arg.TaxRate,
		arg.Total,
	)
	return err
}

const getInvoiceByNo = `-- name: GetInvoiceByNo :one
SELECT id, invoice_no, customer_name, payment_mode, flat_discount, total_amount, created_at
FROM invoices
WHERE invoice_no = $1
`

func (q *Queries) GetInvoiceByNo(ctx context.Context, invoiceNo string) (Invoice, error) {
	row := q.db.QueryRow(ctx, getInvoiceByNo, invoiceNo)
	var i Invoice
	err := row.Scan(
		&i.ID,
		&i.InvoiceNo,
		&i.CustomerName,
		&i.PaymentMode,
		&i.FlatDiscount,
		&i.TotalAmount,
		&i.CreatedAt,
	)
	return i, err
}

const listInvoiceItems = `-- name: ListInvoiceItems :many
SELECT id, invoice_id, barcode, item_name, quantity, price, discount, tax_rate, total
FROM invoice_items
WHERE invoice_id = $1
ORDER BY id
`

func (q *Queries) ListInvoiceItems(ctx context.Context, invoiceID int64) ([]InvoiceItem, error) {
	rows, err := q.db.Query(ctx, listInvoiceItems, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []InvoiceItem{}
	for rows.Next() {
		var i InvoiceItem
		if err := rows.Scan(
			&i.ID,
			&i.InvoiceID,
			&i.Barcode,
			&i.ItemName,
			&i.Quantity,
			&i.Price,
			&i.Discount,
			&i.TaxRate,
			&i.Total,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
