package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const searchItems = `-- name: SearchItems :many
SELECT id, barcode, name, category, quantity, price, discount, final_price, tax_rate, created_at
FROM items
WHERE name ILIKE $1 OR barcode ILIKE $1
ORDER BY id
LIMIT $2
`

type SearchItemsParams struct {
	Pattern string
	Limit   int32
}

func (q *Queries) SearchItems(ctx context.Context, arg SearchItemsParams) ([]Item, error) {
	rows, err := q.db.Query(ctx, searchItems, arg.Pattern, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var i Item
		if err := rows.Scan(
			&i.ID,
			&i.Barcode,
			&i.Name,
			&i.Category,
			&i.Quantity,
			&i.Price,
			&i.Discount,
			&i.FinalPrice,
			&i.TaxRate,
			&i.CreatedAt,
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

const getItem = `-- name: GetItem :one
SELECT id, barcode, name, category, quantity, price, discount, final_price, tax_rate, created_at
FROM items
WHERE id = $1
`

func (q *Queries) GetItem(ctx context.Context, id int64) (Item, error) {
	row := q.db.QueryRow(ctx, getItem, id)
	var i Item
	err := row.Scan(
		&i.ID,
		&i.Barcode,
		&i.Name,
		&i.Category,
		&i.Quantity,
		&i.Price,
		&i.Discount,
		&i.FinalPrice,
		&i.TaxRate,
		&i.CreatedAt,
	)
	return i, err
}

const createItem = `-- name: CreateItem :one
INSERT INTO items (barcode, name, category, quantity, price, discount, final_price, tax_rate)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, barcode, name, category, quantity, price, discount, final_price, tax_rate, created_at
`

type CreateItemParams struct {
	Barcode    string
	Name       string
	Category   string
	Quantity   pgtype.Numeric
	Price      pgtype.Numeric
	Discount   pgtype.Numeric
	FinalPrice pgtype.Numeric
	TaxRate    pgtype.Numeric
}

func (q *Queries) CreateItem(ctx context.Context, arg CreateItemParams) (Item, error) {
	row := q.db.QueryRow(ctx, createItem,
		arg.Barcode,
		arg.Name,
		arg.Category,
		arg.Quantity,
		arg.Price,
		arg.Discount,
		arg.FinalPrice,
		arg.TaxRate,
	)
	var i Item
	err := row.Scan(
		&i.ID,
		&i.Barcode,
		&i.Name,
		&i.Category,
		&i.Quantity,
		&i.Price,
		&i.Discount,
		&i.FinalPrice,
		&i.TaxRate,
		&i.CreatedAt,
	)
	return i, err
}
