package db

import (
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type Item struct {
	ID         int64              `json:"id"`
	Barcode    string             `json:"barcode"`
	Name       string             `json:"name"`
	Category   string             `json:"category"`
	Quantity   pgtype.Numeric     `json:"quantity"`
	Price      pgtype.Numeric     `json:"price"`
	Discount   pgtype.Numeric     `json:"discount"`
	FinalPrice pgtype.Numeric     `json:"final_price"`
	TaxRate    pgtype.Numeric     `json:"tax_rate"`
	CreatedAt  pgtype.Timestamptz `json:"created_at"`
}

type User struct {
	ID        int64              `json:"id"`
	Fullname  string             `json:"fullname"`
	Email     string             `json:"email"`
	Password  string             `json:"password"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type Invoice struct {
	ID           int64              `json:"id"`
	InvoiceNo    string             `json:"invoice_no"`
	CustomerName string             `json:"customer_name"`
	PaymentMode  string             `json:"payment_mode"`
	FlatDiscount pgtype.Numeric     `json:"flat_discount"`
	TotalAmount  pgtype.Numeric     `json:"total_amount"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
}

type InvoiceItem struct {
	ID        int64          `json:"id"`
	InvoiceID int64          `json:"invoice_id"`
	Barcode   string         `json:"barcode"`
	ItemName  string         `json:"item_name"`
	Quantity  pgtype.Numeric `json:"quantity"`
	Price     pgtype.Numeric `json:"price"`
	Discount  pgtype.Numeric `json:"discount"`
	TaxRate   pgtype.Numeric `json:"tax_rate"`
	Total     pgtype.Numeric `json:"total"`
}

// Numeric converts a decimal into its pgtype representation.
func Numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: new(big.Int).Set(d.Coefficient()), Exp: d.Exponent(), Valid: true}
}

// Decimal converts a NUMERIC column value; NULL and NaN become zero.
func Decimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
