// Package posapi holds the JSON contract shared by the API server and the
// register client.
package posapi

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Item is a catalog entry as returned by /search and /items/{id}. Amounts are
// decoded from either JSON numbers or numeric strings.
type Item struct {
	ID         int64            `json:"id"`
	Barcode    string           `json:"barcode"`
	Name       string           `json:"name"`
	Category   string           `json:"category"`
	Quantity   *decimal.Decimal `json:"quantity,omitempty"`
	Price      decimal.Decimal  `json:"price"`
	Discount   decimal.Decimal  `json:"discount"`
	FinalPrice decimal.Decimal  `json:"final_price"`
	TaxRate    *decimal.Decimal `json:"tax_rate,omitempty"`
}

// Key is the identifier a cart line is keyed on.
func (i Item) Key() string {
	return strconv.FormatInt(i.ID, 10)
}

// NewItem is the /additem payload. The add form posts every field as a string.
type NewItem struct {
	Barcode    string       `json:"barcode" validate:"required"`
	Name       string       `json:"name" validate:"required"`
	Category   string       `json:"category" validate:"required"`
	Quantity   FlexDecimal  `json:"quantity"`
	Price      FlexDecimal  `json:"price"`
	Discount   FlexDecimal  `json:"discount"`
	FinalPrice FlexDecimal  `json:"finalPrice"`
	TaxRate    *FlexDecimal `json:"taxRate,omitempty"`
}

// InvoiceLine is one persisted cart line. Discount is the per-unit discount
// amount and Total the line final including tax.
type InvoiceLine struct {
	Barcode  string          `json:"barcode"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Qty      decimal.Decimal `json:"qty"`
	Discount decimal.Decimal `json:"discount"`
	TaxRate  decimal.Decimal `json:"taxRate"`
	Total    decimal.Decimal `json:"total"`
}

// SaveInvoiceRequest is the POST /invoice body.
type SaveInvoiceRequest struct {
	CustomerName string          `json:"customerName"`
	Cart         []InvoiceLine   `json:"cart"`
	FinalAmount  decimal.Decimal `json:"finalAmount"`
	PaymentMode  string          `json:"paymentMode,omitempty"`
	FlatDiscount decimal.Decimal `json:"flatDiscount"`
}

// SaveInvoiceResponse is the POST /invoice answer.
type SaveInvoiceResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	InvoiceNo string `json:"invoiceNo,omitempty"`
	InvoiceID int64  `json:"invoiceId,omitempty"`
}

// Invoice is a persisted invoice with its lines.
type Invoice struct {
	ID           int64           `json:"id"`
	InvoiceNo    string          `json:"invoiceNo"`
	CustomerName string          `json:"customerName"`
	PaymentMode  string          `json:"paymentMode"`
	FlatDiscount decimal.Decimal `json:"flatDiscount"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	CreatedAt    string          `json:"createdAt"`
	Lines        []InvoiceLine   `json:"lines"`
}

// Stats is the dashboard payload nested under "data".
type Stats struct {
	TotalInvoices  int64           `json:"totalInvoices"`
	TodayRevenue   decimal.Decimal `json:"todayRevenue"`
	TotalCustomers int64           `json:"totalCustomers"`
	TotalQuantity  decimal.Decimal `json:"totalQuantity"`
}

// StatsResponse wraps Stats.
type StatsResponse struct {
	Success bool   `json:"success"`
	Data    *Stats `json:"data,omitempty"`
}
