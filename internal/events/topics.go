package events

// Topic constants for domain events emitted by the POS API.
const (
	TopicInvoiceSaved = "invoice.saved"
	TopicItemAdded    = "item.added"
)

// InvoiceSaved is the payload of TopicInvoiceSaved.
type InvoiceSaved struct {
	InvoiceID   int64  `json:"invoiceId"`
	InvoiceNo   string `json:"invoiceNo"`
	TotalAmount string `json:"totalAmount"`
	Lines       int    `json:"lines"`
	Quantity    string `json:"quantity"`
	PaymentMode string `json:"paymentMode"`
}

// ItemAdded is the payload of TopicItemAdded.
type ItemAdded struct {
	ItemID  int64  `json:"itemId"`
	Barcode string `json:"barcode"`
	Name    string `json:"name"`
}

// DefaultTopics returns every topic the API emits.
func DefaultTopics() []string {
	return []string{TopicInvoiceSaved, TopicItemAdded}
}
