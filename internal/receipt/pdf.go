package receipt

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// PDF renders r on an A4 page with a QR code carrying the invoice number.
func (r Receipt) PDF() ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+r.InvoiceNo, false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 9, r.Store.Name, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, line := range []string{r.Store.Address, gstinLine(r.Store.GSTIN), emailLine(r.Store.Email)} {
		if line != "" {
			pdf.CellFormat(190, 5, line, "", 1, "C", false, 0, "")
		}
	}
	pdf.Ln(4)

	if r.InvoiceNo != "" {
		png, err := qrcode.Encode(r.InvoiceNo, qrcode.Medium, 128)
		if err != nil {
			return nil, fmt.Errorf("receipt: encode qr: %w", err)
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("invoice-qr", opts, bytes.NewReader(png))
		pdf.ImageOptions("invoice-qr", 170, pdf.GetY(), 25, 25, false, opts, 0, "")
	}
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(150, 6, "Invoice No: "+r.InvoiceNo, "", 1, "L", false, 0, "")
	pdf.CellFormat(150, 6, "Payment Mode: "+string(r.PaymentMode), "", 1, "L", false, 0, "")
	pdf.CellFormat(150, 6, "Date: "+r.IssuedAt.Format("02/01/2006 15:04:05"), "", 1, "L", false, 0, "")
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	headers := []string{"#", "Item", "Qty", "MRP", "Disc/Unit", "Net Total"}
	widths := []float64{10, 80, 20, 25, 25, 30}
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, l := range r.Lines {
		pdf.CellFormat(widths[0], 6, fmt.Sprintf("%d", l.Index), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 6, l.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, l.Quantity.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, money(l.MRP), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, money(l.DiscountPerUnit), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[5], 6, money(l.NetTotal), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	summary := [][2]string{
		{"Total Qty", r.TotalQuantity.StringFixed(2)},
		{"Gross Total", money(r.Gross)},
		{"Total Discount", "Rs. " + money(r.TotalDiscount)},
		{"Round Off", money(r.RoundOff)},
	}
	for _, kv := range summary {
		pdf.CellFormat(150, 6, kv[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, kv[1], "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(150, 8, "Final Amount", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, "Rs. "+money(r.FinalAmount), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(190, 7, "Tax Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 10)
	taxHeaders := []string{"Rate", "Taxable Amt", "CGST", "SGST", "IGST", "CESS"}
	for _, h := range taxHeaders {
		pdf.CellFormat(190.0/6, 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	if len(r.TaxGroups) == 0 {
		pdf.CellFormat(190, 6, NoTaxLabel, "1", 1, "C", false, 0, "")
	}
	for _, g := range r.TaxGroups {
		cells := []string{fmt.Sprintf("%d%%", g.RatePercent), money(g.Taxable), money(g.CGST), money(g.SGST), money(g.IGST), money(g.CESS)}
		for i, c := range cells {
			ln := 0
			if i == len(cells)-1 {
				ln = 1
			}
			pdf.CellFormat(190.0/6, 6, c, "1", ln, "R", false, 0, "")
		}
	}
	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 10)
	pdf.CellFormat(190, 6, Footer, "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("receipt: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func gstinLine(v string) string {
	if v == "" {
		return ""
	}
	return "GSTIN: " + v
}

func emailLine(v string) string {
	if v == "" {
		return ""
	}
	return "Email: " + v
}
