package pdfgen

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/ledgerline/invoicing_backend/models"
)

// RenderInvoice renders an invoice with its line items as an A4 PDF and
// returns the document bytes. The caller decides whether to stream it to
// the client or attach it to an email.
func RenderInvoice(invoice *models.Invoice, customer *models.Customer, businessName string) ([]byte, error) {
	if invoice == nil {
		return nil, fmt.Errorf("invoice is required")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 20)
	pdf.Cell(120, 10, businessName)
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "INVOICE", "", 1, "R", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(100, 6, "Invoice Number: "+invoice.InvoiceNumber)
	pdf.CellFormat(0, 6, "Invoice Date: "+invoice.InvoiceDate.Format("2006-01-02"), "", 1, "R", false, 0, "")
	if invoice.ReferenceNumber != "" {
		pdf.Cell(100, 6, "Reference: "+invoice.ReferenceNumber)
	} else {
		pdf.Cell(100, 6, "")
	}
	if invoice.DueDate != nil {
		pdf.CellFormat(0, 6, "Due Date: "+invoice.DueDate.Format("2006-01-02"), "", 1, "R", false, 0, "")
	} else {
		pdf.Ln(6)
	}
	pdf.Ln(6)

	// Bill-to block
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, "Bill To")
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	if customer != nil {
		pdf.Cell(0, 5, customer.Name)
		pdf.Ln(5)
		if customer.Email != "" {
			pdf.Cell(0, 5, customer.Email)
			pdf.Ln(5)
		}
		if customer.Address != "" {
			pdf.MultiCell(0, 5, customer.Address, "", "L", false)
		}
	}
	pdf.Ln(6)

	// Line-item table
	colWidths := []float64{80, 22, 30, 18, 40}
	headers := []string{"Description", "Qty", "Unit Price", "Tax %", "Amount"}

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range headers {
		align := "L"
		if i > 0 {
			align = "R"
		}
		pdf.CellFormat(colWidths[i], 7, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, item := range invoice.Details {
		pdf.CellFormat(colWidths[0], 6, item.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[1], 6, item.Quantity.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[2], 6, item.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[3], 6, item.TaxRate.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[4], 6, item.LineTotal.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	// Totals block, right aligned
	labelW := colWidths[0] + colWidths[1] + colWidths[2] + colWidths[3]
	writeTotal := func(label string, value string, bold bool) {
		if bold {
			pdf.SetFont("Arial", "B", 10)
		} else {
			pdf.SetFont("Arial", "", 10)
		}
		pdf.CellFormat(labelW, 6, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[4], 6, value, "", 1, "R", false, 0, "")
	}
	writeTotal("Subtotal", invoice.Subtotal.StringFixed(2), false)
	writeTotal("Tax", invoice.TaxTotal.StringFixed(2), false)
	writeTotal("Total", invoice.TotalAmount.StringFixed(2), true)
	writeTotal("Balance Due", invoice.BalanceDue.StringFixed(2), true)

	if invoice.Notes != "" {
		pdf.Ln(8)
		pdf.SetFont("Arial", "B", 9)
		pdf.Cell(0, 5, "Notes")
		pdf.Ln(5)
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(0, 5, invoice.Notes, "", "L", false)
	}
	if invoice.Terms != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 9)
		pdf.Cell(0, 5, "Terms")
		pdf.Ln(5)
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(0, 5, invoice.Terms, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
