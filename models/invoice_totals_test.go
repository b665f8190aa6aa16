package models_test

import (
	"testing"
	"time"

	"github.com/ledgerline/invoicing_backend/models"
	"github.com/shopspring/decimal"
)

func newItem(qty, price, taxRate string) models.InvoiceItem {
	item := models.InvoiceItem{
		Quantity:  decimal.RequireFromString(qty),
		UnitPrice: decimal.RequireFromString(price),
		TaxRate:   decimal.RequireFromString(taxRate),
	}
	models.ComputeItemAmounts(&item)
	return item
}

func TestComputeItemAmounts(t *testing.T) {
	cases := []struct {
		name          string
		qty           string
		price         string
		taxRate       string
		wantLineTotal string
		wantTaxAmount string
	}{
		{"basic", "2", "500", "12", "1000", "120"},
		{"fractional quantity", "1.5", "100", "10", "150", "15"},
		{"zero tax", "3", "40", "0", "120", "0"},
		{"zero quantity", "0", "500", "12", "0", "0"},
		{"fractional tax rate", "1", "200", "7.5", "200", "15"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := newItem(tc.qty, tc.price, tc.taxRate)
			if !item.LineTotal.Equal(decimal.RequireFromString(tc.wantLineTotal)) {
				t.Fatalf("line_total = %s, want %s", item.LineTotal, tc.wantLineTotal)
			}
			if !item.TaxAmount.Equal(decimal.RequireFromString(tc.wantTaxAmount)) {
				t.Fatalf("tax_amount = %s, want %s", item.TaxAmount, tc.wantTaxAmount)
			}
		})
	}
}

func TestComputeInvoiceTotals(t *testing.T) {
	items := []models.InvoiceItem{
		newItem("2", "500", "12"),
		newItem("1", "300", "5"),
		newItem("4", "25", "0"),
	}

	totals := models.ComputeInvoiceTotals(items)

	if !totals.Subtotal.Equal(decimal.RequireFromString("1400")) {
		t.Fatalf("subtotal = %s, want 1400", totals.Subtotal)
	}
	if !totals.TaxTotal.Equal(decimal.RequireFromString("135")) {
		t.Fatalf("tax_total = %s, want 135", totals.TaxTotal)
	}
	if !totals.Total.Equal(decimal.RequireFromString("1535")) {
		t.Fatalf("total = %s, want 1535", totals.Total)
	}
}

func TestComputeInvoiceTotalsOrderIndependent(t *testing.T) {
	a := newItem("2", "500", "12")
	b := newItem("1.5", "99.99", "7.5")
	c := newItem("10", "3.33", "5")

	orders := [][]models.InvoiceItem{
		{a, b, c},
		{c, a, b},
		{b, c, a},
	}

	want := models.ComputeInvoiceTotals(orders[0])
	for i, items := range orders[1:] {
		got := models.ComputeInvoiceTotals(items)
		if !got.Subtotal.Equal(want.Subtotal) || !got.TaxTotal.Equal(want.TaxTotal) || !got.Total.Equal(want.Total) {
			t.Fatalf("permutation %d: totals %+v, want %+v", i+1, got, want)
		}
	}
}

func TestComputeInvoiceTotalsEmpty(t *testing.T) {
	totals := models.ComputeInvoiceTotals(nil)
	if !totals.Subtotal.IsZero() || !totals.TaxTotal.IsZero() || !totals.Total.IsZero() {
		t.Fatalf("empty invoice totals = %+v, want all zero", totals)
	}
}

func TestDisplayStatus(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	past := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	future := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		status  models.InvoiceStatus
		dueDate *time.Time
		want    models.InvoiceStatus
	}{
		{"sent past due", models.InvoiceStatusSent, &past, models.InvoiceStatusOverdue},
		{"partial past due", models.InvoiceStatusPartial, &past, models.InvoiceStatusOverdue},
		{"sent not yet due", models.InvoiceStatusSent, &future, models.InvoiceStatusSent},
		{"sent no due date", models.InvoiceStatusSent, nil, models.InvoiceStatusSent},
		{"paid past due stays paid", models.InvoiceStatusPaid, &past, models.InvoiceStatusPaid},
		{"draft past due stays draft", models.InvoiceStatusDraft, &past, models.InvoiceStatusDraft},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inv := models.Invoice{CurrentStatus: tc.status, DueDate: tc.dueDate}
			if got := inv.DisplayStatus(now); got != tc.want {
				t.Fatalf("DisplayStatus = %s, want %s", got, tc.want)
			}
		})
	}
}
