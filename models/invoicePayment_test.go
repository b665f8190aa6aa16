package models_test

import (
	"testing"

	"github.com/ledgerline/invoicing_backend/models"
	"github.com/shopspring/decimal"
)

func TestApplyPaymentBounds(t *testing.T) {
	balance := decimal.NewFromInt(1000)

	cases := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{"zero rejected", "0", true},
		{"negative rejected", "-50", true},
		{"over balance rejected", "1000.01", true},
		{"exact balance accepted", "1000", false},
		{"within balance accepted", "999.99", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := models.ApplyPayment(balance, decimal.RequireFromString(tc.amount))
			if tc.wantErr && err == nil {
				t.Fatalf("ApplyPayment(%s, %s): expected error, got nil", balance, tc.amount)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("ApplyPayment(%s, %s): %v", balance, tc.amount, err)
			}
		})
	}
}

func TestApplyPaymentTransitions(t *testing.T) {
	// Full flow: 2 x 500 at 12% tax gives total 1120. A 700 payment
	// leaves 420 due and flips to Partial; paying the rest flips to Paid.
	items := []models.InvoiceItem{
		newItem("2", "500", "12"),
	}
	totals := models.ComputeInvoiceTotals(items)
	if !totals.Subtotal.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("subtotal = %s, want 1000", totals.Subtotal)
	}
	if !totals.TaxTotal.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("tax_total = %s, want 120", totals.TaxTotal)
	}
	if !totals.Total.Equal(decimal.NewFromInt(1120)) {
		t.Fatalf("total = %s, want 1120", totals.Total)
	}

	balance, status, err := models.ApplyPayment(totals.Total, decimal.NewFromInt(700))
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if status != models.InvoiceStatusPartial {
		t.Fatalf("status after first payment = %s, want Partial", status)
	}
	if !balance.Equal(decimal.NewFromInt(420)) {
		t.Fatalf("balance after first payment = %s, want 420", balance)
	}

	balance, status, err = models.ApplyPayment(balance, decimal.NewFromInt(420))
	if err != nil {
		t.Fatalf("second payment: %v", err)
	}
	if status != models.InvoiceStatusPaid {
		t.Fatalf("status after second payment = %s, want Paid", status)
	}
	if !balance.IsZero() {
		t.Fatalf("balance after second payment = %s, want 0", balance)
	}

	// Paid is terminal: a zero balance rejects every further amount.
	if _, _, err := models.ApplyPayment(balance, decimal.NewFromInt(1)); err == nil {
		t.Fatal("expected error paying a settled invoice, got nil")
	}
	if _, _, err := models.ApplyPayment(balance, decimal.RequireFromString("0.01")); err == nil {
		t.Fatal("expected error paying a settled invoice, got nil")
	}
}

func TestApplyPaymentNeverOverpays(t *testing.T) {
	balance := decimal.RequireFromString("100.5")
	for _, amount := range []string{"10", "20.25", "70.25"} {
		var err error
		var status models.InvoiceStatus
		balance, status, err = models.ApplyPayment(balance, decimal.RequireFromString(amount))
		if err != nil {
			t.Fatalf("payment of %s: %v", amount, err)
		}
		if balance.IsNegative() {
			t.Fatalf("balance went negative: %s", balance)
		}
		if balance.IsZero() && status != models.InvoiceStatusPaid {
			t.Fatalf("zero balance with status %s, want Paid", status)
		}
		if !balance.IsZero() && status != models.InvoiceStatusPartial {
			t.Fatalf("open balance %s with status %s, want Partial", balance, status)
		}
	}
	if !balance.IsZero() {
		t.Fatalf("final balance = %s, want 0", balance)
	}
}

func TestApplyBillPayment(t *testing.T) {
	balance := decimal.NewFromInt(300)

	newBalance, status, err := models.ApplyBillPayment(balance, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("partial bill payment: %v", err)
	}
	if status != models.BillStatusPartial || !newBalance.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("got %s/%s, want Partial/200", status, newBalance)
	}

	newBalance, status, err = models.ApplyBillPayment(newBalance, decimal.NewFromInt(200))
	if err != nil {
		t.Fatalf("final bill payment: %v", err)
	}
	if status != models.BillStatusPaid || !newBalance.IsZero() {
		t.Fatalf("got %s/%s, want Paid/0", status, newBalance)
	}

	if _, _, err := models.ApplyBillPayment(newBalance, decimal.NewFromInt(1)); err == nil {
		t.Fatal("expected error paying a settled bill, got nil")
	}
}
