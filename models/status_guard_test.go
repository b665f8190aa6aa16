package models_test

import (
	"testing"

	"github.com/ledgerline/invoicing_backend/models"
)

func TestInvoiceHasRecordedPayments(t *testing.T) {
	cases := []struct {
		status models.InvoiceStatus
		want   bool
	}{
		{models.InvoiceStatusDraft, false},
		{models.InvoiceStatusSent, false},
		{models.InvoiceStatusPartial, true},
		{models.InvoiceStatusPaid, true},
	}

	for _, tc := range cases {
		inv := models.Invoice{CurrentStatus: tc.status}
		if got := inv.HasRecordedPayments(); got != tc.want {
			t.Fatalf("status %s: HasRecordedPayments = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestBillHasRecordedPayments(t *testing.T) {
	cases := []struct {
		status models.BillStatus
		want   bool
	}{
		{models.BillStatusOpen, false},
		{models.BillStatusPartial, true},
		{models.BillStatusPaid, true},
	}

	for _, tc := range cases {
		bill := models.Bill{CurrentStatus: tc.status}
		if got := bill.HasRecordedPayments(); got != tc.want {
			t.Fatalf("status %s: HasRecordedPayments = %v, want %v", tc.status, got, tc.want)
		}
	}
}
