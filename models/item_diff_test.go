package models_test

import (
	"testing"

	"github.com/ledgerline/invoicing_backend/models"
	"github.com/shopspring/decimal"
)

func persistedItem(id int, description string) models.InvoiceItem {
	return models.InvoiceItem{
		ID:          id,
		Description: description,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(100),
	}
}

func TestDiffInvoiceItems(t *testing.T) {
	// Persisted {A, B, C}; incoming edit keeps B (modified) and adds D.
	existing := []models.InvoiceItem{
		persistedItem(1, "A"),
		persistedItem(2, "B"),
		persistedItem(3, "C"),
	}
	incoming := []models.InvoiceItem{
		{ID: 2, Description: "B modified", Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(100)},
		{ID: 0, Description: "D", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)},
	}

	changes, err := models.DiffInvoiceItems(existing, incoming)
	if err != nil {
		t.Fatalf("DiffInvoiceItems: %v", err)
	}

	if len(changes.Inserts) != 1 || changes.Inserts[0].Description != "D" {
		t.Fatalf("inserts = %+v, want single insert D", changes.Inserts)
	}
	if len(changes.Updates) != 1 || changes.Updates[0].ID != 2 {
		t.Fatalf("updates = %+v, want single update of item 2", changes.Updates)
	}
	if changes.Updates[0].Description != "B modified" {
		t.Fatalf("update description = %q, want %q", changes.Updates[0].Description, "B modified")
	}
	if len(changes.DeleteIds) != 2 {
		t.Fatalf("delete ids = %v, want [1 3]", changes.DeleteIds)
	}
	deleted := map[int]bool{}
	for _, id := range changes.DeleteIds {
		deleted[id] = true
	}
	if !deleted[1] || !deleted[3] {
		t.Fatalf("delete ids = %v, want 1 and 3", changes.DeleteIds)
	}
}

func TestDiffInvoiceItemsNoChanges(t *testing.T) {
	existing := []models.InvoiceItem{persistedItem(1, "A"), persistedItem(2, "B")}
	incoming := []models.InvoiceItem{persistedItem(1, "A"), persistedItem(2, "B")}

	changes, err := models.DiffInvoiceItems(existing, incoming)
	if err != nil {
		t.Fatalf("DiffInvoiceItems: %v", err)
	}
	if len(changes.Inserts) != 0 || len(changes.DeleteIds) != 0 {
		t.Fatalf("changes = %+v, want updates only", changes)
	}
	if len(changes.Updates) != 2 {
		t.Fatalf("updates = %d, want 2", len(changes.Updates))
	}
}

func TestDiffInvoiceItemsClearAll(t *testing.T) {
	existing := []models.InvoiceItem{persistedItem(1, "A"), persistedItem(2, "B")}

	changes, err := models.DiffInvoiceItems(existing, nil)
	if err != nil {
		t.Fatalf("DiffInvoiceItems: %v", err)
	}
	if len(changes.Inserts) != 0 || len(changes.Updates) != 0 {
		t.Fatalf("changes = %+v, want deletes only", changes)
	}
	if len(changes.DeleteIds) != 2 {
		t.Fatalf("delete ids = %v, want both items", changes.DeleteIds)
	}
}

func TestDiffInvoiceItemsUnknownId(t *testing.T) {
	existing := []models.InvoiceItem{persistedItem(1, "A")}
	incoming := []models.InvoiceItem{persistedItem(99, "stale")}

	if _, err := models.DiffInvoiceItems(existing, incoming); err == nil {
		t.Fatal("expected error for unknown item id, got nil")
	}
}

func TestDiffInvoiceItemsDuplicateId(t *testing.T) {
	existing := []models.InvoiceItem{persistedItem(1, "A")}
	incoming := []models.InvoiceItem{persistedItem(1, "A"), persistedItem(1, "A again")}

	if _, err := models.DiffInvoiceItems(existing, incoming); err == nil {
		t.Fatal("expected error for duplicate item id, got nil")
	}
}

func TestDiffBillItems(t *testing.T) {
	existing := []models.BillItem{
		{ID: 1, Description: "hosting", Amount: decimal.NewFromInt(20)},
		{ID: 2, Description: "domains", Amount: decimal.NewFromInt(10)},
	}
	incoming := []models.BillItem{
		{ID: 1, Description: "hosting", Amount: decimal.NewFromInt(25)},
		{ID: 0, Description: "backups", Amount: decimal.NewFromInt(5)},
	}

	changes, err := models.DiffBillItems(existing, incoming)
	if err != nil {
		t.Fatalf("DiffBillItems: %v", err)
	}
	if len(changes.Inserts) != 1 || len(changes.Updates) != 1 || len(changes.DeleteIds) != 1 {
		t.Fatalf("changes = %+v, want 1 insert, 1 update, 1 delete", changes)
	}
	if changes.DeleteIds[0] != 2 {
		t.Fatalf("delete ids = %v, want [2]", changes.DeleteIds)
	}
}
