package models_test

import (
	"encoding/json"
	"testing"

	"github.com/ledgerline/invoicing_backend/models"
)

func TestCoerceDecimal(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain integer", "500", "500"},
		{"plain decimal", "1234.56", "1234.56"},
		{"thousands separator", "20,000", "20000"},
		{"currency symbol", "$ 1,234.50", "1234.5"},
		{"surrounding spaces", "  500  ", "500"},
		{"negative", "-42.5", "-42.5"},
		{"empty string", "", "0"},
		{"garbage", "abc", "0"},
		{"mixed garbage keeps digits", "12abc", "12"},
		{"multiple dots", "1.2.3", "0"},
		{"lone dot", ".", "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := models.CoerceDecimal(tc.input)
			if got.String() != tc.want {
				t.Fatalf("CoerceDecimal(%q) = %s, want %s", tc.input, got.String(), tc.want)
			}
		})
	}
}

func TestCoercedDecimalUnmarshal(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"json number", `12.5`, "12.5"},
		{"json string number", `"500"`, "500"},
		{"formatted string", `"20,000"`, "20000"},
		{"garbage string", `"abc"`, "0"},
		{"null", `null`, "0"},
		{"bool", `true`, "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var d models.CoercedDecimal
			if err := json.Unmarshal([]byte(tc.input), &d); err != nil {
				t.Fatalf("unmarshal %s: %v", tc.input, err)
			}
			if d.String() != tc.want {
				t.Fatalf("unmarshal %s = %s, want %s", tc.input, d.String(), tc.want)
			}
		})
	}
}

func TestCoercedDecimalUnmarshalNeverErrors(t *testing.T) {
	// A bad quantity must coerce to zero, not reject the whole edit.
	var item models.NewInvoiceItem
	payload := `{"description":"x","quantity":"not a number","unit_price":"500","tax_rate":12}`
	if err := json.Unmarshal([]byte(payload), &item); err != nil {
		t.Fatalf("unmarshal item: %v", err)
	}
	if !item.Quantity.IsZero() {
		t.Fatalf("quantity = %s, want 0", item.Quantity.String())
	}
	if item.UnitPrice.String() != "500" {
		t.Fatalf("unit_price = %s, want 500", item.UnitPrice.String())
	}
	if item.TaxRate.String() != "12" {
		t.Fatalf("tax_rate = %s, want 12", item.TaxRate.String())
	}
}
