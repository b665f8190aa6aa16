package main

import (
	"testing"

	"github.com/ledgerline/invoicing_backend/mailer"
)

type recordingSender struct {
	last mailer.Message
}

func (r *recordingSender) Send(msg mailer.Message) error {
	r.last = msg
	return nil
}

// The send endpoints build their outgoing message the same way: one PDF
// attachment named after the invoice. Exercise that shape through the
// package-level mail client.
func TestMailClientMessageShape(t *testing.T) {
	sender := &recordingSender{}
	mailClient = sender
	defer func() { mailClient = nil }()

	err := mailClient.Send(mailer.Message{
		To:      "alice@example.com",
		Subject: "Invoice INV-0001",
		Body:    "Please find invoice INV-0001 attached.",
		Attachments: []mailer.PdfAttachment{{
			Filename: "INV-0001.pdf",
			Content:  []byte("%PDF-fake"),
		}},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sender.last.To != "alice@example.com" {
		t.Fatalf("recipient = %q", sender.last.To)
	}
	if len(sender.last.Attachments) != 1 || sender.last.Attachments[0].Filename != "INV-0001.pdf" {
		t.Fatalf("attachments = %+v, want single invoice PDF", sender.last.Attachments)
	}
}

func TestSplitAndTrim(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  []string
	}{
		{"single origin", "https://app.example.com", []string{"https://app.example.com"}},
		{"spaces around entries", " https://a.test , https://b.test ", []string{"https://a.test", "https://b.test"}},
		{"empty entries dropped", "https://a.test,,https://b.test,", []string{"https://a.test", "https://b.test"}},
		{"blank input", "  ", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := splitAndTrim(tc.input)
			if len(got) != len(tc.want) {
				t.Fatalf("splitAndTrim(%q) = %v, want %v", tc.input, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("splitAndTrim(%q)[%d] = %q, want %q", tc.input, i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestBusinessDisplayName(t *testing.T) {
	t.Setenv("BUSINESS_NAME", "")
	if got := businessDisplayName(); got != "Ledgerline" {
		t.Fatalf("default business name = %q, want Ledgerline", got)
	}

	t.Setenv("BUSINESS_NAME", "Acme Training Co")
	if got := businessDisplayName(); got != "Acme Training Co" {
		t.Fatalf("business name = %q, want Acme Training Co", got)
	}
}
