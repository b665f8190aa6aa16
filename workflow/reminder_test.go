package workflow_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ledgerline/invoicing_backend/mailer"
	"github.com/ledgerline/invoicing_backend/models"
	"github.com/ledgerline/invoicing_backend/workflow"
)

type fakeSender struct {
	sent    []mailer.Message
	failFor map[string]bool
}

func (f *fakeSender) Send(msg mailer.Message) error {
	if f.failFor[msg.To] {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func fakeRender(invoice *models.Invoice, customer *models.Customer, businessName string) ([]byte, error) {
	return []byte("%PDF-fake"), nil
}

func target(id int, number string, name string, email string) workflow.ReminderTarget {
	return workflow.ReminderTarget{
		Invoice:  &models.Invoice{ID: id, InvoiceNumber: number},
		Customer: &models.Customer{Name: name, Email: email},
	}
}

func TestDispatchTally(t *testing.T) {
	sender := &fakeSender{failFor: map[string]bool{"bad@example.com": true}}
	var logs []*models.ReminderLog
	logFn := func(ctx context.Context, log *models.ReminderLog) error {
		logs = append(logs, log)
		return nil
	}

	r := workflow.NewReminderWithDeps(sender, fakeRender, logFn)

	targets := []workflow.ReminderTarget{
		target(1, "INV-0001", "Alice", "alice@example.com"),
		target(2, "INV-0002", "Bob", "bad@example.com"),
		target(3, "INV-0003", "Carol", "carol@example.com"),
	}

	result := r.Dispatch(context.Background(), workflow.ReminderInput{}, targets)

	if result.Sent != 2 {
		t.Fatalf("sent = %d, want 2", result.Sent)
	}
	if result.Failed != 1 {
		t.Fatalf("failed = %d, want 1", result.Failed)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("messages delivered = %d, want 2", len(sender.sent))
	}
	if len(logs) != 3 {
		t.Fatalf("audit rows = %d, want one per attempt", len(logs))
	}
	for _, log := range logs {
		if log.InvoiceId == 2 && log.Sent {
			t.Fatal("failed attempt logged as sent")
		}
		if log.InvoiceId != 2 && !log.Sent {
			t.Fatalf("successful attempt for invoice %d logged as failed", log.InvoiceId)
		}
	}
}

func TestDispatchMissingEmailCountsAsFailure(t *testing.T) {
	sender := &fakeSender{}
	logFn := func(ctx context.Context, log *models.ReminderLog) error { return nil }
	r := workflow.NewReminderWithDeps(sender, fakeRender, logFn)

	targets := []workflow.ReminderTarget{
		target(1, "INV-0001", "Alice", ""),
		{Invoice: &models.Invoice{ID: 2, InvoiceNumber: "INV-0002"}, Customer: nil},
		target(3, "INV-0003", "Carol", "carol@example.com"),
	}

	result := r.Dispatch(context.Background(), workflow.ReminderInput{}, targets)

	if result.Sent != 1 || result.Failed != 2 {
		t.Fatalf("result = %+v, want 1 sent, 2 failed", result)
	}
}

func TestDispatchRenderFailureDoesNotAbortBatch(t *testing.T) {
	sender := &fakeSender{}
	logFn := func(ctx context.Context, log *models.ReminderLog) error { return nil }
	failingRender := func(invoice *models.Invoice, customer *models.Customer, businessName string) ([]byte, error) {
		if invoice.ID == 1 {
			return nil, errors.New("render failed")
		}
		return []byte("%PDF-fake"), nil
	}
	r := workflow.NewReminderWithDeps(sender, failingRender, logFn)

	targets := []workflow.ReminderTarget{
		target(1, "INV-0001", "Alice", "alice@example.com"),
		target(2, "INV-0002", "Bob", "bob@example.com"),
	}

	result := r.Dispatch(context.Background(), workflow.ReminderInput{}, targets)
	if result.Sent != 1 || result.Failed != 1 {
		t.Fatalf("result = %+v, want 1 sent, 1 failed", result)
	}
}

func TestDispatchTemplateSubstitution(t *testing.T) {
	sender := &fakeSender{}
	logFn := func(ctx context.Context, log *models.ReminderLog) error { return nil }
	r := workflow.NewReminderWithDeps(sender, fakeRender, logFn)

	input := workflow.ReminderInput{
		Subject: "Reminder: {invoice_number}",
		Body:    "Hi {customer_name}, invoice {invoice_number} is due.",
	}
	targets := []workflow.ReminderTarget{
		target(1, "INV-0042", "Alice", "alice@example.com"),
	}

	r.Dispatch(context.Background(), input, targets)

	if len(sender.sent) != 1 {
		t.Fatalf("messages delivered = %d, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.Subject != "Reminder: INV-0042" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Hi Alice") || !strings.Contains(msg.Body, "INV-0042") {
		t.Fatalf("body = %q, placeholders not substituted", msg.Body)
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].Filename != "INV-0042.pdf" {
		t.Fatalf("attachments = %+v, want single PDF named after the invoice", msg.Attachments)
	}
}

func TestDispatchDefaultTemplates(t *testing.T) {
	sender := &fakeSender{}
	logFn := func(ctx context.Context, log *models.ReminderLog) error { return nil }
	r := workflow.NewReminderWithDeps(sender, fakeRender, logFn)

	targets := []workflow.ReminderTarget{
		target(1, "INV-0007", "Alice", "alice@example.com"),
	}
	r.Dispatch(context.Background(), workflow.ReminderInput{}, targets)

	if len(sender.sent) != 1 {
		t.Fatalf("messages delivered = %d, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if !strings.Contains(msg.Subject, "INV-0007") {
		t.Fatalf("default subject %q missing invoice number", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Alice") {
		t.Fatalf("default body %q missing customer name", msg.Body)
	}
}
