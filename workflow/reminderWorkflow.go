package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ledgerline/invoicing_backend/config"
	"github.com/ledgerline/invoicing_backend/mailer"
	"github.com/ledgerline/invoicing_backend/models"
	"github.com/ledgerline/invoicing_backend/pdfgen"
	"github.com/ledgerline/invoicing_backend/utils"
)

const (
	defaultReminderSubject = "Payment reminder for invoice {invoice_number}"
	defaultReminderBody    = "Dear {customer_name},\n\n" +
		"This is a friendly reminder that invoice {invoice_number} is awaiting payment.\n" +
		"Please find the invoice attached.\n\n" +
		"Thank you."
)

// ReminderInput configures one reminder batch. Subject and Body may carry
// {customer_name} and {invoice_number} placeholders, substituted per
// recipient. Empty templates fall back to the defaults.
type ReminderInput struct {
	Subject      string `json:"subject"`
	Body         string `json:"body"`
	BusinessName string `json:"business_name"`
	// OverdueOnly restricts the batch to invoices past their due date;
	// otherwise every Sent/Partial invoice is included.
	OverdueOnly bool `json:"overdue_only"`
}

// ReminderResult tallies a finished batch. Sent + Failed equals the number
// of invoices attempted.
type ReminderResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// ReminderTarget pairs an invoice with its customer for one send attempt.
type ReminderTarget struct {
	Invoice  *models.Invoice
	Customer *models.Customer
}

// RenderFunc produces the PDF attached to a reminder.
type RenderFunc func(invoice *models.Invoice, customer *models.Customer, businessName string) ([]byte, error)

// LogFunc records one attempt in the reminder audit trail.
type LogFunc func(ctx context.Context, log *models.ReminderLog) error

// Reminder runs reminder batches. Collaborators are injected so the
// dispatch loop is testable without SMTP or a database.
type Reminder struct {
	sender mailer.Sender
	render RenderFunc
	log    LogFunc
}

func NewReminder(sender mailer.Sender) *Reminder {
	return &Reminder{
		sender: sender,
		render: pdfgen.RenderInvoice,
		log:    models.CreateReminderLog,
	}
}

// NewReminderWithDeps is the fully-injected constructor used by tests.
func NewReminderWithDeps(sender mailer.Sender, render RenderFunc, log LogFunc) *Reminder {
	return &Reminder{sender: sender, render: render, log: log}
}

func renderTemplate(tpl string, customerName string, invoiceNumber string) string {
	out := strings.ReplaceAll(tpl, "{customer_name}", customerName)
	return strings.ReplaceAll(out, "{invoice_number}", invoiceNumber)
}

// SendInvoiceReminders loads the open invoices for the current business and
// dispatches one reminder email each. One failing invoice never aborts the
// batch; it is tallied and the loop moves on.
func (r *Reminder) SendInvoiceReminders(ctx context.Context, input ReminderInput) (ReminderResult, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return ReminderResult{}, errors.New("business id is required")
	}

	targets, err := collectReminderTargets(ctx, input.OverdueOnly)
	if err != nil {
		return ReminderResult{}, err
	}

	return r.Dispatch(ctx, input, targets), nil
}

func collectReminderTargets(ctx context.Context, overdueOnly bool) ([]ReminderTarget, error) {
	var targets []ReminderTarget
	now := time.Now()

	for _, status := range []models.InvoiceStatus{models.InvoiceStatusSent, models.InvoiceStatusPartial} {
		s := status
		invoices, err := models.GetInvoices(ctx, nil, &s, nil)
		if err != nil {
			return nil, err
		}
		for _, invoice := range invoices {
			if overdueOnly && invoice.DisplayStatus(now) != models.InvoiceStatusOverdue {
				continue
			}
			customer, err := models.GetCustomer(ctx, invoice.CustomerId)
			if err != nil {
				// still attempted: Dispatch tallies the missing customer as a failure
				customer = nil
			}
			targets = append(targets, ReminderTarget{Invoice: invoice, Customer: customer})
		}
	}
	return targets, nil
}

// Dispatch sends one reminder per target and writes an audit row for every
// attempt. Failures (missing email, render error, send error) are logged
// and counted, never propagated.
func (r *Reminder) Dispatch(ctx context.Context, input ReminderInput, targets []ReminderTarget) ReminderResult {
	logger := config.GetLogger()

	subjectTpl := input.Subject
	if subjectTpl == "" {
		subjectTpl = defaultReminderSubject
	}
	bodyTpl := input.Body
	if bodyTpl == "" {
		bodyTpl = defaultReminderBody
	}

	var result ReminderResult
	for _, target := range targets {
		err := r.sendOne(target, input.BusinessName, subjectTpl, bodyTpl)

		logRow := &models.ReminderLog{
			BusinessId: target.Invoice.BusinessId,
			InvoiceId:  target.Invoice.ID,
			Sent:       err == nil,
			SentAt:     time.Now(),
		}
		if target.Customer != nil {
			logRow.Recipient = target.Customer.Email
		}
		if err != nil {
			logRow.Error = err.Error()
			result.Failed++
			config.LogError(logger, "workflow", "SendInvoiceReminders", "send reminder",
				map[string]interface{}{"invoice_id": target.Invoice.ID}, err)
		} else {
			result.Sent++
		}
		if logErr := r.log(ctx, logRow); logErr != nil {
			config.LogError(logger, "workflow", "SendInvoiceReminders", "write reminder log",
				map[string]interface{}{"invoice_id": target.Invoice.ID}, logErr)
		}
	}
	return result
}

func (r *Reminder) sendOne(target ReminderTarget, businessName string, subjectTpl string, bodyTpl string) error {
	if target.Customer == nil || target.Customer.Email == "" {
		return errors.New("customer has no email address")
	}

	pdf, err := r.render(target.Invoice, target.Customer, businessName)
	if err != nil {
		return err
	}

	msg := mailer.Message{
		To:      target.Customer.Email,
		Subject: renderTemplate(subjectTpl, target.Customer.Name, target.Invoice.InvoiceNumber),
		Body:    renderTemplate(bodyTpl, target.Customer.Name, target.Invoice.InvoiceNumber),
		Attachments: []mailer.PdfAttachment{{
			Filename: target.Invoice.InvoiceNumber + ".pdf",
			Content:  pdf,
		}},
	}
	return r.sender.Send(msg)
}
