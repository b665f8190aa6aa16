package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ledgerline/invoicing_backend/config"
	"github.com/ledgerline/invoicing_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

// Payment rows are append-only; recording one mutates the parent invoice's
// balance and status inside the same transaction.
type Payment struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;not null" json:"business_id" binding:"required"`
	InvoiceId       int             `gorm:"index;not null" json:"invoice_id" binding:"required"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount" binding:"required"`
	Method          PaymentMethod   `gorm:"type:enum('Cash','Check','BankTransfer','Card','Other');not null" json:"method"`
	PaymentDate     time.Time       `gorm:"not null" json:"payment_date" binding:"required"`
	ReferenceNumber string          `gorm:"size:255;default:null" json:"reference_number"`
	Notes           string          `gorm:"type:text;default:null" json:"notes"`
	Attachments     []*Attachment   `gorm:"polymorphic:Reference" json:"attachments"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPayment struct {
	InvoiceId       int              `json:"invoice_id" binding:"required"`
	Amount          decimal.Decimal  `json:"amount" binding:"required"`
	Method          PaymentMethod    `json:"method"`
	PaymentDate     time.Time        `json:"payment_date" binding:"required"`
	ReferenceNumber string           `json:"reference_number"`
	DepositTo       string           `json:"deposit_to"`
	Memo            string           `json:"memo"`
	Attachments     []*NewAttachment `json:"attachments"`
}

// ApplyPayment validates a payment amount against the current balance and
// returns the new balance plus the resulting invoice status. Pure.
//
// Transitions: Sent/Partial -> Partial while a balance remains,
// Sent/Partial -> Paid when the balance reaches zero. A zero balance
// rejects every further positive amount, so Paid is terminal.
func ApplyPayment(balance decimal.Decimal, amount decimal.Decimal) (decimal.Decimal, InvoiceStatus, error) {
	if !amount.IsPositive() {
		return decimal.Zero, "", errors.New("payment amount must be greater than zero")
	}
	if amount.GreaterThan(balance) {
		return decimal.Zero, "", errors.New("payment amount exceeds the invoice balance due")
	}

	newBalance := balance.Sub(amount)
	if newBalance.IsZero() {
		return newBalance, InvoiceStatusPaid, nil
	}
	return newBalance, InvoiceStatusPartial, nil
}

// paymentNotes joins the deposit-destination label and the free-text memo
// into the notes blob the payments table carries.
func paymentNotes(depositTo string, memo string) string {
	parts := make([]string, 0, 2)
	if strings.TrimSpace(depositTo) != "" {
		parts = append(parts, "Deposit To: "+strings.TrimSpace(depositTo))
	}
	if strings.TrimSpace(memo) != "" {
		parts = append(parts, strings.TrimSpace(memo))
	}
	return strings.Join(parts, "\n")
}

// CreatePayment records a payment against an invoice. The balance check and
// the balance mutation happen in one transaction with the invoice row
// locked, so two concurrent payments cannot both pass the check against a
// stale balance and jointly overdraw it.
func CreatePayment(ctx context.Context, input *NewPayment) (*Payment, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	var invoice Invoice
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ?", businessId).
		First(&invoice, input.InvoiceId).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if invoice.CurrentStatus == InvoiceStatusDraft {
		return nil, errors.New("invoice must be sent before recording payments")
	}

	newBalance, newStatus, err := ApplyPayment(invoice.BalanceDue, input.Amount)
	if err != nil {
		return nil, err
	}

	payment := Payment{
		BusinessId:      businessId,
		InvoiceId:       invoice.ID,
		Amount:          input.Amount,
		Method:          input.Method,
		PaymentDate:     input.PaymentDate,
		ReferenceNumber: input.ReferenceNumber,
		Notes:           paymentNotes(input.DepositTo, input.Memo),
	}
	if payment.Method == "" {
		payment.Method = PaymentMethodOther
	}

	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, err
	}

	// attachments belong to the payment row itself for traceability
	attachments := mapNewAttachments(businessId, input.Attachments, "payments", payment.ID)
	for _, attachment := range attachments {
		if err := tx.WithContext(ctx).Create(attachment).Error; err != nil {
			return nil, err
		}
	}
	payment.Attachments = attachments

	if err := tx.WithContext(ctx).Model(&invoice).Updates(map[string]interface{}{
		"balance_due":    newBalance,
		"current_status": newStatus,
	}).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &payment, nil
}

// DeletePayment removes a recorded payment and restores the invoice's
// balance and status.
func DeletePayment(ctx context.Context, id int) (*Payment, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	payment, err := utils.FetchModel[Payment](ctx, businessId, id, "Attachments")
	if err != nil {
		return nil, err
	}

	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()

	var invoice Invoice
	err = tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ?", businessId).
		First(&invoice, payment.InvoiceId).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	restoredBalance := invoice.BalanceDue.Add(payment.Amount)
	if restoredBalance.GreaterThan(invoice.TotalAmount) {
		return nil, errors.New("restored balance would exceed the invoice total")
	}

	status := InvoiceStatusPartial
	if restoredBalance.Equal(invoice.TotalAmount) {
		status = InvoiceStatusSent
	}

	if err := tx.WithContext(ctx).Delete(payment).Error; err != nil {
		return nil, err
	}
	if len(payment.Attachments) > 0 {
		if err := tx.WithContext(ctx).
			Where("reference_type = ? AND reference_id = ?", "payments", payment.ID).
			Delete(&Attachment{}).Error; err != nil {
			return nil, err
		}
	}
	if err := tx.WithContext(ctx).Model(&invoice).Updates(map[string]interface{}{
		"balance_due":    restoredBalance,
		"current_status": status,
	}).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return payment, nil
}

func GetPayment(ctx context.Context, id int) (*Payment, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Payment](ctx, businessId, id, "Attachments")
}

func GetPayments(ctx context.Context, invoiceId *int) ([]*Payment, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if invoiceId != nil && *invoiceId > 0 {
		dbCtx = dbCtx.Where("invoice_id = ?", *invoiceId)
	}
	var results []*Payment
	if err := dbCtx.Order("payment_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
