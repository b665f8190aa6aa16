package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerline/invoicing_backend/config"
	"github.com/ledgerline/invoicing_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

type Invoice struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;not null" json:"business_id" binding:"required"`
	CustomerId      int             `gorm:"index;not null" json:"customer_id" binding:"required"`
	SequenceNo      int64           `gorm:"not null" json:"sequence_no"`
	InvoiceNumber   string          `gorm:"size:255;not null" json:"invoice_number"`
	ReferenceNumber string          `gorm:"size:255;default:null" json:"reference_number"`
	InvoiceDate     time.Time       `gorm:"not null" json:"invoice_date" binding:"required"`
	DueDate         *time.Time      `gorm:"default:null" json:"due_date"`
	CurrentStatus   InvoiceStatus   `gorm:"type:enum('Draft','Sent','Partial','Paid');not null" json:"current_status"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	TaxTotal        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_total"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	BalanceDue      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance_due"`
	Notes           string          `gorm:"type:text;default:null" json:"notes"`
	Memo            string          `gorm:"type:text;default:null" json:"memo"`
	Terms           string          `gorm:"type:text;default:null" json:"terms"`
	Location        string          `gorm:"size:255;default:null" json:"location"`
	CodeId          int             `gorm:"index;default:null" json:"code_id"`
	Details         []InvoiceItem   `gorm:"foreignKey:InvoiceId" json:"details"`
	Attachments     []*Attachment   `gorm:"polymorphic:Reference" json:"attachments"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type InvoiceItem struct {
	ID             int             `gorm:"primary_key" json:"id"`
	InvoiceId      int             `gorm:"index;not null" json:"invoice_id"`
	Description    string          `gorm:"size:255" json:"description"`
	Quantity       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	TaxRate        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_rate"`
	LineTotal      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_total"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	ServiceDate    *time.Time      `gorm:"default:null" json:"service_date"`
	ProductService string          `gorm:"size:255;default:null" json:"product_service"`
	ClassTag       string          `gorm:"size:100;default:null" json:"class_tag"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInvoice struct {
	CustomerId      int               `json:"customer_id" binding:"required"`
	ReferenceNumber string            `json:"reference_number"`
	InvoiceDate     time.Time         `json:"invoice_date" binding:"required"`
	DueDate         *time.Time        `json:"due_date"`
	Notes           string            `json:"notes"`
	Memo            string            `json:"memo"`
	Terms           string            `json:"terms"`
	Location        string            `json:"location"`
	CodeId          int               `json:"code_id"`
	Details         []NewInvoiceItem  `json:"details"`
	Attachments     []*NewAttachment  `json:"attachments"`
}

// NewInvoiceItem: ItemId 0 marks a row the client has not persisted yet.
// Quantity/UnitPrice/TaxRate tolerate formatted or garbage input and
// coerce to zero (see CoercedDecimal).
type NewInvoiceItem struct {
	ItemId         int            `json:"item_id"`
	Description    string         `json:"description"`
	Quantity       CoercedDecimal `json:"quantity"`
	UnitPrice      CoercedDecimal `json:"unit_price"`
	TaxRate        CoercedDecimal `json:"tax_rate"`
	ServiceDate    *time.Time     `json:"service_date"`
	ProductService string         `json:"product_service"`
	ClassTag       string         `json:"class_tag"`
}

type InvoiceTotals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	TaxTotal decimal.Decimal `json:"tax_total"`
	Total    decimal.Decimal `json:"total"`
}

var oneHundred = decimal.NewFromInt(100)

// ComputeItemAmounts derives line_total and tax_amount from the item's
// quantity, unit price and tax rate. This is the single place these
// formulas live; both the preview totals and the write path go through it.
func ComputeItemAmounts(item *InvoiceItem) {
	item.LineTotal = item.Quantity.Mul(item.UnitPrice)
	item.TaxAmount = item.LineTotal.Mul(item.TaxRate).Div(oneHundred)
}

// ComputeInvoiceTotals sums already-derived item amounts. Order-independent
// and idempotent.
func ComputeInvoiceTotals(items []InvoiceItem) InvoiceTotals {
	var totals InvoiceTotals
	for _, item := range items {
		totals.Subtotal = totals.Subtotal.Add(item.LineTotal)
		totals.TaxTotal = totals.TaxTotal.Add(item.TaxAmount)
	}
	totals.Total = totals.Subtotal.Add(totals.TaxTotal)
	return totals
}

// InvoiceItemChanges is the tagged change set applied on save: one diff per
// edit session, applied atomically, instead of an incremental edit log.
type InvoiceItemChanges struct {
	Inserts   []InvoiceItem
	Updates   []InvoiceItem
	DeleteIds []int
}

// DiffInvoiceItems computes the change set between the persisted item set
// and the incoming edited set. Incoming items with ID 0 are inserts; items
// matching a persisted ID are updates; persisted IDs absent from the
// incoming set are deletes. An incoming ID that matches nothing persisted
// is an error (stale edit from another session).
func DiffInvoiceItems(existing []InvoiceItem, incoming []InvoiceItem) (InvoiceItemChanges, error) {
	var changes InvoiceItemChanges

	existingById := make(map[int]InvoiceItem, len(existing))
	for _, item := range existing {
		existingById[item.ID] = item
	}

	seen := make(map[int]bool, len(incoming))
	for _, item := range incoming {
		if item.ID == 0 {
			changes.Inserts = append(changes.Inserts, item)
			continue
		}
		if _, ok := existingById[item.ID]; !ok {
			return InvoiceItemChanges{}, fmt.Errorf("unknown item id %d", item.ID)
		}
		if seen[item.ID] {
			return InvoiceItemChanges{}, fmt.Errorf("duplicate item id %d", item.ID)
		}
		seen[item.ID] = true
		changes.Updates = append(changes.Updates, item)
	}

	for _, item := range existing {
		if !seen[item.ID] {
			changes.DeleteIds = append(changes.DeleteIds, item.ID)
		}
	}

	return changes, nil
}

// HasRecordedPayments reports whether any payment has been applied to the
// invoice. Such invoices refuse edits and deletes: recomputing totals would
// clobber balance_due and silently discard the payment history.
func (inv Invoice) HasRecordedPayments() bool {
	return inv.CurrentStatus == InvoiceStatusPartial || inv.CurrentStatus == InvoiceStatusPaid
}

// DisplayStatus reports Overdue for unpaid invoices past their due date.
// Derived at read time, never stored.
func (inv Invoice) DisplayStatus(now time.Time) InvoiceStatus {
	if inv.CurrentStatus == InvoiceStatusSent || inv.CurrentStatus == InvoiceStatusPartial {
		if inv.DueDate != nil && inv.DueDate.Before(now.Truncate(24*time.Hour)) {
			return InvoiceStatusOverdue
		}
	}
	return inv.CurrentStatus
}

func (input NewInvoice) validate(ctx context.Context, businessId string) error {
	if err := utils.ValidateResourceId[Customer](ctx, businessId, input.CustomerId); err != nil {
		return errors.New("customer not found")
	}
	if input.CodeId > 0 {
		if err := utils.ValidateResourceId[Code](ctx, businessId, input.CodeId); err != nil {
			return errors.New("code not found")
		}
	}
	if input.DueDate != nil && input.DueDate.Before(input.InvoiceDate) {
		return errors.New("due date cannot be before invoice date")
	}
	return nil
}

func mapInvoiceItem(input NewInvoiceItem) InvoiceItem {
	item := InvoiceItem{
		ID:             input.ItemId,
		Description:    input.Description,
		Quantity:       input.Quantity.Decimal,
		UnitPrice:      input.UnitPrice.Decimal,
		TaxRate:        input.TaxRate.Decimal,
		ServiceDate:    input.ServiceDate,
		ProductService: input.ProductService,
		ClassTag:       input.ClassTag,
	}
	ComputeItemAmounts(&item)
	return item
}

func validateInvoiceItems(items []InvoiceItem) error {
	for _, item := range items {
		if item.Quantity.IsNegative() {
			return errors.New("item quantity cannot be negative")
		}
		if item.UnitPrice.IsNegative() {
			return errors.New("item unit price cannot be negative")
		}
		if item.TaxRate.IsNegative() {
			return errors.New("item tax rate cannot be negative")
		}
	}
	return nil
}

func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	var items []InvoiceItem
	for _, detail := range input.Details {
		item := mapInvoiceItem(detail)
		item.ID = 0
		items = append(items, item)
	}
	if err := validateInvoiceItems(items); err != nil {
		return nil, err
	}

	totals := ComputeInvoiceTotals(items)

	tx := db.Begin()
	// always rollback on early-return or panic to avoid leaking DB locks
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	seqNo, err := nextSequence(tx, businessId, "Invoice")
	if err != nil {
		return nil, err
	}

	invoice := Invoice{
		BusinessId:      businessId,
		CustomerId:      input.CustomerId,
		SequenceNo:      seqNo,
		InvoiceNumber:   formatDocumentNumber("INV", seqNo),
		ReferenceNumber: input.ReferenceNumber,
		InvoiceDate:     input.InvoiceDate,
		DueDate:         input.DueDate,
		CurrentStatus:   InvoiceStatusDraft,
		Subtotal:        totals.Subtotal,
		TaxTotal:        totals.TaxTotal,
		TotalAmount:     totals.Total,
		BalanceDue:      totals.Total,
		Notes:           input.Notes,
		Memo:            input.Memo,
		Terms:           input.Terms,
		Location:        input.Location,
		CodeId:          input.CodeId,
		Details:         items,
		Attachments:     mapNewAttachments(businessId, input.Attachments, "invoices", 0),
	}

	if err := tx.WithContext(ctx).Create(&invoice).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// re-read so computed columns/defaults are the source of truth
	return GetInvoice(ctx, invoice.ID)
}

func UpdateInvoice(ctx context.Context, invoiceId int, input *NewInvoice) (*Invoice, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	existing, err := utils.FetchModel[Invoice](ctx, businessId, invoiceId, "Details")
	if err != nil {
		return nil, err
	}

	if existing.HasRecordedPayments() {
		return nil, errors.New("cannot edit an invoice with recorded payments")
	}

	var incoming []InvoiceItem
	for _, detail := range input.Details {
		incoming = append(incoming, mapInvoiceItem(detail))
	}
	if err := validateInvoiceItems(incoming); err != nil {
		return nil, err
	}

	changes, err := DiffInvoiceItems(existing.Details, incoming)
	if err != nil {
		return nil, err
	}

	allItems := append(append([]InvoiceItem(nil), changes.Inserts...), changes.Updates...)
	totals := ComputeInvoiceTotals(allItems)

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	existing.CustomerId = input.CustomerId
	existing.ReferenceNumber = input.ReferenceNumber
	existing.InvoiceDate = input.InvoiceDate
	existing.DueDate = input.DueDate
	existing.Notes = input.Notes
	existing.Memo = input.Memo
	existing.Terms = input.Terms
	existing.Location = input.Location
	existing.CodeId = input.CodeId
	existing.Subtotal = totals.Subtotal
	existing.TaxTotal = totals.TaxTotal
	existing.TotalAmount = totals.Total
	// No payments can exist here (status checked above), so reseeding the
	// balance from the recomputed total is safe.
	existing.BalanceDue = totals.Total
	existing.Details = nil

	if err := tx.WithContext(ctx).Omit(clause.Associations).Save(existing).Error; err != nil {
		return nil, err
	}

	if len(changes.DeleteIds) > 0 {
		if err := tx.WithContext(ctx).
			Where("invoice_id = ? AND id IN ?", invoiceId, changes.DeleteIds).
			Delete(&InvoiceItem{}).Error; err != nil {
			return nil, err
		}
	}
	for i := range changes.Updates {
		changes.Updates[i].InvoiceId = invoiceId
		if err := tx.WithContext(ctx).Save(&changes.Updates[i]).Error; err != nil {
			return nil, err
		}
	}
	for i := range changes.Inserts {
		changes.Inserts[i].InvoiceId = invoiceId
		if err := tx.WithContext(ctx).Create(&changes.Inserts[i]).Error; err != nil {
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return GetInvoice(ctx, invoiceId)
}

func DeleteInvoice(ctx context.Context, id int) (*Invoice, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	existing, err := utils.FetchModel[Invoice](ctx, businessId, id, "Details")
	if err != nil {
		return nil, err
	}
	if existing.HasRecordedPayments() {
		return nil, errors.New("cannot delete an invoice with recorded payments")
	}

	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()

	if err := tx.WithContext(ctx).Where("invoice_id = ?", id).Delete(&InvoiceItem{}).Error; err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(existing).Error; err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return existing, nil
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Invoice](ctx, businessId, id, "Details", "Attachments")
}

func GetInvoices(ctx context.Context, customerId *int, status *InvoiceStatus, invoiceNumber *string) ([]*Invoice, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if customerId != nil && *customerId > 0 {
		dbCtx = dbCtx.Where("customer_id = ?", *customerId)
	}
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("current_status = ?", *status)
	}
	if invoiceNumber != nil && *invoiceNumber != "" {
		dbCtx = dbCtx.Where("invoice_number LIKE ?", "%"+*invoiceNumber+"%")
	}

	var results []*Invoice
	if err := dbCtx.Preload("Details").Order("invoice_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// MarkInvoiceSent transitions Draft -> Sent when the invoice is emailed.
// Sending again later is a no-op on status.
func MarkInvoiceSent(ctx context.Context, id int) (*Invoice, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	invoice, err := utils.FetchModel[Invoice](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if invoice.CurrentStatus != InvoiceStatusDraft {
		return invoice, nil
	}

	if err := db.WithContext(ctx).Model(invoice).
		Update("current_status", InvoiceStatusSent).Error; err != nil {
		return nil, err
	}
	invoice.CurrentStatus = InvoiceStatusSent
	return invoice, nil
}
