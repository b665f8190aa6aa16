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

// Bill is a vendor-side payable. Items carry a flat amount each (no
// quantity/tax breakdown); the total is their sum.
type Bill struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;not null" json:"business_id" binding:"required"`
	VendorId        int             `gorm:"index;not null" json:"vendor_id" binding:"required"`
	SequenceNo      int64           `gorm:"not null" json:"sequence_no"`
	BillNumber      string          `gorm:"size:255;not null" json:"bill_number"`
	ReferenceNumber string          `gorm:"size:255;default:null" json:"reference_number"`
	BillDate        time.Time       `gorm:"not null" json:"bill_date" binding:"required"`
	DueDate         *time.Time      `gorm:"default:null" json:"due_date"`
	CurrentStatus   BillStatus      `gorm:"type:enum('Open','Partial','Paid');not null" json:"current_status"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	BalanceDue      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance_due"`
	Memo            string          `gorm:"type:text;default:null" json:"memo"`
	CodeId          int             `gorm:"index;default:null" json:"code_id"`
	Details         []BillItem      `gorm:"foreignKey:BillId" json:"details"`
	Attachments     []*Attachment   `gorm:"polymorphic:Reference" json:"attachments"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type BillItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BillId      int             `gorm:"index;not null" json:"bill_id"`
	Description string          `gorm:"size:255" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBill struct {
	VendorId        int              `json:"vendor_id" binding:"required"`
	ReferenceNumber string           `json:"reference_number"`
	BillDate        time.Time        `json:"bill_date" binding:"required"`
	DueDate         *time.Time       `json:"due_date"`
	Memo            string           `json:"memo"`
	CodeId          int              `json:"code_id"`
	Details         []NewBillItem    `json:"details"`
	Attachments     []*NewAttachment `json:"attachments"`
}

type NewBillItem struct {
	ItemId      int            `json:"item_id"`
	Description string         `json:"description"`
	Amount      CoercedDecimal `json:"amount"`
}

// ComputeBillTotal sums item amounts. Order-independent.
func ComputeBillTotal(items []BillItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	return total
}

// HasRecordedPayments mirrors the invoice-side guard for payables.
func (b Bill) HasRecordedPayments() bool {
	return b.CurrentStatus == BillStatusPartial || b.CurrentStatus == BillStatusPaid
}

type BillItemChanges struct {
	Inserts   []BillItem
	Updates   []BillItem
	DeleteIds []int
}

// DiffBillItems mirrors DiffInvoiceItems for bill lines: ID 0 inserts,
// matching IDs update, persisted IDs missing from the incoming set delete.
func DiffBillItems(existing []BillItem, incoming []BillItem) (BillItemChanges, error) {
	var changes BillItemChanges

	existingById := make(map[int]BillItem, len(existing))
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
			return BillItemChanges{}, fmt.Errorf("unknown item id %d", item.ID)
		}
		if seen[item.ID] {
			return BillItemChanges{}, fmt.Errorf("duplicate item id %d", item.ID)
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

func (input NewBill) validate(ctx context.Context, businessId string) error {
	if err := utils.ValidateResourceId[Vendor](ctx, businessId, input.VendorId); err != nil {
		return errors.New("vendor not found")
	}
	if input.CodeId > 0 {
		if err := utils.ValidateResourceId[Code](ctx, businessId, input.CodeId); err != nil {
			return errors.New("code not found")
		}
	}
	if input.DueDate != nil && input.DueDate.Before(input.BillDate) {
		return errors.New("due date cannot be before bill date")
	}
	return nil
}

func mapBillItem(input NewBillItem) BillItem {
	return BillItem{
		ID:          input.ItemId,
		Description: input.Description,
		Amount:      input.Amount.Decimal,
	}
}

func validateBillItems(items []BillItem) error {
	for _, item := range items {
		if item.Amount.IsNegative() {
			return errors.New("item amount cannot be negative")
		}
	}
	return nil
}

func CreateBill(ctx context.Context, input *NewBill) (*Bill, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	var items []BillItem
	for _, detail := range input.Details {
		item := mapBillItem(detail)
		item.ID = 0
		items = append(items, item)
	}
	if err := validateBillItems(items); err != nil {
		return nil, err
	}

	total := ComputeBillTotal(items)

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	seqNo, err := nextSequence(tx, businessId, "Bill")
	if err != nil {
		return nil, err
	}

	bill := Bill{
		BusinessId:      businessId,
		VendorId:        input.VendorId,
		SequenceNo:      seqNo,
		BillNumber:      formatDocumentNumber("BILL", seqNo),
		ReferenceNumber: input.ReferenceNumber,
		BillDate:        input.BillDate,
		DueDate:         input.DueDate,
		CurrentStatus:   BillStatusOpen,
		TotalAmount:     total,
		BalanceDue:      total,
		Memo:            input.Memo,
		CodeId:          input.CodeId,
		Details:         items,
		Attachments:     mapNewAttachments(businessId, input.Attachments, "bills", 0),
	}

	if err := tx.WithContext(ctx).Create(&bill).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return GetBill(ctx, bill.ID)
}

func UpdateBill(ctx context.Context, billId int, input *NewBill) (*Bill, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	existing, err := utils.FetchModel[Bill](ctx, businessId, billId, "Details")
	if err != nil {
		return nil, err
	}
	if existing.HasRecordedPayments() {
		return nil, errors.New("cannot edit a bill with recorded payments")
	}

	var incoming []BillItem
	for _, detail := range input.Details {
		incoming = append(incoming, mapBillItem(detail))
	}
	if err := validateBillItems(incoming); err != nil {
		return nil, err
	}

	changes, err := DiffBillItems(existing.Details, incoming)
	if err != nil {
		return nil, err
	}

	allItems := append(append([]BillItem(nil), changes.Inserts...), changes.Updates...)
	total := ComputeBillTotal(allItems)

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	existing.VendorId = input.VendorId
	existing.ReferenceNumber = input.ReferenceNumber
	existing.BillDate = input.BillDate
	existing.DueDate = input.DueDate
	existing.Memo = input.Memo
	existing.CodeId = input.CodeId
	existing.TotalAmount = total
	existing.BalanceDue = total
	existing.Details = nil

	if err := tx.WithContext(ctx).Omit(clause.Associations).Save(existing).Error; err != nil {
		return nil, err
	}

	if len(changes.DeleteIds) > 0 {
		if err := tx.WithContext(ctx).
			Where("bill_id = ? AND id IN ?", billId, changes.DeleteIds).
			Delete(&BillItem{}).Error; err != nil {
			return nil, err
		}
	}
	for i := range changes.Updates {
		changes.Updates[i].BillId = billId
		if err := tx.WithContext(ctx).Save(&changes.Updates[i]).Error; err != nil {
			return nil, err
		}
	}
	for i := range changes.Inserts {
		changes.Inserts[i].BillId = billId
		if err := tx.WithContext(ctx).Create(&changes.Inserts[i]).Error; err != nil {
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return GetBill(ctx, billId)
}

func DeleteBill(ctx context.Context, id int) (*Bill, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	existing, err := utils.FetchModel[Bill](ctx, businessId, id, "Details")
	if err != nil {
		return nil, err
	}
	if existing.HasRecordedPayments() {
		return nil, errors.New("cannot delete a bill with recorded payments")
	}

	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()

	if err := tx.WithContext(ctx).Where("bill_id = ?", id).Delete(&BillItem{}).Error; err != nil {
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

func GetBill(ctx context.Context, id int) (*Bill, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Bill](ctx, businessId, id, "Details", "Attachments")
}

func GetBills(ctx context.Context, vendorId *int, status *BillStatus) ([]*Bill, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if vendorId != nil && *vendorId > 0 {
		dbCtx = dbCtx.Where("vendor_id = ?", *vendorId)
	}
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("current_status = ?", *status)
	}

	var results []*Bill
	if err := dbCtx.Preload("Details").Order("bill_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
