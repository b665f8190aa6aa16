package models

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerline/invoicing_backend/config"
	"github.com/ledgerline/invoicing_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

type BillPayment struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;not null" json:"business_id" binding:"required"`
	BillId          int             `gorm:"index;not null" json:"bill_id" binding:"required"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount" binding:"required"`
	Method          PaymentMethod   `gorm:"type:enum('Cash','Check','BankTransfer','Card','Other');not null" json:"method"`
	PaymentDate     time.Time       `gorm:"not null" json:"payment_date" binding:"required"`
	ReferenceNumber string          `gorm:"size:255;default:null" json:"reference_number"`
	Notes           string          `gorm:"type:text;default:null" json:"notes"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBillPayment struct {
	BillId          int             `json:"bill_id" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	Method          PaymentMethod   `json:"method"`
	PaymentDate     time.Time       `json:"payment_date" binding:"required"`
	ReferenceNumber string          `json:"reference_number"`
	Memo            string          `json:"memo"`
}

// ApplyBillPayment is the payable-side counterpart of ApplyPayment:
// same bound check, Open/Partial -> Partial or Paid.
func ApplyBillPayment(balance decimal.Decimal, amount decimal.Decimal) (decimal.Decimal, BillStatus, error) {
	if !amount.IsPositive() {
		return decimal.Zero, "", errors.New("payment amount must be greater than zero")
	}
	if amount.GreaterThan(balance) {
		return decimal.Zero, "", errors.New("payment amount exceeds the bill balance due")
	}

	newBalance := balance.Sub(amount)
	if newBalance.IsZero() {
		return newBalance, BillStatusPaid, nil
	}
	return newBalance, BillStatusPartial, nil
}

func CreateBillPayment(ctx context.Context, input *NewBillPayment) (*BillPayment, error) {
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

	var bill Bill
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ?", businessId).
		First(&bill, input.BillId).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	newBalance, newStatus, err := ApplyBillPayment(bill.BalanceDue, input.Amount)
	if err != nil {
		return nil, err
	}

	payment := BillPayment{
		BusinessId:      businessId,
		BillId:          bill.ID,
		Amount:          input.Amount,
		Method:          input.Method,
		PaymentDate:     input.PaymentDate,
		ReferenceNumber: input.ReferenceNumber,
		Notes:           input.Memo,
	}
	if payment.Method == "" {
		payment.Method = PaymentMethodOther
	}

	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, err
	}

	if err := tx.WithContext(ctx).Model(&bill).Updates(map[string]interface{}{
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

func DeleteBillPayment(ctx context.Context, id int) (*BillPayment, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	payment, err := utils.FetchModel[BillPayment](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()

	var bill Bill
	err = tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ?", businessId).
		First(&bill, payment.BillId).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	restoredBalance := bill.BalanceDue.Add(payment.Amount)
	if restoredBalance.GreaterThan(bill.TotalAmount) {
		return nil, errors.New("restored balance would exceed the bill total")
	}

	status := BillStatusPartial
	if restoredBalance.Equal(bill.TotalAmount) {
		status = BillStatusOpen
	}

	if err := tx.WithContext(ctx).Delete(payment).Error; err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Model(&bill).Updates(map[string]interface{}{
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

func GetBillPayments(ctx context.Context, billId *int) ([]*BillPayment, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if billId != nil && *billId > 0 {
		dbCtx = dbCtx.Where("bill_id = ?", *billId)
	}
	var results []*BillPayment
	if err := dbCtx.Order("payment_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
