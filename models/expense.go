package models

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerline/invoicing_backend/config"
	"github.com/ledgerline/invoicing_backend/utils"
	"github.com/shopspring/decimal"
)

// Expense is a direct cost with no payable lifecycle: recorded once,
// already paid. Counts against profit in code reporting alongside bills.
type Expense struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null" json:"business_id" binding:"required"`
	VendorId    int             `gorm:"index;default:null" json:"vendor_id"`
	Description string          `gorm:"size:255;not null" json:"description" binding:"required"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount" binding:"required"`
	Category    ExpenseCategory `gorm:"size:50;default:'Other'" json:"category"`
	ExpenseDate time.Time       `gorm:"not null" json:"expense_date" binding:"required"`
	CodeId      int             `gorm:"index;default:null" json:"code_id"`
	Attachments []*Attachment   `gorm:"polymorphic:Reference" json:"attachments"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewExpense struct {
	VendorId    int              `json:"vendor_id"`
	Description string           `json:"description" binding:"required"`
	Amount      CoercedDecimal   `json:"amount"`
	Category    ExpenseCategory  `json:"category"`
	ExpenseDate time.Time        `json:"expense_date" binding:"required"`
	CodeId      int              `json:"code_id"`
	Attachments []*NewAttachment `json:"attachments"`
}

func (input NewExpense) validate(ctx context.Context, businessId string) error {
	if !input.Amount.IsPositive() {
		return errors.New("expense amount must be greater than zero")
	}
	if input.VendorId > 0 {
		if err := utils.ValidateResourceId[Vendor](ctx, businessId, input.VendorId); err != nil {
			return errors.New("vendor not found")
		}
	}
	if input.CodeId > 0 {
		if err := utils.ValidateResourceId[Code](ctx, businessId, input.CodeId); err != nil {
			return errors.New("code not found")
		}
	}
	return nil
}

func CreateExpense(ctx context.Context, input *NewExpense) (*Expense, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	expense := Expense{
		BusinessId:  businessId,
		VendorId:    input.VendorId,
		Description: input.Description,
		Amount:      input.Amount.Decimal,
		Category:    input.Category,
		ExpenseDate: input.ExpenseDate,
		CodeId:      input.CodeId,
		Attachments: mapNewAttachments(businessId, input.Attachments, "expenses", 0),
	}
	if expense.Category == "" {
		expense.Category = ExpenseCategoryOther
	}

	if err := db.WithContext(ctx).Create(&expense).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

func UpdateExpense(ctx context.Context, id int, input *NewExpense) (*Expense, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	existing, err := utils.FetchModel[Expense](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	existing.VendorId = input.VendorId
	existing.Description = input.Description
	existing.Amount = input.Amount.Decimal
	existing.Category = input.Category
	existing.ExpenseDate = input.ExpenseDate
	existing.CodeId = input.CodeId
	if existing.Category == "" {
		existing.Category = ExpenseCategoryOther
	}

	if err := db.WithContext(ctx).Save(existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

func DeleteExpense(ctx context.Context, id int) (*Expense, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	existing, err := utils.FetchModel[Expense](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Delete(existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

func GetExpense(ctx context.Context, id int) (*Expense, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Expense](ctx, businessId, id, "Attachments")
}

func GetExpenses(ctx context.Context, vendorId *int, category *ExpenseCategory) ([]*Expense, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if vendorId != nil && *vendorId > 0 {
		dbCtx = dbCtx.Where("vendor_id = ?", *vendorId)
	}
	if category != nil && *category != "" {
		dbCtx = dbCtx.Where("category = ?", *category)
	}
	var results []*Expense
	if err := dbCtx.Order("expense_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
