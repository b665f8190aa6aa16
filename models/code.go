package models

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerline/invoicing_backend/config"
	"github.com/ledgerline/invoicing_backend/utils"
)

// Code is a project/training label attachable to invoices, bills and
// expenses; reporting aggregates profit/loss grouped by this label.
type Code struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id" binding:"required"`
	Code       string    `gorm:"size:50;not null" json:"code" binding:"required"`
	Name       string    `gorm:"size:255;not null" json:"name" binding:"required"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCode struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
}

func CreateCode(ctx context.Context, input *NewCode) (*Code, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	count, err := utils.ResourceCountWhere[Code](ctx, businessId, "code = ?", input.Code)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("code already exists")
	}

	db := config.GetDB()
	code := Code{
		BusinessId: businessId,
		Code:       input.Code,
		Name:       input.Name,
	}
	if err := db.WithContext(ctx).Create(&code).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

func UpdateCode(ctx context.Context, id int, input *NewCode) (*Code, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	existing, err := utils.FetchModel[Code](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[Code](ctx, businessId, "code = ? AND id != ?", input.Code, id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("code already exists")
	}

	existing.Code = input.Code
	existing.Name = input.Name

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

func DeleteCode(ctx context.Context, id int) (*Code, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	existing, err := utils.FetchModel[Code](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

func GetCodes(ctx context.Context) ([]*Code, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchAllModels[Code](ctx, businessId)
}
