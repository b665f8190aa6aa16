package models

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerline/invoicing_backend/config"
	"github.com/ledgerline/invoicing_backend/utils"
)

// ReminderLog is the audit trail for reminder batches: one row per
// invoice attempted, success or failure.
type ReminderLog struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	InvoiceId  int       `gorm:"index;not null" json:"invoice_id"`
	Recipient  string    `gorm:"size:255" json:"recipient"`
	Sent       bool      `gorm:"not null;default:false" json:"sent"`
	Error      string    `gorm:"size:512;default:null" json:"error"`
	SentAt     time.Time `gorm:"not null" json:"sent_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func CreateReminderLog(ctx context.Context, log *ReminderLog) error {
	db := config.GetDB()
	return db.WithContext(ctx).Create(log).Error
}

func GetReminderLogs(ctx context.Context, invoiceId *int) ([]*ReminderLog, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if invoiceId != nil && *invoiceId > 0 {
		dbCtx = dbCtx.Where("invoice_id = ?", *invoiceId)
	}
	var results []*ReminderLog
	if err := dbCtx.Order("sent_at DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
