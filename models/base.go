package models

import (
	"fmt"
	"time"

	"github.com/ledgerline/invoicing_backend/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NumberSequence issues per-business document numbers (one row per
// business + document kind, incremented under a row lock).
type NumberSequence struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"uniqueIndex:idx_seq_business_kind;not null" json:"business_id"`
	Kind       string    `gorm:"size:50;uniqueIndex:idx_seq_business_kind;not null" json:"kind"`
	Current    int64     `gorm:"not null;default:0" json:"current"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// nextSequence reserves the next number for a document kind inside tx.
// Must be called within an open transaction so the row lock holds until commit.
func nextSequence(tx *gorm.DB, businessId string, kind string) (int64, error) {
	var seq NumberSequence
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND kind = ?", businessId, kind).
		First(&seq).Error
	if err == gorm.ErrRecordNotFound {
		seq = NumberSequence{BusinessId: businessId, Kind: kind, Current: 0}
		if err := tx.Create(&seq).Error; err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	seq.Current++
	if err := tx.Model(&seq).Update("current", seq.Current).Error; err != nil {
		return 0, err
	}
	return seq.Current, nil
}

// formatDocumentNumber builds e.g. "INV-0042".
func formatDocumentNumber(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%04d", prefix, seq)
}

// MigrateTable creates/updates the schema for every model.
func MigrateTable() {
	db := config.GetDB()
	db.AutoMigrate(
		&Customer{},
		&Vendor{},
		&Code{},
		&Invoice{},
		&InvoiceItem{},
		&Payment{},
		&Bill{},
		&BillItem{},
		&BillPayment{},
		&Expense{},
		&Attachment{},
		&ReminderLog{},
		&NumberSequence{},
	)
}
