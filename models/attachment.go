package models

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerline/invoicing_backend/config"
	"github.com/ledgerline/invoicing_backend/utils"
)

// Attachment links an uploaded file to any record via reference_type +
// reference_id (gorm polymorphic association).
type Attachment struct {
	ID            int       `gorm:"primary_key" json:"id"`
	BusinessId    string    `gorm:"index;not null" json:"business_id"`
	FileUrl       string    `gorm:"size:512;not null" json:"file_url"`
	FileName      string    `gorm:"size:255" json:"file_name"`
	ReferenceType string    `gorm:"index:idx_attachment_ref" json:"reference_type"`
	ReferenceID   int       `gorm:"index:idx_attachment_ref" json:"reference_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewAttachment struct {
	FileUrl  string `json:"file_url" binding:"required"`
	FileName string `json:"file_name"`
}

func mapNewAttachments(businessId string, input []*NewAttachment, referenceType string, referenceId int) []*Attachment {
	var attachments []*Attachment
	for _, i := range input {
		attachments = append(attachments, &Attachment{
			BusinessId:    businessId,
			FileUrl:       i.FileUrl,
			FileName:      i.FileName,
			ReferenceType: referenceType,
			ReferenceID:   referenceId,
		})
	}
	return attachments
}

func CreateAttachment(ctx context.Context, input *NewAttachment, referenceType string, referenceId int) (*Attachment, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if referenceType == "" || referenceId <= 0 {
		return nil, errors.New("reference type and id are required")
	}

	attachment := Attachment{
		BusinessId:    businessId,
		FileUrl:       input.FileUrl,
		FileName:      input.FileName,
		ReferenceType: referenceType,
		ReferenceID:   referenceId,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&attachment).Error; err != nil {
		return nil, err
	}
	return &attachment, nil
}

func GetAttachments(ctx context.Context, referenceType string, referenceId int) ([]*Attachment, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Attachment
	err := db.WithContext(ctx).
		Where("business_id = ? AND reference_type = ? AND reference_id = ?", businessId, referenceType, referenceId).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
