package models

import "github.com/google/uuid"

// Attachment is a file uploaded against a lead. The blob itself lives in
// object storage, sealed with the server's age identity.
type Attachment struct {
	Base
	LeadID      uuid.UUID `gorm:"type:uuid;not null;index" json:"leadId"`
	FileName    string    `gorm:"not null" json:"fileName"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	StorageKey  string    `gorm:"not null;uniqueIndex" json:"-"`
	UploadedBy  uuid.UUID `gorm:"type:uuid;not null" json:"uploadedBy"`
}

func (Attachment) TableName() string {
	return "attachments"
}
