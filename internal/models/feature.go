package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FeatureACL is a per-feature grant row, analogous to UserTemplate. Keyed by
// the feature's storage table plus its row ID since feature tables are
// provisioned per template.
type FeatureACL struct {
	UserID      string `gorm:"type:uuid;primaryKey" json:"userId"`
	Storage     string `gorm:"primaryKey" json:"storage"`
	FeatureID   string `gorm:"type:uuid;primaryKey" json:"featureId"`
	View        bool   `json:"view"`
	Edit        bool   `json:"edit"`
	Delete      bool   `json:"delete"`
	IsModerator bool   `json:"isModerator"`
	IsAdmin     bool   `json:"isAdmin"`
	User        *User  `json:"user,omitempty"`
}

// Attachment is a file bound to a feature row, stored in S3. SignedURL is
// filled on read by the registered signer.
type Attachment struct {
	Base
	Storage   string `gorm:"index;not null" json:"storage"`
	FeatureID string `gorm:"type:uuid;index;not null" json:"featureId"`
	OwnerID   string `gorm:"type:uuid" json:"ownerId"`
	Path      string `gorm:"not null" json:"path" validate:"required"`
	Name      string `gorm:"not null" json:"name" validate:"required"`
	Size      int64  `gorm:"not null" json:"size" validate:"required,min=1"`
	Type      string `gorm:"not null" json:"type" validate:"required"`
	SignedURL string `gorm:"-" json:"signedUrl,omitempty"` // Virtual field
}

func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

func (a *Attachment) AfterFind(tx *gorm.DB) error {
	registryMu.RLock()
	signer := attachmentSigner
	registryMu.RUnlock()

	if signer != nil {
		// Signed URLs expire after an hour
		url, err := signer.GetSignedURL(tx.Statement.Context, a.Path, time.Hour)
		if err != nil {
			return fmt.Errorf("failed to generate signed URL: %w", err)
		}
		a.SignedURL = url
	}
	return nil
}
