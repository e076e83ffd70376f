package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base contains common columns for all tables
type Base struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	DeletedAt time.Time `gorm:"index;default:NULL" json:"-" validate:"omitempty"`
	IsDeleted bool      `json:"isDeleted" default:"false"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *Base) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	return nil
}

// FeatureStatus tracks the moderation state of a feature row
type FeatureStatus string

const (
	FeatureStatusActive  FeatureStatus = "ACTIVE"
	FeatureStatusPending FeatureStatus = "PENDING"
	FeatureStatusRemoved FeatureStatus = "REMOVED"
)

func (s FeatureStatus) Valid() bool {
	switch s {
	case FeatureStatusActive, FeatureStatusPending, FeatureStatusRemoved:
		return true
	}
	return false
}
