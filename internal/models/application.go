package models

import (
	"geocommons/internal/events"

	"gorm.io/gorm"
)

// Application is the tenant-like grouping that owns templates
type Application struct {
	Base
	Name        string                `gorm:"not null" json:"name" validate:"required,min=1"`
	Description string                `json:"description"`
	URL         string                `json:"url" validate:"omitempty,url"`
	Status      bool                  `gorm:"default:true" json:"status"`
	IsPublic    bool                  `gorm:"default:false" json:"isPublic"`
	Templates   []ApplicationTemplate `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"templates,omitempty"`
}

func (a *Application) AfterCreate(tx *gorm.DB) error {
	events.Emit("application.created", a)
	return nil
}

// ApplicationTemplate links a template to its owning application. Kept as an
// association table rather than a plain foreign key, matching the grant rows.
type ApplicationTemplate struct {
	ApplicationID string    `gorm:"type:uuid;primaryKey" json:"applicationId"`
	TemplateID    string    `gorm:"type:uuid;primaryKey" json:"templateId"`
	Template      *Template `json:"template,omitempty"`
}

// UserApplication is a grant row: one row per (user, application), enforced
// by the composite primary key. Read is the public-capable capability;
// Write and IsAdmin always require the row.
type UserApplication struct {
	UserID        string       `gorm:"type:uuid;primaryKey" json:"userId"`
	ApplicationID string       `gorm:"type:uuid;primaryKey" json:"applicationId"`
	Read          bool         `json:"read"`
	Write         bool         `json:"write"`
	IsAdmin       bool         `json:"isAdmin"`
	User          *User        `json:"user,omitempty"`
	Application   *Application `json:"application,omitempty"`
}
