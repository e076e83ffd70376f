package models

import (
	"geocommons/internal/events"

	"gorm.io/gorm"
)

// Template is a schema definition belonging to exactly one application. Its
// feature rows live in a dynamically provisioned table named by Storage.
type Template struct {
	Base
	Name           string `gorm:"not null" json:"name" validate:"required,min=1"`
	Help           string `json:"help"`
	Storage        string `gorm:"uniqueIndex;not null" json:"storage"`
	// No column defaults on the flags: GORM drops zero-value struct fields
	// that carry a default tag, which would turn an explicit false back
	// into the default on insert. The service layer fills in defaults.
	IsPublic       bool `json:"isPublic"`
	IsCrowdsourced bool `json:"isCrowdsourced"`
	IsModerated    bool `json:"isModerated"`
	IsListed       bool `json:"isListed"`
	IsGeospatial   bool `json:"isGeospatial"`
	Status         bool `json:"status"`
}

func (t *Template) AfterCreate(tx *gorm.DB) error {
	events.Emit("template.created", t)
	return nil
}

// UserTemplate is a grant row for templates: one row per (user, template).
// View is the public-capable capability; the rest require the row.
type UserTemplate struct {
	UserID      string    `gorm:"type:uuid;primaryKey" json:"userId"`
	TemplateID  string    `gorm:"type:uuid;primaryKey" json:"templateId"`
	View        bool      `json:"view"`
	Edit        bool      `json:"edit"`
	Delete      bool      `json:"delete"`
	IsModerator bool      `json:"isModerator"`
	IsAdmin     bool      `json:"isAdmin"`
	User        *User     `json:"user,omitempty"`
	Template    *Template `json:"template,omitempty"`
}
