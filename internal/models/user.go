package models

import (
	"gorm.io/datatypes"
)

// User is the principal issuing requests. An anonymous request carries a nil
// *User; resolver and services fail closed on it for authenticated-only
// operations.
type User struct {
	Base
	Email        string            `gorm:"uniqueIndex;not null" json:"email"`
	Password     string            `gorm:"not null" json:"-"`
	FirstName    string            `json:"firstName"`
	LastName     string            `json:"lastName"`
	Applications []UserApplication `gorm:"foreignKey:UserID" json:"applications,omitempty"`
	Templates    []UserTemplate    `gorm:"foreignKey:UserID" json:"templates,omitempty"`
	Provider     string            `gorm:"default:'local'" json:"provider"`
	ProviderData datatypes.JSON    `gorm:"type:jsonb" json:"providerData,omitempty"`
}

// IsAnonymous reports whether the principal has no identity
func (u *User) IsAnonymous() bool {
	return u == nil || u.ID == ""
}
