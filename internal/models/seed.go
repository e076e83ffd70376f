package models

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	console "geocommons/internal/utils/logger"

	"gorm.io/gorm"
)

var log = console.New("SEEDER")

// CreateOwnerFromEnv creates the first user account from BOOTSTRAP_EMAIL /
// BOOTSTRAP_PASSWORD when the users table is empty. Every later account comes
// in through registration.
func CreateOwnerFromEnv(db *gorm.DB) error {
	var count int64
	db.Model(&User{}).Count(&count)
	if count > 0 {
		return nil
	}

	email, ok := os.LookupEnv("BOOTSTRAP_EMAIL")
	if !ok {
		log.Info("BOOTSTRAP_EMAIL not set, skipping bootstrap user")
		return nil
	}

	password, ok := os.LookupEnv("BOOTSTRAP_PASSWORD")
	if !ok {
		return fmt.Errorf("BOOTSTRAP_PASSWORD not set")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %v", err)
	}

	user := User{
		Email:    email,
		Password: string(hashedPassword),
	}

	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("failed to create bootstrap user: %v", err)
	}

	log.Success("Created bootstrap user %s", email)
	return nil
}
