package model

import (
	"fmt"

	"gorm.io/gorm"
)

// Staff roles. Every user holds exactly one of these.
const (
	RoleAdmin  = "admin"
	RoleNurse  = "nurse"
	RoleDoctor = "doctor"
)

// ValidRole reports whether role is one of the three staff roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleNurse, RoleDoctor:
		return true
	}
	return false
}

type User struct {
	gorm.Model
	Name         string `gorm:"type:varchar(191);not null" json:"name"`
	Email        string `gorm:"type:varchar(191);uniqueIndex;not null" json:"email"`
	Password     string `gorm:"type:varchar(255);not null" json:"-"`
	PasswordSalt string `gorm:"type:varchar(64)" json:"-"`
	Role         string `gorm:"type:varchar(16);not null;index" json:"role"`

	// Login lockout state.
	FailedAttempts int    `gorm:"default:0" json:"-"`
	LockedUntil    *int64 `json:"-"`
}

// SeedDefaultAdmin creates a bootstrap admin account when the users table is
// empty, so a fresh deployment can log in and create the rest of the staff.
func SeedDefaultAdmin(db *gorm.DB, email, passwordHash, salt string) error {
	var count int64
	if err := db.Model(&User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	admin := User{
		Name:         "Administrator",
		Email:        email,
		Password:     passwordHash,
		PasswordSalt: salt,
		Role:         RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	return nil
}
