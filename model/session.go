package model

import (
	"time"

	"gorm.io/gorm"
)

type Session struct {
	gorm.Model
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	SessionToken string    `gorm:"type:varchar(512);uniqueIndex;not null" json:"session_token"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`
	ClientIP     string    `gorm:"type:varchar(45)" json:"client_ip"`
	Browser      string    `gorm:"type:varchar(512)" json:"browser"`
}
