package models

import "time"

// Profile is a registered user, keyed by the chat platform identity.
type Profile struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	ChatID        string `gorm:"size:64;not null;uniqueIndex"`
	DisplayName   string `gorm:"size:128;not null"`
	CompanionName string `gorm:"size:128;not null"`
	LanguageCode  string `gorm:"size:8;not null;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
