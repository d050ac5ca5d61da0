package models

import "time"

// OnboardingSession persists an in-progress registration dialog so it
// survives a bot restart.
type OnboardingSession struct {
	ChatID        string `gorm:"primaryKey;size:64"`
	State         string `gorm:"size:32;not null"`
	LanguageCode  string `gorm:"size:8"`
	DisplayName   string `gorm:"size:128"`
	CompanionName string `gorm:"size:128"`
	UpdatedAt     time.Time
}
