package models

import "time"

// DeliveryRun is the journal row for one delivery pass.
type DeliveryRun struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Trigger     string    `gorm:"size:16;not null"`             // "schedule", "manual", "cli"
	Status      string    `gorm:"size:16;default:running;index"` // running, completed, aborted
	Profiles    int       `gorm:"default:0"`
	Delivered   int       `gorm:"default:0"`
	NoArticles  int       `gorm:"default:0"`
	Failed      int       `gorm:"default:0"`
	Error       string    `gorm:"type:text"`
	StartedAt   time.Time `gorm:"index"`
	CompletedAt *time.Time
}
