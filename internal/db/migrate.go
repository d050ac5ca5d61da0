package db

import (
	"fmt"

	"github.com/zulandar/traveler/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model the bot persists.
func AllModels() []interface{} {
	return []interface{}{
		&models.Profile{},
		&models.Article{},
		&models.ArticleDelivery{},
		&models.OnboardingSession{},
		&models.DeliveryRun{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
