package models

import "time"

// Article is a content item pushed to users whose language matches.
// Position orders delivery; lower positions go out first.
type Article struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	LanguageCode string `gorm:"size:8;not null;index"`
	ImageURL     string `gorm:"size:1024;not null"`
	Text         string `gorm:"type:text"`
	Position     int    `gorm:"default:0;index"`
	CreatedAt    time.Time

	Deliveries []ArticleDelivery `gorm:"foreignKey:ArticleID"`
}

// ArticleDelivery records that an article reached a profile. The composite
// primary key makes a second delivery of the same pair a conflict.
type ArticleDelivery struct {
	ArticleID   int64 `gorm:"primaryKey"`
	ProfileID   int64 `gorm:"primaryKey"`
	DeliveredAt time.Time

	Profile Profile `gorm:"foreignKey:ProfileID"`
}
