// Package sqlstore persists profiles, articles, onboarding sessions and the
// delivery run journal through GORM (MySQL or SQLite).
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/traveler/internal/delivery"
	"github.com/zulandar/traveler/internal/models"
	"github.com/zulandar/traveler/internal/onboarding"
	"github.com/zulandar/traveler/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store implements store.Store, onboarding.SessionStore and
// delivery.RunRecorder on a single database.
type Store struct {
	db *gorm.DB
}

var (
	_ store.Store             = (*Store)(nil)
	_ onboarding.SessionStore = (*Store)(nil)
	_ delivery.RunRecorder    = (*Store)(nil)
)

// New wraps an open database. Tables must already exist (see db.AutoMigrate).
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: db is required")
	}
	return &Store{db: db}, nil
}

// CreateProfile inserts a profile. A second profile for the same chat
// violates the unique index and is returned as an error.
func (s *Store) CreateProfile(ctx context.Context, p store.Profile) error {
	row := models.Profile{
		ChatID:        p.ChatID,
		DisplayName:   p.DisplayName,
		CompanionName: p.CompanionName,
		LanguageCode:  p.LanguageCode,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("sqlstore: create profile %s: %w", p.ChatID, err)
	}
	return nil
}

// GetProfile returns store.ErrNotFound when the chat has no profile.
func (s *Store) GetProfile(ctx context.Context, chatID string) (*store.Profile, error) {
	var row models.Profile
	err := s.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get profile %s: %w", chatID, err)
	}
	p := toProfile(row)
	return &p, nil
}

// ListProfiles returns all profiles in registration order.
func (s *Store) ListProfiles(ctx context.Context) ([]store.Profile, error) {
	var rows []models.Profile
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlstore: list profiles: %w", err)
	}
	out := make([]store.Profile, len(rows))
	for i, r := range rows {
		out[i] = toProfile(r)
	}
	return out, nil
}

// ListArticles returns articles ordered by position, then id, with the chat
// identities each one was delivered to.
func (s *Store) ListArticles(ctx context.Context) ([]store.Article, error) {
	var rows []models.Article
	err := s.db.WithContext(ctx).
		Preload("Deliveries.Profile").
		Order("position, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list articles: %w", err)
	}
	out := make([]store.Article, len(rows))
	for i, r := range rows {
		a := store.Article{
			ID:           r.ID,
			LanguageCode: r.LanguageCode,
			ImageURL:     r.ImageURL,
			Text:         r.Text,
		}
		for _, d := range r.Deliveries {
			a.DeliveredTo = append(a.DeliveredTo, d.Profile.ChatID)
		}
		out[i] = a
	}
	return out, nil
}

// MarkDelivered records the delivery. Marking the same pair twice is a no-op.
func (s *Store) MarkDelivered(ctx context.Context, articleID int64, p store.Profile) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var article models.Article
		if err := tx.Select("id").First(&article, articleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("sqlstore: article %d: %w", articleID, store.ErrNotFound)
			}
			return fmt.Errorf("sqlstore: mark delivered: %w", err)
		}

		profileID := p.ID
		if profileID == 0 {
			var row models.Profile
			if err := tx.Select("id").Where("chat_id = ?", p.ChatID).First(&row).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("sqlstore: profile %s: %w", p.ChatID, store.ErrNotFound)
				}
				return fmt.Errorf("sqlstore: mark delivered: %w", err)
			}
			profileID = row.ID
		}

		d := models.ArticleDelivery{ArticleID: articleID, ProfileID: profileID, DeliveredAt: time.Now()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&d).Error; err != nil {
			return fmt.Errorf("sqlstore: mark article %d delivered to %s: %w", articleID, p.ChatID, err)
		}
		return nil
	})
}

// AddArticle inserts a content item and returns it with its ID set.
func (s *Store) AddArticle(ctx context.Context, a store.Article, position int) (store.Article, error) {
	row := models.Article{
		LanguageCode: a.LanguageCode,
		ImageURL:     a.ImageURL,
		Text:         a.Text,
		Position:     position,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return store.Article{}, fmt.Errorf("sqlstore: add article: %w", err)
	}
	a.ID = row.ID
	return a, nil
}

func toProfile(r models.Profile) store.Profile {
	return store.Profile{
		ID:            r.ID,
		ChatID:        r.ChatID,
		DisplayName:   r.DisplayName,
		CompanionName: r.CompanionName,
		LanguageCode:  r.LanguageCode,
	}
}
