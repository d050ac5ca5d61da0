package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/zulandar/traveler/internal/models"
	"github.com/zulandar/traveler/internal/onboarding"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Load returns the chat's session, or an Idle session if none is stored.
func (s *Store) Load(ctx context.Context, chatID string) (*onboarding.Session, error) {
	var row models.OnboardingSession
	err := s.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &onboarding.Session{ChatID: chatID, State: onboarding.StateIdle}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: load session %s: %w", chatID, err)
	}
	return &onboarding.Session{
		ChatID:        row.ChatID,
		State:         onboarding.State(row.State),
		LanguageCode:  row.LanguageCode,
		DisplayName:   row.DisplayName,
		CompanionName: row.CompanionName,
	}, nil
}

// Save upserts the session.
func (s *Store) Save(ctx context.Context, sess *onboarding.Session) error {
	row := models.OnboardingSession{
		ChatID:        sess.ChatID,
		State:         string(sess.State),
		LanguageCode:  sess.LanguageCode,
		DisplayName:   sess.DisplayName,
		CompanionName: sess.CompanionName,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("sqlstore: save session %s: %w", sess.ChatID, err)
	}
	return nil
}

// Delete removes the session; deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, chatID string) error {
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Delete(&models.OnboardingSession{}).Error
	if err != nil {
		return fmt.Errorf("sqlstore: delete session %s: %w", chatID, err)
	}
	return nil
}
