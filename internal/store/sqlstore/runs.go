package sqlstore

import (
	"context"
	"fmt"

	"github.com/zulandar/traveler/internal/delivery"
	"github.com/zulandar/traveler/internal/models"
)

// BeginRun journals a pass as running.
func (s *Store) BeginRun(ctx context.Context, res delivery.Result) error {
	row := models.DeliveryRun{
		ID:        res.RunID,
		Trigger:   res.Trigger,
		Status:    res.Status,
		StartedAt: res.StartedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("sqlstore: begin run %s: %w", res.RunID, err)
	}
	return nil
}

// FinishRun stores the pass outcome and counts.
func (s *Store) FinishRun(ctx context.Context, res delivery.Result) error {
	finished := res.FinishedAt
	err := s.db.WithContext(ctx).
		Model(&models.DeliveryRun{}).
		Where("id = ?", res.RunID).
		Updates(map[string]interface{}{
			"status":       res.Status,
			"profiles":     res.Profiles,
			"delivered":    res.Delivered,
			"no_articles":  res.NoArticles,
			"failed":       res.Failed,
			"error":        res.Err,
			"completed_at": &finished,
		}).Error
	if err != nil {
		return fmt.Errorf("sqlstore: finish run %s: %w", res.RunID, err)
	}
	return nil
}

// RecentRuns returns up to limit journal rows, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]models.DeliveryRun, error) {
	var runs []models.DeliveryRun
	err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("sqlstore: recent runs: %w", err)
	}
	return runs, nil
}
