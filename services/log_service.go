package services

import (
	"context"
	"fmt"

	"github.com/ttleague/ladder-system/models"
	"github.com/ttleague/ladder-system/repositories"
)

// LogService exposes the persisted audit log to the presentation layer.
type LogService struct {
	logRepo repositories.LogRepository
}

func NewLogService(logRepo repositories.LogRepository) *LogService {
	return &LogService{logRepo: logRepo}
}

// List returns the newest entries, at most limit.
func (s *LogService) List(ctx context.Context, limit int) ([]*models.LogEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	entries, err := s.logRepo.List(ctx, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list log entries: %w", err)
	}
	return entries, nil
}

// Clear wipes the persisted log.
func (s *LogService) Clear(ctx context.Context) error {
	if err := s.logRepo.DeleteAll(ctx, nil); err != nil {
		return fmt.Errorf("failed to clear log entries: %w", err)
	}
	return nil
}
