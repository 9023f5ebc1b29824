package services

import (
	"context"
	"log/slog"

	"github.com/ttleague/ladder-system/models"
	"github.com/ttleague/ladder-system/repositories"
)

// Audit is a one-way sink for leveled operational events. It never influences
// control flow: implementations must swallow their own failures.
type Audit interface {
	Event(ctx context.Context, level models.LogLevel, origin, message string)
}

// SlogAudit writes audit events to a structured logger only.
type SlogAudit struct {
	logger *slog.Logger
}

func NewSlogAudit(logger *slog.Logger) *SlogAudit {
	return &SlogAudit{logger: logger}
}

func (a *SlogAudit) Event(_ context.Context, level models.LogLevel, origin, message string) {
	attrs := []any{slog.String("origin", origin)}
	switch level {
	case models.LevelDebug:
		a.logger.Debug(message, attrs...)
	case models.LevelWarning:
		a.logger.Warn(message, attrs...)
	case models.LevelError:
		a.logger.Error(message, attrs...)
	default:
		a.logger.Info(message, append(attrs, slog.String("level", string(level)))...)
	}
}

// DBAudit persists audit events as log entries and falls back to the logger
// when the database write fails.
type DBAudit struct {
	logRepo  repositories.LogRepository
	fallback *SlogAudit
}

func NewDBAudit(logRepo repositories.LogRepository, logger *slog.Logger) *DBAudit {
	return &DBAudit{
		logRepo:  logRepo,
		fallback: NewSlogAudit(logger),
	}
}

func (a *DBAudit) Event(ctx context.Context, level models.LogLevel, origin, message string) {
	entry := &models.LogEntry{
		Level:   level,
		Origin:  origin,
		Message: message,
	}
	// Audit writes stay outside caller transactions so a rolled-back operation
	// still leaves its trace.
	if err := a.logRepo.Create(ctx, nil, entry); err != nil {
		a.fallback.Event(ctx, models.LevelError, "audit", "could not persist log entry: "+err.Error())
		a.fallback.Event(ctx, level, origin, message)
	}
}
