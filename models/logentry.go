package models

import "time"

// LogLevel соответствует ENUM в таблице log_entries.
type LogLevel string

const (
	LevelDebug   LogLevel = "Debug"
	LevelInfo    LogLevel = "Information"
	LevelAuth    LogLevel = "Authentication"
	LevelWarning LogLevel = "Warning"
	LevelError   LogLevel = "Error"
)

// LogEntry is one persisted audit event.
type LogEntry struct {
	ID        int       `json:"id"`
	Level     LogLevel  `json:"level"`
	Origin    string    `json:"origin"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
