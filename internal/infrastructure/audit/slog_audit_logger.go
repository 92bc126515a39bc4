package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/you/accountsvc/domain"
)

// SlogAuditLogger implements domain.AuditLogger on a structured logger
type SlogAuditLogger struct {
	logger *slog.Logger
}

// NewSlogAuditLogger creates an audit logger writing to logger
func NewSlogAuditLogger(logger *slog.Logger) domain.AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAuditLogger{logger: logger.With("component", "audit")}
}

// LogEvent implements domain.AuditLogger
func (l *SlogAuditLogger) LogEvent(ctx context.Context, event *domain.AuditEvent) {
	attrs := []slog.Attr{
		slog.String("event_type", string(event.EventType)),
		slog.Uint64("user_id", uint64(event.UserID)),
		slog.Bool("success", event.Success),
		slog.String("timestamp", event.Timestamp.Format(time.RFC3339)),
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", event.Email))
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", event.SessionID))
	}
	if event.ErrorMsg != "" {
		attrs = append(attrs, slog.String("error", event.ErrorMsg))
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.Any(k, v))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	l.logger.LogAttrs(ctx, level, string(event.EventType), attrs...)
}
