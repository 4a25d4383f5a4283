package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types
const (
	EventLogin                 = "login"
	EventRegister              = "register"
	EventLogout                = "logout"
	EventPasswordResetRequest  = "password_reset_requested"
	EventPasswordResetComplete = "password_reset_completed"
	EventStatusTransition      = "complaint_status_changed"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	UserID        string
	Email         string // masked before logging
	IPAddress     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes security and lifecycle events with a fixed shape
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// Log writes the event at Info on success and Warn on failure
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", auditType(event.EventType)),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogStatusTransition records a complaint status change by a staff member
func (al *AuditLogger) LogStatusTransition(ctx context.Context, actorID, reference, oldStatus, newStatus string) {
	al.Log(ctx, AuditEvent{
		EventType: EventStatusTransition,
		UserID:    actorID,
		Success:   true,
		Metadata: map[string]string{
			"reference":  reference,
			"old_status": oldStatus,
			"new_status": newStatus,
		},
	})
}

func auditType(eventType string) string {
	switch eventType {
	case EventPasswordResetRequest, EventPasswordResetComplete:
		return "password"
	case EventStatusTransition:
		return "complaint"
	default:
		return "auth"
	}
}
