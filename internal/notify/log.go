package notify

import (
	"context"
	"log/slog"

	"github.com/BradenHooton/ticketdesk/pkg/logger"
)

// LogNotifier writes reset links to the log instead of sending mail.
// The link itself is only printed in development.
type LogNotifier struct {
	frontendURL string
	env         string
	logger      *slog.Logger
}

func NewLogNotifier(frontendURL, env string, logger *slog.Logger) *LogNotifier {
	return &LogNotifier{frontendURL: frontendURL, env: env, logger: logger}
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, to, token, name string) error {
	n.logger.InfoContext(ctx, "password reset link",
		slog.String("email", logger.SanitizedEmail(to)),
		logger.RedactedAttr("reset_url", ResetLink(n.frontendURL, token, to), n.env),
	)
	return nil
}
