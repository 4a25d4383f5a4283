package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/BradenHooton/ticketdesk/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the subset of the SES client used to send mail
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier sends reset links through AWS SES
type SESNotifier struct {
	client      SESAPI
	fromAddress string
	frontendURL string
	tokenTTL    time.Duration
	logger      *slog.Logger
}

// NewSESNotifier loads the default AWS credential chain for region
func NewSESNotifier(ctx context.Context, region, fromAddress, frontendURL string, tokenTTL time.Duration, logger *slog.Logger) (*SESNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSESNotifierWithClient(ses.NewFromConfig(cfg), fromAddress, frontendURL, tokenTTL, logger), nil
}

func NewSESNotifierWithClient(client SESAPI, fromAddress, frontendURL string, tokenTTL time.Duration, logger *slog.Logger) *SESNotifier {
	return &SESNotifier{
		client:      client,
		fromAddress: fromAddress,
		frontendURL: frontendURL,
		tokenTTL:    tokenTTL,
		logger:      logger,
	}
}

func (n *SESNotifier) SendPasswordReset(ctx context.Context, to, token, name string) error {
	link := ResetLink(n.frontendURL, token, to)
	ttl := validFor(n.tokenTTL)

	greeting := "Hello,"
	if name != "" {
		greeting = fmt.Sprintf("Hello %s,", name)
	}

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1>Reset your password</h1>
        <p>%s</p>
        <p>We received a request to reset the password of your complaint desk account.</p>
        <p><a href="%s" style="display: inline-block; background-color: #0066cc; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px;">Reset Password</a></p>
        <p>Or copy and paste this link in your browser:<br><code>%s</code></p>
        <p>This link expires in %s and can be used once.</p>
        <p>If you did not ask for a reset you can ignore this email. Your password will not change.</p>
    </div>
</body>
</html>
`, html.EscapeString(greeting), html.EscapeString(link), html.EscapeString(link), ttl)

	textBody := fmt.Sprintf(`Reset your password

%s

We received a request to reset the password of your complaint desk account.
Open this link to choose a new password:

%s

This link expires in %s and can be used once.
If you did not ask for a reset you can ignore this email. Your password will not change.
`, greeting, link, ttl)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String("Reset your password")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
				Text: &types.Content{Data: aws.String(textBody)},
			},
		},
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Info("password reset email sent",
		slog.String("email", logger.SanitizedEmail(to)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
