package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/ticketdesk/internal/metrics"
	"github.com/BradenHooton/ticketdesk/internal/models"
	pkgauth "github.com/BradenHooton/ticketdesk/pkg/auth"
	pkglogger "github.com/BradenHooton/ticketdesk/pkg/logger"
)

// PasswordResetConfig controls the reset token lifecycle
type PasswordResetConfig struct {
	TokenExpiry time.Duration
	// ConcealUnknownEmail answers reset requests for unregistered addresses with the
	// ordinary success response instead of a validation error
	ConcealUnknownEmail bool
}

// PasswordResetService issues, validates and consumes single-use password reset tokens.
// Only the SHA-256 digest of a token is stored.
type PasswordResetService struct {
	tokens      ResetTokenRepository
	users       UserRepository
	dispatcher  ResetDispatcher
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	metrics     *metrics.Metrics
	cfg         PasswordResetConfig
	now         func() time.Time
}

func NewPasswordResetService(
	tokens ResetTokenRepository,
	users UserRepository,
	dispatcher ResetDispatcher,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	m *metrics.Metrics,
	cfg PasswordResetConfig,
) *PasswordResetService {
	if cfg.TokenExpiry <= 0 {
		cfg.TokenExpiry = 24 * time.Hour
	}
	return &PasswordResetService{
		tokens:      tokens,
		users:       users,
		dispatcher:  dispatcher,
		logger:      logger,
		auditLogger: auditLogger,
		metrics:     m,
		cfg:         cfg,
		now:         time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Issue replaces any token held by email with a fresh one and returns the plaintext
func (s *PasswordResetService) Issue(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)

	token, err := pkgauth.GenerateRandomToken(pkgauth.ResetTokenLength)
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	expiresAt := s.now().Add(s.cfg.TokenExpiry)
	if _, err := s.tokens.Replace(ctx, email, pkgauth.HashToken(token), expiresAt); err != nil {
		s.logger.Error("failed to store reset token",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	s.metrics.ResetTokenIssued()
	return token, nil
}

// IsValid reports whether token is the live token for email. It never returns an error;
// lookups that fail count as invalid.
func (s *PasswordResetService) IsValid(ctx context.Context, token, email string) bool {
	if token == "" {
		return false
	}

	stored, err := s.tokens.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up reset token", slog.Any("error", err))
		}
		return false
	}

	matches := pkgauth.TokenMatchesHash(token, stored.TokenHash)
	return matches && stored.StateAt(s.now()) == models.TokenStateActive
}

// Consume deletes the matching token. Consuming an unknown token is a no-op.
func (s *PasswordResetService) Consume(ctx context.Context, token, email string) error {
	if err := s.tokens.Delete(ctx, normalizeEmail(email), pkgauth.HashToken(token)); err != nil {
		s.logger.Error("failed to consume reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// SweepExpired removes every expired token and returns how many were removed
func (s *PasswordResetService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.tokens.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.metrics.ResetTokensSwept(n)
	return n, nil
}

// RequestReset handles a forgot-password request: it issues a token for a registered
// email and queues the notification. Delivery failures never fail the request.
func (s *PasswordResetService) RequestReset(ctx context.Context, email, ipAddress string) error {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditLogger.Log(ctx, pkglogger.AuditEvent{
				EventType:     pkglogger.EventPasswordResetRequest,
				Email:         email,
				IPAddress:     ipAddress,
				FailureReason: "unknown_email",
			})
			if s.cfg.ConcealUnknownEmail {
				return nil
			}
			return models.NewValidationError("email", "We can't find a user with that email address.")
		}
		s.logger.Error("failed to look up user for password reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if n, err := s.SweepExpired(ctx); err != nil {
		s.logger.Warn("expired reset token sweep failed", slog.Any("error", err))
	} else if n > 0 {
		s.logger.Info("expired reset tokens swept", slog.Int64("rows_deleted", n))
	}

	token, err := s.Issue(ctx, email)
	if err != nil {
		return err
	}

	jobID, err := s.dispatcher.Dispatch(ctx, user.Email, token, user.Name)
	if err != nil {
		s.logger.Error("failed to queue password reset notification",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventPasswordResetRequest,
		UserID:    user.ID,
		IPAddress: ipAddress,
		Success:   true,
		Metadata:  map[string]string{"job_id": jobID},
	})
	return nil
}

// ResetPassword consumes token and sets a new password in one transaction. Every
// existing session of the user is revoked by rotating their token key.
func (s *PasswordResetService) ResetPassword(ctx context.Context, email, token, newPassword, ipAddress string) error {
	email = normalizeEmail(email)

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return models.NewValidationError("password", "The "+err.Error()+".")
	}

	if !s.IsValid(ctx, token, email) {
		s.auditLogger.Log(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventPasswordResetComplete,
			Email:         email,
			IPAddress:     ipAddress,
			FailureReason: "invalid_token",
		})
		return models.ErrInvalidToken
	}

	passwordHash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	tokenKey, err := pkgauth.GenerateTokenKey()
	if err != nil {
		s.logger.Error("failed to generate token key", slog.Any("error", err))
		return models.ErrInternalServer
	}

	err = s.tokens.CompleteReset(ctx, email, pkgauth.HashToken(token), passwordHash, tokenKey, s.now())
	switch {
	case errors.Is(err, models.ErrInvalidToken), errors.Is(err, models.ErrNotFound):
		// token used or expired between the check and the transaction, or the account is gone
		return models.ErrInvalidToken
	case err != nil:
		s.logger.Error("failed to complete password reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.metrics.PasswordResetCompleted()
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventPasswordResetComplete,
		Email:     email,
		IPAddress: ipAddress,
		Success:   true,
	})
	return nil
}

// VerifyToken reports token validity without consuming it
func (s *PasswordResetService) VerifyToken(ctx context.Context, email, token string) bool {
	return s.IsValid(ctx, token, email)
}
