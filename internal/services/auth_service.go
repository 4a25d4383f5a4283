package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/ticketdesk/internal/auth"
	"github.com/BradenHooton/ticketdesk/internal/models"
	pkgauth "github.com/BradenHooton/ticketdesk/pkg/auth"
	pkglogger "github.com/BradenHooton/ticketdesk/pkg/logger"
)

// dummyHash is compared against when the email is unknown so both failure paths cost one bcrypt
const dummyHash = "$2a$12$C6UzMDM.H6dfI/f/IKcEeO5e0Y6zv8Z4rZyIIz3kHgp0h2A3JdV2e"

// AuthService handles registration, login and logout
type AuthService struct {
	repo        UserRepository
	tokens      TokenIssuer
	timing      *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewAuthService(repo UserRepository, tokens TokenIssuer, timing *auth.TimingDelay, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		repo:        repo,
		tokens:      tokens,
		timing:      timing,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}

func NewUserResponse(u *models.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// Register creates a client account and signs it in
func (s *AuthService) Register(ctx context.Context, name, email, password, ipAddress string) (*AuthResponse, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, models.NewValidationError("password", "The "+err.Error()+".")
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, models.NewValidationError("email", "The email has already been taken.")
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check existing user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	passwordHash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.repo.Create(ctx, &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         models.RoleClient,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.NewValidationError("email", "The email has already been taken.")
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventRegister,
		UserID:    user.ID,
		IPAddress: ipAddress,
		Success:   true,
	})

	return s.issue(user)
}

// Login verifies credentials. Unknown emails and wrong passwords are indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress string) (*AuthResponse, error) {
	start := time.Now()
	email = normalizeEmail(email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hash := dummyHash
	if user != nil {
		hash = user.PasswordHash
	}

	if compareErr := pkgauth.ComparePassword(hash, password); user == nil || compareErr != nil {
		event := pkglogger.AuditEvent{
			EventType:     pkglogger.EventLogin,
			Email:         email,
			IPAddress:     ipAddress,
			FailureReason: "invalid_credentials",
		}
		if user != nil {
			event.UserID = user.ID
		}
		s.auditLogger.Log(ctx, event)

		if s.timing != nil {
			s.timing.WaitFrom(start, false)
		}
		return nil, models.ErrUnauthorized
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLogin,
		UserID:    user.ID,
		IPAddress: ipAddress,
		Success:   true,
	})

	return s.issue(user)
}

// Logout revokes every access token of the user
func (s *AuthService) Logout(ctx context.Context, userID, ipAddress string) error {
	if err := s.repo.RotateTokenKey(ctx, userID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		s.logger.Error("failed to rotate token key", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLogout,
		UserID:    userID,
		IPAddress: ipAddress,
		Success:   true,
	})
	return nil
}

func (s *AuthService) issue(user *models.User) (*AuthResponse, error) {
	token, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return &AuthResponse{Token: token, User: NewUserResponse(user)}, nil
}
