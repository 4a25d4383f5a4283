package services

import (
	"context"
	"time"

	"github.com/BradenHooton/ticketdesk/internal/models"
)

// UserRepository defines the user storage operations the services need
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	RotateTokenKey(ctx context.Context, id string) error
}

// ComplaintRepository persists complaints together with their ledger
type ComplaintRepository interface {
	CreateWithHistory(ctx context.Context, c *models.Complaint) (*models.Complaint, error)
	ApplyTransition(ctx context.Context, t models.Transition) (*models.StatusHistoryEntry, error)
	GetByID(ctx context.Context, id int64) (*models.Complaint, error)
	GetByReference(ctx context.Context, ref string) (*models.Complaint, error)
	List(ctx context.Context, filter models.ComplaintFilter) ([]*models.Complaint, error)
	Stats(ctx context.Context) (*models.ComplaintStats, error)
}

// StatusHistoryRepository reads the status ledger
type StatusHistoryRepository interface {
	ListByComplaint(ctx context.Context, complaintID int64) ([]*models.StatusHistoryEntry, error)
}

// ResponseRepository reads staff responses
type ResponseRepository interface {
	ListByComplaint(ctx context.Context, complaintID int64) ([]*models.Response, error)
}

// ResetTokenRepository stores at most one hashed reset token per email
type ResetTokenRepository interface {
	Replace(ctx context.Context, email, tokenHash string, expiresAt time.Time) (*models.PasswordResetToken, error)
	GetByEmail(ctx context.Context, email string) (*models.PasswordResetToken, error)
	Delete(ctx context.Context, email, tokenHash string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	CompleteReset(ctx context.Context, email, tokenHash, passwordHash, tokenKey string, now time.Time) error
}

// ResetDispatcher hands a reset token to the notification channel without waiting for delivery
type ResetDispatcher interface {
	Dispatch(ctx context.Context, to, token, name string) (string, error)
}

// TokenIssuer signs access tokens
type TokenIssuer interface {
	GenerateAccessToken(user *models.User) (string, error)
}
