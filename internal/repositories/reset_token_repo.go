package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/ticketdesk/internal/database"
	"github.com/BradenHooton/ticketdesk/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResetTokenRepository handles password reset token data access.
// The email column is the primary key, so each email holds at most one token.
type ResetTokenRepository struct {
	pool *pgxpool.Pool
}

// NewResetTokenRepository creates a new ResetTokenRepository
func NewResetTokenRepository(db *database.DB) *ResetTokenRepository {
	return &ResetTokenRepository{pool: db.Pool}
}

func scanResetTokenRow(row rowScanner) (*models.PasswordResetToken, error) {
	var token models.PasswordResetToken

	if err := row.Scan(&token.Email, &token.TokenHash, &token.ExpiresAt, &token.CreatedAt); err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &token, nil
}

// Replace stores a token for email, displacing any token issued before it in a single statement
func (r *ResetTokenRepository) Replace(ctx context.Context, email, tokenHash string, expiresAt time.Time) (*models.PasswordResetToken, error) {
	query := `
		INSERT INTO password_reset_tokens (email, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (email) DO UPDATE
		SET token_hash = EXCLUDED.token_hash, expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at
		RETURNING email, token_hash, expires_at, created_at
	`

	token, err := scanResetTokenRow(r.pool.QueryRow(ctx, query, email, tokenHash, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to store reset token: %w", err)
	}
	return token, nil
}

// GetByEmail returns the token stored for email or models.ErrNotFound
func (r *ResetTokenRepository) GetByEmail(ctx context.Context, email string) (*models.PasswordResetToken, error) {
	query := `SELECT email, token_hash, expires_at, created_at FROM password_reset_tokens WHERE email = $1`
	return scanResetTokenRow(r.pool.QueryRow(ctx, query, email))
}

// Delete removes the token matching email and hash. Missing rows are not an error.
func (r *ResetTokenRepository) Delete(ctx context.Context, email, tokenHash string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM password_reset_tokens WHERE email = $1 AND token_hash = $2`,
		email, tokenHash,
	)
	if err != nil {
		return fmt.Errorf("failed to delete reset token: %w", err)
	}
	return nil
}

// DeleteExpired removes every token whose expiry is not after now and returns how many were removed
func (r *ResetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM password_reset_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset tokens: %w", err)
	}
	return result.RowsAffected(), nil
}

// CompleteReset consumes the token and stores the new password hash and token key in one
// transaction. Returns models.ErrInvalidToken when no live token matches, so a token can only
// ever change the password once.
func (r *ResetTokenRepository) CompleteReset(ctx context.Context, email, tokenHash, passwordHash, tokenKey string, now time.Time) error {
	return database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		deleted, err := tx.Exec(ctx, `
			DELETE FROM password_reset_tokens
			WHERE email = $1 AND token_hash = $2 AND expires_at > $3
		`, email, tokenHash, now)
		if err != nil {
			return fmt.Errorf("failed to consume reset token: %w", err)
		}
		if deleted.RowsAffected() == 0 {
			return models.ErrInvalidToken
		}

		updated, err := tx.Exec(ctx, `
			UPDATE users
			SET password_hash = $1, token_key = $2, password_changed_at = $3, updated_at = $3
			WHERE email = $4
		`, passwordHash, tokenKey, now, email)
		if err != nil {
			return fmt.Errorf("failed to update password: %w", database.MapPostgresError(err))
		}
		if updated.RowsAffected() == 0 {
			return models.ErrNotFound
		}
		return nil
	})
}
