package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/ticketdesk/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// UserTokenKeyFetcher loads the user whose TokenKey signs their tokens
type UserTokenKeyFetcher interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// TokenManager handles JWT token generation and validation. Tokens are signed with
// the global secret concatenated with the user's TokenKey, so rotating the key
// revokes every token issued for that user.
type TokenManager struct {
	secret            string
	accessTokenExpiry time.Duration
	users             UserTokenKeyFetcher
	now               func() time.Time
}

func NewTokenManager(secret string, accessExpiry time.Duration, users UserTokenKeyFetcher) *TokenManager {
	return &TokenManager{
		secret:            secret,
		accessTokenExpiry: accessExpiry,
		users:             users,
		now:               time.Now,
	}
}

func (tm *TokenManager) signingKey(user *models.User) []byte {
	return []byte(tm.secret + user.TokenKey)
}

// GenerateAccessToken issues a signed access token for user
func (tm *TokenManager) GenerateAccessToken(user *models.User) (string, error) {
	now := tm.now()

	claims := &models.TokenClaims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.accessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(tm.signingKey(user))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken verifies a token against the current TokenKey of its user and
// returns its claims with the role refreshed from storage
func (tm *TokenManager) ValidateToken(ctx context.Context, tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}
	var user *models.User

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		parsed, ok := token.Claims.(*models.TokenClaims)
		if !ok || parsed.UserID == "" {
			return nil, errors.New("token has no subject")
		}

		u, err := tm.users.GetByID(ctx, parsed.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to load token owner: %w", err)
		}
		user = u
		return tm.signingKey(u), nil
	}, jwt.WithTimeFunc(tm.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	if !token.Valid || user == nil {
		return nil, models.ErrUnauthorized
	}

	claims.Role = user.Role
	claims.Name = user.Name
	return claims, nil
}
