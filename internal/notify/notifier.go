// Package notify delivers password reset links to users out of band from the HTTP request.
package notify

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Notifier delivers a reset link to one address
type Notifier interface {
	SendPasswordReset(ctx context.Context, to, token, name string) error
}

// ResetLink builds the frontend URL a user follows to choose a new password
func ResetLink(frontendURL, token, email string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", email)
	return frontendURL + "/reset-password.html?" + q.Encode()
}

// validFor renders a token lifetime for message bodies
func validFor(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	default:
		return d.String()
	}
}
