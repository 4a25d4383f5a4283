package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/ticketdesk/internal/auth"
	"github.com/BradenHooton/ticketdesk/internal/models"
	pkghttp "github.com/BradenHooton/ticketdesk/pkg/http"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func withUser(req *http.Request, userID string) *http.Request {
	ctx := auth.WithUser(req.Context(), &models.TokenClaims{UserID: userID})
	return req.WithContext(ctx)
}

// TestRateLimitByIP_EnforcesLimit verifies requests beyond the limit receive 429
func TestRateLimitByIP_EnforcesLimit(t *testing.T) {
	handler := RateLimitByIP(DefaultAuthRateLimit(nil))(okHandler())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("POST", "/login", nil)
		req.RemoteAddr = "192.0.2.10:5000"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i+1, recorder.Code)
		}
	}

	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "192.0.2.10:5000"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", recorder.Code)
	}

	var resp pkghttp.ErrorResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.Error != "rate_limit_exceeded" {
		t.Errorf("expected error code rate_limit_exceeded, got %q", resp.Error)
	}
}

// TestRateLimitByIP_SeparateBucketsPerIP verifies one client cannot exhaust another's budget
func TestRateLimitByIP_SeparateBucketsPerIP(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{Requests: 1, Window: time.Minute})(okHandler())

	for _, addr := range []string{"192.0.2.1:1000", "192.0.2.2:1000"} {
		req := httptest.NewRequest("POST", "/forgot-password", nil)
		req.RemoteAddr = addr
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", addr, recorder.Code)
		}
	}
}

// TestRateLimitByIP_IgnoresSpoofedForwardedFor verifies untrusted peers cannot pick their own key
func TestRateLimitByIP_IgnoresSpoofedForwardedFor(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{Requests: 1, Window: time.Minute})(okHandler())

	codes := make([]int, 0, 2)
	for _, spoofed := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest("POST", "/login", nil)
		req.RemoteAddr = "192.0.2.50:1000"
		req.Header.Set("X-Forwarded-For", spoofed)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		codes = append(codes, recorder.Code)
	}

	if codes[1] != http.StatusTooManyRequests {
		t.Errorf("expected second request to be limited, got %v", codes)
	}
}

// TestRateLimitByUser_KeysByUserID verifies the user bucket is shared across IPs
func TestRateLimitByUser_KeysByUserID(t *testing.T) {
	handler := RateLimitByUser(RateLimitConfig{Requests: 1, Window: time.Minute})(okHandler())

	first := withUser(httptest.NewRequest("POST", "/complaints", nil), "user-1")
	first.RemoteAddr = "192.0.2.1:1000"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, first)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}

	second := withUser(httptest.NewRequest("POST", "/complaints", nil), "user-1")
	second.RemoteAddr = "192.0.2.2:1000"
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, second)
	if recorder.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429 for the same user, got %d", recorder.Code)
	}

	other := withUser(httptest.NewRequest("POST", "/complaints", nil), "user-2")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, other)
	if recorder.Code != http.StatusOK {
		t.Errorf("expected status 200 for another user, got %d", recorder.Code)
	}
}
