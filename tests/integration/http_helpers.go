package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/ticketdesk/internal/auth"
	"github.com/BradenHooton/ticketdesk/internal/handlers"
	"github.com/BradenHooton/ticketdesk/internal/metrics"
	"github.com/BradenHooton/ticketdesk/internal/notify"
	"github.com/BradenHooton/ticketdesk/internal/reference"
	"github.com/BradenHooton/ticketdesk/internal/routes"
	"github.com/BradenHooton/ticketdesk/internal/services"
	pkghttp "github.com/BradenHooton/ticketdesk/pkg/http"
	pkglogger "github.com/BradenHooton/ticketdesk/pkg/logger"
)

const testJWTSecret = "integration-secret-that-is-at-least-32-bytes"

// SentReset is one captured password reset notification
type SentReset struct {
	To    string
	Token string
	Name  string
}

// CapturingNotifier records reset notifications instead of sending them
type CapturingNotifier struct {
	mu   sync.Mutex
	sent []SentReset
}

func (n *CapturingNotifier) SendPasswordReset(ctx context.Context, to, token, name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, SentReset{To: to, Token: token, Name: name})
	return nil
}

// Last returns the most recent notification sent to email
func (n *CapturingNotifier) Last(email string) (SentReset, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].To == email {
			return n.sent[i], true
		}
	}
	return SentReset{}, false
}

// WaitForReset blocks until a notification for email has been delivered by the dispatcher
func (n *CapturingNotifier) WaitForReset(t *testing.T, email string) SentReset {
	t.Helper()
	var got SentReset
	require.Eventually(t, func() bool {
		var ok bool
		got, ok = n.Last(email)
		return ok
	}, 5*time.Second, 20*time.Millisecond, "no reset notification delivered to %s", email)
	return got
}

// TestServer is the full HTTP stack backed by the test database
type TestServer struct {
	Server     *httptest.Server
	Notifier   *CapturingNotifier
	Repos      *Repositories
	Complaints *services.ComplaintService
	Resets     *services.PasswordResetService
}

// NewTestServer wires real repositories, services and the router. The dispatcher
// worker is stopped when the test finishes.
func NewTestServer(t *testing.T, db *TestDB) *TestServer {
	t.Helper()

	logger := discardLogger()
	auditLogger := pkglogger.NewAuditLogger(logger)
	m := metrics.New()
	repos := db.Repositories()

	notifier := &CapturingNotifier{}
	dispatcher := notify.NewDispatcher(notifier, notify.DispatcherConfig{
		QueueSize:   10,
		BaseBackoff: 10 * time.Millisecond,
	}, logger, m)

	ctx, cancel := context.WithCancel(context.Background())
	dispatcher.Start(ctx)

	tokens := auth.NewTokenManager(testJWTSecret, 15*time.Minute, repos.Users)
	authService := services.NewAuthService(repos.Users, tokens, nil, logger, auditLogger)
	resetService := services.NewPasswordResetService(repos.Resets, repos.Users, dispatcher, logger, auditLogger, m, services.PasswordResetConfig{
		TokenExpiry: time.Hour,
	})
	complaintService := services.NewComplaintService(repos.Complaints, repos.History, repos.Responses, logger, auditLogger, m, reference.DefaultMaxAttempts)

	ipConfig := pkghttp.NewIPConfig(nil)
	router := routes.NewRouter(routes.Dependencies{
		AuthHandler:      handlers.NewAuthHandler(authService, resetService, ipConfig),
		ComplaintHandler: handlers.NewComplaintHandler(complaintService),
		AdminHandler:     handlers.NewAdminHandler(complaintService),
		Tokens:           tokens,
		Health:           db.DB,
		Metrics:          m,
		Logger:           logger,
		Env:              "test",
		IPConfig:         ipConfig,
		AuthRateLimit:    1000,
		WriteRateLimit:   1000,
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = dispatcher.Stop(stopCtx)
		cancel()
	})

	return &TestServer{
		Server:     server,
		Notifier:   notifier,
		Repos:      repos,
		Complaints: complaintService,
		Resets:     resetService,
	}
}

// Do sends a JSON request and decodes the JSON response body into a map
func (s *TestServer) Do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, s.Server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.Server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "response body: %s", raw)
	}
	return resp.StatusCode, decoded
}

// Register creates an account over HTTP and returns its access token
func (s *TestServer) Register(t *testing.T, name, email, password string) string {
	t.Helper()
	status, body := s.Do(t, http.MethodPost, "/register", "", map[string]string{
		"name":                  name,
		"email":                 email,
		"password":              password,
		"password_confirmation": password,
	})
	require.Equal(t, http.StatusCreated, status, "register failed: %v", body)
	return tokenFrom(t, body)
}

// Login authenticates over HTTP and returns the access token
func (s *TestServer) Login(t *testing.T, email, password string) string {
	t.Helper()
	status, body := s.Do(t, http.MethodPost, "/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, status, "login failed: %v", body)
	return tokenFrom(t, body)
}

func tokenFrom(t *testing.T, body map[string]any) string {
	t.Helper()
	token, ok := body["token"].(string)
	require.True(t, ok, "response has no token: %v", body)
	return token
}
