package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/ticketdesk/internal/auth"
	"github.com/BradenHooton/ticketdesk/internal/models"
	"github.com/BradenHooton/ticketdesk/internal/services"
	pkghttp "github.com/BradenHooton/ticketdesk/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds client claims to request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, userID, name string) *http.Request {
	return withClaims(req, userID, name, models.RoleClient)
}

// WithAdminContext adds staff claims to request context
func WithAdminContext(req *http.Request, userID, name string) *http.Request {
	return withClaims(req, userID, name, models.RoleAdmin)
}

func withClaims(req *http.Request, userID, name, role string) *http.Request {
	claims := &models.TokenClaims{
		UserID: userID,
		Email:  userID + "@example.com",
		Name:   name,
		Role:   role,
	}
	return req.WithContext(auth.WithUser(req.Context(), claims))
}

// WithURLParams sets chi route parameters on the request
func WithURLParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target any) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response and returns it
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.False(t, resp.Success)
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc func(ctx context.Context, name, email, password, ipAddress string) (*services.AuthResponse, error)
	LoginFunc    func(ctx context.Context, email, password, ipAddress string) (*services.AuthResponse, error)
	LogoutFunc   func(ctx context.Context, userID, ipAddress string) error
}

func (m *MockAuthService) Register(ctx context.Context, name, email, password, ipAddress string) (*services.AuthResponse, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.RegisterFunc(ctx, name, email, password, ipAddress)
}

func (m *MockAuthService) Login(ctx context.Context, email, password, ipAddress string) (*services.AuthResponse, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, email, password, ipAddress)
}

func (m *MockAuthService) Logout(ctx context.Context, userID, ipAddress string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, userID, ipAddress)
}

// MockPasswordResetService implements PasswordResetServiceInterface for testing
type MockPasswordResetService struct {
	RequestResetFunc  func(ctx context.Context, email, ipAddress string) error
	ResetPasswordFunc func(ctx context.Context, email, token, newPassword, ipAddress string) error
	VerifyTokenFunc   func(ctx context.Context, email, token string) bool
}

func (m *MockPasswordResetService) RequestReset(ctx context.Context, email, ipAddress string) error {
	if m.RequestResetFunc == nil {
		return nil
	}
	return m.RequestResetFunc(ctx, email, ipAddress)
}

func (m *MockPasswordResetService) ResetPassword(ctx context.Context, email, token, newPassword, ipAddress string) error {
	if m.ResetPasswordFunc == nil {
		return models.ErrInvalidToken
	}
	return m.ResetPasswordFunc(ctx, email, token, newPassword, ipAddress)
}

func (m *MockPasswordResetService) VerifyToken(ctx context.Context, email, token string) bool {
	if m.VerifyTokenFunc == nil {
		return false
	}
	return m.VerifyTokenFunc(ctx, email, token)
}

// MockComplaintService implements ComplaintServiceInterface for testing
type MockComplaintService struct {
	SubmitFunc     func(ctx context.Context, in services.SubmitInput) (*models.Complaint, error)
	TransitionFunc func(ctx context.Context, in services.TransitionInput) (*models.ComplaintView, error)
	GetFunc        func(ctx context.Context, id int64, viewerID string, isAdmin bool) (*models.ComplaintView, error)
	TrackFunc      func(ctx context.Context, ref string) (*models.ComplaintView, error)
	ListFunc       func(ctx context.Context, filter models.ComplaintFilter) ([]*models.Complaint, error)
	StatsFunc      func(ctx context.Context) (*models.ComplaintStats, error)
	ExportFunc     func(ctx context.Context, from, to time.Time) ([]*models.Complaint, error)
}

func (m *MockComplaintService) Submit(ctx context.Context, in services.SubmitInput) (*models.Complaint, error) {
	if m.SubmitFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.SubmitFunc(ctx, in)
}

func (m *MockComplaintService) Transition(ctx context.Context, in services.TransitionInput) (*models.ComplaintView, error) {
	if m.TransitionFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.TransitionFunc(ctx, in)
}

func (m *MockComplaintService) Get(ctx context.Context, id int64, viewerID string, isAdmin bool) (*models.ComplaintView, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id, viewerID, isAdmin)
}

func (m *MockComplaintService) Track(ctx context.Context, ref string) (*models.ComplaintView, error) {
	if m.TrackFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.TrackFunc(ctx, ref)
}

func (m *MockComplaintService) List(ctx context.Context, filter models.ComplaintFilter) ([]*models.Complaint, error) {
	if m.ListFunc == nil {
		return []*models.Complaint{}, nil
	}
	return m.ListFunc(ctx, filter)
}

func (m *MockComplaintService) Stats(ctx context.Context) (*models.ComplaintStats, error) {
	if m.StatsFunc == nil {
		return &models.ComplaintStats{}, nil
	}
	return m.StatsFunc(ctx)
}

func (m *MockComplaintService) Export(ctx context.Context, from, to time.Time) ([]*models.Complaint, error) {
	if m.ExportFunc == nil {
		return []*models.Complaint{}, nil
	}
	return m.ExportFunc(ctx, from, to)
}

// NewTestView returns a complaint view with a single creation ledger entry
func NewTestView(id int64, ref string, status models.Status) *models.ComplaintView {
	c := &models.Complaint{
		ID:          id,
		Reference:   ref,
		OwnerID:     "owner-1",
		Category:    models.CategoryInternet,
		Subject:     "No connection",
		Description: "Line down since Monday",
		Contact:     "555-0100",
		Status:      status,
		Priority:    models.PriorityMedium,
	}
	return &models.ComplaintView{
		Complaint: c,
		History: []*models.StatusHistoryEntry{{
			ComplaintID: id,
			NewStatus:   models.StatusNew,
			ActorID:     "owner-1",
			Note:        models.NoteComplaintCreated,
		}},
		Responses: []*models.Response{},
	}
}
