package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/ticketdesk/internal/models"
	pkglogger "github.com/BradenHooton/ticketdesk/pkg/logger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAudit() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(testLogger())
}

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	CreateFunc         func(ctx context.Context, user *models.User) (*models.User, error)
	GetByIDFunc        func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*models.User, error)
	RotateTokenKeyFunc func(ctx context.Context, id string) error
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) RotateTokenKey(ctx context.Context, id string) error {
	if m.RotateTokenKeyFunc != nil {
		return m.RotateTokenKeyFunc(ctx, id)
	}
	return nil
}

// MockComplaintRepository implements ComplaintRepository for testing
type MockComplaintRepository struct {
	CreateWithHistoryFunc func(ctx context.Context, c *models.Complaint) (*models.Complaint, error)
	ApplyTransitionFunc   func(ctx context.Context, t models.Transition) (*models.StatusHistoryEntry, error)
	GetByIDFunc           func(ctx context.Context, id int64) (*models.Complaint, error)
	GetByReferenceFunc    func(ctx context.Context, ref string) (*models.Complaint, error)
	ListFunc              func(ctx context.Context, filter models.ComplaintFilter) ([]*models.Complaint, error)
	StatsFunc             func(ctx context.Context) (*models.ComplaintStats, error)
}

func (m *MockComplaintRepository) CreateWithHistory(ctx context.Context, c *models.Complaint) (*models.Complaint, error) {
	if m.CreateWithHistoryFunc != nil {
		return m.CreateWithHistoryFunc(ctx, c)
	}
	return nil, models.ErrInternalServer
}

func (m *MockComplaintRepository) ApplyTransition(ctx context.Context, t models.Transition) (*models.StatusHistoryEntry, error) {
	if m.ApplyTransitionFunc != nil {
		return m.ApplyTransitionFunc(ctx, t)
	}
	return nil, models.ErrInternalServer
}

func (m *MockComplaintRepository) GetByID(ctx context.Context, id int64) (*models.Complaint, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockComplaintRepository) GetByReference(ctx context.Context, ref string) (*models.Complaint, error) {
	if m.GetByReferenceFunc != nil {
		return m.GetByReferenceFunc(ctx, ref)
	}
	return nil, models.ErrNotFound
}

func (m *MockComplaintRepository) List(ctx context.Context, filter models.ComplaintFilter) ([]*models.Complaint, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return []*models.Complaint{}, nil
}

func (m *MockComplaintRepository) Stats(ctx context.Context) (*models.ComplaintStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &models.ComplaintStats{}, nil
}

// MockStatusHistoryRepository implements StatusHistoryRepository for testing
type MockStatusHistoryRepository struct {
	ListByComplaintFunc func(ctx context.Context, complaintID int64) ([]*models.StatusHistoryEntry, error)
}

func (m *MockStatusHistoryRepository) ListByComplaint(ctx context.Context, complaintID int64) ([]*models.StatusHistoryEntry, error) {
	if m.ListByComplaintFunc != nil {
		return m.ListByComplaintFunc(ctx, complaintID)
	}
	return []*models.StatusHistoryEntry{}, nil
}

// MockResponseRepository implements ResponseRepository for testing
type MockResponseRepository struct {
	ListByComplaintFunc func(ctx context.Context, complaintID int64) ([]*models.Response, error)
}

func (m *MockResponseRepository) ListByComplaint(ctx context.Context, complaintID int64) ([]*models.Response, error) {
	if m.ListByComplaintFunc != nil {
		return m.ListByComplaintFunc(ctx, complaintID)
	}
	return []*models.Response{}, nil
}

// MemoryResetTokenStore is an in-memory ResetTokenRepository keyed by email
type MemoryResetTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*models.PasswordResetToken
	// passwords records CompleteReset calls by email
	passwords map[string]string
	Err       error
}

func NewMemoryResetTokenStore() *MemoryResetTokenStore {
	return &MemoryResetTokenStore{
		tokens:    make(map[string]*models.PasswordResetToken),
		passwords: make(map[string]string),
	}
}

func (m *MemoryResetTokenStore) Replace(ctx context.Context, email, tokenHash string, expiresAt time.Time) (*models.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	t := &models.PasswordResetToken{Email: email, TokenHash: tokenHash, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	m.tokens[email] = t
	return t, nil
}

func (m *MemoryResetTokenStore) GetByEmail(ctx context.Context, email string) (*models.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	t, ok := m.tokens[email]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (m *MemoryResetTokenStore) Delete(ctx context.Context, email, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if t, ok := m.tokens[email]; ok && t.TokenHash == tokenHash {
		delete(m.tokens, email)
	}
	return nil
}

func (m *MemoryResetTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	var n int64
	for email, t := range m.tokens {
		if t.IsExpiredAt(now) {
			delete(m.tokens, email)
			n++
		}
	}
	return n, nil
}

func (m *MemoryResetTokenStore) CompleteReset(ctx context.Context, email, tokenHash, passwordHash, tokenKey string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	t, ok := m.tokens[email]
	if !ok || t.TokenHash != tokenHash || t.IsExpiredAt(now) {
		return models.ErrInvalidToken
	}
	delete(m.tokens, email)
	m.passwords[email] = passwordHash
	return nil
}

func (m *MemoryResetTokenStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

// MockDispatcher records dispatched notifications
type MockDispatcher struct {
	mu   sync.Mutex
	Sent []DispatchedReset
	Err  error
}

type DispatchedReset struct {
	To, Token, Name string
}

func (m *MockDispatcher) Dispatch(ctx context.Context, to, token, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.Sent = append(m.Sent, DispatchedReset{to, token, name})
	return "job-1", nil
}

// MockTokenIssuer returns a fixed token per user id
type MockTokenIssuer struct {
	Err error
}

func (m *MockTokenIssuer) GenerateAccessToken(user *models.User) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return "token-" + user.ID, nil
}

// NewTestComplaint returns a complaint with the given status
func NewTestComplaint(id int64, ref string, status models.Status) *models.Complaint {
	return &models.Complaint{
		ID:          id,
		Reference:   ref,
		OwnerID:     "owner-1",
		Category:    models.CategoryBilling,
		Subject:     "Double charge",
		Description: "I was billed twice this month",
		Contact:     "555-0100",
		Status:      status,
		Priority:    models.PriorityMedium,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}
