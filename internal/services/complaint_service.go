package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/ticketdesk/internal/metrics"
	"github.com/BradenHooton/ticketdesk/internal/models"
	pkglogger "github.com/BradenHooton/ticketdesk/pkg/logger"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
	MaxExportRows    = 10000
)

// SubmitInput is a new complaint as entered by its owner
type SubmitInput struct {
	OwnerID     string
	Category    string
	Subject     string
	Description string
	Contact     string
}

// TransitionInput is a staff request to move a complaint to another status
type TransitionInput struct {
	ComplaintID int64
	NewStatus   string
	ActorID     string
	ActorName   string
	Note        string
	Response    string
}

// ComplaintService orchestrates complaint creation, status transitions and lookups
type ComplaintService struct {
	complaints  ComplaintRepository
	history     StatusHistoryRepository
	responses   ResponseRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	metrics     *metrics.Metrics
	maxAttempts int
	retryBase   time.Duration
}

// NewComplaintService creates a ComplaintService. maxAttempts bounds how many times
// reference allocation is tried when concurrent submissions collide.
func NewComplaintService(
	complaints ComplaintRepository,
	history StatusHistoryRepository,
	responses ResponseRepository,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	m *metrics.Metrics,
	maxAttempts int,
) *ComplaintService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &ComplaintService{
		complaints:  complaints,
		history:     history,
		responses:   responses,
		logger:      logger,
		auditLogger: auditLogger,
		metrics:     m,
		maxAttempts: maxAttempts,
		retryBase:   10 * time.Millisecond,
	}
}

func validateSubmit(in SubmitInput) (models.Category, error) {
	verr := &models.ValidationError{}

	category, err := models.ParseCategory(in.Category)
	if err != nil {
		verr.Add("type", "The selected type is invalid.")
	}
	if strings.TrimSpace(in.Subject) == "" {
		verr.Add("subject", "The subject field is required.")
	} else if len(in.Subject) > 255 {
		verr.Add("subject", "The subject may not be greater than 255 characters.")
	}
	if strings.TrimSpace(in.Description) == "" {
		verr.Add("description", "The description field is required.")
	}
	if strings.TrimSpace(in.Contact) == "" {
		verr.Add("contact_info", "The contact info field is required.")
	} else if len(in.Contact) > 255 {
		verr.Add("contact_info", "The contact info may not be greater than 255 characters.")
	}

	if verr.HasErrors() {
		return "", verr
	}
	return category, nil
}

// Submit stores a new complaint with status New, priority Medium and a freshly
// allocated reference. Reference collisions are retried and never reach the caller.
func (s *ComplaintService) Submit(ctx context.Context, in SubmitInput) (*models.Complaint, error) {
	category, err := validateSubmit(in)
	if err != nil {
		return nil, err
	}

	draft := &models.Complaint{
		OwnerID:     in.OwnerID,
		Category:    category,
		Subject:     strings.TrimSpace(in.Subject),
		Description: strings.TrimSpace(in.Description),
		Contact:     strings.TrimSpace(in.Contact),
	}

	var created *models.Complaint
	// jitter keeps colliding submitters from retrying in lockstep
	backoff := retry.WithMaxRetries(uint64(s.maxAttempts-1),
		retry.WithJitterPercent(50, retry.NewExponential(s.retryBase)))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		c, err := s.complaints.CreateWithHistory(ctx, draft)
		if errors.Is(err, models.ErrConflict) {
			s.metrics.ReferenceConflict()
			s.logger.Debug("reference collision, retrying", slog.Any("error", err))
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.Error("reference allocation retries exhausted",
				slog.Int("attempts", s.maxAttempts),
				slog.Any("error", err))
			return nil, fmt.Errorf("%w: could not allocate a complaint reference", models.ErrInternalServer)
		}
		s.logger.Error("failed to create complaint", slog.Any("error", err))
		return nil, err
	}

	s.metrics.ComplaintCreated()
	s.logger.Info("complaint submitted",
		slog.String("reference", created.Reference),
		slog.String("user_id", created.OwnerID))

	return created, nil
}

// Transition moves a complaint to a new status, recording the ledger entry and the
// optional response in the same transaction as the status update
func (s *ComplaintService) Transition(ctx context.Context, in TransitionInput) (*models.ComplaintView, error) {
	next, err := models.ParseStatus(in.NewStatus)
	if err != nil {
		return nil, models.NewValidationError("status", "The selected status is invalid.")
	}

	response := strings.TrimSpace(in.Response)
	if next.RequiresResponse() && response == "" {
		return nil, models.NewValidationError("response", "A response is required when resolving a complaint.")
	}

	complaint, err := s.complaints.GetByID(ctx, in.ComplaintID)
	if err != nil {
		return nil, err
	}
	complaint.ApplyLegacyDefaults()

	if !complaint.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: cannot change status from %s to %s",
			models.ErrInvalidTransition, complaint.Status, next)
	}

	note := strings.TrimSpace(in.Note)
	if note == "" {
		note = models.DefaultTransitionNote(in.ActorName)
	}

	_, err = s.complaints.ApplyTransition(ctx, models.Transition{
		ComplaintID: complaint.ID,
		OldStatus:   complaint.Status,
		NewStatus:   next,
		ActorID:     in.ActorID,
		Note:        note,
		Response:    response,
	})
	if err != nil {
		if !errors.Is(err, models.ErrConflict) {
			s.logger.Error("failed to apply status transition",
				slog.Int64("complaint_id", complaint.ID),
				slog.Any("error", err))
		}
		return nil, err
	}

	s.metrics.StatusTransition(string(complaint.Status), string(next))
	s.auditLogger.LogStatusTransition(ctx, in.ActorID, complaint.Reference, string(complaint.Status), string(next))

	return s.Get(ctx, complaint.ID, in.ActorID, true)
}

// Get returns a complaint with its ledger and responses. Non-staff viewers may only
// see their own complaints.
func (s *ComplaintService) Get(ctx context.Context, id int64, viewerID string, isAdmin bool) (*models.ComplaintView, error) {
	complaint, err := s.complaints.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !isAdmin && complaint.OwnerID != viewerID {
		return nil, models.ErrForbidden
	}

	return s.view(ctx, complaint)
}

// Track is the public lookup by reference
func (s *ComplaintService) Track(ctx context.Context, ref string) (*models.ComplaintView, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, models.ErrNotFound
	}

	complaint, err := s.complaints.GetByReference(ctx, ref)
	if err != nil {
		return nil, err
	}

	return s.view(ctx, complaint)
}

// History returns the ledger of a complaint, newest first
func (s *ComplaintService) History(ctx context.Context, complaintID int64) ([]*models.StatusHistoryEntry, error) {
	return s.history.ListByComplaint(ctx, complaintID)
}

// List returns complaints matching filter, newest first, with the limit clamped
func (s *ComplaintService) List(ctx context.Context, filter models.ComplaintFilter) ([]*models.Complaint, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	complaints, err := s.complaints.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, c := range complaints {
		c.ApplyLegacyDefaults()
	}
	return complaints, nil
}

// Export returns every complaint created in [from, to), newest first, capped at MaxExportRows
func (s *ComplaintService) Export(ctx context.Context, from, to time.Time) ([]*models.Complaint, error) {
	if !to.After(from) {
		return nil, models.NewValidationError("end_date", "The end date must be a date after or equal to start date.")
	}

	complaints, err := s.complaints.List(ctx, models.ComplaintFilter{
		CreatedAfter:  &from,
		CreatedBefore: &to,
		Limit:         MaxExportRows,
	})
	if err != nil {
		s.logger.Error("failed to export complaints", slog.Any("error", err))
		return nil, err
	}
	for _, c := range complaints {
		c.ApplyLegacyDefaults()
	}

	s.logger.Info("complaints exported",
		slog.Time("from", from),
		slog.Time("to", to),
		slog.Int("count", len(complaints)))
	return complaints, nil
}

func (s *ComplaintService) Stats(ctx context.Context) (*models.ComplaintStats, error) {
	return s.complaints.Stats(ctx)
}

func (s *ComplaintService) view(ctx context.Context, complaint *models.Complaint) (*models.ComplaintView, error) {
	complaint.ApplyLegacyDefaults()

	history, err := s.history.ListByComplaint(ctx, complaint.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load status history: %w", err)
	}

	responses, err := s.responses.ListByComplaint(ctx, complaint.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}

	return &models.ComplaintView{
		Complaint: complaint,
		History:   history,
		Responses: responses,
	}, nil
}
