package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/ticketdesk/internal/auth"
	"github.com/BradenHooton/ticketdesk/internal/models"
	"github.com/BradenHooton/ticketdesk/internal/services"
	pkghttp "github.com/BradenHooton/ticketdesk/pkg/http"
	"github.com/go-chi/chi/v5"
)

// ComplaintServiceInterface defines the interface for complaint business logic
type ComplaintServiceInterface interface {
	Submit(ctx context.Context, in services.SubmitInput) (*models.Complaint, error)
	Transition(ctx context.Context, in services.TransitionInput) (*models.ComplaintView, error)
	Get(ctx context.Context, id int64, viewerID string, isAdmin bool) (*models.ComplaintView, error)
	Track(ctx context.Context, ref string) (*models.ComplaintView, error)
	List(ctx context.Context, filter models.ComplaintFilter) ([]*models.Complaint, error)
	Stats(ctx context.Context) (*models.ComplaintStats, error)
}

// ComplaintHandler handles complaint HTTP requests
type ComplaintHandler struct {
	service ComplaintServiceInterface
	now     func() time.Time
}

// NewComplaintHandler creates a new ComplaintHandler
func NewComplaintHandler(service ComplaintServiceInterface) *ComplaintHandler {
	return &ComplaintHandler{service: service, now: time.Now}
}

// CreateComplaintRequest represents the request body for submitting a complaint
type CreateComplaintRequest struct {
	Type        string `json:"type" validate:"required,complaint_category"`
	Subject     string `json:"subject" validate:"required,max=255"`
	Description string `json:"description" validate:"required"`
	ContactInfo string `json:"contact_info" validate:"required,max=255"`
}

// UpdateStatusRequest represents the request body for a status transition
type UpdateStatusRequest struct {
	Status   string `json:"status" validate:"required,complaint_status"`
	Response string `json:"response" validate:"required_if=Status Resolved"`
	Notes    string `json:"notes"`
}

// dateFilters maps the date_filter query values to a lookback window
var dateFilters = map[string]time.Duration{
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
}

// Create handles POST /complaints
func (h *ComplaintHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req CreateComplaintRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if verr := ValidateRequest(req); verr != nil {
		writeValidation(w, verr)
		return
	}

	complaint, err := h.service.Submit(r.Context(), services.SubmitInput{
		OwnerID:     claims.UserID,
		Category:    req.Type,
		Subject:     req.Subject,
		Description: req.Description,
		Contact:     req.ContactInfo,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusCreated, map[string]any{
		"message":   "Complaint submitted successfully",
		"complaint": complaint,
	})
}

// List handles GET /complaints. Clients only see their own complaints.
func (h *ComplaintHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	filter, verr := h.parseFilter(r)
	if verr != nil {
		writeValidation(w, verr)
		return
	}
	if !claims.IsAdmin() {
		filter.OwnerID = claims.UserID
	}

	complaints, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, map[string]any{
		"complaints": complaints,
		"limit":      filter.Limit,
		"offset":     filter.Offset,
	})
}

func isAll(v string) bool {
	return v == "" || strings.EqualFold(v, "all")
}

func (h *ComplaintHandler) parseFilter(r *http.Request) (models.ComplaintFilter, *models.ValidationError) {
	q := r.URL.Query()
	verr := &models.ValidationError{}
	var filter models.ComplaintFilter

	if v := q.Get("status"); !isAll(v) {
		status, err := models.ParseStatus(v)
		if err != nil {
			verr.Add("status", "The selected status is invalid.")
		}
		filter.Status = status
	}

	category := q.Get("category")
	if category == "" {
		category = q.Get("type")
	}
	if !isAll(category) {
		c, err := models.ParseCategory(category)
		if err != nil {
			verr.Add("category", "The selected category is invalid.")
		}
		filter.Category = c
	}

	if v := q.Get("date_filter"); !isAll(v) {
		window, ok := dateFilters[v]
		if !ok {
			verr.Add("date_filter", "The date filter must be one of 7d, 30d, 90d.")
		} else {
			after := h.now().Add(-window)
			filter.CreatedAfter = &after
		}
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			verr.Add("limit", "The limit must be a positive integer.")
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			verr.Add("offset", "The offset must be zero or a positive integer.")
		}
		filter.Offset = n
	}

	if verr.HasErrors() {
		return filter, verr
	}
	if filter.Limit == 0 {
		filter.Limit = services.DefaultListLimit
	}
	if filter.Limit > services.MaxListLimit {
		filter.Limit = services.MaxListLimit
	}
	return filter, nil
}

// Get handles GET /complaints/{id}
func (h *ComplaintHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	id, ok := complaintID(r)
	if !ok {
		pkghttp.WriteNotFound(w, "Complaint not found")
		return
	}

	view, err := h.service.Get(r.Context(), id, claims.UserID, claims.IsAdmin())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, map[string]any{"complaint": view})
}

// UpdateStatus handles POST /complaints/{id}/status (staff only)
func (h *ComplaintHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	id, ok := complaintID(r)
	if !ok {
		pkghttp.WriteNotFound(w, "Complaint not found")
		return
	}

	var req UpdateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if verr := ValidateRequest(req); verr != nil {
		writeValidation(w, verr)
		return
	}

	view, err := h.service.Transition(r.Context(), services.TransitionInput{
		ComplaintID: id,
		NewStatus:   req.Status,
		ActorID:     claims.UserID,
		ActorName:   claims.Name,
		Note:        req.Notes,
		Response:    req.Response,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, map[string]any{
		"message":   "Status updated successfully",
		"complaint": view,
	})
}

// Track handles GET /complaints/track/{reference}. No authentication.
func (h *ComplaintHandler) Track(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Track(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "No complaint found with this reference")
			return
		}
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, map[string]any{"complaint": view})
}

func complaintID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
