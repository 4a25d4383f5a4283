package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/BradenHooton/ticketdesk/internal/models"
	pkghttp "github.com/BradenHooton/ticketdesk/pkg/http"
)

const exportDateLayout = "2006-01-02"

// AdminServiceInterface defines the staff dashboard operations
type AdminServiceInterface interface {
	Stats(ctx context.Context) (*models.ComplaintStats, error)
	Export(ctx context.Context, from, to time.Time) ([]*models.Complaint, error)
}

// AdminHandler handles staff dashboard HTTP requests.
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// ExportRequest selects the complaints created between two calendar dates, both inclusive
type ExportRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Format    string `json:"format" validate:"required,oneof=csv excel pdf"`
}

// GetStats handles GET /admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to retrieve complaint stats")
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, map[string]any{"stats": stats})
}

// ExportComplaints handles POST /admin/export
func (h *AdminHandler) ExportComplaints(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if verr := ValidateRequest(&req); verr != nil {
		writeValidation(w, verr)
		return
	}

	// both parse: the datetime tag checked the layout
	start, _ := time.Parse(exportDateLayout, req.StartDate)
	end, _ := time.Parse(exportDateLayout, req.EndDate)
	if end.Before(start) {
		writeValidation(w, models.NewValidationError("end_date", "The end date must be a date after or equal to start date."))
		return
	}

	complaints, err := h.service.Export(r.Context(), start, end.AddDate(0, 0, 1))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, map[string]any{
		"complaints": complaints,
		"count":      len(complaints),
		"format":     req.Format,
		"message":    fmt.Sprintf("The export would generate a %s file", req.Format),
	})
}
