package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/ticketdesk/internal/handlers"
	"github.com/BradenHooton/ticketdesk/internal/models"
	"github.com/BradenHooton/ticketdesk/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type complaintBody struct {
	Success   bool                  `json:"success"`
	Message   string                `json:"message"`
	Complaint *models.ComplaintView `json:"complaint"`
}

type listBody struct {
	Success    bool                `json:"success"`
	Complaints []*models.Complaint `json:"complaints"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}

func TestCreateComplaint_Success(t *testing.T) {
	mock := &handlers.MockComplaintService{
		SubmitFunc: func(ctx context.Context, in services.SubmitInput) (*models.Complaint, error) {
			assert.Equal(t, "owner-1", in.OwnerID)
			assert.Equal(t, "Internet", in.Category)
			c := handlers.NewTestView(1, "TT-1001", models.StatusNew).Complaint
			return c, nil
		},
	}

	handler := handlers.NewComplaintHandler(mock)
	req := handlers.NewTestRequest(t, "POST", "/complaints", handlers.CreateComplaintRequest{
		Type:        "Internet",
		Subject:     "No connection",
		Description: "Line down since Monday",
		ContactInfo: "555-0100",
	})
	req = handlers.WithAuthContext(req, "owner-1", "Olive")

	w := httptest.NewRecorder()
	handler.Create(w, req)

	var resp complaintBody
	handlers.AssertJSONResponse(t, w, http.StatusCreated, &resp)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Complaint)
	assert.Equal(t, "TT-1001", resp.Complaint.Reference)
	assert.Equal(t, models.StatusNew, resp.Complaint.Status)
}

func TestCreateComplaint_ValidationRejectsBeforeSubmit(t *testing.T) {
	called := false
	mock := &handlers.MockComplaintService{
		SubmitFunc: func(ctx context.Context, in services.SubmitInput) (*models.Complaint, error) {
			called = true
			return nil, nil
		},
	}

	handler := handlers.NewComplaintHandler(mock)
	req := handlers.NewTestRequest(t, "POST", "/complaints", handlers.CreateComplaintRequest{
		Type:    "Plumbing",
		Subject: "x",
	})
	req = handlers.WithAuthContext(req, "owner-1", "Olive")

	w := httptest.NewRecorder()
	handler.Create(w, req)

	resp := handlers.AssertErrorResponse(t, w, http.StatusUnprocessableEntity, "validation_failed")
	assert.Contains(t, resp.Errors, "type")
	assert.Contains(t, resp.Errors, "description")
	assert.Contains(t, resp.Errors, "contact_info")
	assert.NotContains(t, resp.Errors, "subject")
	assert.False(t, called)
}

func TestCreateComplaint_RequiresAuth(t *testing.T) {
	handler := handlers.NewComplaintHandler(&handlers.MockComplaintService{})

	w := httptest.NewRecorder()
	handler.Create(w, handlers.NewTestRequest(t, "POST", "/complaints", nil))

	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
}

func TestGetComplaint(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		serviceErr error
		wantStatus int
	}{
		{"found", "7", nil, http.StatusOK},
		{"not found", "8", models.ErrNotFound, http.StatusNotFound},
		{"not the owner", "9", models.ErrForbidden, http.StatusForbidden},
		{"malformed id", "abc", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &handlers.MockComplaintService{
				GetFunc: func(ctx context.Context, id int64, viewerID string, isAdmin bool) (*models.ComplaintView, error) {
					assert.Equal(t, "owner-1", viewerID)
					assert.False(t, isAdmin)
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					return handlers.NewTestView(id, "TT-1001", models.StatusNew), nil
				},
			}
			handler := handlers.NewComplaintHandler(mock)

			req := handlers.NewTestRequest(t, "GET", "/complaints/"+tt.id, nil)
			req = handlers.WithURLParams(handlers.WithAuthContext(req, "owner-1", "Olive"), "id", tt.id)

			w := httptest.NewRecorder()
			handler.Get(w, req)

			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, tt.wantStatus, w.Code)
				return
			}
			var resp complaintBody
			handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
			require.NotNil(t, resp.Complaint)
			assert.Equal(t, int64(7), resp.Complaint.ID)
			require.Len(t, resp.Complaint.History, 1)
			assert.Nil(t, resp.Complaint.History[0].OldStatus)
		})
	}
}

func TestUpdateStatus_Success(t *testing.T) {
	mock := &handlers.MockComplaintService{
		TransitionFunc: func(ctx context.Context, in services.TransitionInput) (*models.ComplaintView, error) {
			assert.Equal(t, int64(3), in.ComplaintID)
			assert.Equal(t, "Resolved", in.NewStatus)
			assert.Equal(t, "admin-1", in.ActorID)
			assert.Equal(t, "Ada", in.ActorName)
			assert.Equal(t, "Fixed the router", in.Response)
			return handlers.NewTestView(3, "TT-1003", models.StatusResolved), nil
		},
	}
	handler := handlers.NewComplaintHandler(mock)

	req := handlers.NewTestRequest(t, "POST", "/complaints/3/status", handlers.UpdateStatusRequest{
		Status:   "Resolved",
		Response: "Fixed the router",
	})
	req = handlers.WithURLParams(handlers.WithAdminContext(req, "admin-1", "Ada"), "id", "3")

	w := httptest.NewRecorder()
	handler.UpdateStatus(w, req)

	var resp complaintBody
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, models.StatusResolved, resp.Complaint.Status)
}

func TestUpdateStatus_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		body       handlers.UpdateStatusRequest
		serviceErr error
		wantStatus int
		wantField  string
	}{
		{"unknown status", handlers.UpdateStatusRequest{Status: "Reopened"}, nil, http.StatusUnprocessableEntity, "status"},
		{"resolved without response", handlers.UpdateStatusRequest{Status: "Resolved"}, nil, http.StatusUnprocessableEntity, "response"},
		{"illegal move", handlers.UpdateStatusRequest{Status: "New"}, models.ErrInvalidTransition, http.StatusUnprocessableEntity, "status"},
		{"concurrent change", handlers.UpdateStatusRequest{Status: "Closed"}, models.ErrConflict, http.StatusConflict, ""},
		{"missing complaint", handlers.UpdateStatusRequest{Status: "Closed"}, models.ErrNotFound, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &handlers.MockComplaintService{
				TransitionFunc: func(ctx context.Context, in services.TransitionInput) (*models.ComplaintView, error) {
					if tt.serviceErr == nil {
						t.Fatal("service must not be reached")
					}
					return nil, tt.serviceErr
				},
			}
			handler := handlers.NewComplaintHandler(mock)

			req := handlers.NewTestRequest(t, "POST", "/complaints/3/status", tt.body)
			req = handlers.WithURLParams(handlers.WithAdminContext(req, "admin-1", "Ada"), "id", "3")

			w := httptest.NewRecorder()
			handler.UpdateStatus(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantField != "" {
				resp := handlers.AssertErrorResponse(t, w, tt.wantStatus, "validation_failed")
				assert.Contains(t, resp.Errors, tt.wantField)
			}
		})
	}
}

func TestTrack(t *testing.T) {
	mock := &handlers.MockComplaintService{
		TrackFunc: func(ctx context.Context, ref string) (*models.ComplaintView, error) {
			if ref == "TT-1001" {
				return handlers.NewTestView(1, ref, models.StatusInProgress), nil
			}
			return nil, models.ErrNotFound
		},
	}
	handler := handlers.NewComplaintHandler(mock)

	t.Run("known reference", func(t *testing.T) {
		req := handlers.WithURLParams(handlers.NewTestRequest(t, "GET", "/complaints/track/TT-1001", nil), "reference", "TT-1001")
		w := httptest.NewRecorder()
		handler.Track(w, req)

		var resp complaintBody
		handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
		assert.Equal(t, "TT-1001", resp.Complaint.Reference)
		assert.Equal(t, models.StatusInProgress, resp.Complaint.Status)
	})

	t.Run("unknown reference", func(t *testing.T) {
		req := handlers.WithURLParams(handlers.NewTestRequest(t, "GET", "/complaints/track/TT-9999", nil), "reference", "TT-9999")
		w := httptest.NewRecorder()
		handler.Track(w, req)

		handlers.AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
	})
}

func TestListComplaints_Filters(t *testing.T) {
	var got models.ComplaintFilter
	mock := &handlers.MockComplaintService{
		ListFunc: func(ctx context.Context, filter models.ComplaintFilter) ([]*models.Complaint, error) {
			got = filter
			return []*models.Complaint{handlers.NewTestView(1, "TT-1001", models.StatusNew).Complaint}, nil
		},
	}
	handler := handlers.NewComplaintHandler(mock)

	t.Run("client sees own complaints", func(t *testing.T) {
		req := handlers.NewTestRequest(t, "GET", "/complaints?status=New&category=Billing&date_filter=7d&limit=5&offset=10", nil)
		req = handlers.WithAuthContext(req, "owner-1", "Olive")

		before := time.Now()
		w := httptest.NewRecorder()
		handler.List(w, req)

		var resp listBody
		handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
		assert.Len(t, resp.Complaints, 1)
		assert.Equal(t, "owner-1", got.OwnerID)
		assert.Equal(t, models.StatusNew, got.Status)
		assert.Equal(t, models.CategoryBilling, got.Category)
		assert.Equal(t, 5, got.Limit)
		assert.Equal(t, 10, got.Offset)
		require.NotNil(t, got.CreatedAfter)
		assert.WithinDuration(t, before.Add(-7*24*time.Hour), *got.CreatedAfter, time.Minute)
	})

	t.Run("admin sees all with defaults", func(t *testing.T) {
		req := handlers.WithAdminContext(handlers.NewTestRequest(t, "GET", "/complaints?status=all&limit=500", nil), "admin-1", "Ada")

		w := httptest.NewRecorder()
		handler.List(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, got.OwnerID)
		assert.Empty(t, got.Status)
		assert.Nil(t, got.CreatedAfter)
		assert.Equal(t, services.MaxListLimit, got.Limit)
	})

	t.Run("bad query values", func(t *testing.T) {
		req := handlers.WithAuthContext(handlers.NewTestRequest(t, "GET", "/complaints?status=Pending&date_filter=1y&limit=-1", nil), "owner-1", "Olive")

		w := httptest.NewRecorder()
		handler.List(w, req)

		resp := handlers.AssertErrorResponse(t, w, http.StatusUnprocessableEntity, "validation_failed")
		assert.Contains(t, resp.Errors, "status")
		assert.Contains(t, resp.Errors, "date_filter")
		assert.Contains(t, resp.Errors, "limit")
	})
}
