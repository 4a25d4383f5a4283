package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/ticketdesk/internal/models"
)

func TestComplaintLifecycleOverHTTP(t *testing.T) {
	db := freshDB(t)
	srv := NewTestServer(t, db)
	ctx := context.Background()

	clientToken := srv.Register(t, "Alice", "alice@example.com", "CorrectHorse1!")

	_, err := SeedUser(ctx, srv.Repos.Users, "Sam", "sam@example.com", "CorrectHorse1!", models.RoleAdmin)
	require.NoError(t, err)
	adminToken := srv.Login(t, "sam@example.com", "CorrectHorse1!")

	status, body := srv.Do(t, http.MethodPost, "/complaints", clientToken, map[string]string{
		"type":         "Internet",
		"subject":      "No connection",
		"description":  "Offline since Monday",
		"contact_info": "alice@example.com",
	})
	require.Equal(t, http.StatusCreated, status, "create failed: %v", body)
	created := body["complaint"].(map[string]any)
	assert.Equal(t, "TT-1001", created["reference_id"])
	assert.Equal(t, "New", created["status"])
	assert.Equal(t, "Medium", created["priority"])
	id := int64(created["id"].(float64))
	statusPath := fmt.Sprintf("/complaints/%d/status", id)

	t.Run("anyone can track by reference", func(t *testing.T) {
		status, body := srv.Do(t, http.MethodGet, "/complaints/track/TT-1001", "", nil)
		require.Equal(t, http.StatusOK, status)
		complaint := body["complaint"].(map[string]any)
		assert.Equal(t, "New", complaint["status"])
		assert.Len(t, complaint["status_history"], 1)

		status, _ = srv.Do(t, http.MethodGet, "/complaints/track/TT-9999", "", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("clients cannot change status", func(t *testing.T) {
		status, _ := srv.Do(t, http.MethodPost, statusPath, clientToken, map[string]string{"status": "InProgress"})
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("resolving requires a response", func(t *testing.T) {
		status, body := srv.Do(t, http.MethodPost, statusPath, adminToken, map[string]string{"status": "Resolved"})
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Contains(t, body["errors"], "response")
	})

	t.Run("staff move the complaint forward", func(t *testing.T) {
		status, _ := srv.Do(t, http.MethodPost, statusPath, adminToken, map[string]string{"status": "InProgress"})
		require.Equal(t, http.StatusOK, status)

		status, body := srv.Do(t, http.MethodPost, statusPath, adminToken, map[string]string{
			"status":   "Resolved",
			"response": "Line repaired",
		})
		require.Equal(t, http.StatusOK, status)
		complaint := body["complaint"].(map[string]any)
		assert.Equal(t, "Resolved", complaint["status"])
		assert.Len(t, complaint["status_history"], 3)
		assert.Len(t, complaint["responses"], 1)
	})

	t.Run("owner sees the resolved complaint", func(t *testing.T) {
		status, body := srv.Do(t, http.MethodGet, fmt.Sprintf("/complaints/%d", id), clientToken, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Resolved", body["complaint"].(map[string]any)["status"])

		status, body = srv.Do(t, http.MethodGet, "/complaints?status=Resolved", clientToken, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, body["complaints"], 1)
	})

	t.Run("stats count by status", func(t *testing.T) {
		status, body := srv.Do(t, http.MethodGet, "/admin/stats", adminToken, nil)
		require.Equal(t, http.StatusOK, status)
		stats := body["stats"].(map[string]any)
		assert.Equal(t, float64(1), stats["total"])
		assert.Equal(t, float64(1), stats["resolved"])

		status, _ = srv.Do(t, http.MethodGet, "/admin/stats", clientToken, nil)
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("export covers the requested days", func(t *testing.T) {
		today := time.Now().UTC()
		status, body := srv.Do(t, http.MethodPost, "/admin/export", adminToken, map[string]string{
			"start_date": today.AddDate(0, 0, -1).Format(time.DateOnly),
			"end_date":   today.AddDate(0, 0, 1).Format(time.DateOnly),
			"format":     "csv",
		})
		require.Equal(t, http.StatusOK, status, "export failed: %v", body)
		assert.Equal(t, float64(1), body["count"])

		status, body = srv.Do(t, http.MethodPost, "/admin/export", adminToken, map[string]string{
			"start_date": "2020-01-01",
			"end_date":   "2020-01-31",
			"format":     "pdf",
		})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(0), body["count"])

		status, _ = srv.Do(t, http.MethodPost, "/admin/export", clientToken, map[string]string{
			"start_date": "2020-01-01",
			"end_date":   "2020-01-31",
			"format":     "csv",
		})
		assert.Equal(t, http.StatusForbidden, status)
	})
}

func TestPasswordResetOverHTTP(t *testing.T) {
	db := freshDB(t)
	srv := NewTestServer(t, db)

	email := "alice@example.com"
	oldToken := srv.Register(t, "Alice", email, "CorrectHorse1!")

	status, _ := srv.Do(t, http.MethodPost, "/forgot-password", "", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = srv.Do(t, http.MethodPost, "/forgot-password", "", map[string]string{"email": email})
	require.Equal(t, http.StatusOK, status)

	sent := srv.Notifier.WaitForReset(t, email)
	assert.Equal(t, "Alice", sent.Name)
	assert.Len(t, sent.Token, 64)

	status, body := srv.Do(t, http.MethodPost, "/verify-reset-token", "", map[string]string{"email": email, "token": sent.Token})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["valid"])

	status, _ = srv.Do(t, http.MethodPost, "/reset-password", "", map[string]string{
		"email":                 email,
		"token":                 sent.Token,
		"password":              "BatteryStaple9!",
		"password_confirmation": "BatteryStaple9!",
	})
	require.Equal(t, http.StatusOK, status)

	t.Run("token is single use", func(t *testing.T) {
		status, body := srv.Do(t, http.MethodPost, "/verify-reset-token", "", map[string]string{"email": email, "token": sent.Token})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, false, body["valid"])

		status, _ = srv.Do(t, http.MethodPost, "/reset-password", "", map[string]string{
			"email":                 email,
			"token":                 sent.Token,
			"password":              "AnotherSecret7!",
			"password_confirmation": "AnotherSecret7!",
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("existing sessions are revoked", func(t *testing.T) {
		status, _ := srv.Do(t, http.MethodGet, "/complaints", oldToken, nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("only the new password logs in", func(t *testing.T) {
		status, _ := srv.Do(t, http.MethodPost, "/login", "", map[string]string{"email": email, "password": "CorrectHorse1!"})
		assert.Equal(t, http.StatusUnauthorized, status)

		token := srv.Login(t, email, "BatteryStaple9!")
		status, _ = srv.Do(t, http.MethodGet, "/complaints", token, nil)
		assert.Equal(t, http.StatusOK, status)
	})
}

func TestLogoutRevokesToken(t *testing.T) {
	db := freshDB(t)
	srv := NewTestServer(t, db)

	token := srv.Register(t, "Alice", "alice@example.com", "CorrectHorse1!")

	status, _ := srv.Do(t, http.MethodPost, "/logout", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = srv.Do(t, http.MethodGet, "/complaints", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestHealthReportsDatabase(t *testing.T) {
	db := freshDB(t)
	srv := NewTestServer(t, db)

	status, body := srv.Do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "up", body["database"])
}
