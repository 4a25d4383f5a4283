package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/ticketdesk/internal/database"
	"github.com/BradenHooton/ticketdesk/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatusHistoryRepository reads the complaint status ledger.
// Entries are only ever written by ComplaintRepository inside a complaint transaction.
type StatusHistoryRepository struct {
	pool *pgxpool.Pool
}

func NewStatusHistoryRepository(db *database.DB) *StatusHistoryRepository {
	return &StatusHistoryRepository{pool: db.Pool}
}

func scanHistoryRow(row rowScanner) (*models.StatusHistoryEntry, error) {
	var entry models.StatusHistoryEntry
	var oldStatus *string

	err := row.Scan(
		&entry.ID, &entry.ComplaintID, &oldStatus, &entry.NewStatus,
		&entry.ActorID, &entry.ActorName, &entry.Note, &entry.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if oldStatus != nil {
		s := models.Status(*oldStatus)
		entry.OldStatus = &s
	}
	return &entry, nil
}

// ListByComplaint returns the ledger of a complaint, newest first
func (r *StatusHistoryRepository) ListByComplaint(ctx context.Context, complaintID int64) ([]*models.StatusHistoryEntry, error) {
	query := `
		SELECT h.id, h.complaint_id, h.old_status, h.new_status, h.changed_by,
		       COALESCE(u.name, ''), COALESCE(h.notes, ''), h.created_at
		FROM status_histories h
		LEFT JOIN users u ON u.id = h.changed_by
		WHERE h.complaint_id = $1
		ORDER BY h.created_at DESC, h.id DESC
	`

	rows, err := r.pool.Query(ctx, query, complaintID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}

	return scanRows(rows, "status history", scanHistoryRow)
}

// appendHistory writes one ledger entry using q, which is normally a transaction
func appendHistory(ctx context.Context, q database.Querier, complaintID int64, oldStatus *models.Status, newStatus models.Status, actorID, note string) (*models.StatusHistoryEntry, error) {
	query := `
		WITH inserted AS (
			INSERT INTO status_histories (complaint_id, old_status, new_status, changed_by, notes)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, complaint_id, old_status, new_status, changed_by, notes, created_at
		)
		SELECT i.id, i.complaint_id, i.old_status, i.new_status, i.changed_by,
		       COALESCE(u.name, ''), COALESCE(i.notes, ''), i.created_at
		FROM inserted i
		LEFT JOIN users u ON u.id = i.changed_by
	`

	var old *string
	if oldStatus != nil {
		s := string(*oldStatus)
		old = &s
	}

	entry, err := scanHistoryRow(q.QueryRow(ctx, query, complaintID, old, string(newStatus), actorID, note))
	if err != nil {
		return nil, fmt.Errorf("failed to append status history: %w", err)
	}
	return entry, nil
}
