package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/ticketdesk/internal/database"
	"github.com/BradenHooton/ticketdesk/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ResponseRepository struct {
	pool *pgxpool.Pool
}

func NewResponseRepository(db *database.DB) *ResponseRepository {
	return &ResponseRepository{pool: db.Pool}
}

func scanResponseRow(row rowScanner) (*models.Response, error) {
	var resp models.Response

	err := row.Scan(&resp.ID, &resp.ComplaintID, &resp.AuthorID, &resp.AuthorName, &resp.Message, &resp.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &resp, nil
}

// ListByComplaint returns responses attached to a complaint, oldest first
func (r *ResponseRepository) ListByComplaint(ctx context.Context, complaintID int64) ([]*models.Response, error) {
	query := `
		SELECT r.id, r.complaint_id, r.admin_id, COALESCE(u.name, ''), r.response, r.created_at
		FROM responses r
		LEFT JOIN users u ON u.id = r.admin_id
		WHERE r.complaint_id = $1
		ORDER BY r.created_at ASC, r.id ASC
	`

	rows, err := r.pool.Query(ctx, query, complaintID)
	if err != nil {
		return nil, fmt.Errorf("failed to query responses: %w", err)
	}

	return scanRows(rows, "response", scanResponseRow)
}

func insertResponse(ctx context.Context, q database.Querier, complaintID int64, authorID, message string) error {
	_, err := q.Exec(ctx,
		`INSERT INTO responses (complaint_id, admin_id, response) VALUES ($1, $2, $3)`,
		complaintID, authorID, message,
	)
	if err != nil {
		return fmt.Errorf("failed to insert response: %w", database.MapPostgresError(err))
	}
	return nil
}
