package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BradenHooton/ticketdesk/internal/database"
	"github.com/BradenHooton/ticketdesk/internal/models"
	"github.com/BradenHooton/ticketdesk/internal/reference"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const complaintColumns = `id, reference_id, user_id, type, subject, description, contact_info, status, priority, created_at, updated_at`

// ComplaintRepository persists complaints. Creation and status changes write the
// complaint row and its ledger entry in one transaction.
type ComplaintRepository struct {
	pool *pgxpool.Pool
	refs *reference.Allocator
}

func NewComplaintRepository(db *database.DB, refs *reference.Allocator) *ComplaintRepository {
	return &ComplaintRepository{pool: db.Pool, refs: refs}
}

// scanComplaintRow handles the nullable legacy status and priority columns
func scanComplaintRow(row rowScanner) (*models.Complaint, error) {
	var c models.Complaint
	var status, priority *string

	err := row.Scan(
		&c.ID, &c.Reference, &c.OwnerID, &c.Category, &c.Subject,
		&c.Description, &c.Contact, &status, &priority,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if status != nil {
		c.Status = models.Status(*status)
	}
	if priority != nil {
		c.Priority = models.Priority(*priority)
	}
	return &c, nil
}

// lockReferences serializes allocation for the prefix until the surrounding transaction ends
func (r *ComplaintRepository) lockReferences(ctx context.Context, q database.Querier) error {
	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, r.refs.Prefix()); err != nil {
		return fmt.Errorf("failed to lock reference allocation: %w", err)
	}
	return nil
}

// nextReference reads the most recently inserted well-formed reference carrying the prefix
// and derives the next one
func (r *ComplaintRepository) nextReference(ctx context.Context, q database.Querier) (string, error) {
	var last string
	err := q.QueryRow(ctx,
		`SELECT reference_id FROM complaints WHERE reference_id ~ $1 ORDER BY id DESC LIMIT 1`,
		r.refs.MatchPattern(),
	).Scan(&last)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("failed to read last reference: %w", err)
	}

	ref, err := r.refs.Next(last)
	if err != nil {
		return "", fmt.Errorf("failed to allocate reference: %w", err)
	}
	return ref, nil
}

// CreateWithHistory allocates a reference, inserts the complaint and records the creation
// ledger entry atomically. Allocation holds a transaction-scoped advisory lock, so concurrent
// submissions queue instead of colliding. A collision with a writer that bypasses the lock is
// still caught by the unique index and returned as models.ErrConflict so the caller can retry.
func (r *ComplaintRepository) CreateWithHistory(ctx context.Context, c *models.Complaint) (*models.Complaint, error) {
	var created *models.Complaint

	err := database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := r.lockReferences(ctx, tx); err != nil {
			return err
		}

		ref, err := r.nextReference(ctx, tx)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO complaints (reference_id, user_id, type, subject, description, contact_info, status, priority)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING ` + complaintColumns

		created, err = scanComplaintRow(tx.QueryRow(ctx, query,
			ref, c.OwnerID, string(c.Category), c.Subject, c.Description, c.Contact,
			string(models.StatusNew), string(models.PriorityMedium),
		))
		if err != nil {
			return err
		}

		_, err = appendHistory(ctx, tx, created.ID, nil, models.StatusNew, c.OwnerID, models.NoteComplaintCreated)
		return err
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}
// ApplyTransition updates the complaint status, appends the ledger entry and attaches the
// ApplyTransition appends the ledger entry, updates the complaint status and attaches the
// optional response in one transaction. The update only applies while the stored status still
// equals t.OldStatus; otherwise models.ErrConflict is returned and nothing is written.
func (r *ComplaintRepository) ApplyTransition(ctx context.Context, t models.Transition) (*models.StatusHistoryEntry, error) {
	var entry *models.StatusHistoryEntry

	err := database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE complaints SET status = $1, updated_at = NOW()
			WHERE id = $2 AND COALESCE(status, 'New') = $3
		`, string(t.NewStatus), t.ComplaintID, string(t.OldStatus))
		if err != nil {
			return database.MapPostgresError(err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("%w: complaint %d is no longer %s", models.ErrConflict, t.ComplaintID, t.OldStatus)
		}

		old := t.OldStatus
		entry, err = appendHistory(ctx, tx, t.ComplaintID, &old, t.NewStatus, t.ActorID, t.Note)
		if err != nil {
			return err
		}

		if strings.TrimSpace(t.Response) != "" {
			return insertResponse(ctx, tx, t.ComplaintID, t.ActorID, t.Response)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

func (r *ComplaintRepository) GetByID(ctx context.Context, id int64) (*models.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id = $1`
	return scanComplaintRow(r.pool.QueryRow(ctx, query, id))
}

func (r *ComplaintRepository) GetByReference(ctx context.Context, ref string) (*models.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE reference_id = $1`
	return scanComplaintRow(r.pool.QueryRow(ctx, query, ref))
}

// List returns complaints matching filter, newest first
func (r *ComplaintRepository) List(ctx context.Context, filter models.ComplaintFilter) ([]*models.Complaint, error) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.OwnerID != "" {
		conds = append(conds, "user_id = "+arg(filter.OwnerID))
	}
	if filter.Status != "" {
		conds = append(conds, "COALESCE(status, 'New') = "+arg(string(filter.Status)))
	}
	if filter.Category != "" {
		conds = append(conds, "type = "+arg(string(filter.Category)))
	}
	if filter.CreatedAfter != nil {
		conds = append(conds, "created_at >= "+arg(*filter.CreatedAfter))
	}
	if filter.CreatedBefore != nil {
		conds = append(conds, "created_at < "+arg(*filter.CreatedBefore))
	}

	query := `SELECT ` + complaintColumns + ` FROM complaints`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	query += " LIMIT " + arg(filter.Limit) + " OFFSET " + arg(filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query complaints: %w", err)
	}

	return scanRows(rows, "complaint", scanComplaintRow)
}

// Stats counts complaints per status, treating legacy rows without a status as New
func (r *ComplaintRepository) Stats(ctx context.Context) (*models.ComplaintStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE COALESCE(status, 'New') = 'New'),
		       COUNT(*) FILTER (WHERE status = 'InProgress'),
		       COUNT(*) FILTER (WHERE status = 'Resolved'),
		       COUNT(*) FILTER (WHERE status = 'Closed')
		FROM complaints
	`

	var s models.ComplaintStats
	if err := r.pool.QueryRow(ctx, query).Scan(&s.Total, &s.New, &s.InProgress, &s.Resolved, &s.Closed); err != nil {
		return nil, fmt.Errorf("failed to count complaints: %w", err)
	}
	return &s, nil
}
