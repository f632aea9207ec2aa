package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"mailpilot/internal/model"
)

// ActionAuditRepository records executed destructive actions. Conversation
// turns are never written here; only confirmed sends and deletes leave a
// row, so the audit trail stays small and privacy-safe.
type ActionAuditRepository struct {
	db *pgxpool.Pool
}

func NewActionAuditRepository(db *pgxpool.Pool) *ActionAuditRepository {
	return &ActionAuditRepository{db: db}
}

// RecordAction inserts one audit row. result is "ok" or "failed".
func (r *ActionAuditRepository) RecordAction(ctx context.Context, userID string, kind model.PendingKind, emailID, result string) error {
	query := `
        INSERT INTO action_audit (user_id, action, email_id, result, executed_at)
        VALUES ($1, $2, $3, $4, NOW())
    `
	_, err := r.db.Exec(ctx, query, userID, string(kind), emailID, result)
	return err
}

// AuditEntry is one recorded action.
type AuditEntry struct {
	ID         int       `json:"id"`
	UserID     string    `json:"user_id"`
	Action     string    `json:"action"`
	EmailID    string    `json:"email_id"`
	Result     string    `json:"result"`
	ExecutedAt time.Time `json:"executed_at"`
}

// ListRecent returns the user's latest audit rows, newest first.
func (r *ActionAuditRepository) ListRecent(ctx context.Context, userID string, limit int) ([]AuditEntry, error) {
	query := `
        SELECT id, user_id, action, email_id, result, executed_at
        FROM action_audit
        WHERE user_id = $1
        ORDER BY executed_at DESC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.EmailID, &e.Result, &e.ExecutedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
