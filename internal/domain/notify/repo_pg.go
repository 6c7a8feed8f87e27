package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const attemptCols = `id, event_id, channel, recipient_address, status,
	message_id, error_message, sent_at, created_at`

func scanAttempt(row pgx.Row) (*Attempt, error) {
	var a Attempt
	err := row.Scan(&a.ID, &a.EventID, &a.Channel, &a.RecipientAddress, &a.Status,
		&a.MessageID, &a.ErrorMessage, &a.SentAt, &a.CreatedAt)
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Attempt) error {
	a.ID = uuid.New()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO emergency_notifications (id, event_id, channel, recipient_address, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		a.ID, a.EventID, a.Channel, a.RecipientAddress, a.Status).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification attempt: %w", err)
	}
	return nil
}

func (r *repoPG) Resolve(ctx context.Context, a *Attempt) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE emergency_notifications
		SET status = $2, message_id = $3, error_message = $4, sent_at = $5
		WHERE id = $1`,
		a.ID, a.Status, a.MessageID, a.ErrorMessage, a.SentAt)
	if err != nil {
		return fmt.Errorf("resolve notification attempt: %w", err)
	}
	return nil
}

func (r *repoPG) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*Attempt, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+attemptCols+` FROM emergency_notifications
		WHERE event_id = $1 ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
