package consent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const recordCols = `id, user_id, consent_type, granted, user_agent, metadata, created_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	var metadata []byte
	err := row.Scan(&r.ID, &r.UserID, &r.ConsentType, &r.Granted, &r.UserAgent, &metadata, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &r.Metadata); err != nil {
			return nil, fmt.Errorf("decode consent metadata: %w", err)
		}
	}
	return &r, nil
}

func (r *repoPG) Create(ctx context.Context, rec *Record) error {
	rec.ID = uuid.New()
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("encode consent metadata: %w", err)
	}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO consent_audit (id, user_id, consent_type, granted, user_agent, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		rec.ID, rec.UserID, rec.ConsentType, rec.Granted, rec.UserAgent, metadata).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert consent record: %w", err)
	}
	return nil
}

func (r *repoPG) ListByUser(ctx context.Context, userID uuid.UUID, consentType string, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM consent_audit WHERE user_id = $1 AND consent_type = $2`,
		userID, consentType).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordCols+` FROM consent_audit
		WHERE user_id = $1 AND consent_type = $2
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		userID, consentType, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}

func (r *repoPG) LatestByUser(ctx context.Context, userID uuid.UUID, consentType string) (*Record, error) {
	rec, err := scanRecord(r.pool.QueryRow(ctx, `
		SELECT `+recordCols+` FROM consent_audit
		WHERE user_id = $1 AND consent_type = $2
		ORDER BY created_at DESC LIMIT 1`,
		userID, consentType))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest consent for %s: %w", userID, err)
	}
	return rec, nil
}
