package consent

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Record) error
	ListByUser(ctx context.Context, userID uuid.UUID, consentType string, limit, offset int) ([]*Record, int, error)
	// LatestByUser returns the most recent record of the given type, or
	// (nil, nil) when the user has none.
	LatestByUser(ctx context.Context, userID uuid.UUID, consentType string) (*Record, error)
}
