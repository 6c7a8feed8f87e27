package notify

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Attempt) error
	// Resolve records the transport outcome of a pending attempt.
	Resolve(ctx context.Context, a *Attempt) error
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*Attempt, error)
}
