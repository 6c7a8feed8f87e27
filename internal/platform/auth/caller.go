package auth

import (
	"context"

	"github.com/google/uuid"
)

// Roles recognized by the escalation pipeline.
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

// Caller is the authenticated identity threaded explicitly through every
// service operation. It is built once by the auth middleware; services never
// reach back into the request context for identity.
type Caller struct {
	UserID uuid.UUID
	Roles  []string
}

// IsZero reports whether no authenticated identity is present.
func (c Caller) IsZero() bool { return c.UserID == uuid.Nil }

// HasRole reports whether the caller holds any of the given roles.
func (c Caller) HasRole(roles ...string) bool {
	for _, want := range roles {
		for _, have := range c.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Privileged reports whether the caller may act on any patient's behalf.
func (c Caller) Privileged() bool {
	return c.HasRole(RoleDoctor, RoleAdmin)
}

// CanActFor reports whether the caller may operate on the given patient's
// records: the patient themselves, or a doctor/admin.
func (c Caller) CanActFor(patientID uuid.UUID) bool {
	if c.IsZero() {
		return false
	}
	return c.UserID == patientID || c.Privileged()
}

type contextKey string

const callerKey contextKey = "caller"

// WithCaller returns a context carrying the caller identity.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// CallerFromContext extracts the caller set by the auth middleware. The zero
// Caller is returned for unauthenticated requests.
func CallerFromContext(ctx context.Context) Caller {
	c, _ := ctx.Value(callerKey).(Caller)
	return c
}
