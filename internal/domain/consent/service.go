package consent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitalsignal/vitalsignal/internal/platform/apperror"
	"github.com/vitalsignal/vitalsignal/internal/platform/auth"
)

const (
	// ReadTimeout bounds a single device location read.
	ReadTimeout = 10 * time.Second
	// CacheWindow is how long a previously obtained fix may be reused.
	CacheWindow = 60 * time.Second
)

// ErrConsentDenied is returned by a LocationSource when the user
// explicitly declines to share location.
var ErrConsentDenied = errors.New("location consent denied")

// LocationSource produces one device location fix. The emergency flow
// builds a source from the coordinates the client device reports.
type LocationSource interface {
	ReadLocation(ctx context.Context) (Location, error)
}

// LocationSourceFunc adapts a function to a LocationSource.
type LocationSourceFunc func(ctx context.Context) (Location, error)

func (f LocationSourceFunc) ReadLocation(ctx context.Context) (Location, error) {
	return f(ctx)
}

// RequestMeta carries request context recorded alongside the decision.
type RequestMeta struct {
	UserAgent string
	Source    string
}

type cachedFix struct {
	loc Location
	at  time.Time
}

// Service coordinates location-consent requests and the audit trail.
type Service struct {
	repo Repository
	log  zerolog.Logger
	now  func() time.Time

	mu    sync.Mutex
	fixes map[uuid.UUID]cachedFix
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		repo:  repo,
		log:   log,
		now:   time.Now,
		fixes: make(map[uuid.UUID]cachedFix),
	}
}

// RequestLocationConsent performs one time-bounded location read and
// writes exactly one audit record for the decision. Denied and
// unavailable are normal outcomes; the only error this returns is a
// failed audit write.
func (s *Service) RequestLocationConsent(ctx context.Context, userID uuid.UUID, src LocationSource, meta RequestMeta) (*Decision, error) {
	outcome, metadata := s.resolveOutcome(ctx, userID, src)

	if _, ok := metadata["source"]; !ok && meta.Source != "" {
		metadata["source"] = meta.Source
	}

	rec := &Record{
		UserID:      userID,
		ConsentType: TypeLocation,
		Granted:     false,
		UserAgent:   meta.UserAgent,
		Metadata:    metadata,
	}
	if _, ok := outcome.(Granted); ok {
		rec.Granted = true
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		s.log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to write consent record")
		return nil, apperror.Wrap(apperror.CodeDatabaseError, "failed to record consent decision", err)
	}

	s.log.Info().
		Str("user_id", userID.String()).
		Str("consent_id", rec.ID.String()).
		Bool("granted", rec.Granted).
		Msg("location consent recorded")

	return &Decision{ConsentID: rec.ID, Outcome: outcome}, nil
}

func (s *Service) resolveOutcome(ctx context.Context, userID uuid.UUID, src LocationSource) (Outcome, map[string]string) {
	metadata := map[string]string{}

	if src == nil {
		metadata["error"] = "location not supported on this device"
		return Unavailable{Reason: "location not supported on this device"}, metadata
	}

	readCtx, cancel := context.WithTimeout(ctx, ReadTimeout)
	defer cancel()

	loc, err := src.ReadLocation(readCtx)
	if errors.Is(err, ErrConsentDenied) {
		metadata["reason"] = "user denied location access"
		return Denied{Reason: "user denied location access"}, metadata
	}
	if err != nil {
		// A fresh read failed; a recent fix is still acceptable.
		if fix, ok := s.cachedLocation(userID); ok {
			metadata["source"] = "cache"
			metadata["accuracy"] = strconv.FormatFloat(fix.Accuracy, 'f', -1, 64)
			return Granted{Location: fix}, metadata
		}
		reason := fmt.Sprintf("location read failed: %v", err)
		metadata["error"] = reason
		return Unavailable{Reason: reason}, metadata
	}

	lowAccuracy, err := ValidateLocation(loc)
	if err != nil {
		reason := fmt.Sprintf("invalid coordinates: %v", err)
		metadata["error"] = reason
		return Unavailable{Reason: reason}, metadata
	}

	metadata["accuracy"] = strconv.FormatFloat(loc.Accuracy, 'f', -1, 64)
	if lowAccuracy {
		metadata["low_accuracy"] = "true"
	}

	s.storeLocation(userID, loc)
	return Granted{Location: loc}, metadata
}

func (s *Service) cachedLocation(userID uuid.UUID) (Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fix, ok := s.fixes[userID]
	if !ok || s.now().Sub(fix.at) > CacheWindow {
		return Location{}, false
	}
	return fix.loc, true
}

func (s *Service) storeLocation(userID uuid.UUID, loc Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixes[userID] = cachedFix{loc: loc, at: s.now()}
}

// GetConsentHistory returns the user's consent records, newest first.
// Callers may read their own history; doctors and admins may read any.
func (s *Service) GetConsentHistory(ctx context.Context, caller auth.Caller, userID uuid.UUID, consentType string, limit, offset int) ([]*Record, int, error) {
	if caller.IsZero() {
		return nil, 0, apperror.New(apperror.CodeAuthenticationFailed, "authentication required")
	}
	if !caller.CanActFor(userID) {
		return nil, 0, apperror.New(apperror.CodeAuthenticationFailed, "not authorized to view this user's consents")
	}
	items, total, err := s.repo.ListByUser(ctx, userID, consentType, limit, offset)
	if err != nil {
		return nil, 0, apperror.Wrap(apperror.CodeDatabaseError, "failed to load consent history", err)
	}
	return items, total, nil
}

// HasRecentConsent reports whether the user's most recent record of the
// given type within the window was granted.
func (s *Service) HasRecentConsent(ctx context.Context, userID uuid.UUID, consentType string, within time.Duration) (bool, error) {
	rec, err := s.repo.LatestByUser(ctx, userID, consentType)
	if err != nil {
		return false, apperror.Wrap(apperror.CodeDatabaseError, "failed to load consent record", err)
	}
	if rec == nil {
		return false, nil
	}
	if s.now().Sub(rec.CreatedAt) > within {
		return false, nil
	}
	return rec.Granted, nil
}
