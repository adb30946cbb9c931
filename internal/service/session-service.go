package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"proposal-access-service/internal/models"
	"proposal-access-service/internal/repository"

	"github.com/google/uuid"
)

// SessionStore persists view sessions. *repository.SessionRepository is the
// production implementation.
type SessionStore interface {
	Save(ctx context.Context, session *models.ViewSession) error
	Get(ctx context.Context, sessionID string) (*models.ViewSession, error)
	GetByGrant(ctx context.Context, grantID string) (*models.ViewSession, error)
	Delete(ctx context.Context, sessionID, grantID string) error
}

// SessionService manages the short interactive view windows derived from a
// validated grant: creation, the countdown projection, and bounded renewal.
// A session never outlives its grant and an expired session is never
// resurrected; the caller has to present the original token again.
type SessionService struct {
	sessions      SessionStore
	grants        GrantStore
	window        time.Duration
	increment     time.Duration
	maxExtensions int
	now           func() time.Time
}

func NewSessionService(sessions SessionStore, grants GrantStore, window, increment time.Duration, maxExtensions int) *SessionService {
	return &SessionService{
		sessions:      sessions,
		grants:        grants,
		window:        window,
		increment:     increment,
		maxExtensions: maxExtensions,
		now:           time.Now,
	}
}

// CreateSession returns the live session for the grant if one exists,
// otherwise starts a new window. The caller must have validated the grant
// already; the window is clipped to the grant's own expiry.
func (s *SessionService) CreateSession(ctx context.Context, grant *models.Grant) (*models.ViewSession, error) {
	now := s.now()

	existing, err := s.sessions.GetByGrant(ctx, grant.GrantID)
	if err == nil && !existing.IsExpired(now) {
		return existing, nil
	}
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return nil, fmt.Errorf("error looking up session for grant %s: %w", grant.GrantID, err)
	}

	session := &models.ViewSession{
		SessionID:      uuid.NewString(),
		GrantID:        grant.GrantID,
		ResourceID:     grant.ResourceID,
		StartedAt:      now,
		ExpiresAt:      clipToGrant(now.Add(s.window), grant.ExpiresAt),
		GrantExpiresAt: grant.ExpiresAt,
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("error saving session: %w", err)
	}

	return session, nil
}

// Extend pushes the window forward by the configured increment, capped at
// the grant's expiry and at the extension limit. A dead session stays dead.
func (s *SessionService) Extend(ctx context.Context, sessionID string) (*models.ViewSession, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if session.IsExpired(now) {
		return nil, ErrSessionExpired
	}

	// Revocation is pushed, not polled: re-check the grant before granting
	// more time.
	grant, err := s.grants.FindByID(ctx, session.GrantID)
	if err != nil {
		if errors.Is(err, repository.ErrGrantNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("error loading grant for session %s: %w", sessionID, err)
	}
	if grant.Revoked || grant.IsExpired(now) {
		if delErr := s.sessions.Delete(ctx, session.SessionID, session.GrantID); delErr != nil {
			return nil, fmt.Errorf("error expiring session %s: %w", sessionID, delErr)
		}
		return nil, ErrSessionExpired
	}

	if session.ExtensionCount >= s.maxExtensions {
		return nil, ErrExtensionLimitReached
	}

	session.ExpiresAt = clipToGrant(session.ExpiresAt.Add(s.increment), grant.ExpiresAt)
	session.ExtensionCount++

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("error saving extended session: %w", err)
	}

	return session, nil
}

// TimeRemaining is the read-only countdown projection. The stored ExpiresAt
// stays authoritative; any UI timer is advisory display over this value.
func (s *SessionService) TimeRemaining(ctx context.Context, sessionID string) (time.Duration, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return session.TimeRemaining(s.now()), nil
}

func (s *SessionService) IsExpired(ctx context.Context, sessionID string) (bool, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return true, nil
		}
		return true, err
	}
	return session.IsExpired(s.now()), nil
}

func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*models.ViewSession, error) {
	return s.getSession(ctx, sessionID)
}

func (s *SessionService) getSession(ctx context.Context, sessionID string) (*models.ViewSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("error loading session %s: %w", sessionID, err)
	}
	return session, nil
}

func clipToGrant(expiresAt, grantExpiresAt time.Time) time.Time {
	if expiresAt.After(grantExpiresAt) {
		return grantExpiresAt
	}
	return expiresAt
}
