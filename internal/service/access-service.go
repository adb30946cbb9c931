package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"proposal-access-service/internal/events"
	"proposal-access-service/internal/models"
	"proposal-access-service/internal/repository"
)

// Access modes. Grant mode answers a one-shot check; session mode also
// opens (or reuses) an interactive view window with a countdown.
const (
	ModeGrant   = "grant"
	ModeSession = "session"
)

// AccessService is the single entry point answering "can this token view
// this resource right now". Token claims are advisory: the stored grant is
// re-fetched on every call so a revoke takes effect immediately, even for
// a token that is otherwise intact and unexpired.
type AccessService struct {
	tokenService *TokenService
	grants       GrantStore
	sessions     *SessionService
	publisher    events.Publisher
	now          func() time.Time
}

func NewAccessService(tokenService *TokenService, grants GrantStore, sessions *SessionService, publisher events.Publisher) *AccessService {
	return &AccessService{
		tokenService: tokenService,
		grants:       grants,
		sessions:     sessions,
		publisher:    publisher,
		now:          time.Now,
	}
}

func (s *AccessService) Authorize(ctx context.Context, tokenString, mode string) (*models.AccessDecision, error) {
	claims, err := s.tokenService.VerifyGrantToken(tokenString)
	if err != nil {
		return nil, err
	}

	grant, err := s.grants.FindByID(ctx, claims.GrantID())
	if err != nil {
		if errors.Is(err, repository.ErrGrantNotFound) {
			return nil, ErrUnknownGrant
		}
		// Fail closed: a store that cannot answer means no access.
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	now := s.now()
	if grant.IsExpired(now) {
		return nil, ErrGrantExpired
	}
	if grant.Revoked {
		return nil, ErrGrantRevoked
	}
	if !claimsMatchGrant(claims, grant) {
		return nil, ErrInvalidToken
	}
	if !grant.HasPermission(models.PermissionView) {
		return nil, ErrPermissionDenied
	}

	// Every successful validation counts as an access, read-only views
	// included.
	grant, err = s.grants.RecordAccess(ctx, grant.GrantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := s.publisher.PublishGrantAccessed(ctx, grant.GrantID, grant.ResourceID); err != nil {
		log.Printf("Warning: Failed to publish grant accessed event for %s: %v", grant.GrantID, err)
	}

	decision := &models.AccessDecision{
		ResourceID:  grant.ResourceID,
		Permissions: grant.Permissions,
		Recipient:   grant.Recipient,
		ExpiresAt:   grant.ExpiresAt,
	}

	if mode == ModeSession {
		session, err := s.sessions.CreateSession(ctx, grant)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		decision.SessionID = session.SessionID
		decision.TimeRemainingSeconds = int64(session.TimeRemaining(now).Seconds())
	}

	return decision, nil
}

// claimsMatchGrant cross-checks the decoded claims against the stored
// grant. Any drift means a stale or forged token.
func claimsMatchGrant(claims *models.GrantClaims, grant *models.Grant) bool {
	if claims.ResourceID != grant.ResourceID {
		return false
	}
	if claims.RecipientEmail != grant.Recipient.Email {
		return false
	}
	return samePermissionSet(claims.Permissions, grant.Permissions)
}

func samePermissionSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, p := range a {
		seen[p]++
	}
	for _, p := range b {
		seen[p]--
		if seen[p] < 0 {
			return false
		}
	}
	return true
}
