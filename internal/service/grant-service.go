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

	"github.com/google/uuid"
)

// GrantStore is the authoritative state for revocation and usage tracking.
// *repository.GrantRepository is the production implementation.
type GrantStore interface {
	Create(ctx context.Context, grant *models.Grant) error
	FindByID(ctx context.Context, grantID string) (*models.Grant, error)
	RecordAccess(ctx context.Context, grantID string) (*models.Grant, error)
	Revoke(ctx context.Context, grantID string) error
	RevokeByResource(ctx context.Context, resourceID string) (int64, error)
	FindByResource(ctx context.Context, resourceID string, page, limit int) ([]*models.Grant, error)
}

type GrantService struct {
	grants       GrantStore
	tokenService *TokenService
	publisher    events.Publisher
	minDuration  int
	maxDuration  int
	now          func() time.Time
}

func NewGrantService(grants GrantStore, tokenService *TokenService, publisher events.Publisher, minDurationHours, maxDurationHours int) *GrantService {
	return &GrantService{
		grants:       grants,
		tokenService: tokenService,
		publisher:    publisher,
		minDuration:  minDurationHours,
		maxDuration:  maxDurationHours,
		now:          time.Now,
	}
}

// IssueGrant mints a grant and its signed token. The raw token is returned
// once and never stored.
func (s *GrantService) IssueGrant(ctx context.Context, req *models.CreateGrantRequest) (*models.IssueGrantResponse, error) {
	if req.ResourceID == "" {
		return nil, errors.New("validation failed: resourceId is required")
	}
	if req.Recipient.Email == "" {
		return nil, errors.New("validation failed: recipient email is required")
	}
	if err := s.validateDuration(req.DurationHours); err != nil {
		return nil, err
	}
	if err := validatePermissions(req.Permissions); err != nil {
		return nil, err
	}

	issuedAt := s.now()
	grant := &models.Grant{
		GrantID:     uuid.NewString(),
		ResourceID:  req.ResourceID,
		Recipient:   req.Recipient,
		Permissions: req.Permissions,
		IssuedAt:    issuedAt,
		ExpiresAt:   issuedAt.Add(time.Duration(req.DurationHours) * time.Hour),
	}

	if err := s.grants.Create(ctx, grant); err != nil {
		if errors.Is(err, repository.ErrDuplicateGrantID) {
			return nil, ErrDuplicateGrant
		}
		return nil, fmt.Errorf("error storing grant: %w", err)
	}

	token, err := s.tokenService.GenerateGrantToken(grant)
	if err != nil {
		return nil, fmt.Errorf("error signing grant token: %w", err)
	}

	if err := s.publisher.PublishGrantIssued(ctx, grant); err != nil {
		log.Printf("Warning: Failed to publish grant issued event for %s: %v", grant.GrantID, err)
	}

	return &models.IssueGrantResponse{
		Token:     token,
		GrantID:   grant.GrantID,
		ExpiresAt: grant.ExpiresAt,
	}, nil
}

func (s *GrantService) GetGrant(ctx context.Context, grantID string) (*models.Grant, error) {
	grant, err := s.grants.FindByID(ctx, grantID)
	if err != nil {
		if errors.Is(err, repository.ErrGrantNotFound) {
			return nil, ErrUnknownGrant
		}
		return nil, fmt.Errorf("error loading grant: %w", err)
	}
	return grant, nil
}

// RevokeGrant is an administrative kill switch: the grant dies now, ahead
// of its natural expiry. Idempotent.
func (s *GrantService) RevokeGrant(ctx context.Context, grantID string) error {
	err := s.grants.Revoke(ctx, grantID)
	if err != nil {
		if errors.Is(err, repository.ErrGrantNotFound) {
			return ErrUnknownGrant
		}
		return fmt.Errorf("error revoking grant: %w", err)
	}

	if err := s.publisher.PublishGrantRevoked(ctx, grantID, ""); err != nil {
		log.Printf("Warning: Failed to publish grant revoked event for %s: %v", grantID, err)
	}

	return nil
}

// RevokeGrantsForResource revokes every live grant on a resource. Driven by
// proposal.deleted events so links never outlive their proposal.
func (s *GrantService) RevokeGrantsForResource(ctx context.Context, resourceID string) (int64, error) {
	revoked, err := s.grants.RevokeByResource(ctx, resourceID)
	if err != nil {
		return 0, fmt.Errorf("error revoking grants for resource %s: %w", resourceID, err)
	}

	if revoked > 0 {
		if err := s.publisher.PublishGrantRevoked(ctx, "", resourceID); err != nil {
			log.Printf("Warning: Failed to publish grant revoked event for resource %s: %v", resourceID, err)
		}
	}

	return revoked, nil
}

func (s *GrantService) ListGrantsByResource(ctx context.Context, resourceID string, page, limit int) ([]*models.Grant, error) {
	grants, err := s.grants.FindByResource(ctx, resourceID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing grants: %w", err)
	}
	return grants, nil
}

func (s *GrantService) validateDuration(durationHours int) error {
	if durationHours < s.minDuration || durationHours > s.maxDuration {
		return fmt.Errorf("%w: durationHours must be between %d and %d, got %d",
			ErrInvalidDuration, s.minDuration, s.maxDuration, durationHours)
	}
	return nil
}

func validatePermissions(permissions []string) error {
	if len(permissions) == 0 {
		return fmt.Errorf("%w: at least one permission is required", ErrInvalidPermission)
	}
	for _, p := range permissions {
		if !models.IsKnownPermission(p) {
			return fmt.Errorf("%w: unknown permission %q", ErrInvalidPermission, p)
		}
	}
	return nil
}
