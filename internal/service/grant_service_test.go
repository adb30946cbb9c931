package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"proposal-access-service/internal/events"
	"proposal-access-service/internal/models"
	"proposal-access-service/internal/repository"
)

// fakeGrantStore is an in-memory GrantStore used across the service tests.
type fakeGrantStore struct {
	mu     sync.Mutex
	grants map[string]*models.Grant
}

func newFakeGrantStore() *fakeGrantStore {
	return &fakeGrantStore{grants: make(map[string]*models.Grant)}
}

func (s *fakeGrantStore) Create(ctx context.Context, grant *models.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.grants[grant.GrantID]; exists {
		return repository.ErrDuplicateGrantID
	}
	copied := *grant
	s.grants[grant.GrantID] = &copied
	return nil
}

func (s *fakeGrantStore) FindByID(ctx context.Context, grantID string) (*models.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.grants[grantID]
	if !ok {
		return nil, repository.ErrGrantNotFound
	}
	copied := *grant
	return &copied, nil
}

func (s *fakeGrantStore) RecordAccess(ctx context.Context, grantID string) (*models.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.grants[grantID]
	if !ok {
		return nil, repository.ErrGrantNotFound
	}
	grant.AccessCount++
	now := time.Now()
	grant.LastAccessedAt = &now
	copied := *grant
	return &copied, nil
}

func (s *fakeGrantStore) Revoke(ctx context.Context, grantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.grants[grantID]
	if !ok {
		return repository.ErrGrantNotFound
	}
	grant.Revoked = true
	return nil
}

func (s *fakeGrantStore) RevokeByResource(ctx context.Context, resourceID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var revoked int64
	for _, grant := range s.grants {
		if grant.ResourceID == resourceID && !grant.Revoked {
			grant.Revoked = true
			revoked++
		}
	}
	return revoked, nil
}

func (s *fakeGrantStore) FindByResource(ctx context.Context, resourceID string, page, limit int) ([]*models.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Grant
	for _, grant := range s.grants {
		if grant.ResourceID == resourceID {
			copied := *grant
			out = append(out, &copied)
		}
	}
	return out, nil
}

func disabledPublisher(t *testing.T) events.Publisher {
	t.Helper()
	publisher, err := events.NewEventPublisher("")
	if err != nil {
		t.Fatalf("NewEventPublisher failed: %v", err)
	}
	return publisher
}

func newTestGrantService(t *testing.T) (*GrantService, *fakeGrantStore) {
	t.Helper()
	store := newFakeGrantStore()
	svc := NewGrantService(store, NewTokenService("test-secret"), disabledPublisher(t), 1, 168)
	return svc, store
}

func validCreateRequest() *models.CreateGrantRequest {
	return &models.CreateGrantRequest{
		ResourceID: "306780",
		Recipient: models.Recipient{
			Email:       "client@example.com",
			DisplayName: "Client Example",
		},
		Permissions:   []string{models.PermissionView, models.PermissionComment},
		DurationHours: 24,
	}
}

func TestIssueGrant(t *testing.T) {
	svc, store := newTestGrantService(t)
	issuedAt := time.Now()
	svc.now = func() time.Time { return issuedAt }

	resp, err := svc.IssueGrant(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("IssueGrant failed: %v", err)
	}

	if resp.Token == "" {
		t.Error("Expected a token in the response")
	}
	if resp.GrantID == "" {
		t.Error("Expected a grant id in the response")
	}
	if !resp.ExpiresAt.Equal(issuedAt.Add(24 * time.Hour)) {
		t.Errorf("Expected expiry 24h after issuance, got %v", resp.ExpiresAt)
	}

	grant, err := store.FindByID(context.Background(), resp.GrantID)
	if err != nil {
		t.Fatalf("Expected grant to be persisted: %v", err)
	}
	if grant.Revoked {
		t.Error("Expected new grant to not be revoked")
	}
	if grant.AccessCount != 0 {
		t.Errorf("Expected new grant access count 0, got %d", grant.AccessCount)
	}

	// The returned token must decode back to the persisted grant's claims.
	claims, err := NewTokenService("test-secret").VerifyGrantToken(resp.Token)
	if err != nil {
		t.Fatalf("Issued token failed verification: %v", err)
	}
	if claims.GrantID() != resp.GrantID {
		t.Errorf("Expected token grant id %s, got %s", resp.GrantID, claims.GrantID())
	}
	if claims.ResourceID != "306780" {
		t.Errorf("Expected token resource id 306780, got %s", claims.ResourceID)
	}
}

func TestIssueGrantRejectsBadDuration(t *testing.T) {
	svc, _ := newTestGrantService(t)

	for _, hours := range []int{0, -5, 169, 200} {
		req := validCreateRequest()
		req.DurationHours = hours
		_, err := svc.IssueGrant(context.Background(), req)
		if !errors.Is(err, ErrInvalidDuration) {
			t.Errorf("Expected ErrInvalidDuration for %d hours, got %v", hours, err)
		}
	}

	for _, hours := range []int{1, 24, 168} {
		req := validCreateRequest()
		req.DurationHours = hours
		if _, err := svc.IssueGrant(context.Background(), req); err != nil {
			t.Errorf("Expected %d hours to be accepted, got %v", hours, err)
		}
	}
}

func TestIssueGrantRejectsBadPermissions(t *testing.T) {
	svc, _ := newTestGrantService(t)

	req := validCreateRequest()
	req.Permissions = nil
	if _, err := svc.IssueGrant(context.Background(), req); !errors.Is(err, ErrInvalidPermission) {
		t.Errorf("Expected ErrInvalidPermission for empty set, got %v", err)
	}

	req = validCreateRequest()
	req.Permissions = []string{models.PermissionView, "edit"}
	if _, err := svc.IssueGrant(context.Background(), req); !errors.Is(err, ErrInvalidPermission) {
		t.Errorf("Expected ErrInvalidPermission for unknown tag, got %v", err)
	}

	// Any non-empty subset of the known set is fine.
	req = validCreateRequest()
	req.Permissions = []string{models.PermissionView}
	if _, err := svc.IssueGrant(context.Background(), req); err != nil {
		t.Errorf("Expected view-only permissions to be accepted, got %v", err)
	}
}

func TestRevokeGrant(t *testing.T) {
	svc, store := newTestGrantService(t)

	resp, err := svc.IssueGrant(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("IssueGrant failed: %v", err)
	}

	if err := svc.RevokeGrant(context.Background(), resp.GrantID); err != nil {
		t.Fatalf("RevokeGrant failed: %v", err)
	}

	grant, err := store.FindByID(context.Background(), resp.GrantID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if !grant.Revoked {
		t.Error("Expected grant to be revoked")
	}

	// Revoking twice is not an error.
	if err := svc.RevokeGrant(context.Background(), resp.GrantID); err != nil {
		t.Errorf("Expected idempotent revoke, got %v", err)
	}

	if err := svc.RevokeGrant(context.Background(), "no-such-grant"); !errors.Is(err, ErrUnknownGrant) {
		t.Errorf("Expected ErrUnknownGrant, got %v", err)
	}
}

func TestRevokeGrantsForResource(t *testing.T) {
	svc, _ := newTestGrantService(t)

	for range 2 {
		if _, err := svc.IssueGrant(context.Background(), validCreateRequest()); err != nil {
			t.Fatalf("IssueGrant failed: %v", err)
		}
	}
	other := validCreateRequest()
	other.ResourceID = "999999"
	if _, err := svc.IssueGrant(context.Background(), other); err != nil {
		t.Fatalf("IssueGrant failed: %v", err)
	}

	revoked, err := svc.RevokeGrantsForResource(context.Background(), "306780")
	if err != nil {
		t.Fatalf("RevokeGrantsForResource failed: %v", err)
	}
	if revoked != 2 {
		t.Errorf("Expected 2 grants revoked, got %d", revoked)
	}

	// Already revoked grants are not counted again.
	revoked, err = svc.RevokeGrantsForResource(context.Background(), "306780")
	if err != nil {
		t.Fatalf("RevokeGrantsForResource failed: %v", err)
	}
	if revoked != 0 {
		t.Errorf("Expected 0 grants revoked on second pass, got %d", revoked)
	}
}
