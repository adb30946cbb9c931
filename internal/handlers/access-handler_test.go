package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"proposal-access-service/internal/events"
	"proposal-access-service/internal/models"
	"proposal-access-service/internal/repository"
	"proposal-access-service/internal/service"

	"github.com/gofiber/fiber/v3"
)

// stubSessionStore serves sessions from memory and counts reads so tests
// can assert how many round trips a handler costs.
type stubSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.ViewSession
	gets     int
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{sessions: make(map[string]*models.ViewSession)}
}

func (s *stubSessionStore) Save(ctx context.Context, session *models.ViewSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.sessions[session.SessionID] = &copied
	return nil
}

func (s *stubSessionStore) Get(ctx context.Context, sessionID string) (*models.ViewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *stubSessionStore) GetByGrant(ctx context.Context, grantID string) (*models.ViewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.GrantID == grantID {
			copied := *session
			return &copied, nil
		}
	}
	return nil, repository.ErrSessionNotFound
}

func (s *stubSessionStore) Delete(ctx context.Context, sessionID, grantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *stubSessionStore) getCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

type stubGrantStore struct{}

func (s *stubGrantStore) Create(ctx context.Context, grant *models.Grant) error { return nil }
func (s *stubGrantStore) FindByID(ctx context.Context, grantID string) (*models.Grant, error) {
	return nil, repository.ErrGrantNotFound
}
func (s *stubGrantStore) RecordAccess(ctx context.Context, grantID string) (*models.Grant, error) {
	return nil, repository.ErrGrantNotFound
}
func (s *stubGrantStore) Revoke(ctx context.Context, grantID string) error {
	return repository.ErrGrantNotFound
}
func (s *stubGrantStore) RevokeByResource(ctx context.Context, resourceID string) (int64, error) {
	return 0, nil
}
func (s *stubGrantStore) FindByResource(ctx context.Context, resourceID string, page, limit int) ([]*models.Grant, error) {
	return nil, nil
}

func newRemainingTestApp(t *testing.T, store *stubSessionStore) *fiber.App {
	t.Helper()

	grants := &stubGrantStore{}
	tokens := service.NewTokenService("test-secret")
	sessions := service.NewSessionService(store, grants, 15*time.Minute, 10*time.Minute, 6)
	publisher, err := events.NewEventPublisher("")
	if err != nil {
		t.Fatalf("NewEventPublisher failed: %v", err)
	}
	access := service.NewAccessService(tokens, grants, sessions, publisher)

	app := fiber.New()
	NewAccessHandler(access, sessions).RegisterRoutes(app)
	return app
}

func TestSessionRemainingEndpoint(t *testing.T) {
	store := newStubSessionStore()
	now := time.Now()
	if err := store.Save(context.Background(), &models.ViewSession{
		SessionID:      "b6f1d2ce-7f02-4a51-9a3e-2c90b2d0544a",
		GrantID:        "7b1c5a90-20f4-4c52-a0d4-b60a3af1c2aa",
		ResourceID:     "306780",
		StartedAt:      now,
		ExpiresAt:      now.Add(10 * time.Minute),
		GrantExpiresAt: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	app := newRemainingTestApp(t, store)

	req := httptest.NewRequest("GET", "/public/sessions/b6f1d2ce-7f02-4a51-9a3e-2c90b2d0544a/remaining", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var body struct {
		Data struct {
			TimeRemaining int64 `json:"timeRemaining"`
			Expired       bool  `json:"expired"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if body.Data.TimeRemaining <= 0 || body.Data.TimeRemaining > 600 {
		t.Errorf("Expected time remaining within the 10 minute window, got %d", body.Data.TimeRemaining)
	}
	if body.Data.Expired {
		t.Error("Expected session to be live")
	}

	// The countdown projection costs a single session read.
	if got := store.getCount(); got != 1 {
		t.Errorf("Expected 1 session read, got %d", got)
	}
}

func TestSessionRemainingUnknownSession(t *testing.T) {
	app := newRemainingTestApp(t, newStubSessionStore())

	req := httptest.NewRequest("GET", "/public/sessions/no-such-session/remaining", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}
}
