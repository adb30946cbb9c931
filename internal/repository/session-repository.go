package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"proposal-access-service/internal/models"

	redis_v9 "github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	sessionKeyPrefix      = "access-session:"
	grantSessionKeyPrefix = "grant-session:"
)

// SessionRepository keeps view sessions in redis as JSON. Keys carry a TTL
// bounded by the owning grant's expiry, so dead sessions evict themselves
// without a sweeper. A secondary key per grant points at the live session
// so repeat presentations of the same token share one window.
type SessionRepository struct {
	client *redis_v9.Client
}

func NewSessionRepository(client *redis_v9.Client) *SessionRepository {
	return &SessionRepository{
		client: client,
	}
}

func (r *SessionRepository) Save(ctx context.Context, session *models.ViewSession) error {
	val, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("error saving session to cache: %w", err)
	}

	ttl := time.Until(session.GrantExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("error saving session: grant already expired")
	}

	if err := r.client.Set(ctx, sessionKeyPrefix+session.SessionID, val, ttl).Err(); err != nil {
		return fmt.Errorf("error saving session to cache: %w", err)
	}

	if err := r.client.Set(ctx, grantSessionKeyPrefix+session.GrantID, session.SessionID, ttl).Err(); err != nil {
		return fmt.Errorf("error saving grant session index: %w", err)
	}

	return nil
}

func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*models.ViewSession, error) {
	raw, err := r.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis_v9.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("error get session in cache: %w", err)
	}

	session := &models.ViewSession{}
	if err := json.Unmarshal(raw, session); err != nil {
		return nil, fmt.Errorf("error decoding cached session: %w", err)
	}
	return session, nil
}

func (r *SessionRepository) GetByGrant(ctx context.Context, grantID string) (*models.ViewSession, error) {
	sessionID, err := r.client.Get(ctx, grantSessionKeyPrefix+grantID).Result()
	if err != nil {
		if errors.Is(err, redis_v9.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("error get grant session index: %w", err)
	}
	return r.Get(ctx, sessionID)
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID, grantID string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+sessionID, grantSessionKeyPrefix+grantID).Err(); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}
