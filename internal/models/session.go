package models

import "time"

// ViewSession is a short interactive access window derived from a validated
// grant. It lives in redis as JSON and is evicted by TTL once dead.
// ExpiresAt moves forward on extension but never past GrantExpiresAt.
type ViewSession struct {
	SessionID      string    `json:"sessionId"`
	GrantID        string    `json:"grantId"`
	ResourceID     string    `json:"resourceId"`
	StartedAt      time.Time `json:"startedAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
	GrantExpiresAt time.Time `json:"grantExpiresAt"`
	ExtensionCount int       `json:"extensionCount"`
}

func (s *ViewSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *ViewSession) TimeRemaining(now time.Time) time.Duration {
	remaining := s.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
