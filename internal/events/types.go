package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	// GrantIssued is emitted when a new access grant is minted.
	GrantIssued EventType = "grant.issued"
	// GrantRevoked is emitted when a grant (or every grant on a resource)
	// is revoked ahead of its expiry.
	GrantRevoked EventType = "grant.revoked"
	// GrantAccessed is emitted on each successful authorization.
	GrantAccessed EventType = "grant.accessed"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Version   string    `json:"version"`
}

type GrantEvent struct {
	BaseEvent
	GrantID        string `json:"grant_id,omitempty"`
	ResourceID     string `json:"resource_id,omitempty"`
	RecipientEmail string `json:"recipient_email,omitempty"`
	ExpiresAt      int64  `json:"expires_at,omitempty"`
}

func NewGrantEvent(eventType EventType, grantID, resourceID, recipientEmail string, expiresAt int64) *GrantEvent {
	return &GrantEvent{
		BaseEvent: BaseEvent{
			ID:        generateEventID(),
			Type:      eventType,
			Timestamp: time.Now().Unix(),
			Version:   "1.0",
		},
		GrantID:        grantID,
		ResourceID:     resourceID,
		RecipientEmail: recipientEmail,
		ExpiresAt:      expiresAt,
	}
}

// ToJSON serializes the event to JSON
func (e *GrantEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ProposalDeletedEvent is what the proposal service publishes when a
// proposal is removed; we consume it to revoke the orphaned grants.
type ProposalDeletedEvent struct {
	BaseEvent
	ResourceID string `json:"resource_id"`
}

// generateEventID generates a unique ID for an event
func generateEventID() string {
	return time.Now().Format("20060102150405") + "-" + uuid.NewString()[:8]
}
