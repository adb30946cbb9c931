package models

import "time"

// Capability tags a grant may carry. Issuance rejects anything outside
// this set.
const (
	PermissionView     = "view"
	PermissionComment  = "comment"
	PermissionDownload = "download"
)

func IsKnownPermission(permission string) bool {
	switch permission {
	case PermissionView, PermissionComment, PermissionDownload:
		return true
	}
	return false
}

type Recipient struct {
	Email        string `bson:"email" json:"email" validate:"required,email"`
	DisplayName  string `bson:"displayName,omitempty" json:"displayName,omitempty"`
	Organization string `bson:"organization,omitempty" json:"organization,omitempty"`
}

// Grant authorizes one recipient to view one proposal until a fixed expiry.
// Once written, only Revoked, AccessCount and LastAccessedAt ever change.
// Grants are never deleted; dead grants are kept for audit.
type Grant struct {
	GrantID        string     `bson:"grantId" json:"grantId"`
	ResourceID     string     `bson:"resourceId" json:"resourceId"`
	Recipient      Recipient  `bson:"recipient" json:"recipient"`
	Permissions    []string   `bson:"permissions" json:"permissions"`
	IssuedAt       time.Time  `bson:"issuedAt" json:"issuedAt"`
	ExpiresAt      time.Time  `bson:"expiresAt" json:"expiresAt"`
	Revoked        bool       `bson:"revoked" json:"revoked"`
	AccessCount    int64      `bson:"accessCount" json:"accessCount"`
	LastAccessedAt *time.Time `bson:"lastAccessedAt,omitempty" json:"lastAccessedAt,omitempty"`
}

func (g *Grant) IsExpired(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}

func (g *Grant) HasPermission(permission string) bool {
	for _, p := range g.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

type CreateGrantRequest struct {
	ResourceID    string    `json:"resourceId"`
	Recipient     Recipient `json:"recipient"`
	Permissions   []string  `json:"permissions"`
	DurationHours int       `json:"durationHours"`
}

type IssueGrantResponse struct {
	Token     string    `json:"token"`
	GrantID   string    `json:"grantId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AccessDecision is what a successful authorization returns to the caller.
// TimeRemainingSeconds and SessionID are only set in session mode.
type AccessDecision struct {
	ResourceID           string    `json:"resourceId"`
	Permissions          []string  `json:"permissions"`
	Recipient            Recipient `json:"recipient"`
	ExpiresAt            time.Time `json:"expiresAt"`
	SessionID            string    `json:"sessionId,omitempty"`
	TimeRemainingSeconds int64     `json:"timeRemaining,omitempty"`
}
