package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// GrantClaims is the decoded token payload. The grant id travels in the
// registered "jti" claim. Claims are advisory until cross-checked against
// the stored grant.
type GrantClaims struct {
	jwt.RegisteredClaims
	ResourceID     string   `json:"resourceId"`
	RecipientEmail string   `json:"recipientEmail"`
	Permissions    []string `json:"permissions"`
}

func (c *GrantClaims) GrantID() string {
	return c.RegisteredClaims.ID
}
