package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"proposal-access-service/internal/models"
)

func testGrant(expiresIn time.Duration) *models.Grant {
	now := time.Now()
	return &models.Grant{
		GrantID:    "7b1c5a90-1111-2222-3333-444455556666",
		ResourceID: "306780",
		Recipient: models.Recipient{
			Email:       "client@example.com",
			DisplayName: "Client Example",
		},
		Permissions: []string{models.PermissionView, models.PermissionComment},
		IssuedAt:    now,
		ExpiresAt:   now.Add(expiresIn),
	}
}

func TestGenerateAndVerifyGrantToken(t *testing.T) {
	svc := NewTokenService("test-secret")
	grant := testGrant(24 * time.Hour)

	token, err := svc.GenerateGrantToken(grant)
	if err != nil {
		t.Fatalf("GenerateGrantToken failed: %v", err)
	}

	claims, err := svc.VerifyGrantToken(token)
	if err != nil {
		t.Fatalf("VerifyGrantToken failed: %v", err)
	}

	if claims.GrantID() != grant.GrantID {
		t.Errorf("Expected grant id %s, got %s", grant.GrantID, claims.GrantID())
	}
	if claims.ResourceID != grant.ResourceID {
		t.Errorf("Expected resource id %s, got %s", grant.ResourceID, claims.ResourceID)
	}
	if claims.RecipientEmail != grant.Recipient.Email {
		t.Errorf("Expected recipient email %s, got %s", grant.Recipient.Email, claims.RecipientEmail)
	}
	if len(claims.Permissions) != 2 {
		t.Errorf("Expected 2 permissions, got %d", len(claims.Permissions))
	}
}

func TestVerifyGrantTokenRejectsTampering(t *testing.T) {
	svc := NewTokenService("test-secret")
	grant := testGrant(24 * time.Hour)

	token, err := svc.GenerateGrantToken(grant)
	if err != nil {
		t.Fatalf("GenerateGrantToken failed: %v", err)
	}

	// Flip one character in the payload segment.
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("Expected compact JWT with 3 segments, got %d", len(parts))
	}
	payload := []byte(parts[1])
	mid := len(payload) / 2
	if payload[mid] == 'A' {
		payload[mid] = 'B'
	} else {
		payload[mid] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := svc.VerifyGrantToken(tampered); err == nil {
		t.Error("Expected tampered token to be rejected")
	}

	// Truncated signature must fail too.
	truncated := parts[0] + "." + parts[1] + "." + parts[2][:len(parts[2])-2]
	if _, err := svc.VerifyGrantToken(truncated); err == nil {
		t.Error("Expected token with truncated signature to be rejected")
	}
}

func TestVerifyGrantTokenRejectsWrongSecret(t *testing.T) {
	grant := testGrant(24 * time.Hour)

	token, err := NewTokenService("secret-one").GenerateGrantToken(grant)
	if err != nil {
		t.Fatalf("GenerateGrantToken failed: %v", err)
	}

	_, err = NewTokenService("secret-two").VerifyGrantToken(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyGrantTokenExpired(t *testing.T) {
	svc := NewTokenService("test-secret")
	grant := testGrant(-time.Hour)

	token, err := svc.GenerateGrantToken(grant)
	if err != nil {
		t.Fatalf("GenerateGrantToken failed: %v", err)
	}

	_, err = svc.VerifyGrantToken(token)
	if !errors.Is(err, ErrGrantExpired) {
		t.Errorf("Expected ErrGrantExpired for an authentic expired token, got %v", err)
	}
}

func TestVerifyGrantTokenMalformed(t *testing.T) {
	svc := NewTokenService("test-secret")

	for _, tokenString := range []string{"", "not-a-token", "a.b", "a.b.c"} {
		if _, err := svc.VerifyGrantToken(tokenString); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken for %q, got %v", tokenString, err)
		}
	}
}
