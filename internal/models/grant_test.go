package models

import (
	"testing"
	"time"
)

func TestGrantIsExpired(t *testing.T) {
	now := time.Now()
	grant := &Grant{ExpiresAt: now.Add(time.Hour)}

	if grant.IsExpired(now) {
		t.Error("Expected grant with future expiry to not be expired")
	}

	if !grant.IsExpired(now.Add(2 * time.Hour)) {
		t.Error("Expected grant to be expired after its expiry time")
	}

	// Expiry boundary is exclusive: a grant is dead at exactly expiresAt.
	if !grant.IsExpired(grant.ExpiresAt) {
		t.Error("Expected grant to be expired exactly at expiresAt")
	}
}

func TestGrantHasPermission(t *testing.T) {
	grant := &Grant{Permissions: []string{PermissionView, PermissionComment}}

	if !grant.HasPermission(PermissionView) {
		t.Error("Expected grant to have view permission")
	}
	if !grant.HasPermission(PermissionComment) {
		t.Error("Expected grant to have comment permission")
	}
	if grant.HasPermission(PermissionDownload) {
		t.Error("Expected grant to not have download permission")
	}
}

func TestIsKnownPermission(t *testing.T) {
	for _, p := range []string{PermissionView, PermissionComment, PermissionDownload} {
		if !IsKnownPermission(p) {
			t.Errorf("Expected %q to be a known permission", p)
		}
	}

	for _, p := range []string{"", "edit", "admin", "View"} {
		if IsKnownPermission(p) {
			t.Errorf("Expected %q to be unknown", p)
		}
	}
}

func TestViewSessionTimeRemaining(t *testing.T) {
	now := time.Now()
	session := &ViewSession{ExpiresAt: now.Add(10 * time.Minute)}

	remaining := session.TimeRemaining(now)
	if remaining != 10*time.Minute {
		t.Errorf("Expected 10m remaining, got %v", remaining)
	}

	if got := session.TimeRemaining(now.Add(15 * time.Minute)); got != 0 {
		t.Errorf("Expected 0 remaining after expiry, got %v", got)
	}

	if session.IsExpired(now) {
		t.Error("Expected session to be active before expiry")
	}
	if !session.IsExpired(now.Add(10 * time.Minute)) {
		t.Error("Expected session to be expired at expiresAt")
	}
}
