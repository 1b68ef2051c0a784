package auth

import (
	"errors"
	"testing"
	"time"
)

func TestAuthenticateAndValidate(t *testing.T) {
	m := NewManager()
	if m.HasUsers() {
		t.Error("fresh manager should have no users")
	}

	if err := m.CreateUser("alice", "s3cret", RoleReadWrite); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if !m.HasUsers() {
		t.Error("HasUsers false after CreateUser")
	}
	if err := m.CreateUser("alice", "other", RoleRead); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate user: got %v, want ErrUserExists", err)
	}

	if _, err := m.Authenticate("alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := m.Authenticate("bob", "s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: got %v, want ErrInvalidCredentials", err)
	}

	token, err := m.Authenticate("alice", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	session, err := m.ValidateSession(token)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if session.Username != "alice" || session.Role != RoleReadWrite {
		t.Errorf("session = %+v", session)
	}

	m.InvalidateSession(token)
	if _, err := m.ValidateSession(token); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("invalidated session: got %v, want ErrInvalidCredentials", err)
	}
}

func TestPermissions(t *testing.T) {
	m := NewManager()
	m.CreateUser("reader", "pw", RoleRead)
	m.CreateUser("admin", "pw", RoleAdmin)

	readerToken, _ := m.Authenticate("reader", "pw")
	adminToken, _ := m.Authenticate("admin", "pw")

	if err := m.CheckPermission(readerToken, PermissionRead); err != nil {
		t.Errorf("reader lacks read: %v", err)
	}
	if err := m.CheckPermission(readerToken, PermissionWrite); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("reader write: got %v, want ErrPermissionDenied", err)
	}
	if err := m.CheckPermission(adminToken, PermissionAdmin); err != nil {
		t.Errorf("admin lacks admin: %v", err)
	}
	if err := m.CheckPermission("bogus", PermissionRead); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("bogus token: got %v, want ErrInvalidCredentials", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	m := NewManager()
	m.SetSessionTTL(-time.Second) // sessions are born expired
	m.CreateUser("alice", "pw", RoleRead)

	token, err := m.Authenticate("alice", "pw")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if _, err := m.ValidateSession(token); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expired session: got %v, want ErrInvalidCredentials", err)
	}

	m.CleanupExpiredSessions()
	if _, err := m.ValidateSession(token); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("cleaned session: got %v, want ErrInvalidCredentials", err)
	}
}

func TestDeleteUserRevokesSessions(t *testing.T) {
	m := NewManager()
	m.CreateUser("alice", "pw", RoleRead)
	token, _ := m.Authenticate("alice", "pw")

	if err := m.DeleteUser("alice"); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if err := m.DeleteUser("alice"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("second delete: got %v, want ErrUserNotFound", err)
	}
	if _, err := m.ValidateSession(token); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("session survives user deletion: %v", err)
	}
}

func TestParseAuthHeader(t *testing.T) {
	token, err := ParseAuthHeader("Bearer abc123")
	if err != nil || token != "abc123" {
		t.Errorf("ParseAuthHeader = (%q, %v)", token, err)
	}
	for _, header := range []string{"", "abc123", "Basic abc123"} {
		if _, err := ParseAuthHeader(header); err == nil {
			t.Errorf("ParseAuthHeader(%q) should fail", header)
		}
	}
}
