package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

var (
	// ErrInvalidCredentials is returned when username or password is incorrect
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserExists is returned when trying to create a user that already exists
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when user is not found
	ErrUserNotFound = errors.New("user not found")
	// ErrPermissionDenied is returned when user lacks required permission
	ErrPermissionDenied = errors.New("permission denied")
)

const (
	saltLength     = 16
	iterationCount = 4096
	keyLength      = 32
)

// Role represents a user role with associated permissions
type Role string

const (
	// RoleAdmin has full access to all operations
	RoleAdmin Role = "admin"
	// RoleReadWrite can read and write records
	RoleReadWrite Role = "readWrite"
	// RoleRead can only read records
	RoleRead Role = "read"
)

// Permission represents an operation permission
type Permission string

const (
	PermissionRead        Permission = "read"
	PermissionWrite       Permission = "write"
	PermissionCreateIndex Permission = "createIndex"
	PermissionDropIndex   Permission = "dropIndex"
	PermissionCreateTable Permission = "createTable"
	PermissionDropTable   Permission = "dropTable"
	PermissionAdmin       Permission = "admin" // flush, merge, backup
	PermissionViewStats   Permission = "viewStats"
)

// rolePermissions maps roles to their permissions
var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermissionRead,
		PermissionWrite,
		PermissionCreateIndex,
		PermissionDropIndex,
		PermissionCreateTable,
		PermissionDropTable,
		PermissionAdmin,
		PermissionViewStats,
	},
	RoleReadWrite: {
		PermissionRead,
		PermissionWrite,
		PermissionCreateIndex,
		PermissionDropIndex,
		PermissionViewStats,
	},
	RoleRead: {
		PermissionRead,
		PermissionViewStats,
	},
}

// User represents a server user
type User struct {
	Username  string
	Salt      []byte
	StoredKey []byte
	Role      Role
	CreatedAt time.Time
}

// Session represents an authenticated session
type Session struct {
	Username  string
	Role      Role
	ExpiresAt time.Time
	Token     string
}

// Manager manages users and bearer-token sessions. Passwords are never
// stored; only a PBKDF2-derived key is kept for verification.
type Manager struct {
	mu         sync.RWMutex
	users      map[string]*User
	sessions   map[string]*Session
	sessionTTL time.Duration
}

// NewManager creates an empty authentication manager
func NewManager() *Manager {
	return &Manager{
		users:      make(map[string]*User),
		sessions:   make(map[string]*Session),
		sessionTTL: 24 * time.Hour,
	}
}

// SetSessionTTL sets the session time-to-live duration
func (m *Manager) SetSessionTTL(ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionTTL = ttl
}

// CreateUser creates a new user with the given username, password and role
func (m *Manager) CreateUser(username, password string, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[username]; exists {
		return ErrUserExists
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	m.users[username] = &User{
		Username:  username,
		Salt:      salt,
		StoredKey: derivedKey(password, salt),
		Role:      role,
		CreatedAt: time.Now(),
	}
	return nil
}

// DeleteUser deletes a user. Existing sessions of the user are revoked.
func (m *Manager) DeleteUser(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[username]; !exists {
		return ErrUserNotFound
	}
	delete(m.users, username)
	for token, session := range m.sessions {
		if session.Username == username {
			delete(m.sessions, token)
		}
	}
	return nil
}

// HasUsers reports whether any users are configured. With no users the
// server runs unauthenticated.
func (m *Manager) HasUsers() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users) > 0
}

// Authenticate verifies credentials and returns a session token
func (m *Manager) Authenticate(username, password string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, exists := m.users[username]
	if !exists {
		return "", ErrInvalidCredentials
	}
	if !hmac.Equal(derivedKey(password, user.Salt), user.StoredKey) {
		return "", ErrInvalidCredentials
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	m.sessions[token] = &Session{
		Username:  username,
		Role:      user.Role,
		ExpiresAt: time.Now().Add(m.sessionTTL),
		Token:     token,
	}
	return token, nil
}

// ValidateSession validates a session token and returns the session
func (m *Manager) ValidateSession(token string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[token]
	if !exists {
		return nil, ErrInvalidCredentials
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, ErrInvalidCredentials
	}
	return session, nil
}

// InvalidateSession invalidates a session token (logout)
func (m *Manager) InvalidateSession(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

// HasPermission checks if a role has a specific permission
func (m *Manager) HasPermission(role Role, permission Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission checks if a session token carries a permission
func (m *Manager) CheckPermission(token string, permission Permission) error {
	session, err := m.ValidateSession(token)
	if err != nil {
		return err
	}
	if !m.HasPermission(session.Role, permission) {
		return ErrPermissionDenied
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions
func (m *Manager) CleanupExpiredSessions() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for token, session := range m.sessions {
		if now.After(session.ExpiresAt) {
			delete(m.sessions, token)
		}
	}
}

// ParseAuthHeader parses an Authorization header (Bearer token)
func ParseAuthHeader(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("invalid authorization header")
	}
	return parts[1], nil
}

func derivedKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, iterationCount, keyLength, sha256.New)
}
