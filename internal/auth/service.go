package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Roles understood by the authorization middleware.
const (
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// ErrInvalidCredentials is returned for unknown users and wrong passwords alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Identity is the public part of a user that travels inside tokens.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Credentials is a stored user together with its password hash.
type Credentials struct {
	Identity
	PasswordHash string
}

// CredentialStore looks up users by username. A missing user is reported
// as (nil, nil).
type CredentialStore interface {
	CredentialsByUsername(ctx context.Context, username string) (*Credentials, error)
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      Identity
}

// Service verifies credentials and issues session tokens.
type Service struct {
	users  CredentialStore
	tokens *JWTManager
	check  func(hash, password string) error
}

// NewService creates a login service.
func NewService(users CredentialStore, tokens *JWTManager) *Service {
	return &Service{users: users, tokens: tokens, check: CheckPassword}
}

// Login checks username and password and returns a signed session.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	creds, err := s.users.CredentialsByUsername(ctx, username)
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if creds == nil {
		_ = s.check(absentUserHash, password)
		return Session{}, ErrInvalidCredentials
	}
	if err := s.check(creds.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	token, exp, err := s.tokens.Issue(creds.Identity)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: exp, User: creds.Identity}, nil
}
