package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type memoryCredentials map[string]*Credentials

func (m memoryCredentials) CredentialsByUsername(_ context.Context, username string) (*Credentials, error) {
	return m[username], nil
}

func TestLogin(t *testing.T) {
	hash, err := HashPassword("admin123")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	users := memoryCredentials{
		"admin": {Identity: Identity{ID: 1, Username: "admin", Role: RoleAdmin}, PasswordHash: hash},
	}
	tokens := NewJWTManager("secret", "issuer", 24*time.Hour)
	svc := NewService(users, tokens)
	ctx := context.Background()

	t.Run("valid credentials round trip through the token", func(t *testing.T) {
		session, err := svc.Login(ctx, "admin", "admin123")
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if session.User.Username != "admin" || session.User.Role != RoleAdmin || session.User.ID != 1 {
			t.Fatalf("unexpected user %+v", session.User)
		}
		claims, err := tokens.Parse(session.Token)
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if claims.Identity() != session.User {
			t.Fatalf("token identity %+v differs from login identity %+v", claims.Identity(), session.User)
		}
	})

	t.Run("wrong password and unknown user fail the same way", func(t *testing.T) {
		_, errWrong := svc.Login(ctx, "admin", "nope")
		_, errUnknown := svc.Login(ctx, "ghost", "admin123")
		if !errors.Is(errWrong, ErrInvalidCredentials) || !errors.Is(errUnknown, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v and %v", errWrong, errUnknown)
		}
		if errWrong.Error() != errUnknown.Error() {
			t.Fatalf("error messages leak user existence: %q vs %q", errWrong, errUnknown)
		}
	})
}

func TestLoginComparesPasswordForUnknownUser(t *testing.T) {
	hash, err := HashPassword("admin123")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	users := memoryCredentials{
		"admin": {Identity: Identity{ID: 1, Username: "admin", Role: RoleAdmin}, PasswordHash: hash},
	}
	svc := NewService(users, NewJWTManager("secret", "issuer", time.Hour))

	var compared []string
	svc.check = func(hash, password string) error {
		compared = append(compared, hash)
		return CheckPassword(hash, password)
	}

	ctx := context.Background()
	if _, err := svc.Login(ctx, "ghost", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if len(compared) != 2 {
		t.Fatalf("expected one bcrypt comparison per attempt, got %d", len(compared))
	}
	if compared[0] != absentUserHash || compared[1] != hash {
		t.Fatalf("unexpected hashes compared: %q", compared)
	}
	cost, err := bcrypt.Cost([]byte(absentUserHash))
	if err != nil || cost != PasswordCost {
		t.Fatalf("placeholder hash cost = %d (%v), want %d", cost, err, PasswordCost)
	}
}
