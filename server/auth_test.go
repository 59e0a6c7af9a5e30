package main

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(t *testing.T) (*Auth, *DB) {
	t.Helper()
	prevCost := bcryptCost
	bcryptCost = bcrypt.MinCost
	t.Cleanup(func() { bcryptCost = prevCost })

	db := openTestDB(t)
	auth, err := NewAuth(db)
	if err != nil {
		t.Fatalf("new auth: %v", err)
	}
	return auth, db
}

func TestAuthRegisterAndLogin(t *testing.T) {
	auth, _ := newTestAuth(t)

	id, token, err := auth.Register("alice", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id == 0 || token == "" {
		t.Fatalf("expected id and token, got %d %q", id, token)
	}

	gotID, username, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if gotID != id || username != "alice" {
		t.Errorf("expected %d alice, got %d %s", id, gotID, username)
	}

	loginID, _, err := auth.Login("alice", "secret", "1.2.3.4")
	if err != nil || loginID != id {
		t.Errorf("expected login as %d, got %d (%v)", id, loginID, err)
	}
}

func TestAuthRejectsBadInput(t *testing.T) {
	auth, _ := newTestAuth(t)
	auth.Register("alice", "secret")

	if _, _, err := auth.Register("alice", "secret"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
	if _, _, err := auth.Register("a", "secret"); err == nil {
		t.Error("expected short username to fail")
	}
	if _, _, err := auth.Register("bob", "x"); err == nil {
		t.Error("expected short password to fail")
	}
	if _, _, err := auth.Login("alice", "wrong", "1.2.3.4"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("expected ErrBadCredentials, got %v", err)
	}
	if _, _, err := auth.Login("nobody", "secret", "1.2.3.4"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("expected ErrBadCredentials, got %v", err)
	}
}

func TestAuthLoginRateLimit(t *testing.T) {
	auth, _ := newTestAuth(t)
	auth.Register("alice", "secret")

	for i := 0; i < maxLoginAttempts; i++ {
		auth.Login("alice", "wrong", "5.6.7.8")
	}
	if _, _, err := auth.Login("alice", "secret", "5.6.7.8"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
	if _, _, err := auth.Login("alice", "secret", "9.9.9.9"); err != nil {
		t.Errorf("expected another ip to log in, got %v", err)
	}
}

func TestAuthSecretPersists(t *testing.T) {
	auth, db := newTestAuth(t)
	_, token, _ := auth.Register("alice", "secret")

	again, err := NewAuth(db)
	if err != nil {
		t.Fatalf("new auth: %v", err)
	}
	if _, _, err := again.ValidateToken(token); err != nil {
		t.Errorf("expected token valid after restart, got %v", err)
	}
}

func TestAuthRejectsForeignTokens(t *testing.T) {
	auth, _ := newTestAuth(t)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		PlayerID: 1,
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	signed, _ := expired.SignedString(auth.jwtSecret)
	if _, _, err := auth.ValidateToken(signed); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected expired token rejected, got %v", err)
	}

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{PlayerID: 1, Username: "alice"})
	signed, _ = forged.SignedString([]byte("not the secret"))
	if _, _, err := auth.ValidateToken(signed); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected forged token rejected, got %v", err)
	}

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{PlayerID: 1, Username: "alice"})
	signed, _ = unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, _, err := auth.ValidateToken(signed); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected unsigned token rejected, got %v", err)
	}
}
