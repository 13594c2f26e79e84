package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(t *testing.T) *AuthService {
	t.Helper()
	auth, err := NewAuthService(AuthConfig{
		Username:      "admin",
		Password:      "s3cret",
		SessionSecret: "test-secret-key-for-jwt",
		BackupKey:     "backup-key",
		HashCost:      bcrypt.MinCost,
	})
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return auth
}

func TestVerify(t *testing.T) {
	auth := newTestAuth(t)

	tests := []struct {
		name     string
		username string
		password string
		want     bool
	}{
		{"correct", "admin", "s3cret", true},
		{"wrong password", "admin", "nope", false},
		{"wrong username", "root", "s3cret", false},
		{"both wrong", "root", "nope", false},
		{"empty", "", "", false},
		{"case sensitive", "Admin", "s3cret", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := auth.Verify(tt.username, tt.password); got != tt.want {
				t.Errorf("Verify(%q, %q) = %v, want %v", tt.username, tt.password, got, tt.want)
			}
		})
	}
}

func TestVerifyBackupKey(t *testing.T) {
	auth := newTestAuth(t)
	if !auth.VerifyBackupKey("backup-key") {
		t.Error("correct key rejected")
	}
	if auth.VerifyBackupKey("wrong") || auth.VerifyBackupKey("") {
		t.Error("wrong key accepted")
	}
}

func TestVerifyBackupKey_EmptyConfigured(t *testing.T) {
	auth, err := NewAuthService(AuthConfig{SessionSecret: "x", HashCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	if auth.VerifyBackupKey("") {
		t.Error("empty key must never match")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	auth := newTestAuth(t)

	token, expires, err := auth.IssueSession()
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if d := time.Until(expires); d <= 0 || d > DefaultSessionTTL {
		t.Errorf("expires in %v, want within (0, %v]", d, DefaultSessionTTL)
	}
	if err := auth.ValidateSession(token); err != nil {
		t.Errorf("ValidateSession: %v", err)
	}
}

func TestSessionExpired(t *testing.T) {
	auth := newTestAuth(t)

	token, _, err := auth.issue(-1 * time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := auth.ValidateSession(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("got %v, want ErrTokenExpired", err)
	}
}

func TestSessionInvalidToken(t *testing.T) {
	auth := newTestAuth(t)
	if err := auth.ValidateSession("garbage.token.here"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestSessionWrongSecret(t *testing.T) {
	auth := newTestAuth(t)
	other, err := NewAuthService(AuthConfig{SessionSecret: "another-secret", HashCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	token, _, _ := other.IssueSession()
	if err := auth.ValidateSession(token); err == nil {
		t.Fatal("token signed with a different secret should be rejected")
	}
}

func TestSessionWithoutAdminClaim(t *testing.T) {
	auth := newTestAuth(t)
	claims := jwt.RegisteredClaims{
		Issuer:    sessionIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(auth.secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := auth.ValidateSession(token); err == nil {
		t.Fatal("token without admin claim should be rejected")
	}
}

func TestNewAuthService_RequiresSecret(t *testing.T) {
	if _, err := NewAuthService(AuthConfig{Password: "x"}); err == nil {
		t.Fatal("expected error for empty session secret")
	}
}

func TestNewAuthService_PasswordTooLong(t *testing.T) {
	_, err := NewAuthService(AuthConfig{
		SessionSecret: "x",
		Password:      strings.Repeat("p", 73),
		HashCost:      bcrypt.MinCost,
	})
	if err == nil {
		t.Fatal("expected error for password longer than 72 bytes")
	}
}
