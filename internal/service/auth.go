package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
)

// DefaultSessionTTL is used when AuthConfig.SessionTTL is zero.
const DefaultSessionTTL = 12 * time.Hour

const sessionIssuer = "leadbox"

// AuthConfig holds the single admin identity and the shared secrets.
type AuthConfig struct {
	Username      string
	Password      string
	SessionSecret string
	BackupKey     string
	SessionTTL    time.Duration
	// HashCost is the bcrypt cost for the in-memory password hash. Zero means
	// bcrypt.DefaultCost.
	HashCost int
}

// AuthService checks admin credentials, issues and validates session tokens,
// and verifies the backup trigger key.
type AuthService struct {
	username     []byte
	passwordHash []byte
	secret       []byte
	backupKey    []byte
	ttl          time.Duration
}

// NewAuthService hashes the configured password once so that plaintext is not
// compared on every login.
func NewAuthService(cfg AuthConfig) (*AuthService, error) {
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret is required")
	}
	cost := cfg.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &AuthService{
		username:     []byte(cfg.Username),
		passwordHash: hash,
		secret:       []byte(cfg.SessionSecret),
		backupKey:    []byte(cfg.BackupKey),
		ttl:          ttl,
	}, nil
}

// SessionTTL returns how long an issued session stays valid.
func (s *AuthService) SessionTTL() time.Duration {
	return s.ttl
}

// Verify reports whether username and password match the configured admin.
// The password hash is always checked so a wrong username costs the same.
func (s *AuthService) Verify(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), s.username) == 1
	passOK := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) == nil
	return userOK && passOK
}

// VerifyBackupKey reports whether key matches the configured backup key. An
// empty configured key matches nothing.
func (s *AuthService) VerifyBackupKey(key string) bool {
	if len(s.backupKey) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), s.backupKey) == 1
}

// IssueSession creates a signed admin session token.
func (s *AuthService) IssueSession() (string, time.Time, error) {
	return s.issue(s.ttl)
}

func (s *AuthService) issue(ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(ttl)
	claims := sessionClaims{
		Admin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			Issuer:    sessionIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, expires, nil
}

// ValidateSession verifies a session token and its admin claim.
func (s *AuthService) ValidateSession(tokenStr string) error {
	claims := &sessionClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithIssuer(sessionIssuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrInvalidCredentials
	}

	if !token.Valid || !claims.Admin {
		return ErrInvalidCredentials
	}
	return nil
}

type sessionClaims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}
