// Package adminauth issues and checks the bearer tokens guarding admin routes.
package adminauth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultTTL = 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid admin token")
)

// Claims is the admin token payload
type Claims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret   []byte
	username string
	password string
	ttl      time.Duration
	now      func() time.Time
}

// NewManager returns a Manager signing with secret. With an empty username
// or password, Login always fails and tokens can only come from elsewhere.
func NewManager(secret, username, password string) (*Manager, error) {
	if secret == "" {
		return nil, fmt.Errorf("adminauth: ADMIN_JWT_SECRET must be set")
	}
	return &Manager{
		secret:   []byte(secret),
		username: username,
		password: password,
		ttl:      DefaultTTL,
		now:      time.Now,
	}, nil
}

// Login checks the admin credentials and issues a token
func (m *Manager) Login(username, password string) (string, error) {
	if m.username == "" || m.password == "" {
		return "", ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(m.password)) == 1
	if !userOK || !passOK {
		return "", ErrInvalidCredentials
	}
	return m.Issue(username)
}

// Issue signs an HS256 admin token for subject
func (m *Manager) Issue(subject string) (string, error) {
	now := m.now()
	claims := Claims{
		Admin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("adminauth: sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies an admin token and returns its claims
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Method.Alg())
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !claims.Admin {
		return nil, fmt.Errorf("%w: not an admin token", ErrInvalidToken)
	}
	return claims, nil
}
