package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/SergeSyntax/mock-server/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims carries sub = user id and aud = user role.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 tokens with a configured secret.
type TokenService struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, expiry time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), expiry: expiry, now: time.Now}
}

// WithClock returns a copy using now as its time source.
func (ts *TokenService) WithClock(now func() time.Time) *TokenService {
	cp := *ts
	cp.now = now
	return &cp
}

func (ts *TokenService) Issue(user *models.User) (string, error) {
	if user == nil || user.ID == "" {
		return "", errors.New("cannot issue token without a user id")
	}
	now := ts.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.expiry)),
		},
	}
	if user.Role != "" {
		claims.Audience = jwt.ClaimStrings{user.Role}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, algorithm and expiry and returns the claims.
func (ts *TokenService) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, ts.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := checkClaims(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (ts *TokenService) keyFunc(t *jwt.Token) (any, error) {
	if t.Method == nil || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return ts.secret, nil
}

// checkClaims enforces what the signature check alone does not: a subject
// and an expiry.
func checkClaims(c *Claims) error {
	if c.Subject == "" {
		return fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if c.ExpiresAt == nil {
		return fmt.Errorf("%w: missing expiry", ErrInvalidToken)
	}
	return nil
}
