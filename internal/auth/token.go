package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"book-journal/internal/domain"
)

// Identity is the verified subject of a request, as asserted by a token.
type Identity struct {
	ID       string
	Username string
}

type claims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies signed identity tokens. Tokens are
// stateless: nothing is persisted server-side and there is no revocation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue signs a token asserting the given identity, expiring ttl from now.
func (s *TokenService) Issue(identity Identity) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:   identity.ID,
		Username: identity.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify returns the identity asserted by tokenString. Malformed,
// tampered, and expired tokens all fail with domain.ErrInvalidToken;
// callers are not told which.
func (s *TokenService) Verify(tokenString string) (Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, domain.ErrInvalidToken
	}
	if c.UserID == "" {
		return Identity{}, domain.ErrInvalidToken
	}

	return Identity{ID: c.UserID, Username: c.Username}, nil
}
