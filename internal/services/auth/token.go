package auth

import (
	"errors"
	"fmt"
	"time"

	domsvc "PortfolioDash/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "portfoliodash"

var ErrInvalidToken = errors.New("invalid session token")

// TokenIssuer signs the session id into the cookie value (HS256).
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *TokenIssuer) Issue(sessionID string) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		ID:        sessionID,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return s, nil
}

// Parse verifies token and returns the session id and when the token expires.
func (t *TokenIssuer) Parse(token string) (string, time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return t.secret, nil
		},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid || claims.ID == "" || claims.ExpiresAt == nil {
		return "", time.Time{}, ErrInvalidToken
	}
	return claims.ID, claims.ExpiresAt.Time, nil
}

var _ domsvc.SessionTokens = (*TokenIssuer)(nil)
