package auth

import (
	"context"
	"crypto/subtle"
	"fmt"

	"PortfolioDash/internal/domain/models"
	domsvc "PortfolioDash/internal/domain/service"
	"PortfolioDash/pkg/config"

	"golang.org/x/crypto/bcrypt"
)

// StaticAuthenticator accepts exactly one configured username/password pair.
type StaticAuthenticator struct {
	username []byte
	password []byte
}

func NewStaticAuthenticator(username, password string) *StaticAuthenticator {
	return &StaticAuthenticator{username: []byte(username), password: []byte(password)}
}

func (a *StaticAuthenticator) Authenticate(_ context.Context, c models.Credentials) (models.Principal, error) {
	userOK := subtle.ConstantTimeCompare([]byte(c.Username), a.username)
	passOK := subtle.ConstantTimeCompare([]byte(c.Password), a.password)
	if userOK&passOK != 1 {
		return models.Principal{}, domsvc.ErrRejected
	}
	return models.Principal{Username: c.Username}, nil
}

// BcryptAuthenticator checks the password against a bcrypt hash.
type BcryptAuthenticator struct {
	username []byte
	hash     []byte
}

func NewBcryptAuthenticator(username, hash string) (*BcryptAuthenticator, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("auth: invalid bcrypt hash: %w", err)
	}
	return &BcryptAuthenticator{username: []byte(username), hash: []byte(hash)}, nil
}

func (a *BcryptAuthenticator) Authenticate(_ context.Context, c models.Credentials) (models.Principal, error) {
	passErr := bcrypt.CompareHashAndPassword(a.hash, []byte(c.Password))
	if subtle.ConstantTimeCompare([]byte(c.Username), a.username) != 1 || passErr != nil {
		return models.Principal{}, domsvc.ErrRejected
	}
	return models.Principal{Username: c.Username}, nil
}

// HashPassword returns a bcrypt hash suitable for auth.password_hash.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// New picks the authenticator named by auth.provider.
func New(cfg *config.Config) (domsvc.Authenticator, error) {
	switch cfg.Auth.Provider {
	case "bcrypt":
		return NewBcryptAuthenticator(cfg.Auth.Username, cfg.Auth.PasswordHash)
	case "", "static":
		return NewStaticAuthenticator(cfg.Auth.Username, cfg.Auth.Password), nil
	default:
		return nil, fmt.Errorf("auth: unknown provider %q", cfg.Auth.Provider)
	}
}

var (
	_ domsvc.Authenticator = (*StaticAuthenticator)(nil)
	_ domsvc.Authenticator = (*BcryptAuthenticator)(nil)
)
