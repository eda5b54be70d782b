package auth

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/deskops/helpdesk-admin/internal/config"
	"github.com/deskops/helpdesk-admin/internal/domain"
)

// ErrInvalidCredentials is returned for any failed operator login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// HashPassword hashes a plaintext password; non-positive cost uses bcrypt's default.
func HashPassword(password string, cost int) (string, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// OperatorAuthenticator checks the configured console operator and issues tokens.
type OperatorAuthenticator struct {
	email  string
	hash   string
	role   domain.OperatorRole
	tokens *TokenManager
}

// NewOperatorAuthenticator builds the authenticator from auth config.
func NewOperatorAuthenticator(cfg config.AuthConfig, tokens *TokenManager) *OperatorAuthenticator {
	return &OperatorAuthenticator{
		email:  strings.ToLower(strings.TrimSpace(cfg.OperatorEmail)),
		hash:   cfg.OperatorPasswordHash,
		role:   domain.ParseOperatorRole(cfg.OperatorRole),
		tokens: tokens,
	}
}

// TokenManager exposes the signer for middleware wiring.
func (a *OperatorAuthenticator) TokenManager() *TokenManager {
	return a.tokens
}

// Login verifies credentials and returns a signed token.
func (a *OperatorAuthenticator) Login(email, password string) (domain.Operator, string, time.Time, error) {
	if a.hash == "" || !strings.EqualFold(strings.TrimSpace(email), a.email) {
		return domain.Operator{}, "", time.Time{}, ErrInvalidCredentials
	}
	if err := ComparePassword(a.hash, password); err != nil {
		return domain.Operator{}, "", time.Time{}, ErrInvalidCredentials
	}
	op := domain.Operator{Email: a.email, Role: a.role}
	token, exp, err := a.tokens.GenerateToken(op)
	if err != nil {
		return domain.Operator{}, "", time.Time{}, err
	}
	return op, token, exp, nil
}
