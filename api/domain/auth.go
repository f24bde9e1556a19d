package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidToken = errors.New("invalid token")

type AuthToken struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
}

func (m *AuthToken) MarshalJSON() ([]byte, error) {
	return []byte(
		fmt.Sprintf(
			`{"access_token":"%s","token_type":"%s","expires_in":%d}`,
			m.AccessToken,
			m.TokenType,
			int(m.ExpiresIn.Seconds()))), nil
}

// TokenVerifier resolves a bearer token to the user it was issued for.
// Implementations return ErrInvalidToken for unknown or expired tokens.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (id string, email string, err error)
}

type AuthCache interface {
	TokenVerifier
	GetTokenExpiry() time.Duration
	GenerateAndSaveToken(ctx context.Context, email string, id string) (string, error)
	DeleteToken(ctx context.Context, token string) error
}
