package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/bnema/online-session-kit/internal/ports"
)

// RefreshTokenKey is the file, relative to the token directory, that holds
// the raw refresh credential.
const RefreshTokenKey = "eos_auth_token.txt"

// TokenStore persists the single refresh credential used for silent re-login.
type TokenStore struct {
	secrets ports.SecretStore
}

func NewTokenStore(secrets ports.SecretStore) *TokenStore {
	return &TokenStore{secrets: secrets}
}

// Load returns the stored credential. A missing or blank file reports ok=false
// without an error, since that is the normal logged-out state.
func (s *TokenStore) Load(ctx context.Context) (string, bool, error) {
	token, err := s.secrets.Get(ctx, RefreshTokenKey)
	if err != nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("load refresh token: %w", err)
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false, nil
	}
	return token, true, nil
}

func (s *TokenStore) Save(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return domain.ErrEmptyToken
	}
	if err := s.secrets.Put(ctx, RefreshTokenKey, token); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

func (s *TokenStore) Delete(ctx context.Context) error {
	if err := s.secrets.Delete(ctx, RefreshTokenKey); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}
