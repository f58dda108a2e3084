// Package secrets keeps the optional provider token in the OS keychain.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	KeyringService       = "jobpulse"
	ProviderTokenAccount = "provider-token"
)

var (
	ErrTokenNotFound = errors.New("secrets: provider token not set")
	ErrEmptyToken    = errors.New("secrets: token is empty")
)

// GetProviderToken returns the stored token or ErrTokenNotFound.
func GetProviderToken() (string, error) {
	tok, err := keyring.Get(KeyringService, ProviderTokenAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("secrets: keyring get: %w", err)
	}
	if strings.TrimSpace(tok) == "" {
		return "", ErrTokenNotFound
	}
	return tok, nil
}

func SetProviderToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	if err := keyring.Set(KeyringService, ProviderTokenAccount, token); err != nil {
		return fmt.Errorf("secrets: keyring set: %w", err)
	}
	return nil
}

// DeleteProviderToken is a no-op when nothing is stored.
func DeleteProviderToken() error {
	err := keyring.Delete(KeyringService, ProviderTokenAccount)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("secrets: keyring delete: %w", err)
	}
	return nil
}
