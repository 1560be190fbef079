package tokensource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

// TokenStore persists the long-lived refresh token. Write with an empty
// string clears the stored credential.
type TokenStore interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, refreshToken string) error
}

// ErrNoToken is returned by Read when no credential is stored.
var ErrNoToken = errors.New("no stored token")

// KeyringStore keeps the refresh token in the OS keyring.
type KeyringStore struct {
	Service string
	User    string
}

var _ TokenStore = (*KeyringStore)(nil)

func (s *KeyringStore) Read(_ context.Context) (string, error) {
	secret, err := keyring.Get(s.Service, s.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("read keyring: %w", err)
	}
	return secret, nil
}

func (s *KeyringStore) Write(_ context.Context, refreshToken string) error {
	if refreshToken == "" {
		err := keyring.Delete(s.Service, s.User)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("clear keyring: %w", err)
		}
		return nil
	}
	if err := keyring.Set(s.Service, s.User, refreshToken); err != nil {
		return fmt.Errorf("write keyring: %w", err)
	}
	return nil
}

// FileStore keeps the refresh token in a mode-0600 file, for systems without
// a usable keyring (headless servers, containers).
type FileStore struct {
	Path string
}

var _ TokenStore = (*FileStore)(nil)

func (s *FileStore) Read(_ context.Context) (string, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	token := string(data)
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (s *FileStore) Write(_ context.Context, refreshToken string) error {
	if refreshToken == "" {
		if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("clear token file: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	if err := os.WriteFile(s.Path, []byte(refreshToken), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// EnvStore reads the refresh token from an environment variable. Read-only.
type EnvStore struct {
	Variable string
}

var _ TokenStore = (*EnvStore)(nil)

func (s *EnvStore) Read(_ context.Context) (string, error) {
	token := os.Getenv(s.Variable)
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (s *EnvStore) Write(_ context.Context, _ string) error {
	return fmt.Errorf("env token storage is read-only")
}
