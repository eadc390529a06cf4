// Package keyring keeps the PostgreSQL connection string in the OS keyring so it
// never lands in the config file.
package keyring

import (
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/pacewise/internal/constants"
)

var (
	// ErrNotFound is returned when no credentials are stored for the profile.
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring cannot be reached.
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Source records where a resolved connection string came from.
type Source string

const (
	SourceEnv     Source = "env"
	SourceKeyring Source = "keyring"
	SourceConfig  Source = "config"
)

// Credentials addresses one keyring entry. Profiles let several databases coexist.
type Credentials struct {
	Profile string
}

func (c Credentials) user() string {
	if c.Profile == "" {
		return constants.DefaultKeyringUser
	}
	return constants.DefaultKeyringUser + ":" + c.Profile
}

func (c Credentials) Get() (string, error) {
	connStr, err := keyring.Get(constants.AppName, c.user())
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return connStr, nil
}

func (c Credentials) Set(connStr string) error {
	if connStr == "" {
		return errors.New("connection string cannot be empty")
	}
	if err := keyring.Set(constants.AppName, c.user(), connStr); err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}
	return nil
}

func (c Credentials) Delete() error {
	err := keyring.Delete(constants.AppName, c.user())
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}

// Resolve picks the database target: the environment override first, then the
// keyring, then the configured value. A missing or unavailable keyring falls through.
func (c Credentials) Resolve(configured string) (string, Source) {
	if v := os.Getenv(constants.EnvDBConnection); v != "" {
		return v, SourceEnv
	}
	if v, err := c.Get(); err == nil {
		return v, SourceKeyring
	}
	return configured, SourceConfig
}

// IsAvailable is a best-effort check of the OS keyring.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
