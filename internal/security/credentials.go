package security

import (
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// Keyring service name
	keyringService = "orderdash"
	// PasswordEnv overrides every other password source
	PasswordEnv = "ORDERDASH_SNOWFLAKE_PASSWORD"
)

// CredentialStore keeps Snowflake passwords out of config.yaml by storing
// them in the OS keyring, keyed by account and user.
type CredentialStore struct {
	service string
}

// NewCredentialStore creates a store bound to the orderdash keyring service
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{service: keyringService}
}

func credentialKey(account, username string) string {
	return strings.ToLower(account) + "/" + strings.ToLower(username)
}

// StorePassword saves the password for account/username
func (s *CredentialStore) StorePassword(account, username, password string) error {
	if account == "" || username == "" {
		return fmt.Errorf("account and username are required")
	}
	if err := keyring.Set(s.service, credentialKey(account, username), password); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// DeletePassword removes a stored password. Deleting a missing entry is not an error.
func (s *CredentialStore) DeletePassword(account, username string) error {
	err := keyring.Delete(s.service, credentialKey(account, username))
	if err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

// ResolvePassword picks the password to connect with: the environment
// variable first, then the configured value, then the keyring.
func (s *CredentialStore) ResolvePassword(account, username, configured string) (string, error) {
	if env := os.Getenv(PasswordEnv); env != "" {
		return env, nil
	}
	if configured != "" {
		return configured, nil
	}

	password, err := keyring.Get(s.service, credentialKey(account, username))
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get from keyring: %w", err)
	}
	return password, nil
}
