package secret

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// KeychainService is the keychain service name rite stores variables under.
const KeychainService = "rite"

// itemNotFound is the exit code of `security` for a missing item.
const itemNotFound = 44

// KeychainStore implements Store using the macOS Keychain via the
// `security` CLI tool.
type KeychainStore struct {
	service string
}

// NewKeychainStore creates a KeychainStore for service. Empty means
// KeychainService.
func NewKeychainStore(service string) *KeychainStore {
	if service == "" {
		service = KeychainService
	}
	return &KeychainStore{service: service}
}

// Set stores a secret, replacing any existing value.
func (k *KeychainStore) Set(key string, value []byte) error {
	cmd := exec.Command("security", "add-generic-password",
		"-a", key,
		"-s", k.service,
		"-w", string(value),
		"-U", // update if exists
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("keychain set %s: %s: %w", key, strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Get retrieves a secret. A missing item is not an error.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	cmd := exec.Command("security", "find-generic-password",
		"-a", key,
		"-s", k.service,
		"-w", // output only the password
	)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == itemNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("keychain get %s: %w", key, err)
	}
	return []byte(strings.TrimSpace(string(out))), nil
}

// Delete removes a secret. Deleting a missing item is not an error.
func (k *KeychainStore) Delete(key string) error {
	cmd := exec.Command("security", "delete-generic-password",
		"-a", key,
		"-s", k.service,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == itemNotFound {
			return nil
		}
		return fmt.Errorf("keychain delete %s: %s: %w", key, strings.TrimSpace(string(out)), err)
	}
	return nil
}
