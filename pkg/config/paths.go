package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigDir returns the path to the config directory (~/.chainfiles).
func ConfigDir() (string, error) {
	if dir := os.Getenv("CHAINFILES_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".chainfiles"), nil
}

// EnsureConfigDir creates the config directory if it does not exist.
func EnsureConfigDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	return dir, nil
}

// DefaultPath returns the path of a file inside the config directory.
// Absolute paths are returned unchanged.
func DefaultPath(name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// KeystoreDir returns the configured keystore directory or ~/.chainfiles/keystore.
func (c *Config) KeystoreDir() (string, error) {
	if c.Wallet.KeystoreDir != "" {
		return c.Wallet.KeystoreDir, nil
	}
	return DefaultPath("keystore")
}
