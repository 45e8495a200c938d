// Package auth stores the inference API token in the OS keychain, with
// a file fallback for headless hosts.
package auth

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// TokenEnvVar overrides any stored token when set.
	TokenEnvVar = "MUTSCAN_API_TOKEN"

	keyringService = "mutscan"
	keyringUser    = "api_token"
	tokenFileName  = "api_token"
	tokenFileMode  = 0600
)

// SaveToken stores token in the OS keychain, falling back to a file
// under homeDir when no keychain is available.
func SaveToken(homeDir, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token is required")
	}

	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		return saveTokenFile(homeDir, token)
	}

	// Clean up a stale file copy if one exists.
	os.Remove(path.Join(homeDir, tokenFileName))
	return nil
}

// GetToken resolves the API token: environment variable first, then the
// OS keychain, then the file fallback. A missing token is not an error;
// local inference endpoints are typically unauthenticated.
func GetToken(homeDir string) string {
	if token := strings.TrimSpace(os.Getenv(TokenEnvVar)); token != "" {
		return token
	}

	if token, err := keyring.Get(keyringService, keyringUser); err == nil && token != "" {
		return token
	}

	b, err := os.ReadFile(path.Join(homeDir, tokenFileName))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// DeleteToken removes the token from both the keychain and the file
// fallback.
func DeleteToken(homeDir string) error {
	kerr := keyring.Delete(keyringService, keyringUser)
	ferr := os.Remove(path.Join(homeDir, tokenFileName))

	if kerr != nil && ferr != nil {
		return fmt.Errorf("no stored token found")
	}
	return nil
}

func saveTokenFile(homeDir, token string) error {
	if homeDir == "" {
		return fmt.Errorf("home directory is required")
	}
	tokenPath := path.Join(homeDir, tokenFileName)
	if err := os.WriteFile(tokenPath, []byte(token), tokenFileMode); err != nil {
		return fmt.Errorf("failed to write token file %s: %w", tokenPath, err)
	}
	return nil
}
