// Package settings stores locsync user settings in the XDG data
// directory:
//
//	$XDG_DATA_HOME/locsync/  (default: ~/.local/share/locsync/)
//
// The only file is auth.json, a JSON object keyed by provider ID
// holding API keys. File permissions are 0600.
//
// Lookup order for API keys:
//  1. --api-key flag (highest priority)
//  2. LOCSYNC_API_KEY environment variable
//  3. This credential store
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dataDirName = "locsync"
	authFile    = "auth.json"
)

// Entry holds the stored credential for one provider.
type Entry struct {
	// Key is the API key.
	Key string `json:"key"`
	// BaseURL optionally overrides the provider endpoint.
	BaseURL string `json:"baseUrl,omitempty"`
}

// Store holds all provider credentials, keyed by provider ID.
type Store map[string]*Entry

// dataDir returns the locsync data directory, honoring XDG_DATA_HOME.
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

// AuthFilePath returns the path of auth.json.
func AuthFilePath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, authFile), nil
}

// Load reads the credential store. A missing file is an empty store.
func Load() (Store, error) {
	path, err := AuthFilePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Store{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if store == nil {
		store = Store{}
	}
	return store, nil
}

// Save writes the credential store with owner-only permissions.
func (s Store) Save() error {
	path, err := AuthFilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// GetAPIKey returns the stored API key for a provider, or "" when the
// store is unreadable or has no entry. Errors are swallowed: a missing
// credential surfaces later as a configuration error with a better
// message.
func GetAPIKey(provider string) string {
	store, err := Load()
	if err != nil {
		return ""
	}
	if entry, ok := store[provider]; ok {
		return entry.Key
	}
	return ""
}

// SetAPIKey stores an API key for a provider.
func SetAPIKey(provider, key string) error {
	store, err := Load()
	if err != nil {
		return err
	}
	store[provider] = &Entry{Key: key}
	return store.Save()
}
