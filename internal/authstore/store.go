// Package authstore implements the on-disk credential vault described in
// SPEC_FULL.md §4.2, grounded on
// original_source/src/vibecore/auth/storage.py and models.py.
package authstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/serialx/vibecore/internal/core"
)

// Store is a JSON file mapping provider name to Credentials, at
// {dataDir}/auth.json with mode 0600, grounded on SecureAuthStorage.
type Store struct {
	path string
	mu   sync.Mutex
}

// DefaultDataDir returns ~/.local/share/vibecore.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "vibecore"), nil
}

// New constructs a Store backed by {dataDir}/auth.json.
func New(dataDir string) (*Store, error) {
	if dataDir == "" {
		d, err := DefaultDataDir()
		if err != nil {
			return nil, err
		}
		dataDir = d
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return &Store{path: filepath.Join(dataDir, "auth.json")}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

func (s *Store) loadAll() (map[string]core.Credentials, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]core.Credentials{}, nil
	}
	if err != nil {
		return map[string]core.Credentials{}, nil
	}
	var all map[string]core.Credentials
	if err := json.Unmarshal(data, &all); err != nil {
		// Malformed JSON is treated as empty, per §4.2.
		return map[string]core.Credentials{}, nil
	}
	if all == nil {
		all = map[string]core.Credentials{}
	}
	return all, nil
}

func (s *Store) writeAll(all map[string]core.Credentials) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return err
	}
	return os.Chmod(s.path, 0o600)
}

// Save merges creds under provider into the vault.
func (s *Store) Save(provider string, creds core.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadAll()
	if err != nil {
		return err
	}
	all[provider] = creds
	return s.writeAll(all)
}

// Load returns the stored credentials for provider, or nil if absent.
func (s *Store) Load(provider string) (*core.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	creds, ok := all[provider]
	if !ok {
		return nil, nil
	}
	return &creds, nil
}

// Remove deletes the credentials for provider, if present.
func (s *Store) Remove(provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadAll()
	if err != nil {
		return err
	}
	delete(all, provider)
	return s.writeAll(all)
}

// Exists reports whether the vault file exists and has meaningful content.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.path)
	if err != nil {
		return false
	}
	return info.Size() > 2
}
