// Package credentials resolves the provider API key.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no credential is available. Callers map
// it to a missing-credential failure before any network activity.
var ErrNotFound = errors.New("no API credential found")

// Provider yields the bearer credential for provider calls. The
// credential is read once per processing call and not cached here, so
// a rotated key takes effect on the next call.
type Provider interface {
	Retrieve() (string, error)
}

// Static wraps a fixed key, typically from config.
type Static string

func (s Static) Retrieve() (string, error) {
	if s == "" {
		return "", ErrNotFound
	}
	return string(s), nil
}

// Env reads the key from an environment variable on every call.
type Env string

func (e Env) Retrieve() (string, error) {
	v := strings.TrimSpace(os.Getenv(string(e)))
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

// FileStore persists the key in the data directory with owner-only
// permissions. Used by the 'docuscan auth' command.
type FileStore struct {
	Path string
}

func NewFileStore(dataDir string) *FileStore {
	return &FileStore{Path: filepath.Join(dataDir, "credentials")}
}

func (f *FileStore) Retrieve() (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read credential file: %w", err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", ErrNotFound
	}
	return key, nil
}

func (f *FileStore) Save(key string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}
	if err := os.WriteFile(f.Path, []byte(strings.TrimSpace(key)+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return nil
}

// Chain tries each provider in order and returns the first credential.
type Chain []Provider

func (c Chain) Retrieve() (string, error) {
	for _, p := range c {
		key, err := p.Retrieve()
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", ErrNotFound
}
