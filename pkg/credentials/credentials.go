// Package credentials keeps API secrets out of config files. Secrets are
// looked up in the system keychain, then an encrypted file, then the
// environment.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Secret is one named credential, e.g. the outreach API key
type Secret struct {
	Name         string    `json:"name"`
	Value        string    `json:"value"`
	LastModified time.Time `json:"last_modified"`
}

// Store is one place secrets can live
type Store interface {
	// Kind names the store in status output
	Kind() string
	Set(secret *Secret) error
	Get(name string) (*Secret, error)
	Delete(name string) error
}

// Manager reads and writes secrets across stores in priority order
type Manager struct {
	stores []Store
}

// NewManager builds the default chain: keyring if usable, encrypted file, environment
func NewManager() (*Manager, error) {
	var stores []Store

	if ks, err := NewKeyringStore(); err == nil {
		stores = append(stores, ks)
	}

	dir, err := ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	fs, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, fs, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores builds a manager over explicit stores
func NewManagerWithStores(stores ...Store) *Manager {
	return &Manager{stores: stores}
}

// Set saves value under name in the first store that accepts it and
// returns that store's kind
func (m *Manager) Set(name, value string) (string, error) {
	if name == "" {
		return "", errors.New("secret name is required")
	}
	if value == "" {
		return "", errors.New("secret value is required")
	}

	secret := &Secret{Name: name, Value: value, LastModified: time.Now()}
	var lastErr error
	for _, store := range m.stores {
		err := store.Set(secret)
		if err == nil {
			return store.Kind(), nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return "", fmt.Errorf("failed to store secret: %w", lastErr)
	}
	return "", ErrStoreUnavailable
}

// Get returns the value of name from the first store holding it, with that store's kind
func (m *Manager) Get(name string) (string, string, error) {
	for _, store := range m.stores {
		if s, err := store.Get(name); err == nil && s != nil && s.Value != "" {
			return s.Value, store.Kind(), nil
		}
	}
	return "", "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Delete removes name from every writable store
func (m *Manager) Delete(name string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		err := store.Delete(name)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrStoreUnavailable):
		default:
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to delete secret: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// Kinds lists the configured stores in lookup order
func (m *Manager) Kinds() []string {
	kinds := make([]string, len(m.stores))
	for i, s := range m.stores {
		kinds[i] = s.Kind()
	}
	return kinds
}

// ConfigDir returns the per-user configuration directory, creating it if needed
func ConfigDir() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "placeharvest")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "placeharvest")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "placeharvest")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "placeharvest")
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// Mask hides all but the first and last four characters
func Mask(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrNotFound         = errors.New("secret not found")
	ErrInvalidSecret    = errors.New("invalid secret")
	ErrStoreUnavailable = errors.New("credential store unavailable")
)
