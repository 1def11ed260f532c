package credentials

import (
	"os"
	"strings"
)

// EnvironmentStore reads secrets from PLACEHARVEST_<NAME>_API_KEY. It is read-only.
type EnvironmentStore struct {
	// aliases are extra variables checked per secret name
	aliases map[string][]string
}

// NewEnvironmentStore creates the store; the "openai" secret also honours OPENAI_API_KEY
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{aliases: map[string][]string{
		"openai": {"OPENAI_API_KEY"},
	}}
}

func (e *EnvironmentStore) Kind() string { return "environment" }

// Set is not supported for environment variables
func (e *EnvironmentStore) Set(secret *Secret) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Get(name string) (*Secret, error) {
	if name == "" {
		return nil, ErrInvalidSecret
	}
	for _, key := range e.variables(name) {
		if v := os.Getenv(key); v != "" {
			return &Secret{Name: name, Value: v}, nil
		}
	}
	return nil, ErrNotFound
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) variables(name string) []string {
	key := "PLACEHARVEST_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_API_KEY"
	return append([]string{key}, e.aliases[name]...)
}
