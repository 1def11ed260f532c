package credentials

import "sync"

// MemoryStore keeps secrets in memory. Error fields inject failures in tests.
type MemoryStore struct {
	secrets map[string]Secret
	mu      sync.RWMutex

	SetError    error
	GetError    error
	DeleteError error
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[string]Secret)}
}

func (m *MemoryStore) Kind() string { return "memory" }

func (m *MemoryStore) Set(secret *Secret) error {
	if m.SetError != nil {
		return m.SetError
	}
	if secret == nil || secret.Name == "" {
		return ErrInvalidSecret
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[secret.Name] = *secret
	return nil
}

func (m *MemoryStore) Get(name string) (*Secret, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.secrets[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Delete(name string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.secrets[name]; !ok {
		return ErrNotFound
	}
	delete(m.secrets, name)
	return nil
}

// Count returns the number of stored secrets
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.secrets)
}
