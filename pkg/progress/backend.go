package progress

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"placeharvest/pkg/config"
	"placeharvest/pkg/logger"
)

// Backend is durable key/value storage for encoded progress state.
// Put must be durable when it returns nil.
type Backend interface {
	// Get returns the stored bytes, or found=false when key is absent
	Get(ctx context.Context, key string) (data []byte, found bool, err error)
	Put(ctx context.Context, key string, data []byte) error
	Close() error
}

// OpenBackend builds the backing selected by cfg.Backend
func OpenBackend(ctx context.Context, cfg config.ProgressConfig, log logger.Logger) (Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "file":
		dir := cfg.Directory
		if dir == "" {
			dataDir, err := DataDirectory()
			if err != nil {
				return nil, fmt.Errorf("failed to get data directory: %w", err)
			}
			dir = dataDir
		}
		return NewFileBackend(dir)
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dataDir, err := DataDirectory()
			if err != nil {
				return nil, fmt.Errorf("failed to get data directory: %w", err)
			}
			dsn = filepath.Join(dataDir, "progress.db")
		}
		return NewSQLiteBackend(ctx, dsn)
	case "postgres":
		return NewPostgresBackend(ctx, cfg.DSN, log)
	default:
		return nil, fmt.Errorf("unknown progress backend %q", cfg.Backend)
	}
}

// MemoryBackend keeps state in process memory
type MemoryBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backing
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (m *MemoryBackend) Put(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
