package progress

import (
	"context"

	errs "placeharvest/pkg/errors"
	"placeharvest/pkg/logger"
)

// DefaultKey is the key progress is stored under when none is configured
const DefaultKey = "STATE"

// Store owns the progress state for one listing. Every mutation writes the
// whole state through to the backing and only then swaps the in-memory copy,
// so a failed write leaves both sides at the previous state.
type Store struct {
	backend Backend
	key     string
	state   State
	logger  logger.Logger
}

// NewStore creates a store over backend. Call Load before using it.
func NewStore(backend Backend, key string, log logger.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Store{
		backend: backend,
		key:     key,
		state:   NewState(),
		logger:  log.WithField("component", "progress"),
	}
}

// Load reads persisted state, defaulting to {0, {}} when absent
func (s *Store) Load(ctx context.Context) (State, error) {
	data, found, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return State{}, errs.Wrap(errs.ErrorTypeStoreUnavailable, "failed to read progress", err)
	}

	state := NewState()
	if found {
		state, err = Decode(data)
		if err != nil {
			return State{}, errs.Wrap(errs.ErrorTypeStoreUnavailable, "corrupt progress state", err)
		}
	}
	s.state = state

	s.logger.InfoWithFields("Progress loaded", map[string]interface{}{
		"key":    s.key,
		"found":  found,
		"cursor": state.Cursor,
		"seen":   len(state.Seen),
	})
	return state.Clone(), nil
}

// MarkProcessed adds identity to the seen set and advances the cursor past atIndex
func (s *Store) MarkProcessed(ctx context.Context, identity string, atIndex int) error {
	next := s.state.Clone()
	next.Seen[identity] = struct{}{}
	if atIndex+1 > next.Cursor {
		next.Cursor = atIndex + 1
	}
	return s.commit(ctx, next)
}

// MarkSkipped advances the cursor past atIndex without touching the seen set
func (s *Store) MarkSkipped(ctx context.Context, atIndex int) error {
	if atIndex+1 <= s.state.Cursor {
		return nil
	}
	next := s.state.Clone()
	next.Cursor = atIndex + 1
	return s.commit(ctx, next)
}

// Reset moves the cursor back to 0 and keeps the seen set
func (s *Store) Reset(ctx context.Context) error {
	next := s.state.Clone()
	next.Cursor = 0
	if err := s.commit(ctx, next); err != nil {
		return err
	}
	s.logger.InfoWithFields("Progress cursor reset", map[string]interface{}{
		"seen": len(next.Seen),
	})
	return nil
}

// Forget clears both the cursor and the seen set
func (s *Store) Forget(ctx context.Context) error {
	if err := s.commit(ctx, NewState()); err != nil {
		return err
	}
	s.logger.Warn("Progress forgotten")
	return nil
}

// Seen reports whether identity was emitted in any earlier run
func (s *Store) Seen(identity string) bool {
	return s.state.Has(identity)
}

// Cursor returns the current resume index
func (s *Store) Cursor() int {
	return s.state.Cursor
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() State {
	return s.state.Clone()
}

// Close releases the backing
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) commit(ctx context.Context, next State) error {
	data, err := Encode(next)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeStoreUnavailable, "failed to encode progress", err)
	}
	if err := s.backend.Put(ctx, s.key, data); err != nil {
		s.logger.WithError(err).Error("Progress write failed")
		return errs.Wrap(errs.ErrorTypeStoreUnavailable, "failed to persist progress", err)
	}
	s.state = next

	s.logger.DebugWithFields("Progress saved", map[string]interface{}{
		"cursor": next.Cursor,
		"seen":   len(next.Seen),
	})
	return nil
}
