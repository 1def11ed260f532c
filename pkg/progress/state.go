package progress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// State is the persisted resume position plus the cross-run set of emitted identities
type State struct {
	Cursor int
	Seen   map[string]struct{}
}

// NewState returns the empty state {0, {}}
func NewState() State {
	return State{Seen: make(map[string]struct{})}
}

// Has reports whether identity is in the seen set
func (s State) Has(identity string) bool {
	_, ok := s.Seen[identity]
	return ok
}

// Clone returns a deep copy
func (s State) Clone() State {
	c := State{Cursor: s.Cursor, Seen: make(map[string]struct{}, len(s.Seen))}
	for id := range s.Seen {
		c.Seen[id] = struct{}{}
	}
	return c
}

// SeenList returns the seen identities in sorted order
func (s State) SeenList() []string {
	ids := make([]string, 0, len(s.Seen))
	for id := range s.Seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type wireState struct {
	Cursor int      `json:"cursor"`
	Seen   []string `json:"seen"`
}

type wireStateIn struct {
	Cursor *int            `json:"cursor"`
	Index  *int            `json:"index"`
	Seen   json.RawMessage `json:"seen"`
}

// Encode serialises s as {"cursor": n, "seen": [...]} with seen sorted
func Encode(s State) ([]byte, error) {
	return json.Marshal(wireState{Cursor: s.Cursor, Seen: s.SeenList()})
}

// Decode parses a persisted state. seen may be an array or a map of identity
// to true; the legacy {"index": n} shape is read as a cursor with no seen set.
func Decode(data []byte) (State, error) {
	state := NewState()
	if len(bytes.TrimSpace(data)) == 0 {
		return state, nil
	}

	var in wireStateIn
	if err := json.Unmarshal(data, &in); err != nil {
		return State{}, fmt.Errorf("decode progress state: %w", err)
	}

	switch {
	case in.Cursor != nil:
		state.Cursor = *in.Cursor
	case in.Index != nil:
		state.Cursor = *in.Index
	}
	if state.Cursor < 0 {
		return State{}, fmt.Errorf("decode progress state: negative cursor %d", state.Cursor)
	}

	seen := bytes.TrimSpace(in.Seen)
	if len(seen) == 0 || bytes.Equal(seen, []byte("null")) {
		return state, nil
	}

	if seen[0] == '[' {
		var ids []string
		if err := json.Unmarshal(seen, &ids); err != nil {
			return State{}, fmt.Errorf("decode seen list: %w", err)
		}
		for _, id := range ids {
			state.Seen[id] = struct{}{}
		}
		return state, nil
	}

	var flags map[string]bool
	if err := json.Unmarshal(seen, &flags); err != nil {
		return State{}, fmt.Errorf("decode seen map: %w", err)
	}
	for id, ok := range flags {
		if ok {
			state.Seen[id] = struct{}{}
		}
	}
	return state, nil
}
