package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"placeharvest/pkg/logger"
	"placeharvest/pkg/models"
)

// JSONL appends one JSON object per line
type JSONL struct {
	path   string
	file   *os.File
	seen   map[string]bool
	torn   bool
	logger logger.Logger
	mu     sync.Mutex
}

// NewJSONL opens path for appending, creating it and its directory if needed.
// Identities already in the file are loaded so they are not written twice.
func NewJSONL(path string, log logger.Logger) (*JSONL, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	s := &JSONL{path: path, seen: make(map[string]bool), logger: log}
	if s.logger == nil {
		s.logger = logger.NewNopLogger()
	}
	if err := s.scanExisting(); err != nil {
		return nil, fmt.Errorf("failed to scan existing records: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	s.file = f

	if s.torn {
		if _, err := f.WriteString("\n"); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to terminate last line: %w", err)
		}
	}
	return s, nil
}

func (s *JSONL) scanExisting() error {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var line struct {
			Identity string `json:"identity"`
		}
		// a torn last line from a crash is not fatal
		if json.Unmarshal(scanner.Bytes(), &line) == nil && line.Identity != "" {
			s.seen[line.Identity] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return err
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return err
	}
	s.torn = last[0] != '\n'
	return nil
}

// Append writes r and syncs the file
func (s *JSONL) Append(ctx context.Context, r models.Record) error {
	if err := ctx.Err(); err != nil {
		return unavailable("append interrupted", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return unavailable("sink is closed", os.ErrClosed)
	}
	if s.seen[r.Identity] {
		s.logger.DebugWithFields("Record already in sink", map[string]interface{}{"identity": r.Identity})
		return nil
	}

	data, err := json.Marshal(r)
	if err != nil {
		return unavailable("failed to encode record", err)
	}
	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return unavailable("failed to write "+s.path, err)
	}
	if err := s.file.Sync(); err != nil {
		return unavailable("failed to sync "+s.path, err)
	}

	s.seen[r.Identity] = true
	return nil
}

// Count returns the number of distinct records in the file
func (s *JSONL) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Close closes the file
func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
