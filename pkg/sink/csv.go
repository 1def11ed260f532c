package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"

	"placeharvest/pkg/logger"
	"placeharvest/pkg/models"
)

// CSV appends one row per record under a fixed header
type CSV struct {
	path   string
	file   *os.File
	w      *csv.Writer
	seen   map[string]bool
	logger logger.Logger
	mu     sync.Mutex
}

// NewCSV opens path for appending. The header is written when the file is new.
func NewCSV(path string, log logger.Logger) (*CSV, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	s := &CSV{path: path, seen: make(map[string]bool), logger: log}
	existing, err := s.scanExisting()
	if err != nil {
		return nil, fmt.Errorf("failed to scan existing records: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	s.file = f
	s.w = csv.NewWriter(f)

	if !existing {
		if err := s.w.Write(csvHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		s.w.Flush()
		if err := s.w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}
	return s, nil
}

// scanExisting loads identities from an existing file and reports whether it had a header
func (s *CSV) scanExisting() (bool, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(header) == 0 || header[0] != csvHeader[0] {
		return false, fmt.Errorf("%s does not look like a place export", s.path)
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			return true, nil
		}
		if err != nil {
			// stop at a torn trailing row
			return true, nil
		}
		if len(row) > 0 && row[0] != "" {
			s.seen[row[0]] = true
		}
	}
}

// Append writes r as one row and flushes it
func (s *CSV) Append(ctx context.Context, r models.Record) error {
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

	if err := s.w.Write(csvRow(r)); err != nil {
		return unavailable("failed to write "+s.path, err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return unavailable("failed to flush "+s.path, err)
	}
	if err := s.file.Sync(); err != nil {
		return unavailable("failed to sync "+s.path, err)
	}

	s.seen[r.Identity] = true
	return nil
}

// Close flushes and closes the file
func (s *CSV) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	s.w.Flush()
	err := s.file.Close()
	s.file = nil
	return err
}
