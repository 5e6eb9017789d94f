// Package memory provides an in-memory implementation of the sheetsync.Table interface.
// This implementation is primarily intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/mihaimyh/sheetsync/pkg/sheetsync"
)

// Storage implements sheetsync.Table using an in-memory slice of rows
type Storage struct {
	mu   sync.RWMutex
	rows [][]string
}

// New creates a new in-memory table, optionally seeded with rows
// (for example a header row).
func New(rows ...[]string) *Storage {
	s := &Storage{}
	for _, r := range rows {
		s.rows = append(s.rows, copyRow(r))
	}
	return s
}

// Find implements sheetsync.Table
func (s *Storage) Find(ctx context.Context, column int, value string) (int, bool, error) {
	if column < 1 {
		return 0, false, fmt.Errorf("%w: column %d", sheetsync.ErrCellOutOfRange, column)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, r := range s.rows {
		if column <= len(r) && sheetsync.MatchesID(r[column-1], value) {
			return i + 1, true, nil
		}
	}
	return 0, false, nil
}

// ReadCell implements sheetsync.Table
func (s *Storage) ReadCell(ctx context.Context, row, column int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if row < 1 || row > len(s.rows) || column < 1 {
		return "", fmt.Errorf("%w: row %d column %d", sheetsync.ErrCellOutOfRange, row, column)
	}

	// Trailing empty cells are not stored, same as a worksheet range read
	r := s.rows[row-1]
	if column > len(r) {
		return "", nil
	}
	return r[column-1], nil
}

// WriteCell implements sheetsync.Table
func (s *Storage) WriteCell(ctx context.Context, row, column int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row < 1 || row > len(s.rows) || column < 1 {
		return fmt.Errorf("%w: row %d column %d", sheetsync.ErrCellOutOfRange, row, column)
	}

	r := s.rows[row-1]
	for len(r) < column {
		r = append(r, "")
	}
	r[column-1] = value
	s.rows[row-1] = r
	return nil
}

// AppendRow implements sheetsync.Table
func (s *Storage) AppendRow(ctx context.Context, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = append(s.rows, copyRow(values))
	return nil
}

// Rows returns a copy of every stored row
func (s *Storage) Rows() [][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = copyRow(r)
	}
	return out
}

// Len returns the number of stored rows
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func copyRow(r []string) []string {
	out := make([]string, len(r))
	copy(out, r)
	return out
}
