// Package statestore persists the bridge's small local state: the daily
// session-status cache and the transient visual-fill hand-off payload.
package statestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vituali/sgp_bridge/internal/sgp"
)

const (
	statusFile      = "sgp_status_cache.json"
	pendingFillFile = "pending_fill.json"
)

// Store keeps each state key as one JSON file under dir.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a Store and ensures the directory exists.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("statestore: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// LoadSessionStatus reads the cached session status. The second return is
// false when no entry exists.
func (s *Store) LoadSessionStatus() (sgp.SessionStatus, bool, error) {
	var status sgp.SessionStatus
	ok, err := s.read(statusFile, &status)
	return status, ok, err
}

func (s *Store) SaveSessionStatus(status sgp.SessionStatus) error {
	return s.write(statusFile, status)
}

func (s *Store) ClearSessionStatus() error {
	return s.remove(statusFile)
}

// SavePendingFill stores the hand-off payload the fill routine reads once
// the occurrence tab is ready.
func (s *Store) SavePendingFill(sub sgp.OccurrenceSubmission) error {
	return s.write(pendingFillFile, sub)
}

// TakePendingFill reads and deletes the hand-off payload. The second return
// is false when none is pending.
func (s *Store) TakePendingFill() (sgp.OccurrenceSubmission, bool, error) {
	var sub sgp.OccurrenceSubmission
	ok, err := s.read(pendingFillFile, &sub)
	if err != nil || !ok {
		return sgp.OccurrenceSubmission{}, ok, err
	}
	if err := s.remove(pendingFillFile); err != nil {
		return sgp.OccurrenceSubmission{}, false, err
	}
	return sub, true, nil
}

// DropPendingFill discards the hand-off without reading it.
func (s *Store) DropPendingFill() error {
	return s.remove(pendingFillFile)
}

func (s *Store) read(name string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("statestore: read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("statestore: unmarshal %s: %w", name, err)
	}
	return true, nil
}

func (s *Store) write(name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("statestore: marshal %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("statestore: write %s: %w", name, err)
	}
	return nil
}

func (s *Store) remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("statestore: remove %s: %w", name, err)
	}
	return nil
}
