// Package store persists reservations and local bookings as JSON files.
// Writes go through a temp file + rename so a crash never leaves a
// half-written store, and all access serializes on a per-store mutex.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"chaletd/internal/model"
	"chaletd/internal/stage"
)

// Reservations is the reservation store backed by a single JSON file.
type Reservations struct {
	path string
	mu   sync.Mutex
}

func NewReservations(path string) *Reservations {
	return &Reservations{path: path}
}

// LoadAll reads the full reservation list. A missing file reads as an empty
// list; any other I/O or decode failure is returned to the caller (the
// scheduler treats it as fatal for the run).
func (s *Reservations) LoadAll() ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// SaveAll replaces the full reservation list.
func (s *Reservations) SaveAll(list []model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(list)
}

// Add appends one reservation (booking intake).
func (s *Reservations) Add(r model.Reservation) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadLocked()
	if err != nil {
		return err
	}
	list = append(list, r)
	return s.saveLocked(list)
}

// ApplyFlags merges sent-flag updates into the store, one record at a time.
//
// The file is re-read under the lock and each record's flags are ORed with
// the update for its id, so a reservation added by booking intake while the
// scheduler was running is preserved, and a flag set by either writer
// survives. Updates for ids no longer present are dropped. This replaces a
// whole-list read-then-overwrite, which would lose concurrent writes.
func (s *Reservations) ApplyFlags(updates map[string]stage.Flags) error {
	if len(updates) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadLocked()
	if err != nil {
		return err
	}
	for i := range list {
		if upd, ok := updates[list[i].ID]; ok {
			list[i].Sent = list[i].Sent.Merge(upd)
		}
	}
	return s.saveLocked(list)
}

func (s *Reservations) loadLocked() ([]model.Reservation, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Reservation{}, nil
		}
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}
	var list []model.Reservation
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", s.path, err)
	}
	if list == nil {
		list = []model.Reservation{}
	}
	return list, nil
}

func (s *Reservations) saveLocked(list []model.Reservation) error {
	return writeJSONFile(s.path, list)
}

// writeJSONFile writes v as indented JSON via temp file + rename.
func writeJSONFile(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	tmp, err := os.CreateTemp(dir, ".chaletd-store-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
