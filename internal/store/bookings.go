package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"chaletd/internal/model"
)

// Bookings is the local booking store backed by a single JSON file. The
// aggregator reads it on every refresh; booking intake appends to it.
type Bookings struct {
	path string
	mu   sync.Mutex
}

func NewBookings(path string) *Bookings {
	return &Bookings{path: path}
}

// LoadAll reads the full booking list. A missing file reads as empty.
func (s *Bookings) LoadAll() ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Add appends one booking.
func (s *Bookings) Add(b model.Booking) error {
	if b.Start.IsZero() || b.End.IsZero() || !b.Start.Before(b.End) {
		return errors.New("store: booking start must be before end")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadLocked()
	if err != nil {
		return err
	}
	list = append(list, b)
	return writeJSONFile(s.path, list)
}

func (s *Bookings) loadLocked() ([]model.Booking, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Booking{}, nil
		}
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}
	var list []model.Booking
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", s.path, err)
	}
	if list == nil {
		list = []model.Booking{}
	}
	return list, nil
}
