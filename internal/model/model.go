package model

import (
	"encoding/json"
	"errors"
	"time"

	"chaletd/internal/date"
	"chaletd/internal/stage"
)

// Reservation is a stay booked through the site, as persisted in
// reservations.json. The scheduler reads these and mutates only Sent.
type Reservation struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`

	Arrival   date.Date `json:"arrival"`
	Departure date.Date `json:"departure"`

	CreatedAt time.Time `json:"createdAt"`

	// Sent records which communication stages have already been dispatched.
	// Flags are monotonic: once true they are never reset.
	Sent stage.Flags `json:"-"`
}

// The sent flags live flat on the reservation record (sentJ7, sentJ3, ...),
// matching the reservations.json layout the site backend has written since
// its first version.

func (r Reservation) MarshalJSON() ([]byte, error) {
	type alias Reservation
	return json.Marshal(struct {
		alias
		stage.Flags
	}{alias(r), r.Sent})
}

func (r *Reservation) UnmarshalJSON(b []byte) error {
	type alias Reservation
	aux := struct {
		*alias
		*stage.Flags
	}{(*alias)(r), &r.Sent}
	return json.Unmarshal(b, &aux)
}

// Nights is the stay length in nights (departure - arrival in days).
func (r Reservation) Nights() int {
	return r.Arrival.DaysUntil(r.Departure)
}

// Validate checks the invariants booking intake must guarantee.
func (r Reservation) Validate() error {
	if r.Name == "" {
		return errors.New("reservation: name is required")
	}
	if r.Email == "" {
		return errors.New("reservation: email is required")
	}
	if r.Arrival.IsZero() || r.Departure.IsZero() {
		return errors.New("reservation: arrival and departure are required")
	}
	if !r.Arrival.Before(r.Departure) {
		return errors.New("reservation: arrival must be before departure")
	}
	return nil
}

// Booking is a locally created booking (site intake), the "local"
// contribution to the availability snapshot.
type Booking struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`

	Start date.Date `json:"startDate"`
	End   date.Date `json:"endDate"`

	Options   []string  `json:"options,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// LocalSource tags blocks that come from site bookings rather than a feed.
const LocalSource = "local"

// AvailabilityBlock is one contiguous blocked date range in the merged
// availability view. Start is inclusive, End exclusive; Start < End.
// Display and BackgroundColor are hints for the calendar UI and carry no
// meaning here.
type AvailabilityBlock struct {
	Start  date.Date `json:"start"`
	End    date.Date `json:"end"`
	Source string    `json:"source"`

	Display         string `json:"display,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
}
