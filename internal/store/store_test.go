package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaletd/internal/date"
	"chaletd/internal/model"
	"chaletd/internal/stage"
)

func testReservation(id string) model.Reservation {
	return model.Reservation{
		ID:        id,
		Name:      "Guest",
		Email:     id + "@example.com",
		Arrival:   date.MustParse("2024-07-01"),
		Departure: date.MustParse("2024-07-05"),
		CreatedAt: time.Now().UTC(),
	}
}

func TestReservationsMissingFileReadsEmpty(t *testing.T) {
	s := NewReservations(filepath.Join(t.TempDir(), "reservations.json"))
	list, err := s.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestReservationsSaveLoadRoundTrip(t *testing.T) {
	s := NewReservations(filepath.Join(t.TempDir(), "reservations.json"))
	r := testReservation(uuid.NewString())
	r.Sent.J7 = true

	require.NoError(t, s.SaveAll([]model.Reservation{r}))

	list, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, r.ID, list[0].ID)
	assert.Equal(t, "2024-07-01", list[0].Arrival.String())
	assert.True(t, list[0].Sent.J7)
	assert.False(t, list[0].Sent.J3)
}

func TestReservationsAddValidates(t *testing.T) {
	s := NewReservations(filepath.Join(t.TempDir(), "reservations.json"))

	bad := testReservation("r1")
	bad.Email = ""
	assert.Error(t, s.Add(bad))

	inverted := testReservation("r2")
	inverted.Arrival, inverted.Departure = inverted.Departure, inverted.Arrival
	assert.Error(t, s.Add(inverted))

	require.NoError(t, s.Add(testReservation("r3")))
	list, err := s.LoadAll()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestApplyFlagsMergesPerRecord(t *testing.T) {
	s := NewReservations(filepath.Join(t.TempDir(), "reservations.json"))
	require.NoError(t, s.SaveAll([]model.Reservation{testReservation("r1"), testReservation("r2")}))

	require.NoError(t, s.ApplyFlags(map[string]stage.Flags{
		"r1": {J7: true},
	}))

	list, err := s.LoadAll()
	require.NoError(t, err)
	assert.True(t, list[0].Sent.J7)
	assert.False(t, list[1].Sent.J7)
}

func TestApplyFlagsPreservesConcurrentIntake(t *testing.T) {
	// The scheduler loaded [r1], and while it was dispatching, booking
	// intake appended r2. The end-of-run flag merge must not wipe r2.
	s := NewReservations(filepath.Join(t.TempDir(), "reservations.json"))
	require.NoError(t, s.SaveAll([]model.Reservation{testReservation("r1")}))

	loaded, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	require.NoError(t, s.Add(testReservation("r2")))

	require.NoError(t, s.ApplyFlags(map[string]stage.Flags{"r1": {J0: true}}))

	list, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].Sent.J0)
	assert.Equal(t, "r2", list[1].ID)
}

func TestApplyFlagsIsMonotonic(t *testing.T) {
	s := NewReservations(filepath.Join(t.TempDir(), "reservations.json"))
	r := testReservation("r1")
	r.Sent.J7 = true
	require.NoError(t, s.SaveAll([]model.Reservation{r}))

	// An update carrying false for J7 cannot reset it.
	require.NoError(t, s.ApplyFlags(map[string]stage.Flags{"r1": {J3: true}}))

	list, err := s.LoadAll()
	require.NoError(t, err)
	assert.True(t, list[0].Sent.J7)
	assert.True(t, list[0].Sent.J3)
}

func TestApplyFlagsIgnoresUnknownIDs(t *testing.T) {
	s := NewReservations(filepath.Join(t.TempDir(), "reservations.json"))
	require.NoError(t, s.SaveAll([]model.Reservation{testReservation("r1")}))

	require.NoError(t, s.ApplyFlags(map[string]stage.Flags{"gone": {J7: true}}))

	list, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Sent.J7)
}

func TestReservationsReadsLegacyFlatFlags(t *testing.T) {
	// A reservations.json written by the site backend keeps the sent flags
	// flat on the record, not under a nested object.
	path := filepath.Join(t.TempDir(), "reservations.json")
	legacy := `[
  {
    "id": "r1",
    "name": "Guest",
    "email": "g@example.com",
    "arrival": "2024-07-01",
    "departure": "2024-07-05",
    "createdAt": "2024-06-01T12:00:00Z",
    "sentJ7": true,
    "sentJ3": true,
    "sentJ1": false,
    "sentJ0": false,
    "sentJ1Depart": false,
    "sentJplus1": false
  }
]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

	list, err := NewReservations(path).LoadAll()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Sent.J7)
	assert.True(t, list[0].Sent.J3)
	assert.False(t, list[0].Sent.J1)
}

func TestReservationsWritesFlatFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reservations.json")
	s := NewReservations(path)
	r := testReservation("r1")
	r.Sent.J7 = true
	require.NoError(t, s.SaveAll([]model.Reservation{r}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"sentJ7": true`)
	assert.NotContains(t, string(raw), `"sent":`)
}

func TestReservationsCorruptFileSurfacesError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reservations.json")
	require.NoError(t, os.WriteFile(path, []byte("{oops"), 0o600))

	_, err := NewReservations(path).LoadAll()
	assert.Error(t, err)
}

func TestBookingsAddAndLoad(t *testing.T) {
	s := NewBookings(filepath.Join(t.TempDir(), "bookings.json"))

	list, err := s.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, list)

	b := model.Booking{
		ID:        uuid.NewString(),
		Name:      "Guest",
		Email:     "g@example.com",
		Start:     date.MustParse("2024-08-01"),
		End:       date.MustParse("2024-08-04"),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.Add(b))

	inverted := b
	inverted.Start, inverted.End = inverted.End, inverted.Start
	assert.Error(t, s.Add(inverted))

	list, err = s.LoadAll()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, "2024-08-01", list[0].Start.String())
}
