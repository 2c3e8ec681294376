package avail

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaletd/internal/date"
	"chaletd/internal/ics"
	"chaletd/internal/model"
	"chaletd/internal/store"
)

func feedServer(t *testing.T, events string) *httptest.Server {
	t.Helper()
	body := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n" + events + "END:VCALENDAR\r\n"
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(body))
	}))
}

func event(uid, start, end string) string {
	return "BEGIN:VEVENT\r\nUID:" + uid + "\r\nDTSTART;VALUE=DATE:" + start +
		"\r\nDTEND;VALUE=DATE:" + end + "\r\nSUMMARY:Reserved\r\nEND:VEVENT\r\n"
}

func futureDates(t *testing.T, startOffset, nights int) (string, string, date.Date, date.Date) {
	t.Helper()
	start := date.Today(nil).AddDays(startOffset)
	end := start.AddDays(nights)
	compact := func(d date.Date) string { return d.Time().Format("20060102") }
	return compact(start), compact(end), start, end
}

func newBookingStore(t *testing.T, bookings ...model.Booking) *store.Bookings {
	t.Helper()
	s := store.NewBookings(filepath.Join(t.TempDir(), "bookings.json"))
	for _, b := range bookings {
		require.NoError(t, s.Add(b))
	}
	return s
}

func bySource(blocks []model.AvailabilityBlock) map[string][]model.AvailabilityBlock {
	out := map[string][]model.AvailabilityBlock{}
	for _, b := range blocks {
		out[b.Source] = append(out[b.Source], b)
	}
	return out
}

func TestSnapshotEmptyBeforeFirstRefresh(t *testing.T) {
	agg := New(ics.NewFetcher(time.Second), nil, newBookingStore(t), 365)
	assert.Empty(t, agg.Snapshot())
	assert.True(t, agg.RefreshedAt().IsZero())
}

func TestRefreshMergesFeedsAndLocalBookings(t *testing.T) {
	s1, e1, _, _ := futureDates(t, 10, 5)
	s2, e2, _, _ := futureDates(t, 30, 3)

	feedA := feedServer(t, event("a1", s1, e1))
	defer feedA.Close()
	feedB := feedServer(t, event("b1", s2, e2))
	defer feedB.Close()

	_, _, localStart, localEnd := futureDates(t, 50, 4)
	bookings := newBookingStore(t, model.Booking{
		ID: "bk1", Name: "Guest", Email: "g@example.com",
		Start: localStart, End: localEnd, CreatedAt: time.Now().UTC(),
	})

	agg := New(ics.NewFetcher(5*time.Second), []ics.Source{
		{ID: "airbnb", URL: feedA.URL},
		{ID: "booking", URL: feedB.URL},
	}, bookings, 365)

	agg.Refresh(context.Background())

	blocks := bySource(agg.Snapshot())
	require.Len(t, blocks["airbnb"], 1)
	require.Len(t, blocks["booking"], 1)
	require.Len(t, blocks[model.LocalSource], 1)

	// Remote blocks carry the end-inclusive adjustment; local ones do not.
	remote := blocks["airbnb"][0]
	assert.Equal(t, 6, remote.Start.DaysUntil(remote.End))
	assert.Equal(t, "background", remote.Display)

	local := blocks[model.LocalSource][0]
	assert.Equal(t, localStart, local.Start)
	assert.Equal(t, localEnd, local.End)
	assert.Equal(t, "block", local.Display)

	assert.False(t, agg.RefreshedAt().IsZero())
}

func TestRefreshSkipsUnreachableFeed(t *testing.T) {
	s1, e1, _, _ := futureDates(t, 10, 2)
	s2, e2, _, _ := futureDates(t, 20, 2)

	feedA := feedServer(t, event("a1", s1, e1))
	defer feedA.Close()
	feedB := feedServer(t, event("b1", s2, e2))
	defer feedB.Close()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close() // connection refused from now on

	_, _, localStart, localEnd := futureDates(t, 40, 1)
	bookings := newBookingStore(t, model.Booking{
		ID: "bk1", Name: "Guest", Email: "g@example.com",
		Start: localStart, End: localEnd, CreatedAt: time.Now().UTC(),
	})

	agg := New(ics.NewFetcher(2*time.Second), []ics.Source{
		{ID: "airbnb", URL: feedA.URL},
		{ID: "gone", URL: dead.URL},
		{ID: "booking", URL: feedB.URL},
	}, bookings, 365)

	agg.Refresh(context.Background())

	blocks := bySource(agg.Snapshot())
	assert.Len(t, blocks["airbnb"], 1)
	assert.Len(t, blocks["booking"], 1)
	assert.Len(t, blocks[model.LocalSource], 1)
	assert.Empty(t, blocks["gone"])
}

func TestRefreshReplacesSnapshotWholesale(t *testing.T) {
	s1, e1, _, _ := futureDates(t, 10, 2)

	healthy := true
	body := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n" + event("a1", s1, e1) + "END:VCALENDAR\r\n"
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	defer feed.Close()

	agg := New(ics.NewFetcher(2*time.Second), []ics.Source{{ID: "airbnb", URL: feed.URL}}, newBookingStore(t), 365)

	agg.Refresh(context.Background())
	require.Len(t, agg.Snapshot(), 1)

	// The feed goes down: its previous blocks are dropped, not carried over.
	healthy = false
	agg.Refresh(context.Background())
	assert.Empty(t, agg.Snapshot())
}

func TestSnapshotReturnsACopy(t *testing.T) {
	s1, e1, _, _ := futureDates(t, 10, 2)
	feed := feedServer(t, event("a1", s1, e1))
	defer feed.Close()

	agg := New(ics.NewFetcher(2*time.Second), []ics.Source{{ID: "airbnb", URL: feed.URL}}, newBookingStore(t), 365)
	agg.Refresh(context.Background())

	snap := agg.Snapshot()
	require.Len(t, snap, 1)
	snap[0].Source = "tampered"

	assert.Equal(t, "airbnb", agg.Snapshot()[0].Source)
}
