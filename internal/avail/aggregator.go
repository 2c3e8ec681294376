// Package avail merges external calendar feeds and local bookings into a
// single availability snapshot.
package avail

import (
	"context"
	"sync"
	"time"

	"chaletd/internal/date"
	"chaletd/internal/ics"
	appLog "chaletd/internal/log"
	"chaletd/internal/model"
)

// Display hints attached to blocks for the calendar UI. Remote platform
// blocks render as a background wash, site bookings as solid entries.
const (
	remoteDisplay = "background"
	remoteColor   = "#ffcccc"
	localDisplay  = "block"
	localColor    = "#cce5ff"
)

// BookingSource supplies locally created bookings for the "local"
// contribution to the snapshot.
type BookingSource interface {
	LoadAll() ([]model.Booking, error)
}

// Aggregator owns the merged availability snapshot. Refresh recomputes it
// wholesale; Snapshot reads the latest complete one. The two never block
// each other for longer than a pointer swap.
type Aggregator struct {
	fetcher     *ics.Fetcher
	sources     []ics.Source
	bookings    BookingSource
	horizonDays int

	mu          sync.RWMutex
	snapshot    []model.AvailabilityBlock
	refreshedAt time.Time
}

// New creates an Aggregator over the given feed sources and local booking
// store. horizonDays bounds recurrence expansion.
func New(fetcher *ics.Fetcher, sources []ics.Source, bookings BookingSource, horizonDays int) *Aggregator {
	if horizonDays <= 0 {
		horizonDays = 365
	}
	return &Aggregator{
		fetcher:     fetcher,
		sources:     sources,
		bookings:    bookings,
		horizonDays: horizonDays,
	}
}

// Refresh recomputes the snapshot from every configured source plus local
// bookings, then replaces the previous snapshot atomically.
//
// A source that fails to fetch or parse is logged and contributes nothing
// this cycle; its previous blocks are dropped, not carried over. Overlapping
// blocks across sources are all retained; the consuming UI renders both.
func (a *Aggregator) Refresh(ctx context.Context) {
	today := date.Today(nil)
	win := ics.Window{
		Start: today.AddDays(-1),
		End:   today.AddDays(a.horizonDays),
	}

	blocks := make([]model.AvailabilityBlock, 0)
	okSources := 0

	results, _ := a.fetcher.FetchAll(ctx, a.sources)
	for _, res := range results {
		ranges, err := ics.Normalize(res.Source, res.Body, win)
		if err != nil {
			appLog.Error("feed parse failed; skipping source this cycle", err, "id", res.Source.ID)
			continue
		}
		okSources++
		for _, r := range ranges {
			blocks = append(blocks, model.AvailabilityBlock{
				Start:           r.Start,
				End:             r.End,
				Source:          res.Source.ID,
				Display:         remoteDisplay,
				BackgroundColor: remoteColor,
			})
		}
	}

	local, err := a.bookings.LoadAll()
	if err != nil {
		// Local bookings unavailable is a store problem, not a feed problem;
		// publish what the feeds produced rather than nothing.
		appLog.Error("local bookings unavailable this cycle", err)
	} else {
		for _, b := range local {
			blocks = append(blocks, model.AvailabilityBlock{
				Start:           b.Start,
				End:             b.End,
				Source:          model.LocalSource,
				Display:         localDisplay,
				BackgroundColor: localColor,
			})
		}
	}

	a.mu.Lock()
	a.snapshot = blocks
	a.refreshedAt = time.Now()
	a.mu.Unlock()

	appLog.Info("availability refreshed",
		"blocks", len(blocks),
		"sources_ok", okSources,
		"sources_total", len(a.sources),
		"local", len(local),
	)
}

// Snapshot returns a copy of the most recently computed block list. It never
// blocks on a refresh in progress and is empty before the first refresh.
func (a *Aggregator) Snapshot() []model.AvailabilityBlock {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]model.AvailabilityBlock, len(a.snapshot))
	copy(out, a.snapshot)
	return out
}

// RefreshedAt returns when the snapshot was last replaced (zero before the
// first refresh).
func (a *Aggregator) RefreshedAt() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.refreshedAt
}
