// Package sched drives the daily notification pass over the reservation
// store.
package sched

import (
	"context"
	"fmt"

	"chaletd/internal/date"
	appLog "chaletd/internal/log"
	"chaletd/internal/mailer"
	"chaletd/internal/stage"
	"chaletd/internal/store"
)

// DispatchFailure records one failed send, kept for observability.
type DispatchFailure struct {
	ReservationID string
	Email         string
	Stage         stage.Stage
	Err           error
}

// RunSummary reports what one scheduler pass did.
type RunSummary struct {
	Day          date.Date
	Reservations int
	Sent         int
	Failures     []DispatchFailure
	// Missed counts stages whose trigger day passed without a send; they
	// will never fire and are reported, not retried.
	Missed int
}

// Scheduler walks the reservation list once per invocation and dispatches
// every due stage. It is nominally triggered once daily by cron.
type Scheduler struct {
	store     *store.Reservations
	messenger mailer.Messenger
}

func New(st *store.Reservations, m mailer.Messenger) *Scheduler {
	return &Scheduler{store: st, messenger: m}
}

// Run performs one notification pass for the given day.
//
// Reservations are processed in load order. For each due stage the messenger
// is invoked once; a success flips the flag in memory immediately, so a
// later failure in the same run cannot cause a duplicate. A dispatch failure
// leaves the flag false (it retries on the next run while the offset still
// holds) and never aborts the run. Flag mutations are committed to the store
// once, at the end, through the per-record monotonic merge.
//
// A store failure on load or persist is fatal for the run and returned.
func (s *Scheduler) Run(ctx context.Context, today date.Date) (RunSummary, error) {
	summary := RunSummary{Day: today}

	reservations, err := s.store.LoadAll()
	if err != nil {
		return summary, fmt.Errorf("sched: load reservations: %w", err)
	}
	summary.Reservations = len(reservations)

	appLog.Info("notification run started", "day", today.String(), "reservations", len(reservations))

	updates := make(map[string]stage.Flags)

	for _, r := range reservations {
		sent := r.Sent

		for _, st := range stage.Due(today, r.Arrival, r.Departure, sent) {
			if err := s.messenger.SendStage(ctx, st, r); err != nil {
				appLog.Error("stage dispatch failed", err,
					"reservation", r.ID, "email", r.Email, "stage", st.String())
				summary.Failures = append(summary.Failures, DispatchFailure{
					ReservationID: r.ID,
					Email:         r.Email,
					Stage:         st,
					Err:           err,
				})
				continue
			}

			sent = sent.MarkSent(st)
			updates[r.ID] = sent
			summary.Sent++
			appLog.Info("stage sent", "reservation", r.ID, "email", r.Email, "stage", st.String())
		}

		for _, st := range stage.Missed(today, r.Arrival, r.Departure, sent) {
			summary.Missed++
			appLog.Warn("stage window missed; will never fire",
				"reservation", r.ID, "email", r.Email, "stage", st.String(), "day", today.String())
		}
	}

	if err := s.store.ApplyFlags(updates); err != nil {
		return summary, fmt.Errorf("sched: persist flags: %w", err)
	}

	appLog.Info("notification run finished",
		"day", today.String(),
		"sent", summary.Sent,
		"failed", len(summary.Failures),
		"missed", summary.Missed,
	)
	return summary, nil
}
