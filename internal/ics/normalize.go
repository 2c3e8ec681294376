package ics

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"chaletd/internal/date"
	appLog "chaletd/internal/log"
)

// maxOccurrencesPerEvent caps RRULE expansion so a pathological rule cannot
// flood a refresh cycle.
const maxOccurrencesPerEvent = 1000

// DayRange is a normalized blocked range: Start inclusive, End exclusive.
type DayRange struct {
	Start date.Date
	End   date.Date
}

// Window bounds recurrence expansion.
type Window struct {
	Start date.Date
	End   date.Date
}

// Normalize parses an ICS payload into day ranges.
//
// Only VEVENT components are considered; every other record type is ignored.
// Platform exports treat DTEND as exclusive of the checkout day, while the
// calendar UI wants the range blocked through checkout, so the parsed end
// date is pushed forward by one calendar day before emitting.
//
// A malformed event is logged and skipped without discarding the rest of the
// feed. A payload that fails to parse at all is a parse error for the whole
// source.
func Normalize(src Source, body []byte, win Window) ([]DayRange, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", src.ID, err)
	}

	ranges := make([]DayRange, 0)

	for _, ve := range cal.Events() {
		evRanges, perr := normalizeEvent(ve, win)
		if perr != nil {
			appLog.Error("feed event skipped", perr, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		ranges = append(ranges, evRanges...)
	}

	appLog.Debug("feed normalized", "id", src.ID, "block_count", len(ranges))
	return ranges, nil
}

// normalizeEvent converts one VEVENT into one or more day ranges: one for a
// plain event, one per occurrence for an RRULE event.
func normalizeEvent(ve *ical.VEvent, win Window) ([]DayRange, error) {
	start, err := ve.GetStartAt()
	if err != nil || start.IsZero() {
		return nil, errors.New("event has no usable DTSTART")
	}

	// DTEND is optional; a missing end means a single-day hold.
	end, err := ve.GetEndAt()
	if err != nil || end.IsZero() {
		end = start
	}

	startDate := date.Of(start, nil)
	endDate := date.Of(end, nil)
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("event end %s precedes start %s", endDate, startDate)
	}

	// nights is the length before the exclusive-to-inclusive adjustment.
	nights := startDate.DaysUntil(endDate)

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil && rruleProp.Value != "" {
		return expandRecurring(rruleProp.Value, start, nights, win)
	}

	return []DayRange{{Start: startDate, End: endDate.AddDays(1)}}, nil
}

// expandRecurring expands an RRULE into per-occurrence day ranges within the
// window, each spanning the base event's length plus the one-day adjustment.
func expandRecurring(rawRule string, dtstart time.Time, nights int, win Window) ([]DayRange, error) {
	r, err := rrule.StrToRRule(rawRule)
	if err != nil {
		return nil, fmt.Errorf("bad RRULE %q: %w", rawRule, err)
	}
	r.DTStart(dtstart)

	occTimes := r.Between(win.Start.Time(), win.End.Time(), true)
	if len(occTimes) > maxOccurrencesPerEvent {
		appLog.Warn("recurring feed event truncated", "rrule", rawRule, "cap", maxOccurrencesPerEvent)
		occTimes = occTimes[:maxOccurrencesPerEvent]
	}

	out := make([]DayRange, 0, len(occTimes))
	for _, occ := range occTimes {
		s := date.Of(occ, nil)
		out = append(out, DayRange{Start: s, End: s.AddDays(nights + 1)})
	}
	return out, nil
}
