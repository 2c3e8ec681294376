// Package stage defines the six guest-communication stages and the pure
// policy deciding which stages are due for a reservation on a given day.
package stage

// Stage identifies one automated guest communication, keyed to a whole-day
// offset from arrival or departure.
type Stage int

const (
	// SevenDaysOut: practical information, 7 days before arrival.
	SevenDaysOut Stage = iota
	// ThreeDaysOut: stay preparation, 3 days before arrival.
	ThreeDaysOut
	// OneDayOut: arrival instructions and door code, the day before arrival.
	OneDayOut
	// DayOf: confirmation on the arrival day.
	DayOf
	// DepartureEve: departure instructions.
	DepartureEve
	// PostStay: thank-you and review request.
	PostStay
)

// All lists every stage in offset order.
var All = []Stage{SevenDaysOut, ThreeDaysOut, OneDayOut, DayOf, DepartureEve, PostStay}

func (s Stage) String() string {
	switch s {
	case SevenDaysOut:
		return "seven-days-out"
	case ThreeDaysOut:
		return "three-days-out"
	case OneDayOut:
		return "one-day-out"
	case DayOf:
		return "day-of"
	case DepartureEve:
		return "departure-eve"
	case PostStay:
		return "post-stay"
	default:
		return "unknown"
	}
}

// Flags records which stages have been dispatched for one reservation.
// The JSON field names match the reservation file written by the site
// backend since its first version.
type Flags struct {
	J7       bool `json:"sentJ7"`
	J3       bool `json:"sentJ3"`
	J1       bool `json:"sentJ1"`
	J0       bool `json:"sentJ0"`
	J1Depart bool `json:"sentJ1Depart"`
	Jplus1   bool `json:"sentJplus1"`
}

// Sent reports whether the given stage has already been dispatched.
func (f Flags) Sent(s Stage) bool {
	switch s {
	case SevenDaysOut:
		return f.J7
	case ThreeDaysOut:
		return f.J3
	case OneDayOut:
		return f.J1
	case DayOf:
		return f.J0
	case DepartureEve:
		return f.J1Depart
	case PostStay:
		return f.Jplus1
	default:
		return false
	}
}

// MarkSent returns a copy of f with the given stage's flag set. Flags only
// ever go from false to true.
func (f Flags) MarkSent(s Stage) Flags {
	switch s {
	case SevenDaysOut:
		f.J7 = true
	case ThreeDaysOut:
		f.J3 = true
	case OneDayOut:
		f.J1 = true
	case DayOf:
		f.J0 = true
	case DepartureEve:
		f.J1Depart = true
	case PostStay:
		f.Jplus1 = true
	}
	return f
}

// Merge ORs two flag sets. Used by the store to combine in-memory scheduler
// state with whatever is on disk, so a flag set by either side survives.
func (f Flags) Merge(other Flags) Flags {
	return Flags{
		J7:       f.J7 || other.J7,
		J3:       f.J3 || other.J3,
		J1:       f.J1 || other.J1,
		J0:       f.J0 || other.J0,
		J1Depart: f.J1Depart || other.J1Depart,
		Jplus1:   f.Jplus1 || other.Jplus1,
	}
}
