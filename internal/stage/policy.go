package stage

import "chaletd/internal/date"

// trigger reports whether a stage's offset condition holds. Arrival-relative
// stages use daysBefore (arrival - today), departure-relative stages use
// daysAfter (today - departure).
func trigger(s Stage, daysBefore, daysAfter int) bool {
	switch s {
	case SevenDaysOut:
		return daysBefore == 7
	case ThreeDaysOut:
		return daysBefore == 3
	case OneDayOut:
		return daysBefore == 1
	case DayOf:
		return daysBefore == 0
	case DepartureEve:
		return daysAfter == 1
	case PostStay:
		return daysAfter == -1
	default:
		return false
	}
}

// passed reports whether the stage's trigger day is already behind us,
// meaning the stage can no longer fire.
func passed(s Stage, daysBefore, daysAfter int) bool {
	switch s {
	case SevenDaysOut:
		return daysBefore < 7
	case ThreeDaysOut:
		return daysBefore < 3
	case OneDayOut:
		return daysBefore < 1
	case DayOf:
		return daysBefore < 0
	case DepartureEve:
		return daysAfter > 1
	case PostStay:
		return daysAfter > -1
	default:
		return false
	}
}

// Due returns every stage whose trigger condition holds today and whose flag
// is still false. Offsets are evaluated independently, so after scheduler
// downtime more than one stage can qualify on the same run; all of them are
// returned so none is silently lost.
func Due(today, arrival, departure date.Date, sent Flags) []Stage {
	daysBefore := today.DaysUntil(arrival)
	daysAfter := departure.DaysUntil(today)

	var due []Stage
	for _, s := range All {
		if sent.Sent(s) {
			continue
		}
		if trigger(s, daysBefore, daysAfter) {
			due = append(due, s)
		}
	}
	return due
}

// Missed returns every unsent stage whose trigger day has already passed.
// Such stages will never fire for this reservation; the scheduler surfaces
// them in logs, nothing masks the loss.
func Missed(today, arrival, departure date.Date, sent Flags) []Stage {
	daysBefore := today.DaysUntil(arrival)
	daysAfter := departure.DaysUntil(today)

	var missed []Stage
	for _, s := range All {
		if sent.Sent(s) {
			continue
		}
		if passed(s, daysBefore, daysAfter) {
			missed = append(missed, s)
		}
	}
	return missed
}
