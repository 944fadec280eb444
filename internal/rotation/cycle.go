package rotation

import "time"

// Frequency mirrors the group cadence for date arithmetic.
type Frequency string

const (
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// DueDate returns the due date of the given 1-based cycle: the start date
// advanced by (cycle-1) periods. Monthly cadence uses calendar months via
// AddDate, so a group starting Jan 31 has its February cycle due Mar 2/3
// (Go's date normalization), which matches how the ledger has always billed.
func DueDate(start time.Time, freq Frequency, cycle int) time.Time {
	if cycle < 1 {
		cycle = 1
	}
	switch freq {
	case Weekly:
		return start.AddDate(0, 0, 7*(cycle-1))
	default:
		return start.AddDate(0, cycle-1, 0)
	}
}

// EndDate returns the date the group's final cycle is due.
func EndDate(start time.Time, freq Frequency, durationCycles int) time.Time {
	return DueDate(start, freq, durationCycles)
}

// CurrentCycle returns the 1-based cycle containing asOf, or 0 if asOf is
// before the start date. The result is not capped at the group's duration;
// callers compare against DurationCycles to detect completion.
func CurrentCycle(start time.Time, freq Frequency, asOf time.Time) int {
	if asOf.Before(start) {
		return 0
	}
	cycle := 1
	for !DueDate(start, freq, cycle+1).After(asOf) {
		cycle++
	}
	return cycle
}
