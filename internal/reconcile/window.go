package reconcile

import "time"

// MonthWindow returns the half-open interval [first of the month 00:00,
// first of the next month 00:00) in loc. Every event of the target
// month, including an overnight shift spilling into the next month's
// first morning, starts inside it.
func MonthWindow(year int, month time.Month, loc *time.Location) (from, until time.Time) {
	if loc == nil {
		loc = time.Local
	}
	from = time.Date(year, month, 1, 0, 0, 0, 0, loc)
	until = time.Date(year, month+1, 1, 0, 0, 0, 0, loc)
	return from, until
}
