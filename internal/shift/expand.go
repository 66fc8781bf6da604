package shift

import (
	"fmt"
	"time"

	"shiftcal/internal/model"
)

// UnknownCodeError reports a roster shift code with no catalog rule.
// The caller is expected to log, skip the day and continue.
type UnknownCodeError struct {
	Code string
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("unknown shift code %q", e.Code)
}

// Expander turns (day-of-month, shift-code) pairs into concrete
// calendar event descriptors in a fixed timezone.
type Expander struct {
	// Catalog resolves shift codes. Required.
	Catalog *Catalog

	// Location is the calendar timezone (e.g. Asia/Tokyo). If nil,
	// time.Local is used.
	Location *time.Location

	// OwnerTag is embedded in the event summary; the reconciler later
	// identifies managed events by this substring.
	OwnerTag string
}

// Expand produces the DesiredEvent for one roster day.
//
//   - All-day rules: Start and End are both midnight of the day, with
//     AllDay set. The same-instant encoding is what the remote API
//     expects; all-day status travels in the flag, not the duration.
//   - Timed same-day rules: Start/End at the rule's clock times on day.
//   - Overnight rules: End lands on day+1. time.Date normalizes a
//     day past the end of the month into the next month, so a 夜勤 on
//     the 31st correctly ends on the 1st at 09:00.
func (x *Expander) Expand(year int, month time.Month, day int, code string) (model.DesiredEvent, error) {
	rule, ok := x.Catalog.Lookup(code)
	if !ok {
		return model.DesiredEvent{}, &UnknownCodeError{Code: code}
	}

	loc := x.Location
	if loc == nil {
		loc = time.Local
	}

	ev := model.DesiredEvent{
		OwnerTag:    x.OwnerTag,
		Summary:     fmt.Sprintf("%s: %s", x.OwnerTag, code),
		Description: fmt.Sprintf("%d月勤務予定 - %s (%s)", int(month), code, x.OwnerTag),
	}

	switch rule.Kind {
	case AllDay:
		midnight := time.Date(year, month, day, 0, 0, 0, 0, loc)
		ev.AllDay = true
		ev.Start = midnight
		ev.End = midnight

	case TimedSameDay:
		ev.Start = time.Date(year, month, day, rule.Start.Hour, rule.Start.Minute, 0, 0, loc)
		ev.End = time.Date(year, month, day, rule.End.Hour, rule.End.Minute, 0, 0, loc)

	case TimedOvernight:
		ev.Start = time.Date(year, month, day, rule.Start.Hour, rule.Start.Minute, 0, 0, loc)
		ev.End = time.Date(year, month, day+1, rule.End.Hour, rule.End.Minute, 0, 0, loc)

	default:
		return model.DesiredEvent{}, fmt.Errorf("shift rule %q: unsupported kind %v", code, rule.Kind)
	}

	return ev, nil
}
