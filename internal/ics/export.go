package ics

import (
	"errors"
	"fmt"
	"os"
	"time"

	ical "github.com/arran4/golang-ical"

	"shiftcal/internal/model"
)

// Export serializes the desired month as an iCalendar document, one
// discrete VEVENT per roster day. All-day events follow the ICS
// convention of DATE values spanning [day, day+1) rather than the
// remote API's same-instant flag encoding.
func Export(events []model.DesiredEvent) ([]byte, error) {
	if len(events) == 0 {
		return nil, errors.New("ics export: no events")
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//shiftcal//shift schedule//JA")

	now := time.Now().UTC()
	for _, ev := range events {
		ve := cal.AddEvent(eventUID(ev))
		ve.SetDtStampTime(now)
		ve.SetSummary(ev.Summary)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}

		if ev.AllDay {
			ve.SetAllDayStartAt(ev.Start)
			ve.SetAllDayEndAt(ev.Start.AddDate(0, 0, 1))
			continue
		}
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
	}

	return []byte(cal.Serialize()), nil
}

// WriteFile exports events to path with 0600 permissions.
func WriteFile(path string, events []model.DesiredEvent) error {
	data, err := Export(events)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// eventUID derives a stable per-day UID from the event's start date and
// owner, so re-exports replace rather than duplicate in ICS consumers.
func eventUID(ev model.DesiredEvent) string {
	return fmt.Sprintf("%s-%s@shiftcal", ev.Start.Format("20060102"), ev.OwnerTag)
}
