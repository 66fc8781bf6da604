package ics

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftcal/internal/model"
)

func TestExport(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	events := []model.DesiredEvent{
		{
			OwnerTag: "X",
			Summary:  "X: 休み",
			AllDay:   true,
			Start:    time.Date(2025, time.June, 1, 0, 0, 0, 0, loc),
			End:      time.Date(2025, time.June, 1, 0, 0, 0, 0, loc),
		},
		{
			OwnerTag:    "X",
			Summary:     "X: 夜勤",
			Description: "6月勤務予定 - 夜勤 (X)",
			Start:       time.Date(2025, time.June, 3, 16, 0, 0, 0, loc),
			End:         time.Date(2025, time.June, 4, 9, 0, 0, 0, loc),
		},
	}

	data, err := Export(events)
	require.NoError(t, err)
	out := string(data)

	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "X: 休み")
	assert.Contains(t, out, "X: 夜勤")

	// All-day events use DATE values spanning one day.
	assert.Contains(t, out, "VALUE=DATE:20250601")
	assert.Contains(t, out, "VALUE=DATE:20250602")

	// Stable per-day UIDs.
	assert.Contains(t, out, "20250601-X@shiftcal")
	assert.Contains(t, out, "20250603-X@shiftcal")
}

func TestExportRejectsEmpty(t *testing.T) {
	_, err := Export(nil)
	require.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	path := t.TempDir() + "/june.ics"
	events := []model.DesiredEvent{
		{
			OwnerTag: "X",
			Summary:  "X: 日勤",
			Start:    time.Date(2025, time.June, 4, 8, 30, 0, 0, loc),
			End:      time.Date(2025, time.June, 4, 17, 0, 0, 0, loc),
		},
	}

	require.NoError(t, WriteFile(path, events))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "BEGIN:VCALENDAR")
}
