package roster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShiftList(t *testing.T) {
	data := []byte(`
month: 2025-06
shifts:
  - 明け
  - 休み
  - 夜勤
`)
	r, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, 2025, r.Year)
	assert.Equal(t, time.June, r.Month)
	require.Len(t, r.Entries, 3)
	assert.Equal(t, Entry{Day: 1, Code: "明け"}, r.Entries[0])
	assert.Equal(t, Entry{Day: 2, Code: "休み"}, r.Entries[1])
	assert.Equal(t, Entry{Day: 3, Code: "夜勤"}, r.Entries[2])
}

func TestParseEntriesSortedByDay(t *testing.T) {
	data := []byte(`
month: 2025-06
entries:
  - day: 15
    code: 日勤
  - day: 3
    code: 夜勤
`)
	r, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, r.Entries, 2)
	assert.Equal(t, 3, r.Entries[0].Day)
	assert.Equal(t, 15, r.Entries[1].Day)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "missing month",
			data: "shifts: [日勤]",
		},
		{
			name: "bad month format",
			data: "month: June 2025\nshifts: [日勤]",
		},
		{
			name: "duplicate day",
			data: "month: 2025-06\nentries:\n  - day: 1\n    code: 日勤\n  - day: 1\n    code: 休み",
		},
		{
			name: "day out of range",
			data: "month: 2025-06\nentries:\n  - day: 31\n    code: 日勤",
		},
		{
			name: "day zero",
			data: "month: 2025-06\nentries:\n  - day: 0\n    code: 日勤",
		},
		{
			name: "empty code in list",
			data: "month: 2025-06\nshifts: [日勤, '']",
		},
		{
			name: "both shifts and entries",
			data: "month: 2025-06\nshifts: [日勤]\nentries:\n  - day: 1\n    code: 日勤",
		},
		{
			name: "no entries at all",
			data: "month: 2025-06",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
		})
	}
}

func TestParseFullMonthList(t *testing.T) {
	// The June schedule from the source system: 30 codes, day 1 first.
	data := []byte(`
month: 2025-06
shifts: [明け, 有休, 有休, 日勤, 休み, 夜勤, 明け, 休み, 遅番, 夜勤, 明け, 休み, 日勤, 遅番, 休み, 夜勤, 明け, 休み, 休み, 夜勤, 明け, 休み, 日勤, B勤務, 夜勤, 明け, 休み, B勤務, 日勤, 休み]
`)
	r, err := Parse(data)
	require.NoError(t, err)
	assert.Len(t, r.Entries, 30)
	assert.Equal(t, 30, r.DaysInMonth())
	assert.Equal(t, Entry{Day: 30, Code: "休み"}, r.Entries[29])
}

func TestParseRejectsTooManyShifts(t *testing.T) {
	data := "month: 2025-02\nshifts: ["
	for i := 0; i < 29; i++ {
		data += "日勤, "
	}
	data += "日勤]"

	_, err := Parse([]byte(data))
	require.Error(t, err)
}

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2025, time.June, 30},
		{2025, time.July, 31},
		{2025, time.February, 28},
		{2024, time.February, 29},
		{2025, time.December, 31},
	}

	for _, tt := range tests {
		r := &Roster{Year: tt.year, Month: tt.month}
		assert.Equal(t, tt.want, r.DaysInMonth(), "%d-%d", tt.year, tt.month)
	}
}
