package roster

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Entry is one roster day: which shift is worked on which day of the
// target month. A roster never has two entries for the same day.
type Entry struct {
	Day  int
	Code string
}

// Roster is one month's shift plan for a single person.
type Roster struct {
	Year  int
	Month time.Month

	// Entries are ordered by day.
	Entries []Entry
}

// DaysInMonth returns the number of calendar days in the roster month.
func (r *Roster) DaysInMonth() int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(r.Year, r.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// rosterFile is the YAML on-disk shape. Either a plain ordered list of
// codes (day 1 first, the way the source schedules were written) or
// explicit day/code entries.
type rosterFile struct {
	Month   string   `yaml:"month"` // "2006-01"
	Shifts  []string `yaml:"shifts,omitempty"`
	Entries []struct {
		Day  int    `yaml:"day"`
		Code string `yaml:"code"`
	} `yaml:"entries,omitempty"`
}

// Load reads and validates a roster YAML file.
func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates roster YAML.
func Parse(data []byte) (*Roster, error) {
	var f rosterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}

	if f.Month == "" {
		return nil, errors.New("roster: month is required (YYYY-MM)")
	}
	m, err := time.Parse("2006-01", f.Month)
	if err != nil {
		return nil, fmt.Errorf("roster: month %q: want YYYY-MM", f.Month)
	}

	r := &Roster{Year: m.Year(), Month: m.Month()}

	switch {
	case len(f.Shifts) > 0 && len(f.Entries) > 0:
		return nil, errors.New("roster: use either shifts or entries, not both")

	case len(f.Shifts) > 0:
		if len(f.Shifts) > r.DaysInMonth() {
			return nil, fmt.Errorf("roster: %d shifts for a %d-day month", len(f.Shifts), r.DaysInMonth())
		}
		for i, code := range f.Shifts {
			if code == "" {
				return nil, fmt.Errorf("roster: empty shift code for day %d", i+1)
			}
			r.Entries = append(r.Entries, Entry{Day: i + 1, Code: code})
		}

	case len(f.Entries) > 0:
		seen := make(map[int]bool)
		for _, e := range f.Entries {
			if e.Day < 1 || e.Day > r.DaysInMonth() {
				return nil, fmt.Errorf("roster: day %d out of range for %s", e.Day, f.Month)
			}
			if seen[e.Day] {
				return nil, fmt.Errorf("roster: duplicate entry for day %d", e.Day)
			}
			if e.Code == "" {
				return nil, fmt.Errorf("roster: empty shift code for day %d", e.Day)
			}
			seen[e.Day] = true
			r.Entries = append(r.Entries, Entry{Day: e.Day, Code: e.Code})
		}
		sort.Slice(r.Entries, func(i, j int) bool { return r.Entries[i].Day < r.Entries[j].Day })

	default:
		return nil, errors.New("roster: no shifts or entries")
	}

	return r, nil
}
