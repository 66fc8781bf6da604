package shift

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind classifies how a shift code maps onto a calendar time span.
type Kind int

const (
	// AllDay shifts occupy the whole calendar day (休み, 明け, ...).
	AllDay Kind = iota
	// TimedSameDay shifts start and end on the same calendar day.
	TimedSameDay
	// TimedOvernight shifts end on the calendar day after they start (夜勤).
	TimedOvernight
)

func (k Kind) String() string {
	switch k {
	case AllDay:
		return "all_day"
	case TimedSameDay:
		return "timed"
	case TimedOvernight:
		return "timed_overnight"
	default:
		return "unknown"
	}
}

// ClockTime is a wall-clock time of day without a date.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses "HH:MM" (24h) into a ClockTime.
func ParseClockTime(s string) (ClockTime, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return ClockTime{}, fmt.Errorf("clock time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return ClockTime{}, fmt.Errorf("clock time %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return ClockTime{}, fmt.Errorf("clock time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return ClockTime{}, fmt.Errorf("clock time %q: out of range", s)
	}
	return ClockTime{Hour: h, Minute: m}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// minutes returns the clock time as minutes since midnight, for ordering.
func (c ClockTime) minutes() int {
	return c.Hour*60 + c.Minute
}

// Rule describes the time span a single shift code expands to.
type Rule struct {
	Code  string
	Kind  Kind
	Start ClockTime // zero for AllDay
	End   ClockTime // zero for AllDay
}

// NewRule builds a timed Rule from clock-time strings. An end time
// numerically at or before the start implies an overnight shift.
func NewRule(code, start, end string) (Rule, error) {
	if code == "" {
		return Rule{}, errors.New("shift rule: empty code")
	}
	st, err := ParseClockTime(start)
	if err != nil {
		return Rule{}, fmt.Errorf("shift rule %q: %w", code, err)
	}
	en, err := ParseClockTime(end)
	if err != nil {
		return Rule{}, fmt.Errorf("shift rule %q: %w", code, err)
	}
	kind := TimedSameDay
	if en.minutes() <= st.minutes() {
		kind = TimedOvernight
	}
	return Rule{Code: code, Kind: kind, Start: st, End: en}, nil
}

// NewAllDayRule builds an all-day Rule for the given code.
func NewAllDayRule(code string) (Rule, error) {
	if code == "" {
		return Rule{}, errors.New("shift rule: empty code")
	}
	return Rule{Code: code, Kind: AllDay}, nil
}

// Catalog maps shift codes to their expansion rules.
type Catalog struct {
	rules map[string]Rule
}

// DefaultCatalog returns the built-in shift table of the source system:
//
//	日勤  08:30–17:00
//	遅番  10:00–18:30
//	夜勤  16:00–翌09:00
//	明け / 休み / 有休 / B勤務  終日
func DefaultCatalog() *Catalog {
	c := &Catalog{rules: make(map[string]Rule)}
	for _, code := range []string{"明け", "休み", "有休", "B勤務"} {
		c.rules[code] = Rule{Code: code, Kind: AllDay}
	}
	c.rules["日勤"] = Rule{
		Code:  "日勤",
		Kind:  TimedSameDay,
		Start: ClockTime{Hour: 8, Minute: 30},
		End:   ClockTime{Hour: 17, Minute: 0},
	}
	c.rules["遅番"] = Rule{
		Code:  "遅番",
		Kind:  TimedSameDay,
		Start: ClockTime{Hour: 10, Minute: 0},
		End:   ClockTime{Hour: 18, Minute: 30},
	}
	c.rules["夜勤"] = Rule{
		Code:  "夜勤",
		Kind:  TimedOvernight,
		Start: ClockTime{Hour: 16, Minute: 0},
		End:   ClockTime{Hour: 9, Minute: 0},
	}
	return c
}

// Lookup resolves a shift code to its rule.
func (c *Catalog) Lookup(code string) (Rule, bool) {
	r, ok := c.rules[code]
	return r, ok
}

// Put adds or replaces a rule, keyed by its code.
func (c *Catalog) Put(r Rule) {
	if c.rules == nil {
		c.rules = make(map[string]Rule)
	}
	c.rules[r.Code] = r
}

// Codes returns all known shift codes in a stable order.
func (c *Catalog) Codes() []string {
	out := make([]string, 0, len(c.rules))
	for code := range c.rules {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
