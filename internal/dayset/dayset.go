// Package dayset maps timestamps onto calendar days and provides the
// deduplicated day sets that streak and period statistics are computed over.
package dayset

import (
	"fmt"
	"slices"
	"time"

	"growwly/internal/apperr"
)

// Layout is the ISO 8601 calendar date layout used for every DayKey.
const Layout = "2006-01-02"

// ErrInvalidDate is returned for input that is not a YYYY-MM-DD date.
var ErrInvalidDate = fmt.Errorf("%w: invalid date", apperr.ErrValidation)

// DayKey is a locale-independent calendar date such as "2024-01-03".
// DayKeys order chronologically under plain string comparison.
type DayKey string

func (k DayKey) String() string { return string(k) }

// Time returns midnight UTC of the day.
func (k DayKey) Time() time.Time {
	t, _ := time.Parse(Layout, string(k))
	return t
}

// Parse validates s and returns it as a DayKey.
func Parse(s string) (DayKey, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return "", fmt.Errorf("%w %q", ErrInvalidDate, s)
	}
	return DayKey(t.Format(Layout)), nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) DayKey {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

// Calendar converts timestamps to DayKeys in one fixed location so that the
// same instant always yields the same day.
type Calendar struct {
	loc *time.Location
}

func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// DayKey returns the calendar day t falls on.
func (c Calendar) DayKey(t time.Time) DayKey {
	return DayKey(t.In(c.Location()).Format(Layout))
}

// Today is DayKey(now); kept separate so call sites read naturally.
func (c Calendar) Today(now time.Time) DayKey {
	return c.DayKey(now)
}

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b DayKey) (int, error) {
	ta, err := time.Parse(Layout, string(a))
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrInvalidDate, a)
	}
	tb, err := time.Parse(Layout, string(b))
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrInvalidDate, b)
	}
	// Parsed keys are UTC midnights, so whole days divide exactly. Sub would
	// saturate for keys about 292 years apart.
	return int(tb.Unix()/86400 - ta.Unix()/86400), nil
}

// AddDays shifts k by n calendar days.
func AddDays(k DayKey, n int) DayKey {
	return DayKey(k.Time().AddDate(0, 0, n).Format(Layout))
}

// Set is an unordered, deduplicated collection of days.
type Set struct {
	days map[DayKey]struct{}
}

func NewSet(keys ...DayKey) Set {
	s := Set{days: make(map[DayKey]struct{}, len(keys))}
	for _, k := range keys {
		s.days[k] = struct{}{}
	}
	return s
}

func (s *Set) Add(k DayKey) {
	if s.days == nil {
		s.days = make(map[DayKey]struct{})
	}
	s.days[k] = struct{}{}
}

func (s Set) Has(k DayKey) bool {
	_, ok := s.days[k]
	return ok
}

func (s Set) Len() int { return len(s.days) }

// Sorted returns the days in ascending order.
func (s Set) Sorted() []DayKey {
	out := make([]DayKey, 0, len(s.days))
	for k := range s.days {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
