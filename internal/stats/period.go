package stats

import (
	"math"
	"slices"

	"growwly/internal/apperr"
	"growwly/internal/dayset"
	"growwly/internal/models"
)

type Range string

const (
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
	RangeYear  Range = "year"
)

// ParseRange accepts week, month or year; empty means month.
func ParseRange(s string) (Range, error) {
	switch Range(s) {
	case "":
		return RangeMonth, nil
	case RangeWeek, RangeMonth, RangeYear:
		return Range(s), nil
	}
	return "", apperr.Validation("range %q must be week, month or year", s)
}

func (r Range) Days() int {
	switch r {
	case RangeWeek:
		return 7
	case RangeYear:
		return 365
	default:
		return 30
	}
}

// Bucket holds the entries logged on one day, split by visibility.
type Bucket struct {
	Day     dayset.DayKey `json:"date"`
	Public  int           `json:"public"`
	Private int           `json:"private"`
}

func (b Bucket) Total() int { return b.Public + b.Private }

// Change is a period-over-period delta as shown next to a counter.
type Change struct {
	Pct      int  `json:"pct"`
	Positive bool `json:"positive"`
}

type PeriodStats struct {
	Range       Range    `json:"range"`
	Buckets     []Bucket `json:"buckets"`
	ThisWeek    int      `json:"this_week"`
	LastWeek    int      `json:"last_week"`
	ThisMonth   int      `json:"this_month"`
	LastMonth   int      `json:"last_month"`
	WeekChange  Change   `json:"week_change"`
	MonthChange Change   `json:"month_change"`
}

// Aggregate buckets the records that fall within rng of today and computes
// the rolling week and month windows over the full record set. Entries dated
// after today count toward the current windows.
func Aggregate(records []Record, rng Range, today dayset.DayKey) PeriodStats {
	start := dayset.AddDays(today, -rng.Days())
	byDay := make(map[dayset.DayKey]*Bucket)

	ps := PeriodStats{Range: rng, Buckets: []Bucket{}}
	for _, r := range records {
		age, err := dayset.DaysBetween(r.Day, today)
		if err != nil {
			continue
		}
		switch {
		case age < 7:
			ps.ThisWeek++
		case age < 14:
			ps.LastWeek++
		}
		switch {
		case age < 30:
			ps.ThisMonth++
		case age < 60:
			ps.LastMonth++
		}

		if r.Day < start {
			continue
		}
		b, ok := byDay[r.Day]
		if !ok {
			b = &Bucket{Day: r.Day}
			byDay[r.Day] = b
		}
		if r.Visibility == models.VisibilityPublic {
			b.Public++
		} else {
			b.Private++
		}
	}

	for _, b := range byDay {
		ps.Buckets = append(ps.Buckets, *b)
	}
	slices.SortFunc(ps.Buckets, func(a, b Bucket) int {
		switch {
		case a.Day < b.Day:
			return -1
		case a.Day > b.Day:
			return 1
		}
		return 0
	})

	ps.WeekChange = ChangeOf(ps.ThisWeek, ps.LastWeek)
	ps.MonthChange = ChangeOf(ps.ThisMonth, ps.LastMonth)
	return ps
}

// ChangePct is the rounded signed percentage change from previous to
// current. It is 0 whenever previous is 0, whatever current is.
func ChangePct(current, previous int) int {
	if previous == 0 {
		return 0
	}
	return int(math.Round(float64(current-previous) / float64(previous) * 100))
}

func ChangeOf(current, previous int) Change {
	pct := ChangePct(current, previous)
	return Change{Pct: pct, Positive: pct >= 0}
}

// LastN returns the n most recent buckets, still in ascending order.
func LastN(buckets []Bucket, n int) []Bucket {
	if n <= 0 {
		return []Bucket{}
	}
	if n >= len(buckets) {
		return slices.Clone(buckets)
	}
	return slices.Clone(buckets[len(buckets)-n:])
}

// AveragePerWeek divides the active-day count by that same count over seven,
// which is a placeholder heuristic rather than a true weekly rate.
func AveragePerWeek(uniqueDays int) float64 {
	if uniqueDays <= 0 {
		return 0
	}
	avg := float64(uniqueDays) / math.Max(1, float64(uniqueDays)/7)
	return math.Round(avg*10) / 10
}
