package stats

import (
	"math"

	"growwly/internal/dayset"
	"growwly/internal/models"
)

type Counters struct {
	Public  int `json:"public_entries"`
	Private int `json:"private_entries"`
	Total   int `json:"total_entries"`
}

func Count(records []Record) Counters {
	var c Counters
	for _, r := range records {
		if r.Visibility == models.VisibilityPublic {
			c.Public++
		} else {
			c.Private++
		}
	}
	c.Total = c.Public + c.Private
	return c
}

// PublicShare is the public percentage of Total, 0 when empty.
func (c Counters) PublicShare() float64 { return share(c.Public, c.Total) }

func (c Counters) PrivateShare() float64 { return share(c.Private, c.Total) }

// PublicOnly drops the private count for community-facing views.
func (c Counters) PublicOnly() Counters {
	return Counters{Public: c.Public, Total: c.Public}
}

func share(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}

// Summary is the personal dashboard: counts, streaks and rolling windows.
type Summary struct {
	Counters
	PublicPct      float64 `json:"public_share"`
	PrivatePct     float64 `json:"private_share"`
	UniqueDays     int     `json:"unique_days"`
	CurrentStreak  int     `json:"current_streak"`
	LongestStreak  int     `json:"longest_streak"`
	AveragePerWeek float64 `json:"average_per_week"`
	ThisWeek       int     `json:"this_week"`
	LastWeek       int     `json:"last_week"`
	ThisMonth      int     `json:"this_month"`
	LastMonth      int     `json:"last_month"`
	WeekChange     Change  `json:"week_change"`
	MonthChange    Change  `json:"month_change"`
}

// Personal summarises one owner's records. When ownerView is false only
// public records are considered, so Private always reads 0.
func Personal(records []Record, today dayset.DayKey, ownerView bool) Summary {
	if !ownerView {
		records = PublicOnly(records)
	}
	days := Days(records)
	streaks := Streaks(days, today)
	period := Aggregate(records, RangeMonth, today)
	counters := Count(records)

	return Summary{
		Counters:       counters,
		PublicPct:      counters.PublicShare(),
		PrivatePct:     counters.PrivateShare(),
		UniqueDays:     days.Len(),
		CurrentStreak:  streaks.Current,
		LongestStreak:  streaks.Longest,
		AveragePerWeek: AveragePerWeek(days.Len()),
		ThisWeek:       period.ThisWeek,
		LastWeek:       period.LastWeek,
		ThisMonth:      period.ThisMonth,
		LastMonth:      period.LastMonth,
		WeekChange:     period.WeekChange,
		MonthChange:    period.MonthChange,
	}
}

type CommunitySummary struct {
	TotalPublic  int `json:"total_public_entries"`
	ActiveUsers  int `json:"active_users"`
	TodayEntries int `json:"today_entries"`
}

// Community summarises the public feed across all owners. Private records
// are ignored.
func Community(records []Record, today dayset.DayKey) CommunitySummary {
	owners := make(map[string]struct{})
	var cs CommunitySummary
	for _, r := range PublicOnly(records) {
		cs.TotalPublic++
		owners[r.OwnerID] = struct{}{}
		if r.Day == today {
			cs.TodayEntries++
		}
	}
	cs.ActiveUsers = len(owners)
	return cs
}
