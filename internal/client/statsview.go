package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"growwly/internal/dayset"
	"growwly/internal/models"
	"growwly/internal/reconcile"
	"growwly/internal/stats"
)

type RecordsAPI interface {
	FetchRecords(ctx context.Context, q RecordQuery) ([]models.ProgressEntry, error)
}

// StatsSnapshot is one computed dashboard.
type StatsSnapshot struct {
	Owner     string
	Range     stats.Range
	Today     dayset.DayKey
	Summary   stats.Summary
	Period    stats.PeriodStats
	FetchedAt time.Time
}

// StatsView recomputes an owner's stats from their records. A failed
// refresh keeps the last good snapshot and raises a notice instead.
type StatsView struct {
	api      RecordsAPI
	owner    string
	calendar dayset.Calendar
	now      func() time.Time
	fetches  reconcile.Tracker

	mu     sync.Mutex
	snap   StatsSnapshot
	loaded bool
	notice string
}

func NewStatsView(api RecordsAPI, owner string, cal dayset.Calendar) *StatsView {
	return &StatsView{api: api, owner: owner, calendar: cal, now: time.Now}
}

// Refresh fetches and recomputes. When a newer Refresh started meanwhile,
// the result is discarded and the current snapshot returned.
func (v *StatsView) Refresh(ctx context.Context, rng stats.Range) (StatsSnapshot, error) {
	tok := v.fetches.Begin()
	entries, err := v.api.FetchRecords(ctx, RecordQuery{Owner: v.owner})
	if err == nil {
		var records []stats.Record
		records, err = stats.FromEntries(entries)
		if err == nil {
			now := v.now()
			today := v.calendar.Today(now)
			v.install(tok, StatsSnapshot{
				Owner:     v.owner,
				Range:     rng,
				Today:     today,
				Summary:   stats.Personal(records, today, true),
				Period:    stats.Aggregate(records, rng, today),
				FetchedAt: now,
			})
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil && v.fetches.Current(tok) {
		if v.loaded {
			v.notice = fmt.Sprintf("Couldn't refresh statistics, showing data from %s", v.snap.FetchedAt.Format("15:04"))
		} else {
			v.notice = "Couldn't load statistics"
		}
		return v.snap, err
	}
	return v.snap, nil
}

// install stores s unless a newer Refresh has begun. The generation is
// checked under mu so an older result cannot land after a newer one.
func (v *StatsView) install(tok reconcile.Token, s StatsSnapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.fetches.Current(tok) {
		return
	}
	v.snap = s
	v.loaded = true
	v.notice = ""
}

// Snapshot returns the last good stats and whether any load succeeded.
func (v *StatsView) Snapshot() (StatsSnapshot, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap, v.loaded
}

func (v *StatsView) Notice() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.notice
}

func (v *StatsView) DismissNotice() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notice = ""
}
