// Package stats computes streaks, period buckets, and visibility counters
// from a snapshot of activity records. Every function is pure: the same
// snapshot and the same "today" always produce the same result.
package stats

import (
	"fmt"
	"time"

	"growwly/internal/dayset"
	"growwly/internal/models"
)

// Record is the read-only view of a progress entry the engine works on.
type Record struct {
	ID         string
	OwnerID    string
	Day        dayset.DayKey
	Visibility models.Visibility
	CreatedAt  time.Time
}

// FromEntry validates the entry's date and visibility.
func FromEntry(e models.ProgressEntry) (Record, error) {
	day, err := dayset.Parse(e.Date)
	if err != nil {
		return Record{}, fmt.Errorf("entry %s: %w", e.ID, err)
	}
	vis, err := models.ParseVisibility(string(e.Visibility))
	if err != nil {
		return Record{}, fmt.Errorf("entry %s: %w", e.ID, err)
	}
	return Record{
		ID:         e.ID,
		OwnerID:    e.UserID,
		Day:        day,
		Visibility: vis,
		CreatedAt:  e.CreatedAt,
	}, nil
}

func FromEntries(entries []models.ProgressEntry) ([]Record, error) {
	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		r, err := FromEntry(e)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Days collapses records onto their distinct days.
func Days(records []Record) dayset.Set {
	s := dayset.NewSet()
	for _, r := range records {
		s.Add(r.Day)
	}
	return s
}

// PublicOnly drops private records.
func PublicOnly(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Visibility == models.VisibilityPublic {
			out = append(out, r)
		}
	}
	return out
}
