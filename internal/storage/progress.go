package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"growwly/internal/apperr"
	"growwly/internal/dayset"
	"growwly/internal/models"
)

// RecordQuery filters progress entries. Zero fields do not filter.
type RecordQuery struct {
	OwnerID    string
	Visibility models.Visibility
	DateFrom   dayset.DayKey
	Limit      int
}

const progressColumns = `d.id, d.user_id, d.date, d.heading, d.description, d.video_url, d.image_url,
	d.visibility, d.created_at, d.updated_at`

func scanProgress(row interface{ Scan(...any) error }, dest ...any) (models.ProgressEntry, error) {
	var e models.ProgressEntry
	cols := []any{&e.ID, &e.UserID, &e.Date, &e.Heading, &e.Description, &e.VideoURL, &e.ImageURL,
		&e.Visibility, &e.CreatedAt, &e.UpdatedAt}
	err := row.Scan(append(cols, dest...)...)
	return e, err
}

// FetchRecords returns matching entries ordered ascending by day.
func (s *Store) FetchRecords(ctx context.Context, q RecordQuery) ([]models.ProgressEntry, error) {
	var (
		where []string
		args  []any
	)
	if q.OwnerID != "" {
		where = append(where, "d.user_id = ?")
		args = append(args, q.OwnerID)
	}
	if q.Visibility != "" {
		vis, err := models.ParseVisibility(string(q.Visibility))
		if err != nil {
			return nil, err
		}
		where = append(where, "d.visibility = ?")
		args = append(args, vis)
	}
	if q.DateFrom != "" {
		if _, err := dayset.Parse(string(q.DateFrom)); err != nil {
			return nil, err
		}
		where = append(where, "d.date >= ?")
		args = append(args, string(q.DateFrom))
	}

	query := `SELECT ` + progressColumns + ` FROM daily_progress d`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY d.date ASC, d.created_at ASC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	defer rows.Close()

	entries := []models.ProgressEntry{}
	for rows.Next() {
		e, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// NewProgress holds the caller-supplied fields of an entry.
type NewProgress struct {
	Date        string            `json:"date"`
	Heading     string            `json:"heading"`
	Description string            `json:"description"`
	VideoURL    string            `json:"video_url"`
	ImageURL    string            `json:"image_url"`
	Visibility  models.Visibility `json:"visibility"`
}

func (s *Store) CreateProgress(ctx context.Context, userID string, in NewProgress) (models.ProgressEntry, error) {
	day, err := dayset.Parse(in.Date)
	if err != nil {
		return models.ProgressEntry{}, err
	}
	heading := strings.TrimSpace(in.Heading)
	if heading == "" {
		return models.ProgressEntry{}, apperr.Validation("heading is required")
	}
	vis := in.Visibility
	if vis == "" {
		vis = models.VisibilityPublic
	}
	if vis, err = models.ParseVisibility(string(vis)); err != nil {
		return models.ProgressEntry{}, err
	}

	now := s.now()
	e := models.ProgressEntry{
		ID:          newID(),
		UserID:      userID,
		Date:        day.String(),
		Heading:     heading,
		Description: strings.TrimSpace(in.Description),
		VideoURL:    strings.TrimSpace(in.VideoURL),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		Visibility:  vis,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err = s.exec(ctx, `
		INSERT INTO daily_progress (id, user_id, date, heading, description, video_url, image_url, visibility, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.Date, e.Heading, e.Description, e.VideoURL, e.ImageURL, e.Visibility, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return models.ProgressEntry{}, fmt.Errorf("insert progress: %w", err)
	}
	return e, nil
}

func (s *Store) GetProgress(ctx context.Context, id string) (models.ProgressEntry, error) {
	e, err := scanProgress(s.queryRow(ctx, `SELECT `+progressColumns+` FROM daily_progress d WHERE d.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProgressEntry{}, apperr.NotFound("progress entry %s", id)
	}
	return e, err
}

// DeleteProgress removes an entry owned by ownerID.
func (s *Store) DeleteProgress(ctx context.Context, id, ownerID string) error {
	res, err := s.exec(ctx, `DELETE FROM daily_progress WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return affected(res, "progress entry %s", id)
}

// CommunityFeed lists public entries newest first with their authors,
// skipping authors viewerID has blocked.
func (s *Store) CommunityFeed(ctx context.Context, viewerID string, limit int) ([]models.ProgressEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.query(ctx, `
		SELECT `+progressColumns+`, p.id, p.full_name, p.avatar_url, p.created_at
		FROM daily_progress d
		JOIN profiles p ON p.id = d.user_id
		WHERE d.visibility = 'public'
		AND d.user_id NOT IN (SELECT blocked_id FROM user_blocks WHERE blocker_id = ?)
		ORDER BY d.created_at DESC
		LIMIT ?
	`, viewerID, limit)
	if err != nil {
		return nil, fmt.Errorf("community feed: %w", err)
	}
	defer rows.Close()

	feed := []models.ProgressEntry{}
	for rows.Next() {
		var a models.Author
		e, err := scanProgress(rows, &a.ID, &a.FullName, &a.AvatarURL, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		e.Author = &a
		feed = append(feed, e)
	}
	return feed, rows.Err()
}

// RecentHeadings returns the owner's distinct headings, most recent first.
func (s *Store) RecentHeadings(ctx context.Context, ownerID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.query(ctx, `
		SELECT heading FROM daily_progress
		WHERE user_id = ?
		GROUP BY heading
		ORDER BY MAX(created_at) DESC
		LIMIT ?
	`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent headings: %w", err)
	}
	defer rows.Close()

	headings := []string{}
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		headings = append(headings, h)
	}
	return headings, rows.Err()
}
