package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"growwly/internal/apperr"
	"growwly/internal/models"
)

// ToggleLike likes the entry, or removes an existing like. The returned
// interaction is the inserted or removed row.
func (s *Store) ToggleLike(ctx context.Context, userID, progressID string) (models.Interaction, bool, error) {
	entry, err := s.GetProgress(ctx, progressID)
	if err != nil {
		return models.Interaction{}, false, err
	}
	if entry.Visibility != models.VisibilityPublic && entry.UserID != userID {
		return models.Interaction{}, false, apperr.NotFound("progress entry %s", progressID)
	}

	var existing models.Interaction
	err = s.queryRow(ctx, `
		SELECT id, user_id, progress_id, type, content, created_at, updated_at
		FROM community_interactions
		WHERE user_id = ? AND progress_id = ? AND type = 'like'
	`, userID, progressID).Scan(&existing.ID, &existing.UserID, &existing.ProgressID, &existing.Type,
		&existing.Content, &existing.CreatedAt, &existing.UpdatedAt)
	switch {
	case err == nil:
		if _, err := s.exec(ctx, `DELETE FROM community_interactions WHERE id = ?`, existing.ID); err != nil {
			return models.Interaction{}, false, fmt.Errorf("remove like: %w", err)
		}
		return existing, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return models.Interaction{}, false, err
	}

	like, err := s.insertInteraction(ctx, userID, progressID, models.InteractionLike, "")
	if isUniqueViolation(err) {
		// a concurrent toggle won the race; the entry is liked either way
		return like, true, nil
	}
	return like, err == nil, err
}

func (s *Store) AddComment(ctx context.Context, userID, progressID, content string) (models.Interaction, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Interaction{}, apperr.Validation("comment is empty")
	}
	entry, err := s.GetProgress(ctx, progressID)
	if err != nil {
		return models.Interaction{}, err
	}
	if entry.Visibility != models.VisibilityPublic && entry.UserID != userID {
		return models.Interaction{}, apperr.NotFound("progress entry %s", progressID)
	}
	return s.insertInteraction(ctx, userID, progressID, models.InteractionComment, content)
}

func (s *Store) insertInteraction(ctx context.Context, userID, progressID string, typ models.InteractionType, content string) (models.Interaction, error) {
	now := s.now()
	in := models.Interaction{
		ID:         newID(),
		UserID:     userID,
		ProgressID: progressID,
		Type:       typ,
		Content:    content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err := s.exec(ctx, `
		INSERT INTO community_interactions (id, user_id, progress_id, type, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, in.ID, in.UserID, in.ProgressID, in.Type, in.Content, in.CreatedAt, in.UpdatedAt)
	if err != nil {
		return models.Interaction{}, fmt.Errorf("insert interaction: %w", err)
	}
	return in, nil
}

// ListInteractions returns likes and comments on an entry, oldest first.
func (s *Store) ListInteractions(ctx context.Context, progressID string) ([]models.Interaction, error) {
	rows, err := s.query(ctx, `
		SELECT id, user_id, progress_id, type, content, created_at, updated_at
		FROM community_interactions
		WHERE progress_id = ?
		ORDER BY created_at ASC
	`, progressID)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	out := []models.Interaction{}
	for rows.Next() {
		var in models.Interaction
		if err := rows.Scan(&in.ID, &in.UserID, &in.ProgressID, &in.Type, &in.Content, &in.CreatedAt, &in.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *Store) BlockUser(ctx context.Context, blockerID, blockedID string) error {
	if blockerID == blockedID {
		return apperr.Validation("cannot block yourself")
	}
	if _, err := s.GetProfile(ctx, blockedID); err != nil {
		return err
	}
	_, err := s.exec(ctx, `
		INSERT INTO user_blocks (blocker_id, blocked_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (blocker_id, blocked_id) DO NOTHING
	`, blockerID, blockedID, s.now())
	if err != nil {
		return fmt.Errorf("block user: %w", err)
	}
	return nil
}

func (s *Store) UnblockUser(ctx context.Context, blockerID, blockedID string) error {
	res, err := s.exec(ctx, `DELETE FROM user_blocks WHERE blocker_id = ? AND blocked_id = ?`, blockerID, blockedID)
	if err != nil {
		return fmt.Errorf("unblock user: %w", err)
	}
	return affected(res, "block on %s", blockedID)
}

func (s *Store) ListBlocks(ctx context.Context, blockerID string) ([]models.Block, error) {
	rows, err := s.query(ctx, `
		SELECT blocker_id, blocked_id, created_at FROM user_blocks
		WHERE blocker_id = ? ORDER BY created_at ASC
	`, blockerID)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	out := []models.Block{}
	for rows.Next() {
		var b models.Block
		if err := rows.Scan(&b.BlockerID, &b.BlockedID, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
