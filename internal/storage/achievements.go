package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"growwly/internal/apperr"
	"growwly/internal/dayset"
	"growwly/internal/logger"
	"growwly/internal/models"
	"growwly/internal/stats"
)

// AwardMilestones grants every milestone the summary satisfies and returns
// the ones earned for the first time.
func (s *Store) AwardMilestones(ctx context.Context, userID string, sum stats.Summary) ([]models.UserAchievement, error) {
	conditions := map[string]bool{
		"first_entry": sum.Total >= 1,
		"entries_10":  sum.Total >= 10,
		"entries_50":  sum.Total >= 50,
		"streak_3":    sum.CurrentStreak >= 3,
		"streak_7":    sum.CurrentStreak >= 7,
		"streak_30":   sum.CurrentStreak >= 30,
	}

	var awarded []models.UserAchievement
	for _, m := range milestones {
		if !conditions[m.name] {
			continue
		}
		ua := models.UserAchievement{
			ID:       newID(),
			UserID:   userID,
			TypeName: m.name,
			Title:    m.title,
			Icon:     m.icon,
			EarnedAt: s.now(),
		}
		res, err := s.exec(ctx, `
			INSERT INTO user_achievements (id, user_id, achievement_type, earned_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (user_id, achievement_type) DO NOTHING
		`, ua.ID, ua.UserID, ua.TypeName, ua.EarnedAt)
		if err != nil {
			return awarded, fmt.Errorf("award %s: %w", m.name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			logger.Info("achievement awarded", "user", userID, "achievement", m.name)
			awarded = append(awarded, ua)
		}
	}
	return awarded, nil
}

func (s *Store) ListAchievements(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	rows, err := s.query(ctx, `
		SELECT ua.id, ua.user_id, ua.achievement_type, t.title, t.icon, ua.earned_at, ua.is_featured
		FROM user_achievements ua
		JOIN achievement_types t ON t.name = ua.achievement_type
		WHERE ua.user_id = ?
		ORDER BY ua.earned_at ASC, t.points ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	out := []models.UserAchievement{}
	for rows.Next() {
		var ua models.UserAchievement
		if err := rows.Scan(&ua.ID, &ua.UserID, &ua.TypeName, &ua.Title, &ua.Icon, &ua.EarnedAt, &ua.IsFeatured); err != nil {
			return nil, err
		}
		out = append(out, ua)
	}
	return out, rows.Err()
}

func (s *Store) ListAchievementTypes(ctx context.Context) ([]models.AchievementType, error) {
	rows, err := s.query(ctx, `SELECT id, name, title, description, icon, points FROM achievement_types ORDER BY points ASC`)
	if err != nil {
		return nil, fmt.Errorf("list achievement types: %w", err)
	}
	defer rows.Close()

	out := []models.AchievementType{}
	for rows.Next() {
		var t models.AchievementType
		if err := rows.Scan(&t.ID, &t.Name, &t.Title, &t.Description, &t.Icon, &t.Points); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) CreateCustomAchievement(ctx context.Context, userID string, in models.CustomAchievement) (models.CustomAchievement, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return models.CustomAchievement{}, apperr.Validation("title is required")
	}
	day, err := dayset.Parse(in.DateEarned)
	if err != nil {
		return models.CustomAchievement{}, err
	}
	if in.Skills == nil {
		in.Skills = []string{}
	}
	skills, err := json.Marshal(in.Skills)
	if err != nil {
		return models.CustomAchievement{}, err
	}

	in.ID = newID()
	in.UserID = userID
	in.DateEarned = day.String()
	in.CreatedAt = s.now()
	_, err = s.exec(ctx, `
		INSERT INTO user_custom_achievements (id, user_id, title, description, date_earned, category, issuer,
			certificate_id, external_link, skills, is_featured, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, in.ID, in.UserID, in.Title, in.Description, in.DateEarned, in.Category, in.Issuer,
		in.CertificateID, in.ExternalLink, string(skills), in.IsFeatured, in.CreatedAt)
	if err != nil {
		return models.CustomAchievement{}, fmt.Errorf("insert custom achievement: %w", err)
	}
	return in, nil
}

// ListCustomAchievements returns the user's achievements, newest earned first.
func (s *Store) ListCustomAchievements(ctx context.Context, userID string) ([]models.CustomAchievement, error) {
	rows, err := s.query(ctx, `
		SELECT id, user_id, title, description, date_earned, category, issuer, certificate_id,
			external_link, skills, is_featured, created_at
		FROM user_custom_achievements
		WHERE user_id = ?
		ORDER BY date_earned DESC, created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list custom achievements: %w", err)
	}
	defer rows.Close()

	out := []models.CustomAchievement{}
	for rows.Next() {
		var (
			a      models.CustomAchievement
			skills string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Title, &a.Description, &a.DateEarned, &a.Category, &a.Issuer,
			&a.CertificateID, &a.ExternalLink, &skills, &a.IsFeatured, &a.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(skills), &a.Skills); err != nil {
			return nil, fmt.Errorf("decode skills of %s: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) DeleteCustomAchievement(ctx context.Context, id, userID string) error {
	res, err := s.exec(ctx, `DELETE FROM user_custom_achievements WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete custom achievement: %w", err)
	}
	return affected(res, "custom achievement %s", id)
}
